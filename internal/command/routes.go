package command

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	server "github.com/rr-brian/rts-ai/internal/transport/http"
)

func newRoutesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the registered routes and capability modes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := server.Bootstrap(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			routes := server.NewServer(rt).Routes()
			sort.Slice(routes, func(i, j int) bool {
				if routes[i].Path != routes[j].Path {
					return routes[i].Path < routes[j].Path
				}
				return routes[i].Method < routes[j].Method
			})

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, r := range routes {
				fmt.Fprintf(w, "%s\t%s\n", r.Method, r.Path)
			}
			fmt.Fprintln(w)
			for _, name := range rt.Report.Names() {
				o, _ := rt.Report.Outcome(name)
				fmt.Fprintf(w, "%s\t%s\t%s\n", name, o.Mode, o.Reason)
			}
			return w.Flush()
		},
	}
}

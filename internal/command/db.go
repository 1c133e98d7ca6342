package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rr-brian/rts-ai/internal/repository"
)

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the conversations table if it does not exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %s (%s)\n", repository.Table, store.Dialect())
			return nil
		},
	}
}

func newCheckDBCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check-db",
		Short: "Verify database connectivity and report whether the schema exists",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "connected: %s (%s)\n", a.cfg.Database.Redacted(), store.Dialect())

			exists, err := store.TableExists(cmd.Context())
			if err != nil {
				return err
			}
			if exists {
				fmt.Fprintf(out, "table %s: present\n", repository.Table)
			} else {
				fmt.Fprintf(out, "table %s: missing (run migrate)\n", repository.Table)
			}
			return nil
		},
	}
}

// openStore connects to the configured database without a fallback.
func (a *app) openStore(cmd *cobra.Command) (*repository.SQLStore, error) {
	db, dialect, err := repository.Open(cmd.Context(), a.cfg.Database)
	if err != nil {
		return nil, err
	}
	return repository.NewSQLStore(db, dialect, repository.Options{
		Timeout:       a.cfg.Database.Timeout,
		MaxConcurrent: int64(a.cfg.Database.MaxConcurrent),
	}), nil
}

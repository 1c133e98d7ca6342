// Package command defines the gateway's command line.
package command

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rr-brian/rts-ai/internal/config"
	"github.com/rr-brian/rts-ai/internal/logger"
)

type app struct {
	configFile string
	envFiles   []string
	cfg        *config.Config
}

// NewRootCommand builds the rts-ai command tree. Running it without a
// subcommand starts the server.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "rts-ai",
		Short:         "Gateway for the RTS AI chat application",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "path to a config file (default ./rts-ai.yaml when present)")
	flags.StringSliceVar(&a.envFiles, "env-file", []string{".env"}, "dotenv files loaded before reading the environment")
	flags.Int("port", 0, "listen port (overrides PORT)")
	flags.String("log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		newServeCommand(a),
		newMigrateCommand(a),
		newCheckDBCommand(a),
		newRoutesCommand(a),
	)
	return root
}

// load reads dotenv files, the optional config file and the environment.
func (a *app) load(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(a.envFiles...); err != nil {
		return err
	}
	v, err := config.New(a.configFile)
	if err != nil {
		return err
	}
	if err := bindFlags(v, cmd); err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	logger.SetLevel(cfg.LogLevel)
	a.cfg = cfg
	return nil
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for key, flag := range map[string]string{
		"server.port": "port",
		"log.level":   "log-level",
	} {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

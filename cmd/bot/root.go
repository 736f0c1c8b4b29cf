package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"homeworkbot/internal/app"
	"homeworkbot/internal/config"
	"homeworkbot/internal/schedule"
)

type rootOptions struct {
	configPath string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "homeworkbot",
		Short:         "Polls the homework review API and reports status changes to Telegram",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, cfg, err := opts.load()
			if err != nil {
				return err
			}
			a, err := app.New(m, cfg, app.Deps{})
			if err != nil {
				return err
			}
			return a.Run(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "./config.yaml", "path to config file (json or yaml); missing file means env only")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(newCheckConfigCmd(opts))
	return root
}

func (o *rootOptions) load() (*config.Manager, *config.Config, error) {
	if err := config.LoadDotEnv(o.envFile); err != nil {
		return nil, nil, fmt.Errorf("env file %s: %w", o.envFile, err)
	}
	m := config.NewManager(o.configPath)
	cfg, err := m.Load()
	if err != nil {
		return nil, nil, err
	}
	return m, cfg, nil
}

func newCheckConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Validate configuration and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, cfg, err := opts.load()
			if err != nil {
				return err
			}
			t, _ := schedule.NewTicker(cfg.Practicum.PollInterval, nil)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "config ok")
			fmt.Fprintf(out, "  endpoint:  %s\n", cfg.Practicum.Endpoint)
			fmt.Fprintf(out, "  schedule:  %s\n", t)
			fmt.Fprintf(out, "  chat_id:   %s\n", cfg.Telegram.ChatID)
			fmt.Fprintf(out, "  ops:       %s\n", opsSummary(cfg))
			return nil
		},
	}
}

func opsSummary(cfg *config.Config) string {
	if !cfg.Ops.Enabled {
		return "disabled"
	}
	parts := []string{cfg.Ops.Addr}
	if cfg.Ops.Pprof {
		parts = append(parts, "pprof")
	}
	if cfg.Ops.Token != "" {
		parts = append(parts, "token")
	}
	return strings.Join(parts, " ")
}

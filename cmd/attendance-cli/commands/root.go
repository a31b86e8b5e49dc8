package commands

import (
	"attendance-backend/internal/app"
	"attendance-backend/internal/app/portal"
	"attendance-backend/internal/components/telemetry"
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool

	application app.App
)

var rootCmd = &cobra.Command{
	Use:   "attendance-cli",
	Short: "attendance-cli fetches attendance from the SRM student portal and manages tracked users.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(verbose)
		tel := telemetry.SlogAPI{}

		cfg, err := app.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		srmPortal, err := portal.New(cfg.Portal, cfg.PeriodConcurrency, tel)
		if err != nil {
			return err
		}
		application, err = app.Open(cfg, srmPortal, tel)
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return application.Close()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json5", "The config file to read.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging.")
}

func newTable(header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(header)
	t.SetStyle(table.StyleRounded)
	return t
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

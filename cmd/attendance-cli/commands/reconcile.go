package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(reconcileCmd)
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Fetches the attendance of every user, records drops and sends notifications.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := application.Service.ReconcileAll(cmd.Context())
		if err != nil {
			return err
		}
		t := newTable(table.Row{"Users", "Failed", "Changes", "Delivered"})
		t.AppendRow(table.Row{summary.Users, summary.Failed, summary.Events, summary.Delivered})
		t.Render()
		return nil
	},
}

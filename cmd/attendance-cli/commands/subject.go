package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(subjectCmd)
	subjectCmd.AddCommand(subjectAliasCmd)
	subjectCmd.AddCommand(subjectListCmd)
}

var subjectCmd = &cobra.Command{
	Use:   "subject <code>",
	Short: "Prints the name of a subject as listed on the portal.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := application.Service.ResolveSubjectName(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(name)
		return nil
	},
}

var subjectAliasCmd = &cobra.Command{
	Use:   "alias <code> <alias>",
	Short: "Sets the alias of a subject.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, err := application.Service.Subjects().Add(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("%s (%s) is now %s\n", subject.SubjectCode, subject.SubjectName, subject.Alias)
		return nil
	},
}

var subjectListCmd = &cobra.Command{
	Use:   "list",
	Short: "Prints every stored subject with its alias.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		subjects, err := application.Service.Subjects().List(cmd.Context())
		if err != nil {
			return err
		}
		t := newTable(table.Row{"Code", "Subject", "Alias"})
		for _, s := range subjects {
			t.AppendRow(table.Row{s.SubjectCode, s.SubjectName, s.Alias})
		}
		t.Render()
		return nil
	},
}

package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersAddCmd)
	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersRemoveCmd)
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manages the users whose attendance is reconciled.",
}

var usersAddCmd = &cobra.Command{
	Use:   "add <username> <password> <email>",
	Short: "Adds a user or replaces their password and email.",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		err := application.Service.AddUser(cmd.Context(), args[0], args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Println("added", args[0])
		return nil
	},
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "Prints every tracked user.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		users, err := application.Service.ListUsers(cmd.Context())
		if err != nil {
			return err
		}
		t := newTable(table.Row{"Username", "Email"})
		for _, u := range users {
			t.AppendRow(table.Row{u.Username, u.Email})
		}
		t.Render()
		return nil
	},
}

var usersRemoveCmd = &cobra.Command{
	Use:   "remove <username>",
	Short: "Stops tracking a user and forgets their attendance.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		err := application.Service.RemoveUser(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println("removed", args[0])
		return nil
	},
}

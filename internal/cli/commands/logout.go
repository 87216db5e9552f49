package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/mindpeers/client/internal/cli/ui"
)

// logoutCmd is the logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "forget the saved identity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := current.Session.Logout(); err != nil {
			ui.PrintError("failed to clear identity: %v", err)
			return fmt.Errorf("logout failed")
		}
		ui.PrintSuccess("Logged out")
		return nil
	},
}

// whoamiCmd prints the saved identity.
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "show the signed-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		identity, ok := current.Session.Current()
		if !ok {
			return requireSession()
		}
		ui.PrintBold("%s", identity.Email)
		ui.Println(ui.Styles.Dim.Render("user " + identity.UserID + " · " + current.Client.Server()))
		return nil
	},
}

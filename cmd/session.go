package cmd

import (
	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and discard the stored credential",
	RunE: func(cmd *cobra.Command, args []string) error {
		app.Session.Logout(cmd.Context())
		printer.Success("Signed out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(cmd); err != nil {
			return err
		}

		sync, _ := cmd.Flags().GetBool("sync")
		if sync {
			if err := app.Session.UpdateProfile(cmd.Context()); err != nil {
				return err
			}
		}

		id := app.Session.Identity()
		printer.Info("%s <%s>", printer.Bold(id.FullName()), id.Email)
		printer.Info("Role:   %s", id.Role)
		if id.LastLogin != nil {
			printer.Info("Last login: %s", id.LastLogin.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Renew the stored credential",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(cmd); err != nil {
			return err
		}
		if err := app.Session.Refresh(cmd.Context()); err != nil {
			return err
		}
		printer.Success("Credential renewed")
		return nil
	},
}

func init() {
	whoamiCmd.Flags().Bool("sync", false, "re-fetch the profile from the server")

	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(refreshCmd)
}

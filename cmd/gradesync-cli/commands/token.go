package commands

import (
	"fmt"

	"gradesync-backend/internal/components/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(issueTokenCmd)
	rootCmd.AddCommand(revokeTokenCmd)
}

var issueTokenCmd = &cobra.Command{
	Use:   "issue-token <user-id>",
	Short: "Mints an API token for a user and prints it, the token cannot be shown again.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp()
		defer a.Close()

		token, err := a.Identity.IssueToken(cmd.Context(), args[0])
		if err != nil {
			serviceutil.Fatal("issue token", err)
		}
		fmt.Println(token)
	},
}

var revokeTokenCmd = &cobra.Command{
	Use:   "revoke-token <token>",
	Short: "Revokes an API token.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp()
		defer a.Close()

		existed, err := a.Identity.RevokeToken(cmd.Context(), args[0])
		if err != nil {
			serviceutil.Fatal("revoke token", err)
		}
		if !existed {
			fmt.Println("token did not exist")
			return
		}
		fmt.Println("token revoked")
	},
}

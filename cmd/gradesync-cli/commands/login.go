package commands

import (
	"fmt"
	"log/slog"

	"gradesync-backend/internal/components/serviceutil"
	"gradesync-backend/internal/credentials"
	"gradesync-backend/internal/portal/session"

	"github.com/spf13/cobra"
)

var loginUsername, loginPassword *string

func init() {
	loginUsername, loginPassword = credentialFlags(testLoginCmd)
	rootCmd.AddCommand(testLoginCmd)
}

var testLoginCmd = &cobra.Command{
	Use:   "test-login <source> --username <username> [--password <password>]",
	Short: "Logs into a portal and prints how the attempt was classified, nothing is stored.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp()
		defer a.Close()

		adapter, err := a.Adapter(args[0])
		if err != nil {
			serviceutil.Fatal("unsupported source", err)
		}
		username, err := credentials.SanitizeUsername(*loginUsername)
		if err != nil {
			serviceutil.Fatal("invalid username", err)
		}

		state := session.NewState()
		ok, err := adapter.Login(cmd.Context(), state, username, resolvePassword(*loginPassword))
		if err != nil {
			serviceutil.Fatal("login failed", err)
		}

		slog.Info("login classified", "source", args[0], "success", ok, "base_url", state.BaseURL, "cookies", state.Jar.Names())
		if ok {
			fmt.Println("login succeeded")
			return
		}
		fmt.Println("login rejected")
	},
}

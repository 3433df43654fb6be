package commands

import (
	"context"
	"fmt"
	"os"

	"gradesync-backend/internal/app"
	"gradesync-backend/internal/components/chrono"
	"gradesync-backend/internal/components/serviceutil"
	"gradesync-backend/internal/components/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "gradesync-cli",
	Short: "gradesync-cli is an operator CLI for debugging portal logins, parsing and syncs.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json5", "The configuration file to read.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging and dump every HTTP exchange.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openApp builds the full stack from the config file, it exits on failure.
func openApp() app.App {
	cfg, err := app.ReadConfig(configPath)
	if err != nil {
		serviceutil.Fatal("read config", err)
	}

	tel := telemetry.SlogAPI{}
	var output telemetry.MessageOutput
	if verbose {
		fs, err := telemetry.NewFilesystemOutput(cfg.DumpDir, tel)
		if err != nil {
			serviceutil.Fatal("create dump dir", err)
		}
		output = fs
	}

	a, err := app.New(cfg, tel, chrono.NewStandardTime(), output)
	if err != nil {
		serviceutil.Fatal("init app", err)
	}
	return a
}

// credentialFlags registers --username and --password, the password falls
// back to GRADESYNC_PASSWORD so it stays out of shell history.
func credentialFlags(cmd *cobra.Command) (username, password *string) {
	username = cmd.Flags().StringP("username", "u", "", "The portal username.")
	password = cmd.Flags().StringP("password", "p", "", "The portal password, defaults to $GRADESYNC_PASSWORD.")
	cmd.MarkFlagRequired("username")
	return username, password
}

func resolvePassword(flag string) string {
	if flag != "" {
		return flag
	}
	password := os.Getenv("GRADESYNC_PASSWORD")
	if password == "" {
		serviceutil.Fatal("missing password", fmt.Errorf("pass --password or set GRADESYNC_PASSWORD"))
	}
	return password
}

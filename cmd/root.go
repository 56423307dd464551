package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/openmeteo/enhydris-api-client/internal/logutil"
	"github.com/openmeteo/enhydris-api-client/pkg/enhydris"
)

var (
	baseURL  string
	username string
	password string
	token    string
	timeout  time.Duration
	logFile  string
	verbose  bool

	logCleanup = func() error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "enhydris",
	Short: "Command-line client for an Enhydris hydrological-data server",
	Long: "enhydris talks to an Enhydris server over its REST API: generic CRUD on\n" +
		"model endpoints and time-series upload/download in the HTimeseries format.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := logutil.DefaultConfig()
		if verbose {
			cfg.Level = "debug"
		}
		cfg.FilePath = logFile
		cleanup, err := logutil.Setup(cfg)
		if err != nil {
			return err
		}
		logCleanup = cleanup
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&baseURL, "base-url", "", "base URL of the Enhydris server (required)")
	pf.StringVar(&username, "username", "", "username for cookie login (empty = anonymous)")
	pf.StringVar(&password, "password", "", "password for cookie login")
	pf.StringVar(&token, "token", "", "API token; replaces the cookie login")
	pf.DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")
	pf.StringVar(&logFile, "log-file", "", "log to this file (rotated) instead of stderr")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	_ = rootCmd.MarkPersistentFlagRequired("base-url")
}

// Execute runs the command tree.
func Execute() {
	err := rootCmd.Execute()
	_ = logCleanup()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withClient opens a session-scoped client, logs in when credentials
// were given, runs fn, then logs out and closes the connection.
func withClient(fn func(ctx context.Context, client *enhydris.Client) error) error {
	opts := []enhydris.Option{enhydris.WithTimeout(timeout)}
	if token != "" {
		opts = append(opts, enhydris.WithToken(token))
	}
	client := enhydris.New(baseURL, opts...)
	defer client.Close()

	ctx := context.Background()
	if token == "" && username != "" {
		if err := client.Auth.Login(ctx, username, password); err != nil {
			return err
		}
		defer client.Auth.Logout()
	}
	return fn(ctx, client)
}

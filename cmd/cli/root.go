package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	// flags
	apiURL    string
	tokenPath string

	api *client
)

func init() {
	RootCmd.PersistentFlags().StringVar(&apiURL, "api", envOr("TEAMHUB_API", "http://localhost:8080"), "TeamHub server address")
	RootCmd.PersistentFlags().StringVar(&tokenPath, "token-file", "", "where the session token is kept (default ~/.teamhub/token)")
}

var RootCmd = cobra.Command{
	Use:           "teamctl",
	Short:         "Manage TeamHub teams, members and invites",
	Long:          "Manage TeamHub teams, members and invites from the command line",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if tokenPath == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("locate home directory: %w", err)
			}
			tokenPath = home + "/.teamhub/token"
		}
		api = newClient(strings.TrimRight(apiURL, "/"), loadToken(tokenPath))
		return nil
	},
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

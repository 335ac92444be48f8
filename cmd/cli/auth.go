package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

type userView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func init() {
	RegisterCommand.Flags().String("name", "", "display name")
	RegisterCommand.Flags().String("email", "", "email address")
	RegisterCommand.Flags().String("password", "", "password, at least 8 characters")
	LoginCommand.Flags().String("email", "", "email address")
	LoginCommand.Flags().String("password", "", "password")

	AuthCommand.AddCommand(&RegisterCommand, &LoginCommand, &LogoutCommand, &WhoamiCommand)
	RootCmd.AddCommand(&AuthCommand)
}

var AuthCommand = cobra.Command{
	Use:   "auth",
	Short: "Register, log in and out",
}

var RegisterCommand = cobra.Command{
	Use:   "register",
	Short: "Create an account and log in",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")

		var res struct {
			User  userView `json:"user"`
			Token string   `json:"token"`
		}
		err := api.do(cmd.Context(), http.MethodPost, "/api/auth/register",
			map[string]string{"name": name, "email": email, "password": password}, &res)
		if err != nil {
			return err
		}
		if err := saveToken(tokenPath, res.Token); err != nil {
			return fmt.Errorf("save token: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Registered and logged in as %s\n", res.User.Email)
		return nil
	},
}

var LoginCommand = cobra.Command{
	Use:   "login",
	Short: "Log in and keep the session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")

		var res struct {
			Token string   `json:"token"`
			User  userView `json:"user"`
		}
		err := api.do(cmd.Context(), http.MethodPost, "/api/auth/login",
			map[string]string{"email": email, "password": password}, &res)
		if err != nil {
			return err
		}
		if err := saveToken(tokenPath, res.Token); err != nil {
			return fmt.Errorf("save token: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", res.User.Email)
		return nil
	},
}

var LogoutCommand = cobra.Command{
	Use:   "logout",
	Short: "Forget the session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.Remove(tokenPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		return nil
	},
}

var WhoamiCommand = cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(); err != nil {
			return err
		}
		var res struct {
			User userView `json:"user"`
		}
		if err := api.do(cmd.Context(), http.MethodGet, "/api/auth/me", nil, &res); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> (%s)\n", res.User.Name, res.User.Email, res.User.ID)
		return nil
	},
}

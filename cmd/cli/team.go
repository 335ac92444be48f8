package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type memberView struct {
	User userView `json:"user"`
	Role string   `json:"role"`
}

type teamView struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Owner       userView     `json:"owner"`
	Members     []memberView `json:"members"`
	Description string       `json:"description"`
	Visibility  string       `json:"visibility"`
	Tags        []string     `json:"tags"`
	MyRole      string       `json:"myRole"`
}

func init() {
	SettingsCommand.Flags().String("description", "", "team description")
	SettingsCommand.Flags().String("avatar", "", "avatar URL")
	SettingsCommand.Flags().String("visibility", "", "private or public")
	SettingsCommand.Flags().StringSlice("tags", nil, "comma separated tags, replaces the current ones")

	TeamCommand.AddCommand(
		&CreateTeamCommand,
		&ListTeamsCommand,
		&ShowTeamCommand,
		memberCommand("add", "Add a registered user to a team", http.MethodPost, "add-member"),
		memberCommand("remove", "Remove a member from a team", http.MethodDelete, "remove-member"),
		&DeleteTeamCommand,
		memberCommand("transfer", "Hand team ownership to a member", http.MethodPut, "transfer-ownership"),
		memberCommand("promote", "Make a member an admin", http.MethodPut, "promote"),
		memberCommand("demote", "Make an admin a plain member", http.MethodPut, "demote"),
		&SettingsCommand,
	)
	RootCmd.AddCommand(&TeamCommand)
}

var TeamCommand = cobra.Command{
	Use:   "team",
	Short: "Manage teams and their members",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := RootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		return requireLogin()
	},
}

var CreateTeamCommand = cobra.Command{
	Use:   "create <name>",
	Short: "Create a team owned by you",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var res struct {
			Team teamView `json:"team"`
		}
		body := map[string]string{"name": strings.Join(args, " ")}
		if err := api.do(cmd.Context(), http.MethodPost, "/api/teams/create", body, &res); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created team %s (%s)\n", res.Team.Name, res.Team.ID)
		return nil
	},
}

var ListTeamsCommand = cobra.Command{
	Use:   "list",
	Short: "List the teams you belong to",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var res struct {
			Teams []teamView `json:"teams"`
		}
		if err := api.do(cmd.Context(), http.MethodGet, "/api/teams/my-teams", nil, &res); err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tROLE\tMEMBERS")
		for _, t := range res.Teams {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", t.ID, t.Name, t.MyRole, len(t.Members))
		}
		return w.Flush()
	},
}

var ShowTeamCommand = cobra.Command{
	Use:   "show <team-id>",
	Short: "Show a team and its members",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var res struct {
			Team teamView `json:"team"`
		}
		if err := api.do(cmd.Context(), http.MethodGet, teamPath(args[0], ""), nil, &res); err != nil {
			return err
		}
		return printTeam(cmd.OutOrStdout(), res.Team)
	},
}

var DeleteTeamCommand = cobra.Command{
	Use:   "delete <team-id>",
	Short: "Delete a team you own",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var res struct {
			Message string `json:"message"`
		}
		if err := api.do(cmd.Context(), http.MethodDelete, teamPath(args[0], ""), nil, &res); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Message)
		return nil
	},
}

var SettingsCommand = cobra.Command{
	Use:   "settings <team-id>",
	Short: "Show a team's settings, or change them when flags are given",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		update := map[string]any{}
		for _, name := range []string{"description", "avatar", "visibility"} {
			if cmd.Flags().Changed(name) {
				update[name], _ = cmd.Flags().GetString(name)
			}
		}
		if cmd.Flags().Changed("tags") {
			tags, _ := cmd.Flags().GetStringSlice("tags")
			if tags == nil {
				tags = []string{}
			}
			update["tags"] = tags
		}

		var res struct {
			Settings map[string]any `json:"settings"`
		}
		path := teamPath(args[0], "settings")
		var err error
		if len(update) == 0 {
			err = api.do(cmd.Context(), http.MethodGet, path, nil, &res)
		} else {
			err = api.do(cmd.Context(), http.MethodPut, path, update, &res)
		}
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res.Settings)
	},
}

// memberCommand builds a "<verb> <team-id> <email>" command
func memberCommand(use, short, method, action string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <team-id> <email>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var res struct {
				Message string   `json:"message"`
				Team    teamView `json:"team"`
			}
			body := map[string]string{"email": args[1]}
			if err := api.do(cmd.Context(), method, teamPath(args[0], action), body, &res); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return printTeam(cmd.OutOrStdout(), res.Team)
		},
	}
}

func teamPath(teamID, action string) string {
	p := "/api/teams/" + url.PathEscape(teamID)
	if action != "" {
		p += "/" + action
	}
	return p
}

func printTeam(out io.Writer, t teamView) error {
	fmt.Fprintf(out, "%s (%s)\n", t.Name, t.ID)
	if t.Description != "" {
		fmt.Fprintln(out, t.Description)
	}
	fmt.Fprintf(out, "owner: %s  visibility: %s  tags: %s\n\n", t.Owner.Email, t.Visibility, strings.Join(t.Tags, ","))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tEMAIL\tROLE")
	for _, m := range t.Members {
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.User.Name, m.User.Email, m.Role)
	}
	return w.Flush()
}

package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

type inviteView struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"team"`
	Email     string    `json:"email"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

func init() {
	InviteCommand.AddCommand(
		&SendInviteCommand,
		&ListInvitesCommand,
		&MyInvitesCommand,
		resolveCommand("accept", "Accept an invite and join its team"),
		resolveCommand("decline", "Decline an invite"),
		resolveCommand("cancel", "Cancel an invite you sent"),
	)
	RootCmd.AddCommand(&InviteCommand)
}

var InviteCommand = cobra.Command{
	Use:   "invite",
	Short: "Send and answer team invites",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := RootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		return requireLogin()
	},
}

var SendInviteCommand = cobra.Command{
	Use:   "send <team-id> <email>",
	Short: "Invite an email address to a team",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var res struct {
			Invite inviteView `json:"invite"`
		}
		body := map[string]string{"email": args[1]}
		if err := api.do(cmd.Context(), http.MethodPost, teamPath(args[0], "invite"), body, &res); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Invite %s sent to %s\n", res.Invite.ID, res.Invite.Email)
		return nil
	},
}

var ListInvitesCommand = cobra.Command{
	Use:   "list <team-id>",
	Short: "List a team's pending invites",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return listInvites(cmd, teamPath(args[0], "invites"))
	},
}

var MyInvitesCommand = cobra.Command{
	Use:   "mine",
	Short: "List the pending invites addressed to you",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listInvites(cmd, "/api/teams/my/invites")
	},
}

func listInvites(cmd *cobra.Command, path string) error {
	var res struct {
		Invites []inviteView `json:"invites"`
	}
	if err := api.do(cmd.Context(), http.MethodGet, path, nil, &res); err != nil {
		return err
	}
	return printInvites(cmd.OutOrStdout(), res.Invites)
}

func printInvites(out io.Writer, invites []inviteView) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTEAM\tEMAIL\tSENT")
	for _, inv := range invites {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", inv.ID, inv.TeamID, inv.Email, inv.CreatedAt.Format(time.DateTime))
	}
	return w.Flush()
}

// resolveCommand builds the accept, decline and cancel commands
func resolveCommand(verb, short string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <invite-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var res struct {
				Message string     `json:"message"`
				Invite  inviteView `json:"invite"`
			}
			path := "/api/teams/invite/" + url.PathEscape(args[0]) + "/" + verb
			if err := api.do(cmd.Context(), http.MethodPost, path, nil, &res); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}
}

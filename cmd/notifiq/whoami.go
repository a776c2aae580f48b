package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jrsteele09/notifiq-session/session"
	"github.com/spf13/cobra"
)

func newWhoamiCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Long:  "Restore the stored session, refreshing it once, and print who it belongs to.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.requestContext(cmd.Context())
			defer cancel()

			if a.manager.Start(ctx) != session.StateLoggedIn {
				return a.fail(cmd, session.ErrNotLoggedIn)
			}
			identity, ok := a.manager.Identity()
			if !ok {
				return a.fail(cmd, session.ErrTokenExpired)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(identity)
			}

			fmt.Fprintf(out, "%s <%s>\n", identity.DisplayName(), identity.Email)
			fmt.Fprintf(out, "User ID:  %s\n", identity.Subject())
			if len(identity.Groups) > 0 {
				fmt.Fprintf(out, "Groups:   %s\n", strings.Join(identity.Groups, ", "))
			}
			fmt.Fprintf(out, "IT Staff: %t\n", identity.IsITStaff())
			fmt.Fprintf(out, "Expires:  %s\n", identity.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the identity as JSON")
	return cmd
}

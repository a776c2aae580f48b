package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newLoginCmd(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to NotifiQ",
		Long:  "Exchange an email and password for a session. Credentials default to NOTIFIQ_EMAIL and NOTIFIQ_PASSWORD; a missing password is prompted for.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				email = os.Getenv("NOTIFIQ_EMAIL")
			}
			if password == "" {
				password = os.Getenv("NOTIFIQ_PASSWORD")
			}
			if password == "" {
				var err error
				if password, err = prompt(cmd, bufio.NewReader(cmd.InOrStdin()), "Password"); err != nil {
					return err
				}
			}

			ctx, cancel := a.requestContext(cmd.Context())
			defer cancel()

			a.manager.Start(ctx)
			if err := a.manager.Login(ctx, email, password); err != nil {
				return a.fail(cmd, err)
			}

			identity, _ := a.manager.Identity()
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", identity.DisplayName())
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email (or NOTIFIQ_EMAIL env)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (or NOTIFIQ_PASSWORD env, prompted if omitted)")
	return cmd
}

// prompt reads one line from the command's input after printing label
func prompt(cmd *cobra.Command, in *bufio.Reader, label string) (string, error) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s: ", label)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

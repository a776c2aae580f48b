package main

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jrsteele09/notifiq-session/backend"
	"github.com/spf13/cobra"
)

var errPasswordMismatch = errors.New("passwords do not match")

func newRegisterCmd(a *app) *cobra.Command {
	var reg backend.Registration
	var confirm string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a NotifiQ account",
		Long:  "Create an account. The backend emails a verification link; follow it with verify-email before logging in. A missing password is prompted for twice.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if reg.Password == "" {
				in := bufio.NewReader(cmd.InOrStdin())
				var err error
				if reg.Password, err = prompt(cmd, in, "Password"); err != nil {
					return err
				}
				if confirm, err = prompt(cmd, in, "Confirm password"); err != nil {
					return err
				}
			}
			if err := checkRegistration(reg, confirm); err != nil {
				return a.fail(cmd, err)
			}

			ctx, cancel := a.requestContext(cmd.Context())
			defer cancel()

			if err := a.client.Register(ctx, reg); err != nil {
				return a.fail(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registration successful! Check %s for a verification link, then log in.\n", reg.Email)
			return nil
		},
	}

	cmd.Flags().StringVarP(&reg.Username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&reg.Email, "email", "e", "", "Account email, used to log in")
	cmd.Flags().StringVarP(&reg.Password, "password", "p", "", "Password (prompted if omitted)")
	cmd.Flags().StringVar(&confirm, "confirm-password", "", "Password again")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// checkRegistration runs the form checks made before anything is sent
func checkRegistration(reg backend.Registration, confirm string) error {
	if reg.Password != confirm {
		return errPasswordMismatch
	}
	return nil
}

func newVerifyEmailCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-email <link> | verify-email <uidb64> <token>",
		Short: "Confirm an account from its emailed verification link",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			uidb64, verificationToken, err := parseVerificationArgs(args)
			if err != nil {
				return a.fail(cmd, err)
			}

			ctx, cancel := a.requestContext(cmd.Context())
			defer cancel()

			msg, err := a.client.VerifyEmail(ctx, uidb64, verificationToken)
			if err != nil {
				return a.fail(cmd, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

// parseVerificationArgs accepts either the emailed link or its two path parts
func parseVerificationArgs(args []string) (string, string, error) {
	if len(args) == 2 {
		return args[0], args[1], nil
	}

	link, err := url.Parse(args[0])
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", backend.ErrVerificationFailed, err)
	}
	segments := strings.Split(strings.Trim(link.Path, "/"), "/")
	for i, segment := range segments {
		if segment == "verify-email" && i+2 < len(segments) {
			return segments[i+1], segments[i+2], nil
		}
	}
	return "", "", fmt.Errorf("%w: %q is not a verification link", backend.ErrVerificationFailed, args[0])
}

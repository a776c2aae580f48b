package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jrsteele09/notifiq-session/stubbackend"
	"github.com/jrsteele09/notifiq-session/token"
	refreshrepofake "github.com/jrsteele09/notifiq-session/token/refresh/repofake"
	"github.com/jrsteele09/notifiq-session/users"
	fakeuserrepo "github.com/jrsteele09/notifiq-session/users/repofake"
	"github.com/spf13/cobra"
)

const stubSecretVar = "STUB_SIGNING_SECRET"

func newStubBackendCmd(a *app) *cobra.Command {
	var (
		addr      string
		seedUsers []string
		noRotate  bool
		accessTTL time.Duration
	)

	cmd := &cobra.Command{
		Use:   "stub-backend",
		Short: "Serve development token endpoints",
		Long: `Serve /api/token/ and /api/token/refresh/ for local development.
Users are given as email:password[:group[,group...]], e.g. --user "tom@example.com:pw:IT Staff".
Tokens are signed with STUB_SIGNING_SECRET, or a random secret per run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			signer, err := stubSigner()
			if err != nil {
				return err
			}

			options := []stubbackend.Option{stubbackend.WithLogger(a.logger)}
			if noRotate {
				options = append(options, stubbackend.WithoutRotation())
			}
			if accessTTL > 0 {
				options = append(options, stubbackend.WithAccessTokenTTL(accessTTL))
			}
			stub := stubbackend.New(fakeuserrepo.NewFakeUserRepo(), refreshrepofake.NewFakeRefreshTokenRepo(), signer, a.config, options...)

			for _, entry := range seedUsers {
				user, password, err := parseSeedUser(entry)
				if err != nil {
					return err
				}
				if err := stub.AddUser(user, password); err != nil {
					return fmt.Errorf("add user %s: %w", user.Email, err)
				}
				a.logger.Info().Str("email", user.Email).Strs("groups", user.GroupNames()).Msg("seeded user")
			}
			if len(seedUsers) == 0 {
				a.logger.Warn().Msg("no users seeded, every login will be rejected")
			}

			httpServer := &http.Server{Addr: addr, Handler: stub, ReadHeaderTimeout: 5 * time.Second}
			serveErr := make(chan error, 1)
			go func() { serveErr <- listenAndServe(httpServer, a.logger) }()

			select {
			case <-waitForStopSignal(cmd.Context()):
			case err := <-serveErr:
				return err
			}
			return shutdown(httpServer)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8000", "Listen address")
	cmd.Flags().StringArrayVar(&seedUsers, "user", nil, "User to seed as email:password[:groups] (repeatable)")
	cmd.Flags().BoolVar(&noRotate, "no-rotate", false, "Keep refresh tokens on refresh instead of rotating them")
	cmd.Flags().DurationVar(&accessTTL, "access-ttl", 0, "Access token lifetime (default from config)")
	return cmd
}

func stubSigner() (token.Signer, error) {
	if secret := os.Getenv(stubSecretVar); secret != "" {
		return token.NewHMACSigner(secret), nil
	}
	return token.GenerateHMACSigner()
}

// parseSeedUser parses email:password[:group,group]
func parseSeedUser(entry string) (*users.User, string, error) {
	parts := strings.SplitN(entry, ":", 3)
	if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" || parts[1] == "" {
		return nil, "", errors.New("user must be email:password[:groups]")
	}

	email := strings.TrimSpace(parts[0])
	user := &users.User{
		Email:     email,
		FirstName: strings.SplitN(email, "@", 2)[0],
	}
	if len(parts) == 3 {
		for _, g := range strings.Split(parts[2], ",") {
			if g = strings.TrimSpace(g); g != "" {
				user.Groups = append(user.Groups, users.GroupType(g))
			}
		}
	}
	return user, parts[1], nil
}

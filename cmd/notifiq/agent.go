package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/notifiq-session/server"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newAgentCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Keep the session alive and serve it to local tools",
		Long:  "Restore the stored session, refresh it every few minutes and expose it on a loopback HTTP API until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.config.GetAgentAddr()
			}
			return a.runAgent(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (or AGENT_ADDR env)")
	return cmd
}

func (a *app) runAgent(parent context.Context, addr string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	displayAppname(a.config.GetAppName())

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	state := a.manager.Start(ctx)
	a.logger.Info().Str("state", state.String()).Str("api", a.config.GetAPIURL()).Msg("session restored")

	runDone := make(chan error, 1)
	go func() { runDone <- a.manager.Run(ctx) }()

	agent := server.New(a.config, a.manager, server.WithLogger(a.logger), server.WithGatherer(a.registry))
	httpServer := &http.Server{Addr: addr, Handler: agent, ReadHeaderTimeout: 5 * time.Second}
	serveErr := make(chan error, 1)
	go func() { serveErr <- listenAndServe(httpServer, a.logger) }()

	select {
	case <-waitForStopSignal(ctx):
	case err := <-serveErr:
		returnError = err
	}

	cancel()
	if err := <-runDone; err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Warn().Err(err).Msg("refresh loop stopped")
	}
	if err := shutdown(httpServer); err != nil && returnError == nil {
		returnError = err
	}
	a.logger.Info().Msg("agent stopped")
	return returnError
}

func listenAndServe(server *http.Server, logger zerolog.Logger) error {
	logger.Info().Msgf("Agent listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

// waitForStopSignal closes the returned channel on SIGINT, SIGTERM or when ctx ends
func waitForStopSignal(ctx context.Context) <-chan struct{} {
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		<-sigCtx.Done()
	}()
	return stopped
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

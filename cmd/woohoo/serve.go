package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MrWong99/woohoo/internal/config"
	"github.com/MrWong99/woohoo/internal/health"
	"github.com/MrWong99/woohoo/internal/observe"
	"github.com/MrWong99/woohoo/internal/web"
)

func newServeCmd(g *globals) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host the browser edition of the challenge",
		Long: `Serves the WebSocket scream endpoint, the claim API, health probes, and
Prometheus metrics. Changes to the configuration file are picked up
without a restart where possible.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), g, listen, cmd.Flags().Changed("log-level"))
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides server.listen_addr)")
	return cmd
}

func webConfig(cfg *config.Config) web.Config {
	return web.Config{
		Challenge:      challengeConfig(cfg),
		ResultTTL:      cfg.Server.ResultTTL,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		SubmitAttempts: cfg.Server.SubmitAttempts,
	}
}

func runServe(ctx context.Context, g *globals, listen string, pinnedLevel bool) error {
	cfg := g.cfg

	telemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		return err
	}
	defer func() {
		if err := telemetry.Shutdown(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("serve: telemetry shutdown", "err", err)
		}
	}()
	metrics := telemetry.Metrics

	client, err := newClaimClient(cfg.Claim, metrics)
	if err != nil {
		return err
	}
	if client == nil {
		slog.Warn("serve: claim.base_url is empty; claims are disabled")
	}

	var loaded atomic.Bool
	srv, err := web.New(webConfig(cfg), submitter(client),
		web.WithMetrics(metrics),
		web.WithMetricsHandler(telemetry.Handler()),
		web.WithReadinessChecks(health.ConfigLoaded(loaded.Load)),
	)
	if err != nil {
		return err
	}
	loaded.Store(true)

	if _, statErr := os.Stat(g.configPath); statErr == nil {
		w, err := config.NewWatcher(g.configPath, func(old, new *config.Config) {
			applyReload(g, srv, metrics, old, new, pinnedLevel)
		})
		if err != nil {
			return err
		}
		defer w.Stop()
		go reloadOnHangup(ctx, w)
	}

	addr := cfg.Server.ListenAddr
	if listen != "" {
		addr = listen
	}
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}

	var certFile, keyFile string
	if tls := cfg.Server.TLS; tls != nil {
		certFile, keyFile = tls.CertFile, tls.KeyFile
	}
	slog.Info("woohoo serving",
		"addr", ln.Addr().String(),
		"strategy", cfg.Challenge.Strategy,
		"claims", client != nil,
	)
	err = srv.Serve(ctx, ln, certFile, keyFile)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// reloadOnHangup re-reads the configuration on SIGHUP instead of waiting
// for the next poll.
func reloadOnHangup(ctx context.Context, w *config.Watcher) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if _, err := w.Reload(); err != nil {
				slog.Warn("serve: reload on SIGHUP failed", "err", err)
			}
		}
	}
}

// applyReload pushes a changed configuration into the running server.
func applyReload(g *globals, srv *web.Server, metrics *observe.Metrics, old, new *config.Config, pinnedLevel bool) {
	d := config.Diff(old, new)
	if d.Empty() {
		return
	}

	if d.LogLevelChanged && !pinnedLevel {
		g.level.Set(slogLevel(d.NewLogLevel))
		slog.Info("serve: log level changed", "level", d.NewLogLevel)
	}
	if d.ChallengeChanged || d.ResultTTLChanged || d.SubmitAttemptsChanged {
		if err := srv.Update(webConfig(new)); err != nil {
			slog.Error("serve: rejected challenge settings", "err", err)
		} else {
			slog.Info("serve: challenge settings reloaded", "strategy", new.Challenge.Strategy)
		}
	}
	if d.ClaimChanged {
		client, err := newClaimClient(new.Claim, metrics)
		if err != nil {
			slog.Error("serve: rejected claim settings", "err", err)
		} else {
			srv.SetSubmitter(submitter(client))
			slog.Info("serve: reward API client rebuilt", "base_url", new.Claim.BaseURL)
		}
	}
	if len(d.RestartRequired) > 0 {
		slog.Warn("serve: some changes need a restart", "fields", d.RestartRequired)
	}
}

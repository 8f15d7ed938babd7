package main

import (
	"context"
	"log/slog"

	"github.com/MrWong99/woohoo/internal/challenge"
	"github.com/MrWong99/woohoo/internal/config"
	"github.com/MrWong99/woohoo/internal/observe"
	"github.com/MrWong99/woohoo/internal/resilience"
	"github.com/MrWong99/woohoo/pkg/claim"
)

// newClaimClient builds the reward API client. It returns nil when no base
// URL is configured.
func newClaimClient(cfg config.ClaimConfig, metrics *observe.Metrics) (*claim.Client, error) {
	if cfg.BaseURL == "" {
		return nil, nil
	}
	return claim.NewClient(cfg.BaseURL,
		claim.WithTimeout(cfg.Timeout),
		claim.WithFallbackURLs(cfg.FallbackURLs...),
		claim.WithUserAgent("woohoo/"+version),
		claim.WithBreaker(resilience.CircuitBreakerConfig{
			MaxFailures:  cfg.Breaker.MaxFailures,
			ResetTimeout: cfg.Breaker.ResetTimeout,
			HalfOpenMax:  cfg.Breaker.HalfOpenMax,
			OnStateChange: func(name string, from, to resilience.State) {
				metrics.RecordBreakerTransition(context.Background(), name, to.String())
				slog.Warn("claim: endpoint circuit changed", "endpoint", name, "from", from.String(), "to", to.String())
			},
		}),
	)
}

// submitter converts a possibly nil client into a possibly nil interface.
func submitter(c *claim.Client) claim.Submitter {
	if c == nil {
		return nil
	}
	return c
}

func challengeConfig(cfg *config.Config) challenge.Config {
	return challenge.Config{
		Capture:    cfg.Challenge.SessionConfig(),
		Strategy:   cfg.Challenge.Strategy,
		DisplayMax: cfg.Challenge.DisplayMax,
	}
}

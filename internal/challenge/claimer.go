package challenge

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/MrWong99/woohoo/internal/observe"
	"github.com/MrWong99/woohoo/pkg/claim"
)

// Claimer validates results and forwards them to the reward API, recording
// submission metrics. It holds no attempt state and is safe for concurrent
// use.
type Claimer struct {
	submitter claim.Submitter
	clock     clockwork.Clock
	metrics   *observe.Metrics
}

// NewClaimer wraps submitter. A nil submitter makes every call return
// [ErrNoSubmitter]; nil clock and metrics fall back to the defaults.
func NewClaimer(submitter claim.Submitter, clock clockwork.Clock, metrics *observe.Metrics) *Claimer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Claimer{submitter: submitter, clock: clock, metrics: metrics}
}

// Claim validates the claim for res and submits it.
func (c *Claimer) Claim(ctx context.Context, res Result, name, phone string) (claim.ClaimRecord, error) {
	if c.submitter == nil {
		return claim.ClaimRecord{}, ErrNoSubmitter
	}
	req, err := claim.ValidateClaim(res.ClaimRequest(name, phone))
	if err != nil {
		return claim.ClaimRecord{}, err
	}

	start := c.clock.Now()
	rec, err := c.submitter.ClaimReward(ctx, req)
	c.record(ctx, "claim-reward", start, err)
	if err != nil {
		return claim.ClaimRecord{}, err
	}
	slog.Info("challenge: reward claimed", "session_id", res.SessionID, "tier", rec.Reward, "key", rec.UniqueKey)
	return rec, nil
}

// SubmitAttempt records res anonymously.
func (c *Claimer) SubmitAttempt(ctx context.Context, res Result) (claim.AttemptResult, error) {
	if c.submitter == nil {
		return claim.AttemptResult{}, ErrNoSubmitter
	}
	start := c.clock.Now()
	out, err := c.submitter.SubmitAttempt(ctx, res.AttemptRequest())
	c.record(ctx, "woohoo-attempt", start, err)
	return out, err
}

func (c *Claimer) record(ctx context.Context, op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordSubmission(context.WithoutCancel(ctx), op, status, c.clock.Since(start).Seconds())
}

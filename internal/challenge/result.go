package challenge

import (
	"time"

	"github.com/MrWong99/woohoo/pkg/capture"
	"github.com/MrWong99/woohoo/pkg/claim"
	"github.com/MrWong99/woohoo/pkg/loudness"
)

// Result is the outcome of one attempt.
type Result struct {
	// SessionID identifies the attempt towards the reward API.
	SessionID string

	// Strategy is the scoring strategy name.
	Strategy string

	// Peak is the highest sample score; it alone decides the tier.
	Peak int

	// PeakRMS and DBFS describe the loudest time-domain snapshot. Both are
	// zero for frequency-domain strategies.
	PeakRMS float64
	DBFS    float64

	Tier    loudness.Tier
	Samples int

	StartedAt time.Time
	Duration  time.Duration
	Reason    capture.StopReason
}

// Label is the human-readable tier, e.g. "3 Day Pass".
func (r Result) Label() string { return r.Tier.Label() }

// Rewarded reports whether the attempt earned any pass.
func (r Result) Rewarded() bool { return r.Tier != loudness.TierNone }

// AttemptRequest converts r into the anonymous attempt payload.
func (r Result) AttemptRequest() claim.AttemptRequest {
	return claim.AttemptRequest{
		PeakLoudness: r.Peak,
		DurationMs:   r.Duration.Milliseconds(),
		SessionID:    r.SessionID,
	}
}

// ClaimRequest converts r into a claim for the named player.
func (r Result) ClaimRequest(name, phone string) claim.ClaimRequest {
	return claim.ClaimRequest{
		Name:        name,
		PhoneNumber: phone,
		Score:       r.Peak,
		Reward:      r.Tier,
	}
}

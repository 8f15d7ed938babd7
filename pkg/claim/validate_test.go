package claim_test

import (
	"errors"
	"testing"

	"github.com/MrWong99/woohoo/pkg/claim"
	"github.com/MrWong99/woohoo/pkg/loudness"
)

func validClaim() claim.ClaimRequest {
	return claim.ClaimRequest{
		Name:        "  Asha  ",
		PhoneNumber: "+91 98765 43210",
		Score:       900,
		Reward:      loudness.Tier5Day,
	}
}

func TestValidateClaim_Normalises(t *testing.T) {
	t.Parallel()

	got, err := claim.ValidateClaim(validClaim())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Asha" {
		t.Errorf("Name = %q, want trimmed", got.Name)
	}
	if got.PhoneNumber != "9876543210" {
		t.Errorf("PhoneNumber = %q, want normalised", got.PhoneNumber)
	}
}

func TestValidateClaim_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*claim.ClaimRequest)
		wantErr error
	}{
		{"empty name", func(r *claim.ClaimRequest) { r.Name = "   " }, claim.ErrInvalidClaim},
		{"bad phone", func(r *claim.ClaimRequest) { r.PhoneNumber = "123" }, claim.ErrInvalidPhone},
		{"negative score", func(r *claim.ClaimRequest) { r.Score = -1 }, claim.ErrInvalidClaim},
		{"unknown tier", func(r *claim.ClaimRequest) { r.Reward = "9_day" }, claim.ErrInvalidClaim},
		{"no reward", func(r *claim.ClaimRequest) { r.Score, r.Reward = 100, loudness.TierNone }, claim.ErrInvalidClaim},
		{"tier mismatch", func(r *claim.ClaimRequest) { r.Reward = loudness.Tier7Day }, claim.ErrInvalidClaim},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := validClaim()
			tt.mutate(&req)
			_, err := claim.ValidateClaim(req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateClaim_ReportsEveryProblem(t *testing.T) {
	t.Parallel()

	_, err := claim.ValidateClaim(claim.ClaimRequest{PhoneNumber: "1", Reward: "bogus"})
	if !errors.Is(err, claim.ErrInvalidPhone) || !errors.Is(err, claim.ErrInvalidClaim) {
		t.Fatalf("err = %v, want both phone and claim errors", err)
	}
}

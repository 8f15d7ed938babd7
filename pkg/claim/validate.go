package claim

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MrWong99/woohoo/pkg/loudness"
)

// maxNameLen bounds the player name accepted for a claim.
const maxNameLen = 100

// ValidateClaim checks req and returns a copy with the name trimmed and the
// phone number normalised. Every problem is reported; phone problems match
// [ErrInvalidPhone] and all others [ErrInvalidClaim].
func ValidateClaim(req ClaimRequest) (ClaimRequest, error) {
	var errs []error

	req.Name = strings.TrimSpace(req.Name)
	switch {
	case req.Name == "":
		errs = append(errs, fmt.Errorf("%w: name is required", ErrInvalidClaim))
	case len([]rune(req.Name)) > maxNameLen:
		errs = append(errs, fmt.Errorf("%w: name exceeds %d characters", ErrInvalidClaim, maxNameLen))
	}

	phone, err := NormalizePhone(req.PhoneNumber)
	if err != nil {
		errs = append(errs, err)
	} else {
		req.PhoneNumber = phone
	}

	if req.Score < 0 {
		errs = append(errs, fmt.Errorf("%w: score %d is negative", ErrInvalidClaim, req.Score))
	}
	if !req.Reward.IsValid() {
		errs = append(errs, fmt.Errorf("%w: unknown reward %q", ErrInvalidClaim, req.Reward))
	} else if req.Reward == loudness.TierNone {
		errs = append(errs, fmt.Errorf("%w: no reward earned", ErrInvalidClaim))
	} else if req.Score >= 0 && loudness.Classify(req.Score) != req.Reward {
		errs = append(errs, fmt.Errorf("%w: reward %s does not match score %d", ErrInvalidClaim, req.Reward, req.Score))
	}

	if err := errors.Join(errs...); err != nil {
		return ClaimRequest{}, err
	}
	return req, nil
}

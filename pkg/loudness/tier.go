package loudness

import (
	"fmt"
	"strings"
)

// Tier is the reward earned by a session's peak score. The string value is
// the wire label used by the reward API.
type Tier string

const (
	TierNone Tier = "0_day"
	Tier1Day Tier = "1_day"
	Tier3Day Tier = "3_day"
	Tier5Day Tier = "5_day"
	Tier7Day Tier = "7_day"
)

// Threshold is the closed lower bound of a tier.
type Threshold struct {
	MinScore int
	Tier     Tier
}

// thresholds is ordered high to low so the first match wins.
var thresholds = [...]Threshold{
	{MinScore: 1200, Tier: Tier7Day},
	{MinScore: 850, Tier: Tier5Day},
	{MinScore: 600, Tier: Tier3Day},
	{MinScore: 350, Tier: Tier1Day},
}

// Thresholds returns a copy of the tier table, highest first.
func Thresholds() []Threshold {
	out := make([]Threshold, len(thresholds))
	copy(out, thresholds[:])
	return out
}

// Classify maps a peak score to its tier. Every integer maps to exactly one
// tier; scores below the lowest threshold earn [TierNone].
func Classify(peak int) Tier {
	for _, th := range thresholds {
		if peak >= th.MinScore {
			return th.Tier
		}
	}
	return TierNone
}

// Days returns the pass length in days (0 for [TierNone]).
func (t Tier) Days() int {
	switch t {
	case Tier1Day:
		return 1
	case Tier3Day:
		return 3
	case Tier5Day:
		return 5
	case Tier7Day:
		return 7
	default:
		return 0
	}
}

// Label returns the human-readable reward, e.g. "3 Day Pass".
func (t Tier) Label() string {
	if d := t.Days(); d > 0 {
		return fmt.Sprintf("%d Day Pass", d)
	}
	return "No Reward"
}

// IsValid reports whether t is one of the canonical tiers.
func (t Tier) IsValid() bool {
	switch t {
	case TierNone, Tier1Day, Tier3Day, Tier5Day, Tier7Day:
		return true
	}
	return false
}

// ParseTier accepts canonical labels as well as the spellings seen from
// older clients ("2_day", "3 day", "7-day").
func ParseTier(s string) (Tier, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	switch norm {
	case "0_day", "none", "":
		return TierNone, nil
	case "1_day":
		return Tier1Day, nil
	case "2_day", "3_day":
		return Tier3Day, nil
	case "5_day":
		return Tier5Day, nil
	case "7_day":
		return Tier7Day, nil
	}
	return "", fmt.Errorf("loudness: unknown reward tier %q", s)
}

// UnmarshalText normalises the spellings accepted by [ParseTier], so JSON
// and YAML decoding never produce an alias such as "2_day". Unknown labels
// are kept verbatim and fail [Tier.IsValid].
func (t *Tier) UnmarshalText(text []byte) error {
	parsed, err := ParseTier(string(text))
	if err != nil {
		*t = Tier(text)
		return nil
	}
	*t = parsed
	return nil
}

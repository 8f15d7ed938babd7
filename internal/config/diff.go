package config

import "slices"

// ConfigDiff describes what changed between two configs.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// ChallengeChanged is set when scoring or capture settings differ. New
	// values apply to the next attempt.
	ChallengeChanged bool

	// ClaimChanged is set when the reward API endpoints, timeout, or breaker
	// settings differ. The client is rebuilt; breaker state is lost.
	ClaimChanged bool

	// ResultTTLChanged is set when server.result_ttl differs.
	ResultTTLChanged bool

	// SubmitAttemptsChanged is set when server.submit_attempts differs.
	SubmitAttemptsChanged bool

	// RestartRequired lists fields that changed but only take effect after
	// a restart.
	RestartRequired []string
}

// Empty reports whether nothing changed.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && !d.ChallengeChanged && !d.ClaimChanged &&
		!d.ResultTTLChanged && !d.SubmitAttemptsChanged && len(d.RestartRequired) == 0
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.LogLevel != new.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.LogLevel
	}

	d.ChallengeChanged = !challengeEqual(old.Challenge, new.Challenge)

	oc, nc := old.Claim, new.Claim
	d.ClaimChanged = oc.BaseURL != nc.BaseURL ||
		!slices.Equal(oc.FallbackURLs, nc.FallbackURLs) ||
		oc.Timeout != nc.Timeout ||
		oc.Breaker != nc.Breaker

	d.ResultTTLChanged = old.Server.ResultTTL != new.Server.ResultTTL
	d.SubmitAttemptsChanged = old.Server.SubmitAttempts != new.Server.SubmitAttempts

	if old.Server.ListenAddr != new.Server.ListenAddr {
		d.RestartRequired = append(d.RestartRequired, "server.listen_addr")
	}
	if !tlsEqual(old.Server.TLS, new.Server.TLS) {
		d.RestartRequired = append(d.RestartRequired, "server.tls")
	}
	if !slices.Equal(old.Server.AllowedOrigins, new.Server.AllowedOrigins) {
		d.RestartRequired = append(d.RestartRequired, "server.allowed_origins")
	}
	if old.Capture != new.Capture {
		d.RestartRequired = append(d.RestartRequired, "capture")
	}

	return d
}

func challengeEqual(a, b ChallengeConfig) bool {
	return a.Duration == b.Duration &&
		a.Strategy == b.Strategy &&
		a.FrameRate == b.FrameRate &&
		a.FFTSize == b.FFTSize &&
		a.DisplayMax == b.DisplayMax &&
		floatPtrEqual(a.HighPassHz, b.HighPassHz) &&
		floatPtrEqual(a.Smoothing, b.Smoothing)
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func tlsEqual(a, b *TLSConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

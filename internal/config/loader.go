package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/MrWong99/woohoo/pkg/loudness"
)

// envRef matches ${NAME} and ${NAME:-default} references.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. A ".env" file next to path, if present, supplies values for
// ${VAR} references that are not set in the process environment.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	dotenv, err := readDotEnv(filepath.Join(filepath.Dir(path), ".env"))
	if err != nil {
		return nil, err
	}
	cfg, err := decode(data, dotenv)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, expands ${VAR} references
// from the process environment, applies defaults, and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	return decode(data, nil)
}

func decode(data []byte, dotenv map[string]string) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(ExpandEnv(data, dotenv)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	cfg.ApplyDefaults()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readDotEnv(path string) (map[string]string, error) {
	env, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}
	return env, nil
}

// ExpandEnv replaces ${NAME} and ${NAME:-default} in data. The process
// environment wins over dotenv; unset names without a default expand to
// the empty string.
func ExpandEnv(data []byte, dotenv map[string]string) []byte {
	return envRef.ReplaceAllFunc(data, func(m []byte) []byte {
		sub := envRef.FindSubmatch(m)
		name := string(sub[1])
		if v, ok := os.LookupEnv(name); ok {
			return []byte(v)
		}
		if v, ok := dotenv[name]; ok {
			return []byte(v)
		}
		return sub[2]
	})
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	// Challenge
	ch := cfg.Challenge
	if ch.Duration < 0 {
		errs = append(errs, fmt.Errorf("challenge.duration %v must not be negative", ch.Duration))
	}
	strategy, err := loudness.StrategyByName(ch.Strategy)
	if err != nil {
		errs = append(errs, fmt.Errorf("challenge.strategy %q is invalid; valid values: %s, %s", ch.Strategy, loudness.StrategyRMS, loudness.StrategyAverage))
	}
	if ch.FrameRate < 0 || ch.FrameRate > 240 {
		errs = append(errs, fmt.Errorf("challenge.frame_rate %d is out of range [1, 240]", ch.FrameRate))
	}
	if ch.DisplayMax < 0 {
		errs = append(errs, fmt.Errorf("challenge.display_max %d must not be negative", ch.DisplayMax))
	} else if strategy != nil && ch.DisplayMax > strategy.MaxScore() {
		errs = append(errs, fmt.Errorf("challenge.display_max %d exceeds the highest %s score %d", ch.DisplayMax, strategy.Name(), strategy.MaxScore()))
	}
	if err := ch.SessionConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("challenge: %w", err))
	}

	// Capture
	if cfg.Capture.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("capture.sample_rate %d must not be negative", cfg.Capture.SampleRate))
	}

	// Claim
	if cfg.Claim.BaseURL != "" {
		if err := checkURL("claim.base_url", cfg.Claim.BaseURL); err != nil {
			errs = append(errs, err)
		}
	} else if len(cfg.Claim.FallbackURLs) > 0 {
		errs = append(errs, errors.New("claim.fallback_urls requires claim.base_url"))
	}
	for i, u := range cfg.Claim.FallbackURLs {
		if err := checkURL(fmt.Sprintf("claim.fallback_urls[%d]", i), u); err != nil {
			errs = append(errs, err)
		}
	}
	if cfg.Claim.Timeout < 0 {
		errs = append(errs, fmt.Errorf("claim.timeout %v must not be negative", cfg.Claim.Timeout))
	}
	if b := cfg.Claim.Breaker; b.MaxFailures < 0 || b.HalfOpenMax < 0 || b.ResetTimeout < 0 {
		errs = append(errs, errors.New("claim.breaker values must not be negative"))
	}

	// Server
	if cfg.Server.ResultTTL < 0 {
		errs = append(errs, fmt.Errorf("server.result_ttl %v must not be negative", cfg.Server.ResultTTL))
	}
	if tls := cfg.Server.TLS; tls != nil && (tls.CertFile == "" || tls.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}

	return errors.Join(errs...)
}

func checkURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s %q must be an absolute http or https URL", field, raw)
	}
	return nil
}

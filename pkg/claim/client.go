package claim

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/woohoo/internal/resilience"
)

const (
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 15 * time.Second

	opClaim   = "claim-reward"
	opAttempt = "woohoo-attempt"

	// maxErrorBody caps how much of an error response is read.
	maxErrorBody = 64 << 10

	tracerName = "github.com/MrWong99/woohoo/pkg/claim"
)

// Compile-time interface assertion.
var _ Submitter = (*Client)(nil)

// Client submits results to the reward API over HTTP/JSON. Requests go to
// the primary base URL and fail over to fallbacks in order, each behind its
// own circuit breaker. Rejections (4xx) are returned as-is and never fail
// over or trip a breaker.
//
// Client is safe for concurrent use.
type Client struct {
	endpoints  *resilience.FallbackGroup[string]
	httpClient *http.Client
	userAgent  string
}

type clientConfig struct {
	timeout    time.Duration
	fallbacks  []string
	breaker    resilience.CircuitBreakerConfig
	httpClient *http.Client
	userAgent  string
}

// Option is a functional option for Client.
type Option func(*clientConfig)

// WithTimeout sets the per-request timeout. Default: [DefaultTimeout].
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.timeout = d }
}

// WithFallbackURLs adds base URLs tried after the primary.
func WithFallbackURLs(urls ...string) Option {
	return func(c *clientConfig) { c.fallbacks = append(c.fallbacks, urls...) }
}

// WithBreaker tunes the per-endpoint circuit breaker. Name and IsFailure are
// set by the client.
func WithBreaker(cfg resilience.CircuitBreakerConfig) Option {
	return func(c *clientConfig) { c.breaker = cfg }
}

// WithHTTPClient replaces the HTTP client. Its Timeout is overridden by
// WithTimeout when both are given.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) { c.httpClient = hc }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *clientConfig) { c.userAgent = ua }
}

// NewClient constructs a Client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	cfg := &clientConfig{timeout: DefaultTimeout, userAgent: "woohoo"}
	for _, o := range opts {
		o(cfg)
	}

	primary, err := cleanBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	breaker := cfg.breaker
	breaker.IsFailure = countsAsFailure
	endpoints := resilience.NewFallbackGroup(primary, primary, resilience.FallbackConfig{CircuitBreaker: breaker})
	for _, fb := range cfg.fallbacks {
		u, err := cleanBaseURL(fb)
		if err != nil {
			return nil, err
		}
		endpoints.AddFallback(u, u)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{}
	} else {
		cp := *hc
		hc = &cp
	}
	if cfg.timeout > 0 {
		hc.Timeout = cfg.timeout
	}

	return &Client{
		endpoints:  endpoints,
		httpClient: hc,
		userAgent:  cfg.userAgent,
	}, nil
}

func cleanBaseURL(raw string) (string, error) {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return "", errors.New("claim: base URL must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("claim: parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("claim: base URL %q must use http or https", raw)
	}
	return raw, nil
}

// countsAsFailure keeps backend rejections out of breaker accounting.
func countsAsFailure(err error) bool {
	var se *SubmissionError
	if errors.As(err, &se) {
		return !se.Rejected()
	}
	return true
}

// Healthy reports whether at least one endpoint's breaker is not open.
func (c *Client) Healthy() bool { return c.endpoints.Healthy() }

// BreakerStates returns the breaker state per endpoint.
func (c *Client) BreakerStates() map[string]resilience.State { return c.endpoints.States() }

// ClaimReward implements [Submitter]. The request is validated first;
// validation errors are returned without contacting the backend.
func (c *Client) ClaimReward(ctx context.Context, req ClaimRequest) (ClaimRecord, error) {
	req, err := ValidateClaim(req)
	if err != nil {
		return ClaimRecord{}, err
	}
	var rec ClaimRecord
	if err := c.post(ctx, opClaim, req, &rec,
		attribute.String("reward", string(req.Reward)),
		attribute.Int("score", req.Score),
	); err != nil {
		return ClaimRecord{}, err
	}
	return rec, nil
}

// SubmitAttempt implements [Submitter].
func (c *Client) SubmitAttempt(ctx context.Context, req AttemptRequest) (AttemptResult, error) {
	var res AttemptResult
	if err := c.post(ctx, opAttempt, req, &res,
		attribute.Int("peak", req.PeakLoudness),
		attribute.String("session_id", req.SessionID),
	); err != nil {
		return AttemptResult{}, err
	}
	return res, nil
}

func (c *Client) post(ctx context.Context, op string, body, out any, attrs ...attribute.KeyValue) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "claim."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("claim: %s: marshal request: %w", op, err)
	}

	err = c.endpoints.Execute(ctx, func(ctx context.Context, base string) error {
		return c.do(ctx, base, op, payload, out)
	})
	if err != nil {
		err = asSubmissionError(op, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Warn("claim: request failed", "op", op, "err", err)
		return err
	}
	return nil
}

// asSubmissionError ensures every failure surfaces as a *SubmissionError,
// keeping the endpoint error chain intact.
func asSubmissionError(op string, err error) error {
	var se *SubmissionError
	if errors.As(err, &se) && !errors.Is(err, resilience.ErrAllFailed) {
		return se
	}
	out := &SubmissionError{Op: op, Message: "Failed to submit", Err: err}
	if se != nil {
		out.StatusCode = se.StatusCode
		out.Message = se.Message
	}
	if errors.Is(err, resilience.ErrCircuitOpen) && se == nil {
		out.Message = "reward service temporarily unavailable"
	}
	return out
}

func (c *Client) do(ctx context.Context, base, op string, payload []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/"+op, bytes.NewReader(payload))
	if err != nil {
		return &SubmissionError{Op: op, Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &SubmissionError{Op: op, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &SubmissionError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return &SubmissionError{Op: op, StatusCode: resp.StatusCode, Message: "decode response", Err: err}
	}
	return nil
}

// errorMessage extracts the backend's "message" field, falling back to the
// HTTP status text.
func errorMessage(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return "Failed to submit"
}

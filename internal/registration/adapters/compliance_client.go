// Package adapters holds the registration context's clients for other services.
package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"clubreg/internal/registration/metrics"
	"clubreg/internal/registration/models"
	"clubreg/pkg/platform/circuit"
)

const (
	defaultTimeout  = 2 * time.Second
	maxResponseSize = 1 << 20
)

// TokenSource supplies the bearer token presented to compliance.
type TokenSource interface {
	Token() (string, error)
}

// ComplianceClient calls GET /eligibility on the compliance service.
// Every failure is returned as *models.ComplianceCallError.
type ComplianceClient struct {
	httpClient     *http.Client
	eligibilityURL string
	tokens         TokenSource
	timeout        time.Duration
	breaker        *circuit.Breaker
	metrics        *metrics.Metrics
	logger         *slog.Logger
}

type Option func(*ComplianceClient)

// WithHTTPClient replaces the default otelhttp-instrumented client.
func WithHTTPClient(c *http.Client) Option {
	return func(cc *ComplianceClient) {
		if c != nil {
			cc.httpClient = c
		}
	}
}

// WithTimeout bounds each call, including reading the body.
func WithTimeout(d time.Duration) Option {
	return func(cc *ComplianceClient) {
		if d > 0 {
			cc.timeout = d
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(cc *ComplianceClient) {
		cc.breaker = b
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(cc *ComplianceClient) {
		cc.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cc *ComplianceClient) {
		if logger != nil {
			cc.logger = logger
		}
	}
}

func NewComplianceClient(baseURL string, tokens TokenSource, opts ...Option) (*ComplianceClient, error) {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("compliance base URL is required")
	}
	if tokens == nil {
		return nil, errors.New("token source is required")
	}
	c := &ComplianceClient{
		httpClient:     &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		eligibilityURL: baseURL + "/eligibility",
		tokens:         tokens,
		timeout:        defaultTimeout,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CheckEligibility asks compliance whether the person may compete for the ASD.
func (c *ComplianceClient) CheckEligibility(ctx context.Context, personID, asdID uuid.UUID, agonistic bool) (*models.EligibilityResponse, error) {
	if c.breaker != nil && !c.breaker.Allow() {
		c.metrics.RecordComplianceCall("circuit_open")
		return nil, &models.ComplianceCallError{Reason: "circuit open"}
	}

	resp, err := c.call(ctx, personID, asdID, agonistic)
	if err != nil {
		c.recordFailure(ctx)
		c.metrics.RecordComplianceCall("error")
		c.logger.WarnContext(ctx, "compliance eligibility call failed",
			"person_id", personID,
			"asd_id", asdID,
			"error", err,
		)
		return nil, err
	}
	if c.breaker != nil {
		if _, change := c.breaker.RecordSuccess(); change.Closed {
			c.logger.InfoContext(ctx, "compliance circuit closed")
		}
		c.metrics.SetCircuitOpen(c.breaker.IsOpen())
	}
	c.metrics.RecordComplianceCall("ok")
	return resp, nil
}

func (c *ComplianceClient) call(ctx context.Context, personID, asdID uuid.UUID, agonistic bool) (*models.EligibilityResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	token, err := c.tokens.Token()
	if err != nil {
		return nil, &models.ComplianceCallError{Reason: "issue service token", Err: err}
	}

	q := url.Values{}
	q.Set("personId", personID.String())
	q.Set("asdId", asdID.String())
	q.Set("agonistic", strconv.FormatBool(agonistic))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.eligibilityURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, &models.ComplianceCallError{Reason: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &models.ComplianceCallError{Reason: "transport", Err: err}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, &models.ComplianceCallError{Reason: "read response", Err: err}
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, &models.ComplianceCallError{Reason: fmt.Sprintf("unexpected status %d", httpResp.StatusCode)}
	}

	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || trimmed == "null" {
		return nil, &models.ComplianceCallError{Reason: "empty response body"}
	}
	var decoded models.EligibilityResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &models.ComplianceCallError{Reason: "decode response", Err: err}
	}
	return &decoded, nil
}

// recordFailure counts a failed call against the breaker unless the caller
// gave up first; the per-call timeout still counts.
func (c *ComplianceClient) recordFailure(ctx context.Context) {
	if c.breaker == nil || ctx.Err() != nil {
		return
	}
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.WarnContext(ctx, "compliance circuit opened", "breaker", c.breaker.Name())
	}
	c.metrics.SetCircuitOpen(c.breaker.IsOpen())
}

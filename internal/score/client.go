// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

// Package score bridges the external scoring engine into snapshot pairs.
// The engine owns composite readiness and engagement suitability; this
// package only transports its answers and persists them.
package score

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/revlumen/leadfeed/internal/config"
	"github.com/revlumen/leadfeed/internal/metrics"
	"github.com/revlumen/leadfeed/internal/models"
)

// CompanySignals is the per-company input to one scoring request.
type CompanySignals struct {
	CompanyID string                  `json:"company_id"`
	Signals   []models.SignalInstance `json:"signals"`
}

// ScoreResult is the engine's answer for one company. Explanation payloads
// are stored verbatim on the snapshots.
type ScoreResult struct {
	CompanyID             string          `json:"company_id"`
	Composite             int             `json:"composite"`
	Suitability           float64         `json:"suitability"`
	Suppression           *string         `json:"suppression,omitempty"`
	ReadinessExplanation  json.RawMessage `json:"readiness_explanation,omitempty"`
	EngagementExplanation json.RawMessage `json:"engagement_explanation,omitempty"`
}

type scoreRequest struct {
	WorkspaceID string           `json:"workspace_id"`
	PackID      string           `json:"pack_id"`
	AsOf        time.Time        `json:"as_of"`
	Companies   []CompanySignals `json:"companies"`
}

type scoreResponse struct {
	Results []ScoreResult `json:"results"`
}

// Client calls the external scoring engine over HTTP with circuit breaker
// protection.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]ScoreResult]
}

// NewClient creates a scoring engine client from configuration.
func NewClient(cfg *config.ScoringConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: cfg.URL,
		http:    &http.Client{Timeout: timeout},
		breaker: newCircuitBreaker("scoring-engine"),
	}
}

// ScoreBatch submits one batch of companies and returns the engine's
// results. Companies the engine omits from the response were skipped by it.
func (c *Client) ScoreBatch(ctx context.Context, workspaceID, packID string, asOf time.Time, companies []CompanySignals) ([]ScoreResult, error) {
	results, err := c.breaker.Execute(func() ([]ScoreResult, error) {
		return c.doScore(ctx, workspaceID, packID, asOf, companies)
	})
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues("scoring-engine", "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues("scoring-engine", "rejected").Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues("scoring-engine", "failure").Inc()
	}
	return results, err
}

func (c *Client) doScore(ctx context.Context, workspaceID, packID string, asOf time.Time, companies []CompanySignals) ([]ScoreResult, error) {
	body, err := json.Marshal(scoreRequest{
		WorkspaceID: workspaceID,
		PackID:      packID,
		AsOf:        asOf,
		Companies:   companies,
	})
	if err != nil {
		return nil, fmt.Errorf("encode score request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/score", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call scoring engine: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("scoring engine returned %d: %s", resp.StatusCode, string(data))
	}

	var decoded scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode score response: %w", err)
	}
	return decoded.Results, nil
}

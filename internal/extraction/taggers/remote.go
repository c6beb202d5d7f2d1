// SPDX-License-Identifier: Apache-2.0

package taggers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/gemaraproj/casrel/internal/extraction"
)

// Ensure RemoteScorer implements the interface.
var _ Scorer = (*RemoteScorer)(nil)

// Default configuration values.
const (
	DefaultTimeout           = 30 * time.Second
	DefaultRequestsPerSecond = 10.0
	DefaultBurst             = 1
)

// RemoteConfig holds configuration for the remote encoder.
type RemoteConfig struct {
	// BaseURL is the model server root; requests go to BaseURL + "/encode".
	BaseURL string

	// Timeout is the per-request timeout (default: 30s).
	Timeout time.Duration

	// RequestsPerSecond paces calls to the server (default: 10).
	RequestsPerSecond float64

	// Burst is the token bucket size (default: 1).
	Burst int

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// RemoteScorer calls an encoder served over HTTP.
type RemoteScorer struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
}

type encodeRequest struct {
	TokenIDs   [][]int `json:"token_ids"`
	SegmentIDs [][]int `json:"segment_ids"`
}

type encodeResponse struct {
	HiddenStates [][][]float32 `json:"hidden_states"`
}

// NewRemoteScorer creates a remote encoder client.
func NewRemoteScorer(cfg RemoteConfig) (*RemoteScorer, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("remote scorer: base URL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &RemoteScorer{
		client:  client,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}, nil
}

// Score sends one batch to the encoder and returns its hidden states.
func (s *RemoteScorer) Score(ctx context.Context, tokenIDs, segmentIDs [][]int) ([][][]float32, error) {
	if len(tokenIDs) != len(segmentIDs) {
		return nil, fmt.Errorf("%w: %d token rows, %d segment rows",
			extraction.ErrShapeMismatch, len(tokenIDs), len(segmentIDs))
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := json.Marshal(encodeRequest{TokenIDs: tokenIDs, SegmentIDs: segmentIDs})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/encode", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("encode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("encoder returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out encodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.HiddenStates) != len(tokenIDs) {
		return nil, fmt.Errorf("%w: encoder returned %d sequences for %d inputs",
			extraction.ErrShapeMismatch, len(out.HiddenStates), len(tokenIDs))
	}
	return out.HiddenStates, nil
}

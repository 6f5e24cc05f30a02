package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/radieske/bet-settlement-engine/internal/settlement"
)

var ErrFeedUnavailable = errors.New("result feed unavailable")

// MarketResult é uma resolução publicada pelo feed externo
type MarketResult struct {
	MarketID   string          `json:"marketId"`
	ResultCode string          `json:"resultCode,omitempty"`
	Mode       settlement.Mode `json:"settlementMode"`
	ResolvedAt time.Time       `json:"resolvedAt"`
}

type ResultSource interface {
	Resolved(ctx context.Context) ([]MarketResult, error)
}

// HTTPSource consulta GET {baseURL}/results com timeout próprio,
// independente das operações locais do engine.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSource) Resolved(ctx context.Context) ([]MarketResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/results", nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrFeedUnavailable, resp.StatusCode)
	}

	var out []MarketResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrFeedUnavailable, err)
	}
	return out, nil
}

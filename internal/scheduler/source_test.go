package scheduler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/bet-settlement-engine/internal/settlement"
)

func TestHTTPSourceResolved(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/results", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"marketId":"m1","resultCode":"HOME","settlementMode":"normal","resolvedAt":"2026-03-01T20:00:00Z"},
			{"marketId":"m2","settlementMode":"void","resolvedAt":"2026-03-01T20:05:00Z"}
		]`))
	}))
	defer srv.Close()

	got, err := NewHTTPSource(srv.URL+"/", time.Second).Resolved(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "m1", got[0].MarketID)
	assert.Equal(t, settlement.ModeNormal, got[0].Mode)
	assert.Equal(t, settlement.ModeVoid, got[1].Mode)
	assert.Empty(t, got[1].ResultCode)
}

func TestHTTPSourceErrors(t *testing.T) {
	t.Run("non-200", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "upstream", http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := NewHTTPSource(srv.URL, time.Second).Resolved(context.Background())
		assert.ErrorIs(t, err, ErrFeedUnavailable)
	})

	t.Run("bad-json", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"not":"a list"`))
		}))
		defer srv.Close()

		_, err := NewHTTPSource(srv.URL, time.Second).Resolved(context.Background())
		assert.ErrorIs(t, err, ErrFeedUnavailable)
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		_, err := NewHTTPSource(srv.URL, 30*time.Millisecond).Resolved(context.Background())
		assert.ErrorIs(t, err, ErrFeedUnavailable)
	})
}

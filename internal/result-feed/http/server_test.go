package http

import (
	"context"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-engine/internal/scheduler"
	"github.com/radieske/bet-settlement-engine/internal/settlement"
)

func TestFeedServesSchedulerSource(t *testing.T) {
	store := NewStore()
	srv := httptest.NewServer(NewServer(zap.NewNop(), store).Router())
	defer srv.Close()

	post := func(body string) int {
		resp, err := http.Post(srv.URL+"/results", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		return resp.StatusCode
	}

	require.Equal(t, http.StatusCreated, post(`{"marketId":"m1","resultCode":"HOME","settlementMode":"normal","resolvedAt":"2026-01-01T10:00:00Z"}`))
	require.Equal(t, http.StatusCreated, post(`{"marketId":"m2","settlementMode":"void","resolvedAt":"2026-01-01T11:00:00Z"}`))

	t.Run("rejects-missing-market", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, post(`{"resultCode":"HOME","settlementMode":"normal"}`))
	})

	t.Run("http-source-decodes-feed", func(t *testing.T) {
		got, err := scheduler.NewHTTPSource(srv.URL, time.Second).Resolved(context.Background())
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "m1", got[0].MarketID)
		assert.Equal(t, settlement.ModeNormal, got[0].Mode)
		assert.Equal(t, settlement.ModeVoid, got[1].Mode)
	})

	t.Run("delete-removes-market", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/results/m1", nil)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Len(t, store.List(), 1)
	})
}

func TestAutoResolvePicksCatalogSelections(t *testing.T) {
	store := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	catalog := []Market{{ID: "MATCH_001", Selections: []string{"HOME", "DRAW", "AWAY"}}}
	go store.AutoResolve(ctx, time.Millisecond, catalog, rand.New(rand.NewSource(1)))

	require.Eventually(t, func() bool { return len(store.List()) == 1 }, time.Second, 5*time.Millisecond)
	r := store.List()[0]
	assert.Equal(t, "MATCH_001", r.MarketID)
	if r.SettlementMode == "normal" {
		assert.Contains(t, catalog[0].Selections, r.ResultCode)
	}
}

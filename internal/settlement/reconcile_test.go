package settlement

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/bet-settlement-engine/internal/ledger"
)

func TestReconcile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rec := NewReconciler(env.reg, env.led)

	win := env.placeBet(t, "alice", "m1", "HOME", "100", "2.50")
	env.placeBet(t, "bob", "m1", "AWAY", "100", "2.50")
	_, err := env.engine.SettleMarket(ctx, Request{MarketID: "m1", ResultCode: "HOME", Mode: ModeNormal})
	require.NoError(t, err)

	t.Run("clean-after-settlement", func(t *testing.T) {
		rep, err := rec.Reconcile(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, rep.BetsChecked)
		assert.True(t, rep.Clean(), "%+v", rep)
	})

	t.Run("detects-extra-credit-and-orphan", func(t *testing.T) {
		// crédito manual por fora do engine
		_, err := env.led.Append(ctx, ledger.Entry{UserID: "alice", Type: ledger.TypeVoidRefund, Amount: decimal.NewFromInt(5), Reference: win.ID})
		require.NoError(t, err)
		orphan, err := env.led.Append(ctx, ledger.Entry{UserID: "carol", Type: ledger.TypeWin, Amount: decimal.NewFromInt(7), Reference: "ghost-bet"})
		require.NoError(t, err)

		rep, err := rec.Reconcile(ctx)
		require.NoError(t, err)
		require.Len(t, rep.Mismatches, 1)
		assert.Equal(t, win.ID, rep.Mismatches[0].BetID)
		assert.Equal(t, "250.00", rep.Mismatches[0].Expected.StringFixed(2))
		assert.Equal(t, "255.00", rep.Mismatches[0].Credited.StringFixed(2))
		assert.Equal(t, []string{orphan.ID}, rep.Orphans)
		assert.False(t, rep.Clean())
	})
}

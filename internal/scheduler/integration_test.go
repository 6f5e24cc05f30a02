package scheduler

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-engine/internal/bets"
	"github.com/radieske/bet-settlement-engine/internal/ledger"
	"github.com/radieske/bet-settlement-engine/internal/settlement"
	"github.com/radieske/bet-settlement-engine/internal/shared/db"
	"github.com/radieske/bet-settlement-engine/internal/shared/db/dbtest"
)

func TestSchedulerWithEngineMarksOnlySuccessfulMarkets(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	reg := bets.NewRegistry(conn, 2)
	led := ledger.NewStore(conn, db.SQLite)
	markets := settlement.NewMarketRepo(conn)
	engine := settlement.NewEngine(reg, led, db.Transactor{DB: conn}, zap.NewNop(),
		settlement.WithMarketRecorder(markets))

	for _, m := range []string{"m1", "m2"} {
		_, err := reg.Create(ctx, conn, bets.Bet{
			UserID: "u1", MarketID: m, SelectionID: "HOME",
			Stake: decimal.NewFromInt(10), Odds: decimal.NewFromInt(2),
		})
		require.NoError(t, err)
	}

	src := &staticSource{results: []MarketResult{
		{MarketID: "m1", ResultCode: "HOME", Mode: settlement.ModeNormal},
		// resultCode malformado: falha de validação, mercado não é marcado
		{MarketID: "m2", ResultCode: "HOME AWAY", Mode: settlement.ModeNormal},
	}}
	s := New(src, engine, markets, Config{Workers: 2}, zap.NewNop())

	first := s.RunCycle(ctx)
	assert.Equal(t, 1, first.SettledCount)
	require.Len(t, first.Errors, 1)
	assert.Equal(t, "m2", first.Errors[0].MarketID)

	processed, err := markets.Processed(ctx, []string{"m1", "m2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"m1": true}, processed)

	// feed corrigido: m1 é pulado, m2 liquida
	src.results[1].ResultCode = "AWAY"
	second := s.RunCycle(ctx)
	assert.True(t, second.Success)
	assert.Equal(t, 1, second.Skipped)
	assert.Equal(t, 1, second.SettledCount)

	bal, err := led.BalanceOf(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "20", bal.String(), "only the m1 win is credited; m2 lost")
}

func TestSchedulerSettlesBetPlacedAfterMarketWasRecorded(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	reg := bets.NewRegistry(conn, 2)
	led := ledger.NewStore(conn, db.SQLite)
	markets := settlement.NewMarketRepo(conn)
	engine := settlement.NewEngine(reg, led, db.Transactor{DB: conn}, zap.NewNop(),
		settlement.WithMarketRecorder(markets))

	place := func() {
		_, err := reg.Create(ctx, conn, bets.Bet{
			UserID: "u1", MarketID: "m1", SelectionID: "HOME",
			Stake: decimal.NewFromInt(10), Odds: decimal.NewFromInt(2),
		})
		require.NoError(t, err)
	}

	src := &staticSource{results: []MarketResult{{MarketID: "m1", ResultCode: "HOME", Mode: settlement.ModeNormal}}}
	s := New(src, engine, markets, Config{Workers: 1}, zap.NewNop())

	place()
	first := s.RunCycle(ctx)
	assert.Equal(t, 1, first.SettledCount)

	// aposta tardia no mercado já registrado
	place()
	second := s.RunCycle(ctx)
	assert.Equal(t, 0, second.Skipped)
	assert.Equal(t, 1, second.SettledCount)

	third := s.RunCycle(ctx)
	assert.Equal(t, 1, third.Skipped)
	assert.Equal(t, 0, third.SettledCount)

	pending, err := reg.FindPendingByMarket(ctx, "m1")
	require.NoError(t, err)
	assert.Empty(t, pending)

	bal, err := led.BalanceOf(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "40", bal.String())
}

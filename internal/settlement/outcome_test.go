package settlement

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/bet-settlement-engine/internal/bets"
	"github.com/radieske/bet-settlement-engine/internal/ledger"
)

func TestClassify(t *testing.T) {
	bet := func(sel, stake, odds string) bets.Bet {
		return bets.Bet{ID: "b", SelectionID: sel, Stake: decimal.RequireFromString(stake), Odds: decimal.RequireFromString(odds)}
	}

	tests := []struct {
		name       string
		bet        bets.Bet
		resultCode string
		mode       Mode
		status     bets.Status
		payout     string
		credit     ledger.EntryType
	}{
		{name: "normal-win", bet: bet("HOME", "100", "2.50"), resultCode: "HOME", mode: ModeNormal, status: bets.StatusWon, payout: "250.00", credit: ledger.TypeWin},
		{name: "normal-loss", bet: bet("AWAY", "100", "2.50"), resultCode: "HOME", mode: ModeNormal, status: bets.StatusLost, payout: "0.00"},
		{name: "void-refunds-stake", bet: bet("AWAY", "100", "2.50"), mode: ModeVoid, status: bets.StatusVoid, payout: "100.00", credit: ledger.TypeVoidRefund},
		{name: "half-win-match", bet: bet("HOME", "200", "3.00"), resultCode: "HOME", mode: ModeHalfWin, status: bets.StatusHalfWon, payout: "400.00", credit: ledger.TypeWin},
		{name: "half-win-no-match-loses-all", bet: bet("AWAY", "200", "3.00"), resultCode: "HOME", mode: ModeHalfWin, status: bets.StatusLost, payout: "0.00"},
		{name: "half-lost-match-wins-full", bet: bet("HOME", "200", "3.00"), resultCode: "HOME", mode: ModeHalfLost, status: bets.StatusWon, payout: "600.00", credit: ledger.TypeWin},
		{name: "half-lost-no-match-refunds-half", bet: bet("AWAY", "200", "3.00"), resultCode: "HOME", mode: ModeHalfLost, status: bets.StatusHalfLost, payout: "100.00", credit: ledger.TypeVoidRefund},
		{name: "half-win-rounds-half-up-at-the-end", bet: bet("HOME", "0.05", "1.2"), resultCode: "HOME", mode: ModeHalfWin, status: bets.StatusHalfWon, payout: "0.06", credit: ledger.TypeWin},
		{name: "half-lost-refund-rounds-half-up", bet: bet("AWAY", "0.05", "2"), resultCode: "HOME", mode: ModeHalfLost, status: bets.StatusHalfLost, payout: "0.03", credit: ledger.TypeVoidRefund},
		{name: "tiny-refund-rounding-to-zero-has-no-credit", bet: bet("AWAY", "0.004", "2"), resultCode: "HOME", mode: ModeHalfLost, status: bets.StatusHalfLost, payout: "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Classify(tt.bet, tt.resultCode, tt.mode, 2)
			require.NoError(t, err)
			assert.Equal(t, tt.status, out.Status)
			assert.Equal(t, tt.payout, out.Payout.StringFixed(2))
			assert.Equal(t, tt.credit, out.Credit)
		})
	}
}

func TestClassifyRejectsBadInput(t *testing.T) {
	_, err := Classify(bets.Bet{ID: "b", Stake: decimal.Zero, Odds: decimal.NewFromInt(2)}, "X", ModeNormal, 2)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "stake", verr.Field)

	_, err = Classify(bets.Bet{ID: "b", Stake: decimal.NewFromInt(1), Odds: decimal.NewFromInt(2)}, "X", "each_way", 2)
	assert.ErrorIs(t, err, ErrInvalidMode)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{name: "normal-ok", req: Request{MarketID: "m1", ResultCode: "HOME", Mode: ModeNormal}},
		{name: "void-without-result", req: Request{MarketID: "m1", Mode: ModeVoid}},
		{name: "void-ignores-malformed-result", req: Request{MarketID: "m1", ResultCode: "<script>", Mode: ModeVoid}},
		{name: "missing-market", req: Request{ResultCode: "HOME", Mode: ModeNormal}, wantErr: true},
		{name: "missing-result", req: Request{MarketID: "m1", Mode: ModeHalfWin}, wantErr: true},
		{name: "malformed-result", req: Request{MarketID: "m1", ResultCode: "HOME; DROP", Mode: ModeNormal}, wantErr: true},
		{name: "result-too-long", req: Request{MarketID: "m1", ResultCode: "A" + strings.Repeat("b", 64), Mode: ModeNormal}, wantErr: true},
		{name: "result-with-separators", req: Request{MarketID: "m1", ResultCode: "team:home_1.x-y", Mode: ModeNormal}},
		{name: "unknown-mode", req: Request{MarketID: "m1", ResultCode: "HOME", Mode: "double"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.req)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}

package settlement

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/radieske/bet-settlement-engine/internal/bets"
	"github.com/radieske/bet-settlement-engine/internal/ledger"
)

type TerminalBetSource interface {
	FindTerminal(ctx context.Context) ([]bets.Bet, error)
}

type CreditSource interface {
	SettlementCredits(ctx context.Context) ([]ledger.Entry, error)
}

type Mismatch struct {
	BetID    string          `json:"betId"`
	Expected decimal.Decimal `json:"expected"`
	Credited decimal.Decimal `json:"credited"`
}

type Report struct {
	BetsChecked int        `json:"betsChecked"`
	Mismatches  []Mismatch `json:"mismatches"`
	Orphans     []string   `json:"orphans"` // ids de lançamentos sem aposta terminal
}

func (r Report) Clean() bool { return len(r.Mismatches) == 0 && len(r.Orphans) == 0 }

// Reconciler confere o ledger contra as apostas liquidadas: cada aposta terminal
// precisa ter créditos (win + void_refund) somando exatamente o payout gravado.
type Reconciler struct {
	bets    TerminalBetSource
	credits CreditSource
}

func NewReconciler(b TerminalBetSource, c CreditSource) *Reconciler {
	return &Reconciler{bets: b, credits: c}
}

func (r *Reconciler) Reconcile(ctx context.Context) (Report, error) {
	terminal, err := r.bets.FindTerminal(ctx)
	if err != nil {
		return Report{}, &StorageError{Op: "load terminal bets", Err: err}
	}
	credits, err := r.credits.SettlementCredits(ctx)
	if err != nil {
		return Report{}, &StorageError{Op: "load settlement credits", Err: err}
	}

	byBet := make(map[string]decimal.Decimal, len(credits))
	known := make(map[string]bool, len(terminal))
	for _, b := range terminal {
		known[b.ID] = true
	}

	rep := Report{BetsChecked: len(terminal), Mismatches: []Mismatch{}, Orphans: []string{}}
	for _, c := range credits {
		if !known[c.Reference] {
			rep.Orphans = append(rep.Orphans, c.ID)
			continue
		}
		if c.Status != ledger.StatusCompleted {
			continue
		}
		byBet[c.Reference] = byBet[c.Reference].Add(c.Amount)
	}

	for _, b := range terminal {
		credited := byBet[b.ID]
		if !credited.Equal(b.Payout) {
			rep.Mismatches = append(rep.Mismatches, Mismatch{BetID: b.ID, Expected: b.Payout, Credited: credited})
		}
	}

	sort.Slice(rep.Mismatches, func(i, j int) bool { return rep.Mismatches[i].BetID < rep.Mismatches[j].BetID })
	sort.Strings(rep.Orphans)

	ReconcileMismatches.Set(float64(len(rep.Mismatches) + len(rep.Orphans)))
	return rep, nil
}

package bets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/radieske/bet-settlement-engine/internal/shared/db"
	"github.com/radieske/bet-settlement-engine/internal/shared/money"
)

// Registry persiste apostas e aplica as transições de status
type Registry struct {
	db       *sql.DB
	decimals int32
}

func NewRegistry(conn *sql.DB, currencyDecimals int32) *Registry {
	return &Registry{db: conn, decimals: currencyDecimals}
}

const betColumns = `id, user_id, market_id, selection_id, odds, stake, potential_payout,
	status, payout, result_code, settlement_mode, placed_at, settled_at`

// Create insere uma aposta pending usando a transação do chamador
// (o bet-service debita o stake na mesma transação).
func (r *Registry) Create(ctx context.Context, q db.DBTX, b Bet) (Bet, error) {
	if b.UserID == "" || b.MarketID == "" || b.SelectionID == "" {
		return Bet{}, fmt.Errorf("%w: userId, marketId and selectionId are required", ErrInvalidBet)
	}
	if !ValidSelection(b.SelectionID) {
		return Bet{}, fmt.Errorf("%w: malformed selectionId %q", ErrInvalidBet, b.SelectionID)
	}
	if !b.Stake.GreaterThan(decimal.Zero) {
		return Bet{}, fmt.Errorf("%w: stake must be positive", ErrInvalidBet)
	}
	if !b.Odds.GreaterThan(decimal.Zero) {
		return Bet{}, fmt.Errorf("%w: odds must be positive", ErrInvalidBet)
	}

	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.PlacedAt.IsZero() {
		b.PlacedAt = time.Now().UTC()
	}
	b.Status = StatusPending
	b.Payout = decimal.Zero
	b.SettledAt = nil
	b.PotentialPayout = money.Round(b.Stake.Mul(b.Odds), r.decimals)

	_, err := q.ExecContext(ctx, `
		INSERT INTO bets (id, user_id, market_id, selection_id, odds, stake, potential_payout, status, placed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,'pending',$8)`,
		b.ID, b.UserID, b.MarketID, b.SelectionID,
		b.Odds.String(), b.Stake.String(), b.PotentialPayout.String(), b.PlacedAt,
	)
	if err != nil {
		return Bet{}, fmt.Errorf("insert bet: %w", err)
	}
	return b, nil
}

// Get retorna a aposta pelo id
func (r *Registry) Get(ctx context.Context, id string) (Bet, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+betColumns+` FROM bets WHERE id = $1`, id)
	b, err := scanBet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Bet{}, ErrNotFound
	}
	if err != nil {
		return Bet{}, fmt.Errorf("get bet: %w", err)
	}
	return b, nil
}

// FindPendingByMarket lista as apostas pending do mercado, sem ordem garantida.
// Materializa tudo antes de retornar: com SQLite (uma conexão) não dá para
// manter o cursor aberto enquanto cada aposta é liquidada.
func (r *Registry) FindPendingByMarket(ctx context.Context, marketID string) ([]Bet, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+betColumns+` FROM bets WHERE market_id = $1 AND status = 'pending'`, marketID)
	if err != nil {
		return nil, fmt.Errorf("query pending bets: %w", err)
	}
	defer rows.Close()

	var out []Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bet: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending bets: %w", err)
	}
	return out, nil
}

// FindTerminal lista as apostas já liquidadas (usado pela reconciliação)
func (r *Registry) FindTerminal(ctx context.Context) ([]Bet, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+betColumns+` FROM bets WHERE status <> 'pending'`)
	if err != nil {
		return nil, fmt.Errorf("query terminal bets: %w", err)
	}
	defer rows.Close()

	var out []Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bet: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// PendingMarkets lista os mercados que ainda têm apostas em aberto
func (r *Registry) PendingMarkets(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT market_id FROM bets WHERE status = 'pending' ORDER BY market_id`)
	if err != nil {
		return nil, fmt.Errorf("query pending markets: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// TransitionStatus aplica pending -> t.To com um único UPDATE condicional e grava
// o registro de auditoria na mesma transação. Nunca lê antes de escrever:
// se outra liquidação chegou primeiro, nenhuma linha é afetada e volta ErrConflict.
func (r *Registry) TransitionStatus(ctx context.Context, q db.DBTX, t Transition) error {
	if !t.To.Terminal() {
		return fmt.Errorf("%w: pending -> %s", ErrInvalidTransition, t.To)
	}
	if t.Payout.IsNegative() {
		return fmt.Errorf("%w: negative payout", ErrInvalidTransition)
	}
	if t.SettledAt.IsZero() {
		t.SettledAt = time.Now().UTC()
	}

	res, err := q.ExecContext(ctx, `
		UPDATE bets
		SET status = $1, payout = $2, result_code = $3, settlement_mode = $4, settled_at = $5
		WHERE id = $6 AND status = 'pending'`,
		string(t.To), t.Payout.String(), nullable(t.ResultCode), t.Mode, t.SettledAt, t.BetID,
	)
	if err != nil {
		return fmt.Errorf("update bet status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		var one int
		err := q.QueryRowContext(ctx, `SELECT 1 FROM bets WHERE id = $1`, t.BetID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("check bet exists: %w", err)
		}
		return ErrConflict
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO bet_transactions (bet_id, old_status, new_status, reason, created_at)
		VALUES ($1,$2,$3,$4,$5)`,
		t.BetID, string(StatusPending), string(t.To), t.Reason, t.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("insert bet transaction: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBet(sc scanner) (Bet, error) {
	var (
		b                               Bet
		odds, stake, potential, status string
		payout, resultCode, mode        sql.NullString
		settledAt                       sql.NullTime
	)
	err := sc.Scan(&b.ID, &b.UserID, &b.MarketID, &b.SelectionID, &odds, &stake, &potential,
		&status, &payout, &resultCode, &mode, &b.PlacedAt, &settledAt)
	if err != nil {
		return Bet{}, err
	}

	if b.Odds, err = decimal.NewFromString(odds); err != nil {
		return Bet{}, fmt.Errorf("parse odds: %w", err)
	}
	if b.Stake, err = decimal.NewFromString(stake); err != nil {
		return Bet{}, fmt.Errorf("parse stake: %w", err)
	}
	if b.PotentialPayout, err = decimal.NewFromString(potential); err != nil {
		return Bet{}, fmt.Errorf("parse potential payout: %w", err)
	}
	if payout.Valid {
		if b.Payout, err = decimal.NewFromString(payout.String); err != nil {
			return Bet{}, fmt.Errorf("parse payout: %w", err)
		}
	}
	b.Status = Status(status)
	b.ResultCode = resultCode.String
	b.SettlementMode = mode.String
	if settledAt.Valid {
		t := settledAt.Time
		b.SettledAt = &t
	}
	return b, nil
}

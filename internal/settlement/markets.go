package settlement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrMarketNotFound = errors.New("market settlement not found")

// MarketSettlement é o registro de uma chamada de liquidação concluída sem erro de sistema.
// O scheduler usa a tabela como conjunto de mercados já processados.
type MarketSettlement struct {
	MarketID     string    `json:"marketId"`
	ResultCode   string    `json:"resultCode,omitempty"`
	Mode         Mode      `json:"settlementMode"`
	SettledCount int       `json:"settledCount"`
	FailedCount  int       `json:"failedCount"`
	Trigger      string    `json:"trigger"`
	SettledAt    time.Time `json:"settledAt"`
}

type MarketRepo struct{ db *sql.DB }

func NewMarketRepo(conn *sql.DB) *MarketRepo { return &MarketRepo{db: conn} }

// Record grava (ou sobrescreve) o último resultado de liquidação do mercado
func (r *MarketRepo) Record(ctx context.Context, m MarketSettlement) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO market_settlements (market_id, result_code, settlement_mode, settled_count, failed_count, triggered_by, settled_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (market_id) DO UPDATE SET
			result_code = excluded.result_code,
			settlement_mode = excluded.settlement_mode,
			settled_count = excluded.settled_count,
			failed_count = excluded.failed_count,
			triggered_by = excluded.triggered_by,
			settled_at = excluded.settled_at`,
		m.MarketID, m.ResultCode, string(m.Mode), m.SettledCount, m.FailedCount, m.Trigger, m.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("record market settlement: %w", err)
	}
	return nil
}

func (r *MarketRepo) Get(ctx context.Context, marketID string) (MarketSettlement, error) {
	var (
		m          MarketSettlement
		resultCode sql.NullString
		mode       string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT market_id, result_code, settlement_mode, settled_count, failed_count, triggered_by, settled_at
		FROM market_settlements WHERE market_id = $1`, marketID).
		Scan(&m.MarketID, &resultCode, &mode, &m.SettledCount, &m.FailedCount, &m.Trigger, &m.SettledAt)
	if errors.Is(err, sql.ErrNoRows) {
		return MarketSettlement{}, ErrMarketNotFound
	}
	if err != nil {
		return MarketSettlement{}, fmt.Errorf("get market settlement: %w", err)
	}
	m.ResultCode = resultCode.String
	m.Mode = Mode(mode)
	return m, nil
}

// Processed retorna quais dos mercados informados já têm registro de liquidação
// e nenhuma aposta pending. Aposta aceita depois do registro reabre o mercado.
func (r *MarketRepo) Processed(ctx context.Context, marketIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(marketIDs))
	if len(marketIDs) == 0 {
		return out, nil
	}

	ph := make([]string, len(marketIDs))
	args := make([]any, len(marketIDs))
	for i, id := range marketIDs {
		ph[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT ms.market_id FROM market_settlements ms
		WHERE ms.market_id IN (`+strings.Join(ph, ",")+`)
		AND NOT EXISTS (
			SELECT 1 FROM bets b WHERE b.market_id = ms.market_id AND b.status = 'pending'
		)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query processed markets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

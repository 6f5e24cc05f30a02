package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/radieske/bet-settlement-engine/internal/shared/db"
)

// Store implementa o ledger append-only em banco (Postgres ou SQLite).
// O saldo nunca é gravado: é sempre recalculado a partir dos lançamentos.
type Store struct {
	db      *sql.DB
	dialect db.Dialect
}

func NewStore(conn *sql.DB, dialect db.Dialect) *Store {
	return &Store{db: conn, dialect: dialect}
}

// validate aplica as regras de entrada e preenche id/status/createdAt ausentes
func validate(e *Entry) error {
	if e.UserID == "" {
		return invalid("userId required")
	}
	if !e.Type.Valid() {
		return invalid("unknown type %q", e.Type)
	}
	if !e.Amount.GreaterThan(decimal.Zero) {
		return invalid("amount must be positive, got %s", e.Amount)
	}
	if e.Status == "" {
		e.Status = StatusCompleted
	}
	if !e.Status.Valid() {
		return invalid("unknown status %q", e.Status)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return nil
}

// Append grava um lançamento fora de transação
func (s *Store) Append(ctx context.Context, e Entry) (Entry, error) {
	return s.AppendTx(ctx, s.db, e)
}

// AppendTx grava um lançamento usando a transação do chamador.
// Um segundo bet/win/void_refund para a mesma referência viola o índice único e vira ErrDuplicate.
func (s *Store) AppendTx(ctx context.Context, q db.DBTX, e Entry) (Entry, error) {
	if err := validate(&e); err != nil {
		return Entry{}, err
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO ledger_entries (id, user_id, type, amount, status, reference, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		e.ID, e.UserID, string(e.Type), e.Amount.String(), string(e.Status), e.Reference, e.CreatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Entry{}, fmt.Errorf("%w: %s %s", ErrDuplicate, e.Type, e.Reference)
		}
		return Entry{}, fmt.Errorf("insert ledger entry: %w", err)
	}
	return e, nil
}

// AppendDebit grava um débito (withdraw/bet) somente se houver saldo.
// Débitos do mesmo usuário são serializados: advisory lock no Postgres,
// writer único no SQLite.
func (s *Store) AppendDebit(ctx context.Context, e Entry) (Entry, error) {
	var out Entry
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		out, err = s.AppendDebitTx(ctx, tx, e)
		return err
	})
	return out, err
}

// AppendDebitTx é a versão transacional de AppendDebit (usada na criação de apostas)
func (s *Store) AppendDebitTx(ctx context.Context, q db.DBTX, e Entry) (Entry, error) {
	if e.Type.IsCredit() {
		return Entry{}, invalid("type %q is not a debit", e.Type)
	}
	if err := validate(&e); err != nil {
		return Entry{}, err
	}

	if err := s.lockUser(ctx, q, e.UserID); err != nil {
		return Entry{}, err
	}

	balance, err := s.balance(ctx, q, e.UserID)
	if err != nil {
		return Entry{}, err
	}
	if balance.LessThan(e.Amount) {
		return Entry{}, ErrInsufficientFunds
	}

	return s.AppendTx(ctx, q, e)
}

func (s *Store) lockUser(ctx context.Context, q db.DBTX, userID string) error {
	if s.dialect != db.Postgres {
		return nil
	}
	if _, err := q.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID); err != nil {
		return fmt.Errorf("lock wallet: %w", err)
	}
	return nil
}

// BalanceOf recalcula o saldo do usuário a partir dos lançamentos completed
func (s *Store) BalanceOf(ctx context.Context, userID string) (decimal.Decimal, error) {
	return s.balance(ctx, s.db, userID)
}

func (s *Store) balance(ctx context.Context, q db.DBTX, userID string) (decimal.Decimal, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT type, amount FROM ledger_entries
		WHERE user_id = $1 AND status = 'completed'`, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("query balance: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var typ, amount string
		if err := rows.Scan(&typ, &amount); err != nil {
			return decimal.Zero, fmt.Errorf("scan balance row: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse amount: %w", err)
		}
		if EntryType(typ).IsCredit() {
			total = total.Add(d)
		} else {
			total = total.Sub(d)
		}
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("iterate balance rows: %w", err)
	}
	return total, nil
}

// Entries lista o histórico do usuário, mais recentes primeiro
func (s *Store) Entries(ctx context.Context, userID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, type, amount, status, reference, created_at
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SettlementCredits lista todos os créditos gerados por liquidação (win e void_refund)
func (s *Store) SettlementCredits(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, type, amount, status, reference, created_at
		FROM ledger_entries
		WHERE type IN ('win', 'void_refund')`)
	if err != nil {
		return nil, fmt.Errorf("query settlement credits: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Get busca um lançamento pelo id
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, type, amount, status, reference, created_at
		FROM ledger_entries WHERE id = $1`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

// CompletePending move um lançamento pending para completed ou failed.
// É um compare-and-set: lançamentos já resolvidos nunca mudam.
func (s *Store) CompletePending(ctx context.Context, id string, to Status) (Entry, error) {
	if to != StatusCompleted && to != StatusFailed {
		return Entry{}, invalid("pending entry can only become completed or failed, got %q", to)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE ledger_entries SET status = $1 WHERE id = $2 AND status = 'pending'`,
		string(to), id)
	if err != nil {
		return Entry{}, fmt.Errorf("complete entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Entry{}, fmt.Errorf("rows affected: %w", err)
	}

	e, err := s.Get(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	if n == 0 {
		return e, ErrConflict
	}
	return e, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (Entry, error) {
	var (
		e               Entry
		typ, st, amount string
	)
	if err := sc.Scan(&e.ID, &e.UserID, &typ, &amount, &st, &e.Reference, &e.CreatedAt); err != nil {
		return Entry{}, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Entry{}, fmt.Errorf("parse amount: %w", err)
	}
	e.Type = EntryType(typ)
	e.Status = Status(st)
	e.Amount = d
	return e, nil
}

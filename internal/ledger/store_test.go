package ledger

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/bet-settlement-engine/internal/shared/db"
	"github.com/radieske/bet-settlement-engine/internal/shared/db/dbtest"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(dbtest.Open(t), db.SQLite)
}

func TestStoreAppendValidation(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		entry Entry
	}{
		{name: "zero-amount", entry: Entry{UserID: "u1", Type: TypeDeposit, Amount: decimal.Zero}},
		{name: "negative-amount", entry: Entry{UserID: "u1", Type: TypeDeposit, Amount: dec("-5")}},
		{name: "unknown-type", entry: Entry{UserID: "u1", Type: "cashback", Amount: dec("5")}},
		{name: "unknown-status", entry: Entry{UserID: "u1", Type: TypeDeposit, Amount: dec("5"), Status: "reversed"}},
		{name: "missing-user", entry: Entry{Type: TypeDeposit, Amount: dec("5")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Append(ctx, tt.entry)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	bal, err := s.BalanceOf(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, bal.IsZero())
}

func TestStoreBalanceDerivedFromCompletedEntries(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	entries := []Entry{
		{UserID: "u1", Type: TypeDeposit, Amount: dec("100.00")},
		{UserID: "u1", Type: TypeBonus, Amount: dec("10.10")},
		{UserID: "u1", Type: TypeWithdraw, Amount: dec("20.05")},
		{UserID: "u1", Type: TypeDeposit, Amount: dec("500"), Status: StatusPending},
		{UserID: "u1", Type: TypeDeposit, Amount: dec("700"), Status: StatusFailed},
		{UserID: "u2", Type: TypeDeposit, Amount: dec("42")},
	}
	for _, e := range entries {
		_, err := s.Append(ctx, e)
		require.NoError(t, err)
	}

	bal, err := s.BalanceOf(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "90.05", bal.StringFixed(2))

	hist, err := s.Entries(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Len(t, hist, 5)
	assert.Equal(t, "90.05", Sum(hist).StringFixed(2))
}

func TestStoreAppendDebit(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	_, err := s.Append(ctx, Entry{UserID: "u1", Type: TypeDeposit, Amount: dec("50")})
	require.NoError(t, err)

	t.Run("within-balance", func(t *testing.T) {
		_, err := s.AppendDebit(ctx, Entry{UserID: "u1", Type: TypeWithdraw, Amount: dec("30")})
		require.NoError(t, err)
	})

	t.Run("insufficient-funds", func(t *testing.T) {
		_, err := s.AppendDebit(ctx, Entry{UserID: "u1", Type: TypeBet, Amount: dec("20.01"), Reference: "bet-1"})
		assert.ErrorIs(t, err, ErrInsufficientFunds)
	})

	t.Run("credit-rejected", func(t *testing.T) {
		_, err := s.AppendDebit(ctx, Entry{UserID: "u1", Type: TypeDeposit, Amount: dec("1")})
		assert.ErrorIs(t, err, ErrValidation)
	})

	bal, err := s.BalanceOf(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "20.00", bal.StringFixed(2))
}

func TestStoreDuplicateBetReference(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	_, err := s.Append(ctx, Entry{UserID: "u1", Type: TypeWin, Amount: dec("250"), Reference: "bet-1"})
	require.NoError(t, err)

	_, err = s.Append(ctx, Entry{UserID: "u1", Type: TypeWin, Amount: dec("250"), Reference: "bet-1"})
	assert.ErrorIs(t, err, ErrDuplicate)

	// tipos fora do índice podem repetir a referência
	_, err = s.Append(ctx, Entry{UserID: "u1", Type: TypeDeposit, Amount: dec("1"), Reference: "psp-9"})
	require.NoError(t, err)
	_, err = s.Append(ctx, Entry{UserID: "u1", Type: TypeDeposit, Amount: dec("1"), Reference: "psp-9"})
	require.NoError(t, err)
}

func TestStoreCompletePending(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	pending, err := s.Append(ctx, Entry{UserID: "u1", Type: TypeDeposit, Amount: dec("80"), Status: StatusPending})
	require.NoError(t, err)

	bal, err := s.BalanceOf(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, bal.IsZero())

	done, err := s.CompletePending(ctx, pending.ID, StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)

	bal, err = s.BalanceOf(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "80.00", bal.StringFixed(2))

	t.Run("already-completed", func(t *testing.T) {
		_, err := s.CompletePending(ctx, pending.ID, StatusFailed)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("unknown-id", func(t *testing.T) {
		_, err := s.CompletePending(ctx, "nope", StatusCompleted)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("invalid-target", func(t *testing.T) {
		_, err := s.CompletePending(ctx, pending.ID, StatusPending)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestStorePostgresDebitTakesAdvisoryLock(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	s := NewStore(conn, db.Postgres)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock(hashtext($1))`)).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT type, amount FROM ledger_entries`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"type", "amount"}).
			AddRow("deposit", "100.00000000").
			AddRow("bet", "40.00000000"))
	mock.ExpectExec(`INSERT INTO ledger_entries`).
		WithArgs(sqlmock.AnyArg(), "u1", "withdraw", "60", "completed", "w-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	e, err := s.AppendDebit(context.Background(), Entry{UserID: "u1", Type: TypeWithdraw, Amount: dec("60"), Reference: "w-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorePostgresDebitRollsBackOnShortBalance(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	s := NewStore(conn, db.Postgres)

	mock.ExpectBegin()
	mock.ExpectExec(`pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT type, amount FROM ledger_entries`).
		WillReturnRows(sqlmock.NewRows([]string{"type", "amount"}).AddRow("deposit", "10"))
	mock.ExpectRollback()

	_, err = s.AppendDebit(context.Background(), Entry{UserID: "u1", Type: TypeBet, Amount: dec("10.01"), Reference: "b-1"})
	assert.True(t, errors.Is(err, ErrInsufficientFunds))
	assert.NoError(t, mock.ExpectationsWereMet())
}

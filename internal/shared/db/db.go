package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect identifica o banco por trás de um *sql.DB.
// As queries usam placeholders $n, aceitos pelos dois drivers.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// DBTX é satisfeito por *sql.DB e *sql.Tx; repositórios aceitam ambos
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func ConnectPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db, nil
}

// ConnectSQLite abre o banco embarcado usado em ambiente local e nos testes.
// Uma única conexão serializa as escritas; busy_timeout evita "database is locked".
func ConnectSQLite(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_time_format=sqlite", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}

// Connect abre o banco conforme o driver configurado
func Connect(driver, postgresDSN, sqlitePath string) (*sql.DB, Dialect, error) {
	switch Dialect(driver) {
	case Postgres:
		db, err := ConnectPostgres(postgresDSN)
		return db, Postgres, err
	case SQLite:
		db, err := ConnectSQLite(sqlitePath)
		return db, SQLite, err
	default:
		return nil, "", fmt.Errorf("unknown storage driver %q", driver)
	}
}

// WithTx executa fn dentro de uma transação; commit se fn retornar nil, rollback caso contrário
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Transactor expõe WithTx para quem só conhece DBTX
type Transactor struct{ DB *sql.DB }

func (t Transactor) WithTx(ctx context.Context, fn func(q DBTX) error) error {
	return WithTx(ctx, t.DB, func(tx *sql.Tx) error { return fn(tx) })
}

// Package storage is the SQLite persistence gateway. Each snapshot rewrites
// the stored mapping inside one transaction.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ledgerbot/internal/core"
	"ledgerbot/internal/log"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// Snapshots are already serialized by the ledger store.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	logger = logger.WithComponent(log.ComponentStorage)
	logger.Info("SQLite ledger ready", "path", dbPath, "schema_version", version)

	return &SQLiteRepository{db: db, logger: logger}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Load reads every user with categories and expenses in stored order.
func (r *SQLiteRepository) Load(ctx context.Context) (map[core.UserID]*core.UserLedger, error) {
	users := make(map[core.UserID]*core.UserLedger)

	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM users`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users[core.UserID(id)] = &core.UserLedger{}
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	rows, err = r.db.QueryContext(ctx,
		`SELECT user_id, name FROM categories ORDER BY user_id, position`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan category: %w", err)
		}
		l := ledgerFor(users, core.UserID(id))
		l.Categories = append(l.Categories, name)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}

	rows, err = r.db.QueryContext(ctx,
		`SELECT user_id, description, amount, category, date_unix_nanos
		   FROM expenses ORDER BY user_id, position`)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	for rows.Next() {
		var (
			id    int64
			e     core.Expense
			nanos int64
		)
		if err := rows.Scan(&id, &e.Description, &e.Amount, &e.Category, &nanos); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Date = time.Unix(0, nanos).UTC()
		l := ledgerFor(users, core.UserID(id))
		l.Expenses = append(l.Expenses, e)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}

	return users, nil
}

// Save replaces the stored mapping with users in a single transaction.
func (r *SQLiteRepository) Save(ctx context.Context, users map[core.UserID]*core.UserLedger) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"expenses", "categories", "users"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	insUser, err := tx.PrepareContext(ctx, `INSERT INTO users (user_id) VALUES (?)`)
	if err != nil {
		return fmt.Errorf("prepare users: %w", err)
	}
	defer insUser.Close()
	insCategory, err := tx.PrepareContext(ctx,
		`INSERT INTO categories (user_id, position, name) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare categories: %w", err)
	}
	defer insCategory.Close()
	insExpense, err := tx.PrepareContext(ctx,
		`INSERT INTO expenses (user_id, position, description, amount, category, date_unix_nanos)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare expenses: %w", err)
	}
	defer insExpense.Close()

	for id, l := range users {
		if _, err = insUser.ExecContext(ctx, int64(id)); err != nil {
			return fmt.Errorf("insert user %d: %w", id, err)
		}
		for i, name := range l.Categories {
			if _, err = insCategory.ExecContext(ctx, int64(id), i, name); err != nil {
				return fmt.Errorf("insert category %q for user %d: %w", name, id, err)
			}
		}
		for i, e := range l.Expenses {
			if _, err = insExpense.ExecContext(ctx, int64(id), i, e.Description, e.Amount, e.Category, e.Date.UnixNano()); err != nil {
				return fmt.Errorf("insert expense %d for user %d: %w", i, id, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	r.logger.DebugContext(ctx, "Snapshot committed", log.FieldOperation, log.OpSnapshot, "users", len(users))
	return nil
}

func ledgerFor(users map[core.UserID]*core.UserLedger, id core.UserID) *core.UserLedger {
	l, ok := users[id]
	if !ok {
		l = &core.UserLedger{}
		users[id] = l
	}
	return l
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	return rows.Close()
}

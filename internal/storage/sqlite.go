package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"ledgerbot/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the whole ledger in one SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	// Foreign keys carry the category rename/delete cascades.
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection serialises writers inside the process.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("SQLite store ready", "path", dbPath, "schema_version", version)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, fn func(Tx) error) error {
	return s.run(ctx, fn, true)
}

func (s *SQLiteStore) View(ctx context.Context, fn func(Tx) error) error {
	return s.run(ctx, fn, false)
}

func (s *SQLiteStore) run(ctx context.Context, fn func(Tx) error, commit bool) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil || !commit {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
			}
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("commit transaction: %w", cErr)
		}
	}()
	return fn(&sqliteTx{tx: tx})
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) InsertExpense(ctx context.Context, e core.Expense) (int64, error) {
	var desc sql.NullString
	if e.Description != nil {
		desc = sql.NullString{String: *e.Description, Valid: true}
	}
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO expenses (amount, category, description, created_at) VALUES (?, ?, ?, ?)`,
		e.Amount.String(), e.Category, desc, e.Time.Unix())
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}
	return res.LastInsertId()
}

func (t *sqliteTx) LastExpense(ctx context.Context) (core.Expense, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT id, amount, category, description, created_at FROM expenses ORDER BY id DESC LIMIT 1`)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, &core.NotFoundError{What: "expense"}
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("select last expense: %w", err)
	}
	return e, nil
}

func (t *sqliteTx) DeleteExpense(ctx context.Context, id int64) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &core.NotFoundError{What: fmt.Sprintf("expense %d", id)}
	}
	return nil
}

func (t *sqliteTx) ExpensesBetween(ctx context.Context, from, to time.Time) ([]core.Expense, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT id, amount, category, description, created_at FROM expenses
		 WHERE created_at >= ? AND created_at < ? ORDER BY id`,
		from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("select expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (t *sqliteTx) InsertIncome(ctx context.Context, i core.Income) (int64, error) {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO incomes (amount, description, created_at) VALUES (?, ?, ?)`,
		i.Amount.String(), i.Description, i.Time.Unix())
	if err != nil {
		return 0, fmt.Errorf("insert income: %w", err)
	}
	return res.LastInsertId()
}

func (t *sqliteTx) IncomesBetween(ctx context.Context, from, to time.Time) ([]core.Income, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT id, amount, description, created_at FROM incomes
		 WHERE created_at >= ? AND created_at < ? ORDER BY id`,
		from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("select incomes: %w", err)
	}
	defer rows.Close()

	var out []core.Income
	for rows.Next() {
		var (
			i       core.Income
			amount  string
			created int64
		)
		if err := rows.Scan(&i.ID, &amount, &i.Description, &created); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		if i.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("income %d amount %q: %w", i.ID, amount, err)
		}
		i.Time = time.Unix(created, 0)
		out = append(out, i)
	}
	return out, rows.Err()
}

func (t *sqliteTx) Balance(ctx context.Context) (decimal.Decimal, error) {
	var amount string
	if err := t.tx.QueryRowContext(ctx, `SELECT amount FROM balance WHERE id = 1`).Scan(&amount); err != nil {
		return decimal.Zero, fmt.Errorf("select balance: %w", err)
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance %q: %w", amount, err)
	}
	return d, nil
}

func (t *sqliteTx) SetBalance(ctx context.Context, amount decimal.Decimal) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO balance (id, amount) VALUES (1, ?)
		 ON CONFLICT (id) DO UPDATE SET amount = excluded.amount`,
		amount.String())
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	return nil
}

func (t *sqliteTx) Categories(ctx context.Context) ([]core.Category, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT name, aliases FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var (
			c       core.Category
			aliases string
		)
		if err := rows.Scan(&c.Name, &aliases); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		if err := json.Unmarshal([]byte(aliases), &c.Aliases); err != nil {
			return nil, fmt.Errorf("category %q aliases: %w", c.Name, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (t *sqliteTx) InsertCategory(ctx context.Context, c core.Category) error {
	aliases := c.Aliases
	if aliases == nil {
		aliases = []string{}
	}
	encoded, err := json.Marshal(aliases)
	if err != nil {
		return fmt.Errorf("encode aliases: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx,
		`INSERT INTO categories (name, aliases) VALUES (?, ?)`, c.Name, string(encoded)); err != nil {
		return fmt.Errorf("insert category %q: %w", c.Name, err)
	}
	return nil
}

func (t *sqliteTx) DeleteCategory(ctx context.Context, name string) (int64, error) {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE expenses SET category = ? WHERE category = ?`, core.OtherCategory, name)
	if err != nil {
		return 0, fmt.Errorf("reassign expenses of %q: %w", name, err)
	}
	moved, _ := res.RowsAffected()

	res, err = t.tx.ExecContext(ctx, `DELETE FROM categories WHERE name = ?`, name)
	if err != nil {
		return 0, fmt.Errorf("delete category %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, &core.NotFoundError{What: fmt.Sprintf("category %q", name)}
	}
	return moved, nil
}

func (t *sqliteTx) RenameCategory(ctx context.Context, oldName, newName string) error {
	// ON UPDATE CASCADE moves the expenses along with the name.
	res, err := t.tx.ExecContext(ctx, `UPDATE categories SET name = ? WHERE name = ?`, newName, oldName)
	if err != nil {
		return fmt.Errorf("rename category %q: %w", oldName, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &core.NotFoundError{What: fmt.Sprintf("category %q", oldName)}
	}
	return nil
}

func (t *sqliteTx) InsertBalanceSample(ctx context.Context, s core.BalanceSample) error {
	if _, err := t.tx.ExecContext(ctx,
		`INSERT INTO balance_history (sampled_at, amount) VALUES (?, ?)`,
		s.Time.Unix(), s.Amount.String()); err != nil {
		return fmt.Errorf("insert balance sample: %w", err)
	}
	return nil
}

func (t *sqliteTx) FirstSampleBetween(ctx context.Context, from, to time.Time) (core.BalanceSample, bool, error) {
	var (
		sampledAt int64
		amount    string
	)
	err := t.tx.QueryRowContext(ctx,
		`SELECT sampled_at, amount FROM balance_history
		 WHERE sampled_at > ? AND sampled_at < ? ORDER BY sampled_at, id LIMIT 1`,
		from.Unix(), to.Unix()).Scan(&sampledAt, &amount)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BalanceSample{}, false, nil
	}
	if err != nil {
		return core.BalanceSample{}, false, fmt.Errorf("select balance sample: %w", err)
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return core.BalanceSample{}, false, fmt.Errorf("sample amount %q: %w", amount, err)
	}
	return core.BalanceSample{Time: time.Unix(sampledAt, 0), Amount: d}, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(r rowScanner) (core.Expense, error) {
	var (
		e       core.Expense
		amount  string
		desc    sql.NullString
		created int64
	)
	if err := r.Scan(&e.ID, &amount, &e.Category, &desc, &created); err != nil {
		return core.Expense{}, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d amount %q: %w", e.ID, amount, err)
	}
	e.Amount = d
	if desc.Valid {
		e.Description = core.NewDescription(desc.String)
	}
	e.Time = time.Unix(created, 0)
	return e, nil
}

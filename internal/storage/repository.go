package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dayplan/internal/core"
	applog "dayplan/internal/log"

	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// Options selects and sizes the backing database.
type Options struct {
	Driver       Driver
	DSN          string // file path for sqlite, go-sql-driver DSN for mysql
	MaxOpenConns int
}

// Repository is the query layer. It owns the single shared *sql.DB.
type Repository struct {
	db      *sql.DB
	queries *Queries
	driver  Driver
}

// Open connects, migrates and returns a ready repository.
func Open(ctx context.Context, opts Options) (*Repository, error) {
	if !opts.Driver.IsValid() {
		return nil, unsupportedDriver(opts.Driver)
	}

	if opts.Driver == DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(opts.DSN), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open(opts.Driver.sqlName(), opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", opts.Driver, err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(opts.Driver, opts.DSN); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{
		db:      db,
		queries: New(db),
		driver:  opts.Driver,
	}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Driver() Driver {
	return r.driver
}

func (r *Repository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.queries.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]core.User, len(rows))
	for i, u := range rows {
		users[i] = core.User{ID: u.ID, Username: u.Username, CreatedAt: u.CreatedAt.Time}
	}
	return users, nil
}

func (r *Repository) CreateUser(ctx context.Context, username string) (core.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return core.User{}, core.ErrEmptyUsername
	}

	id, err := r.queries.CreateUser(ctx, username)
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, core.ErrDuplicateUsername
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	applog.FromContext(ctx).WithComponent(applog.ComponentStorage).
		InfoContext(ctx, "User created", applog.FieldUserID, id, "username", username)
	return core.User{ID: id, Username: username}, nil
}

// DeleteUser removes a user row. Their todos and transactions stay behind.
func (r *Repository) DeleteUser(ctx context.Context, id int64) error {
	if (core.User{ID: id}).IsProtected() {
		return core.ErrProtectedUser
	}
	if err := r.queries.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	return nil
}

// DayTodos lists one user's todos for a day, earliest start first.
func (r *Repository) DayTodos(ctx context.Context, date string, userID int64) ([]core.Todo, error) {
	if strings.TrimSpace(date) == "" {
		return nil, core.MissingParameter("date")
	}
	rows, err := r.queries.ListTodosByDay(ctx, date, core.NormalizeUserID(userID))
	if err != nil {
		return nil, fmt.Errorf("list todos for %s: %w", date, err)
	}
	return todosFromRows(rows), nil
}

func (r *Repository) DayTransactions(ctx context.Context, date string, userID int64) ([]core.Transaction, error) {
	if strings.TrimSpace(date) == "" {
		return nil, core.MissingParameter("date")
	}
	rows, err := r.queries.ListTransactionsByDay(ctx, date, core.NormalizeUserID(userID))
	if err != nil {
		return nil, fmt.Errorf("list transactions for %s: %w", date, err)
	}
	return transactionsFromRows(rows), nil
}

func (r *Repository) CreateTodo(ctx context.Context, t core.NewTodo) (int64, error) {
	id, err := r.queries.CreateTodo(ctx, CreateTodoParams{
		UserID:    core.NormalizeUserID(t.UserID),
		Text:      sql.NullString{String: t.Text, Valid: !t.TextAbsent},
		StartTime: t.Start,
		EndTime:   t.End,
		CreatedAt: t.Date,
	})
	if err != nil {
		return 0, fmt.Errorf("create todo: %w", err)
	}
	return id, nil
}

// ToggleTodo flips completion. Unknown ids are not an error.
func (r *Repository) ToggleTodo(ctx context.Context, id int64) error {
	if err := r.queries.ToggleTodo(ctx, id); err != nil {
		return fmt.Errorf("toggle todo %d: %w", id, err)
	}
	return nil
}

func (r *Repository) DeleteTodo(ctx context.Context, id int64) error {
	if err := r.queries.DeleteTodo(ctx, id); err != nil {
		return fmt.Errorf("delete todo %d: %w", id, err)
	}
	return nil
}

// CreateTransaction inserts a transaction. A missing amount is passed through
// as NULL and the NOT NULL column rejects it.
func (r *Repository) CreateTransaction(ctx context.Context, t core.NewTransaction) (int64, error) {
	id, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		UserID:      core.NormalizeUserID(t.UserID),
		Type:        t.Type.String(),
		Category:    t.Category,
		Description: t.Description,
		Amount:      roundedAmount(t.Amount),
		CreatedAt:   t.Date,
	})
	if err != nil {
		return 0, fmt.Errorf("create transaction: %w", err)
	}
	return id, nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, id int64) error {
	if err := r.queries.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	return nil
}

// YearTransactions returns every transaction whose day key starts with year.
func (r *Repository) YearTransactions(ctx context.Context, year int, userID int64) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactionsByPrefix(ctx, core.NormalizeUserID(userID), core.YearPrefix(year))
	if err != nil {
		return nil, fmt.Errorf("list transactions for %d: %w", year, err)
	}
	return transactionsFromRows(rows), nil
}

// CategoryStats totals transactions per (type, category) for a year, or for
// one month of it when month is non-zero.
func (r *Repository) CategoryStats(ctx context.Context, year, month int, userID int64) ([]core.CategoryTotal, error) {
	prefix := core.StatsPrefix(year, month)
	rows, err := r.queries.SumTransactionsByCategory(ctx, core.NormalizeUserID(userID), prefix)
	if err != nil {
		return nil, fmt.Errorf("category stats for %s: %w", prefix, err)
	}
	totals := make([]core.CategoryTotal, len(rows))
	for i, row := range rows {
		totals[i] = core.CategoryTotal{
			Type:     core.TransactionType(row.Type),
			Category: row.Category.String,
			Total:    row.Total.Round(core.AmountScale),
			Count:    row.Count,
		}
	}
	return totals, nil
}

// RangeTodos lists todos with start <= created_at <= end.
func (r *Repository) RangeTodos(ctx context.Context, start, end string, userID int64) ([]core.Todo, error) {
	rows, err := r.queries.ListTodosInRange(ctx, core.NormalizeUserID(userID), start, end)
	if err != nil {
		return nil, fmt.Errorf("list todos %s..%s: %w", start, end, err)
	}
	return todosFromRows(rows), nil
}

func (r *Repository) RangeTransactions(ctx context.Context, start, end string, userID int64) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactionsInRange(ctx, core.NormalizeUserID(userID), start, end)
	if err != nil {
		return nil, fmt.Errorf("list transactions %s..%s: %w", start, end, err)
	}
	return transactionsFromRows(rows), nil
}

func todosFromRows(rows []Todo) []core.Todo {
	todos := make([]core.Todo, len(rows))
	for i, t := range rows {
		todos[i] = core.Todo{
			ID:        t.ID,
			UserID:    t.UserID,
			Text:      t.Text,
			StartTime: t.StartTime.String,
			EndTime:   t.EndTime.String,
			Completed: t.Completed,
			CreatedAt: t.CreatedAt.String,
		}
	}
	return todos
}

func transactionsFromRows(rows []Transaction) []core.Transaction {
	txs := make([]core.Transaction, len(rows))
	for i, t := range rows {
		txs[i] = core.Transaction{
			ID:          t.ID,
			UserID:      t.UserID,
			Type:        core.TransactionType(t.Type),
			Category:    t.Category.String,
			Description: t.Description.String,
			Amount:      t.Amount.Round(core.AmountScale),
			CreatedAt:   t.CreatedAt.String,
		}
	}
	return txs
}

func roundedAmount(a decimal.NullDecimal) decimal.NullDecimal {
	if !a.Valid {
		return a
	}
	return decimal.NewNullDecimal(a.Decimal.Round(core.AmountScale))
}

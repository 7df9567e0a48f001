package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DBTX is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries holds the parameterized statements. Placeholders are '?' which both
// SQLite and MySQL accept.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type User struct {
	ID        int64
	Username  string
	CreatedAt Timestamp
}

type Todo struct {
	ID        int64
	UserID    int64
	Text      string
	StartTime sql.NullString
	EndTime   sql.NullString
	Completed bool
	CreatedAt sql.NullString
}

type Transaction struct {
	ID          int64
	UserID      int64
	Type        string
	Category    sql.NullString
	Description sql.NullString
	Amount      decimal.Decimal
	CreatedAt   sql.NullString
}

type CategorySum struct {
	Type     string
	Category sql.NullString
	Total    decimal.Decimal
	Count    int64
}

type CreateTodoParams struct {
	UserID    int64
	Text      sql.NullString
	StartTime string
	EndTime   string
	CreatedAt string
}

type CreateTransactionParams struct {
	UserID      int64
	Type        string
	Category    string
	Description string
	Amount      decimal.NullDecimal
	CreatedAt   string
}

const listUsers = `SELECT id, username, created_at FROM users ORDER BY id`

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []User{}
	for rows.Next() {
		var i User
		if err := rows.Scan(&i.ID, &i.Username, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createUser = `INSERT INTO users (username) VALUES (?)`

func (q *Queries) CreateUser(ctx context.Context, username string) (int64, error) {
	res, err := q.db.ExecContext(ctx, createUser, username)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const deleteUser = `DELETE FROM users WHERE id = ?`

func (q *Queries) DeleteUser(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteUser, id)
	return err
}

const listTodosByDay = `SELECT id, user_id, text, start_time, end_time, completed, created_at
FROM todos
WHERE created_at = ? AND user_id = ?
ORDER BY start_time`

func (q *Queries) ListTodosByDay(ctx context.Context, day string, userID int64) ([]Todo, error) {
	return q.queryTodos(ctx, listTodosByDay, day, userID)
}

const listTodosInRange = `SELECT id, user_id, text, start_time, end_time, completed, created_at
FROM todos
WHERE user_id = ? AND created_at BETWEEN ? AND ?
ORDER BY created_at, start_time, id`

func (q *Queries) ListTodosInRange(ctx context.Context, userID int64, start, end string) ([]Todo, error) {
	return q.queryTodos(ctx, listTodosInRange, userID, start, end)
}

const createTodo = `INSERT INTO todos (user_id, text, start_time, end_time, created_at) VALUES (?, ?, ?, ?, ?)`

func (q *Queries) CreateTodo(ctx context.Context, arg CreateTodoParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createTodo,
		arg.UserID,
		arg.Text,
		arg.StartTime,
		arg.EndTime,
		arg.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// toggleTodo negates in a single statement so concurrent toggles cannot lose
// an update.
const toggleTodo = `UPDATE todos SET completed = NOT completed WHERE id = ?`

func (q *Queries) ToggleTodo(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, toggleTodo, id)
	return err
}

const deleteTodo = `DELETE FROM todos WHERE id = ?`

func (q *Queries) DeleteTodo(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteTodo, id)
	return err
}

const listTransactionsByDay = `SELECT id, user_id, type, category, description, amount, created_at
FROM transactions
WHERE created_at = ? AND user_id = ?
ORDER BY id`

func (q *Queries) ListTransactionsByDay(ctx context.Context, day string, userID int64) ([]Transaction, error) {
	return q.queryTransactions(ctx, listTransactionsByDay, day, userID)
}

const listTransactionsByPrefix = `SELECT id, user_id, type, category, description, amount, created_at
FROM transactions
WHERE user_id = ? AND created_at LIKE ?
ORDER BY created_at, id`

func (q *Queries) ListTransactionsByPrefix(ctx context.Context, userID int64, prefix string) ([]Transaction, error) {
	return q.queryTransactions(ctx, listTransactionsByPrefix, userID, prefix+"%")
}

const listTransactionsInRange = `SELECT id, user_id, type, category, description, amount, created_at
FROM transactions
WHERE user_id = ? AND created_at BETWEEN ? AND ?
ORDER BY created_at, id`

func (q *Queries) ListTransactionsInRange(ctx context.Context, userID int64, start, end string) ([]Transaction, error) {
	return q.queryTransactions(ctx, listTransactionsInRange, userID, start, end)
}

const createTransaction = `INSERT INTO transactions (user_id, type, category, description, amount, created_at) VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createTransaction,
		arg.UserID,
		arg.Type,
		arg.Category,
		arg.Description,
		arg.Amount,
		arg.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteTransaction, id)
	return err
}

const sumTransactionsByCategory = `SELECT type, category, SUM(amount) AS total, COUNT(*) AS count
FROM transactions
WHERE user_id = ? AND created_at LIKE ?
GROUP BY type, category
ORDER BY type, total DESC`

func (q *Queries) SumTransactionsByCategory(ctx context.Context, userID int64, prefix string) ([]CategorySum, error) {
	rows, err := q.db.QueryContext(ctx, sumTransactionsByCategory, userID, prefix+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []CategorySum{}
	for rows.Next() {
		var i CategorySum
		if err := rows.Scan(&i.Type, &i.Category, &i.Total, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func (q *Queries) queryTodos(ctx context.Context, query string, args ...interface{}) ([]Todo, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Todo{}
	for rows.Next() {
		var i Todo
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.Text,
			&i.StartTime,
			&i.EndTime,
			&i.Completed,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func (q *Queries) queryTransactions(ctx context.Context, query string, args ...interface{}) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Transaction{}
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.Type,
			&i.Category,
			&i.Description,
			&i.Amount,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

// Timestamp scans DATETIME/TIMESTAMP columns whether the driver hands back a
// time.Time or the textual form.
type Timestamp struct {
	Time time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (t *Timestamp) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (t *Timestamp) parse(s string) error {
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

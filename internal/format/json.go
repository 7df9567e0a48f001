// Package format maps domain values to the shapes the client consumes.
//
// JSON views rename fields to what the front end expects (desc, start, end)
// and turn decimal amounts into plain numbers. Export rows feed both the CSV
// download and the spreadsheet export.
package format

import (
	"time"

	"dayplan/internal/core"
)

type Todo struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Completed bool   `json:"completed"`
}

type Transaction struct {
	ID       int64   `json:"id"`
	Type     string  `json:"type"`
	Category string  `json:"category"`
	Desc     string  `json:"desc"`
	Amount   float64 `json:"amount"`
}

type DayData struct {
	Todos        []Todo        `json:"todos"`
	Transactions []Transaction `json:"transactions"`
}

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

type CreatedUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Created is the body returned after inserting a todo or transaction.
type Created struct {
	ID int64 `json:"id"`
}

// StatsRow is a transaction with its storage column names, as served by the
// yearly stats endpoint.
type StatsRow struct {
	ID          int64   `json:"id"`
	UserID      int64   `json:"user_id"`
	Type        string  `json:"type"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	CreatedAt   string  `json:"created_at"`
}

type CategoryStat struct {
	Type     string  `json:"type"`
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Count    int64   `json:"count"`
}

type SheetExport struct {
	Range string `json:"range"`
	Rows  int    `json:"rows"`
}

type ErrorBody struct {
	Error string `json:"error"`
}

func FromTodo(t core.Todo) Todo {
	return Todo{
		ID:        t.ID,
		Text:      t.Text,
		Start:     t.StartTime,
		End:       t.EndTime,
		Completed: t.Completed,
	}
}

func FromTransaction(t core.Transaction) Transaction {
	return Transaction{
		ID:       t.ID,
		Type:     t.Type.String(),
		Category: t.Category,
		Desc:     t.Description,
		Amount:   core.AmountFloat(t.Amount),
	}
}

// FromDayData never yields null arrays.
func FromDayData(d core.DayData) DayData {
	out := DayData{
		Todos:        make([]Todo, 0, len(d.Todos)),
		Transactions: make([]Transaction, 0, len(d.Transactions)),
	}
	for _, t := range d.Todos {
		out.Todos = append(out.Todos, FromTodo(t))
	}
	for _, t := range d.Transactions {
		out.Transactions = append(out.Transactions, FromTransaction(t))
	}
	return out
}

func FromUsers(users []core.User) []User {
	out := make([]User, 0, len(users))
	for _, u := range users {
		out = append(out, User{ID: u.ID, Username: u.Username, CreatedAt: u.CreatedAt})
	}
	return out
}

func FromCreatedUser(u core.User) CreatedUser {
	return CreatedUser{ID: u.ID, Username: u.Username}
}

func FromStatsRows(txs []core.Transaction) []StatsRow {
	out := make([]StatsRow, 0, len(txs))
	for _, t := range txs {
		out = append(out, StatsRow{
			ID:          t.ID,
			UserID:      t.UserID,
			Type:        t.Type.String(),
			Category:    t.Category,
			Description: t.Description,
			Amount:      core.AmountFloat(t.Amount),
			CreatedAt:   t.CreatedAt,
		})
	}
	return out
}

func FromCategoryTotals(totals []core.CategoryTotal) []CategoryStat {
	out := make([]CategoryStat, 0, len(totals))
	for _, c := range totals {
		out = append(out, CategoryStat{
			Type:     c.Type.String(),
			Category: c.Category,
			Total:    core.AmountFloat(c.Total),
			Count:    c.Count,
		})
	}
	return out
}

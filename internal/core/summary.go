package core

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// CategoryTotal is the aggregate of one (type, category) group.
type CategoryTotal struct {
	Type     TransactionType
	Category string
	Total    decimal.Decimal
	Count    int64
}

// DayData is everything one user planned or booked on a single day.
type DayData struct {
	Date         string
	Todos        []Todo
	Transactions []Transaction
}

// ExportData is the content of an inclusive date range.
type ExportData struct {
	StartDate    string
	EndDate      string
	Todos        []Todo
	Transactions []Transaction
}

// YearPrefix is the created_at prefix selecting a whole year. The year is
// written as given, without padding, so "24" only matches dates that start
// with "24".
func YearPrefix(year int) string {
	return strconv.Itoa(year)
}

// MonthPrefix is the created_at prefix selecting one month, e.g. "2024-03".
func MonthPrefix(year, month int) string {
	return fmt.Sprintf("%s-%02d", YearPrefix(year), month)
}

// StatsPrefix selects a year when month is 0, otherwise that month.
func StatsPrefix(year, month int) string {
	if month == 0 {
		return YearPrefix(year)
	}
	return MonthPrefix(year, month)
}

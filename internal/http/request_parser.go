// Package http provides the JSON and CSV API over the planner.
//
// This file implements utilities for reading request input: JSON bodies whose
// numeric fields may arrive as numbers or strings, query parameters with
// defaults, and path ids.
package http

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"dayplan/internal/core"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// flexValue accepts a JSON string, number or null and keeps its text form.
type flexValue string

func (v *flexValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*v = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = flexValue(s)
	default:
		*v = flexValue(b)
	}
	return nil
}

func (v flexValue) String() string {
	return strings.TrimSpace(string(v))
}

// UserID resolves the value to a user id; blank selects the default user.
func (v flexValue) UserID() (int64, error) {
	return core.ParseUserID(v.String())
}

// Amount resolves the value to an optional amount. A blank value stays
// absent so that the store decides what to do with it.
func (v flexValue) Amount() (decimal.NullDecimal, error) {
	if v.String() == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := core.ParseAmount(v.String())
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

type createUserRequest struct {
	Username string `json:"username"`
}

type createTodoRequest struct {
	Text   *string   `json:"text"`
	Start  string    `json:"start"`
	End    string    `json:"end"`
	Date   string    `json:"date"`
	UserID flexValue `json:"userId"`
}

func (req createTodoRequest) toNewTodo() (core.NewTodo, error) {
	userID, err := req.UserID.UserID()
	if err != nil {
		return core.NewTodo{}, err
	}
	t := core.NewTodo{
		Start:  req.Start,
		End:    req.End,
		Date:   req.Date,
		UserID: userID,
	}
	if req.Text == nil {
		t.TextAbsent = true
	} else {
		t.Text = *req.Text
	}
	return t, nil
}

type createTransactionRequest struct {
	Type     string    `json:"type"`
	Category string    `json:"category"`
	Desc     string    `json:"desc"`
	Amount   flexValue `json:"amount"`
	Date     string    `json:"date"`
	UserID   flexValue `json:"userId"`
}

func (req createTransactionRequest) toNewTransaction() (core.NewTransaction, error) {
	userID, err := req.UserID.UserID()
	if err != nil {
		return core.NewTransaction{}, err
	}
	amount, err := req.Amount.Amount()
	if err != nil {
		return core.NewTransaction{}, err
	}
	return core.NewTransaction{
		Type:        core.TransactionType(req.Type),
		Category:    req.Category,
		Description: req.Desc,
		Amount:      amount,
		Date:        req.Date,
		UserID:      userID,
	}, nil
}

// decodeJSON reads a bounded JSON body into dst. An empty body leaves dst
// at its zero value.
func decodeJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", core.ErrInvalidParameter, err)
	}
	return nil
}

// queryUserID reads ?userId, defaulting to the default user.
func queryUserID(r *http.Request) (int64, error) {
	return core.ParseUserID(r.URL.Query().Get("userId"))
}

// queryYear reads ?year, defaulting to defaultYear when absent.
func queryYear(r *http.Request, defaultYear int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("year"))
	if raw == "" {
		return defaultYear, nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 0 {
		return 0, core.InvalidParameter("year", raw)
	}
	return year, nil
}

// queryMonth reads the optional ?month. Absent means the whole year (0).
func queryMonth(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("month"))
	if raw == "" {
		return 0, nil
	}
	month, err := strconv.Atoi(raw)
	if err != nil || month < 1 || month > 12 {
		return 0, core.InvalidParameter("month", raw)
	}
	return month, nil
}

// pathID parses the {id} wildcard of the matched route.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, core.InvalidParameter("id", raw)
	}
	return id, nil
}

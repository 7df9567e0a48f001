package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultUserID is the permanently present user that owns rows created
// without an explicit user.
const DefaultUserID int64 = 1

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

type (
	TransactionType string

	User struct {
		ID        int64
		Username  string
		CreatedAt time.Time
	}

	// Todo is a planned item for a single day. CreatedAt is the YYYY-MM-DD
	// day key, kept as a string so SQL comparisons stay lexicographic.
	Todo struct {
		ID        int64
		UserID    int64
		Text      string
		StartTime string // HH:MM
		EndTime   string // HH:MM
		Completed bool
		CreatedAt string
	}

	Transaction struct {
		ID          int64
		UserID      int64
		Type        TransactionType
		Category    string
		Description string
		Amount      decimal.Decimal
		CreatedAt   string
	}

	// NewTodo mirrors NewTransaction: when TextAbsent is set the text is
	// sent to the store as NULL and rejected there.
	NewTodo struct {
		Text       string
		TextAbsent bool
		Start      string
		End        string
		Date       string
		UserID     int64
	}

	// NewTransaction carries an optional amount: an absent one is sent to the
	// store as NULL and rejected there.
	NewTransaction struct {
		Type        TransactionType
		Category    string
		Description string
		Amount      decimal.NullDecimal
		Date        string
		UserID      int64
	}
)

var (
	ErrMissingParameter  = errors.New("missing parameter")
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrEmptyUsername     = errors.New("username is required")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrProtectedUser     = errors.New("the default user cannot be deleted")
	ErrExportUnavailable = errors.New("spreadsheet export is not configured")
)

// MissingParameter reports a required request field that was absent.
func MissingParameter(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingParameter, name)
}

// InvalidParameter reports a request field that could not be interpreted.
func InvalidParameter(name, value string) error {
	return fmt.Errorf("%w: %s=%q", ErrInvalidParameter, name, value)
}

// NormalizeUserID maps unset or non-positive ids to the default user.
func NormalizeUserID(id int64) int64 {
	if id < 1 {
		return DefaultUserID
	}
	return id
}

// ParseUserID reads a user id from request input. Blank input selects the
// default user.
func ParseUserID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultUserID, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, InvalidParameter("userId", raw)
	}
	return NormalizeUserID(id), nil
}

// IsProtected reports whether the user may never be removed.
func (u User) IsProtected() bool {
	return u.ID == DefaultUserID
}

func (t TransactionType) String() string {
	return string(t)
}

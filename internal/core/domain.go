package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Income  TxType = "income"
	Expense TxType = "expense"
)

// DefaultCategory is applied to transactions saved without a category.
const DefaultCategory = "General"

type (
	TxType string

	User struct {
		ID           string
		Username     string
		PasswordHash string
	}

	Transaction struct {
		ID          string
		UserID      string
		Date        string // YYYY-MM-DD
		Type        TxType
		Amount      decimal.Decimal
		Category    string
		Description string
	}

	// TransactionPatch names the fields an update touches. Nil fields are left alone.
	TransactionPatch struct {
		Date        *string
		Type        *TxType
		Amount      *decimal.Decimal
		Category    *string
		Description *string
	}

	Budget struct {
		ID       string
		UserID   string
		Month    string  // YYYY-MM
		Category *string // nil means the budget covers the whole month
		Limit    decimal.Decimal
	}
)

// Error taxonomy surfaced by the data layer.
var (
	ErrNotFound            = errors.New("not found")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrInvalidArgument     = errors.New("invalid argument")
)

var (
	ErrInvalidType     = fmt.Errorf("%w: type must be income or expense", ErrInvalidArgument)
	ErrInvalidAmount   = fmt.Errorf("%w: amount must be a non-negative number", ErrInvalidArgument)
	ErrInvalidDate     = fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidArgument)
	ErrInvalidMonth    = fmt.Errorf("%w: month must be YYYY-MM", ErrInvalidArgument)
	ErrEmptyUsername   = fmt.Errorf("%w: empty username", ErrInvalidArgument)
	ErrEmptyPassword   = fmt.Errorf("%w: empty password hash", ErrInvalidArgument)
	ErrEmptyOwner      = fmt.Errorf("%w: empty owner id", ErrInvalidArgument)
	ErrEmptyTxPatch    = fmt.Errorf("%w: no fields to update", ErrInvalidArgument)
)

func (t TxType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidType
	}
}

// ParseTxType accepts the lowercase wire names only.
func ParseTxType(s string) (TxType, error) {
	t := TxType(strings.TrimSpace(s))
	if err := t.Validate(); err != nil {
		return "", err
	}
	return t, nil
}

// NormalizeCategory returns DefaultCategory for blank input and c unchanged otherwise.
func NormalizeCategory(c string) string {
	if strings.TrimSpace(c) == "" {
		return DefaultCategory
	}
	return c
}

// NormalizeBudgetCategory maps a blank category to nil, the whole-month budget.
// Other values are kept as given so they match transaction categories exactly.
func NormalizeBudgetCategory(c *string) *string {
	if c == nil || strings.TrimSpace(*c) == "" {
		return nil
	}
	v := *c
	return &v
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return ErrEmptyUsername
	}
	if u.PasswordHash == "" {
		return ErrEmptyPassword
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return ErrEmptyOwner
	}
	if err := ValidateDate(t.Date); err != nil {
		return err
	}
	if err := t.Type.Validate(); err != nil {
		return err
	}
	if t.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

// Normalize applies the defaulting policy for absent fields. Present values
// are stored as given.
func (t Transaction) Normalize() Transaction {
	t.Category = NormalizeCategory(t.Category)
	return t
}

func (p TransactionPatch) IsEmpty() bool {
	return p.Date == nil && p.Type == nil && p.Amount == nil && p.Category == nil && p.Description == nil
}

func (p TransactionPatch) Validate() error {
	if p.IsEmpty() {
		return ErrEmptyTxPatch
	}
	if p.Date != nil {
		if err := ValidateDate(*p.Date); err != nil {
			return err
		}
	}
	if p.Type != nil {
		if err := p.Type.Validate(); err != nil {
			return err
		}
	}
	if p.Amount != nil && p.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.UserID) == "" {
		return ErrEmptyOwner
	}
	if err := ValidateMonth(b.Month); err != nil {
		return err
	}
	if b.Limit.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

// CategoryLabel renders the budget category for display.
func (b Budget) CategoryLabel() string {
	if b.Category == nil {
		return "(whole month)"
	}
	return *b.Category
}

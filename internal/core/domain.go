package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// DefaultCurrency is the display currency used when none is configured.
const DefaultCurrency = "грн"

type (
	TransactionType string

	Money struct {
		Cents int64
	}

	// Transaction is a single dated income or expense record. Amount is
	// always positive; direction is carried by Type alone.
	Transaction struct {
		ID          string          `json:"id"`
		Type        TransactionType `json:"type"`
		Amount      Money           `json:"amount"`
		Description string          `json:"description"`
		Date        time.Time       `json:"date"`
		Category    string          `json:"category,omitempty"`
		IsRegular   bool            `json:"isRegular,omitempty"`
	}

	// RegularPayment is a template for a payment expected to repeat
	// monthly. DayOfMonth is 0 when unset, otherwise 1-31; a day past the
	// end of a shorter month means the payment is skipped that month.
	RegularPayment struct {
		ID          string          `json:"id"`
		Type        TransactionType `json:"type"`
		Amount      Money           `json:"amount"`
		Description string          `json:"description"`
		DayOfMonth  int             `json:"dayOfMonth,omitempty"`
		CreatedAt   time.Time       `json:"createdAt"`
	}

	Settings struct {
		Currency        string           `json:"currency"`
		RegularIncomes  []RegularPayment `json:"regularIncomes"`
		RegularExpenses []RegularPayment `json:"regularExpenses"`
		Categories      []string         `json:"categories"`
		FamilyUserID    string           `json:"familyUserId,omitempty"`
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidType       = errors.New("invalid transaction type")
	ErrInvalidDayOfMonth = errors.New("day of month out of range")
	ErrZeroDate          = errors.New("date cannot be zero")
)

// DefaultSettings returns the settings applied before any sync or user
// configuration.
func DefaultSettings() Settings {
	return Settings{
		Currency:        DefaultCurrency,
		RegularIncomes:  []RegularPayment{},
		RegularExpenses: []RegularPayment{},
		Categories:      []string{},
	}
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.Date.IsZero() {
		return ErrZeroDate
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

func (p RegularPayment) Validate() error {
	if !p.Type.Valid() {
		return ErrInvalidType
	}
	if err := p.Amount.Validate(); err != nil {
		return err
	}
	if p.DayOfMonth != 0 && (p.DayOfMonth < 1 || p.DayOfMonth > 31) {
		return ErrInvalidDayOfMonth
	}
	if len(strings.TrimSpace(p.Description)) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"vytraty/internal/core"
)

// Result is the canonical form of a full user-data sync payload.
type Result struct {
	Transactions    []core.Transaction
	Categories      []string
	RegularIncomes  []core.RegularPayment
	RegularExpenses []core.RegularPayment
	FamilyUserID    string
}

// Sync normalizes a transaction-sync response. The payload may carry the
// transaction list plus optional categories, regular payments and a family
// scope id. Garbage normalizes to a zero Result.
func Sync(raw []byte, now time.Time) Result {
	v := decode(raw)
	var res Result

	res.Transactions = transactionsFromValue(v, now)

	obj, ok := v.(map[string]any)
	if !ok {
		return res
	}
	r := record(obj)

	if arr, ok := obj["categories"].([]any); ok {
		res.Categories = categoryList(arr)
	}
	if v, found := r.first([]string{"regularIncomes", "regular_incomes", "регулярні_доходи"}); found {
		res.RegularIncomes = regularsFromValue(v, core.Income, now)
	}
	if v, found := r.first([]string{"regularExpenses", "regular_expenses", "регулярні_витрати"}); found {
		res.RegularExpenses = regularsFromValue(v, core.Expense, now)
	}
	res.FamilyUserID = r.str(familyKeys)

	return res
}

// Transactions normalizes any JSON value into canonical transactions.
// Items without a resolvable non-zero amount are dropped.
func Transactions(raw []byte, now time.Time) []core.Transaction {
	return transactionsFromValue(decode(raw), now)
}

// RegularPayments normalizes any JSON value into canonical recurring
// payments. fallback is the type assigned when neither an explicit type nor
// a sign nor a keyword resolves one.
func RegularPayments(raw []byte, fallback core.TransactionType, now time.Time) []core.RegularPayment {
	return regularsFromValue(decode(raw), fallback, now)
}

// SplitRegularPayments normalizes a mixed recurring-payment payload and
// partitions the result by type. Used for the dedicated regular-payments
// webhook, which returns incomes and expenses in one list.
func SplitRegularPayments(raw []byte, now time.Time) (incomes, expenses []core.RegularPayment) {
	for _, p := range regularsFromValue(decode(raw), core.Income, now) {
		if p.Type == core.Expense {
			expenses = append(expenses, p)
		} else {
			incomes = append(incomes, p)
		}
	}
	return incomes, expenses
}

// Categories normalizes a category-list payload: either plain strings or
// objects carrying a category field. Blank entries are dropped.
func Categories(raw []byte) []string {
	v := decode(raw)
	switch val := v.(type) {
	case []any:
		return categoryList(val)
	case map[string]any:
		for _, key := range wrapperKeys {
			if arr, ok := val[key].([]any); ok {
				return categoryList(arr)
			}
		}
	}
	return nil
}

func decode(raw []byte) any {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return v
}

func transactionsFromValue(v any, now time.Time) []core.Transaction {
	recs := items(v)
	var out []core.Transaction
	for i, r := range recs {
		cents, negative, ok := r.amountCents()
		if !ok {
			continue
		}

		typ := resolveType(r, negative, core.Income)

		description := r.str(descriptionKeys)
		category := r.str(categoryKeys)
		if description == "" {
			description = category
		}

		t := core.Transaction{
			ID:          r.str(idKeys),
			Type:        typ,
			Amount:      core.Money{Cents: cents},
			Description: description,
			Date:        r.date(dateKeys, now),
			Category:    category,
		}
		if t.ID == "" {
			t.ID = syntheticID("txn", i, now)
		}
		out = append(out, t)
	}
	return out
}

func regularsFromValue(v any, fallback core.TransactionType, now time.Time) []core.RegularPayment {
	recs := items(v)
	var out []core.RegularPayment
	for i, r := range recs {
		cents, negative, ok := r.amountCents()
		if !ok {
			continue
		}

		typ := resolveType(r, negative, fallback)

		description := r.str(descriptionKeys)
		if description == "" {
			description = r.str(categoryKeys)
		}

		p := core.RegularPayment{
			ID:          r.str(idKeys),
			Type:        typ,
			Amount:      core.Money{Cents: cents},
			Description: description,
			DayOfMonth:  r.dayOfMonth(),
			CreatedAt:   r.date(createdAtKeys, time.Time{}),
		}
		if p.ID == "" {
			p.ID = syntheticID("reg-"+string(typ), i, now)
		}
		out = append(out, p)
	}
	return out
}

// resolveType applies the precedence rules for transaction direction: an
// explicit enum value wins, then the amount sign, then a keyword match on
// the type field, then the fallback.
func resolveType(r record, negative bool, fallback core.TransactionType) core.TransactionType {
	isExpense, explicit, hasHint := r.typeHint()
	switch {
	case hasHint && explicit:
		if isExpense {
			return core.Expense
		}
		return core.Income
	case negative:
		return core.Expense
	case hasHint && isExpense:
		return core.Expense
	default:
		return fallback
	}
}

func categoryList(arr []any) []string {
	var out []string
	for _, item := range arr {
		switch val := item.(type) {
		case string:
			if s := strings.TrimSpace(val); s != "" {
				out = append(out, s)
			}
		case map[string]any:
			if s := record(val).str(categoryKeys); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// syntheticID builds an id for items the source did not identify. The
// positional index keeps ids distinct within one payload, the timestamp
// distinguishes payloads, and the random suffix guards against clock reuse.
func syntheticID(prefix string, index int, now time.Time) string {
	return fmt.Sprintf("%s-%d-%d-%s", prefix, index, now.UnixMilli(), uuid.NewString()[:8])
}

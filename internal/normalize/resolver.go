// Package normalize converts loosely-shaped webhook JSON into canonical
// domain records. Payloads arrive from spreadsheet-backed workflows whose
// column names drifted over time and mix English with Ukrainian (sometimes
// with trailing spaces), so every logical field is resolved through a
// priority-ordered list of candidate keys: the first present and parseable
// value wins. Nothing in this package returns an error; malformed items are
// dropped and malformed payloads normalize to empty results.
package normalize

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"vytraty/internal/core"
)

// Candidate key lists per logical field, highest priority first.
var (
	amountKeys      = []string{"amount", "money", "сума", "сума "}
	dateKeys        = []string{"date", "дата", "transaction_date", "data", "created_at"}
	descriptionKeys = []string{"description", "name", "title", "назва", "Назва", "назва ", "опис"}
	categoryKeys    = []string{"category", "категория", "Категорія", "Категорія "}
	typeKeys        = []string{"type", "тип"}
	dayOfMonthKeys  = []string{"dayOfMonth", "day_of_month", "день", "day", "число", "date", "дата"}
	createdAtKeys   = []string{"createdAt", "created_at", "date", "дата", "дата коли поставли ", "дата коли поставили"}
	familyKeys      = []string{"familyUserId", "family_user_id", "сімейний_кабінет"}
	idKeys          = []string{"id"}
	wrapperKeys     = []string{"transactions", "data", "items", "rows"}
)

// Substrings that mark a free-text type value as an expense.
var expenseKeywords = []string{"розход", "витрат", "expense"}

// record is one raw item from a webhook payload.
type record map[string]any

// items unwraps a decoded JSON value into a list of records. Accepts a bare
// array, an object wrapping an array under a known key, or a single object.
// Anything else yields nil.
func items(v any) []record {
	switch val := v.(type) {
	case []any:
		return toRecords(val)
	case map[string]any:
		for _, key := range wrapperKeys {
			if arr, ok := val[key].([]any); ok {
				return toRecords(arr)
			}
		}
		return []record{record(val)}
	default:
		return nil
	}
}

func toRecords(arr []any) []record {
	out := make([]record, 0, len(arr))
	for _, item := range arr {
		if m, ok := item.(map[string]any); ok {
			out = append(out, record(m))
		}
	}
	return out
}

// first returns the first present, non-nil value among the candidate keys.
func (r record) first(keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// str resolves a field to a trimmed string, skipping candidates that resolve
// to empty text.
func (r record) str(keys []string) string {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		s := strings.TrimSpace(asString(v))
		if s != "" {
			return s
		}
	}
	return ""
}

func asString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// amountCents resolves the amount field to absolute cents plus a sign flag.
// Returns ok=false when no candidate parses to a non-zero number.
func (r record) amountCents() (cents int64, negative bool, ok bool) {
	v, found := r.first(amountKeys)
	if !found {
		return 0, false, false
	}
	switch val := v.(type) {
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, false, false
		}
		cents, negative = core.CentsFromFloat(f)
	case float64:
		cents, negative = core.CentsFromFloat(val)
	case string:
		c, neg, err := core.ParseSignedToCents(val)
		if err != nil {
			return 0, false, false
		}
		cents, negative = c, neg
	default:
		return 0, false, false
	}
	if cents == 0 {
		return 0, false, false
	}
	return cents, negative, true
}

// Date layouts accepted from webhook payloads, most common first.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02.01.2006",
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// date resolves a timestamp field, falling back to the given instant when no
// candidate parses.
func (r record) date(keys []string, fallback time.Time) time.Time {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		if t, ok := parseDate(asString(v)); ok {
			return t
		}
	}
	return fallback
}

// dayOfMonth resolves the recurring-payment day: a direct integer, a numeric
// string in [1,31], or the day component of a parseable date. Returns 0 when
// nothing resolves.
func (r record) dayOfMonth() int {
	for _, k := range dayOfMonthKeys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case json.Number:
			if n, err := val.Int64(); err == nil && n >= 1 && n <= 31 {
				return int(n)
			}
		case float64:
			n := int(val)
			if float64(n) == val && n >= 1 && n <= 31 {
				return n
			}
		case string:
			s := strings.TrimSpace(val)
			if n, err := strconv.Atoi(s); err == nil {
				if n >= 1 && n <= 31 {
					return n
				}
				continue
			}
			if t, ok := parseDate(s); ok {
				return t.Day()
			}
		}
	}
	return 0
}

// typeHint resolves an explicit type field. The enum values win outright;
// anything else is matched against expense keywords. Returns ok=false when
// no type field is present at all.
func (r record) typeHint() (isExpense bool, explicit bool, ok bool) {
	v, found := r.first(typeKeys)
	if !found {
		return false, false, false
	}
	s := strings.ToLower(strings.TrimSpace(asString(v)))
	switch s {
	case "income":
		return false, true, true
	case "expense":
		return true, true, true
	}
	for _, kw := range expenseKeywords {
		if strings.Contains(s, kw) {
			return true, false, true
		}
	}
	return false, false, true
}

package core

import (
	"strconv"
	"time"
)

// Period is the (month, year) window currently selected for viewing and
// aggregation. Month is zero-based (0 = January, 11 = December), matching
// the wire format the mini-app has always used.
type Period struct {
	Month int
	Year  int
}

// PeriodOf returns the period containing the given instant, using the
// instant's own calendar fields.
func PeriodOf(t time.Time) Period {
	return Period{Month: int(t.Month()) - 1, Year: t.Year()}
}

// Previous returns the preceding month, rolling the year back when the
// month underflows January.
func (p Period) Previous() Period {
	if p.Month == 0 {
		return Period{Month: 11, Year: p.Year - 1}
	}
	return Period{Month: p.Month - 1, Year: p.Year}
}

// Next returns the following month, rolling the year forward when the month
// overflows December.
func (p Period) Next() Period {
	if p.Month == 11 {
		return Period{Month: 0, Year: p.Year + 1}
	}
	return Period{Month: p.Month + 1, Year: p.Year}
}

// Contains reports whether the instant falls in this period. Month and year
// must both match exactly; no timezone normalization is applied.
func (p Period) Contains(t time.Time) bool {
	return int(t.Month())-1 == p.Month && t.Year() == p.Year
}

// Valid reports whether the month index is in range.
func (p Period) Valid() bool {
	return p.Month >= 0 && p.Month <= 11
}

// Days returns the number of days in the period's month.
func (p Period) Days() int {
	return time.Date(p.Year, time.Month(p.Month+2), 0, 0, 0, 0, 0, time.UTC).Day()
}

var ukrainianMonths = [12]string{
	"Січень", "Лютий", "Березень", "Квітень", "Травень", "Червень",
	"Липень", "Серпень", "Вересень", "Жовтень", "Листопад", "Грудень",
}

// Label formats the period as a localized "Month Year" heading,
// e.g. "Березень 2024".
func (p Period) Label() string {
	if !p.Valid() {
		return strconv.Itoa(p.Year)
	}
	return ukrainianMonths[p.Month] + " " + strconv.Itoa(p.Year)
}

// MonthLabel formats an arbitrary date the same way Label does.
func MonthLabel(t time.Time) string {
	return PeriodOf(t).Label()
}

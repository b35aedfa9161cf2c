package core

import (
	"testing"
	"time"
)

func TestPeriodPrevious(t *testing.T) {
	tests := []struct {
		name string
		in   Period
		want Period
	}{
		{
			name: "january wraps to previous december",
			in:   Period{Month: 0, Year: 2024},
			want: Period{Month: 11, Year: 2023},
		},
		{
			name: "mid-year stays in year",
			in:   Period{Month: 5, Year: 2024},
			want: Period{Month: 4, Year: 2024},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Previous(); got != tt.want {
				t.Errorf("Previous() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPeriodNext(t *testing.T) {
	tests := []struct {
		name string
		in   Period
		want Period
	}{
		{
			name: "december wraps to next january",
			in:   Period{Month: 11, Year: 2024},
			want: Period{Month: 0, Year: 2025},
		},
		{
			name: "mid-year stays in year",
			in:   Period{Month: 5, Year: 2024},
			want: Period{Month: 6, Year: 2024},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Next(); got != tt.want {
				t.Errorf("Next() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPeriodContains(t *testing.T) {
	date := time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)

	if !(Period{Month: 2, Year: 2024}).Contains(date) {
		t.Error("March period should contain 2024-03-15")
	}
	if (Period{Month: 3, Year: 2024}).Contains(date) {
		t.Error("April period should not contain 2024-03-15")
	}
	if (Period{Month: 2, Year: 2023}).Contains(date) {
		t.Error("March 2023 should not contain 2024-03-15")
	}
}

func TestPeriodOf(t *testing.T) {
	p := PeriodOf(time.Date(2024, time.January, 31, 23, 59, 0, 0, time.UTC))
	if p != (Period{Month: 0, Year: 2024}) {
		t.Errorf("PeriodOf() = %+v, want {0 2024}", p)
	}
}

func TestPeriodDays(t *testing.T) {
	tests := []struct {
		p    Period
		want int
	}{
		{Period{Month: 1, Year: 2024}, 29}, // leap February
		{Period{Month: 1, Year: 2023}, 28},
		{Period{Month: 3, Year: 2024}, 30},
		{Period{Month: 0, Year: 2024}, 31},
	}

	for _, tt := range tests {
		if got := tt.p.Days(); got != tt.want {
			t.Errorf("Period{%d,%d}.Days() = %d, want %d", tt.p.Month, tt.p.Year, got, tt.want)
		}
	}
}

func TestPeriodLabel(t *testing.T) {
	if got := (Period{Month: 2, Year: 2024}).Label(); got != "Березень 2024" {
		t.Errorf("Label() = %q, want %q", got, "Березень 2024")
	}
	if got := MonthLabel(time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC)); got != "Грудень 2025" {
		t.Errorf("MonthLabel() = %q, want %q", got, "Грудень 2025")
	}
}

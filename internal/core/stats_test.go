package core

import (
	"testing"
	"time"
)

func tx(typ TransactionType, cents int64, date time.Time) Transaction {
	return Transaction{
		ID:     "t",
		Type:   typ,
		Amount: Money{Cents: cents},
		Date:   date,
	}
}

func TestComputeMonthlyStats_Empty(t *testing.T) {
	stats := ComputeMonthlyStats(nil, Period{Month: 2, Year: 2024}, nil, nil)

	if stats.Income.Cents != 0 || stats.Expense.Cents != 0 || stats.Balance.Cents != 0 {
		t.Errorf("empty inputs should yield zero stats, got %+v", stats)
	}
}

func TestComputeMonthlyStats_FiltersByPeriod(t *testing.T) {
	march := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	april := time.Date(2024, time.April, 2, 0, 0, 0, 0, time.UTC)
	transactions := []Transaction{
		tx(Income, 100000, march),
		tx(Expense, 25000, march),
		tx(Expense, 99900, april),
	}

	stats := ComputeMonthlyStats(transactions, Period{Month: 2, Year: 2024}, nil, nil)

	if stats.Income.Cents != 100000 {
		t.Errorf("income = %d, want 100000", stats.Income.Cents)
	}
	if stats.Expense.Cents != 25000 {
		t.Errorf("expense = %d, want 25000 (april expense must be excluded)", stats.Expense.Cents)
	}
	if stats.Balance.Cents != 75000 {
		t.Errorf("balance = %d, want 75000", stats.Balance.Cents)
	}
}

func TestComputeMonthlyStats_RecurringIsPeriodIndependent(t *testing.T) {
	regularExpenses := []RegularPayment{
		{ID: "r1", Type: Expense, Amount: Money{Cents: 50000}, DayOfMonth: 5},
	}

	periods := []Period{
		{Month: 0, Year: 2024},
		{Month: 6, Year: 2024},
		{Month: 11, Year: 2030},
	}
	for _, p := range periods {
		stats := ComputeMonthlyStats(nil, p, nil, regularExpenses)
		if stats.Expense.Cents != 50000 {
			t.Errorf("period %+v: expense = %d, want 50000", p, stats.Expense.Cents)
		}
		if stats.RegularExpenseTotal.Cents != 50000 {
			t.Errorf("period %+v: regular expense total = %d, want 50000", p, stats.RegularExpenseTotal.Cents)
		}
	}
}

func TestComputeMonthlyStats_BalanceIdentity(t *testing.T) {
	march := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	transactions := []Transaction{
		tx(Income, 123456, march),
		tx(Expense, 654321, march),
	}
	regularIncomes := []RegularPayment{
		{ID: "ri", Type: Income, Amount: Money{Cents: 2000000}},
	}
	regularExpenses := []RegularPayment{
		{ID: "re", Type: Expense, Amount: Money{Cents: 70000}},
	}

	stats := ComputeMonthlyStats(transactions, Period{Month: 2, Year: 2024}, regularIncomes, regularExpenses)

	if stats.Balance != stats.Income.Sub(stats.Expense) {
		t.Errorf("balance %d != income %d - expense %d", stats.Balance.Cents, stats.Income.Cents, stats.Expense.Cents)
	}
	if stats.Income.Cents != 123456+2000000 {
		t.Errorf("income = %d, want %d", stats.Income.Cents, 123456+2000000)
	}
	if stats.Expense.Cents != 654321+70000 {
		t.Errorf("expense = %d, want %d", stats.Expense.Cents, 654321+70000)
	}
}

func TestMonthTransactions_PreservesOrder(t *testing.T) {
	march := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	transactions := []Transaction{
		{ID: "a", Type: Income, Amount: Money{Cents: 1}, Date: march.AddDate(0, 0, 10)},
		{ID: "b", Type: Income, Amount: Money{Cents: 1}, Date: march},
		{ID: "c", Type: Income, Amount: Money{Cents: 1}, Date: march.AddDate(0, 1, 0)},
	}

	got := MonthTransactions(transactions, Period{Month: 2, Year: 2024})
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("MonthTransactions returned %v, want [a b]", got)
	}
}

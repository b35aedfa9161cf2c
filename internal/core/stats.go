package core

// MonthlyStats is the period-scoped financial summary shown on the
// dashboard. Balance always equals Income minus Expense.
type MonthlyStats struct {
	Income              Money
	Expense             Money
	Balance             Money
	RegularIncomeTotal  Money
	RegularExpenseTotal Money
}

// MonthTransactions returns the transactions whose date falls in the given
// period, preserving input order.
func MonthTransactions(transactions []Transaction, p Period) []Transaction {
	var out []Transaction
	for _, t := range transactions {
		if p.Contains(t.Date) {
			out = append(out, t)
		}
	}
	return out
}

// ComputeMonthlyStats sums the period's transactions and the recurring
// payment templates into a summary. Recurring amounts are treated as the
// steady-state monthly baseline: they contribute their full amount for
// every period, regardless of which month is being viewed.
func ComputeMonthlyStats(transactions []Transaction, p Period, regularIncomes, regularExpenses []RegularPayment) MonthlyStats {
	var stats MonthlyStats

	for _, r := range regularIncomes {
		stats.RegularIncomeTotal = stats.RegularIncomeTotal.Add(r.Amount)
	}
	for _, r := range regularExpenses {
		stats.RegularExpenseTotal = stats.RegularExpenseTotal.Add(r.Amount)
	}

	for _, t := range MonthTransactions(transactions, p) {
		switch t.Type {
		case Income:
			stats.Income = stats.Income.Add(t.Amount)
		case Expense:
			stats.Expense = stats.Expense.Add(t.Amount)
		}
	}

	stats.Income = stats.Income.Add(stats.RegularIncomeTotal)
	stats.Expense = stats.Expense.Add(stats.RegularExpenseTotal)
	stats.Balance = stats.Income.Sub(stats.Expense)
	return stats
}

package state

import (
	"testing"
	"time"

	"vytraty/internal/core"
)

var now = time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)

func tx(id string, typ core.TransactionType, cents int64, date time.Time) core.Transaction {
	return core.Transaction{ID: id, Type: typ, Amount: core.Money{Cents: cents}, Date: date}
}

func TestStore_StartsOnCurrentMonth(t *testing.T) {
	s := NewStore("u1", core.DefaultSettings(), now, nil)

	p := s.Period()
	if p.Month != 2 || p.Year != 2024 {
		t.Errorf("initial period = %+v, want march 2024 (month index 2)", p)
	}
}

func TestStore_PeriodNavigation(t *testing.T) {
	s := NewStore("u1", core.DefaultSettings(), time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC), nil)

	p := s.GoToPreviousMonth()
	if p.Month != 11 || p.Year != 2023 {
		t.Errorf("previous from january = %+v, want december 2023", p)
	}
	p = s.GoToNextMonth()
	if p.Month != 0 || p.Year != 2024 {
		t.Errorf("next should return to january 2024, got %+v", p)
	}

	p = s.GoToPeriod(core.Period{Month: 6, Year: 2025})
	if p.Month != 6 || p.Year != 2025 {
		t.Errorf("GoToPeriod = %+v, want july 2025", p)
	}
	p = s.GoToPeriod(core.Period{Month: 12, Year: 2025})
	if p.Month != 6 || p.Year != 2025 {
		t.Errorf("invalid period must be ignored, got %+v", p)
	}
}

func TestStore_AddPrependsAndRemoveFilters(t *testing.T) {
	s := NewStore("u1", core.DefaultSettings(), now, nil)

	s.AddTransaction(tx("a", core.Income, 100, now))
	s.AddTransaction(tx("b", core.Expense, 200, now))

	got := s.Transactions()
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
		t.Fatalf("transactions = %v, want [b a]", got)
	}

	if !s.RemoveTransaction("a") {
		t.Error("RemoveTransaction(a) = false, want true")
	}
	if s.RemoveTransaction("a") {
		t.Error("second remove should report missing")
	}
	got = s.Transactions()
	if len(got) != 1 || got[0].ID != "b" {
		t.Errorf("after remove = %v, want [b]", got)
	}
}

func TestStore_ApplySyncReplacesAndOverlays(t *testing.T) {
	s := NewStore("u1", core.DefaultSettings(), now, nil)
	s.AddTransaction(tx("local", core.Income, 100, now))

	synced := []core.Transaction{tx("remote", core.Expense, 500, now)}
	s.ApplySync(synced, []string{"Їжа"}, nil, nil, "fam-1")

	got := s.Transactions()
	if len(got) != 1 || got[0].ID != "remote" {
		t.Errorf("sync must replace the whole list, got %v", got)
	}

	settings := s.Settings()
	if len(settings.Categories) != 1 || settings.Categories[0] != "Їжа" {
		t.Errorf("categories = %v, want [Їжа]", settings.Categories)
	}
	if settings.FamilyUserID != "fam-1" {
		t.Errorf("familyUserId = %q, want fam-1", settings.FamilyUserID)
	}

	// A later sync without settings parts keeps them.
	s.ApplySync(nil, nil, nil, nil, "")
	settings = s.Settings()
	if len(settings.Categories) != 1 {
		t.Errorf("nil categories in sync must keep prior value, got %v", settings.Categories)
	}
	if len(s.Transactions()) != 0 {
		t.Error("empty sync still replaces transactions")
	}
}

func TestStore_UpdateSettingsMerges(t *testing.T) {
	var persisted []core.Settings
	s := NewStore("u1", core.DefaultSettings(), now, func(snap core.Settings) {
		persisted = append(persisted, snap)
	})

	currency := "usd"
	got := s.UpdateSettings(SettingsPatch{Currency: &currency})
	if got.Currency != "usd" {
		t.Errorf("currency = %q, want usd", got.Currency)
	}

	categories := []string{"Дім"}
	got = s.UpdateSettings(SettingsPatch{Categories: &categories})
	if got.Currency != "usd" {
		t.Error("merge must keep fields the patch omits")
	}
	if len(got.Categories) != 1 || got.Categories[0] != "Дім" {
		t.Errorf("categories = %v, want [Дім]", got.Categories)
	}

	empty := ""
	got = s.UpdateSettings(SettingsPatch{Currency: &empty})
	if got.Currency != "usd" {
		t.Error("empty currency must not clear the stored one")
	}

	if len(persisted) != 3 {
		t.Errorf("persist called %d times, want 3", len(persisted))
	}
}

func TestStore_RegularPayments(t *testing.T) {
	s := NewStore("u1", core.DefaultSettings(), now, nil)

	s.AddRegularPayment(core.RegularPayment{ID: "r1", Type: core.Income, Amount: core.Money{Cents: 100000}})
	s.AddRegularPayment(core.RegularPayment{ID: "r2", Type: core.Expense, Amount: core.Money{Cents: 50000}})

	settings := s.Settings()
	if len(settings.RegularIncomes) != 1 || settings.RegularIncomes[0].ID != "r1" {
		t.Errorf("incomes = %v", settings.RegularIncomes)
	}
	if len(settings.RegularExpenses) != 1 || settings.RegularExpenses[0].ID != "r2" {
		t.Errorf("expenses = %v", settings.RegularExpenses)
	}

	if !s.RemoveRegularPayment("r2") {
		t.Error("RemoveRegularPayment(r2) = false")
	}
	if s.RemoveRegularPayment("missing") {
		t.Error("removing a missing payment should report false")
	}
	if len(s.Settings().RegularExpenses) != 0 {
		t.Error("r2 should be gone")
	}
}

func TestStore_MonthlyStatsUsesState(t *testing.T) {
	s := NewStore("u1", core.DefaultSettings(), now, nil)
	s.AddTransaction(tx("a", core.Income, 100000, now))
	s.AddTransaction(tx("b", core.Expense, 30000, now.AddDate(0, -1, 0)))
	s.AddRegularPayment(core.RegularPayment{ID: "r", Type: core.Expense, Amount: core.Money{Cents: 5000}})

	stats := s.MonthlyStats(core.Period{Month: 2, Year: 2024})
	if stats.Income.Cents != 100000 {
		t.Errorf("income = %d, want 100000", stats.Income.Cents)
	}
	if stats.Expense.Cents != 5000 {
		t.Errorf("expense = %d, want 5000 (february expense excluded, recurring included)", stats.Expense.Cents)
	}
}

func TestStore_SyncingFlag(t *testing.T) {
	s := NewStore("u1", core.DefaultSettings(), now, nil)

	if s.Syncing() {
		t.Error("fresh store should not report syncing")
	}
	s.SetSyncing(true)
	if !s.Syncing() {
		t.Error("flag not set")
	}
	s.SetSyncing(false)
	if s.Syncing() {
		t.Error("flag not cleared")
	}
}

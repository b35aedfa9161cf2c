package memory

import (
	"context"
	"testing"
	"time"

	"vytraty/internal/core"
)

func TestSheet_Append(t *testing.T) {
	s := New()

	tx := core.Transaction{
		ID:     "t1",
		Type:   core.Expense,
		Amount: core.Money{Cents: 25000},
		Date:   time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC),
	}

	ref, err := s.Append(context.Background(), "u1", tx)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if ref != "row-1" {
		t.Errorf("ref = %q, want row-1", ref)
	}

	rows := s.Rows()
	if len(rows) != 1 || rows[0].UserID != "u1" || rows[0].Transaction.ID != "t1" {
		t.Errorf("Rows() = %+v", rows)
	}
}

func TestSheet_AppendRejectsInvalid(t *testing.T) {
	s := New()

	_, err := s.Append(context.Background(), "u1", core.Transaction{ID: "bad", Type: "transfer"})
	if err == nil {
		t.Fatal("invalid transaction must not be appended")
	}
	if len(s.Rows()) != 0 {
		t.Error("invalid transaction was stored")
	}
}

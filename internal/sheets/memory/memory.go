// Package memory provides an in-memory sheet used in tests and local
// development.
package memory

import (
	"context"
	"fmt"
	"sync"

	"vytraty/internal/core"
	ports "vytraty/internal/sheets"
)

type Row struct {
	UserID      string
	Transaction core.Transaction
}

type Sheet struct {
	mu   sync.Mutex
	rows []Row
}

var _ ports.TransactionAppender = (*Sheet)(nil)

func New() *Sheet {
	return &Sheet{}
}

func (s *Sheet) Append(ctx context.Context, userID string, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, Row{UserID: userID, Transaction: t})
	return fmt.Sprintf("row-%d", len(s.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (s *Sheet) Rows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Row, len(s.rows))
	copy(out, s.rows)
	return out
}

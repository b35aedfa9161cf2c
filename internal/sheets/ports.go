package sheets

import (
	"context"

	"vytraty/internal/core"
)

// Ports for the spreadsheet adapters the worker mirrors into.
type (
	// TransactionAppender appends one transaction row to the user's sheet
	// and returns a reference to the written row.
	TransactionAppender interface {
		Append(ctx context.Context, userID string, t core.Transaction) (rowRef string, err error)
	}
)

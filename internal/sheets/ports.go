package sheets

import (
	"context"

	"bilancio/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionWriter appends one ledger transaction as a spreadsheet row.
	TransactionWriter interface {
		Append(ctx context.Context, month core.MonthKey, tx core.Transaction) (rowRef string, err error)
	}

	// TransactionRemover removes the row mirroring the given transaction id.
	// Removing an id that was never mirrored is not an error.
	TransactionRemover interface {
		Remove(ctx context.Context, transactionID string) error
	}
)

package memory

import (
	"context"
	"fmt"
	"sync"

	"bilancio/internal/core"
	ports "bilancio/internal/sheets"
)

// Row is one mirrored transaction.
type Row struct {
	Month core.MonthKey
	Tx    core.Transaction
}

// Mirror is an in-memory stand-in for the spreadsheet, used in tests and
// when no Google configuration is present.
type Mirror struct {
	mu   sync.Mutex
	rows []Row
}

var (
	_ ports.TransactionWriter  = (*Mirror)(nil)
	_ ports.TransactionRemover = (*Mirror)(nil)
)

func New() *Mirror {
	return &Mirror{}
}

// Append stores the transaction and returns a synthetic row reference.
func (m *Mirror) Append(_ context.Context, month core.MonthKey, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, Row{Month: month, Tx: tx})
	return fmt.Sprintf("mem:%d", len(m.rows)), nil
}

// Remove drops the row carrying the transaction id, if present.
func (m *Mirror) Remove(_ context.Context, transactionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, row := range m.rows {
		if row.Tx.ID == transactionID {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

// Rows returns a copy of the mirrored rows.
func (m *Mirror) Rows() []Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Row(nil), m.rows...)
}

package worker

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/services"
	"bilancio/internal/sheets"
)

// MonthReader is the slice of the ledger the worker needs.
type MonthReader interface {
	GetMonth(ctx context.Context, month core.MonthKey) (core.MonthDocument, error)
}

// SyncWorker mirrors ledger transactions to a spreadsheet. It consumes
// sync messages carrying (op, month, id), fetches the current transaction
// from the store and applies the corresponding row operation.
type SyncWorker struct {
	ledger  MonthReader
	writer  sheets.TransactionWriter
	remover sheets.TransactionRemover
}

func NewSyncWorker(ledger MonthReader, writer sheets.TransactionWriter, remover sheets.TransactionRemover) *SyncWorker {
	return &SyncWorker{
		ledger:  ledger,
		writer:  writer,
		remover: remover,
	}
}

// HandleSyncMessage processes a single transaction sync message from AMQP
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"op", msg.Op,
		"month", msg.Month,
		"transaction_id", msg.TransactionID)

	month, err := core.ParseMonthKey(msg.Month)
	if err != nil {
		// Malformed months never become processable; drop instead of requeue.
		slog.ErrorContext(ctx, "Dropping sync message with invalid month",
			"month", msg.Month, "error", err)
		return nil
	}

	switch msg.Op {
	case services.SyncOpCreate:
		return w.appendRow(ctx, month, msg.TransactionID)
	case services.SyncOpUpdate:
		// Replace the mirrored row wholesale.
		if err := w.remover.Remove(ctx, msg.TransactionID); err != nil {
			return fmt.Errorf("remove row before update: %w", err)
		}
		return w.appendRow(ctx, month, msg.TransactionID)
	case services.SyncOpDelete:
		if err := w.remover.Remove(ctx, msg.TransactionID); err != nil {
			return fmt.Errorf("remove row: %w", err)
		}
		return nil
	default:
		slog.ErrorContext(ctx, "Dropping sync message with unknown op", "op", msg.Op)
		return nil
	}
}

func (w *SyncWorker) appendRow(ctx context.Context, month core.MonthKey, transactionID string) error {
	doc, err := w.ledger.GetMonth(ctx, month)
	if err != nil {
		return fmt.Errorf("load month %s: %w", month, err)
	}
	i, ok := doc.FindTransaction(transactionID)
	if !ok {
		// Deleted between publish and consume; the delete message will
		// clean up any row this create would have written.
		slog.WarnContext(ctx, "Transaction no longer exists, skipping append",
			"month", month.String(), "transaction_id", transactionID)
		return nil
	}

	ref, err := w.writer.Append(ctx, month, doc.Transactions[i])
	if err != nil {
		return fmt.Errorf("append to sheets: %w", err)
	}

	slog.InfoContext(ctx, "Successfully mirrored transaction",
		"month", month.String(),
		"transaction_id", transactionID,
		"sheets_ref", ref)
	return nil
}

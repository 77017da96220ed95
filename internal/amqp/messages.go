package amqp

import (
	"encoding/json"
	"time"
)

// TransactionSyncMessage is a lightweight message for mirroring a ledger
// transaction to Google Sheets. Carries only the operation and the
// coordinates; the worker fetches the full transaction from the store.
type TransactionSyncMessage struct {
	Op            string    `json:"op"`
	Month         string    `json:"month"`
	TransactionID string    `json:"transactionId"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewTransactionSyncMessage creates a sync message for the given operation
func NewTransactionSyncMessage(op, month, transactionID string) *TransactionSyncMessage {
	return &TransactionSyncMessage{
		Op:            op,
		Month:         month,
		TransactionID: transactionID,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionSyncMessageFromJSON creates a message from JSON bytes
func TransactionSyncMessageFromJSON(data []byte) (*TransactionSyncMessage, error) {
	var msg TransactionSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

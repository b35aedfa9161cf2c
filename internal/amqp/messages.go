package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Actions carried by sync messages.
const (
	ActionCreate = "create"
	ActionDelete = "delete"
)

// TransactionSyncMessage tells the worker to mirror one transaction mutation.
// It carries only identifiers; the worker reads the full row from storage.
type TransactionSyncMessage struct {
	UserID        string    `json:"user_id"`
	TransactionID string    `json:"transaction_id"`
	Action        string    `json:"action"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewTransactionSyncMessage creates a sync message stamped with the current
// time.
func NewTransactionSyncMessage(userID, transactionID, action string) *TransactionSyncMessage {
	return &TransactionSyncMessage{
		UserID:        userID,
		TransactionID: transactionID,
		Action:        action,
		Timestamp:     time.Now(),
	}
}

// Validate checks the message carries everything the worker needs.
func (m *TransactionSyncMessage) Validate() error {
	if m.UserID == "" {
		return fmt.Errorf("sync message missing user id")
	}
	if m.TransactionID == "" {
		return fmt.Errorf("sync message missing transaction id")
	}
	if m.Action != ActionCreate && m.Action != ActionDelete {
		return fmt.Errorf("unknown sync action %q", m.Action)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *TransactionSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionSyncMessageFromJSON parses a message from JSON bytes.
func TransactionSyncMessageFromJSON(data []byte) (*TransactionSyncMessage, error) {
	var msg TransactionSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

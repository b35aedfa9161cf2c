package amqp

import (
	"testing"
	"time"
)

func TestNewTransactionSyncMessage(t *testing.T) {
	msg := NewTransactionSyncMessage("42", "t1", ActionCreate)

	if msg.UserID != "42" || msg.TransactionID != "t1" || msg.Action != ActionCreate {
		t.Errorf("message = %+v", msg)
	}
	if msg.Timestamp.IsZero() || time.Since(msg.Timestamp) > time.Second {
		t.Error("timestamp should be recent")
	}
	if err := msg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestTransactionSyncMessage_Validate(t *testing.T) {
	tests := []struct {
		name    string
		msg     TransactionSyncMessage
		wantErr bool
	}{
		{"valid create", TransactionSyncMessage{UserID: "u", TransactionID: "t", Action: ActionCreate}, false},
		{"valid delete", TransactionSyncMessage{UserID: "u", TransactionID: "t", Action: ActionDelete}, false},
		{"missing user", TransactionSyncMessage{TransactionID: "t", Action: ActionCreate}, true},
		{"missing transaction", TransactionSyncMessage{UserID: "u", Action: ActionCreate}, true},
		{"unknown action", TransactionSyncMessage{UserID: "u", TransactionID: "t", Action: "upsert"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.msg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTransactionSyncMessage_JSONRoundTrip(t *testing.T) {
	msg := &TransactionSyncMessage{
		UserID:        "42",
		TransactionID: "t1",
		Action:        ActionDelete,
		Timestamp:     time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	raw, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	parsed, err := TransactionSyncMessageFromJSON(raw)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if parsed.UserID != msg.UserID || parsed.TransactionID != msg.TransactionID || parsed.Action != msg.Action {
		t.Errorf("round trip lost fields: %+v", parsed)
	}
	if !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("timestamp = %v, want %v", parsed.Timestamp, msg.Timestamp)
	}
}

func TestTransactionSyncMessageFromJSON_Invalid(t *testing.T) {
	cases := [][]byte{
		[]byte(`{broken`),
		[]byte(`{"user_id": "u"}`),
		[]byte(`{"user_id": "u", "transaction_id": "t", "action": "noop"}`),
	}
	for _, raw := range cases {
		if _, err := TransactionSyncMessageFromJSON(raw); err == nil {
			t.Errorf("FromJSON(%s) should fail", raw)
		}
	}
}

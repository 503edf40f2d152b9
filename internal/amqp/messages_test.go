package amqp

import (
	"testing"
	"time"
)

func TestBudgetAlertMessageRoundTrip(t *testing.T) {
	msg := &BudgetAlertMessage{
		BudgetID:    7,
		OwnerID:     3,
		Month:       "2025-02",
		Level:       AlertLevel80,
		Spent:       "850.00",
		Limit:       "1000.00",
		PercentUsed: "85.00",
		Timestamp:   time.Date(2025, 2, 20, 9, 30, 0, 0, time.UTC),
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON error: %v", err)
	}

	got, err := BudgetAlertMessageFromJSON(body)
	if err != nil {
		t.Fatalf("FromJSON error: %v", err)
	}
	if got.BudgetID != msg.BudgetID || got.Level != msg.Level || got.PercentUsed != msg.PercentUsed {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, msg)
	}
}

func TestBudgetAlertMessageFromJSON_Invalid(t *testing.T) {
	if _, err := BudgetAlertMessageFromJSON([]byte("{not json")); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

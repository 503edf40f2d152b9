package amqp

import (
	"encoding/json"
	"time"
)

// Alert threshold levels carried in BudgetAlertMessage.Level.
const (
	AlertLevel80  = 80
	AlertLevel100 = 100
)

// BudgetAlertMessage notifies downstream consumers (mail, push, ...)
// that a budget crossed a spending threshold. Amounts are two-decimal
// strings in the owner's base currency.
type BudgetAlertMessage struct {
	BudgetID    int64     `json:"budget_id"`
	OwnerID     int64     `json:"owner_id"`
	Month       string    `json:"month"`
	Level       int       `json:"level"`
	Spent       string    `json:"spent"`
	Limit       string    `json:"limit"`
	PercentUsed string    `json:"percent_used"`
	Timestamp   time.Time `json:"timestamp"`
}

// ToJSON converts the message to JSON bytes.
func (m *BudgetAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BudgetAlertMessageFromJSON creates a message from JSON bytes.
func BudgetAlertMessageFromJSON(data []byte) (*BudgetAlertMessage, error) {
	var msg BudgetAlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

package events

import (
	"encoding/json"
	"time"
)

// ExpenseLoggedMessage announces that an expense was accepted by the ledger
// backend. It carries ids and the integer amount only; consumers fetch
// details from the backend themselves.
type ExpenseLoggedMessage struct {
	Type        string    `json:"type"`
	ActivityID  int64     `json:"activity_id"`
	GroupID     int64     `json:"group_id"`
	PayerID     int64     `json:"payer_id"`
	AmountMinor int64     `json:"amount"`
	Timestamp   time.Time `json:"timestamp"`
}

const TypeExpenseLogged = "expense.logged"

func NewExpenseLoggedMessage(activityID, groupID, payerID, amountMinor int64) *ExpenseLoggedMessage {
	return &ExpenseLoggedMessage{
		Type:        TypeExpenseLogged,
		ActivityID:  activityID,
		GroupID:     groupID,
		PayerID:     payerID,
		AmountMinor: amountMinor,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *ExpenseLoggedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseLoggedMessageFromJSON parses a message from JSON bytes.
func ExpenseLoggedMessageFromJSON(data []byte) (*ExpenseLoggedMessage, error) {
	var msg ExpenseLoggedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/meridianpay/ledger-backend/internal/domain"
)

// Event is the wire envelope delivered to borrower channels.
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string      `json:"type"`      // Combined type e.g. "loan.payment_confirmed"
	Entity    string      `json:"entity"`    // Always "loan" for ledger events
	Payload   interface{} `json:"payload"`   // Full notification data
	Timestamp time.Time   `json:"timestamp"` // Event timestamp
}

// NewEvent wraps a notification request in a delivery envelope.
func NewEvent(req domain.NotificationRequest) Event {
	return Event{
		Type:      fmt.Sprintf("loan.%s", req.Kind),
		Entity:    "loan",
		Payload:   req,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

package fulfill

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is a paid order reported by the event source. It is never mutated by the pipeline.
type Order struct {
	ID          string
	Buyer       string
	ChatID      string
	Quantity    int
	Description string
	Amount      decimal.Decimal
}

// Validate checks the fields the pipeline relies on.
func (o Order) Validate() error {
	if o.ID == "" {
		return ErrOrderIDRequired
	}
	if o.Buyer == "" {
		return ErrBuyerRequired
	}
	if o.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if o.Amount.IsNegative() {
		return ErrInvalidAmount
	}

	return nil
}

// Job is an order queued for fulfillment. It is consumed exactly once and never requeued.
type Job struct {
	ID         uuid.UUID
	Order      Order
	EnqueuedAt time.Time
}

// ChatMessage is an inbound chat message from a buyer.
type ChatMessage struct {
	Sender string
	ChatID string
	Text   string
}

// Message is an outbound message addressed to a buyer's chat.
type Message struct {
	ChatID string
	Buyer  string
	Text   string
}

// Alert is an operator notification, optionally linked to an order.
type Alert struct {
	Text    string
	OrderID string
}

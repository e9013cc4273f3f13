package fulfill

import "context"

// Messenger delivers messages to buyers.
type Messenger interface {
	// SendMessage sends msg to the buyer's chat.
	SendMessage(ctx context.Context, msg Message) error
}

// Notifier alerts human operators.
type Notifier interface {
	// NotifyOperators sends alert to every configured operator.
	NotifyOperators(ctx context.Context, alert Alert) error
}

// Refunder reverses payment for an order. Implementations must be idempotent.
type Refunder interface {
	// Refund refunds the order identified by orderID.
	Refund(ctx context.Context, orderID string) error
}

// HistoricOrder is a delivered order known to the event source.
type HistoricOrder struct {
	OrderID string
	Phone   string
	ItemID  int64
}

// OrderHistory looks up past deliveries on the event source's side.
type OrderHistory interface {
	// DeliveredOrders returns the buyer's past orders that carry a delivered phone.
	DeliveredOrders(ctx context.Context, buyer string) ([]HistoricOrder, error)
}

// MessengerFunc adapts a function to Messenger.
type MessengerFunc func(ctx context.Context, msg Message) error

// SendMessage implements Messenger.
func (fn MessengerFunc) SendMessage(ctx context.Context, msg Message) error {
	return fn(ctx, msg)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, alert Alert) error

// NotifyOperators implements Notifier.
func (fn NotifierFunc) NotifyOperators(ctx context.Context, alert Alert) error {
	return fn(ctx, alert)
}

// RefunderFunc adapts a function to Refunder.
type RefunderFunc func(ctx context.Context, orderID string) error

// Refund implements Refunder.
func (fn RefunderFunc) Refund(ctx context.Context, orderID string) error {
	return fn(ctx, orderID)
}

package fulfill

import (
	"context"
	"fmt"
	"strings"
)

// FailureClass categorizes why an order could not be fulfilled.
type FailureClass int

const (
	// FailureExhausted means no usable candidate was purchased.
	FailureExhausted FailureClass = iota
	// FailureInvalidQuantity means the order declared more than one unit.
	FailureInvalidQuantity
	// FailureFundsExhausted means the marketplace balance ran out.
	FailureFundsExhausted
	// FailureFault means acquisition failed with an unexpected error.
	FailureFault
)

// String returns a stable name for logs.
func (c FailureClass) String() string {
	switch c {
	case FailureInvalidQuantity:
		return "invalid_quantity"
	case FailureFundsExhausted:
		return "funds_exhausted"
	case FailureFault:
		return "fault"
	default:
		return "exhausted"
	}
}

// DecisionKind is the terminal state of a compensation.
type DecisionKind int

const (
	// DecisionEscalated means the order was handed to a human operator.
	DecisionEscalated DecisionKind = iota
	// DecisionRefunded means the refund action succeeded.
	DecisionRefunded
	// DecisionRefundFailed means the refund action failed and the order was escalated.
	DecisionRefundFailed
)

// String returns a stable name for logs.
func (k DecisionKind) String() string {
	switch k {
	case DecisionRefunded:
		return "refunded"
	case DecisionRefundFailed:
		return "refund_failed"
	default:
		return "escalated"
	}
}

// Compensation describes a failed order.
type Compensation struct {
	Order      Order
	Class      FailureClass
	Reason     string
	Tag        string
	Region     string
	Phone      string
	Candidates int
	AutoRefund bool
}

// Decision is the outcome of a compensation.
type Decision struct {
	Kind         DecisionKind
	BuyerMessage string
	Err          error
}

// Compensator decides between refund and escalation for failed orders.
// It attempts at most one refund per call and keeps no state between calls.
type Compensator struct {
	refunder Refunder
	notifier Notifier
	logger   Logger
}

// NewCompensator constructs a Compensator. A nil logger falls back to NopLogger.
func NewCompensator(refunder Refunder, notifier Notifier, logger Logger) *Compensator {
	if refunder == nil {
		panic("fulfill: nil Refunder")
	}
	if notifier == nil {
		panic("fulfill: nil Notifier")
	}
	if logger == nil {
		logger = NopLogger{}
	}

	return &Compensator{refunder: refunder, notifier: notifier, logger: logger}
}

// Compensate refunds or escalates the order and returns the buyer-facing message.
func (c *Compensator) Compensate(ctx context.Context, in Compensation) Decision {
	orderID := in.Order.ID

	if in.Class != FailureInvalidQuantity && !in.AutoRefund {
		c.notify(ctx, orderID, escalationAlert(in))
		c.logger.Warn("fulfill order escalated", "order_id", orderID, "class", in.Class.String(), "reason", in.Reason)

		return Decision{Kind: DecisionEscalated, BuyerMessage: escalatedMessage(in)}
	}

	if err := c.refunder.Refund(ctx, orderID); err != nil {
		c.logger.Error("fulfill refund failed", "order_id", orderID, "class", in.Class.String(), "err", err)
		c.notify(ctx, orderID, refundFailedAlert(in, err))

		return Decision{Kind: DecisionRefundFailed, BuyerMessage: escalatedMessage(in), Err: err}
	}

	c.logger.Info("fulfill order refunded", "order_id", orderID, "class", in.Class.String())
	c.notify(ctx, orderID, refundedAlert(in))

	return Decision{Kind: DecisionRefunded, BuyerMessage: refundedMessage(in)}
}

func (c *Compensator) notify(ctx context.Context, orderID, text string) {
	if err := c.notifier.NotifyOperators(ctx, Alert{Text: text, OrderID: orderID}); err != nil {
		c.logger.Error("fulfill operator alert failed", "order_id", orderID, "err", err)
	}
}

func refundedMessage(in Compensation) string {
	switch in.Class {
	case FailureInvalidQuantity:
		return "Sorry, Telegram accounts can only be ordered one at a time.\n\n" +
			"Your payment has been refunded automatically. Please place a new order with quantity 1."
	case FailureFault:
		return "Sorry, a technical error occurred while processing your order. Your payment has been refunded automatically."
	case FailureExhausted:
		if in.Candidates == 0 {
			return fmt.Sprintf("Sorry, there are no accounts available for region %s right now. Your payment has been refunded automatically.", in.Region)
		}
		fallthrough
	default:
		return fmt.Sprintf("Sorry, an error occurred while buying an account for region %s. Your payment has been refunded automatically.", in.Region)
	}
}

func escalatedMessage(in Compensation) string {
	var b strings.Builder
	b.WriteString("Thank you for your purchase!")
	if in.Tag != "" {
		fmt.Fprintf(&b, " You ordered the Telegram account with ID %s.", in.Tag)
	}
	b.WriteString("\n\n")
	switch {
	case in.Class == FailureExhausted && in.Candidates == 0:
		b.WriteString("There are no accounts available for this region right now. An operator will contact you shortly.")
	case in.Class == FailureExhausted:
		b.WriteString("Unfortunately the automatic purchase failed. An operator will contact you shortly.")
	default:
		b.WriteString("Your order has been accepted and will be handled by an operator shortly.")
	}

	return b.String()
}

func escalationAlert(in Compensation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order #%s needs manual handling (%s).", in.Order.ID, in.Class.String())
	if in.Region != "" {
		fmt.Fprintf(&b, "\nRegion: %s", in.Region)
	}
	if in.Phone != "" {
		fmt.Fprintf(&b, "\nPhone: %s", in.Phone)
	}
	if in.Class == FailureExhausted {
		fmt.Fprintf(&b, "\nCandidates tried: %d", in.Candidates)
	}
	if in.Reason != "" {
		fmt.Fprintf(&b, "\nReason: %s", in.Reason)
	}

	return b.String()
}

func refundedAlert(in Compensation) string {
	return fmt.Sprintf("Order #%s was refunded automatically (%s).", in.Order.ID, in.Class.String())
}

func refundFailedAlert(in Compensation, err error) string {
	if in.Class == FailureFundsExhausted {
		return fmt.Sprintf("URGENT! Marketplace balance is too low for order #%s. Please top up the balance! Refund failed: %v", in.Order.ID, err)
	}

	return fmt.Sprintf("Automatic refund failed for order #%s (%s): %v", in.Order.ID, in.Class.String(), err)
}

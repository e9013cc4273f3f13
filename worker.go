package fulfill

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
)

const (
	apologyMessage = "Sorry, something went wrong while processing your order. " +
		"An operator has been notified and will contact you shortly."
	phoneUnavailable = "unavailable"
)

// Result is the terminal state of a processed job.
type Result int

const (
	// ResultFailed means processing faulted and the buyer received an apology.
	ResultFailed Result = iota
	// ResultSkipped means the order carried no matching tag and was left untouched.
	ResultSkipped
	// ResultDelivered means a credential was delivered to the buyer.
	ResultDelivered
	// ResultRefunded means the order was refunded.
	ResultRefunded
	// ResultEscalated means the order was handed to an operator.
	ResultEscalated
)

// String returns a stable name for logs and metrics.
func (r Result) String() string {
	switch r {
	case ResultSkipped:
		return "skipped"
	case ResultDelivered:
		return "delivered"
	case ResultRefunded:
		return "refunded"
	case ResultEscalated:
		return "escalated"
	default:
		return "failed"
	}
}

// WorkerDeps groups the collaborators of a Worker.
type WorkerDeps struct {
	Settings    SettingsStore
	Acquirer    *Acquirer
	Recorder    *Recorder
	Compensator *Compensator
	Messenger   Messenger
	Notifier    Notifier
	Logger      Logger
}

// Worker fulfills a single order end to end.
type Worker struct {
	settings    SettingsStore
	acquirer    *Acquirer
	recorder    *Recorder
	compensator *Compensator
	messenger   Messenger
	notifier    Notifier
	logger      Logger
}

// NewWorker constructs a Worker. Every dependency except Logger is required.
func NewWorker(deps WorkerDeps) *Worker {
	switch {
	case deps.Settings == nil:
		panic("fulfill: nil SettingsStore")
	case deps.Acquirer == nil:
		panic("fulfill: nil Acquirer")
	case deps.Recorder == nil:
		panic("fulfill: nil Recorder")
	case deps.Compensator == nil:
		panic("fulfill: nil Compensator")
	case deps.Messenger == nil:
		panic("fulfill: nil Messenger")
	case deps.Notifier == nil:
		panic("fulfill: nil Notifier")
	}
	logger := deps.Logger
	if logger == nil {
		logger = NopLogger{}
	}

	return &Worker{
		settings:    deps.Settings,
		acquirer:    deps.Acquirer,
		recorder:    deps.Recorder,
		compensator: deps.Compensator,
		messenger:   deps.Messenger,
		notifier:    deps.Notifier,
		logger:      logger,
	}
}

// Handle implements JobHandler.
func (w *Worker) Handle(ctx context.Context, job Job) (Result, error) {
	return w.Process(ctx, job)
}

// Process runs the fulfillment steps for job. Every path except ResultSkipped
// ends with exactly one message to the buyer.
func (w *Worker) Process(ctx context.Context, job Job) (result Result, err error) {
	order := job.Order
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("fulfill worker panic",
				"order_id", order.ID,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("%w: %v", ErrWorkerPanic, r)
			result = ResultFailed
			w.apologize(ctx, order, err)
		}
	}()

	tag, ok := ParseTag(order.Description)
	if !ok {
		w.logger.Debug("fulfill order has no tag", "order_id", order.ID)

		return ResultSkipped, nil
	}

	settings, err := w.settings.LoadSettings(ctx)
	if err != nil {
		err = fmt.Errorf("load settings: %w", err)
		w.logger.Error("fulfill settings unavailable", "order_id", order.ID, "err", err)
		w.apologize(ctx, order, err)

		return ResultFailed, err
	}
	settings = settings.WithDefaults()

	target, ok := ResolveTarget(settings, order.Description)
	if !ok {
		w.logger.Info("fulfill order tag matches no region", "order_id", order.ID, "tag", tag)

		return ResultSkipped, nil
	}
	w.logger.Info("fulfill order accepted", "order_id", order.ID, "tag", target.Tag, "region", target.Region)

	if order.Quantity > 1 {
		w.logger.Warn("fulfill order quantity rejected", "order_id", order.ID, "quantity", order.Quantity)

		return w.compensate(ctx, Compensation{
			Order:      order,
			Class:      FailureInvalidQuantity,
			Reason:     fmt.Sprintf("invalid quantity %d", order.Quantity),
			Tag:        target.Tag,
			Region:     target.Region,
			AutoRefund: settings.AutoRefund,
		}), nil
	}

	acq, acqErr := w.acquire(ctx, target)
	if acqErr != nil {
		w.logger.Error("fulfill acquisition fault", "order_id", order.ID, "err", acqErr)

		return w.compensate(ctx, Compensation{
			Order:      order,
			Class:      FailureFault,
			Reason:     acqErr.Error(),
			Tag:        target.Tag,
			Region:     target.Region,
			AutoRefund: settings.AutoRefund,
		}), nil
	}

	switch acq.Status {
	case AcquireDelivered:
		return w.deliver(ctx, order, settings, acq.Item), nil
	case AcquireFundsExhausted:
		return w.compensate(ctx, Compensation{
			Order:      order,
			Class:      FailureFundsExhausted,
			Reason:     acq.Reason,
			Tag:        target.Tag,
			Region:     target.Region,
			Candidates: acq.Candidates,
			AutoRefund: settings.AutoRefund,
		}), nil
	default:
		return w.compensate(ctx, Compensation{
			Order:      order,
			Class:      FailureExhausted,
			Reason:     acq.Reason,
			Tag:        target.Tag,
			Region:     target.Region,
			Candidates: acq.Candidates,
			AutoRefund: settings.AutoRefund,
		}), nil
	}
}

func (w *Worker) acquire(ctx context.Context, target TargetSpec) (acq Acquisition, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("acquisition panic: %v", r)
		}
	}()

	return w.acquirer.Acquire(ctx, target), nil
}

func (w *Worker) deliver(ctx context.Context, order Order, settings Settings, item DeliveredItem) Result {
	phone := item.Phone
	if phone == "" {
		w.logger.Error("fulfill delivered item has no phone", "order_id", order.ID, "item_id", item.ItemID)
		w.alert(ctx, order.ID, fmt.Sprintf(
			"Item %d was bought for order #%s but the marketplace returned no phone. Please deliver it manually.",
			item.ItemID, order.ID,
		))
		w.send(ctx, order, RenderTemplate(settings.PurchaseTemplate, map[string]string{"phone": phoneUnavailable}))

		return ResultDelivered
	}

	record, err := w.recorder.Record(ctx, RecordInput{
		OrderID:    order.ID,
		Buyer:      order.Buyer,
		Phone:      phone,
		ItemID:     item.ItemID,
		Cost:       item.Cost,
		SaleAmount: order.Amount,
	})
	if err != nil {
		w.logger.Error("fulfill delivery not recorded", "order_id", order.ID, "err", err)
		w.alert(ctx, order.ID, fmt.Sprintf("Delivery for order #%s could not be recorded: %v", order.ID, err))
		record = DeliveryRecord{
			OrderID:    order.ID,
			Buyer:      order.Buyer,
			Phone:      phone,
			ItemID:     item.ItemID,
			Cost:       item.Cost,
			SaleAmount: order.Amount,
			Profit:     order.Amount.Sub(item.Cost),
		}
	}

	w.send(ctx, order, RenderTemplate(settings.PurchaseTemplate, map[string]string{"phone": phone}))
	w.alert(ctx, order.ID, deliveredAlert(record))

	return ResultDelivered
}

func (w *Worker) compensate(ctx context.Context, in Compensation) Result {
	decision := w.compensator.Compensate(ctx, in)
	w.send(ctx, in.Order, decision.BuyerMessage)
	if decision.Kind == DecisionRefunded {
		return ResultRefunded
	}

	return ResultEscalated
}

func (w *Worker) send(ctx context.Context, order Order, text string) {
	msg := Message{ChatID: order.ChatID, Buyer: order.Buyer, Text: text}
	if err := w.messenger.SendMessage(ctx, msg); err != nil {
		w.logger.Error("fulfill buyer message failed", "order_id", order.ID, "err", err)
	}
}

func (w *Worker) alert(ctx context.Context, orderID, text string) {
	if err := w.notifier.NotifyOperators(ctx, Alert{Text: text, OrderID: orderID}); err != nil {
		w.logger.Error("fulfill operator alert failed", "order_id", orderID, "err", err)
	}
}

// apologize must not panic; it runs inside the worker's recover path.
func (w *Worker) apologize(ctx context.Context, order Order, cause error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("fulfill apology failed", "order_id", order.ID, "panic", r)
		}
	}()
	w.send(ctx, order, apologyMessage)
	w.alert(ctx, order.ID, fmt.Sprintf("Error while processing order #%s: %v", order.ID, cause))
}

func deliveredAlert(record DeliveryRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Account bought and delivered for order #%s:\n", record.OrderID)
	fmt.Fprintf(&b, "Buyer: %s\n", record.Buyer)
	fmt.Fprintf(&b, "Phone: %s\n", record.Phone)
	fmt.Fprintf(&b, "Item: %d\n\n", record.ItemID)
	fmt.Fprintf(&b, "Sale: %s\n", record.SaleAmount.StringFixed(2))
	fmt.Fprintf(&b, "Cost: %s\n", record.Cost.StringFixed(2))
	fmt.Fprintf(&b, "Profit: %s", record.Profit.StringFixed(2))

	return b.String()
}

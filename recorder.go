package fulfill

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// RecordInput describes a completed delivery.
type RecordInput struct {
	OrderID    string
	Buyer      string
	Phone      string
	ItemID     int64
	Cost       decimal.Decimal
	SaleAmount decimal.Decimal
}

// Recorder writes delivery records and answers phone ownership queries.
// It keeps no state of its own; every call reaches the store.
type Recorder struct {
	store  DeliveryStore
	clock  Clock
	logger Logger
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithRecorderClock overrides the clock used for DeliveredAt.
func WithRecorderClock(clock Clock) RecorderOption {
	return func(r *Recorder) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithRecorderLogger sets the recorder logger.
func WithRecorderLogger(logger Logger) RecorderOption {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRecorder constructs a Recorder over store.
func NewRecorder(store DeliveryStore, opts ...RecorderOption) *Recorder {
	if store == nil {
		panic("fulfill: nil DeliveryStore")
	}
	r := &Recorder{
		store:  store,
		clock:  SystemClock{},
		logger: NopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r
}

// Record stores a delivery, replacing any earlier record for the same order,
// and binds the phone to the buyer.
func (r *Recorder) Record(ctx context.Context, in RecordInput) (DeliveryRecord, error) {
	if in.OrderID == "" {
		return DeliveryRecord{}, ErrOrderIDRequired
	}
	if in.Buyer == "" {
		return DeliveryRecord{}, ErrBuyerRequired
	}
	if in.Phone == "" {
		return DeliveryRecord{}, ErrPhoneRequired
	}

	record := DeliveryRecord{
		OrderID:     in.OrderID,
		Buyer:       in.Buyer,
		Phone:       in.Phone,
		ItemID:      in.ItemID,
		Cost:        in.Cost,
		SaleAmount:  in.SaleAmount,
		Profit:      in.SaleAmount.Sub(in.Cost),
		DeliveredAt: r.clock.Now().UTC(),
	}
	if err := r.store.PutDelivery(ctx, record); err != nil {
		return DeliveryRecord{}, fmt.Errorf("record delivery %s: %w", in.OrderID, err)
	}
	r.logger.Info("fulfill delivery recorded",
		"order_id", record.OrderID,
		"item_id", record.ItemID,
		"profit", record.Profit.String(),
	)

	return record, nil
}

// Lookup returns the record for orderID. The boolean is false when none exists.
func (r *Recorder) Lookup(ctx context.Context, orderID string) (DeliveryRecord, bool, error) {
	record, err := r.store.GetDelivery(ctx, orderID)
	if errors.Is(err, ErrNotFound) {
		return DeliveryRecord{}, false, nil
	}
	if err != nil {
		return DeliveryRecord{}, false, fmt.Errorf("lookup delivery %s: %w", orderID, err)
	}

	return record, true, nil
}

// TotalProfit sums profit over all records.
func (r *Recorder) TotalProfit(ctx context.Context) (decimal.Decimal, error) {
	total, err := r.store.SumProfit(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum profit: %w", err)
	}

	return total, nil
}

// PhoneOwner returns the buyer bound to phone. The boolean is false when unbound.
func (r *Recorder) PhoneOwner(ctx context.Context, phone string) (string, bool, error) {
	owner, err := r.store.PhoneOwner(ctx, phone)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("phone owner: %w", err)
	}

	return owner, true, nil
}

// PhonesForBuyer lists phones currently bound to buyer.
func (r *Recorder) PhonesForBuyer(ctx context.Context, buyer string) ([]string, error) {
	phones, err := r.store.PhonesOwnedBy(ctx, buyer)
	if err != nil {
		return nil, fmt.Errorf("phones for buyer: %w", err)
	}

	return phones, nil
}

// FindByPhone returns the newest record of buyer that delivered phone.
func (r *Recorder) FindByPhone(ctx context.Context, buyer, phone string) (DeliveryRecord, bool, error) {
	records, err := r.store.ListDeliveriesByBuyer(ctx, buyer)
	if err != nil {
		return DeliveryRecord{}, false, fmt.Errorf("deliveries for buyer: %w", err)
	}
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Phone == phone {
			return records[i], true, nil
		}
	}

	return DeliveryRecord{}, false, nil
}

// BindPhone binds phone to buyer. The previous owner, if any, is replaced.
func (r *Recorder) BindPhone(ctx context.Context, phone, buyer string) error {
	if phone == "" {
		return ErrPhoneRequired
	}
	if buyer == "" {
		return ErrBuyerRequired
	}
	if err := r.store.BindPhone(ctx, phone, buyer); err != nil {
		return fmt.Errorf("bind phone: %w", err)
	}

	return nil
}

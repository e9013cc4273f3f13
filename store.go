package fulfill

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DeliveryRecord is the durable trace of a fulfilled order.
type DeliveryRecord struct {
	OrderID     string          `json:"order_id"`
	Buyer       string          `json:"buyer"`
	Phone       string          `json:"phone"`
	ItemID      int64           `json:"item_id"`
	Cost        decimal.Decimal `json:"cost"`
	SaleAmount  decimal.Decimal `json:"sale_amount"`
	Profit      decimal.Decimal `json:"profit"`
	DeliveredAt time.Time       `json:"delivered_at"`
}

// DeliveryStore persists delivery records and the phone ownership index.
type DeliveryStore interface {
	// PutDelivery inserts or replaces the record keyed by its OrderID and binds
	// record.Phone to record.Buyer in the same operation.
	PutDelivery(ctx context.Context, record DeliveryRecord) error
	// GetDelivery returns ErrNotFound when no record exists.
	GetDelivery(ctx context.Context, orderID string) (DeliveryRecord, error)
	// ListDeliveriesByBuyer returns the buyer's records, oldest first.
	ListDeliveriesByBuyer(ctx context.Context, buyer string) ([]DeliveryRecord, error)
	// PhoneOwner returns ErrNotFound when the phone is not bound.
	PhoneOwner(ctx context.Context, phone string) (string, error)
	// PhonesOwnedBy returns the phones currently bound to buyer.
	PhonesOwnedBy(ctx context.Context, buyer string) ([]string, error)
	// BindPhone binds phone to buyer, replacing any previous owner.
	BindPhone(ctx context.Context, phone, buyer string) error
	// SumProfit returns the sum of Profit over all records.
	SumProfit(ctx context.Context) (decimal.Decimal, error)
}

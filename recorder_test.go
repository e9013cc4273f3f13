package fulfill

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestRecorderRecordComputesProfit(t *testing.T) {
	store := newFakeDeliveryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	recorder := NewRecorder(store, WithRecorderClock(fixedClock{now: now}))

	record, err := recorder.Record(context.Background(), RecordInput{
		OrderID:    "501",
		Buyer:      "alice",
		Phone:      "62123456789",
		ItemID:     10,
		Cost:       dec("80"),
		SaleAmount: dec("150.25"),
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !record.Profit.Equal(dec("70.25")) {
		t.Fatalf("expected profit 70.25, got %s", record.Profit)
	}
	if !record.DeliveredAt.Equal(now) {
		t.Fatalf("unexpected delivered at %s", record.DeliveredAt)
	}

	owner, found, err := recorder.PhoneOwner(context.Background(), "62123456789")
	if err != nil || !found || owner != "alice" {
		t.Fatalf("expected phone bound to alice, got %q found=%v err=%v", owner, found, err)
	}
}

func TestRecorderOverwriteKeepsOneRecord(t *testing.T) {
	store := newFakeDeliveryStore()
	recorder := NewRecorder(store)
	ctx := context.Background()

	if _, err := recorder.Record(ctx, RecordInput{OrderID: "1", Buyer: "alice", Phone: "111", Cost: dec("10"), SaleAmount: dec("20")}); err != nil {
		t.Fatalf("first record: %v", err)
	}
	if _, err := recorder.Record(ctx, RecordInput{OrderID: "1", Buyer: "alice", Phone: "222", Cost: dec("5"), SaleAmount: dec("20")}); err != nil {
		t.Fatalf("second record: %v", err)
	}

	if len(store.records) != 1 {
		t.Fatalf("expected one record, got %d", len(store.records))
	}
	record, found, err := recorder.Lookup(ctx, "1")
	if err != nil || !found {
		t.Fatalf("lookup: found=%v err=%v", found, err)
	}
	if record.Phone != "222" || !record.Profit.Equal(dec("15")) {
		t.Fatalf("expected second call's data, got %+v", record)
	}
}

func TestRecorderTotalProfit(t *testing.T) {
	recorder := NewRecorder(newFakeDeliveryStore())
	ctx := context.Background()

	inputs := []RecordInput{
		{OrderID: "1", Buyer: "a", Phone: "1", Cost: dec("80"), SaleAmount: dec("100")},
		{OrderID: "2", Buyer: "b", Phone: "2", Cost: dec("30.10"), SaleAmount: dec("30")},
		{OrderID: "3", Buyer: "c", Phone: "3", Cost: dec("0.1"), SaleAmount: dec("0.3")},
	}
	for _, in := range inputs {
		if _, err := recorder.Record(ctx, in); err != nil {
			t.Fatalf("record %s: %v", in.OrderID, err)
		}
	}

	total, err := recorder.TotalProfit(ctx)
	if err != nil {
		t.Fatalf("total profit: %v", err)
	}
	if !total.Equal(dec("20.1")) {
		t.Fatalf("expected total 20.1, got %s", total)
	}
}

func TestRecorderLookupMissing(t *testing.T) {
	recorder := NewRecorder(newFakeDeliveryStore())

	_, found, err := recorder.Lookup(context.Background(), "missing")
	if err != nil || found {
		t.Fatalf("expected not found without error, got found=%v err=%v", found, err)
	}
}

func TestRecorderRejectsIncompleteInput(t *testing.T) {
	recorder := NewRecorder(newFakeDeliveryStore())
	ctx := context.Background()

	if _, err := recorder.Record(ctx, RecordInput{Buyer: "a", Phone: "1"}); !errors.Is(err, ErrOrderIDRequired) {
		t.Fatalf("expected ErrOrderIDRequired, got %v", err)
	}
	if _, err := recorder.Record(ctx, RecordInput{OrderID: "1", Phone: "1"}); !errors.Is(err, ErrBuyerRequired) {
		t.Fatalf("expected ErrBuyerRequired, got %v", err)
	}
	if _, err := recorder.Record(ctx, RecordInput{OrderID: "1", Buyer: "a"}); !errors.Is(err, ErrPhoneRequired) {
		t.Fatalf("expected ErrPhoneRequired, got %v", err)
	}
}

func TestRecorderStoreFailure(t *testing.T) {
	store := newFakeDeliveryStore()
	store.err = errors.New("db down")
	recorder := NewRecorder(store)

	if _, err := recorder.Record(context.Background(), RecordInput{OrderID: "1", Buyer: "a", Phone: "1"}); err == nil {
		t.Fatalf("expected store error")
	}
	if _, _, err := recorder.Lookup(context.Background(), "1"); err == nil {
		t.Fatalf("expected lookup error")
	}
}

func TestRecorderBindPhoneLastWriterWins(t *testing.T) {
	recorder := NewRecorder(newFakeDeliveryStore())
	ctx := context.Background()

	if err := recorder.BindPhone(ctx, "79990000000", "alice"); err != nil {
		t.Fatalf("bind alice: %v", err)
	}
	if err := recorder.BindPhone(ctx, "79990000000", "bob"); err != nil {
		t.Fatalf("bind bob: %v", err)
	}

	owner, _, _ := recorder.PhoneOwner(ctx, "79990000000")
	if owner != "bob" {
		t.Fatalf("expected bob to own the phone, got %q", owner)
	}
	phones, err := recorder.PhonesForBuyer(ctx, "alice")
	if err != nil || len(phones) != 0 {
		t.Fatalf("expected alice to own no phones, got %v err=%v", phones, err)
	}
}

func TestRecorderFindByPhoneReturnsNewest(t *testing.T) {
	recorder := NewRecorder(newFakeDeliveryStore())
	ctx := context.Background()

	for _, in := range []RecordInput{
		{OrderID: "1", Buyer: "alice", Phone: "111", ItemID: 1},
		{OrderID: "2", Buyer: "alice", Phone: "222", ItemID: 2},
		{OrderID: "3", Buyer: "alice", Phone: "111", ItemID: 3},
	} {
		if _, err := recorder.Record(ctx, in); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	record, found, err := recorder.FindByPhone(ctx, "alice", "111")
	if err != nil || !found {
		t.Fatalf("find: found=%v err=%v", found, err)
	}
	if record.OrderID != "3" {
		t.Fatalf("expected newest order 3, got %s", record.OrderID)
	}

	phones, _ := recorder.PhonesForBuyer(ctx, "alice")
	if !reflect.DeepEqual(phones, []string{"111", "222"}) {
		t.Fatalf("unexpected phones %v", phones)
	}
}

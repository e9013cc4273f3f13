package fulfill

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeHistory struct {
	orders map[string][]HistoricOrder
	err    error
	calls  int
}

func (h *fakeHistory) DeliveredOrders(_ context.Context, buyer string) ([]HistoricOrder, error) {
	h.calls++
	return h.orders[buyer], h.err
}

type fakeFetcher struct {
	code  string
	err   error
	items []int64
}

func (f *fakeFetcher) FetchCode(_ context.Context, itemID int64) (string, error) {
	f.items = append(f.items, itemID)
	return f.code, f.err
}

type codeFixture struct {
	store     *fakeDeliveryStore
	recorder  *Recorder
	fetcher   *fakeFetcher
	history   *fakeHistory
	messenger *recordingMessenger
	notifier  *recordingNotifier
	handler   *CodeHandler
}

func newCodeFixture() *codeFixture {
	f := &codeFixture{
		store:     newFakeDeliveryStore(),
		fetcher:   &fakeFetcher{code: "24680"},
		history:   &fakeHistory{orders: map[string][]HistoricOrder{}},
		messenger: &recordingMessenger{},
		notifier:  &recordingNotifier{},
	}
	f.recorder = NewRecorder(f.store)
	f.handler = NewCodeHandler(CodeHandlerDeps{
		Settings:  staticSettings{settings: DefaultSettings()},
		Recorder:  f.recorder,
		Fetcher:   f.fetcher,
		History:   f.history,
		Messenger: f.messenger,
		Notifier:  f.notifier,
	})

	return f
}

func TestCodeHandlerRejectsForeignPhone(t *testing.T) {
	f := newCodeFixture()
	ctx := context.Background()
	if err := f.recorder.BindPhone(ctx, "79990000000", "alice"); err != nil {
		t.Fatalf("bind: %v", err)
	}

	err := f.handler.HandleMessage(ctx, ChatMessage{Sender: "bob", ChatID: "c-bob", Text: "cd 79990000000"})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(f.fetcher.items) != 0 {
		t.Fatalf("expected no marketplace call")
	}
	messages := f.messenger.all()
	if len(messages) != 1 || !strings.Contains(messages[0].Text, "does not belong to you") {
		t.Fatalf("expected ownership rejection, got %+v", messages)
	}
	if messages[0].ChatID != "c-bob" {
		t.Fatalf("reply sent to wrong chat %q", messages[0].ChatID)
	}
}

func TestCodeHandlerDeliversCode(t *testing.T) {
	f := newCodeFixture()
	ctx := context.Background()
	if _, err := f.recorder.Record(ctx, RecordInput{OrderID: "501", Buyer: "alice", Phone: "62123456789", ItemID: 10}); err != nil {
		t.Fatalf("record: %v", err)
	}

	if err := f.handler.HandleMessage(ctx, ChatMessage{Sender: "alice", ChatID: "c1", Text: "  CD 62123456789 "}); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(f.fetcher.items) != 1 || f.fetcher.items[0] != 10 {
		t.Fatalf("expected code fetch for item 10, got %v", f.fetcher.items)
	}
	messages := f.messenger.all()
	if len(messages) != 2 {
		t.Fatalf("expected wait notice and code, got %d messages", len(messages))
	}
	if !strings.Contains(messages[0].Text, "wait") {
		t.Fatalf("expected wait notice first, got %q", messages[0].Text)
	}
	if !strings.Contains(messages[1].Text, "24680") || !strings.Contains(messages[1].Text, "https://funpay.com/orders/501/") {
		t.Fatalf("unexpected code message %q", messages[1].Text)
	}
	if f.history.calls != 0 {
		t.Fatalf("recorded phone must not consult order history")
	}
}

func TestCodeHandlerFallsBackToHistory(t *testing.T) {
	f := newCodeFixture()
	f.history.orders["carol"] = []HistoricOrder{{OrderID: "77", Phone: "15550001111", ItemID: 42}}
	ctx := context.Background()

	if err := f.handler.HandleMessage(ctx, ChatMessage{Sender: "carol", Text: "cd 15550001111"}); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(f.fetcher.items) != 1 || f.fetcher.items[0] != 42 {
		t.Fatalf("expected code fetch for item 42, got %v", f.fetcher.items)
	}
	owner, found, _ := f.recorder.PhoneOwner(ctx, "15550001111")
	if !found || owner != "carol" {
		t.Fatalf("expected phone bound to carol after resolution, got %q", owner)
	}
}

func TestCodeHandlerUnknownPhone(t *testing.T) {
	f := newCodeFixture()

	if err := f.handler.HandleMessage(context.Background(), ChatMessage{Sender: "dave", Text: "cd 123"}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	messages := f.messenger.all()
	if len(messages) != 1 || !strings.Contains(messages[0].Text, "not found") {
		t.Fatalf("expected not found reply, got %+v", messages)
	}
	if len(f.fetcher.items) != 0 {
		t.Fatalf("expected no marketplace call")
	}
}

func TestCodeHandlerMissingItemNotifiesOperators(t *testing.T) {
	f := newCodeFixture()
	f.history.orders["erin"] = []HistoricOrder{{OrderID: "90", Phone: "100200"}}

	if err := f.handler.HandleMessage(context.Background(), ChatMessage{Sender: "erin", Text: "cd 100200"}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	alerts := f.notifier.all()
	if len(alerts) != 1 || alerts[0].OrderID != "90" {
		t.Fatalf("expected operator alert for order 90, got %+v", alerts)
	}
	if len(f.fetcher.items) != 0 {
		t.Fatalf("expected no marketplace call")
	}
	messages := f.messenger.all()
	if len(messages) != 1 || !strings.Contains(messages[0].Text, "operator") {
		t.Fatalf("expected manual follow-up reply, got %+v", messages)
	}
}

func TestCodeHandlerCodeUnavailable(t *testing.T) {
	f := newCodeFixture()
	f.fetcher.err = ErrCodeUnavailable
	ctx := context.Background()
	if _, err := f.recorder.Record(ctx, RecordInput{OrderID: "1", Buyer: "alice", Phone: "555", ItemID: 3}); err != nil {
		t.Fatalf("record: %v", err)
	}

	if err := f.handler.HandleMessage(ctx, ChatMessage{Sender: "alice", Text: "cd 555"}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	messages := f.messenger.all()
	if len(messages) != 2 || !strings.Contains(messages[1].Text, "try again later") {
		t.Fatalf("expected failure reply, got %+v", messages)
	}
	if len(f.notifier.all()) != 1 {
		t.Fatalf("expected one operator alert")
	}
}

func TestCodeHandlerListsPhones(t *testing.T) {
	f := newCodeFixture()
	ctx := context.Background()
	if _, err := f.recorder.Record(ctx, RecordInput{OrderID: "1", Buyer: "alice", Phone: "222", ItemID: 1}); err != nil {
		t.Fatalf("record: %v", err)
	}
	f.history.orders["alice"] = []HistoricOrder{
		{OrderID: "2", Phone: "111"},
		{OrderID: "3", Phone: "333"},
	}
	if err := f.recorder.BindPhone(ctx, "333", "mallory"); err != nil {
		t.Fatalf("bind: %v", err)
	}

	if err := f.handler.HandleMessage(ctx, ChatMessage{Sender: "alice", Text: "cd"}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	messages := f.messenger.all()
	if len(messages) != 1 {
		t.Fatalf("expected one reply, got %d", len(messages))
	}
	text := messages[0].Text
	if !strings.Contains(text, "• 111\n• 222\n") {
		t.Fatalf("expected sorted phone list, got %q", text)
	}
	if strings.Contains(text, "333") {
		t.Fatalf("phone owned by another buyer must not be listed")
	}
}

func TestCodeHandlerNoPhones(t *testing.T) {
	f := newCodeFixture()

	if err := f.handler.HandleMessage(context.Background(), ChatMessage{Sender: "zed", Text: "Cd"}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	messages := f.messenger.all()
	if len(messages) != 1 || !strings.Contains(messages[0].Text, "no phone numbers") {
		t.Fatalf("unexpected reply %+v", messages)
	}
}

func TestCodeHandlerIgnoresOtherText(t *testing.T) {
	f := newCodeFixture()

	for _, text := range []string{"hello", "cd abc", "cdd 123", "+"} {
		if err := f.handler.HandleMessage(context.Background(), ChatMessage{Sender: "x", Text: text}); err != nil {
			t.Fatalf("handle %q: %v", text, err)
		}
	}
	if len(f.messenger.all()) != 0 {
		t.Fatalf("expected no replies")
	}
}

func TestCodeHandlerStoreErrorApologizes(t *testing.T) {
	f := newCodeFixture()
	f.store.err = errors.New("db down")
	ctx := context.Background()
	if err := f.recorder.BindPhone(ctx, "1", "alice"); err != nil {
		t.Fatalf("bind: %v", err)
	}

	err := f.handler.HandleMessage(ctx, ChatMessage{Sender: "alice", Text: "cd 1"})
	if err == nil {
		t.Fatalf("expected error")
	}
	messages := f.messenger.all()
	if len(messages) != 1 || !strings.Contains(messages[0].Text, "technical error") {
		t.Fatalf("expected apology, got %+v", messages)
	}
	if len(f.notifier.all()) != 1 {
		t.Fatalf("expected one operator alert")
	}
}

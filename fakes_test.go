package fulfill

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type fakeMarketplace struct {
	mu         sync.Mutex
	candidates []Candidate
	searchErr  error
	buy        map[int64]buyResult
	codes      []codesResult
	searches   []SearchQuery
	bought     []int64
	codeCalls  int
}

type buyResult struct {
	item DeliveredItem
	err  error
}

type codesResult struct {
	codes []LoginCode
	err   error
}

func (m *fakeMarketplace) Search(_ context.Context, query SearchQuery) ([]Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches = append(m.searches, query)
	return m.candidates, m.searchErr
}

func (m *fakeMarketplace) Buy(_ context.Context, itemID int64) (DeliveredItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bought = append(m.bought, itemID)
	res, ok := m.buy[itemID]
	if !ok {
		return DeliveredItem{}, &MarketError{Status: 400, Reasons: []string{"item not configured"}}
	}
	return res.item, res.err
}

func (m *fakeMarketplace) LoginCodes(_ context.Context, _ int64) ([]LoginCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.codeCalls
	m.codeCalls++
	if len(m.codes) == 0 {
		return nil, nil
	}
	if idx >= len(m.codes) {
		idx = len(m.codes) - 1
	}
	return m.codes[idx].codes, m.codes[idx].err
}

func (m *fakeMarketplace) boughtIDs() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.bought...)
}

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []Alert
	err    error
}

func (n *recordingNotifier) NotifyOperators(_ context.Context, alert Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	return n.err
}

func (n *recordingNotifier) all() []Alert {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Alert(nil), n.alerts...)
}

type recordingMessenger struct {
	mu       sync.Mutex
	messages []Message
	err      error
	panicOn  string
}

func (m *recordingMessenger) SendMessage(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.panicOn != "" && msg.Text != apologyMessage {
		panic(m.panicOn)
	}
	m.messages = append(m.messages, msg)
	return m.err
}

func (m *recordingMessenger) all() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.messages...)
}

type fakeRefunder struct {
	mu     sync.Mutex
	orders []string
	err    error
}

func (r *fakeRefunder) Refund(_ context.Context, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, orderID)
	return r.err
}

type staticSettings struct {
	settings Settings
	err      error
}

func (s staticSettings) LoadSettings(context.Context) (Settings, error) {
	return s.settings, s.err
}

func (s staticSettings) SaveSettings(context.Context, Settings) error {
	return s.err
}

type fakeDeliveryStore struct {
	mu      sync.Mutex
	records map[string]DeliveryRecord
	owners  map[string]string
	order   []string
	err     error
}

func newFakeDeliveryStore() *fakeDeliveryStore {
	return &fakeDeliveryStore{
		records: make(map[string]DeliveryRecord),
		owners:  make(map[string]string),
	}
}

func (s *fakeDeliveryStore) PutDelivery(_ context.Context, record DeliveryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.records[record.OrderID]; !ok {
		s.order = append(s.order, record.OrderID)
	}
	s.records[record.OrderID] = record
	s.owners[record.Phone] = record.Buyer
	return nil
}

func (s *fakeDeliveryStore) GetDelivery(_ context.Context, orderID string) (DeliveryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return DeliveryRecord{}, s.err
	}
	record, ok := s.records[orderID]
	if !ok {
		return DeliveryRecord{}, ErrNotFound
	}
	return record, nil
}

func (s *fakeDeliveryStore) ListDeliveriesByBuyer(_ context.Context, buyer string) ([]DeliveryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []DeliveryRecord
	for _, id := range s.order {
		if s.records[id].Buyer == buyer {
			out = append(out, s.records[id])
		}
	}
	return out, s.err
}

func (s *fakeDeliveryStore) PhoneOwner(_ context.Context, phone string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, ok := s.owners[phone]
	if !ok {
		return "", ErrNotFound
	}
	return owner, nil
}

func (s *fakeDeliveryStore) PhonesOwnedBy(_ context.Context, buyer string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var phones []string
	for phone, owner := range s.owners {
		if owner == buyer {
			phones = append(phones, phone)
		}
	}
	sort.Strings(phones)
	return phones, nil
}

func (s *fakeDeliveryStore) BindPhone(_ context.Context, phone, buyer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[phone] = buyer
	return nil
}

func (s *fakeDeliveryStore) SumProfit(context.Context) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, record := range s.records {
		total = total.Add(record.Profit)
	}
	return total, s.err
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func noWait() AcquirerConfig {
	return AcquirerConfig{Sleeper: func(ctx context.Context, _ time.Duration) error { return ctx.Err() }}
}

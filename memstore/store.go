// Package memstore keeps delivery records, the phone index and settings in
// process memory. Contents are lost on restart.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/velmie/fulfill"
)

// Store is a concurrency-safe in-memory fulfill.DeliveryStore and fulfill.SettingsStore.
type Store struct {
	mu         sync.RWMutex
	deliveries map[string]fulfill.DeliveryRecord
	byBuyer    map[string][]string
	owners     map[string]string
	settings   *fulfill.Settings
}

var _ fulfill.DeliveryStore = (*Store)(nil)
var _ fulfill.SettingsStore = (*Store)(nil)

// New constructs an empty Store.
func New() *Store {
	return &Store{
		deliveries: make(map[string]fulfill.DeliveryRecord),
		byBuyer:    make(map[string][]string),
		owners:     make(map[string]string),
	}
}

// PutDelivery implements fulfill.DeliveryStore.
func (s *Store) PutDelivery(_ context.Context, record fulfill.DeliveryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.deliveries[record.OrderID]; ok {
		s.byBuyer[prev.Buyer] = remove(s.byBuyer[prev.Buyer], record.OrderID)
	}
	s.deliveries[record.OrderID] = record
	s.byBuyer[record.Buyer] = append(s.byBuyer[record.Buyer], record.OrderID)
	s.owners[record.Phone] = record.Buyer

	return nil
}

// GetDelivery implements fulfill.DeliveryStore.
func (s *Store) GetDelivery(_ context.Context, orderID string) (fulfill.DeliveryRecord, error) {
	s.mu.RLock()
	record, ok := s.deliveries[orderID]
	s.mu.RUnlock()
	if !ok {
		return fulfill.DeliveryRecord{}, fulfill.ErrNotFound
	}

	return record, nil
}

// ListDeliveriesByBuyer implements fulfill.DeliveryStore.
func (s *Store) ListDeliveriesByBuyer(_ context.Context, buyer string) ([]fulfill.DeliveryRecord, error) {
	s.mu.RLock()
	ids := s.byBuyer[buyer]
	records := make([]fulfill.DeliveryRecord, 0, len(ids))
	for _, id := range ids {
		records = append(records, s.deliveries[id])
	}
	s.mu.RUnlock()

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].DeliveredAt.Before(records[j].DeliveredAt)
	})

	return records, nil
}

// PhoneOwner implements fulfill.DeliveryStore.
func (s *Store) PhoneOwner(_ context.Context, phone string) (string, error) {
	s.mu.RLock()
	owner, ok := s.owners[phone]
	s.mu.RUnlock()
	if !ok {
		return "", fulfill.ErrNotFound
	}

	return owner, nil
}

// PhonesOwnedBy implements fulfill.DeliveryStore.
func (s *Store) PhonesOwnedBy(_ context.Context, buyer string) ([]string, error) {
	s.mu.RLock()
	phones := make([]string, 0)
	for phone, owner := range s.owners {
		if owner == buyer {
			phones = append(phones, phone)
		}
	}
	s.mu.RUnlock()
	sort.Strings(phones)

	return phones, nil
}

// BindPhone implements fulfill.DeliveryStore.
func (s *Store) BindPhone(_ context.Context, phone, buyer string) error {
	s.mu.Lock()
	s.owners[phone] = buyer
	s.mu.Unlock()

	return nil
}

// SumProfit implements fulfill.DeliveryStore.
func (s *Store) SumProfit(context.Context) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, record := range s.deliveries {
		total = total.Add(record.Profit)
	}

	return total, nil
}

// LoadSettings implements fulfill.SettingsStore.
func (s *Store) LoadSettings(context.Context) (fulfill.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.settings == nil {
		return fulfill.DefaultSettings(), nil
	}

	return cloneSettings(*s.settings), nil
}

// SaveSettings implements fulfill.SettingsStore.
func (s *Store) SaveSettings(_ context.Context, settings fulfill.Settings) error {
	settings = settings.WithDefaults()
	if err := settings.Validate(); err != nil {
		return err
	}
	stored := cloneSettings(settings)

	s.mu.Lock()
	s.settings = &stored
	s.mu.Unlock()

	return nil
}

func cloneSettings(settings fulfill.Settings) fulfill.Settings {
	settings.Regions = append([]fulfill.Region(nil), settings.Regions...)
	settings.Origins = append([]string(nil), settings.Origins...)
	settings.Operators = append([]string(nil), settings.Operators...)

	return settings
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}

	return out
}

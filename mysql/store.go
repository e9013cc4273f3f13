package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/velmie/fulfill"
)

// Executor runs statements on a *sql.DB or *sql.Tx.
type Executor interface {
	// ExecContext executes a statement with the provided context.
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Store implements fulfill.DeliveryStore and fulfill.SettingsStore on MySQL.
type Store struct {
	db      *sql.DB
	cfg     Config
	tables  Tables
	queries queries
}

var _ fulfill.DeliveryStore = (*Store)(nil)
var _ fulfill.SettingsStore = (*Store)(nil)

// NewStore constructs a MySQL store with validated configuration.
func NewStore(db *sql.DB, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, ErrDBRequired
	}

	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg = cfg.withDefaults()

	tables, err := TablesWithPrefix(cfg.TablePrefix)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:      db,
		cfg:     cfg,
		tables:  tables,
		queries: newQueries(tables),
	}, nil
}

// MustNewStore constructs a MySQL store or panics on error.
func MustNewStore(db *sql.DB, opts ...Option) *Store {
	store, err := NewStore(db, opts...)
	if err != nil {
		panic(err)
	}

	return store
}

// Tables returns the table names used by the store.
func (s *Store) Tables() Tables {
	return s.tables
}

// Migrate creates missing tables.
func (s *Store) Migrate(ctx context.Context) error {
	statements, err := Schema(s.tables)
	if err != nil {
		return err
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("fulfill mysql: migrate failed: %w", err)
		}
	}
	s.cfg.Logger.Info("fulfill mysql schema ready", "deliveries", s.tables.Deliveries)

	return nil
}

// PutDelivery upserts the record and binds its phone in one transaction.
func (s *Store) PutDelivery(ctx context.Context, record fulfill.DeliveryRecord) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("fulfill mysql: begin tx failed: %w", err)
	}

	if _, err := tx.ExecContext(
		ctx,
		s.queries.upsertDelivery,
		record.OrderID,
		record.Buyer,
		record.Phone,
		record.ItemID,
		record.Cost,
		record.SaleAmount,
		record.Profit,
		record.DeliveredAt.UTC(),
	); err != nil {
		return rollbackWith(tx, fmt.Errorf("fulfill mysql: upsert delivery failed: %w", err))
	}
	if err := s.bindPhone(ctx, tx, record.Phone, record.Buyer); err != nil {
		return rollbackWith(tx, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("fulfill mysql: commit failed: %w", err)
	}

	return nil
}

// GetDelivery returns fulfill.ErrNotFound when the order has no record.
func (s *Store) GetDelivery(ctx context.Context, orderID string) (fulfill.DeliveryRecord, error) {
	record, err := scanDelivery(s.db.QueryRowContext(ctx, s.queries.selectDelivery, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return fulfill.DeliveryRecord{}, fulfill.ErrNotFound
	}
	if err != nil {
		return fulfill.DeliveryRecord{}, fmt.Errorf("fulfill mysql: select delivery failed: %w", err)
	}

	return record, nil
}

// ListDeliveriesByBuyer returns the buyer's records, oldest first.
func (s *Store) ListDeliveriesByBuyer(ctx context.Context, buyer string) ([]fulfill.DeliveryRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.queries.selectByBuyer, buyer)
	if err != nil {
		return nil, fmt.Errorf("fulfill mysql: select deliveries failed: %w", err)
	}
	defer rows.Close()

	records := make([]fulfill.DeliveryRecord, 0)
	for rows.Next() {
		record, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("fulfill mysql: scan failed: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fulfill mysql: rows failed: %w", err)
	}

	return records, nil
}

// PhoneOwner returns fulfill.ErrNotFound when the phone is not bound.
func (s *Store) PhoneOwner(ctx context.Context, phone string) (string, error) {
	var buyer string
	err := s.db.QueryRowContext(ctx, s.queries.selectOwner, phone).Scan(&buyer)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fulfill.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("fulfill mysql: select owner failed: %w", err)
	}

	return buyer, nil
}

// PhonesOwnedBy returns the phones bound to buyer in ascending order.
func (s *Store) PhonesOwnedBy(ctx context.Context, buyer string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.queries.selectOwned, buyer)
	if err != nil {
		return nil, fmt.Errorf("fulfill mysql: select phones failed: %w", err)
	}
	defer rows.Close()

	phones := make([]string, 0)
	for rows.Next() {
		var phone string
		if err := rows.Scan(&phone); err != nil {
			return nil, fmt.Errorf("fulfill mysql: scan failed: %w", err)
		}
		phones = append(phones, phone)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fulfill mysql: rows failed: %w", err)
	}

	return phones, nil
}

// BindPhone binds phone to buyer, replacing any previous owner.
func (s *Store) BindPhone(ctx context.Context, phone, buyer string) error {
	return s.bindPhone(ctx, s.db, phone, buyer)
}

func (s *Store) bindPhone(ctx context.Context, exec Executor, phone, buyer string) error {
	if _, err := exec.ExecContext(ctx, s.queries.upsertOwner, phone, buyer, s.cfg.Clock.Now().UTC()); err != nil {
		return fmt.Errorf("fulfill mysql: upsert owner failed: %w", err)
	}

	return nil
}

// SumProfit returns the total profit over all records.
func (s *Store) SumProfit(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := s.db.QueryRowContext(ctx, s.queries.sumProfit).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("fulfill mysql: sum profit failed: %w", err)
	}

	return total, nil
}

func scanDelivery(row rowScanner) (fulfill.DeliveryRecord, error) {
	var record fulfill.DeliveryRecord
	err := row.Scan(
		&record.OrderID,
		&record.Buyer,
		&record.Phone,
		&record.ItemID,
		&record.Cost,
		&record.SaleAmount,
		&record.Profit,
		&record.DeliveredAt,
	)
	if err != nil {
		return fulfill.DeliveryRecord{}, err
	}
	record.DeliveredAt = record.DeliveredAt.UTC()

	return record, nil
}

func rollbackWith(tx *sql.Tx, err error) error {
	rollbackErr := tx.Rollback()
	if rollbackErr == nil {
		return err
	}

	return errors.Join(err, fmt.Errorf("fulfill mysql: rollback failed: %w", rollbackErr))
}

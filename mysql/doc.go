// Package mysql provides MySQL 8.0+ storage for delivery records, the phone
// ownership index and the settings document.
//
// Writes that touch more than one table run in a READ COMMITTED transaction.
// Delivery records are keyed by order id and upserted with
// INSERT ... ON DUPLICATE KEY UPDATE, so recording an order twice overwrites
// the first record. Money columns are DECIMAL and round-trip through
// shopspring/decimal without floating point conversion.
//
// See Schema for the DDL and Store.Migrate to apply it.
package mysql

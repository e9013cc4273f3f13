package mysql

import "fmt"

const deliveriesTemplate = `CREATE TABLE IF NOT EXISTS %s (
	order_id VARCHAR(64) NOT NULL,
	buyer VARCHAR(128) NOT NULL,
	phone VARCHAR(32) NOT NULL,
	item_id BIGINT NOT NULL,
	cost DECIMAL(18,4) NOT NULL,
	sale_amount DECIMAL(18,4) NOT NULL,
	profit DECIMAL(18,4) NOT NULL,
	delivered_at TIMESTAMP(6) NOT NULL,
	updated_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
	PRIMARY KEY (order_id),
	INDEX idx_buyer_delivered (buyer, delivered_at)
);`

const phoneOwnersTemplate = `CREATE TABLE IF NOT EXISTS %s (
	phone VARCHAR(32) NOT NULL,
	buyer VARCHAR(128) NOT NULL,
	updated_at TIMESTAMP(6) NOT NULL,
	PRIMARY KEY (phone),
	INDEX idx_buyer (buyer)
);`

const settingsTemplate = `CREATE TABLE IF NOT EXISTS %s (
	id TINYINT NOT NULL,
	document JSON NOT NULL,
	updated_at TIMESTAMP(6) NOT NULL,
	PRIMARY KEY (id)
);`

// Schema returns the DDL statements for tables, in creation order.
func Schema(tables Tables) ([]string, error) {
	statements := make([]string, 0, 3)
	for _, pair := range []struct {
		template string
		table    string
	}{
		{deliveriesTemplate, tables.Deliveries},
		{phoneOwnersTemplate, tables.PhoneOwners},
		{settingsTemplate, tables.Settings},
	} {
		name, err := sanitizeTableName(pair.table)
		if err != nil {
			return nil, err
		}
		statements = append(statements, fmt.Sprintf(pair.template, name))
	}

	return statements, nil
}

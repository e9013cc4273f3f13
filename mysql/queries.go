package mysql

import "fmt"

const settingsRowID = 1

type queries struct {
	upsertDelivery string
	selectDelivery string
	selectByBuyer  string
	upsertOwner    string
	selectOwner    string
	selectOwned    string
	sumProfit      string
	selectSettings string
	upsertSettings string
}

func newQueries(tables Tables) queries {
	cols := "order_id, buyer, phone, item_id, cost, sale_amount, profit, delivered_at"

	return queries{
		upsertDelivery: fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?) "+
				"ON DUPLICATE KEY UPDATE buyer = VALUES(buyer), phone = VALUES(phone), item_id = VALUES(item_id), "+
				"cost = VALUES(cost), sale_amount = VALUES(sale_amount), profit = VALUES(profit), "+
				"delivered_at = VALUES(delivered_at)",
			tables.Deliveries,
			cols,
		),
		selectDelivery: fmt.Sprintf("SELECT %s FROM %s WHERE order_id = ?", cols, tables.Deliveries),
		selectByBuyer: fmt.Sprintf(
			"SELECT %s FROM %s WHERE buyer = ? ORDER BY delivered_at ASC, order_id ASC",
			cols,
			tables.Deliveries,
		),
		upsertOwner: fmt.Sprintf(
			"INSERT INTO %s (phone, buyer, updated_at) VALUES (?, ?, ?) "+
				"ON DUPLICATE KEY UPDATE buyer = VALUES(buyer), updated_at = VALUES(updated_at)",
			tables.PhoneOwners,
		),
		selectOwner:    fmt.Sprintf("SELECT buyer FROM %s WHERE phone = ?", tables.PhoneOwners),
		selectOwned:    fmt.Sprintf("SELECT phone FROM %s WHERE buyer = ? ORDER BY phone ASC", tables.PhoneOwners),
		sumProfit:      fmt.Sprintf("SELECT COALESCE(SUM(profit), 0) FROM %s", tables.Deliveries),
		selectSettings: fmt.Sprintf("SELECT document FROM %s WHERE id = ?", tables.Settings),
		upsertSettings: fmt.Sprintf(
			"INSERT INTO %s (id, document, updated_at) VALUES (?, ?, ?) "+
				"ON DUPLICATE KEY UPDATE document = VALUES(document), updated_at = VALUES(updated_at)",
			tables.Settings,
		),
	}
}

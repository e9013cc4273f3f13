package mysql

import (
	"fmt"
	"strings"
)

const (
	deliveriesSuffix  = "deliveries"
	phoneOwnersSuffix = "phone_owners"
	settingsSuffix    = "settings"
)

// Tables holds the sanitized table names used by the store.
type Tables struct {
	Deliveries  string
	PhoneOwners string
	Settings    string
}

// TablesWithPrefix derives table names from prefix. An optional schema may
// be given as "schema.prefix_".
func TablesWithPrefix(prefix string) (Tables, error) {
	tables := Tables{
		Deliveries:  prefix + deliveriesSuffix,
		PhoneOwners: prefix + phoneOwnersSuffix,
		Settings:    prefix + settingsSuffix,
	}
	for _, name := range []string{tables.Deliveries, tables.PhoneOwners, tables.Settings} {
		if _, err := sanitizeTableName(name); err != nil {
			return Tables{}, err
		}
	}

	return tables, nil
}

func sanitizeTableName(name string) (string, error) {
	if name == "" {
		return "", ErrTableNameRequired
	}
	parts := strings.Split(name, ".")
	for _, part := range parts {
		if part == "" {
			return "", fmt.Errorf("%w: %s", ErrInvalidTableName, name)
		}
		for _, r := range part {
			if r == '_' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				continue
			}

			return "", fmt.Errorf("%w: %s", ErrInvalidTableName, name)
		}
	}

	return name, nil
}

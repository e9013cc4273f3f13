package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/velmie/fulfill"
)

// LoadSettings returns the stored settings, or fulfill.DefaultSettings when none were saved.
func (s *Store) LoadSettings(ctx context.Context) (fulfill.Settings, error) {
	var document []byte
	err := s.db.QueryRowContext(ctx, s.queries.selectSettings, settingsRowID).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return fulfill.DefaultSettings(), nil
	}
	if err != nil {
		return fulfill.Settings{}, fmt.Errorf("fulfill mysql: select settings failed: %w", err)
	}

	settings, err := decodeSettings(document)
	if err != nil {
		return fulfill.Settings{}, err
	}

	return settings, nil
}

// SaveSettings validates and replaces the settings document.
func (s *Store) SaveSettings(ctx context.Context, settings fulfill.Settings) error {
	document, err := encodeSettings(settings)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.queries.upsertSettings, settingsRowID, document, s.cfg.Clock.Now().UTC()); err != nil {
		return fmt.Errorf("fulfill mysql: upsert settings failed: %w", err)
	}

	return nil
}

func encodeSettings(settings fulfill.Settings) ([]byte, error) {
	settings = settings.WithDefaults()
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	document, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("fulfill mysql: encode settings failed: %w", err)
	}

	return document, nil
}

func decodeSettings(document []byte) (fulfill.Settings, error) {
	var settings fulfill.Settings
	if err := json.Unmarshal(document, &settings); err != nil {
		return fulfill.Settings{}, fmt.Errorf("fulfill mysql: decode settings failed: %w", err)
	}

	return settings.WithDefaults(), nil
}

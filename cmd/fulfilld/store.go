package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/velmie/fulfill"
	"github.com/velmie/fulfill/mysql"
)

const pingTimeout = 10 * time.Second

func openMySQL(ctx context.Context, cfg MySQLConfig, logger fulfill.Logger) (*sql.DB, *mysql.Store, error) {
	if cfg.DSN == "" {
		return nil, nil, errDSNRequired
	}

	driverCfg, err := parseDSN(cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	connector, err := gomysql.NewConnector(driverCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	db := sql.OpenDB(connector)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()

		return nil, nil, fmt.Errorf("ping db: %w", err)
	}

	store, err := mysql.NewStore(db, mysql.WithTablePrefix(cfg.TablePrefix), mysql.WithLogger(logger))
	if err != nil {
		_ = db.Close()

		return nil, nil, fmt.Errorf("init store: %w", err)
	}

	return db, store, nil
}

// parseDSN parses dsn and forces the options the store depends on: DATETIME columns
// scanned into time.Time in UTC.
func parseDSN(dsn string) (*gomysql.Config, error) {
	cfg, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	return cfg, nil
}

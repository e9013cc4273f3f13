//go:build integration

package main

import (
	"context"
	"strings"
	"testing"

	"github.com/velmie/fulfill/internal/testutil"
)

func TestMigrateAndProfitCLIContainer(t *testing.T) {
	ctx := context.Background()
	env := testutil.StartMySQLContainer(t, ctx)
	bin := testutil.BuildBinary(t, ".")

	code, logs := testutil.RunCLIContainer(t, ctx, env.Network.Name, bin, []string{
		"migrate",
		"--mysql-dsn", env.DSN,
		"--table-prefix", "cli_",
	})
	if code != 0 {
		t.Fatalf("migrate exit code %d logs: %s", code, logs)
	}

	for _, table := range []string{"cli_deliveries", "cli_phone_owners", "cli_settings"} {
		var count int
		err := env.DB.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?",
			table,
		).Scan(&count)
		if err != nil {
			t.Fatalf("lookup %s: %v", table, err)
		}
		if count != 1 {
			t.Fatalf("table %s missing", table)
		}
	}

	code, logs = testutil.RunCLIContainer(t, ctx, env.Network.Name, bin, []string{
		"profit",
		"--mysql-dsn", env.DSN,
		"--table-prefix", "cli_",
	})
	if code != 0 {
		t.Fatalf("profit exit code %d logs: %s", code, logs)
	}
	if !strings.Contains(logs, "total profit: 0.00") {
		t.Fatalf("unexpected profit output: %s", logs)
	}
}

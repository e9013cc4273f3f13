//go:build integration

// Package testutil starts the MySQL server and CLI containers used by
// integration tests.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/go-sql-driver/mysql"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/velmie/fulfill/mysql"
)

// ImageEnv overrides the MySQL image, e.g. FULFILL_TEST_MYSQL_IMAGE=mysql:8.4.
const ImageEnv = "FULFILL_TEST_MYSQL_IMAGE"

const (
	defaultImage   = "mysql:8.0.36"
	dbName         = "fulfill"
	dbUser         = "root"
	dbPassword     = "secret"
	networkAlias   = "mysql"
	startupTimeout = 2 * time.Minute
)

var mysqlPort = nat.Port("3306/tcp")

// MySQLContainer is a MySQL server shared by the test process (DB, HostDSN)
// and by sibling containers on Network (DSN).
type MySQLContainer struct {
	Container testcontainers.Container
	Network   *testcontainers.DockerNetwork
	DB        *sql.DB
	HostDSN   string
	DSN       string
}

// StartMySQLContainer boots MySQL on a private network. The test is skipped
// when Docker is not reachable.
func StartMySQLContainer(t *testing.T, ctx context.Context) MySQLContainer {
	t.Helper()

	dockerNet, err := network.New(ctx)
	if err != nil {
		t.Skipf("docker network unavailable: %v", err)
	}
	t.Cleanup(func() { _ = dockerNet.Remove(ctx) })

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: mysqlRequest(dockerNet.Name),
		Started:          true,
	})
	if err != nil {
		t.Skipf("mysql container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.PortEndpoint(ctx, mysqlPort, "")
	if err != nil {
		t.Fatalf("mysql endpoint: %v", err)
	}
	host, port, err := net.SplitHostPort(endpoint)
	if err != nil {
		t.Fatalf("mysql endpoint %q: %v", endpoint, err)
	}

	hostDSN := buildDSN(host, port)
	db, err := sql.Open("mysql", hostDSN)
	if err != nil {
		t.Fatalf("open mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return MySQLContainer{
		Container: container,
		Network:   dockerNet,
		DB:        db,
		HostDSN:   hostDSN,
		DSN:       buildDSN(networkAlias, mysqlPort.Port()),
	}
}

// MigratedStore returns a store over env with its tables created.
func MigratedStore(t *testing.T, ctx context.Context, env MySQLContainer, opts ...mysql.Option) *mysql.Store {
	t.Helper()

	store, err := mysql.NewStore(env.DB, opts...)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return store
}

func mysqlRequest(networkName string) testcontainers.ContainerRequest {
	image := os.Getenv(ImageEnv)
	if image == "" {
		image = defaultImage
	}

	return testcontainers.ContainerRequest{
		Image:        image,
		ExposedPorts: []string{string(mysqlPort)},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": dbPassword,
			"MYSQL_DATABASE":      dbName,
		},
		Networks:       []string{networkName},
		NetworkAliases: map[string][]string{networkName: {networkAlias}},
		WaitingFor: wait.ForSQL(mysqlPort, "mysql", func(host string, port nat.Port) string {
			return buildDSN(host, port.Port())
		}).WithStartupTimeout(startupTimeout),
	}
}

// buildDSN targets the test database with UTC DATETIME parsing.
func buildDSN(host, port string) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC", dbUser, dbPassword, host, port, dbName)
}

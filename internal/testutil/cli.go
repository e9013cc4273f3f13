//go:build integration

package testutil

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	cliImage       = "alpine:3.20"
	cliBinaryPath  = "/usr/local/bin/fulfill-cli"
	cliExitTimeout = 2 * time.Minute
)

// BuildBinary cross-compiles pkg for linux/GOARCH into a temp dir.
func BuildBinary(t *testing.T, pkg string) string {
	t.Helper()

	name := filepath.Base(pkg)
	if name == "." {
		wd, err := os.Getwd()
		if err != nil {
			t.Fatalf("working dir: %v", err)
		}
		name = filepath.Base(wd)
	}
	out := filepath.Join(t.TempDir(), name)

	build := exec.Command("go", "build", "-o", out, pkg)
	build.Env = append(os.Environ(), "CGO_ENABLED=0", "GOOS=linux", "GOARCH="+runtime.GOARCH)
	if logs, err := build.CombinedOutput(); err != nil {
		t.Fatalf("go build %s: %v\n%s", pkg, err, logs)
	}

	return out
}

// RunCLIContainer runs the binary with args on networkName, waits for it to
// exit and returns the exit code with the combined output.
func RunCLIContainer(t *testing.T, ctx context.Context, networkName, binary string, args []string) (int, string) {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:      cliImage,
			Entrypoint: []string{cliBinaryPath},
			Cmd:        args,
			Networks:   []string{networkName},
			Files: []testcontainers.ContainerFile{{
				HostFilePath:      binary,
				ContainerFilePath: cliBinaryPath,
				FileMode:          0o755,
			}},
			WaitingFor: wait.ForExit().WithExitTimeout(cliExitTimeout),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("run cli container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	state, err := container.State(ctx)
	if err != nil {
		t.Fatalf("cli state: %v", err)
	}

	reader, err := container.Logs(ctx)
	if err != nil {
		t.Fatalf("cli logs: %v", err)
	}
	defer reader.Close()
	logs, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("cli logs: %v", err)
	}

	return state.ExitCode, string(logs)
}

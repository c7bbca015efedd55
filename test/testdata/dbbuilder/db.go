package dbbuilder

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	databaseutil "github.com/NYCU-SDC/summer/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"go.uber.org/zap"
)

type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// migrationSource points at internal/database/migrations regardless of the
// package the test runs from.
func migrationSource() string {
	_, file, _, _ := runtime.Caller(0)
	return "file://" + filepath.Join(filepath.Dir(file), "..", "..", "..", "internal", "database", "migrations")
}

// SetupPostgres starts a disposable postgres container, migrates it and
// returns a pool on it. The test is skipped under -short or when docker is not
// reachable.
func SetupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker is not available: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker is not reachable: %v", err)
	}
	pool.MaxWait = 2 * time.Minute

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=survey",
			"POSTGRES_PASSWORD=survey",
			"POSTGRES_DB=survey",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	_ = resource.Expire(300)

	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("failed to purge postgres container: %v", err)
		}
	})

	databaseURL := fmt.Sprintf("postgres://survey:survey@%s/survey?sslmode=disable", resource.GetHostPort("5432/tcp"))

	var db *pgxpool.Pool
	err = pool.Retry(func() error {
		var err error
		db, err = pgxpool.New(context.Background(), databaseURL)
		if err != nil {
			return err
		}
		if err := db.Ping(context.Background()); err != nil {
			db.Close()
			return err
		}
		return nil
	})
	if err != nil {
		t.Fatalf("postgres did not become ready: %v", err)
	}
	t.Cleanup(db.Close)

	if err := databaseutil.MigrationUp(migrationSource(), databaseURL, zap.NewNop()); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	return db
}

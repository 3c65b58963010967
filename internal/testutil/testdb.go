// Package testutil provides utilities for testing
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB wraps a test database connection
type TestDB struct {
	*sql.DB
	DSN string
	t   *testing.T
}

var (
	containerOnce sync.Once
	containerDSN  string
	containerErr  error
)

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// envDSN builds the DSN from DB_* variables. ok is false when DB_HOST is unset.
func envDSN() (string, bool) {
	host := os.Getenv("DB_HOST")
	if host == "" {
		return "", false
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host,
		getEnvOrDefault("DB_PORT", "5432"),
		getEnvOrDefault("DB_USER", "test"),
		getEnvOrDefault("DB_PASSWORD", "test"),
		getEnvOrDefault("DB_NAME", "griva_test"),
		getEnvOrDefault("DB_SSLMODE", "disable"),
	), true
}

// startContainer runs one disposable Postgres for the whole test binary.
// The testcontainers reaper removes it when the process exits.
func startContainer() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "griva_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("start postgres container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return "", fmt.Errorf("container port: %w", err)
	}

	return fmt.Sprintf("host=%s port=%s user=test password=test dbname=griva_test sslmode=disable", host, port.Port()), nil
}

// NewTestDB connects to the DB_* Postgres, or starts a container when
// DB_HOST is unset. It skips the test when neither is available, in short
// mode, or when GRIVA_TESTCONTAINERS=0.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	dsn, ok := envDSN()
	if !ok {
		if testing.Short() || os.Getenv("GRIVA_TESTCONTAINERS") == "0" {
			t.Skip("Skipping test: no database configured")
		}
		containerOnce.Do(func() {
			containerDSN, containerErr = startContainer()
		})
		if containerErr != nil {
			t.Skipf("Skipping test: %v", containerErr)
		}
		dsn = containerDSN
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Skipf("Skipping test: unable to open database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		t.Skipf("Skipping test: unable to connect to database: %v", err)
	}

	tdb := &TestDB{DB: db, DSN: dsn, t: t}
	t.Cleanup(tdb.Close)
	return tdb
}

// Close closes the test database connection
func (tdb *TestDB) Close() {
	if err := tdb.DB.Close(); err != nil {
		tdb.t.Errorf("Failed to close test database: %v", err)
	}
}

// Cleanup removes all test data from tables
func (tdb *TestDB) Cleanup(ctx context.Context) {
	tdb.t.Helper()

	tables := []string{
		"post_interactions",
		"community_posts",
		"community_members",
		"communities",
		"metrics_snapshots",
		"ai_models",
		"research_papers",
		"news_articles",
	}

	_, err := tdb.ExecContext(ctx, "TRUNCATE "+strings.Join(tables, ", ")+" RESTART IDENTITY CASCADE")
	if err != nil {
		tdb.t.Logf("Warning: failed to cleanup tables: %v", err)
	}
}

// MustExec executes a query and fails the test on error
func (tdb *TestDB) MustExec(ctx context.Context, query string, args ...interface{}) {
	tdb.t.Helper()
	_, err := tdb.ExecContext(ctx, query, args...)
	if err != nil {
		tdb.t.Fatalf("Failed to execute query: %v\nQuery: %s", err, query)
	}
}

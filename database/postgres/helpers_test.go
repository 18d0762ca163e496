package postgres_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/kjayal/clientvault"
	"github.com/kjayal/clientvault/database/postgres"
)

var (
	testPool     *pgxpool.Pool
	testPoolOnce sync.Once
	testCleanup  func()
)

// getSharedTestDatabase returns a shared database pool for all tests.
// This significantly improves test performance by reusing the same container.
func getSharedTestDatabase(t *testing.T) *pgxpool.Pool {
	t.Helper()

	testPoolOnce.Do(func() {
		ctx := context.Background()

		pgContainer, err := pgcontainer.Run(ctx,
			"postgres:18-alpine",
			pgcontainer.WithDatabase("testdb"),
			pgcontainer.WithUsername("testuser"),
			pgcontainer.WithPassword("testpass"),
			pgcontainer.BasicWaitStrategies(),
		)
		if err != nil {
			t.Fatalf("failed to start postgres container: %v", err)
		}

		testCleanup = func() {
			if testPool != nil {
				testPool.Close()
			}
			if err := testcontainers.TerminateContainer(pgContainer); err != nil {
				t.Logf("failed to terminate container: %s", err)
			}
		}

		connectionStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			testCleanup()
			t.Fatalf("failed to get connection string: %v", err)
		}

		pool, err := pgxpool.New(ctx, connectionStr)
		if err != nil {
			testCleanup()
			t.Fatalf("could not connect to database: %v", err)
		}

		testPool = pool
	})

	return testPool
}

// getRandomString generates a random string for unique test identifiers.
func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	assert.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

// dropTestTable drops the specified table for test cleanup.
func dropTestTable(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	quotedTable := pgx.Identifier{tableName}.Sanitize()
	sql := fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", quotedTable)
	_, err := pool.Exec(ctx, sql)
	return err
}

// uniqueTables returns table names unique to one test for isolation.
func uniqueTables(t *testing.T) clientvault.Tables {
	t.Helper()
	suffix := getRandomString(t)
	return clientvault.Tables{
		Clients:     fmt.Sprintf("clients_%s", suffix),
		ClientFiles: fmt.Sprintf("client_files_%s", suffix),
	}
}

// setupTestRepo creates a repo with unique table names for test isolation.
func setupTestRepo(t *testing.T) clientvault.MetadataRepo {
	t.Helper()

	pool := getSharedTestDatabase(t)
	ctx := context.Background()

	tables := uniqueTables(t)

	err := postgres.Migrate(ctx, pool, tables)
	assert.NoError(t, err, "failed to migrate")

	repo, err := postgres.NewRepo(pool, tables)
	assert.NoError(t, err, "failed to create repo")

	t.Cleanup(func() {
		_ = dropTestTable(ctx, pool, tables.ClientFiles)
		_ = dropTestTable(ctx, pool, tables.Clients)
	})

	return repo
}

func testNewClient(externalID string, keys ...string) clientvault.NewClient {
	nc := clientvault.NewClient{
		Name:       "Ada Lovelace",
		ExternalID: externalID,
		Address:    "12 Analytical Lane",
		Email:      "ada@example.com",
		Phone:      "+44 20 7946 0123",
		Notes:      "prefers email",
	}
	for i, k := range keys {
		nc.Files = append(nc.Files, clientvault.FileUpload{
			Key:       k,
			FileName:  fmt.Sprintf("file%d.pdf", i),
			Category:  clientvault.CategoryDocument,
			SizeBytes: int64(100 * (i + 1)),
		})
	}
	return nc
}

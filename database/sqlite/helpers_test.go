package sqlite_test

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	_ "modernc.org/sqlite"

	"github.com/kjayal/clientvault"
	"github.com/kjayal/clientvault/database/sqlite"
)

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	assert.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

// setupTestRepo creates a repo with unique table names for test isolation
func setupTestRepo(t *testing.T) clientvault.MetadataRepo {
	t.Helper()

	ctx := context.Background()

	suffix := getRandomString(t)
	tables := clientvault.Tables{
		Clients:     fmt.Sprintf("clients_%s", suffix),
		ClientFiles: fmt.Sprintf("client_files_%s", suffix),
	}

	db, err := sql.Open("sqlite", ":memory:")
	assert.NoError(t, err, "failed to open")
	t.Cleanup(func() { _ = db.Close() })

	err = sqlite.Migrate(ctx, db, tables)
	assert.NoError(t, err, "failed to migrate")

	repo, err := sqlite.NewRepo(db, tables)
	assert.NoError(t, err, "failed to create repo")

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

// insertSpaced inserts records with distinct creation timestamps so list
// ordering is deterministic.
func insertSpaced(t *testing.T, repo clientvault.MetadataRepo, externalIDs ...string) []clientvault.ClientRecord {
	t.Helper()
	ctx := context.Background()

	records := make([]clientvault.ClientRecord, 0, len(externalIDs))
	for _, extID := range externalIDs {
		rec, err := repo.Insert(ctx, testNewClient(extID))
		assert.NoError(t, err, "insert %s", extID)
		records = append(records, rec)
		time.Sleep(2 * time.Millisecond)
	}
	return records
}

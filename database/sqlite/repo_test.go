package sqlite_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/kjayal/clientvault"
	"github.com/kjayal/clientvault/database/sqlite"
)

func TestNewRepo_InvalidTables(t *testing.T) {
	_, err := sqlite.NewRepo(nil, clientvault.Tables{Clients: "Bad-Name", ClientFiles: "client_files"})
	assert.Error(t, err)
}

func TestRepo_Insert(t *testing.T) {
	t.Run("record with files round-trips", func(t *testing.T) {
		repo := setupTestRepo(t)
		ctx := context.Background()

		nc := testNewClient("client-001", "clients/k1", "clients/k2")
		rec, err := repo.Insert(ctx, nc)
		assert.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, rec.ID)
		assert.Equal(t, nc.Name, rec.Name)
		assert.Equal(t, nc.ExternalID, rec.ExternalID)
		assert.Equal(t, nc.Address, rec.Address)
		assert.Equal(t, nc.Email, rec.Email)
		assert.Equal(t, nc.Phone, rec.Phone)
		assert.Equal(t, nc.Notes, rec.Notes)
		assert.False(t, rec.CreatedAt.IsZero())
		assert.Len(t, rec.Files, 2)
		assert.Equal(t, "clients/k1", rec.Files[0].Key)
		assert.Equal(t, "clients/k2", rec.Files[1].Key)

		found, err := repo.FindByID(ctx, rec.ID)
		assert.NoError(t, err)
		assert.Equal(t, rec.ID, found.ID)
		assert.Len(t, found.Files, 2)
		assert.Equal(t, "clients/k1", found.Files[0].Key)
	})

	t.Run("duplicate external id", func(t *testing.T) {
		repo := setupTestRepo(t)
		ctx := context.Background()

		_, err := repo.Insert(ctx, testNewClient("client-001"))
		assert.NoError(t, err)

		_, err = repo.Insert(ctx, testNewClient("client-001"))
		assert.ErrorIs(t, err, clientvault.ErrAlreadyExists)
	})

	t.Run("duplicate object key rolls back the record", func(t *testing.T) {
		repo := setupTestRepo(t)
		ctx := context.Background()

		_, err := repo.Insert(ctx, testNewClient("client-001", "clients/shared"))
		assert.NoError(t, err)

		_, err = repo.Insert(ctx, testNewClient("client-002", "clients/shared"))
		assert.ErrorIs(t, err, clientvault.ErrAlreadyExists)

		// The second record must not exist in any form.
		result, err := repo.List(ctx, clientvault.ListQuery{Limit: 10})
		assert.NoError(t, err)
		assert.Len(t, result.Items, 1)
		assert.Equal(t, "client-001", result.Items[0].ExternalID)
	})
}

func TestRepo_FindByID(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		repo := setupTestRepo(t)

		_, err := repo.FindByID(context.Background(), uuid.New())
		assert.ErrorIs(t, err, clientvault.ErrNotFound)
	})

	t.Run("record without files has empty slice", func(t *testing.T) {
		repo := setupTestRepo(t)
		ctx := context.Background()

		rec, err := repo.Insert(ctx, testNewClient("client-001"))
		assert.NoError(t, err)

		found, err := repo.FindByID(ctx, rec.ID)
		assert.NoError(t, err)
		assert.NotNil(t, found.Files)
		assert.Empty(t, found.Files)
	})
}

func TestRepo_List(t *testing.T) {
	t.Run("orders by creation time", func(t *testing.T) {
		repo := setupTestRepo(t)

		inserted := insertSpaced(t, repo, "client-a", "client-b", "client-c")

		result, err := repo.List(context.Background(), clientvault.ListQuery{Limit: 10})
		assert.NoError(t, err)
		assert.Len(t, result.Items, 3)
		assert.Empty(t, result.NextCursor)

		for i, rec := range result.Items {
			assert.Equal(t, inserted[i].ID, rec.ID)
		}
	})

	t.Run("paginates with cursor", func(t *testing.T) {
		repo := setupTestRepo(t)
		ctx := context.Background()

		inserted := insertSpaced(t, repo, "c1", "c2", "c3", "c4", "c5")

		page1, err := repo.List(ctx, clientvault.ListQuery{Limit: 2})
		assert.NoError(t, err)
		assert.Len(t, page1.Items, 2)
		assert.NotEmpty(t, page1.NextCursor)
		assert.Equal(t, inserted[0].ID, page1.Items[0].ID)
		assert.Equal(t, inserted[1].ID, page1.Items[1].ID)

		page2, err := repo.List(ctx, clientvault.ListQuery{Limit: 2, Cursor: page1.NextCursor})
		assert.NoError(t, err)
		assert.Len(t, page2.Items, 2)
		assert.NotEmpty(t, page2.NextCursor)
		assert.Equal(t, inserted[2].ID, page2.Items[0].ID)
		assert.Equal(t, inserted[3].ID, page2.Items[1].ID)

		page3, err := repo.List(ctx, clientvault.ListQuery{Limit: 2, Cursor: page2.NextCursor})
		assert.NoError(t, err)
		assert.Len(t, page3.Items, 1)
		assert.Empty(t, page3.NextCursor)
		assert.Equal(t, inserted[4].ID, page3.Items[0].ID)
	})

	t.Run("empty table", func(t *testing.T) {
		repo := setupTestRepo(t)

		result, err := repo.List(context.Background(), clientvault.ListQuery{Limit: 10})
		assert.NoError(t, err)
		assert.Empty(t, result.Items)
		assert.Empty(t, result.NextCursor)
	})

	t.Run("invalid cursor", func(t *testing.T) {
		repo := setupTestRepo(t)

		_, err := repo.List(context.Background(), clientvault.ListQuery{Limit: 10, Cursor: "garbage!!"})
		assert.Error(t, err)
	})

	t.Run("includes file references", func(t *testing.T) {
		repo := setupTestRepo(t)
		ctx := context.Background()

		_, err := repo.Insert(ctx, testNewClient("client-001", "clients/k1"))
		assert.NoError(t, err)

		result, err := repo.List(ctx, clientvault.ListQuery{Limit: 10})
		assert.NoError(t, err)
		assert.Len(t, result.Items, 1)
		assert.Len(t, result.Items[0].Files, 1)
		assert.Equal(t, "clients/k1", result.Items[0].Files[0].Key)
	})
}

func TestRepo_AppendFile(t *testing.T) {
	t.Run("appends in order and bumps updated_at", func(t *testing.T) {
		repo := setupTestRepo(t)
		ctx := context.Background()

		rec, err := repo.Insert(ctx, testNewClient("client-001", "clients/k1"))
		assert.NoError(t, err)

		updated, err := repo.AppendFile(ctx, rec.ID, clientvault.FileReference{
			Key: "clients/k2", FileName: "extra.pdf", Category: clientvault.CategoryDocument, SizeBytes: 512,
		})
		assert.NoError(t, err)
		assert.Len(t, updated.Files, 2)
		assert.Equal(t, "clients/k1", updated.Files[0].Key)
		assert.Equal(t, "clients/k2", updated.Files[1].Key)
		assert.True(t, updated.UpdatedAt.After(rec.UpdatedAt) || updated.UpdatedAt.Equal(rec.UpdatedAt))
	})

	t.Run("record not found", func(t *testing.T) {
		repo := setupTestRepo(t)

		_, err := repo.AppendFile(context.Background(), uuid.New(), clientvault.FileReference{
			Key: "clients/k", FileName: "f.pdf", Category: clientvault.CategoryDocument,
		})
		assert.ErrorIs(t, err, clientvault.ErrNotFound)
	})

	t.Run("duplicate key", func(t *testing.T) {
		repo := setupTestRepo(t)
		ctx := context.Background()

		rec, err := repo.Insert(ctx, testNewClient("client-001", "clients/k1"))
		assert.NoError(t, err)

		_, err = repo.AppendFile(ctx, rec.ID, clientvault.FileReference{
			Key: "clients/k1", FileName: "dup.pdf", Category: clientvault.CategoryDocument,
		})
		assert.ErrorIs(t, err, clientvault.ErrAlreadyExists)
	})
}

func TestRepo_DeleteByID(t *testing.T) {
	t.Run("removes record and file rows", func(t *testing.T) {
		repo := setupTestRepo(t)
		ctx := context.Background()

		rec, err := repo.Insert(ctx, testNewClient("client-001", "clients/k1", "clients/k2"))
		assert.NoError(t, err)

		err = repo.DeleteByID(ctx, rec.ID)
		assert.NoError(t, err)

		_, err = repo.FindByID(ctx, rec.ID)
		assert.ErrorIs(t, err, clientvault.ErrNotFound)

		// The object keys are free again after the delete.
		_, err = repo.Insert(ctx, testNewClient("client-002", "clients/k1"))
		assert.NoError(t, err)
	})

	t.Run("second delete reports not found", func(t *testing.T) {
		repo := setupTestRepo(t)
		ctx := context.Background()

		rec, err := repo.Insert(ctx, testNewClient("client-001"))
		assert.NoError(t, err)

		assert.NoError(t, repo.DeleteByID(ctx, rec.ID))
		assert.ErrorIs(t, repo.DeleteByID(ctx, rec.ID), clientvault.ErrNotFound)
	})
}

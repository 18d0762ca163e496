package clientvault_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/kjayal/clientvault"
)

type SpyMetadataRepo struct {
	mock.Mock
}

func (s *SpyMetadataRepo) Insert(ctx context.Context, nc clientvault.NewClient) (clientvault.ClientRecord, error) {
	args := s.Called(ctx, nc)
	return args.Get(0).(clientvault.ClientRecord), args.Error(1)
}

func (s *SpyMetadataRepo) FindByID(ctx context.Context, id uuid.UUID) (clientvault.ClientRecord, error) {
	args := s.Called(ctx, id)
	return args.Get(0).(clientvault.ClientRecord), args.Error(1)
}

func (s *SpyMetadataRepo) List(ctx context.Context, q clientvault.ListQuery) (clientvault.ListResult, error) {
	args := s.Called(ctx, q)
	return args.Get(0).(clientvault.ListResult), args.Error(1)
}

func (s *SpyMetadataRepo) AppendFile(ctx context.Context, id uuid.UUID, ref clientvault.FileReference) (clientvault.ClientRecord, error) {
	args := s.Called(ctx, id, ref)
	return args.Get(0).(clientvault.ClientRecord), args.Error(1)
}

func (s *SpyMetadataRepo) DeleteByID(ctx context.Context, id uuid.UUID) error {
	args := s.Called(ctx, id)
	return args.Error(0)
}

type SpyObjectStore struct {
	mock.Mock
}

func (s *SpyObjectStore) IssueUploadGrant(ctx context.Context, key string, ttl time.Duration) (clientvault.UploadGrant, error) {
	args := s.Called(ctx, key, ttl)
	return args.Get(0).(clientvault.UploadGrant), args.Error(1)
}

func (s *SpyObjectStore) IssueDownloadGrant(ctx context.Context, key string, ttl time.Duration) (clientvault.UploadGrant, error) {
	args := s.Called(ctx, key, ttl)
	return args.Get(0).(clientvault.UploadGrant), args.Error(1)
}

func (s *SpyObjectStore) DeleteObject(ctx context.Context, key string) error {
	args := s.Called(ctx, key)
	return args.Error(0)
}

func (s *SpyObjectStore) ObjectExists(ctx context.Context, key string) (bool, error) {
	args := s.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func NewClientService(t *testing.T, cfg clientvault.ServiceConfig) (*clientvault.ClientService, *SpyMetadataRepo, *SpyObjectStore) {
	t.Helper()
	spyRepo := new(SpyMetadataRepo)
	spyStore := new(SpyObjectStore)
	s, err := clientvault.NewClientService(spyRepo, spyStore, cfg)
	assert.NoError(t, err, "new client service")
	return s, spyRepo, spyStore
}

func validNewClient() clientvault.NewClient {
	return clientvault.NewClient{
		Name:       "Ada Lovelace",
		ExternalID: "client-001",
		Address:    "12 Analytical Lane",
		Email:      "ada@example.com",
		Files: []clientvault.FileUpload{
			{Key: "clients/abc_portrait.jpg", FileName: "portrait.jpg", Category: clientvault.CategoryPhoto, SizeBytes: 1024},
		},
	}
}

func TestClientService_Create(t *testing.T) {
	t.Run("success returns persisted record", func(t *testing.T) {
		service, repo, store := NewClientService(t, clientvault.ServiceConfig{})
		ctx := context.Background()
		nc := validNewClient()

		want := clientvault.ClientRecord{
			ID:         uuid.New(),
			Name:       nc.Name,
			ExternalID: nc.ExternalID,
			Address:    nc.Address,
			Email:      nc.Email,
			Files: []clientvault.FileReference{
				{Key: nc.Files[0].Key, FileName: nc.Files[0].FileName, Category: nc.Files[0].Category, SizeBytes: nc.Files[0].SizeBytes},
			},
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}
		repo.On("Insert", mock.Anything, nc).Return(want, nil)

		got, err := service.Create(ctx, nc)
		assert.NoError(t, err)
		assert.Equal(t, want, got)

		repo.AssertExpectations(t)
		store.AssertNotCalled(t, "ObjectExists")
	})

	t.Run("missing required fields", func(t *testing.T) {
		service, repo, _ := NewClientService(t, clientvault.ServiceConfig{})
		ctx := context.Background()

		cases := map[string]func(*clientvault.NewClient){
			"empty name":        func(nc *clientvault.NewClient) { nc.Name = "" },
			"empty external id": func(nc *clientvault.NewClient) { nc.ExternalID = "" },
			"empty address":     func(nc *clientvault.NewClient) { nc.Address = "" },
		}
		for name, corrupt := range cases {
			t.Run(name, func(t *testing.T) {
				nc := validNewClient()
				corrupt(&nc)

				_, err := service.Create(ctx, nc)
				assert.ErrorIs(t, err, clientvault.ErrInvalidInput)
			})
		}
		repo.AssertNotCalled(t, "Insert")
	})

	t.Run("invalid file entries", func(t *testing.T) {
		service, repo, _ := NewClientService(t, clientvault.ServiceConfig{})
		ctx := context.Background()

		cases := map[string]clientvault.FileUpload{
			"empty key":        {FileName: "a.jpg", Category: clientvault.CategoryPhoto},
			"empty file name":  {Key: "clients/k", Category: clientvault.CategoryPhoto},
			"invalid category": {Key: "clients/k", FileName: "a.jpg", Category: "video"},
		}
		for name, f := range cases {
			t.Run(name, func(t *testing.T) {
				nc := validNewClient()
				nc.Files = append(nc.Files, f)

				_, err := service.Create(ctx, nc)
				assert.ErrorIs(t, err, clientvault.ErrInvalidInput)
			})
		}
		repo.AssertNotCalled(t, "Insert")
	})

	t.Run("no files is valid", func(t *testing.T) {
		service, repo, _ := NewClientService(t, clientvault.ServiceConfig{})
		ctx := context.Background()

		nc := validNewClient()
		nc.Files = nil

		repo.On("Insert", mock.Anything, nc).Return(clientvault.ClientRecord{ID: uuid.New()}, nil)

		_, err := service.Create(ctx, nc)
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("duplicate external id", func(t *testing.T) {
		service, repo, _ := NewClientService(t, clientvault.ServiceConfig{})
		ctx := context.Background()
		nc := validNewClient()

		repo.On("Insert", mock.Anything, nc).Return(clientvault.ClientRecord{}, clientvault.ErrAlreadyExists)

		_, err := service.Create(ctx, nc)
		assert.ErrorIs(t, err, clientvault.ErrAlreadyExists)
	})

	t.Run("repo timeout classified as transient", func(t *testing.T) {
		service, repo, _ := NewClientService(t, clientvault.ServiceConfig{})
		ctx := context.Background()
		nc := validNewClient()

		repo.On("Insert", mock.Anything, nc).Return(clientvault.ClientRecord{}, context.DeadlineExceeded)

		_, err := service.Create(ctx, nc)
		assert.ErrorIs(t, err, clientvault.ErrTransient)
	})

	t.Run("verify uploads rejects missing object", func(t *testing.T) {
		service, repo, store := NewClientService(t, clientvault.ServiceConfig{VerifyUploads: true})
		ctx := context.Background()
		nc := validNewClient()

		store.On("ObjectExists", mock.Anything, nc.Files[0].Key).Return(false, nil)

		_, err := service.Create(ctx, nc)
		assert.ErrorIs(t, err, clientvault.ErrInvalidInput)

		store.AssertExpectations(t)
		repo.AssertNotCalled(t, "Insert")
	})

	t.Run("verify uploads accepts present object", func(t *testing.T) {
		service, repo, store := NewClientService(t, clientvault.ServiceConfig{VerifyUploads: true})
		ctx := context.Background()
		nc := validNewClient()

		store.On("ObjectExists", mock.Anything, nc.Files[0].Key).Return(true, nil)
		repo.On("Insert", mock.Anything, nc).Return(clientvault.ClientRecord{ID: uuid.New()}, nil)

		_, err := service.Create(ctx, nc)
		assert.NoError(t, err)

		store.AssertExpectations(t)
		repo.AssertExpectations(t)
	})
}

func TestClientService_Get(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		service, repo, _ := NewClientService(t, clientvault.ServiceConfig{})
		ctx := context.Background()

		id := uuid.New()
		want := clientvault.ClientRecord{ID: id, Name: "Ada Lovelace"}
		repo.On("FindByID", mock.Anything, id).Return(want, nil)

		got, err := service.Get(ctx, id)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("not found", func(t *testing.T) {
		service, repo, _ := NewClientService(t, clientvault.ServiceConfig{})
		ctx := context.Background()

		id := uuid.New()
		repo.On("FindByID", mock.Anything, id).Return(clientvault.ClientRecord{}, clientvault.ErrNotFound)

		_, err := service.Get(ctx, id)
		assert.ErrorIs(t, err, clientvault.ErrNotFound)
	})
}

func TestClientService_List(t *testing.T) {
	t.Run("defaults limit to 100", func(t *testing.T) {
		service, repo, _ := NewClientService(t, clientvault.ServiceConfig{})
		ctx := context.Background()

		repo.On("List", mock.Anything, clientvault.ListQuery{Limit: 100}).Return(clientvault.ListResult{}, nil)

		_, err := service.List(ctx, clientvault.ListQuery{})
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("preserves creation order", func(t *testing.T) {
		service, repo, _ := NewClientService(t, clientvault.ServiceConfig{})
		ctx := context.Background()

		a := clientvault.ClientRecord{ID: uuid.New(), Name: "first"}
		b := clientvault.ClientRecord{ID: uuid.New(), Name: "second"}
		repo.On("List", mock.Anything, clientvault.ListQuery{Limit: 10}).
			Return(clientvault.ListResult{Items: []clientvault.ClientRecord{a, b}}, nil)

		result, err := service.List(ctx, clientvault.ListQuery{Limit: 10})
		assert.NoError(t, err)
		assert.Equal(t, []clientvault.ClientRecord{a, b}, result.Items)
	})
}

func TestClientService_AppendFile(t *testing.T) {
	t.Run("success stamps upload time", func(t *testing.T) {
		service, repo, _ := NewClientService(t, clientvault.ServiceConfig{})
		ctx := context.Background()
		id := uuid.New()

		f := clientvault.FileUpload{
			Key: "clients/xyz_scan.pdf", FileName: "scan.pdf",
			Category: clientvault.CategoryDocument, SizeBytes: 2048,
		}

		repo.On("AppendFile", mock.Anything, id, mock.MatchedBy(func(ref clientvault.FileReference) bool {
			return ref.Key == f.Key && ref.FileName == f.FileName &&
				ref.Category == f.Category && ref.SizeBytes == f.SizeBytes &&
				!ref.UploadedAt.IsZero()
		})).Return(clientvault.ClientRecord{ID: id}, nil)

		_, err := service.AppendFile(ctx, id, f)
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("invalid category", func(t *testing.T) {
		service, repo, _ := NewClientService(t, clientvault.ServiceConfig{})
		ctx := context.Background()

		f := clientvault.FileUpload{Key: "clients/k", FileName: "a.bin", Category: "archive"}
		_, err := service.AppendFile(ctx, uuid.New(), f)
		assert.ErrorIs(t, err, clientvault.ErrInvalidInput)
		repo.AssertNotCalled(t, "AppendFile")
	})

	t.Run("record not found", func(t *testing.T) {
		service, repo, _ := NewClientService(t, clientvault.ServiceConfig{})
		ctx := context.Background()
		id := uuid.New()

		f := clientvault.FileUpload{Key: "clients/k", FileName: "a.jpg", Category: clientvault.CategoryPhoto}
		repo.On("AppendFile", mock.Anything, id, mock.Anything).Return(clientvault.ClientRecord{}, clientvault.ErrNotFound)

		_, err := service.AppendFile(ctx, id, f)
		assert.ErrorIs(t, err, clientvault.ErrNotFound)
	})
}

func TestClientService_Delete(t *testing.T) {
	record := func(id uuid.UUID, keys ...string) clientvault.ClientRecord {
		rec := clientvault.ClientRecord{ID: id, Name: "Ada Lovelace", ExternalID: "client-001"}
		for _, k := range keys {
			rec.Files = append(rec.Files, clientvault.FileReference{
				Key: k, FileName: "f", Category: clientvault.CategoryDocument,
			})
		}
		return rec
	}

	t.Run("removes objects then metadata row", func(t *testing.T) {
		service, repo, store := NewClientService(t, clientvault.ServiceConfig{})
		ctx := context.Background()
		id := uuid.New()

		repo.On("FindByID", mock.Anything, id).Return(record(id, "clients/a", "clients/b"), nil)
		store.On("DeleteObject", mock.Anything, "clients/a").Return(nil)
		store.On("DeleteObject", mock.Anything, "clients/b").Return(nil)
		repo.On("DeleteByID", mock.Anything, id).Return(nil)

		err := service.Delete(ctx, id)
		assert.NoError(t, err)

		repo.AssertExpectations(t)
		store.AssertExpectations(t)
	})

	t.Run("second delete reports not found", func(t *testing.T) {
		service, repo, store := NewClientService(t, clientvault.ServiceConfig{})
		ctx := context.Background()
		id := uuid.New()

		repo.On("FindByID", mock.Anything, id).Return(clientvault.ClientRecord{}, clientvault.ErrNotFound)

		err := service.Delete(ctx, id)
		assert.ErrorIs(t, err, clientvault.ErrNotFound)

		var partial *clientvault.PartialDeleteError
		assert.False(t, errors.As(err, &partial), "missing record is not a partial delete")
		store.AssertNotCalled(t, "DeleteObject")
		repo.AssertNotCalled(t, "DeleteByID")
	})

	t.Run("partial failure keeps metadata and names failed keys", func(t *testing.T) {
		service, repo, store := NewClientService(t, clientvault.ServiceConfig{})
		ctx := context.Background()
		id := uuid.New()

		repo.On("FindByID", mock.Anything, id).Return(record(id, "clients/a", "clients/b"), nil)
		store.On("DeleteObject", mock.Anything, "clients/a").Return(nil)
		store.On("DeleteObject", mock.Anything, "clients/b").Return(io.ErrUnexpectedEOF)

		err := service.Delete(ctx, id)

		var partial *clientvault.PartialDeleteError
		assert.ErrorAs(t, err, &partial)
		assert.Equal(t, id, partial.RecordID)
		assert.Equal(t, []string{"clients/b"}, partial.FailedKeys())

		repo.AssertNotCalled(t, "DeleteByID")
	})

	t.Run("retry after partial failure succeeds", func(t *testing.T) {
		service, repo, store := NewClientService(t, clientvault.ServiceConfig{})
		ctx := context.Background()
		id := uuid.New()

		// The first attempt already removed clients/a; the store treats the
		// absent key as deleted and the retry completes.
		repo.On("FindByID", mock.Anything, id).Return(record(id, "clients/a", "clients/b"), nil)
		store.On("DeleteObject", mock.Anything, "clients/a").Return(nil)
		store.On("DeleteObject", mock.Anything, "clients/b").Return(nil)
		repo.On("DeleteByID", mock.Anything, id).Return(nil)

		err := service.Delete(ctx, id)
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("record with no files deletes row only", func(t *testing.T) {
		service, repo, store := NewClientService(t, clientvault.ServiceConfig{})
		ctx := context.Background()
		id := uuid.New()

		repo.On("FindByID", mock.Anything, id).Return(record(id), nil)
		repo.On("DeleteByID", mock.Anything, id).Return(nil)

		err := service.Delete(ctx, id)
		assert.NoError(t, err)
		store.AssertNotCalled(t, "DeleteObject")
	})

	t.Run("losing the row race counts as success", func(t *testing.T) {
		service, repo, store := NewClientService(t, clientvault.ServiceConfig{})
		ctx := context.Background()
		id := uuid.New()

		repo.On("FindByID", mock.Anything, id).Return(record(id, "clients/a"), nil)
		store.On("DeleteObject", mock.Anything, "clients/a").Return(nil)
		repo.On("DeleteByID", mock.Anything, id).Return(clientvault.ErrNotFound)

		err := service.Delete(ctx, id)
		assert.NoError(t, err)
	})

	t.Run("store timeout surfaces as transient in failed key", func(t *testing.T) {
		service, repo, store := NewClientService(t, clientvault.ServiceConfig{})
		ctx := context.Background()
		id := uuid.New()

		repo.On("FindByID", mock.Anything, id).Return(record(id, "clients/a"), nil)
		store.On("DeleteObject", mock.Anything, "clients/a").Return(context.DeadlineExceeded)

		err := service.Delete(ctx, id)

		var partial *clientvault.PartialDeleteError
		assert.ErrorAs(t, err, &partial)
		assert.Contains(t, partial.Failed[0].Reason, clientvault.ErrTransient.Error())
	})
}

package clientvault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MetadataRepo defines the interface for client record persistence.
// Implementations must handle concurrent access safely.
//
// All methods accept a context for cancellation and timeout control.
// Implementations should respect context cancellation and return appropriate
// errors.
type MetadataRepo interface {
	// Insert persists a new client record together with its file references
	// as one atomic operation, assigning the id and timestamps.
	//
	// Returns:
	//   - ClientRecord: the persisted record with server-assigned id and timestamps
	//   - error: ErrAlreadyExists if the external id is taken, or other database errors
	Insert(ctx context.Context, nc NewClient) (ClientRecord, error)

	// FindByID retrieves a client record with its file references in upload
	// order.
	//
	// Returns:
	//   - ClientRecord: the record if found
	//   - error: ErrNotFound if no record has that id, or other database errors
	FindByID(ctx context.Context, id uuid.UUID) (ClientRecord, error)

	// List retrieves records ordered by creation time ascending, keyset
	// paginated on (created_at, id).
	List(ctx context.Context, q ListQuery) (ListResult, error)

	// AppendFile appends a file reference to an existing record and bumps the
	// record's updated timestamp.
	//
	// Returns:
	//   - ClientRecord: the updated record
	//   - error: ErrNotFound if no record has that id, ErrAlreadyExists if the
	//     object key is already referenced, or other database errors
	AppendFile(ctx context.Context, id uuid.UUID, ref FileReference) (ClientRecord, error)

	// DeleteByID removes the record and its file reference rows atomically.
	// It is a delete-if-present primitive: the second of two concurrent
	// callers observes ErrNotFound rather than an error.
	DeleteByID(ctx context.Context, id uuid.UUID) error
}

// ObjectStore defines the object-store operations the core depends on.
// Implementations wrap an external key-addressed blob store (S3, MinIO).
//
// The core never assumes strong read-after-write consistency from this
// collaborator.
type ObjectStore interface {
	// IssueUploadGrant returns a presigned credential allowing exactly one
	// HTTP PUT to the given key for the given ttl. Nothing is persisted.
	IssueUploadGrant(ctx context.Context, key string, ttl time.Duration) (UploadGrant, error)

	// IssueDownloadGrant returns a presigned credential allowing HTTP GET of
	// the given key for the given ttl.
	IssueDownloadGrant(ctx context.Context, key string, ttl time.Duration) (UploadGrant, error)

	// DeleteObject removes the object at key. It must be safely retryable:
	// deleting an absent key returns nil, so a nil result means the object is
	// gone, whether this call removed it or it was never there.
	DeleteObject(ctx context.Context, key string) error

	// ObjectExists reports whether an object is present at key.
	ObjectExists(ctx context.Context, key string) (bool, error)
}

// ClientService owns the create/read/list/delete lifecycle of client records
// and keeps the metadata store consistent with the object store. No single
// transaction spans both tiers, so ordering carries the consistency: objects
// are removed before the metadata row on delete, and the row is the last
// thing written on create.
type ClientService struct {
	repo          MetadataRepo
	store         ObjectStore
	opTimeout     time.Duration
	verifyUploads bool
}

// ServiceConfig holds configuration options for ClientService.
type ServiceConfig struct {
	// OpTimeout bounds each collaborator call (default: 30s). A timed-out
	// call is classified as transient.
	OpTimeout time.Duration
	// VerifyUploads makes Create check each supplied object key against the
	// object store, rejecting keys with no object behind them. Off by
	// default: the core trusts the caller and surfaces missing objects on
	// later access instead of paying one round trip per key per create.
	VerifyUploads bool
}

func NewClientService(repo MetadataRepo, store ObjectStore, cfg ServiceConfig) (*ClientService, error) {
	if repo == nil || store == nil {
		return nil, fmt.Errorf("new client service: repo and store are required")
	}
	opTimeout := cfg.OpTimeout
	if opTimeout <= 0 {
		opTimeout = 30 * time.Second
	}
	return &ClientService{
		repo:          repo,
		store:         store,
		opTimeout:     opTimeout,
		verifyUploads: cfg.VerifyUploads,
	}, nil
}

// Create validates the supplied fields and persists a new client record.
// The metadata row is written last: the referenced objects already exist in
// the object store (uploaded through grants), so a failure here leaves at
// worst an orphaned object, never a record pointing at nothing the system
// issued a grant for.
//
// Error types returned:
//   - ErrInvalidInput: missing required field, invalid file reference, or
//     (with VerifyUploads) a key with no object behind it
//   - ErrAlreadyExists: external id is already registered
//   - ErrTransient: collaborator timeout
func (s *ClientService) Create(ctx context.Context, nc NewClient) (ClientRecord, error) {
	if err := ctx.Err(); err != nil {
		return ClientRecord{}, fmt.Errorf("create client: %w", err)
	}

	if nc.Name == "" {
		return ClientRecord{}, fmt.Errorf("create client: %w: name cannot be empty", ErrInvalidInput)
	}
	if nc.ExternalID == "" {
		return ClientRecord{}, fmt.Errorf("create client: %w: external id cannot be empty", ErrInvalidInput)
	}
	if nc.Address == "" {
		return ClientRecord{}, fmt.Errorf("create client: %w: address cannot be empty", ErrInvalidInput)
	}

	for i, f := range nc.Files {
		if f.Key == "" {
			return ClientRecord{}, fmt.Errorf("create client: %w: file %d: key cannot be empty", ErrInvalidInput, i)
		}
		if f.FileName == "" {
			return ClientRecord{}, fmt.Errorf("create client: %w: file %d: file name cannot be empty", ErrInvalidInput, i)
		}
		if !f.Category.IsValid() {
			return ClientRecord{}, fmt.Errorf("create client: %w: file %d: invalid category %q", ErrInvalidInput, i, f.Category)
		}
	}

	if s.verifyUploads {
		for _, f := range nc.Files {
			exists, err := s.objectExists(ctx, f.Key)
			if err != nil {
				return ClientRecord{}, fmt.Errorf("create client: verify %s: %w", f.Key, err)
			}
			if !exists {
				return ClientRecord{}, fmt.Errorf("create client: %w: no object at key %s", ErrInvalidInput, f.Key)
			}
		}
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	rec, err := s.repo.Insert(opCtx, nc)
	if err != nil {
		return ClientRecord{}, fmt.Errorf("create client: %w", classifyStoreErr(err))
	}

	return rec, nil
}

func (s *ClientService) Get(ctx context.Context, id uuid.UUID) (ClientRecord, error) {
	if err := ctx.Err(); err != nil {
		return ClientRecord{}, fmt.Errorf("get client: %w", err)
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	rec, err := s.repo.FindByID(opCtx, id)
	if err != nil {
		return ClientRecord{}, fmt.Errorf("get client: %w", classifyStoreErr(err))
	}

	return rec, nil
}

// List returns records ordered by creation time ascending. A fresh call
// re-queries; the cursor in the result continues where the page ended.
func (s *ClientService) List(ctx context.Context, q ListQuery) (ListResult, error) {
	if err := ctx.Err(); err != nil {
		return ListResult{}, fmt.Errorf("list clients: %w", err)
	}

	if q.Limit <= 0 {
		q.Limit = 100
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	result, err := s.repo.List(opCtx, q)
	if err != nil {
		return ListResult{}, fmt.Errorf("list clients: %w", classifyStoreErr(err))
	}

	return result, nil
}

// AppendFile attaches an already-uploaded object to an existing record.
func (s *ClientService) AppendFile(ctx context.Context, id uuid.UUID, f FileUpload) (ClientRecord, error) {
	if err := ctx.Err(); err != nil {
		return ClientRecord{}, fmt.Errorf("append file: %w", err)
	}

	if f.Key == "" {
		return ClientRecord{}, fmt.Errorf("append file: %w: key cannot be empty", ErrInvalidInput)
	}
	if f.FileName == "" {
		return ClientRecord{}, fmt.Errorf("append file: %w: file name cannot be empty", ErrInvalidInput)
	}
	if !f.Category.IsValid() {
		return ClientRecord{}, fmt.Errorf("append file: %w: invalid category %q", ErrInvalidInput, f.Category)
	}

	if s.verifyUploads {
		exists, err := s.objectExists(ctx, f.Key)
		if err != nil {
			return ClientRecord{}, fmt.Errorf("append file: verify %s: %w", f.Key, err)
		}
		if !exists {
			return ClientRecord{}, fmt.Errorf("append file: %w: no object at key %s", ErrInvalidInput, f.Key)
		}
	}

	ref := FileReference{
		Key:        f.Key,
		FileName:   f.FileName,
		Category:   f.Category,
		SizeBytes:  f.SizeBytes,
		UploadedAt: time.Now().UTC(),
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	rec, err := s.repo.AppendFile(opCtx, id, ref)
	if err != nil {
		return ClientRecord{}, fmt.Errorf("append file: %w", classifyStoreErr(err))
	}

	return rec, nil
}

// Delete removes a client record and every object it references.
//
// Objects go first; the metadata row goes only after every object deletion
// either succeeded or found the object already absent. If any object cannot
// be removed the row stays and a *PartialDeleteError names the surviving
// keys, so the caller can retry the same call: keys removed on the first
// attempt count as success on the retry, not errors.
func (s *ClientService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete client: %w", err)
	}

	findCtx, cancelFind := context.WithTimeout(ctx, s.opTimeout)
	defer cancelFind()

	rec, err := s.repo.FindByID(findCtx, id)
	if err != nil {
		return fmt.Errorf("delete client: %w", classifyStoreErr(err))
	}

	var failed []KeyError
	for _, f := range rec.Files {
		if err := s.deleteObject(ctx, f.Key); err != nil {
			failed = append(failed, KeyError{Key: f.Key, Reason: err.Error()})
		}
	}

	if len(failed) > 0 {
		return &PartialDeleteError{RecordID: id, Failed: failed}
	}

	delCtx, cancelDel := context.WithTimeout(ctx, s.opTimeout)
	defer cancelDel()

	if err := s.repo.DeleteByID(delCtx, id); err != nil {
		// A concurrent delete winning the race after the objects are gone is
		// success, not an error.
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return fmt.Errorf("delete client: %w", classifyStoreErr(err))
	}

	return nil
}

func (s *ClientService) deleteObject(ctx context.Context, key string) error {
	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.store.DeleteObject(opCtx, key); err != nil {
		return classifyStoreErr(err)
	}
	return nil
}

func (s *ClientService) objectExists(ctx context.Context, key string) (bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	exists, err := s.store.ObjectExists(opCtx, key)
	if err != nil {
		return false, classifyStoreErr(err)
	}
	return exists, nil
}

// classifyStoreErr maps collaborator timeouts to the transient class so
// callers can tell a retryable failure from a permanent one.
func classifyStoreErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return err
}

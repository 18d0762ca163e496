package clientvault

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// MinGrantTTL and MaxGrantTTL bound the expiry horizon a broker can be
	// configured with.
	MinGrantTTL = 1 * time.Minute
	MaxGrantTTL = 15 * time.Minute

	// DefaultGrantTTL matches the original deployment's 5-minute window.
	DefaultGrantTTL = 5 * time.Minute
)

// UploadBroker turns a client's upload intent into a short-lived credential
// scoped to one HTTP method and one freshly generated object key. Grants are
// stateless: nothing is persisted, reconstruction is only possible through
// the object store's own signing mechanism.
type UploadBroker struct {
	store     ObjectStore
	ttl       time.Duration
	keyPrefix string
}

// BrokerConfig holds configuration options for UploadBroker.
type BrokerConfig struct {
	// TTL is the grant expiry horizon. Must be within [MinGrantTTL,
	// MaxGrantTTL]; zero selects DefaultGrantTTL.
	TTL time.Duration
	// KeyPrefix namespaces generated object keys (default: "clients").
	KeyPrefix string
}

func NewUploadBroker(store ObjectStore, cfg BrokerConfig) (*UploadBroker, error) {
	if store == nil {
		return nil, fmt.Errorf("new upload broker: store is required")
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultGrantTTL
	}
	if ttl < MinGrantTTL || ttl > MaxGrantTTL {
		return nil, fmt.Errorf("new upload broker: %w: ttl %s outside [%s, %s]",
			ErrInvalidInput, ttl, MinGrantTTL, MaxGrantTTL)
	}

	prefix := strings.Trim(cfg.KeyPrefix, "/")
	if prefix == "" {
		prefix = "clients"
	}

	return &UploadBroker{store: store, ttl: ttl, keyPrefix: prefix}, nil
}

// RequestUploadGrant issues a PUT-scoped grant for a fresh object key built
// from a random component and the sanitized filename. A key is never reused.
// The grant restricts method and key, not use count; the store itself does
// not enforce single use.
//
// Fails with ErrInvalidInput when filename is empty or category is not a
// recognized value.
func (b *UploadBroker) RequestUploadGrant(ctx context.Context, filename string, category FileCategory) (UploadGrant, error) {
	if err := ctx.Err(); err != nil {
		return UploadGrant{}, fmt.Errorf("request upload grant: %w", err)
	}

	if filename == "" {
		return UploadGrant{}, fmt.Errorf("request upload grant: %w: filename cannot be empty", ErrInvalidInput)
	}
	if !category.IsValid() {
		return UploadGrant{}, fmt.Errorf("request upload grant: %w: invalid category %q", ErrInvalidInput, category)
	}

	key := b.NewObjectKey(filename)

	grant, err := b.store.IssueUploadGrant(ctx, key, b.ttl)
	if err != nil {
		return UploadGrant{}, fmt.Errorf("request upload grant: %w", classifyStoreErr(err))
	}

	return grant, nil
}

// RequestDownloadGrant issues a GET-scoped grant for an existing object key.
func (b *UploadBroker) RequestDownloadGrant(ctx context.Context, key string) (UploadGrant, error) {
	if err := ctx.Err(); err != nil {
		return UploadGrant{}, fmt.Errorf("request download grant: %w", err)
	}

	if key == "" {
		return UploadGrant{}, fmt.Errorf("request download grant: %w: key cannot be empty", ErrInvalidInput)
	}

	grant, err := b.store.IssueDownloadGrant(ctx, key, b.ttl)
	if err != nil {
		return UploadGrant{}, fmt.Errorf("request download grant: %w", classifyStoreErr(err))
	}

	return grant, nil
}

// NewObjectKey builds a collision-free key: prefix/uuid_sanitizedname.
func (b *UploadBroker) NewObjectKey(filename string) string {
	return fmt.Sprintf("%s/%s_%s", b.keyPrefix, uuid.New(), SanitizeFileName(filename))
}

package clientvault

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// FileCategory classifies an uploaded file for display purposes.
type FileCategory string

const (
	CategoryPhoto    FileCategory = "photo"
	CategoryDocument FileCategory = "document"
)

func (c FileCategory) IsValid() bool {
	switch c {
	case CategoryPhoto, CategoryDocument:
		return true
	default:
		return false
	}
}

func ParseFileCategory(s string) (FileCategory, error) {
	c := FileCategory(s)
	if !c.IsValid() {
		return "", fmt.Errorf("invalid file category: %s (valid categories: photo, document)", s)
	}
	return c, nil
}

// FileReference points at an object in the object store that belongs to a
// client record. The object key is opaque; the service never derives meaning
// from it.
type FileReference struct {
	Key        string       `json:"key"`
	FileName   string       `json:"file_name"`
	Category   FileCategory `json:"category"`
	SizeBytes  int64        `json:"size_bytes,omitempty"`
	UploadedAt time.Time    `json:"uploaded_at"`
}

// ClientRecord is a persisted client with its file references in upload order.
type ClientRecord struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	ExternalID string          `json:"external_id"`
	Address    string          `json:"address"`
	Email      string          `json:"email,omitempty"`
	Phone      string          `json:"phone,omitempty"`
	Notes      string          `json:"notes,omitempty"`
	Files      []FileReference `json:"files"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// NewClient carries the caller-supplied fields for record creation. File
// references arrive with object keys the caller already uploaded through a
// grant.
type NewClient struct {
	Name       string
	ExternalID string
	Address    string
	Email      string
	Phone      string
	Notes      string
	Files      []FileUpload
}

// FileUpload is a caller-supplied file reference prior to persistence.
type FileUpload struct {
	Key       string
	FileName  string
	Category  FileCategory
	SizeBytes int64
}

// UploadGrant is a short-lived credential scoped to one HTTP method and one
// exact object key. It is a value, never persisted; expiry is enforced by the
// object store's own signature check.
type UploadGrant struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Method    string    `json:"method"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Methods a grant can be scoped to.
const (
	GrantMethodPut = http.MethodPut
	GrantMethodGet = http.MethodGet
)

type ListQuery struct {
	Limit  int
	Cursor string
}

type ListResult struct {
	Items      []ClientRecord `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// Tables holds configurable table names for metadata storage.
// This allows multi-tenant deployments to use different table names.
type Tables struct {
	Clients     string `mapstructure:"clients"`
	ClientFiles string `mapstructure:"client_files"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set and valid.
func (t Tables) Validate() error {
	if t.Clients == "" {
		return errors.New("validate tables: clients table name cannot be empty")
	}
	if t.ClientFiles == "" {
		return errors.New("validate tables: client files table name cannot be empty")
	}

	for _, name := range []string{t.Clients, t.ClientFiles} {
		if !IsValidTableName(name) {
			return fmt.Errorf("validate tables: invalid table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", name)
		}
	}

	return nil
}

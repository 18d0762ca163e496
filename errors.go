package clientvault

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrAlreadyExists is returned when a record with the same external id exists
	ErrAlreadyExists = errors.New("already exists")
	// ErrTransient is returned for timeouts and network failures talking to a
	// storage collaborator; the caller may retry with backoff
	ErrTransient = errors.New("transient store error")
)

// KeyError names an object key that failed an operation and why.
type KeyError struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// PartialDeleteError reports a delete that removed some objects but not all.
// The metadata row is intentionally left in place so the same delete call can
// be retried; keys already removed succeed silently on the retry.
type PartialDeleteError struct {
	RecordID uuid.UUID
	Failed   []KeyError
}

func (e *PartialDeleteError) Error() string {
	keys := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		keys = append(keys, f.Key)
	}
	return fmt.Sprintf("delete client %s: %d object(s) could not be removed: %s",
		e.RecordID, len(e.Failed), strings.Join(keys, ", "))
}

// FailedKeys returns the object keys that could not be removed.
func (e *PartialDeleteError) FailedKeys() []string {
	keys := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		keys = append(keys, f.Key)
	}
	return keys
}

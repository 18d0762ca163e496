package clientvault_test

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/kjayal/clientvault"
)

func TestCursorRoundTrip(t *testing.T) {
	createdAt := time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)
	id := uuid.New()

	encoded := clientvault.EncodeCursor(createdAt, id)
	assert.NotEmpty(t, encoded)

	cursor, err := clientvault.DecodeCursor(encoded)
	assert.NoError(t, err)
	assert.True(t, cursor.CreatedAt.Equal(createdAt))
	assert.Equal(t, id, cursor.ID)
}

func TestDecodeCursor(t *testing.T) {
	t.Run("empty cursor is zero value", func(t *testing.T) {
		cursor, err := clientvault.DecodeCursor("")
		assert.NoError(t, err)
		assert.True(t, cursor.CreatedAt.IsZero())
		assert.Equal(t, uuid.Nil, cursor.ID)
	})

	t.Run("invalid base64", func(t *testing.T) {
		_, err := clientvault.DecodeCursor("not base64!!!")
		assert.Error(t, err)
	})

	t.Run("missing separator", func(t *testing.T) {
		raw := base64.URLEncoding.EncodeToString([]byte("no separator here"))
		_, err := clientvault.DecodeCursor(raw)
		assert.Error(t, err)
	})

	t.Run("invalid timestamp", func(t *testing.T) {
		raw := base64.URLEncoding.EncodeToString([]byte("yesterday|" + uuid.NewString()))
		_, err := clientvault.DecodeCursor(raw)
		assert.Error(t, err)
	})

	t.Run("invalid id", func(t *testing.T) {
		raw := base64.URLEncoding.EncodeToString([]byte(time.Now().UTC().Format(time.RFC3339Nano) + "|not-a-uuid"))
		_, err := clientvault.DecodeCursor(raw)
		assert.Error(t, err)
	})
}

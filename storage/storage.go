package storage

import (
	"context"
	"errors"
	"time"
)

// Durable storage keys. Values are plain strings and are cleared together on logout.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUserEmail    = "user_email"
)

// SessionKeys lists every durable key owned by the session lifecycle
var SessionKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUserEmail}

// ErrNotFound is returned by ObjectStore.GetObject for unknown identifiers
var ErrNotFound = errors.New("object not found")

// Durable is string key/value storage that survives restarts.
// Get returns "" and no error for a missing key.
type Durable interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes all keys in one transaction
	Delete(ctx context.Context, keys ...string) error
}

// Object is a binary payload with the file metadata captured when it was shared
type Object struct {
	Data         []byte
	Name         string
	MIMEType     string
	Size         int64
	LastModified time.Time
	Meta         map[string]string
}

// ObjectStore keeps shared files keyed by a generated identifier
type ObjectStore interface {
	PutObject(ctx context.Context, id string, obj Object) error
	GetObject(ctx context.Context, id string) (*Object, error)
	DeleteObject(ctx context.Context, id string) error
}

// Ephemeral is per-tab scratch storage that never outlives the process
type Ephemeral interface {
	Get(tabID, key string) (string, bool)
	Set(tabID, key, value string)
	Delete(tabID, key string)
}

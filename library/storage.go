package library

import (
	"context"
	"errors"
)

// Keys persisted in local storage. They are fixed; the layout of the values
// is versioned by the storage schema.
const (
	KeyUser           = "user"
	KeyTheme          = "theme"
	KeyDeviceSecret   = "device_secret"
	KeyPendingRatings = "pending_ratings"
)

var ErrStorageClosed = errors.New("storage closed")

// Storage is the persistent key/value store that replaces browser storage.
// Watch delivers a signal whenever the key changes, including changes made
// by another process sharing the same store. The channel is closed once ctx
// is done.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Watch(ctx context.Context, key string) (<-chan struct{}, error)
	Close() error
}

// notify performs a non-blocking send so a slow watcher coalesces changes
// instead of stalling the writer.
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

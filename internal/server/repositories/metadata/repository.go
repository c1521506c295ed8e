// Package metadata keeps small pieces of process-local state, such as the
// last successful sync time, in an SQLite key/value table.
package metadata

import (
	"context"
)

// Repository is a string key/value store. Get returns ("", false, nil) for an
// absent key.
type Repository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}

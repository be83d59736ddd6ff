// Package metadata is a small key/value store over the client SQLite
// database. Values are opaque bytes; keys are grouped by dotted prefixes
// such as "session.".
package metadata

import (
	"context"
)

type Repository interface {
	// Get returns a nil value for absent keys.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// ListPrefix returns every pair whose key starts with prefix.
	ListPrefix(ctx context.Context, prefix string) (map[string][]byte, error)
	// DeletePrefix removes every key starting with prefix in one statement.
	DeletePrefix(ctx context.Context, prefix string) error
}

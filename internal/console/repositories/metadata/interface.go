// Package metadata is a durable key/value store on top of the console's
// sqlite database. Values are opaque bytes; callers own their encoding.
package metadata

import "context"

type Repository interface {
	// Get returns (nil, nil) when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set inserts or overwrites key.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes keys; absent keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}

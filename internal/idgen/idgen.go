// Package idgen generates placeholder identities for records that exist only
// on this client and have not yet been round-tripped through the API.
package idgen

import (
	"fmt"
	"strings"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// LocalPrefix marks an identity as client-assigned.
const LocalPrefix = "local-"

const (
	alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	length   = 12
)

// NewLocalID returns a fresh client-side identity such as "local-3k9x0c2mz8qa".
func NewLocalID() (string, error) {
	id, err := nanoid.Generate(alphabet, length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return LocalPrefix + id, nil
}

// IsLocal reports whether id was produced by NewLocalID.
func IsLocal(id string) bool {
	return strings.HasPrefix(id, LocalPrefix)
}

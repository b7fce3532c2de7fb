// Package media stores uploaded objects (avatars) and hands back the public
// URL clients fetch them from.
package media

import (
	"context"
	"io"
)

// ObjectStore is the one-way upload contract. Objects are immutable once
// written; replacing an avatar writes a new key.
type ObjectStore interface {
	// Put stores the object under key and returns its public URL. Size is
	// advisory; implementations may stream without it.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

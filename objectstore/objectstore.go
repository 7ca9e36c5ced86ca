package objectstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the object does not exist.
var ErrNotFound = errors.New("object not found")

// Store is a bucket/key addressed blob store.
type Store interface {
	Get(ctx context.Context, bucket string, key string) ([]byte, error)
	Put(ctx context.Context, bucket string, key string, data []byte) error
}

// ObjectInfo describes a listed object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Lister is implemented by stores that can enumerate the objects of a bucket.
type Lister interface {
	// List returns the objects under prefix modified at or after since, ordered by key.
	List(ctx context.Context, bucket string, prefix string, since time.Time) ([]ObjectInfo, error)
}

// ListingStore is a store that can also list objects.
type ListingStore interface {
	Store
	Lister
}

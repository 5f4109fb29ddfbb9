package storage

import (
	"context"
	"time"
)

// ImageStorage is the contract the image-management host programs
// against. Image identity is the (user, id) pair, mapped deterministically
// to the object path user/id.
type ImageStorage interface {
	Store(ctx context.Context, user, id string, data []byte) error
	Delete(ctx context.Context, user, id string) error
	GetImage(ctx context.Context, user, id string) ([]byte, error)
	LastModified(ctx context.Context, user, id string) (time.Time, error)
	Exists(ctx context.Context, user, id string) (bool, error)

	// Status is a best-effort health probe and never returns an error.
	Status(ctx context.Context) bool
}

// BucketEmptier is implemented by backends able to delete every stored
// object, all versions included, in one operation.
type BucketEmptier interface {
	EmptyBucket(ctx context.Context) error
}

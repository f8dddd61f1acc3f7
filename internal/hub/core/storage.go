package core

import (
	"context"
	"time"
)

// Storage abstracts the object store that holds captured clips. In Pitwall
// this is implemented by the MinIO adapter.
type Storage interface {
	// PresignedPutURL generates a temporary upload URL for the given
	// object key, so vehicles upload clips without holding store
	// credentials.
	PresignedPutURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
}

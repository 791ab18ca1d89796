package object

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrPresignUnsupported is returned by stores that cannot mint upload URLs.
var ErrPresignUnsupported = errors.New("presigned uploads not supported by this store")

// Store defines the contract for saving and retrieving binary objects
// addressed by opaque string keys within named buckets.
type Store interface {
	Put(ctx context.Context, bucket, key, contentType string, r io.Reader) error
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	// PresignPut returns a URL a client can PUT the object body to directly.
	PresignPut(ctx context.Context, bucket, key, contentType string, expires time.Duration) (string, error)
}

package objectstore

import (
	"context"
	"fmt"
	"io"
)

// Store is a key-addressed byte store. Keys are opaque strings produced by
// assetkeys; the store knows nothing about asset metadata.
type Store interface {
	// Put uploads one object under key. It fails if the bytes delivered by
	// in.Body do not match the declared in.Size.
	Put(ctx context.Context, key string, in PutInput) error

	// Get fetches an object. A missing key is not an error: it returns
	// (nil, nil).
	Get(ctx context.Context, key string) (*Object, error)

	// Delete removes an object. Deleting a missing key, or an empty key
	// string, is a no-op.
	Delete(ctx context.Context, key string) error
}

type PutInput struct {
	Body        io.Reader
	ContentType string
	Size        int64
}

type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
	ETag        string
}

// ErrSizeMismatch is returned by Put when the delivered byte count differs
// from the declared one.
type ErrSizeMismatch struct {
	Declared  int64
	Delivered int64
}

func (e *ErrSizeMismatch) Error() string {
	return fmt.Sprintf("content length mismatch: declared %d bytes, got %d", e.Declared, e.Delivered)
}

// readDeclared reads the full body and verifies it against the declared
// size. Reading one byte past the declared length catches over-long bodies
// without consuming arbitrarily more.
func readDeclared(body io.Reader, declared int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, declared+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) != declared {
		return nil, &ErrSizeMismatch{Declared: declared, Delivered: int64(len(data))}
	}
	return data, nil
}

package storage

import (
	"context"
	"errors"
	"io"
)

/*
Storage providers supply seekable byte sources for decoding. The decoder
needs free seeking - including relative-to-end - so providers return whole
objects as ReadSeekClosers rather than byte ranges. Memory, local
directory, and S3-compatible implementations are interchangeable.
*/

////////////////////////////////////////////////////////////////////////////////

// ErrObjectNotFound indicates a requested object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Provider is a store of decodable objects.
type Provider interface {
	// Put stores an object.
	Put(ctx context.Context, id string, data []byte) error
	// Get returns a seekable source over the object. The caller closes it.
	Get(ctx context.Context, id string) (io.ReadSeekCloser, error)
	// Delete removes an object.
	Delete(ctx context.Context, id string) error

	String() string
}

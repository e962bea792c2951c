package objectstore

import (
	"context"
	"errors"
)

// StoreRecord is the object-store facade's return value: the stored
// (compressed) bytes plus the sizes needed by the decompressor.
type StoreRecord struct {
	Content        []byte
	OriginalSize   int64
	CompressedSize int64
}

// Bucket names used by the core.
const (
	BucketUBLs  = "ubls"
	BucketXSLTs = "xslts"
)

// Sentinel errors returned by Store implementations; callers classify them
// into the pipeline's fatal/non-fatal taxonomy.
var (
	ErrNotFound     = errors.New("objectstore: record not found")
	ErrMultiple     = errors.New("objectstore: multiple records found for key")
	ErrMissingField = errors.New("objectstore: record missing required metadata field")
)

// Store is the abstract keyed-blob contract the pipeline consumes. The
// concrete implementation (GridFS-backed) lives in gridfs.go.
type Store interface {
	Exists(ctx context.Context, bucket, key, year string) (bool, error)
	Get(ctx context.Context, bucket, key, year string) (*StoreRecord, error)
}

// Package blob abstracts snapshot archive storage behind a small
// key/value object interface with filesystem, in-memory and S3 backends.
package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a blob backend.
type Driver string

const (
	// DriverFilesystem is the local filesystem backend.
	DriverFilesystem Driver = "fs"
	// DriverS3 is the S3-compatible backend.
	DriverS3 Driver = "s3"
	// DriverMemory is the in-memory test backend.
	DriverMemory Driver = "memory"
)

// ErrNotFound indicates the key has no stored object.
var ErrNotFound = errors.New("blob not found")

// Info describes stored object metadata.
type Info struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// Store is the interface snapshot archiving runs against. Put overwrites
// silently; snapshot keys carry timestamps so collisions do not occur in
// practice.
type Store interface {
	Driver() Driver
	Put(ctx context.Context, key string, r io.Reader, contentType string) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]Info, error)
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"picshelf/config"
	"picshelf/models"
)

var ErrUnknownReference = errors.New("reference does not belong to this bucket")

// Object is what the store hands back for a successful write
type Object struct {
	Reference string
	Size      int64
}

// ObjectStore keeps image bytes. Delete is best-effort: callers log its error and move on.
type ObjectStore interface {
	Put(ctx context.Context, name string, reader io.Reader) (Object, error)
	Load(ctx context.Context, reference string, writer io.Writer) (int64, error)
	Delete(ctx context.Context, reference string) error
}

// New returns the ObjectStore for the bucket's storage type
func New(bucket *Bucket) (ObjectStore, error) {
	switch bucket.StorageType {
	case StorageTypeFile:
		return NewDiskStorage(bucket), nil
	case StorageTypeS3:
		return NewS3Storage(bucket)
	}
	return nil, fmt.Errorf("storage type unavailable for bucket %q", bucket.Name)
}

func FromConfig(cfg *config.Config) (ObjectStore, error) {
	return New(BucketFromConfig(cfg))
}

// GetPath returns the object key for a new upload. For example:
//   - images/2024/05/3f1c...e2.jpg
func GetPath(id models.ID, name string, now time.Time) string {
	return fmt.Sprintf("images/%04d/%02d/%s%s", now.Year(), now.Month(), id.String(), strings.ToLower(path.Ext(name)))
}

type countingReader struct {
	io.Reader
	n int64
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.Reader.Read(p)
	r.n += int64(n)
	return n, err
}

package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"picshelf/models"
)

type DiskStorage struct {
	Bucket Bucket
	// BasePath is a directory (usually mount point of a disk) that is writable by the current process
	BasePath  string
	dirs      map[string]bool
	dirsMutex sync.Mutex
}

func NewDiskStorage(bucket *Bucket) *DiskStorage {
	return &DiskStorage{
		BasePath: bucket.Path,
		Bucket:   *bucket,
		dirs:     make(map[string]bool, 10),
	}
}

func (s *DiskStorage) createDir(dir string) error {
	s.dirsMutex.Lock()
	defer s.dirsMutex.Unlock()

	if ok := s.dirs[dir]; ok {
		return nil
	}
	if err := os.MkdirAll(dir, 0777); err != nil {
		return err
	}
	s.dirs[dir] = true
	return nil
}

func (s *DiskStorage) getFullPath(key string) string {
	return filepath.Join(s.BasePath, filepath.FromSlash(key))
}

func (s *DiskStorage) Put(ctx context.Context, name string, reader io.Reader) (Object, error) {
	key := GetPath(models.NewID(), name, time.Now())
	fileName := s.getFullPath(key)
	if err := s.createDir(filepath.Dir(fileName)); err != nil {
		return Object{}, err
	}
	file, err := os.Create(fileName)
	if err != nil {
		return Object{}, err
	}
	size, err := io.Copy(file, reader)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(fileName)
		return Object{}, err
	}
	return Object{Reference: s.Bucket.ReferenceFor(key), Size: size}, nil
}

func (s *DiskStorage) Load(ctx context.Context, reference string, writer io.Writer) (int64, error) {
	key, err := s.Bucket.KeyFrom(reference)
	if err != nil {
		return 0, err
	}
	file, err := os.Open(s.getFullPath(key))
	if err != nil {
		return 0, err
	}
	defer file.Close()
	return io.Copy(writer, file)
}

func (s *DiskStorage) Delete(ctx context.Context, reference string) error {
	key, err := s.Bucket.KeyFrom(reference)
	if err != nil {
		return err
	}
	return os.Remove(s.getFullPath(key))
}

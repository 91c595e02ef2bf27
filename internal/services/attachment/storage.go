package attachment

import (
	"errors"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/valyala/fasthttp"
)

// Storage keeps attachment blobs by their stored name.
type Storage interface {
	Save(fh *multipart.FileHeader, storedName string) (path string, err error)
	Remove(storedName string) error
}

// LocalStorage writes blobs into Dir, which is also served under /uploads.
type LocalStorage struct {
	Dir string
}

func NewLocalStorage(dir string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &LocalStorage{Dir: dir}, nil
}

func (s *LocalStorage) Save(fh *multipart.FileHeader, storedName string) (string, error) {
	path := filepath.Join(s.Dir, filepath.Base(storedName))
	if err := fasthttp.SaveMultipartFile(fh, path); err != nil {
		return "", err
	}
	return path, nil
}

// Remove is idempotent: a blob that is already gone is not an error.
func (s *LocalStorage) Remove(storedName string) error {
	err := os.Remove(filepath.Join(s.Dir, filepath.Base(storedName)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"restobar/config"
)

// Storage keeps uploaded files and returns the public URL they are served at.
type Storage interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	Delete(ctx context.Context, name string) error
}

var ErrInvalidName = errors.New("storage: invalid file name")

// FromConfig builds the storage backend selected by storage_backend.
func FromConfig(cfg *config.Config) (Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage: config required")
	}
	switch cfg.StorageBackend {
	case "", "local":
		local, err := NewLocalStorage(cfg.UploadDir, cfg.UploadURL)
		if err != nil {
			return nil, fmt.Errorf("storage: local backend: %w", err)
		}
		return local, nil
	case "noop":
		return NewNoopStorage(cfg.UploadURL), nil
	default:
		return nil, fmt.Errorf("storage: unsupported backend %q", cfg.StorageBackend)
	}
}

// LocalStorage writes files below a directory that the HTTP server exposes
// as static content.
type LocalStorage struct {
	dir     string
	baseURL string
}

func NewLocalStorage(dir, baseURL string) (*LocalStorage, error) {
	if dir == "" {
		dir = "./uploads"
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, err
	}
	return &LocalStorage{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func cleanName(name string) (string, error) {
	clean := path.Clean("/" + filepath.ToSlash(name))
	clean = strings.TrimPrefix(clean, "/")
	if clean == "" || clean == "." {
		return "", ErrInvalidName
	}
	return clean, nil
}

func (s *LocalStorage) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	rel, err := cleanName(name)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	full := filepath.Join(s.dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), os.ModePerm); err != nil {
		return "", err
	}
	f, err := os.Create(full)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(full)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return s.baseURL + "/" + rel, nil
}

func (s *LocalStorage) Delete(_ context.Context, name string) error {
	rel, err := cleanName(name)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.dir, filepath.FromSlash(rel)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// NoopStorage discards content but still hands out URLs.
type NoopStorage struct {
	baseURL string
}

func NewNoopStorage(baseURL string) *NoopStorage {
	return &NoopStorage{baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *NoopStorage) Save(_ context.Context, name string, r io.Reader) (string, error) {
	rel, err := cleanName(name)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	return s.baseURL + "/" + rel, nil
}

func (s *NoopStorage) Delete(context.Context, string) error {
	return nil
}

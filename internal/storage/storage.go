// Package storage is the object-storage collaborator: local disk under an
// upload root, one directory per bucket, served publicly through the
// app's /uploads static route.
package storage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type Storage struct {
	root    string
	baseURL string
}

func New(root, baseURL string) *Storage {
	return &Storage{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *Storage) Root() string { return s.root }

// UniqueName keeps the original extension and replaces the rest with a
// uuid so uploads never collide.
func UniqueName(original string) string {
	return uuid.New().String() + strings.ToLower(filepath.Ext(original))
}

// Save writes r into <root>/<bucket>/<name> and returns the object path
// "<bucket>/<name>" that callers persist.
func (s *Storage) Save(bucket, name string, r io.Reader) (string, error) {
	if strings.Contains(bucket, "..") || strings.Contains(name, "..") {
		return "", errors.New("invalid object path")
	}

	dir := filepath.Join(s.root, bucket)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		return "", err
	}
	return bucket + "/" + name, nil
}

// SaveUpload stores a multipart upload under bucket with a unique name.
func (s *Storage) SaveUpload(bucket string, fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	return s.Save(bucket, UniqueName(fh.Filename), src)
}

// Read returns the content of a stored object.
func (s *Storage) Read(objectPath string) ([]byte, error) {
	if strings.Contains(objectPath, "..") {
		return nil, errors.New("invalid object path")
	}
	return os.ReadFile(filepath.Join(s.root, filepath.FromSlash(objectPath)))
}

// PublicURL maps an object path to the URL clients fetch it from.
func (s *Storage) PublicURL(objectPath string) string {
	if objectPath == "" {
		return ""
	}
	return fmt.Sprintf("%s/uploads/%s", s.baseURL, objectPath)
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

/*
DirectoryStore is a storage provider over a local directory. Files are
served directly as seekable sources.
*/

////////////////////////////////////////////////////////////////////////////////

// DirectoryStore stores objects as files under a root directory.
type DirectoryStore struct {
	root string
}

// NewDirectoryStore creates a new DirectoryStore.
func NewDirectoryStore(root string) *DirectoryStore {
	return &DirectoryStore{root: root}
}

func (d *DirectoryStore) path(id string) (string, error) {
	path := filepath.Join(d.root, id)
	if !strings.HasPrefix(path, filepath.Clean(d.root)+string(os.PathSeparator)) {
		return "", fmt.Errorf("object id %q escapes the store root", id)
	}
	return path, nil
}

// Put stores an object in the directory.
func (d *DirectoryStore) Put(_ context.Context, id string, data []byte) error {
	path, err := d.path(id)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write failure: %w", err)
	}
	return nil
}

// Get opens an object as a seekable source.
func (d *DirectoryStore) Get(_ context.Context, id string) (io.ReadSeekCloser, error) {
	path, err := d.path(id)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("open failure: %w", err)
	}
	return f, nil
}

// Delete removes an object from the directory.
func (d *DirectoryStore) Delete(_ context.Context, id string) error {
	path, err := d.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) { // For conformance to S3 API
			return nil
		}
		return fmt.Errorf("deletion failure: %w", err)
	}
	return nil
}

func (d *DirectoryStore) String() string {
	return "directory(" + d.root + ")"
}

package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// FSStore implements Store on a local directory. Keys map to relative
// paths under the root; traversal outside the root is rejected.
type FSStore struct {
	root string
}

// NewFilesystem opens (creating if needed) a directory-rooted store.
func NewFilesystem(root string) (*FSStore, error) {
	if root == "" {
		root = "./snapshots"
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create root: %w", err)
	}
	return &FSStore{root: abs}, nil
}

// Driver returns the backend identifier.
func (s *FSStore) Driver() Driver { return DriverFilesystem }

func (s *FSStore) resolve(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("blob key required")
	}
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// Put writes an object, replacing any previous content at the key.
func (s *FSStore) Put(_ context.Context, key string, r io.Reader, contentType string) (Info, error) {
	target, err := s.resolve(key)
	if err != nil {
		return Info{}, err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return Info{}, fmt.Errorf("create dirs: %w", err)
	}
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return Info{}, fmt.Errorf("open %s: %w", key, err)
	}
	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return Info{}, fmt.Errorf("write %s: %w", key, err)
	}
	return s.stat(key, target, size, contentType)
}

func (s *FSStore) stat(key, target string, size int64, contentType string) (Info, error) {
	st, err := os.Stat(target)
	if err != nil {
		return Info{}, fmt.Errorf("stat %s: %w", key, err)
	}
	if contentType == "" {
		contentType = mime.TypeByExtension(path.Ext(key))
	}
	return Info{Key: key, Size: size, ContentType: contentType, LastModified: st.ModTime().UTC()}, nil
}

// Get opens an object for reading.
func (s *FSStore) Get(_ context.Context, key string) (Info, io.ReadCloser, error) {
	target, err := s.resolve(key)
	if err != nil {
		return Info{}, nil, err
	}
	f, err := os.Open(target)
	if errors.Is(err, fs.ErrNotExist) {
		return Info{}, nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return Info{}, nil, fmt.Errorf("open %s: %w", key, err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return Info{}, nil, fmt.Errorf("stat %s: %w", key, err)
	}
	info := Info{Key: key, Size: st.Size(), ContentType: mime.TypeByExtension(path.Ext(key)), LastModified: st.ModTime().UTC()}
	return info, f, nil
}

// Delete removes an object.
func (s *FSStore) Delete(_ context.Context, key string) error {
	target, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	} else if err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// List walks the root and returns objects under prefix sorted by key.
func (s *FSStore) List(_ context.Context, prefix string) ([]Info, error) {
	var infos []Info
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			return nil
		}
		st, err := d.Info()
		if err != nil {
			return err
		}
		infos = append(infos, Info{Key: key, Size: st.Size(), ContentType: mime.TypeByExtension(path.Ext(key)), LastModified: st.ModTime().UTC()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk root: %w", err)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

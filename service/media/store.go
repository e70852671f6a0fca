package media

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"

	"chatter/tools/ids"
)

// ObjectStore holds avatars and chat media. The boundary is an interface:
// the REST layer never cares where bytes land.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader) (string, error)
	Remove(ctx context.Context, key string) error
}

// ObjectName builds "<folder>/<name>.<ext>" with the extension detected
// from content, falling back to a random name when none is given.
func ObjectName(folder, name string, head []byte) string {
	if name == "" {
		name = ids.Generate()
	}
	ext := mimetype.Detect(head).Extension()
	if ext == "" {
		ext = ".png"
	}
	return folder + "/" + name + ext
}

// DiskStore keeps objects under a local directory, keyed by relative path.
type DiskStore struct {
	root string
}

func NewDiskStore(root string) (*DiskStore, error) {
	if root == "" {
		return nil, errors.New("media root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "create media root")
	}
	return &DiskStore{root: root}, nil
}

func (d *DiskStore) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if strings.Contains(clean, "..") {
		return "", errors.Errorf("bad object key %q", key)
	}
	return filepath.Join(d.root, clean), nil
}

func (d *DiskStore) Put(_ context.Context, key string, r io.Reader) (string, error) {
	p, err := d.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", errors.Wrap(err, "create object dir")
	}
	f, err := os.Create(p)
	if err != nil {
		return "", errors.Wrap(err, "create object")
	}
	defer func() { _ = f.Close() }()
	if _, err := io.Copy(f, r); err != nil {
		return "", errors.Wrap(err, "write object")
	}
	return key, nil
}

func (d *DiskStore) Remove(_ context.Context, key string) error {
	p, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove object")
	}
	return nil
}

// Package localfs archives artifacts under a root directory on the local
// filesystem.
package localfs

import (
	"context"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/pkg/errors"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/ports"
)

// Store implements ports.ArchiveStore on the local filesystem. Keys map
// directly to paths under root.
type Store struct {
	root string
}

func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) Provider() string { return "localfs" }

func (s *Store) Store(ctx context.Context, in ports.StoreArtifactInput) (ports.StoreArtifactOutput, error) {
	if in.Key == "" {
		return ports.StoreArtifactOutput{}, errors.Validation("artifact key is required")
	}

	dst := filepath.Join(s.root, filepath.FromSlash(in.Key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return ports.StoreArtifactOutput{}, err
	}

	f, err := os.Create(dst)
	if err != nil {
		return ports.StoreArtifactOutput{}, err
	}
	defer f.Close()

	n, err := io.Copy(f, in.Reader)
	if err != nil {
		return ports.StoreArtifactOutput{}, err
	}

	return ports.StoreArtifactOutput{Key: in.Key, Size: n}, nil
}

func (s *Store) Open(ctx context.Context, key string) (rc io.ReadCloser, contentType string, size int64, err error) {
	p := filepath.Join(s.root, filepath.FromSlash(key))
	f, err := os.Open(p)
	if err != nil {
		return nil, "", 0, err
	}

	if st, statErr := f.Stat(); statErr == nil {
		size = st.Size()
	}

	// Extension first; sniff the head only when the extension says
	// nothing.
	contentType = mime.TypeByExtension(filepath.Ext(p))
	if contentType == "" {
		buf := make([]byte, 512)
		n, _ := f.Read(buf)
		_, _ = f.Seek(0, 0)
		contentType = http.DetectContentType(buf[:n])
	}

	return f, contentType, size, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return os.Remove(filepath.Join(s.root, filepath.FromSlash(key)))
}

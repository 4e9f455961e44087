// Package gdrive archives artifacts to a Google Drive folder.
package gdrive

import (
	"context"
	"fmt"
	"io"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/pkg/errors"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/ports"
)

// Store implements ports.ArchiveStore backed by Google Drive. The input
// key becomes the Drive file name; the returned key is the Drive fileId,
// which later Open/Delete calls must use.
type Store struct {
	srv      *drive.Service
	folderID string
}

func New(srv *drive.Service, folderID string) *Store {
	return &Store{srv: srv, folderID: folderID}
}

func (s *Store) Provider() string { return "gdrive" }

func (s *Store) Store(ctx context.Context, in ports.StoreArtifactInput) (ports.StoreArtifactOutput, error) {
	if in.Key == "" {
		return ports.StoreArtifactOutput{}, errors.Validation("artifact key is required")
	}

	file := &drive.File{Name: in.Key}
	if s.folderID != "" {
		file.Parents = []string{s.folderID}
	}

	call := s.srv.Files.Create(file)
	if in.ContentType != "" {
		call = call.Media(in.Reader, googleapi.ContentType(in.ContentType))
	} else {
		call = call.Media(in.Reader)
	}

	created, err := call.Context(ctx).Do()
	if err != nil {
		return ports.StoreArtifactOutput{}, fmt.Errorf("drive upload failed: %w", err)
	}

	return ports.StoreArtifactOutput{Key: created.Id, Size: in.Size}, nil
}

func (s *Store) Open(ctx context.Context, key string) (rc io.ReadCloser, contentType string, size int64, err error) {
	resp, err := s.srv.Files.Get(key).
		SupportsAllDrives(true).
		Download()
	if err != nil {
		return nil, "", 0, err
	}

	return resp.Body, resp.Header.Get("Content-Type"), resp.ContentLength, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.srv.Files.Delete(key).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
}

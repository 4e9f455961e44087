// Package storage selects and constructs the configured archive backend.
package storage

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/adapters/storage/gdrive"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/adapters/storage/localfs"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/config"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/ports"
)

// NewArchiveStore builds the archive backend named by cfg.StorageProvider.
func NewArchiveStore(ctx context.Context, cfg config.Config) (ports.ArchiveStore, error) {
	switch cfg.StorageProvider {
	case "localfs":
		return localfs.New(cfg.StorageRoot), nil

	case "gdrive":
		return newGDriveStore(ctx)

	default:
		return nil, fmt.Errorf("unknown storage provider: %s", cfg.StorageProvider)
	}
}

// newGDriveStore wires an OAuth refresh-token client into the Drive API.
func newGDriveStore(ctx context.Context) (ports.ArchiveStore, error) {
	conf := &oauth2.Config{
		ClientID:     config.MustEnv("GDRIVE_CLIENT_ID"),
		ClientSecret: config.MustEnv("GDRIVE_CLIENT_SECRET"),
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveFileScope},
	}
	tok := &oauth2.Token{RefreshToken: config.MustEnv("GDRIVE_REFRESH_TOKEN")}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(conf.Client(ctx, tok)))
	if err != nil {
		return nil, err
	}

	return gdrive.New(srv, config.Env("GDRIVE_FOLDER_ID", "")), nil
}

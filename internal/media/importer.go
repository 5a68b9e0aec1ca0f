package media

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"

	"github.com/ampers-mn/prx-sync/internal/logger"
	"github.com/ampers-mn/prx-sync/internal/store"
)

// Media-layer errors. Both are always non-fatal to a story import: the
// caller logs a warning and continues without the asset.
var (
	ErrDownloadFailed = errors.New("media: download failed")
	ErrStoreFailed    = errors.New("media: store failed")
)

// Downloader fetches a remote resource into a local file.
type Downloader interface {
	Download(ctx context.Context, url, destPath string) error
}

// Importer resolves remote media URLs to local attachments, downloading
// and deduplicating by source URL as needed.
type Importer struct {
	media      store.MediaStore
	downloader Downloader
	dryRun     bool
}

// NewImporter builds a media importer over the given store and downloader.
func NewImporter(media store.MediaStore, downloader Downloader, dryRun bool) *Importer {
	return &Importer{
		media:      media,
		downloader: downloader,
		dryRun:     dryRun,
	}
}

// EnsureAsset returns the local asset id for the given remote URL, creating
// the asset on first sight. An empty URL is a no-op returning 0. Lookup
// order: provenance field, then stored filename; a filename hit backfills
// the provenance field so the next sync resolves directly.
func (i *Importer) EnsureAsset(ctx context.Context, rawURL, title string, ownerID int64) (int64, error) {
	if rawURL == "" {
		return 0, nil
	}

	asset, err := i.media.FindMediaByField(store.FieldOriginalURL, rawURL)
	if err != nil {
		return 0, fmt.Errorf("%w: lookup by url: %v", ErrStoreFailed, err)
	}
	if asset != nil {
		logger.DebugObj("media asset resolved by provenance", "media_lookup", map[string]any{
			"asset_id": asset.ID,
			"url":      rawURL,
		})
		return asset.ID, nil
	}

	fileName := fileNameFromURL(rawURL)
	asset, err = i.media.FindMediaByField(store.FieldFileName, fileName)
	if err != nil {
		return 0, fmt.Errorf("%w: lookup by filename: %v", ErrStoreFailed, err)
	}
	if asset != nil {
		if !i.dryRun {
			if err := i.media.SetMediaField(asset.ID, store.FieldOriginalURL, rawURL); err != nil {
				return 0, fmt.Errorf("%w: backfill original_url: %v", ErrStoreFailed, err)
			}
		}
		logger.DebugObj("media asset resolved by filename", "media_lookup", map[string]any{
			"asset_id":  asset.ID,
			"file_name": fileName,
			"url":       rawURL,
		})
		return asset.ID, nil
	}

	if i.dryRun {
		logger.InfoObj("dry run: would download media", "media_dry_run", map[string]any{
			"url":      rawURL,
			"owner_id": ownerID,
		})
		return 0, nil
	}

	tmp, err := os.CreateTemp("", "prx-media-*")
	if err != nil {
		return 0, fmt.Errorf("%w: create temp file: %v", ErrDownloadFailed, err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	if err := i.downloader.Download(ctx, rawURL, tmpPath); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	id, err := i.media.ImportAttachment(tmpPath, fileName, title, ownerID)
	if err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}

	if err := i.media.SetMediaField(id, store.FieldOriginalURL, rawURL); err != nil {
		return 0, fmt.Errorf("%w: tag original_url: %v", ErrStoreFailed, err)
	}

	logger.InfoObj("media asset imported", "media_import", map[string]any{
		"asset_id":  id,
		"file_name": fileName,
		"url":       rawURL,
	})
	return id, nil
}

// fileNameFromURL derives the stored filename from the URL path, ignoring
// query strings CDNs append.
func fileNameFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Path == "" {
		return path.Base(rawURL)
	}
	return path.Base(parsed.Path)
}

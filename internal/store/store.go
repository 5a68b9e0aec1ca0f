package store

import (
	"fmt"
	"strings"

	"github.com/ampers-mn/prx-sync/internal/domain"
)

// Package store defines the content-repository surface the sync engine
// writes through, plus a bbolt-backed implementation for standalone runs.
// A host CMS integration would supply its own implementation.

// Lookup keys understood by the find-by-field primitives.
const (
	FieldPRXID       = "prx_id"
	FieldOriginalURL = "original_url"
	FieldFileName    = "filename"
	FieldCaption     = "caption"
	FieldCredit      = "credit"
	FieldDuration    = "duration"
	FieldTranscript  = "transcript"
)

// Taxonomy names written during import.
const (
	TaxonomyCategory = "category"
	TaxonomyStations = "stations"
)

// ContentStore is the content-item surface of the repository.
type ContentStore interface {
	// FindContentIDByField returns the id of the item whose custom field
	// matches, or 0 when none exists.
	FindContentIDByField(key, value string) (int64, error)
	// CreateContent creates a new item from core fields and returns its id.
	CreateContent(fields domain.ContentFields) (int64, error)
	// UpdateContent rewrites the core fields of an existing item in place,
	// preserving its identity and everything outside ContentFields.
	UpdateContent(id int64, fields domain.ContentFields) (int64, error)
	SetCustomField(id int64, key, value string) error
	SetTaxonomyTerms(id int64, taxonomy string, terms []string) error
	SetFeaturedMedia(id, assetID int64) error
	// ReplaceAudioAttachments discards the item's audio list and installs
	// the new one wholesale.
	ReplaceAudioAttachments(id int64, items []domain.AudioAttachment) error
	GetContent(id int64) (*domain.ContentItem, error)
}

// MediaStore is the attachment surface of the repository.
type MediaStore interface {
	// FindMediaByField returns the asset matching the key/value pair, or
	// nil when none exists. Supported keys: original_url, filename.
	FindMediaByField(key, value string) (*domain.MediaAsset, error)
	// ImportAttachment takes ownership of the file at tmpPath and registers
	// it as a media asset, returning the new asset id.
	ImportAttachment(tmpPath, fileName, title string, ownerID int64) (int64, error)
	SetMediaField(assetID int64, key, value string) error
	GetMedia(id int64) (*domain.MediaAsset, error)
}

// Store is the full repository contract.
type Store interface {
	ContentStore
	MediaStore
	Close() error
}

// New creates the configured storage backend.
func New(typ, path, mediaDir string) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))

	switch typ {
	case "", "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		if strings.TrimSpace(mediaDir) == "" {
			return nil, fmt.Errorf("bbolt storage requires a media directory")
		}
		return openBolt(path, mediaDir)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

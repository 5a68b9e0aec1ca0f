package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ampers-mn/prx-sync/internal/domain"
	bolt "go.etcd.io/bbolt"
)

const (
	contentBucket     = "content"
	contentPRXBucket  = "content_by_prx_id"
	mediaBucket       = "media"
	mediaURLBucket    = "media_by_url"
	mediaFileBucket   = "media_by_file"
	boltIDValueBytes  = 8
	mediaFilePermMask = 0o644
)

// boltStore implements Store backed by BoltDB plus a media directory for
// attachment files.
type boltStore struct {
	db       *bolt.DB
	mediaDir string
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path, mediaDir string) (Store, error) {
	for _, dir := range []string{filepath.Dir(path), mediaDir} {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{contentBucket, contentPRXBucket, mediaBucket, mediaURLBucket, mediaFileBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}

	return &boltStore{db: db, mediaDir: mediaDir}, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// FindContentIDByField resolves prx_id through its index; other keys scan
// the content bucket.
func (b *boltStore) FindContentIDByField(key, value string) (int64, error) {
	var id int64
	err := b.db.View(func(tx *bolt.Tx) error {
		if key == FieldPRXID {
			raw := tx.Bucket([]byte(contentPRXBucket)).Get([]byte(value))
			id = decodeID(raw)
			return nil
		}

		cursor := tx.Bucket([]byte(contentBucket)).Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			var item domain.ContentItem
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("decode content item: %w", err)
			}
			if item.CustomFields[key] == value {
				id = item.ID
				return nil
			}
		}
		return nil
	})
	return id, err
}

// CreateContent creates a new item from core fields and returns its id.
func (b *boltStore) CreateContent(fields domain.ContentFields) (int64, error) {
	var id int64
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(contentBucket))
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		id = int64(seq)

		item := domain.ContentItem{
			ID:          id,
			Title:       fields.Title,
			Content:     fields.Content,
			Excerpt:     fields.Excerpt,
			PublishedAt: fields.PublishedAt,
			ModifiedAt:  fields.ModifiedAt,
			Tags:        fields.Tags,
		}
		return putContent(bucket, &item)
	})
	if err != nil {
		return 0, fmt.Errorf("create content: %w", err)
	}
	return id, nil
}

// UpdateContent rewrites core fields in place, preserving identity and the
// fields outside ContentFields.
func (b *boltStore) UpdateContent(id int64, fields domain.ContentFields) (int64, error) {
	err := b.updateContent(id, func(item *domain.ContentItem) {
		item.Title = fields.Title
		item.Content = fields.Content
		item.Excerpt = fields.Excerpt
		item.PublishedAt = fields.PublishedAt
		item.ModifiedAt = fields.ModifiedAt
		item.Tags = fields.Tags
	})
	if err != nil {
		return 0, fmt.Errorf("update content %d: %w", id, err)
	}
	return id, nil
}

// SetCustomField stores a custom field; prx_id writes also maintain the
// external-id index.
func (b *boltStore) SetCustomField(id int64, key, value string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(contentBucket))
		item, err := getContent(bucket, id)
		if err != nil {
			return err
		}
		if item.CustomFields == nil {
			item.CustomFields = make(map[string]string)
		}
		item.CustomFields[key] = value
		if err := putContent(bucket, item); err != nil {
			return err
		}
		if key == FieldPRXID {
			return tx.Bucket([]byte(contentPRXBucket)).Put([]byte(value), encodeID(id))
		}
		return nil
	})
}

// SetTaxonomyTerms replaces the terms of one taxonomy on the item.
func (b *boltStore) SetTaxonomyTerms(id int64, taxonomy string, terms []string) error {
	return b.updateContent(id, func(item *domain.ContentItem) {
		if item.Taxonomies == nil {
			item.Taxonomies = make(map[string][]string)
		}
		item.Taxonomies[taxonomy] = terms
	})
}

// SetFeaturedMedia points the item's featured media at the given asset.
func (b *boltStore) SetFeaturedMedia(id, assetID int64) error {
	return b.updateContent(id, func(item *domain.ContentItem) {
		item.FeaturedMediaID = assetID
	})
}

// ReplaceAudioAttachments installs the new audio list wholesale.
func (b *boltStore) ReplaceAudioAttachments(id int64, items []domain.AudioAttachment) error {
	return b.updateContent(id, func(item *domain.ContentItem) {
		item.Audio = items
	})
}

// GetContent returns the stored item, or an error when it does not exist.
func (b *boltStore) GetContent(id int64) (*domain.ContentItem, error) {
	var item *domain.ContentItem
	err := b.db.View(func(tx *bolt.Tx) error {
		var err error
		item, err = getContent(tx.Bucket([]byte(contentBucket)), id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// FindMediaByField resolves an asset by provenance URL or filename.
func (b *boltStore) FindMediaByField(key, value string) (*domain.MediaAsset, error) {
	var indexBucket string
	switch key {
	case FieldOriginalURL:
		indexBucket = mediaURLBucket
	case FieldFileName:
		indexBucket = mediaFileBucket
	default:
		return nil, fmt.Errorf("unsupported media lookup key %q", key)
	}

	var asset *domain.MediaAsset
	err := b.db.View(func(tx *bolt.Tx) error {
		id := decodeID(tx.Bucket([]byte(indexBucket)).Get([]byte(value)))
		if id == 0 {
			return nil
		}
		raw := tx.Bucket([]byte(mediaBucket)).Get(encodeID(id))
		if raw == nil {
			return nil
		}
		var a domain.MediaAsset
		if err := json.Unmarshal(raw, &a); err != nil {
			return fmt.Errorf("decode media asset: %w", err)
		}
		asset = &a
		return nil
	})
	return asset, err
}

// ImportAttachment moves the downloaded file into the media directory and
// registers the asset, indexed by filename for fallback lookups.
func (b *boltStore) ImportAttachment(tmpPath, fileName, title string, ownerID int64) (int64, error) {
	var id int64
	var dest string
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(mediaBucket))
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		id = int64(seq)

		dest = filepath.Join(b.mediaDir, fmt.Sprintf("%d-%s", id, fileName))
		if err := moveFile(tmpPath, dest); err != nil {
			dest = ""
			return fmt.Errorf("place media file: %w", err)
		}

		asset := domain.MediaAsset{
			ID:        id,
			FileName:  fileName,
			Path:      dest,
			Title:     title,
			OwnerID:   ownerID,
			CreatedAt: time.Now().UTC(),
		}
		raw, err := json.Marshal(asset)
		if err != nil {
			return err
		}
		if err := bucket.Put(encodeID(id), raw); err != nil {
			return err
		}
		return tx.Bucket([]byte(mediaFileBucket)).Put([]byte(fileName), encodeID(id))
	})
	if err != nil {
		// The record rolled back with the transaction; the moved file must
		// not stay behind.
		if dest != "" {
			os.Remove(dest)
		}
		return 0, fmt.Errorf("import attachment: %w", err)
	}
	return id, nil
}

// SetMediaField updates an asset attribute; original_url writes also
// maintain the provenance index.
func (b *boltStore) SetMediaField(assetID int64, key, value string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(mediaBucket))
		raw := bucket.Get(encodeID(assetID))
		if raw == nil {
			return fmt.Errorf("media asset %d not found", assetID)
		}
		var asset domain.MediaAsset
		if err := json.Unmarshal(raw, &asset); err != nil {
			return fmt.Errorf("decode media asset: %w", err)
		}

		switch key {
		case FieldOriginalURL:
			asset.OriginalURL = value
		case FieldCaption:
			asset.Caption = value
		case FieldCredit:
			asset.Credit = value
		default:
			return fmt.Errorf("unsupported media field %q", key)
		}

		updated, err := json.Marshal(asset)
		if err != nil {
			return err
		}
		if err := bucket.Put(encodeID(assetID), updated); err != nil {
			return err
		}
		if key == FieldOriginalURL {
			return tx.Bucket([]byte(mediaURLBucket)).Put([]byte(value), encodeID(assetID))
		}
		return nil
	})
}

// GetMedia returns the stored asset, or an error when it does not exist.
func (b *boltStore) GetMedia(id int64) (*domain.MediaAsset, error) {
	var asset *domain.MediaAsset
	err := b.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(mediaBucket)).Get(encodeID(id))
		if raw == nil {
			return fmt.Errorf("media asset %d not found", id)
		}
		var a domain.MediaAsset
		if err := json.Unmarshal(raw, &a); err != nil {
			return fmt.Errorf("decode media asset: %w", err)
		}
		asset = &a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return asset, nil
}

// updateContent loads, mutates, and rewrites one item inside a transaction.
func (b *boltStore) updateContent(id int64, mutate func(*domain.ContentItem)) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(contentBucket))
		item, err := getContent(bucket, id)
		if err != nil {
			return err
		}
		mutate(item)
		return putContent(bucket, item)
	})
}

func getContent(bucket *bolt.Bucket, id int64) (*domain.ContentItem, error) {
	raw := bucket.Get(encodeID(id))
	if raw == nil {
		return nil, fmt.Errorf("content item %d not found", id)
	}
	var item domain.ContentItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("decode content item: %w", err)
	}
	return &item, nil
}

func putContent(bucket *bolt.Bucket, item *domain.ContentItem) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return bucket.Put(encodeID(item.ID), raw)
}

func encodeID(id int64) []byte {
	buf := make([]byte, boltIDValueBytes)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

func decodeID(value []byte) int64 {
	if len(value) != boltIDValueBytes {
		return 0
	}
	return int64(binary.BigEndian.Uint64(value))
}

// moveFile renames when possible and falls back to copy+remove across
// filesystems (temp dir and media dir may not share a device).
func moveFile(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mediaFilePermMask)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

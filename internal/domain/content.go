package domain

import "time"

// ContentFields are the core fields written through the content store's
// create-or-update primitive in a single call.
type ContentFields struct {
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Excerpt     string    `json:"excerpt"`
	PublishedAt time.Time `json:"published_at"`
	ModifiedAt  time.Time `json:"modified_at"`
	Tags        []string  `json:"tags"`
}

// ContentItem is the local persisted representation of a RemoteStory.
// At most one ContentItem exists per distinct prx_id custom field.
type ContentItem struct {
	ID              int64               `json:"id"`
	Title           string              `json:"title"`
	Content         string              `json:"content"`
	Excerpt         string              `json:"excerpt"`
	PublishedAt     time.Time           `json:"published_at"`
	ModifiedAt      time.Time           `json:"modified_at"`
	Tags            []string            `json:"tags"`
	Taxonomies      map[string][]string `json:"taxonomies,omitempty"`
	CustomFields    map[string]string   `json:"custom_fields,omitempty"`
	FeaturedMediaID int64               `json:"featured_media_id,omitempty"`
	Audio           []AudioAttachment   `json:"audio,omitempty"`
}

// AudioAttachment references one imported audio asset on a content item.
type AudioAttachment struct {
	AssetID  int64  `json:"asset_id"`
	Label    string `json:"label"`
	Duration int    `json:"duration"`
}

// MediaAsset is a locally stored copy of a remote media file. OriginalURL
// is the provenance key that deduplicates downloads across sync runs.
type MediaAsset struct {
	ID          int64     `json:"id"`
	FileName    string    `json:"file_name"`
	Path        string    `json:"path"`
	Title       string    `json:"title"`
	OriginalURL string    `json:"original_url,omitempty"`
	Caption     string    `json:"caption,omitempty"`
	Credit      string    `json:"credit,omitempty"`
	OwnerID     int64     `json:"owner_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

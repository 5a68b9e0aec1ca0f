package mapper

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/ampers-mn/prx-sync/internal/domain"
	"github.com/ampers-mn/prx-sync/internal/logger"
	"github.com/ampers-mn/prx-sync/internal/store"
)

// ErrUpsertFailed means the content item could not be created or updated.
// Fatal for that single story; the sync loop records it and continues.
var ErrUpsertFailed = errors.New("mapper: upsert failed")

// importTag is appended to every imported story's tag set.
const importTag = "prx"

// AssetResolver resolves a remote media URL to a local asset id.
type AssetResolver interface {
	EnsureAsset(ctx context.Context, url, title string, ownerID int64) (int64, error)
}

// Mapper transforms one RemoteStory into local content fields, taxonomy
// terms, and media references, and writes them through the store.
type Mapper struct {
	content  store.ContentStore
	media    store.MediaStore
	assets   AssetResolver
	sanitize *sanitizer
	dryRun   bool
}

// New builds a story mapper. With dryRun set, lookups still happen but
// every mutating step is replaced by a log entry.
func New(content store.ContentStore, media store.MediaStore, assets AssetResolver, dryRun bool) *Mapper {
	return &Mapper{
		content:  content,
		media:    media,
		assets:   assets,
		sanitize: newSanitizer(),
		dryRun:   dryRun,
	}
}

// MapAndUpsert imports one story, creating or updating the content item
// keyed by its prx_id. Media failures are logged and never fail the story.
func (m *Mapper) MapAndUpsert(ctx context.Context, story domain.RemoteStory) (int64, error) {
	tags := append(append([]string{}, story.Tags...), importTag)

	content, excerpt := deriveBody(story.ShortDescription, story.Description)
	content = m.sanitize.Clean(content)

	fields := domain.ContentFields{
		Title:       story.Title,
		Content:     content,
		Excerpt:     excerpt,
		PublishedAt: story.PublishedAt,
		ModifiedAt:  story.UpdatedAt,
		Tags:        tags,
	}

	id, err := m.upsertCore(story, fields)
	if err != nil {
		return 0, err
	}

	if err := m.setCustomFields(id, story); err != nil {
		return 0, err
	}
	m.setTaxonomies(id, story)
	m.importImage(ctx, id, story)
	m.importAudio(ctx, id, story)

	return id, nil
}

// upsertCore writes the core fields through the create-or-update
// primitive, preserving the existing item's identity when one matches.
func (m *Mapper) upsertCore(story domain.RemoteStory, fields domain.ContentFields) (int64, error) {
	existingID, err := m.content.FindContentIDByField(store.FieldPRXID, strconv.FormatInt(story.ID, 10))
	if err != nil {
		return 0, fmt.Errorf("%w: lookup story %d: %v", ErrUpsertFailed, story.ID, err)
	}

	if m.dryRun {
		action := "create new item"
		id := story.ID // echoed id, nothing is written
		if existingID != 0 {
			action = fmt.Sprintf("update existing item %d", existingID)
			id = existingID
		}
		logger.InfoObj("dry run: would "+action, "mapper_dry_run", map[string]any{
			"prx_id": story.ID,
			"title":  story.Title,
		})
		return id, nil
	}

	var id int64
	if existingID != 0 {
		id, err = m.content.UpdateContent(existingID, fields)
	} else {
		id, err = m.content.CreateContent(fields)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: story %d: %v", ErrUpsertFailed, story.ID, err)
	}
	if id <= 0 {
		// The primitive reported success without a usable id.
		return 0, fmt.Errorf("%w: story %d: no content id returned", ErrUpsertFailed, story.ID)
	}
	return id, nil
}

func (m *Mapper) setCustomFields(id int64, story domain.RemoteStory) error {
	if m.dryRun {
		logger.InfoObj("dry run: would set custom fields", "mapper_dry_run", map[string]any{
			"prx_id":   story.ID,
			"duration": story.Duration,
		})
		return nil
	}

	fields := map[string]string{
		store.FieldPRXID:      strconv.FormatInt(story.ID, 10),
		store.FieldDuration:   strconv.Itoa(story.Duration),
		store.FieldTranscript: story.Transcript,
	}
	for key, value := range fields {
		if err := m.content.SetCustomField(id, key, value); err != nil {
			return fmt.Errorf("%w: story %d: set %s: %v", ErrUpsertFailed, story.ID, key, err)
		}
	}
	return nil
}

// setTaxonomies assigns series title as category and account short name as
// station. Taxonomy failures are warnings, not story failures.
func (m *Mapper) setTaxonomies(id int64, story domain.RemoteStory) {
	terms := []struct {
		taxonomy string
		value    string
	}{
		{store.TaxonomyCategory, story.SeriesTitle()},
		{store.TaxonomyStations, story.AccountShortName()},
	}

	for _, t := range terms {
		if t.value == "" {
			continue
		}
		if m.dryRun {
			logger.InfoObj("dry run: would set taxonomy term", "mapper_dry_run", map[string]any{
				"taxonomy": t.taxonomy,
				"term":     t.value,
			})
			continue
		}
		if err := m.content.SetTaxonomyTerms(id, t.taxonomy, []string{t.value}); err != nil {
			logger.WarnObj("taxonomy assignment failed", "mapper_warning", map[string]any{
				"content_id": id,
				"taxonomy":   t.taxonomy,
				"error":      err.Error(),
			})
		}
	}
}

// importImage resolves the featured image, preferring the story's own and
// falling back to the parent series'. Failures are logged and skipped.
func (m *Mapper) importImage(ctx context.Context, id int64, story domain.RemoteStory) {
	imgURL := story.ImageURL()
	var caption, credit string
	if imgURL != "" && story.Embedded.Image != nil {
		caption = story.Embedded.Image.Caption
		credit = story.Embedded.Image.Credit
	}
	if imgURL == "" {
		imgURL = story.SeriesImageURL()
	}
	if imgURL == "" {
		return
	}

	title := assetTitle("IMG", story)
	assetID, err := m.assets.EnsureAsset(ctx, imgURL, title, id)
	if err != nil {
		logger.WarnObj("image import failed", "mapper_warning", map[string]any{
			"content_id": id,
			"url":        imgURL,
			"error":      err.Error(),
		})
		return
	}
	if assetID == 0 || m.dryRun {
		if m.dryRun {
			logger.InfoObj("dry run: would set featured image", "mapper_dry_run", map[string]any{
				"content_id": id,
				"url":        imgURL,
			})
		}
		return
	}

	if err := m.content.SetFeaturedMedia(id, assetID); err != nil {
		logger.WarnObj("featured media assignment failed", "mapper_warning", map[string]any{
			"content_id": id,
			"asset_id":   assetID,
			"error":      err.Error(),
		})
		return
	}

	if caption != "" {
		if err := m.media.SetMediaField(assetID, store.FieldCaption, caption); err != nil {
			logger.WarnObj("media caption update failed", "mapper_warning", map[string]any{
				"asset_id": assetID,
				"error":    err.Error(),
			})
		}
	}
	if credit != "" {
		if err := m.media.SetMediaField(assetID, store.FieldCredit, credit); err != nil {
			logger.WarnObj("media credit update failed", "mapper_warning", map[string]any{
				"asset_id": assetID,
				"error":    err.Error(),
			})
		}
	}
}

// importAudio resolves every audio item in story order and replaces the
// item's audio list wholesale, discarding stale entries from prior syncs.
// A story without an audio block is left untouched.
func (m *Mapper) importAudio(ctx context.Context, id int64, story domain.RemoteStory) {
	items, ok := story.AudioItems()
	if !ok {
		return
	}

	title := assetTitle("MP3", story)
	attachments := make([]domain.AudioAttachment, 0, len(items))
	for _, item := range items {
		audioURL := item.Links.Href("enclosure")
		if audioURL == "" {
			continue
		}

		assetID, err := m.assets.EnsureAsset(ctx, audioURL, title, id)
		if err != nil {
			logger.WarnObj("audio import failed", "mapper_warning", map[string]any{
				"content_id": id,
				"url":        audioURL,
				"error":      err.Error(),
			})
			continue
		}
		if assetID == 0 {
			continue
		}
		attachments = append(attachments, domain.AudioAttachment{
			AssetID:  assetID,
			Label:    item.Label,
			Duration: item.Duration,
		})
	}

	if m.dryRun {
		logger.InfoObj("dry run: would replace audio attachments", "mapper_dry_run", map[string]any{
			"content_id": id,
			"count":      len(attachments),
		})
		return
	}

	if err := m.content.ReplaceAudioAttachments(id, attachments); err != nil {
		logger.WarnObj("audio attachment update failed", "mapper_warning", map[string]any{
			"content_id": id,
			"error":      err.Error(),
		})
	}
}

// deriveBody resolves content and excerpt from the two description fields.
// Differing short and long descriptions split into excerpt and content;
// identical ones collapse into content alone.
func deriveBody(short, long string) (content, excerpt string) {
	switch {
	case short != "" && long != "":
		if short == long {
			return long, ""
		}
		return long, short
	case short != "":
		return short, ""
	default:
		return long, ""
	}
}

func assetTitle(prefix string, story domain.RemoteStory) string {
	return fmt.Sprintf("%s: %s - prx_id:%d, series:%s, station:%s",
		prefix, story.Title, story.ID, story.SeriesTitle(), story.AccountShortName())
}

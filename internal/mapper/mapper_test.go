package mapper

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ampers-mn/prx-sync/internal/domain"
	"github.com/ampers-mn/prx-sync/internal/store"
)

type fakeContentStore struct {
	items      map[int64]*domain.ContentItem
	nextID     int64
	creates    int
	updates    int
	createErr  error
	updateErr  error
	customErr  error
	taxErr     error
	createZero bool
}

func newFakeContentStore() *fakeContentStore {
	return &fakeContentStore{items: make(map[int64]*domain.ContentItem)}
}

func (s *fakeContentStore) FindContentIDByField(key, value string) (int64, error) {
	for _, item := range s.items {
		if item.CustomFields[key] == value {
			return item.ID, nil
		}
	}
	return 0, nil
}

func (s *fakeContentStore) CreateContent(fields domain.ContentFields) (int64, error) {
	if s.createErr != nil {
		return 0, s.createErr
	}
	if s.createZero {
		return 0, nil
	}
	s.creates++
	s.nextID++
	s.items[s.nextID] = &domain.ContentItem{
		ID:          s.nextID,
		Title:       fields.Title,
		Content:     fields.Content,
		Excerpt:     fields.Excerpt,
		PublishedAt: fields.PublishedAt,
		ModifiedAt:  fields.ModifiedAt,
		Tags:        fields.Tags,
	}
	return s.nextID, nil
}

func (s *fakeContentStore) UpdateContent(id int64, fields domain.ContentFields) (int64, error) {
	if s.updateErr != nil {
		return 0, s.updateErr
	}
	item, ok := s.items[id]
	if !ok {
		return 0, errors.New("not found")
	}
	s.updates++
	item.Title = fields.Title
	item.Content = fields.Content
	item.Excerpt = fields.Excerpt
	item.PublishedAt = fields.PublishedAt
	item.ModifiedAt = fields.ModifiedAt
	item.Tags = fields.Tags
	return id, nil
}

func (s *fakeContentStore) SetCustomField(id int64, key, value string) error {
	if s.customErr != nil {
		return s.customErr
	}
	item, ok := s.items[id]
	if !ok {
		return errors.New("not found")
	}
	if item.CustomFields == nil {
		item.CustomFields = make(map[string]string)
	}
	item.CustomFields[key] = value
	return nil
}

func (s *fakeContentStore) SetTaxonomyTerms(id int64, taxonomy string, terms []string) error {
	if s.taxErr != nil {
		return s.taxErr
	}
	item, ok := s.items[id]
	if !ok {
		return errors.New("not found")
	}
	if item.Taxonomies == nil {
		item.Taxonomies = make(map[string][]string)
	}
	item.Taxonomies[taxonomy] = terms
	return nil
}

func (s *fakeContentStore) SetFeaturedMedia(id, assetID int64) error {
	item, ok := s.items[id]
	if !ok {
		return errors.New("not found")
	}
	item.FeaturedMediaID = assetID
	return nil
}

func (s *fakeContentStore) ReplaceAudioAttachments(id int64, items []domain.AudioAttachment) error {
	item, ok := s.items[id]
	if !ok {
		return errors.New("not found")
	}
	item.Audio = items
	return nil
}

func (s *fakeContentStore) GetContent(id int64) (*domain.ContentItem, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return item, nil
}

type fakeMediaFields struct {
	sets map[int64]map[string]string
}

func newFakeMediaFields() *fakeMediaFields {
	return &fakeMediaFields{sets: make(map[int64]map[string]string)}
}

func (s *fakeMediaFields) FindMediaByField(string, string) (*domain.MediaAsset, error) {
	return nil, nil
}

func (s *fakeMediaFields) ImportAttachment(string, string, string, int64) (int64, error) {
	return 0, errors.New("not used")
}

func (s *fakeMediaFields) SetMediaField(assetID int64, key, value string) error {
	if s.sets[assetID] == nil {
		s.sets[assetID] = make(map[string]string)
	}
	s.sets[assetID][key] = value
	return nil
}

func (s *fakeMediaFields) GetMedia(int64) (*domain.MediaAsset, error) {
	return nil, errors.New("not used")
}

type fakeResolver struct {
	ids   map[string]int64
	err   error
	calls []string
}

func (r *fakeResolver) EnsureAsset(_ context.Context, url, _ string, _ int64) (int64, error) {
	r.calls = append(r.calls, url)
	if r.err != nil {
		return 0, r.err
	}
	return r.ids[url], nil
}

func sampleStory() domain.RemoteStory {
	story := domain.RemoteStory{
		ID:               101,
		Title:            "Morning Report",
		ShortDescription: "Quick look.",
		Description:      "<p>The full rundown of the morning.</p>",
		Transcript:       "Good morning.",
		Duration:         320,
		Tags:             []string{"news"},
		PublishedAt:      time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC),
		UpdatedAt:        time.Date(2026, 2, 11, 9, 0, 0, 0, time.UTC),
	}
	story.Embedded.Series = &domain.RemoteSeries{ID: 5, Title: "Morning Series"}
	story.Embedded.Account = &domain.RemoteAccount{ID: 7, ShortName: "KXYZ"}
	story.Embedded.Image = &domain.RemoteImage{
		Caption: "Studio",
		Credit:  "Jane Doe",
		Links:   domain.HALLinks{"original": {Href: "https://cdn.prx.org/img/55.jpg"}},
	}
	return story
}

func TestMapAndUpsertCreatesThenUpdates(t *testing.T) {
	cs := newFakeContentStore()
	ms := newFakeMediaFields()
	resolver := &fakeResolver{ids: map[string]int64{"https://cdn.prx.org/img/55.jpg": 42}}
	m := New(cs, ms, resolver, false)

	story := sampleStory()
	id, err := m.MapAndUpsert(context.Background(), story)
	if err != nil {
		t.Fatalf("MapAndUpsert: %v", err)
	}
	if cs.creates != 1 {
		t.Fatalf("expected one create, got %d", cs.creates)
	}

	item := cs.items[id]
	if item.CustomFields[store.FieldPRXID] != "101" {
		t.Fatalf("prx_id not recorded: %+v", item.CustomFields)
	}
	if item.CustomFields[store.FieldDuration] != "320" {
		t.Fatalf("duration not recorded: %+v", item.CustomFields)
	}
	if item.CustomFields[store.FieldTranscript] != "Good morning." {
		t.Fatalf("transcript not recorded: %+v", item.CustomFields)
	}
	if len(item.Tags) != 2 || item.Tags[1] != "prx" {
		t.Fatalf("import tag missing: %v", item.Tags)
	}
	if got := item.Taxonomies[store.TaxonomyCategory]; len(got) != 1 || got[0] != "Morning Series" {
		t.Fatalf("category taxonomy wrong: %+v", item.Taxonomies)
	}
	if got := item.Taxonomies[store.TaxonomyStations]; len(got) != 1 || got[0] != "KXYZ" {
		t.Fatalf("stations taxonomy wrong: %+v", item.Taxonomies)
	}
	if item.FeaturedMediaID != 42 {
		t.Fatalf("featured media not set: %d", item.FeaturedMediaID)
	}
	if ms.sets[42][store.FieldCaption] != "Studio" || ms.sets[42][store.FieldCredit] != "Jane Doe" {
		t.Fatalf("caption/credit not carried: %+v", ms.sets[42])
	}

	// Second import of the same story updates in place.
	story.Title = "Morning Report (revised)"
	id2, err := m.MapAndUpsert(context.Background(), story)
	if err != nil {
		t.Fatalf("MapAndUpsert again: %v", err)
	}
	if id2 != id {
		t.Fatalf("expected stable local id, got %d then %d", id, id2)
	}
	if cs.creates != 1 || cs.updates != 1 {
		t.Fatalf("expected one create and one update, got %d/%d", cs.creates, cs.updates)
	}
	if cs.items[id].Title != "Morning Report (revised)" {
		t.Fatalf("title not updated")
	}
}

func TestDeriveBody(t *testing.T) {
	cases := []struct {
		name        string
		short, long string
		content     string
		excerpt     string
	}{
		{"both differ", "Short.", "Long body.", "Long body.", "Short."},
		{"identical", "Same.", "Same.", "Same.", ""},
		{"short only", "Short.", "", "Short.", ""},
		{"long only", "", "Long body.", "Long body.", ""},
		{"neither", "", "", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			content, excerpt := deriveBody(tc.short, tc.long)
			if content != tc.content || excerpt != tc.excerpt {
				t.Fatalf("deriveBody(%q, %q) = %q, %q; want %q, %q",
					tc.short, tc.long, content, excerpt, tc.content, tc.excerpt)
			}
		})
	}
}

func TestMapAndUpsertSanitizesContent(t *testing.T) {
	cs := newFakeContentStore()
	m := New(cs, newFakeMediaFields(), &fakeResolver{}, false)

	story := domain.RemoteStory{
		ID:          200,
		Title:       "Scripted",
		Description: `<p onclick="x()">Hi</p><script>steal()</script><em>ok</em>`,
	}
	id, err := m.MapAndUpsert(context.Background(), story)
	if err != nil {
		t.Fatalf("MapAndUpsert: %v", err)
	}

	content := cs.items[id].Content
	if strings.Contains(content, "script") || strings.Contains(content, "steal") {
		t.Fatalf("script survived sanitization: %q", content)
	}
	if strings.Contains(content, "onclick") {
		t.Fatalf("event handler survived sanitization: %q", content)
	}
	if !strings.Contains(content, "<p>Hi</p>") || !strings.Contains(content, "<em>ok</em>") {
		t.Fatalf("allowed markup lost: %q", content)
	}
}

func TestMapAndUpsertAudioOrderAndReplace(t *testing.T) {
	cs := newFakeContentStore()
	resolver := &fakeResolver{ids: map[string]int64{
		"https://cdn.prx.org/a/1.mp3": 71,
		"https://cdn.prx.org/a/2.mp3": 72,
	}}
	m := New(cs, newFakeMediaFields(), resolver, false)

	story := domain.RemoteStory{ID: 300, Title: "Two Parter"}
	story.Embedded.Audio = &domain.RemoteAudio{}
	story.Embedded.Audio.Embedded.Items = []domain.RemoteAudioItem{
		{Label: "part 1", Duration: 100, Links: domain.HALLinks{"enclosure": {Href: "https://cdn.prx.org/a/1.mp3"}}},
		{Label: "part 2", Duration: 200, Links: domain.HALLinks{"enclosure": {Href: "https://cdn.prx.org/a/2.mp3"}}},
	}

	id, err := m.MapAndUpsert(context.Background(), story)
	if err != nil {
		t.Fatalf("MapAndUpsert: %v", err)
	}

	audio := cs.items[id].Audio
	if len(audio) != 2 {
		t.Fatalf("expected 2 attachments, got %d", len(audio))
	}
	if audio[0].AssetID != 71 || audio[0].Label != "part 1" || audio[1].AssetID != 72 {
		t.Fatalf("order not preserved: %+v", audio)
	}

	// Next sync with one item replaces the list wholesale.
	story.Embedded.Audio.Embedded.Items = story.Embedded.Audio.Embedded.Items[:1]
	if _, err := m.MapAndUpsert(context.Background(), story); err != nil {
		t.Fatalf("MapAndUpsert again: %v", err)
	}
	if audio := cs.items[id].Audio; len(audio) != 1 || audio[0].AssetID != 71 {
		t.Fatalf("expected wholesale replacement, got %+v", audio)
	}

	// No audio block at all leaves the stored list alone.
	story.Embedded.Audio = nil
	if _, err := m.MapAndUpsert(context.Background(), story); err != nil {
		t.Fatalf("MapAndUpsert without audio: %v", err)
	}
	if audio := cs.items[id].Audio; len(audio) != 1 {
		t.Fatalf("absent audio block must not clear attachments, got %+v", audio)
	}
}

func TestMapAndUpsertSeriesImageFallback(t *testing.T) {
	cs := newFakeContentStore()
	resolver := &fakeResolver{ids: map[string]int64{"https://cdn.prx.org/series/5.jpg": 80}}
	m := New(cs, newFakeMediaFields(), resolver, false)

	story := domain.RemoteStory{ID: 400, Title: "No Own Image"}
	story.Embedded.Series = &domain.RemoteSeries{ID: 5, Title: "Series"}
	story.Embedded.Series.Embedded.Image = &domain.RemoteImage{
		Links: domain.HALLinks{"enclosure": {Href: "https://cdn.prx.org/series/5.jpg"}},
	}

	id, err := m.MapAndUpsert(context.Background(), story)
	if err != nil {
		t.Fatalf("MapAndUpsert: %v", err)
	}
	if cs.items[id].FeaturedMediaID != 80 {
		t.Fatalf("series fallback image not used: %d", cs.items[id].FeaturedMediaID)
	}
}

func TestMapAndUpsertImageFailureIsNonFatal(t *testing.T) {
	cs := newFakeContentStore()
	resolver := &fakeResolver{err: errors.New("cdn down")}
	m := New(cs, newFakeMediaFields(), resolver, false)

	id, err := m.MapAndUpsert(context.Background(), sampleStory())
	if err != nil {
		t.Fatalf("media failure must not fail the story: %v", err)
	}
	if cs.items[id].FeaturedMediaID != 0 {
		t.Fatalf("no featured media expected on failure")
	}
	if cs.items[id].CustomFields[store.FieldPRXID] != "101" {
		t.Fatalf("story should still be fully imported")
	}
}

func TestMapAndUpsertUpsertFailure(t *testing.T) {
	cs := newFakeContentStore()
	cs.createErr = errors.New("db locked")
	m := New(cs, newFakeMediaFields(), &fakeResolver{}, false)

	_, err := m.MapAndUpsert(context.Background(), sampleStory())
	if !errors.Is(err, ErrUpsertFailed) {
		t.Fatalf("expected ErrUpsertFailed, got %v", err)
	}

	cs = newFakeContentStore()
	cs.createZero = true
	m = New(cs, newFakeMediaFields(), &fakeResolver{}, false)
	_, err = m.MapAndUpsert(context.Background(), sampleStory())
	if !errors.Is(err, ErrUpsertFailed) {
		t.Fatalf("expected ErrUpsertFailed on zero id, got %v", err)
	}
}

func TestMapAndUpsertDryRunWritesNothing(t *testing.T) {
	cs := newFakeContentStore()
	resolver := &fakeResolver{}
	m := New(cs, newFakeMediaFields(), resolver, true)

	story := sampleStory()
	id, err := m.MapAndUpsert(context.Background(), story)
	if err != nil {
		t.Fatalf("MapAndUpsert dry run: %v", err)
	}
	if id != story.ID {
		t.Fatalf("expected echoed story id, got %d", id)
	}
	if cs.creates != 0 || cs.updates != 0 || len(cs.items) != 0 {
		t.Fatalf("dry run must not write: creates=%d updates=%d items=%d", cs.creates, cs.updates, len(cs.items))
	}

	// Existing item: the echoed id is the local one.
	cs.nextID = 9
	cs.items[9] = &domain.ContentItem{ID: 9, CustomFields: map[string]string{
		store.FieldPRXID: strconv.FormatInt(story.ID, 10),
	}}
	id, err = m.MapAndUpsert(context.Background(), story)
	if err != nil {
		t.Fatalf("MapAndUpsert dry run existing: %v", err)
	}
	if id != 9 {
		t.Fatalf("expected existing id 9, got %d", id)
	}
	if cs.updates != 0 {
		t.Fatalf("dry run must not update")
	}
}

package domain

import "time"

// RemoteStory is one story as returned by the PRX CMS API. It is an
// immutable snapshot of the remote record; nested HAL resources are
// optional and every pointer field may be nil.
type RemoteStory struct {
	ID               int64         `json:"id"`
	Title            string        `json:"title"`
	ShortDescription string        `json:"shortDescription"`
	Description      string        `json:"description"`
	Transcript       string        `json:"transcript"`
	Duration         int           `json:"duration"`
	Tags             []string      `json:"tags"`
	PublishedAt      time.Time     `json:"publishedAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
	Embedded         StoryEmbedded `json:"_embedded"`
}

// StoryEmbedded holds the HAL resources embedded in a story.
type StoryEmbedded struct {
	Series  *RemoteSeries  `json:"prx:series"`
	Account *RemoteAccount `json:"prx:account"`
	Image   *RemoteImage   `json:"prx:image"`
	Audio   *RemoteAudio   `json:"prx:audio"`
}

// RemoteSeries is the series a story belongs to.
type RemoteSeries struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Embedded struct {
		Image *RemoteImage `json:"prx:image"`
	} `json:"_embedded"`
}

// RemoteAccount identifies the PRX account (station) that owns a story.
type RemoteAccount struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
}

// RemoteImage is an image resource attached to a story or series.
type RemoteImage struct {
	Caption string   `json:"caption"`
	Credit  string   `json:"credit"`
	Links   HALLinks `json:"_links"`
}

// RemoteAudio wraps the ordered audio items of a story.
type RemoteAudio struct {
	Embedded struct {
		Items []RemoteAudioItem `json:"prx:items"`
	} `json:"_embedded"`
}

// RemoteAudioItem is a single audio file reference.
type RemoteAudioItem struct {
	Label    string   `json:"label"`
	Duration int      `json:"duration"`
	Links    HALLinks `json:"_links"`
}

// HALLink is one entry of a HAL _links object.
type HALLink struct {
	Href string `json:"href"`
}

// HALLinks maps link relations to their targets.
type HALLinks map[string]HALLink

// Href returns the target for the given relation, or "" when absent.
func (l HALLinks) Href(rel string) string {
	if l == nil {
		return ""
	}
	return l[rel].Href
}

// SeriesTitle returns the embedded series title, or "" when absent.
func (s RemoteStory) SeriesTitle() string {
	if s.Embedded.Series == nil {
		return ""
	}
	return s.Embedded.Series.Title
}

// AccountShortName returns the embedded account short name, or "" when absent.
func (s RemoteStory) AccountShortName() string {
	if s.Embedded.Account == nil {
		return ""
	}
	return s.Embedded.Account.ShortName
}

// ImageURL returns the story's own image URL (the "original" link), or "".
func (s RemoteStory) ImageURL() string {
	if s.Embedded.Image == nil {
		return ""
	}
	return s.Embedded.Image.Links.Href("original")
}

// SeriesImageURL returns the parent series image URL (the "enclosure"
// link), or "". Used as the featured-image fallback.
func (s RemoteStory) SeriesImageURL() string {
	if s.Embedded.Series == nil || s.Embedded.Series.Embedded.Image == nil {
		return ""
	}
	return s.Embedded.Series.Embedded.Image.Links.Href("enclosure")
}

// AudioItems returns the story's audio items in their original order, and
// whether the story carries an audio block at all.
func (s RemoteStory) AudioItems() ([]RemoteAudioItem, bool) {
	if s.Embedded.Audio == nil {
		return nil, false
	}
	return s.Embedded.Audio.Embedded.Items, true
}

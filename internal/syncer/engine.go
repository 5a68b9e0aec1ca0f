package syncer

import (
	"context"
	"fmt"

	"github.com/ampers-mn/prx-sync/internal/domain"
	"github.com/ampers-mn/prx-sync/internal/logger"
)

// maxRunErrors bounds the per-story error list carried in a run result.
const maxRunErrors = 50

// StoryFetcher returns one page of stories for an account.
type StoryFetcher interface {
	FetchStories(ctx context.Context, accountID int64, page, perPage int) ([]domain.RemoteStory, error)
}

// StoryImporter imports a single story into the local store.
type StoryImporter interface {
	MapAndUpsert(ctx context.Context, story domain.RemoteStory) (int64, error)
}

// Params configures one sync run: a single page of one account's stories.
// Pagination across pages is the caller's responsibility.
type Params struct {
	AccountID int64
	Page      int
	PerPage   int
	DryRun    bool
}

// Engine orchestrates one sync run: paginated fetch plus per-story import
// with success/failure accounting. Stories are processed strictly
// sequentially in the order the API returned them.
type Engine struct {
	fetcher  StoryFetcher
	importer StoryImporter
}

// New builds a sync engine over the given fetcher and importer.
func New(fetcher StoryFetcher, importer StoryImporter) *Engine {
	return &Engine{
		fetcher:  fetcher,
		importer: importer,
	}
}

// Run fetches one page of stories and imports each. A fetch failure aborts
// the run with no partial results. One story's failure never stops the
// processing of subsequent stories; it is counted and recorded instead.
func (e *Engine) Run(ctx context.Context, p Params) (domain.Result, error) {
	stories, err := e.fetcher.FetchStories(ctx, p.AccountID, p.Page, p.PerPage)
	if err != nil {
		return domain.Result{}, fmt.Errorf("fetch stories page %d: %w", p.Page, err)
	}

	logger.InfoObj("stories page fetched", "sync_fetch", map[string]any{
		"account_id": p.AccountID,
		"page":       p.Page,
		"per_page":   p.PerPage,
		"count":      len(stories),
		"dry_run":    p.DryRun,
	})

	var res domain.Result
	for _, story := range stories {
		if _, err := e.importer.MapAndUpsert(ctx, story); err != nil {
			res.Failed++
			if len(res.Errors) < maxRunErrors {
				res.Errors = append(res.Errors, fmt.Sprintf("%d: %s", story.ID, err.Error()))
			}
			logger.ErrorObj("story import failed", "sync_story_error", map[string]any{
				"prx_id": story.ID,
				"error":  err.Error(),
			})
			continue
		}
		res.Success++
	}

	logger.InfoObj("sync run completed", "sync_result", map[string]any{
		"account_id": p.AccountID,
		"page":       p.Page,
		"success":    res.Success,
		"failed":     res.Failed,
		"dry_run":    p.DryRun,
	})
	return res, nil
}

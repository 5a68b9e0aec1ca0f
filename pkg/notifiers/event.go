package notifiers

import (
	"time"

	"github.com/ampers-mn/prx-sync/internal/domain"
)

// RunEvent is the payload delivered downstream after each sync run.
type RunEvent struct {
	AccountID  int64         `json:"account_id"`
	Page       int           `json:"page"`
	PerPage    int           `json:"per_page"`
	DryRun     bool          `json:"dry_run"`
	Result     domain.Result `json:"result"`
	FinishedAt time.Time     `json:"finished_at"`
}

// NewRunEvent constructs a RunEvent for the given run parameters + result.
func NewRunEvent(accountID int64, page, perPage int, dryRun bool, res domain.Result) RunEvent {
	return RunEvent{
		AccountID:  accountID,
		Page:       page,
		PerPage:    perPage,
		DryRun:     dryRun,
		Result:     res,
		FinishedAt: time.Now().UTC(),
	}
}

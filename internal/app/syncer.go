package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ampers-mn/prx-sync/internal/config"
	"github.com/ampers-mn/prx-sync/internal/domain"
	"github.com/ampers-mn/prx-sync/internal/logger"
	"github.com/ampers-mn/prx-sync/internal/mapper"
	"github.com/ampers-mn/prx-sync/internal/media"
	"github.com/ampers-mn/prx-sync/internal/prx"
	"github.com/ampers-mn/prx-sync/internal/store"
	"github.com/ampers-mn/prx-sync/internal/syncer"
	"github.com/ampers-mn/prx-sync/pkg/httpclient"
	"github.com/ampers-mn/prx-sync/pkg/notifiers"
)

// Syncer is the application runtime. It wires the PRX client, the local
// store, the import pipeline, and the optional run-summary notifiers, and
// drives either one-shot or periodic sync runs.
type Syncer struct {
	cfg    *config.Config
	store  store.Store
	client *prx.Client
	engine *syncer.Engine
	fanout *notifiers.Fanout
	dryRun bool
}

// New builds a syncer runtime from config. With dryRun set, the pipeline
// computes and logs every intended mutation without applying any.
func New(ctx context.Context, cfg *config.Config, dryRun bool) (*Syncer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	httpClient := httpclient.NewRestyClient(prx.RequestTimeout)
	tokens := prx.NewTokenProvider(httpClient, cfg.IDBaseURL(), cfg.ClientID, cfg.ClientSecret)
	client := prx.NewClient(httpClient, tokens, cfg.CMSBaseURL())

	st, err := store.New(cfg.StorageType, cfg.BBoltPath, cfg.MediaDir)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	logger.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":      cfg.StorageType,
		"path":      cfg.BBoltPath,
		"media_dir": cfg.MediaDir,
	})

	importer := media.NewImporter(st, httpClient, dryRun)
	storyMapper := mapper.New(st, st, importer, dryRun)
	engine := syncer.New(client, storyMapper)

	fanout, err := buildFanout(ctx, cfg.NotifiersFile)
	if err != nil {
		st.Close()
		return nil, err
	}

	return &Syncer{
		cfg:    cfg,
		store:  st,
		client: client,
		engine: engine,
		fanout: fanout,
		dryRun: dryRun,
	}, nil
}

// buildFanout loads the notifier registry when configured. No file means
// no run-summary notifications, which is the default.
func buildFanout(ctx context.Context, path string) (*notifiers.Fanout, error) {
	if path == "" {
		return notifiers.NewFanout(nil), nil
	}

	reg, err := notifiers.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load notifiers registry: %w", err)
	}
	enabled := reg.Enabled()
	sinks, err := notifiers.BuildAll(ctx, notifiers.DefaultRegistry(), enabled, logAdapter{})
	if err != nil {
		return nil, fmt.Errorf("build notifiers: %w", err)
	}
	logger.InfoObj("notifiers registry loaded", "notifiers_meta", map[string]any{
		"count": len(sinks),
	})
	return notifiers.NewFanout(sinks), nil
}

// Client exposes the PRX API client for the test-auth command.
func (s *Syncer) Client() *prx.Client { return s.client }

// DefaultParams returns the run parameters the periodic loop uses: page 1
// of the configured account at the configured page size.
func (s *Syncer) DefaultParams() syncer.Params {
	return syncer.Params{
		AccountID: s.cfg.AccountID,
		Page:      1,
		PerPage:   s.cfg.StoriesPerRun,
		DryRun:    s.dryRun,
	}
}

// RunOnce performs a single sync run and dispatches the run summary to the
// configured notifiers. Notifier failures never affect the run result.
func (s *Syncer) RunOnce(ctx context.Context, p syncer.Params) (domain.Result, error) {
	res, err := s.engine.Run(ctx, p)
	if err != nil {
		return res, err
	}

	if s.fanout.Size() > 0 {
		evt := notifiers.NewRunEvent(p.AccountID, p.Page, p.PerPage, p.DryRun, res)
		if _, nerr := s.fanout.Send(ctx, evt); nerr != nil {
			logger.WarnObj("run summary notification failed", "notifier_error", map[string]any{
				"error": nerr.Error(),
			})
		}
	}
	return res, nil
}

// Run starts the periodic sync loop until the context is cancelled. The
// first run happens immediately, then once per configured interval.
func (s *Syncer) Run(ctx context.Context) error {
	if s == nil || s.engine == nil {
		return fmt.Errorf("syncer is not initialized")
	}

	logger.InfoObj("sync loop starting", "sync_state", map[string]any{
		"account_id": s.cfg.AccountID,
		"interval":   s.cfg.SyncInterval.String(),
		"per_run":    s.cfg.StoriesPerRun,
		"notifiers":  s.fanout.Size(),
		"dry_run":    s.dryRun,
	})

	if err := s.runScheduled(ctx); err != nil {
		logger.ErrorObj("initial sync failed", "error", err)
	}

	ticker := time.NewTicker(s.cfg.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.InfoObj("sync loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			if err := s.runScheduled(ctx); err != nil {
				logger.ErrorObj("scheduled sync failed", "error", err)
			}
		}
	}
}

// runScheduled performs one loop iteration with timing logs.
func (s *Syncer) runScheduled(ctx context.Context) error {
	start := time.Now()
	res, err := s.RunOnce(ctx, s.DefaultParams())
	if err != nil {
		return err
	}
	logger.InfoObj("sync run finished", "sync_meta", map[string]any{
		"success":    res.Success,
		"failed":     res.Failed,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

// Close releases the storage backend.
func (s *Syncer) Close() {
	if s == nil || s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		logger.ErrorObj("storage close failed", "error", err)
	}
}

// logAdapter exposes the package logger through the notifiers.Logger surface.
type logAdapter struct{}

func (logAdapter) InfoObj(msg, key string, obj interface{})  { logger.InfoObj(msg, key, obj) }
func (logAdapter) DebugObj(msg, key string, obj interface{}) { logger.DebugObj(msg, key, obj) }
func (logAdapter) WarnObj(msg, key string, obj interface{})  { logger.WarnObj(msg, key, obj) }
func (logAdapter) ErrorObj(msg, key string, obj interface{}) { logger.ErrorObj(msg, key, obj) }

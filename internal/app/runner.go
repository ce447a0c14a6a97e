package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samvad-hq/getjson/internal/config"
	"github.com/samvad-hq/getjson/internal/domain"
	"github.com/samvad-hq/getjson/internal/logger"
	"github.com/samvad-hq/getjson/internal/report"
	"github.com/samvad-hq/getjson/internal/storage"
	"github.com/samvad-hq/getjson/pkg/httpclient"
	"github.com/samvad-hq/getjson/pkg/jsonfetch"
	"github.com/samvad-hq/getjson/pkg/publishers"
	"github.com/samvad-hq/getjson/pkg/targets"
	"golang.org/x/sync/errgroup"
)

// ErrConfig marks NewRunner failures caused by settings rather than by a
// backend or client that failed to start.
var ErrConfig = errors.New("invalid runner config")

// Options overrides the collaborators NewRunner would otherwise build from config.
type Options struct {
	HTTPClient httpclient.Client
	Store      storage.Store
	Publishers []publishers.Publisher
	// KeepPayload attaches resolved bodies to returned outcomes.
	KeepPayload bool
}

// Runner is the caller side of the JSON fetcher. It fetches targets, keeps a
// journal of how each fetch settled and forwards outcomes to publishers.
type Runner struct {
	cfg          *config.Config
	fetcher      *jsonfetch.Fetcher
	store        storage.Store
	fanout       *publishers.Fanout
	concurrency  int
	pollInterval time.Duration
	keepPayload  bool
	log          logger.Logger
}

// NewRunner builds a runner from config, honouring any overrides in opts.
func NewRunner(ctx context.Context, cfg *config.Config, log logger.Logger, opts Options) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config must not be nil", ErrConfig)
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	store := opts.Store
	if store == nil {
		var err error
		store, err = storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
			OutcomeTTL:      cfg.StorageTTL,
			CleanupInterval: cfg.StorageCleanupInterval,
		})
		if errors.Is(err, storage.ErrInvalidConfig) {
			return nil, fmt.Errorf("%w: init storage: %w", ErrConfig, err)
		}
		if err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
		log.InfoObj("storage initialized", "storage_config", map[string]any{
			"type":                     cfg.StorageType,
			"path":                     cfg.BBoltPath,
			"outcome_ttl_seconds":      int(cfg.StorageTTL.Seconds()),
			"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
		})
	}

	pubs := opts.Publishers
	if pubs == nil && cfg.PublishersFile != "" {
		var err error
		pubs, err = loadPublishers(ctx, cfg.PublishersFile, log)
		if err != nil {
			store.Close()
			return nil, err
		}
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	return &Runner{
		cfg:          cfg,
		fetcher:      jsonfetch.New(opts.HTTPClient, log),
		store:        store,
		fanout:       publishers.NewFanout(pubs),
		concurrency:  concurrency,
		pollInterval: cfg.PollInterval,
		keepPayload:  opts.KeepPayload,
		log:          log,
	}, nil
}

func loadPublishers(ctx context.Context, path string, log logger.Logger) ([]publishers.Publisher, error) {
	publisherReg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("%w: load publishers registry: %w", ErrConfig, err)
	}

	enabled := publisherReg.Enabled()
	pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return pubs, nil
}

// Run fetches every target once, in parallel up to the configured concurrency.
// Rejected fetches are returned as outcomes, not errors; the error only
// reports journal or publish failures, or ctx ending before all fetches settled.
func (r *Runner) Run(ctx context.Context, ts []targets.Target) ([]domain.Outcome, error) {
	if r == nil || r.fetcher == nil {
		return nil, fmt.Errorf("runner is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	outcomes := make([]domain.Outcome, len(ts))
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(r.concurrency)

	for i, t := range ts {
		if ctx.Err() != nil {
			break
		}
		i, t := i, t
		g.Go(func() error {
			o, err := r.fetchOne(ctx, t)
			if err != nil {
				return err
			}
			outcomes[i] = o
			if err := r.handle(ctx, o); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}

	waitErr := g.Wait()
	settled := outcomes[:0]
	for _, o := range outcomes {
		if o.ID != "" {
			settled = append(settled, o)
		}
	}
	if waitErr == nil {
		waitErr = ctx.Err()
	}
	if waitErr != nil {
		return settled, waitErr
	}
	return settled, errors.Join(errs...)
}

// fetchOne issues exactly one request for t and waits for it to settle.
func (r *Runner) fetchOne(ctx context.Context, t targets.Target) (domain.Outcome, error) {
	start := time.Now()
	resp, err := r.fetcher.FetchJSON(t.URL).Wait(ctx)
	if err != nil && !errors.Is(err, jsonfetch.ErrRejected) {
		return domain.Outcome{}, err
	}
	o := toOutcome(t, resp, err, start)
	if r.keepPayload && err == nil {
		var payload json.RawMessage
		if decodeErr := resp.Decode(&payload); decodeErr == nil {
			o.Payload = payload
		}
	}
	return o, nil
}

func toOutcome(t targets.Target, resp *jsonfetch.Response, err error, start time.Time) domain.Outcome {
	o := domain.Outcome{
		ID:         uuid.NewString(),
		TargetID:   t.ID,
		URL:        t.URL,
		State:      domain.OutcomeResolved,
		StatusCode: resp.StatusCode(),
		Bytes:      len(resp.Body()),
		FetchedAt:  start.UTC(),
		ElapsedMs:  time.Since(start).Milliseconds(),
	}
	if err != nil {
		o.State = domain.OutcomeRejected
		o.Error = err.Error()
		o.Summary = report.Summarize(resp.Body())
	}
	return o
}

// handle records and publishes one outcome.
func (r *Runner) handle(ctx context.Context, o domain.Outcome) error {
	meta := map[string]any{
		"target_id":   o.TargetID,
		"url":         o.URL,
		"state":       o.State,
		"status_code": o.StatusCode,
		"elapsed_ms":  o.ElapsedMs,
	}
	if o.Resolved() {
		r.log.InfoObj("target fetched", "fetch_outcome", meta)
	} else {
		meta["error"] = o.Error
		meta["summary"] = o.Summary
		r.log.WarnObj("target fetch rejected", "fetch_outcome", meta)
	}

	o.Payload = nil
	var errs []error
	if err := r.store.Record(o); err != nil {
		errs = append(errs, fmt.Errorf("record outcome for %s: %w", o.URL, err))
	}
	if r.fanout.Size() > 0 {
		if _, err := r.fanout.Publish(ctx, publishers.NewEvent(o)); err != nil {
			errs = append(errs, fmt.Errorf("publish outcome for %s: %w", o.URL, err))
		}
	}
	return errors.Join(errs...)
}

// Watch runs the targets immediately and then on every poll interval until ctx ends.
func (r *Runner) Watch(ctx context.Context, ts []targets.Target) error {
	if r == nil || r.fetcher == nil {
		return fmt.Errorf("runner is not initialized")
	}
	if len(ts) == 0 {
		r.log.WarnObj("no targets configured; watcher idle", "targets_file", r.cfg.TargetsFile)
		<-ctx.Done()
		return nil
	}
	if r.pollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}

	r.log.InfoObj("watch loop starting", "watch_state", map[string]any{
		"targets_count":    len(ts),
		"publishers_count": r.fanout.Size(),
		"poll_interval":    r.pollInterval.String(),
	})

	if err := r.runOnce(ctx, ts); err != nil {
		r.log.ErrorObj("initial poll failed", "error", err)
	}

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.InfoObj("watch loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			if err := r.runOnce(ctx, ts); err != nil {
				r.log.ErrorObj("scheduled poll failed", "error", err)
			}
		}
	}
}

// runOnce performs a single poll across all targets.
func (r *Runner) runOnce(ctx context.Context, ts []targets.Target) error {
	start := time.Now()
	r.log.InfoObj("poll started", "poll_meta", map[string]any{
		"targets_count": len(ts),
		"started_at":    start.UTC(),
	})
	outcomes, err := r.Run(ctx, ts)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	rejected := 0
	for _, o := range outcomes {
		if !o.Resolved() {
			rejected++
		}
	}
	r.log.InfoObj("poll completed", "poll_meta", map[string]any{
		"targets_count": len(ts),
		"rejected":      rejected,
		"elapsed_ms":    time.Since(start).Milliseconds(),
	})
	return err
}

// History returns the most recent journal entries.
func (r *Runner) History(limit int) ([]domain.Outcome, error) {
	if r == nil || r.store == nil {
		return nil, fmt.Errorf("runner is not initialized")
	}
	return r.store.Recent(limit)
}

// Close releases the journal and publisher clients.
func (r *Runner) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	if err := r.fanout.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

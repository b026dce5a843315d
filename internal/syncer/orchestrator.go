package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/godilite/review-insights/internal/ingest"
	"github.com/godilite/review-insights/internal/repository/models"
	"github.com/godilite/review-insights/internal/snapshot"
	"github.com/godilite/review-insights/internal/source"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultTimeout   = 5 * time.Minute
	DefaultStatusTTL = time.Hour

	// PrimaryLabel tags rows from the live spreadsheet.
	PrimaryLabel = "live"
)

// ReviewStore receives the fully replaced review set and supplies the agent
// collection rows are resolved against.
type ReviewStore interface {
	ReplaceReviews(ctx context.Context, reviews []models.Review) error
	ListAgents(ctx context.Context) ([]models.Agent, error)
}

// SnapshotWriter stages the cache artifacts of a download. Staged artifacts
// are committed only once the reviews are saved.
type SnapshotWriter interface {
	Stage(raw snapshot.Raw, parsed snapshot.Parsed) (snapshot.Staged, error)
}

// Orchestrator drives fetch, normalize and persist for one sync at a time
// or, without the single-flight guard, for several uncoordinated syncs.
type Orchestrator struct {
	primary      source.Named
	archives     []source.Named
	statuses     StatusStore
	snapshots    SnapshotWriter
	reviews      ReviewStore
	logger       *zap.Logger
	timeout      time.Duration
	dedup        bool
	location     *time.Location
	singleFlight bool
	newID        func() string
	now          func() time.Time
	onComplete   func(Status)

	inFlight atomic.Bool
}

type Options struct {
	Primary      source.Named
	Archives     []source.Named
	Statuses     StatusStore
	Snapshots    SnapshotWriter
	Reviews      ReviewStore
	Logger       *zap.Logger
	Timeout      time.Duration
	Dedup        bool
	Location     *time.Location
	SingleFlight bool
	NewID        func() string
	Now          func() time.Time
	OnComplete   func(Status)
}

type Option func(*Options)

// WithPrimary sets the live source; its rows are labelled PrimaryLabel.
func WithPrimary(f source.Fetcher) Option {
	return func(o *Options) {
		o.Primary = source.Named{Label: PrimaryLabel, Fetcher: f}
	}
}

func WithArchives(archives ...source.Named) Option {
	return func(o *Options) {
		o.Archives = append(o.Archives, archives...)
	}
}

func WithStatusStore(s StatusStore) Option {
	return func(o *Options) {
		o.Statuses = s
	}
}

func WithSnapshots(w SnapshotWriter) Option {
	return func(o *Options) {
		o.Snapshots = w
	}
}

func WithReviewStore(r ReviewStore) Option {
	return func(o *Options) {
		o.Reviews = r
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

// WithDedup drops reviews whose external id was already seen in an earlier
// source.
func WithDedup(enabled bool) Option {
	return func(o *Options) {
		o.Dedup = enabled
	}
}

func WithLocation(loc *time.Location) Option {
	return func(o *Options) {
		o.Location = loc
	}
}

// WithSingleFlight makes Start refuse a new sync while one is running.
func WithSingleFlight(enabled bool) Option {
	return func(o *Options) {
		o.SingleFlight = enabled
	}
}

func WithIDGenerator(fn func() string) Option {
	return func(o *Options) {
		o.NewID = fn
	}
}

func WithClock(fn func() time.Time) Option {
	return func(o *Options) {
		o.Now = fn
	}
}

// WithOnComplete registers fn to run after a sync reaches StageComplete.
func WithOnComplete(fn func(Status)) Option {
	return func(o *Options) {
		o.OnComplete = fn
	}
}

func New(opts ...Option) (*Orchestrator, error) {
	options := &Options{
		Timeout:  DefaultTimeout,
		Location: time.UTC,
		NewID:    uuid.NewString,
		Now:      time.Now,
	}
	for _, opt := range opts {
		opt(options)
	}

	if options.Primary.Fetcher == nil {
		return nil, fmt.Errorf("%w: primary source", source.ErrNotConfigured)
	}
	if options.Reviews == nil {
		return nil, errors.New("review store must not be nil")
	}
	if options.Statuses == nil {
		options.Statuses = NewMemoryStatusStore(DefaultStatusTTL)
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}

	return &Orchestrator{
		primary:      options.Primary,
		archives:     options.Archives,
		statuses:     options.Statuses,
		snapshots:    options.Snapshots,
		reviews:      options.Reviews,
		logger:       options.Logger.Named("sync"),
		timeout:      options.Timeout,
		dedup:        options.Dedup,
		location:     options.Location,
		singleFlight: options.SingleFlight,
		newID:        options.NewID,
		now:          options.Now,
		onComplete:   options.OnComplete,
	}, nil
}

// Start records a new sync and runs it in the background under the hard
// timeout. The returned id is valid for Status immediately.
func (o *Orchestrator) Start(ctx context.Context) (string, error) {
	if o.singleFlight && !o.inFlight.CompareAndSwap(false, true) {
		return "", ErrSyncInFlight
	}

	id := o.newID()
	now := o.now()
	initial := Status{
		ID:        id,
		Status:    StageIdle,
		Message:   "Sync queued",
		StartedAt: now,
		UpdatedAt: now,
	}
	if err := o.statuses.Put(ctx, initial); err != nil {
		o.release()
		return "", err
	}

	go func() {
		defer o.release()

		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.timeout)
		defer cancel()

		if err := o.Run(runCtx, id); err != nil {
			o.logger.Error("sync failed", zap.String("sync_id", id), zap.Error(err))
		}
	}()

	return id, nil
}

func (o *Orchestrator) release() {
	if o.singleFlight {
		o.inFlight.Store(false)
	}
}

// Status returns the last recorded progress of a sync.
func (o *Orchestrator) Status(ctx context.Context, id string) (Status, error) {
	return o.statuses.Get(ctx, id)
}

// Run executes one sync synchronously. Any failure moves the sync to
// StageError and is returned; there is no retry and no partial success.
func (o *Orchestrator) Run(ctx context.Context, id string) error {
	started := o.now()
	logger := o.logger.With(zap.String("sync_id", id))
	st := &Status{ID: id, StartedAt: started}

	o.advance(ctx, st, StageDownloading, 10, "Downloading reviews")
	primaryText, err := o.primary.Fetcher.Fetch(ctx)
	if err != nil {
		return o.fail(ctx, st, "download failed", err)
	}

	texts := []string{primaryText}
	for i, a := range o.archives {
		o.advance(ctx, st, StageDownloading, 10+30*(i+1)/len(o.archives),
			fmt.Sprintf("Downloading archive %q", a.Label))
		text, err := a.Fetcher.Fetch(ctx)
		if err != nil {
			return o.fail(ctx, st, fmt.Sprintf("download of %q failed", a.Label), err)
		}
		texts = append(texts, text)
	}

	o.advance(ctx, st, StageProcessing, 50, "Processing rows")
	labels := append([]source.Named{o.primary}, o.archives...)
	batches := make([]ingest.Batch, len(texts))
	stats := &Stats{}
	var primaryTable ingest.Table
	for i, text := range texts {
		table := ingest.Normalize(text)
		if i == 0 {
			primaryTable = table
		}
		batches[i] = ingest.Batch{Source: labels[i].Label, Table: table}
		stats.Bytes += len(text)
		stats.Lines += table.Lines
		stats.Skipped += table.Skipped
		logger.Debug("normalized source",
			zap.String("source", labels[i].Label),
			zap.Stringer("agent_strategy", table.Strategy.Kind),
			zap.Int("rows", len(table.Rows)),
			zap.Int("skipped", table.Skipped))
	}
	merged := ingest.Merge(batches...)
	stats.Sources = merged.Counts
	stats.Rows = len(merged.Rows)

	if err := ctx.Err(); err != nil {
		return o.fail(ctx, st, "processing aborted", err)
	}

	agents, err := o.reviews.ListAgents(ctx)
	if err != nil {
		return o.fail(ctx, st, "loading agents failed", err)
	}
	reviews := ingest.ToReviews(merged.Rows, agents, ingest.ConvertOptions{
		Location: o.location,
		NewID:    uuid.NewString,
	})
	if o.dedup {
		before := len(reviews)
		reviews = ingest.DedupByExternalID(reviews)
		stats.Duplicates = before - len(reviews)
	}
	stats.Reviews = len(reviews)
	for _, r := range reviews {
		if r.AgentID == models.UnknownID {
			stats.Unresolved++
		}
	}
	if stats.Skipped > 0 || stats.Unresolved > 0 {
		logger.Warn("rows defaulted during ingestion",
			zap.Int("blank_lines", stats.Skipped),
			zap.Int("unresolved_agents", stats.Unresolved))
	}

	o.advance(ctx, st, StageSaving, 80, "Saving snapshot")
	var staged snapshot.Staged
	if o.snapshots != nil {
		at := o.now()
		parsed := snapshot.Parsed{
			Headers:     primaryTable.Headers,
			Rows:        merged.Rows,
			LastUpdated: at.UTC().Format(time.RFC3339),
			Sources:     merged.Counts,
		}
		staged, err = o.snapshots.Stage(snapshot.NewRaw(primaryText, primaryTable.Lines, at), parsed)
		if err != nil {
			return o.fail(ctx, st, "writing snapshot failed", err)
		}
	}
	if err := o.reviews.ReplaceReviews(ctx, reviews); err != nil {
		if staged != nil {
			staged.Discard()
		}
		return o.fail(ctx, st, "saving reviews failed", err)
	}
	if staged != nil {
		if err := staged.Commit(); err != nil {
			return o.fail(ctx, st, "publishing snapshot failed", err)
		}
	}

	st.Stats = stats
	o.advance(ctx, st, StageComplete, 100,
		fmt.Sprintf("Synced %d reviews from %d sources", stats.Reviews, len(texts)))
	if o.onComplete != nil {
		o.onComplete(*st)
	}

	logger.Info("sync complete",
		zap.Int("reviews", stats.Reviews),
		zap.Int("rows", stats.Rows),
		zap.Any("sources", stats.Sources),
		zap.Duration("took", o.now().Sub(started)))
	return nil
}

func (o *Orchestrator) advance(ctx context.Context, st *Status, stage Stage, progress int, msg string) {
	st.Status = stage
	st.Progress = progress
	st.Message = msg
	st.UpdatedAt = o.now()
	if err := o.statuses.Put(context.WithoutCancel(ctx), *st); err != nil {
		o.logger.Warn("failed to record sync status",
			zap.String("sync_id", st.ID),
			zap.String("stage", string(stage)),
			zap.Error(err))
	}
}

func (o *Orchestrator) fail(ctx context.Context, st *Status, msg string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		msg = fmt.Sprintf("sync timed out after %s", o.timeout)
	}
	st.Error = err.Error()
	o.advance(ctx, st, StageError, st.Progress, msg)
	return fmt.Errorf("%s: %w", msg, err)
}

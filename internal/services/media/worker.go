package media

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"

	"github.com/curaious/projectchron/internal/db"
)

const (
	retryDelay = 30 * time.Second

	// A PROCESSING job older than this is assumed to belong to a dead worker.
	processingLease = 10 * time.Minute
)

// WorkerConfig controls the polling loop.
type WorkerConfig struct {
	Interval  time.Duration
	BatchSize int
	Processor Processor

	// Housekeeping runs once per tick before jobs are polled.
	Housekeeping func(ctx context.Context) error
}

// Worker drains pending media jobs on a fixed interval. A single goroutine
// runs the loop; Wake triggers an early poll.
type Worker struct {
	db   *sqlx.DB
	conf WorkerConfig
	wake chan struct{}
	now  func() time.Time
}

func NewWorker(conn *sqlx.DB, conf WorkerConfig) *Worker {
	if conf.Interval <= 0 {
		conf.Interval = 10 * time.Second
	}
	if conf.BatchSize <= 0 {
		conf.BatchSize = 10
	}
	if conf.Processor == nil {
		conf.Processor = StubProcessor{}
	}

	return &Worker{
		db:   conn,
		conf: conf,
		wake: make(chan struct{}, 1),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Wake asks the loop to poll now. It never blocks.
func (w *Worker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Run polls until ctx is cancelled. Poll errors are logged and the loop
// carries on at the next tick.
func (w *Worker) Run(ctx context.Context) {
	slog.Info("Media worker started",
		slog.Duration("interval", w.conf.Interval),
		slog.Int("batch_size", w.conf.BatchSize))

	ticker := time.NewTicker(w.conf.Interval)
	defer ticker.Stop()

	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Media worker stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		case <-w.wake:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	if w.conf.Housekeeping != nil {
		if err := w.conf.Housekeeping(ctx); err != nil {
			slog.ErrorContext(ctx, "Housekeeping failed", slog.Any("error", err))
		}
	}

	if _, err := w.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.ErrorContext(ctx, "Media worker poll failed", slog.Any("error", err))
	}
}

// RunOnce processes one batch of pending jobs, oldest first, and returns how
// many completed. A failing job does not stop the rest of the batch.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "MediaWorker.RunOnce")
	defer span.End()

	jobs, err := NewMediaRepo(w.db).PendingJobs(ctx, w.now(), w.now().Add(-processingLease), w.conf.BatchSize)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	span.SetAttributes(attribute.Int("media.jobs", len(jobs)))

	completed := 0
	for _, job := range jobs {
		if ctx.Err() != nil {
			return completed, ctx.Err()
		}

		ok, err := w.process(ctx, job)
		if err != nil {
			slog.ErrorContext(ctx, "Media job bookkeeping failed", slog.String("job_id", job.ID), slog.Any("error", err))
			continue
		}
		if ok {
			completed++
		}
	}

	return completed, nil
}

// process runs one job. It returns true when the job completed. A claimed
// job that cannot be settled is released so a later poll picks it up.
func (w *Worker) process(ctx context.Context, job *Job) (bool, error) {
	repo := NewMediaRepo(w.db)

	now := w.now()
	claimed, err := repo.ClaimJob(ctx, job.ID, now, now.Add(-processingLease))
	if err != nil || !claimed {
		return false, err
	}
	job.Attempts++

	settled := false
	defer func() {
		if !settled {
			w.release(ctx, job)
		}
	}()

	asset, err := repo.GetAsset(ctx, job.MediaID)
	if err != nil {
		return false, err
	}

	procErr := w.conf.Processor.Process(ctx, job, asset)
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if procErr != nil {
		if err := w.fail(ctx, job, procErr); err != nil {
			return false, err
		}
		settled = true
		return false, nil
	}

	err = db.WithTx(ctx, w.db, func(tx *sqlx.Tx) error {
		repo := NewMediaRepo(tx)
		now := w.now()

		if err := repo.CompleteJob(ctx, job.ID, now); err != nil {
			return err
		}

		remaining, err := repo.UnfinishedJobs(ctx, job.MediaID)
		if err != nil {
			return err
		}
		if remaining == 0 {
			return repo.SetAssetStatus(ctx, job.MediaID, AssetReady, now)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	settled = true

	slog.InfoContext(ctx, "Media job completed",
		slog.String("job_id", job.ID),
		slog.String("job_type", string(job.JobType)),
		slog.String("media_id", job.MediaID))
	return true, nil
}

// release runs on a context detached from ctx so shutdown still frees the claim.
func (w *Worker) release(ctx context.Context, job *Job) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := NewMediaRepo(w.db).ReleaseJob(ctx, job.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to release media job", slog.String("job_id", job.ID), slog.Any("error", err))
		return
	}
	slog.WarnContext(ctx, "Media job released", slog.String("job_id", job.ID))
}

func (w *Worker) fail(ctx context.Context, job *Job, procErr error) error {
	slog.WarnContext(ctx, "Media job failed",
		slog.String("job_id", job.ID),
		slog.Int("attempt", job.Attempts),
		slog.Any("error", procErr))

	return db.WithTx(ctx, w.db, func(tx *sqlx.Tx) error {
		repo := NewMediaRepo(tx)
		now := w.now()

		status, err := repo.FailJob(ctx, job.ID, procErr.Error(), now.Add(retryDelay))
		if err != nil {
			return err
		}
		if status == JobFailed {
			return repo.SetAssetStatus(ctx, job.MediaID, AssetFailed, now)
		}
		return nil
	})
}

package media

import (
	"context"
	"log/slog"
)

// Processor does the actual work behind one job.
type Processor interface {
	Process(ctx context.Context, job *Job, asset *Asset) error
}

// StubProcessor pretends every job succeeds.
type StubProcessor struct{}

func (StubProcessor) Process(ctx context.Context, job *Job, asset *Asset) error {
	slog.InfoContext(ctx, "Processing media job",
		slog.String("job_id", job.ID),
		slog.String("job_type", string(job.JobType)),
		slog.String("media_id", asset.ID),
		slog.String("original_path", asset.OriginalPath),
	)
	return nil
}

// ProcessorFunc adapts a plain function to Processor.
type ProcessorFunc func(ctx context.Context, job *Job, asset *Asset) error

func (f ProcessorFunc) Process(ctx context.Context, job *Job, asset *Asset) error {
	return f(ctx, job, asset)
}

package media

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curaious/projectchron/internal/perrors"
	"github.com/curaious/projectchron/internal/services/project"
	"github.com/curaious/projectchron/internal/services/user"
	"github.com/curaious/projectchron/internal/testutil"
)

func strPtr(s string) *string { return &s }

type fixture struct {
	conn      *sqlx.DB
	svc       *MediaService
	owner     *user.User
	stranger  *user.User
	admin     *user.User
	projectID string
}

func newFixture(t *testing.T) *fixture {
	conn := testutil.NewDB(t)
	owner := testutil.InsertUser(t, conn, "owner")
	return &fixture{
		conn:      conn,
		svc:       NewMediaService(conn),
		owner:     &user.User{ID: owner, Username: "owner"},
		stranger:  &user.User{ID: testutil.InsertUser(t, conn, "stranger"), Username: "stranger"},
		admin:     &user.User{ID: testutil.InsertUser(t, conn, "admin"), Username: "admin", IsAdmin: true},
		projectID: testutil.InsertProject(t, conn, owner, "proj", "PUBLIC"),
	}
}

func (f *fixture) register(t *testing.T, mediaType MediaType) *Asset {
	t.Helper()
	asset, err := f.svc.Register(context.Background(), f.owner, &RegisterAssetRequest{
		ProjectID:    &f.projectID,
		Type:         mediaType,
		OriginalPath: "uploads/file",
	}, "")
	require.NoError(t, err)
	return asset
}

func (f *fixture) assetStatus(t *testing.T, id string) AssetStatus {
	t.Helper()
	a, err := NewMediaRepo(f.conn).GetAsset(context.Background(), id)
	require.NoError(t, err)
	return a.Status
}

func TestMediaService_RegisterQueuesJobs(t *testing.T) {
	f := newFixture(t)

	image := f.register(t, MediaImage)
	assert.Equal(t, AssetPending, image.Status)
	require.Len(t, image.Jobs, 1)
	assert.Equal(t, JobImageOptimize, image.Jobs[0].JobType)
	assert.Equal(t, DefaultMaxAttempts, image.Jobs[0].MaxAttempts)

	video := f.register(t, MediaVideo)
	require.Len(t, video.Jobs, 2)
	assert.Equal(t, JobVideoTranscode, video.Jobs[0].JobType)
	assert.Equal(t, JobVideoPoster, video.Jobs[1].JobType)

	var n int
	require.NoError(t, f.conn.Get(&n, `SELECT COUNT(*) FROM audit_logs WHERE action = 'media.register' AND entity_type = 'media'`))
	assert.Equal(t, 2, n)
}

func TestMediaService_RegisterAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := &RegisterAssetRequest{ProjectID: &f.projectID, Type: MediaImage, OriginalPath: "a.png"}

	_, err := f.svc.Register(ctx, f.stranger, req, "")
	assert.ErrorIs(t, err, project.ErrForbidden)

	_, err = f.svc.Register(ctx, f.admin, req, "")
	assert.NoError(t, err)

	missing := "00000000-0000-0000-0000-000000000000"
	_, err = f.svc.Register(ctx, f.owner, &RegisterAssetRequest{ProjectID: &missing, Type: MediaImage, OriginalPath: "a.png"}, "")
	assert.ErrorIs(t, err, project.ErrProjectNotFound)
}

func TestMediaService_RegisterValidation(t *testing.T) {
	f := newFixture(t)

	tooBig := int64(MaxFilesize + 1)
	_, err := f.svc.Register(context.Background(), f.owner, &RegisterAssetRequest{
		Type:     "AUDIO",
		Filesize: &tooBig,
		AltText:  strPtr(string(make([]byte, 241))),
	}, "")

	var perr perrors.Err
	require.ErrorAs(t, err, &perr)
	for _, field := range []string{"projectId", "updateId", "type", "originalPath", "filesize", "altText"} {
		assert.Contains(t, perr.Issues, field)
	}
}

func TestMediaService_ListJobs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, MediaImage)
	f.register(t, MediaVideo)

	_, err := f.svc.ListJobs(ctx, f.owner, 10)
	assert.ErrorIs(t, err, ErrAdminOnly)

	_, err = f.svc.ListJobs(ctx, nil, 10)
	assert.ErrorIs(t, err, ErrAdminOnly)

	jobs, err := f.svc.ListJobs(ctx, f.admin, 0)
	require.NoError(t, err)
	assert.Len(t, jobs, 3)
	assert.Equal(t, MediaVideo, jobs[0].Media.Type)

	jobs, err = f.svc.ListJobs(ctx, f.admin, 2)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestWorker_CompletesJobsAndMarksAssetReady(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	image := f.register(t, MediaImage)
	video := f.register(t, MediaVideo)

	w := NewWorker(f.conn, WorkerConfig{BatchSize: 2})

	done, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, done)
	assert.Equal(t, AssetReady, f.assetStatus(t, image.ID))
	assert.Equal(t, AssetPending, f.assetStatus(t, video.ID))

	done, err = w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, done)
	assert.Equal(t, AssetReady, f.assetStatus(t, video.ID))

	done, err = w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, done)
}

func (f *fixture) onlyJob(t *testing.T) *JobWithMedia {
	t.Helper()
	jobs, err := f.svc.ListJobs(context.Background(), f.admin, 0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	return jobs[0]
}

func TestWorker_CancelledJobIsReleased(t *testing.T) {
	f := newFixture(t)
	image := f.register(t, MediaImage)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopping := NewWorker(f.conn, WorkerConfig{
		Processor: ProcessorFunc(func(ctx context.Context, job *Job, asset *Asset) error {
			cancel()
			return nil
		}),
	})
	done, _ := stopping.RunOnce(ctx)
	assert.Equal(t, 0, done)

	job := f.onlyJob(t)
	assert.Equal(t, JobPending, job.Status)
	assert.Equal(t, 0, job.Attempts)
	assert.Equal(t, AssetPending, f.assetStatus(t, image.ID))

	done, err := NewWorker(f.conn, WorkerConfig{}).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, done)

	job = f.onlyJob(t)
	assert.Equal(t, JobCompleted, job.Status)
	assert.Equal(t, 1, job.Attempts)
	assert.Equal(t, AssetReady, f.assetStatus(t, image.ID))
}

func TestWorker_ReclaimsJobWithExpiredLease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	image := f.register(t, MediaImage)

	w := NewWorker(f.conn, WorkerConfig{})
	clock := time.Now().UTC()
	w.now = func() time.Time { return clock }

	_, err := f.conn.ExecContext(ctx,
		f.conn.Rebind(`UPDATE media_jobs SET status = ?, attempts = 1, started_at = ?`),
		JobProcessing, clock.Add(-time.Minute))
	require.NoError(t, err)

	// Still within the lease of the worker that claimed it.
	done, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, done)
	assert.Equal(t, JobProcessing, f.onlyJob(t).Status)

	clock = clock.Add(processingLease)
	done, err = w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, done)

	job := f.onlyJob(t)
	assert.Equal(t, JobCompleted, job.Status)
	assert.Equal(t, 2, job.Attempts)
	assert.Equal(t, AssetReady, f.assetStatus(t, image.ID))
}

func TestWorker_FailingJobRetriesThenFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	broken := f.register(t, MediaVideo)

	calls := 0
	w := NewWorker(f.conn, WorkerConfig{
		Processor: ProcessorFunc(func(ctx context.Context, job *Job, asset *Asset) error {
			calls++
			if job.JobType == JobVideoTranscode {
				return errors.New("codec exploded")
			}
			return nil
		}),
	})

	clock := time.Now().UTC()
	w.now = func() time.Time { return clock }

	for attempt := 1; attempt <= DefaultMaxAttempts; attempt++ {
		_, err := w.RunOnce(ctx)
		require.NoError(t, err)
		clock = clock.Add(retryDelay + time.Second)
	}

	jobs, err := f.svc.ListJobs(ctx, f.admin, 0)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	for _, j := range jobs {
		switch j.JobType {
		case JobVideoTranscode:
			assert.Equal(t, JobFailed, j.Status)
			assert.Equal(t, DefaultMaxAttempts, j.Attempts)
			require.NotNil(t, j.LastError)
			assert.Equal(t, "codec exploded", *j.LastError)
		case JobVideoPoster:
			assert.Equal(t, JobCompleted, j.Status)
			assert.Equal(t, 1, j.Attempts)
		}
	}
	assert.Equal(t, AssetFailed, f.assetStatus(t, broken.ID))
	assert.Equal(t, DefaultMaxAttempts+1, calls)

	// Nothing left to pick up.
	clock = clock.Add(time.Hour)
	done, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, done)
	assert.Equal(t, DefaultMaxAttempts+1, calls)
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	asset := f.register(t, MediaImage)

	housekeeping := make(chan struct{}, 10)
	w := NewWorker(f.conn, WorkerConfig{
		Interval: time.Hour,
		Housekeeping: func(ctx context.Context) error {
			housekeeping <- struct{}{}
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(stopped)
	}()

	select {
	case <-housekeeping:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not tick")
	}

	w.Wake()
	select {
	case <-housekeeping:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not wake")
	}

	cancel()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}

	assert.Equal(t, AssetReady, f.assetStatus(t, asset.ID))
}

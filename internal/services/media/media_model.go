package media

import "time"

type MediaType string

const (
	MediaImage MediaType = "IMAGE"
	MediaVideo MediaType = "VIDEO"
)

type AssetStatus string

const (
	AssetPending AssetStatus = "PENDING"
	AssetReady   AssetStatus = "READY"
	AssetFailed  AssetStatus = "FAILED"
)

type JobType string

const (
	JobImageOptimize  JobType = "IMAGE_OPTIMIZE"
	JobVideoTranscode JobType = "VIDEO_TRANSCODE"
	JobVideoPoster    JobType = "VIDEO_POSTER"
)

type JobStatus string

const (
	JobPending    JobStatus = "PENDING"
	JobProcessing JobStatus = "PROCESSING"
	JobCompleted  JobStatus = "COMPLETED"
	JobFailed     JobStatus = "FAILED"
)

const (
	DefaultMaxAttempts = 3
	MaxFilesize        = 500 * 1024 * 1024
)

// JobsFor lists the processing steps an asset of type t needs.
func JobsFor(t MediaType) []JobType {
	switch t {
	case MediaVideo:
		return []JobType{JobVideoTranscode, JobVideoPoster}
	default:
		return []JobType{JobImageOptimize}
	}
}

type Asset struct {
	ID              string      `db:"id" json:"id"`
	ProjectID       *string     `db:"project_id" json:"projectId"`
	UpdateID        *string     `db:"update_id" json:"updateId"`
	Type            MediaType   `db:"type" json:"type"`
	Status          AssetStatus `db:"status" json:"status"`
	OriginalPath    string      `db:"original_path" json:"originalPath"`
	StorageBucket   *string     `db:"storage_bucket" json:"storageBucket"`
	Width           *int        `db:"width" json:"width"`
	Height          *int        `db:"height" json:"height"`
	DurationSeconds *int        `db:"duration_seconds" json:"durationSeconds"`
	Filesize        *int64      `db:"filesize" json:"filesize"`
	AltText         *string     `db:"alt_text" json:"altText"`
	Caption         *string     `db:"caption" json:"caption"`
	CreatedAt       time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updatedAt"`

	Jobs []*Job `db:"-" json:"jobs,omitempty"`
}

type Job struct {
	ID          string     `db:"id" json:"id"`
	MediaID     string     `db:"media_id" json:"mediaId"`
	JobType     JobType    `db:"job_type" json:"jobType"`
	Status      JobStatus  `db:"status" json:"status"`
	Attempts    int        `db:"attempts" json:"attempts"`
	MaxAttempts int        `db:"max_attempts" json:"maxAttempts"`
	ScheduledAt time.Time  `db:"scheduled_at" json:"scheduledAt"`
	StartedAt   *time.Time `db:"started_at" json:"startedAt"`
	CompletedAt *time.Time `db:"completed_at" json:"completedAt"`
	LastError   *string    `db:"last_error" json:"lastError"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
}

// AssetSummary is the slice of an asset shown next to its job.
type AssetSummary struct {
	ID           string      `db:"id" json:"id"`
	Type         MediaType   `db:"type" json:"type"`
	Status       AssetStatus `db:"status" json:"status"`
	OriginalPath string      `db:"original_path" json:"originalPath"`
}

// JobWithMedia is a row of the admin job list.
type JobWithMedia struct {
	Job
	Media AssetSummary `db:"media" json:"media"`
}

// RegisterAssetRequest captures payload for registering an uploaded file
type RegisterAssetRequest struct {
	ProjectID       *string   `json:"projectId,omitempty" validate:"required_without=UpdateID,omitempty,uuid"`
	UpdateID        *string   `json:"updateId,omitempty" validate:"required_without=ProjectID,omitempty,uuid"`
	Type            MediaType `json:"type" validate:"required,oneof=IMAGE VIDEO"`
	OriginalPath    string    `json:"originalPath" validate:"required,max=1024"`
	StorageBucket   *string   `json:"storageBucket,omitempty" validate:"omitempty,max=255"`
	Width           *int      `json:"width,omitempty" validate:"omitempty,gt=0"`
	Height          *int      `json:"height,omitempty" validate:"omitempty,gt=0"`
	DurationSeconds *int      `json:"durationSeconds,omitempty" validate:"omitempty,min=0"`
	Filesize        *int64    `json:"filesize,omitempty" validate:"omitempty,min=0,max=524288000"`
	AltText         *string   `json:"altText,omitempty" validate:"omitempty,max=240"`
	Caption         *string   `json:"caption,omitempty" validate:"omitempty,max=480"`
}

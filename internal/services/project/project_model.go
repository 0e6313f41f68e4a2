package project

import (
	"strings"
	"time"
)

type Visibility string

const (
	VisibilityPrivate Visibility = "PRIVATE"
	VisibilityPublic  Visibility = "PUBLIC"
)

const MaxTags = 10

// Project is owned by a single user and is never hard-deleted.
type Project struct {
	ID           string     `json:"id" db:"id"`
	OwnerID      string     `json:"ownerId" db:"owner_id"`
	Title        string     `json:"title" db:"title"`
	Slug         string     `json:"slug" db:"slug"`
	Summary      *string    `json:"summary" db:"summary"`
	Visibility   Visibility `json:"visibility" db:"visibility"`
	CoverImageID *string    `json:"coverImageId" db:"cover_image_id"`
	IsDeleted    bool       `json:"-" db:"is_deleted"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`

	Tags []string `json:"tags" db:"-"`
}

// IsVisibleTo reports whether viewerID may read the project.
func (p *Project) IsVisibleTo(viewerID string) bool {
	return p.Visibility == VisibilityPublic || (viewerID != "" && p.OwnerID == viewerID)
}

type Tag struct {
	ID   string `db:"id"`
	Name string `db:"name"`
}

// DashboardProject is a row of the owner's project list.
type DashboardProject struct {
	Project
	HighlightCount int `json:"highlightCount" db:"highlight_count"`
}

// GalleryProject is a row of the public gallery.
type GalleryProject struct {
	Project
	OwnerUsername    string  `json:"ownerUsername" db:"owner_username"`
	OwnerDisplayName *string `json:"ownerDisplayName" db:"owner_display_name"`
}

type Owner struct {
	ID          string  `json:"id" db:"id"`
	Username    string  `json:"username" db:"username"`
	DisplayName *string `json:"displayName" db:"display_name"`
}

type Highlight struct {
	UpdateID    string    `json:"updateId" db:"update_id"`
	Headline    *string   `json:"headline" db:"headline"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	PublishedAt time.Time `json:"publishedAt" db:"published_at"`
}

// Detail is everything the public project page shows besides the updates.
type Detail struct {
	Project       *Project     `json:"project"`
	Owner         *Owner       `json:"owner"`
	Highlights    []*Highlight `json:"highlights"`
	FollowerCount int          `json:"followerCount"`
	IsFollowing   bool         `json:"isFollowing"`
}

// CreateProjectRequest captures payload for creating a project
type CreateProjectRequest struct {
	Title        string     `json:"title" validate:"required,min=3,max=160"`
	Summary      *string    `json:"summary,omitempty" validate:"omitempty,max=500"`
	Visibility   Visibility `json:"visibility,omitempty" validate:"omitempty,oneof=PRIVATE PUBLIC"`
	Tags         []string   `json:"tags,omitempty" validate:"max=10,dive,max=32"`
	CoverImageID *string    `json:"coverImageId,omitempty" validate:"omitempty,uuid"`
}

// UpdateProjectRequest captures payload for a partial update. Nil fields are
// left alone; an empty summary or cover image id clears the column.
type UpdateProjectRequest struct {
	Title        *string     `json:"title,omitempty" validate:"omitempty,min=3,max=160"`
	Summary      *string     `json:"summary,omitempty" validate:"omitempty,max=500"`
	Visibility   *Visibility `json:"visibility,omitempty" validate:"omitempty,oneof=PRIVATE PUBLIC"`
	Tags         *[]string   `json:"tags,omitempty" validate:"omitempty,max=10,dive,max=32"`
	CoverImageID *string     `json:"coverImageId,omitempty" validate:"omitempty,uuid"`
}

// NormalizeTags lowercases and trims names, drops empties and duplicates,
// and keeps at most MaxTags in input order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		name := strings.ToLower(strings.TrimSpace(t))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
		if len(out) == MaxTags {
			break
		}
	}
	return out
}

// diffTags returns the names to link and to unlink to go from current to next.
func diffTags(current, next []string) (add []string, remove []string) {
	cur := make(map[string]struct{}, len(current))
	for _, t := range current {
		cur[t] = struct{}{}
	}
	nxt := make(map[string]struct{}, len(next))
	for _, t := range next {
		nxt[t] = struct{}{}
		if _, ok := cur[t]; !ok {
			add = append(add, t)
		}
	}
	for _, t := range current {
		if _, ok := nxt[t]; !ok {
			remove = append(remove, t)
		}
	}
	return add, remove
}

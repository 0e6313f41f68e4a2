package feed

import "time"

type EventType string

const (
	EventProjectCreated           EventType = "PROJECT_CREATED"
	EventProjectVisibilityChanged EventType = "PROJECT_VISIBILITY_CHANGED"
	EventUpdatePublished          EventType = "UPDATE_PUBLISHED"
	EventProjectHighlighted       EventType = "PROJECT_HIGHLIGHTED"
)

// Event is an append-only activity record.
type Event struct {
	ID        string    `db:"id" json:"id"`
	Type      EventType `db:"type" json:"type"`
	ProjectID string    `db:"project_id" json:"projectId"`
	UpdateID  *string   `db:"update_id" json:"updateId"`
	ActorID   *string   `db:"actor_id" json:"actorId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type ProjectRef struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Slug       string `json:"slug"`
	Visibility string `json:"visibility"`
}

type UpdateRef struct {
	ID        string    `json:"id"`
	Headline  *string   `json:"headline"`
	CreatedAt time.Time `json:"createdAt"`
}

type ActorRef struct {
	ID          string  `json:"id"`
	Username    string  `json:"username"`
	DisplayName *string `json:"displayName"`
}

// EventView is an event with the entities it points at.
type EventView struct {
	ID        string     `json:"id"`
	Type      EventType  `json:"type"`
	CreatedAt time.Time  `json:"createdAt"`
	Project   ProjectRef `json:"project"`
	Update    *UpdateRef `json:"update"`
	Actor     *ActorRef  `json:"actor"`
}

// Page is one slice of the feed. NextCursor is nil on the last page.
type Page struct {
	Events     []*EventView `json:"events"`
	NextCursor *string      `json:"nextCursor"`
}

// eventRow is the flattened join read by the repo.
type eventRow struct {
	ID                string     `db:"id"`
	Type              EventType  `db:"type"`
	CreatedAt         time.Time  `db:"created_at"`
	ProjectID         string     `db:"project_id"`
	ProjectTitle      string     `db:"project_title"`
	ProjectSlug       string     `db:"project_slug"`
	ProjectVisibility string     `db:"project_visibility"`
	UpdateID          *string    `db:"update_id"`
	UpdateHeadline    *string    `db:"update_headline"`
	UpdateCreatedAt   *time.Time `db:"update_created_at"`
	ActorID           *string    `db:"actor_id"`
	ActorUsername     *string    `db:"actor_username"`
	ActorDisplayName  *string    `db:"actor_display_name"`
}

func (r *eventRow) view() *EventView {
	v := &EventView{
		ID:        r.ID,
		Type:      r.Type,
		CreatedAt: r.CreatedAt,
		Project: ProjectRef{
			ID:         r.ProjectID,
			Title:      r.ProjectTitle,
			Slug:       r.ProjectSlug,
			Visibility: r.ProjectVisibility,
		},
	}
	if r.UpdateID != nil && r.UpdateCreatedAt != nil {
		v.Update = &UpdateRef{ID: *r.UpdateID, Headline: r.UpdateHeadline, CreatedAt: *r.UpdateCreatedAt}
	}
	if r.ActorID != nil && r.ActorUsername != nil {
		v.Actor = &ActorRef{ID: *r.ActorID, Username: *r.ActorUsername, DisplayName: r.ActorDisplayName}
	}
	return v
}

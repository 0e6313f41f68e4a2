package follow

import "time"

// Follow links a user to a project they want to keep up with.
type Follow struct {
	FollowerID string    `db:"follower_id" json:"followerId"`
	ProjectID  string    `db:"project_id" json:"projectId"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

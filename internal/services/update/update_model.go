package update

import (
	"time"

	"github.com/curaious/projectchron/internal/db"
)

type BlockType string

const (
	BlockParagraph BlockType = "PARAGRAPH"
	BlockHeading   BlockType = "HEADING"
	BlockImage     BlockType = "IMAGE"
	BlockVideo     BlockType = "VIDEO"
	BlockList      BlockType = "LIST"
	BlockQuote     BlockType = "QUOTE"
	BlockCode      BlockType = "CODE"
	BlockEmbed     BlockType = "EMBED"
)

const (
	MinBlocks     = 1
	MaxBlocks     = 200
	MaxHighlights = 5
)

// Update is a dated progress post made of ordered blocks.
type Update struct {
	ID        string    `db:"id" json:"id"`
	ProjectID string    `db:"project_id" json:"projectId"`
	AuthorID  string    `db:"author_id" json:"authorId"`
	Headline  *string   `db:"headline" json:"headline"`
	IsDraft   bool      `db:"is_draft" json:"isDraft"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`

	Blocks    []*Block   `db:"-" json:"blocks"`
	Highlight *Highlight `db:"-" json:"highlight"`
}

type Block struct {
	ID       string    `db:"id" json:"id"`
	UpdateID string    `db:"update_id" json:"-"`
	Position int       `db:"position" json:"position"`
	Type     BlockType `db:"type" json:"type"`
	Text     *string   `db:"text" json:"text"`
	Data     db.JSON   `db:"data" json:"data"`
}

type Highlight struct {
	ID        string    `db:"id" json:"id"`
	ProjectID string    `db:"project_id" json:"-"`
	UpdateID  string    `db:"update_id" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// BlockInput is one block as sent by a client. Position is only a sort key;
// stored positions are renumbered from zero.
type BlockInput struct {
	Type     BlockType `json:"type" validate:"required,oneof=PARAGRAPH HEADING IMAGE VIDEO LIST QUOTE CODE EMBED"`
	Text     *string   `json:"text,omitempty" validate:"omitempty,max=20000"`
	Data     db.JSON   `json:"data,omitempty"`
	Position *int      `json:"position,omitempty" validate:"omitempty,min=0"`
}

// CreateUpdateRequest captures payload for posting an update
type CreateUpdateRequest struct {
	Headline *string      `json:"headline,omitempty" validate:"omitempty,max=160"`
	Blocks   []BlockInput `json:"blocks" validate:"dive"`
	IsDraft  bool         `json:"isDraft"`
}

// HighlightRequest toggles the highlight flag of one update
type HighlightRequest struct {
	UpdateID string `json:"updateId" validate:"required"`
	Enabled  bool   `json:"enabled"`
}

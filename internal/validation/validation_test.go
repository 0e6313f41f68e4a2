package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curaious/projectchron/internal/perrors"
)

type item struct {
	Kind string `json:"kind" validate:"required,oneof=A B"`
}

type payload struct {
	Name  string  `json:"name" validate:"required,min=3,username"`
	Size  *int    `json:"size,omitempty" validate:"omitempty,gt=0"`
	Items []item  `json:"items" validate:"max=2,dive"`
	Note  *string `json:"-" validate:"omitempty,max=2"`
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct("bad", &payload{Name: "ada_99", Items: []item{{Kind: "A"}}}))
}

func TestStruct_IssuesKeyedByJSONPath(t *testing.T) {
	size := 0
	note := "long"
	err := Struct("Invalid payload", &payload{
		Name:  "A!",
		Size:  &size,
		Items: []item{{Kind: "A"}, {Kind: "C"}},
		Note:  &note,
	})

	var perr perrors.Err
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, perrors.ErrCodeValidation, perr.Code)
	assert.Equal(t, "Invalid payload", perr.Message)

	assert.Equal(t, []string{"Must be at least 3 characters."}, perr.Issues["name"])
	assert.Equal(t, []string{"Must be greater than 0."}, perr.Issues["size"])
	assert.Equal(t, []string{"Must be one of: A B."}, perr.Issues["items[1].kind"])
	assert.Equal(t, []string{"Must be at most 2 characters."}, perr.Issues["Note"])
}

func TestStruct_TooManyItems(t *testing.T) {
	err := Struct("Invalid payload", &payload{Name: "ada", Items: make([]item, 3)})

	var perr perrors.Err
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, []string{"At most 2 items are allowed."}, perr.Issues["items"])
}

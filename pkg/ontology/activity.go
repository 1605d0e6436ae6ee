package ontology

import (
	"time"
)

// MaxActivityLevel is the deepest level an activity may occupy. Levels
// are 0-based, so the taxonomy holds at most three levels.
const MaxActivityLevel = 2

type Activity struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	ParentID  *int64    `json:"parent_id" db:"parent_id"`
	Level     int       `json:"level" db:"level"`
	CreatedAt time.Time `json:"-" db:"created_at"`
	UpdatedAt time.Time `json:"-" db:"updated_at"`
}

// ActivityNode is an activity with its assembled subtree.
type ActivityNode struct {
	ID       int64          `json:"id"`
	Name     string         `json:"name"`
	ParentID *int64         `json:"parent_id"`
	Level    int            `json:"level"`
	Children []ActivityNode `json:"children"`
}

// CreateActivityRequest creates a taxonomy node. The level is always
// derived from the parent; there is no way to supply it.
type CreateActivityRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=255"`
	ParentID *int64 `json:"parent_id,omitempty" validate:"omitempty,gt=0"`
}

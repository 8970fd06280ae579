package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when no record matches the lookup.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique index rejects an insert.
	ErrDuplicate = errors.New("duplicate record")
)

// CounterField names a derived counter column on forum_posts.
type CounterField string

const (
	CounterReplies CounterField = "reply_count"
	CounterUpvotes CounterField = "upvote_count"
	CounterViews   CounterField = "view_count"
)

func (f CounterField) valid() bool {
	switch f {
	case CounterReplies, CounterUpvotes, CounterViews:
		return true
	}
	return false
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CommentReaction struct {
	ID           string    `gorm:"type:uuid;primary_key" json:"id"`
	CommentID    string    `gorm:"type:uuid;not null;index:idx_comment_user_reaction,unique" json:"comment_id"`
	UserID       string    `gorm:"type:varchar(64);not null;index:idx_comment_user_reaction,unique" json:"user_id"`
	ReactionType string    `gorm:"type:varchar(20);not null;index:idx_comment_user_reaction,unique" json:"reaction_type"` // like, love, helpful, laugh, wow, sad, angry
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// BeforeCreate hook to generate UUID
func (r *CommentReaction) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (CommentReaction) TableName() string {
	return "comment_reactions"
}

// Constants for reactions
const (
	ReactionLike    = "like"
	ReactionLove    = "love"
	ReactionHelpful = "helpful"
	ReactionLaugh   = "laugh"
	ReactionWow     = "wow"
	ReactionSad     = "sad"
	ReactionAngry   = "angry"
)

var reactionTypes = map[string]struct{}{
	ReactionLike:    {},
	ReactionLove:    {},
	ReactionHelpful: {},
	ReactionLaugh:   {},
	ReactionWow:     {},
	ReactionSad:     {},
	ReactionAngry:   {},
}

// IsValidReaction reports whether t is one of the seven reaction types.
func IsValidReaction(t string) bool {
	_, ok := reactionTypes[t]
	return ok
}

// ReactionState is what a caller sees after toggling a reaction: every
// reaction on the comment plus the caller's own active type, if any.
type ReactionState struct {
	CommentID string             `json:"comment_id"`
	Active    *string            `json:"active,omitempty"`
	Reactions []*CommentReaction `json:"reactions"`
	Counts    map[string]int     `json:"counts"`
}

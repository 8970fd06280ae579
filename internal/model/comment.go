package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment is a single node of an article's comment thread.
type Comment struct {
	ID        string     `gorm:"type:uuid;primary_key" json:"id"`
	PostID    string     `gorm:"type:uuid;not null;index" json:"post_id"`
	AuthorID  string     `gorm:"type:varchar(64);not null;index" json:"author_id"`
	ParentID  *string    `gorm:"type:uuid;index" json:"parent_id,omitempty"` // For nested comments/replies
	Content   string     `gorm:"type:text;not null" json:"content"`
	Approved  bool       `gorm:"not null;index" json:"approved"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// BeforeCreate hook to generate UUID
func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (Comment) TableName() string {
	return "comments"
}

func (c *Comment) NodeID() string { return c.ID }

func (c *Comment) ParentNodeID() string {
	if c.ParentID == nil {
		return ""
	}
	return *c.ParentID
}

// CommentNode is a comment with its reactions and nested replies attached.
type CommentNode struct {
	*Comment
	Reactions []*CommentReaction `json:"reactions"`
	Replies   []*CommentNode     `json:"replies"`
}

// NewCommentNode wraps a freshly created or edited comment with empty children.
func NewCommentNode(c *Comment, reactions []*CommentReaction) *CommentNode {
	if reactions == nil {
		reactions = []*CommentReaction{}
	}
	return &CommentNode{
		Comment:   c,
		Reactions: reactions,
		Replies:   []*CommentNode{},
	}
}

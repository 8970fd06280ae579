package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Forum struct {
	ID        string    `gorm:"type:uuid;primary_key" json:"id"`
	Slug      string    `gorm:"type:varchar(120);uniqueIndex;not null" json:"slug"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
	Order     int       `gorm:"column:sort_order;default:0" json:"order"`
	PostCount int64     `gorm:"default:0" json:"post_count"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// BeforeCreate hook to generate UUID
func (f *Forum) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (Forum) TableName() string {
	return "forums"
}

type ForumPost struct {
	ID            string     `gorm:"type:uuid;primary_key" json:"id"`
	ForumID       string     `gorm:"type:uuid;not null;index" json:"forum_id"`
	AuthorID      string     `gorm:"type:varchar(64);not null;index" json:"author_id"`
	Title         string     `gorm:"type:varchar(255);not null" json:"title"`
	Content       string     `gorm:"type:text;not null" json:"content"`
	IsPinned      bool       `gorm:"default:false;index" json:"is_pinned"`
	IsSolved      bool       `gorm:"default:false" json:"is_solved"`
	IsClosed      bool       `gorm:"default:false" json:"is_closed"`
	ViewCount     int64      `gorm:"default:0" json:"view_count"`
	UpvoteCount   int64      `gorm:"default:0" json:"upvote_count"`
	DownvoteCount int64      `gorm:"default:0" json:"downvote_count"`
	ReplyCount    int64      `gorm:"default:0" json:"reply_count"`
	LastReplyAt   *time.Time `json:"last_reply_at,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeCreate hook to generate UUID
func (p *ForumPost) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (ForumPost) TableName() string {
	return "forum_posts"
}

type ForumReply struct {
	ID            string    `gorm:"type:uuid;primary_key" json:"id"`
	ForumPostID   string    `gorm:"type:uuid;not null;index" json:"forum_post_id"`
	AuthorID      string    `gorm:"type:varchar(64);not null;index" json:"author_id"`
	Content       string    `gorm:"type:text;not null" json:"content"`
	IsHelpful     bool      `gorm:"default:false" json:"is_helpful"`
	UpvoteCount   int64     `gorm:"default:0" json:"upvote_count"`
	ParentReplyID *string   `gorm:"type:uuid;index" json:"parent_reply_id,omitempty"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeCreate hook to generate UUID
func (r *ForumReply) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (ForumReply) TableName() string {
	return "forum_replies"
}

func (r *ForumReply) NodeID() string { return r.ID }

func (r *ForumReply) ParentNodeID() string {
	if r.ParentReplyID == nil {
		return ""
	}
	return *r.ParentReplyID
}

// ReplyNode is a forum reply with its nested replies attached.
type ReplyNode struct {
	*ForumReply
	Replies []*ReplyNode `json:"replies"`
}

// ForumVote records a single upvote. ForumPostID holds the target id, which
// may be either a forum post or a forum reply.
type ForumVote struct {
	ID          string    `gorm:"type:uuid;primary_key" json:"id"`
	ForumPostID string    `gorm:"type:uuid;not null;index:idx_vote_target_user,unique" json:"forum_post_id"`
	UserID      string    `gorm:"type:varchar(64);not null;index:idx_vote_target_user,unique" json:"user_id"`
	VoteType    string    `gorm:"type:varchar(20);not null;default:'upvote'" json:"vote_type"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// BeforeCreate hook to generate UUID
func (v *ForumVote) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (ForumVote) TableName() string {
	return "forum_votes"
}

const VoteTypeUpvote = "upvote"

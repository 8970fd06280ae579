package repository

import (
	"context"
	"fmt"
	"time"

	"parenthub/internal/model"

	"gorm.io/gorm"
)

type ForumPostRepository interface {
	Create(ctx context.Context, post *model.ForumPost) error
	FindByID(ctx context.Context, id string) (*model.ForumPost, error)
	// Update writes title, content and flags. Counters are never written here.
	Update(ctx context.Context, post *model.ForumPost) error
	// FindByForumID lists pinned posts first, then the most recent.
	FindByForumID(ctx context.Context, forumID string, limit int) ([]*model.ForumPost, error)
	CountByForumID(ctx context.Context, forumID string) (int64, error)
	ListIDs(ctx context.Context) ([]string, error)
	IncrementCounter(ctx context.Context, id string, field CounterField, delta int64) error
	TouchLastReply(ctx context.Context, id string, at time.Time) error
	SetCounter(ctx context.Context, id string, field CounterField, value int64) error
}

type forumPostRepository struct {
	db *gorm.DB
}

func NewForumPostRepository(db *gorm.DB) ForumPostRepository {
	return &forumPostRepository{db: db}
}

func (r *forumPostRepository) Create(ctx context.Context, post *model.ForumPost) error {
	return translate(r.db.WithContext(ctx).Create(post).Error)
}

func (r *forumPostRepository) FindByID(ctx context.Context, id string) (*model.ForumPost, error) {
	var post model.ForumPost
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error; err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

func (r *forumPostRepository) Update(ctx context.Context, post *model.ForumPost) error {
	result := r.db.WithContext(ctx).Model(post).
		Select("title", "content", "is_pinned", "is_solved", "is_closed", "updated_at").
		Updates(post)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *forumPostRepository) FindByForumID(ctx context.Context, forumID string, limit int) ([]*model.ForumPost, error) {
	query := r.db.WithContext(ctx).
		Where("forum_id = ?", forumID).
		Order("is_pinned DESC, created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var posts []*model.ForumPost
	if err := query.Find(&posts).Error; err != nil {
		return nil, translate(err)
	}
	return posts, nil
}

func (r *forumPostRepository) CountByForumID(ctx context.Context, forumID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ForumPost{}).
		Where("forum_id = ?", forumID).
		Count(&count).Error
	return count, translate(err)
}

func (r *forumPostRepository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&model.ForumPost{}).Pluck("id", &ids).Error; err != nil {
		return nil, translate(err)
	}
	return ids, nil
}

// IncrementCounter adds delta to one counter column atomically, floored at zero.
func (r *forumPostRepository) IncrementCounter(ctx context.Context, id string, field CounterField, delta int64) error {
	if !field.valid() {
		return fmt.Errorf("unknown counter %q", field)
	}
	column := string(field)
	result := r.db.WithContext(ctx).Model(&model.ForumPost{}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr("GREATEST("+column+" + ?, 0)", delta))
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *forumPostRepository) TouchLastReply(ctx context.Context, id string, at time.Time) error {
	return translate(r.db.WithContext(ctx).Model(&model.ForumPost{}).
		Where("id = ?", id).
		UpdateColumn("last_reply_at", at).Error)
}

func (r *forumPostRepository) SetCounter(ctx context.Context, id string, field CounterField, value int64) error {
	if !field.valid() {
		return fmt.Errorf("unknown counter %q", field)
	}
	return translate(r.db.WithContext(ctx).Model(&model.ForumPost{}).
		Where("id = ?", id).
		UpdateColumn(string(field), value).Error)
}

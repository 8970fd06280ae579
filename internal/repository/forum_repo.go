package repository

import (
	"context"

	"parenthub/internal/model"

	"gorm.io/gorm"
)

type ForumRepository interface {
	Create(ctx context.Context, forum *model.Forum) error
	FindByID(ctx context.Context, id string) (*model.Forum, error)
	FindBySlug(ctx context.Context, slug string) (*model.Forum, error)
	ListActive(ctx context.Context) ([]*model.Forum, error)
	List(ctx context.Context) ([]*model.Forum, error)
	IncrementPostCount(ctx context.Context, id string, delta int64) error
	SetPostCount(ctx context.Context, id string, count int64) error
}

type forumRepository struct {
	db *gorm.DB
}

func NewForumRepository(db *gorm.DB) ForumRepository {
	return &forumRepository{db: db}
}

func (r *forumRepository) Create(ctx context.Context, forum *model.Forum) error {
	return translate(r.db.WithContext(ctx).Create(forum).Error)
}

func (r *forumRepository) FindByID(ctx context.Context, id string) (*model.Forum, error) {
	var forum model.Forum
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&forum).Error; err != nil {
		return nil, translate(err)
	}
	return &forum, nil
}

func (r *forumRepository) FindBySlug(ctx context.Context, slug string) (*model.Forum, error) {
	var forum model.Forum
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&forum).Error; err != nil {
		return nil, translate(err)
	}
	return &forum, nil
}

func (r *forumRepository) ListActive(ctx context.Context) ([]*model.Forum, error) {
	var forums []*model.Forum
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC").Order("name ASC").
		Find(&forums).Error
	if err != nil {
		return nil, translate(err)
	}
	return forums, nil
}

func (r *forumRepository) List(ctx context.Context) ([]*model.Forum, error) {
	var forums []*model.Forum
	if err := r.db.WithContext(ctx).Order("sort_order ASC").Find(&forums).Error; err != nil {
		return nil, translate(err)
	}
	return forums, nil
}

// IncrementPostCount applies delta in a single statement, floored at zero.
func (r *forumRepository) IncrementPostCount(ctx context.Context, id string, delta int64) error {
	result := r.db.WithContext(ctx).Model(&model.Forum{}).
		Where("id = ?", id).
		UpdateColumn("post_count", gorm.Expr("GREATEST(post_count + ?, 0)", delta))
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *forumRepository) SetPostCount(ctx context.Context, id string, count int64) error {
	return translate(r.db.WithContext(ctx).Model(&model.Forum{}).
		Where("id = ?", id).
		UpdateColumn("post_count", count).Error)
}

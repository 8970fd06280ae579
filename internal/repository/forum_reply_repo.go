package repository

import (
	"context"

	"parenthub/internal/model"

	"gorm.io/gorm"
)

type ForumReplyRepository interface {
	Create(ctx context.Context, reply *model.ForumReply) error
	FindByID(ctx context.Context, id string) (*model.ForumReply, error)
	Update(ctx context.Context, reply *model.ForumReply) error
	Delete(ctx context.Context, id string) error
	// FindByPostID returns the flat reply thread of a post, oldest first.
	FindByPostID(ctx context.Context, postID string) ([]*model.ForumReply, error)
	CountByPostID(ctx context.Context, postID string) (int64, error)
	IncrementUpvotes(ctx context.Context, id string, delta int64) error
	SetUpvotes(ctx context.Context, id string, value int64) error
	ListIDs(ctx context.Context) ([]string, error)
}

type forumReplyRepository struct {
	db *gorm.DB
}

func NewForumReplyRepository(db *gorm.DB) ForumReplyRepository {
	return &forumReplyRepository{db: db}
}

func (r *forumReplyRepository) Create(ctx context.Context, reply *model.ForumReply) error {
	return translate(r.db.WithContext(ctx).Create(reply).Error)
}

func (r *forumReplyRepository) FindByID(ctx context.Context, id string) (*model.ForumReply, error) {
	var reply model.ForumReply
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&reply).Error; err != nil {
		return nil, translate(err)
	}
	return &reply, nil
}

func (r *forumReplyRepository) Update(ctx context.Context, reply *model.ForumReply) error {
	result := r.db.WithContext(ctx).Model(reply).
		Select("content", "is_helpful", "updated_at").
		Updates(reply)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *forumReplyRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.ForumReply{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *forumReplyRepository) FindByPostID(ctx context.Context, postID string) ([]*model.ForumReply, error) {
	var replies []*model.ForumReply
	err := r.db.WithContext(ctx).
		Where("forum_post_id = ?", postID).
		Order("created_at ASC").Order("id ASC").
		Find(&replies).Error
	if err != nil {
		return nil, translate(err)
	}
	return replies, nil
}

func (r *forumReplyRepository) CountByPostID(ctx context.Context, postID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ForumReply{}).
		Where("forum_post_id = ?", postID).
		Count(&count).Error
	return count, translate(err)
}

func (r *forumReplyRepository) IncrementUpvotes(ctx context.Context, id string, delta int64) error {
	result := r.db.WithContext(ctx).Model(&model.ForumReply{}).
		Where("id = ?", id).
		UpdateColumn("upvote_count", gorm.Expr("GREATEST(upvote_count + ?, 0)", delta))
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *forumReplyRepository) SetUpvotes(ctx context.Context, id string, value int64) error {
	return translate(r.db.WithContext(ctx).Model(&model.ForumReply{}).
		Where("id = ?", id).
		UpdateColumn("upvote_count", value).Error)
}

func (r *forumReplyRepository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&model.ForumReply{}).Pluck("id", &ids).Error; err != nil {
		return nil, translate(err)
	}
	return ids, nil
}

package repository

import (
	"context"

	"parenthub/internal/model"

	"gorm.io/gorm"
)

type VoteRepository interface {
	// Create returns ErrDuplicate when the user already voted on the target.
	Create(ctx context.Context, vote *model.ForumVote) error
	Exists(ctx context.Context, targetID, userID string) (bool, error)
	CountByTarget(ctx context.Context, targetID string) (int64, error)
}

type voteRepository struct {
	db *gorm.DB
}

func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db}
}

func (r *voteRepository) Create(ctx context.Context, vote *model.ForumVote) error {
	return translate(r.db.WithContext(ctx).Create(vote).Error)
}

func (r *voteRepository) Exists(ctx context.Context, targetID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ForumVote{}).
		Where("forum_post_id = ? AND user_id = ?", targetID, userID).
		Count(&count).Error
	if err != nil {
		return false, translate(err)
	}
	return count > 0, nil
}

func (r *voteRepository) CountByTarget(ctx context.Context, targetID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ForumVote{}).
		Where("forum_post_id = ?", targetID).
		Count(&count).Error
	return count, translate(err)
}

package repository

import (
	"context"

	"parenthub/internal/model"

	"gorm.io/gorm"
)

type ReactionRepository interface {
	Create(ctx context.Context, reaction *model.CommentReaction) error
	// FindByCommentAndUser returns every reaction the user holds on the comment.
	FindByCommentAndUser(ctx context.Context, commentID, userID string) ([]*model.CommentReaction, error)
	FindByComment(ctx context.Context, commentID string) ([]*model.CommentReaction, error)
	FindByCommentIDs(ctx context.Context, commentIDs []string) ([]*model.CommentReaction, error)
	Delete(ctx context.Context, id string) error
}

type reactionRepository struct {
	db *gorm.DB
}

func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

func (r *reactionRepository) Create(ctx context.Context, reaction *model.CommentReaction) error {
	return translate(r.db.WithContext(ctx).Create(reaction).Error)
}

func (r *reactionRepository) FindByCommentAndUser(ctx context.Context, commentID, userID string) ([]*model.CommentReaction, error) {
	var reactions []*model.CommentReaction
	err := r.db.WithContext(ctx).
		Where("comment_id = ? AND user_id = ?", commentID, userID).
		Order("created_at ASC").
		Find(&reactions).Error
	if err != nil {
		return nil, translate(err)
	}
	return reactions, nil
}

func (r *reactionRepository) FindByComment(ctx context.Context, commentID string) ([]*model.CommentReaction, error) {
	var reactions []*model.CommentReaction
	err := r.db.WithContext(ctx).
		Where("comment_id = ?", commentID).
		Order("created_at ASC").
		Find(&reactions).Error
	if err != nil {
		return nil, translate(err)
	}
	return reactions, nil
}

// FindByCommentIDs loads reactions for a whole thread in one query.
func (r *reactionRepository) FindByCommentIDs(ctx context.Context, commentIDs []string) ([]*model.CommentReaction, error) {
	if len(commentIDs) == 0 {
		return []*model.CommentReaction{}, nil
	}
	var reactions []*model.CommentReaction
	err := r.db.WithContext(ctx).
		Where("comment_id IN ?", commentIDs).
		Order("created_at ASC").
		Find(&reactions).Error
	if err != nil {
		return nil, translate(err)
	}
	return reactions, nil
}

func (r *reactionRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.CommentReaction{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

package service

import (
	"context"
	"errors"

	"parenthub/internal/model"
	"parenthub/internal/repository"
)

// ReactionLedger keeps at most one reaction type per (comment, user).
// Errors are raw repository errors; the service translates them.
type ReactionLedger struct {
	reactions repository.ReactionRepository
}

func NewReactionLedger(reactions repository.ReactionRepository) *ReactionLedger {
	return &ReactionLedger{reactions: reactions}
}

// AddReaction returns the existing row unchanged when the user already holds
// this type. Otherwise any other reaction of the user on the comment is
// removed before the new one is inserted.
func (l *ReactionLedger) AddReaction(ctx context.Context, commentID, userID, reactionType string) (*model.CommentReaction, error) {
	mine, err := l.reactions.FindByCommentAndUser(ctx, commentID, userID)
	if err != nil {
		return nil, err
	}
	for _, r := range mine {
		if r.ReactionType == reactionType {
			return r, nil
		}
	}
	for _, r := range mine {
		if err := l.reactions.Delete(ctx, r.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	reaction := &model.CommentReaction{
		CommentID:    commentID,
		UserID:       userID,
		ReactionType: reactionType,
	}
	err = l.reactions.Create(ctx, reaction)
	if errors.Is(err, repository.ErrDuplicate) {
		// a concurrent request inserted the same row first
		return l.find(ctx, commentID, userID, reactionType)
	}
	if err != nil {
		return nil, err
	}
	return reaction, nil
}

// RemoveReaction deletes the matching row; a missing row is not an error.
func (l *ReactionLedger) RemoveReaction(ctx context.Context, commentID, userID, reactionType string) error {
	r, err := l.find(ctx, commentID, userID, reactionType)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := l.reactions.Delete(ctx, r.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return nil
}

// Active returns the user's current reaction on the comment, or nil.
func (l *ReactionLedger) Active(ctx context.Context, commentID, userID string) (*model.CommentReaction, error) {
	mine, err := l.reactions.FindByCommentAndUser(ctx, commentID, userID)
	if err != nil {
		return nil, err
	}
	if len(mine) == 0 {
		return nil, nil
	}
	return mine[len(mine)-1], nil
}

func (l *ReactionLedger) find(ctx context.Context, commentID, userID, reactionType string) (*model.CommentReaction, error) {
	mine, err := l.reactions.FindByCommentAndUser(ctx, commentID, userID)
	if err != nil {
		return nil, err
	}
	for _, r := range mine {
		if r.ReactionType == reactionType {
			return r, nil
		}
	}
	return nil, repository.ErrNotFound
}

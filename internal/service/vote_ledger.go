package service

import (
	"context"
	"errors"

	"parenthub/internal/model"
	"parenthub/internal/repository"
)

// VoteLedger records permanent upvotes, one per (target, user).
type VoteLedger struct {
	votes repository.VoteRepository
}

func NewVoteLedger(votes repository.VoteRepository) *VoteLedger {
	return &VoteLedger{votes: votes}
}

// Upvote reports whether a new vote was recorded.
func (l *VoteLedger) Upvote(ctx context.Context, targetID, userID string) (bool, error) {
	voted, err := l.votes.Exists(ctx, targetID, userID)
	if err != nil {
		return false, err
	}
	if voted {
		return false, nil
	}

	err = l.votes.Create(ctx, &model.ForumVote{
		ForumPostID: targetID,
		UserID:      userID,
		VoteType:    model.VoteTypeUpvote,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (l *VoteLedger) HasVoted(ctx context.Context, targetID, userID string) (bool, error) {
	return l.votes.Exists(ctx, targetID, userID)
}

package service

import (
	"context"
	"log"
	"time"

	"parenthub/internal/repository"
)

// VoteTarget says which kind of record an upvote landed on.
type VoteTarget int

const (
	VoteTargetPost VoteTarget = iota
	VoteTargetReply
)

// CounterMaintainer updates derived counters after a primary write has
// succeeded. Every update is a single atomic increment in the store. Failures
// are logged and swallowed: counters are advisory and the Reconciler repairs
// drift.
type CounterMaintainer struct {
	forums  repository.ForumRepository
	posts   repository.ForumPostRepository
	replies repository.ForumReplyRepository
}

func NewCounterMaintainer(
	forums repository.ForumRepository,
	posts repository.ForumPostRepository,
	replies repository.ForumReplyRepository,
) *CounterMaintainer {
	return &CounterMaintainer{forums: forums, posts: posts, replies: replies}
}

func (m *CounterMaintainer) ForumPostCreated(ctx context.Context, forumID string) {
	if err := m.forums.IncrementPostCount(ctx, forumID, 1); err != nil {
		log.Printf("[CounterMaintainer] forum %s post_count +1 failed: %v", forumID, err)
	}
}

func (m *CounterMaintainer) ReplyCreated(ctx context.Context, postID string, at time.Time) {
	if err := m.posts.IncrementCounter(ctx, postID, repository.CounterReplies, 1); err != nil {
		log.Printf("[CounterMaintainer] post %s reply_count +1 failed: %v", postID, err)
	}
	if err := m.posts.TouchLastReply(ctx, postID, at); err != nil {
		log.Printf("[CounterMaintainer] post %s last_reply_at failed: %v", postID, err)
	}
}

func (m *CounterMaintainer) ReplyDeleted(ctx context.Context, postID string) {
	if err := m.posts.IncrementCounter(ctx, postID, repository.CounterReplies, -1); err != nil {
		log.Printf("[CounterMaintainer] post %s reply_count -1 failed: %v", postID, err)
	}
}

func (m *CounterMaintainer) VoteCast(ctx context.Context, target VoteTarget, targetID string) {
	var err error
	switch target {
	case VoteTargetPost:
		err = m.posts.IncrementCounter(ctx, targetID, repository.CounterUpvotes, 1)
	case VoteTargetReply:
		err = m.replies.IncrementUpvotes(ctx, targetID, 1)
	}
	if err != nil {
		log.Printf("[CounterMaintainer] %s upvote_count +1 failed: %v", targetID, err)
	}
}

// PostViewed reports whether the view was counted.
func (m *CounterMaintainer) PostViewed(ctx context.Context, postID string) bool {
	if err := m.posts.IncrementCounter(ctx, postID, repository.CounterViews, 1); err != nil {
		log.Printf("[CounterMaintainer] post %s view_count +1 failed: %v", postID, err)
		return false
	}
	return true
}

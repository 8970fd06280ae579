package service

import (
	"context"
	"errors"
	"log"
	"time"

	"parenthub/internal/identity"
	"parenthub/internal/model"
	"parenthub/internal/repository"
	"parenthub/internal/thread"
)

const (
	DefaultMaxDepth  = 3
	DefaultPostLimit = 20
	MaxPostLimit     = 100
)

// DiscussionService is the only entry point application code uses for
// article comments and forum threads. Every method returns a *Error on
// failure.
type DiscussionService interface {
	// Comments
	ListCommentThread(ctx context.Context, postID string) ([]*model.CommentNode, error)
	PostComment(ctx context.Context, postID, content string, parentID *string) (*model.CommentNode, error)
	EditComment(ctx context.Context, commentID, content string) (*model.Comment, error)
	DeleteComment(ctx context.Context, commentID string) (*model.Comment, error)
	ToggleReaction(ctx context.Context, commentID, reactionType string) (*model.ReactionState, error)

	// Forums
	ListForums(ctx context.Context) ([]*model.Forum, error)
	GetForum(ctx context.Context, idOrSlug string) (*model.Forum, error)
	ListForumPosts(ctx context.Context, forumID string, limit int) ([]*model.ForumPost, error)
	CreateForumPost(ctx context.Context, forumID, title, content string) (*model.ForumPost, error)
	ViewForumPost(ctx context.Context, postID string) (*model.ForumPost, error)
	ListReplyThread(ctx context.Context, forumPostID string) ([]*model.ReplyNode, error)
	ReplyToForumPost(ctx context.Context, forumPostID, content string, parentReplyID *string) (*model.ReplyNode, error)
	EditReply(ctx context.Context, replyID, content string) (*model.ForumReply, error)
	DeleteReply(ctx context.Context, replyID string) (*model.ForumReply, error)
	Upvote(ctx context.Context, targetID string) (bool, error)
	HasVoted(ctx context.Context, targetID string) (bool, error)
	CloseForumPost(ctx context.Context, postID string) (*model.ForumPost, error)

	// Admin flags. Role gating happens in the calling layer.
	PinPost(ctx context.Context, postID string, pinned bool) (*model.ForumPost, error)
	MarkSolved(ctx context.Context, postID string, solved bool) (*model.ForumPost, error)
	MarkReplyHelpful(ctx context.Context, replyID string, helpful bool) (*model.ForumReply, error)
}

// Repositories bundles the record store collections the service reads and writes.
type Repositories struct {
	Articles     repository.ArticleRepository
	Comments     repository.CommentRepository
	Reactions    repository.ReactionRepository
	Forums       repository.ForumRepository
	ForumPosts   repository.ForumPostRepository
	ForumReplies repository.ForumReplyRepository
	Votes        repository.VoteRepository
}

type Options struct {
	// MaxDepth is the deepest allowed reply level; roots are depth 0.
	// Zero selects DefaultMaxDepth.
	MaxDepth int
	// AutoApprove marks new comments approved so they show up in listings.
	AutoApprove bool
	Now         func() time.Time
	// Events is optional; nil disables realtime fan-out.
	Events EventPublisher
}

func DefaultOptions() Options {
	return Options{
		MaxDepth:    DefaultMaxDepth,
		AutoApprove: true,
		Now:         time.Now,
	}
}

type discussionService struct {
	repos     Repositories
	identity  identity.Provider
	reactions *ReactionLedger
	votes     *VoteLedger
	counters  *CounterMaintainer
	events    EventPublisher

	maxDepth    int
	autoApprove bool
	now         func() time.Time
}

func NewDiscussionService(repos Repositories, provider identity.Provider, opts Options) DiscussionService {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &discussionService{
		repos:       repos,
		identity:    provider,
		reactions:   NewReactionLedger(repos.Reactions),
		votes:       NewVoteLedger(repos.Votes),
		counters:    NewCounterMaintainer(repos.Forums, repos.ForumPosts, repos.ForumReplies),
		events:      opts.Events,
		maxDepth:    opts.MaxDepth,
		autoApprove: opts.AutoApprove,
		now:         opts.Now,
	}
}

func (s *discussionService) caller(ctx context.Context, op string) (*identity.Caller, error) {
	caller, ok := s.identity.CurrentUser(ctx)
	if !ok {
		return nil, newError(KindUnauthenticated, op, "sign in required")
	}
	return caller, nil
}

func (s *discussionService) timestamp() time.Time {
	return s.now().UTC()
}

// publish is best effort; a failed fan-out never fails the operation.
func (s *discussionService) publish(ctx context.Context, event DiscussionEvent) {
	if s.events == nil {
		return
	}
	event.Timestamp = s.timestamp()
	if err := s.events.Publish(ctx, event); err != nil {
		log.Printf("[DiscussionService] failed to publish %s on %s: %v", event.Type, event.Topic, err)
	}
}

// depthOf counts the resolvable ancestors of node, stopping at a dangling
// parent or once limit is reached.
func depthOf[T thread.Item](ctx context.Context, node T, fetch func(context.Context, string) (T, error), limit int) (int, error) {
	depth := 0
	for depth < limit {
		parentID := node.ParentNodeID()
		if parentID == "" {
			break
		}
		parent, err := fetch(ctx, parentID)
		if errors.Is(err, repository.ErrNotFound) {
			break
		}
		if err != nil {
			return 0, err
		}
		depth++
		node = parent
	}
	return depth, nil
}

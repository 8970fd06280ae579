package repository

import (
	"context"
	"fmt"
	"log"
	"time"

	"parenthub/internal/model"
	"parenthub/internal/util"
)

const (
	commentByPostCachePrefix = "comment:post:"
	replyByPostCachePrefix   = "forum_reply:post:"
	threadCacheExpiration    = 15 * time.Minute
)

// cachedCommentRepository serves thread listings from redis and drops the
// cached listing of a post whenever one of its comments changes.
type cachedCommentRepository struct {
	CommentRepository
	redis *util.RedisClient
}

// NewCachedCommentRepository wraps next with a read-through redis cache. A nil
// redis client returns next unchanged.
func NewCachedCommentRepository(next CommentRepository, redis *util.RedisClient) CommentRepository {
	if redis == nil {
		return next
	}
	return &cachedCommentRepository{CommentRepository: next, redis: redis}
}

func (r *cachedCommentRepository) FindByPostID(ctx context.Context, postID string, approvedOnly bool) ([]*model.Comment, error) {
	key := fmt.Sprintf("%s%s:%t", commentByPostCachePrefix, postID, approvedOnly)

	var cached []*model.Comment
	if err := r.redis.GetJSON(ctx, key, &cached); err == nil {
		return cached, nil
	}

	comments, err := r.CommentRepository.FindByPostID(ctx, postID, approvedOnly)
	if err != nil {
		return nil, err
	}
	if err := r.redis.Set(ctx, key, comments, threadCacheExpiration); err != nil {
		log.Printf("[CommentCache] failed to cache thread %s: %v", postID, err)
	}
	return comments, nil
}

func (r *cachedCommentRepository) Create(ctx context.Context, comment *model.Comment) error {
	if err := r.CommentRepository.Create(ctx, comment); err != nil {
		return err
	}
	r.invalidatePost(ctx, comment.PostID)
	return nil
}

func (r *cachedCommentRepository) Update(ctx context.Context, comment *model.Comment) error {
	if err := r.CommentRepository.Update(ctx, comment); err != nil {
		return err
	}
	r.invalidatePost(ctx, comment.PostID)
	return nil
}

func (r *cachedCommentRepository) Delete(ctx context.Context, id string) error {
	comment, err := r.CommentRepository.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.CommentRepository.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidatePost(ctx, comment.PostID)
	return nil
}

func (r *cachedCommentRepository) invalidatePost(ctx context.Context, postID string) {
	if err := r.redis.DeletePattern(ctx, commentByPostCachePrefix+postID+":*"); err != nil {
		log.Printf("[CommentCache] failed to invalidate thread %s: %v", postID, err)
	}
}

// cachedForumReplyRepository does the same for forum reply threads. Upvote
// counters change the cached rows too, so they invalidate as well.
type cachedForumReplyRepository struct {
	ForumReplyRepository
	redis *util.RedisClient
}

func NewCachedForumReplyRepository(next ForumReplyRepository, redis *util.RedisClient) ForumReplyRepository {
	if redis == nil {
		return next
	}
	return &cachedForumReplyRepository{ForumReplyRepository: next, redis: redis}
}

func (r *cachedForumReplyRepository) FindByPostID(ctx context.Context, postID string) ([]*model.ForumReply, error) {
	key := replyByPostCachePrefix + postID

	var cached []*model.ForumReply
	if err := r.redis.GetJSON(ctx, key, &cached); err == nil {
		return cached, nil
	}

	replies, err := r.ForumReplyRepository.FindByPostID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := r.redis.Set(ctx, key, replies, threadCacheExpiration); err != nil {
		log.Printf("[ForumReplyCache] failed to cache thread %s: %v", postID, err)
	}
	return replies, nil
}

func (r *cachedForumReplyRepository) Create(ctx context.Context, reply *model.ForumReply) error {
	if err := r.ForumReplyRepository.Create(ctx, reply); err != nil {
		return err
	}
	r.invalidatePost(ctx, reply.ForumPostID)
	return nil
}

func (r *cachedForumReplyRepository) Update(ctx context.Context, reply *model.ForumReply) error {
	if err := r.ForumReplyRepository.Update(ctx, reply); err != nil {
		return err
	}
	r.invalidatePost(ctx, reply.ForumPostID)
	return nil
}

func (r *cachedForumReplyRepository) Delete(ctx context.Context, id string) error {
	return r.mutate(ctx, id, func() error { return r.ForumReplyRepository.Delete(ctx, id) })
}

func (r *cachedForumReplyRepository) IncrementUpvotes(ctx context.Context, id string, delta int64) error {
	return r.mutate(ctx, id, func() error { return r.ForumReplyRepository.IncrementUpvotes(ctx, id, delta) })
}

func (r *cachedForumReplyRepository) SetUpvotes(ctx context.Context, id string, value int64) error {
	return r.mutate(ctx, id, func() error { return r.ForumReplyRepository.SetUpvotes(ctx, id, value) })
}

func (r *cachedForumReplyRepository) mutate(ctx context.Context, id string, fn func() error) error {
	reply, err := r.ForumReplyRepository.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	r.invalidatePost(ctx, reply.ForumPostID)
	return nil
}

func (r *cachedForumReplyRepository) invalidatePost(ctx context.Context, postID string) {
	if err := r.redis.Delete(ctx, replyByPostCachePrefix+postID); err != nil {
		log.Printf("[ForumReplyCache] failed to invalidate thread %s: %v", postID, err)
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"parenthub/internal/repository"
)

// Reconciler recounts derived counters from the authoritative rows on a
// fixed interval.
type Reconciler struct {
	forums   repository.ForumRepository
	posts    repository.ForumPostRepository
	replies  repository.ForumReplyRepository
	votes    repository.VoteRepository
	interval time.Duration

	started  atomic.Bool
	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewReconciler(
	forums repository.ForumRepository,
	posts repository.ForumPostRepository,
	replies repository.ForumReplyRepository,
	votes repository.VoteRepository,
	interval time.Duration,
) *Reconciler {
	return &Reconciler{
		forums:   forums,
		posts:    posts,
		replies:  replies,
		votes:    votes,
		interval: interval,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs RunOnce every interval until Stop. A non-positive interval
// disables the loop.
func (r *Reconciler) Start() {
	if r.interval <= 0 || !r.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-r.stopChan:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), r.interval)
				if err := r.RunOnce(ctx); err != nil {
					log.Printf("[Reconciler] recount finished with errors: %v", err)
				}
				cancel()
			}
		}
	}()
	log.Printf("[Reconciler] counter recount every %v", r.interval)
}

func (r *Reconciler) Stop() {
	r.stopOnce.Do(func() { close(r.stopChan) })
	if r.started.Load() {
		<-r.done
	}
}

// RunOnce recounts forum post counts, post reply and upvote counts, and reply
// upvote counts. It keeps going past individual failures and returns them
// joined.
func (r *Reconciler) RunOnce(ctx context.Context) error {
	var errs []error

	forums, err := r.forums.List(ctx)
	if err != nil {
		return fmt.Errorf("list forums: %w", err)
	}
	for _, f := range forums {
		n, err := r.posts.CountByForumID(ctx, f.ID)
		if err == nil {
			err = r.forums.SetPostCount(ctx, f.ID, n)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("forum %s: %w", f.ID, err))
		}
	}

	postIDs, err := r.posts.ListIDs(ctx)
	if err != nil {
		return errors.Join(append(errs, fmt.Errorf("list posts: %w", err))...)
	}
	for _, id := range postIDs {
		if err := r.recountPost(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("post %s: %w", id, err))
		}
	}

	replyIDs, err := r.replies.ListIDs(ctx)
	if err != nil {
		return errors.Join(append(errs, fmt.Errorf("list replies: %w", err))...)
	}
	for _, id := range replyIDs {
		n, err := r.votes.CountByTarget(ctx, id)
		if err == nil {
			err = r.replies.SetUpvotes(ctx, id, n)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("reply %s: %w", id, err))
		}
	}

	return errors.Join(errs...)
}

func (r *Reconciler) recountPost(ctx context.Context, id string) error {
	replies, err := r.replies.CountByPostID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.posts.SetCounter(ctx, id, repository.CounterReplies, replies); err != nil {
		return err
	}
	upvotes, err := r.votes.CountByTarget(ctx, id)
	if err != nil {
		return err
	}
	return r.posts.SetCounter(ctx, id, repository.CounterUpvotes, upvotes)
}

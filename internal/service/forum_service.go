package service

import (
	"context"
	"errors"

	"parenthub/internal/model"
	"parenthub/internal/rbac"
	"parenthub/internal/repository"
	"parenthub/internal/thread"
)

func (s *discussionService) ListForums(ctx context.Context) ([]*model.Forum, error) {
	forums, err := s.repos.Forums.ListActive(ctx)
	if err != nil {
		return nil, storeError("ListForums", "forums not found", err)
	}
	return forums, nil
}

// GetForum resolves a forum by id, falling back to its slug.
func (s *discussionService) GetForum(ctx context.Context, idOrSlug string) (*model.Forum, error) {
	const op = "GetForum"
	if validID(idOrSlug) {
		forum, err := s.repos.Forums.FindByID(ctx, idOrSlug)
		if err == nil {
			return forum, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, storeError(op, "forum not found", err)
		}
	}
	forum, err := s.repos.Forums.FindBySlug(ctx, idOrSlug)
	if err != nil {
		return nil, storeError(op, "forum not found", err)
	}
	return forum, nil
}

// ListForumPosts returns pinned posts first, then the most recent ones.
func (s *discussionService) ListForumPosts(ctx context.Context, forumID string, limit int) ([]*model.ForumPost, error) {
	const op = "ListForumPosts"
	if _, err := s.findForum(ctx, op, forumID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultPostLimit
	}
	if limit > MaxPostLimit {
		limit = MaxPostLimit
	}
	posts, err := s.repos.ForumPosts.FindByForumID(ctx, forumID, limit)
	if err != nil {
		return nil, storeError(op, "forum not found", err)
	}
	return posts, nil
}

func (s *discussionService) CreateForumPost(ctx context.Context, forumID, title, content string) (*model.ForumPost, error) {
	const op = "CreateForumPost"
	caller, err := s.caller(ctx, op)
	if err != nil {
		return nil, err
	}
	cleanTitle, cleanContent, verr := validateForumPost(op, title, content)
	if verr != nil {
		return nil, verr
	}
	forum, err := s.findForum(ctx, op, forumID)
	if err != nil {
		return nil, err
	}
	if !forum.IsActive {
		return nil, newError(KindValidationFailed, op, "forum is not accepting new posts")
	}

	now := s.timestamp()
	post := &model.ForumPost{
		ForumID:   forum.ID,
		AuthorID:  caller.ID,
		Title:     cleanTitle,
		Content:   cleanContent,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repos.ForumPosts.Create(ctx, post); err != nil {
		return nil, storeError(op, "forum not found", err)
	}
	s.counters.ForumPostCreated(ctx, forum.ID)

	s.publish(ctx, DiscussionEvent{
		Type:    EventForumPostCreated,
		Topic:   ForumBoardTopic(forum.ID),
		ActorID: caller.ID,
		Payload: post,
	})
	return post, nil
}

// ViewForumPost fetches a post and counts the view.
func (s *discussionService) ViewForumPost(ctx context.Context, postID string) (*model.ForumPost, error) {
	const op = "ViewForumPost"
	post, err := s.findPost(ctx, op, postID)
	if err != nil {
		return nil, err
	}
	if s.counters.PostViewed(ctx, post.ID) {
		post.ViewCount++
	}
	return post, nil
}

func (s *discussionService) ListReplyThread(ctx context.Context, forumPostID string) ([]*model.ReplyNode, error) {
	const op = "ListReplyThread"
	if _, err := s.findPost(ctx, op, forumPostID); err != nil {
		return nil, err
	}
	replies, err := s.repos.ForumReplies.FindByPostID(ctx, forumPostID)
	if err != nil {
		return nil, storeError(op, "forum post not found", err)
	}
	return replyNodes(thread.BuildForest(replies)), nil
}

func replyNodes(forest []*thread.Tree[*model.ForumReply]) []*model.ReplyNode {
	out := make([]*model.ReplyNode, 0, len(forest))
	for _, t := range forest {
		out = append(out, &model.ReplyNode{ForumReply: t.Value, Replies: replyNodes(t.Children)})
	}
	return out
}

// ReplyToForumPost adds a reply to an open post and bumps its reply counter
// and last activity time.
func (s *discussionService) ReplyToForumPost(ctx context.Context, forumPostID, content string, parentReplyID *string) (*model.ReplyNode, error) {
	const op = "ReplyToForumPost"
	caller, err := s.caller(ctx, op)
	if err != nil {
		return nil, err
	}
	text, verr := validateContent(op, content)
	if verr != nil {
		return nil, verr
	}
	post, err := s.findPost(ctx, op, forumPostID)
	if err != nil {
		return nil, err
	}
	if post.IsClosed {
		return nil, newError(KindForbidden, op, "this post is closed for replies")
	}

	recipient := post.AuthorID
	if parentReplyID != nil && *parentReplyID != "" {
		parent, err := s.findReply(ctx, op, *parentReplyID)
		if err != nil {
			return nil, err
		}
		if parent.ForumPostID != post.ID {
			return nil, newError(KindValidationFailed, op, "parent reply belongs to another post")
		}
		depth, err := depthOf(ctx, parent, s.repos.ForumReplies.FindByID, s.maxDepth)
		if err != nil {
			return nil, storeError(op, "parent reply not found", err)
		}
		if depth >= s.maxDepth {
			return nil, newError(KindValidationFailed, op, "maximum reply depth reached")
		}
		recipient = parent.AuthorID
	} else {
		parentReplyID = nil
	}

	now := s.timestamp()
	reply := &model.ForumReply{
		ForumPostID:   post.ID,
		AuthorID:      caller.ID,
		Content:       text,
		ParentReplyID: parentReplyID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repos.ForumReplies.Create(ctx, reply); err != nil {
		return nil, storeError(op, "forum post not found", err)
	}
	s.counters.ReplyCreated(ctx, post.ID, now)

	s.publish(ctx, DiscussionEvent{
		Type:        EventReplyCreated,
		Topic:       ForumPostTopic(post.ID),
		ActorID:     caller.ID,
		RecipientID: recipient,
		Payload:     reply,
	})
	return &model.ReplyNode{ForumReply: reply, Replies: []*model.ReplyNode{}}, nil
}

func (s *discussionService) EditReply(ctx context.Context, replyID, content string) (*model.ForumReply, error) {
	const op = "EditReply"
	caller, err := s.caller(ctx, op)
	if err != nil {
		return nil, err
	}
	text, verr := validateContent(op, content)
	if verr != nil {
		return nil, verr
	}
	reply, err := s.findReply(ctx, op, replyID)
	if err != nil {
		return nil, err
	}
	if !rbac.CanMutate(reply.AuthorID, caller.ID, caller.Role) {
		return nil, newError(KindForbidden, op, "only the author or a moderator can edit this reply")
	}

	reply.Content = text
	reply.UpdatedAt = s.timestamp()
	if err := s.repos.ForumReplies.Update(ctx, reply); err != nil {
		return nil, storeError(op, "reply not found", err)
	}

	s.publish(ctx, DiscussionEvent{
		Type:    EventReplyUpdated,
		Topic:   ForumPostTopic(reply.ForumPostID),
		ActorID: caller.ID,
		Payload: reply,
	})
	return reply, nil
}

func (s *discussionService) DeleteReply(ctx context.Context, replyID string) (*model.ForumReply, error) {
	const op = "DeleteReply"
	caller, err := s.caller(ctx, op)
	if err != nil {
		return nil, err
	}
	reply, err := s.findReply(ctx, op, replyID)
	if err != nil {
		return nil, err
	}
	if !rbac.CanMutate(reply.AuthorID, caller.ID, caller.Role) {
		return nil, newError(KindForbidden, op, "only the author or a moderator can delete this reply")
	}

	if err := s.repos.ForumReplies.Delete(ctx, reply.ID); err != nil {
		return nil, storeError(op, "reply not found", err)
	}
	s.counters.ReplyDeleted(ctx, reply.ForumPostID)

	s.publish(ctx, DiscussionEvent{
		Type:    EventReplyDeleted,
		Topic:   ForumPostTopic(reply.ForumPostID),
		ActorID: caller.ID,
		Payload: map[string]interface{}{"id": reply.ID, "forum_post_id": reply.ForumPostID},
	})
	return reply, nil
}

// Upvote records the caller's vote on a forum post or reply. It reports
// false when the caller had already voted.
func (s *discussionService) Upvote(ctx context.Context, targetID string) (bool, error) {
	const op = "Upvote"
	caller, err := s.caller(ctx, op)
	if err != nil {
		return false, err
	}
	target, topicPostID, authorID, err := s.resolveVoteTarget(ctx, op, targetID)
	if err != nil {
		return false, err
	}

	applied, err := s.votes.Upvote(ctx, targetID, caller.ID)
	if err != nil {
		return false, storeError(op, "vote target not found", err)
	}
	if !applied {
		return false, nil
	}
	s.counters.VoteCast(ctx, target, targetID)

	s.publish(ctx, DiscussionEvent{
		Type:        EventVoteCast,
		Topic:       ForumPostTopic(topicPostID),
		ActorID:     caller.ID,
		RecipientID: authorID,
		Payload:     map[string]interface{}{"target_id": targetID},
	})
	return true, nil
}

func (s *discussionService) HasVoted(ctx context.Context, targetID string) (bool, error) {
	const op = "HasVoted"
	caller, err := s.caller(ctx, op)
	if err != nil {
		return false, err
	}
	if _, _, _, err := s.resolveVoteTarget(ctx, op, targetID); err != nil {
		return false, err
	}
	voted, err := s.votes.HasVoted(ctx, targetID, caller.ID)
	if err != nil {
		return false, storeError(op, "vote target not found", err)
	}
	return voted, nil
}

// resolveVoteTarget looks the id up as a forum post first, then as a reply.
func (s *discussionService) resolveVoteTarget(ctx context.Context, op, targetID string) (VoteTarget, string, string, error) {
	if !validID(targetID) {
		return 0, "", "", newError(KindNotFound, op, "vote target not found")
	}
	post, err := s.repos.ForumPosts.FindByID(ctx, targetID)
	if err == nil {
		return VoteTargetPost, post.ID, post.AuthorID, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return 0, "", "", storeError(op, "vote target not found", err)
	}
	reply, err := s.repos.ForumReplies.FindByID(ctx, targetID)
	if err != nil {
		return 0, "", "", storeError(op, "vote target not found", err)
	}
	return VoteTargetReply, reply.ForumPostID, reply.AuthorID, nil
}

// CloseForumPost is reserved to the post author; elevated roles get no
// override here.
func (s *discussionService) CloseForumPost(ctx context.Context, postID string) (*model.ForumPost, error) {
	const op = "CloseForumPost"
	caller, err := s.caller(ctx, op)
	if err != nil {
		return nil, err
	}
	post, err := s.findPost(ctx, op, postID)
	if err != nil {
		return nil, err
	}
	if !rbac.CanClose(post.AuthorID, caller.ID) {
		return nil, newError(KindForbidden, op, "only the author can close this post")
	}
	return s.updatePostFlags(ctx, op, caller.ID, post, func(p *model.ForumPost) { p.IsClosed = true })
}

func (s *discussionService) PinPost(ctx context.Context, postID string, pinned bool) (*model.ForumPost, error) {
	return s.setPostFlag(ctx, "PinPost", postID, func(p *model.ForumPost) { p.IsPinned = pinned })
}

func (s *discussionService) MarkSolved(ctx context.Context, postID string, solved bool) (*model.ForumPost, error) {
	return s.setPostFlag(ctx, "MarkSolved", postID, func(p *model.ForumPost) { p.IsSolved = solved })
}

func (s *discussionService) setPostFlag(ctx context.Context, op, postID string, apply func(*model.ForumPost)) (*model.ForumPost, error) {
	caller, err := s.caller(ctx, op)
	if err != nil {
		return nil, err
	}
	post, err := s.findPost(ctx, op, postID)
	if err != nil {
		return nil, err
	}
	return s.updatePostFlags(ctx, op, caller.ID, post, apply)
}

func (s *discussionService) updatePostFlags(ctx context.Context, op, actorID string, post *model.ForumPost, apply func(*model.ForumPost)) (*model.ForumPost, error) {
	apply(post)
	post.UpdatedAt = s.timestamp()
	if err := s.repos.ForumPosts.Update(ctx, post); err != nil {
		return nil, storeError(op, "forum post not found", err)
	}
	s.publish(ctx, DiscussionEvent{
		Type:    EventForumPostUpdated,
		Topic:   ForumPostTopic(post.ID),
		ActorID: actorID,
		Payload: post,
	})
	return post, nil
}

func (s *discussionService) MarkReplyHelpful(ctx context.Context, replyID string, helpful bool) (*model.ForumReply, error) {
	const op = "MarkReplyHelpful"
	caller, err := s.caller(ctx, op)
	if err != nil {
		return nil, err
	}
	reply, err := s.findReply(ctx, op, replyID)
	if err != nil {
		return nil, err
	}
	reply.IsHelpful = helpful
	reply.UpdatedAt = s.timestamp()
	if err := s.repos.ForumReplies.Update(ctx, reply); err != nil {
		return nil, storeError(op, "reply not found", err)
	}
	s.publish(ctx, DiscussionEvent{
		Type:        EventReplyUpdated,
		Topic:       ForumPostTopic(reply.ForumPostID),
		ActorID:     caller.ID,
		RecipientID: reply.AuthorID,
		Payload:     reply,
	})
	return reply, nil
}

func (s *discussionService) findForum(ctx context.Context, op, id string) (*model.Forum, error) {
	if !validID(id) {
		return nil, newError(KindNotFound, op, "forum not found")
	}
	forum, err := s.repos.Forums.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(op, "forum not found", err)
	}
	return forum, nil
}

func (s *discussionService) findPost(ctx context.Context, op, id string) (*model.ForumPost, error) {
	if !validID(id) {
		return nil, newError(KindNotFound, op, "forum post not found")
	}
	post, err := s.repos.ForumPosts.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(op, "forum post not found", err)
	}
	return post, nil
}

func (s *discussionService) findReply(ctx context.Context, op, id string) (*model.ForumReply, error) {
	if !validID(id) {
		return nil, newError(KindNotFound, op, "reply not found")
	}
	reply, err := s.repos.ForumReplies.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(op, "reply not found", err)
	}
	return reply, nil
}

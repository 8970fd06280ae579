package service

import (
	"context"
	"errors"
	"log"

	"parenthub/internal/model"
	"parenthub/internal/rbac"
	"parenthub/internal/repository"
	"parenthub/internal/thread"

	"github.com/google/uuid"
)

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// ListCommentThread returns the approved comments of an article as a forest,
// each node carrying its reactions.
func (s *discussionService) ListCommentThread(ctx context.Context, postID string) ([]*model.CommentNode, error) {
	const op = "ListCommentThread"
	if err := s.requireArticle(ctx, op, postID); err != nil {
		return nil, err
	}

	comments, err := s.repos.Comments.FindByPostID(ctx, postID, true)
	if err != nil {
		return nil, storeError(op, "comments not found", err)
	}

	ids := make([]string, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.ID)
	}
	reactions, err := s.repos.Reactions.FindByCommentIDs(ctx, ids)
	if err != nil {
		return nil, storeError(op, "reactions not found", err)
	}
	byComment := make(map[string][]*model.CommentReaction, len(comments))
	for _, r := range reactions {
		byComment[r.CommentID] = append(byComment[r.CommentID], r)
	}

	return commentNodes(thread.BuildForest(comments), byComment), nil
}

func commentNodes(forest []*thread.Tree[*model.Comment], reactions map[string][]*model.CommentReaction) []*model.CommentNode {
	out := make([]*model.CommentNode, 0, len(forest))
	for _, t := range forest {
		node := model.NewCommentNode(t.Value, reactions[t.Value.ID])
		node.Replies = commentNodes(t.Children, reactions)
		out = append(out, node)
	}
	return out
}

// PostComment adds a root comment, or a reply when parentID is set. The
// parent must be on the same article and above the depth cap.
func (s *discussionService) PostComment(ctx context.Context, postID, content string, parentID *string) (*model.CommentNode, error) {
	const op = "PostComment"
	caller, err := s.caller(ctx, op)
	if err != nil {
		return nil, err
	}
	text, verr := validateContent(op, content)
	if verr != nil {
		return nil, verr
	}
	if err := s.requireArticle(ctx, op, postID); err != nil {
		return nil, err
	}

	var parent *model.Comment
	if parentID != nil && *parentID != "" {
		if parent, err = s.findComment(ctx, op, *parentID); err != nil {
			return nil, err
		}
		if parent.PostID != postID {
			return nil, newError(KindValidationFailed, op, "parent comment belongs to another article")
		}
		depth, err := depthOf(ctx, parent, s.repos.Comments.FindByID, s.maxDepth)
		if err != nil {
			return nil, storeError(op, "parent comment not found", err)
		}
		if depth >= s.maxDepth {
			return nil, newError(KindValidationFailed, op, "maximum reply depth reached")
		}
	} else {
		parentID = nil
	}

	comment := &model.Comment{
		PostID:    postID,
		AuthorID:  caller.ID,
		ParentID:  parentID,
		Content:   text,
		Approved:  s.autoApprove,
		CreatedAt: s.timestamp(),
	}
	if err := s.repos.Comments.Create(ctx, comment); err != nil {
		return nil, storeError(op, "article not found", err)
	}

	event := DiscussionEvent{
		Type:    EventCommentCreated,
		Topic:   CommentTopic(postID),
		ActorID: caller.ID,
		Payload: comment,
	}
	if parent != nil {
		event.RecipientID = parent.AuthorID
	}
	if comment.Approved {
		s.publish(ctx, event)
	}

	return model.NewCommentNode(comment, nil), nil
}

// EditComment replaces the text of a comment. Clients merge the returned
// record into their cached node and keep its loaded replies.
func (s *discussionService) EditComment(ctx context.Context, commentID, content string) (*model.Comment, error) {
	const op = "EditComment"
	caller, err := s.caller(ctx, op)
	if err != nil {
		return nil, err
	}
	text, verr := validateContent(op, content)
	if verr != nil {
		return nil, verr
	}
	comment, err := s.findComment(ctx, op, commentID)
	if err != nil {
		return nil, err
	}
	if !rbac.CanMutate(comment.AuthorID, caller.ID, caller.Role) {
		return nil, newError(KindForbidden, op, "only the author or a moderator can edit this comment")
	}

	now := s.timestamp()
	comment.Content = text
	comment.UpdatedAt = &now
	if err := s.repos.Comments.Update(ctx, comment); err != nil {
		return nil, storeError(op, "comment not found", err)
	}

	s.publish(ctx, DiscussionEvent{
		Type:    EventCommentUpdated,
		Topic:   CommentTopic(comment.PostID),
		ActorID: caller.ID,
		Payload: comment,
	})
	return comment, nil
}

// DeleteComment removes one comment and returns it. Its replies stay in the
// store and surface as roots on the next full listing; clients holding a
// cached tree drop the whole subtree.
func (s *discussionService) DeleteComment(ctx context.Context, commentID string) (*model.Comment, error) {
	const op = "DeleteComment"
	caller, err := s.caller(ctx, op)
	if err != nil {
		return nil, err
	}
	comment, err := s.findComment(ctx, op, commentID)
	if err != nil {
		return nil, err
	}
	if !rbac.CanMutate(comment.AuthorID, caller.ID, caller.Role) {
		return nil, newError(KindForbidden, op, "only the author or a moderator can delete this comment")
	}

	if err := s.repos.Comments.Delete(ctx, comment.ID); err != nil {
		return nil, storeError(op, "comment not found", err)
	}
	s.dropReactions(ctx, comment.ID)

	s.publish(ctx, DiscussionEvent{
		Type:    EventCommentDeleted,
		Topic:   CommentTopic(comment.PostID),
		ActorID: caller.ID,
		Payload: map[string]interface{}{"id": comment.ID, "post_id": comment.PostID},
	})
	return comment, nil
}

func (s *discussionService) dropReactions(ctx context.Context, commentID string) {
	reactions, err := s.repos.Reactions.FindByComment(ctx, commentID)
	if err != nil {
		log.Printf("[DiscussionService] failed to load reactions of deleted comment %s: %v", commentID, err)
		return
	}
	for _, r := range reactions {
		if err := s.repos.Reactions.Delete(ctx, r.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			log.Printf("[DiscussionService] failed to delete reaction %s: %v", r.ID, err)
		}
	}
}

// ToggleReaction removes the caller's reaction when it already has this type
// and otherwise makes it the caller's only reaction on the comment.
func (s *discussionService) ToggleReaction(ctx context.Context, commentID, reactionType string) (*model.ReactionState, error) {
	const op = "ToggleReaction"
	caller, err := s.caller(ctx, op)
	if err != nil {
		return nil, err
	}
	rt, verr := validateReaction(op, reactionType)
	if verr != nil {
		return nil, verr
	}
	comment, err := s.findComment(ctx, op, commentID)
	if err != nil {
		return nil, err
	}

	active, err := s.reactions.Active(ctx, comment.ID, caller.ID)
	if err != nil {
		return nil, storeError(op, "comment not found", err)
	}
	if active != nil && active.ReactionType == rt {
		err = s.reactions.RemoveReaction(ctx, comment.ID, caller.ID, rt)
	} else {
		_, err = s.reactions.AddReaction(ctx, comment.ID, caller.ID, rt)
	}
	if err != nil {
		return nil, storeError(op, "comment not found", err)
	}

	state, err := s.reactionState(ctx, comment.ID, caller.ID)
	if err != nil {
		return nil, storeError(op, "comment not found", err)
	}

	s.publish(ctx, DiscussionEvent{
		Type:        EventReactionChanged,
		Topic:       CommentTopic(comment.PostID),
		ActorID:     caller.ID,
		RecipientID: comment.AuthorID,
		Payload:     state,
	})
	return state, nil
}

func (s *discussionService) reactionState(ctx context.Context, commentID, userID string) (*model.ReactionState, error) {
	reactions, err := s.repos.Reactions.FindByComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	state := &model.ReactionState{
		CommentID: commentID,
		Reactions: reactions,
		Counts:    make(map[string]int),
	}
	for _, r := range reactions {
		state.Counts[r.ReactionType]++
		if r.UserID == userID {
			t := r.ReactionType
			state.Active = &t
		}
	}
	return state, nil
}

func (s *discussionService) requireArticle(ctx context.Context, op, postID string) error {
	if !validID(postID) {
		return newError(KindNotFound, op, "article not found")
	}
	if _, err := s.repos.Articles.FindByID(ctx, postID); err != nil {
		return storeError(op, "article not found", err)
	}
	return nil
}

func (s *discussionService) findComment(ctx context.Context, op, id string) (*model.Comment, error) {
	if !validID(id) {
		return nil, newError(KindNotFound, op, "comment not found")
	}
	comment, err := s.repos.Comments.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(op, "comment not found", err)
	}
	return comment, nil
}

package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"parenthub/internal/model"
	"parenthub/internal/rbac"
	"parenthub/internal/thread"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) post(t *testing.T, forumID, author string) *model.ForumPost {
	t.Helper()
	p, err := f.svc.CreateForumPost(member(author), forumID, "Night weaning", "Any tips for a 14 month old?")
	require.NoError(t, err)
	return p
}

func (f *fixture) reload(t *testing.T, postID string) *model.ForumPost {
	t.Helper()
	p, err := f.store.ForumPosts().FindByID(context.Background(), postID)
	require.NoError(t, err)
	return p
}

func TestGetForum_ByIDOrSlug(t *testing.T) {
	f := newFixture(t)
	forum := f.forum(t, "sleep")

	byID, err := f.svc.GetForum(context.Background(), forum.ID)
	require.NoError(t, err)
	bySlug, err := f.svc.GetForum(context.Background(), "sleep")
	require.NoError(t, err)
	assert.Equal(t, byID.ID, bySlug.ID)

	_, err = f.svc.GetForum(context.Background(), "feeding")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListForums_ActiveOnly(t *testing.T) {
	f := newFixture(t)
	f.forum(t, "sleep")
	require.NoError(t, f.store.Forums().Create(context.Background(), &model.Forum{Slug: "archive", Name: "Archive"}))

	forums, err := f.svc.ListForums(context.Background())
	require.NoError(t, err)
	require.Len(t, forums, 1)
	assert.Equal(t, "sleep", forums[0].Slug)
}

func TestCreateForumPost(t *testing.T) {
	f := newFixture(t)
	forum := f.forum(t, "sleep")

	post := f.post(t, forum.ID, "a")
	assert.Equal(t, "a", post.AuthorID)
	assert.False(t, post.IsClosed)

	stored, err := f.store.Forums().FindByID(context.Background(), forum.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stored.PostCount)
	assert.Equal(t, []string{EventForumPostCreated}, f.events.types())
}

func TestCreateForumPost_Validation(t *testing.T) {
	f := newFixture(t)
	forum := f.forum(t, "sleep")
	inactive := &model.Forum{Slug: "archive", Name: "Archive"}
	require.NoError(t, f.store.Forums().Create(context.Background(), inactive))

	_, err := f.svc.CreateForumPost(context.Background(), forum.ID, "t", "c")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = f.svc.CreateForumPost(member("a"), forum.ID, "", "content")
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = f.svc.CreateForumPost(member("a"), inactive.ID, "title", "content")
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = f.svc.CreateForumPost(member("a"), "6f1c2d7e-0000-4000-8000-000000000000", "title", "content")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListForumPosts_PinnedFirstThenNewest(t *testing.T) {
	f := newFixture(t)
	forum := f.forum(t, "sleep")
	oldest := f.post(t, forum.ID, "a")
	middle := f.post(t, forum.ID, "b")
	newest := f.post(t, forum.ID, "c")

	_, err := f.svc.PinPost(member("mod"), oldest.ID, true)
	require.NoError(t, err)

	posts, err := f.svc.ListForumPosts(context.Background(), forum.ID, 0)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, []string{oldest.ID, newest.ID, middle.ID}, []string{posts[0].ID, posts[1].ID, posts[2].ID})

	limited, err := f.svc.ListForumPosts(context.Background(), forum.ID, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestViewForumPost_CountsViews(t *testing.T) {
	f := newFixture(t)
	forum := f.forum(t, "sleep")
	post := f.post(t, forum.ID, "a")

	viewed, err := f.svc.ViewForumPost(context.Background(), post.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, viewed.ViewCount)

	viewed, err = f.svc.ViewForumPost(context.Background(), post.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, viewed.ViewCount)
	assert.EqualValues(t, 2, f.reload(t, post.ID).ViewCount)

	_, err = f.svc.ViewForumPost(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReplyThread(t *testing.T) {
	f := newFixture(t)
	forum := f.forum(t, "sleep")
	post := f.post(t, forum.ID, "a")

	first, err := f.svc.ReplyToForumPost(member("b"), post.ID, "Try a dream feed", nil)
	require.NoError(t, err)
	_, err = f.svc.ReplyToForumPost(member("a"), post.ID, "Thanks, will do", strPtr(first.ID))
	require.NoError(t, err)
	_, err = f.svc.ReplyToForumPost(member("c"), post.ID, "Same here", nil)
	require.NoError(t, err)

	forest, err := f.svc.ListReplyThread(context.Background(), post.ID)
	require.NoError(t, err)
	require.Len(t, forest, 2)
	assert.Equal(t, first.ID, forest[0].ID)
	require.Len(t, forest[0].Replies, 1)
	assert.Equal(t, "Thanks, will do", forest[0].Replies[0].Content)

	stored := f.reload(t, post.ID)
	assert.EqualValues(t, 3, stored.ReplyCount)
	require.NotNil(t, stored.LastReplyAt)
}

func TestReplyToForumPost_NotifiesParentAuthor(t *testing.T) {
	f := newFixture(t)
	forum := f.forum(t, "sleep")
	post := f.post(t, forum.ID, "a")

	first, err := f.svc.ReplyToForumPost(member("b"), post.ID, "root reply", nil)
	require.NoError(t, err)
	_, err = f.svc.ReplyToForumPost(member("c"), post.ID, "nested", strPtr(first.ID))
	require.NoError(t, err)

	events := f.events.events
	require.Len(t, events, 3)
	assert.Equal(t, "a", events[1].RecipientID)
	assert.Equal(t, "b", events[2].RecipientID)
	assert.Equal(t, ForumPostTopic(post.ID), events[2].Topic)
}

func TestReplyToForumPost_DepthCap(t *testing.T) {
	f := newFixture(t)
	forum := f.forum(t, "sleep")
	post := f.post(t, forum.ID, "a")
	ctx := member("b")

	parent, err := f.svc.ReplyToForumPost(ctx, post.ID, "depth 0", nil)
	require.NoError(t, err)
	for depth := 1; depth <= DefaultMaxDepth; depth++ {
		parent, err = f.svc.ReplyToForumPost(ctx, post.ID, "deeper", strPtr(parent.ID))
		require.NoError(t, err)
	}
	_, err = f.svc.ReplyToForumPost(ctx, post.ID, "too deep", strPtr(parent.ID))
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestCloseForumPost(t *testing.T) {
	f := newFixture(t)
	forum := f.forum(t, "sleep")
	post := f.post(t, forum.ID, "owner")

	_, err := f.svc.CloseForumPost(as("admin", rbac.RoleAdmin), post.ID)
	assert.ErrorIs(t, err, ErrForbidden, "closing is reserved to the author")

	closed, err := f.svc.CloseForumPost(member("owner"), post.ID)
	require.NoError(t, err)
	assert.True(t, closed.IsClosed)

	_, err = f.svc.ReplyToForumPost(member("b"), post.ID, "late reply", nil)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.EqualValues(t, 0, f.reload(t, post.ID).ReplyCount)
}

func TestPostFlags_KeepCounters(t *testing.T) {
	f := newFixture(t)
	forum := f.forum(t, "sleep")
	post := f.post(t, forum.ID, "a")
	reply, err := f.svc.ReplyToForumPost(member("b"), post.ID, "answer", nil)
	require.NoError(t, err)

	solved, err := f.svc.MarkSolved(member("mod"), post.ID, true)
	require.NoError(t, err)
	assert.True(t, solved.IsSolved)

	helpful, err := f.svc.MarkReplyHelpful(member("mod"), reply.ID, true)
	require.NoError(t, err)
	assert.True(t, helpful.IsHelpful)

	stored := f.reload(t, post.ID)
	assert.True(t, stored.IsSolved)
	assert.EqualValues(t, 1, stored.ReplyCount)

	_, err = f.svc.PinPost(context.Background(), post.ID, true)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestReplyPermissions(t *testing.T) {
	f := newFixture(t)
	forum := f.forum(t, "sleep")
	post := f.post(t, forum.ID, "a")
	reply, err := f.svc.ReplyToForumPost(member("owner"), post.ID, "mine", nil)
	require.NoError(t, err)

	_, err = f.svc.EditReply(member("stranger"), reply.ID, "edited")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.DeleteReply(member("stranger"), reply.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	edited, err := f.svc.EditReply(member("owner"), reply.ID, "mine, edited")
	require.NoError(t, err)
	assert.Equal(t, "mine, edited", edited.Content)

	_, err = f.svc.DeleteReply(as("admin", rbac.RoleAdmin), reply.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, f.reload(t, post.ID).ReplyCount)
}

func TestDeleteReply_CascadesInClientCache(t *testing.T) {
	f := newFixture(t)
	forum := f.forum(t, "sleep")
	post := f.post(t, forum.ID, "a")
	ctx := member("b")

	root, err := f.svc.ReplyToForumPost(ctx, post.ID, "root", nil)
	require.NoError(t, err)
	child, err := f.svc.ReplyToForumPost(ctx, post.ID, "child", strPtr(root.ID))
	require.NoError(t, err)
	_, err = f.svc.ReplyToForumPost(ctx, post.ID, "grandchild", strPtr(child.ID))
	require.NoError(t, err)

	replies, err := f.store.ForumReplies().FindByPostID(context.Background(), post.ID)
	require.NoError(t, err)
	cache := thread.NewCache[*model.ForumReply]()
	cache.Load(replies)

	deleted, err := f.svc.DeleteReply(ctx, root.ID)
	require.NoError(t, err)
	assert.Len(t, cache.Remove(deleted.ID), 3)
	assert.Equal(t, 0, cache.Len())
}

func TestUpvote_OncePerUser(t *testing.T) {
	f := newFixture(t)
	forum := f.forum(t, "sleep")
	post := f.post(t, forum.ID, "a")

	voted, err := f.svc.HasVoted(member("b"), post.ID)
	require.NoError(t, err)
	assert.False(t, voted)

	applied, err := f.svc.Upvote(member("b"), post.ID)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = f.svc.Upvote(member("b"), post.ID)
	require.NoError(t, err)
	assert.False(t, applied)

	voted, err = f.svc.HasVoted(member("b"), post.ID)
	require.NoError(t, err)
	assert.True(t, voted)
	assert.EqualValues(t, 1, f.reload(t, post.ID).UpvoteCount)
}

func TestHasVoted_UnknownTarget(t *testing.T) {
	f := newFixture(t)

	f.store.SetFault(func(op string) error {
		if strings.HasPrefix(op, "forum_votes.") {
			return errors.New("votes should not be queried")
		}
		return nil
	})

	_, err := f.svc.HasVoted(member("a"), "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.HasVoted(member("a"), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpvote_Reply(t *testing.T) {
	f := newFixture(t)
	forum := f.forum(t, "sleep")
	post := f.post(t, forum.ID, "a")
	reply, err := f.svc.ReplyToForumPost(member("b"), post.ID, "answer", nil)
	require.NoError(t, err)

	for _, user := range []string{"a", "c", "a"} {
		_, err := f.svc.Upvote(member(user), reply.ID)
		require.NoError(t, err)
	}

	stored, err := f.store.ForumReplies().FindByID(context.Background(), reply.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stored.UpvoteCount)
	assert.EqualValues(t, 0, f.reload(t, post.ID).UpvoteCount)

	_, err = f.svc.Upvote(member("a"), "6f1c2d7e-0000-4000-8000-000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.Upvote(context.Background(), reply.ID)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestCounterFailureDoesNotFailReply(t *testing.T) {
	f := newFixture(t)
	forum := f.forum(t, "sleep")
	post := f.post(t, forum.ID, "a")
	f.store.SetFault(func(op string) error {
		if op == "forum_posts.increment" {
			return errors.New("deadlock detected")
		}
		return nil
	})

	_, err := f.svc.ReplyToForumPost(member("b"), post.ID, "still saved", nil)
	require.NoError(t, err)

	f.store.SetFault(nil)
	assert.EqualValues(t, 0, f.reload(t, post.ID).ReplyCount)

	r := NewReconciler(f.store.Forums(), f.store.ForumPosts(), f.store.ForumReplies(), f.store.Votes(), 0)
	require.NoError(t, r.RunOnce(context.Background()))
	assert.EqualValues(t, 1, f.reload(t, post.ID).ReplyCount)
}

func TestForumStoreUnavailable(t *testing.T) {
	f := newFixture(t)
	forum := f.forum(t, "sleep")
	f.store.SetFault(func(op string) error {
		if op == "forum_posts.create" {
			return errors.New("connection reset by peer")
		}
		return nil
	})

	_, err := f.svc.CreateForumPost(member("a"), forum.ID, "title", "content")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Empty(t, f.events.types())
}

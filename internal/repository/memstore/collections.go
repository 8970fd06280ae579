package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"parenthub/internal/model"
	"parenthub/internal/repository"
)

type articleStore struct{ s *Store }

func (r *articleStore) Create(_ context.Context, article *model.Article) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("articles.create"); err != nil {
		return err
	}
	for _, a := range r.s.articles {
		if a.Slug == article.Slug {
			return fmt.Errorf("%w: article slug %q", repository.ErrDuplicate, article.Slug)
		}
	}
	r.s.register(&article.ID, &article.CreatedAt)
	stored := *article
	r.s.articles[article.ID] = &stored
	return nil
}

func (r *articleStore) FindByID(_ context.Context, id string) (*model.Article, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.check("articles.find"); err != nil {
		return nil, err
	}
	a, ok := r.s.articles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *a
	return &out, nil
}

type commentStore struct{ s *Store }

func (r *commentStore) Create(_ context.Context, comment *model.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("comments.create"); err != nil {
		return err
	}
	r.s.register(&comment.ID, &comment.CreatedAt)
	r.s.comments[comment.ID] = cloneComment(comment)
	return nil
}

func (r *commentStore) FindByID(_ context.Context, id string) (*model.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.check("comments.find"); err != nil {
		return nil, err
	}
	c, ok := r.s.comments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneComment(c), nil
}

func (r *commentStore) FindByPostID(_ context.Context, postID string, approvedOnly bool) ([]*model.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.check("comments.list"); err != nil {
		return nil, err
	}
	out := []*model.Comment{}
	for _, c := range r.s.comments {
		if c.PostID != postID || (approvedOnly && !c.Approved) {
			continue
		}
		out = append(out, cloneComment(c))
	}
	r.s.sortComments(out)
	return out, nil
}

func (r *commentStore) Update(_ context.Context, comment *model.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("comments.update"); err != nil {
		return err
	}
	stored, ok := r.s.comments[comment.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Content = comment.Content
	stored.Approved = comment.Approved
	stored.UpdatedAt = copyTime(comment.UpdatedAt)
	return nil
}

func (r *commentStore) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("comments.delete"); err != nil {
		return err
	}
	if _, ok := r.s.comments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.comments, id)
	return nil
}

func (r *commentStore) CountByPostID(_ context.Context, postID string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.check("comments.count"); err != nil {
		return 0, err
	}
	var n int64
	for _, c := range r.s.comments {
		if c.PostID == postID {
			n++
		}
	}
	return n, nil
}

type reactionStore struct{ s *Store }

func (r *reactionStore) Create(_ context.Context, reaction *model.CommentReaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("comment_reactions.create"); err != nil {
		return err
	}
	for _, existing := range r.s.reactions {
		if existing.CommentID == reaction.CommentID &&
			existing.UserID == reaction.UserID &&
			existing.ReactionType == reaction.ReactionType {
			return fmt.Errorf("%w: reaction %s/%s/%s", repository.ErrDuplicate,
				reaction.CommentID, reaction.UserID, reaction.ReactionType)
		}
	}
	r.s.register(&reaction.ID, &reaction.CreatedAt)
	stored := *reaction
	r.s.reactions[reaction.ID] = &stored
	return nil
}

func (r *reactionStore) FindByCommentAndUser(_ context.Context, commentID, userID string) ([]*model.CommentReaction, error) {
	return r.filter("comment_reactions.find", func(x *model.CommentReaction) bool {
		return x.CommentID == commentID && x.UserID == userID
	})
}

func (r *reactionStore) FindByComment(_ context.Context, commentID string) ([]*model.CommentReaction, error) {
	return r.filter("comment_reactions.list", func(x *model.CommentReaction) bool {
		return x.CommentID == commentID
	})
}

func (r *reactionStore) FindByCommentIDs(_ context.Context, commentIDs []string) ([]*model.CommentReaction, error) {
	wanted := make(map[string]struct{}, len(commentIDs))
	for _, id := range commentIDs {
		wanted[id] = struct{}{}
	}
	return r.filter("comment_reactions.list", func(x *model.CommentReaction) bool {
		_, ok := wanted[x.CommentID]
		return ok
	})
}

func (r *reactionStore) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("comment_reactions.delete"); err != nil {
		return err
	}
	if _, ok := r.s.reactions[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.reactions, id)
	return nil
}

func (r *reactionStore) filter(op string, keep func(*model.CommentReaction) bool) ([]*model.CommentReaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.check(op); err != nil {
		return nil, err
	}
	out := []*model.CommentReaction{}
	for _, x := range r.s.reactions {
		if keep(x) {
			cp := *x
			out = append(out, &cp)
		}
	}
	r.s.sortReactions(out)
	return out, nil
}

type forumStore struct{ s *Store }

func (r *forumStore) Create(_ context.Context, forum *model.Forum) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("forums.create"); err != nil {
		return err
	}
	for _, f := range r.s.forums {
		if f.Slug == forum.Slug {
			return fmt.Errorf("%w: forum slug %q", repository.ErrDuplicate, forum.Slug)
		}
	}
	r.s.register(&forum.ID, &forum.CreatedAt)
	stored := *forum
	r.s.forums[forum.ID] = &stored
	return nil
}

func (r *forumStore) FindByID(_ context.Context, id string) (*model.Forum, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.check("forums.find"); err != nil {
		return nil, err
	}
	f, ok := r.s.forums[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *f
	return &out, nil
}

func (r *forumStore) FindBySlug(_ context.Context, slug string) (*model.Forum, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.check("forums.find"); err != nil {
		return nil, err
	}
	for _, f := range r.s.forums {
		if f.Slug == slug {
			out := *f
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *forumStore) ListActive(ctx context.Context) ([]*model.Forum, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Forum, 0, len(all))
	for _, f := range all {
		if f.IsActive {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *forumStore) List(_ context.Context) ([]*model.Forum, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.check("forums.list"); err != nil {
		return nil, err
	}
	out := make([]*model.Forum, 0, len(r.s.forums))
	for _, f := range r.s.forums {
		cp := *f
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *forumStore) IncrementPostCount(_ context.Context, id string, delta int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("forums.increment"); err != nil {
		return err
	}
	f, ok := r.s.forums[id]
	if !ok {
		return repository.ErrNotFound
	}
	f.PostCount = floorAdd(f.PostCount, delta)
	return nil
}

func (r *forumStore) SetPostCount(_ context.Context, id string, count int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("forums.set_counter"); err != nil {
		return err
	}
	if f, ok := r.s.forums[id]; ok {
		f.PostCount = count
	}
	return nil
}

type forumPostStore struct{ s *Store }

func (r *forumPostStore) Create(_ context.Context, post *model.ForumPost) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("forum_posts.create"); err != nil {
		return err
	}
	r.s.register(&post.ID, &post.CreatedAt)
	if post.UpdatedAt.IsZero() {
		post.UpdatedAt = post.CreatedAt
	}
	r.s.posts[post.ID] = clonePost(post)
	return nil
}

func (r *forumPostStore) FindByID(_ context.Context, id string) (*model.ForumPost, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.check("forum_posts.find"); err != nil {
		return nil, err
	}
	p, ok := r.s.posts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clonePost(p), nil
}

func (r *forumPostStore) Update(_ context.Context, post *model.ForumPost) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("forum_posts.update"); err != nil {
		return err
	}
	stored, ok := r.s.posts[post.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Title = post.Title
	stored.Content = post.Content
	stored.IsPinned = post.IsPinned
	stored.IsSolved = post.IsSolved
	stored.IsClosed = post.IsClosed
	stored.UpdatedAt = post.UpdatedAt
	return nil
}

func (r *forumPostStore) FindByForumID(_ context.Context, forumID string, limit int) ([]*model.ForumPost, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.check("forum_posts.list"); err != nil {
		return nil, err
	}
	out := []*model.ForumPost{}
	for _, p := range r.s.posts {
		if p.ForumID == forumID {
			out = append(out, clonePost(p))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsPinned != out[j].IsPinned {
			return out[i].IsPinned
		}
		// most recent first; later insertion wins a tie
		return r.s.before(out[j].ID, out[j].CreatedAt, out[i].ID, out[i].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *forumPostStore) CountByForumID(_ context.Context, forumID string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.check("forum_posts.count"); err != nil {
		return 0, err
	}
	var n int64
	for _, p := range r.s.posts {
		if p.ForumID == forumID {
			n++
		}
	}
	return n, nil
}

func (r *forumPostStore) ListIDs(_ context.Context) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.check("forum_posts.list"); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(r.s.posts))
	for id := range r.s.posts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *forumPostStore) IncrementCounter(_ context.Context, id string, field repository.CounterField, delta int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("forum_posts.increment"); err != nil {
		return err
	}
	p, ok := r.s.posts[id]
	if !ok {
		return repository.ErrNotFound
	}
	counter, err := postCounter(p, field)
	if err != nil {
		return err
	}
	*counter = floorAdd(*counter, delta)
	return nil
}

func (r *forumPostStore) TouchLastReply(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("forum_posts.touch"); err != nil {
		return err
	}
	if p, ok := r.s.posts[id]; ok {
		p.LastReplyAt = &at
	}
	return nil
}

func (r *forumPostStore) SetCounter(_ context.Context, id string, field repository.CounterField, value int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("forum_posts.set_counter"); err != nil {
		return err
	}
	p, ok := r.s.posts[id]
	if !ok {
		return nil
	}
	counter, err := postCounter(p, field)
	if err != nil {
		return err
	}
	*counter = value
	return nil
}

func postCounter(p *model.ForumPost, field repository.CounterField) (*int64, error) {
	switch field {
	case repository.CounterReplies:
		return &p.ReplyCount, nil
	case repository.CounterUpvotes:
		return &p.UpvoteCount, nil
	case repository.CounterViews:
		return &p.ViewCount, nil
	}
	return nil, fmt.Errorf("unknown counter %q", field)
}

type forumReplyStore struct{ s *Store }

func (r *forumReplyStore) Create(_ context.Context, reply *model.ForumReply) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("forum_replies.create"); err != nil {
		return err
	}
	r.s.register(&reply.ID, &reply.CreatedAt)
	if reply.UpdatedAt.IsZero() {
		reply.UpdatedAt = reply.CreatedAt
	}
	r.s.replies[reply.ID] = cloneReply(reply)
	return nil
}

func (r *forumReplyStore) FindByID(_ context.Context, id string) (*model.ForumReply, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.check("forum_replies.find"); err != nil {
		return nil, err
	}
	reply, ok := r.s.replies[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneReply(reply), nil
}

func (r *forumReplyStore) Update(_ context.Context, reply *model.ForumReply) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("forum_replies.update"); err != nil {
		return err
	}
	stored, ok := r.s.replies[reply.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Content = reply.Content
	stored.IsHelpful = reply.IsHelpful
	stored.UpdatedAt = reply.UpdatedAt
	return nil
}

func (r *forumReplyStore) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("forum_replies.delete"); err != nil {
		return err
	}
	if _, ok := r.s.replies[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.replies, id)
	return nil
}

func (r *forumReplyStore) FindByPostID(_ context.Context, postID string) ([]*model.ForumReply, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.check("forum_replies.list"); err != nil {
		return nil, err
	}
	out := []*model.ForumReply{}
	for _, reply := range r.s.replies {
		if reply.ForumPostID == postID {
			out = append(out, cloneReply(reply))
		}
	}
	r.s.sortReplies(out)
	return out, nil
}

func (r *forumReplyStore) CountByPostID(_ context.Context, postID string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.check("forum_replies.count"); err != nil {
		return 0, err
	}
	var n int64
	for _, reply := range r.s.replies {
		if reply.ForumPostID == postID {
			n++
		}
	}
	return n, nil
}

func (r *forumReplyStore) IncrementUpvotes(_ context.Context, id string, delta int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("forum_replies.increment"); err != nil {
		return err
	}
	reply, ok := r.s.replies[id]
	if !ok {
		return repository.ErrNotFound
	}
	reply.UpvoteCount = floorAdd(reply.UpvoteCount, delta)
	return nil
}

func (r *forumReplyStore) SetUpvotes(_ context.Context, id string, value int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("forum_replies.set_counter"); err != nil {
		return err
	}
	if reply, ok := r.s.replies[id]; ok {
		reply.UpvoteCount = value
	}
	return nil
}

func (r *forumReplyStore) ListIDs(_ context.Context) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.check("forum_replies.list"); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(r.s.replies))
	for id := range r.s.replies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

type voteStore struct{ s *Store }

func (r *voteStore) Create(_ context.Context, vote *model.ForumVote) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("forum_votes.create"); err != nil {
		return err
	}
	for _, v := range r.s.votes {
		if v.ForumPostID == vote.ForumPostID && v.UserID == vote.UserID {
			return fmt.Errorf("%w: vote %s/%s", repository.ErrDuplicate, vote.ForumPostID, vote.UserID)
		}
	}
	r.s.register(&vote.ID, &vote.CreatedAt)
	if vote.VoteType == "" {
		vote.VoteType = model.VoteTypeUpvote
	}
	stored := *vote
	r.s.votes[vote.ID] = &stored
	return nil
}

func (r *voteStore) Exists(_ context.Context, targetID, userID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.check("forum_votes.find"); err != nil {
		return false, err
	}
	for _, v := range r.s.votes {
		if v.ForumPostID == targetID && v.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *voteStore) CountByTarget(_ context.Context, targetID string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.check("forum_votes.count"); err != nil {
		return 0, err
	}
	var n int64
	for _, v := range r.s.votes {
		if v.ForumPostID == targetID {
			n++
		}
	}
	return n, nil
}

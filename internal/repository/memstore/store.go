// Package memstore is an in-memory record store satisfying the repository
// interfaces. It backs tests and STORE_DRIVER=memory.
package memstore

import (
	"sort"
	"sync"
	"time"

	"parenthub/internal/model"
	"parenthub/internal/repository"

	"github.com/google/uuid"
)

// Store keeps every collection behind one mutex. Returned records are copies,
// so callers cannot mutate stored state without going through a repository.
type Store struct {
	mu    sync.RWMutex
	seq   int64
	order map[string]int64
	fault func(op string) error

	articles  map[string]*model.Article
	comments  map[string]*model.Comment
	reactions map[string]*model.CommentReaction
	forums    map[string]*model.Forum
	posts     map[string]*model.ForumPost
	replies   map[string]*model.ForumReply
	votes     map[string]*model.ForumVote
}

func New() *Store {
	return &Store{
		order:     make(map[string]int64),
		articles:  make(map[string]*model.Article),
		comments:  make(map[string]*model.Comment),
		reactions: make(map[string]*model.CommentReaction),
		forums:    make(map[string]*model.Forum),
		posts:     make(map[string]*model.ForumPost),
		replies:   make(map[string]*model.ForumReply),
		votes:     make(map[string]*model.ForumVote),
	}
}

// SetFault installs a hook consulted before every operation; a non-nil
// return fails the operation with that error. Operation names look like
// "forum_posts.increment". Pass nil to clear.
func (s *Store) SetFault(fn func(op string) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = fn
}

func (s *Store) Articles() repository.ArticleRepository        { return &articleStore{s} }
func (s *Store) Comments() repository.CommentRepository        { return &commentStore{s} }
func (s *Store) Reactions() repository.ReactionRepository      { return &reactionStore{s} }
func (s *Store) Forums() repository.ForumRepository            { return &forumStore{s} }
func (s *Store) ForumPosts() repository.ForumPostRepository    { return &forumPostStore{s} }
func (s *Store) ForumReplies() repository.ForumReplyRepository { return &forumReplyStore{s} }
func (s *Store) Votes() repository.VoteRepository              { return &voteStore{s} }

// check must be called with s.mu held.
func (s *Store) check(op string) error {
	if s.fault == nil {
		return nil
	}
	return s.fault(op)
}

// register assigns an id when missing and records insertion order, which
// breaks ties between records created at the same instant.
func (s *Store) register(id *string, createdAt *time.Time) {
	if *id == "" {
		*id = uuid.New().String()
	}
	if createdAt != nil && createdAt.IsZero() {
		*createdAt = time.Now()
	}
	s.seq++
	s.order[*id] = s.seq
}

func (s *Store) before(aID string, aAt time.Time, bID string, bAt time.Time) bool {
	if !aAt.Equal(bAt) {
		return aAt.Before(bAt)
	}
	return s.order[aID] < s.order[bID]
}

func (s *Store) sortComments(list []*model.Comment) {
	sort.SliceStable(list, func(i, j int) bool {
		return s.before(list[i].ID, list[i].CreatedAt, list[j].ID, list[j].CreatedAt)
	})
}

func (s *Store) sortReplies(list []*model.ForumReply) {
	sort.SliceStable(list, func(i, j int) bool {
		return s.before(list[i].ID, list[i].CreatedAt, list[j].ID, list[j].CreatedAt)
	})
}

func (s *Store) sortReactions(list []*model.CommentReaction) {
	sort.SliceStable(list, func(i, j int) bool {
		return s.before(list[i].ID, list[i].CreatedAt, list[j].ID, list[j].CreatedAt)
	})
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneComment(c *model.Comment) *model.Comment {
	out := *c
	out.ParentID = copyString(c.ParentID)
	out.UpdatedAt = copyTime(c.UpdatedAt)
	return &out
}

func clonePost(p *model.ForumPost) *model.ForumPost {
	out := *p
	out.LastReplyAt = copyTime(p.LastReplyAt)
	return &out
}

func cloneReply(r *model.ForumReply) *model.ForumReply {
	out := *r
	out.ParentReplyID = copyString(r.ParentReplyID)
	return &out
}

func floorAdd(v, delta int64) int64 {
	v += delta
	if v < 0 {
		return 0
	}
	return v
}

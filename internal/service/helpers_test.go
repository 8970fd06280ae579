package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"parenthub/internal/identity"
	"parenthub/internal/model"
	"parenthub/internal/rbac"
	"parenthub/internal/repository/memstore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []DiscussionEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event DiscussionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store  *memstore.Store
	svc    DiscussionService
	events *recordingPublisher
	clock  time.Time
}

// newFixture wires the service over an in-memory store. The clock moves one
// second per call so creation order is deterministic.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  memstore.New(),
		events: &recordingPublisher{},
		clock:  time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	opts := DefaultOptions()
	opts.Events = f.events
	opts.Now = func() time.Time {
		f.clock = f.clock.Add(time.Second)
		return f.clock
	}
	f.svc = NewDiscussionService(f.repos(), identity.NewContextProvider(), opts)
	return f
}

func (f *fixture) repos() Repositories {
	return Repositories{
		Articles:     f.store.Articles(),
		Comments:     f.store.Comments(),
		Reactions:    f.store.Reactions(),
		Forums:       f.store.Forums(),
		ForumPosts:   f.store.ForumPosts(),
		ForumReplies: f.store.ForumReplies(),
		Votes:        f.store.Votes(),
	}
}

func (f *fixture) article(t *testing.T) string {
	t.Helper()
	a := &model.Article{Slug: "toddler-sleep-" + uuid.NewString(), Title: "Toddler sleep"}
	require.NoError(t, f.store.Articles().Create(context.Background(), a))
	return a.ID
}

func (f *fixture) forum(t *testing.T, slug string) *model.Forum {
	t.Helper()
	forum := &model.Forum{Slug: slug, Name: slug, IsActive: true}
	require.NoError(t, f.store.Forums().Create(context.Background(), forum))
	return forum
}

func as(userID string, role rbac.Role) context.Context {
	return identity.WithCaller(context.Background(), &identity.Caller{ID: userID, Role: role})
}

func member(userID string) context.Context { return as(userID, rbac.RoleMember) }

func strPtr(s string) *string { return &s }

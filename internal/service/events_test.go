package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"parenthub/internal/repository"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type topicRecorder struct {
	mu       sync.Mutex
	messages map[string][]map[string]interface{}
}

func newTopicRecorder() *topicRecorder {
	return &topicRecorder{messages: make(map[string][]map[string]interface{})}
}

func (r *topicRecorder) BroadcastToTopic(topic string, message map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[topic] = append(r.messages[topic], message)
}

func (r *topicRecorder) count(topic string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages[topic])
}

func TestDeliver_NotifiesRecipientOnly(t *testing.T) {
	hub := newTopicRecorder()

	deliver(hub, DiscussionEvent{
		Type:        EventReplyCreated,
		Topic:       ForumPostTopic("p1"),
		ActorID:     "b",
		RecipientID: "a",
	})

	require.Len(t, hub.messages["forum:p1"], 1)
	require.Len(t, hub.messages["user:a"], 1)
	note := hub.messages["user:a"][0]
	assert.Equal(t, EventNotification, note["type"])
	assert.Equal(t, EventReplyCreated, note["event"])
	assert.Empty(t, hub.messages["user:b"])
}

func TestDeliver_SelfReplyIsNotNotified(t *testing.T) {
	hub := newTopicRecorder()

	deliver(hub, DiscussionEvent{Type: EventCommentCreated, Topic: CommentTopic("x"), ActorID: "a", RecipientID: "a"})

	assert.Len(t, hub.messages, 1)
	assert.Len(t, hub.messages["comments:x"], 1)
}

func TestHubPublisher(t *testing.T) {
	hub := newTopicRecorder()
	pub := NewHubPublisher(hub)

	require.NoError(t, pub.Publish(context.Background(), DiscussionEvent{Type: EventVoteCast, Topic: "forum:p"}))
	assert.Equal(t, EventVoteCast, hub.messages["forum:p"][0]["type"])
}

func TestEventWorker_Handle(t *testing.T) {
	hub := newTopicRecorder()
	w := NewEventWorker(nil, hub)

	body, err := json.Marshal(DiscussionEvent{
		Type:        EventCommentCreated,
		Topic:       CommentTopic("post"),
		ActorID:     "b",
		RecipientID: "a",
		Payload:     map[string]interface{}{"id": "c1"},
		Timestamp:   time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.NoError(t, w.handle(body))
	require.Len(t, hub.messages["comments:post"], 1)
	assert.Len(t, hub.messages["user:a"], 1)

	assert.Error(t, w.handle([]byte("{not json")))
}

func TestEventWorker_StartWithoutBroker(t *testing.T) {
	w := NewEventWorker(nil, newTopicRecorder())
	assert.NoError(t, w.Start())
	w.Stop()
	w.Stop()
}

func TestEventWorker_ResubscribesAfterStreamCloses(t *testing.T) {
	hub := newTopicRecorder()
	w := NewEventWorker(nil, hub)
	w.retryDelay = time.Millisecond

	first := make(chan amqp.Delivery)
	second := make(chan amqp.Delivery, 1)
	attempts := 0
	w.subscribe = func() (<-chan amqp.Delivery, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("broker unreachable")
		}
		return second, nil
	}

	go w.run(first)
	defer w.Stop()
	assert.Eventually(t, w.Active, time.Second, time.Millisecond)

	close(first)

	body, err := json.Marshal(DiscussionEvent{Type: EventReplyCreated, Topic: ForumPostTopic("p1")})
	require.NoError(t, err)
	second <- amqp.Delivery{Body: body}

	assert.Eventually(t, func() bool { return hub.count("forum:p1") == 1 }, time.Second, time.Millisecond)
	assert.True(t, w.Active())
}

func TestRabbitPublisher_FallsBackWhileWorkerIsDown(t *testing.T) {
	hub := newTopicRecorder()
	w := NewEventWorker(nil, hub)
	w.retryDelay = time.Hour

	msgs := make(chan amqp.Delivery)
	go w.run(msgs)
	defer w.Stop()
	require.Eventually(t, w.Active, time.Second, time.Millisecond)

	close(msgs)
	require.Eventually(t, func() bool { return !w.Active() }, time.Second, time.Millisecond)

	// with no live consumer the broker is never touched
	pub := NewRabbitPublisher(nil, NewHubPublisher(hub), w)
	require.NoError(t, pub.Publish(context.Background(), DiscussionEvent{Type: EventVoteCast, Topic: ForumPostTopic("p2")}))
	assert.Equal(t, 1, hub.count("forum:p2"))
}

func TestEventWorker_StopWhileResubscribing(t *testing.T) {
	w := NewEventWorker(nil, newTopicRecorder())
	w.retryDelay = time.Hour
	msgs := make(chan amqp.Delivery)

	done := make(chan struct{})
	go func() {
		w.run(msgs)
		close(done)
	}()
	close(msgs)
	w.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	assert.False(t, w.Active())
}

func TestReconciler_StopWithoutStart(t *testing.T) {
	f := newFixture(t)
	r := NewReconciler(f.store.Forums(), f.store.ForumPosts(), f.store.ForumReplies(), f.store.Votes(), 0)
	r.Start()
	r.Stop()
}

func TestReconciler_LoopRepairsDrift(t *testing.T) {
	f := newFixture(t)
	forum := f.forum(t, "sleep")
	post := f.post(t, forum.ID, "a")
	_, err := f.svc.Upvote(member("b"), post.ID)
	require.NoError(t, err)
	require.NoError(t, f.store.ForumPosts().SetCounter(context.Background(), post.ID, repository.CounterUpvotes, 7))

	r := NewReconciler(f.store.Forums(), f.store.ForumPosts(), f.store.ForumReplies(), f.store.Votes(), 10*time.Millisecond)
	r.Start()
	defer r.Stop()

	assert.Eventually(t, func() bool {
		p, err := f.store.ForumPosts().FindByID(context.Background(), post.ID)
		return err == nil && p.UpvoteCount == 1
	}, time.Second, 10*time.Millisecond)
}

package service

import (
	"context"
	"time"
)

// Event types pushed to subscribers so they can patch cached threads.
const (
	EventCommentCreated   = "comment.created"
	EventCommentUpdated   = "comment.updated"
	EventCommentDeleted   = "comment.deleted"
	EventReactionChanged  = "comment.reaction"
	EventForumPostCreated = "forum_post.created"
	EventForumPostUpdated = "forum_post.updated"
	EventReplyCreated     = "forum_reply.created"
	EventReplyUpdated     = "forum_reply.updated"
	EventReplyDeleted     = "forum_reply.deleted"
	EventVoteCast         = "forum.vote"
	EventNotification     = "notification"
)

const (
	DiscussionExchange   = "discussion_exchange"
	DiscussionQueueName  = "discussion_events"
	DiscussionRoutingKey = "discussion"
)

// DiscussionEvent is the message carried over RabbitMQ and, unwrapped, over
// the websocket.
type DiscussionEvent struct {
	Type        string      `json:"type"`
	Topic       string      `json:"topic"`
	ActorID     string      `json:"actor_id"`
	RecipientID string      `json:"recipient_id,omitempty"`
	Payload     interface{} `json:"payload"`
	Timestamp   time.Time   `json:"timestamp"`
}

// EventPublisher hands events to whatever fans them out.
type EventPublisher interface {
	Publish(ctx context.Context, event DiscussionEvent) error
}

// Broadcaster is the part of the websocket hub the event path needs.
type Broadcaster interface {
	BroadcastToTopic(topic string, message map[string]interface{})
}

func CommentTopic(postID string) string     { return "comments:" + postID }
func ForumPostTopic(postID string) string   { return "forum:" + postID }
func ForumBoardTopic(forumID string) string { return "forums:" + forumID }
func UserTopic(userID string) string        { return "user:" + userID }

// deliver pushes an event to its topic, and to the recipient's personal
// topic when someone other than the actor should be notified.
func deliver(b Broadcaster, event DiscussionEvent) {
	b.BroadcastToTopic(event.Topic, map[string]interface{}{
		"type":      event.Type,
		"topic":     event.Topic,
		"actor_id":  event.ActorID,
		"payload":   event.Payload,
		"timestamp": event.Timestamp,
	})

	if event.RecipientID == "" || event.RecipientID == event.ActorID {
		return
	}
	b.BroadcastToTopic(UserTopic(event.RecipientID), map[string]interface{}{
		"type":      EventNotification,
		"event":     event.Type,
		"topic":     event.Topic,
		"actor_id":  event.ActorID,
		"payload":   event.Payload,
		"timestamp": event.Timestamp,
	})
}

package websocket

import (
	"log"
	"strings"
	"sync"
)

// Hub keeps the connected clients indexed by topic and fans messages out to
// every subscriber of a topic.
type Hub struct {
	// Subscribers by topic
	topics map[string]map[*Client]bool

	// All registered clients
	clients map[*Client]bool

	broadcast   chan *Message
	register    chan *Client
	unregister  chan *Client
	subscribe   chan subscription
	unsubscribe chan subscription
	quit        chan struct{}
	stopOnce    sync.Once

	mu sync.RWMutex
}

// Message is what a client receives. Payload carries the event itself.
type Message struct {
	Topic   string                 `json:"topic"`
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}

type subscription struct {
	client *Client
	topic  string
}

// topicPrefixes lists the topics a client may subscribe to. Personal
// "user:" topics are only granted to their owner at connect time.
var topicPrefixes = []string{"comments:", "forum:", "forums:"}

// AllowedTopic reports whether a client connected as userID may follow topic.
func AllowedTopic(topic, userID string) bool {
	if userID != "" && topic == UserTopic(userID) {
		return true
	}
	for _, prefix := range topicPrefixes {
		if strings.HasPrefix(topic, prefix) && len(topic) > len(prefix) {
			return true
		}
	}
	return false
}

func UserTopic(userID string) string { return "user:" + userID }

func NewHub() *Hub {
	return &Hub{
		topics:      make(map[string]map[*Client]bool),
		clients:     make(map[*Client]bool),
		broadcast:   make(chan *Message, 256),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		subscribe:   make(chan subscription),
		unsubscribe: make(chan subscription),
		quit:        make(chan struct{}),
	}
}

// Run starts the hub loop; it returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			for topic := range client.topics {
				h.addLocked(client, topic)
			}
			h.mu.Unlock()
			log.Printf("Client registered: UserID=%s, topics=%d", client.UserID, len(client.topics))

		case client := <-h.unregister:
			h.mu.Lock()
			h.dropLocked(client)
			h.mu.Unlock()
			log.Printf("Client unregistered: UserID=%s", client.UserID)

		case sub := <-h.subscribe:
			h.mu.Lock()
			if h.clients[sub.client] {
				sub.client.topics[sub.topic] = true
				h.addLocked(sub.client, sub.topic)
			}
			h.mu.Unlock()

		case sub := <-h.unsubscribe:
			h.mu.Lock()
			delete(sub.client.topics, sub.topic)
			h.removeLocked(sub.client, sub.topic)
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.topics[message.Topic] {
				select {
				case client.send <- message:
				default:
					// slow consumer; disconnect rather than block the hub
					h.dropLocked(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

func (h *Hub) addLocked(client *Client, topic string) {
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*Client]bool)
	}
	h.topics[topic][client] = true
}

func (h *Hub) removeLocked(client *Client, topic string) {
	if subs, ok := h.topics[topic]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
}

func (h *Hub) dropLocked(client *Client) {
	if !h.clients[client] {
		return
	}
	delete(h.clients, client)
	for topic := range client.topics {
		h.removeLocked(client, topic)
	}
	close(client.send)
}

// BroadcastToTopic queues message for every subscriber of topic. The
// message's "type" entry, when present, becomes the envelope type.
func (h *Hub) BroadcastToTopic(topic string, payload map[string]interface{}) {
	msgType, _ := payload["type"].(string)
	message := &Message{Topic: topic, Type: msgType, Payload: payload}

	select {
	case h.broadcast <- message:
	default:
		log.Printf("Broadcast channel full, dropping message for topic: %s", topic)
	}
}

// BroadcastToUser sends a notification to every connection of userID.
func (h *Hub) BroadcastToUser(userID string, payload map[string]interface{}) {
	if _, ok := payload["type"]; !ok {
		payload["type"] = "notification"
	}
	h.BroadcastToTopic(UserTopic(userID), payload)
}

// SubscriberCount returns the number of clients following topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// GetTotalClientCount returns the total number of connected clients
func (h *Hub) GetTotalClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

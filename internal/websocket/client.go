package websocket

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Clients only send small control frames
	maxMessageSize = 4 * 1024
)

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub *Hub

	// The websocket connection
	conn *websocket.Conn

	// Buffered channel of outbound messages, closed by the hub
	send chan *Message

	// Answers to the client's own control messages; never closed
	replies chan *Message

	// Owned by the hub goroutine once registered
	topics map[string]bool

	// Empty for anonymous connections
	UserID string
}

// NewClient creates a client following topics, plus the user's personal
// topic when userID is set.
func NewClient(hub *Hub, conn *websocket.Conn, userID string, topics []string) *Client {
	c := &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan *Message, 256),
		replies: make(chan *Message, 16),
		topics:  make(map[string]bool, len(topics)+1),
		UserID:  userID,
	}
	for _, topic := range topics {
		if AllowedTopic(topic, userID) {
			c.topics[topic] = true
		}
	}
	if userID != "" {
		c.topics[UserTopic(userID)] = true
	}
	return c
}

type clientMessage struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
}

// readPump pumps control messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.quit:
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var message clientMessage
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			continue
		}
		switch message.Type {
		case "ping":
			c.reply(&Message{Type: "pong", Payload: map[string]interface{}{"timestamp": time.Now().Unix()}})
		case "subscribe":
			if !AllowedTopic(message.Topic, c.UserID) {
				c.reply(&Message{Type: "error", Topic: message.Topic, Payload: map[string]interface{}{"message": "topic not allowed"}})
				continue
			}
			c.request(c.hub.subscribe, message.Topic)
			c.reply(&Message{Type: "subscribed", Topic: message.Topic, Payload: map[string]interface{}{}})
		case "unsubscribe":
			c.request(c.hub.unsubscribe, message.Topic)
		}
	}
}

func (c *Client) request(ch chan subscription, topic string) {
	select {
	case ch <- subscription{client: c, topic: topic}:
	case <-c.hub.quit:
	}
}

func (c *Client) reply(m *Message) {
	select {
	case c.replies <- m:
	default:
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case message := <-c.replies:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start starts the client's read and write pumps
func (c *Client) Start() {
	go c.writePump()
	c.readPump()
}

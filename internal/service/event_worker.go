package service

import (
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"parenthub/internal/util"

	amqp "github.com/rabbitmq/amqp091-go"
)

const maxResubscribeDelay = 30 * time.Second

// EventWorker consumes discussion events from RabbitMQ and pushes them to
// the websocket hub. When the delivery stream closes it resubscribes with
// backoff until stopped.
type EventWorker struct {
	rabbitMQ   *util.RabbitMQClient
	hub        Broadcaster
	subscribe  func() (<-chan amqp.Delivery, error)
	retryDelay time.Duration
	active     atomic.Bool
	stopChan   chan struct{}
	stopOnce   sync.Once
}

func NewEventWorker(rabbitMQ *util.RabbitMQClient, hub Broadcaster) *EventWorker {
	w := &EventWorker{
		rabbitMQ:   rabbitMQ,
		hub:        hub,
		retryDelay: time.Second,
		stopChan:   make(chan struct{}),
	}
	w.subscribe = w.consumeQueue
	return w
}

// Start declares the topology and begins consuming in a goroutine.
func (w *EventWorker) Start() error {
	if w.rabbitMQ == nil {
		return nil
	}

	msgs, err := w.subscribe()
	if err != nil {
		return err
	}

	w.active.Store(true)
	go w.run(msgs)
	return nil
}

// Active reports whether the worker currently holds a live delivery stream.
func (w *EventWorker) Active() bool {
	return w.active.Load()
}

func (w *EventWorker) consumeQueue() (<-chan amqp.Delivery, error) {
	if err := w.rabbitMQ.DeclareTopology(DiscussionExchange, DiscussionQueueName, DiscussionRoutingKey); err != nil {
		return nil, err
	}
	channel, err := w.rabbitMQ.GetChannel()
	if err != nil {
		return nil, err
	}
	return channel.Consume(
		DiscussionQueueName,
		"discussion_worker",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
}

func (w *EventWorker) run(msgs <-chan amqp.Delivery) {
	log.Println("Discussion event worker started, consuming messages...")
	defer w.active.Store(false)

	for {
		w.active.Store(true)
		if w.consume(msgs) {
			log.Println("Discussion event worker stopped")
			return
		}
		w.active.Store(false)
		log.Println("Discussion event queue closed, resubscribing...")

		next, ok := w.resubscribe()
		if !ok {
			log.Println("Discussion event worker stopped")
			return
		}
		msgs = next
	}
}

// consume drains msgs and reports true when the worker was stopped, false
// when the stream closed underneath it.
func (w *EventWorker) consume(msgs <-chan amqp.Delivery) bool {
	for {
		select {
		case <-w.stopChan:
			return true
		case msg, ok := <-msgs:
			if !ok {
				return false
			}
			if err := w.handle(msg.Body); err != nil {
				log.Printf("Error processing discussion event: %v", err)
				// malformed payloads will never decode, so do not requeue them
				msg.Nack(false, false)
				continue
			}
			msg.Ack(false)
		}
	}
}

func (w *EventWorker) resubscribe() (<-chan amqp.Delivery, bool) {
	delay := w.retryDelay
	for {
		timer := time.NewTimer(delay)
		select {
		case <-w.stopChan:
			timer.Stop()
			return nil, false
		case <-timer.C:
		}

		msgs, err := w.subscribe()
		if err == nil {
			log.Println("Discussion event worker resubscribed")
			return msgs, true
		}
		log.Printf("Discussion event worker resubscribe failed: %v (retry in %s)", err, delay)
		if delay *= 2; delay > maxResubscribeDelay {
			delay = maxResubscribeDelay
		}
	}
}

func (w *EventWorker) handle(body []byte) error {
	var event DiscussionEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return err
	}
	if w.hub != nil {
		deliver(w.hub, event)
	}
	return nil
}

func (w *EventWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
}

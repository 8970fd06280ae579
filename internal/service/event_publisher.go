package service

import (
	"context"
	"encoding/json"
	"log"

	"parenthub/internal/util"
)

// HubPublisher broadcasts straight to the websocket hub. It is used when
// RabbitMQ is not available and as the fallback of the RabbitMQ publisher.
type HubPublisher struct {
	hub Broadcaster
}

func NewHubPublisher(hub Broadcaster) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) Publish(_ context.Context, event DiscussionEvent) error {
	deliver(p.hub, event)
	return nil
}

// Relay is the consumer side of the queue. EventWorker implements it.
type Relay interface {
	Active() bool
}

// RabbitPublisher sends events to the discussion exchange; the EventWorker on
// each instance relays them to local websocket clients. While the relay has no
// live stream, events go to the fallback so they are not left in the queue.
type RabbitPublisher struct {
	rabbitMQ *util.RabbitMQClient
	fallback EventPublisher
	relay    Relay
}

func NewRabbitPublisher(rabbitMQ *util.RabbitMQClient, fallback EventPublisher, relay Relay) *RabbitPublisher {
	return &RabbitPublisher{rabbitMQ: rabbitMQ, fallback: fallback, relay: relay}
}

func (p *RabbitPublisher) Publish(ctx context.Context, event DiscussionEvent) error {
	if p.relay != nil && !p.relay.Active() && p.fallback != nil {
		return p.fallback.Publish(ctx, event)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = p.rabbitMQ.Publish(ctx, DiscussionExchange, DiscussionRoutingKey, body)
	if err == nil {
		return nil
	}
	log.Printf("[EventPublisher] RabbitMQ publish failed for %s: %v", event.Type, err)
	if p.fallback != nil {
		return p.fallback.Publish(ctx, event)
	}
	return err
}

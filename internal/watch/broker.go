package watch

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/seojinhan/matjip-backend/pkg/logger"
)

// Topics. Watchers subscribe to a topic and re-run their query on
// every tick, so a tick carries no payload: the delivery contract is
// full-snapshot-per-change, never a diff.
const (
	TopicRestaurants = "restaurants"
)

// TopicReviews names the review stream of one restaurant.
func TopicReviews(restaurantID string) string {
	return "restaurants/" + restaurantID + "/reviews"
}

// Subscription is a handle to one topic subscription. C receives one
// tick per published change; ticks are coalesced when the subscriber
// lags. Unsubscribe is idempotent.
type Subscription struct {
	C <-chan struct{}

	c      chan struct{}
	topic  string
	id     string
	broker *Broker
	once   sync.Once
}

// Unsubscribe removes the subscription and closes C. Calling it more
// than once, or after the broker has shut down, is a no-op.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.broker.remove(s.topic, s.id)
		close(s.c)
	})
}

// Broker fans change notifications out to in-process subscribers.
// When a Redis client is attached, publishes are mirrored on a pub/sub
// channel so watchers on other instances invalidate too; an origin id
// on each message keeps an instance from re-delivering its own ticks.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[string]*Subscription

	origin  string
	rdb     *redis.Client
	channel string
	cancel  context.CancelFunc
}

func NewBroker() *Broker {
	return &Broker{
		subs:   make(map[string]map[string]*Subscription),
		origin: uuid.New().String(),
	}
}

// AttachRedis mirrors publishes over the given pub/sub channel and
// starts a listener that re-delivers remote ticks locally.
func (b *Broker) AttachRedis(rdb *redis.Client, channel string) {
	ctx, cancel := context.WithCancel(context.Background())
	b.rdb = rdb
	b.channel = channel
	b.cancel = cancel

	pubsub := rdb.Subscribe(ctx, channel)
	go func() {
		defer pubsub.Close()
		for {
			msg, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warn("Watch fan-out receive failed", map[string]interface{}{
					"channel": channel,
					"error":   err.Error(),
				})
				continue
			}
			parts := strings.SplitN(msg.Payload, " ", 2)
			if len(parts) != 2 {
				continue
			}
			if parts[0] == b.origin {
				continue // our own publish, already delivered locally
			}
			b.notify(parts[1])
		}
	}()

	logger.Info("Watch broker attached to Redis fan-out", map[string]interface{}{
		"channel": channel,
	})
}

// Subscribe registers for change ticks on a topic.
func (b *Broker) Subscribe(topic string) *Subscription {
	sub := &Subscription{
		c:      make(chan struct{}, 1),
		topic:  topic,
		id:     uuid.New().String(),
		broker: b,
	}
	sub.C = sub.c

	b.mu.Lock()
	if _, ok := b.subs[topic]; !ok {
		b.subs[topic] = make(map[string]*Subscription)
	}
	b.subs[topic][sub.id] = sub
	b.mu.Unlock()

	logger.Debug("Watch subscription added", map[string]interface{}{
		"topic": topic,
	})
	return sub
}

// Publish notifies every subscriber of the topic that the underlying
// data changed. Non-blocking: a subscriber that has not consumed its
// pending tick keeps a single coalesced one.
func (b *Broker) Publish(ctx context.Context, topic string) {
	b.notify(topic)

	if b.rdb != nil {
		payload := b.origin + " " + topic
		if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
			logger.Warn("Watch fan-out publish failed", map[string]interface{}{
				"topic": topic,
				"error": err.Error(),
			})
		}
	}
}

func (b *Broker) notify(topic string) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs[topic] {
		select {
		case sub.c <- struct{}{}:
		default:
			// tick already pending, coalesce
		}
	}
}

func (b *Broker) remove(topic, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, ok := b.subs[topic]; ok {
		delete(subs, id)
		if len(subs) == 0 {
			delete(b.subs, topic)
		}
	}
}

// SubscriberCount reports the number of live subscriptions on a topic.
func (b *Broker) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

// Close stops the Redis listener, if any.
func (b *Broker) Close() {
	if b.cancel != nil {
		b.cancel()
	}
}

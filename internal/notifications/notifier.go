// Package notifications publishes comment activity events into Redis channels
// so sidebar clients can refresh without polling.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime/debug"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Event is the payload published on a context channel when a comment or
// reply is created.
type Event struct {
	Name      string `json:"name"`
	ContextID uint   `json:"context_id"`
	ObjectID  uint   `json:"object_id"`
	UserID    uint   `json:"user_id"`
	At        int64  `json:"at"`
}

// Notifier provides helpers to publish comment events into Redis channels.
// A nil Redis client disables publishing.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishContextEvent sends an event to the channel of its context.
func (n *Notifier) PublishContextEvent(ctx context.Context, ev Event) error {
	if n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return n.rdb.Publish(ctx, ContextChannel(ev.ContextID), string(payload)).Err()
}

// StartContextSubscriber subscribes to pattern `comments:context:*` and calls
// onMessage for each incoming message. onMessage receives channel and payload.
func (n *Notifier) StartContextSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, "comments:context:*")
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in ContextSubscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// ContextChannel derives the Redis channel name for a context.
func ContextChannel(contextID uint) string {
	return "comments:context:" + strconv.FormatUint(uint64(contextID), 10)
}

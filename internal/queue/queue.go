// Package queue carries attendance event notifications from the API to the
// roster worker. The worker folds them into the teacher's derived view.
package queue

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"presence/internal/attendance"
)

// Message kinds carried over the stream.
const (
	KindEventCreated   = "event.created"
	KindEventDeleted   = "event.deleted"
	KindEventCorrected = "event.corrected"
)

// Message is one attendance event notification.
type Message struct {
	Kind string
	Body []byte
}

// EventCreated wraps a confirmed event for the stream.
func EventCreated(evt attendance.Event) Message {
	body, _ := json.Marshal(evt)
	return Message{Kind: KindEventCreated, Body: body}
}

// EventCorrected wraps an updated event for the stream.
func EventCorrected(evt attendance.Event) Message {
	body, _ := json.Marshal(evt)
	return Message{Kind: KindEventCorrected, Body: body}
}

// EventDeleted wraps a deletion notice for the stream.
func EventDeleted(eventID string) Message {
	return Message{Kind: KindEventDeleted, Body: []byte(eventID)}
}

// Event decodes the event payload of a created/corrected message.
func (m Message) Event() (attendance.Event, error) {
	var evt attendance.Event
	err := json.Unmarshal(m.Body, &evt)
	return evt, err
}

// Queue is the abstraction over different backends.
type Queue interface {
	Publish(ctx context.Context, msg Message) error
	Consume(ctx context.Context) (<-chan Message, error)
}

// InMemory is a minimal channel-backed queue for dev/testing.
type InMemory struct {
	ch chan Message
}

// NewInMemory creates a bounded in-memory queue.
func NewInMemory(size int) *InMemory {
	return &InMemory{ch: make(chan Message, size)}
}

// Publish enqueues a message.
func (q *InMemory) Publish(ctx context.Context, msg Message) error {
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume returns a channel for workers.
func (q *InMemory) Consume(ctx context.Context) (<-chan Message, error) {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			select {
			case msg := <-q.ch:
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// RedisQueue implements a simple Redis list-backed queue.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue builds a queue using LPUSH/BRPOP semantics.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = "presence:events"
	}
	return &RedisQueue{client: client, key: key}
}

// Publish enqueues a message.
func (q *RedisQueue) Publish(ctx context.Context, msg Message) error {
	return q.client.LPush(ctx, q.key, serialize(msg)).Err()
}

// Consume streams messages using BRPOP.
func (q *RedisQueue) Consume(ctx context.Context) (<-chan Message, error) {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			res, err := q.client.BRPop(ctx, 5*time.Second, q.key).Result()
			if err != nil {
				if err == redis.Nil {
					continue
				}
				if ctx.Err() != nil {
					return
				}
				continue
			}
			if len(res) == 2 {
				select {
				case out <- deserialize(res[1]):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// serialize stores messages as Kind|Body; kinds never contain '|'.
func serialize(msg Message) string {
	return msg.Kind + "|" + string(msg.Body)
}

func deserialize(s string) Message {
	if i := strings.IndexByte(s, '|'); i >= 0 {
		return Message{Kind: s[:i], Body: []byte(s[i+1:])}
	}
	return Message{Body: []byte(s)}
}

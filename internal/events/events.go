// Package events publishes conversation turn events to a Redis stream so
// external consumers (dashboards, archival jobs) can follow live sessions.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const stream = "skai:turns"

// TurnEvent describes one completed conversation turn.
type TurnEvent struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	AgentUsed string    `json:"agent_used,omitempty"`
	Intent    string    `json:"intent,omitempty"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Bus is a Redis Streams publisher for turn events. A nil *Bus is valid
// and publishes nothing, so the kernel works without Redis configured.
type Bus struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewBus connects to Redis and verifies the connection.
func NewBus(redisURL string, logger *zap.Logger) (*Bus, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Bus{rdb: rdb, logger: logger}, nil
}

// Publish appends a turn event to the stream. Failures are logged, not
// returned: event delivery must never fail a conversation turn.
func (b *Bus) Publish(ctx context.Context, ev *TurnEvent) {
	if b == nil {
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		b.logger.Error("marshal turn event", zap.Error(err))
		return
	}
	err = b.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{"data": string(data)},
	}).Err()
	if err != nil {
		b.logger.Warn("publish turn event failed",
			zap.String("session", ev.SessionID), zap.Error(err))
		return
	}
	b.logger.Debug("published turn event",
		zap.String("session", ev.SessionID),
		zap.String("role", ev.Role))
}

// Subscribe tails the turn stream from now on, emitting events until the
// context is cancelled.
func (b *Bus) Subscribe(ctx context.Context) <-chan *TurnEvent {
	ch := make(chan *TurnEvent, 16)
	if b == nil {
		close(ch)
		return ch
	}

	go func() {
		defer close(ch)
		lastID := "$"
		for {
			res, err := b.rdb.XRead(ctx, &redis.XReadArgs{
				Streams: []string{stream, lastID},
				Block:   5 * time.Second,
			}).Result()
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				if err != redis.Nil {
					b.logger.Warn("read turn stream failed", zap.Error(err))
					time.Sleep(time.Second)
				}
				continue
			}
			for _, s := range res {
				for _, msg := range s.Messages {
					lastID = msg.ID
					raw, ok := msg.Values["data"].(string)
					if !ok {
						continue
					}
					var ev TurnEvent
					if err := json.Unmarshal([]byte(raw), &ev); err != nil {
						b.logger.Warn("decode turn event failed", zap.Error(err))
						continue
					}
					select {
					case ch <- &ev:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return ch
}

// Close shuts down the Redis connection.
func (b *Bus) Close() error {
	if b == nil {
		return nil
	}
	return b.rdb.Close()
}

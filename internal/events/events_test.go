package events

import (
	"context"
	"testing"
	"time"

	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"go.uber.org/zap"
)

func startRedis(t *testing.T) *Bus {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("start redis: %v", err)
	}
	t.Cleanup(func() { container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("redis endpoint: %v", err)
	}

	bus, err := NewBus("redis://"+endpoint, zap.NewNop())
	if err != nil {
		t.Fatalf("connect bus: %v", err)
	}
	t.Cleanup(func() { bus.Close() })
	return bus
}

func TestPublishSubscribe(t *testing.T) {
	bus := startRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ch := bus.Subscribe(ctx)
	// Give the subscriber a moment to establish its stream position.
	time.Sleep(200 * time.Millisecond)

	bus.Publish(ctx, &TurnEvent{
		SessionID: "session_1_ev",
		Role:      "assistant",
		AgentUsed: "weather_time_agent",
		Intent:    "weather_query",
		Content:   "It's sunny.",
	})

	select {
	case ev := <-ch:
		if ev.SessionID != "session_1_ev" {
			t.Errorf("unexpected session: %q", ev.SessionID)
		}
		if ev.ID == "" {
			t.Error("expected generated event id")
		}
		if ev.Timestamp.IsZero() {
			t.Error("expected timestamp set")
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}
}

func TestNilBusIsSafe(t *testing.T) {
	var bus *Bus

	// Publishing through a nil bus is a no-op.
	bus.Publish(context.Background(), &TurnEvent{SessionID: "s"})

	ch := bus.Subscribe(context.Background())
	if _, open := <-ch; open {
		t.Error("expected closed channel from nil bus")
	}
}

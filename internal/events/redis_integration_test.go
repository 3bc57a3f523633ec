package events

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mohammad-safakhou/threader/config"
)

func TestRedisPublishSubscribe(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	redisC, err := tcRedis.RunContainer(ctx, testcontainers.WithWaitStrategy(wait.ForListeningPort("6379/tcp")))
	if err != nil {
		t.Fatalf("redis container: %v", err)
	}
	defer func() { _ = redisC.Terminate(context.Background()) }()

	host, err := redisC.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := redisC.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}

	cfg := config.RedisConfig{Enabled: true, Host: host, Port: port.Port(), Channel: "threader:test", Timeout: 5 * time.Second}
	client, err := Conn(ctx, cfg)
	if err != nil {
		t.Fatalf("Conn: %v", err)
	}
	defer client.Close()

	subCtx, stop := context.WithCancel(ctx)
	defer stop()
	stream, err := Subscribe(subCtx, client, cfg.Channel, nil)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	pub := NewRedisPublisher(client, cfg.Channel)
	if err := pub.Publish(ctx, Event{RunID: "run-1", Topic: "electric vehicles", Stage: "search", Status: StatusCompleted}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case e := <-stream:
		if e.RunID != "run-1" || e.Stage != "search" || e.Status != StatusCompleted {
			t.Fatalf("unexpected event %+v", e)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("no event received")
	}
}

//go:build integration

package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestRedisLimiter_Integration_SlidingWindow(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	clock := newFakeClock()
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	limiter := NewRedisLimiter(redisClient, RedisConfig{
		Enabled: true,
		Limit:   5,
		Window:  time.Minute,
		Now:     clock.Now,
	}, logger)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		d, err := limiter.Allow(ctx, "10.0.0.1")
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		if !d.Allowed {
			t.Fatalf("request %d rejected, want allowed", i+1)
		}
		if d.Remaining != 4-i {
			t.Errorf("Remaining = %d, want %d", d.Remaining, 4-i)
		}
		clock.Advance(time.Second)
	}

	d, err := limiter.Allow(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if d.Allowed {
		t.Fatal("6th request within the window must be rejected")
	}
	if d.RetryAfter != 55*time.Second {
		t.Errorf("RetryAfter = %v, want 55s", d.RetryAfter)
	}

	// Other identities have their own window.
	d, err = limiter.Allow(ctx, "10.0.0.2")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !d.Allowed {
		t.Error("different identity should be allowed")
	}

	// First timestamp (t0) is exactly W old at t0+60s.
	clock.Advance(55 * time.Second)
	d, err = limiter.Allow(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !d.Allowed {
		t.Error("request should be allowed once the oldest timestamp left the window")
	}
}

func TestRedisLimiter_Integration_KeyExpiryAndReset(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	limiter := NewRedisLimiter(redisClient, RedisConfig{
		Enabled: true,
		Limit:   1,
		Window:  30 * time.Second,
	}, logger)
	ctx := context.Background()

	if _, err := limiter.Allow(ctx, "caller"); err != nil {
		t.Fatalf("Allow() error = %v", err)
	}

	ttl, err := redisClient.PTTL(ctx, DefaultKeyPrefix+"caller").Result()
	if err != nil {
		t.Fatalf("PTTL error = %v", err)
	}
	if ttl <= 0 || ttl > 30*time.Second {
		t.Errorf("window key TTL = %v, want within (0, 30s]", ttl)
	}

	d, _ := limiter.Allow(ctx, "caller")
	if d.Allowed {
		t.Fatal("second request should be rejected with limit 1")
	}

	if err := limiter.Reset(ctx, "caller"); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	d, err = limiter.Allow(ctx, "caller")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !d.Allowed {
		t.Error("request after Reset should be allowed")
	}
}

func TestRedisLimiter_Integration_FailOpen(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	ctx := context.Background()

	strict := NewRedisLimiter(redisClient, RedisConfig{Enabled: true, Limit: 1}, logger)
	if _, err := strict.Allow(ctx, "caller"); err == nil {
		t.Error("expected an error from a closed client")
	}

	lenient := NewRedisLimiter(redisClient, RedisConfig{Enabled: true, Limit: 1, FailOpen: true}, logger)
	d, err := lenient.Allow(ctx, "caller")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !d.Allowed {
		t.Error("fail-open limiter should admit when the backend is down")
	}
}

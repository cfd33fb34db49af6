package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisLimiterWindow(t *testing.T) {
	s := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	lim := NewRedisLimiter(client, 2, 500*time.Millisecond, "test:")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, _, err := lim.Allow(ctx, "ip", time.Now())
		if err != nil || !allowed {
			t.Fatalf("expected allow on call %d (err %v)", i+1, err)
		}
	}

	allowed, retryAfter, err := lim.Allow(ctx, "ip", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Fatalf("expected rate limited")
	}
	if retryAfter <= 0 {
		t.Fatalf("expected retryAfter > 0")
	}
	if !s.Exists("test:ip") {
		t.Fatalf("expected prefixed key in redis")
	}

	s.FastForward(600 * time.Millisecond)
	allowed, _, err = lim.Allow(ctx, "ip", time.Now())
	if err != nil || !allowed {
		t.Fatalf("expected allow after window")
	}
}

func TestRedisLimiterRejectsZeroWindow(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	if _, _, err := NewRedisLimiter(client, 1, 0, "").Allow(context.Background(), "ip", time.Now()); err == nil {
		t.Fatalf("expected error for zero window")
	}
}

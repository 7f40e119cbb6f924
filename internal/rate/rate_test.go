package rate_test

import (
	"context"
	"testing"
	"time"

	"github.com/govpass/govpass/internal/rate"
)

func TestMemoryLimiter_BlocksAboveMax(t *testing.T) {
	ctx := context.Background()
	l := rate.NewMemoryLimiter(3, time.Hour)

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "ip-1")
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("request %d blocked below the limit", i+1)
		}
	}

	res, err := l.Allow(ctx, "ip-1")
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if res.Allowed {
		t.Fatal("request above the limit allowed")
	}
	if res.RetryAfter <= 0 {
		t.Fatal("blocked result missing RetryAfter")
	}
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	l := rate.NewMemoryLimiter(1, time.Hour)

	if res, _ := l.Allow(ctx, "ip-1"); !res.Allowed {
		t.Fatal("first hit for ip-1 blocked")
	}
	if res, _ := l.Allow(ctx, "ip-1"); res.Allowed {
		t.Fatal("second hit for ip-1 allowed")
	}
	if res, _ := l.Allow(ctx, "ip-2"); !res.Allowed {
		t.Fatal("ip-2 penalized for ip-1 traffic")
	}
}

func TestMemoryLimiter_RemainingCountsDown(t *testing.T) {
	ctx := context.Background()
	l := rate.NewMemoryLimiter(2, time.Hour)

	res, _ := l.Allow(ctx, "k")
	if res.Remaining != 1 {
		t.Fatalf("remaining = %d, want 1", res.Remaining)
	}
	res, _ = l.Allow(ctx, "k")
	if res.Remaining != 0 {
		t.Fatalf("remaining = %d, want 0", res.Remaining)
	}
}

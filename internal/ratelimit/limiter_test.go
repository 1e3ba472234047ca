package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

// TestNewRateLimiterStartsFull verifies the bucket starts at full capacity.
func TestNewRateLimiterStartsFull(t *testing.T) {
	rl := NewRateLimiter(1.0, 10.0)
	if tokens := rl.GetCurrentTokens(); tokens < 9.9 {
		t.Errorf("expected ~10 tokens, got %.2f", tokens)
	}
}

// TestTryAcquireConsumesToken verifies token consumption.
func TestTryAcquireConsumesToken(t *testing.T) {
	rl := NewRateLimiter(0.01, 5.0)

	for i := 0; i < 5; i++ {
		if !rl.TryAcquire() {
			t.Fatalf("TryAcquire() failed on attempt %d", i+1)
		}
	}

	if rl.TryAcquire() {
		t.Error("TryAcquire() should fail when bucket is empty")
	}
}

// TestTokenRefillCapsAtMax verifies tokens don't exceed max capacity.
func TestTokenRefillCapsAtMax(t *testing.T) {
	rl := NewRateLimiter(100.0, 5.0)
	time.Sleep(50 * time.Millisecond)
	if tokens := rl.GetCurrentTokens(); tokens > 5.0 {
		t.Errorf("tokens %.2f exceed max 5", tokens)
	}
}

// TestWaitBlocksUntilTokenAvailable verifies Wait blocks then succeeds.
func TestWaitBlocksUntilTokenAvailable(t *testing.T) {
	rl := NewRateLimiter(20.0, 1.0)
	if !rl.TryAcquire() {
		t.Fatal("first acquire should succeed")
	}

	start := time.Now()
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("Wait returned after %v, expected to block ~50ms", elapsed)
	}
}

// TestWaitRespectsContextCancellation verifies Wait returns on cancel.
func TestWaitRespectsContextCancellation(t *testing.T) {
	rl := NewRateLimiter(0.001, 1.0)
	rl.TryAcquire()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := rl.Wait(ctx); err == nil {
		t.Error("expected context error")
	}
}

func TestSetCooldown(t *testing.T) {
	rl := NewRateLimiter(1000.0, 10.0)
	rl.SetCooldown(100 * time.Millisecond)

	if rl.TryAcquire() {
		t.Error("acquire during cooldown should fail")
	}
	if rl.CooldownRemaining() <= 0 {
		t.Error("cooldown should be active")
	}

	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if rl.CooldownRemaining() != 0 {
		t.Error("cooldown should have expired")
	}
}

func TestCooldownMergeDoesNotShorten(t *testing.T) {
	rl := NewRateLimiter(1.0, 1.0)
	rl.SetCooldown(time.Second)
	rl.SetCooldown(10 * time.Millisecond)
	if rl.CooldownRemaining() < 500*time.Millisecond {
		t.Errorf("shorter cooldown replaced a longer one: %v", rl.CooldownRemaining())
	}
}

func TestConcurrentAccess(t *testing.T) {
	rl := NewRateLimiter(0.01, 50.0)
	var wg sync.WaitGroup
	var mu sync.Mutex
	acquired := 0

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.TryAcquire() {
				mu.Lock()
				acquired++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if acquired != 50 {
		t.Errorf("acquired %d tokens, want 50", acquired)
	}
}

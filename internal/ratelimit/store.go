package ratelimit

import (
	"context"
	"sync"
	"time"
)

// LimiterStore holds the bot-wide limiter and one limiter per chat.
type LimiterStore struct {
	registry *Registry
	global   *RateLimiter

	mu    sync.Mutex
	chats map[int64]*RateLimiter
}

// NewLimiterStore creates a store with fresh buckets.
func NewLimiterStore() *LimiterStore {
	return &LimiterStore{
		registry: NewRegistry(),
		global:   NewRateLimiter(GlobalRatePerSec, GlobalBurst),
		chats:    make(map[int64]*RateLimiter),
	}
}

// Registry returns the method-to-scope registry.
func (s *LimiterStore) Registry() *Registry {
	return s.registry
}

// Global returns the bot-wide limiter.
func (s *LimiterStore) Global() *RateLimiter {
	return s.global
}

// Chat returns the limiter for chatID, creating it on first use.
func (s *LimiterStore) Chat(chatID int64) *RateLimiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	rl, ok := s.chats[chatID]
	if !ok {
		rl = NewRateLimiter(ChatRatePerSec, ChatBurst)
		s.chats[chatID] = rl
	}
	return rl
}

// Wait blocks until method may be called for chatID (0 when the call is
// not tied to a chat).
func (s *LimiterStore) Wait(ctx context.Context, method string, chatID int64) error {
	scope := s.registry.ResolveScope(method)
	if scope == ScopeUnlimited {
		return nil
	}
	if scope == ScopeChat && chatID != 0 {
		if err := s.Chat(chatID).Wait(ctx); err != nil {
			return err
		}
	}
	return s.global.Wait(ctx)
}

// Allow is the non-blocking form of Wait, used for updates that may be
// skipped (intermediate progress edits). The chat bucket is checked first so
// a refused call does not spend a global token.
func (s *LimiterStore) Allow(method string, chatID int64) bool {
	scope := s.registry.ResolveScope(method)
	if scope == ScopeUnlimited {
		return true
	}
	if scope == ScopeChat && chatID != 0 && !s.Chat(chatID).TryAcquire() {
		return false
	}
	return s.global.TryAcquire()
}

// Cooldown applies a server-requested retry_after to the buckets method
// draws from.
func (s *LimiterStore) Cooldown(method string, chatID int64, d time.Duration) {
	switch s.registry.ResolveScope(method) {
	case ScopeChat:
		if chatID != 0 {
			s.Chat(chatID).SetCooldown(d)
			return
		}
		s.global.SetCooldown(d)
	case ScopeGlobal:
		s.global.SetCooldown(d)
	}
}

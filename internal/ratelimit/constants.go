package ratelimit

// Telegram Bot API flood limits
//
// Telegram does not publish exact numbers. The documented guidance is:
//   - about 30 messages per second across all chats
//   - about 1 message per second inside a single chat
//
// Exceeding them returns 429 with parameters.retry_after, which the client
// feeds back into the matching limiter as a cooldown.
const (
	// GlobalLimitPerSec is the bot-wide guidance.
	GlobalLimitPerSec = 30

	// ChatLimitPerSec is the per-chat guidance.
	ChatLimitPerSec = 1
)

// Target rates (requests per second). We target about 85% of the global limit.
const (
	GlobalRatePerSec = 25.0
	GlobalBurst      = 30.0

	// Chats get a small burst so a status edit right after a prompt is not delayed.
	ChatRatePerSec = 1.0
	ChatBurst      = 3.0
)

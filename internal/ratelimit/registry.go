package ratelimit

import "fmt"

// Scope identifies which buckets a Bot API method draws from.
type Scope string

const (
	// ScopeUnlimited methods are not paced (long polling, identity).
	ScopeUnlimited Scope = "unlimited"

	// ScopeGlobal methods draw from the bot-wide bucket only.
	ScopeGlobal Scope = "global"

	// ScopeChat methods draw from the bot-wide bucket and the target chat's bucket.
	ScopeChat Scope = "chat"
)

// Registry maps Bot API method names to scopes.
type Registry struct {
	methods      map[string]Scope
	defaultScope Scope
}

// NewRegistry creates the registry with the methods the bot calls.
func NewRegistry() *Registry {
	return &Registry{
		defaultScope: ScopeGlobal,
		methods: map[string]Scope{
			"getUpdates": ScopeUnlimited,
			"getMe":      ScopeUnlimited,

			"answerCallbackQuery": ScopeGlobal,
			"getFile":             ScopeGlobal,

			"sendMessage":            ScopeChat,
			"editMessageText":        ScopeChat,
			"editMessageReplyMarkup": ScopeChat,
			"sendDocument":           ScopeChat,
		},
	}
}

// ResolveScope returns the scope for a Bot API method. Unknown methods use
// the global bucket.
func (r *Registry) ResolveScope(method string) Scope {
	if s, ok := r.methods[method]; ok {
		return s
	}
	return r.defaultScope
}

// ScopeDisplayString returns a human-readable description of the scope for logging.
func (r *Registry) ScopeDisplayString(scope Scope) string {
	switch scope {
	case ScopeGlobal:
		return fmt.Sprintf("%s (%.0f/sec)", scope, GlobalRatePerSec)
	case ScopeChat:
		return fmt.Sprintf("%s (%.0f/sec per chat, %.0f/sec overall)", scope, ChatRatePerSec, GlobalRatePerSec)
	default:
		return string(scope)
	}
}

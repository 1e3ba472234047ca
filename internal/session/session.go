// Package session keeps one in-memory navigation/transfer session per user
// and serializes each user's work on a dedicated worker.
package session

import (
	"context"
	"errors"

	"github.com/rescale/courier/internal/pathcodec"
	"github.com/rescale/courier/internal/transfer"
)

// State is where a session is in the conversation.
type State string

const (
	StateAwaitingConfig   State = "awaiting_config"   // next document must be rclone.conf
	StateAwaitingPlatform State = "awaiting_platform" // Telegram or rclone?
	StateSelectingRemote  State = "selecting_remote"
	StateListing          State = "listing"
	StateConfirming       State = "confirming" // destination chosen, transfer not started
	StateTransferring     State = "transferring"
	StateClosed           State = "closed"
)

// Platform is the destination kind picked by the operator.
type Platform string

const (
	PlatformTelegram Platform = "telegram"
	PlatformRclone   Platform = "rclone"
)

var (
	// ErrBusy is returned when a user already has a running transfer.
	ErrBusy = errors.New("a transfer is already running")

	// ErrNotTransferring is returned when cancelling a session with no job.
	ErrNotTransferring = errors.New("no transfer is running")
)

// Target is what an offered action resolves to. Tokens shown on buttons
// are only keys; the session keeps the real remote and path here.
type Target struct {
	Remote   string
	Path     string
	Page     int
	Platform Platform
	Listed   bool // Path came from a directory listing
}

// Session is one user's conversation. It is only touched from that user's
// dispatcher worker.
type Session struct {
	ID        uint64 // generation, unique per Store
	UserID    int64
	ChatID    int64
	MessageID int // prompt or status message being edited
	State     State
	Platform  Platform
	Pending   transfer.Source

	// Current location. Authoritative; never derived from a token.
	Remote string
	Path   string
	Page   int

	offered map[string]Target
	cancel  context.CancelFunc
}

// ResetOffers forgets every action offered by the previous prompt.
func (s *Session) ResetOffers() {
	s.offered = make(map[string]Target)
}

// Offer registers an action for the prompt being built and returns its
// callback data. A different target already registered under the same
// string gets a "~n" suffix on the token.
func (s *Session) Offer(a pathcodec.Action, t Target) string {
	if s.offered == nil {
		s.offered = make(map[string]Target)
	}

	data := a.String()
	if prev, ok := s.offered[data]; !ok || prev == t {
		s.offered[data] = t
		return data
	}

	for n := 2; ; n++ {
		alt := pathcodec.Action{Verb: a.Verb, Payload: pathcodec.WithSuffix(a.Payload, n)}.String()
		if prev, ok := s.offered[alt]; !ok || prev == t {
			s.offered[alt] = t
			return alt
		}
	}
}

// Lookup resolves callback data offered by the current prompt.
func (s *Session) Lookup(data string) (Target, bool) {
	t, ok := s.offered[data]
	return t, ok
}

// Offered returns the number of live actions.
func (s *Session) Offered() int {
	return len(s.offered)
}

// Busy reports whether a transfer is running.
func (s *Session) Busy() bool {
	return s.State == StateTransferring
}

// BeginTransfer moves a confirmed session to Transferring and records the
// function that cancels the job.
func (s *Session) BeginTransfer(cancel context.CancelFunc) error {
	if s.State == StateTransferring {
		return ErrBusy
	}
	s.State = StateTransferring
	s.cancel = cancel
	return nil
}

// CancelTransfer cancels the running job. The session stays in
// Transferring until the job reports its terminal state.
func (s *Session) CancelTransfer() error {
	if s.State != StateTransferring || s.cancel == nil {
		return ErrNotTransferring
	}
	s.cancel()
	return nil
}

// close releases the job context and marks the session dead.
func (s *Session) close() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.State = StateClosed
	s.offered = nil
}

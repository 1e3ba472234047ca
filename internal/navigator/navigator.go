// Package navigator drives the button-based conversation that picks a
// destination: platform, then remote, then a directory on that remote.
// Every operation mutates the session it is given and returns an Outcome
// describing what the chat should show next.
package navigator

import (
	"context"
	"errors"
	"fmt"

	"github.com/rescale/courier/internal/logging"
	"github.com/rescale/courier/internal/pathcodec"
	"github.com/rescale/courier/internal/session"
)

var (
	// ErrConfigMissing means the user has not uploaded rclone.conf yet.
	ErrConfigMissing = errors.New("rclone config missing")

	// ErrNoRemotes means the stored config defines no remotes.
	ErrNoRemotes = errors.New("no remotes configured")

	// ErrStaleAction means a button does not belong to the current prompt.
	ErrStaleAction = errors.New("stale action")

	// ErrSessionMissing means there is no session to act on.
	ErrSessionMissing = errors.New("no active session")
)

// Operator-facing texts.
const (
	TextChoosePlatform = "📤 Select where to upload:"
	TextChooseRemote   = "🌩 Select a cloud storage:"
	TextConfigMissing  = "❌ Please upload your rclone.conf file first using /config"
	TextNoRemotes      = "❌ No remotes found in your rclone config"
	TextCancelled      = "❌ Upload cancelled"
	TextCancelling     = "⏳ Cancelling..."
	TextStale          = "❌ Session expired. Please try again."
)

// Button is one inline button.
type Button struct {
	Label  string
	Action string // callback data
}

// Prompt is the text and keyboard of the session message.
type Prompt struct {
	Text     string
	Keyboard [][]Button // nil removes the keyboard
}

// Outcome tells the caller what to render after an operation.
type Outcome struct {
	Prompt *Prompt // replace the session message; nil leaves it unchanged
	Notice string  // transient callback notice
	Alert  bool    // show Notice as a modal alert
	Start  bool    // destination confirmed: start the transfer
	Closed bool    // session is over; close it in the store
	Err    error   // the error behind a closing outcome, if any
}

// Lister queries the configured rclone remotes. *rclone.Runner implements it.
type Lister interface {
	ListRemotes(ctx context.Context, configPath string) ([]string, error)
	ListDirs(ctx context.Context, configPath, remote, path string) ([]string, error)
}

// Configs locates per-user rclone configs. *config.Config implements it.
type Configs interface {
	HasUserConfig(userID int64) bool
	UserConfigPath(userID int64) string
}

// Navigator implements the destination picker.
type Navigator struct {
	lister  Lister
	configs Configs
	logger  *logging.Logger
}

// New creates a navigator.
func New(lister Lister, configs Configs, logger *logging.Logger) *Navigator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Navigator{lister: lister, configs: configs, logger: logger}
}

// Begin shows the platform prompt for a freshly opened session.
func (n *Navigator) Begin(s *session.Session) Outcome {
	s.State = session.StateAwaitingPlatform
	s.ResetOffers()

	row := []Button{
		{Label: "📤 Telegram", Action: s.Offer(pathcodec.Platform(string(session.PlatformTelegram)), session.Target{Platform: session.PlatformTelegram})},
		{Label: "☁️ Rclone", Action: s.Offer(pathcodec.Platform(string(session.PlatformRclone)), session.Target{Platform: session.PlatformRclone})},
	}
	return Outcome{Prompt: &Prompt{Text: TextChoosePlatform, Keyboard: [][]Button{row, {n.cancelButton(s)}}}}
}

// Handle validates callback data against the session and runs the matching
// operation. A nil session yields ErrSessionMissing; data the current
// prompt did not offer yields ErrStaleAction and leaves the session as is.
func (n *Navigator) Handle(ctx context.Context, s *session.Session, data string) (Outcome, error) {
	if s == nil || s.State == session.StateClosed {
		return Outcome{}, ErrSessionMissing
	}

	action, ok := pathcodec.ParseAction(data)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %q", ErrStaleAction, data)
	}
	target, ok := s.Lookup(data)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %q", ErrStaleAction, data)
	}
	if !allowed(s.State, action) {
		return Outcome{}, fmt.Errorf("%w: %s in state %s", ErrStaleAction, action.Verb, s.State)
	}

	switch action.Verb {
	case pathcodec.VerbPlatform:
		return n.ChoosePlatform(ctx, s, target.Platform), nil
	case pathcodec.VerbNav:
		if action.Payload == pathcodec.PayloadRoot {
			return n.ShowRemotes(ctx, s), nil
		}
		return n.Navigate(ctx, s, target), nil
	case pathcodec.VerbPage:
		if action.Payload == pathcodec.PayloadPageInfo {
			return Outcome{}, nil
		}
		return n.Paginate(ctx, s, target.Page), nil
	case pathcodec.VerbSelect:
		return n.Select(s, target), nil
	case pathcodec.VerbCancel:
		return n.Cancel(s), nil
	}
	return Outcome{}, fmt.Errorf("%w: %q", ErrStaleAction, data)
}

// allowed reports whether verb is valid in state.
func allowed(state session.State, a pathcodec.Action) bool {
	switch a.Verb {
	case pathcodec.VerbPlatform:
		return state == session.StateAwaitingPlatform
	case pathcodec.VerbNav:
		return state == session.StateSelectingRemote || state == session.StateListing
	case pathcodec.VerbPage, pathcodec.VerbSelect:
		return state == session.StateListing
	case pathcodec.VerbCancel:
		return state != session.StateClosed
	}
	return false
}

// ChoosePlatform records the platform. Telegram starts the transfer at
// once; rclone moves on to the remote list.
func (n *Navigator) ChoosePlatform(ctx context.Context, s *session.Session, p session.Platform) Outcome {
	s.Platform = p
	if p == session.PlatformTelegram {
		s.State = session.StateConfirming
		s.ResetOffers()
		return Outcome{Start: true}
	}
	return n.ShowRemotes(ctx, s)
}

// ShowRemotes lists the user's remotes. The catalog is read fresh on every
// call.
func (n *Navigator) ShowRemotes(ctx context.Context, s *session.Session) Outcome {
	remotes, out, ok := n.remotes(ctx, s)
	if !ok {
		return out
	}

	s.State = session.StateSelectingRemote
	s.Remote, s.Path, s.Page = "", "", 0
	s.ResetOffers()

	var buttons []Button
	for _, r := range remotes {
		buttons = append(buttons, Button{
			Label:  "🌐 " + label(r),
			Action: s.Offer(pathcodec.Nav(pathcodec.Encode(r, "")), session.Target{Remote: r}),
		})
	}
	keyboard := grid(buttons)
	keyboard = append(keyboard, []Button{n.cancelButton(s)})
	return Outcome{Prompt: &Prompt{Text: TextChooseRemote, Keyboard: keyboard}}
}

// Navigate moves into target and lists it from the first page.
func (n *Navigator) Navigate(ctx context.Context, s *session.Session, target session.Target) Outcome {
	remotes, out, ok := n.remotes(ctx, s)
	if !ok {
		return out
	}
	if !contains(remotes, target.Remote) {
		// remote removed from the config since the prompt was drawn
		o := n.ShowRemotes(ctx, s)
		o.Notice = fmt.Sprintf("Remote %q is no longer configured", target.Remote)
		return o
	}

	s.Remote = target.Remote
	s.Path = targetPath(target)
	s.Page = 0
	return n.list(ctx, s)
}

// Paginate shows another page of the current directory.
func (n *Navigator) Paginate(ctx context.Context, s *session.Session, page int) Outcome {
	s.Page = page
	return n.list(ctx, s)
}

// Select confirms target as the destination directory.
func (n *Navigator) Select(s *session.Session, target session.Target) Outcome {
	s.Remote = target.Remote
	s.Path = targetPath(target)
	s.State = session.StateConfirming
	s.ResetOffers()
	return Outcome{Start: true, Prompt: &Prompt{Text: fmt.Sprintf("📂 Destination: %s:%s", s.Remote, s.Path)}}
}

// Cancel aborts the session, or the running transfer when there is one.
func (n *Navigator) Cancel(s *session.Session) Outcome {
	if s.State == session.StateTransferring {
		if err := s.CancelTransfer(); err != nil {
			return Outcome{Notice: err.Error()}
		}
		return Outcome{Notice: TextCancelling}
	}
	s.ResetOffers()
	return Outcome{Prompt: &Prompt{Text: TextCancelled}, Closed: true}
}

// CancelButton registers and returns the cancel button for the session's
// current prompt.
func (n *Navigator) CancelButton(s *session.Session) Button {
	return n.cancelButton(s)
}

func (n *Navigator) cancelButton(s *session.Session) Button {
	return Button{Label: "❌ Cancel Upload", Action: s.Offer(pathcodec.Cancel(), session.Target{})}
}

// remotes reads the catalog and returns a closing outcome when it is
// unusable.
func (n *Navigator) remotes(ctx context.Context, s *session.Session) ([]string, Outcome, bool) {
	if !n.configs.HasUserConfig(s.UserID) {
		s.ResetOffers()
		return nil, Outcome{Prompt: &Prompt{Text: TextConfigMissing}, Closed: true, Err: ErrConfigMissing}, false
	}

	remotes, err := n.lister.ListRemotes(ctx, n.configs.UserConfigPath(s.UserID))
	if err != nil {
		n.logger.Warn().Err(err).Int64("user", s.UserID).Msg("listing remotes failed")
	}
	if len(remotes) == 0 {
		s.ResetOffers()
		return nil, Outcome{Prompt: &Prompt{Text: TextNoRemotes}, Closed: true, Err: ErrNoRemotes}, false
	}
	return remotes, Outcome{}, true
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

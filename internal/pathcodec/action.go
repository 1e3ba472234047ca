package pathcodec

import (
	"strconv"
	"strings"

	"github.com/rescale/courier/internal/constants"
)

// Verb identifies what a button does.
type Verb string

const (
	VerbNav      Verb = "nav"
	VerbSelect   Verb = "sel"
	VerbPage     Verb = "page"
	VerbPlatform Verb = "platform"
	VerbCancel   Verb = "cancel"
)

// Reserved payloads.
const (
	PayloadRoot     = "root"   // nav_root: back to the remote list
	PayloadPageInfo = "info"   // page_info: inert "Page i/n" label
	PayloadUpload   = "upload" // cancel_upload
)

// Action is one button callback: "<verb>_<payload>".
type Action struct {
	Verb    Verb
	Payload string
}

// String renders the wire form, never longer than constants.MaxActionLen.
func (a Action) String() string {
	s := string(a.Verb) + "_" + a.Payload
	if len(s) <= constants.MaxActionLen {
		return s
	}
	return s[:constants.MaxActionLen-len(TruncMarker)] + TruncMarker
}

// ParseAction splits callback data into an Action. Unknown verbs and missing
// payloads return ok=false.
func ParseAction(data string) (Action, bool) {
	verb, payload, found := strings.Cut(data, "_")
	if !found || payload == "" {
		return Action{}, false
	}

	switch Verb(verb) {
	case VerbNav, VerbSelect, VerbPage, VerbPlatform, VerbCancel:
		return Action{Verb: Verb(verb), Payload: payload}, true
	default:
		return Action{}, false
	}
}

// PageNumber returns the page index carried by a page action.
func (a Action) PageNumber() (int, bool) {
	if a.Verb != VerbPage || a.Payload == PayloadPageInfo {
		return 0, false
	}
	n, err := strconv.Atoi(a.Payload)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Nav builds a navigate action for a token.
func Nav(token string) Action { return Action{Verb: VerbNav, Payload: token} }

// NavRoot builds the "back to remotes" action.
func NavRoot() Action { return Action{Verb: VerbNav, Payload: PayloadRoot} }

// Select builds a select-this-folder action for a token.
func Select(token string) Action { return Action{Verb: VerbSelect, Payload: token} }

// Page builds a pagination action.
func Page(n int) Action { return Action{Verb: VerbPage, Payload: strconv.Itoa(n)} }

// PageInfo builds the inert page label action.
func PageInfo() Action { return Action{Verb: VerbPage, Payload: PayloadPageInfo} }

// Platform builds a platform choice action.
func Platform(id string) Action { return Action{Verb: VerbPlatform, Payload: id} }

// Cancel builds the cancel action.
func Cancel() Action { return Action{Verb: VerbCancel, Payload: PayloadUpload} }

// WithSuffix disambiguates a token that collides with another one in the same
// prompt, keeping the result within MaxTokenLen.
func WithSuffix(token string, n int) string {
	suffix := "~" + strconv.Itoa(n)
	if len(token)+len(suffix) > MaxTokenLen {
		token = token[:MaxTokenLen-len(suffix)]
	}
	return token + suffix
}

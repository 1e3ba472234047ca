// Package pathcodec maps (remote, path) pairs onto short tokens that fit inside
// an inline-button callback payload, and parses the action strings built from them.
//
// Tokens come in two regimes:
//   - direct: "remote:path" when it fits DirectTokenBudget; Decode returns it unchanged.
//   - shortened: "remote:.../<segment>#<fingerprint>"; Decode only recovers a label.
//
// Tokens are labels and lookup keys. They are never the source of truth for
// where a session is in the remote tree.
package pathcodec

import (
	"crypto/md5"
	"encoding/base64"
	"regexp"
	"strings"

	"github.com/rescale/courier/internal/constants"
)

const (
	// FingerprintSep separates the display part of a shortened token from its digest.
	FingerprintSep = "#"

	// TruncMarker is appended when a token is cut to MaxTokenLen.
	TruncMarker = "_TRNC"

	// MaxTokenLen leaves room for the longest path-carrying verb prefix ("nav_", "sel_").
	MaxTokenLen = constants.MaxActionLen - len("nav_")

	ellipsisPrefix = ".../"
)

var (
	disallowed  = regexp.MustCompile(`[^\w/]`)
	repeatedSub = regexp.MustCompile(`_+`)
)

// Sanitize replaces every character outside [A-Za-z0-9_/] with "_" and
// collapses runs of "_". The result is pure ASCII and Sanitize is idempotent.
func Sanitize(s string) string {
	s = disallowed.ReplaceAllString(s, "_")
	return repeatedSub.ReplaceAllString(s, "_")
}

// Encode returns the token for (remote, path). The result never exceeds MaxTokenLen.
func Encode(remote, path string) string {
	remote = Sanitize(remote)
	path = Sanitize(path)

	combined := remote + ":" + path
	if len(combined) <= constants.DirectTokenBudget {
		return combined
	}

	parts := strings.Split(path, "/")
	last := truncate(parts[len(parts)-1], constants.SegmentDisplayLen)

	var shortened string
	if len(parts) > 1 {
		shortened = ellipsisPrefix + last
	} else {
		shortened = last
	}

	return clamp(remote + ":" + shortened + FingerprintSep + Fingerprint(path))
}

// Decode strips the fingerprint from a token. For shortened tokens the result is
// a display label ("remote:.../segment"), not a path usable for listing.
func Decode(token string) string {
	if i := strings.Index(token, FingerprintSep); i >= 0 {
		return token[:i]
	}
	return token
}

// Fingerprint returns the first FingerprintLen characters of the base64url MD5
// digest of s.
func Fingerprint(s string) string {
	sum := md5.Sum([]byte(s))
	return base64.URLEncoding.EncodeToString(sum[:])[:constants.FingerprintLen]
}

// IsShortened reports whether token is in the fingerprinted regime.
func IsShortened(token string) bool {
	return strings.Contains(token, FingerprintSep)
}

func clamp(token string) string {
	if len(token) <= MaxTokenLen {
		return token
	}
	return token[:MaxTokenLen-len(TruncMarker)] + TruncMarker
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

package constants

import (
	"time"
)

// Path codec budgets
const (
	// DirectTokenBudget - "remote:path" strings up to this length are used as-is (40 bytes).
	// Conservative so that the verb prefix and any collision suffix still fit.
	DirectTokenBudget = 40

	// MaxActionLen - hard ceiling on a button callback payload (64 bytes, Bot API limit)
	MaxActionLen = 64

	// FingerprintLen - characters of the base64url path digest kept in shortened tokens
	FingerprintLen = 6

	// SegmentDisplayLen - characters of the trailing path segment kept in shortened tokens
	SegmentDisplayLen = 10
)

// Navigation
const (
	// ItemsPerPage - directory buttons per listing page
	ItemsPerPage = 10

	// ButtonsPerRow - directory/remote buttons per keyboard row
	ButtonsPerRow = 2

	// ButtonLabelLen - label characters before "..." is appended
	ButtonLabelLen = 15

	// NoticeMaxLen - transient callback notices are cut to this length (Bot API allows 200)
	NoticeMaxLen = 200
)

// Progress reporting
const (
	// ProgressInterval - minimum time between two rendered progress samples (0.5 seconds)
	// Keeps message edits under the Bot API edit-rate tolerance.
	ProgressInterval = 500 * time.Millisecond

	// ToolProgressInterval - minimum time between renders of external tool stats (1 second)
	ToolProgressInterval = 1 * time.Second

	// ProgressBarWidth - glyphs in the rendered progress bar
	ProgressBarWidth = 20

	// DisplayNameLen - file names longer than this are truncated in status messages
	DisplayNameLen = 30
)

// Transfer pipeline
const (
	// ChunkSize - read size while staging a source stream (64 KB)
	ChunkSize = 64 * 1024

	// StderrTailLines - lines of the external tool's stderr surfaced on failure
	StderrTailLines = 5

	// StderrLineMax - each surfaced stderr line is cut to this many bytes
	StderrLineMax = 300

	// ErrorTextMax - free-form error text in status messages is cut to this length
	ErrorTextMax = 1000

	// DiskSpaceSafetyMargin - staging requires this multiple of the source size free
	DiskSpaceSafetyMargin = 1.05

	// ToolWaitDelay - grace period for the external tool's pipes after it is killed
	ToolWaitDelay = 5 * time.Second
)

// Bot API polling and dispatch
const (
	// PollTimeout - long-poll timeout for getUpdates
	PollTimeout = 50 * time.Second

	// DispatcherIdleTimeout - a per-user worker exits after this long without work
	DispatcherIdleTimeout = 2 * time.Minute
)

// HTTP Client Timeouts
const (
	// HTTPIdleConnTimeout - how long to keep idle connections open (90 seconds)
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - timeout for TLS handshake (60 seconds)
	HTTPTLSHandshakeTimeout = 60 * time.Second

	// HTTPExpectContinueTimeout - timeout for 100-continue response (1 second)
	HTTPExpectContinueTimeout = 1 * time.Second

	// HTTPDialTimeout - timeout for establishing connection (30 seconds)
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - keep-alive period for dialer (30 seconds)
	HTTPDialKeepAlive = 30 * time.Second

	// HTTPResponseHeaderTimeout - time to wait for response headers on a source URL
	HTTPResponseHeaderTimeout = 60 * time.Second
)

// File permissions
const (
	// DirPerm - per-user config and staging directories
	DirPerm = 0700

	// ConfigFilePerm - stored rclone.conf (contains credentials)
	ConfigFilePerm = 0600
)

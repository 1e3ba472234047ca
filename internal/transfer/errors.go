package transfer

import "errors"

// Job failure taxonomy. Errors returned by Pipeline.Run wrap exactly one of
// these; check with errors.Is.
var (
	// ErrUnsupportedSource means the inbound item kind is not handled.
	ErrUnsupportedSource = errors.New("unsupported source")

	// ErrDownloadFailed covers network, source-stream and staging errors.
	ErrDownloadFailed = errors.New("download failed")

	// ErrUploadFailed means the messaging endpoint rejected the re-upload.
	ErrUploadFailed = errors.New("upload failed")

	// ErrTransferToolFailed means rclone exited non-zero. The wrapped
	// *rclone.ToolError carries the exit code and stderr tail.
	ErrTransferToolFailed = errors.New("transfer tool failed")

	// ErrCancelled means the operator cancelled the job.
	ErrCancelled = errors.New("transfer cancelled")

	// ErrInvalidTransition is returned when a terminal job is moved again.
	ErrInvalidTransition = errors.New("invalid job state transition")
)

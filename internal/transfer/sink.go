package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rescale/courier/internal/constants"
	"github.com/rescale/courier/internal/progress"
	"github.com/rescale/courier/internal/rclone"
)

// MessagingDestination is the Update.Destination label for re-uploads to
// the chat.
const MessagingDestination = "Telegram"

// DefaultCaption accompanies files re-uploaded to the chat.
const DefaultCaption = "📤 Here's your uploaded file"

// StagedFile is a fully written staging file.
type StagedFile struct {
	Path string
	Name string
	Size int64
}

// Sink delivers a staged file. Deliver returns a human-readable destination
// on success.
type Sink interface {
	Label() string
	Deliver(ctx context.Context, file StagedFile, reporter progress.Reporter) (string, error)
}

// Uploader sends a local file to a chat as a document. onProgress receives
// the running byte count.
type Uploader interface {
	UploadDocument(ctx context.Context, chatID int64, path, caption string, onProgress func(sent int64)) error
}

// MessagingSink re-uploads the staged file to the originating chat.
type MessagingSink struct {
	Uploader Uploader
	ChatID   int64
	Caption  string
}

// Label implements Sink.
func (s *MessagingSink) Label() string { return MessagingDestination }

// Deliver implements Sink.
func (s *MessagingSink) Deliver(ctx context.Context, file StagedFile, reporter progress.Reporter) (string, error) {
	caption := s.Caption
	if caption == "" {
		caption = DefaultCaption
	}

	sampler := progress.NewSampler(file.Size, constants.ProgressInterval, time.Now())
	onProgress := func(sent int64) {
		if snap, ok := sampler.Observe(sent, time.Now()); ok {
			_ = reporter.Report(ctx, progress.Update{
				Phase:       progress.PhaseUploading,
				FileName:    file.Name,
				Destination: MessagingDestination,
				Snapshot:    snap,
			})
		}
	}

	if err := s.Uploader.UploadDocument(ctx, s.ChatID, file.Path, caption, onProgress); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	return MessagingDestination, nil
}

// Copier copies one local file to a remote. *rclone.Runner implements it.
type Copier interface {
	Copy(ctx context.Context, req rclone.CopyRequest, onStats func(rclone.Stats)) error
}

// RemoteSink copies the staged file into remote:path with rclone.
type RemoteSink struct {
	Copier     Copier
	ConfigPath string
	Remote     string
	Path       string
}

// Label implements Sink.
func (s *RemoteSink) Label() string { return s.Remote }

// Deliver implements Sink. Byte progress comes from the tool's stats lines,
// reconciled against the local size; percent is derived from the local
// size, speed and ETA are shown as the tool printed them.
func (s *RemoteSink) Deliver(ctx context.Context, file StagedFile, reporter progress.Reporter) (string, error) {
	req := rclone.CopyRequest{
		ConfigPath: s.ConfigPath,
		Source:     file.Path,
		Remote:     s.Remote,
		Path:       s.Path,
	}

	rec := rclone.Reconciler{Total: file.Size}
	// zero start: the first parsed line renders at once
	sampler := progress.NewSampler(rec.Total, constants.ToolProgressInterval, time.Time{})
	onStats := func(st rclone.Stats) {
		confirmed := rec.Observe(st)
		snap, ok := sampler.Observe(confirmed, time.Now())
		if !ok {
			return
		}
		if rec.Total > 0 {
			snap.Percent = progress.Clamp(rec.Percent())
		}
		if st.Speed != "" {
			snap.Speed = st.Speed
		}
		_ = reporter.Report(ctx, progress.Update{
			Phase:       progress.PhaseUploading,
			FileName:    file.Name,
			Destination: s.Remote,
			Snapshot:    snap,
			ETA:         st.ETA,
		})
	}

	if err := s.Copier.Copy(ctx, req, onStats); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		var toolErr *rclone.ToolError
		if errors.As(err, &toolErr) {
			return "", fmt.Errorf("%w: %w", ErrTransferToolFailed, toolErr)
		}
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	return req.Destination(), nil
}

package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/rescale/courier/internal/constants"
	"github.com/rescale/courier/internal/diskspace"
	"github.com/rescale/courier/internal/logging"
	"github.com/rescale/courier/internal/progress"
	"github.com/rescale/courier/internal/util/buffers"
)

// Result is the outcome of one job.
type Result struct {
	JobID       string
	State       State
	FileName    string
	Size        int64
	Destination string
	Err         error
}

// Pipeline runs jobs: stage, deliver, clean up.
type Pipeline struct {
	logger *logging.Logger
}

// NewPipeline creates a pipeline.
func NewPipeline(logger *logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Pipeline{logger: logger}
}

// Run executes job to a terminal state. Progress goes to reporter; its
// errors are logged and ignored. The staging file is removed before Run
// returns, whatever the outcome.
func (p *Pipeline) Run(ctx context.Context, job *Job, reporter progress.Reporter) Result {
	if reporter == nil {
		reporter = progress.NoOpProgress{}
	}
	log := p.logger.Child(func(c zerolog.Context) zerolog.Context {
		return c.Str("job", job.ID).Int64("user", job.UserID)
	})
	reporter = &safeReporter{inner: reporter, logger: log}

	res := Result{JobID: job.ID}
	staged, err := p.stage(ctx, job, reporter)
	if err == nil {
		res.FileName = staged.Name
		res.Size = staged.Size
		err = job.startTransfer()
	}
	if err == nil {
		log.Info().Str("file", staged.Name).Int64("size", staged.Size).Str("sink", job.Sink.Label()).Msg("delivering staged file")
		res.Destination, err = job.Sink.Deliver(ctx, staged, reporter)
	}

	res.State, res.Err = classify(ctx, err)
	if rmErr := job.finish(res.State, res.Err); rmErr != nil {
		log.Warn().Err(rmErr).Msg("staging cleanup failed")
	}

	switch res.State {
	case StateSucceeded:
		log.Info().Str("destination", res.Destination).Msg("transfer succeeded")
	case StateCancelled:
		log.Info().Msg("transfer cancelled")
	default:
		log.Error().Err(res.Err).Msg("transfer failed")
	}
	return res
}

func classify(ctx context.Context, err error) (State, error) {
	switch {
	case err == nil:
		return StateSucceeded, nil
	case ctx.Err() != nil, errors.Is(err, context.Canceled):
		return StateCancelled, ErrCancelled
	default:
		return StateFailed, err
	}
}

// stage copies the source into the job's staging directory.
func (p *Pipeline) stage(ctx context.Context, job *Job, reporter progress.Reporter) (StagedFile, error) {
	stream, err := job.Source.Acquire(ctx)
	if err != nil {
		return StagedFile{}, err
	}
	defer stream.Body.Close()

	if err := os.MkdirAll(job.StagingDir, constants.DirPerm); err != nil {
		return StagedFile{}, fmt.Errorf("%w: failed to create staging directory: %w", ErrDownloadFailed, err)
	}
	if stream.Size > 0 {
		if err := diskspace.EnsureRoom(job.StagingDir, stream.Size, constants.DiskSpaceSafetyMargin); err != nil {
			return StagedFile{}, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
		}
	}

	path := filepath.Join(job.StagingDir, stream.Name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return StagedFile{}, fmt.Errorf("%w: failed to create staging file: %w", ErrDownloadFailed, err)
	}
	job.setStagedPath(path)

	written, err := copyChunks(ctx, f, stream, reporter)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("%w: failed to close staging file: %w", ErrDownloadFailed, closeErr)
	}
	if err != nil {
		return StagedFile{}, err
	}

	staged := StagedFile{Path: path, Name: stream.Name, Size: written}
	_ = reporter.Report(ctx, progress.Update{
		Phase:       progress.PhaseStaged,
		FileName:    staged.Name,
		Destination: job.Sink.Label(),
		Snapshot:    progress.Compute(written, progress.Sample{Bytes: written}, time.Now(), written),
	})
	return staged, nil
}

// copyChunks copies in ChunkSize reads, checking ctx before each read and
// sampling progress after each write.
func copyChunks(ctx context.Context, dst io.Writer, stream *Stream, reporter progress.Reporter) (int64, error) {
	bp := buffers.GetChunkBuffer()
	defer buffers.PutChunkBuffer(bp)
	buf := *bp
	sampler := progress.NewSampler(stream.Size, constants.ProgressInterval, time.Now())
	var written int64

	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, readErr := stream.Body.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, fmt.Errorf("%w: failed to write staging file: %w", ErrDownloadFailed, err)
			}
			written += int64(n)
			if snap, ok := sampler.Observe(written, time.Now()); ok {
				_ = reporter.Report(ctx, progress.Update{
					Phase:    progress.PhaseDownloading,
					FileName: stream.Name,
					Snapshot: snap,
				})
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return written, ctx.Err()
			}
			return written, fmt.Errorf("%w: %w", ErrDownloadFailed, readErr)
		}
	}
}

// safeReporter logs and swallows render errors so a failed status edit
// never fails the transfer.
type safeReporter struct {
	inner  progress.Reporter
	logger *logging.Logger
}

func (r *safeReporter) Report(ctx context.Context, u progress.Update) error {
	if err := r.inner.Report(ctx, u); err != nil {
		r.logger.Warn().Err(err).Str("phase", string(u.Phase)).Msg("progress render failed")
	}
	return nil
}

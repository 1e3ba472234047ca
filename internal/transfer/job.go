// Package transfer moves one inbound item to one destination: it stages the
// source to local disk, hands the staged file to a sink, reports progress
// along the way and always removes the staging file when the job ends.
package transfer

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State represents the current state of a transfer job.
type State string

const (
	StateStaging      State = "staging"      // Source is being copied to the staging file
	StateTransferring State = "transferring" // Staged file is being delivered to the sink
	StateSucceeded    State = "succeeded"
	StateFailed       State = "failed"
	StateCancelled    State = "cancelled"
)

// IsTerminal reports whether no further transitions are allowed.
func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateCancelled
}

// Job is a single transfer. Thread-safe: use the provided methods to read
// state while Pipeline.Run is executing it.
type Job struct {
	ID         string
	UserID     int64
	Source     Source
	Sink       Sink
	StagingDir string

	mu          sync.RWMutex
	state       State
	stagedPath  string
	err         error
	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

// NewJob creates a job in StateStaging.
func NewJob(userID int64, src Source, sink Sink, stagingDir string) *Job {
	return &Job{
		ID:         uuid.NewString(),
		UserID:     userID,
		Source:     src,
		Sink:       sink,
		StagingDir: stagingDir,
		state:      StateStaging,
		CreatedAt:  time.Now(),
	}
}

// State returns the current state (thread-safe).
func (j *Job) State() State {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.state
}

// Err returns the error that ended the job, if any (thread-safe).
func (j *Job) Err() error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.err
}

// StagedPath returns the staging file path, empty before staging starts.
func (j *Job) StagedPath() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.stagedPath
}

func (j *Job) setStagedPath(path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stagedPath = path
}

// startTransfer moves Staging -> Transferring.
func (j *Job) startTransfer() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != StateStaging {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.state, StateTransferring)
	}
	j.state = StateTransferring
	j.StartedAt = time.Now()
	return nil
}

// finish removes the staging file and moves the job to a terminal state.
// The file is gone before the terminal state becomes visible. A removal
// failure is returned but does not change the outcome.
func (j *Job) finish(to State, cause error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state.IsTerminal() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.state, to)
	}

	var rmErr error
	if j.stagedPath != "" {
		if err := os.Remove(j.stagedPath); err != nil && !os.IsNotExist(err) {
			rmErr = fmt.Errorf("failed to remove staging file: %w", err)
		}
	}

	j.state = to
	j.err = cause
	j.CompletedAt = time.Now()
	return rmErr
}

package diskspace

import (
	"fmt"
	"strings"
	"testing"
)

func TestEnsureRoom(t *testing.T) {
	dir := t.TempDir()

	t.Run("SmallFile", func(t *testing.T) {
		if err := EnsureRoom(dir, 1024, 1.05); err != nil {
			t.Errorf("Expected no error for small file, got: %v", err)
		}
	})

	t.Run("UnknownSize", func(t *testing.T) {
		if err := EnsureRoom(dir, -1, 1.05); err != nil {
			t.Errorf("unknown size should pass, got: %v", err)
		}
	})

	t.Run("MoreThanAvailable", func(t *testing.T) {
		available, ok := Available(dir)
		if !ok {
			t.Skip("Could not determine available space")
		}
		err := EnsureRoom(dir, available+1, 1.0)
		if !IsInsufficientSpaceError(err) {
			t.Errorf("Expected InsufficientSpaceError, got: %v", err)
		}
	})

	t.Run("UnqueryableDirPasses", func(t *testing.T) {
		if err := EnsureRoom(dir+"/does/not/exist", 1<<40, 1.0); err != nil {
			t.Errorf("missing directory should pass, got: %v", err)
		}
	})
}

func TestIsInsufficientSpaceError(t *testing.T) {
	err := &InsufficientSpaceError{Dir: "/tmp", RequiredBytes: 1000, AvailableBytes: 500}

	if !IsInsufficientSpaceError(err) {
		t.Error("Expected IsInsufficientSpaceError to return true")
	}
	if !IsInsufficientSpaceError(fmt.Errorf("staging: %w", err)) {
		t.Error("Expected wrapped error to match")
	}
	if IsInsufficientSpaceError(fmt.Errorf("some other error")) {
		t.Error("Expected false for non-disk-space error")
	}
	if IsInsufficientSpaceError(nil) {
		t.Error("Expected false for nil")
	}
}

func TestInsufficientSpaceErrorMessage(t *testing.T) {
	err := &InsufficientSpaceError{
		Dir:            "/data/downloads/42",
		RequiredBytes:  1024 * 1024 * 100,
		AvailableBytes: 1024 * 1024 * 50,
	}

	msg := err.Error()
	for _, want := range []string{"/data/downloads/42", "100.00", "50.00"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q should contain %q", msg, want)
		}
	}
}

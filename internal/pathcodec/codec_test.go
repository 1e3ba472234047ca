package pathcodec

import (
	"strings"
	"testing"

	"github.com/rescale/courier/internal/constants"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "clean path", input: "backups/2024", expected: "backups/2024"},
		{name: "spaces", input: "My Documents/old files", expected: "My_Documents/old_files"},
		{name: "dots and dashes", input: "v1.2-final", expected: "v1_2_final"},
		{name: "collapse runs", input: "a  --  b", expected: "a_b"},
		{name: "existing underscores collapse", input: "a___b", expected: "a_b"},
		{name: "unicode", input: "Фото/лето", expected: "_/_"},
		{name: "colon and hash", input: "x:y#z", expected: "x_y_z"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.input); got != tt.expected {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{
		"plain",
		"with spaces and  double",
		"__leading and trailing__",
		"mixed/ünïcödé/…/path",
		"a_-_b",
		"../../etc/passwd",
		strings.Repeat("x y ", 50),
	}

	for _, in := range inputs {
		once := Sanitize(in)
		if twice := Sanitize(once); twice != once {
			t.Errorf("Sanitize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestEncodeDirectRoundTrip(t *testing.T) {
	tests := []struct {
		remote string
		path   string
	}{
		{"gdrive", ""},
		{"gdrive", "backups"},
		{"gdrive", "backups/2024/photos"},
		{"s3_backup", "bucket/dir"},
		{"r", strings.Repeat("a", constants.DirectTokenBudget-2)},
	}

	for _, tt := range tests {
		combined := tt.remote + ":" + tt.path
		if len(combined) > constants.DirectTokenBudget {
			t.Fatalf("test case %q exceeds the direct budget", combined)
		}

		token := Encode(tt.remote, tt.path)
		if token != combined {
			t.Errorf("Encode(%q, %q) = %q, want direct %q", tt.remote, tt.path, token, combined)
		}
		if got := Decode(token); got != combined {
			t.Errorf("Decode(Encode(%q, %q)) = %q, want %q", tt.remote, tt.path, got, combined)
		}
		if IsShortened(token) {
			t.Errorf("token %q should be direct", token)
		}
	}
}

func TestEncodeShortened(t *testing.T) {
	path := "projects/clients/acme/deliverables/final_renders_2024"
	token := Encode("gdrive", path)

	if !IsShortened(token) {
		t.Fatalf("expected shortened token, got %q", token)
	}

	wantPrefix := "gdrive:.../final_rend#"
	if !strings.HasPrefix(token, wantPrefix) {
		t.Errorf("token %q should start with %q", token, wantPrefix)
	}
	if fp := strings.TrimPrefix(token, wantPrefix); fp != Fingerprint(path) {
		t.Errorf("fingerprint = %q, want %q", fp, Fingerprint(path))
	}
	if len(Fingerprint(path)) != constants.FingerprintLen {
		t.Errorf("fingerprint length %d", len(Fingerprint(path)))
	}

	if got := Decode(token); got != "gdrive:.../final_rend" {
		t.Errorf("Decode = %q", got)
	}
}

func TestEncodeShortenedSingleSegment(t *testing.T) {
	token := Encode("gdrive", strings.Repeat("z", 60))
	if token != "gdrive:zzzzzzzzzz#"+Fingerprint(strings.Repeat("z", 60)) {
		t.Errorf("unexpected token %q", token)
	}
}

func TestEncodeFingerprintUsesSanitizedPath(t *testing.T) {
	raw := "some folder/with many spaces/and more words in it"
	token := Encode("gdrive", raw)
	if !strings.HasSuffix(token, Fingerprint(Sanitize(raw))) {
		t.Errorf("token %q should carry the sanitized-path fingerprint", token)
	}
}

func TestEncodeNeverExceedsCeiling(t *testing.T) {
	remotes := []string{
		"g",
		"gdrive",
		strings.Repeat("remote", 12),
		strings.Repeat("r", 200),
	}
	paths := []string{
		"",
		"a",
		strings.Repeat("deep/", 40),
		strings.Repeat("x", 500),
		strings.Repeat("ü", 100),
		"a/b/" + strings.Repeat("segment", 20),
	}

	for _, r := range remotes {
		for _, p := range paths {
			token := Encode(r, p)
			if len(token) > MaxTokenLen {
				t.Errorf("Encode(len %d, len %d) = %d bytes, exceeds %d", len(r), len(p), len(token), MaxTokenLen)
			}
			if len(Nav(token).String()) > constants.MaxActionLen {
				t.Errorf("nav action for %q exceeds %d bytes", token, constants.MaxActionLen)
			}
			if len(Select(token).String()) > constants.MaxActionLen {
				t.Errorf("sel action for %q exceeds %d bytes", token, constants.MaxActionLen)
			}
		}
	}
}

func TestEncodeLongRemoteGetsTruncMarker(t *testing.T) {
	token := Encode(strings.Repeat("r", 100), "dir/sub")
	if !strings.HasSuffix(token, TruncMarker) {
		t.Errorf("expected %q suffix, got %q", TruncMarker, token)
	}
	if len(token) != MaxTokenLen {
		t.Errorf("expected length %d, got %d", MaxTokenLen, len(token))
	}
}

func TestDecodeWithoutFingerprint(t *testing.T) {
	if got := Decode("gdrive:backups"); got != "gdrive:backups" {
		t.Errorf("Decode = %q", got)
	}
}

package transfer

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"testing"
)

func TestURLFileName(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		disposition string
		want        string
		pattern     string
	}{
		{name: "disposition", url: "https://example.com/dl?id=1", disposition: `attachment; filename="report.pdf"`, want: "report.pdf"},
		{name: "url tail", url: "https://example.com/files/video.mp4?token=abc", want: "video.mp4"},
		{name: "escaped tail", url: "https://example.com/my%20notes.txt", want: "my notes.txt"},
		{name: "unsafe characters", url: "https://example.com/a", disposition: `attachment; filename="x:y?.txt"`, want: "x_y_.txt"},
		{name: "empty path", url: "https://example.com/", pattern: `^download_[0-9a-f]{32}\.bin$`},
		{name: "short name keeps url extension", url: "https://example.com/archive.tar", disposition: `attachment; filename="x"`, pattern: `^download_[0-9a-f]{32}\.tar$`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := URLFileName(tt.url, tt.disposition)
			if tt.pattern != "" {
				if !regexp.MustCompile(tt.pattern).MatchString(got) {
					t.Errorf("URLFileName = %q, want match %s", got, tt.pattern)
				}
				return
			}
			if got != tt.want {
				t.Errorf("URLFileName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMediaSourceName(t *testing.T) {
	tests := []struct {
		src  MediaSource
		want string
	}{
		{MediaSource{Kind: KindDocument, FileID: "1", FileName: "notes.txt"}, "notes.txt"},
		{MediaSource{Kind: KindDocument, FileID: "1"}, "document_1"},
		{MediaSource{Kind: KindVideo, FileID: "2"}, "video_2.mp4"},
		{MediaSource{Kind: KindVideo, FileID: "2", FileName: "clip.mov"}, "clip.mov"},
		{MediaSource{Kind: KindAudio, FileID: "3"}, "audio_3.mp3"},
		{MediaSource{Kind: KindPhoto, FileID: "4", FileName: "ignored.png"}, "photo_4.jpg"},
	}

	for _, tt := range tests {
		if got := tt.src.Name(); got != tt.want {
			t.Errorf("Name(%+v) = %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestMediaSourceFetchError(t *testing.T) {
	src := &MediaSource{Kind: KindDocument, FileID: "1", Fetcher: &fakeFetcher{err: errors.New("file is too big")}}
	_, err := src.Acquire(context.Background())
	if !errors.Is(err, ErrDownloadFailed) {
		t.Errorf("expected ErrDownloadFailed, got %v", err)
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("twelve bytes"), 0600); err != nil {
		t.Fatal(err)
	}

	stream, err := (&FileSource{Path: path}).Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer stream.Body.Close()

	if stream.Name != "notes.txt" || stream.Size != 12 {
		t.Errorf("stream = %q (%d bytes)", stream.Name, stream.Size)
	}
	data, _ := io.ReadAll(stream.Body)
	if string(data) != "twelve bytes" {
		t.Errorf("body = %q", data)
	}
}

func TestFileSourceErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := (&FileSource{Path: filepath.Join(dir, "missing")}).Acquire(context.Background())
	if !errors.Is(err, ErrDownloadFailed) {
		t.Errorf("missing file: expected ErrDownloadFailed, got %v", err)
	}

	_, err = (&FileSource{Path: dir}).Acquire(context.Background())
	if !errors.Is(err, ErrUnsupportedSource) {
		t.Errorf("directory: expected ErrUnsupportedSource, got %v", err)
	}
}

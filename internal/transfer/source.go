package transfer

import (
	"context"
	"fmt"
	"io"
	"mime"
	nethttp "net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/rescale/courier/internal/util/sanitize"
)

// Stream is an opened source: a display name, a size hint (-1 when unknown)
// and the bytes.
type Stream struct {
	Name string
	Size int64
	Body io.ReadCloser
}

// Source is an inbound item that can be opened as a Stream. Acquire is
// called once per job.
type Source interface {
	Acquire(ctx context.Context) (*Stream, error)
}

// MediaKind is the kind of an inbound messaging item.
type MediaKind string

const (
	KindDocument MediaKind = "document"
	KindVideo    MediaKind = "video"
	KindAudio    MediaKind = "audio"
	KindPhoto    MediaKind = "photo"
)

// Fetcher opens a file held by the messaging endpoint.
type Fetcher interface {
	OpenFile(ctx context.Context, fileID string) (io.ReadCloser, int64, error)
}

// MediaSource is a file sent to the bot.
type MediaSource struct {
	Kind     MediaKind
	FileID   string
	FileName string // may be empty
	Size     int64  // as announced by the endpoint, 0 when unknown
	Fetcher  Fetcher
}

// Name returns the file name to stage under, synthesizing one from the
// file id when the item carries none.
func (s *MediaSource) Name() string {
	if name := sanitize.FileName(s.FileName); name != "" && s.Kind != KindPhoto {
		return name
	}
	switch s.Kind {
	case KindVideo:
		return fmt.Sprintf("video_%s.mp4", s.FileID)
	case KindAudio:
		return fmt.Sprintf("audio_%s.mp3", s.FileID)
	case KindPhoto:
		return fmt.Sprintf("photo_%s.jpg", s.FileID)
	default:
		return fmt.Sprintf("document_%s", s.FileID)
	}
}

// Acquire opens the file through the Fetcher.
func (s *MediaSource) Acquire(ctx context.Context) (*Stream, error) {
	switch s.Kind {
	case KindDocument, KindVideo, KindAudio, KindPhoto:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSource, s.Kind)
	}

	body, size, err := s.Fetcher.OpenFile(ctx, s.FileID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}
	if size <= 0 && s.Size > 0 {
		size = s.Size
	}
	if size <= 0 {
		size = -1
	}

	return &Stream{Name: s.Name(), Size: size, Body: body}, nil
}

// FileSource is a file on the local disk, used by the copy command.
type FileSource struct {
	Path string
}

// Acquire opens the file.
func (s *FileSource) Acquire(ctx context.Context) (*Stream, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%w: %s is a directory", ErrUnsupportedSource, s.Path)
	}

	name := sanitize.FileName(filepath.Base(s.Path))
	if name == "" {
		name = "file_" + uuid.New().String()[:8]
	}
	return &Stream{Name: name, Size: info.Size(), Body: f}, nil
}

// URLSource downloads a direct link. Client must not retry; a failed
// request fails the job.
type URLSource struct {
	URL    string
	Client *nethttp.Client
}

// Acquire issues a streaming GET.
func (s *URLSource) Acquire(ctx context.Context) (*Stream, error) {
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}

	client := s.Client
	if client == nil {
		client = nethttp.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s returned HTTP %d", ErrDownloadFailed, redactURL(s.URL), resp.StatusCode)
	}

	size := resp.ContentLength
	if size <= 0 {
		size = -1
	}

	return &Stream{
		Name: URLFileName(s.URL, resp.Header.Get("Content-Disposition")),
		Size: size,
		Body: resp.Body,
	}, nil
}

// URLFileName picks a file name for a download: the Content-Disposition
// filename, else the last URL path segment, else a synthesized
// "download_<uuid>.<ext>" when fewer than three characters remain.
func URLFileName(rawURL, contentDisposition string) string {
	var name string
	if contentDisposition != "" {
		if _, params, err := mime.ParseMediaType(contentDisposition); err == nil {
			name = params["filename"]
		}
	}

	tail := urlTail(rawURL)
	if name == "" {
		name = tail
	}

	name = sanitize.FileName(name)
	if len(name) >= 3 {
		return name
	}

	ext := "bin"
	if i := strings.LastIndex(tail, "."); i >= 0 && i < len(tail)-1 {
		ext = sanitize.FileName(tail[i+1:])
	}
	return fmt.Sprintf("download_%s.%s", strings.ReplaceAll(uuid.NewString(), "-", ""), ext)
}

func urlTail(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	tail := path.Base(u.Path)
	if tail == "/" || tail == "." {
		return ""
	}
	if unescaped, err := url.PathUnescape(tail); err == nil {
		tail = unescaped
	}
	return tail
}

// redactURL drops the query string, which may carry credentials.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "URL"
	}
	u.RawQuery = ""
	u.User = nil
	return u.String()
}

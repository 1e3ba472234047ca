package telegram

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rescale/courier/internal/progress"
)

// OpenFile streams a file held by the Bot API. The size is -1 when
// unknown. A local Bot API server returns absolute paths, which are opened
// directly.
func (c *Client) OpenFile(ctx context.Context, fileID string) (io.ReadCloser, int64, error) {
	f, err := c.GetFile(ctx, fileID)
	if err != nil {
		return nil, 0, err
	}

	if filepath.IsAbs(f.FilePath) {
		if local, err := os.Open(f.FilePath); err == nil {
			size := f.FileSize
			if info, err := local.Stat(); err == nil {
				size = info.Size()
			}
			return local, size, nil
		}
	}

	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, c.baseURL+"/file/bot"+c.token+"/"+f.FilePath, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("file download failed: %s", redactToken(err.Error()))
	}
	if resp.StatusCode != nethttp.StatusOK {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("file download failed: HTTP %d", resp.StatusCode)
	}

	size := resp.ContentLength
	if size <= 0 {
		size = f.FileSize
	}
	if size <= 0 {
		size = -1
	}
	return resp.Body, size, nil
}

// DownloadFile reads a small file into memory, failing when it exceeds max
// bytes.
func (c *Client) DownloadFile(ctx context.Context, fileID string, max int64) ([]byte, error) {
	body, _, err := c.OpenFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, max+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("file exceeds %d bytes", max)
	}
	return data, nil
}

// UploadDocument sends the file at path to chatID as a document, streaming
// the multipart body. onProgress receives the running byte count of the
// file part; it runs on the goroutine producing the body.
func (c *Client) UploadDocument(ctx context.Context, chatID int64, path, caption string, onProgress func(sent int64)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if err := c.limits.Wait(ctx, "sendDocument", chatID); err != nil {
		return fmt.Errorf("rate limiter cancelled: %w", err)
	}

	pr, pw := io.Pipe()
	defer pr.Close()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeDocumentForm(mw, chatID, caption, filepath.Base(path), progress.NewProgressReader(f, onProgress))
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodPost, c.methodURL("sendDocument"), pr)
	if err != nil {
		pr.CloseWithError(err)
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.stream.Do(req)
	if err != nil {
		pr.CloseWithError(err)
		return fmt.Errorf("telegram sendDocument failed: %s", redactToken(err.Error()))
	}
	defer resp.Body.Close()

	return c.decode("sendDocument", chatID, resp, nil)
}

func writeDocumentForm(mw *multipart.Writer, chatID int64, caption, name string, body io.Reader) error {
	if err := mw.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return err
	}
	if caption != "" {
		if err := mw.WriteField("caption", caption); err != nil {
			return err
		}
	}
	part, err := mw.CreateFormFile("document", name)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, body)
	return err
}

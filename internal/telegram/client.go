// Package telegram is a small Bot API client covering what the bot needs:
// long polling, messages with inline keyboards, callback answers, file
// download and document upload.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/rescale/courier/internal/config"
	"github.com/rescale/courier/internal/constants"
	"github.com/rescale/courier/internal/http"
	"github.com/rescale/courier/internal/logging"
	"github.com/rescale/courier/internal/ratelimit"
)

// callTimeout bounds every JSON call except getUpdates.
const callTimeout = 30 * time.Second

// retryLogger adapts logging.Logger to retryablehttp.LeveledLogger. Request
// URLs carry the bot token and are never logged.
type retryLogger struct {
	logger *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(redact(keysAndValues)).Msg("[retry] " + msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(redact(keysAndValues)).Msg("[retry] " + msg)
}

func redact(kv []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		if key == "url" || key == "request" {
			continue
		}
		if err, ok := kv[i+1].(error); ok {
			out[key] = redactToken(err.Error())
			continue
		}
		out[key] = kv[i+1]
	}
	return out
}

var tokenPattern = regexp.MustCompile(`/bot[^/\s"]+`)

// redactToken removes the bot token from URLs embedded in s.
func redactToken(s string) string {
	return tokenPattern.ReplaceAllString(s, "/bot<redacted>")
}

// Client is a Bot API client. Safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	api     *nethttp.Client // JSON calls, with retries
	stream  *nethttp.Client // file bodies, no retries
	limits  *ratelimit.LimiterStore
	logger  *logging.Logger
}

// NewClient creates a client for cfg.BotToken against cfg.APIURL.
func NewClient(cfg *config.Config, logger *logging.Logger) (*Client, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	httpClient, err := http.ConfigureHTTPClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = httpClient
	retryClient.RetryMax = 4
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 15 * time.Second
	retryClient.CheckRetry = checkRetry
	retryClient.Logger = &retryLogger{logger: logger}

	stream, err := http.CreateStreamingClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to configure streaming client: %w", err)
	}

	return newClient(cfg.APIURL, cfg.BotToken, retryClient.StandardClient(), stream, logger), nil
}

func newClient(baseURL, token string, api, stream *nethttp.Client, logger *logging.Logger) *Client {
	if baseURL == "" {
		baseURL = config.DefaultAPIURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		api:     api,
		stream:  stream,
		limits:  ratelimit.NewLimiterStore(),
		logger:  logger,
	}
}

// checkRetry retries transport errors and 5xx. A 429 is not retried here:
// its retry_after goes to the limiter and the caller decides.
func checkRetry(ctx context.Context, resp *nethttp.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if resp != nil && resp.StatusCode == nethttp.StatusTooManyRequests {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

func (c *Client) methodURL(method string) string {
	return c.baseURL + "/bot" + c.token + "/" + method
}

// call performs a JSON method call, waiting for the rate limiter first.
func (c *Client) call(ctx context.Context, method string, chatID int64, params, out interface{}) error {
	if err := c.limits.Wait(ctx, method, chatID); err != nil {
		return fmt.Errorf("rate limiter cancelled: %w", err)
	}
	return c.do(ctx, method, chatID, params, out)
}

// tryCall is the best-effort form of call: it returns ErrThrottled instead
// of waiting for a token.
func (c *Client) tryCall(ctx context.Context, method string, chatID int64, params, out interface{}) error {
	if !c.limits.Allow(method, chatID) {
		return ErrThrottled
	}
	return c.do(ctx, method, chatID, params, out)
}

func (c *Client) do(ctx context.Context, method string, chatID int64, params, out interface{}) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, callTimeout)
		defer cancel()
	}

	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodPost, c.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.api.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s failed: %s", method, redactToken(err.Error()))
	}
	defer resp.Body.Close()

	return c.decode(method, chatID, resp, out)
}

// decode reads the Bot API envelope, feeding flood-control hints back into
// the limiter.
func (c *Client) decode(method string, chatID int64, resp *nethttp.Response, out interface{}) error {
	var env response
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("telegram %s: HTTP %d: failed to decode response: %w", method, resp.StatusCode, err)
	}

	if !env.OK {
		apiErr := &APIError{Method: method, Code: env.ErrorCode, Description: env.Description}
		if env.Parameters != nil && env.Parameters.RetryAfter > 0 {
			apiErr.RetryAfter = time.Duration(env.Parameters.RetryAfter) * time.Second
			c.limits.Cooldown(method, chatID, apiErr.RetryAfter)
			c.logger.Warn().
				Str("method", method).
				Int64("chat", chatID).
				Dur("retry_after", apiErr.RetryAfter).
				Str("scope", c.limits.Registry().ScopeDisplayString(c.limits.Registry().ResolveScope(method))).
				Msg("THROTTLED by Bot API")
		}
		return apiErr
	}

	if out != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("telegram %s: failed to decode result: %w", method, err)
		}
	}
	return nil
}

// GetMe returns the bot's own user.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var u User
	if err := c.call(ctx, "getMe", 0, struct{}{}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUpdates long-polls for updates after offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout+callTimeout)
	defer cancel()

	params := map[string]interface{}{
		"offset":          offset,
		"timeout":         int(timeout.Seconds()),
		"allowed_updates": []string{"message", "callback_query"},
	}
	var updates []Update
	if err := c.call(ctx, "getUpdates", 0, params, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// MessageRequest describes a message to send or an edit to apply.
type MessageRequest struct {
	ChatID    int64
	MessageID int // edits only
	Text      string
	ParseMode string
	Keyboard  *InlineKeyboardMarkup // nil: no keyboard (edits remove it)

	// BestEffort skips the call with ErrThrottled instead of waiting for
	// the rate limiter. For intermediate progress renders.
	BestEffort bool
}

func (r MessageRequest) params() map[string]interface{} {
	p := map[string]interface{}{
		"chat_id":                  r.ChatID,
		"text":                     r.Text,
		"disable_web_page_preview": true,
	}
	if r.MessageID != 0 {
		p["message_id"] = r.MessageID
	}
	if r.ParseMode != "" {
		p["parse_mode"] = r.ParseMode
	}
	if r.Keyboard != nil {
		p["reply_markup"] = r.Keyboard
	}
	return p
}

// SendMessage sends a new message.
func (c *Client) SendMessage(ctx context.Context, r MessageRequest) (*Message, error) {
	var m Message
	if err := c.invoke(ctx, "sendMessage", r, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// EditMessageText replaces the text and keyboard of a message. Editing to
// identical content is not an error.
func (c *Client) EditMessageText(ctx context.Context, r MessageRequest) error {
	err := c.invoke(ctx, "editMessageText", r, nil)
	if IsNotModified(err) {
		return nil
	}
	return err
}

func (c *Client) invoke(ctx context.Context, method string, r MessageRequest, out interface{}) error {
	if r.BestEffort {
		return c.tryCall(ctx, method, r.ChatID, r.params(), out)
	}
	return c.call(ctx, method, r.ChatID, r.params(), out)
}

// AnswerCallbackQuery acknowledges a button press, optionally with a notice.
func (c *Client) AnswerCallbackQuery(ctx context.Context, id, text string, alert bool) error {
	if r := []rune(text); len(r) > constants.NoticeMaxLen {
		text = string(r[:constants.NoticeMaxLen])
	}
	params := map[string]interface{}{
		"callback_query_id": id,
		"text":              text,
		"show_alert":        alert,
	}
	return c.call(ctx, "answerCallbackQuery", 0, params, nil)
}

// GetFile resolves a file id to a downloadable path.
func (c *Client) GetFile(ctx context.Context, fileID string) (*File, error) {
	var f File
	if err := c.call(ctx, "getFile", 0, map[string]string{"file_id": fileID}, &f); err != nil {
		return nil, err
	}
	if f.FilePath == "" {
		return nil, fmt.Errorf("telegram getFile: no file path for %s", fileID)
	}
	return &f, nil
}

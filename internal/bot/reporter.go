package bot

import (
	"context"
	"errors"
	"sync"

	"github.com/rescale/courier/internal/progress"
	"github.com/rescale/courier/internal/telegram"
	"github.com/rescale/courier/internal/transfer"
)

// statusReporter renders transfer progress into the status message. Live
// updates are best effort and are dropped while the chat is rate limited;
// the staged notice always goes out.
type statusReporter struct {
	api        API
	chatID     int64
	messageID  int
	keyboard   *telegram.InlineKeyboardMarkup
	toTelegram bool

	mu   sync.Mutex
	last string
	done bool
}

// Report implements progress.Reporter.
func (r *statusReporter) Report(ctx context.Context, u progress.Update) error {
	text := renderProgress(u, r.toTelegram)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done || text == r.last {
		return nil
	}

	err := r.api.EditMessageText(ctx, telegram.MessageRequest{
		ChatID:     r.chatID,
		MessageID:  r.messageID,
		Text:       text,
		Keyboard:   r.keyboard,
		BestEffort: u.Phase != progress.PhaseStaged,
	})
	if errors.Is(err, telegram.ErrThrottled) {
		return nil
	}
	if err != nil {
		return err
	}
	r.last = text
	return nil
}

// finish replaces the status with the job result and drops the keyboard.
// Reports arriving afterwards are ignored.
func (r *statusReporter) finish(ctx context.Context, res transfer.Result) error {
	text, isHTML := renderResult(res, r.toTelegram)
	req := telegram.MessageRequest{ChatID: r.chatID, MessageID: r.messageID, Text: text}
	if isHTML {
		req.ParseMode = telegram.ParseModeHTML
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = true
	r.last = text
	return r.api.EditMessageText(ctx, req)
}

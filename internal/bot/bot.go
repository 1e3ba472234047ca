// Package bot routes Telegram updates: owner checks, commands, inbound
// files and URLs, and inline-button callbacks. Every update is handled on
// its user's dispatcher worker; transfers run on their own goroutine and
// report back through the same worker.
package bot

import (
	"context"
	"errors"
	nethttp "net/http"
	"regexp"
	"sync"

	"github.com/rescale/courier/internal/config"
	"github.com/rescale/courier/internal/constants"
	"github.com/rescale/courier/internal/logging"
	"github.com/rescale/courier/internal/navigator"
	"github.com/rescale/courier/internal/session"
	"github.com/rescale/courier/internal/telegram"
	"github.com/rescale/courier/internal/transfer"
)

// maxConfigSize caps an uploaded rclone.conf.
const maxConfigSize = 1 << 20

// urlPattern matches a message that is a single direct link.
var urlPattern = regexp.MustCompile(`^(https?|ftp)://[^\s/$.?#].[^\s]*$`)

// API is the part of the Bot API the bot uses. *telegram.Client implements it.
type API interface {
	Poll(ctx context.Context, handle func(telegram.Update)) error
	SendMessage(ctx context.Context, r telegram.MessageRequest) (*telegram.Message, error)
	EditMessageText(ctx context.Context, r telegram.MessageRequest) error
	AnswerCallbackQuery(ctx context.Context, id, text string, alert bool) error
	DownloadFile(ctx context.Context, fileID string, max int64) ([]byte, error)
	transfer.Fetcher
	transfer.Uploader
}

// Rclone lists remotes and copies files. *rclone.Runner implements it.
type Rclone interface {
	navigator.Lister
	transfer.Copier
}

// Bot is the update router.
type Bot struct {
	cfg      *config.Config
	api      API
	rclone   Rclone
	web      *nethttp.Client // URL sources
	nav      *navigator.Navigator
	sessions *session.Store
	pipeline *transfer.Pipeline
	logger   *logging.Logger

	dispatcher *session.Dispatcher
	transfers  sync.WaitGroup
}

// New creates a bot. web downloads URL sources and must not retry.
func New(cfg *config.Config, api API, rc Rclone, web *nethttp.Client, logger *logging.Logger) *Bot {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if web == nil {
		web = nethttp.DefaultClient
	}
	return &Bot{
		cfg:      cfg,
		api:      api,
		rclone:   rc,
		web:      web,
		nav:      navigator.New(rc, cfg, logger),
		sessions: session.NewStore(),
		pipeline: transfer.NewPipeline(logger),
		logger:   logger,
	}
}

// Run polls for updates until ctx is done, then waits for running
// transfers to clean up.
func (b *Bot) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	b.start(ctx)
	b.logger.Info().Int64("owner", b.cfg.OwnerID).Msg("bot started, polling for updates")

	err := b.api.Poll(ctx, b.HandleUpdate)
	cancel()
	b.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (b *Bot) start(ctx context.Context) {
	b.dispatcher = session.NewDispatcher(ctx, constants.DispatcherIdleTimeout, b.logger)
}

// Wait blocks until every worker and transfer goroutine has exited.
func (b *Bot) Wait() {
	b.transfers.Wait()
	b.dispatcher.Wait()
}

// HandleUpdate queues u on its user's worker.
func (b *Bot) HandleUpdate(u telegram.Update) {
	switch {
	case u.Message != nil && u.Message.From != nil:
		m := u.Message
		b.submit(m.From.ID, func(ctx context.Context) { b.handleMessage(ctx, m) })
	case u.CallbackQuery != nil:
		cq := u.CallbackQuery
		b.submit(cq.From.ID, func(ctx context.Context) { b.handleCallback(ctx, cq) })
	}
}

func (b *Bot) submit(userID int64, task session.Task) {
	if !b.dispatcher.Submit(userID, task) {
		b.logger.Debug().Int64("user", userID).Msg("dropping update during shutdown")
	}
}

// authorize reports whether userID may use the bot, returning the refusal
// text otherwise.
func (b *Bot) authorize(userID int64) (string, bool) {
	if !b.cfg.HasOwner() {
		return textOwnerMissing, false
	}
	if userID != b.cfg.OwnerID {
		return textOwnerOnly, false
	}
	return "", true
}

// reply sends a plain text message, logging failures.
func (b *Bot) reply(ctx context.Context, chatID int64, text string) *telegram.Message {
	msg, err := b.api.SendMessage(ctx, telegram.MessageRequest{ChatID: chatID, Text: text})
	if err != nil {
		b.logger.Warn().Err(err).Int64("chat", chatID).Msg("failed to send message")
		return nil
	}
	return msg
}

// keyboard converts a navigator prompt keyboard.
func keyboard(rows [][]navigator.Button) *telegram.InlineKeyboardMarkup {
	if rows == nil {
		return nil
	}
	kb := &telegram.InlineKeyboardMarkup{InlineKeyboard: make([][]telegram.InlineKeyboardButton, 0, len(rows))}
	for _, row := range rows {
		out := make([]telegram.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			out = append(out, telegram.InlineKeyboardButton{Text: btn.Label, CallbackData: btn.Action})
		}
		kb.InlineKeyboard = append(kb.InlineKeyboard, out)
	}
	return kb
}

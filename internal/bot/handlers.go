package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rescale/courier/internal/config"
	"github.com/rescale/courier/internal/constants"
	"github.com/rescale/courier/internal/navigator"
	"github.com/rescale/courier/internal/session"
	"github.com/rescale/courier/internal/telegram"
	"github.com/rescale/courier/internal/transfer"
	"github.com/rescale/courier/internal/util/sanitize"
)

// shutdownEditTimeout bounds the final status edit when the bot is stopping.
const shutdownEditTimeout = 5 * time.Second

func (b *Bot) handleMessage(ctx context.Context, m *telegram.Message) {
	userID, chatID := m.From.ID, m.Chat.ID
	if text, ok := b.authorize(userID); !ok {
		b.reply(ctx, chatID, text)
		return
	}

	switch m.Command() {
	case "start", "help":
		b.reply(ctx, chatID, textWelcome)
		return
	case "config":
		if _, err := b.sessions.Open(userID, chatID, session.StateAwaitingConfig); err != nil {
			b.reply(ctx, chatID, textBusy)
			return
		}
		b.reply(ctx, chatID, textSendConfig)
		return
	}

	if s, ok := b.sessions.Get(userID); ok && s.State == session.StateAwaitingConfig && m.Document != nil {
		b.saveConfig(ctx, s, m)
		return
	}

	src := b.sourceFor(m)
	if src == nil {
		b.reply(ctx, chatID, textHint)
		return
	}
	b.offer(ctx, m, src)
}

// sourceFor maps a message to a transfer source, or nil when the message
// carries nothing transferable.
func (b *Bot) sourceFor(m *telegram.Message) transfer.Source {
	switch {
	case m.Document != nil:
		return &transfer.MediaSource{Kind: transfer.KindDocument, FileID: m.Document.FileID, FileName: m.Document.FileName, Size: m.Document.FileSize, Fetcher: b.api}
	case m.Video != nil:
		return &transfer.MediaSource{Kind: transfer.KindVideo, FileID: m.Video.FileID, FileName: m.Video.FileName, Size: m.Video.FileSize, Fetcher: b.api}
	case m.Audio != nil:
		return &transfer.MediaSource{Kind: transfer.KindAudio, FileID: m.Audio.FileID, FileName: m.Audio.FileName, Size: m.Audio.FileSize, Fetcher: b.api}
	case len(m.Photo) > 0:
		p := m.LargestPhoto()
		return &transfer.MediaSource{Kind: transfer.KindPhoto, FileID: p.FileID, Size: p.FileSize, Fetcher: b.api}
	}

	text := sanitize.Text(m.Text)
	if urlPattern.MatchString(text) {
		return &transfer.URLSource{URL: text, Client: b.web}
	}
	return nil
}

// offer opens a session for src and shows the platform prompt.
func (b *Bot) offer(ctx context.Context, m *telegram.Message, src transfer.Source) {
	userID, chatID := m.From.ID, m.Chat.ID
	s, err := b.sessions.Open(userID, chatID, session.StateAwaitingPlatform)
	if errors.Is(err, session.ErrBusy) {
		b.reply(ctx, chatID, textBusy)
		return
	}
	s.Pending = src

	out := b.nav.Begin(s)
	msg, err := b.api.SendMessage(ctx, telegram.MessageRequest{
		ChatID:   chatID,
		Text:     out.Prompt.Text,
		Keyboard: keyboard(out.Prompt.Keyboard),
	})
	if err != nil {
		b.logger.Warn().Err(err).Int64("user", userID).Msg("failed to send platform prompt")
		b.sessions.Close(userID, s.ID)
		return
	}
	s.MessageID = msg.MessageID
}

// saveConfig stores an uploaded rclone.conf. The session stays open on
// failure so the operator can resend.
func (b *Bot) saveConfig(ctx context.Context, s *session.Session, m *telegram.Message) {
	if m.Document.FileName != config.RcloneConfigName {
		b.reply(ctx, s.ChatID, textConfigWrongName)
		return
	}

	data, err := b.api.DownloadFile(ctx, m.Document.FileID, maxConfigSize)
	if err != nil {
		b.logger.Warn().Err(err).Int64("user", s.UserID).Msg("failed to download rclone.conf")
		b.reply(ctx, s.ChatID, "❌ Failed to download config: "+truncate(err.Error(), constants.ErrorTextMax))
		return
	}

	remotes, err := b.cfg.SaveUserRcloneConfig(s.UserID, data)
	if err != nil {
		b.logger.Warn().Err(err).Int64("user", s.UserID).Msg("rejected rclone.conf")
		b.reply(ctx, s.ChatID, "❌ "+err.Error())
		return
	}

	b.sessions.Close(s.UserID, s.ID)
	b.logger.Info().Int64("user", s.UserID).Strs("remotes", remotes).Msg("saved rclone config")
	b.reply(ctx, s.ChatID, textConfigSaved+"\n🌐 Remotes: "+strings.Join(remotes, ", "))
}

func (b *Bot) handleCallback(ctx context.Context, cq *telegram.CallbackQuery) {
	userID := cq.From.ID
	if text, ok := b.authorize(userID); !ok {
		b.answer(ctx, cq.ID, text, true)
		return
	}

	s, _ := b.sessions.Get(userID)
	if s != nil && cq.Message != nil && cq.Message.MessageID != s.MessageID {
		// button on a prompt the current session no longer owns
		b.answer(ctx, cq.ID, navigator.TextStale, false)
		return
	}

	out, err := b.nav.Handle(ctx, s, cq.Data)
	switch {
	case errors.Is(err, navigator.ErrSessionMissing):
		b.answer(ctx, cq.ID, textNoSession, true)
		return
	case errors.Is(err, navigator.ErrStaleAction):
		b.logger.Debug().Err(err).Int64("user", userID).Msg("ignoring stale action")
		b.answer(ctx, cq.ID, navigator.TextStale, false)
		return
	case err != nil:
		b.answer(ctx, cq.ID, err.Error(), true)
		return
	}

	notice := out.Notice
	if out.Prompt != nil {
		if err := b.showPrompt(ctx, s, out.Prompt); err != nil {
			b.logger.Warn().Err(err).Int64("user", userID).Msg("failed to render prompt")
			notice = "❌ " + err.Error()
		}
	}
	b.answer(ctx, cq.ID, notice, out.Alert)

	if out.Closed {
		b.sessions.Close(userID, s.ID)
		return
	}
	if out.Start {
		b.startTransfer(ctx, s)
	}
}

// showPrompt replaces the session message with p.
func (b *Bot) showPrompt(ctx context.Context, s *session.Session, p *navigator.Prompt) error {
	return b.api.EditMessageText(ctx, telegram.MessageRequest{
		ChatID:    s.ChatID,
		MessageID: s.MessageID,
		Text:      p.Text,
		Keyboard:  keyboard(p.Keyboard),
	})
}

// answer acknowledges a callback. Notices are cut to the Bot API limit.
func (b *Bot) answer(ctx context.Context, id, text string, alert bool) {
	text = truncate(text, constants.NoticeMaxLen)
	if err := b.api.AnswerCallbackQuery(ctx, id, text, alert); err != nil {
		b.logger.Debug().Err(err).Msg("failed to answer callback")
	}
}

// startTransfer launches the job for a confirmed session. The job runs on
// its own goroutine; its result is handed back to the user's worker.
func (b *Bot) startTransfer(ctx context.Context, s *session.Session) {
	toTelegram := s.Platform == session.PlatformTelegram
	log := b.logger.Child(func(c zerolog.Context) zerolog.Context {
		return c.Int64("user", s.UserID).Uint64("session", s.ID)
	})

	var sink transfer.Sink
	if toTelegram {
		sink = &transfer.MessagingSink{Uploader: b.api, ChatID: s.ChatID}
	} else {
		sink = &transfer.RemoteSink{
			Copier:     b.rclone,
			ConfigPath: b.cfg.UserConfigPath(s.UserID),
			Remote:     s.Remote,
			Path:       s.Path,
		}
	}

	jobCtx, cancel := context.WithCancel(ctx)
	if err := s.BeginTransfer(cancel); err != nil {
		cancel()
		log.Warn().Err(err).Msg("transfer not started")
		return
	}
	cancelKB := keyboard([][]navigator.Button{{b.nav.CancelButton(s)}})

	if toTelegram {
		err := b.api.EditMessageText(ctx, telegram.MessageRequest{
			ChatID:    s.ChatID,
			MessageID: s.MessageID,
			Text:      textStartingTelegram,
			Keyboard:  cancelKB,
		})
		if err != nil {
			log.Warn().Err(err).Msg("failed to show transfer status")
		}
	} else {
		msg, err := b.api.SendMessage(ctx, telegram.MessageRequest{
			ChatID:   s.ChatID,
			Text:     textStartingDownload,
			Keyboard: cancelKB,
		})
		if err != nil {
			log.Error().Err(err).Msg("failed to send status message, abandoning transfer")
			b.sessions.Close(s.UserID, s.ID)
			return
		}
		s.MessageID = msg.MessageID
	}

	job := transfer.NewJob(s.UserID, s.Pending, sink, b.cfg.StagingDir(s.UserID))
	reporter := &statusReporter{
		api:        b.api,
		chatID:     s.ChatID,
		messageID:  s.MessageID,
		keyboard:   cancelKB,
		toTelegram: toTelegram,
	}
	log.Info().Str("job", job.ID).Str("sink", sink.Label()).Msg("transfer started")

	userID, sessionID := s.UserID, s.ID
	b.transfers.Add(1)
	go func() {
		defer b.transfers.Done()
		defer cancel()

		res := b.pipeline.Run(jobCtx, job, reporter)
		finish := func(ctx context.Context) { b.finishTransfer(ctx, userID, sessionID, res, reporter) }
		if b.dispatcher.Submit(userID, finish) {
			return
		}
		// stopping: the worker is gone, so only the status message is updated
		ctx, stop := context.WithTimeout(context.Background(), shutdownEditTimeout)
		defer stop()
		reporter.finish(ctx, res)
	}()
}

// finishTransfer shows the job result and closes the session.
func (b *Bot) finishTransfer(ctx context.Context, userID int64, sessionID uint64, res transfer.Result, r *statusReporter) {
	if err := r.finish(ctx, res); err != nil {
		b.logger.Warn().Err(err).Int64("user", userID).Msg("failed to show transfer result")
	}
	b.sessions.Close(userID, sessionID)
}

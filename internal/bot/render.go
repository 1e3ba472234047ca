package bot

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/rescale/courier/internal/constants"
	"github.com/rescale/courier/internal/progress"
	"github.com/rescale/courier/internal/rclone"
	"github.com/rescale/courier/internal/transfer"
)

// Fixed operator-facing texts.
const (
	textWelcome = "Welcome!\n" +
		"1. Send /config to upload your rclone.conf file\n" +
		"2. Send a file or any direct URL, then pick Telegram or one of your rclone remotes\n" +
		"3. Browse to a folder and press ✅ Select This Folder"
	textOwnerMissing     = "Owner ID not configured. Please set OWNER_ID environment variable."
	textOwnerOnly        = "This command is only available to the bot owner."
	textSendConfig       = "Please send your rclone.conf file now."
	textConfigSaved      = "✅ Config saved successfully!"
	textConfigWrongName  = "❌ Please send a file named 'rclone.conf'"
	textNoSession        = "❌ No active upload session"
	textBusy             = "⏳ A transfer is already running. Use ❌ Cancel Upload to stop it first."
	textStartingDownload = "⏳ Starting download..."
	textStartingTelegram = "⏳ Starting Telegram upload..."
	textUnsupported      = "❌ Unsupported file type"
	textTelegramDone     = "✅ File uploaded successfully to Telegram!"
	textHint             = "Send a file or a direct URL to upload it. /start shows help."
)

// truncate cuts s to n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// renderProgress formats a live status update. toTelegram selects the
// re-upload wording.
func renderProgress(u progress.Update, toTelegram bool) string {
	s := u.Snapshot
	var b strings.Builder

	switch u.Phase {
	case progress.PhaseDownloading:
		fmt.Fprintf(&b, "📁 %s\n", progress.TruncateName(u.FileName, constants.DisplayNameLen))
		if s.Known {
			fmt.Fprintf(&b, "⬇️ Downloading: %.1f%%\n%s\n%s / %s\n", s.Percent, s.Bar, s.Done, s.Total)
		} else {
			fmt.Fprintf(&b, "⬇️ Downloading...\n%s\n", s.Done)
		}
		fmt.Fprintf(&b, "🚀 Speed: %s", s.Speed)

	case progress.PhaseStaged:
		if toTelegram {
			fmt.Fprintf(&b, "✅ Download completed: %s\nStarting upload...", u.FileName)
		} else {
			fmt.Fprintf(&b, "📤 Preparing to upload to %s\n📄 File: %s\n📦 Size: %s\n⏱️ Calculating transfer details...",
				u.Destination, u.FileName, progress.FormatSize(s.Current))
		}

	case progress.PhaseUploading:
		if toTelegram {
			b.WriteString("📤 Uploading to Telegram\n")
			if s.Known {
				fmt.Fprintf(&b, "⬆️ Progress: %.1f%%\n%s\n%s / %s\n", s.Percent, s.Bar, s.Done, s.Total)
			} else {
				fmt.Fprintf(&b, "⬆️ Progress: %s\n", s.Done)
			}
			fmt.Fprintf(&b, "🚀 Speed: %s", s.Speed)
		} else {
			fmt.Fprintf(&b, "📤 Uploading to %s\n📄 File: %s\n", u.Destination, u.FileName)
			if s.Known {
				fmt.Fprintf(&b, "%s %.1f%%\n", s.Bar, s.Percent)
			}
			fmt.Fprintf(&b, "⚡ Speed: %s\n", s.Speed)
			if s.Known {
				fmt.Fprintf(&b, "📦 Progress: %s / %s\n", s.Done, s.Total)
			} else {
				fmt.Fprintf(&b, "📦 Progress: %s\n", s.Done)
			}
			eta := u.ETA
			if eta == "" {
				eta = "-"
			}
			fmt.Fprintf(&b, "⏳ ETA: %s", eta)
		}
	}
	return b.String()
}

// renderResult formats the final status of a job. html reports whether
// the text uses HTML markup.
func renderResult(res transfer.Result, toTelegram bool) (text string, isHTML bool) {
	switch res.State {
	case transfer.StateSucceeded:
		if toTelegram {
			return textTelegramDone, false
		}
		return fmt.Sprintf("✅ Successfully uploaded to <code>%s</code>\n📄 <b>File:</b> <code>%s</code>\n📦 <b>Size:</b> <code>%s</code>",
			html.EscapeString(res.Destination), html.EscapeString(res.FileName), progress.FormatSize(res.Size)), true

	case transfer.StateCancelled:
		return "❌ Upload cancelled", false
	}

	err := res.Err
	var toolErr *rclone.ToolError
	switch {
	case errors.As(err, &toolErr):
		return fmt.Sprintf("❌ Upload failed with error code %d\n\nError details:\n%s",
			toolErr.ExitCode, truncate(strings.Join(toolErr.Tail, "\n"), constants.ErrorTextMax)), false
	case errors.Is(err, transfer.ErrUnsupportedSource):
		return textUnsupported, false
	case errors.Is(err, transfer.ErrDownloadFailed):
		return "❌ Download failed: " + truncate(errText(err), constants.ErrorTextMax), false
	default:
		return "❌ Upload failed: " + truncate(errText(err), constants.ErrorTextMax), false
	}
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

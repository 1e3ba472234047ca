package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rescale/courier/internal/bot"
	"github.com/rescale/courier/internal/http"
	"github.com/rescale/courier/internal/logging"
	"github.com/rescale/courier/internal/rclone"
	"github.com/rescale/courier/internal/telegram"
	"github.com/rescale/courier/internal/version"
)

// newServeCmd creates the 'serve' command.
func newServeCmd() *cobra.Command {
	var logFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot",
		Long: `Run the bot until interrupted.

The bot long-polls the Bot API, answers only the configured owner and
keeps per-user rclone configs and staging files under the data directory.

Required settings:
  BOT_TOKEN  or [telegram] token
  OWNER_ID   or [telegram] owner_id (without it every message gets a notice)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateServe(); err != nil {
				return err
			}
			if logFile != "" {
				cfg.LogFile = logFile
			}
			if err := ensureProxyPassword(cfg); err != nil {
				return err
			}

			log := logging.NewServeLogger(logging.FileConfig{Path: cfg.LogFile})
			defer log.Close()
			if !verbose {
				logging.SetGlobalLevel(logging.ParseLevel(cfg.LogLevel))
			}

			ctx := GetContext()
			client, err := telegram.NewClient(cfg, log)
			if err != nil {
				return err
			}
			me, err := client.GetMe(ctx)
			if err != nil {
				return fmt.Errorf("failed to reach the Bot API: %w", err)
			}

			web, err := http.CreateStreamingClient(cfg, log)
			if err != nil {
				return fmt.Errorf("failed to configure HTTP client: %w", err)
			}

			if !cfg.HasOwner() {
				log.Warn().Msg("owner id not configured, every message will be refused")
			}
			log.Info().
				Str("version", version.Version).
				Str("bot", me.Username).
				Str("data_dir", cfg.DataDir).
				Msg("starting courier")

			runner := rclone.NewRunner(cfg.RcloneBinary, log)
			return bot.New(cfg, client, runner, web, log).Run(ctx)
		},
	}

	cmd.Flags().StringVar(&logFile, "log-file", "", "Also write JSON logs to this rotating file")
	return cmd
}

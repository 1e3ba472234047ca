// Package cli provides the command-line interface for courier.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rescale/courier/internal/config"
	"github.com/rescale/courier/internal/logging"
	"github.com/rescale/courier/internal/version"
)

var (
	// Global flags
	cfgFile      string
	botToken     string
	ownerID      int64
	dataDir      string
	rcloneBinary string
	verbose      bool

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "courier",
		Short: "Courier - relay files from Telegram to rclone remotes",
		Long: `Courier ` + version.Version + ` - Built: ` + version.BuildTime + `

A Telegram bot that takes files and direct links from its owner and
delivers them back to Telegram or into any rclone remote, browsing the
destination folder with inline buttons.

Bot mode:
  courier serve

One-shot mode:
  courier copy ./backup.tar.gz gdrive:backups
  courier copy https://example.com/image.iso`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewDefaultCLILogger()
			if verbose {
				logging.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path (default: "+config.DefaultConfigPath()+")")
	rootCmd.PersistentFlags().StringVar(&botToken, "token", "", "Bot token (overrides config and BOT_TOKEN)")
	rootCmd.PersistentFlags().Int64Var(&ownerID, "owner", 0, "Owner user id (overrides config and OWNER_ID)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory for per-user configs and staging files")
	rootCmd.PersistentFlags().StringVar(&rcloneBinary, "rclone", "", "Path to the rclone binary")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())
	defer cancelFunc()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Loop so repeated Ctrl+C does not block the sender
	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\n\n🛑 Received signal %v, cancelling operations...\n", sig)
				fmt.Fprintf(os.Stderr, "   Please wait for cleanup to complete.\n\n")
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()

	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newCopyCmd())
	rootCmd.AddCommand(newRemotesCmd())
	rootCmd.AddCommand(newLsCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// GetContext returns the global CLI context. It is cancelled on Ctrl+C.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}

// loadConfig reads the config file and environment, then applies flags.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags lets explicit flags win over file and environment values.
func applyFlags(cfg *config.Config) {
	if botToken != "" {
		cfg.BotToken = botToken
	}
	if ownerID != 0 {
		cfg.OwnerID = ownerID
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if rcloneBinary != "" {
		cfg.RcloneBinary = rcloneBinary
	}
}

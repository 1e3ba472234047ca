package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rescale/courier/internal/config"
	"github.com/rescale/courier/internal/http"
	"github.com/rescale/courier/internal/progress"
	"github.com/rescale/courier/internal/rclone"
	"github.com/rescale/courier/internal/transfer"
)

// newCopyCmd creates the 'copy' command.
func newCopyCmd() *cobra.Command {
	var rcloneConfig string

	cmd := &cobra.Command{
		Use:   "copy <file|url> [remote:path]",
		Short: "Stage a local file or URL and copy it to an rclone remote",
		Long: `Run the bot's transfer pipeline once from the terminal.

The source is staged into a temporary directory, copied with rclone and
removed afterwards. Without a destination you are asked to pick a remote
and the file lands in its root.

Examples:
  courier copy ./report.pdf gdrive:documents
  courier copy https://example.com/disk.iso s3:isos --rclone-config ~/.config/rclone/rclone.conf`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			confPath, err := resolveRcloneConfig(cfg, rcloneConfig)
			if err != nil {
				return err
			}
			if err := ensureProxyPassword(cfg); err != nil {
				return err
			}

			ctx := GetContext()
			log := GetLogger()
			runner := rclone.NewRunner(cfg.RcloneBinary, log)

			remotes, err := runner.ListRemotes(ctx, confPath)
			if err != nil {
				return err
			}
			if len(remotes) == 0 {
				return fmt.Errorf("no remotes found in %s", confPath)
			}

			var remote, dir string
			if len(args) == 2 {
				if remote, dir, err = rclone.ParseTarget(args[1]); err != nil {
					return err
				}
				if !contains(remotes, remote) {
					return fmt.Errorf("remote %q is not defined in %s", remote, confPath)
				}
			} else if remote, err = promptRemote(os.Stdin, os.Stdout, remotes); err != nil {
				return err
			}

			src, err := sourceFor(cfg, args[0])
			if err != nil {
				return err
			}

			staging, err := os.MkdirTemp("", "courier-")
			if err != nil {
				return fmt.Errorf("failed to create staging directory: %w", err)
			}
			defer os.RemoveAll(staging)

			sink := &transfer.RemoteSink{Copier: runner, ConfigPath: confPath, Remote: remote, Path: dir}
			job := transfer.NewJob(0, src, sink, staging)

			reporter := progress.NewCLIProgress()
			res := transfer.NewPipeline(log).Run(ctx, job, reporter)
			reporter.Finish()

			switch res.State {
			case transfer.StateSucceeded:
				fmt.Printf("✅ Uploaded %s (%s) to %s\n", res.FileName, progress.FormatSize(res.Size), res.Destination)
				return nil
			case transfer.StateCancelled:
				return res.Err
			default:
				reporter.Error(res.Err)
				return res.Err
			}
		},
	}

	cmd.Flags().StringVar(&rcloneConfig, "rclone-config", "", "rclone.conf to use (default: the owner's uploaded config)")
	return cmd
}

// sourceFor treats http(s) and ftp arguments as URLs and anything else as a
// local path.
func sourceFor(cfg *config.Config, arg string) (transfer.Source, error) {
	lower := strings.ToLower(arg)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") && !strings.HasPrefix(lower, "ftp://") {
		return &transfer.FileSource{Path: arg}, nil
	}

	client, err := http.CreateStreamingClient(cfg, GetLogger())
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}
	return &transfer.URLSource{URL: arg, Client: client}, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

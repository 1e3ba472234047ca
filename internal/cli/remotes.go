package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rescale/courier/internal/config"
	"github.com/rescale/courier/internal/constants"
	"github.com/rescale/courier/internal/navigator"
	"github.com/rescale/courier/internal/rclone"
)

var errNoRcloneConfig = errors.New("no rclone config: pass --rclone-config or upload one to the bot with /config")

// resolveRcloneConfig picks the rclone.conf to use: the flag, else the
// owner's uploaded config.
func resolveRcloneConfig(cfg *config.Config, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if cfg.HasOwner() && cfg.HasUserConfig(cfg.OwnerID) {
		return cfg.UserConfigPath(cfg.OwnerID), nil
	}
	return "", errNoRcloneConfig
}

// newRemotesCmd creates the 'remotes' command.
func newRemotesCmd() *cobra.Command {
	var rcloneConfig string

	cmd := &cobra.Command{
		Use:   "remotes",
		Short: "List the remotes in an rclone config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			path, err := resolveRcloneConfig(cfg, rcloneConfig)
			if err != nil {
				return err
			}

			remotes, err := rclone.NewRunner(cfg.RcloneBinary, GetLogger()).ListRemotes(GetContext(), path)
			if err != nil {
				return err
			}
			if len(remotes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No remotes found in", path)
				return nil
			}
			for _, r := range remotes {
				fmt.Fprintf(cmd.OutOrStdout(), "🌐 %s:\n", r)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&rcloneConfig, "rclone-config", "", "rclone.conf to use (default: the owner's uploaded config)")
	return cmd
}

// newLsCmd creates the 'ls' command.
func newLsCmd() *cobra.Command {
	var (
		rcloneConfig string
		page         int
	)

	cmd := &cobra.Command{
		Use:   "ls <remote:path>",
		Short: "List the folders of a remote path, a page at a time",
		Long: `List the immediate folders of remote:path with the same paging the bot uses.

Examples:
  courier ls gdrive:
  courier ls gdrive:backups --page 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			path, err := resolveRcloneConfig(cfg, rcloneConfig)
			if err != nil {
				return err
			}
			remote, dir, err := rclone.ParseTarget(args[0])
			if err != nil {
				return err
			}
			dir = navigator.NormalizePath(dir)

			dirs, err := rclone.NewRunner(cfg.RcloneBinary, GetLogger()).ListDirs(GetContext(), path, remote, dir)
			if err != nil {
				return err
			}
			printListing(cmd.OutOrStdout(), remote, dir, dirs, page-1)
			return nil
		},
	}

	cmd.Flags().StringVar(&rcloneConfig, "rclone-config", "", "rclone.conf to use (default: the owner's uploaded config)")
	cmd.Flags().IntVar(&page, "page", 1, "Page number (1-based)")
	return cmd
}

// printListing prints one page of folders. Every entry is a directory, dotted
// names included.
func printListing(out io.Writer, remote, dir string, dirs []string, index int) {
	fmt.Fprintf(out, "📂 %s\n", rclone.Target(remote, dir))
	if len(dirs) == 0 {
		fmt.Fprintln(out, "  (no folders)")
		return
	}

	p := navigator.Paginate(dirs, index, constants.ItemsPerPage)
	for _, d := range p.Items {
		fmt.Fprintf(out, "  📁 %s\n", d)
	}
	if p.Count > 1 {
		fmt.Fprintf(out, "Page %d/%d\n", p.Index+1, p.Count)
	}
}

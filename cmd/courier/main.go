// Courier - Telegram bot that relays files to Telegram or rclone remotes
package main

import (
	"os"

	"github.com/rescale/courier/internal/cli"
	"github.com/rescale/courier/internal/version"
)

// Version information, overridden with -ldflags at release time
var (
	Version   = "v0.3.0"
	BuildTime = "unknown"
)

func main() {
	version.Version = Version
	version.BuildTime = BuildTime

	// cobra already printed the error
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/rescale/courier/internal/config"
	"github.com/rescale/courier/internal/http"
)

// ensureProxyPassword prompts for the proxy password when the proxy mode
// needs one and none is configured.
func ensureProxyPassword(cfg *config.Config) error {
	if !http.NeedsProxyPassword(cfg) {
		return nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("proxy password required for %s proxy but stdin is not a terminal", cfg.ProxyMode)
	}

	fmt.Printf("Proxy password for %s@%s: ", cfg.ProxyUser, cfg.ProxyHost)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read proxy password: %w", err)
	}
	cfg.ProxyPassword = string(password)
	return nil
}

// promptRemote asks the user to pick one of remotes.
func promptRemote(in io.Reader, out io.Writer, remotes []string) (string, error) {
	reader := bufio.NewReader(in)
	for {
		fmt.Fprintln(out, "\nSelect a destination remote:")
		for i, r := range remotes {
			fmt.Fprintf(out, "  %d. %s\n", i+1, r)
		}
		fmt.Fprintf(out, "Choose [1-%d]: ", len(remotes))

		input, err := reader.ReadString('\n')
		if err != nil {
			return "", err
		}

		n, convErr := strconv.Atoi(strings.TrimSpace(input))
		if convErr == nil && n >= 1 && n <= len(remotes) {
			return remotes[n-1], nil
		}
		fmt.Fprintln(out, "Invalid choice, please try again.")
	}
}

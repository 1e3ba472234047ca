package http

import (
	"crypto/tls"
	nethttp "net/http"
	"os"

	"golang.org/x/net/http2"

	"github.com/rescale/courier/internal/config"
	"github.com/rescale/courier/internal/constants"
	"github.com/rescale/courier/internal/logging"
)

// CreateStreamingClient creates the HTTP client used for URL sources and Bot
// API file transfers. It carries the configured proxy and has no overall
// timeout; callers bound each transfer with a context.
//
// Key features:
//   - Proxy support (uses ConfigureHTTPClient as base)
//   - HTTP/2 when talking directly to the origin (DISABLE_HTTP2=true forces HTTP/1.1)
//   - Disabled compression so Content-Length matches the bytes on the wire
//
// If cfg is nil, proxy settings are read from the environment.
func CreateStreamingClient(cfg *config.Config, logger *logging.Logger) (*nethttp.Client, error) {
	if cfg == nil {
		cfg = config.NewConfig()
		cfg.ProxyMode = config.ProxyModeSystem
	}

	baseClient, err := ConfigureHTTPClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	baseClient.Timeout = 0

	tr, ok := baseClient.Transport.(*nethttp.Transport)
	if !ok {
		// NTLM wraps the transport; leave it as configured
		return baseClient, nil
	}

	tr.ResponseHeaderTimeout = constants.HTTPResponseHeaderTimeout
	tr.DisableCompression = true
	tr.ForceAttemptHTTP2 = true
	_ = http2.ConfigureTransport(tr)

	// Proxies often mishandle HTTP/2 multiplexing mid-transfer
	if os.Getenv("DISABLE_HTTP2") == "true" || proxyActive(cfg) {
		tr.ForceAttemptHTTP2 = false
		tr.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
	}

	return baseClient, nil
}

func proxyActive(cfg *config.Config) bool {
	switch cfg.ProxyMode {
	case config.ProxyModeNone, "":
		return false
	case config.ProxyModeSystem:
		return os.Getenv("HTTP_PROXY") != "" || os.Getenv("HTTPS_PROXY") != "" ||
			os.Getenv("http_proxy") != "" || os.Getenv("https_proxy") != ""
	default:
		return true
	}
}

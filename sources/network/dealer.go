package network

import (
	"chaldea/sources/configuration"
	"chaldea/sources/tracing"
	"net"
	"time"

	"golang.org/x/net/proxy"
)

// NewProxyDialer returns a SOCKS5 dialer when proxy.url is set and a plain dialer
// otherwise.
func NewProxyDialer(config *configuration.Config, log *tracing.Logger) proxy.Dialer {
	if config.Proxy.URL == "" {
		return &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
	}

	var auth *proxy.Auth
	if config.Proxy.User != "" {
		auth = &proxy.Auth{User: config.Proxy.User, Password: config.Proxy.Password}
	}

	dialer, err := proxy.SOCKS5("tcp", config.Proxy.URL, auth, proxy.Direct)
	if err != nil {
		log.F("Failed to create proxy dialer", tracing.InnerError, err)
	}

	log.I("Bot API traffic goes through SOCKS5 proxy", tracing.ProxyUrl, config.Proxy.URL)
	return dialer
}

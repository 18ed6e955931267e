package network

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"runtime"
	"time"

	"chaldea/sources/configuration"
	"chaldea/sources/tracing"

	"golang.org/x/net/proxy"
)

// NewHTTPClient builds the client every Bot API session uses. The timeout always
// outlasts one long-poll round trip.
func NewHTTPClient(dialer proxy.Dialer, config *configuration.Config, log *tracing.Logger) *http.Client {
	timeout := time.Duration(config.Network.TimeoutSeconds) * time.Second
	if floor := time.Duration(config.Telegram.PollerTimeout+15) * time.Second; timeout < floor {
		timeout = floor
	}

	dc := func(ctx context.Context, network, address string) (net.Conn, error) {
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			return cd.DialContext(ctx, network, address)
		}
		return dialer.Dial(network, address)
	}

	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dc,
			MaxIdleConns:          20,
			IdleConnTimeout:       10 * time.Minute,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 5 * time.Second,
			MaxIdleConnsPerHost:   runtime.GOMAXPROCS(0) + 1,
			OnProxyConnectResponse: func(ctx context.Context, proxyURL *url.URL, connectReq *http.Request, connectRes *http.Response) error {
				log.I("Connected to proxy", tracing.ProxyUrl, proxyURL.String(), tracing.ProxyRes, connectRes.Status)
				return nil
			},
		},
	}
}

// Package transport builds the http.RoundTripper used for every call the
// gateway makes to the WooCommerce store.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	utls "github.com/refraction-networking/utls"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/http2"
)

// =============================================================================
// UPSTREAM TRANSPORT
// =============================================================================
//
// Stores fronted by Cloudflare-style CDNs rate-limit Go's default TLS
// ClientHello (JA3 fingerprinting). The Store API cart endpoints are hit on
// every storefront page view, so the gateway presents a Chrome fingerprint:
//
//   1. uTLS with HelloChrome_Auto performs the handshake
//   2. ALPN picks h2 or http/1.1
//   3. x/net/http2 frames h2 connections; net/http handles the rest
//
// Plain http:// targets (local WordPress, test servers) skip uTLS entirely.
// Every request is wrapped in an OpenTelemetry client span.
// =============================================================================

// New returns the instrumented upstream transport.
func New(timeout time.Duration) http.RoundTripper {
	return otelhttp.NewTransport(NewChromeTransport(timeout),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "woocommerce " + r.Method + " " + r.URL.Path
		}),
	)
}

// NewChromeTransport creates a RoundTripper that presents Chrome's TLS
// fingerprint on https targets.
func NewChromeTransport(timeout time.Duration) http.RoundTripper {
	dialer := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}

	dialTLS := func(ctx context.Context, network, addr string) (net.Conn, error) {
		return dialChromeTLS(ctx, dialer, network, addr)
	}

	return &chromeTransport{
		h2: &http2.Transport{
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				return dialTLS(ctx, network, addr)
			},
			ReadIdleTimeout: timeout,
		},
		h1: &http.Transport{
			DialContext:         dialer.DialContext,
			DialTLSContext:      dialTLS,
			MaxIdleConnsPerHost: 16,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

type chromeTransport struct {
	h2 *http2.Transport
	h1 *http.Transport
}

// RoundTrip prefers HTTP/2 for https and falls back to HTTP/1.1 when the
// store does not negotiate h2.
func (t *chromeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return t.h1.RoundTrip(req)
	}

	resp, err := t.h2.RoundTrip(req)
	if err == nil {
		return resp, nil
	}
	// Bodies already consumed by the h2 attempt cannot be replayed.
	if req.Body != nil && req.GetBody == nil {
		return nil, err
	}
	if req.GetBody != nil {
		body, gerr := req.GetBody()
		if gerr != nil {
			return nil, gerr
		}
		req = req.Clone(req.Context())
		req.Body = body
	}
	return t.h1.RoundTrip(req)
}

func dialChromeTLS(ctx context.Context, dialer *net.Dialer, network, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	tlsConn := utls.UClient(conn, &utls.Config{ServerName: host}, utls.HelloChrome_Auto)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}

	return tlsConn, nil
}

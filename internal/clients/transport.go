package clients

import (
	"net"
	"net/http"
	"time"
)

// DefaultTransport returns an HTTP transport with bounded connection pools and dial timeouts.
func DefaultTransport() *http.Transport {
	return &http.Transport{
		MaxConnsPerHost:     20,
		MaxIdleConnsPerHost: 5,
		MaxIdleConns:        20,
		IdleConnTimeout:     90 * time.Second,

		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,

		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// NewHTTPClient builds a client whose every call is bounded by timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &http.Client{Transport: DefaultTransport(), Timeout: timeout}
}

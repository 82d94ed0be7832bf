package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	logpkg "github.com/Watchlog-monitoring/watchlog-rum-go/pkg/log"
)

// AuthHeader carries the api key on keep-alive sends.
const AuthHeader = "X-Watchlog-Key"

// beaconTimeout bounds the teardown send; the host is going away and will
// not wait longer.
const beaconTimeout = 2 * time.Second

// Sender ships one payload to the collector. Implementations must be safe
// for concurrent use.
type Sender interface {
	Send(ctx context.Context, p *Payload) error
}

// HTTPSender is the keep-alive JSON POST path used for periodic and
// threshold flushes.
type HTTPSender struct {
	client   *http.Client
	endpoint string
	apiKey   string
	logger   logpkg.Logger
}

// NewHTTPSender returns the normal-mode sender.
func NewHTTPSender(endpoint, apiKey string, logger logpkg.Logger) *HTTPSender {
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	return &HTTPSender{
		client:   &http.Client{Timeout: 10 * time.Second},
		endpoint: endpoint,
		apiKey:   apiKey,
		logger:   logger.With(logpkg.Component("transport")),
	}
}

// Send POSTs the payload with the auth header set. Errors are returned for
// logging only; callers never retry.
func (s *HTTPSender) Send(ctx context.Context, p *Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set(AuthHeader, s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("transport: collector returned %s", resp.Status)
	}
	return nil
}

// BeaconSender is the teardown path: one attempt, short timeout, no custom
// headers. The in-body api key is the only authentication.
type BeaconSender struct {
	client   *http.Client
	endpoint string
	logger   logpkg.Logger
}

// NewBeaconSender returns the beacon-mode sender.
func NewBeaconSender(endpoint string, logger logpkg.Logger) *BeaconSender {
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	return &BeaconSender{
		client: &http.Client{
			Timeout:   beaconTimeout,
			Transport: &http.Transport{DisableKeepAlives: true},
		},
		endpoint: endpoint,
		logger:   logger.With(logpkg.Component("transport")),
	}
}

// Send POSTs the payload without custom headers. On failure the batch is
// lost; there is no fallback transport.
func (s *BeaconSender) Send(ctx context.Context, p *Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("transport: collector returned %s", resp.Status)
	}
	return nil
}

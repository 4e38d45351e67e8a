package connectivity

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"trip-optimizer-service/internal/platform/obs"
)

const DefaultProbeURL = "https://www.gstatic.com/generate_204"

// HTTPProbe implements ports.ConnectivityChecker with a HEAD request against a
// stable endpoint. Any HTTP response counts as reachable.
//
// The last result is cached; Online never touches the network.
type HTTPProbe struct {
	session *http.Client
	url     string
	timeout time.Duration

	online atomic.Bool
}

func NewHTTPProbe(url string, timeout time.Duration, session *http.Client) *HTTPProbe {
	if url == "" {
		url = DefaultProbeURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if session == nil {
		session = &http.Client{}
	}

	p := &HTTPProbe{session: session, url: url, timeout: timeout}
	p.online.Store(true)
	return p
}

func (p *HTTPProbe) Online() bool { return p.online.Load() }

// Probe checks reachability now and records the outcome for Online.
func (p *HTTPProbe) Probe(ctx context.Context) (err error) {
	defer obs.Time(ctx, "connectivity.Probe")(&err)
	defer func() { p.online.Store(err == nil) }()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return fmt.Errorf("probe %s: create request: %w", p.url, err)
	}

	resp, err := p.session.Do(req)
	if err != nil {
		return fmt.Errorf("probe %s: %w", p.url, err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

// Watch re-probes every interval until ctx is done.
func (p *HTTPProbe) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			was := p.Online()
			_ = p.Probe(ctx)
			if now := p.Online(); now != was {
				obs.Logger(ctx).Info("connectivity changed", "online", now)
			}
		}
	}
}

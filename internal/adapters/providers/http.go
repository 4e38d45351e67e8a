package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"trip-optimizer-service/internal/domain"
)

// DefaultUserAgent identifies the service to public OSM endpoints, which
// reject anonymous clients.
const DefaultUserAgent = "trip-optimizer-service/1.0"

// Upper bound for a single HTTP exchange. Callers bound requests more tightly
// through their context.
const sessionTimeout = 30 * time.Second

// Cap on error bodies kept for diagnostics.
const maxErrorBody = 4 << 10

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("Code %d: %s", e.Code, e.Body)
}

// client holds the plumbing shared by every adapter in this package.
// Retrying is left to the caller.
type client struct {
	session   *http.Client
	baseURL   string
	userAgent string
	apiKey    string
}

func newClient(baseURL, apiKey, userAgent string, session *http.Client) client {
	if session == nil {
		session = &http.Client{Timeout: sessionTimeout}
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return client{
		session:   session,
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		apiKey:    apiKey,
	}
}

func (c *client) newRequest(
	ctx context.Context,
	method string,
	endpoint string,
	query url.Values,
	body io.Reader,
) (*http.Request, error) {
	u := c.baseURL + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

func (c *client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		return nil, &httpStatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(b)),
		}
	}
	return resp, nil
}

// getJSON issues a GET and decodes a successful JSON body into out.
func (c *client) getJSON(ctx context.Context, endpoint string, query url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, query, nil)
	if err != nil {
		return err
	}
	return c.decode(req, out)
}

// postJSON marshals in as the request body and decodes the response into out.
func (c *client) postJSON(ctx context.Context, endpoint string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, endpoint, nil, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	return c.decode(req, out)
}

func (c *client) decode(req *http.Request, out any) error {
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.Error{Kind: domain.KindBadResponse, Message: "decode response", Err: err}
	}
	return nil
}

// statusError maps an HTTP failure without a recognised provider code onto
// the error taxonomy. Non-HTTP errors are returned unchanged.
func statusError(provider string, err error) error {
	var he *httpStatusError
	if !errors.As(err, &he) {
		return err
	}

	kind := domain.KindBadResponse
	switch {
	case he.Code == http.StatusTooManyRequests:
		kind = domain.KindRateLimited
	case he.Code >= 500:
		kind = domain.KindServerError
	case he.Code == http.StatusRequestEntityTooLarge:
		kind = domain.KindTooBig
	}

	return &domain.Error{
		Kind:       kind,
		Provider:   provider,
		StatusCode: he.Code,
		Message:    he.Body,
		Err:        err,
	}
}

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/usertheme/internal/client/models"
	"github.com/dmitrijs2005/usertheme/internal/common"
	"github.com/dmitrijs2005/usertheme/internal/validator"
)

// maxResponseBytes bounds every response body read by the client.
const maxResponseBytes = 4 << 20

// HTTPClient talks to the theme server's JSON API.
type HTTPClient struct {
	base        *url.URL
	http        *http.Client
	userID      string
	accessToken string
}

type Option func(*HTTPClient)

// WithUserID sends id as the userId cookie.
func WithUserID(id string) Option {
	return func(c *HTTPClient) { c.userID = strings.TrimSpace(id) }
}

// WithAccessToken sends token as a bearer credential.
func WithAccessToken(token string) Option {
	return func(c *HTTPClient) { c.accessToken = strings.TrimSpace(token) }
}

func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.http.Timeout = d }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.http = hc }
}

func NewHTTPClient(baseURL string, opts ...Option) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}

	c := &HTTPClient{base: u, http: &http.Client{Timeout: 10 * time.Second}}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *HTTPClient) resolve(ref string) (string, error) {
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", ref, err)
	}
	return c.base.ResolveReference(r).String(), nil
}

func (c *HTTPClient) do(ctx context.Context, method, ref string, body any) (*http.Response, error) {
	target, err := c.resolve(ref)
	if err != nil {
		return nil, err
	}

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userID != "" {
		req.AddCookie(&http.Cookie{Name: common.UserIDCookieName, Value: c.userID})
	}
	if c.accessToken != "" {
		req.Header.Set(common.AccessTokenHeaderName, "Bearer "+c.accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}

// statusError maps non-2xx statuses to sentinel errors.
func statusError(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusForbidden:
		return ErrForbidden
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	return fmt.Errorf("unexpected status %d", resp.StatusCode)
}

func readBody(resp *http.Response) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	return data, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, ref string, dst any) error {
	resp, err := c.do(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	data, err := readBody(resp)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", ref, err)
	}
	return nil
}

func (c *HTTPClient) UserInfo(ctx context.Context) (*models.UserInfo, error) {
	var info models.UserInfo
	if err := c.getJSON(ctx, "/api/user/info", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *HTTPClient) ListVersions(ctx context.Context) ([]string, error) {
	var out struct {
		Versions []string `json:"versions"`
	}
	if err := c.getJSON(ctx, "/api/user-theme/versions", &out); err != nil {
		return nil, err
	}
	if out.Versions == nil {
		out.Versions = []string{}
	}
	return out.Versions, nil
}

// FetchCSS downloads version bytes. contentURL may be absolute or relative
// to the server URL.
func (c *HTTPClient) FetchCSS(ctx context.Context, contentURL string) (string, error) {
	return c.getText(ctx, contentURL)
}

func (c *HTTPClient) getText(ctx context.Context, ref string) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp)
	}
	data, err := readBody(resp)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SetCurrent updates the server's active version; nil selects the official
// theme.
func (c *HTTPClient) SetCurrent(ctx context.Context, version *string) error {
	resp, err := c.do(ctx, http.MethodPut, "/api/user-theme/current", map[string]*string{"version": version})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return nil
}

func (c *HTTPClient) Submit(ctx context.Context, css, source string) (*models.SubmitResult, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/user-theme", map[string]string{"css": css, "source": source})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var res models.SubmitResult
		if err := json.Unmarshal(data, &res); err != nil {
			return nil, fmt.Errorf("decode submit response: %w", err)
		}
		return &res, nil
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		var out struct {
			Errors []validator.Violation `json:"errors"`
		}
		_ = json.Unmarshal(data, &out)
		return nil, &RejectedError{StatusCode: resp.StatusCode, Violations: out.Errors}
	}
	return nil, statusError(resp)
}

// Validate asks the server for its verdict without storing anything.
func (c *HTTPClient) Validate(ctx context.Context, css string) (*validator.Result, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/user-theme/validate", map[string]string{"css": css})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusRequestEntityTooLarge {
		return nil, &RejectedError{StatusCode: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadRequest {
		return nil, statusError(resp)
	}

	data, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	var res validator.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode validate response: %w", err)
	}
	return &res, nil
}

// PageShell fetches the server-rendered page.
func (c *HTTPClient) PageShell(ctx context.Context) (string, error) {
	page, err := c.getText(ctx, "/")
	if err != nil {
		return "", fmt.Errorf("page shell: %w", err)
	}
	return page, nil
}

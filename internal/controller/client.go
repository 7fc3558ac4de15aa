// Package controller is the HTTP client for the laser trimming controller.
package controller

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

	"github.com/ShayCichocki/trimwatch/internal/monitor"
	"github.com/ShayCichocki/trimwatch/internal/status"
	"github.com/ShayCichocki/trimwatch/internal/version"
)

// DefaultRequestTimeout bounds control requests. The status stream is not
// bounded; it lives as long as the subscription context.
const DefaultRequestTimeout = 10 * time.Second

// maxErrorBody bounds how much of a failed response is kept.
const maxErrorBody = 1 << 20

// ErrNotActive is returned when a stop is requested but no run is active.
var ErrNotActive = errors.New("auto-adjust is not active")

// HTTPError is a non-2xx reply from the controller.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("controller returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("controller returned %d: %s", e.Status, body)
}

// Client talks to one controller.
type Client struct {
	baseURL        *url.URL
	httpClient     *http.Client
	requestTimeout time.Duration
	userAgent      string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. Its Timeout should be zero, since
// the status stream stays open for the length of a burst.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRequestTimeout bounds control requests.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.requestTimeout = d
	}
}

// New creates a client for the controller at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse controller URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parse controller URL: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse controller URL: missing host in %q", baseURL)
	}

	c := &Client{
		baseURL:        u,
		httpClient:     &http.Client{},
		requestTimeout: DefaultRequestTimeout,
		userAgent:      version.UserAgent(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the controller address.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Subscribe opens the status stream. It implements monitor.Source.
func (c *Client) Subscribe(ctx context.Context) (monitor.Stream, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/auto_status", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/x-ndjson, application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open status stream: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	return &stream{body: resp.Body, reader: status.NewReader(resp.Body)}, nil
}

type stream struct {
	body   io.ReadCloser
	reader *status.Reader
}

func (s *stream) Next() (status.Envelope, error) {
	return s.reader.Next()
}

func (s *stream) Close() error {
	return s.body.Close()
}

// Toggle starts the auto-adjust run, or cancels it if one is in progress. The
// controller answers with an acknowledgment either way; a rejected command is
// returned as an acknowledgment with Success false, not as an error.
func (c *Client) Toggle(ctx context.Context) (status.Acknowledgment, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodPost, "/control/adjust-all", strings.NewReader("{}"))
	if err != nil {
		return status.Acknowledgment{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return status.Acknowledgment{}, fmt.Errorf("toggle auto-adjust: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return status.Acknowledgment{}, err
	}

	var ack status.Acknowledgment
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return status.Acknowledgment{}, fmt.Errorf("decode control result: %w", err)
	}
	return ack, nil
}

// ConfigUpdate holds the controller settings that can be changed remotely.
// Nil fields are left as they are.
type ConfigUpdate struct {
	TargetFreq   *float64 `json:"TargetFreq,omitempty"`
	WorkOffsetHz *float64 `json:"WorkOffsetHz,omitempty"`
}

// UpdateConfig patches the controller's working configuration.
func (c *Client) UpdateConfig(ctx context.Context, upd ConfigUpdate) error {
	if upd.TargetFreq != nil && *upd.TargetFreq <= 0 {
		return fmt.Errorf("target frequency must be positive, got %v", *upd.TargetFreq)
	}

	body, err := json.Marshal(upd)
	if err != nil {
		return fmt.Errorf("marshal config update: %w", err)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodPatch, "/config", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("update config: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// UpdateTarget sets the controller's target frequency.
func (c *Client) UpdateTarget(ctx context.Context, target float64) error {
	return c.UpdateConfig(ctx, ConfigUpdate{TargetFreq: &target})
}

// DownloadReport writes the spreadsheet report of a batch to w and returns the
// number of bytes written.
func (c *Client) DownloadReport(ctx context.Context, batch string, w io.Writer) (int64, error) {
	batch = strings.TrimSpace(batch)
	if batch == "" {
		return 0, errors.New("batch id is required")
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/report2/"+url.PathEscape(batch), nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download report: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return 0, err
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("download report: %w", err)
	}
	return n, nil
}

// IsCancellation reports whether ack confirms that a run was cancelled. The
// controller's replies are localized, so they are matched against phrases.
func IsCancellation(ack status.Acknowledgment, phrases []string) bool {
	if !ack.Success {
		return false
	}
	msg := strings.ToLower(strings.TrimSpace(ack.Message))
	if msg == "" {
		return false
	}
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" && strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	u := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create %s %s request: %w", method, path, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.requestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.requestTimeout)
}

// checkStatus turns a non-2xx reply into an *HTTPError and closes its body.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &HTTPError{Status: resp.StatusCode, Body: string(body)}
}

var _ monitor.Source = (*Client)(nil)

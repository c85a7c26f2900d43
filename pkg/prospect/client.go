package prospect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Default base URL for the Prospect API.
const defaultBaseURL = "https://api.prospect.dev/v1"

// Client defines the Prospect discovery/enrichment API operations.
type Client interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error)
	AppendSearch(ctx context.Context, sessionID string, req AppendSearchRequest) (*SubSearch, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	ListItems(ctx context.Context, sessionID, cursor string, limit int) (*ItemPage, error)
	CancelSession(ctx context.Context, id string) error
	CancelSearch(ctx context.Context, sessionID, searchID string) error
	DeleteSession(ctx context.Context, id string) error
	CreateEnrichment(ctx context.Context, sessionID string, req CreateEnrichmentRequest) (*Enrichment, error)
	GetEnrichment(ctx context.Context, sessionID, id string) (*Enrichment, error)
}

// APIError is returned when the provider responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("prospect: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outbound requests per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a new Prospect API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(10), 20),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	var resp Session
	if err := c.post(ctx, "/sessions", req, &resp); err != nil {
		return nil, eris.Wrap(err, "prospect: create session")
	}
	return &resp, nil
}

func (c *httpClient) AppendSearch(ctx context.Context, sessionID string, req AppendSearchRequest) (*SubSearch, error) {
	var resp SubSearch
	if err := c.post(ctx, fmt.Sprintf("/sessions/%s/searches", sessionID), req, &resp); err != nil {
		return nil, eris.Wrapf(err, "prospect: append search to session %s", sessionID)
	}
	return &resp, nil
}

func (c *httpClient) GetSession(ctx context.Context, id string) (*Session, error) {
	var resp Session
	if err := c.get(ctx, fmt.Sprintf("/sessions/%s", id), &resp); err != nil {
		return nil, eris.Wrapf(err, "prospect: get session %s", id)
	}
	return &resp, nil
}

func (c *httpClient) ListItems(ctx context.Context, sessionID, cursor string, limit int) (*ItemPage, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := fmt.Sprintf("/sessions/%s/items", sessionID)
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}
	var resp ItemPage
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, eris.Wrapf(err, "prospect: list items for session %s", sessionID)
	}
	return &resp, nil
}

func (c *httpClient) CancelSession(ctx context.Context, id string) error {
	if err := c.post(ctx, fmt.Sprintf("/sessions/%s/cancel", id), struct{}{}, nil); err != nil {
		return eris.Wrapf(err, "prospect: cancel session %s", id)
	}
	return nil
}

func (c *httpClient) CancelSearch(ctx context.Context, sessionID, searchID string) error {
	if err := c.post(ctx, fmt.Sprintf("/sessions/%s/searches/%s/cancel", sessionID, searchID), struct{}{}, nil); err != nil {
		return eris.Wrapf(err, "prospect: cancel search %s", searchID)
	}
	return nil
}

func (c *httpClient) DeleteSession(ctx context.Context, id string) error {
	if err := c.delete(ctx, fmt.Sprintf("/sessions/%s", id)); err != nil {
		return eris.Wrapf(err, "prospect: delete session %s", id)
	}
	return nil
}

func (c *httpClient) CreateEnrichment(ctx context.Context, sessionID string, req CreateEnrichmentRequest) (*Enrichment, error) {
	var resp Enrichment
	if err := c.post(ctx, fmt.Sprintf("/sessions/%s/enrichments", sessionID), req, &resp); err != nil {
		return nil, eris.Wrapf(err, "prospect: create enrichment in session %s", sessionID)
	}
	return &resp, nil
}

func (c *httpClient) GetEnrichment(ctx context.Context, sessionID, id string) (*Enrichment, error) {
	var resp Enrichment
	if err := c.get(ctx, fmt.Sprintf("/sessions/%s/enrichments/%s", sessionID, id), &resp); err != nil {
		return nil, eris.Wrapf(err, "prospect: get enrichment %s", id)
	}
	return &resp, nil
}

func (c *httpClient) post(ctx context.Context, path string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.do(ctx, req, out)
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.do(ctx, req, out)
}

func (c *httpClient) delete(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.do(ctx, req, nil)
}

func (c *httpClient) do(ctx context.Context, req *http.Request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "rate limit wait")
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "decode response")
	}

	return nil
}

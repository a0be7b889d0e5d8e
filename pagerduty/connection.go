package pagerduty

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the PagerDuty REST API host
	DefaultBaseURL = "https://api.pagerduty.com/"
	// DefaultAPIVersion is the API version requested when none is given
	DefaultAPIVersion = 2
	// DefaultPage is the page read by Get when none is given
	DefaultPage = 1
	// DefaultLimit is the page size used by Get when none is given
	DefaultLimit = 100
)

// Connection is a PagerDuty REST API connection. It is configured once and
// holds no per-request state, so one Connection may serve concurrent calls
// as long as its HTTP client does.
type Connection struct {
	baseURL    string
	token      string
	apiVersion int
	location   *time.Location
	httpClient Doer
	logger     zerolog.Logger

	handler Handler
}

// New creates a Connection authenticating with token.
func New(token string, opts ...Option) (*Connection, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: token is required", ErrInvalidConfig)
	}

	c := &Connection{
		baseURL:    DefaultBaseURL,
		token:      token,
		apiVersion: DefaultAPIVersion,
		location:   time.UTC,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.apiVersion < 1 {
		return nil, fmt.Errorf("%w: api version must be positive, got %d", ErrInvalidConfig, c.apiVersion)
	}
	if c.baseURL == "" {
		return nil, fmt.Errorf("%w: base URL is required", ErrInvalidConfig)
	}
	if !strings.HasSuffix(c.baseURL, "/") {
		c.baseURL += "/"
	}

	c.handler = Chain(c.send,
		Authenticate(c.token, c.apiVersion),
		EncodeTimes(),
		HydrateTimes(NewHydrator(c.location)),
		DecodeJSON(),
		ClassifyStatus(),
	)

	return c, nil
}

// BaseURL returns the URL every path is resolved against.
func (c *Connection) BaseURL() string {
	return c.baseURL
}

// APIVersion returns the API version requested by the connection.
func (c *Connection) APIVersion() int {
	return c.apiVersion
}

// Get reads path. The page (default 1) and limit (default 100) options are
// translated into offset and limit query parameters.
func (c *Connection) Get(ctx context.Context, path string, opts Options) (Object, error) {
	params := opts.clone()

	page, err := popInt(params, "page", DefaultPage)
	if err != nil {
		return nil, err
	}
	limit, err := popInt(params, "limit", DefaultLimit)
	if err != nil {
		return nil, err
	}

	if page-1 > math.MaxInt/limit {
		return nil, &InputError{Param: "page", Value: page, Reason: "offset overflows"}
	}
	params["offset"] = (page - 1) * limit
	params["limit"] = limit

	return c.run(ctx, http.MethodGet, path, params)
}

// Put sends opts as the JSON body of a PUT to path.
func (c *Connection) Put(ctx context.Context, path string, opts Options) (Object, error) {
	return c.run(ctx, http.MethodPut, path, opts.clone())
}

// Post sends opts as the JSON body of a POST to path.
func (c *Connection) Post(ctx context.Context, path string, opts Options) (Object, error) {
	return c.run(ctx, http.MethodPost, path, opts.clone())
}

// Delete sends a DELETE to path, with opts as the JSON body when non-empty.
func (c *Connection) Delete(ctx context.Context, path string, opts Options) (Object, error) {
	return c.run(ctx, http.MethodDelete, path, opts.clone())
}

// GetAll reads every page of a list endpoint and returns the concatenated
// collectionKey arrays. Pages are fetched one after another until the
// response reports no more results.
func (c *Connection) GetAll(ctx context.Context, path, collectionKey string, opts Options) (Array, error) {
	params := opts.clone()
	page, err := popInt(params, "page", DefaultPage)
	if err != nil {
		return nil, err
	}

	var all Array
	for {
		params["page"] = page
		doc, err := c.Get(ctx, path, params)
		if err != nil {
			return nil, fmt.Errorf("failed to get page %d of %s: %w", page, path, err)
		}

		items, _ := doc.GetArray(collectionKey)
		all = append(all, items...)

		c.logger.Debug().
			Str("path", path).
			Int("page", page).
			Int("count", len(items)).
			Int("total", len(all)).
			Msg("Retrieved page from PagerDuty")

		more, _ := doc.GetBool("more")
		if !more || len(items) == 0 {
			break
		}
		page++
	}

	return all, nil
}

// run dispatches one call through the stage chain.
func (c *Connection) run(ctx context.Context, method, path string, params Options) (Object, error) {
	req := &Request{
		Method: method,
		Path:   strings.TrimPrefix(path, "/"),
		Header: make(http.Header),
		Params: params,
	}

	resp, err := c.handler(ctx, req)
	if err != nil {
		return nil, err
	}

	doc, _ := resp.Document.(Object)
	return doc, nil
}

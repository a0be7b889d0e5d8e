// Package transport builds the HTTP client used to reach the PagerDuty API:
// retries with backoff, optional client-side rate limiting and request logging.
package transport

import (
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Config controls the HTTP client built by New.
type Config struct {
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// RateLimit is the number of requests per second; zero disables limiting
	RateLimit float64
	UserAgent string
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Timeout:      30 * time.Second,
		RetryMax:     3,
		RetryWaitMin: 1 * time.Second,
		RetryWaitMax: 10 * time.Second,
		UserAgent:    "pagerduty-go",
	}
}

// New builds an *http.Client that retries connection errors, 5xx (except 501)
// and 429 responses, honouring Retry-After, and logs every request. When the
// retries run out the last response is returned as is.
func New(cfg Config, logger zerolog.Logger) *http.Client {
	var base http.RoundTripper = newLoggingTransport(http.DefaultTransport, cfg.UserAgent, logger)
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		base = &rateLimitedTransport{
			base:    base,
			limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), burst),
		}
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = &http.Client{Transport: base}
	retryClient.RetryMax = cfg.RetryMax
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.Logger = retryablehttp.LeveledLogger(leveledZerolog{logger})
	// hand the last response back so the caller classifies its status
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	client := retryClient.StandardClient()
	client.Timeout = cfg.Timeout
	return client
}

// rateLimitedTransport waits for the limiter before each request.
type rateLimitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}

// loggingTransport logs method, sanitized URL, status and duration.
type loggingTransport struct {
	base      http.RoundTripper
	userAgent string
	logger    zerolog.Logger
}

func newLoggingTransport(base http.RoundTripper, userAgent string, logger zerolog.Logger) *loggingTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &loggingTransport{base: base, userAgent: userAgent, logger: logger}
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	if t.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.base.RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		t.logger.Warn().
			Err(err).
			Str("method", req.Method).
			Str("url", sanitizeURL(req.URL)).
			Dur("duration", duration).
			Msg("HTTP request failed")
		return nil, err
	}

	event := t.logger.Debug()
	if resp.StatusCode >= 400 {
		event = t.logger.Warn()
	}
	event.
		Str("method", req.Method).
		Str("url", sanitizeURL(req.URL)).
		Int("status", resp.StatusCode).
		Dur("duration", duration).
		Msg("HTTP request")

	return resp, nil
}

// sanitizeURL drops user info from u. PagerDuty credentials travel in
// headers, so the query is kept.
func sanitizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	clean := *u
	clean.User = nil
	return clean.String()
}

// leveledZerolog adapts zerolog to retryablehttp.LeveledLogger. Errors are
// logged as warnings since the request may still succeed on retry.
type leveledZerolog struct {
	logger zerolog.Logger
}

func (l leveledZerolog) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}

func (l leveledZerolog) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}

func (l leveledZerolog) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info().Fields(keysAndValues).Msg(msg)
}

func (l leveledZerolog) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

package pagerduty

import (
	"context"
	"net/http"
)

// Request is the per-call request context handed down the stage chain.
type Request struct {
	Method string
	// Path is relative to the connection base URL, without a leading slash
	Path   string
	Header http.Header
	// Params go to the query string for GET and to the JSON body otherwise
	Params Options
}

// Response is the per-call response context handed back up the stage chain.
type Response struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	// Document is set by the decoding stage
	Document Node
}

// Handler runs one request through the remaining stages.
type Handler func(ctx context.Context, req *Request) (*Response, error)

// Middleware wraps a Handler with one stage.
type Middleware func(next Handler) Handler

// Chain wraps base with middlewares. The first middleware is the outermost:
// it sees the request first and the response last.
func Chain(base Handler, middlewares ...Middleware) Handler {
	h := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

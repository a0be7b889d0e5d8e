package pagerduty

import (
	"context"
	"fmt"
	"net/http"
)

// Authenticate attaches the token credential and the versioned Accept header
// to every request.
func Authenticate(token string, apiVersion int) Middleware {
	authorization := "Token token=" + token
	accept := fmt.Sprintf("application/vnd.pagerduty+json;version=%d", apiVersion)

	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			if req.Header == nil {
				req.Header = make(http.Header)
			}
			req.Header.Set("Authorization", authorization)
			req.Header.Set("Accept", accept)
			return next(ctx, req)
		}
	}
}

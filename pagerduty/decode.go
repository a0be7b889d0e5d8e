package pagerduty

import (
	"bytes"
	"context"
	"errors"
	"net/http"
)

// errEmptyBody is wrapped in a DecodeError when a response that should carry
// a document has no body.
var errEmptyBody = errors.New("empty response body")

// DecodeJSON parses the response body into Response.Document. A 204 No
// Content response decodes to an empty Object; any other empty body is a
// DecodeError.
func DecodeJSON() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			resp, err := next(ctx, req)
			if err != nil {
				return nil, err
			}

			if resp.StatusCode == http.StatusNoContent {
				resp.Document = Object{}
				return resp, nil
			}

			if len(bytes.TrimSpace(resp.Body)) == 0 {
				return nil, &DecodeError{URL: resp.URL, Err: errEmptyBody}
			}

			doc, err := ParseDocument(resp.Body)
			if err != nil {
				return nil, &DecodeError{URL: resp.URL, Err: err}
			}
			resp.Document = doc
			return resp, nil
		}
	}
}

package pagerduty

import (
	"context"
	"net/http"
)

// ClassifyStatus turns 404 into a NotFoundError and any status other than
// 200, 201 and 204 into an APIError. Successful responses pass through.
func ClassifyStatus() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			resp, err := next(ctx, req)
			if err != nil {
				return nil, err
			}

			switch resp.StatusCode {
			case http.StatusOK, http.StatusCreated, http.StatusNoContent:
				return resp, nil
			case http.StatusNotFound:
				return nil, &NotFoundError{URL: resp.URL}
			default:
				return nil, &APIError{
					URL:        resp.URL,
					StatusCode: resp.StatusCode,
					Payload:    errorPayload(resp.Body),
					Body:       string(resp.Body),
				}
			}
		}
	}
}

// errorPayload extracts the "error" field of an error body. Bodies that are
// not JSON objects yield nil.
func errorPayload(body []byte) Node {
	doc, err := ParseDocument(body)
	if err != nil {
		return nil
	}
	obj, ok := doc.(Object)
	if !ok {
		return nil
	}
	payload, ok := obj["error"]
	if !ok {
		return nil
	}
	if _, isNull := payload.(Null); isNull {
		return nil
	}
	return payload
}

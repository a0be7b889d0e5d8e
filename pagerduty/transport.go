package pagerduty

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"
)

// send is the innermost handler: it performs the HTTP round trip through the
// connection's Doer and returns the raw response.
func (c *Connection) send(ctx context.Context, req *Request) (*Response, error) {
	target := c.baseURL + req.Path

	var body io.Reader
	if req.Method == http.MethodGet {
		if q := encodeQuery(req.Params); q != "" {
			sep := "?"
			if strings.Contains(target, "?") {
				sep = "&"
			}
			target += sep + q
		}
	} else if len(req.Params) > 0 {
		payload, err := json.Marshal(req.Params)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
		req.Header.Set("Content-Type", "application/json")
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header = req.Header

	c.logger.Debug().
		Str("method", req.Method).
		Str("path", req.Path).
		Msg("Making PagerDuty API request")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		URL:        target,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// encodeQuery encodes params with bracket conventions: slices as key[]=v and
// maps as key[sub]=v. Keys are sorted.
func encodeQuery(params Options) string {
	values := url.Values{}
	for key, value := range params {
		appendQuery(values, key, value)
	}
	return values.Encode()
}

func appendQuery(values url.Values, key string, value any) {
	switch v := value.(type) {
	case Options:
		for sub, inner := range v {
			appendQuery(values, key+"["+sub+"]", inner)
		}
	case map[string]any:
		for sub, inner := range v {
			appendQuery(values, key+"["+sub+"]", inner)
		}
	case Object:
		for sub, inner := range v {
			appendQuery(values, key+"["+sub+"]", inner)
		}
	case []string:
		for _, s := range v {
			values.Add(key+"[]", s)
		}
	case Array:
		for _, inner := range v {
			appendQuery(values, key+"[]", inner)
		}
	default:
		rv := reflect.ValueOf(value)
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
			for i := 0; i < rv.Len(); i++ {
				appendQuery(values, key+"[]", rv.Index(i).Interface())
			}
			return
		}
		values.Add(key, formatScalar(value))
	}
}

func formatScalar(value any) string {
	switch v := value.(type) {
	case nil, Null:
		return ""
	case string:
		return v
	case String:
		return string(v)
	case Number:
		return string(v)
	case Bool:
		if v {
			return "true"
		}
		return "false"
	case time.Time:
		return v.Format(ISO8601)
	case Time:
		return v.Format(ISO8601)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

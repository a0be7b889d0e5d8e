package pagerduty

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/rs/zerolog"
)

// Options are the parameters of a call. Get also reads the reserved keys
// page and limit.
type Options map[string]any

// clone returns a shallow copy so callers' maps are never modified.
func (o Options) clone() Options {
	out := make(Options, len(o)+2)
	maps.Copy(out, o)
	return out
}

// Params builds Options from a struct with `url` tags, using the same tag
// syntax as github.com/google/go-querystring. Keys ending in [] become
// string slices.
func Params(v any) (Options, error) {
	values, err := query.Values(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode params: %w", err)
	}

	opts := make(Options, len(values))
	for key, vals := range values {
		if name, ok := strings.CutSuffix(key, "[]"); ok {
			opts[name] = append([]string(nil), vals...)
			continue
		}
		if len(vals) == 1 {
			opts[key] = vals[0]
		} else {
			opts[key] = append([]string(nil), vals...)
		}
	}
	return opts, nil
}

// popInt removes key from params and returns it as a positive integer.
func popInt(params Options, key string, fallback int) (int, error) {
	value, ok := params[key]
	delete(params, key)
	if !ok || value == nil {
		return fallback, nil
	}

	n, err := toInt(value)
	if err != nil {
		return 0, &InputError{Param: key, Value: value, Reason: err.Error()}
	}
	if n < 1 {
		return 0, &InputError{Param: key, Value: value, Reason: "must be at least 1"}
	}
	return n, nil
}

func toInt(value any) (int, error) {
	switch v := value.(type) {
	case string:
		return strconv.Atoi(strings.TrimSpace(v))
	case String:
		return strconv.Atoi(strings.TrimSpace(string(v)))
	case json.Number:
		return numberToInt(v)
	case Number:
		return numberToInt(json.Number(v))
	case float64:
		return floatToInt(v)
	case float32:
		return floatToInt(float64(v))
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int64ToInt(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt {
			return 0, errOutOfRange
		}
		return int(u), nil
	}
	return 0, fmt.Errorf("not a number")
}

var errOutOfRange = errors.New("out of range")

// numberToInt accepts integral literals such as "2" and "2.0".
func numberToInt(n json.Number) (int, error) {
	if i, err := n.Int64(); err == nil {
		return int64ToInt(i)
	}
	f, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	return floatToInt(f)
}

func int64ToInt(i int64) (int, error) {
	if i > math.MaxInt || i < math.MinInt {
		return 0, errOutOfRange
	}
	return int(i), nil
}

func floatToInt(f float64) (int, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("not an integer")
	}
	if f >= float64(math.MaxInt) || f < float64(math.MinInt) {
		return 0, errOutOfRange
	}
	return int(f), nil
}

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures a Connection.
type Option func(*Connection)

// WithAPIVersion sets the API version sent in the Accept header.
func WithAPIVersion(version int) Option {
	return func(c *Connection) {
		c.apiVersion = version
	}
}

// WithLocation sets the time zone used when parsing response timestamps.
func WithLocation(loc *time.Location) Option {
	return func(c *Connection) {
		if loc != nil {
			c.location = loc
		}
	}
}

// WithHTTPClient sets the HTTP collaborator used to send requests.
func WithHTTPClient(client Doer) Option {
	return func(c *Connection) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Connection) {
		c.logger = logger
	}
}

// WithBaseURL points the connection at another host, such as a test server
// or a proxy. Every call of the connection is relative to it.
func WithBaseURL(baseURL string) Option {
	return func(c *Connection) {
		c.baseURL = baseURL
	}
}

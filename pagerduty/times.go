package pagerduty

import (
	"context"
	"time"
)

// ISO8601 is the layout used for outbound timestamps. UTC renders as +00:00.
const ISO8601 = "2006-01-02T15:04:05-07:00"

// outboundTimeKeys are the top-level parameters converted before sending.
var outboundTimeKeys = []string{"since", "until"}

// iso8601Formatter is implemented by values that know their own ISO-8601 form.
type iso8601Formatter interface {
	ISO8601() string
}

// EncodeTimes converts date/time values of the since and until parameters
// into ISO-8601 strings. Other values, including strings, are left alone.
func EncodeTimes() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			for _, key := range outboundTimeKeys {
				value, ok := req.Params[key]
				if !ok {
					continue
				}
				if formatted, ok := formatISO8601(value); ok {
					req.Params[key] = formatted
				}
			}
			return next(ctx, req)
		}
	}
}

func formatISO8601(value any) (string, bool) {
	switch t := value.(type) {
	case time.Time:
		return t.Format(ISO8601), true
	case *time.Time:
		if t == nil {
			return "", false
		}
		return t.Format(ISO8601), true
	case Time:
		return t.Format(ISO8601), true
	case iso8601Formatter:
		return t.ISO8601(), true
	default:
		return "", false
	}
}

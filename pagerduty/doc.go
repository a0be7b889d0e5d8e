// Package pagerduty provides a connection to the PagerDuty REST API.
//
// A Connection wraps raw HTTP calls in a fixed chain of stages that is
// composed once, when the connection is created:
//
//   - Authenticate: attaches "Authorization: Token token=..." and the versioned Accept header
//   - EncodeTimes: serializes since/until time values as ISO-8601 strings
//   - send: performs the HTTP round trip through the configured Doer
//   - ClassifyStatus: turns 404 into NotFoundError and other failures into APIError
//   - DecodeJSON: parses the body into a Node tree
//   - HydrateTimes: converts known timestamp fields into Time values
//
// Requests pass the stages top to bottom and responses come back bottom to top.
//
// # Usage
//
//	conn, err := pagerduty.New(os.Getenv("PAGERDUTY_TOKEN"),
//		pagerduty.WithLogger(logger),
//		pagerduty.WithLocation(loc),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	doc, err := conn.Get(ctx, "users", pagerduty.Options{"page": 2, "limit": 25})
//	if err != nil {
//		log.Fatal(err)
//	}
//	users, _ := doc.GetArray("users")
//
// Get translates the page and limit options into offset and limit query
// parameters; Put, Post and Delete send their options as a JSON body.
//
// # Documents
//
// Responses are returned as an Object, a map of Node values. Node is a closed
// set of types (Object, Array, String, Number, Bool, Null, Time). Timestamp
// fields such as created_at under incident, incidents, log_entries and
// similar keys arrive as Time.
//
// # Error Handling
//
// Every error returned by the pipeline has a kind:
//
//   - NotFoundError (ErrNotFound): the response status was 404
//   - APIError (ErrAPI): any other status outside 200, 201 and 204
//   - DecodeError (ErrDecode): the body or a timestamp field could not be parsed
//   - InputError (ErrInput): malformed page/limit or a non-object document
//
// Use errors.As for the structured fields, or KindOf to branch on the kind:
//
//	var apiErr *pagerduty.APIError
//	if errors.As(err, &apiErr) && apiErr.IsRateLimited() {
//		// back off
//	}
//
// The connection never retries. Retries and rate limiting belong to the HTTP
// client handed in with WithHTTPClient.
package pagerduty

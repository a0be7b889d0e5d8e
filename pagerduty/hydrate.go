package pagerduty

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// timeKeys are the fields holding timestamp strings.
var timeKeys = []string{
	"at",
	"created_at",
	"created_on",
	"end",
	"end_time",
	"last_incident_timestamp",
	"last_status_change_on",
	"rotation_virtual_start",
	"start",
	"started_at",
	"start_time",
}

// objectKeys are the fields whose object values carry timestamp fields.
var objectKeys = []string{
	"alert",
	"entry",
	"incident",
	"log_entry",
	"maintenance_window",
	"note",
	"override",
	"service",
}

// collectionKeys maps each object key to the name of its list form.
var collectionKeys = map[string]string{
	"alert":              "alerts",
	"entry":              "entries",
	"incident":           "incidents",
	"log_entry":          "log_entries",
	"maintenance_window": "maintenance_windows",
	"note":               "notes",
	"override":           "overrides",
	"service":            "services",
}

// nestedCollectionKeys are list fields inside collection elements whose
// elements carry timestamp fields too.
var nestedCollectionKeys = []string{
	"acknowledgers",
	"assigned_to",
	"pending_actions",
}

// Hydrator converts timestamp strings of a decoded document into Time values.
// It holds no mutable state and is safe for concurrent use.
type Hydrator struct {
	location *time.Location
}

// NewHydrator returns a Hydrator parsing timestamps in loc, or UTC when loc is nil.
func NewHydrator(loc *time.Location) *Hydrator {
	if loc == nil {
		loc = time.UTC
	}
	return &Hydrator{location: loc}
}

// Hydrate rewrites the recognized timestamp fields of doc in place and returns
// the same tree. doc must be an Object.
func (h *Hydrator) Hydrate(doc Node) (Object, error) {
	body, ok := doc.(Object)
	if !ok {
		return nil, &InputError{
			Param:  "document",
			Value:  kindName(doc),
			Reason: "time hydration requires an object",
		}
	}

	for _, key := range objectKeys {
		if object, ok := body[key].(Object); ok {
			if err := h.hydrateObject(object); err != nil {
				return nil, err
			}
		}
		if collection, ok := body[collectionKeys[key]].(Array); ok {
			if err := h.hydrateCollection(collection); err != nil {
				return nil, err
			}
		}
	}

	return body, nil
}

func (h *Hydrator) hydrateCollection(collection Array) error {
	for _, element := range collection {
		object, ok := element.(Object)
		if !ok {
			continue
		}
		if err := h.hydrateObject(object); err != nil {
			return err
		}

		for _, key := range nestedCollectionKeys {
			if nested, ok := object[key].(Array); ok {
				if err := h.hydrateCollection(nested); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (h *Hydrator) hydrateObject(object Object) error {
	for _, key := range timeKeys {
		raw, ok := object[key].(String)
		if !ok || strings.TrimSpace(string(raw)) == "" {
			continue
		}

		parsed, err := dateparse.ParseIn(string(raw), h.location)
		if err != nil {
			return &DecodeError{Field: key, Err: err}
		}
		object[key] = Time{parsed.In(h.location)}
	}
	return nil
}

// HydrateTimes runs h over every decoded response document.
func HydrateTimes(h *Hydrator) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			resp, err := next(ctx, req)
			if err != nil {
				return nil, err
			}

			doc, err := h.Hydrate(resp.Document)
			if err != nil {
				var decodeErr *DecodeError
				if errors.As(err, &decodeErr) {
					decodeErr.URL = resp.URL
				}
				return nil, err
			}
			resp.Document = doc
			return resp, nil
		}
	}
}

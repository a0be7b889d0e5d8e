package pagerduty

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordedRequest captures what the test server received.
type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// newTestConnection starts a server answering every request with status and
// body, and returns a connection pointed at it.
func newTestConnection(t *testing.T, status int, body string, opts ...Option) (*Connection, func() []recordedRequest) {
	t.Helper()

	var (
		mu       sync.Mutex
		received []recordedRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		received = append(received, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   data,
		})
		mu.Unlock()

		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)

	opts = append([]Option{WithBaseURL(server.URL), WithLogger(zerolog.Nop())}, opts...)
	conn, err := New("test-token", opts...)
	require.NoError(t, err)

	return conn, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), received...)
	}
}

func TestNew(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		_, err := New("")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidConfig)
		assert.Contains(t, err.Error(), "token is required")
	})

	t.Run("invalid api version", func(t *testing.T) {
		_, err := New("token", WithAPIVersion(0))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("defaults", func(t *testing.T) {
		conn, err := New("token")
		require.NoError(t, err)
		assert.Equal(t, DefaultBaseURL, conn.BaseURL())
		assert.Equal(t, 2, conn.APIVersion())
		assert.Equal(t, time.UTC, conn.location)
	})

	t.Run("base url gets trailing slash", func(t *testing.T) {
		conn, err := New("token", WithBaseURL("http://localhost:8080"))
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080/", conn.BaseURL())
	})

	t.Run("custom http client", func(t *testing.T) {
		custom := &http.Client{Timeout: 5 * time.Second}
		conn, err := New("token", WithHTTPClient(custom))
		require.NoError(t, err)
		assert.Equal(t, custom, conn.httpClient)
	})
}

func TestGetPagination(t *testing.T) {
	tests := []struct {
		name       string
		opts       Options
		wantOffset string
		wantLimit  string
	}{
		{name: "no options", opts: nil, wantOffset: "0", wantLimit: "100"},
		{name: "first page", opts: Options{"page": 1, "limit": 50}, wantOffset: "0", wantLimit: "50"},
		{name: "third page", opts: Options{"page": 3, "limit": 25}, wantOffset: "50", wantLimit: "25"},
		{name: "numeric strings", opts: Options{"page": "2", "limit": "10"}, wantOffset: "10", wantLimit: "10"},
		{name: "integral floats", opts: Options{"page": 4.0}, wantOffset: "300", wantLimit: "100"},
		{name: "json numbers", opts: Options{"page": json.Number("2"), "limit": json.Number("5")}, wantOffset: "5", wantLimit: "5"},
		{name: "integral json numbers", opts: Options{"page": json.Number("2.0"), "limit": Number("25.0")}, wantOffset: "25", wantLimit: "25"},
		{name: "largest offset", opts: Options{"page": math.MaxInt/100 + 1, "limit": 100}, wantOffset: strconv.Itoa(math.MaxInt / 100 * 100), wantLimit: "100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, received := newTestConnection(t, http.StatusOK, `{"users":[]}`)

			_, err := conn.Get(context.Background(), "users", tt.opts)
			require.NoError(t, err)

			reqs := received()
			require.Len(t, reqs, 1)
			assert.Equal(t, http.MethodGet, reqs[0].Method)
			assert.Equal(t, tt.wantOffset, reqs[0].Query.Get("offset"))
			assert.Equal(t, tt.wantLimit, reqs[0].Query.Get("limit"))
			assert.False(t, reqs[0].Query.Has("page"))
		})
	}
}

func TestGetPaginationArithmetic(t *testing.T) {
	for page := 1; page <= 5; page++ {
		for _, limit := range []int{1, 7, 100} {
			params := Options{"page": page, "limit": limit}
			p, err := popInt(params, "page", DefaultPage)
			require.NoError(t, err)
			l, err := popInt(params, "limit", DefaultLimit)
			require.NoError(t, err)
			assert.Equal(t, (page-1)*limit, (p-1)*l)
			assert.Empty(t, params)
		}
	}
}

func TestGetInvalidPagination(t *testing.T) {
	tests := []struct {
		name  string
		opts  Options
		param string
	}{
		{name: "non-numeric page", opts: Options{"page": "abc"}, param: "page"},
		{name: "non-numeric limit", opts: Options{"limit": []int{1}}, param: "limit"},
		{name: "fractional page", opts: Options{"page": 1.5}, param: "page"},
		{name: "fractional json number", opts: Options{"page": json.Number("1.5")}, param: "page"},
		{name: "zero page", opts: Options{"page": 0}, param: "page"},
		{name: "negative limit", opts: Options{"limit": -10}, param: "limit"},
		{name: "offset overflows", opts: Options{"page": math.MaxInt / 2, "limit": 100}, param: "page"},
		{name: "offset overflows at max limit", opts: Options{"page": 3, "limit": math.MaxInt}, param: "page"},
		{name: "unsigned limit out of range", opts: Options{"limit": uint64(math.MaxUint64)}, param: "limit"},
		{name: "float page out of range", opts: Options{"page": 1e300}, param: "page"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, received := newTestConnection(t, http.StatusOK, `{}`)

			_, err := conn.Get(context.Background(), "users", tt.opts)
			require.Error(t, err)

			var inputErr *InputError
			require.True(t, errors.As(err, &inputErr))
			assert.Equal(t, tt.param, inputErr.Param)
			assert.Equal(t, KindInput, KindOf(err))
			assert.Empty(t, received(), "no request should be sent")
		})
	}
}

func TestGetDoesNotMutateOptions(t *testing.T) {
	conn, _ := newTestConnection(t, http.StatusOK, `{}`)

	opts := Options{"page": 2, "limit": 10, "query": "bob"}
	_, err := conn.Get(context.Background(), "users", opts)
	require.NoError(t, err)

	assert.Equal(t, Options{"page": 2, "limit": 10, "query": "bob"}, opts)
}

func TestPathNormalization(t *testing.T) {
	conn, received := newTestConnection(t, http.StatusOK, `{}`)
	ctx := context.Background()

	_, err := conn.Get(ctx, "/users", nil)
	require.NoError(t, err)
	_, err = conn.Get(ctx, "users", nil)
	require.NoError(t, err)

	reqs := received()
	require.Len(t, reqs, 2)
	assert.Equal(t, "/users", reqs[0].Path)
	assert.Equal(t, reqs[0].Path, reqs[1].Path)
}

func TestAuthHeaders(t *testing.T) {
	conn, received := newTestConnection(t, http.StatusOK, `{}`, WithAPIVersion(3))
	ctx := context.Background()

	_, err := conn.Get(ctx, "users", nil)
	require.NoError(t, err)
	_, err = conn.Post(ctx, "incidents", Options{"incident": Options{"title": "down"}})
	require.NoError(t, err)
	_, err = conn.Put(ctx, "incidents/P1", Options{"incident": Options{"status": "resolved"}})
	require.NoError(t, err)
	_, err = conn.Delete(ctx, "users/P2", nil)
	require.NoError(t, err)

	reqs := received()
	require.Len(t, reqs, 4)
	for _, r := range reqs {
		assert.Equal(t, "Token token=test-token", r.Header.Get("Authorization"), r.Method)
		assert.Equal(t, "application/vnd.pagerduty+json;version=3", r.Header.Get("Accept"), r.Method)
	}
}

func TestWriteVerbsSendJSONBody(t *testing.T) {
	conn, received := newTestConnection(t, http.StatusCreated, `{"incident":{"id":"P1"}}`)

	opts := Options{"incident": map[string]any{"title": "disk full", "urgency": "high"}}
	doc, err := conn.Post(context.Background(), "/incidents", opts)
	require.NoError(t, err)

	incident, ok := doc.GetObject("incident")
	require.True(t, ok)
	id, _ := incident.GetString("id")
	assert.Equal(t, "P1", id)

	reqs := received()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, "application/json", reqs[0].Header.Get("Content-Type"))
	assert.Empty(t, reqs[0].Query)
	assert.JSONEq(t, `{"incident":{"title":"disk full","urgency":"high"}}`, string(reqs[0].Body))
}

func TestOutboundTimeConversion(t *testing.T) {
	since := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("time value", func(t *testing.T) {
		conn, received := newTestConnection(t, http.StatusOK, `{}`)
		_, err := conn.Get(context.Background(), "incidents", Options{"since": since, "until": &since})
		require.NoError(t, err)

		reqs := received()
		require.Len(t, reqs, 1)
		assert.Equal(t, "2020-01-01T00:00:00+00:00", reqs[0].Query.Get("since"))
		assert.Equal(t, "2020-01-01T00:00:00+00:00", reqs[0].Query.Get("until"))
	})

	t.Run("string passes through", func(t *testing.T) {
		conn, received := newTestConnection(t, http.StatusOK, `{}`)
		_, err := conn.Get(context.Background(), "incidents", Options{"since": "already-a-string"})
		require.NoError(t, err)

		reqs := received()
		require.Len(t, reqs, 1)
		assert.Equal(t, "already-a-string", reqs[0].Query.Get("since"))
	})

	t.Run("write verb body", func(t *testing.T) {
		conn, received := newTestConnection(t, http.StatusOK, `{}`)
		opts := Options{"since": since.In(time.FixedZone("EST", -5*3600))}
		_, err := conn.Post(context.Background(), "reports", opts)
		require.NoError(t, err)

		reqs := received()
		require.Len(t, reqs, 1)
		assert.JSONEq(t, `{"since":"2019-12-31T19:00:00-05:00"}`, string(reqs[0].Body))
		assert.IsType(t, time.Time{}, opts["since"], "caller options must keep the time value")
	})
}

func TestQueryEncoding(t *testing.T) {
	conn, received := newTestConnection(t, http.StatusOK, `{}`)

	_, err := conn.Get(context.Background(), "incidents", Options{
		"statuses":    []string{"triggered", "acknowledged"},
		"service_ids": []any{"P1", "P2"},
		"date_range":  "all",
		"filter":      map[string]any{"urgency": "high"},
	})
	require.NoError(t, err)

	reqs := received()
	require.Len(t, reqs, 1)
	q := reqs[0].Query
	assert.Equal(t, []string{"triggered", "acknowledged"}, q["statuses[]"])
	assert.Equal(t, []string{"P1", "P2"}, q["service_ids[]"])
	assert.Equal(t, "all", q.Get("date_range"))
	assert.Equal(t, "high", q.Get("filter[urgency]"))
}

func TestStatusClassification(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusCreated} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			conn, _ := newTestConnection(t, status, `{"x":1}`)
			doc, err := conn.Get(context.Background(), "things", nil)
			require.NoError(t, err)
			assert.Equal(t, Object{"x": Number("1")}, doc)
		})
	}

	t.Run("no content", func(t *testing.T) {
		conn, _ := newTestConnection(t, http.StatusNoContent, ``)
		doc, err := conn.Delete(context.Background(), "things/1", nil)
		require.NoError(t, err)
		assert.Equal(t, Object{}, doc)
	})

	for _, status := range []int{http.StatusOK, http.StatusCreated} {
		t.Run("empty body with "+http.StatusText(status), func(t *testing.T) {
			for _, body := range []string{``, " \n\t"} {
				conn, _ := newTestConnection(t, status, body)
				doc, err := conn.Get(context.Background(), "users", nil)
				require.Error(t, err)
				assert.Nil(t, doc)

				var decodeErr *DecodeError
				require.True(t, errors.As(err, &decodeErr))
				assert.Contains(t, decodeErr.URL, "/users")
				assert.Empty(t, decodeErr.Field)
				assert.ErrorIs(t, err, errEmptyBody)
				assert.Equal(t, KindDecode, KindOf(err))
			}
		})
	}

	t.Run("not found", func(t *testing.T) {
		conn, _ := newTestConnection(t, http.StatusNotFound, `{"error":{"message":"Not Found"}}`)
		_, err := conn.Get(context.Background(), "/users/PXXX", nil)
		require.Error(t, err)

		var notFound *NotFoundError
		require.True(t, errors.As(err, &notFound))
		assert.Contains(t, notFound.URL, "/users/PXXX")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NotErrorIs(t, err, ErrAPI)
		assert.Equal(t, KindNotFound, KindOf(err))
	})

	t.Run("server error with payload", func(t *testing.T) {
		conn, _ := newTestConnection(t, http.StatusInternalServerError, `{"error":{"message":"bad"}}`)
		_, err := conn.Get(context.Background(), "users", nil)
		require.Error(t, err)

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
		assert.Contains(t, apiErr.URL, "/users")
		assert.Equal(t, "bad", apiErr.Message())
		assert.Contains(t, err.Error(), "500")
		assert.Contains(t, err.Error(), apiErr.URL)
		assert.Contains(t, err.Error(), `"message":"bad"`)
		assert.Equal(t, KindAPI, KindOf(err))
	})

	t.Run("error body is not json", func(t *testing.T) {
		conn, _ := newTestConnection(t, http.StatusBadGateway, `<html>bad gateway</html>`)
		_, err := conn.Get(context.Background(), "users", nil)

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Nil(t, apiErr.Payload)
		assert.Equal(t, "<html>bad gateway</html>", apiErr.Body)
	})

	t.Run("accepted status is an api error", func(t *testing.T) {
		conn, _ := newTestConnection(t, http.StatusAccepted, `{}`)
		_, err := conn.Post(context.Background(), "things", nil)
		assert.ErrorIs(t, err, ErrAPI)
	})
}

func TestDecodeError(t *testing.T) {
	conn, _ := newTestConnection(t, http.StatusOK, `{"users": [`)
	_, err := conn.Get(context.Background(), "users", nil)
	require.Error(t, err)

	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Contains(t, decodeErr.URL, "/users")
	assert.Equal(t, KindDecode, KindOf(err))
}

func TestNonObjectDocument(t *testing.T) {
	conn, _ := newTestConnection(t, http.StatusOK, `[1, 2, 3]`)
	_, err := conn.Get(context.Background(), "users", nil)
	require.Error(t, err)
	assert.Equal(t, KindInput, KindOf(err))
}

func TestResponseHydration(t *testing.T) {
	body := `{"incidents":[{"id":"P1","created_at":"2021-06-01T12:00:00Z","assigned_to":[{"at":"2021-06-01T12:01:00Z"}]}],"more":false}`
	loc := time.FixedZone("CEST", 2*3600)
	conn, _ := newTestConnection(t, http.StatusOK, body, WithLocation(loc))

	doc, err := conn.Get(context.Background(), "incidents", nil)
	require.NoError(t, err)

	incidents, ok := doc.GetArray("incidents")
	require.True(t, ok)
	require.Len(t, incidents, 1)

	incident := incidents[0].(Object)
	createdAt, ok := incident.GetTime("created_at")
	require.True(t, ok)
	assert.True(t, createdAt.Equal(time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, loc, createdAt.Location())

	assignment := incident["assigned_to"].(Array)[0].(Object)
	at, ok := assignment.GetTime("at")
	require.True(t, ok)
	assert.True(t, at.Equal(time.Date(2021, 6, 1, 12, 1, 0, 0, time.UTC)))
}

func TestUnparseableTimestamp(t *testing.T) {
	conn, _ := newTestConnection(t, http.StatusOK, `{"incident":{"created_at":"2021-13-45T99:00:00Z"}}`)
	_, err := conn.Get(context.Background(), "incidents/P1", nil)
	require.Error(t, err)

	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Equal(t, "created_at", decodeErr.Field)
	assert.Contains(t, decodeErr.URL, "/incidents/P1")
}

func TestTransportError(t *testing.T) {
	conn, err := New("token", WithBaseURL("http://127.0.0.1:1"), WithHTTPClient(&http.Client{Timeout: time.Second}))
	require.NoError(t, err)

	_, err = conn.Get(context.Background(), "users", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
	assert.Equal(t, KindUnknown, KindOf(err))
}

func TestContextCancellation(t *testing.T) {
	conn, _ := newTestConnection(t, http.StatusOK, `{}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := conn.Get(ctx, "users", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset := r.URL.Query().Get("offset")
		assert.Equal(t, "2", r.URL.Query().Get("limit"))

		switch offset {
		case "0":
			io.WriteString(w, `{"users":[{"id":"A"},{"id":"B"}],"more":true}`)
		case "2":
			io.WriteString(w, `{"users":[{"id":"C"}],"more":false}`)
		default:
			t.Errorf("unexpected offset %q", offset)
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer server.Close()

	conn, err := New("token", WithBaseURL(server.URL))
	require.NoError(t, err)

	opts := Options{"limit": 2}
	users, err := conn.GetAll(context.Background(), "users", "users", opts)
	require.NoError(t, err)
	require.Len(t, users, 3)

	var ids []string
	for _, u := range users {
		id, _ := u.(Object).GetString("id")
		ids = append(ids, id)
	}
	assert.Equal(t, []string{"A", "B", "C"}, ids)
	assert.Equal(t, Options{"limit": 2}, opts)
}

func TestGetAllPropagatesErrors(t *testing.T) {
	conn, _ := newTestConnection(t, http.StatusUnauthorized, `{"error":{"message":"Unauthorized","code":2006}}`)

	_, err := conn.GetAll(context.Background(), "users", "users", nil)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.IsUnauthorized())
}

func TestConcurrentCalls(t *testing.T) {
	conn, received := newTestConnection(t, http.StatusOK, `{"incident":{"created_at":"2021-06-01T12:00:00Z"}}`)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc, err := conn.Get(context.Background(), "incidents/P1", Options{"page": i + 1})
			assert.NoError(t, err)
			incident, _ := doc.GetObject("incident")
			_, ok := incident.GetTime("created_at")
			assert.True(t, ok)
		}()
	}
	wg.Wait()

	assert.Len(t, received(), 10)
}

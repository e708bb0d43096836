package upstream

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blip-health/blipgate/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	return NewClient(Options{
		BaseURL:     url + "/",
		Timeout:     2 * time.Second,
		MaxAttempts: 3,
	})
}

func TestForwardRetriesServerErrorThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":1}`))
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL).Forward(context.Background(), model.UpstreamRequest{
		Method: http.MethodGet,
		Path:   "hospitals/1",
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 3, resp.Attempts)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"id":1}`, string(resp.Body))
}

func TestForwardGivesUpAfterThreeAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL).Forward(context.Background(), model.UpstreamRequest{
		Method: http.MethodGet,
		Path:   "notes",
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "boom", string(resp.Body))
}

func TestForwardDoesNotRetryOtherStatuses(t *testing.T) {
	for _, status := range []int{http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusNotFound, http.StatusBadRequest} {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(status)
		}))

		resp, err := newTestClient(srv.URL).Forward(context.Background(), model.UpstreamRequest{
			Method: http.MethodGet,
			Path:   "notes",
		})
		require.NoError(t, err)
		assert.Equal(t, status, resp.StatusCode)
		assert.Equal(t, int32(1), calls.Load(), "status %d", status)
		srv.Close()
	}
}

func TestForwardReplaysBodyOnRetry(t *testing.T) {
	var calls atomic.Int32
	var lastBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		lastBody = string(b)
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL).Forward(context.Background(), model.UpstreamRequest{
		Method: http.MethodPost,
		Path:   "hospitals",
		Body:   []byte(`{"name":"x"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, `{"name":"x"}`, lastBody)
}

func TestForwardPassesHeadersAndQuery(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Header().Set("X-Upstream", "yes")
		w.Header().Set("Connection", "close")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	in := http.Header{}
	in.Set("Authorization", "Basic YWxpY2U6cHc=")
	in.Set("Content-Type", "application/json")
	in.Set("Accept-Encoding", "gzip")

	resp, err := newTestClient(srv.URL).Forward(context.Background(), model.UpstreamRequest{
		Method:   http.MethodGet,
		Path:     "patients",
		RawQuery: "page=2",
		Header:   in,
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "/patients", got.URL.Path)
	assert.Equal(t, "page=2", got.URL.RawQuery)
	assert.Equal(t, "Basic YWxpY2U6cHc=", got.Header.Get("Authorization"))
	assert.Equal(t, "identity", got.Header.Get("Accept-Encoding"))

	assert.Equal(t, "yes", resp.Header.Get("X-Upstream"))
	assert.Empty(t, resp.Header.Get("Connection"))
	assert.Empty(t, resp.Header.Get("Content-Length"))
}

func TestForwardTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url).Forward(context.Background(), model.UpstreamRequest{
		Method: http.MethodGet,
		Path:   "hospitals",
	})
	assert.Error(t, err)
}

func TestSanitizeResponseHeaders(t *testing.T) {
	h := http.Header{}
	h.Add("content-encoding", "gzip")
	h.Set("Content-Length", "10")
	h.Set("Transfer-Encoding", "chunked")
	h.Set("Connection", "keep-alive")
	h.Add("Set-Cookie", "a=1")
	h.Add("Set-Cookie", "b=2")

	out := SanitizeResponseHeaders(h)
	assert.Len(t, out, 1)
	assert.Equal(t, []string{"a=1", "b=2"}, out.Values("Set-Cookie"))

	// the source is untouched
	assert.Equal(t, "10", h.Get("Content-Length"))
}

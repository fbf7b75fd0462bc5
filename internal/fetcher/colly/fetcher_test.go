package collyfetcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/require"
)

func TestFetcherPostSendsJSON(t *testing.T) {
	t.Parallel()

	var gotBody, gotType, gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		gotType = r.Header.Get("Content-Type")
		gotAgent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	t.Cleanup(srv.Close)

	f := New(Config{UserAgent: "scraper-test"})
	body, err := f.Post(context.Background(), srv.URL, []byte(`{"cmd":"request.get"}`), 5*time.Second)
	require.NoError(t, err)
	require.Equal(t, `{"status":"ok"}`, string(body))
	require.Equal(t, `{"cmd":"request.get"}`, gotBody)
	require.Equal(t, "application/json", gotType)
	require.Equal(t, "scraper-test", gotAgent)
}

func TestFetcherPostReportsStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	_, err := New(Config{}).Post(context.Background(), srv.URL, []byte(`{}`), time.Second)
	require.Error(t, err)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusInternalServerError, httpErr.HTTPStatus())
}

func TestFetcherPostUnreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	_, err := New(Config{}).Post(context.Background(), endpoint, []byte(`{}`), time.Second)
	require.Error(t, err)
	var httpErr *HTTPError
	require.False(t, errors.As(err, &httpErr))
}

func TestFetcherPostCanceled(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := New(Config{}).Post(ctx, srv.URL, []byte(`{}`), 0)
	require.Error(t, err)
}

func TestConfigureCollectorHooks(t *testing.T) {
	t.Parallel()

	f := New(Config{})
	var result postResult
	hooks := &stubHooks{}
	f.configureCollectorHooks(hooks, &result)
	require.NotNil(t, hooks.onResponse)
	require.NotNil(t, hooks.onError)

	hooks.onResponse(&colly.Response{StatusCode: http.StatusOK, Body: []byte("body")})
	require.Equal(t, http.StatusOK, result.status)
	require.Equal(t, "body", string(result.body))

	hooks.onError(&colly.Response{StatusCode: http.StatusBadGateway}, errors.New("boom"))
	require.Equal(t, http.StatusBadGateway, result.status)
	require.EqualError(t, result.err, "boom")
}

func TestHTTPErrorUnwrap(t *testing.T) {
	t.Parallel()

	inner := errors.New("bad gateway")
	err := &HTTPError{StatusCode: http.StatusBadGateway, Err: inner}
	require.ErrorIs(t, err, inner)
	require.Contains(t, err.Error(), "502")
}

type stubHooks struct {
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) {
	s.onResponse = cb
}

func (s *stubHooks) OnError(cb colly.ErrorCallback) {
	s.onError = cb
}

package jsonfetch

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/getjson/pkg/httpclient"
)

const waitTimeout = 5 * time.Second

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	t.Cleanup(cancel)
	return ctx
}

func newTestServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"a":1}`))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	})
	mux.HandleFunc("/boom", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	})
	mux.HandleFunc("/created", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchJSONResolvesOnOK(t *testing.T) {
	srv := newTestServer(t, nil)
	f := New(nil, nil)

	resp, err := f.FetchJSON(srv.URL + "/ok").Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, srv.URL+"/ok", resp.URL())

	var got map[string]int
	require.NoError(t, resp.Decode(&got))
	assert.Equal(t, map[string]int{"a": 1}, got)

	generic, err := resp.JSON()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(1)}, generic)
}

func TestFetchJSONRejectsMissingWithStatus(t *testing.T) {
	srv := newTestServer(t, nil)
	f := New(nil, nil)

	fut := f.FetchJSON(srv.URL + "/missing")
	resp, err := fut.Wait(waitCtx(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRejected))
	assert.Equal(t, StateRejected, fut.State())

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Response.StatusCode())
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
	assert.Contains(t, string(resp.Body()), "not found")
	assert.Equal(t, http.StatusNotFound, StatusCodeOf(err))
	assert.Contains(t, err.Error(), "404")
}

func TestFetchJSONRejectsEveryNonOKStatus(t *testing.T) {
	srv := newTestServer(t, nil)
	f := New(nil, nil)

	cases := map[string]int{
		"/boom":    http.StatusInternalServerError,
		"/created": http.StatusCreated,
		"/empty":   http.StatusNoContent,
	}
	for path, want := range cases {
		t.Run(path, func(t *testing.T) {
			resp, err := f.FetchJSON(srv.URL + path).Wait(waitCtx(t))
			require.ErrorIs(t, err, ErrRejected)
			assert.Equal(t, want, resp.StatusCode())
		})
	}
}

func TestFetchJSONRejectsOnConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	f := New(nil, nil)
	resp, err := f.FetchJSON("http://" + addr + "/ok").Wait(waitCtx(t))
	require.ErrorIs(t, err, ErrRejected)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "http://"+addr+"/ok", te.URL)
	require.NotNil(t, resp)
	assert.Zero(t, resp.StatusCode())
	assert.Empty(t, resp.Status())
	assert.Zero(t, StatusCodeOf(err))
	assert.Error(t, resp.Decode(&struct{}{}))
}

func TestFetchJSONRejectsMalformedURL(t *testing.T) {
	f := New(nil, nil)
	_, err := f.FetchJSON("://not a url").Wait(waitCtx(t))

	var te *TransportError
	require.ErrorAs(t, err, &te)
}

func TestFetchJSONIssuesOneRequestPerCall(t *testing.T) {
	var hits atomic.Int32
	srv := newTestServer(t, &hits)
	f := New(nil, nil)

	first := f.FetchJSON(srv.URL + "/ok")
	second := f.FetchJSON(srv.URL + "/ok")
	_, err := first.Wait(waitCtx(t))
	require.NoError(t, err)
	_, err = second.Wait(waitCtx(t))
	require.NoError(t, err)

	assert.Equal(t, int32(2), hits.Load())
	assert.NotSame(t, first, second)
}

func TestPackageFetchJSONUsesDefaultFetcher(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := FetchJSON(srv.URL + "/ok").Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(resp.Body()))
}

type stubResponse struct {
	status int
	body   []byte
}

func (s stubResponse) Body() []byte    { return s.body }
func (s stubResponse) StatusCode() int { return s.status }
func (s stubResponse) Status() string  { return "" }

// gatedClient blocks every Get until release is closed.
type gatedClient struct {
	release chan struct{}
	calls   atomic.Int32
	resp    httpclient.Response
	err     error
	panicV  any
}

func (g *gatedClient) Get(_ context.Context, _ string, headers map[string]string) (httpclient.Response, error) {
	g.calls.Add(1)
	if g.release != nil {
		<-g.release
	}
	if g.panicV != nil {
		panic(g.panicV)
	}
	if len(headers) != 0 {
		return nil, errors.New("unexpected headers")
	}
	return g.resp, g.err
}

func TestFutureStaysPendingUntilTransportCompletes(t *testing.T) {
	client := &gatedClient{
		release: make(chan struct{}),
		resp:    stubResponse{status: http.StatusOK, body: []byte(`[1,2]`)},
	}
	fut := New(client, nil).FetchJSON("http://example.test/data")

	assert.Equal(t, StatePending, fut.State())
	_, ok, _ := fut.Result()
	assert.False(t, ok)

	close(client.release)
	<-fut.Done()

	resp, ok, err := fut.Result()
	require.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, StateResolved, fut.State())
	assert.Equal(t, "200 OK", resp.Status())
	assert.Equal(t, int32(1), client.calls.Load())
}

func TestResultReportsRejectionAfterSettle(t *testing.T) {
	client := &gatedClient{
		release: make(chan struct{}),
		resp:    stubResponse{status: http.StatusNotFound},
	}
	fut := New(client, nil).FetchJSON("http://example.test/missing")
	close(client.release)
	<-fut.Done()

	resp, ok, err := fut.Result()
	require.True(t, ok)
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
}

func TestWaitReturnsContextErrorWithoutAbortingRequest(t *testing.T) {
	client := &gatedClient{
		release: make(chan struct{}),
		resp:    stubResponse{status: http.StatusOK, body: []byte(`{}`)},
	}
	fut := New(client, nil).FetchJSON("http://example.test/slow")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp, err := fut.Wait(ctx)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatePending, fut.State())

	close(client.release)
	_, err = fut.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, StateResolved, fut.State())
}

func TestFetchJSONTreatsNilResponseAsTransportFailure(t *testing.T) {
	fut := New(&gatedClient{}, nil).FetchJSON("http://example.test/nil")

	_, err := fut.Wait(waitCtx(t))
	var te *TransportError
	require.ErrorAs(t, err, &te)
}

func TestFetchJSONRecoversTransportPanic(t *testing.T) {
	fut := New(&gatedClient{panicV: "kaboom"}, nil).FetchJSON("http://example.test/panic")

	_, err := fut.Wait(waitCtx(t))
	require.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestFutureSettlesOnce(t *testing.T) {
	fut := newFuture()
	resp := &Response{url: "u", statusCode: http.StatusOK}

	assert.True(t, fut.settle(resp, nil))
	assert.False(t, fut.settle(nil, errors.New("late")))

	got, err := fut.Wait(context.Background())
	require.NoError(t, err)
	assert.Same(t, resp, got)
	assert.Equal(t, StateResolved, fut.State())
}

func TestFutureConcurrentWaitersSeeSameOutcome(t *testing.T) {
	client := &gatedClient{
		release: make(chan struct{}),
		resp:    stubResponse{status: http.StatusTeapot},
	}
	fut := New(client, nil).FetchJSON("http://example.test/tea")

	var wg sync.WaitGroup
	codes := make([]int, 8)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, _ := fut.Wait(context.Background())
			codes[i] = resp.StatusCode()
		}(i)
	}
	close(client.release)
	wg.Wait()

	for _, c := range codes {
		assert.Equal(t, http.StatusTeapot, c)
	}
}

type recordingLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recordingLogger) DebugObj(msg, _ string, _ interface{}) { r.add(msg) }
func (r *recordingLogger) WarnObj(msg, _ string, _ interface{})  { r.add(msg) }

func (r *recordingLogger) add(msg string) {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
}

func TestFetcherLogsOutcomeBeforeSettling(t *testing.T) {
	log := &recordingLogger{}
	fut := New(&gatedClient{err: errors.New("dial tcp: refused")}, log).FetchJSON("http://example.test/x")

	_, err := fut.Wait(waitCtx(t))
	require.Error(t, err)

	log.mu.Lock()
	defer log.mu.Unlock()
	assert.Equal(t, []string{"json fetch transport failure"}, log.msgs)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "pending", StatePending.String())
	assert.Equal(t, "resolved", StateResolved.String())
	assert.Equal(t, "rejected", StateRejected.String())
	assert.Equal(t, "unknown", State(42).String())
}

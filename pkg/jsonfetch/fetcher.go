package jsonfetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/samvad-hq/getjson/pkg/httpclient"
)

// Fetcher issues JSON GET requests over an httpclient.Client.
type Fetcher struct {
	client httpclient.Client
	log    Logger
}

// DefaultHTTPClient returns the transport used when none is supplied: no
// timeout and no retries.
func DefaultHTTPClient() httpclient.Client { return httpclient.NewRestyClient(0) }

// New builds a Fetcher. A nil client falls back to DefaultHTTPClient.
func New(client httpclient.Client, log Logger) *Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &Fetcher{client: client, log: ensureLogger(log)}
}

var defaultFetcher = sync.OnceValue(func() *Fetcher { return New(nil, nil) })

// FetchJSON issues one GET for url using the package default fetcher.
func FetchJSON(url string) *Future { return defaultFetcher().FetchJSON(url) }

// FetchJSON starts one GET request for url and returns immediately with a
// pending Future.
func (f *Fetcher) FetchJSON(url string) *Future {
	fut := newFuture()
	go f.run(url, fut)
	return fut
}

func (f *Fetcher) run(url string, fut *Future) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			fut.settle(&Response{url: url}, &TransportError{URL: url, Err: fmt.Errorf("transport panic: %v", r)})
		}
	}()

	raw, err := f.client.Get(context.Background(), url, nil)
	if err == nil && raw == nil {
		err = errors.New("transport returned no response")
	}
	if err != nil {
		f.log.WarnObj("json fetch transport failure", "fetch_result", map[string]any{
			"url":        url,
			"error":      err.Error(),
			"elapsed_ms": time.Since(start).Milliseconds(),
		})
		fut.settle(&Response{url: url}, &TransportError{URL: url, Err: err})
		return
	}

	resp := newResponse(url, raw)
	if resp.StatusCode() != http.StatusOK {
		f.log.DebugObj("json fetch rejected", "fetch_result", map[string]any{
			"url":         url,
			"status_code": resp.StatusCode(),
			"elapsed_ms":  time.Since(start).Milliseconds(),
		})
		fut.settle(resp, &StatusError{Response: resp})
		return
	}

	f.log.DebugObj("json fetch resolved", "fetch_result", map[string]any{
		"url":        url,
		"bytes":      len(resp.Body()),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	fut.settle(resp, nil)
}

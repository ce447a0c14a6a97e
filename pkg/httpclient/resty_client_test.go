package httpclient

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRestyClientGetReturnsNon2xxAsResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if got := r.Header.Get("X-Test"); got != "1" {
			t.Errorf("missing header, got %q", got)
		}
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	client := NewRestyClient(0)
	resp, err := client.Get(context.Background(), srv.URL, map[string]string{"X-Test": "1"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.StatusCode() != http.StatusGone {
		t.Fatalf("expected 410, got %d", resp.StatusCode())
	}
	if string(resp.Body()) != "gone\n" {
		t.Fatalf("unexpected body %q", resp.Body())
	}
	if resp.Status() == "" {
		t.Fatalf("expected status line")
	}
}

func TestRestyClientGetConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	client := NewRestyClient(0)
	if _, err := client.Get(context.Background(), "http://"+addr, nil); err == nil {
		t.Fatalf("expected transport error")
	}
}

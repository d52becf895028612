package shield

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hazyhaar/cartograph/kit"
)

func stack(h http.Handler) http.Handler {
	mws := APIStack(slog.New(slog.NewTextHandler(io.Discard, nil)), 16)
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func TestAPIStack_HeadersAndRequestID(t *testing.T) {
	var seen string
	h := stack(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = kit.GetRequestID(r.Context())
		if GetLogger(r.Context()) == slog.Default() {
			t.Error("expected a per-request logger")
		}
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" || rec.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("headers: %v", rec.Header())
	}
	id := rec.Header().Get(RequestIDHeader)
	if id == "" || id != seen {
		t.Fatalf("request id: header=%q context=%q", id, seen)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set(RequestIDHeader, "abc")
	h.ServeHTTP(rec, req)
	if rec.Header().Get(RequestIDHeader) != "abc" || seen != "abc" {
		t.Fatalf("caller id not kept: %q", rec.Header().Get(RequestIDHeader))
	}
}

func TestHeadToGet(t *testing.T) {
	var method string
	h := stack(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) { method = r.Method }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodHead, "/", nil))
	if method != http.MethodGet {
		t.Fatalf("method: %s", method)
	}
}

func TestMaxBody(t *testing.T) {
	var readErr error
	h := stack(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/save", strings.NewReader(strings.Repeat("x", 64))))
	if readErr == nil {
		t.Fatal("expected body limit error")
	}

	readErr = nil
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/save", strings.NewReader(`{"name":"a"}`)))
	if readErr != nil {
		t.Fatalf("small body: %v", readErr)
	}
}

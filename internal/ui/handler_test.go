package ui

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/andybalholm/brotli"
	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/strongdm/supportdesk/internal/config"
	"github.com/strongdm/supportdesk/internal/page"
)

func newTestHandler(t *testing.T, title *string) (*Handler, []byte) {
	t.Helper()
	cfg := config.Default()
	cfg.TitleOverride = title
	view := page.NewView(cfg)
	doc, err := page.MustRenderer().Document(view)
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	h, err := NewHandler(doc, view, nil)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	return h, doc
}

func serve(h http.Handler, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, encoding string, body []byte) []byte {
	t.Helper()
	var r io.Reader
	switch encoding {
	case "":
		return body
	case "br":
		r = brotli.NewReader(bytes.NewReader(body))
	case "gzip":
		gr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			t.Fatalf("gzip reader: %v", err)
		}
		defer gr.Close()
		r = gr
	case "zstd":
		zr, err := zstd.NewReader(bytes.NewReader(body))
		if err != nil {
			t.Fatalf("zstd reader: %v", err)
		}
		defer zr.Close()
		r = zr
	default:
		t.Fatalf("unexpected encoding %q", encoding)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("decode %s: %v", encoding, err)
	}
	return out
}

func TestServesDocument(t *testing.T) {
	t.Parallel()

	h, doc := newTestHandler(t, nil)
	for _, target := range []string{"/", "/index.html"} {
		rec := serve(h, http.MethodGet, target, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s status = %d", target, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
			t.Fatalf("Content-Type = %q", ct)
		}
		if cc := rec.Header().Get("Cache-Control"); cc != "no-store" {
			t.Fatalf("Cache-Control = %q", cc)
		}
		if !bytes.Equal(rec.Body.Bytes(), doc) {
			t.Fatalf("GET %s returned a different document", target)
		}
	}
}

func TestCompressionVariantsRoundTrip(t *testing.T) {
	t.Parallel()

	h, doc := newTestHandler(t, nil)
	tests := []struct {
		accept string
		want   string
	}{
		{accept: "", want: ""},
		{accept: "gzip", want: "gzip"},
		{accept: "gzip, deflate, br", want: "br"},
		{accept: "zstd, gzip", want: "zstd"},
		{accept: "br;q=0, gzip;q=0.5, zstd;q=0.4", want: "gzip"},
		{accept: "deflate", want: ""},
		{accept: "*", want: "br"},
		{accept: "*;q=0", want: ""},
	}
	for _, tt := range tests {
		rec := serve(h, http.MethodGet, "/", map[string]string{"Accept-Encoding": tt.accept})
		if got := rec.Header().Get("Content-Encoding"); got != tt.want {
			t.Fatalf("Accept-Encoding %q: Content-Encoding = %q, want %q", tt.accept, got, tt.want)
		}
		if !strings.Contains(rec.Header().Get("Vary"), "Accept-Encoding") {
			t.Fatalf("missing Vary header")
		}
		if got := decode(t, tt.want, rec.Body.Bytes()); !bytes.Equal(got, doc) {
			t.Fatalf("Accept-Encoding %q: decoded body differs from document", tt.accept)
		}
	}
}

func TestHeadOmitsBody(t *testing.T) {
	t.Parallel()

	h, doc := newTestHandler(t, nil)
	rec := serve(h, http.MethodHead, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("HEAD returned a body")
	}
	if rec.Header().Get("Content-Length") != strconv.Itoa(len(doc)) {
		t.Fatalf("Content-Length = %q", rec.Header().Get("Content-Length"))
	}
}

func TestConditionalRequest(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t, nil)
	etag := serve(h, http.MethodGet, "/", nil).Header().Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}
	rec := serve(h, http.MethodGet, "/", map[string]string{"If-None-Match": `"other", W/` + etag})
	if rec.Code != http.StatusNotModified {
		t.Fatalf("status = %d, want 304", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("304 carried a body")
	}
}

func TestServesEmbeddedAssets(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t, nil)
	tests := map[string]string{
		"/globals.css": "text/css; charset=utf-8",
		"/favicon.svg": "image/svg+xml; charset=utf-8",
	}
	for target, ct := range tests {
		rec := serve(h, http.MethodGet, target, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s status = %d", target, rec.Code)
		}
		if got := rec.Header().Get("Content-Type"); got != ct {
			t.Fatalf("GET %s Content-Type = %q, want %q", target, got, ct)
		}
		if got := rec.Header().Get("Cache-Control"); !strings.HasPrefix(got, "public") {
			t.Fatalf("GET %s Cache-Control = %q", target, got)
		}
	}
}

func TestCustomAssets(t *testing.T) {
	t.Parallel()

	assets := fstest.MapFS{
		"brand/logo.png": &fstest.MapFile{Data: []byte{0x89, 'P', 'N', 'G'}},
	}
	h, err := NewHandler([]byte("<!DOCTYPE html>"), page.NewView(config.Default()), assets)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	rec := serve(h, http.MethodGet, "/brand/logo.png", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if rec := serve(h, http.MethodGet, "/globals.css", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("embedded assets should be replaced, got %d", rec.Code)
	}
}

func TestWorkspaceSummary(t *testing.T) {
	t.Parallel()

	title := "Acme Support"
	h, _ := newTestHandler(t, &title)
	rec := serve(h, http.MethodGet, WorkspacePath, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got Workspace
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := Workspace{
		Title:       "Acme Support",
		Description: config.DefaultDescription,
		NextSteps:   page.NextSteps(),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("workspace mismatch (-want +got):\n%s", diff)
	}
}

func TestUnknownPathAndMethod(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t, nil)
	if rec := serve(h, http.MethodGet, "/settings", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown path status = %d", rec.Code)
	}
	rec := serve(h, http.MethodPost, "/", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST status = %d", rec.Code)
	}
	if rec.Header().Get("Allow") != "GET, HEAD" {
		t.Fatalf("Allow = %q", rec.Header().Get("Allow"))
	}
}

func TestNegotiateEncodingIgnoresMalformedQuality(t *testing.T) {
	t.Parallel()

	if got := negotiateEncoding("br;q=abc, gzip"); got != "gzip" {
		t.Fatalf("negotiateEncoding = %q, want gzip", got)
	}
}

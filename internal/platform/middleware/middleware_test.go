package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func containsHeader(headerValue, target string) bool {
	for part := range strings.SplitSeq(headerValue, ",") {
		if strings.EqualFold(strings.TrimSpace(part), target) {
			return true
		}
	}
	return false
}

func TestSecurityMiddlewareSetsHeaders(t *testing.T) {
	resp := httptest.NewRecorder()
	Security()(okHandler()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/hello", nil))

	tests := []struct {
		header string
		want   string
	}{
		{"Cache-Control", "no-store"},
		{"Content-Security-Policy", "frame-ancestors 'none'"},
		{"Cross-Origin-Opener-Policy", "same-origin"},
		{"Cross-Origin-Resource-Policy", "same-origin"},
		{"Referrer-Policy", "strict-origin-when-cross-origin"},
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
	}
	for _, tt := range tests {
		if got := resp.Header().Get(tt.header); got != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.header, tt.want, got)
		}
	}
	if !strings.Contains(resp.Header().Get("Permissions-Policy"), "camera=()") {
		t.Errorf("expected Permissions-Policy to disable camera, got %q", resp.Header().Get("Permissions-Policy"))
	}
}

func TestSecurityMiddlewareSkipsPaths(t *testing.T) {
	resp := httptest.NewRecorder()
	Security("/api/docs")(okHandler()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/docs", nil))

	if got := resp.Header().Get("X-Frame-Options"); got != "" {
		t.Fatalf("expected no security headers on skipped path, got X-Frame-Options %q", got)
	}
	if resp.Code != http.StatusOK {
		t.Fatalf("expected downstream handler to run, got %d", resp.Code)
	}
}

func TestVaryAppendsEachHeader(t *testing.T) {
	resp := httptest.NewRecorder()
	resp.Header().Add("Vary", "Origin")
	Vary("Accept", "Accept-Encoding")(okHandler()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/hello", nil))

	got := resp.Header().Values("Vary")
	if len(got) != 3 || got[0] != "Origin" || got[1] != "Accept" || got[2] != "Accept-Encoding" {
		t.Fatalf("expected Vary [Origin Accept Accept-Encoding], got %v", got)
	}
}

func TestCORSAllowsGETOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://localhost/api/hello", nil)
	req.Header.Set("Origin", "http://example.com")
	resp := httptest.NewRecorder()

	CORS()(okHandler()).ServeHTTP(resp, req)

	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected Access-Control-Allow-Origin '*', got %q", got)
	}
	if got := resp.Header().Get("Access-Control-Expose-Headers"); !containsHeader(got, "X-Request-Id") {
		t.Fatalf("expected X-Request-Id to be exposed, got %q", got)
	}
}

func TestCORSHandlesPreflightWithoutCallingNext(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })

	req := httptest.NewRequest(http.MethodOptions, "http://localhost/api/hello", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "traceparent")
	resp := httptest.NewRecorder()

	CORS()(next).ServeHTTP(resp, req)

	if called {
		t.Fatalf("expected preflight to be answered by the CORS middleware")
	}
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for preflight, got %d", resp.Code)
	}
	if got := resp.Header().Get("Access-Control-Allow-Headers"); !containsHeader(got, "traceparent") {
		t.Fatalf("expected traceparent to be allowed, got %q", got)
	}
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		reused   bool
	}{
		{name: "absent"},
		{name: "printable", incoming: "client-supplied-id", reused: true},
		{name: "printable edges", incoming: " ~", reused: true},
		{name: "at limit", incoming: strings.Repeat("a", requestIDLimit), reused: true},
		{name: "over limit", incoming: strings.Repeat("a", requestIDLimit+1)},
		{name: "newline", incoming: "abc\ndef"},
		{name: "nul", incoming: "abc\x00"},
		{name: "del", incoming: "\x7f"},
		{name: "non ascii", incoming: "caf\xc3\xa9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ctxID string
			next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				ctxID = chimiddleware.GetReqID(r.Context())
			})
			req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
			if tt.incoming != "" {
				req.Header.Set(chimiddleware.RequestIDHeader, tt.incoming)
			}
			resp := httptest.NewRecorder()
			RequestID()(next).ServeHTTP(resp, req)

			got := resp.Header().Get(chimiddleware.RequestIDHeader)
			if ctxID != got {
				t.Fatalf("context id %q does not match header %q", ctxID, got)
			}
			if tt.reused {
				if got != tt.incoming {
					t.Fatalf("expected %q to be reused, got %q", tt.incoming, got)
				}
				return
			}
			id, err := uuid.Parse(got)
			if err != nil || id.Version() != 4 {
				t.Fatalf("expected a generated UUIDv4, got %q", got)
			}
		})
	}
}

func foldRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.StripSlashes, FoldCase, chimiddleware.GetHead)
	r.Get("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "health")
	})
	r.Get("/api/schemas/{name}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, chi.URLParam(r, "name"))
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	return r
}

func TestFoldCase(t *testing.T) {
	tests := []struct {
		method   string
		path     string
		wantCode int
		wantBody string
	}{
		{http.MethodGet, "/api/health", http.StatusOK, "health"},
		{http.MethodGet, "/API/HEALTH", http.StatusOK, "health"},
		{http.MethodGet, "/Api/Health/", http.StatusOK, "health"},
		{http.MethodHead, "/API/HEALTH", http.StatusOK, "health"},
		{http.MethodGet, "/api/schemas/Response.json", http.StatusOK, "Response.json"},
		{http.MethodGet, "/API/UNKNOWN", http.StatusNotFound, ""},
		{http.MethodPost, "/API/HEALTH", http.StatusNotFound, ""},
	}
	h := foldRouter()
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp := httptest.NewRecorder()
			h.ServeHTTP(resp, httptest.NewRequest(tt.method, tt.path, nil))

			if resp.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, resp.Code)
			}
			if got := resp.Body.String(); got != tt.wantBody {
				t.Fatalf("expected body %q, got %q", tt.wantBody, got)
			}
		})
	}
}

func TestFoldCasePassesThroughWithoutRouter(t *testing.T) {
	resp := httptest.NewRecorder()
	FoldCase(okHandler()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/API/HEALTH", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected downstream handler to run, got %d", resp.Code)
	}
}

type rejection struct {
	called bool
	status int
}

func (rj *rejection) reject(w http.ResponseWriter, _ *http.Request, status int) {
	rj.called = true
	rj.status = status
	w.WriteHeader(status)
}

func TestJSONBody(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantStatus  int
		wantNext    bool
	}{
		{name: "valid json", contentType: "application/json", body: `{"a":1}`, wantStatus: http.StatusOK, wantNext: true},
		{name: "valid json with charset", contentType: "application/json; charset=utf-8", body: `[1,2]`, wantStatus: http.StatusOK, wantNext: true},
		{name: "malformed json", contentType: "application/json", body: `{"a":`, wantStatus: http.StatusBadRequest},
		{name: "malformed json with charset", contentType: "application/json; charset=utf-8", body: `nope`, wantStatus: http.StatusBadRequest},
		{name: "whitespace body", contentType: "application/json", body: "  \n", wantStatus: http.StatusBadRequest},
		{name: "top-level number", contentType: "application/json", body: `1`, wantStatus: http.StatusBadRequest},
		{name: "leading whitespace object", contentType: "application/json", body: "\n {}", wantStatus: http.StatusOK, wantNext: true},
		{name: "text body", contentType: "text/plain", body: `{"a":`, wantStatus: http.StatusOK, wantNext: true},
		{name: "no content type", body: `{"a":`, wantStatus: http.StatusOK, wantNext: true},
		{name: "invalid content type", contentType: ";;", body: `{"a":`, wantStatus: http.StatusOK, wantNext: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rj rejection
			var seen string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				data, _ := io.ReadAll(r.Body)
				seen = string(data)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/api/unknown", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			resp := httptest.NewRecorder()
			JSONBody(rj.reject)(next).ServeHTTP(resp, req)

			if resp.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, resp.Code)
			}
			if rj.called == tt.wantNext {
				t.Fatalf("expected reject called=%v, got %v", !tt.wantNext, rj.called)
			}
			if tt.wantNext && seen != tt.body {
				t.Fatalf("expected body to be replayed, got %q", seen)
			}
		})
	}
}

func TestJSONBodyTooLarge(t *testing.T) {
	var rj rejection
	limit := chimiddleware.RequestSize(4)
	h := limit(JSONBody(rj.reject)(okHandler()))

	req := httptest.NewRequest(http.MethodPost, "/api/unknown", strings.NewReader(`{"long":"body"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	if rj.status != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 rejection, got %d", rj.status)
	}
}

func TestJSONBodySkipsGETWithoutBody(t *testing.T) {
	var rj rejection
	req := httptest.NewRequest(http.MethodGet, "/api/hello", nil).WithContext(context.Background())
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	JSONBody(rj.reject)(okHandler()).ServeHTTP(resp, req)

	if rj.called {
		t.Fatalf("expected request without body to pass through")
	}
}

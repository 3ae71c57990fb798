package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// FoldCase routes a request to the lower-cased form of its path when only
// that form has a route, so /API/Health reaches /api/health. Paths that
// already match a route keep their case. It must run after StripSlashes,
// which also rewrites the route path.
func FoldCase(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rctx := chi.RouteContext(r.Context())
		if rctx == nil || rctx.Routes == nil {
			next.ServeHTTP(w, r)
			return
		}
		path := rctx.RoutePath
		if path == "" {
			path = r.URL.RawPath
		}
		if path == "" {
			path = r.URL.Path
		}
		lower := strings.ToLower(path)
		if lower != path && !routed(rctx.Routes, r.Method, path) && routed(rctx.Routes, r.Method, lower) {
			rctx.RoutePath = lower
		}
		next.ServeHTTP(w, r)
	})
}

// routed treats HEAD as GET, matching chi's GetHead.
func routed(routes chi.Routes, method, path string) bool {
	if routes.Match(chi.NewRouteContext(), method, path) {
		return true
	}
	return method == http.MethodHead && routes.Match(chi.NewRouteContext(), http.MethodGet, path)
}

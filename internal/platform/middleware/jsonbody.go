package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
)

// RejectFunc writes an error response with the given status.
type RejectFunc func(w http.ResponseWriter, r *http.Request, status int)

// JSONBody validates request bodies declared as application/json before they
// reach routing. Only a JSON object or array is accepted at the top level;
// anything else is rejected with 400, and an oversized body (see chi's
// RequestSize) with 413. Empty bodies and other content types pass through
// untouched. A validated body is replayed to the next handler.
func JSONBody(reject RejectFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Body == http.NoBody || !isJSON(r.Header.Get("Content-Type")) {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			_ = r.Body.Close()
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					reject(w, r, http.StatusRequestEntityTooLarge)
					return
				}
				reject(w, r, http.StatusBadRequest)
				return
			}
			if len(body) > 0 && !isJSONContainer(body) {
				reject(w, r, http.StatusBadRequest)
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}

func isJSONContainer(body []byte) bool {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return false
	}
	return json.Valid(body)
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json"
}

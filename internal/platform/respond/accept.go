package respond

import (
	"strconv"
	"strings"
)

type format int

const (
	formatJSON format = iota
	formatCBOR
)

// selectFormat picks CBOR only when the Accept header ranks application/cbor
// strictly above every range that would match JSON. Ties, wildcards and
// missing headers resolve to JSON.
func selectFormat(accept string) format {
	if accept == "" {
		return formatJSON
	}
	cborQ, jsonQ := -1.0, -1.0
	for part := range strings.SplitSeq(accept, ",") {
		mediaType, q, ok := parseMediaRange(part)
		if !ok {
			continue
		}
		switch mediaType {
		case "application/cbor":
			cborQ = max(cborQ, q)
		case "application/json", "application/*", "*/*":
			jsonQ = max(jsonQ, q)
		}
	}
	if cborQ > 0 && cborQ > jsonQ {
		return formatCBOR
	}
	return formatJSON
}

func parseMediaRange(part string) (string, float64, bool) {
	params := strings.Split(part, ";")
	mediaType := strings.ToLower(strings.TrimSpace(params[0]))
	if mediaType == "" || !strings.Contains(mediaType, "/") {
		return "", 0, false
	}
	q := 1.0
	for _, p := range params[1:] {
		key, value, found := strings.Cut(strings.TrimSpace(p), "=")
		if !found || strings.ToLower(strings.TrimSpace(key)) != "q" {
			continue
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || parsed < 0 || parsed > 1 {
			return "", 0, false
		}
		q = parsed
	}
	return mediaType, q, true
}

package ui

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const (
	encodingIdentity = "identity"
	encodingBrotli   = "br"
	encodingZstd     = "zstd"
	encodingGzip     = "gzip"
)

// serverPreference orders the encodings we can produce, best first.
var serverPreference = []string{encodingBrotli, encodingZstd, encodingGzip}

// negotiateEncoding picks a content coding for an Accept-Encoding header.
// Codings with q=0 are refused; ties go to serverPreference order.
func negotiateEncoding(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return encodingIdentity
	}

	weights := make(map[string]float64)
	wildcard := -1.0
	for _, part := range strings.Split(header, ",") {
		name, q := parseCoding(part)
		if name == "" {
			continue
		}
		if name == "*" {
			wildcard = q
			continue
		}
		weights[name] = q
	}

	best, bestQ := encodingIdentity, 0.0
	for _, enc := range serverPreference {
		q, ok := weights[enc]
		if !ok {
			if wildcard < 0 {
				continue
			}
			q = wildcard
		}
		if q > bestQ {
			best, bestQ = enc, q
		}
	}
	return best
}

func parseCoding(part string) (string, float64) {
	fields := strings.Split(part, ";")
	name := strings.ToLower(strings.TrimSpace(fields[0]))
	q := 1.0
	for _, param := range fields[1:] {
		param = strings.TrimSpace(param)
		if !strings.HasPrefix(param, "q=") {
			continue
		}
		parsed, err := strconv.ParseFloat(strings.TrimPrefix(param, "q="), 64)
		if err != nil {
			return "", 0
		}
		q = parsed
	}
	return name, q
}

// compress encodes data with the named coding.
func compress(encoding string, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	var w io.WriteCloser
	switch encoding {
	case encodingIdentity:
		return data, nil
	case encodingBrotli:
		w = brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
	case encodingGzip:
		w = gzip.NewWriter(&buf)
	case encodingZstd:
		zw, err := zstd.NewWriter(&buf)
		if err != nil {
			return nil, fmt.Errorf("zstd writer: %w", err)
		}
		w = zw
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("%s encode: %w", encoding, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%s close: %w", encoding, err)
	}
	return buf.Bytes(), nil
}

package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"folio/backend/internal/server/dto"
)

// decompressMiddleware rewrites r.Body per the Content-Encoding header so
// the API handlers always decode plain JSON. Unsupported or broken encodings
// are rejected before any handler runs.
func decompressMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ce := r.Header.Get("Content-Encoding")
		if ce == "" {
			next.ServeHTTP(w, r)
			return
		}
		body, err := decodeBody(ce, r.Body)
		if err != nil {
			writeError(w, dto.BadRequest(err.Error()))
			return
		}
		r.Body = body
		r.Header.Del("Content-Encoding")
		r.ContentLength = -1
		next.ServeHTTP(w, r)
	})
}

// decodeBody wraps body with the decompressor for encoding. The zstd reader
// is memory-capped; a contact submission is a few KB at most.
func decodeBody(encoding string, body io.ReadCloser) (io.ReadCloser, error) {
	switch encoding {
	case "zstd":
		dec, err := zstd.NewReader(body, zstd.WithDecoderMaxMemory(10<<20))
		if err != nil {
			return nil, errors.New("invalid zstd body")
		}
		return dec.IOReadCloser(), nil
	case "br":
		return io.NopCloser(brotli.NewReader(body)), nil
	case "gzip":
		gr, err := gzip.NewReader(body)
		if err != nil {
			return nil, errors.New("invalid gzip body")
		}
		return gr, nil
	}
	return nil, errors.New("unsupported Content-Encoding: " + encoding)
}

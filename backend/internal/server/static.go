// Serving of the embedded portfolio bundle.
//
// The build commits each dist/ file together with precompressed siblings
// (.zst and .gz, plus .br when the brotli tool is installed). Requests get
// the best variant the client accepts; paths that match no file fall back to
// index.html so client-side routes survive a reload.
package server

import (
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strings"
)

// staticVariants maps an Accept-Encoding token to the sibling file suffix,
// ordered best-first.
var staticVariants = []struct {
	encoding string
	suffix   string
}{
	{"zstd", ".zst"},
	{"br", ".br"},
	{"gzip", ".gz"},
}

// newStaticHandler serves the portfolio from dist with precompressed-variant
// negotiation and SPA fallback.
func newStaticHandler(dist fs.FS) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if name == "" {
			name = "index.html"
		}
		if _, err := fs.Stat(dist, name); err != nil {
			// No such file: treat it as a client-side route and hand out
			// the app shell.
			name = "index.html"
		}

		accepted := parseAcceptEncoding(r.Header.Get("Accept-Encoding"))
		f, encoding := openVariant(dist, name, accepted)
		if f == nil {
			http.NotFound(w, r)
			return
		}
		defer func() { _ = f.Close() }()
		stat, err := f.Stat()
		if err != nil {
			http.NotFound(w, r)
			return
		}

		ct := mime.TypeByExtension(filepath.Ext(name))
		if ct == "" {
			ct = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ct)
		if encoding != "" {
			w.Header().Set("Content-Encoding", encoding)
		}
		w.Header().Set("Vary", "Accept-Encoding")
		if strings.HasPrefix(name, "assets/") {
			// Asset filenames change when their content does; cache hard.
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		} else {
			// index.html must pick up new deploys immediately.
			w.Header().Set("Cache-Control", "no-cache")
		}
		// embed.FS files implement io.ReadSeeker.
		http.ServeContent(w, r, name, stat.ModTime(), f.(io.ReadSeeker))
	}
}

// openVariant opens the best precompressed sibling of name the client
// accepts, falling back to the plain file. Returns nil when neither exists.
func openVariant(dist fs.FS, name string, accepted map[string]bool) (fs.File, string) {
	for _, v := range staticVariants {
		if !accepted[v.encoding] {
			continue
		}
		if f, err := dist.Open(name + v.suffix); err == nil {
			return f, v.encoding
		}
	}
	f, err := dist.Open(name)
	if err != nil {
		return nil, ""
	}
	return f, ""
}

// parseAcceptEncoding returns the set of encodings the client accepts.
func parseAcceptEncoding(header string) map[string]bool {
	accepted := make(map[string]bool)
	for part := range strings.SplitSeq(header, ",") {
		enc := strings.TrimSpace(part)
		// Strip quality parameter (e.g. "gzip;q=0.5").
		if i := strings.IndexByte(enc, ';'); i >= 0 {
			enc = enc[:i]
		}
		if enc != "" {
			accepted[enc] = true
		}
	}
	return accepted
}

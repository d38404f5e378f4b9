package server

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const contactJSON = `{"name":"Ada","email":"ada@example.com","message":"Hello!"}`

// postCompressedContact sends a compressed contact submission through the
// full handler chain.
func postCompressedContact(t *testing.T, url, encoding string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url+"/api/v1/contact", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", encoding)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestDecompressedContactSubmission(t *testing.T) {
	t.Run("Gzip", func(t *testing.T) {
		var buf bytes.Buffer
		gz, _ := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
		_, _ = gz.Write([]byte(contactJSON))
		_ = gz.Close()

		stub := &stubSender{}
		ts := startTestServer(t, testServer(t, stub))
		resp := postCompressedContact(t, ts.URL, "gzip", buf.Bytes())
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		if stub.count() != 1 {
			t.Fatalf("sends = %d, want 1", stub.count())
		}
		if got := stub.sent[0].ReplyTo; got != "ada@example.com" {
			t.Errorf("decoded submission ReplyTo = %q", got)
		}
	})

	t.Run("Zstd", func(t *testing.T) {
		var buf bytes.Buffer
		enc, _ := zstd.NewWriter(&buf)
		_, _ = enc.Write([]byte(contactJSON))
		_ = enc.Close()

		stub := &stubSender{}
		ts := startTestServer(t, testServer(t, stub))
		resp := postCompressedContact(t, ts.URL, "zstd", buf.Bytes())
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		if stub.count() != 1 {
			t.Errorf("sends = %d, want 1", stub.count())
		}
	})

	t.Run("Brotli", func(t *testing.T) {
		var buf bytes.Buffer
		bw := brotli.NewWriter(&buf)
		_, _ = bw.Write([]byte(contactJSON))
		_ = bw.Close()

		stub := &stubSender{}
		ts := startTestServer(t, testServer(t, stub))
		resp := postCompressedContact(t, ts.URL, "br", buf.Bytes())
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		if stub.count() != 1 {
			t.Errorf("sends = %d, want 1", stub.count())
		}
	})

	t.Run("UnsupportedEncoding", func(t *testing.T) {
		stub := &stubSender{}
		ts := startTestServer(t, testServer(t, stub))
		resp := postCompressedContact(t, ts.URL, "deflate", []byte(contactJSON))
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", resp.StatusCode)
		}
		if stub.count() != 0 {
			t.Errorf("sends = %d, want 0", stub.count())
		}
	})

	t.Run("CorruptGzip", func(t *testing.T) {
		ts := startTestServer(t, testServer(t, &stubSender{}))
		resp := postCompressedContact(t, ts.URL, "gzip", []byte("not gzip at all"))
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}

package fetch

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
)

// acceptEncoding is sent with every request. Setting it turns off the
// transport's own gzip handling, so decodeBody covers both.
const acceptEncoding = "br, gzip"

type decodedBody struct {
	io.Reader
	closers []io.Closer
}

func (d decodedBody) Close() error {
	var first error
	for _, c := range d.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// decodeBody undoes the response's Content-Encoding.
func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	switch enc := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))); enc {
	case "", "identity":
		return resp.Body, nil
	case "br":
		return decodedBody{Reader: brotli.NewReader(resp.Body), closers: []io.Closer{resp.Body}}, nil
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip response: %w", err)
		}
		return decodedBody{Reader: zr, closers: []io.Closer{zr, resp.Body}}, nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", enc)
	}
}

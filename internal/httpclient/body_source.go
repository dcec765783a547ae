package httpclient

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// BodySource produces the request body. NewReader is called once per
// request, so implementations must hand out independent readers.
type BodySource interface {
	NewReader() (io.ReadCloser, error)
	ContentLength() (int64, bool)
}

// NewBodySource picks the body source for a run: inline content, a file
// re-read per request, or no body at all. Inline content and a file are
// mutually exclusive.
func NewBodySource(body, bodyFile string) (BodySource, error) {
	path := strings.TrimSpace(bodyFile)
	if body != "" && path != "" {
		return nil, errors.New("body and body file cannot both be provided")
	}

	if body != "" {
		return &inlineBodySource{data: []byte(body)}, nil
	}

	if path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("body file: %w", err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("body file %q is a directory", path)
		}
		return &fileBodySource{path: path, size: info.Size()}, nil
	}

	return emptyBodySource{}, nil
}

type inlineBodySource struct {
	data []byte
}

func (s *inlineBodySource) NewReader() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

func (s *inlineBodySource) ContentLength() (int64, bool) {
	return int64(len(s.data)), true
}

type fileBodySource struct {
	path string
	size int64
}

func (s *fileBodySource) NewReader() (io.ReadCloser, error) {
	return os.Open(s.path)
}

func (s *fileBodySource) ContentLength() (int64, bool) {
	return s.size, true
}

type emptyBodySource struct{}

// http.NoBody marks the request as having zero bytes; a plain empty reader
// would make the transport treat the length as unknown and send chunked.
func (emptyBodySource) NewReader() (io.ReadCloser, error) {
	return http.NoBody, nil
}

func (emptyBodySource) ContentLength() (int64, bool) {
	return 0, true
}

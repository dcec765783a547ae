package httpclient

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/volleyhttp/volley/internal/config"
)

// RequestBuilder stamps out HTTP requests from a validated template. Build
// may be called concurrently; every request gets its own body reader.
type RequestBuilder struct {
	method  string
	target  string
	headers http.Header
	body    BodySource
}

func NewRequestBuilder(cfg *config.Config) (*RequestBuilder, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	target := strings.TrimSpace(cfg.TargetURL)
	if target == "" {
		return nil, errors.New("target URL is required")
	}

	method := strings.TrimSpace(cfg.Method)
	if method == "" {
		method = http.MethodGet
	}
	method = strings.ToUpper(method)

	bodySource, err := NewBodySource(cfg.Body, cfg.BodyFile)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	for key, value := range cfg.Headers {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			return nil, fmt.Errorf("invalid header key %q", key)
		}
		if strings.ContainsAny(trimmedKey, "\r\n") {
			return nil, fmt.Errorf("invalid header key %q", key)
		}
		canonicalKey := http.CanonicalHeaderKey(trimmedKey)
		if canonicalKey == "" {
			return nil, fmt.Errorf("invalid header key %q", key)
		}
		if strings.ContainsAny(value, "\r\n") {
			return nil, fmt.Errorf("invalid header value for %s", canonicalKey)
		}
		headers.Set(canonicalKey, value)
	}

	return &RequestBuilder{
		method:  method,
		target:  target,
		headers: headers,
		body:    bodySource,
	}, nil
}

func (b *RequestBuilder) Build(ctx context.Context) (*http.Request, error) {
	if b == nil {
		return nil, errors.New("builder cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	reader, err := b.body.NewReader()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, b.method, b.target, reader)
	if err != nil {
		_ = reader.Close()
		return nil, err
	}

	if len(b.headers) > 0 {
		req.Header = b.headers.Clone()
	}
	if length, ok := b.body.ContentLength(); ok {
		req.ContentLength = length
	}
	req.GetBody = func() (io.ReadCloser, error) {
		return b.body.NewReader()
	}
	return req, nil
}

// NewClient builds the shared HTTP client. Redirects are not followed unless
// configured, so the status of the first response is what gets recorded.
func NewClient(cfg *config.Config) *http.Client {
	var (
		timeout     time.Duration
		concurrency int
		insecure    bool
		follow      bool
	)
	if cfg != nil {
		timeout = cfg.Timeout
		concurrency = cfg.Concurrency
		insecure = cfg.Insecure
		follow = cfg.FollowRedirects
	}
	if timeout < 0 {
		timeout = 0
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	// Keep enough idle connections around for every worker to reuse one.
	perHost := 32
	if concurrency > perHost {
		perHost = concurrency
	}
	maxIdle := 256
	if perHost > maxIdle {
		maxIdle = perHost
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          maxIdle,
		MaxIdleConnsPerHost:   perHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	client := &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
	if !follow {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return client
}

package runner

import (
	"context"
	"errors"
	"testing"
)

type staticRequester struct {
	err   error
	calls int
}

func (s *staticRequester) Do(ctx context.Context) error {
	s.calls++
	return s.err
}

type capturingLogger struct {
	logged []error
}

func (c *capturingLogger) LogFailure(err error) {
	c.logged = append(c.logged, err)
}

func TestWithLoggingRecordsFailures(t *testing.T) {
	wantErr := errors.New("boom")
	inner := &staticRequester{err: wantErr}
	logger := &capturingLogger{}

	req := WithLogging(inner, logger)
	if err := req.Do(context.Background()); !errors.Is(err, wantErr) {
		t.Fatalf("Do() error = %v, want %v", err, wantErr)
	}

	if len(logger.logged) != 1 {
		t.Fatalf("logged %d failures, want 1", len(logger.logged))
	}
	if !errors.Is(logger.logged[0], wantErr) {
		t.Errorf("logged error = %v, want %v", logger.logged[0], wantErr)
	}
}

func TestWithLoggingSkipsSuccesses(t *testing.T) {
	inner := &staticRequester{}
	logger := &capturingLogger{}

	req := WithLogging(inner, logger)
	if err := req.Do(context.Background()); err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	if len(logger.logged) != 0 {
		t.Errorf("logged %d failures, want 0", len(logger.logged))
	}
}

func TestWithLoggingNilLoggerReturnsInner(t *testing.T) {
	inner := &staticRequester{}
	if got := WithLogging(inner, nil); got != Requester(inner) {
		t.Errorf("WithLogging(inner, nil) = %T, want the inner requester", got)
	}
}

func TestHTTPErrorFormat(t *testing.T) {
	err := &HTTPError{StatusCode: 503, Body: "service unavailable"}
	want := "HTTP 503: service unavailable"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

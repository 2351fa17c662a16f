package telegram

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"
)

type flakyRoundTripper struct {
	fails int
	calls int
}

func (f *flakyRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	f.calls++
	if f.calls <= f.fails {
		return nil, &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	}
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: req}, nil
}

func TestRetryTransportRetriesDialErrors(t *testing.T) {
	base := &flakyRoundTripper{fails: 2}
	rt := &retryTransport{base: base, maxRetries: 3, backoff: time.Millisecond}

	req, _ := http.NewRequest(http.MethodPost, "https://api.telegram.org/bot1:x/getMe", strings.NewReader("a=b"))
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if base.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", base.calls)
	}
}

func TestRetryTransportGivesUp(t *testing.T) {
	base := &flakyRoundTripper{fails: 10}
	rt := &retryTransport{base: base, maxRetries: 2, backoff: time.Millisecond}

	req, _ := http.NewRequest(http.MethodGet, "https://api.telegram.org/bot1:x/getMe", nil)
	if _, err := rt.RoundTrip(req); err == nil {
		t.Fatalf("expected error")
	}
	if base.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", base.calls)
	}
}

type brokenPipe struct{ calls int }

func (b *brokenPipe) RoundTrip(*http.Request) (*http.Response, error) {
	b.calls++
	return nil, &net.OpError{Op: "read", Err: errors.New("connection reset by peer")}
}

func TestRetryTransportDoesNotReplaySentRequests(t *testing.T) {
	base := &brokenPipe{}
	rt := &retryTransport{base: base, maxRetries: 3, backoff: time.Millisecond}

	req, _ := http.NewRequest(http.MethodPost, "https://api.telegram.org/bot1:x/sendMessage", strings.NewReader("text=hi"))
	if _, err := rt.RoundTrip(req); err == nil {
		t.Fatal("expected error")
	}
	if base.calls != 1 {
		t.Fatalf("a request that may have reached Telegram must not be replayed, got %d calls", base.calls)
	}
}

func TestBuildHTTPClientCoversLongPoll(t *testing.T) {
	c := BuildHTTPClient(25 * time.Second)
	if c.Timeout <= 25*time.Second {
		t.Fatalf("client timeout %v must exceed the long-poll wait", c.Timeout)
	}
}

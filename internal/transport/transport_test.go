package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/petal-labs/oai/core"
)

func fastRetry(n int) core.RetryPolicy {
	return core.NewRetryPolicy(core.RetryConfig{
		MaxRetries: n,
		Backoff:    func(int) time.Duration { return time.Millisecond },
	})
}

func TestSendSetsHeaders(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("x-request-id", "req_abc")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	tr := New(Config{
		APIKey:    core.NewSecret("sk-test"),
		BaseURL:   server.URL + "/v1/",
		OrgID:     "org-1",
		ProjectID: "proj-1",
		UserAgent: "oai-go/test",
		Headers:   http.Header{"X-Custom": []string{"yes"}},
	})

	resp, err := tr.Send(context.Background(), &Request{
		Method: http.MethodPost,
		Path:   "/chat/completions",
		Body:   []byte(`{}`),
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if resp.RequestID != "req_abc" {
		t.Errorf("RequestID = %q", resp.RequestID)
	}

	checks := map[string]string{
		"Authorization":       "Bearer sk-test",
		"Content-Type":        "application/json",
		"Accept":              "application/json",
		"User-Agent":          "oai-go/test",
		"Openai-Organization": "org-1",
		"Openai-Project":      "proj-1",
		"X-Custom":            "yes",
	}
	for k, want := range checks {
		if v := got.Get(k); v != want {
			t.Errorf("header %s = %q, want %q", k, v, want)
		}
	}
	if got.Get(ClientRequestIDHeader) == "" {
		t.Error("missing client request id header")
	}
}

func TestSendBuildsURLWithQuery(t *testing.T) {
	var path, query string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, query = r.URL.Path, r.URL.RawQuery
	}))
	defer server.Close()

	tr := New(Config{BaseURL: server.URL + "/v1"})
	_, err := tr.Send(context.Background(), &Request{
		Method: http.MethodGet,
		Path:   "/files",
		Query:  url.Values{"purpose": {"fine-tune"}},
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if path != "/v1/files" || query != "purpose=fine-tune" {
		t.Errorf("path = %q, query = %q", path, query)
	}
}

func TestSendRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	ids := make(chan string, 3)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids <- r.Header.Get(ClientRequestIDHeader)
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	tr := New(Config{BaseURL: server.URL, Retry: fastRetry(2)})
	resp, err := tr.Send(context.Background(), &Request{Method: http.MethodGet, Path: "/models"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if resp.Status != http.StatusOK || string(resp.Body) != `{"ok":true}` {
		t.Errorf("resp = %d %s", resp.Status, resp.Body)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}

	first := <-ids
	for i := 0; i < 2; i++ {
		if id := <-ids; id != first {
			t.Errorf("client request id changed across retries: %q != %q", id, first)
		}
	}
}

func TestSendReturnsFinalErrorResponse(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"slow down"}}`))
	}))
	defer server.Close()

	tr := New(Config{BaseURL: server.URL, Retry: fastRetry(1)})
	resp, err := tr.Send(context.Background(), &Request{Method: http.MethodGet, Path: "/models"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if resp.Status != http.StatusTooManyRequests {
		t.Errorf("Status = %d", resp.Status)
	}
	if !strings.Contains(string(resp.Body), "slow down") {
		t.Errorf("Body = %s", resp.Body)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestSendDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	tr := New(Config{BaseURL: server.URL, Retry: fastRetry(3)})
	resp, err := tr.Send(context.Background(), &Request{Method: http.MethodGet, Path: "/x"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if resp.Status != http.StatusBadRequest || calls.Load() != 1 {
		t.Errorf("status = %d, calls = %d", resp.Status, calls.Load())
	}
}

func TestSendHonorsRetryAfter(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
	}))
	defer server.Close()

	// The backoff alone would make this test hang.
	tr := New(Config{
		BaseURL: server.URL,
		Retry: core.NewRetryPolicy(core.RetryConfig{
			MaxRetries: 1,
			MaxDelay:   time.Hour,
			Backoff:    func(int) time.Duration { return time.Hour },
		}),
	})
	resp, err := tr.Send(context.Background(), &Request{Method: http.MethodGet, Path: "/x"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if resp.Status != http.StatusOK {
		t.Errorf("Status = %d", resp.Status)
	}
}

func TestSendClampsRetryAfterToMaxDelay(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusTooManyRequests)
		}
	}))
	defer server.Close()

	tr := New(Config{
		BaseURL: server.URL,
		Retry: core.NewRetryPolicy(core.RetryConfig{
			MaxRetries: 1,
			MaxDelay:   50 * time.Millisecond,
			Backoff:    func(int) time.Duration { return time.Millisecond },
		}),
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	resp, err := tr.Send(ctx, &Request{Method: http.MethodGet, Path: "/x"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if resp.Status != http.StatusOK || calls.Load() != 2 {
		t.Errorf("status = %d, calls = %d", resp.Status, calls.Load())
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("retry waited %v, want at most MaxDelay", elapsed)
	}
}

func TestSendNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	tr := New(Config{BaseURL: addr, Retry: core.NoRetry()})
	_, err := tr.Send(context.Background(), &Request{Method: http.MethodGet, Path: "/x"})
	if !errors.Is(err, core.ErrNetwork) {
		t.Fatalf("Send() error = %v, want ErrNetwork", err)
	}
}

func TestSendTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	tr := New(Config{BaseURL: server.URL, Timeout: 20 * time.Millisecond, Retry: core.NoRetry()})
	_, err := tr.Send(context.Background(), &Request{Method: http.MethodGet, Path: "/slow"})
	if !errors.Is(err, core.ErrNetwork) {
		t.Fatalf("Send() error = %v, want ErrNetwork", err)
	}
	if !IsTimeout(err) {
		t.Errorf("IsTimeout(%v) = false", err)
	}
}

func TestSendLogsTimeoutOnRetry(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	obs, logs := observer.New(zapcore.DebugLevel)
	tr := New(Config{BaseURL: server.URL, Timeout: 20 * time.Millisecond, Retry: fastRetry(1), Logger: zap.New(obs)})
	if _, err := tr.Send(context.Background(), &Request{Method: http.MethodGet, Path: "/slow"}); !IsTimeout(err) {
		t.Fatalf("Send() error = %v, want timeout", err)
	}

	retries := logs.FilterMessage("retrying request").AllUntimed()
	if len(retries) != 1 {
		t.Fatalf("retry log entries = %d, want 1", len(retries))
	}
	if retries[0].ContextMap()["timeout"] != true {
		t.Errorf("retry log fields = %v, want timeout=true", retries[0].ContextMap())
	}
}

func TestSendStreamTimeoutCoversHeadersOnly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		time.Sleep(60 * time.Millisecond)
		w.Write([]byte("data: [DONE]\n"))
	}))
	defer server.Close()

	tr := New(Config{BaseURL: server.URL, Timeout: 20 * time.Millisecond})
	resp, err := tr.Send(context.Background(), &Request{Method: http.MethodPost, Path: "/chat/completions", Body: []byte(`{}`), Stream: true})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	defer resp.Cancel()
	defer resp.Stream.Close()

	body, err := io.ReadAll(resp.Stream)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(body) != "data: [DONE]\n" {
		t.Errorf("body = %q", body)
	}
}

func TestSendStreamTimeoutFiredAfterHeaders(t *testing.T) {
	body := &trackingBody{Reader: strings.NewReader("data: [DONE]\n")}
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		// Headers arrive only after the header timeout has already fired.
		<-r.Context().Done()
		return &http.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: body, Request: r}, nil
	})}

	tr := New(Config{BaseURL: "http://api.test", HTTPClient: client, Timeout: 10 * time.Millisecond, Retry: core.NoRetry()})
	resp, err := tr.Send(context.Background(), &Request{Method: http.MethodPost, Path: "/chat/completions", Body: []byte(`{}`), Stream: true})
	if err == nil {
		resp.Stream.Close()
		resp.Cancel()
		t.Fatal("Send() returned a stream whose context was already cancelled")
	}
	if !errors.Is(err, core.ErrNetwork) || !IsTimeout(err) {
		t.Errorf("Send() error = %v, want network timeout", err)
	}
	if !body.closed.Load() {
		t.Error("response body was not closed")
	}
}

type trackingBody struct {
	io.Reader
	closed atomic.Bool
}

func (b *trackingBody) Close() error {
	b.closed.Store(true)
	return nil
}

func TestSendStreamErrorStatusIsBuffered(t *testing.T) {
	var accept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept = r.Header.Get("Accept")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer server.Close()

	tr := New(Config{BaseURL: server.URL})
	resp, err := tr.Send(context.Background(), &Request{Method: http.MethodPost, Path: "/x", Stream: true})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if resp.Stream != nil {
		t.Error("Stream set for non-2xx response")
	}
	if !strings.Contains(string(resp.Body), "bad key") {
		t.Errorf("Body = %s", resp.Body)
	}
	if accept != "text/event-stream" {
		t.Errorf("Accept = %q", accept)
	}
}

func TestSendContextCanceledStopsRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	tr := New(Config{
		BaseURL: server.URL,
		Retry: core.NewRetryPolicy(core.RetryConfig{
			MaxRetries: 5,
			Backoff:    func(int) time.Duration { return 50 * time.Millisecond },
		}),
	})
	time.AfterFunc(10*time.Millisecond, cancel)

	_, err := tr.Send(ctx, &Request{Method: http.MethodGet, Path: "/x"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Send() error = %v, want context.Canceled", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestNewUsesInjectedClient(t *testing.T) {
	var used atomic.Bool
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		used.Store(true)
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader("{}")),
		}, nil
	})}

	tr := New(Config{BaseURL: "https://api.example.test", HTTPClient: client})
	if _, err := tr.Send(context.Background(), &Request{Method: http.MethodGet, Path: "/models"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !used.Load() {
		t.Error("injected client not used")
	}
}

func TestNewConfiguresProxy(t *testing.T) {
	proxy, _ := url.Parse("http://proxy.local:8080")
	tr := New(Config{Proxy: proxy})

	ht, ok := tr.client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("transport type = %T", tr.client.Transport)
	}
	req, _ := http.NewRequest(http.MethodGet, "https://api.openai.com/v1/models", nil)
	got, err := ht.Proxy(req)
	if err != nil || got.String() != proxy.String() {
		t.Errorf("Proxy() = %v, %v", got, err)
	}
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		value  string
		want   time.Duration
		wantOK bool
	}{
		{"", 0, false},
		{"2", 2 * time.Second, true},
		{"0.5", 500 * time.Millisecond, true},
		{"-3", 0, true},
		{"3600", time.Hour, true},
		{"soon", 0, false},
	}
	for _, tt := range tests {
		h := http.Header{}
		if tt.value != "" {
			h.Set("Retry-After", tt.value)
		}
		got, ok := retryAfter(h)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("retryAfter(%q) = %v, %v; want %v, %v", tt.value, got, ok, tt.want, tt.wantOK)
		}
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

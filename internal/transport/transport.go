// Package transport sends authenticated requests to the API with retries.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/petal-labs/oai/core"
	"github.com/petal-labs/oai/internal/normalize"
)

// ClientRequestIDHeader carries the id generated for each logical request.
const ClientRequestIDHeader = "X-Client-Request-Id"

// Config holds transport settings.
type Config struct {
	APIKey     core.Secret
	BaseURL    string
	OrgID      string
	ProjectID  string
	Headers    http.Header
	UserAgent  string
	Timeout    time.Duration
	Proxy      *url.URL
	HTTPClient *http.Client
	Retry      core.RetryPolicy
	Logger     *zap.Logger
}

// Request describes one API call.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Body        []byte
	ContentType string
	// Accept overrides the default Accept header.
	Accept string
	// Stream leaves a successful response body open for incremental reads.
	Stream bool
}

// Response is the final outcome of a request, 2xx or not.
type Response struct {
	Status    int
	Header    http.Header
	RequestID string

	// Body is the full body, set unless Stream is.
	Body []byte

	// Stream is the open body of a successful streaming request. The caller
	// owns it and must close it, then call Cancel.
	Stream io.ReadCloser
	Cancel context.CancelFunc
}

// Transport executes requests. It is safe for concurrent use.
type Transport struct {
	cfg    Config
	client *http.Client
	retry  core.RetryPolicy
	log    *zap.Logger
}

// New creates a Transport. Without an explicit HTTPClient a dedicated one is
// built, routed through cfg.Proxy when set.
func New(cfg Config) *Transport {
	client := cfg.HTTPClient
	if client == nil {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.Proxy != nil {
			tr.Proxy = http.ProxyURL(cfg.Proxy)
		}
		client = &http.Client{Transport: tr}
	}
	retry := cfg.Retry
	if retry == nil {
		retry = core.DefaultRetryPolicy()
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Transport{
		cfg:    cfg,
		client: client,
		retry:  retry,
		log:    log.Named("transport"),
	}
}

// Send performs req, retrying transient failures according to the retry
// policy. A non-2xx final response is returned without error; the caller
// classifies it. An error is returned only when no response was obtained.
func (t *Transport) Send(ctx context.Context, req *Request) (*Response, error) {
	clientID := uuid.NewString()
	log := t.log.With(
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.String("client_request_id", clientID),
	)

	for attempt := 0; ; attempt++ {
		start := time.Now()
		log.Debug("sending request", zap.Int("attempt", attempt+1), zap.Bool("stream", req.Stream))

		resp, err := t.do(ctx, req, clientID)
		if ctx.Err() != nil {
			if resp != nil && resp.Stream != nil {
				resp.Stream.Close()
				resp.Cancel()
			}
			return nil, normalize.Network(ctx.Err())
		}

		status := 0
		if resp != nil {
			status = resp.Status
			log.Debug("received response",
				zap.Int("status", status),
				zap.String("request_id", resp.RequestID),
				zap.Duration("duration", time.Since(start)),
			)
		}
		if err == nil && normalize.IsSuccess(status) {
			return resp, nil
		}

		delay, ok := t.retry.NextDelay(attempt, status, err)
		if !ok {
			if err != nil {
				return nil, normalize.Network(err)
			}
			return resp, nil
		}
		if resp != nil {
			if d, ok := retryAfter(resp.Header); ok {
				delay = min(d, t.retry.MaxDelay())
			}
		}

		fields := []zap.Field{zap.Int("attempt", attempt+1), zap.Duration("delay", delay)}
		if err != nil {
			fields = append(fields, zap.Error(err), zap.Bool("timeout", IsTimeout(err)))
		} else {
			fields = append(fields, zap.Int("status", status))
		}
		log.Warn("retrying request", fields...)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, normalize.Network(ctx.Err())
		case <-timer.C:
		}
	}
}

// do performs a single attempt.
func (t *Transport) do(ctx context.Context, req *Request, clientID string) (*Response, error) {
	var (
		actx   context.Context
		cancel context.CancelFunc
		timer  *time.Timer
	)
	switch {
	case req.Stream && t.cfg.Timeout > 0:
		// Only waiting for headers is bounded; the body may stream for longer.
		actx, cancel = context.WithCancel(ctx)
		timer = time.AfterFunc(t.cfg.Timeout, cancel)
	case t.cfg.Timeout > 0:
		actx, cancel = context.WithTimeout(ctx, t.cfg.Timeout)
	default:
		actx, cancel = context.WithCancel(ctx)
	}

	httpReq, err := t.newRequest(actx, req, clientID)
	if err != nil {
		if timer != nil {
			timer.Stop()
		}
		cancel()
		return nil, err
	}

	httpResp, err := t.client.Do(httpReq)
	if timer != nil && !timer.Stop() {
		// The timer fired, so actx is cancelled even if headers made it.
		if err == nil {
			httpResp.Body.Close()
		}
		err = fmt.Errorf("timeout of %s exceeded waiting for response headers: %w", t.cfg.Timeout, context.DeadlineExceeded)
	}
	if err != nil {
		cancel()
		return nil, err
	}

	resp := &Response{
		Status:    httpResp.StatusCode,
		Header:    httpResp.Header,
		RequestID: httpResp.Header.Get("x-request-id"),
	}
	if resp.RequestID == "" {
		resp.RequestID = clientID
	}

	if req.Stream && normalize.IsSuccess(httpResp.StatusCode) {
		resp.Stream = httpResp.Body
		resp.Cancel = cancel
		return resp, nil
	}

	defer cancel()
	defer httpResp.Body.Close()
	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	resp.Body = body
	return resp, nil
}

func (t *Transport) newRequest(ctx context.Context, req *Request, clientID string) (*http.Request, error) {
	u := strings.TrimRight(t.cfg.BaseURL, "/") + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, err
	}

	for key, values := range t.buildHeaders(req, clientID) {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	return httpReq, nil
}

// buildHeaders constructs the HTTP headers for an API request.
func (t *Transport) buildHeaders(req *Request, clientID string) http.Header {
	headers := make(http.Header)

	headers.Set("Authorization", "Bearer "+t.cfg.APIKey.Expose())
	headers.Set(ClientRequestIDHeader, clientID)

	switch {
	case req.Accept != "":
		headers.Set("Accept", req.Accept)
	case req.Stream:
		headers.Set("Accept", "text/event-stream")
	default:
		headers.Set("Accept", "application/json")
	}
	if req.Body != nil {
		contentType := req.ContentType
		if contentType == "" {
			contentType = "application/json"
		}
		headers.Set("Content-Type", contentType)
	}
	if t.cfg.UserAgent != "" {
		headers.Set("User-Agent", t.cfg.UserAgent)
	}
	if t.cfg.OrgID != "" {
		headers.Set("OpenAI-Organization", t.cfg.OrgID)
	}
	if t.cfg.ProjectID != "" {
		headers.Set("OpenAI-Project", t.cfg.ProjectID)
	}

	for key, values := range t.cfg.Headers {
		for _, v := range values {
			headers.Add(key, v)
		}
	}

	return headers
}

// retryAfter reads a Retry-After header given in seconds or as an HTTP date.
func retryAfter(h http.Header) (time.Duration, bool) {
	v := h.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	var d time.Duration
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		d = time.Duration(secs * float64(time.Second))
	} else if when, err := http.ParseTime(v); err == nil {
		d = time.Until(when)
	} else {
		return 0, false
	}
	return max(d, 0), true
}

// IsTimeout reports whether err came from a transport timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

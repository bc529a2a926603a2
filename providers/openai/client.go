package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/petal-labs/oai/core"
	"github.com/petal-labs/oai/internal/form"
	"github.com/petal-labs/oai/internal/normalize"
	"github.com/petal-labs/oai/internal/transport"
)

// DefaultAPIKeyEnvVar is the environment variable name for the OpenAI API key.
const DefaultAPIKeyEnvVar = "OPENAI_API_KEY"

// Version is reported in the User-Agent header.
const Version = "0.4.0"

// ErrAPIKeyNotFound is returned when the API key environment variable is not set.
var ErrAPIKeyNotFound = errors.New("openai: OPENAI_API_KEY environment variable not set")

// NewFromEnv creates a new client using the OPENAI_API_KEY environment variable.
//
//	client, err := openai.NewFromEnv(openai.WithOrgID("org-xxx"))
//	if err != nil {
//	    log.Fatal(err)
//	}
func NewFromEnv(opts ...Option) (*Client, error) {
	apiKey := os.Getenv(DefaultAPIKeyEnvVar)
	if apiKey == "" {
		return nil, ErrAPIKeyNotFound
	}
	return New(apiKey, opts...), nil
}

// Client talks to the OpenAI REST API. It owns one conversation context
// buffer whose entries are prepended to every chat completion request.
//
// Endpoint methods are safe for concurrent use. Mutating the context while a
// chat request is being built from it is not; callers that share a Client
// across goroutines must serialize context changes themselves.
type Client struct {
	config    Config
	transport *transport.Transport
	context   *core.ContextBuffer
	telemetry core.TelemetryHook
	log       *zap.Logger
}

// New creates a new client with the given API key and options.
func New(apiKey string, opts ...Option) *Client {
	cfg := Config{
		APIKey:  core.NewSecret(apiKey),
		BaseURL: DefaultBaseURL,
		Timeout: DefaultTimeout,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Telemetry == nil {
		cfg.Telemetry = core.NoopTelemetryHook{}
	}
	if cfg.RetryPolicy == nil {
		cfg.RetryPolicy = core.DefaultRetryPolicy()
	}

	return &Client{
		config: cfg,
		transport: transport.New(transport.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			OrgID:      cfg.OrgID,
			ProjectID:  cfg.ProjectID,
			Headers:    cfg.Headers,
			UserAgent:  "oai-go/" + Version,
			Timeout:    cfg.Timeout,
			Proxy:      cfg.Proxy,
			HTTPClient: cfg.HTTPClient,
			Retry:      cfg.RetryPolicy,
			Logger:     cfg.Logger,
		}),
		context:   core.NewContextBuffer(),
		telemetry: cfg.Telemetry,
		log:       cfg.Logger.Named("openai"),
	}
}

// AddContext appends one entry to the conversation context.
func (c *Client) AddContext(entry core.ContextEntry) error {
	return c.context.Append(entry)
}

// AddContexts appends entries in order. Entries before the first invalid one
// remain appended.
func (c *Client) AddContexts(entries []core.ContextEntry) error {
	return c.context.AppendBatch(entries)
}

// LoadContextJSON appends entries from a JSON array.
func (c *Client) LoadContextJSON(data []byte) error {
	return c.context.AppendJSON(data)
}

// Context returns a copy of the current conversation context.
func (c *Client) Context() []core.ContextEntry {
	return c.context.Snapshot()
}

// ClearContext removes every context entry.
func (c *Client) ClearContext() {
	c.context.Clear()
}

// usageReporter is implemented by responses that carry token usage.
type usageReporter interface {
	tokenUsage() core.TokenUsage
}

// operation identifies a call for telemetry and logs.
type operation struct {
	name   string
	model  string
	stream bool
}

// begin reports the start of op and returns the func that reports its end.
func (c *Client) begin(op operation) func(status int, usage core.TokenUsage, err error) {
	start := time.Now()
	c.telemetry.OnRequestStart(core.RequestStartEvent{
		Operation: op.name,
		Model:     op.model,
		Stream:    op.stream,
		Start:     start,
	})
	return func(status int, usage core.TokenUsage, err error) {
		if err != nil {
			c.log.Debug("operation failed",
				zap.String("operation", op.name),
				zap.String("kind", core.KindOf(err).String()),
				zap.Error(err),
			)
		}
		c.telemetry.OnRequestEnd(core.RequestEndEvent{
			Operation: op.name,
			Model:     op.model,
			Stream:    op.stream,
			Start:     start,
			End:       time.Now(),
			Status:    status,
			Usage:     usage,
			Err:       err,
		})
	}
}

// execute sends req and hands a successful response to decode, which
// returns the token usage it found. Non-2xx responses become classified
// errors.
func (c *Client) execute(ctx context.Context, op operation, req *transport.Request, decode func(*transport.Response) (core.TokenUsage, error)) (err error) {
	var (
		status int
		usage  core.TokenUsage
	)
	end := c.begin(op)
	defer func() { end(status, usage, err) }()

	resp, err := c.transport.Send(ctx, req)
	if err != nil {
		return err
	}
	status = resp.Status
	if !normalize.IsSuccess(resp.Status) {
		return normalize.FromResponse(resp.Status, resp.Body, resp.RequestID)
	}
	usage, err = decode(resp)
	return err
}

// doJSON sends req and decodes the JSON response into out.
func (c *Client) doJSON(ctx context.Context, op operation, req *transport.Request, out any) error {
	return c.execute(ctx, op, req, func(resp *transport.Response) (core.TokenUsage, error) {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return core.TokenUsage{}, normalize.Decode(err, resp.Status, resp.RequestID)
		}
		if u, ok := out.(usageReporter); ok {
			return u.tokenUsage(), nil
		}
		return core.TokenUsage{}, nil
	})
}

// doRaw sends req and returns the undecoded response body.
func (c *Client) doRaw(ctx context.Context, op operation, req *transport.Request) ([]byte, error) {
	var body []byte
	err := c.execute(ctx, op, req, func(resp *transport.Response) (core.TokenUsage, error) {
		body = resp.Body
		return core.TokenUsage{}, nil
	})
	return body, err
}

// postJSON marshals in, posts it to path and decodes the response into out.
func (c *Client) postJSON(ctx context.Context, op operation, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return normalize.Encode(err)
	}
	return c.doJSON(ctx, op, &transport.Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

// postForm posts a multipart body built by b and decodes the response into out.
func (c *Client) postForm(ctx context.Context, op operation, path string, b *form.Builder, out any) error {
	body, contentType, err := b.Encode()
	if err != nil {
		return normalize.Encode(err)
	}
	return c.doJSON(ctx, op, &transport.Request{
		Method:      http.MethodPost,
		Path:        path,
		Body:        body,
		ContentType: contentType,
	}, out)
}

// openStream posts in with streaming enabled and returns a decoder over the
// event stream. The request's telemetry ends when the stream stops.
func openStream[T any](ctx context.Context, c *Client, op operation, path string, in any) (*core.Stream[T], error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, normalize.Encode(err)
	}

	op.stream = true
	end := c.begin(op)

	resp, err := c.transport.Send(ctx, &transport.Request{
		Method: http.MethodPost,
		Path:   path,
		Body:   body,
		Stream: true,
	})
	if err != nil {
		end(0, core.TokenUsage{}, err)
		return nil, err
	}
	if !normalize.IsSuccess(resp.Status) {
		err := normalize.FromResponse(resp.Status, resp.Body, resp.RequestID)
		end(resp.Status, core.TokenUsage{}, err)
		return nil, err
	}

	// Usage arrives on the final chunk when the caller asks for it.
	var usage core.TokenUsage
	return core.NewStream[T](resp.Stream,
		core.WithStreamCancel(resp.Cancel),
		core.WithStreamObserver(func(item any) {
			if u, ok := item.(usageReporter); ok {
				if got := u.tokenUsage(); got.TotalTokens > 0 {
					usage = got
				}
			}
		}),
		core.WithStreamFinish(func(err error) { end(resp.Status, usage, err) }),
	), nil
}

package openai

import (
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/petal-labs/oai/cache"
	"github.com/petal-labs/oai/core"
)

// Config holds configuration for the OpenAI client.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey core.Secret

	// BaseURL is the API base URL. Defaults to https://api.openai.com/v1
	BaseURL string

	// HTTPClient replaces the client the transport builds. When set, Proxy
	// is ignored and the caller's client is responsible for routing.
	HTTPClient *http.Client

	// Proxy routes requests through an HTTP proxy.
	Proxy *url.URL

	// OrgID is the optional OpenAI organization ID.
	OrgID string

	// ProjectID is the optional OpenAI project ID.
	ProjectID string

	// Headers contains optional extra headers to include in requests.
	Headers http.Header

	// Timeout bounds each attempt. For streaming calls it bounds the wait
	// for response headers only.
	Timeout time.Duration

	// RetryPolicy decides whether and when failed attempts are retried.
	RetryPolicy core.RetryPolicy

	// Logger receives request diagnostics. Defaults to a no-op logger.
	Logger *zap.Logger

	// Telemetry is notified at the start and end of every operation.
	Telemetry core.TelemetryHook

	// EmbeddingCache, when set, serves repeated embedding requests.
	EmbeddingCache cache.Cache
}

// DefaultBaseURL is the default OpenAI API base URL.
const DefaultBaseURL = "https://api.openai.com/v1"

// DefaultTimeout is the per-attempt timeout used unless WithTimeout is given.
const DefaultTimeout = 10 * time.Minute

// Option configures the OpenAI client.
type Option func(*Config)

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// WithProxy routes requests through the given proxy URL.
func WithProxy(proxy *url.URL) Option {
	return func(c *Config) {
		c.Proxy = proxy
	}
}

// WithOrgID sets the OpenAI organization ID header.
func WithOrgID(org string) Option {
	return func(c *Config) {
		c.OrgID = org
	}
}

// WithProjectID sets the OpenAI project ID header.
func WithProjectID(project string) Option {
	return func(c *Config) {
		c.ProjectID = project
	}
}

// WithHeader adds an extra header to include in requests.
func WithHeader(key, value string) Option {
	return func(c *Config) {
		if c.Headers == nil {
			c.Headers = make(http.Header)
		}
		c.Headers.Set(key, value)
	}
}

// WithTimeout sets the request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithRetryPolicy sets the retry policy. Use core.NoRetry to disable retries.
func WithRetryPolicy(policy core.RetryPolicy) Option {
	return func(c *Config) {
		c.RetryPolicy = policy
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

// WithTelemetry sets the telemetry hook.
func WithTelemetry(hook core.TelemetryHook) Option {
	return func(c *Config) {
		c.Telemetry = hook
	}
}

// WithEmbeddingCache enables caching of embedding responses.
func WithEmbeddingCache(c cache.Cache) Option {
	return func(cfg *Config) {
		cfg.EmbeddingCache = c
	}
}

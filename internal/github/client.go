package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v81/github"
	"golang.org/x/oauth2"
)

// DefaultAPIURL is the REST endpoint of github.com.
const DefaultAPIURL = "https://api.github.com"

type Client struct {
	Client *github.Client
	HTTP   *http.Client
}

type options struct {
	// logger receives one debug record per request and response. Nil
	// disables request logging.
	logger  *slog.Logger
	baseURL string
}

type Option func(*options)

// WithLogger logs every API call at debug level through logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithBaseURL points the client at a GitHub Enterprise Server REST endpoint,
// as found in GITHUB_API_URL. Empty or github.com values are ignored.
func WithBaseURL(raw string) Option {
	return func(o *options) {
		o.baseURL = strings.TrimSpace(raw)
	}
}

// loggingRoundTripper wraps an underlying transport and emits one record per
// request and response, including latency.
type loggingRoundTripper struct {
	base   http.RoundTripper
	logger *slog.Logger
}

func (t *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	t.logger.Debug("github api request", "method", req.Method, "url", req.URL.String())
	resp, err := t.base.RoundTrip(req)
	dur := time.Since(start).Truncate(time.Millisecond)
	if err != nil {
		t.logger.Debug("github api error", "method", req.Method, "url", req.URL.String(), "duration", dur, "error", err)
		return resp, err
	}
	t.logger.Debug("github api response",
		"method", req.Method,
		"url", req.URL.String(),
		"status", resp.StatusCode,
		"duration", dur,
		"rate_remaining", resp.Header.Get("X-RateLimit-Remaining"),
	)
	return resp, err
}

func NewClient(ctx context.Context, token string, opts ...Option) (*Client, error) {
	if ctx == nil {
		return nil, fmt.Errorf("github client: ctx is nil")
	}

	o := &options{}
	for _, apply := range opts {
		if apply != nil {
			apply(o)
		}
	}

	transport := http.DefaultTransport
	if o.logger != nil {
		transport = &loggingRoundTripper{base: transport, logger: o.logger}
	}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		transport = &oauth2.Transport{Source: ts, Base: transport}
	}
	// Always provide an http.Client so request logging works even without a token.
	tc := &http.Client{Transport: transport}

	client := github.NewClient(tc)
	if o.baseURL != "" && strings.TrimRight(o.baseURL, "/") != DefaultAPIURL {
		var err error
		client, err = client.WithEnterpriseURLs(o.baseURL, o.baseURL)
		if err != nil {
			return nil, fmt.Errorf("github client: base url %q: %w", o.baseURL, err)
		}
	}

	return &Client{
		Client: client,
		HTTP:   tc,
	}, nil
}

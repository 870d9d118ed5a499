// Package transport executes named GraphQL operations against a single
// HTTP endpoint and keeps a client-side cache of query results keyed by
// operation and variables.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/ziyixi/tasksync/schema"
)

const (
	// defaultTimeout specifies the default timeout for HTTP requests.
	defaultTimeout = 10 * time.Second
	// defaultCacheSize is the number of query results kept in memory.
	defaultCacheSize = 128
	// maxErrorBody bounds how much of a non-JSON error body is reported.
	maxErrorBody = 512
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

// FetchPolicy controls how a query uses the result cache. Mutations always
// go to the network and are never cached.
type FetchPolicy int

const (
	// NetworkOnly always sends the request and stores the result.
	NetworkOnly FetchPolicy = iota
	// CacheFirst serves a cached result without a request when one exists.
	CacheFirst
	// CacheAndNetwork hands the cached result to Request.OnCached, then
	// revalidates over the network.
	CacheAndNetwork
)

func (p FetchPolicy) String() string {
	switch p {
	case CacheFirst:
		return "cache-first"
	case CacheAndNetwork:
		return "cache-and-network"
	default:
		return "network-only"
	}
}

// Request is a single operation execution.
type Request struct {
	Operation schema.Operation
	Variables map[string]any
	Policy    FetchPolicy
	// OnCached receives the cached data ahead of the network round trip
	// under CacheAndNetwork.
	OnCached func(data gjson.Result)
}

type payload struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

// Client is a GraphQL client bound to one endpoint.
type Client struct {
	http     *resty.Client
	endpoint string
	cache    *lru.Cache[string, string]
	log      logrus.FieldLogger
}

type config struct {
	timeout    time.Duration
	retryCount int
	cacheSize  int
	logger     logrus.FieldLogger
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*config)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithRetryCount sets how many times a failed request is retried.
func WithRetryCount(n int) Option {
	return func(c *config) { c.retryCount = n }
}

// WithCacheSize sets the number of cached query results.
func WithCacheSize(n int) Option {
	return func(c *config) { c.cacheSize = n }
}

// WithLogger replaces the package logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *config) { c.logger = l }
}

// WithHTTPClient makes resty wrap the given client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) { c.httpClient = hc }
}

// NewClient creates a client for the given endpoint URL. Cookies set by the
// endpoint are kept and sent on every request.
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	cfg := config{
		timeout:   defaultTimeout,
		cacheSize: defaultCacheSize,
		logger:    log,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	cache, err := lru.New[string, string](cfg.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}

	var rc *resty.Client
	if cfg.httpClient != nil {
		rc = resty.NewWithClient(cfg.httpClient)
	} else {
		rc = resty.New()
	}
	rc.SetTimeout(cfg.timeout).
		SetRetryCount(cfg.retryCount).
		SetHeader("Accept", "application/json")

	return &Client{
		http:     rc,
		endpoint: endpoint,
		cache:    cache,
		log:      cfg.logger,
	}, nil
}

// Endpoint returns the URL requests are sent to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Execute runs the operation and returns the value of its result field.
func (c *Client) Execute(ctx context.Context, req Request) (gjson.Result, error) {
	isQuery := req.Operation.Kind == schema.Query
	key := cacheKey(req.Operation, req.Variables)

	if isQuery {
		switch req.Policy {
		case CacheFirst:
			if raw, ok := c.cache.Get(key); ok {
				return gjson.Parse(raw), nil
			}
		case CacheAndNetwork:
			if raw, ok := c.cache.Get(key); ok && req.OnCached != nil {
				req.OnCached(gjson.Parse(raw))
			}
		}
	}

	data, err := c.roundTrip(ctx, req.Operation, req.Variables)
	if err != nil {
		return gjson.Result{}, err
	}
	if isQuery {
		c.cache.Add(key, data.Raw)
	}
	return data, nil
}

// Cached returns the cached result of a query, if any.
func (c *Client) Cached(op schema.Operation, vars map[string]any) (gjson.Result, bool) {
	raw, ok := c.cache.Get(cacheKey(op, vars))
	if !ok {
		return gjson.Result{}, false
	}
	return gjson.Parse(raw), true
}

// ResetSession drops cached results and session cookies.
func (c *Client) ResetSession() {
	c.cache.Purge()
	jar, err := cookiejar.New(nil)
	if err != nil {
		c.log.Warnf("Failed to create cookie jar: %v", err)
		return
	}
	c.http.SetCookieJar(jar)
}

func (c *Client) roundTrip(ctx context.Context, op schema.Operation, vars map[string]any) (gjson.Result, error) {
	if vars == nil {
		vars = map[string]any{}
	}
	requestID := uuid.NewString()
	entry := c.log.WithFields(logrus.Fields{
		"operation":  op.Name,
		"request_id": requestID,
	})

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Request-Id", requestID).
		SetBody(payload{Query: op.Document, OperationName: op.Name, Variables: vars}).
		Post(c.endpoint)
	if err != nil {
		entry.Warnf("Request failed: %v", err)
		return gjson.Result{}, &Error{Operation: op.Name, Err: err}
	}
	entry.WithField("status", resp.StatusCode()).Debugf("Round trip took %s", time.Since(start))

	body := resp.Body()
	if !gjson.ValidBytes(body) {
		if !resp.IsSuccess() {
			return gjson.Result{}, &ResponseError{
				Operation: op.Name,
				Messages:  []string{truncate(strings.TrimSpace(string(body)))},
				HTTPCode:  resp.StatusCode(),
			}
		}
		return gjson.Result{}, &Error{Operation: op.Name, Err: fmt.Errorf("malformed response body: %q", truncate(string(body)))}
	}

	parsed := gjson.ParseBytes(body)
	if errs := parsed.Get("errors"); errs.IsArray() && len(errs.Array()) > 0 {
		messages := make([]string, 0, len(errs.Array()))
		for _, e := range errs.Array() {
			messages = append(messages, e.Get("message").String())
		}
		entry.Warnf("Endpoint reported errors: %v", messages)
		return gjson.Result{}, &ResponseError{Operation: op.Name, Messages: messages, HTTPCode: resp.StatusCode()}
	}
	if !resp.IsSuccess() {
		return gjson.Result{}, &ResponseError{
			Operation: op.Name,
			Messages:  []string{http.StatusText(resp.StatusCode())},
			HTTPCode:  resp.StatusCode(),
		}
	}

	data := parsed.Get("data").Get(gjsonEscape(op.Field))
	if !data.Exists() || data.Type == gjson.Null {
		return gjson.Result{}, fmt.Errorf("%s: %w", op.Name, ErrNoData)
	}
	return data, nil
}

// cacheKey is the operation name followed by the variables as JSON.
// encoding/json sorts map keys, so equal variable sets share a key.
func cacheKey(op schema.Operation, vars map[string]any) string {
	if vars == nil {
		vars = map[string]any{}
	}
	b, err := json.Marshal(vars)
	if err != nil {
		return op.Name + ":" + fmt.Sprint(vars)
	}
	return op.Name + ":" + string(b)
}

func gjsonEscape(path string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`)
	return r.Replace(path)
}

// truncate cuts s to at most maxErrorBody bytes without splitting a rune.
func truncate(s string) string {
	if len(s) <= maxErrorBody {
		return s
	}
	cut := maxErrorBody
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

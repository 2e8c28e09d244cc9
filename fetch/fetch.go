// Package fetch adapts HTTP requests into Tasks. Requests are bound to the
// Execution's scope: aborting the scope cancels the in-flight request and
// leaves the Execution permanently pending, while every other failure
// rejects normally.
package fetch

import (
	"bytes"
	"io"
	"net/http"

	"github.com/NetPo4ki/go-task/task"
)

// Response is the fully-read outcome of a request.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

type config struct {
	client *http.Client
	header http.Header
	body   []byte
}

// Option configures a request Task.
type Option func(*config)

// WithClient sets the http.Client used for every run. Default is
// http.DefaultClient.
func WithClient(c *http.Client) Option {
	return func(cfg *config) { cfg.client = c }
}

// WithHeader adds a header to the request.
func WithHeader(key, value string) Option {
	return func(cfg *config) { cfg.header.Add(key, value) }
}

// WithBody sets the request body. A byte slice, not a reader: the Task is
// reusable and every run needs a fresh body.
func WithBody(body []byte) Option {
	return func(cfg *config) { cfg.body = body }
}

// Do returns a Task performing the request on every run. The request
// context is the Execution scope's context, so cancellation propagates
// into the transport.
func Do(method, url string, opts ...Option) *task.Task[*Response] {
	cfg := config{client: http.DefaultClient, header: http.Header{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	return task.New(func(env *task.Env) (*Response, error) {
		var body io.Reader
		if cfg.body != nil {
			body = bytes.NewReader(cfg.body)
		}
		req, err := http.NewRequestWithContext(env.Context(), method, url, body)
		if err != nil {
			return nil, err
		}
		for k, vs := range cfg.header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		resp, err := cfg.client.Do(req)
		if err != nil {
			// An abort of this Execution's scope is swallowed: the
			// caller that cancelled gets a pending Execution, not an
			// error.
			if env.Aborted() {
				return nil, task.ErrAborted
			}
			return nil, err
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			if env.Aborted() {
				return nil, task.ErrAborted
			}
			return nil, err
		}
		return &Response{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Header:     resp.Header,
			Body:       b,
		}, nil
	}, task.WithName(method+" "+url))
}

// Get is Do with the GET method.
func Get(url string, opts ...Option) *task.Task[*Response] {
	return Do(http.MethodGet, url, opts...)
}

// Post is Do with the POST method and a body.
func Post(url, contentType string, body []byte, opts ...Option) *task.Task[*Response] {
	opts = append([]Option{WithBody(body), WithHeader("Content-Type", contentType)}, opts...)
	return Do(http.MethodPost, url, opts...)
}

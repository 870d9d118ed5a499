// Package fakeserver runs the task endpoint in-process for tests. It records
// every request and can hold or fail individual operations so tests can
// stage races.
package fakeserver

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
	"github.com/ziyixi/tasksync/database"
	"github.com/ziyixi/tasksync/server"
	"github.com/ziyixi/tasksync/testutils"
	"github.com/ziyixi/tasksync/utils"
)

// Request is one recorded call.
type Request struct {
	Operation string
	Variables gjson.Result
	Session   string
}

// Gate holds the next request of an operation until released.
type Gate struct {
	entered     chan struct{}
	release     chan struct{}
	releaseOnce sync.Once
}

// Entered is closed once the held request has arrived.
func (g *Gate) Entered() <-chan struct{} {
	return g.entered
}

// Release lets the held request proceed.
func (g *Gate) Release() {
	g.releaseOnce.Do(func() { close(g.release) })
}

// Server wraps a server.Server with request recording and fault injection.
type Server struct {
	*server.Server

	mu       sync.Mutex
	requests []Request
	gates    map[string]*Gate
	failures map[string][]string
}

// Start runs a seeded server on an httptest listener for the duration of
// the test and returns it along with its endpoint URL.
func Start(t *testing.T, opts ...server.Option) (*Server, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := database.New(testutils.NewTestDB(t))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := server.Seed(context.Background(), store); err != nil {
		t.Fatalf("Failed to seed store: %v", err)
	}

	s := &Server{
		Server:   server.New(store, opts...),
		gates:    make(map[string]*Gate),
		failures: make(map[string][]string),
	}
	ts := httptest.NewServer(s.Router(s.intercept))
	t.Cleanup(ts.Close)
	return s, ts.URL + server.Path
}

// Hold makes the next request of the operation wait until the gate is
// released.
func (s *Server) Hold(operation string) *Gate {
	g := &Gate{entered: make(chan struct{}), release: make(chan struct{})}
	s.mu.Lock()
	s.gates[operation] = g
	s.mu.Unlock()
	return g
}

// FailNext makes the next request of the operation answer with a GraphQL
// error carrying message.
func (s *Server) FailNext(operation, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures[operation] = append(s.failures[operation], message)
}

// Requests returns every recorded request, optionally only those of the
// named operations.
func (s *Server) Requests(operations ...string) []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Request
	for _, r := range s.requests {
		if len(operations) == 0 || slices.Contains(operations, r.Operation) {
			out = append(out, r)
		}
	}
	return out
}

// ResetRequests forgets the recorded requests.
func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = nil
}

// intercept is the middleware that records the request, then applies the
// gate and the injected failure queued for its operation.
func (s *Server) intercept(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, server.ErrorBody(err.Error()))
		return
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))

	body := gjson.ParseBytes(raw)
	session, _ := c.Cookie(utils.SessionCookieName)
	gate, failure := s.record(Request{
		Operation: body.Get("operationName").String(),
		Variables: body.Get("variables"),
		Session:   session,
	})

	if gate != nil {
		close(gate.entered)
		select {
		case <-gate.release:
		case <-c.Request.Context().Done():
			c.Abort()
			return
		}
	}
	if failure != "" {
		c.AbortWithStatusJSON(http.StatusOK, server.ErrorBody(failure))
		return
	}
	c.Next()
}

func (s *Server) record(r Request) (*Gate, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, r)
	gate := s.gates[r.Operation]
	delete(s.gates, r.Operation)

	var failure string
	if queued := s.failures[r.Operation]; len(queued) > 0 {
		failure = queued[0]
		s.failures[r.Operation] = queued[1:]
	}
	return gate, failure
}

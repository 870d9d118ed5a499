// Package server serves the task GraphQL endpoint from a database.Store. It
// backs the dev-server command and the in-process test endpoint.
package server

import (
	"context"
	"errors"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/ziyixi/tasksync/database"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

const (
	// Path is where the endpoint is mounted.
	Path = "/query"

	DemoEmail    = "demo@example.com"
	DemoPassword = "demo"

	keyServer = "server"
)

// DefaultCategories are inserted by Seed.
var DefaultCategories = []string{"work", "home", "errands"}

var errUnauthorized = errors.New("unauthorized")

// Server answers the nine operations.
type Server struct {
	store       *database.Store
	requireAuth bool

	mu       sync.Mutex
	sessions map[string]string
}

// Option configures a Server.
type Option func(*Server)

// RequireAuth rejects every operation but Login without a valid session cookie.
func RequireAuth() Option {
	return func(s *Server) { s.requireAuth = true }
}

// New creates a server backed by store.
func New(store *database.Store, opts ...Option) *Server {
	s := &Server{
		store:    store,
		sessions: make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the gin engine serving Path. The middleware runs before the
// query handler.
func (s *Server) Router(middleware ...gin.HandlerFunc) *gin.Engine {
	app := gin.New()
	app.Use(gin.Recovery())
	app.Use(func(c *gin.Context) {
		c.Set(keyServer, s)
		c.Next()
	})
	app.Use(middleware...)
	app.POST(Path, HandleQuery)
	return app
}

// Store returns the backing store.
func (s *Server) Store() *database.Store {
	return s.store
}

// Seed inserts the default categories and the demo account.
func Seed(ctx context.Context, store *database.Store) error {
	if err := store.SeedCategories(ctx, DefaultCategories...); err != nil {
		return err
	}
	if ok, err := store.Authenticate(ctx, DemoEmail, DemoPassword); err != nil || ok {
		return err
	}
	return store.CreateUser(ctx, DemoEmail, DemoPassword)
}

func (s *Server) authorized(session string) bool {
	if !s.requireAuth {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sessions[session]
	return ok
}

func (s *Server) openSession(email string, session string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session] = email
}

func (s *Server) closeSession(session string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, session)
}

// ErrorBody is a GraphQL response carrying only an error.
func ErrorBody(message string) gin.H {
	return gin.H{"errors": []gin.H{{"message": message}}}
}

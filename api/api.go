package api

import (
	"context"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/reckon/pkg/memory"
	"github.com/papercomputeco/reckon/pkg/task"
)

const defaultConceptLimit = 50

// Inspector runs a function against the memory between cycles.
type Inspector interface {
	Inspect(ctx context.Context, fn func(*memory.Memory)) error
}

// Inputs accepts tasks and commands for the memory.
type Inputs interface {
	Push(item task.Abstract) error
	Pending() int
}

// Server is the API server for inspecting and feeding a memory.
type Server struct {
	config    Config
	inspector Inspector
	inputs    Inputs
	logger    *zap.Logger
	app       *fiber.App
}

// NewServer creates a new API server. Memory reads go through the inspector
// so they never race with a running cycle.
func NewServer(config Config, inspector Inspector, inputs Inputs, logger *zap.Logger) (*Server, error) {
	if inspector == nil {
		return nil, ErrNoInspector
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.ConceptLimit <= 0 {
		config.ConceptLimit = defaultConceptLimit
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:    config,
		inspector: inspector,
		inputs:    inputs,
		logger:    logger,
		app:       app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/v1/status", s.handleStatus)
	app.Get("/v1/concepts", s.handleListConcepts)
	app.Get("/v1/concepts/:term", s.handleGetConcept)
	app.Post("/v1/input", s.handleInput)
	app.Get("/v1/journal", s.handleListJournal)
	app.Get("/v1/journal/:id", s.handleGetJournalEntry)
	app.Get("/v1/events", s.handleEvents)
	if config.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(config.Metrics))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

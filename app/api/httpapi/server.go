package httpapi

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"quietspot/app/api/mcpapi"
	"quietspot/app/config"
	"quietspot/app/service/queue"
	"quietspot/app/service/turn"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/samber/do"
)

const (
	maxRequestDuration = 45 * time.Second
	maxTurnWait        = 10 * time.Second
	shutdownTimeout    = 10 * time.Second
	bodyLimit          = 64 * 1024
)

// MCPHandler is the optional MCP endpoint mounted under /mcp.
type MCPHandler interface {
	Handler() http.Handler
}

type Server struct {
	cfg      *config.Config
	app      *fiber.App
	turn     *turn.Service
	turns    *queue.Service
	turnWait time.Duration
	validate *validator.Validate

	shutdownOnce sync.Once
	shutdownErr  error
}

func New(di *do.Injector) (*Server, error) {
	cfg := do.MustInvoke[*config.Config](di)

	var mcpHandler MCPHandler
	if cfg.MCP.Enabled {
		mcpHandler = do.MustInvoke[*mcpapi.Server](di)
	}

	return NewWithDeps(
		cfg,
		do.MustInvoke[*turn.Service](di),
		do.MustInvoke[*queue.Service](di),
		mcpHandler,
	), nil
}

func NewWithDeps(cfg *config.Config, turnSvc *turn.Service, turns *queue.Service, mcpHandler MCPHandler) *Server {
	s := &Server{
		cfg:      cfg,
		turn:     turnSvc,
		turns:    turns,
		turnWait: maxTurnWait,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "quietspot",
		BodyLimit:             bodyLimit,
		ReadTimeout:           maxRequestDuration,
		WriteTimeout:          maxRequestDuration,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	s.app.Use(recover.New())
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.HTTP.AllowOrigins,
		AllowHeaders: "Content-Type,Authorization",
		AllowMethods: "GET,POST,OPTIONS",
	}))
	s.app.Use(requestLogger)

	s.app.Get("/health", s.health)

	chat := s.app.Group("/chat/sessions")
	chat.Post("/", s.createSession)
	chat.Post("/:sessionId/messages", s.sendMessage)
	chat.Get("/:sessionId/messages", s.listMessages)
	chat.Get("/:sessionId/recommendations", s.getRecommendations)

	if mcpHandler != nil {
		s.app.All("/mcp", adaptor.HTTPHandler(mcpHandler.Handler()))
		s.app.All("/mcp/*", adaptor.HTTPHandler(mcpHandler.Handler()))
	}

	s.app.Use(func(_ *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Endpoint not found")
	})

	return s
}

// Run blocks until the server stops.
func (s *Server) Run() error {
	slog.Info("HTTP server listening", "addr", s.cfg.HTTP.Listen)
	return s.app.Listen(s.cfg.HTTP.Listen)
}

// Shutdown is safe to call more than once; the injector calls it again on exit.
func (s *Server) Shutdown() error {
	s.shutdownOnce.Do(func() {
		slog.Info("Shutting down HTTP server")
		s.shutdownErr = s.app.ShutdownWithTimeout(shutdownTimeout)
	})

	return s.shutdownErr
}

func (s *Server) App() *fiber.App {
	return s.app
}

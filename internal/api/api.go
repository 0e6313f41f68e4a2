package api

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/curaious/projectchron/internal/api/authenticator"
	"github.com/curaious/projectchron/internal/api/controllers"
	"github.com/curaious/projectchron/internal/config"
	"github.com/curaious/projectchron/internal/migrations"
	"github.com/curaious/projectchron/internal/services"
)

// Server is an HTTP Server with access to the wired services
type Server struct {
	srv      *fasthttp.Server
	addr     string
	services *services.Services
	auth     *authenticator.Authenticator
	waker    controllers.JobWaker
}

// New connects to the database, applies pending migrations and wraps the
// services with a fasthttp server.
func New(conf *config.Config) *Server {
	svc := services.NewServices(conf)

	m, err := migrations.NewMigrator(svc.DB)
	if err != nil {
		log.Fatalln("Unable to create migrator", err)
	}

	if err := m.Up(0); err != nil {
		log.Fatalln("Unable to run migrations", err)
	}

	return NewWithServices(conf.HTTP_ADDR, svc)
}

func NewWithServices(addr string, svc *services.Services) *Server {
	return &Server{
		srv: &fasthttp.Server{
			Name:         "projectchron",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		addr:     addr,
		services: svc,
		auth:     authenticator.New(svc.Session, svc.SecureCookies),
	}
}

func (s *Server) Services() *services.Services {
	return s.services
}

// SetJobWaker registers a worker to wake after media registration. It must
// be called before Handler or Start.
func (s *Server) SetJobWaker(w controllers.JobWaker) {
	s.waker = w
}

// Handler returns the routed handler with all middlewares applied.
func (s *Server) Handler() fasthttp.RequestHandler {
	return s.initNewRoutes()
}

// Start the rest server and block until SIGINT or SIGTERM.
func (s *Server) Start() {
	s.srv.Handler = s.Handler()

	slog.Info("Starting REST server...", slog.String("addr", s.addr))
	go func() {
		if err := s.srv.ListenAndServe(s.addr); err != nil {
			slog.Error("Server shutdown", slog.Any("error", err))
		}
	}()
	slog.Info("REST server started!")

	// Listen for OS interrupts
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	// Block till we receive an interrupt
	<-c
	slog.Info("Received interrupt...")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	s.shutdown(ctx)
}

// Shutdown shuts down the rest server and closes the database pool
func (s *Server) shutdown(ctx context.Context) {
	slog.Info("Gracefully shutting down REST server...")
	if err := s.srv.ShutdownWithContext(ctx); err != nil {
		slog.Error("Failed to shutdown the server", slog.Any("error", err))
	}

	if err := s.services.DB.Close(); err != nil {
		slog.Error("Failed to close database", slog.Any("error", err))
	}
	slog.Info("REST server shutdown!")
}

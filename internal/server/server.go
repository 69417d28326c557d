package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"demtiles/internal/dem"
	"demtiles/internal/infra/logger"
	"demtiles/internal/store"
)

const (
	readTimeout  = 5 * time.Second
	writeTimeout = 10 * time.Second
	idleTimeout  = 120 * time.Second
)

// Server exposes downloaded DEM tiles, elevation lookups, and the run
// journal over HTTP.
type Server struct {
	echo     *echo.Echo
	logger   *logger.Logger
	demStore *dem.Store
	journal  *store.RunJournal
	tileDir  string
}

// New wires the routes and middleware.
func New(log *logger.Logger, demStore *dem.Store, journal *store.RunJournal, tileDir string) *Server {
	s := &Server{
		echo:     echo.New(),
		logger:   log,
		demStore: demStore,
		journal:  journal,
		tileDir:  tileDir,
	}

	// Middleware: Request Logger
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c *echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Info("%s %s | %d | %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/tiles/:z/:x/:y", s.handleTile)
	s.echo.GET("/height", s.handleHeight)
	s.echo.GET("/runs", s.handleRuns)
	s.echo.GET("/runs/:id", s.handleRun)

	return s
}

// Handler exposes the underlying HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start blocks serving HTTP on the given port.
func (s *Server) Start(port string) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      s.echo,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	s.logger.Info("Serving DEM tiles on %s", srv.Addr)
	return srv.ListenAndServe()
}

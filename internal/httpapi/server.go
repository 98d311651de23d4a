// Package httpapi serves the recorder's live state over HTTP: health,
// Prometheus metrics, the latest reading and a websocket feed.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server wires the routes to an http.Server
type Server struct {
	hub         *Hub
	metrics     http.Handler
	instruments []string
	started     time.Time
	logger      *zap.Logger
	srv         *http.Server
}

// NewServer builds the server. metrics may be nil to leave /metrics out.
func NewServer(addr string, hub *Hub, metrics http.Handler, instruments []string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		hub:         hub,
		metrics:     metrics,
		instruments: instruments,
		started:     time.Now(),
		logger:      logger,
	}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Router creates and configures the gin engine
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/healthz", s.health)
	if s.metrics != nil {
		router.GET("/metrics", gin.WrapH(s.metrics))
	}
	router.GET("/ws", func(c *gin.Context) {
		s.hub.ServeWS(c.Writer, c.Request)
	})

	v1 := router.Group("/api/v1")
	v1.GET("/readings/latest", s.latest)

	return router
}

func (s *Server) health(c *gin.Context) {
	body := gin.H{
		"status":      "ok",
		"uptime":      time.Since(s.started).Round(time.Second).String(),
		"instruments": s.instruments,
		"clients":     s.hub.Clients(),
	}
	if r, ok := s.hub.Latest(); ok {
		body["last_reading"] = r.Time
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) latest(c *gin.Context) {
	r, ok := s.hub.Latest()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no reading recorded yet"})
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("API request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("status_code", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.hub.Close()
	return s.srv.Shutdown(shutdownCtx)
}

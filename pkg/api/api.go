// Package api serves the admin HTTP API of the proxy.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/xenoncommunity/xenon/pkg/config"
	"github.com/xenoncommunity/xenon/pkg/proxy"
)

// Server is the admin HTTP API of a proxy.
type Server struct {
	proxy *proxy.Proxy
	cfg   config.API
	log   logr.Logger
	stats StatsFunc
}

// StatsFunc returns host statistics for the status endpoint.
type StatsFunc func(ctx context.Context) (*HostStats, error)

// New returns a new API server for p.
func New(p *proxy.Proxy, cfg config.API) *Server {
	return &Server{proxy: p, cfg: cfg, log: logr.Discard(), stats: ReadHostStats}
}

// Start serves the API on the configured bind address until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	s.log = logr.FromContextOrDiscard(ctx).WithName("api")
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Bind)
	if err != nil {
		return fmt.Errorf("error listening for api: %w", err)
	}
	srv := &http.Server{
		Handler:           otelhttp.NewHandler(s.Router(), "xenon-api"),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	s.log.Info("serving admin api", "addr", ln.Addr().String())
	if err = srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("error serving api: %w", err)
	}
	return nil
}

// Router returns the gin engine with all routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	origins := s.cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	r.GET("/status", s.handleStatus)
	r.GET("/servers", s.handleServers)
	players := r.Group("/players")
	{
		players.GET("", s.handlePlayers)
		players.POST("/:name/send", s.handleSend)
		players.POST("/:name/kick", s.handleKick)
	}
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.V(1).Info("api request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"took", time.Since(start))
	}
}

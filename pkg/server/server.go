// Package server provides the HTTP delivery layer: the dashboard, its assets,
// and the pre-built and on-demand draft data downloads.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"code.cloudfoundry.org/lager"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"github.com/mrhapile/draft-data-server/pkg/config"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// Server serves the dashboard and draft data archives.
type Server struct {
	Router *gin.Engine
	Config *config.Config
	logger lager.Logger
}

// New creates a server with all routes registered.
func New(cfg *config.Config, logger lager.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	secureConfig := secure.Config{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}
	if cfg.SSL {
		secureConfig.SSLRedirect = true
		secureConfig.STSSeconds = 31536000
		secureConfig.STSIncludeSubdomains = true
	}
	router.Use(secure.New(secureConfig))

	// The dashboard is opened from file:// and other local origins.
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Accept", "Content-Type"},
		ExposeHeaders:   []string{"Content-Disposition", "Content-Length"},
		MaxAge:          12 * time.Hour,
	}))

	s := &Server{
		Router: router,
		Config: cfg,
		logger: logger.Session("server"),
	}
	s.setupRoutes()
	return s
}

// Run listens on Config.Addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Config.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully. In-flight downloads get shutdownTimeout to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if s.Config.SSL {
			s.logger.Info("starting-https", lager.Data{"addr": ln.Addr().String()})
			err = srv.ServeTLS(ln, s.Config.CertFile, s.Config.KeyFile)
		} else {
			s.logger.Info("starting-http", lager.Data{"addr": ln.Addr().String()})
			err = srv.Serve(ln)
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting-down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func requestLogger(logger lager.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		data := lager.Data{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"bytes":    c.Writer.Size(),
			"duration": time.Since(start).String(),
			"client":   c.ClientIP(),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("request", errors.New(c.Errors.String()), data)
			return
		}
		logger.Debug("request", data)
	}
}

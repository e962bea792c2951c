package httpserver

import (
	"context"
	"net/http"
	"time"

	"converter/pkg/helpers"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (s *Service) middlewareGzip(ctx context.Context) gin.HandlerFunc {
	return gzip.Gzip(gzip.DefaultCompression)
}

func (s *Service) middlewareCORS(ctx context.Context) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost}
	cfg.AllowHeaders = []string{"Origin", "Content-Type"}
	return cors.New(cfg)
}

func (s *Service) middlewareDuration(ctx context.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		t := time.Now()
		c.Next()
		c.Set("duration", time.Since(t))
	}
}

func (s *Service) middlewareTraceID(ctx context.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("req_id", uuid.NewString())
		c.Header("req_id", c.GetString("req_id"))
		c.Next()
	}
}

func (s *Service) middlewareLogger(ctx context.Context) gin.HandlerFunc {
	log := s.logger.New("http")
	return func(c *gin.Context) {
		c.Next()
		log.Info("request", "status", c.Writer.Status(), "url", c.Request.URL.String(), "method", c.Request.Method, "req_id", c.GetString("req_id"))
	}
}

func (s *Service) middlewareCrash(ctx context.Context) gin.HandlerFunc {
	log := s.logger.New("http")
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Trace("crash", "error", r, "url", c.Request.URL.Path, "method", c.Request.Method)
				s.renderContent(ctx, c, http.StatusInternalServerError, gin.H{"error": helpers.NewError("internal_server_error")})
				c.Abort()
			}
		}()
		c.Next()
	}
}

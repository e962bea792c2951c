package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"converter/pkg/helpers"
	"converter/pkg/logger"
	"converter/pkg/model"
	"converter/pkg/trace"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Service is the HTTP transport for the conversion API.
type Service struct {
	config *model.Cfg
	logger *logger.Log
	server *http.Server
	apiv1  Apiv1
	gin    *gin.Engine
	tp     *trace.Tracer
}

// New creates and starts the httpserver service.
func New(ctx context.Context, config *model.Cfg, api Apiv1, tracer *trace.Tracer, log *logger.Log) (*Service, error) {
	s := &Service{
		config: config,
		logger: log,
		apiv1:  api,
		server: &http.Server{Addr: config.Converter.APIServer.Addr},
		tp:     tracer,
	}

	switch s.config.Common.Production {
	case true:
		gin.SetMode(gin.ReleaseMode)
	case false:
		gin.SetMode(gin.DebugMode)
	}

	apiValidator := validator.New()
	apiValidator.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	binding.Validator = &defaultValidator{Validate: apiValidator}

	s.gin = gin.New()
	s.server.Handler = s.gin
	s.server.ReadTimeout = time.Second * 5
	s.server.WriteTimeout = time.Second * 60
	s.server.IdleTimeout = time.Second * 90

	s.gin.Use(s.middlewareTraceID(ctx))
	s.gin.Use(s.middlewareDuration(ctx))
	s.gin.Use(s.middlewareLogger(ctx))
	s.gin.Use(s.middlewareCrash(ctx))
	s.gin.Use(s.middlewareCORS(ctx))
	s.gin.Use(s.middlewareGzip(ctx))
	s.gin.NoRoute(func(c *gin.Context) { c.JSON(http.StatusNotFound, helpers.Problem404()) })

	rgRoot := s.gin.Group("/")
	s.regEndpoint(ctx, rgRoot, http.MethodGet, "health", s.endpointStatus)

	rgAPIv1 := rgRoot.Group("api/v1")
	s.regEndpoint(ctx, rgAPIv1, http.MethodPost, "/convert", s.endpointConvert)

	go func() {
		err := s.server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			s.logger.New("http").Trace("listen_error", "error", err)
		}
	}()

	s.logger.Info("started")

	return s, nil
}

// statusCoder lets an endpoint error override the default 400 the way
// pipeline.Error does (429/500/504/206 per spec).
type statusCoder interface {
	HTTPStatus() int
}

// codedError is satisfied by pipeline.Error; its JSON shape is the
// error_code/error_msg pair spec.md §6 requires, rather than the generic
// helpers.Error title/details pair used for transport-level (binding,
// validation) failures.
type codedError interface {
	error
	ErrorCode() int
}

// errorResponse is the JSON error body for pipeline failures.
type errorResponse struct {
	ErrorCode int    `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

func (s *Service) regEndpoint(ctx context.Context, rg *gin.RouterGroup, method, path string, handler func(context.Context, *gin.Context) (any, int, error)) {
	rg.Handle(method, path, func(c *gin.Context) {
		k := fmt.Sprintf("api_endpoint %s:%s%s", method, rg.BasePath(), path)
		ctx, span := s.tp.Start(ctx, k)
		defer span.End()

		res, okStatus, err := handler(ctx, c)
		if err != nil {
			status := 400
			if sc, ok := err.(statusCoder); ok {
				status = sc.HTTPStatus()
			}
			if ce, ok := err.(codedError); ok {
				s.renderContent(ctx, c, status, errorResponse{ErrorCode: ce.ErrorCode(), ErrorMsg: ce.Error()})
				return
			}
			s.renderContent(ctx, c, status, gin.H{"error": helpers.NewErrorFromError(err)})
			return
		}

		s.renderContent(ctx, c, okStatus, res)
	})
}

func (s *Service) renderContent(ctx context.Context, c *gin.Context, code int, data any) {
	ctx, span := s.tp.Start(ctx, "httpserver:renderContent")
	defer span.End()

	switch c.NegotiateFormat(gin.MIMEJSON, "*/*") {
	case gin.MIMEJSON:
		c.JSON(code, data)
	case "*/*": // curl
		c.JSON(code, data)
	default:
		c.JSON(http.StatusNotAcceptable, gin.H{"error": helpers.NewErrorDetails("not_acceptable", "Accept header is invalid. It should be \"application/json\".")})
	}
}

// Close shuts down the HTTP listener.
func (s *Service) Close(ctx context.Context) error {
	s.logger.Info("Quit")
	return s.server.Shutdown(ctx)
}

package httpserver

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"
)

func (s *Service) bindRequest(ctx context.Context, c *gin.Context, v any) error {
	_, span := s.tp.Start(ctx, "httpserver:bindRequest")
	defer span.End()

	if err := c.ShouldBindJSON(v); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

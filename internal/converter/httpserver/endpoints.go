package httpserver

import (
	"context"
	"net/http"

	"converter/internal/converter/pipeline"

	"go.opentelemetry.io/otel/codes"

	"github.com/gin-gonic/gin"
)

func (s *Service) endpointStatus(ctx context.Context, c *gin.Context) (any, int, error) {
	ctx, span := s.tp.Start(ctx, "httpserver:endpointStatus")
	defer span.End()

	status := s.apiv1.Health(ctx)
	if !status.Healthy {
		return status, http.StatusServiceUnavailable, nil
	}
	return status, http.StatusOK, nil
}

// convertResponse is the JSON success body for POST /api/v1/convert. Data is
// base64-encoded by encoding/json since it is a []byte field.
type convertResponse struct {
	Data                 []byte  `json:"data"`
	DocsCount            uint64  `json:"docs_count"`
	Size                 uint64  `json:"size"`
	LastProcessedSiraNo  *uint64 `json:"last_processed_sira_no,omitempty"`
	RequestFullyCompleted bool    `json:"request_fully_completed"`
}

func (s *Service) endpointConvert(ctx context.Context, c *gin.Context) (any, int, error) {
	ctx, span := s.tp.Start(ctx, "httpserver:endpointConvert")
	defer span.End()

	req := pipeline.ConversionRequest{}
	if err := s.bindRequest(ctx, c, &req); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, err
	}

	result, pErr := s.apiv1.Convert(ctx, req)
	if pErr != nil {
		span.SetStatus(codes.Error, pErr.Error())
		return nil, 0, pErr
	}

	status := http.StatusOK
	if !result.RequestFullyCompleted {
		status = http.StatusPartialContent
	}

	reply := &convertResponse{
		Data:                  result.Archive,
		DocsCount:             result.DocsCount,
		Size:                  result.Size,
		LastProcessedSiraNo:   result.LastProcessedSiraNo,
		RequestFullyCompleted: result.RequestFullyCompleted,
	}
	return reply, status, nil
}

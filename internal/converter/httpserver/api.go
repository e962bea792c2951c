package httpserver

import (
	"context"

	"converter/internal/converter/pipeline"
	"converter/pkg/model"
)

// Apiv1 is the subset of apiv1.Client this server depends on.
type Apiv1 interface {
	Health(ctx context.Context) *model.Status
	Convert(ctx context.Context, req pipeline.ConversionRequest) (*pipeline.ConversionResult, *pipeline.Error)
}

package apiv1

import (
	"context"

	"converter/internal/converter/archive"
	"converter/internal/converter/pipeline"
)

// Convert runs one invoice-conversion request through the pipeline,
// enforcing the process-wide admission limit first. A non-nil *pipeline.Error
// return means the caller gets no body (fatal); a non-nil result with
// RequestFullyCompleted=false means a partial (HTTP 206) success.
func (c *Client) Convert(ctx context.Context, req pipeline.ConversionRequest) (*pipeline.ConversionResult, *pipeline.Error) {
	ctx, span := c.tracer.Start(ctx, "apiv1:Convert")
	defer span.End()

	release, ok := c.admission.TryAcquire()
	if !ok {
		c.log.Info("admission limit reached, rejecting request")
		return nil, pipeline.New(pipeline.CodeServerBusy, "apiv1.convert", "", errServerBusy)
	}
	defer release()

	format := archive.Format(req.Compression)

	result, err := c.manager.Convert(ctx, req, c.engine, format)
	if err != nil {
		c.log.Info("conversion failed", "fatal", err.IsFatal(), "error", err)
		return nil, err
	}

	c.log.Info("conversion finished", "docs_count", result.DocsCount, "fully_completed", result.RequestFullyCompleted)
	return result, nil
}

var errServerBusy = serverBusyError{}

type serverBusyError struct{}

func (serverBusyError) Error() string { return "admission limit reached" }

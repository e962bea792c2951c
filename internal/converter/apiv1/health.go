package apiv1

import (
	"context"

	"converter/pkg/model"
)

// Ping is satisfied by the object store so Health can probe it without
// apiv1 depending on the concrete GridFS implementation.
type Ping interface {
	Ping(ctx context.Context) error
}

// Health reports this service's and its dependencies' health.
func (c *Client) Health(ctx context.Context) *model.Status {
	ctx, span := c.tracer.Start(ctx, "apiv1:Health")
	defer span.End()

	statuses := model.ManyStatus{}

	if pinger, ok := c.store.(Ping); ok {
		if err := pinger.Ping(ctx); err != nil {
			statuses = append(statuses, &model.Status{
				Name:    "objectstore",
				Healthy: false,
				Status:  model.StatusFail,
				Message: err.Error(),
			})
		}
	}

	return statuses.Check()
}

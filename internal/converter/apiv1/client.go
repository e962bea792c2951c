// Package apiv1 exposes the conversion pipeline as the public API the
// transport layer calls into.
package apiv1

import (
	"context"

	"converter/internal/converter/objectstore"
	"converter/internal/converter/pipeline"
	"converter/internal/converter/xslt"
	"converter/pkg/logger"
	"converter/pkg/model"
	"converter/pkg/trace"
)

// Client holds the public api object.
type Client struct {
	cfg       *model.Cfg
	log       *logger.Log
	tracer    *trace.Tracer
	store     objectstore.Store
	engine    xslt.Engine
	admission *pipeline.Admission
	manager   *pipeline.Manager
}

// New creates a new instance of the public api.
func New(ctx context.Context, cfg *model.Cfg, store objectstore.Store, tracer *trace.Tracer, log *logger.Log) (*Client, error) {
	engine := xslt.NewXsltprocEngine(cfg.Converter.XSLT.XsltprocPath)

	c := &Client{
		cfg:       cfg,
		log:       log.New("apiv1"),
		tracer:    tracer,
		store:     store,
		engine:    engine,
		admission: pipeline.NewAdmission(cfg.Converter.Pipeline.MaxConcurrentRequests),
		manager: pipeline.NewManager(store, log.New("apiv1"), cfg.Converter.Pipeline.DecompressTimeout(),
			cfg.Converter.Pipeline.JobChannelCapacity),
	}

	c.log.Info("Started")
	return c, nil
}

// Close releases resources held by the client. The object store's
// lifecycle is owned by the caller (cmd/converter), not the client.
func (c *Client) Close(ctx context.Context) error {
	return nil
}

package apiv1

import (
	"context"
	"testing"

	"converter/internal/converter/objectstore"
	"converter/pkg/logger"
	"converter/pkg/model"
	"converter/pkg/trace"

	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, store objectstore.Store, maxConcurrent int64) *Client {
	t.Helper()
	log := logger.NewSimple("apiv1_test")
	tracer, err := trace.NewForTesting(context.Background(), "converter-test", log)
	require.NoError(t, err)

	cfg := &model.Cfg{
		Converter: model.Converter{
			Pipeline: model.Pipeline{
				MaxConcurrentRequests: maxConcurrent,
				JobChannelCapacity:    8,
				DecompressTimeoutSeconds: 5,
			},
			XSLT: model.XSLTEngine{XsltprocPath: "/usr/bin/xsltproc"},
		},
	}

	c, err := New(context.Background(), cfg, store, tracer, log)
	require.NoError(t, err)
	return c
}

func TestNewClient(t *testing.T) {
	c := testClient(t, objectstore.NewFake(), 4)
	require.NotNil(t, c)
}

func TestHealthHealthyWhenStoreHasNoPinger(t *testing.T) {
	c := testClient(t, objectstore.NewFake(), 4)
	status := c.Health(context.Background())
	require.True(t, status.Healthy)
}

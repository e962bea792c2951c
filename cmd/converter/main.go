package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"converter/internal/converter/apiv1"
	"converter/internal/converter/httpserver"
	"converter/internal/converter/objectstore"
	"converter/pkg/configuration"
	"converter/pkg/logger"
	"converter/pkg/trace"
)

type service interface {
	Close(ctx context.Context) error
}

func main() {
	var wg sync.WaitGroup
	ctx := context.Background()

	services := make(map[string]service)

	cfg, err := configuration.New(ctx)
	if err != nil {
		panic(err)
	}

	log, err := logger.New("converter", cfg.Common.Log.FolderPath, cfg.Common.Production)
	if err != nil {
		panic(err)
	}

	tracer, err := trace.New(ctx, cfg, log, "converter", "converter")
	if err != nil {
		panic(err)
	}

	objectStore, err := objectstore.New(ctx, cfg, log.New("objectstore"))
	services["objectStore"] = objectStore
	if err != nil {
		panic(err)
	}

	apiv1Client, err := apiv1.New(ctx, cfg, objectStore, tracer, log.New("apiv1"))
	if err != nil {
		panic(err)
	}

	httpService, err := httpserver.New(ctx, cfg, apiv1Client, tracer, log.New("httpserver"))
	services["httpService"] = httpService
	if err != nil {
		panic(err)
	}

	termChan := make(chan os.Signal, 1)
	signal.Notify(termChan, syscall.SIGINT, syscall.SIGTERM)

	<-termChan // Blocks here until interrupted

	mainLog := log.New("main")
	mainLog.Info("HALTING SIGNAL!")

	for serviceName, service := range services {
		if err := service.Close(ctx); err != nil {
			mainLog.Trace("serviceName", serviceName, "error", err)
		}
	}

	if err := tracer.Shutdown(ctx); err != nil {
		mainLog.Error(err, "Tracer shutdown")
	}

	wg.Wait()

	mainLog.Info("Stopped")
}

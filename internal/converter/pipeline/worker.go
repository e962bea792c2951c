package pipeline

import (
	"fmt"

	"converter/internal/converter/archive"
	"converter/internal/converter/xslt"
	"converter/pkg/logger"
)

// workerOutcome is what the worker goroutine hands back to the manager:
// either a finished (full or partial) result, or a fatal error.
type workerOutcome struct {
	result *ConversionResult
	err    *Error
}

// worker is the blocking consumer: it owns the compiled-stylesheet cache
// and the archive writer for exactly one request.
type worker struct {
	engine       xslt.Engine
	format       archive.Format
	filenameMode FilenameMode
	token        *CancelToken
	complete     <-chan bool
	log          *logger.Log
}

// newWorker builds a worker. complete receives exactly one value, sent by
// the manager right before it closes jobs, reporting whether every
// request item was sent (true) or the manager stopped early on a
// non-fatal error (false, partial).
func newWorker(engine xslt.Engine, format archive.Format, filenameMode FilenameMode, token *CancelToken, complete <-chan bool, log *logger.Log) *worker {
	return &worker{engine: engine, format: format, filenameMode: filenameMode, token: token, complete: complete, log: log}
}

// run receives jobs until the channel closes or a terminal condition is
// hit, then sends exactly one outcome on out. Cancellation is only
// checked between jobs, never after one has already been pulled off the
// channel, so a buffered job is never silently dropped.
func (w *worker) run(jobs <-chan ConversionJob, out chan<- workerOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out <- workerOutcome{err: New(CodeTaskJoinError, "worker.run", "", fmt.Errorf("panic: %v", r))}
		}
	}()

	writer, err := archive.New(w.format)
	if err != nil {
		out <- workerOutcome{err: New(CodeZipError, "worker.newWriter", "", err)}
		return
	}

	cache := make(map[string]xslt.Compiled)
	defer func() {
		for _, c := range cache {
			_ = c.Close()
		}
	}()

	var docsCount uint64
	var size uint64
	var lastSiraNo *uint64

	finalize := func(fullyCompleted bool) workerOutcome {
		archiveBytes, ferr := writer.Finalize()
		if ferr != nil {
			return workerOutcome{err: New(CodeZipError, "worker.finalize", "", ferr)}
		}
		return workerOutcome{result: &ConversionResult{
			Archive:               archiveBytes,
			DocsCount:             docsCount,
			Size:                  size,
			LastProcessedSiraNo:   lastSiraNo,
			RequestFullyCompleted: fullyCompleted,
		}}
	}

	ctx := w.token.Context()

	for {
		var job ConversionJob
		var ok bool

		select {
		case <-w.token.Done():
			out <- workerOutcome{err: New(CodeClientDisconnected, "worker.run", "", w.token.Err())}
			return
		case job, ok = <-jobs:
			if !ok {
				// complete always has a value ready by the time jobs is
				// observed closed: the manager sends to it before closing.
				out <- finalize(<-w.complete)
				return
			}
		}

		compiled, cached := cache[job.XsltKey]
		if !cached {
			if job.XsltData == nil {
				out <- workerOutcome{err: New(CodeXsltDataMissing, "worker.compile", job.Item.ObjectID,
					fmt.Errorf("xslt_key %q missing stylesheet data on cache miss", job.XsltKey))}
				return
			}
			c, cerr := w.engine.Compile(ctx, job.XsltData)
			if cerr != nil {
				w.log.Info("xslt compile failed, closing partial archive", "xslt_key", job.XsltKey, "error", cerr)
				out <- finalize(false)
				return
			}
			cache[job.XsltKey] = c
			compiled = c
		}

		html, terr := w.engine.Transform(ctx, compiled, job.XMLData)
		if terr != nil {
			w.log.Info("xslt transform failed, closing partial archive", "object_id", job.Item.ObjectID, "error", terr)
			out <- finalize(false)
			return
		}

		name := filenameFor(w.filenameMode, job.Item, docsCount)
		if err := writer.Append(name, html); err != nil {
			w.log.Info("archive append failed, closing partial archive", "object_id", job.Item.ObjectID, "error", err)
			out <- finalize(false)
			return
		}

		docsCount++
		size += uint64(len(html))
		if job.Item.SiraNo != nil {
			if lastSiraNo == nil || *job.Item.SiraNo > *lastSiraNo {
				v := *job.Item.SiraNo
				lastSiraNo = &v
			}
		}
	}
}

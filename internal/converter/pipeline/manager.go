package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"converter/internal/converter/archive"
	"converter/internal/converter/decompress"
	"converter/internal/converter/objectstore"
	"converter/internal/converter/sanitize"
	"converter/internal/converter/xmlkey"
	"converter/internal/converter/xslt"
	"converter/pkg/logger"
)

// defaultJobChannelCapacity bounds producer/consumer skew: the manager
// never holds more than one in-flight decompressed buffer plus the job
// currently queued for the worker. Used when NewManager is given a
// non-positive capacity.
const defaultJobChannelCapacity = 8

// Manager is the async producer: per item it fetches, decompresses,
// sanitizes, extracts the xslt key, resolves the stylesheet, and hands a
// ConversionJob to the worker.
type Manager struct {
	store             objectstore.Store
	log               *logger.Log
	decompressTimeout time.Duration
	jobChannelCap     int
}

// NewManager returns a Manager backed by the given object store.
func NewManager(store objectstore.Store, log *logger.Log, decompressTimeout time.Duration, jobChannelCap int) *Manager {
	if jobChannelCap <= 0 {
		jobChannelCap = defaultJobChannelCapacity
	}
	return &Manager{store: store, log: log, decompressTimeout: decompressTimeout, jobChannelCap: jobChannelCap}
}

// Convert runs one request to completion: full success, partial success
// (non-fatal error stops the request early), or a fatal error (no body).
// ctx should be the transport request's context, so a client disconnect
// propagates as cancellation.
func (m *Manager) Convert(ctx context.Context, req ConversionRequest, engine xslt.Engine, format archive.Format) (*ConversionResult, *Error) {
	token := NewCancelToken(ctx)
	jobs := make(chan ConversionJob, m.jobChannelCap)
	out := make(chan workerOutcome, 1)
	complete := make(chan bool, 1)

	wk := newWorker(engine, format, req.FilenameMode, token, complete, m.log)
	go wk.run(jobs, out)

	seenXsltKeys := make(map[string]bool)

	for _, item := range req.Items {
		if token.Cancelled() {
			closeJobs(jobs, complete, false)
			<-out
			return nil, New(CodeClientDisconnected, "manager.convert", item.ObjectID, token.Err())
		}

		exists, err := m.store.Exists(ctx, objectstore.BucketUBLs, item.ObjectID, req.Year)
		if err != nil {
			token.Cancel(err)
			closeJobs(jobs, complete, false)
			<-out
			return nil, New(CodeObjStoreError, "manager.exists", item.ObjectID, err)
		}
		if !exists {
			m.log.Info("ubl not found in object store, closing partial archive", "object_id", item.ObjectID)
			return m.stopEarly(jobs, out, complete)
		}

		record, err := m.store.Get(ctx, objectstore.BucketUBLs, item.ObjectID, req.Year)
		if err != nil {
			token.Cancel(err)
			closeJobs(jobs, complete, false)
			<-out
			return nil, New(CodeObjStoreError, "manager.get", item.ObjectID, err)
		}

		plain, err := m.decompress(ctx, record)
		if err != nil {
			derr := classifyDecompressErr(err, item.ObjectID)
			m.log.Info("decompress failed, closing partial archive", "object_id", item.ObjectID, "error_code", derr.ErrorCode(), "error", derr)
			return m.stopEarly(jobs, out, complete)
		}

		sanitized, err := sanitize.Sanitize(plain)
		if err != nil {
			m.log.Info("sanitize failed, closing partial archive", "object_id", item.ObjectID, "error", err)
			return m.stopEarly(jobs, out, complete)
		}

		key, err := xmlkey.Extract(sanitized)
		if err != nil {
			m.log.Info("xslt key extraction failed, closing partial archive", "object_id", item.ObjectID, "error", err)
			return m.stopEarly(jobs, out, complete)
		}

		job := ConversionJob{Item: item, XMLData: sanitized, XsltKey: key}
		if !seenXsltKeys[key] {
			xsltBytes, rerr := m.resolveXslt(ctx, key, req.Year)
			if rerr != nil {
				if rerr.IsFatal() {
					token.Cancel(rerr)
					closeJobs(jobs, complete, false)
					<-out
					return nil, rerr
				}
				m.log.Info("xslt resolve failed, closing partial archive", "xslt_key", key, "error", rerr)
				return m.stopEarly(jobs, out, complete)
			}
			job.XsltData = xsltBytes
			seenXsltKeys[key] = true
		}

		sent, outcome := m.sendJob(jobs, out, job, token)
		if !sent {
			if outcome.err != nil {
				return nil, outcome.err
			}
			return outcome.result, nil
		}
	}

	closeJobs(jobs, complete, true)
	outcome := <-out
	if outcome.err != nil {
		return nil, outcome.err
	}
	return outcome.result, nil
}

// closeJobs always posts fullyCompleted to complete before closing jobs,
// so the worker's EOF branch can tell a normal drain-to-exhaustion apart
// from a manager-initiated stop-early without ever relying on
// cancellation (which would abandon buffered jobs instead of draining
// them). Every call site that closes jobs must go through this.
func closeJobs(jobs chan<- ConversionJob, complete chan<- bool, fullyCompleted bool) {
	complete <- fullyCompleted
	close(jobs)
}

// stopEarly closes the job channel without cancelling the token, so the
// worker drains every job already buffered before reporting a partial
// (but still successful, HTTP 206) result.
func (m *Manager) stopEarly(jobs chan ConversionJob, out <-chan workerOutcome, complete chan bool) (*ConversionResult, *Error) {
	closeJobs(jobs, complete, false)
	outcome := <-out
	if outcome.err != nil {
		return nil, outcome.err
	}
	return outcome.result, nil
}

// sendJob pushes job to the worker, racing against the worker having
// already exited (e.g. a fatal protocol violation) or the token having
// been cancelled out from under the manager (client disconnect racing
// the send).
func (m *Manager) sendJob(jobs chan<- ConversionJob, out <-chan workerOutcome, job ConversionJob, token *CancelToken) (bool, workerOutcome) {
	select {
	case jobs <- job:
		return true, workerOutcome{}
	case outcome := <-out:
		return false, outcome
	case <-token.Done():
		return false, workerOutcome{err: New(CodeClientDisconnected, "manager.sendJob", job.Item.ObjectID, token.Err())}
	}
}

func (m *Manager) decompress(ctx context.Context, record *objectstore.StoreRecord) ([]byte, error) {
	if record.OriginalSize >= decompress.AsyncThreshold {
		return decompress.DecompressWithTimeout(ctx, record.Content, record.OriginalSize, m.decompressTimeout)
	}
	return decompress.Decompress(record.Content, record.OriginalSize)
}

// classifyDecompressErr distinguishes the two offload-specific outcomes
// from a plain decode failure, so DecompressTimeout and DecompressCancelled
// are reachable as first-class, logged error codes rather than being
// merged into a generic DecompressError.
func classifyDecompressErr(err error, objectID string) *Error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return New(CodeDecompressTimeout, "manager.decompress", objectID, err)
	case errors.Is(err, context.Canceled):
		return New(CodeDecompressCancelled, "manager.decompress", objectID, err)
	default:
		return New(CodeDecompressError, "manager.decompress", objectID, err)
	}
}

// resolveXslt applies the compressed-first, uncompressed-fallback policy:
// try xslt_key+".xz" (decompressing on hit), fall back to the bare key
// (already-plain bytes) on NotFound. Any other error is fatal.
func (m *Manager) resolveXslt(ctx context.Context, xsltKey, year string) ([]byte, *Error) {
	record, err := m.store.Get(ctx, objectstore.BucketXSLTs, xsltKey+".xz", year)
	if err == nil {
		plain, derr := decompress.Decompress(record.Content, record.OriginalSize)
		if derr != nil {
			return nil, New(CodeDecompressError, "manager.resolveXslt", xsltKey, derr)
		}
		return plain, nil
	}
	if !errors.Is(err, objectstore.ErrNotFound) {
		return nil, classifyObjStoreErr(err, xsltKey)
	}

	record, err = m.store.Get(ctx, objectstore.BucketXSLTs, xsltKey, year)
	if err != nil {
		return nil, classifyObjStoreErr(err, xsltKey)
	}
	return record.Content, nil
}

func classifyObjStoreErr(err error, xsltKey string) *Error {
	if errors.Is(err, objectstore.ErrMultiple) {
		return New(CodeMultipleRecords, "manager.resolveXslt", xsltKey, err)
	}
	if errors.Is(err, objectstore.ErrNotFound) {
		return New(CodeObjStoreError, "manager.resolveXslt", xsltKey, fmt.Errorf("xslt key not found under either variant: %w", err))
	}
	return New(CodeObjStoreError, "manager.resolveXslt", xsltKey, err)
}

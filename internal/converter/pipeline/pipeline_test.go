package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"converter/internal/converter/archive"
	"converter/internal/converter/objectstore"
	"converter/internal/converter/xslt"
	"converter/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

func testLog() *logger.Log {
	return logger.NewSimple("pipeline_test")
}

func xzBytes(t *testing.T, plain []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(plain)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func validKey(seed byte) string {
	return "M" + strings.Repeat(string(rune('a'+seed%20)), 22) + "==" + "S" + strings.Repeat(string(rune('b'+seed%20)), 43) + "="
}

func ublXML(key string) []byte {
	return []byte(`<Invoice xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2">
<cbc:EmbeddedDocumentBinaryObject>` + key + `</cbc:EmbeddedDocumentBinaryObject>
</Invoice>`)
}

func seedStore(t *testing.T, store *objectstore.Fake, objectID, year string, xmlData []byte) {
	t.Helper()
	compressed := xzBytes(t, xmlData)
	store.Put(objectstore.BucketUBLs, objectID, year, objectstore.StoreRecord{
		Content:      compressed,
		OriginalSize: int64(len(xmlData)),
	})
}

func seedXslt(t *testing.T, store *objectstore.Fake, key, year string) {
	t.Helper()
	store.Put(objectstore.BucketXSLTs, key, year, objectstore.StoreRecord{
		Content: []byte("<xsl:stylesheet/>"),
	})
}

func sira(n uint64) *uint64 { return &n }

func zipNames(t *testing.T, data []byte) []string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	names := make([]string, len(zr.File))
	for i, f := range zr.File {
		names[i] = f.Name
	}
	return names
}

// S1: single successful item.
func TestConvertSingleItemSuccess(t *testing.T) {
	store := objectstore.NewFake()
	key := validKey(1)
	seedStore(t, store, "obj-1", "2025", ublXML(key))
	seedXslt(t, store, key, "2025")

	m := NewManager(store, testLog(), time.Second, 8)
	engine := &xslt.FakeEngine{}

	req := ConversionRequest{
		Year:         "2025",
		FilenameMode: FilenameStartFromInvoiceOne,
		Items:        []InvoiceItemRef{{ObjectID: "obj-1", SiraNo: sira(1)}},
	}

	result, err := m.Convert(context.Background(), req, engine, archive.FormatZip)
	require.Nil(t, err)
	require.NotNil(t, result)
	assert.Equal(t, uint64(1), result.DocsCount)
	assert.True(t, result.RequestFullyCompleted)
	assert.Equal(t, sira(1), result.LastProcessedSiraNo)
	assert.Equal(t, []string{"Fat_0.html"}, zipNames(t, result.Archive))
}

// Property 1: ordering preserved across multiple successful items.
func TestConvertPreservesOrdering(t *testing.T) {
	store := objectstore.NewFake()
	key := validKey(1)
	for i, id := range []string{"obj-a", "obj-b", "obj-c"} {
		seedStore(t, store, id, "2025", ublXML(key))
		_ = i
	}
	seedXslt(t, store, key, "2025")

	m := NewManager(store, testLog(), time.Second, 8)
	engine := &xslt.FakeEngine{}

	req := ConversionRequest{
		Year:         "2025",
		FilenameMode: FilenameStartFromInvoiceOne,
		Items: []InvoiceItemRef{
			{ObjectID: "obj-a"}, {ObjectID: "obj-b"}, {ObjectID: "obj-c"},
		},
	}

	result, err := m.Convert(context.Background(), req, engine, archive.FormatZip)
	require.Nil(t, err)
	assert.Equal(t, uint64(3), result.DocsCount)
	assert.True(t, result.RequestFullyCompleted)
	assert.Equal(t, []string{"Fat_0.html", "Fat_1.html", "Fat_2.html"}, zipNames(t, result.Archive))
}

// countingStore wraps a Fake and counts Get calls per (bucket, key), to
// verify the at-most-once XSLT fetch property directly rather than only
// inferring it from the compile count.
type countingStore struct {
	*objectstore.Fake
	getCounts map[string]int
}

func newCountingStore() *countingStore {
	return &countingStore{Fake: objectstore.NewFake(), getCounts: make(map[string]int)}
}

func (s *countingStore) Get(ctx context.Context, bucket, key, year string) (*objectstore.StoreRecord, error) {
	s.getCounts[bucket+"/"+key]++
	return s.Fake.Get(ctx, bucket, key, year)
}

// S2 / Properties 2-3: a shared xslt_key is resolved once (one lookup of the
// .xz variant, then one of the bare key it falls back to) and compiled once.
func TestConvertSharedXsltKeyFetchedAndCompiledOnce(t *testing.T) {
	store := newCountingStore()
	key := validKey(2)
	seedStore(t, store.Fake, "obj-1", "2025", ublXML(key))
	seedStore(t, store.Fake, "obj-2", "2025", ublXML(key))
	seedXslt(t, store.Fake, key, "2025")

	m := NewManager(store, testLog(), time.Second, 8)
	engine := &xslt.FakeEngine{}

	req := ConversionRequest{
		Year:         "2025",
		FilenameMode: FilenameStartFromInvoiceOne,
		Items:        []InvoiceItemRef{{ObjectID: "obj-1"}, {ObjectID: "obj-2"}},
	}

	result, err := m.Convert(context.Background(), req, engine, archive.FormatZip)
	require.Nil(t, err)
	assert.Equal(t, uint64(2), result.DocsCount)
	assert.Equal(t, 1, engine.CompileCount)
	assert.Equal(t, 1, store.getCounts["xslts/"+key+".xz"])
	assert.Equal(t, 1, store.getCounts["xslts/"+key])
	assert.Len(t, zipNames(t, result.Archive), 2)
}

// S3 / Property 4: missing item stops the request with a deterministic
// partial result.
func TestConvertMissingItemYieldsPartialResult(t *testing.T) {
	store := objectstore.NewFake()
	key := validKey(3)
	seedStore(t, store, "obj-1", "2025", ublXML(key))
	// obj-2 intentionally absent from the store.
	seedStore(t, store, "obj-3", "2025", ublXML(key))
	seedXslt(t, store, key, "2025")

	m := NewManager(store, testLog(), time.Second, 8)
	engine := &xslt.FakeEngine{}

	req := ConversionRequest{
		Year:         "2025",
		FilenameMode: FilenameStartFromInvoiceOne,
		Items: []InvoiceItemRef{
			{ObjectID: "obj-1", SiraNo: sira(10)},
			{ObjectID: "obj-2", SiraNo: sira(20)},
			{ObjectID: "obj-3", SiraNo: sira(30)},
		},
	}

	result, err := m.Convert(context.Background(), req, engine, archive.FormatZip)
	require.Nil(t, err)
	require.NotNil(t, result)
	assert.Equal(t, uint64(1), result.DocsCount)
	assert.False(t, result.RequestFullyCompleted)
	assert.Equal(t, sira(10), result.LastProcessedSiraNo)
	assert.Equal(t, []string{"Fat_0.html"}, zipNames(t, result.Archive))
}

// S4: an invalid numeric entity is sanitized before the transform runs.
func TestConvertSanitizesInvalidEntity(t *testing.T) {
	store := objectstore.NewFake()
	key := validKey(4)
	xmlData := []byte(`<Invoice xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2">
<cbc:Note>&#x1F;</cbc:Note>
<cbc:EmbeddedDocumentBinaryObject>` + key + `</cbc:EmbeddedDocumentBinaryObject>
</Invoice>`)
	seedStore(t, store, "obj-1", "2025", xmlData)
	seedXslt(t, store, key, "2025")

	m := NewManager(store, testLog(), time.Second, 8)
	engine := &xslt.FakeEngine{}

	req := ConversionRequest{
		Year:         "2025",
		FilenameMode: FilenameStartFromInvoiceOne,
		Items:        []InvoiceItemRef{{ObjectID: "obj-1"}},
	}

	result, err := m.Convert(context.Background(), req, engine, archive.FormatZip)
	require.Nil(t, err)
	assert.Equal(t, uint64(1), result.DocsCount)

	zr, zerr := zip.NewReader(bytes.NewReader(result.Archive), int64(len(result.Archive)))
	require.NoError(t, zerr)
	require.Len(t, zr.File, 1)
	rc, rerr := zr.File[0].Open()
	require.NoError(t, rerr)
	defer rc.Close()
	var buf bytes.Buffer
	_, rerr = buf.ReadFrom(rc)
	require.NoError(t, rerr)
	assert.Contains(t, buf.String(), "-sanitized-x1F--")
}

// errorStore is a minimal objectstore.Store that fails every Exists call,
// used to exercise the fatal object-store-transport-error path.
type errorStore struct{}

func (errorStore) Exists(context.Context, string, string, string) (bool, error) {
	return false, errTransport{}
}

func (errorStore) Get(context.Context, string, string, string) (*objectstore.StoreRecord, error) {
	return nil, errTransport{}
}

type errTransport struct{}

func (errTransport) Error() string { return "object store unreachable" }

// Fatal: object-store transport errors (not NotFound) abort with no body.
func TestConvertObjStoreTransportErrorIsFatal(t *testing.T) {
	m := NewManager(errorStore{}, testLog(), time.Second, 8)
	engine := &xslt.FakeEngine{}

	req := ConversionRequest{
		Year:         "2025",
		FilenameMode: FilenameStartFromInvoiceOne,
		Items:        []InvoiceItemRef{{ObjectID: "obj-1"}},
	}

	result, convErr := m.Convert(context.Background(), req, engine, archive.FormatZip)
	require.Nil(t, result)
	require.NotNil(t, convErr)
	assert.Equal(t, CodeObjStoreError, convErr.Code)
	assert.True(t, convErr.IsFatal())
}

// Non-fatal: an item simply absent from the store stops the request early
// but still returns a (partial) success.
func TestConvertMissingItemIsNonFatal(t *testing.T) {
	store := objectstore.NewFake() // obj-1 never seeded.
	m := NewManager(store, testLog(), time.Second, 8)
	engine := &xslt.FakeEngine{}

	req := ConversionRequest{
		Year:         "2025",
		FilenameMode: FilenameStartFromInvoiceOne,
		Items:        []InvoiceItemRef{{ObjectID: "obj-1"}},
	}

	result, convErr := m.Convert(context.Background(), req, engine, archive.FormatZip)
	require.Nil(t, convErr)
	require.NotNil(t, result)
	assert.Equal(t, uint64(0), result.DocsCount)
	assert.False(t, result.RequestFullyCompleted)
}

// Fatal: XsltDataMissing is a protocol violation the worker must reject.
func TestWorkerRejectsCacheMissWithoutData(t *testing.T) {
	token := NewCancelToken(context.Background())
	complete := make(chan bool, 1)
	w := newWorker(&xslt.FakeEngine{}, archive.FormatZip, FilenameStartFromInvoiceOne, token, complete, testLog())

	jobs := make(chan ConversionJob, 1)
	out := make(chan workerOutcome, 1)
	go w.run(jobs, out)

	jobs <- ConversionJob{Item: InvoiceItemRef{ObjectID: "obj-1"}, XMLData: []byte("<x/>"), XsltKey: "k1"}
	closeJobs(jobs, complete, true)

	outcome := <-out
	require.NotNil(t, outcome.err)
	assert.Equal(t, CodeXsltDataMissing, outcome.err.Code)
	assert.True(t, outcome.err.IsFatal())
}

// Property 4: a non-fatal stop-early must not drop jobs already buffered
// ahead of it. Queueing every job before the worker ever starts, then
// closing the channel as stopEarly would, pins the interleaving: the
// worker has no choice but to drain all three before it can observe the
// close.
func TestWorkerDrainsBufferedJobsOnNonFatalClose(t *testing.T) {
	token := NewCancelToken(context.Background())
	complete := make(chan bool, 1)
	engine := &xslt.FakeEngine{}
	w := newWorker(engine, archive.FormatZip, FilenameStartFromInvoiceOne, token, complete, testLog())

	jobs := make(chan ConversionJob, 3)
	out := make(chan workerOutcome, 1)

	jobs <- ConversionJob{Item: InvoiceItemRef{ObjectID: "obj-1"}, XMLData: []byte("<x/>"), XsltKey: "k1", XsltData: []byte("<xsl/>")}
	jobs <- ConversionJob{Item: InvoiceItemRef{ObjectID: "obj-2"}, XMLData: []byte("<x/>"), XsltKey: "k1"}
	jobs <- ConversionJob{Item: InvoiceItemRef{ObjectID: "obj-3"}, XMLData: []byte("<x/>"), XsltKey: "k1"}
	closeJobs(jobs, complete, false)

	go w.run(jobs, out)

	outcome := <-out
	require.Nil(t, outcome.err)
	require.NotNil(t, outcome.result)
	assert.Equal(t, uint64(3), outcome.result.DocsCount)
	assert.False(t, outcome.result.RequestFullyCompleted)
	assert.Equal(t, 1, engine.CompileCount)
}

// A token cancelled before any job arrives must surface ClientDisconnected
// rather than waiting on a close that will never come.
func TestWorkerReportsClientDisconnectWhenTokenCancelled(t *testing.T) {
	token := NewCancelToken(context.Background())
	token.Cancel(assertErr)
	complete := make(chan bool, 1)
	w := newWorker(&xslt.FakeEngine{}, archive.FormatZip, FilenameStartFromInvoiceOne, token, complete, testLog())

	jobs := make(chan ConversionJob)
	out := make(chan workerOutcome, 1)
	go w.run(jobs, out)

	outcome := <-out
	require.NotNil(t, outcome.err)
	assert.Equal(t, CodeClientDisconnected, outcome.err.Code)
	assert.True(t, outcome.err.IsFatal())
}

func TestClassifyDecompressErr(t *testing.T) {
	assert.Equal(t, CodeDecompressTimeout, classifyDecompressErr(context.DeadlineExceeded, "obj-1").Code)
	assert.Equal(t, CodeDecompressCancelled, classifyDecompressErr(context.Canceled, "obj-1").Code)
	assert.Equal(t, CodeDecompressError, classifyDecompressErr(errTransform{}, "obj-1").Code)
}

// S6 / Property 8: cancelling before the request starts surfaces
// ClientDisconnected with no body.
func TestConvertClientDisconnectBeforeStart(t *testing.T) {
	store := objectstore.NewFake()
	seedStore(t, store, "obj-1", "2025", ublXML(validKey(5)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewManager(store, testLog(), time.Second, 8)
	engine := &xslt.FakeEngine{}

	req := ConversionRequest{
		Year:         "2025",
		FilenameMode: FilenameStartFromInvoiceOne,
		Items:        []InvoiceItemRef{{ObjectID: "obj-1"}},
	}

	result, convErr := m.Convert(ctx, req, engine, archive.FormatZip)
	require.Nil(t, result)
	require.NotNil(t, convErr)
	assert.Equal(t, CodeClientDisconnected, convErr.Code)
	assert.True(t, convErr.IsFatal())
}

// Engine transform failures are non-fatal: the worker closes the archive
// and reports a partial result instead of propagating an Error.
func TestConvertEngineTransformFailureYieldsPartial(t *testing.T) {
	store := objectstore.NewFake()
	key := validKey(6)
	seedStore(t, store, "obj-1", "2025", ublXML(key))
	seedXslt(t, store, key, "2025")

	m := NewManager(store, testLog(), time.Second, 8)
	engine := &xslt.FakeEngine{FailTransform: assertErr}

	req := ConversionRequest{
		Year:         "2025",
		FilenameMode: FilenameStartFromInvoiceOne,
		Items:        []InvoiceItemRef{{ObjectID: "obj-1"}},
	}

	result, convErr := m.Convert(context.Background(), req, engine, archive.FormatZip)
	require.Nil(t, convErr)
	require.NotNil(t, result)
	assert.Equal(t, uint64(0), result.DocsCount)
	assert.False(t, result.RequestFullyCompleted)
}

var assertErr = errTransform{}

type errTransform struct{}

func (errTransform) Error() string { return "engine transform failed" }

// Admission: once the limit is reached, the next acquire fails fast.
func TestAdmissionRejectsBeyondLimit(t *testing.T) {
	a := NewAdmission(1)
	release, ok := a.TryAcquire()
	require.True(t, ok)
	defer release()

	_, ok = a.TryAcquire()
	assert.False(t, ok)
}

func TestFilenameModes(t *testing.T) {
	objID := "0123456789abcdef"
	invoiceNo := "INV-7"
	item := InvoiceItemRef{ObjectID: objID, SiraNo: sira(42), InvoiceNo: &invoiceNo}

	assert.Equal(t, "89abcdef", filenameFor(FilenameExtractFromObjID, item, 0))
	assert.Equal(t, "Fat_INV-7", filenameFor(FilenameIncludedInRequest, item, 0))
	assert.Equal(t, "Fat_42", filenameFor(FilenameUseSiraNo, item, 0))
	assert.Equal(t, "Fat_0", filenameFor(FilenameStartFromInvoiceOne, item, 0))

	bare := InvoiceItemRef{ObjectID: "short"}
	assert.Equal(t, "3", filenameFor(FilenameExtractFromObjID, bare, 3))
	assert.Equal(t, "Fat_3", filenameFor(FilenameIncludedInRequest, bare, 3))
	assert.Equal(t, "Fat_3", filenameFor(FilenameUseSiraNo, bare, 3))
}

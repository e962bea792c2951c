package objectstore

import "context"

// fakeKey identifies a record the same way Mongo's (filename, year) filter
// does.
type fakeKey struct {
	bucket, key, year string
}

// Fake is an in-memory Store double for unit tests that don't need a real
// Mongo instance.
type Fake struct {
	records map[fakeKey][]StoreRecord
}

// NewFake returns an empty Fake store.
func NewFake() *Fake {
	return &Fake{records: make(map[fakeKey][]StoreRecord)}
}

// Put seeds the fake with a record. Calling Put twice for the same
// (bucket, key, year) makes the record ambiguous, surfacing ErrMultiple on
// Get just like a duplicate GridFS upload would.
func (f *Fake) Put(bucket, key, year string, record StoreRecord) {
	k := fakeKey{bucket, key, year}
	f.records[k] = append(f.records[k], record)
}

func (f *Fake) Exists(_ context.Context, bucket, key, year string) (bool, error) {
	return len(f.records[fakeKey{bucket, key, year}]) > 0, nil
}

func (f *Fake) Get(_ context.Context, bucket, key, year string) (*StoreRecord, error) {
	recs := f.records[fakeKey{bucket, key, year}]
	switch len(recs) {
	case 0:
		return nil, ErrNotFound
	case 1:
		rec := recs[0]
		return &rec, nil
	default:
		return nil, ErrMultiple
	}
}

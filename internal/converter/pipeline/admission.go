package pipeline

import "golang.org/x/sync/semaphore"

// Admission bounds the number of concurrently running requests with a
// non-blocking semaphore: a request that cannot immediately acquire a
// permit fails fast with ServerBusy rather than queuing.
type Admission struct {
	sem *semaphore.Weighted
}

// NewAdmission returns an Admission gate allowing up to max concurrent
// requests.
func NewAdmission(max int64) *Admission {
	return &Admission{sem: semaphore.NewWeighted(max)}
}

// TryAcquire attempts to acquire one permit without blocking. Callers must
// call the returned release func exactly once iff ok is true.
func (a *Admission) TryAcquire() (release func(), ok bool) {
	if !a.sem.TryAcquire(1) {
		return nil, false
	}
	return func() { a.sem.Release(1) }, true
}

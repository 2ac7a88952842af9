package manager_test

import (
	"context"
	"sync"

	"github.com/papercomputeco/engram/pkg/memory/semantic"
)

type addedEntry struct {
	content    string
	importance float64
}

// fakeStore is an in-memory semantic.Store stub that records every call
// so tests can observe what the manager committed.
type fakeStore struct {
	mu sync.Mutex

	added        []addedEntry
	addErr       error
	queryResults []string
	queryErr     error

	evictCalls         int
	evictErr           error
	evictMaxAgeDays    float64
	evictMinImportance float64

	closed bool
}

func (f *fakeStore) Add(_ context.Context, content string, importance float64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return 0, f.addErr
	}
	f.added = append(f.added, addedEntry{content: content, importance: importance})
	return int64(len(f.added)), nil
}

func (f *fakeStore) Query(_ context.Context, _ string, _ int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.queryResults, nil
}

func (f *fakeStore) Delete(_ context.Context, _ int64) (bool, error) {
	return false, nil
}

func (f *fakeStore) SetImportance(_ context.Context, _ int64, _ float64) (bool, error) {
	return false, nil
}

func (f *fakeStore) EvictOutdated(_ context.Context, maxAgeDays float64, minImportance float64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evictCalls++
	f.evictMaxAgeDays = maxAgeDays
	f.evictMinImportance = minImportance
	if f.evictErr != nil {
		return 0, f.evictErr
	}
	return 0, nil
}

func (f *fakeStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeStore) entries() []addedEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]addedEntry(nil), f.added...)
}

func (f *fakeStore) evictions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.evictCalls
}

var _ semantic.Store = (*fakeStore)(nil)

package service

import (
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/room-allocation-api/internal/models"
)

type runEntry struct {
	run     models.AllocationRun
	records []models.AllocationRecord
	savedAt time.Time
}

// runStore keeps recent runs in memory so unpersisted and in-flight runs stay
// queryable. Entries expire after ttl and the oldest are evicted beyond limit.
type runStore struct {
	ttl   time.Duration
	limit int
	mu    sync.RWMutex
	items map[string]runEntry
}

func newRunStore(ttl time.Duration, limit int) *runStore {
	return &runStore{ttl: ttl, limit: limit, items: make(map[string]runEntry)}
}

func (s *runStore) Save(run models.AllocationRun, records []models.AllocationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[run.ID] = runEntry{run: run, records: records, savedAt: time.Now()}
	s.evictLocked()
}

func (s *runStore) Get(id string) (runEntry, bool) {
	s.mu.RLock()
	entry, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return runEntry{}, false
	}
	if time.Since(entry.savedAt) > s.ttl {
		s.Delete(id)
		return runEntry{}, false
	}
	return entry, true
}

func (s *runStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

// List returns live runs newest first.
func (s *runStore) List(semesterID string, status models.AllocationRunStatus) []models.AllocationRun {
	s.mu.RLock()
	defer s.mu.RUnlock()
	runs := make([]models.AllocationRun, 0, len(s.items))
	for _, entry := range s.items {
		if time.Since(entry.savedAt) > s.ttl {
			continue
		}
		if semesterID != "" && entry.run.SemesterID != semesterID {
			continue
		}
		if status != "" && entry.run.Status != status {
			continue
		}
		runs = append(runs, entry.run)
	}
	sortRunsNewestFirst(runs)
	return runs
}

func (s *runStore) evictLocked() {
	for id, entry := range s.items {
		if time.Since(entry.savedAt) > s.ttl {
			delete(s.items, id)
		}
	}
	if s.limit <= 0 || len(s.items) <= s.limit {
		return
	}
	type aged struct {
		id      string
		savedAt time.Time
	}
	order := make([]aged, 0, len(s.items))
	for id, entry := range s.items {
		order = append(order, aged{id: id, savedAt: entry.savedAt})
	}
	sort.Slice(order, func(i, j int) bool { return order[i].savedAt.Before(order[j].savedAt) })
	for _, item := range order[:len(order)-s.limit] {
		delete(s.items, item.id)
	}
}

func sortRunsNewestFirst(runs []models.AllocationRun) {
	sort.SliceStable(runs, func(i, j int) bool {
		if !runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].StartedAt.After(runs[j].StartedAt)
		}
		return runs[i].ID < runs[j].ID
	})
}

// semesterLocks serialises runs of the same semester.
type semesterLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newSemesterLocks() *semesterLocks {
	return &semesterLocks{held: make(map[string]struct{})}
}

// tryAcquire takes every lock or none.
func (l *semesterLocks) tryAcquire(semesters ...string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range semesters {
		if _, busy := l.held[id]; busy {
			return false
		}
	}
	for _, id := range semesters {
		l.held[id] = struct{}{}
	}
	return true
}

func (l *semesterLocks) release(semesters ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range semesters {
		delete(l.held, id)
	}
}

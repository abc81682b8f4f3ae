package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"clan-attendance-system/models"
)

// MemoryAttendanceStore is a map-backed AttendanceStore used to exercise
// the ledger and ranking engine without a database.
type MemoryAttendanceStore struct {
	mu      sync.RWMutex
	entries map[string]*models.AttendanceEntry // keyed by entry ID
}

func NewMemoryAttendanceStore() *MemoryAttendanceStore {
	return &MemoryAttendanceStore{entries: make(map[string]*models.AttendanceEntry)}
}

func (s *MemoryAttendanceStore) snapshot() []*models.AttendanceEntry {
	out := make([]*models.AttendanceEntry, 0, len(s.entries))
	for _, e := range s.entries {
		clone := *e
		out = append(out, &clone)
	}
	return out
}

func (s *MemoryAttendanceStore) GetBySlot(_ context.Context, nickname string, recordedAt time.Time) (*models.AttendanceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.Nickname == nickname && e.RecordedAt.Equal(recordedAt) {
			clone := *e
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *MemoryAttendanceStore) LatestByPlayer(_ context.Context, nickname string) (*models.AttendanceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.AttendanceEntry
	for _, e := range s.entries {
		if e.Nickname != nickname {
			continue
		}
		if latest == nil || e.RecordedAt.After(latest.RecordedAt) {
			latest = e
		}
	}
	if latest == nil {
		return nil, nil
	}
	clone := *latest
	return &clone, nil
}

func (s *MemoryAttendanceStore) LatestPerPlayer(_ context.Context) ([]*models.AttendanceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	latest := make(map[string]*models.AttendanceEntry)
	for _, e := range s.entries {
		cur, ok := latest[e.Nickname]
		if !ok || e.RecordedAt.After(cur.RecordedAt) {
			latest[e.Nickname] = e
		}
	}
	out := make([]*models.AttendanceEntry, 0, len(latest))
	for _, e := range latest {
		clone := *e
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nickname < out[j].Nickname })
	return out, nil
}

func (s *MemoryAttendanceStore) EntriesOn(_ context.Context, day time.Time) ([]*models.AttendanceEntry, error) {
	start, end := dayBounds(day)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.AttendanceEntry
	for _, e := range s.entries {
		if !e.RecordedAt.Before(start) && e.RecordedAt.Before(end) {
			clone := *e
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

func (s *MemoryAttendanceStore) EarliestOn(_ context.Context, nickname string, day time.Time) (*models.AttendanceEntry, error) {
	start, end := dayBounds(day)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var earliest *models.AttendanceEntry
	for _, e := range s.entries {
		if e.Nickname != nickname || e.RecordedAt.Before(start) || !e.RecordedAt.Before(end) {
			continue
		}
		if earliest == nil || e.RecordedAt.Before(earliest.RecordedAt) {
			earliest = e
		}
	}
	if earliest == nil {
		return nil, nil
	}
	clone := *earliest
	return &clone, nil
}

func (s *MemoryAttendanceStore) CountByPlayer(_ context.Context, nickname string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, e := range s.entries {
		if e.Nickname == nickname {
			count++
		}
	}
	return count, nil
}

func (s *MemoryAttendanceStore) MaxRecordedAt(_ context.Context) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var max *time.Time
	for _, e := range s.entries {
		if max == nil || e.RecordedAt.After(*max) {
			t := e.RecordedAt
			max = &t
		}
	}
	return max, nil
}

func (s *MemoryAttendanceStore) Save(_ context.Context, entry *models.AttendanceEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *entry
	s.entries[entry.ID] = &clone
	return nil
}

// All returns every stored entry; test helper.
func (s *MemoryAttendanceStore) All() []*models.AttendanceEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

// MemoryEventDateSource serves a fixed latest-active date (nil = none).
type MemoryEventDateSource struct {
	Date *time.Time
}

func (s *MemoryEventDateSource) LatestActiveDate(_ context.Context) (*time.Time, error) {
	return s.Date, nil
}

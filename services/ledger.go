package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"clan-attendance-system/models"
	"clan-attendance-system/storage"

	"github.com/google/uuid"
)

// SubmitInput carries one attendance submission into the ledger. Zero or
// negative points are accepted as-is; whether they make sense is a form
// concern, not a ledger one.
type SubmitInput struct {
	Nickname    string
	DisplayName string
	Points      int
	RecordedAt  time.Time
	AvatarURL   string // empty means "not supplied this time"
}

// AttendanceLedger owns the merge-or-create upsert rule over attendance
// entries. It takes the store as an explicit dependency so tests can swap
// in the in-memory implementation.
type AttendanceLedger struct {
	store storage.AttendanceStore
	log   *slog.Logger

	// Serializes read-modify-write per (nickname, timestamp) slot so two
	// concurrent submissions for the same slot cannot lose an increment.
	mu    sync.Mutex
	slots map[string]*sync.Mutex
}

func NewAttendanceLedger(store storage.AttendanceStore, log *slog.Logger) *AttendanceLedger {
	return &AttendanceLedger{
		store: store,
		log:   log,
		slots: make(map[string]*sync.Mutex),
	}
}

func (l *AttendanceLedger) slotLock(nickname string, at time.Time) *sync.Mutex {
	key := fmt.Sprintf("%s|%d", nickname, at.UnixNano())
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.slots[key]
	if !ok {
		m = &sync.Mutex{}
		l.slots[key] = m
	}
	return m
}

// Upsert merges the submission into an existing entry for the same
// (nickname, timestamp) slot, or creates a new entry seeded from the
// player's latest prior one.
func (l *AttendanceLedger) Upsert(ctx context.Context, in SubmitInput) (*models.AttendanceEntry, error) {
	lock := l.slotLock(in.Nickname, in.RecordedAt)
	lock.Lock()
	defer lock.Unlock()

	existing, err := l.store.GetBySlot(ctx, in.Nickname, in.RecordedAt)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return l.mergeExisting(ctx, existing, in)
	}
	return l.createNew(ctx, in)
}

// mergeExisting compounds the submitted points into both the slot total
// and the running total. Submitting twice for the same slot adds twice.
func (l *AttendanceLedger) mergeExisting(ctx context.Context, entry *models.AttendanceEntry, in SubmitInput) (*models.AttendanceEntry, error) {
	entry.PointsToday += in.Points
	entry.PointsCumulative += in.Points
	if in.AvatarURL != "" {
		entry.AvatarURL = in.AvatarURL
	}
	if in.DisplayName != "" {
		entry.DisplayName = in.DisplayName
	}
	if err := l.store.Save(ctx, entry); err != nil {
		return nil, err
	}
	l.log.Info("attendance merged",
		"nickname", entry.Nickname,
		"recorded_at", entry.RecordedAt,
		"points_added", in.Points,
		"points_today", entry.PointsToday,
		"points_cumulative", entry.PointsCumulative,
	)
	return entry, nil
}

// createNew seeds the running total, tier, avatar and display name from
// the player's latest prior entry. The inherited tier is provisional; the
// next ranking pass corrects it.
func (l *AttendanceLedger) createNew(ctx context.Context, in SubmitInput) (*models.AttendanceEntry, error) {
	entry := &models.AttendanceEntry{
		ID:          uuid.NewString(),
		Nickname:    in.Nickname,
		DisplayName: in.DisplayName,
		PointsToday: in.Points,
		RecordedAt:  in.RecordedAt,
		AvatarURL:   in.AvatarURL,
	}

	prior, err := l.store.LatestByPlayer(ctx, in.Nickname)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		entry.PointsCumulative = prior.PointsCumulative + in.Points
		entry.Tier = prior.Tier
		if entry.AvatarURL == "" {
			entry.AvatarURL = prior.AvatarURL
		}
		if entry.DisplayName == "" {
			entry.DisplayName = prior.DisplayName
		}
	} else {
		// First-ever entry for this player.
		entry.PointsCumulative = in.Points
		entry.Tier = models.TierC
	}

	if err := l.store.Save(ctx, entry); err != nil {
		return nil, err
	}
	l.log.Info("attendance created",
		"nickname", entry.Nickname,
		"recorded_at", entry.RecordedAt,
		"points_today", entry.PointsToday,
		"points_cumulative", entry.PointsCumulative,
		"tier", entry.Tier,
		"first_entry", prior == nil,
	)
	return entry, nil
}

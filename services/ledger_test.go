package services

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"clan-attendance-system/models"
	"clan-attendance-system/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger() (*AttendanceLedger, *storage.MemoryAttendanceStore) {
	store := storage.NewMemoryAttendanceStore()
	return NewAttendanceLedger(store, testLogger()), store
}

func TestUpsertFirstEntryBaseline(t *testing.T) {
	ledger, _ := newTestLedger()
	when := time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC)

	entry, err := ledger.Upsert(context.Background(), SubmitInput{
		Nickname:   "nova",
		Points:     12,
		RecordedAt: when,
	})
	require.NoError(t, err)

	assert.Equal(t, 12, entry.PointsToday)
	assert.Equal(t, 12, entry.PointsCumulative)
	assert.Equal(t, models.TierC, entry.Tier)
}

func TestUpsertSameSlotAccumulates(t *testing.T) {
	ledger, store := newTestLedger()
	ctx := context.Background()
	when := time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC)

	_, err := ledger.Upsert(ctx, SubmitInput{Nickname: "nova", Points: 5, RecordedAt: when})
	require.NoError(t, err)
	entry, err := ledger.Upsert(ctx, SubmitInput{Nickname: "nova", Points: 3, RecordedAt: when})
	require.NoError(t, err)

	assert.Equal(t, 8, entry.PointsToday)
	assert.Equal(t, 8, entry.PointsCumulative)
	assert.Len(t, store.All(), 1, "same slot must merge, not duplicate")
}

func TestUpsertNewSlotInheritsFromPrior(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()
	day1 := time.Date(2025, 6, 7, 10, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 7)

	_, err := ledger.Upsert(ctx, SubmitInput{
		Nickname:    "nova",
		DisplayName: "The Comet",
		Points:      50,
		RecordedAt:  day1,
		AvatarURL:   "/uploads/avatars/nova.png",
	})
	require.NoError(t, err)

	// Second week: no display name or avatar supplied, both inherit.
	entry, err := ledger.Upsert(ctx, SubmitInput{Nickname: "nova", Points: 20, RecordedAt: day2})
	require.NoError(t, err)

	assert.Equal(t, 20, entry.PointsToday)
	assert.Equal(t, 70, entry.PointsCumulative)
	assert.Equal(t, "The Comet", entry.DisplayName)
	assert.Equal(t, "/uploads/avatars/nova.png", entry.AvatarURL)
	assert.Equal(t, models.TierC, entry.Tier, "tier carries over until the next ranking pass")
}

func TestUpsertReplacesDisplayNameOnlyWhenProvided(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()
	when := time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC)

	_, err := ledger.Upsert(ctx, SubmitInput{Nickname: "nova", DisplayName: "The Comet", Points: 5, RecordedAt: when})
	require.NoError(t, err)

	entry, err := ledger.Upsert(ctx, SubmitInput{Nickname: "nova", Points: 1, RecordedAt: when})
	require.NoError(t, err)
	assert.Equal(t, "The Comet", entry.DisplayName)

	entry, err = ledger.Upsert(ctx, SubmitInput{Nickname: "nova", DisplayName: "Supernova", Points: 1, RecordedAt: when})
	require.NoError(t, err)
	assert.Equal(t, "Supernova", entry.DisplayName)
}

func TestUpsertZeroAndNegativePointsAccepted(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()
	when := time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC)

	entry, err := ledger.Upsert(ctx, SubmitInput{Nickname: "nova", Points: 0, RecordedAt: when})
	require.NoError(t, err)
	assert.Equal(t, 0, entry.PointsCumulative)

	// A penalty adjustment is business data, not an error.
	entry, err = ledger.Upsert(ctx, SubmitInput{Nickname: "nova", Points: -2, RecordedAt: when})
	require.NoError(t, err)
	assert.Equal(t, -2, entry.PointsToday)
	assert.Equal(t, -2, entry.PointsCumulative)
}

func TestCumulativeMonotonicityAcrossWeeks(t *testing.T) {
	ledger, store := newTestLedger()
	ctx := context.Background()
	start := time.Date(2025, 5, 3, 10, 0, 0, 0, time.UTC)

	for week, pts := range []int{10, 25, 0, 40, 5} {
		_, err := ledger.Upsert(ctx, SubmitInput{
			Nickname:   "nova",
			Points:     pts,
			RecordedAt: start.AddDate(0, 0, 7*week),
		})
		require.NoError(t, err)
	}

	entries := store.All()
	sort.Slice(entries, func(i, j int) bool { return entries[i].RecordedAt.Before(entries[j].RecordedAt) })
	for i := 1; i < len(entries); i++ {
		assert.GreaterOrEqual(t, entries[i].PointsCumulative, entries[i-1].PointsCumulative,
			"cumulative points must never decrease over time")
	}
	assert.Equal(t, 80, entries[len(entries)-1].PointsCumulative)
}

func TestSubmitThenRecomputeAssignsTiers(t *testing.T) {
	ledger, store := newTestLedger()
	engine := NewRankingEngine(store, &storage.MemoryEventDateSource{}, testLogger())
	ctx := context.Background()
	day := time.Date(2025, 6, 14, 9, 0, 0, 0, time.UTC)

	// Nine players ahead of nova: 100, 95, ..., 60.
	for i := 0; i < 9; i++ {
		_, err := ledger.Upsert(ctx, SubmitInput{
			Nickname:   fmt.Sprintf("vet-%d", i),
			Points:     100 - i*5,
			RecordedAt: day.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	entry, err := ledger.Upsert(ctx, SubmitInput{Nickname: "nova", Points: 50, RecordedAt: day.Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, models.TierC, entry.Tier, "new player starts in C")

	_, err = engine.Recompute(ctx)
	require.NoError(t, err)

	// Ten players total: nova is 10th, which is still tier A territory.
	latest, err := store.LatestByPlayer(ctx, "nova")
	require.NoError(t, err)
	assert.Equal(t, models.TierA, latest.Tier)

	// Fifteen more players above 50 points push nova down to position 25.
	for i := 0; i < 15; i++ {
		_, err := ledger.Upsert(ctx, SubmitInput{
			Nickname:   fmt.Sprintf("mid-%d", i),
			Points:     59,
			RecordedAt: day.Add(2*time.Hour + time.Duration(i)*time.Minute),
		})
		require.NoError(t, err)
	}
	_, err = engine.Recompute(ctx)
	require.NoError(t, err)

	latest, err = store.LatestByPlayer(ctx, "nova")
	require.NoError(t, err)
	assert.Equal(t, models.TierB, latest.Tier, "position 25 is the last tier B slot")

	// One more player ahead of nova makes position 26: back to C.
	_, err = ledger.Upsert(ctx, SubmitInput{Nickname: "late-arrival", Points: 55, RecordedAt: day.Add(3 * time.Hour)})
	require.NoError(t, err)
	_, err = engine.Recompute(ctx)
	require.NoError(t, err)

	latest, err = store.LatestByPlayer(ctx, "nova")
	require.NoError(t, err)
	assert.Equal(t, models.TierC, latest.Tier)
}

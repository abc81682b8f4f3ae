package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"clan-attendance-system/models"
	"clan-attendance-system/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rankedEntry(nickname string, cumulative int, tieBreak *time.Time) RankedEntry {
	return RankedEntry{
		Entry: &models.AttendanceEntry{
			ID:               uuid.NewString(),
			Nickname:         nickname,
			PointsCumulative: cumulative,
			Tier:             models.TierC,
		},
		TieBreak: tieBreak,
	}
}

func at(h, m int) *time.Time {
	t := time.Date(2025, 6, 14, h, m, 0, 0, time.UTC)
	return &t
}

func TestComputeStandingsEmpty(t *testing.T) {
	assert.Nil(t, ComputeStandings(nil))
	assert.Nil(t, ComputeStandings([]RankedEntry{}))
}

func TestComputeStandingsOrdersByPointsDesc(t *testing.T) {
	out := ComputeStandings([]RankedEntry{
		rankedEntry("low", 10, at(9, 0)),
		rankedEntry("high", 50, at(9, 5)),
		rankedEntry("mid", 30, at(9, 10)),
	})

	require.Len(t, out, 3)
	assert.Equal(t, "high", out[0].Entry.Nickname)
	assert.Equal(t, "mid", out[1].Entry.Nickname)
	assert.Equal(t, "low", out[2].Entry.Nickname)
	assert.Equal(t, 1, out[0].Rank)
	assert.Equal(t, 3, out[2].Rank)
}

func TestComputeStandingsTieBreakByArrival(t *testing.T) {
	early := rankedEntry("early", 40, at(8, 30))
	late := rankedEntry("late", 40, at(11, 0))

	// Insertion order must not matter: earlier arrival always ranks first.
	for _, input := range [][]RankedEntry{
		{early, late},
		{late, early},
	} {
		out := ComputeStandings(input)
		require.Len(t, out, 2)
		assert.Equal(t, "early", out[0].Entry.Nickname)
		assert.Equal(t, "late", out[1].Entry.Nickname)
	}
}

func TestComputeStandingsMissingTieBreakSortsLast(t *testing.T) {
	out := ComputeStandings([]RankedEntry{
		rankedEntry("absent", 40, nil),
		rankedEntry("present", 40, at(10, 0)),
	})

	require.Len(t, out, 2)
	assert.Equal(t, "present", out[0].Entry.Nickname)
	assert.Equal(t, "absent", out[1].Entry.Nickname)
}

func TestComputeStandingsTierThresholds(t *testing.T) {
	var entries []RankedEntry
	for i := 0; i < 30; i++ {
		entries = append(entries, rankedEntry(
			fmt.Sprintf("player-%02d", i),
			1000-i*10, // strictly decreasing
			at(9, i),
		))
	}

	out := ComputeStandings(entries)
	require.Len(t, out, 30)
	for _, row := range out {
		switch {
		case row.Rank <= 10:
			assert.Equal(t, models.TierA, row.Tier, "rank %d", row.Rank)
		case row.Rank <= 25:
			assert.Equal(t, models.TierB, row.Tier, "rank %d", row.Rank)
		default:
			assert.Equal(t, models.TierC, row.Tier, "rank %d", row.Rank)
		}
	}
}

func seedEngine(t *testing.T, store *storage.MemoryAttendanceStore) *RankingEngine {
	t.Helper()
	return NewRankingEngine(store, &storage.MemoryEventDateSource{}, testLogger())
}

func TestRecomputeIdempotent(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryAttendanceStore()
	ledger := NewAttendanceLedger(store, testLogger())
	engine := seedEngine(t, store)

	day := time.Date(2025, 6, 14, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		_, err := ledger.Upsert(ctx, SubmitInput{
			Nickname:   fmt.Sprintf("player-%02d", i),
			Points:     100 - i*5,
			RecordedAt: day.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	changed, err := engine.Recompute(ctx)
	require.NoError(t, err)
	assert.Greater(t, changed, 0, "first pass should promote the top players out of C")

	changed, err = engine.Recompute(ctx)
	require.NoError(t, err)
	assert.Zero(t, changed, "second pass with no new upserts must change nothing")
}

func TestRecomputeEmptyLedger(t *testing.T) {
	engine := seedEngine(t, storage.NewMemoryAttendanceStore())
	changed, err := engine.Recompute(context.Background())
	require.NoError(t, err)
	assert.Zero(t, changed)
}

func TestGlobalStandingsTieBreakWithoutActiveDate(t *testing.T) {
	// No active EventDate: the reference date falls back to the newest
	// ledger timestamp, so the arrival-time rule still applies.
	ctx := context.Background()
	store := storage.NewMemoryAttendanceStore()
	ledger := NewAttendanceLedger(store, testLogger())
	engine := seedEngine(t, store)

	day := time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)
	_, err := ledger.Upsert(ctx, SubmitInput{Nickname: "second", Points: 40, RecordedAt: day.Add(11 * time.Hour)})
	require.NoError(t, err)
	_, err = ledger.Upsert(ctx, SubmitInput{Nickname: "first", Points: 40, RecordedAt: day.Add(9 * time.Hour)})
	require.NoError(t, err)

	standings, err := engine.GlobalStandings(ctx)
	require.NoError(t, err)
	require.Len(t, standings, 2)
	assert.Equal(t, "first", standings[0].Entry.Nickname)
	assert.Equal(t, "second", standings[1].Entry.Nickname)
}

func TestEventStandingsKeepsEveryRow(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryAttendanceStore()
	ledger := NewAttendanceLedger(store, testLogger())
	engine := seedEngine(t, store)

	day := time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)
	otherDay := day.AddDate(0, 0, -7)

	_, err := ledger.Upsert(ctx, SubmitInput{Nickname: "a", Points: 30, RecordedAt: day.Add(9 * time.Hour)})
	require.NoError(t, err)
	_, err = ledger.Upsert(ctx, SubmitInput{Nickname: "b", Points: 20, RecordedAt: day.Add(10 * time.Hour)})
	require.NoError(t, err)
	_, err = ledger.Upsert(ctx, SubmitInput{Nickname: "c", Points: 99, RecordedAt: otherDay.Add(9 * time.Hour)})
	require.NoError(t, err)

	standings, err := engine.EventStandings(ctx, day)
	require.NoError(t, err)
	require.Len(t, standings, 2, "entries from other days must not leak in")
	assert.Equal(t, "a", standings[0].Entry.Nickname)
	assert.Equal(t, "b", standings[1].Entry.Nickname)
}

package services

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"clan-attendance-system/models"
	"clan-attendance-system/storage"
)

// Tier cutoffs by 1-based standing position.
const (
	tierACutoff = 10
	tierBCutoff = 25
)

// RankedEntry is one row of a standings computation: the underlying entry,
// the tie-break timestamp the caller selected for it, and the computed
// rank and tier.
type RankedEntry struct {
	Entry    *models.AttendanceEntry
	TieBreak *time.Time // nil sorts last within its point group
	Rank     int
	Tier     string
}

// ComputeStandings orders entries by cumulative points descending, breaking
// ties by ascending tie-break timestamp (first come, first ranked; entries
// without a timestamp go last in their group), then assigns tiers by
// position: 1-10 A, 11-25 B, 26+ C. Pure function; input order does not
// affect the result beyond equal-timestamp ties.
func ComputeStandings(entries []RankedEntry) []RankedEntry {
	if len(entries) == 0 {
		return nil
	}

	groups := make(map[int][]RankedEntry)
	for _, e := range entries {
		pts := e.Entry.PointsCumulative
		groups[pts] = append(groups[pts], e)
	}

	points := make([]int, 0, len(groups))
	for pts := range groups {
		points = append(points, pts)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(points)))

	out := make([]RankedEntry, 0, len(entries))
	for _, pts := range points {
		group := groups[pts]
		sort.SliceStable(group, func(i, j int) bool {
			a, b := group[i].TieBreak, group[j].TieBreak
			if a == nil {
				return false
			}
			if b == nil {
				return true
			}
			return a.Before(*b)
		})
		out = append(out, group...)
	}

	for i := range out {
		out[i].Rank = i + 1
		out[i].Tier = tierForPosition(i + 1)
	}
	return out
}

func tierForPosition(pos int) string {
	switch {
	case pos <= tierACutoff:
		return models.TierA
	case pos <= tierBCutoff:
		return models.TierB
	default:
		return models.TierC
	}
}

// RankingEngine computes standings over ledger snapshots and persists tier
// changes back onto the entries.
type RankingEngine struct {
	store storage.AttendanceStore
	dates storage.EventDateSource
	log   *slog.Logger
}

func NewRankingEngine(store storage.AttendanceStore, dates storage.EventDateSource, log *slog.Logger) *RankingEngine {
	return &RankingEngine{store: store, dates: dates, log: log}
}

// referenceDate picks the day whose arrival times break ties in the global
// standings: the most recent active event date, falling back to the newest
// timestamp in the ledger itself so the arrival-time rule always applies.
func (e *RankingEngine) referenceDate(ctx context.Context) (*time.Time, error) {
	ref, err := e.dates.LatestActiveDate(ctx)
	if err != nil {
		return nil, err
	}
	if ref != nil {
		return ref, nil
	}
	return e.store.MaxRecordedAt(ctx)
}

// GlobalStandings ranks each player's latest entry by cumulative points,
// tie-broken by that player's arrival time on the reference date.
func (e *RankingEngine) GlobalStandings(ctx context.Context) ([]RankedEntry, error) {
	latest, err := e.store.LatestPerPlayer(ctx)
	if err != nil {
		return nil, err
	}
	if len(latest) == 0 {
		return nil, nil
	}

	ref, err := e.referenceDate(ctx)
	if err != nil {
		return nil, err
	}

	ranked := make([]RankedEntry, 0, len(latest))
	for _, entry := range latest {
		var tieBreak *time.Time
		if ref != nil {
			arrival, err := e.store.EarliestOn(ctx, entry.Nickname, *ref)
			if err != nil {
				return nil, err
			}
			if arrival != nil {
				t := arrival.RecordedAt
				tieBreak = &t
			}
		}
		ranked = append(ranked, RankedEntry{Entry: entry, TieBreak: tieBreak})
	}
	return ComputeStandings(ranked), nil
}

// EventStandings ranks every entry recorded on the given day by its own
// timestamp. It does not collapse to one entry per player: the upsert rule
// already guarantees at most one row per player per slot.
func (e *RankingEngine) EventStandings(ctx context.Context, day time.Time) ([]RankedEntry, error) {
	entries, err := e.store.EntriesOn(ctx, day)
	if err != nil {
		return nil, err
	}
	ranked := make([]RankedEntry, 0, len(entries))
	for _, entry := range entries {
		t := entry.RecordedAt
		ranked = append(ranked, RankedEntry{Entry: entry, TieBreak: &t})
	}
	return ComputeStandings(ranked), nil
}

// Recompute walks the global standings and persists every tier that moved.
// Returns the number of changed entries; running it twice with no new
// upserts changes nothing the second time.
func (e *RankingEngine) Recompute(ctx context.Context) (int, error) {
	standings, err := e.GlobalStandings(ctx)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, row := range standings {
		if row.Entry.Tier == row.Tier {
			continue
		}
		prev := row.Entry.Tier
		row.Entry.Tier = row.Tier
		if err := e.store.Save(ctx, row.Entry); err != nil {
			return changed, err
		}
		changed++
		e.log.Info("tier updated",
			"nickname", row.Entry.Nickname,
			"from", prev,
			"to", row.Tier,
			"position", row.Rank,
		)
	}
	e.log.Debug("standings recomputed", "players", len(standings), "changed", changed)
	return changed, nil
}

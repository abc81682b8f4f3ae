package storage

import (
	"context"
	"errors"
	"time"

	"clan-attendance-system/models"

	"gorm.io/gorm"
)

// AttendanceStore is the record-store boundary the ledger and ranking
// engine depend on. The gorm implementation is used in production; the
// in-memory one substitutes for it in tests.
type AttendanceStore interface {
	// GetBySlot returns the entry for an exact (nickname, recordedAt) key,
	// or nil when absent.
	GetBySlot(ctx context.Context, nickname string, recordedAt time.Time) (*models.AttendanceEntry, error)
	// LatestByPlayer returns the player's most recent entry, or nil.
	LatestByPlayer(ctx context.Context, nickname string) (*models.AttendanceEntry, error)
	// LatestPerPlayer returns each distinct player's most recent entry.
	LatestPerPlayer(ctx context.Context) ([]*models.AttendanceEntry, error)
	// EntriesOn returns all entries whose timestamp falls on the given day.
	EntriesOn(ctx context.Context, day time.Time) ([]*models.AttendanceEntry, error)
	// EarliestOn returns the player's first entry on the given day, or nil.
	EarliestOn(ctx context.Context, nickname string, day time.Time) (*models.AttendanceEntry, error)
	// CountByPlayer returns how many entries the player has in total.
	CountByPlayer(ctx context.Context, nickname string) (int64, error)
	// MaxRecordedAt returns the newest timestamp in the whole ledger, or nil
	// when the ledger is empty.
	MaxRecordedAt(ctx context.Context) (*time.Time, error)
	// Save creates or updates a single entry.
	Save(ctx context.Context, entry *models.AttendanceEntry) error
}

// EventDateSource is the slice of the EventDate collaborator the ranking
// engine consumes: just the most recent active calendar date.
type EventDateSource interface {
	LatestActiveDate(ctx context.Context) (*time.Time, error)
}

// dayBounds returns [start, end) of the calendar day containing t, in t's
// location.
func dayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.Add(24 * time.Hour)
}

// GormAttendanceStore backs AttendanceStore with the attendance_entries
// table.
type GormAttendanceStore struct {
	DB *gorm.DB
}

func NewGormAttendanceStore(db *gorm.DB) *GormAttendanceStore {
	return &GormAttendanceStore{DB: db}
}

func (s *GormAttendanceStore) GetBySlot(ctx context.Context, nickname string, recordedAt time.Time) (*models.AttendanceEntry, error) {
	var entry models.AttendanceEntry
	err := s.DB.WithContext(ctx).
		Where("nickname = ? AND recorded_at = ?", nickname, recordedAt).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *GormAttendanceStore) LatestByPlayer(ctx context.Context, nickname string) (*models.AttendanceEntry, error) {
	var entry models.AttendanceEntry
	err := s.DB.WithContext(ctx).
		Where("nickname = ?", nickname).
		Order("recorded_at DESC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *GormAttendanceStore) LatestPerPlayer(ctx context.Context) ([]*models.AttendanceEntry, error) {
	var entries []*models.AttendanceEntry
	// DISTINCT ON picks the newest row per nickname in one pass.
	err := s.DB.WithContext(ctx).
		Raw(`SELECT DISTINCT ON (nickname) *
		     FROM attendance_entries
		     ORDER BY nickname, recorded_at DESC`).
		Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *GormAttendanceStore) EntriesOn(ctx context.Context, day time.Time) ([]*models.AttendanceEntry, error) {
	start, end := dayBounds(day)
	var entries []*models.AttendanceEntry
	err := s.DB.WithContext(ctx).
		Where("recorded_at >= ? AND recorded_at < ?", start, end).
		Order("recorded_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *GormAttendanceStore) EarliestOn(ctx context.Context, nickname string, day time.Time) (*models.AttendanceEntry, error) {
	start, end := dayBounds(day)
	var entry models.AttendanceEntry
	err := s.DB.WithContext(ctx).
		Where("nickname = ? AND recorded_at >= ? AND recorded_at < ?", nickname, start, end).
		Order("recorded_at ASC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *GormAttendanceStore) CountByPlayer(ctx context.Context, nickname string) (int64, error) {
	var count int64
	err := s.DB.WithContext(ctx).
		Model(&models.AttendanceEntry{}).
		Where("nickname = ?", nickname).
		Count(&count).Error
	return count, err
}

func (s *GormAttendanceStore) MaxRecordedAt(ctx context.Context) (*time.Time, error) {
	var row struct{ Max *time.Time }
	err := s.DB.WithContext(ctx).
		Model(&models.AttendanceEntry{}).
		Select("MAX(recorded_at) AS max").
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return row.Max, nil
}

func (s *GormAttendanceStore) Save(ctx context.Context, entry *models.AttendanceEntry) error {
	return s.DB.WithContext(ctx).Save(entry).Error
}

// GormEventDateSource reads the most recent active EventDate.
type GormEventDateSource struct {
	DB *gorm.DB
}

func NewGormEventDateSource(db *gorm.DB) *GormEventDateSource {
	return &GormEventDateSource{DB: db}
}

func (s *GormEventDateSource) LatestActiveDate(ctx context.Context) (*time.Time, error) {
	var ed models.EventDate
	err := s.DB.WithContext(ctx).
		Where("is_active = ?", true).
		Order("calendar_date DESC").
		First(&ed).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ed.CalendarDate, nil
}

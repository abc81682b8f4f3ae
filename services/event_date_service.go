package services

import (
	"errors"
	"log/slog"
	"time"

	"clan-attendance-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// EventDateService is the administrative CRUD over event calendar slots.
type EventDateService struct {
	DB  *gorm.DB
	Log *slog.Logger
}

func NewEventDateService(db *gorm.DB, log *slog.Logger) *EventDateService {
	return &EventDateService{DB: db, Log: log}
}

// CreateEventDate registers a calendar slot. A duplicate calendar date is
// rejected here, at the boundary, with a 409.
func (s *EventDateService) CreateEventDate(c *fiber.Ctx) error {
	type req struct {
		Label        string `json:"label"`
		CalendarDate string `json:"calendar_date"` // YYYY-MM-DD
		IsActive     *bool  `json:"is_active"`
	}
	var body req
	if err := c.BodyParser(&body); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if body.Label == "" || body.CalendarDate == "" {
		return c.Status(400).JSON(fiber.Map{"error": "label and calendar_date are required"})
	}
	day, err := time.Parse(dayLayout, body.CalendarDate)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid calendar_date (use YYYY-MM-DD)"})
	}

	var count int64
	if err := s.DB.Model(&models.EventDate{}).
		Where("calendar_date = ?", day).
		Count(&count).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to check calendar date"})
	}
	if count > 0 {
		return c.Status(409).JSON(fiber.Map{"error": "an event already exists for this date"})
	}

	active := true
	if body.IsActive != nil {
		active = *body.IsActive
	}
	ed := models.EventDate{
		ID:           uuid.NewString(),
		Label:        body.Label,
		Slug:         slug.Make(body.Label),
		CalendarDate: day,
		IsActive:     active,
	}
	if err := s.DB.Create(&ed).Error; err != nil {
		s.Log.Error("event date create failed", "date", body.CalendarDate, "err", err)
		return c.Status(500).JSON(fiber.Map{"error": "DB insert failed"})
	}
	return c.Status(201).JSON(ed)
}

// ListEventDates returns slots most recent first; ?active=true filters to
// active ones.
func (s *EventDateService) ListEventDates(c *fiber.Ctx) error {
	db := s.DB.Model(&models.EventDate{}).Order("calendar_date DESC")
	if c.Query("active") == "true" {
		db = db.Where("is_active = ?", true)
	}
	var dates []models.EventDate
	if err := db.Find(&dates).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch event dates"})
	}
	return c.JSON(dates)
}

func (s *EventDateService) GetEventDate(c *fiber.Ctx) error {
	var ed models.EventDate
	err := s.DB.First(&ed, "id = ?", c.Params("id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(404).JSON(fiber.Map{"error": "event date not found"})
	}
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch event date"})
	}
	return c.JSON(ed)
}

// UpdateEventDate edits label/active flag. The calendar date itself stays
// immutable once created; entries already reference it.
func (s *EventDateService) UpdateEventDate(c *fiber.Ctx) error {
	var ed models.EventDate
	err := s.DB.First(&ed, "id = ?", c.Params("id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(404).JSON(fiber.Map{"error": "event date not found"})
	}
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch event date"})
	}

	type req struct {
		Label    *string `json:"label"`
		IsActive *bool   `json:"is_active"`
	}
	var body req
	if err := c.BodyParser(&body); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if body.Label != nil && *body.Label != "" {
		ed.Label = *body.Label
		ed.Slug = slug.Make(*body.Label)
	}
	if body.IsActive != nil {
		ed.IsActive = *body.IsActive
	}
	if err := s.DB.Save(&ed).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB update failed"})
	}
	return c.JSON(ed)
}

func (s *EventDateService) DeleteEventDate(c *fiber.Ctx) error {
	res := s.DB.Delete(&models.EventDate{}, "id = ?", c.Params("id"))
	if res.Error != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB delete failed"})
	}
	if res.RowsAffected == 0 {
		return c.Status(404).JSON(fiber.Map{"error": "event date not found"})
	}
	return c.SendStatus(204)
}

// DeactivatePastDates flips is_active off for dates before today. Called
// by the maintenance scheduler.
func (s *EventDateService) DeactivatePastDates() (int64, error) {
	today := time.Now().Truncate(24 * time.Hour)
	res := s.DB.Model(&models.EventDate{}).
		Where("is_active = ? AND calendar_date < ?", true, today).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}

package services

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"clan-attendance-system/models"
	"clan-attendance-system/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const dayLayout = "2006-01-02"

// AttendanceService exposes the submission, standings and lookup endpoints
// over the ledger and ranking engine.
type AttendanceService struct {
	DB       *gorm.DB
	Ledger   *AttendanceLedger
	Engine   *RankingEngine
	Log      *slog.Logger
	validate *validator.Validate
}

func NewAttendanceService(db *gorm.DB, ledger *AttendanceLedger, engine *RankingEngine, log *slog.Logger) *AttendanceService {
	return &AttendanceService{
		DB:       db,
		Ledger:   ledger,
		Engine:   engine,
		Log:      log,
		validate: validator.New(),
	}
}

type submitRequest struct {
	Nickname    string `json:"nickname" form:"nickname" validate:"required,max=255"`
	DisplayName string `json:"display_name" form:"display_name" validate:"max=255"`
	Points      int    `json:"points" form:"points"`
	RecordedAt  string `json:"recorded_at" form:"recorded_at"` // RFC3339; empty = now
}

// StandingRow is one leaderboard line in API responses.
type StandingRow struct {
	Rank             int    `json:"rank"`
	Nickname         string `json:"nickname"`
	DisplayName      string `json:"display_name,omitempty"`
	Tier             string `json:"tier"`
	PointsToday      int    `json:"points_today"`
	PointsCumulative int    `json:"points_cumulative"`
	AvatarURL        string `json:"avatar_url,omitempty"`
}

func toStandingRows(standings []RankedEntry) []StandingRow {
	rows := make([]StandingRow, len(standings))
	for i, s := range standings {
		rows[i] = StandingRow{
			Rank:             s.Rank,
			Nickname:         s.Entry.Nickname,
			DisplayName:      s.Entry.DisplayName,
			Tier:             s.Tier,
			PointsToday:      s.Entry.PointsToday,
			PointsCumulative: s.Entry.PointsCumulative,
			AvatarURL:        s.Entry.AvatarURL,
		}
	}
	return rows
}

// SubmitAttendance accepts a submission (JSON or multipart with optional
// avatar), upserts it into the ledger and recomputes the global standings.
func (s *AttendanceService) SubmitAttendance(c *fiber.Ctx) error {
	var req submitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	// Multipart forms carry points as a string; BodyParser handles it, but
	// an explicit form value wins when both are present.
	if v := c.FormValue("points"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			req.Points = n
		} else {
			return c.Status(400).JSON(fiber.Map{"error": "points must be an integer"})
		}
	}
	if err := s.validate.Struct(req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "validation failed", "details": err.Error()})
	}

	recordedAt := time.Now()
	if req.RecordedAt != "" {
		t, err := time.Parse(time.RFC3339, req.RecordedAt)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid recorded_at (use RFC3339)"})
		}
		recordedAt = t
	}

	var avatarURL string
	if avatar, err := c.FormFile("avatar"); err == nil && avatar.Size > 0 {
		url, err := utils.UploadAvatar(avatar, req.Nickname)
		if err != nil {
			s.Log.Error("avatar upload failed", "nickname", req.Nickname, "err", err)
			return c.Status(500).JSON(fiber.Map{"error": "failed to store avatar"})
		}
		avatarURL = url
	}

	entry, err := s.Ledger.Upsert(c.Context(), SubmitInput{
		Nickname:    req.Nickname,
		DisplayName: req.DisplayName,
		Points:      req.Points,
		RecordedAt:  recordedAt,
		AvatarURL:   avatarURL,
	})
	if err != nil {
		s.Log.Error("upsert failed", "nickname", req.Nickname, "err", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to record attendance"})
	}

	changed, err := s.Engine.Recompute(c.Context())
	if err != nil {
		s.Log.Error("recompute failed", "err", err)
		return c.Status(500).JSON(fiber.Map{"error": "attendance recorded but ranking update failed"})
	}

	return c.Status(201).JSON(fiber.Map{
		"entry":         entry,
		"tiers_changed": changed,
	})
}

// GetStandings returns the leaderboard. With ?event_date=YYYY-MM-DD or
// ?event_id=<id> it scopes to that event day; otherwise it is the global
// snapshot. A malformed or unknown event filter yields an empty list, not
// an error.
func (s *AttendanceService) GetStandings(c *fiber.Ctx) error {
	dateParam := c.Query("event_date")
	idParam := c.Query("event_id")

	if dateParam == "" && idParam == "" {
		standings, err := s.Engine.GlobalStandings(c.Context())
		if err != nil {
			s.Log.Error("global standings failed", "err", err)
			return c.Status(500).JSON(fiber.Map{"error": "failed to compute standings"})
		}
		return c.JSON(fiber.Map{
			"scope":     "global",
			"standings": toStandingRows(standings),
		})
	}

	ref, ok := s.resolveEventRef(c, dateParam, idParam)
	if !ok {
		// Unparseable filter degrades to an empty result set.
		return c.JSON(fiber.Map{"scope": "event", "standings": []StandingRow{}})
	}

	standings, err := s.Engine.EventStandings(c.Context(), ref.Date)
	if err != nil {
		s.Log.Error("event standings failed", "date", ref.Date, "err", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to compute standings"})
	}
	return c.JSON(fiber.Map{
		"scope":     "event",
		"event":     ref,
		"standings": toStandingRows(standings),
	})
}

// resolveEventRef turns the query params into an EventRef: a known
// EventDate row when one matches, a synthesized reference otherwise.
func (s *AttendanceService) resolveEventRef(c *fiber.Ctx, dateParam, idParam string) (models.EventRef, bool) {
	if idParam != "" {
		var ed models.EventDate
		err := s.DB.WithContext(c.Context()).First(&ed, "id = ?", idParam).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.EventRef{}, false
		}
		if err != nil {
			s.Log.Error("event date lookup failed", "id", idParam, "err", err)
			return models.EventRef{}, false
		}
		return models.KnownRef(&ed), true
	}

	day, err := time.Parse(dayLayout, dateParam)
	if err != nil {
		return models.EventRef{}, false
	}
	var ed models.EventDate
	dbErr := s.DB.WithContext(c.Context()).
		Where("calendar_date = ?", day).
		First(&ed).Error
	if dbErr == nil {
		return models.KnownRef(&ed), true
	}
	return models.SynthesizedRef(day), true
}

// LookupPlayer returns the latest entry for a nickname, for client-side
// autofill. A missing player is a negative result, not a server error.
func (s *AttendanceService) LookupPlayer(c *fiber.Ctx) error {
	nickname := c.Params("nickname")
	if nickname == "" {
		return c.Status(400).JSON(fiber.Map{"error": "nickname is required"})
	}

	ctx := c.Context()
	latest, err := s.Ledger.store.LatestByPlayer(ctx, nickname)
	if err != nil {
		s.Log.Error("player lookup failed", "nickname", nickname, "err", err)
		return c.Status(500).JSON(fiber.Map{"error": "lookup failed"})
	}
	if latest == nil {
		return c.Status(404).JSON(fiber.Map{"found": false})
	}

	total, err := s.Ledger.store.CountByPlayer(ctx, nickname)
	if err != nil {
		s.Log.Error("player count failed", "nickname", nickname, "err", err)
		return c.Status(500).JSON(fiber.Map{"error": "lookup failed"})
	}

	day := time.Now()
	if v := c.Query("date"); v != "" {
		if parsed, err := time.Parse(dayLayout, v); err == nil {
			day = parsed
		}
	}
	onDay, err := s.Ledger.store.EarliestOn(ctx, nickname, day)
	if err != nil {
		s.Log.Error("player day lookup failed", "nickname", nickname, "err", err)
		return c.Status(500).JSON(fiber.Map{"error": "lookup failed"})
	}

	return c.JSON(fiber.Map{
		"found":             true,
		"nickname":          latest.Nickname,
		"display_name":      latest.DisplayName,
		"tier":              latest.Tier,
		"points_today":      latest.PointsToday,
		"points_cumulative": latest.PointsCumulative,
		"total_entries":     total,
		"has_entry_for_day": onDay != nil,
		"avatar_url":        latest.AvatarURL,
	})
}

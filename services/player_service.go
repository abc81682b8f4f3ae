package services

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"clan-attendance-system/models"
	"clan-attendance-system/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const playersPerPage = 12

// PlayerService manages the clan roster: registration, profiles, avatars
// and the autocomplete endpoint the submission form uses.
type PlayerService struct {
	DB       *gorm.DB
	Log      *slog.Logger
	validate *validator.Validate
}

func NewPlayerService(db *gorm.DB, log *slog.Logger) *PlayerService {
	return &PlayerService{DB: db, Log: log, validate: validator.New()}
}

type registerPlayerRequest struct {
	Nickname  string `json:"nickname" validate:"required,max=255"`
	Username  string `json:"username" validate:"required,max=255"`
	FirstName string `json:"first_name" validate:"max=255"`
	Age       int    `json:"age" validate:"omitempty,gte=0,lte=120"`
	Phone     string `json:"phone" validate:"max=15"`
	City      string `json:"city" validate:"max=100"`
	Country   string `json:"country" validate:"max=100"`
}

// RegisterPlayer creates a roster profile. Nicknames are unique.
func (s *PlayerService) RegisterPlayer(c *fiber.Ctx) error {
	var req registerPlayerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := s.validate.Struct(req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "validation failed", "details": err.Error()})
	}

	var count int64
	if err := s.DB.Model(&models.Player{}).
		Where("nickname = ?", req.Nickname).
		Count(&count).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to check nickname"})
	}
	if count > 0 {
		return c.Status(409).JSON(fiber.Map{"error": "nickname already taken"})
	}

	player := models.Player{
		ID:        uuid.NewString(),
		Nickname:  req.Nickname,
		Username:  req.Username,
		FirstName: req.FirstName,
		Age:       req.Age,
		Phone:     req.Phone,
		City:      req.City,
		Country:   req.Country,
		IsActive:  true,
	}
	if err := s.DB.Create(&player).Error; err != nil {
		s.Log.Error("player create failed", "nickname", req.Nickname, "err", err)
		return c.Status(500).JSON(fiber.Map{"error": "DB insert failed"})
	}
	s.Log.Info("player registered", "nickname", player.Nickname)
	return c.Status(201).JSON(player)
}

// ListPlayers returns the active roster with search, rank filter and
// pagination (12 per page).
func (s *PlayerService) ListPlayers(c *fiber.Ctx) error {
	db := s.DB.Model(&models.Player{}).Where("is_active = ?", true)

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		term := "%" + strings.ToLower(search) + "%"
		db = db.Where(
			"LOWER(nickname) LIKE ? OR LOWER(username) LIKE ? OR LOWER(first_name) LIKE ?",
			term, term, term,
		)
	}
	if rank := c.Query("rank"); rank != "" {
		db = db.Where("rank = ?", rank)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to count players"})
	}

	page := 1
	if n, err := strconv.Atoi(c.Query("page", "1")); err == nil && n > 0 {
		page = n
	}

	var players []models.Player
	err := db.Order("level DESC, exp_points DESC, nickname ASC").
		Limit(playersPerPage).
		Offset((page - 1) * playersPerPage).
		Find(&players).Error
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch players"})
	}

	var online int64
	s.DB.Model(&models.Player{}).
		Where("is_active = ? AND activity_status = ?", true, "ONLINE").
		Count(&online)

	return c.JSON(fiber.Map{
		"players":      players,
		"page":         page,
		"per_page":     playersPerPage,
		"total":        total,
		"total_online": online,
	})
}

func (s *PlayerService) GetPlayer(c *fiber.Ctx) error {
	var player models.Player
	err := s.DB.First(&player, "nickname = ?", c.Params("nickname")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(404).JSON(fiber.Map{"error": "no such player"})
	}
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch player"})
	}
	return c.JSON(player)
}

// UpdateProfile edits the mutable profile fields.
func (s *PlayerService) UpdateProfile(c *fiber.Ctx) error {
	var player models.Player
	err := s.DB.First(&player, "nickname = ?", c.Params("nickname")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(404).JSON(fiber.Map{"error": "no such player"})
	}
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch player"})
	}

	type req struct {
		FirstName *string `json:"first_name"`
		Age       *int    `json:"age"`
		Phone     *string `json:"phone"`
		City      *string `json:"city"`
		Country   *string `json:"country"`
	}
	var body req
	if err := c.BodyParser(&body); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if body.FirstName != nil {
		player.FirstName = *body.FirstName
	}
	if body.Age != nil {
		player.Age = *body.Age
	}
	if body.Phone != nil {
		player.Phone = *body.Phone
	}
	if body.City != nil {
		player.City = *body.City
	}
	if body.Country != nil {
		player.Country = *body.Country
	}
	if err := s.DB.Save(&player).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB update failed"})
	}
	return c.JSON(fiber.Map{"status": "success", "player": player})
}

// UploadAvatar replaces the player's avatar image.
func (s *PlayerService) UploadAvatar(c *fiber.Ctx) error {
	var player models.Player
	err := s.DB.First(&player, "nickname = ?", c.Params("nickname")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(404).JSON(fiber.Map{"error": "no such player"})
	}
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch player"})
	}

	avatar, err := c.FormFile("avatar")
	if err != nil || avatar.Size == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "no valid image provided"})
	}
	url, err := utils.UploadAvatar(avatar, player.Nickname)
	if err != nil {
		s.Log.Error("avatar upload failed", "nickname", player.Nickname, "err", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to store avatar"})
	}
	player.AvatarURL = url
	if err := s.DB.Save(&player).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB update failed"})
	}
	return c.JSON(fiber.Map{"avatar_url": url})
}

// DeletePlayer removes a roster profile. Attendance entries stay; the
// ledger never deletes.
func (s *PlayerService) DeletePlayer(c *fiber.Ctx) error {
	res := s.DB.Delete(&models.Player{}, "nickname = ?", c.Params("nickname"))
	if res.Error != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB delete failed"})
	}
	if res.RowsAffected == 0 {
		return c.Status(404).JSON(fiber.Map{"error": "no such player"})
	}
	s.Log.Info("player deleted", "nickname", c.Params("nickname"))
	return c.SendStatus(204)
}

// AutocompleteNicknames powers the submission form's typeahead. Terms
// shorter than 2 characters return an empty list.
func (s *PlayerService) AutocompleteNicknames(c *fiber.Ctx) error {
	term := strings.TrimSpace(c.Query("term"))
	if len(term) < 2 {
		return c.JSON([]fiber.Map{})
	}

	like := "%" + strings.ToLower(term) + "%"
	var players []models.Player
	err := s.DB.
		Where("LOWER(nickname) LIKE ? OR LOWER(username) LIKE ?", like, like).
		Limit(10).
		Find(&players).Error
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "search failed"})
	}

	results := make([]fiber.Map, 0, len(players))
	for _, p := range players {
		display := p.Nickname
		if display == "" {
			display = p.Username
		}
		results = append(results, fiber.Map{
			"id":       p.ID,
			"label":    display,
			"value":    display,
			"username": p.Username,
		})
	}
	return c.JSON(results)
}

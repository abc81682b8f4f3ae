package services

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"clan-attendance-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HelpdeskService covers the service-request / ticket / SLA subsystem.
// Plain CRUD plus the state transitions between request and ticket.
type HelpdeskService struct {
	DB  *gorm.DB
	Log *slog.Logger
}

func NewHelpdeskService(db *gorm.DB, log *slog.Logger) *HelpdeskService {
	return &HelpdeskService{DB: db, Log: log}
}

func (s *HelpdeskService) CreateUser(c *fiber.Ctx) error {
	var user models.HelpdeskUser
	if err := c.BodyParser(&user); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if user.Name == "" || user.DNI == "" || user.Email == "" {
		return c.Status(400).JSON(fiber.Map{"error": "name, dni and email are required"})
	}
	user.ID = uuid.NewString()
	if user.Status == "" {
		user.Status = "active"
	}
	if err := s.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(409).JSON(fiber.Map{"error": "dni or email already registered"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB insert failed"})
	}
	return c.Status(201).JSON(user)
}

func (s *HelpdeskService) ListUsers(c *fiber.Ctx) error {
	var users []models.HelpdeskUser
	db := s.DB.Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		db = db.Where("status = ?", status)
	}
	if err := db.Find(&users).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch users"})
	}
	return c.JSON(users)
}

// CreateRequest files a new service request in draft state. Codes are
// unique; a collision is a 409 at this boundary.
func (s *HelpdeskService) CreateRequest(c *fiber.Ctx) error {
	var req models.ServiceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.UserID == "" || req.Code == "" || req.Deadline.IsZero() {
		return c.Status(400).JSON(fiber.Map{"error": "user_id, code and deadline are required"})
	}

	var count int64
	if err := s.DB.Model(&models.ServiceRequest{}).
		Where("code = ?", req.Code).
		Count(&count).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to check request code"})
	}
	if count > 0 {
		return c.Status(409).JSON(fiber.Map{"error": "request code already exists"})
	}

	req.ID = uuid.NewString()
	req.Status = "draft"
	if req.Urgency == "" {
		req.Urgency = "medium"
	}
	if err := s.DB.Create(&req).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB insert failed"})
	}
	return c.Status(201).JSON(req)
}

func (s *HelpdeskService) ListRequests(c *fiber.Ctx) error {
	var requests []models.ServiceRequest
	db := s.DB.Preload("User").Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		db = db.Where("status = ?", status)
	}
	if urgency := c.Query("urgency"); urgency != "" {
		db = db.Where("urgency = ?", urgency)
	}
	if err := db.Find(&requests).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch requests"})
	}
	return c.JSON(requests)
}

// ValidateRequest moves a draft request to validated and opens its ticket
// in one transaction.
func (s *HelpdeskService) ValidateRequest(c *fiber.Ctx) error {
	type req struct {
		Priority   string `json:"priority"`
		Complexity string `json:"complexity"`
	}
	var body req
	if err := c.BodyParser(&body); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}

	var sr models.ServiceRequest
	err := s.DB.First(&sr, "id = ?", c.Params("id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(404).JSON(fiber.Map{"error": "request not found"})
	}
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch request"})
	}
	if sr.Status != "draft" {
		return c.Status(409).JSON(fiber.Map{"error": fmt.Sprintf("request is %s, only drafts can be validated", sr.Status)})
	}

	ticket := models.Ticket{
		ID:         uuid.NewString(),
		RequestID:  sr.ID,
		Code:       "TCK-" + sr.Code,
		Priority:   body.Priority,
		Complexity: body.Complexity,
		Status:     "pending",
	}
	if ticket.Priority == "" {
		ticket.Priority = sr.Urgency
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		sr.Status = "validated"
		if err := tx.Save(&sr).Error; err != nil {
			return err
		}
		if err := tx.Create(&ticket).Error; err != nil {
			return err
		}
		return tx.Create(&models.AuditRecord{
			ID:       uuid.NewString(),
			TicketID: ticket.ID,
			Action:   "ticket_opened",
			Result:   "approved",
		}).Error
	})
	if err != nil {
		s.Log.Error("request validation failed", "request", sr.Code, "err", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to validate request"})
	}
	s.Log.Info("request validated", "request", sr.Code, "ticket", ticket.Code)
	return c.Status(201).JSON(ticket)
}

func (s *HelpdeskService) ListTickets(c *fiber.Ctx) error {
	var tickets []models.Ticket
	db := s.DB.Preload("Request").Preload("Assignee").Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		db = db.Where("status = ?", status)
	}
	if priority := c.Query("priority"); priority != "" {
		db = db.Where("priority = ?", priority)
	}
	if err := db.Find(&tickets).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch tickets"})
	}
	return c.JSON(tickets)
}

// AssignTicket sets the assignee and queues a system notification for the
// dispatch worker.
func (s *HelpdeskService) AssignTicket(c *fiber.Ctx) error {
	type req struct {
		AssigneeID     string  `json:"assignee_id"`
		EstimatedHours float64 `json:"estimated_hours"`
	}
	var body req
	if err := c.BodyParser(&body); err != nil || body.AssigneeID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "assignee_id is required"})
	}

	var ticket models.Ticket
	err := s.DB.First(&ticket, "id = ?", c.Params("id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(404).JSON(fiber.Map{"error": "ticket not found"})
	}
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch ticket"})
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		ticket.AssigneeID = &body.AssigneeID
		ticket.Status = "assigned"
		if body.EstimatedHours > 0 {
			ticket.EstimatedHours = body.EstimatedHours
		}
		if err := tx.Save(&ticket).Error; err != nil {
			return err
		}
		return tx.Create(&models.Notification{
			ID:      uuid.NewString(),
			UserID:  body.AssigneeID,
			Channel: "system",
			Content: fmt.Sprintf("Ticket %s assigned to you", ticket.Code),
			Status:  "pending",
		}).Error
	})
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to assign ticket"})
	}
	return c.JSON(ticket)
}

// ResolveTicket records the resolution and closes out the ticket state.
func (s *HelpdeskService) ResolveTicket(c *fiber.Ctx) error {
	var res models.Resolution
	if err := c.BodyParser(&res); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if res.Description == "" || res.TestResult == "" {
		return c.Status(400).JSON(fiber.Map{"error": "description and test_result are required"})
	}

	var ticket models.Ticket
	err := s.DB.First(&ticket, "id = ?", c.Params("id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(404).JSON(fiber.Map{"error": "ticket not found"})
	}
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch ticket"})
	}
	if ticket.Status == "resolved" || ticket.Status == "closed" {
		return c.Status(409).JSON(fiber.Map{"error": "ticket already resolved"})
	}

	res.ID = uuid.NewString()
	res.TicketID = ticket.ID
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&res).Error; err != nil {
			return err
		}
		ticket.Status = "resolved"
		if err := tx.Save(&ticket).Error; err != nil {
			return err
		}
		return tx.Create(&models.AuditRecord{
			ID:       uuid.NewString(),
			TicketID: ticket.ID,
			Action:   "ticket_resolved",
			Result:   "approved",
			Notes:    "test result: " + res.TestResult,
		}).Error
	})
	if err != nil {
		s.Log.Error("ticket resolution failed", "ticket", ticket.Code, "err", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to resolve ticket"})
	}
	return c.Status(201).JSON(res)
}

func (s *HelpdeskService) CreateSLAPolicy(c *fiber.Ctx) error {
	var policy models.SLAPolicy
	if err := c.BodyParser(&policy); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if policy.ServiceType == "" || policy.ResolutionHours <= 0 {
		return c.Status(400).JSON(fiber.Map{"error": "service_type and a positive resolution_hours are required"})
	}
	policy.ID = uuid.NewString()
	if err := s.DB.Create(&policy).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB insert failed"})
	}
	return c.Status(201).JSON(policy)
}

// AssignSLA binds a policy to a ticket. The pair is unique.
func (s *HelpdeskService) AssignSLA(c *fiber.Ctx) error {
	type req struct {
		PolicyID string `json:"policy_id"`
	}
	var body req
	if err := c.BodyParser(&body); err != nil || body.PolicyID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "policy_id is required"})
	}
	ticketID := c.Params("id")

	var count int64
	if err := s.DB.Model(&models.SLAAssignment{}).
		Where("ticket_id = ? AND policy_id = ?", ticketID, body.PolicyID).
		Count(&count).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to check SLA assignment"})
	}
	if count > 0 {
		return c.Status(409).JSON(fiber.Map{"error": "policy already assigned to this ticket"})
	}

	assignment := models.SLAAssignment{
		ID:         uuid.NewString(),
		TicketID:   ticketID,
		PolicyID:   body.PolicyID,
		Compliance: "met",
	}
	if err := s.DB.Create(&assignment).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB insert failed"})
	}
	return c.Status(201).JSON(assignment)
}

func (s *HelpdeskService) ListAuditTrail(c *fiber.Ctx) error {
	var records []models.AuditRecord
	db := s.DB.Order("created_at DESC")
	if ticketID := c.Query("ticket_id"); ticketID != "" {
		db = db.Where("ticket_id = ?", ticketID)
	}
	if since := c.Query("since"); since != "" {
		if t, err := time.Parse(dayLayout, since); err == nil {
			db = db.Where("created_at >= ?", t)
		}
	}
	if err := db.Find(&records).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch audit trail"})
	}
	return c.JSON(records)
}

package workers

import (
	"context"
	"log"
	"time"

	"clan-attendance-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SLAMonitor periodically checks open tickets against their assigned SLA
// policies and marks breached assignments.
type SLAMonitor struct {
	DB *gorm.DB
}

func NewSLAMonitor(db *gorm.DB) *SLAMonitor {
	return &SLAMonitor{DB: db}
}

// checkOnce marks every still-open ticket whose SLA resolution window has
// elapsed. Returns how many assignments were flipped to breached.
func (m *SLAMonitor) checkOnce(ctx context.Context) (int, error) {
	var assignments []models.SLAAssignment
	err := m.DB.WithContext(ctx).
		Preload("Ticket").
		Preload("Policy").
		Where("compliance = ?", "met").
		Find(&assignments).Error
	if err != nil {
		return 0, err
	}

	breached := 0
	now := time.Now()
	for _, a := range assignments {
		if a.Ticket == nil || a.Policy == nil {
			continue
		}
		if a.Ticket.Status == "resolved" || a.Ticket.Status == "closed" {
			continue
		}
		deadline := a.Ticket.CreatedAt.Add(time.Duration(a.Policy.ResolutionHours) * time.Hour)
		if now.Before(deadline) {
			continue
		}

		err := m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.SLAAssignment{}).
				Where("id = ?", a.ID).
				Update("compliance", "breached").Error; err != nil {
				return err
			}
			return tx.Create(&models.AuditRecord{
				ID:       uuid.NewString(),
				TicketID: a.TicketID,
				Action:   "sla_breached",
				Result:   "observed",
				Notes:    "resolution window of " + a.Policy.ServiceType + " elapsed",
			}).Error
		})
		if err != nil {
			log.Printf("❌ Failed to mark SLA breach for ticket %s: %v", a.TicketID, err)
			continue
		}
		breached++
	}
	return breached, nil
}

// PollSLABreaches runs the breach check on a fixed interval until the
// context is cancelled.
func PollSLABreaches(ctx context.Context, monitor *SLAMonitor, pollInterval time.Duration) {
	log.Println("Starting SLA breach monitor...")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("SLA breach monitor stopped.")
			return
		case <-ticker.C:
			breached, err := monitor.checkOnce(ctx)
			if err != nil {
				log.Printf("❌ SLA check failed: %v", err)
				continue
			}
			if breached > 0 {
				log.Printf("⚠️ Marked %d SLA assignment(s) as breached", breached)
			}
		}
	}
}

package models

import "time"

// Helpdesk subsystem: service requests raised by staff, the tickets that
// track them, and the SLA bookkeeping around both.

// HelpdeskUser is a staff member who can raise service requests and be
// assigned tickets. Distinct from Player; this is the internal org side.
type HelpdeskUser struct {
	ID       string `json:"id" gorm:"primaryKey"`
	Name     string `json:"name" gorm:"not null"`
	DNI      string `json:"dni" gorm:"uniqueIndex;size:8;not null"`
	Position string `json:"position"`
	Area     string `json:"area"`
	Email    string `json:"email" gorm:"uniqueIndex;not null"`
	Phone    string `json:"phone,omitempty"`
	Status   string `json:"status" gorm:"type:varchar(10);default:'active'"` // active, inactive, suspended

	Timestamps
}

// ServiceRequest (SAR) is the formal request that precedes a ticket.
type ServiceRequest struct {
	ID               string    `json:"id" gorm:"primaryKey"`
	UserID           string    `json:"user_id" gorm:"not null;index"`
	Code             string    `json:"code" gorm:"uniqueIndex;size:20;not null"`
	Deadline         time.Time `json:"deadline" gorm:"not null"`
	Kind             string    `json:"kind" gorm:"type:varchar(10);index"`                      // hardware, software, network, other
	Urgency          string    `json:"urgency" gorm:"type:varchar(10);default:'medium';index"` // critical, high, medium, low
	Description      string    `json:"description" gorm:"type:text"`
	Status           string    `json:"status" gorm:"type:varchar(10);default:'draft';index"` // draft, validated, rejected, closed
	DigitalSignature string    `json:"digital_signature"`

	User *HelpdeskUser `json:"user,omitempty" gorm:"foreignKey:UserID"`

	Timestamps
}

// Ticket tracks the resolution of one validated service request.
type Ticket struct {
	ID             string  `json:"id" gorm:"primaryKey"`
	RequestID      string  `json:"request_id" gorm:"uniqueIndex;not null"`
	AssigneeID     *string `json:"assignee_id,omitempty" gorm:"index"`
	Code           string  `json:"code" gorm:"uniqueIndex;size:20;not null"`
	Priority       string  `json:"priority" gorm:"type:varchar(10);index"`   // critical, high, medium, low
	Complexity     string  `json:"complexity" gorm:"type:varchar(10)"`       // low, medium, high
	EstimatedHours float64 `json:"estimated_hours,omitempty"`
	Status         string  `json:"status" gorm:"type:varchar(12);default:'pending';index"` // pending, assigned, in_progress, resolved, closed

	Request  *ServiceRequest `json:"request,omitempty" gorm:"foreignKey:RequestID"`
	Assignee *HelpdeskUser   `json:"assignee,omitempty" gorm:"foreignKey:AssigneeID"`

	Timestamps
}

// Resolution records how a ticket was closed out.
type Resolution struct {
	ID          string `json:"id" gorm:"primaryKey"`
	TicketID    string `json:"ticket_id" gorm:"uniqueIndex;not null"`
	Description string `json:"description" gorm:"type:text"`
	Version     string `json:"version" gorm:"size:20"`
	Repository  string `json:"repository,omitempty"`
	TestResult  string `json:"test_result" gorm:"type:varchar(10)"` // success, failed, partial

	Timestamps
}

// SLAPolicy defines response/resolution windows per service type.
type SLAPolicy struct {
	ID              string `json:"id" gorm:"primaryKey"`
	ServiceType     string `json:"service_type" gorm:"not null"`
	ResponseMinutes int    `json:"response_minutes"`
	ResolutionHours int    `json:"resolution_hours"`
	Metrics         string `json:"metrics,omitempty" gorm:"type:text"`
	Description     string `json:"description,omitempty"`

	Timestamps
}

// SLAAssignment binds a policy to a ticket; at most one row per pair.
// Compliance is maintained by the SLA monitor worker.
type SLAAssignment struct {
	ID         string `json:"id" gorm:"primaryKey"`
	TicketID   string `json:"ticket_id" gorm:"not null;index:idx_ticket_policy,unique"`
	PolicyID   string `json:"policy_id" gorm:"not null;index:idx_ticket_policy,unique"`
	Compliance string `json:"compliance" gorm:"type:varchar(10);default:'met'"` // met, breached, partial

	Ticket *Ticket    `json:"ticket,omitempty" gorm:"foreignKey:TicketID"`
	Policy *SLAPolicy `json:"policy,omitempty" gorm:"foreignKey:PolicyID"`

	Timestamps
}

// AuditRecord is an append-only trail of ticket actions.
type AuditRecord struct {
	ID       string `json:"id" gorm:"primaryKey"`
	TicketID string `json:"ticket_id" gorm:"not null;index"`
	Action   string `json:"action" gorm:"size:50"`
	Result   string `json:"result" gorm:"type:varchar(10)"` // approved, observed, rejected
	Notes    string `json:"notes,omitempty" gorm:"type:text"`

	Timestamps
}

// Notification is queued by services and delivered by the dispatch worker.
type Notification struct {
	ID      string     `json:"id" gorm:"primaryKey"`
	UserID  string     `json:"user_id" gorm:"not null;index"`
	Channel string     `json:"channel" gorm:"type:varchar(10)"`                        // email, push, sms, system
	Content string     `json:"content" gorm:"type:text"`
	Status  string     `json:"status" gorm:"type:varchar(10);default:'pending';index"` // pending, sent, failed, read
	SentAt  *time.Time `json:"sent_at,omitempty"`

	Timestamps
}

package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type TaskStatus string

const (
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusOnHold     TaskStatus = "ON_HOLD"
	StatusDone       TaskStatus = "DONE"
)

// ParseStatus accepts exactly the three enumerated values.
func ParseStatus(s string) (TaskStatus, bool) {
	switch TaskStatus(strings.TrimSpace(s)) {
	case StatusInProgress:
		return StatusInProgress, true
	case StatusOnHold:
		return StatusOnHold, true
	case StatusDone:
		return StatusDone, true
	}
	return "", false
}

type Task struct {
	ID             string         `gorm:"size:11;primaryKey" json:"task_id"`
	ProjectID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"project_id"`
	ProjectPhaseID uuid.UUID      `gorm:"type:uuid;not null;index" json:"project_phase_id"`
	Name           string         `gorm:"column:task_name;size:30;not null" json:"task_name"`
	Description    string         `gorm:"size:500;not null" json:"description"`
	StartDate      datatypes.Date `gorm:"not null" json:"start_date"`
	Deadline       datatypes.Date `gorm:"not null" json:"deadline"`
	Status         TaskStatus     `gorm:"size:15;not null;default:IN_PROGRESS;index" json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`

	// Relationships
	Project      Project      `gorm:"foreignKey:ProjectID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	ProjectPhase ProjectPhase `gorm:"foreignKey:ProjectPhaseID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

type TaskAssignment struct {
	BaseModel

	TaskID string    `gorm:"size:11;not null;uniqueIndex:idx_task_user" json:"task_id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_task_user;index" json:"user_id"`

	// Relationships
	Task Task `gorm:"foreignKey:TaskID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	User User `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

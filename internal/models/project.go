package models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ProjectStatus is the lifecycle state of a whole project.
type ProjectStatus string

const (
	ProjectInProgress ProjectStatus = "IN_PROGRESS"
	ProjectOnHold     ProjectStatus = "ON_HOLD"
	ProjectDone       ProjectStatus = "DONE"
)

type Project struct {
	BaseModel

	OrganizationID uuid.UUID      `gorm:"type:uuid;not null;index" json:"organization_id"`
	TemplateID     *uuid.UUID     `gorm:"type:uuid;index" json:"template_id,omitempty"`
	Name           string         `gorm:"column:project_name;size:60;not null" json:"project_name"`
	Slug           string         `gorm:"column:project_name_slug;uniqueIndex;not null" json:"project_name_slug"`
	Description    string         `gorm:"size:500" json:"description"`
	Deadline       datatypes.Date `gorm:"not null" json:"deadline"`
	Status         ProjectStatus  `gorm:"size:15;not null;default:IN_PROGRESS" json:"status"`

	// Relationships
	Organization Organization `gorm:"foreignKey:OrganizationID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Template     *Template    `gorm:"foreignKey:TemplateID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

type ProjectPhase struct {
	BaseModel

	ProjectID uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	Name      string    `gorm:"column:phase_name;size:50;not null" json:"phase_name"`

	// Relationships
	Project Project `gorm:"foreignKey:ProjectID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

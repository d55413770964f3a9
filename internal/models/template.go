package models

import "github.com/google/uuid"

// DefaultIndustryName names the industry that receives templates orphaned by an
// industry deletion.
const DefaultIndustryName = "Other"

type Industry struct {
	BaseModel

	Name string `gorm:"column:industry_name;size:50;uniqueIndex;not null" json:"industry_name"`
}

type Template struct {
	BaseModel

	IndustryID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"industry_id"`
	Name        string     `gorm:"column:template_name;size:50;not null" json:"template_name"`
	CreatedByID *uuid.UUID `gorm:"type:uuid" json:"created_by_id,omitempty"`

	// Relationships
	Industry Industry        `gorm:"foreignKey:IndustryID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"industry"`
	Phases   []TemplatePhase `gorm:"foreignKey:TemplateID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"phases"`
}

type TemplatePhase struct {
	BaseModel

	TemplateID uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	Name       string    `gorm:"column:phase_name;size:50;not null" json:"phase_name"`
}

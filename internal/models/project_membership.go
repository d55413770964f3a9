package models

import "github.com/google/uuid"

type ProjectRole string

const (
	ProjectRoleManager ProjectRole = "Manager"
	ProjectRoleMember  ProjectRole = "Member"
)

type ProjectMembership struct {
	BaseModel

	UserID    uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_user_project" json:"user_id"`
	ProjectID uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_user_project;index" json:"project_id"`
	Role      ProjectRole `gorm:"size:10;not null;default:Member" json:"role"`

	// Relationships
	User    User    `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Project Project `gorm:"foreignKey:ProjectID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// GetRole is safe on a nil membership, which holds no role.
func (m *ProjectMembership) GetRole() ProjectRole {
	if m == nil {
		return ""
	}
	return m.Role
}

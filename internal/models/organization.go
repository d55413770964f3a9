package models

import "github.com/google/uuid"

type OrgRole string

const (
	OrgRoleAdmin  OrgRole = "Admin"
	OrgRoleMember OrgRole = "Member"
)

type Organization struct {
	BaseModel

	Name         string `gorm:"column:organization_name;size:50;uniqueIndex;not null" json:"organization_name"`
	Slug         string `gorm:"column:organization_name_slug;uniqueIndex;not null" json:"organization_name_slug"`
	PasswordHash string `gorm:"column:organization_password;not null" json:"-"`
}

type OrganizationMembership struct {
	BaseModel

	OrganizationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_org_user" json:"organization_id"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_org_user;index" json:"user_id"`
	Role           OrgRole   `gorm:"size:10;not null;default:Member" json:"role"`

	// Relationships
	Organization Organization `gorm:"foreignKey:OrganizationID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	User         User         `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// GetRole is safe on a nil membership, which holds no role.
func (m *OrganizationMembership) GetRole() OrgRole {
	if m == nil {
		return ""
	}
	return m.Role
}

package services

import (
	"github.com/google/uuid"
	"github.com/monocle-dev/pms/internal/models"
	"gorm.io/gorm"
)

// Membership is anything that carries a role. Implementations must be nil-safe.
type Membership[R ~string] interface {
	GetRole() R
}

// HasRole is the single authorization predicate every mutation consults.
func HasRole[R ~string](m Membership[R], required R) bool {
	if m == nil {
		return false
	}
	role := m.GetRole()
	return role != "" && role == required
}

// orgMembership returns nil (and no error) when the user is not a member.
func orgMembership(tx *gorm.DB, orgID, userID uuid.UUID) (*models.OrganizationMembership, error) {
	var m models.OrganizationMembership

	err := tx.Where("organization_id = ? AND user_id = ?", orgID, userID).First(&m).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &m, nil
}

// projectMembership returns nil (and no error) when the user is not a member.
func projectMembership(tx *gorm.DB, projectID, userID uuid.UUID) (*models.ProjectMembership, error) {
	var m models.ProjectMembership

	err := tx.Where("project_id = ? AND user_id = ?", projectID, userID).First(&m).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &m, nil
}

func requireOrgRole(tx *gorm.DB, orgID, userID uuid.UUID, role models.OrgRole) (*models.OrganizationMembership, error) {
	m, err := orgMembership(tx, orgID, userID)
	if err != nil {
		return nil, err
	}

	if !HasRole[models.OrgRole](m, role) {
		return nil, Forbidden()
	}

	return m, nil
}

func requireProjectRole(tx *gorm.DB, projectID, userID uuid.UUID, role models.ProjectRole) (*models.ProjectMembership, error) {
	m, err := projectMembership(tx, projectID, userID)
	if err != nil {
		return nil, err
	}

	if !HasRole[models.ProjectRole](m, role) {
		return nil, Forbidden()
	}

	return m, nil
}

// requireProjectMember admits any role.
func requireProjectMember(tx *gorm.DB, projectID, userID uuid.UUID) (*models.ProjectMembership, error) {
	m, err := projectMembership(tx, projectID, userID)
	if err != nil {
		return nil, err
	}

	if m == nil {
		return nil, Forbidden()
	}

	return m, nil
}

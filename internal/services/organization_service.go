package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/monocle-dev/pms/internal/auth"
	"github.com/monocle-dev/pms/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxOrganizationNameLength = 50

type OrganizationService struct {
	DB *gorm.DB
}

func NewOrganizationService(db *gorm.DB) *OrganizationService {
	return &OrganizationService{DB: db}
}

type CreateOrganizationInput struct {
	Name            string
	Password        string
	PasswordConfirm string
}

type OrganizationDetail struct {
	Organization models.Organization `json:"organization"`
	Projects     []models.Project    `json:"projects"`
	Role         models.OrgRole      `json:"role"`
}

// lockOrganization loads the organization row FOR UPDATE so admin-count checks
// and the writes depending on them serialize per organization.
func lockOrganization(tx *gorm.DB, orgID uuid.UUID, dest *models.Organization) error {
	if dest == nil {
		dest = &models.Organization{}
	}

	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(dest, "id = ?", orgID).Error
	if isNotFound(err) {
		return NotFound("Organization not found.")
	}

	return err
}

func countAdmins(tx *gorm.DB, orgID uuid.UUID) (int64, error) {
	var count int64

	err := tx.Model(&models.OrganizationMembership{}).
		Where("organization_id = ? AND role = ?", orgID, models.OrgRoleAdmin).
		Count(&count).Error

	return count, err
}

// Create persists the organization together with the creator's Admin
// membership in one transaction.
func (s *OrganizationService) Create(ctx context.Context, creatorID uuid.UUID, in CreateOrganizationInput) (*models.Organization, error) {
	name, err := requiredText("organization_name", in.Name, 0, maxOrganizationNameLength)
	if err != nil {
		return nil, err
	}

	if err := auth.ValidatePassword(in.Password, name); err != nil {
		return nil, Validation("organization_password", err.Error())
	}

	if in.Password != in.PasswordConfirm {
		return nil, Validation("confirm_organization_password", "Passwords do not match.")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fail(ctx, "hash organization password", err)
	}

	slog.DebugContext(ctx, "creating organization", "name", name, "creator_id", creatorID)

	org := models.Organization{Name: name, PasswordHash: hash}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := allocateSlug(tx, name, slugTarget{
			table:    "organizations",
			column:   "organization_name_slug",
			fallback: "organization",
			check: func(tx *gorm.DB) error {
				var count int64
				if err := tx.Model(&models.Organization{}).Where("organization_name = ?", name).Count(&count).Error; err != nil {
					return err
				}
				if count > 0 {
					return Validation("organization_name", "An organization with this name already exists.")
				}
				return nil
			},
			write: func(tx *gorm.DB, slug string) error {
				org.Slug = slug
				return tx.Create(&org).Error
			},
		})
		if err != nil {
			return err
		}

		return tx.Create(&models.OrganizationMembership{
			OrganizationID: org.ID,
			UserID:         creatorID,
			Role:           models.OrgRoleAdmin,
		}).Error
	})

	if err != nil {
		return nil, fail(ctx, "create organization", err)
	}

	return &org, nil
}

// Authenticate joins the requester to the organization as a Member. Unknown
// organization, blank password and wrong password fail identically.
func (s *OrganizationService) Authenticate(ctx context.Context, requesterID uuid.UUID, name, password string) (*models.OrganizationMembership, error) {
	name = strings.TrimSpace(name)

	var org models.Organization
	err := s.DB.WithContext(ctx).Where("organization_name = ?", name).First(&org).Error

	switch {
	case isNotFound(err) || name == "":
		auth.BurnComparison(password)
		return nil, Validation(NonFieldErrors, invalidCredentials)
	case err != nil:
		return nil, fail(ctx, "load organization", err)
	case password == "" || !auth.CheckPassword(org.PasswordHash, password):
		return nil, Validation(NonFieldErrors, invalidCredentials)
	}

	membership := models.OrganizationMembership{
		OrganizationID: org.ID,
		UserID:         requesterID,
		Role:           models.OrgRoleMember,
	}

	result := s.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&membership)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return nil, Conflict(NonFieldErrors, "You are already a member of this organization.")
		}
		return nil, fail(ctx, "join organization", result.Error)
	}

	if result.RowsAffected == 0 {
		return nil, Conflict(NonFieldErrors, "You are already a member of this organization.")
	}

	slog.DebugContext(ctx, "joined organization", "org_id", org.ID, "user_id", requesterID)

	return &membership, nil
}

func (s *OrganizationService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Organization, error) {
	orgs := []models.Organization{}

	err := s.DB.WithContext(ctx).
		Joins("JOIN organization_memberships ON organization_memberships.organization_id = organizations.id").
		Where("organization_memberships.user_id = ?", userID).
		Order("organizations.organization_name").
		Find(&orgs).Error

	if err != nil {
		return nil, fail(ctx, "list organizations", err)
	}

	return orgs, nil
}

// Search matches a case-insensitive substring of the name. A blank fragment
// matches nothing.
func (s *OrganizationService) Search(ctx context.Context, fragment string) ([]models.Organization, error) {
	orgs := []models.Organization{}

	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return orgs, nil
	}

	err := s.DB.WithContext(ctx).
		Where(likeClause("organization_name"), containsPattern(fragment)).
		Order("organization_name").
		Find(&orgs).Error

	if err != nil {
		return nil, fail(ctx, "search organizations", err)
	}

	return orgs, nil
}

// SearchStrict is the explicit-query form of Search: a blank fragment is an error.
func (s *OrganizationService) SearchStrict(ctx context.Context, fragment string) ([]models.Organization, error) {
	if strings.TrimSpace(fragment) == "" {
		return nil, Validation("organization_name", "This field is required.")
	}
	return s.Search(ctx, fragment)
}

func (s *OrganizationService) GetDetail(ctx context.Context, slug string, requesterID uuid.UUID) (*OrganizationDetail, error) {
	conn := s.DB.WithContext(ctx)

	var org models.Organization
	if err := conn.Where("organization_name_slug = ?", slug).First(&org).Error; err != nil {
		if isNotFound(err) {
			return nil, NotFound("Organization not found.")
		}
		return nil, fail(ctx, "load organization", err)
	}

	membership, err := orgMembership(conn, org.ID, requesterID)
	if err != nil {
		return nil, fail(ctx, "load membership", err)
	}
	if membership == nil {
		return nil, Forbidden()
	}

	detail := OrganizationDetail{Organization: org, Role: membership.Role, Projects: []models.Project{}}

	if err := conn.Where("organization_id = ?", org.ID).Order("created_at").Find(&detail.Projects).Error; err != nil {
		return nil, fail(ctx, "list projects", err)
	}

	return &detail, nil
}

func (s *OrganizationService) ListAdmins(ctx context.Context, orgID uuid.UUID) ([]models.User, error) {
	return s.usersByRole(ctx, orgID, "organization_memberships.role = ?")
}

func (s *OrganizationService) ListNonAdmins(ctx context.Context, orgID uuid.UUID) ([]models.User, error) {
	return s.usersByRole(ctx, orgID, "organization_memberships.role <> ?")
}

func (s *OrganizationService) usersByRole(ctx context.Context, orgID uuid.UUID, roleClause string) ([]models.User, error) {
	conn := s.DB.WithContext(ctx)

	var count int64
	if err := conn.Model(&models.Organization{}).Where("id = ?", orgID).Count(&count).Error; err != nil {
		return nil, fail(ctx, "load organization", err)
	}
	if count == 0 {
		return nil, NotFound("Organization not found.")
	}

	users := []models.User{}

	err := conn.
		Joins("JOIN organization_memberships ON organization_memberships.user_id = users.id").
		Where("organization_memberships.organization_id = ?", orgID).
		Where(roleClause, models.OrgRoleAdmin).
		Order("users.username").
		Find(&users).Error

	if err != nil {
		return nil, fail(ctx, "list organization users", err)
	}

	return users, nil
}

// PromoteToAdmin raises every named Member to Admin and reports how many rows
// changed. Unknown users and non-members are ignored.
func (s *OrganizationService) PromoteToAdmin(ctx context.Context, orgID, requesterID uuid.UUID, usernames []string) (int64, error) {
	usernames = cleanNames(usernames)
	if len(usernames) == 0 {
		return 0, Validation("usernames", "This field is required.")
	}

	slog.DebugContext(ctx, "promoting admins", "org_id", orgID, "count", len(usernames))

	var promoted int64

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockOrganization(tx, orgID, nil); err != nil {
			return err
		}

		if _, err := requireOrgRole(tx, orgID, requesterID, models.OrgRoleAdmin); err != nil {
			return err
		}

		result := tx.Model(&models.OrganizationMembership{}).
			Where("organization_id = ? AND role = ?", orgID, models.OrgRoleMember).
			Where("user_id IN (?)", tx.Model(&models.User{}).Select("id").Where("username IN ?", usernames)).
			Update("role", models.OrgRoleAdmin)

		promoted = result.RowsAffected
		return result.Error
	})

	if err != nil {
		return 0, fail(ctx, "promote admins", err)
	}

	return promoted, nil
}

// RevokeAdmin demotes an Admin to Member. The admin count is read under the
// organization lock, and the last Admin can never be demoted.
func (s *OrganizationService) RevokeAdmin(ctx context.Context, orgID, requesterID uuid.UUID, adminUsername string) error {
	adminUsername = strings.TrimSpace(adminUsername)
	if adminUsername == "" {
		return Validation("admin_username", "This field is required.")
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockOrganization(tx, orgID, nil); err != nil {
			return err
		}

		if _, err := requireOrgRole(tx, orgID, requesterID, models.OrgRoleAdmin); err != nil {
			return err
		}

		var target models.User
		if err := tx.Where("username = ?", adminUsername).First(&target).Error; err != nil {
			if isNotFound(err) {
				return NotFound("User not found.")
			}
			return err
		}

		membership, err := orgMembership(tx, orgID, target.ID)
		if err != nil {
			return err
		}
		if !HasRole[models.OrgRole](membership, models.OrgRoleAdmin) {
			return Validation("admin_username", "This user is not an administrator of the organization.")
		}

		admins, err := countAdmins(tx, orgID)
		if err != nil {
			return err
		}
		if admins <= 1 {
			return Validation(NonFieldErrors, "An organization must have at least 1 administrator.")
		}

		return tx.Model(membership).Update("role", models.OrgRoleMember).Error
	})

	if err != nil {
		return fail(ctx, "revoke admin", err)
	}

	slog.DebugContext(ctx, "revoked admin", "org_id", orgID, "username", adminUsername)

	return nil
}

// Exit removes the requester from the organization and from its projects and
// task assignments. The only Admin cannot leave.
func (s *OrganizationService) Exit(ctx context.Context, orgID, requesterID uuid.UUID) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockOrganization(tx, orgID, nil); err != nil {
			return err
		}

		membership, err := orgMembership(tx, orgID, requesterID)
		if err != nil {
			return err
		}
		if membership == nil {
			return NotFound("You are not a member of this organization.")
		}

		if HasRole[models.OrgRole](membership, models.OrgRoleAdmin) {
			admins, err := countAdmins(tx, orgID)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return Validation(NonFieldErrors, "An organization must have at least 1 administrator. Promote another member before leaving.")
			}
		}

		projects := tx.Model(&models.Project{}).Select("id").Where("organization_id = ?", orgID)
		tasks := tx.Model(&models.Task{}).Select("id").Where("project_id IN (?)", projects)

		if err := tx.Where("user_id = ? AND task_id IN (?)", requesterID, tasks).Delete(&models.TaskAssignment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ? AND project_id IN (?)", requesterID, projects).Delete(&models.ProjectMembership{}).Error; err != nil {
			return err
		}

		return tx.Delete(membership).Error
	})

	if err != nil {
		return fail(ctx, "exit organization", err)
	}

	slog.DebugContext(ctx, "left organization", "org_id", orgID, "user_id", requesterID)

	return nil
}

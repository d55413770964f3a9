package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/monocle-dev/pms/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	minProjectNameLength  = 5
	maxProjectNameLength  = 60
	maxDescriptionLength  = 500
	notOrgAdminForProject = "You must be an administrator of this organization to create a project."
	notOrgMemberMessage   = "You must be a member of this organization to create a project."
)

type ProjectService struct {
	DB *gorm.DB
}

func NewProjectService(db *gorm.DB) *ProjectService {
	return &ProjectService{DB: db}
}

type CreateProjectInput struct {
	OrganizationID uuid.UUID
	Name           string
	Description    string
	Deadline       time.Time
	TemplateID     *uuid.UUID
}

type ProjectStats struct {
	TaskCount       int64   `json:"task_count"`
	MemberCount     int64   `json:"member_count"`
	Description     string  `json:"description"`
	InProgress      int64   `json:"in_progress"`
	OnHold          int64   `json:"on_hold"`
	Completed       int64   `json:"completed"`
	PercentComplete float64 `json:"percent_complete"`
}

type ProjectMember struct {
	models.User
	Role models.ProjectRole `json:"role"`
}

type ProjectPhases struct {
	Project models.Project        `json:"project"`
	Phases  []models.ProjectPhase `json:"phases"`
	Role    models.ProjectRole    `json:"role"`
}

type ProjectTasks struct {
	Project models.Project     `json:"project"`
	Tasks   []models.Task      `json:"tasks"`
	Role    models.ProjectRole `json:"role"`
}

func loadProject(tx *gorm.DB, id uuid.UUID) (*models.Project, error) {
	var project models.Project

	err := tx.First(&project, "id = ?", id).Error
	if isNotFound(err) {
		return nil, NotFound("Project not found.")
	}
	if err != nil {
		return nil, err
	}

	return &project, nil
}

// Create makes the project, the requester's Manager membership and, when a
// template is given, one phase per template phase, all in one transaction.
// Only organization Admins may create projects.
func (s *ProjectService) Create(ctx context.Context, requesterID uuid.UUID, in CreateProjectInput) (*models.Project, error) {
	conn := s.DB.WithContext(ctx)

	var orgCount int64
	if err := conn.Model(&models.Organization{}).Where("id = ?", in.OrganizationID).Count(&orgCount).Error; err != nil {
		return nil, fail(ctx, "load organization", err)
	}
	if orgCount == 0 {
		return nil, NotFound("Organization not found.")
	}

	membership, err := orgMembership(conn, in.OrganizationID, requesterID)
	if err != nil {
		return nil, fail(ctx, "load membership", err)
	}
	if membership == nil {
		return nil, Validation(NonFieldErrors, notOrgMemberMessage)
	}
	if !HasRole[models.OrgRole](membership, models.OrgRoleAdmin) {
		return nil, Validation(NonFieldErrors, notOrgAdminForProject)
	}

	name, err := requiredText("project_name", in.Name, minProjectNameLength, maxProjectNameLength)
	if err != nil {
		return nil, err
	}

	description := strings.TrimSpace(in.Description)
	if err := maxLength("description", description, maxDescriptionLength); err != nil {
		return nil, err
	}

	if err := notInPast("deadline", in.Deadline); err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "creating project", "org_id", in.OrganizationID, "name", name)

	project := models.Project{
		OrganizationID: in.OrganizationID,
		TemplateID:     in.TemplateID,
		Name:           name,
		Description:    description,
		Deadline:       datatypes.Date(dateOf(in.Deadline)),
		Status:         models.ProjectInProgress,
	}

	err = conn.Transaction(func(tx *gorm.DB) error {
		var template *models.Template
		if in.TemplateID != nil {
			template = &models.Template{}
			if err := tx.Preload("Phases").First(template, "id = ?", *in.TemplateID).Error; err != nil {
				if isNotFound(err) {
					return Validation("template", "Template not found.")
				}
				return err
			}
		}

		_, err := allocateSlug(tx, name, slugTarget{
			table:    "projects",
			column:   "project_name_slug",
			fallback: "project",
			check: func(tx *gorm.DB) error {
				var count int64
				err := tx.Model(&models.Project{}).
					Where("organization_id = ? AND LOWER(project_name) = ?", in.OrganizationID, strings.ToLower(name)).
					Count(&count).Error
				if err != nil {
					return err
				}
				if count > 0 {
					return Validation("project_name", "A project with this name already exists in this organization.")
				}
				return nil
			},
			write: func(tx *gorm.DB, slug string) error {
				project.Slug = slug
				return tx.Omit(clause.Associations).Create(&project).Error
			},
		})
		if err != nil {
			return err
		}

		if err := tx.Create(&models.ProjectMembership{
			UserID:    requesterID,
			ProjectID: project.ID,
			Role:      models.ProjectRoleManager,
		}).Error; err != nil {
			return err
		}

		if template == nil || len(template.Phases) == 0 {
			return nil
		}

		phases := make([]models.ProjectPhase, len(template.Phases))
		for i, tp := range template.Phases {
			phases[i] = models.ProjectPhase{ProjectID: project.ID, Name: tp.Name}
		}

		return tx.Create(&phases).Error
	})

	if err != nil {
		return nil, fail(ctx, "create project", err)
	}

	return &project, nil
}

func (s *ProjectService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Project, error) {
	projects := []models.Project{}

	err := s.DB.WithContext(ctx).
		Joins("JOIN project_memberships ON project_memberships.project_id = projects.id").
		Where("project_memberships.user_id = ?", userID).
		Order("projects.created_at").
		Find(&projects).Error

	if err != nil {
		return nil, fail(ctx, "list projects", err)
	}

	return projects, nil
}

func (s *ProjectService) Stats(ctx context.Context, projectID uuid.UUID) (*ProjectStats, error) {
	if projectID == uuid.Nil {
		return nil, Validation("project_id", "This field is required.")
	}

	conn := s.DB.WithContext(ctx)

	project, err := loadProject(conn, projectID)
	if err != nil {
		return nil, fail(ctx, "load project", err)
	}

	stats := ProjectStats{Description: project.Description}

	var rows []struct {
		Status models.TaskStatus
		Total  int64
	}
	err = conn.Model(&models.Task{}).
		Select("status, COUNT(*) AS total").
		Where("project_id = ?", projectID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fail(ctx, "count tasks", err)
	}

	for _, r := range rows {
		stats.TaskCount += r.Total
		switch r.Status {
		case models.StatusInProgress:
			stats.InProgress = r.Total
		case models.StatusOnHold:
			stats.OnHold = r.Total
		case models.StatusDone:
			stats.Completed = r.Total
		}
	}

	if err := conn.Model(&models.ProjectMembership{}).Where("project_id = ?", projectID).Count(&stats.MemberCount).Error; err != nil {
		return nil, fail(ctx, "count members", err)
	}

	if stats.TaskCount > 0 {
		stats.PercentComplete = float64(stats.Completed) / float64(stats.TaskCount) * 100
	}

	return &stats, nil
}

func (s *ProjectService) ListMembers(ctx context.Context, projectID uuid.UUID) ([]ProjectMember, error) {
	conn := s.DB.WithContext(ctx)

	if _, err := loadProject(conn, projectID); err != nil {
		return nil, fail(ctx, "load project", err)
	}

	members := []ProjectMember{}

	err := conn.Table("users").
		Select("users.*, project_memberships.role AS role").
		Joins("JOIN project_memberships ON project_memberships.user_id = users.id").
		Where("project_memberships.project_id = ?", projectID).
		Order("users.username").
		Scan(&members).Error

	if err != nil {
		return nil, fail(ctx, "list project members", err)
	}

	return members, nil
}

// ListNonMembers returns members of the project's organization who are not on
// the project.
func (s *ProjectService) ListNonMembers(ctx context.Context, projectID uuid.UUID) ([]models.User, error) {
	conn := s.DB.WithContext(ctx)

	project, err := loadProject(conn, projectID)
	if err != nil {
		return nil, fail(ctx, "load project", err)
	}

	users := []models.User{}

	err = conn.
		Joins("JOIN organization_memberships ON organization_memberships.user_id = users.id").
		Where("organization_memberships.organization_id = ?", project.OrganizationID).
		Where("users.id NOT IN (?)", conn.Model(&models.ProjectMembership{}).Select("user_id").Where("project_id = ?", projectID)).
		Order("users.username").
		Find(&users).Error

	if err != nil {
		return nil, fail(ctx, "list non members", err)
	}

	return users, nil
}

// AddMembers adds the named organization members to the project as Members.
// Unknown users, outsiders and existing members are skipped.
func (s *ProjectService) AddMembers(ctx context.Context, projectID, requesterID uuid.UUID, usernames []string) (int64, error) {
	usernames = cleanNames(usernames)
	if len(usernames) == 0 {
		return 0, Validation("usernames", "This field is required.")
	}

	var added int64

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := loadProject(tx, projectID)
		if err != nil {
			return err
		}

		if _, err := requireProjectRole(tx, projectID, requesterID, models.ProjectRoleManager); err != nil {
			return err
		}

		var users []models.User
		err = tx.Where("username IN ?", usernames).
			Where("id IN (?)", tx.Model(&models.OrganizationMembership{}).Select("user_id").Where("organization_id = ?", project.OrganizationID)).
			Find(&users).Error
		if err != nil {
			return err
		}

		if len(users) == 0 {
			return nil
		}

		memberships := make([]models.ProjectMembership, len(users))
		for i, u := range users {
			memberships[i] = models.ProjectMembership{UserID: u.ID, ProjectID: projectID, Role: models.ProjectRoleMember}
		}

		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&memberships)
		added = result.RowsAffected
		return result.Error
	})

	if err != nil {
		return 0, fail(ctx, "add project members", err)
	}

	slog.DebugContext(ctx, "added project members", "project_id", projectID, "added", added)

	return added, nil
}

func (s *ProjectService) ListPhases(ctx context.Context, projectID, requesterID uuid.UUID) (*ProjectPhases, error) {
	conn := s.DB.WithContext(ctx)

	project, membership, err := memberView(conn, projectID, requesterID)
	if err != nil {
		return nil, fail(ctx, "load project", err)
	}

	view := ProjectPhases{Project: *project, Role: membership.Role, Phases: []models.ProjectPhase{}}
	if err := conn.Where("project_id = ?", projectID).Order("created_at, phase_name").Find(&view.Phases).Error; err != nil {
		return nil, fail(ctx, "list phases", err)
	}

	return &view, nil
}

func (s *ProjectService) ListTasks(ctx context.Context, projectID, requesterID uuid.UUID) (*ProjectTasks, error) {
	conn := s.DB.WithContext(ctx)

	project, membership, err := memberView(conn, projectID, requesterID)
	if err != nil {
		return nil, fail(ctx, "load project", err)
	}

	view := ProjectTasks{Project: *project, Role: membership.Role, Tasks: []models.Task{}}
	if err := conn.Where("project_id = ?", projectID).Order("deadline, task_name").Find(&view.Tasks).Error; err != nil {
		return nil, fail(ctx, "list tasks", err)
	}

	return &view, nil
}

// memberView loads a project for a reader who must hold any project role.
func memberView(tx *gorm.DB, projectID, requesterID uuid.UUID) (*models.Project, *models.ProjectMembership, error) {
	project, err := loadProject(tx, projectID)
	if err != nil {
		return nil, nil, err
	}

	membership, err := requireProjectMember(tx, projectID, requesterID)
	if err != nil {
		return nil, nil, err
	}

	return project, membership, nil
}

// Membership returns the requester's membership of the project, or Forbidden.
func (s *ProjectService) Membership(ctx context.Context, projectID, requesterID uuid.UUID) (*models.ProjectMembership, error) {
	_, membership, err := memberView(s.DB.WithContext(ctx), projectID, requesterID)
	if err != nil {
		return nil, fail(ctx, "load membership", err)
	}
	return membership, nil
}

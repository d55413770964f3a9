package services

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/monocle-dev/pms/internal/ids"
	"github.com/monocle-dev/pms/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	minTaskNameLength = 5
	maxTaskNameLength = 30
)

// phaseNamePattern admits letters and digits of any script, underscores,
// apostrophes, @, hyphens and spaces.
// A trailing space is rejected separately.
var phaseNamePattern = regexp.MustCompile(`^[\p{L}\p{N}_'@\- ]+$`)

type WorkflowService struct {
	DB *gorm.DB
}

func NewWorkflowService(db *gorm.DB) *WorkflowService {
	return &WorkflowService{DB: db}
}

type CreateTaskInput struct {
	PhaseID     uuid.UUID
	Name        string
	Description string
	Deadline    time.Time
}

type PhaseDetail struct {
	Phase   models.ProjectPhase                 `json:"phase"`
	Project models.Project                      `json:"project"`
	Tasks   map[models.TaskStatus][]models.Task `json:"tasks"`
	Role    models.ProjectRole                  `json:"role"`
}

type TaskDetail struct {
	Task      models.Task        `json:"task"`
	Assignees []models.User      `json:"assignees"`
	Role      models.ProjectRole `json:"role"`
}

func loadPhase(tx *gorm.DB, id uuid.UUID) (*models.ProjectPhase, error) {
	var phase models.ProjectPhase

	err := tx.First(&phase, "id = ?", id).Error
	if isNotFound(err) {
		return nil, NotFound("Phase not found.")
	}
	if err != nil {
		return nil, err
	}

	return &phase, nil
}

func loadTask(tx *gorm.DB, id string) (*models.Task, error) {
	var task models.Task

	err := tx.First(&task, "id = ?", strings.TrimSpace(id)).Error
	if isNotFound(err) {
		return nil, NotFound("Task not found.")
	}
	if err != nil {
		return nil, err
	}

	return &task, nil
}

// phaseNameTaken reports whether another phase of the project already uses
// name, ignoring case. except excludes the phase being renamed.
func phaseNameTaken(tx *gorm.DB, projectID, except uuid.UUID, name string) (bool, error) {
	var count int64

	err := tx.Model(&models.ProjectPhase{}).
		Where("project_id = ? AND LOWER(phase_name) = ? AND id <> ?", projectID, strings.ToLower(name), except).
		Count(&count).Error

	return count > 0, err
}

func duplicatePhase() error {
	return Validation("phase_name", "A phase with this name already exists in this project.")
}

func (s *WorkflowService) CreatePhase(ctx context.Context, requesterID, projectID uuid.UUID, name string) (*models.ProjectPhase, error) {
	name, err := requiredText("phase_name", name, 0, maxPhaseNameLength)
	if err != nil {
		return nil, err
	}

	phase := models.ProjectPhase{ProjectID: projectID, Name: name}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := loadProject(tx, projectID); err != nil {
			return err
		}

		if _, err := requireProjectRole(tx, projectID, requesterID, models.ProjectRoleManager); err != nil {
			return err
		}

		taken, err := phaseNameTaken(tx, projectID, uuid.Nil, name)
		if err != nil {
			return err
		}
		if taken {
			return duplicatePhase()
		}

		return tx.Omit(clause.Associations).Create(&phase).Error
	})

	if isUniqueViolation(err) {
		return nil, duplicatePhase()
	}
	if err != nil {
		return nil, fail(ctx, "create phase", err)
	}

	slog.DebugContext(ctx, "created phase", "project_id", projectID, "phase_id", phase.ID)

	return &phase, nil
}

func validPhaseRename(name string) error {
	if name == "" {
		return Validation("phase_name", "This field is required.")
	}

	last := []rune(name)[len([]rune(name))-1]
	if !phaseNamePattern.MatchString(name) || unicode.IsSpace(last) {
		return Validation("phase_name", "Phase names may contain letters, digits, spaces, apostrophes, @ and hyphens, and must not end with a space.")
	}

	return maxLength("phase_name", name, maxPhaseNameLength)
}

// RenamePhase takes newName as given: it is not trimmed, so a trailing space
// is rejected rather than silently dropped.
func (s *WorkflowService) RenamePhase(ctx context.Context, requesterID, phaseID uuid.UUID, newName string) (*models.ProjectPhase, error) {
	if err := validPhaseRename(newName); err != nil {
		return nil, err
	}

	var phase *models.ProjectPhase

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if phase, err = loadPhase(tx, phaseID); err != nil {
			return err
		}

		if _, err := requireProjectRole(tx, phase.ProjectID, requesterID, models.ProjectRoleManager); err != nil {
			return err
		}

		taken, err := phaseNameTaken(tx, phase.ProjectID, phase.ID, newName)
		if err != nil {
			return err
		}
		if taken {
			return duplicatePhase()
		}

		if err := tx.Model(phase).Update("phase_name", newName).Error; err != nil {
			return err
		}
		phase.Name = newName
		return nil
	})

	if isUniqueViolation(err) {
		return nil, duplicatePhase()
	}
	if err != nil {
		return nil, fail(ctx, "rename phase", err)
	}

	return phase, nil
}

// DeletePhase removes the phase with its tasks and their assignments.
func (s *WorkflowService) DeletePhase(ctx context.Context, requesterID, phaseID uuid.UUID) (*models.ProjectPhase, error) {
	var phase *models.ProjectPhase

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if phase, err = loadPhase(tx, phaseID); err != nil {
			return err
		}

		if _, err := requireProjectRole(tx, phase.ProjectID, requesterID, models.ProjectRoleManager); err != nil {
			return err
		}

		tasks := tx.Model(&models.Task{}).Select("id").Where("project_phase_id = ?", phase.ID)
		if err := tx.Where("task_id IN (?)", tasks).Delete(&models.TaskAssignment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_phase_id = ?", phase.ID).Delete(&models.Task{}).Error; err != nil {
			return err
		}

		return tx.Delete(phase).Error
	})

	if err != nil {
		return nil, fail(ctx, "delete phase", err)
	}

	slog.DebugContext(ctx, "deleted phase", "project_id", phase.ProjectID, "phase_id", phase.ID)

	return phase, nil
}

// GetPhaseDetail is visible to project members; tasks come grouped by status.
func (s *WorkflowService) GetPhaseDetail(ctx context.Context, requesterID, phaseID uuid.UUID) (*PhaseDetail, error) {
	conn := s.DB.WithContext(ctx)

	phase, err := loadPhase(conn, phaseID)
	if err != nil {
		return nil, fail(ctx, "load phase", err)
	}

	project, membership, err := memberView(conn, phase.ProjectID, requesterID)
	if err != nil {
		return nil, fail(ctx, "load project", err)
	}

	var tasks []models.Task
	if err := conn.Where("project_phase_id = ?", phase.ID).Order("deadline, task_name").Find(&tasks).Error; err != nil {
		return nil, fail(ctx, "list tasks", err)
	}

	detail := PhaseDetail{
		Phase:   *phase,
		Project: *project,
		Role:    membership.Role,
		Tasks: map[models.TaskStatus][]models.Task{
			models.StatusInProgress: {},
			models.StatusOnHold:     {},
			models.StatusDone:       {},
		},
	}
	for _, t := range tasks {
		detail.Tasks[t.Status] = append(detail.Tasks[t.Status], t)
	}

	return &detail, nil
}

func duplicateTask() error {
	return Validation("task_name", "A task with this name already exists in this phase.")
}

func (s *WorkflowService) CreateTask(ctx context.Context, requesterID uuid.UUID, in CreateTaskInput) (*models.Task, error) {
	var task models.Task

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		phase, err := loadPhase(tx, in.PhaseID)
		if err != nil {
			return err
		}

		if _, err := requireProjectRole(tx, phase.ProjectID, requesterID, models.ProjectRoleManager); err != nil {
			return err
		}

		name, err := requiredText("task_name", in.Name, minTaskNameLength, maxTaskNameLength)
		if err != nil {
			return err
		}

		description, err := requiredText("description", in.Description, 0, maxDescriptionLength)
		if err != nil {
			return err
		}

		if err := notInPast("deadline", in.Deadline); err != nil {
			return err
		}

		var count int64
		err = tx.Model(&models.Task{}).
			Where("project_phase_id = ? AND LOWER(task_name) = ?", phase.ID, strings.ToLower(name)).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return duplicateTask()
		}

		task = models.Task{
			ID:             ids.NewTaskID(),
			ProjectID:      phase.ProjectID,
			ProjectPhaseID: phase.ID,
			Name:           name,
			Description:    description,
			StartDate:      datatypes.Date(today()),
			Deadline:       datatypes.Date(dateOf(in.Deadline)),
			Status:         models.StatusInProgress,
		}

		return tx.Omit(clause.Associations).Create(&task).Error
	})

	if isUniqueViolation(err) {
		return nil, duplicateTask()
	}
	if err != nil {
		return nil, fail(ctx, "create task", err)
	}

	slog.DebugContext(ctx, "created task", "project_id", task.ProjectID, "task_id", task.ID)

	return &task, nil
}

// UpdateTaskStatus moves a task to any of the three statuses. Any project
// member may do it.
func (s *WorkflowService) UpdateTaskStatus(ctx context.Context, requesterID uuid.UUID, taskID, status string) (*models.Task, error) {
	var task *models.Task

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if task, err = loadTask(tx, taskID); err != nil {
			return err
		}

		if _, err := requireProjectMember(tx, task.ProjectID, requesterID); err != nil {
			return err
		}

		next, ok := models.ParseStatus(status)
		if !ok {
			return Validation("status", "Invalid status. Use IN_PROGRESS, ON_HOLD or DONE.")
		}

		if err := tx.Model(task).Update("status", next).Error; err != nil {
			return err
		}
		task.Status = next
		return nil
	})

	if err != nil {
		return nil, fail(ctx, "update task status", err)
	}

	return task, nil
}

// AssignTask assigns the named project members to the task. Repeating an
// assignment is a no-op: the (task, user) unique index absorbs it. It returns
// the number of new assignments.
func (s *WorkflowService) AssignTask(ctx context.Context, requesterID uuid.UUID, taskID string, usernames []string) (*models.Task, int64, error) {
	usernames = cleanNames(usernames)
	if len(usernames) == 0 {
		return nil, 0, Validation("usernames", "This field is required.")
	}

	var (
		task    *models.Task
		created int64
	)

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if task, err = loadTask(tx, taskID); err != nil {
			return err
		}

		if _, err := requireProjectRole(tx, task.ProjectID, requesterID, models.ProjectRoleManager); err != nil {
			return err
		}

		var users []models.User
		err = tx.Where("username IN ?", usernames).
			Where("id IN (?)", tx.Model(&models.ProjectMembership{}).Select("user_id").Where("project_id = ?", task.ProjectID)).
			Find(&users).Error
		if err != nil || len(users) == 0 {
			return err
		}

		assignments := make([]models.TaskAssignment, len(users))
		for i, u := range users {
			assignments[i] = models.TaskAssignment{TaskID: task.ID, UserID: u.ID}
		}

		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Omit(clause.Associations).Create(&assignments)
		created = result.RowsAffected
		return result.Error
	})

	if err != nil {
		return nil, 0, fail(ctx, "assign task", err)
	}

	slog.DebugContext(ctx, "assigned task", "task_id", task.ID, "created", created)

	return task, created, nil
}

func (s *WorkflowService) UnassignTask(ctx context.Context, requesterID uuid.UUID, taskID, assigneeUsername string) (*models.Task, error) {
	assigneeUsername = strings.TrimSpace(assigneeUsername)
	if assigneeUsername == "" {
		return nil, Validation("assignee", "This field is required.")
	}

	var task *models.Task

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if task, err = loadTask(tx, taskID); err != nil {
			return err
		}

		if _, err := requireProjectRole(tx, task.ProjectID, requesterID, models.ProjectRoleManager); err != nil {
			return err
		}

		var user models.User
		if err := tx.Where("username = ?", assigneeUsername).First(&user).Error; err != nil {
			if isNotFound(err) {
				return Validation("assignee", "User does not exist.")
			}
			return err
		}

		result := tx.Where("task_id = ? AND user_id = ?", task.ID, user.ID).Delete(&models.TaskAssignment{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return NotFound("This user is not assigned to the task.")
		}

		return nil
	})

	if err != nil {
		return nil, fail(ctx, "unassign task", err)
	}

	return task, nil
}

func (s *WorkflowService) GetTaskDetail(ctx context.Context, requesterID uuid.UUID, taskID string) (*TaskDetail, error) {
	conn := s.DB.WithContext(ctx)

	task, err := loadTask(conn, taskID)
	if err != nil {
		return nil, fail(ctx, "load task", err)
	}

	membership, err := requireProjectMember(conn, task.ProjectID, requesterID)
	if err != nil {
		return nil, fail(ctx, "load membership", err)
	}

	assignees, err := s.assignees(conn, task.ID)
	if err != nil {
		return nil, fail(ctx, "list assignees", err)
	}

	return &TaskDetail{Task: *task, Assignees: assignees, Role: membership.Role}, nil
}

func (s *WorkflowService) ListTaskAssignees(ctx context.Context, taskID string) ([]models.User, error) {
	conn := s.DB.WithContext(ctx)

	task, err := loadTask(conn, taskID)
	if err != nil {
		return nil, fail(ctx, "load task", err)
	}

	users, err := s.assignees(conn, task.ID)
	if err != nil {
		return nil, fail(ctx, "list assignees", err)
	}

	return users, nil
}

// ListNonAssignees returns project members not assigned to the task.
func (s *WorkflowService) ListNonAssignees(ctx context.Context, taskID string) ([]models.User, error) {
	conn := s.DB.WithContext(ctx)

	task, err := loadTask(conn, taskID)
	if err != nil {
		return nil, fail(ctx, "load task", err)
	}

	users := []models.User{}

	err = conn.
		Joins("JOIN project_memberships ON project_memberships.user_id = users.id").
		Where("project_memberships.project_id = ?", task.ProjectID).
		Where("users.id NOT IN (?)", conn.Model(&models.TaskAssignment{}).Select("user_id").Where("task_id = ?", task.ID)).
		Order("users.username").
		Find(&users).Error

	if err != nil {
		return nil, fail(ctx, "list non assignees", err)
	}

	return users, nil
}

func (s *WorkflowService) assignees(tx *gorm.DB, taskID string) ([]models.User, error) {
	users := []models.User{}

	err := tx.
		Joins("JOIN task_assignments ON task_assignments.user_id = users.id").
		Where("task_assignments.task_id = ?", taskID).
		Order("users.username").
		Find(&users).Error

	return users, err
}

package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/monocle-dev/pms/db"
	"github.com/monocle-dev/pms/internal/auth"
	"github.com/monocle-dev/pms/internal/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	testPassword    = "correct-horse-battery"
	testOrgPassword = "securepassword123"

	// 80 bytes, past what bcrypt accepts.
	overlongPassword = "a-very-long-passphrase-that-keeps-going-and-going-well-beyond-the-bcrypt-limit!!"
)

func init() {
	auth.SetHashCost(bcrypt.MinCost)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	conn, err := db.Open("sqlite", "file:"+name+"?mode=memory&cache=shared&_foreign_keys=on")
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(conn))

	return conn
}

func freezeToday(t *testing.T, day time.Time) {
	t.Helper()

	prev := timeNow
	timeNow = func() time.Time { return day }
	t.Cleanup(func() { timeNow = prev })
}

func requireKind(t *testing.T, err error, kind ErrorKind) *Error {
	t.Helper()

	se, ok := AsError(err)
	require.Truef(t, ok, "expected a service error, got %v", err)
	require.Equal(t, kind, se.Kind, se.Error())

	return se
}

type fixture struct {
	t    *testing.T
	ctx  context.Context
	conn *gorm.DB

	users     *UserService
	orgs      *OrganizationService
	templates *TemplateService
	projects  *ProjectService
	workflow  *WorkflowService
}

func newFixture(t *testing.T) *fixture {
	conn := newTestDB(t)

	return &fixture{
		t:         t,
		ctx:       context.Background(),
		conn:      conn,
		users:     NewUserService(conn),
		orgs:      NewOrganizationService(conn),
		templates: NewTemplateService(conn),
		projects:  NewProjectService(conn),
		workflow:  NewWorkflowService(conn),
	}
}

func (f *fixture) user(username string) *models.User {
	f.t.Helper()

	u, err := f.users.Register(f.ctx, RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: testPassword,
	})
	require.NoError(f.t, err)

	return u
}

func (f *fixture) org(name string, admin *models.User) *models.Organization {
	f.t.Helper()

	org, err := f.orgs.Create(f.ctx, admin.ID, CreateOrganizationInput{
		Name:            name,
		Password:        testOrgPassword,
		PasswordConfirm: testOrgPassword,
	})
	require.NoError(f.t, err)

	return org
}

func (f *fixture) join(org *models.Organization, users ...*models.User) {
	f.t.Helper()

	for _, u := range users {
		_, err := f.orgs.Authenticate(f.ctx, u.ID, org.Name, testOrgPassword)
		require.NoError(f.t, err)
	}
}

func (f *fixture) project(org *models.Organization, admin *models.User, name string, templateID *uuid.UUID) *models.Project {
	f.t.Helper()

	p, err := f.projects.Create(f.ctx, admin.ID, CreateProjectInput{
		OrganizationID: org.ID,
		Name:           name,
		Description:    "Quarterly delivery",
		Deadline:       today().AddDate(0, 1, 0),
		TemplateID:     templateID,
	})
	require.NoError(f.t, err)

	return p
}

func (f *fixture) addMembers(p *models.Project, manager *models.User, users ...*models.User) {
	f.t.Helper()

	names := make([]string, len(users))
	for i, u := range users {
		names[i] = u.Username
	}

	_, err := f.projects.AddMembers(f.ctx, p.ID, manager.ID, names)
	require.NoError(f.t, err)
}

func (f *fixture) phase(p *models.Project, manager *models.User, name string) *models.ProjectPhase {
	f.t.Helper()

	phase, err := f.workflow.CreatePhase(f.ctx, manager.ID, p.ID, name)
	require.NoError(f.t, err)

	return phase
}

func (f *fixture) task(phase *models.ProjectPhase, manager *models.User, name string) *models.Task {
	f.t.Helper()

	task, err := f.workflow.CreateTask(f.ctx, manager.ID, CreateTaskInput{
		PhaseID:     phase.ID,
		Name:        name,
		Description: "Do the thing",
		Deadline:    today().AddDate(0, 0, 7),
	})
	require.NoError(f.t, err)

	return task
}

func (f *fixture) count(model interface{}, query string, args ...interface{}) int64 {
	f.t.Helper()

	var n int64
	require.NoError(f.t, f.conn.Model(model).Where(query, args...).Count(&n).Error)

	return n
}

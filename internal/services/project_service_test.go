package services

import (
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/monocle-dev/pms/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProjectRequiresOrgAdmin(t *testing.T) {
	f := newFixture(t)
	alice, bob, carol := f.user("alice"), f.user("bob"), f.user("carol")
	org := f.org("Acme", alice)
	f.join(org, bob)

	in := CreateProjectInput{
		OrganizationID: org.ID,
		Name:           "Website relaunch",
		Description:    "New site",
		Deadline:       today().AddDate(0, 0, 10),
	}

	for _, u := range []*models.User{bob, carol} {
		_, err := f.projects.Create(f.ctx, u.ID, in)
		se := requireKind(t, err, KindValidation)
		assert.Equal(t, NonFieldErrors, se.Field)
	}
	assert.Zero(t, f.count(&models.Project{}, "1 = 1"))

	p, err := f.projects.Create(f.ctx, alice.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "website-relaunch", p.Slug)
	assert.Equal(t, models.ProjectInProgress, p.Status)

	var m models.ProjectMembership
	require.NoError(t, f.conn.Where("project_id = ? AND user_id = ?", p.ID, alice.ID).First(&m).Error)
	assert.Equal(t, models.ProjectRoleManager, m.Role)

	_, err = f.projects.Create(f.ctx, alice.ID, CreateProjectInput{OrganizationID: uuid.New(), Name: "Whatever", Deadline: today()})
	requireKind(t, err, KindNotFound)
}

func TestCreateProjectBoundaries(t *testing.T) {
	f := newFixture(t)
	freezeToday(t, time.Date(2026, 3, 15, 22, 30, 0, 0, time.UTC))
	alice := f.user("alice")
	org := f.org("Acme", alice)

	day := today()
	n := 0
	create := func(name, description string, deadline time.Time) error {
		n++
		if name == "" {
			name = "Project " + strings.Repeat("x", n)
		}
		_, err := f.projects.Create(f.ctx, alice.ID, CreateProjectInput{
			OrganizationID: org.ID,
			Name:           name,
			Description:    description,
			Deadline:       deadline,
		})
		return err
	}

	assert.NoError(t, create(strings.Repeat("a", 5), "", day))
	assert.NoError(t, create(strings.Repeat("b", 60), "", day))
	assert.NoError(t, create("", strings.Repeat("d", 500), day))
	assert.NoError(t, create("", "", day.AddDate(1, 0, 0)))

	rejected := map[string]struct {
		err   error
		field string
	}{
		"name of 4":        {create(strings.Repeat("c", 4), "", day), "project_name"},
		"name of 61":       {create(strings.Repeat("c", 61), "", day), "project_name"},
		"blank name":       {create("     ", "", day), "project_name"},
		"description 501":  {create("", strings.Repeat("d", 501), day), "description"},
		"yesterday":        {create("", "", day.AddDate(0, 0, -1)), "deadline"},
		"missing deadline": {create("", "", time.Time{}), "deadline"},
	}
	for name, r := range rejected {
		t.Run(name, func(t *testing.T) {
			se := requireKind(t, r.err, KindValidation)
			assert.Equal(t, r.field, se.Field)
		})
	}
}

func TestCreateProjectDuplicateName(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice")
	acme, globex := f.org("Acme", alice), f.org("Globex", alice)

	first := f.project(acme, alice, "Website relaunch", nil)

	_, err := f.projects.Create(f.ctx, alice.ID, CreateProjectInput{
		OrganizationID: acme.ID,
		Name:           "WEBSITE RELAUNCH",
		Deadline:       today(),
	})
	se := requireKind(t, err, KindValidation)
	assert.Equal(t, "project_name", se.Field)

	second := f.project(globex, alice, "Website relaunch", nil)
	assert.Equal(t, first.Slug+"-1", second.Slug)
}

func TestCreateProjectFromTemplate(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice")
	org := f.org("Acme", alice)
	software := f.industry("Software")

	tpl, err := f.templates.CreateTemplate(f.ctx, alice.ID, CreateTemplateInput{software.ID, "Agile", []string{"a", "b", "c"}})
	require.NoError(t, err)

	p := f.project(org, alice, "Website relaunch", &tpl.ID)

	view, err := f.projects.ListPhases(f.ctx, p.ID, alice.ID)
	require.NoError(t, err)

	names := make([]string, len(view.Phases))
	for i, ph := range view.Phases {
		names[i] = ph.Name
	}
	sort.Strings(names)
	assert.Equal(t, []string{"a", "b", "c"}, names)

	// Project phases are copies: renaming one leaves the template alone.
	_, err = f.workflow.RenamePhase(f.ctx, alice.ID, view.Phases[0].ID, "renamed")
	require.NoError(t, err)

	loaded, err := f.templates.GetTemplate(f.ctx, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, templatePhaseNames(loaded.Phases))

	missing := uuid.New()
	_, err = f.projects.Create(f.ctx, alice.ID, CreateProjectInput{
		OrganizationID: org.ID,
		Name:           "Another project",
		Deadline:       today(),
		TemplateID:     &missing,
	})
	se := requireKind(t, err, KindValidation)
	assert.Equal(t, "template", se.Field)
	assert.EqualValues(t, 1, f.count(&models.Project{}, "1 = 1"))
}

func TestProjectStats(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.user("alice"), f.user("bob")
	org := f.org("Acme", alice)
	f.join(org, bob)
	p := f.project(org, alice, "Website relaunch", nil)

	stats, err := f.projects.Stats(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, stats.TaskCount)
	assert.Zero(t, stats.PercentComplete)
	assert.EqualValues(t, 1, stats.MemberCount)

	f.addMembers(p, alice, bob)
	phase := f.phase(p, alice, "design")
	done := f.task(phase, alice, "Wireframes")
	f.task(phase, alice, "Mockups")
	held := f.task(phase, alice, "Style guide")
	f.task(phase, alice, "Prototype")

	_, err = f.workflow.UpdateTaskStatus(f.ctx, bob.ID, done.ID, "DONE")
	require.NoError(t, err)
	_, err = f.workflow.UpdateTaskStatus(f.ctx, alice.ID, held.ID, "ON_HOLD")
	require.NoError(t, err)

	stats, err = f.projects.Stats(f.ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 4, stats.TaskCount)
	assert.EqualValues(t, 2, stats.MemberCount)
	assert.EqualValues(t, 2, stats.InProgress)
	assert.EqualValues(t, 1, stats.OnHold)
	assert.EqualValues(t, 1, stats.Completed)
	assert.InDelta(t, 25.0, stats.PercentComplete, 0.001)
	assert.Equal(t, "Quarterly delivery", stats.Description)

	_, err = f.projects.Stats(f.ctx, uuid.Nil)
	requireKind(t, err, KindValidation)
	_, err = f.projects.Stats(f.ctx, uuid.New())
	requireKind(t, err, KindNotFound)
}

func TestProjectMembers(t *testing.T) {
	f := newFixture(t)
	alice, bob, carol, outsider := f.user("alice"), f.user("bob"), f.user("carol"), f.user("outsider")
	org := f.org("Acme", alice)
	f.join(org, bob, carol)
	p := f.project(org, alice, "Website relaunch", nil)

	_, err := f.projects.AddMembers(f.ctx, p.ID, alice.ID, nil)
	requireKind(t, err, KindValidation)

	_, err = f.projects.AddMembers(f.ctx, p.ID, bob.ID, []string{"carol"})
	requireKind(t, err, KindForbidden)

	added, err := f.projects.AddMembers(f.ctx, p.ID, alice.ID, []string{"bob", "ghost", outsider.Username})
	require.NoError(t, err)
	assert.EqualValues(t, 1, added)

	added, err = f.projects.AddMembers(f.ctx, p.ID, alice.ID, []string{"bob", "carol"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, added)

	members, err := f.projects.ListMembers(f.ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, members, 3)
	roles := map[string]models.ProjectRole{}
	for _, m := range members {
		roles[m.Username] = m.Role
	}
	assert.Equal(t, models.ProjectRoleManager, roles["alice"])
	assert.Equal(t, models.ProjectRoleMember, roles["bob"])

	others, err := f.projects.ListNonMembers(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, others)

	dave := f.user("dave")
	f.join(org, dave)
	others, err = f.projects.ListNonMembers(f.ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.Equal(t, "dave", others[0].Username)

	projects, err := f.projects.ListForUser(f.ctx, bob.ID)
	require.NoError(t, err)
	assert.Len(t, projects, 1)

	projects, err = f.projects.ListForUser(f.ctx, dave.ID)
	require.NoError(t, err)
	assert.Empty(t, projects)

	_, err = f.projects.ListTasks(f.ctx, p.ID, dave.ID)
	requireKind(t, err, KindForbidden)

	view, err := f.projects.ListTasks(f.ctx, p.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectRoleMember, view.Role)
	assert.Empty(t, view.Tasks)
}

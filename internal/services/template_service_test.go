package services

import (
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/monocle-dev/pms/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) industry(name string) *models.Industry {
	f.t.Helper()

	industry, err := f.templates.CreateIndustry(f.ctx, name)
	require.NoError(f.t, err)

	return industry
}

func templatePhaseNames(phases []models.TemplatePhase) []string {
	names := make([]string, len(phases))
	for i, p := range phases {
		names[i] = p.Name
	}
	sort.Strings(names)
	return names
}

func TestEnsureDefaultIndustry(t *testing.T) {
	f := newFixture(t)

	first, err := f.templates.EnsureDefaultIndustry(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultIndustryName, first.Name)

	again, err := f.templates.EnsureDefaultIndustry(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	industries, err := f.templates.ListIndustries(f.ctx)
	require.NoError(t, err)
	assert.Len(t, industries, 1)
}

func TestCreateTemplate(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice")
	software := f.industry("Software")

	tpl, err := f.templates.CreateTemplate(f.ctx, alice.ID, CreateTemplateInput{
		IndustryID: software.ID,
		Name:       "Agile",
		PhaseNames: []string{"Plan", " ", "Build", "Ship", "Build"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Build", "Plan", "Ship"}, templatePhaseNames(tpl.Phases))

	loaded, err := f.templates.GetTemplate(f.ctx, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "Software", loaded.Industry.Name)
	assert.Len(t, loaded.Phases, 3)

	cases := map[string]struct {
		in    CreateTemplateInput
		field string
	}{
		"same name any case": {CreateTemplateInput{software.ID, "AGILE", []string{"Other"}}, "template_name"},
		"same phase set":     {CreateTemplateInput{software.ID, "Waterfall", []string{"ship", "plan", "BUILD"}}, "phases"},
		"phases repeat case": {CreateTemplateInput{software.ID, "Mixed", []string{"Design", "design", "Build"}}, "phases"},
		"no phases":          {CreateTemplateInput{software.ID, "Empty", []string{"  "}}, "phases"},
		"unknown industry":   {CreateTemplateInput{uuid.New(), "Lean", []string{"Plan"}}, "industry"},
		"blank name":         {CreateTemplateInput{software.ID, "", []string{"Plan"}}, "template_name"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.templates.CreateTemplate(f.ctx, alice.ID, tc.in)
			se := requireKind(t, err, KindValidation)
			assert.Equal(t, tc.field, se.Field)
		})
	}

	// A subset is a different set.
	_, err = f.templates.CreateTemplate(f.ctx, alice.ID, CreateTemplateInput{software.ID, "Lean", []string{"Plan", "Build"}})
	require.NoError(t, err)

	// Same name in another industry is fine.
	hardware := f.industry("Hardware")
	_, err = f.templates.CreateTemplate(f.ctx, alice.ID, CreateTemplateInput{hardware.ID, "Agile", []string{"Plan", "Build", "Ship"}})
	require.NoError(t, err)

	assert.EqualValues(t, 3, f.count(&models.Template{}, "1 = 1"))
}

func TestSearchTemplates(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice")
	software := f.industry("Software")

	_, err := f.templates.CreateTemplate(f.ctx, alice.ID, CreateTemplateInput{software.ID, "Agile Sprint", []string{"Plan"}})
	require.NoError(t, err)

	found, err := f.templates.SearchTemplates(f.ctx, "")
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = f.templates.SearchTemplates(f.ctx, "sprint")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Software", found[0].Industry.Name)
	assert.Len(t, found[0].Phases, 1)
}

func TestDeleteIndustryMovesTemplates(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice")
	software := f.industry("Software")

	other, err := f.templates.EnsureDefaultIndustry(f.ctx)
	require.NoError(t, err)

	_, err = f.templates.CreateTemplate(f.ctx, alice.ID, CreateTemplateInput{other.ID, "Agile", []string{"Draft"}})
	require.NoError(t, err)
	moved, err := f.templates.CreateTemplate(f.ctx, alice.ID, CreateTemplateInput{software.ID, "Agile", []string{"Plan"}})
	require.NoError(t, err)

	require.NoError(t, f.templates.DeleteIndustry(f.ctx, software.ID))

	loaded, err := f.templates.GetTemplate(f.ctx, moved.ID)
	require.NoError(t, err)
	assert.Equal(t, other.ID, loaded.IndustryID)
	assert.Equal(t, "Agile (1)", loaded.Name)

	err = f.templates.DeleteIndustry(f.ctx, other.ID)
	requireKind(t, err, KindValidation)

	requireKind(t, f.templates.DeleteIndustry(f.ctx, software.ID), KindNotFound)
}

func TestDeleteTemplate(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.user("alice"), f.user("bob")
	software := f.industry("Software")
	org := f.org("Acme", alice)

	tpl, err := f.templates.CreateTemplate(f.ctx, alice.ID, CreateTemplateInput{software.ID, "Agile", []string{"Plan"}})
	require.NoError(t, err)
	unused, err := f.templates.CreateTemplate(f.ctx, alice.ID, CreateTemplateInput{software.ID, "Lean", []string{"Build"}})
	require.NoError(t, err)

	f.project(org, alice, "Website relaunch", &tpl.ID)

	requireKind(t, f.templates.DeleteTemplate(f.ctx, tpl.ID, bob.ID), KindForbidden)
	requireKind(t, f.templates.DeleteTemplate(f.ctx, tpl.ID, alice.ID), KindConflict)

	require.NoError(t, f.templates.DeleteTemplate(f.ctx, unused.ID, alice.ID))
	assert.Zero(t, f.count(&models.TemplatePhase{}, "template_id = ?", unused.ID))

	requireKind(t, f.templates.DeleteTemplate(f.ctx, unused.ID, alice.ID), KindNotFound)
}

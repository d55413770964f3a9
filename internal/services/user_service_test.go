package services

import (
	"testing"

	"github.com/monocle-dev/pms/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	f := newFixture(t)

	u, err := f.users.Register(f.ctx, RegisterInput{Username: "Alice Liddell", Email: " Alice@Example.com ", Password: testPassword})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, "alice-liddell", u.UsernameSlug)
	assert.NotEqual(t, testPassword, u.PasswordHash)

	twin, err := f.users.Register(f.ctx, RegisterInput{Username: "alice.liddell", Email: "twin@example.com", Password: testPassword})
	require.NoError(t, err)
	assert.Equal(t, "alice-liddell-1", twin.UsernameSlug)

	accented, err := f.users.Register(f.ctx, RegisterInput{Username: "Zoë Brontë", Email: "zoe@example.com", Password: testPassword})
	require.NoError(t, err)
	assert.Equal(t, "Zoë Brontë", accented.Username)

	cases := map[string]struct {
		in    RegisterInput
		field string
	}{
		"taken username": {RegisterInput{"Alice Liddell", "other@example.com", testPassword}, "username"},
		"taken email":    {RegisterInput{"someone", "ALICE@example.com", testPassword}, "email"},
		"bad username":   {RegisterInput{"no!pe", "nope@example.com", testPassword}, "username"},
		"bad email":      {RegisterInput{"nope", "not-an-email", testPassword}, "email"},
		"weak password":  {RegisterInput{"nope", "nope@example.com", "12345678"}, "password"},
		"long password":  {RegisterInput{"nope", "nope@example.com", overlongPassword}, "password"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.users.Register(f.ctx, tc.in)
			se := requireKind(t, err, KindValidation)
			assert.Equal(t, tc.field, se.Field)
		})
	}
}

func TestAuthenticateUser(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice")

	u, err := f.users.Authenticate(f.ctx, "alice", testPassword)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, u.ID)

	u, err = f.users.Authenticate(f.ctx, "ALICE@example.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, u.ID)

	for _, login := range [][2]string{{"alice", "wrong-password"}, {"ghost", testPassword}, {"", ""}} {
		_, err := f.users.Authenticate(f.ctx, login[0], login[1])
		se := requireKind(t, err, KindValidation)
		assert.Equal(t, invalidCredentials, se.Message)
	}

	assert.False(t, f.users.VerifyCredential(nil, testPassword))
	assert.False(t, f.users.VerifyCredential(alice, ""))
	assert.True(t, f.users.VerifyCredential(alice, testPassword))
}

func TestLookups(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice")

	u, err := f.users.LookupByUsername(f.ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, u.ID)

	u, err = f.users.LookupByEmail(f.ctx, "Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, u.ID)

	_, err = f.users.LookupByUsername(f.ctx, "bob")
	requireKind(t, err, KindNotFound)
}

func TestUpdateUsername(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice")
	f.user("bob")

	_, err := f.users.UpdateUsername(f.ctx, alice.ID, "bob")
	requireKind(t, err, KindValidation)

	u, err := f.users.UpdateUsername(f.ctx, alice.ID, "Alice Cooper")
	require.NoError(t, err)
	assert.Equal(t, "Alice Cooper", u.Username)
	assert.Equal(t, "alice-cooper", u.UsernameSlug)

	stored, err := f.users.Get(f.ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice-cooper", stored.UsernameSlug)
}

func TestDeleteAccount(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.user("alice"), f.user("bob")
	org := f.org("Acme", alice)
	f.join(org, bob)

	p := f.project(org, alice, "Website relaunch", nil)
	f.addMembers(p, alice, bob)
	task := f.task(f.phase(p, alice, "design"), alice, "Wireframes")
	_, _, err := f.workflow.AssignTask(f.ctx, alice.ID, task.ID, []string{"bob"})
	require.NoError(t, err)

	se := requireKind(t, f.users.DeleteAccount(f.ctx, alice.ID, testPassword), KindValidation)
	assert.Equal(t, NonFieldErrors, se.Field)

	requireKind(t, f.users.DeleteAccount(f.ctx, bob.ID, "wrong-password"), KindValidation)

	require.NoError(t, f.users.DeleteAccount(f.ctx, bob.ID, testPassword))
	assert.Zero(t, f.count(&models.User{}, "id = ?", bob.ID))
	assert.Zero(t, f.count(&models.TaskAssignment{}, "user_id = ?", bob.ID))
	assert.Zero(t, f.count(&models.ProjectMembership{}, "user_id = ?", bob.ID))
	assert.Zero(t, f.count(&models.OrganizationMembership{}, "user_id = ?", bob.ID))
}

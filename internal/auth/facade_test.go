package auth

import (
	"context"
	"testing"
	"time"

	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/backend"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFacade_LoginSuccess(t *testing.T) {
	h := newHarness(t)
	seed(t, h.api.MemoryAPI, adaRegistration())

	ok := h.facade.Login(context.Background(), "ada@example.com", "secret1", RoleTeacher)
	require.True(t, ok)
	require.True(t, h.facade.IsAuthenticated())
	assert.Equal(t, "Ada Lovelace", h.facade.User().Name)
	assert.Zero(t, h.notes.Len(), "success is announced by the page, not the facade")
}

func TestFacade_LoginWrongPassword(t *testing.T) {
	h := newHarness(t)
	seed(t, h.api.MemoryAPI, adaRegistration())

	ok := h.facade.Login(context.Background(), "ada@example.com", "nope-nope", RoleTeacher)
	require.False(t, ok)
	assert.Nil(t, h.facade.User())
	assert.Equal(t, []notify.Notification{
		{Title: "Login failed", Description: "Invalid login credentials", Variant: notify.VariantDestructive},
	}, h.notes.Drain())
}

func TestFacade_LoginNetworkError(t *testing.T) {
	api := newFlakyAPI(true)
	api.grantErr = errOffline
	h := newHarnessWith(t, api, false)

	require.False(t, h.facade.Login(context.Background(), "ada@example.com", "secret1", RoleStudent))
	assert.Equal(t, []notify.Notification{
		{Title: "Login failed", Description: "An unexpected error occurred", Variant: notify.VariantDestructive},
	}, h.notes.Drain())
}

func TestFacade_RegisterSuccess(t *testing.T) {
	h := newHarnessWith(t, newFlakyAPI(false), false)

	ok := h.facade.Register(context.Background(), bobRegistration())
	require.True(t, ok)
	assert.Equal(t, []notify.Notification{
		notify.Success("Registration successful", "Please check your email to verify your account"),
	}, h.notes.Drain())
	assert.False(t, h.facade.IsAuthenticated())
}

func TestFacade_RegisterDuplicate(t *testing.T) {
	for _, autoConfirm := range []bool{true, false} {
		h := newHarnessWith(t, newFlakyAPI(autoConfirm), false)
		seed(t, h.api.MemoryAPI, adaRegistration())

		require.False(t, h.facade.Register(context.Background(), adaRegistration()))
		assert.Equal(t, []notify.Notification{
			{Title: "Registration failed", Description: "This email is already registered. Please try logging in instead.", Variant: notify.VariantDestructive},
		}, h.notes.Drain(), "autoConfirm=%v", autoConfirm)
	}
}

func TestFacade_RegisterRejectedByPolicy(t *testing.T) {
	h := newHarness(t)
	reg := bobRegistration()
	reg.Password = "abc12"

	require.False(t, h.facade.Register(context.Background(), reg))
	notes := h.notes.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, "Password should be at least 6 characters.", notes[0].Description)
}

func TestFacade_LogoutClearsState(t *testing.T) {
	h := newHarness(t)
	seed(t, h.api.MemoryAPI, bobRegistration())
	ctx := context.Background()
	require.True(t, h.facade.Login(ctx, "bob@example.com", "secret2", RoleStudent))

	h.facade.Logout(ctx)
	assert.Nil(t, h.facade.User())
	assert.Nil(t, h.facade.View().Session())

	// a second logout changes nothing
	h.facade.Logout(ctx)
	assert.Nil(t, h.facade.User())
	assert.Equal(t, []notify.Notification{
		notify.Success("Logged out successfully", ""),
		notify.Success("Logged out successfully", ""),
	}, h.notes.Drain())
	assert.Equal(t, 1, h.api.Calls("logout"))
}

func TestFacade_LogoutFailureKeepsUser(t *testing.T) {
	h := newHarness(t)
	seed(t, h.api.MemoryAPI, bobRegistration())
	ctx := context.Background()
	require.True(t, h.facade.Login(ctx, "bob@example.com", "secret2", RoleStudent))

	h.api.logoutErr = &backend.APIError{Status: 502, Message: "bad gateway"}
	h.facade.Logout(ctx)
	assert.NotNil(t, h.facade.User())
	assert.Equal(t, []notify.Notification{
		{Title: "Logout failed", Description: "An unexpected error occurred", Variant: notify.VariantDestructive},
	}, h.notes.Drain())
}

type panickingBackend struct{}

func (panickingBackend) SignInWithPassword(context.Context, string, string) (*backend.Session, error) {
	panic("boom")
}

func (panickingBackend) SignUp(context.Context, backend.SignUpRequest) (*backend.SignUpResult, error) {
	panic("boom")
}

func (panickingBackend) SignOut(context.Context) error { panic("boom") }

func TestFacade_RecoversFromPanics(t *testing.T) {
	client := backend.NewClient(newFlakyAPI(true), backend.Options{})
	m := NewManager(client, client, time.Second)
	q := notify.NewQueue(0)
	f := NewFacade(NewService(panickingBackend{}, nil, false), m, q)
	ctx := context.Background()

	assert.False(t, f.Login(ctx, "a@b.c", "secret1", RoleStudent))
	assert.False(t, f.Register(ctx, bobRegistration()))
	assert.NotPanics(t, func() { f.Logout(ctx) })

	notes := q.Drain()
	require.Len(t, notes, 3)
	for _, n := range notes {
		assert.Equal(t, "An unexpected error occurred", n.Description)
		assert.Equal(t, notify.VariantDestructive, n.Variant)
	}
}

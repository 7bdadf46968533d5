package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"culturax-service/internal/app"
	"culturax-service/internal/auth"
	"culturax-service/internal/domain"
	"culturax-service/internal/infra/memory"
	"culturax-service/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuth(t *testing.T) (*auth.Provider, *memory.Gateway) {
	t.Helper()
	gw := memory.NewGateway()
	p, err := auth.NewProvider("0123456789abcdef0123456789abcdef", time.Hour, gw, memory.NewTokenStore(), logging.Discard(), auth.WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)
	return p, gw
}

func TestGuard(t *testing.T) {
	user := &domain.User{ID: "u1"}
	loading := app.AuthSnapshot{Loading: true}
	guest := app.AuthSnapshot{}
	member := app.AuthSnapshot{User: user}
	admin := app.AuthSnapshot{User: user, IsAdmin: true}

	cases := []struct {
		name   string
		access app.Access
		snap   app.AuthSnapshot
		want   app.Decision
	}{
		{"public guest", app.AccessPublic, guest, app.Decision{Allow: true}},
		{"protected loading", app.AccessAuthenticated, loading, app.Decision{Loading: true, Message: "Loading..."}},
		{"protected guest", app.AccessAuthenticated, guest, app.Decision{RedirectTo: "/login"}},
		{"protected member", app.AccessAuthenticated, member, app.Decision{Allow: true}},
		{"admin loading", app.AccessAdmin, loading, app.Decision{Loading: true, Message: "Checking admin access…"}},
		{"admin guest", app.AccessAdmin, guest, app.Decision{RedirectTo: "/login"}},
		{"admin member", app.AccessAdmin, member, app.Decision{RedirectTo: "/"}},
		{"admin admin", app.AccessAdmin, admin, app.Decision{Allow: true}},
		{"login member", app.AccessGuest, member, app.Decision{RedirectTo: "/"}},
		{"login guest", app.AccessGuest, guest, app.Decision{Allow: true}},
		{"admin login admin", app.AccessAdminLogin, admin, app.Decision{RedirectTo: "/admin"}},
		{"admin login member", app.AccessAdminLogin, member, app.Decision{RedirectTo: "/"}},
		{"admin login guest", app.AccessAdminLogin, guest, app.Decision{Allow: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, app.Guard(tc.access, tc.snap))
		})
	}
}

func TestAuthStateResolvesSessionAndRole(t *testing.T) {
	provider, gw := newAuth(t)
	ctx := context.Background()
	session, err := provider.SignUp(ctx, "curator@example.com", "secret1", "curator")
	require.NoError(t, err)
	gw.SetRole(session.User.ID, domain.RoleAdmin)

	state := app.NewAuthState(provider, gw, logging.Discard())
	assert.True(t, state.Loading())
	state.Init(ctx, session.Token)
	defer state.Close()

	assert.False(t, state.Loading())
	require.NotNil(t, state.User())
	assert.Equal(t, session.User.ID, state.User().ID)
	assert.True(t, state.IsAdmin())

	anonymous := app.NewAuthState(provider, gw, logging.Discard())
	anonymous.Init(ctx, "not-a-token")
	defer anonymous.Close()
	assert.Nil(t, anonymous.User())
	assert.False(t, anonymous.Loading())
}

func TestAuthStateFollowsSignOutElsewhere(t *testing.T) {
	provider, gw := newAuth(t)
	ctx := context.Background()
	session, err := provider.SignUp(ctx, "asha@example.com", "secret1", "asha")
	require.NoError(t, err)
	other, err := provider.SignInWithPassword(ctx, "asha@example.com", "secret1")
	require.NoError(t, err)

	state := app.NewAuthState(provider, gw, logging.Discard())
	state.Init(ctx, session.Token)
	defer state.Close()

	var mu sync.Mutex
	var snaps []app.AuthSnapshot
	state.OnChange(func(s app.AuthSnapshot) {
		mu.Lock()
		snaps = append(snaps, s)
		mu.Unlock()
	})

	// another session of the same user does not affect this one
	require.NoError(t, provider.SignOut(ctx, other.Token))
	assert.NotNil(t, state.User())

	require.NoError(t, provider.SignOut(ctx, session.Token))
	assert.Nil(t, state.User())
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, snaps, 1)
	assert.Nil(t, snaps[0].User)
}

func TestAuthStateSignUpValidation(t *testing.T) {
	provider, gw := newAuth(t)
	state := app.NewAuthState(provider, gw, logging.Discard())
	state.Init(context.Background(), "")
	defer state.Close()

	_, err := state.SignUp(context.Background(), "asha@example.com", "12345", "asha")
	assert.Equal(t, "Password must be at least 6 characters", err.Error())
	_, err = state.SignUp(context.Background(), "asha@example.com", "123456", "  ")
	assert.Equal(t, "Username is required", err.Error())

	session, err := state.SignUp(context.Background(), " asha@example.com ", "123456", " asha ")
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", session.User.Email)
	profile, err := gw.GetProfile(context.Background(), session.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "asha", profile.Username)
	assert.NotNil(t, state.User())

	require.NoError(t, state.SignOut(context.Background()))
	assert.Nil(t, state.User())
	_, err = provider.GetSession(context.Background(), session.Token)
	assert.True(t, errors.Is(err, domain.ErrUnauthenticated))
}

func TestAdminSignInRefusesNonAdmins(t *testing.T) {
	provider, gw := newAuth(t)
	ctx := context.Background()
	_, err := provider.SignUp(ctx, "asha@example.com", "secret1", "asha")
	require.NoError(t, err)

	var signedOut int
	unsubscribe := provider.OnAuthStateChange(func(event domain.AuthEvent, _ domain.Session) {
		if event == domain.EventSignedOut {
			signedOut++
		}
	})
	defer unsubscribe()

	state := app.NewAuthState(provider, gw, logging.Discard())
	state.Init(ctx, "")
	defer state.Close()

	_, err = state.AdminSignIn(ctx, "asha@example.com", "secret1")
	assert.True(t, errors.Is(err, domain.ErrNotAdmin))
	assert.Nil(t, state.User())
	assert.False(t, state.IsAdmin())
	assert.Equal(t, 1, signedOut)

	_, err = state.AdminSignIn(ctx, "asha@example.com", "wrong-password")
	assert.True(t, errors.Is(err, domain.ErrInvalidCredentials))
}

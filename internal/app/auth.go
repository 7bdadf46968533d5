package app

import (
	"context"
	"strings"
	"sync"

	"culturax-service/internal/domain"
	"github.com/sirupsen/logrus"
)

const minPasswordLength = 6

// AuthSnapshot is a point-in-time copy of the auth state.
type AuthSnapshot struct {
	User    *domain.User `json:"user"`
	IsAdmin bool         `json:"isAdmin"`
	Loading bool         `json:"loading"`
}

// AuthState holds the current user and role for one client. It starts out
// loading; Init resolves the session and subscribes to gateway events, Close
// unsubscribes.
type AuthState struct {
	auth  AuthGateway
	roles RoleStore
	log   logrus.FieldLogger

	mu          sync.RWMutex
	session     domain.Session
	user        *domain.User
	isAdmin     bool
	loading     bool
	unsubscribe func()
	listeners   map[int]func(AuthSnapshot)
	nextID      int
}

func NewAuthState(auth AuthGateway, roles RoleStore, log logrus.FieldLogger) *AuthState {
	return &AuthState{
		auth:      auth,
		roles:     roles,
		log:       log,
		loading:   true,
		listeners: make(map[int]func(AuthSnapshot)),
	}
}

// Init resolves token (may be empty) and starts listening for sign-outs of that session.
func (a *AuthState) Init(ctx context.Context, token string) {
	unsubscribe := a.auth.OnAuthStateChange(a.handleEvent)

	var session domain.Session
	if token != "" {
		s, err := a.auth.GetSession(ctx, token)
		if err == nil {
			session = s
		}
	}
	isAdmin := a.resolveAdmin(ctx, session)

	a.mu.Lock()
	a.unsubscribe = unsubscribe
	a.applyLocked(session, isAdmin)
	a.loading = false
	a.mu.Unlock()
	a.notify()
}

// Close stops listening for gateway events.
func (a *AuthState) Close() {
	a.mu.Lock()
	unsubscribe := a.unsubscribe
	a.unsubscribe = nil
	a.listeners = make(map[int]func(AuthSnapshot))
	a.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (a *AuthState) User() *domain.User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.user == nil {
		return nil
	}
	u := *a.user
	return &u
}

func (a *AuthState) IsAdmin() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.isAdmin
}

func (a *AuthState) Loading() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loading
}

// Token returns the token of the current session, empty when signed out.
func (a *AuthState) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session.Token
}

func (a *AuthState) Snapshot() AuthSnapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshotLocked()
}

// OnChange registers fn for every state change and returns a function removing it.
func (a *AuthState) OnChange(fn func(AuthSnapshot)) func() {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	a.mu.Unlock()
	return func() {
		a.mu.Lock()
		delete(a.listeners, id)
		a.mu.Unlock()
	}
}

func (a *AuthState) SignIn(ctx context.Context, email, password string) (domain.Session, error) {
	session, err := a.auth.SignInWithPassword(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return domain.Session{}, err
	}
	a.set(ctx, session)
	return session, nil
}

// SignUp registers a user and signs them in.
func (a *AuthState) SignUp(ctx context.Context, email, password, username string) (domain.Session, error) {
	if len(password) < minPasswordLength {
		return domain.Session{}, domain.Invalid("Password must be at least 6 characters")
	}
	if strings.TrimSpace(username) == "" {
		return domain.Session{}, domain.Invalid("Username is required")
	}
	session, err := a.auth.SignUp(ctx, strings.TrimSpace(email), password, strings.TrimSpace(username))
	if err != nil {
		return domain.Session{}, err
	}
	a.set(ctx, session)
	return session, nil
}

func (a *AuthState) SignOut(ctx context.Context) error {
	token := a.Token()
	a.clear()
	if token == "" {
		return nil
	}
	return a.auth.SignOut(ctx, token)
}

// AdminSignIn signs in and requires the admin role. When the role lookup
// fails or the role is not admin the new session is signed out again and
// ErrNotAdmin is returned.
func (a *AuthState) AdminSignIn(ctx context.Context, email, password string) (domain.Session, error) {
	session, err := a.auth.SignInWithPassword(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return domain.Session{}, err
	}
	role, err := a.roles.GetRole(ctx, session.User.ID)
	if err != nil || role != domain.RoleAdmin {
		entry := a.log.WithField("user_id", session.User.ID)
		if err != nil {
			entry = entry.WithError(err)
		}
		entry.Warn("admin sign-in refused")
		if serr := a.auth.SignOut(ctx, session.Token); serr != nil {
			a.log.WithError(serr).Error("sign-out after refused admin sign-in failed")
		}
		a.clear()
		return domain.Session{}, domain.ErrNotAdmin
	}

	a.mu.Lock()
	a.applyLocked(session, true)
	a.loading = false
	a.mu.Unlock()
	a.notify()
	return session, nil
}

func (a *AuthState) set(ctx context.Context, session domain.Session) {
	isAdmin := a.resolveAdmin(ctx, session)
	a.mu.Lock()
	a.applyLocked(session, isAdmin)
	a.loading = false
	a.mu.Unlock()
	a.notify()
}

func (a *AuthState) clear() {
	a.mu.Lock()
	a.applyLocked(domain.Session{}, false)
	a.mu.Unlock()
	a.notify()
}

func (a *AuthState) resolveAdmin(ctx context.Context, session domain.Session) bool {
	if session.User.ID == "" {
		return false
	}
	role, err := a.roles.GetRole(ctx, session.User.ID)
	if err != nil {
		a.log.WithField("user_id", session.User.ID).WithError(err).Warn("role lookup failed")
		return false
	}
	return role == domain.RoleAdmin
}

func (a *AuthState) handleEvent(event domain.AuthEvent, session domain.Session) {
	if event != domain.EventSignedOut {
		return
	}
	a.mu.Lock()
	mine := a.session.Token != "" && a.session.Token == session.Token
	if mine {
		a.applyLocked(domain.Session{}, false)
	}
	a.mu.Unlock()
	if mine {
		a.notify()
	}
}

func (a *AuthState) applyLocked(session domain.Session, isAdmin bool) {
	a.session = session
	a.isAdmin = isAdmin
	if session.User.ID == "" {
		a.user = nil
		return
	}
	u := session.User
	a.user = &u
}

func (a *AuthState) snapshotLocked() AuthSnapshot {
	snap := AuthSnapshot{IsAdmin: a.isAdmin, Loading: a.loading}
	if a.user != nil {
		u := *a.user
		snap.User = &u
	}
	return snap
}

func (a *AuthState) notify() {
	a.mu.RLock()
	snap := a.snapshotLocked()
	fns := make([]func(AuthSnapshot), 0, len(a.listeners))
	for _, fn := range a.listeners {
		fns = append(fns, fn)
	}
	a.mu.RUnlock()
	for _, fn := range fns {
		fn(snap)
	}
}

// Access is the protection level of a route.
type Access int

const (
	AccessPublic Access = iota
	// AccessAuthenticated requires a signed-in user.
	AccessAuthenticated
	// AccessAdmin requires a signed-in admin.
	AccessAdmin
	// AccessGuest is for sign-in pages; signed-in users are sent home.
	AccessGuest
	// AccessAdminLogin sends admins to the console and other users home.
	AccessAdminLogin
)

// Decision is the outcome of guarding a route.
type Decision struct {
	Allow      bool   `json:"allow"`
	Loading    bool   `json:"loading"`
	RedirectTo string `json:"redirectTo,omitempty"`
	Message    string `json:"message,omitempty"`
}

// RouteAccess maps the page routes to their protection level.
var RouteAccess = map[string]Access{
	"/":            AccessPublic,
	"/login":       AccessGuest,
	"/signup":      AccessGuest,
	"/quizzes":     AccessPublic,
	"/quiz/:id":    AccessPublic,
	"/profile":     AccessAuthenticated,
	"/leaderboard": AccessPublic,
	"/feedback":    AccessAuthenticated,
	"/admin/login": AccessAdminLogin,
	"/admin":       AccessAdmin,
}

// Guard decides whether snap may view a route with the given access level.
// Redirect targets are always reachable for the same snapshot.
func Guard(access Access, snap AuthSnapshot) Decision {
	switch access {
	case AccessAuthenticated:
		if snap.Loading {
			return Decision{Loading: true, Message: "Loading..."}
		}
		if snap.User == nil {
			return Decision{RedirectTo: "/login"}
		}
	case AccessAdmin:
		if snap.Loading {
			return Decision{Loading: true, Message: "Checking admin access…"}
		}
		if snap.User == nil {
			return Decision{RedirectTo: "/login"}
		}
		if !snap.IsAdmin {
			return Decision{RedirectTo: "/"}
		}
	case AccessGuest:
		if snap.User != nil {
			return Decision{RedirectTo: "/"}
		}
	case AccessAdminLogin:
		if snap.IsAdmin {
			return Decision{RedirectTo: "/admin"}
		}
		if snap.User != nil {
			return Decision{RedirectTo: "/"}
		}
	}
	return Decision{Allow: true}
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"culturax-service/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// CredentialStore persists login credentials.
type CredentialStore interface {
	// CreateUser writes the credential and profile rows together and returns
	// domain.ErrEmailTaken for a registered email.
	CreateUser(ctx context.Context, email, passwordHash, username string) (domain.User, error)
	// FindCredentials returns domain.ErrInvalidCredentials for an unknown email.
	FindCredentials(ctx context.Context, email string) (domain.User, string, error)
}

// TokenStore tracks revoked session ids.
type TokenStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Claims are carried by every session token. Subject is the user id and ID
// the revocable session id.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Provider is a password based auth gateway issuing HS256 session tokens.
type Provider struct {
	secret     []byte
	ttl        time.Duration
	bcryptCost int
	creds      CredentialStore
	tokens     TokenStore
	log        logrus.FieldLogger
	validate   *validator.Validate

	mu        sync.RWMutex
	listeners map[int]func(domain.AuthEvent, domain.Session)
	nextID    int
}

type Option func(*Provider)

// WithBcryptCost overrides the hashing cost; tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(p *Provider) { p.bcryptCost = cost }
}

func NewProvider(secret string, ttl time.Duration, creds CredentialStore, tokens TokenStore, log logrus.FieldLogger, opts ...Option) (*Provider, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	p := &Provider{
		secret:     []byte(secret),
		ttl:        ttl,
		bcryptCost: bcrypt.DefaultCost,
		creds:      creds,
		tokens:     tokens,
		log:        log,
		validate:   validator.New(),
		listeners:  make(map[int]func(domain.AuthEvent, domain.Session)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (domain.Session, error) {
	user, hash, err := p.creds.FindCredentials(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return domain.Session{}, err
		}
		return domain.Session{}, fmt.Errorf("find credentials: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return domain.Session{}, domain.ErrInvalidCredentials
	}
	session, err := p.issue(user)
	if err != nil {
		return domain.Session{}, err
	}
	p.emit(domain.EventSignedIn, session)
	return session, nil
}

// SignUp creates credentials and a profile, then signs the user in.
func (p *Provider) SignUp(ctx context.Context, email, password, username string) (domain.Session, error) {
	email = strings.TrimSpace(email)
	if err := p.validate.Var(email, "required,email"); err != nil {
		return domain.Session{}, domain.Invalid("Unable to validate email address: invalid format")
	}
	if len(password) < 6 {
		return domain.Session{}, domain.Invalid("Password should be at least 6 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.bcryptCost)
	if err != nil {
		return domain.Session{}, fmt.Errorf("hash password: %w", err)
	}
	user, err := p.creds.CreateUser(ctx, email, string(hash), username)
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return domain.Session{}, err
		}
		return domain.Session{}, fmt.Errorf("create user: %w", err)
	}
	p.log.WithField("user_id", user.ID).Info("user signed up")

	session, err := p.issue(user)
	if err != nil {
		return domain.Session{}, err
	}
	p.emit(domain.EventSignedIn, session)
	return session, nil
}

// SignOut revokes token. Signing out an invalid token is a no-op.
func (p *Provider) SignOut(ctx context.Context, token string) error {
	claims, err := p.parse(token)
	if err != nil {
		return nil
	}
	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining <= 0 {
		return nil
	}
	if err := p.tokens.Revoke(ctx, claims.ID, remaining); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	p.emit(domain.EventSignedOut, sessionFromClaims(token, claims))
	return nil
}

func (p *Provider) GetSession(ctx context.Context, token string) (domain.Session, error) {
	claims, err := p.parse(token)
	if err != nil {
		return domain.Session{}, domain.ErrUnauthenticated
	}
	revoked, err := p.tokens.IsRevoked(ctx, claims.ID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return domain.Session{}, domain.ErrUnauthenticated
	}
	return sessionFromClaims(token, claims), nil
}

func (p *Provider) OnAuthStateChange(fn func(event domain.AuthEvent, session domain.Session)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

func (p *Provider) issue(user domain.User) (domain.Session, error) {
	now := time.Now()
	claims := Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return domain.Session{}, fmt.Errorf("sign token: %w", err)
	}
	return sessionFromClaims(signed, &claims), nil
}

func (p *Provider) parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" || claims.ID == "" || claims.ExpiresAt == nil {
		return nil, errors.New("incomplete claims")
	}
	return claims, nil
}

func (p *Provider) emit(event domain.AuthEvent, session domain.Session) {
	p.mu.RLock()
	fns := make([]func(domain.AuthEvent, domain.Session), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.RUnlock()
	for _, fn := range fns {
		fn(event, session)
	}
}

func sessionFromClaims(token string, claims *Claims) domain.Session {
	return domain.Session{
		Token:     token,
		User:      domain.User{ID: claims.Subject, Email: claims.Email},
		ExpiresAt: claims.ExpiresAt.Time,
	}
}

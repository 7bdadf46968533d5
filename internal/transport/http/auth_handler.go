package http

import (
	"net/http"
	"strings"
	"time"

	"culturax-service/internal/app"
	"culturax-service/internal/domain"
	"github.com/gin-gonic/gin"
)

const (
	authStateKey  = "culturax.auth"
	sessionCookie = "session"
)

type credentialsRequest struct {
	Email    string `json:"email" form:"email" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

type signupRequest struct {
	Email    string `json:"email" form:"email" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
	Username string `json:"username" form:"username"`
}

type sessionResponse struct {
	Token      string      `json:"token"`
	User       domain.User `json:"user"`
	ExpiresAt  time.Time   `json:"expiresAt"`
	IsAdmin    bool        `json:"isAdmin"`
	RedirectTo string      `json:"redirectTo"`
}

// withAuth resolves the request's session into an AuthState that lives for
// the duration of the request (or the websocket it upgrades to).
func (h *handlers) withAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		state := app.NewAuthState(h.Auth, h.Roles, h.log)
		state.Init(c.Request.Context(), sessionToken(c))
		defer state.Close()
		c.Set(authStateKey, state)
		c.Next()
	}
}

func (h *handlers) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if authState(c).User() == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": domain.ErrUnauthenticated.Error(), "redirectTo": "/login"})
			return
		}
		c.Next()
	}
}

func (h *handlers) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		state := authState(c)
		if state.User() == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": domain.ErrUnauthenticated.Error(), "redirectTo": "/login"})
			return
		}
		if !state.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": domain.ErrNotAdmin.Error(), "redirectTo": "/"})
			return
		}
		c.Next()
	}
}

func (h *handlers) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}
	state := authState(c)
	session, err := state.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	h.startSession(c, session, state.IsAdmin(), "/")
}

func (h *handlers) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}
	state := authState(c)
	session, err := state.SignUp(c.Request.Context(), req.Email, req.Password, req.Username)
	if err != nil {
		respondError(c, err)
		return
	}
	h.startSession(c, session, state.IsAdmin(), "/")
}

func (h *handlers) adminLogin(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}
	session, err := authState(c).AdminSignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	h.startSession(c, session, true, "/admin")
}

func (h *handlers) logout(c *gin.Context) {
	if err := authState(c).SignOut(c.Request.Context()); err != nil {
		h.log.WithError(err).Warn("sign-out failed")
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"redirectTo": "/"})
}

func (h *handlers) startSession(c *gin.Context, session domain.Session, isAdmin bool, redirectTo string) {
	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, session.Token, maxAge, "/", "", false, true)
	c.JSON(http.StatusOK, sessionResponse{
		Token:      session.Token,
		User:       session.User,
		ExpiresAt:  session.ExpiresAt,
		IsAdmin:    isAdmin,
		RedirectTo: redirectTo,
	})
}

func authState(c *gin.Context) *app.AuthState {
	return c.MustGet(authStateKey).(*app.AuthState)
}

func currentUserID(c *gin.Context) string {
	if u := authState(c).User(); u != nil {
		return u.ID
	}
	return ""
}

// sessionToken reads the bearer token, falling back to the session cookie.
func sessionToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	token, err := c.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	return token
}

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"culturax-service/internal/app"
	"culturax-service/internal/auth"
	"culturax-service/internal/domain"
	"culturax-service/internal/infra/memory"
	"culturax-service/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	router   *gin.Engine
	gw       *memory.Gateway
	provider *auth.Provider
	play     *app.PlayService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logging.Discard()

	gw := memory.NewGateway()
	provider, err := auth.NewProvider("0123456789abcdef0123456789abcdef", time.Hour, gw, memory.NewTokenStore(), log, auth.WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)

	catalog := memory.NewQuizCatalog(app.NewContentLoader(gw, gw), time.Minute, nil)
	play := app.NewPlayService(catalog, gw, memory.NewSessionStore(), log)
	services := Services{
		Auth:        provider,
		Roles:       gw,
		Catalog:     app.NewCatalogService(gw, catalog),
		Play:        play,
		Leaderboard: app.NewLeaderboardService(gw, app.DefaultLeaderboardLimit),
		Profiles:    app.NewProfileService(gw, gw),
		Feedback:    app.NewFeedbackService(gw),
		Admin:       app.NewAdminService(gw, catalog, memory.NewDraftStore(), log, nil),
	}
	return &testEnv{router: NewRouter(services, log, nil, nil), gw: gw, provider: provider, play: play}
}

func (e *testEnv) signUp(t *testing.T, email, username string) domain.Session {
	t.Helper()
	session, err := e.provider.SignUp(context.Background(), email, "secret1", username)
	require.NoError(t, err)
	return session
}

func (e *testEnv) admin(t *testing.T) domain.Session {
	t.Helper()
	session := e.signUp(t, "curator@example.com", "curator")
	e.gw.SetRole(session.User.ID, domain.RoleAdmin)
	return session
}

func (e *testEnv) seedQuiz(t *testing.T, timeLimit int) string {
	t.Helper()
	ctx := context.Background()
	id, err := e.gw.InsertQuiz(ctx, domain.Quiz{Title: "Mughal Architecture", Difficulty: domain.DifficultyEasy, TimeLimit: timeLimit, IsActive: true})
	require.NoError(t, err)
	require.NoError(t, e.gw.InsertQuestions(ctx, app.QuestionRows(id, app.SampleQuestions())))
	return id
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestPageGuards(t *testing.T) {
	env := newTestEnv(t)
	user := env.signUp(t, "asha@example.com", "asha")
	admin := env.admin(t)

	cases := []struct {
		name     string
		path     string
		token    string
		status   int
		location string
	}{
		{"profile needs sign-in", "/profile", "", http.StatusSeeOther, "/login"},
		{"profile for user", "/profile", user.Token, http.StatusOK, ""},
		{"login hides for user", "/login", user.Token, http.StatusSeeOther, "/"},
		{"admin needs sign-in", "/admin", "", http.StatusSeeOther, "/login"},
		{"admin refuses user", "/admin", user.Token, http.StatusSeeOther, "/"},
		{"admin for admin", "/admin", admin.Token, http.StatusOK, ""},
		{"admin login sends admin to console", "/admin/login", admin.Token, http.StatusSeeOther, "/admin"},
		{"admin login sends user home", "/admin/login", user.Token, http.StatusSeeOther, "/"},
		{"public leaderboard", "/leaderboard", "", http.StatusOK, ""},
		{"unknown page", "/nowhere", "", http.StatusNotFound, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(http.MethodGet, tc.path, tc.token, nil)
			assert.Equal(t, tc.status, rec.Code)
			if tc.location != "" {
				assert.Equal(t, tc.location, rec.Header().Get("Location"))
				// the target renders for the same session, and repeating the hop changes nothing
				for i := 0; i < 2; i++ {
					next := env.do(http.MethodGet, tc.location, tc.token, nil)
					assert.Equal(t, http.StatusOK, next.Code, "redirect target %s", tc.location)
					again := env.do(http.MethodGet, tc.path, tc.token, nil)
					assert.Equal(t, tc.location, again.Header().Get("Location"))
				}
			}
		})
	}
}

func TestPageWhileAuthLoading(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &handlers{}
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(authStateKey, app.NewAuthState(nil, nil, logging.Discard()))
	})
	r.GET("/admin", h.page("/admin", func(c *gin.Context) { c.Status(http.StatusOK) }))
	r.GET("/leaderboard", h.page("/leaderboard", func(c *gin.Context) { c.Status(http.StatusOK) }))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var decision app.Decision
	decode(t, rec, &decision)
	assert.True(t, decision.Loading)
	assert.Empty(t, decision.RedirectTo)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leaderboard", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginSetsSessionCookie(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, "asha@example.com", "asha")

	rec := env.do(http.MethodPost, "/login", "", map[string]string{"email": "asha@example.com", "password": "nope!!"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodPost, "/login", "", map[string]string{"email": "asha@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp sessionResponse
	decode(t, rec, &resp)
	assert.Equal(t, "/", resp.RedirectTo)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, resp.Token, cookie.Value)
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.AddCookie(cookie)
	profile := httptest.NewRecorder()
	env.router.ServeHTTP(profile, req)
	assert.Equal(t, http.StatusOK, profile.Code)

	out := env.do(http.MethodPost, "/logout", resp.Token, nil)
	assert.Equal(t, http.StatusOK, out.Code)
	assert.Equal(t, http.StatusSeeOther, env.do(http.MethodGet, "/profile", resp.Token, nil).Code)
}

func TestAdminLoginRefusesNonAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, "asha@example.com", "asha")
	env.admin(t)

	rec := env.do(http.MethodPost, "/admin/login", "", map[string]string{"email": "asha@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), domain.ErrNotAdmin.Error())

	rec = env.do(http.MethodPost, "/admin/login", "", map[string]string{"email": "curator@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp sessionResponse
	decode(t, rec, &resp)
	assert.Equal(t, "/admin", resp.RedirectTo)
	assert.True(t, resp.IsAdmin)
}

func TestSignupValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/signup", "", map[string]string{"email": "a@example.com", "password": "123", "username": "a"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "at least 6 characters")

	rec = env.do(http.MethodPost, "/signup", "", map[string]string{"email": "a@example.com", "password": "123456", "username": "a"})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(http.MethodPost, "/signup", "", map[string]string{"email": "a@example.com", "password": "123456", "username": "b"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPlayOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	user := env.signUp(t, "asha@example.com", "asha")
	quizID := env.seedQuiz(t, 0)

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, "/quiz/"+quizID+"/play", "", nil).Code)

	rec := env.do(http.MethodPost, "/quiz/"+quizID+"/play", user.Token, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var view app.PlayView
	decode(t, rec, &view)
	assert.Equal(t, 2, view.Total)
	assert.NotContains(t, rec.Body.String(), "correctAnswer")
	base := "/play/" + view.SessionID

	rec = env.do(http.MethodPost, base+"/answer", user.Token, map[string]any{"option": "b"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = env.do(http.MethodPost, base+"/next", user.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &view)
	assert.Equal(t, 1, view.Current)

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, base+"/answer", user.Token, map[string]any{"index": 7, "option": "A"}).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, base+"/answer", user.Token, map[string]any{"option": "E"}).Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodPost, base+"/answer", user.Token, map[string]any{"index": 1, "option": "A"}).Code)

	other := env.signUp(t, "ravi@example.com", "ravi")
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, base, other.Token, nil).Code)

	rec = env.do(http.MethodPost, base+"/submit", user.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res app.PlayResult
	decode(t, rec, &res)
	assert.Equal(t, 2, res.CorrectAnswers)
	assert.Equal(t, 20, res.Score)
	assert.True(t, res.Saved)
	assert.Equal(t, "/profile", res.RedirectTo)

	assert.Len(t, env.gw.Attempts(), 1)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPost, base+"/submit", user.Token, nil).Code)

	rec = env.do(http.MethodGet, "/leaderboard", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"asha"`)
}

func TestClosePlayDiscardsSession(t *testing.T) {
	env := newTestEnv(t)
	user := env.signUp(t, "asha@example.com", "asha")
	quizID := env.seedQuiz(t, 600)

	rec := env.do(http.MethodPost, "/quiz/"+quizID+"/play", user.Token, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var view app.PlayView
	decode(t, rec, &view)
	assert.Equal(t, 600, view.TimeLeft)

	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, "/play/"+view.SessionID, user.Token, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/play/"+view.SessionID, user.Token, nil).Code)
	assert.Empty(t, env.gw.Attempts())
}

func TestFeedback(t *testing.T) {
	env := newTestEnv(t)
	user := env.signUp(t, "asha@example.com", "asha")

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, "/feedback", "", map[string]string{"subject": "Hi", "message": "Hello"}).Code)

	rec := env.do(http.MethodPost, "/feedback", user.Token, map[string]string{"subject": "  ", "message": "Hello"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Subject is required")

	rec = env.do(http.MethodPost, "/feedback", user.Token, map[string]string{"subject": " Monuments ", "message": "More forts please"})
	require.Equal(t, http.StatusCreated, rec.Code)
	feedback := env.gw.Feedback()
	require.Len(t, feedback, 1)
	assert.Equal(t, "Monuments", feedback[0].Subject)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	env := newTestEnv(t)
	user := env.signUp(t, "asha@example.com", "asha")

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/admin/analytics", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, "/admin/analytics", user.Token, nil).Code)
}

func TestAdminImportAndPublish(t *testing.T) {
	env := newTestEnv(t)
	admin := env.admin(t)

	rec := env.do(http.MethodPost, "/admin/draft/import?name=broken.json", admin.Token, []byte(`{"questions": [`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid JSON")

	rec = env.do(http.MethodPost, "/admin/draft/submit", admin.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please import a JSON file")

	template, err := app.SampleTemplate()
	require.NoError(t, err)
	rec = env.do(http.MethodPost, "/admin/draft/import?name=heritage.json", admin.Token, template)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var draft draftResponse
	decode(t, rec, &draft)
	assert.Len(t, draft.Draft.Questions, 2)
	assert.Equal(t, "heritage.json", draft.Draft.FileName)

	rec = env.do(http.MethodPut, "/admin/draft", admin.Token, app.QuizForm{Title: "Heritage Basics", Description: "Warm-up", Difficulty: "easy", TimeLimit: 600})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &draft)
	assert.Equal(t, 80, draft.Completion)

	rec = env.do(http.MethodPost, "/admin/draft/submit", admin.Token, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		QuizID string        `json:"quizId"`
		Draft  draftResponse `json:"draft"`
	}
	decode(t, rec, &created)
	assert.NotEmpty(t, created.QuizID)
	assert.Empty(t, created.Draft.Draft.Questions)

	rec = env.do(http.MethodGet, "/quizzes", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Heritage Basics")

	rec = env.do(http.MethodGet, "/admin/quizzes/"+created.QuizID+"/preview", admin.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var preview app.QuizPreview
	decode(t, rec, &preview)
	assert.Len(t, preview.Questions, 2)

	rec = env.do(http.MethodGet, "/admin/analytics", admin.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats domain.Analytics
	decode(t, rec, &stats)
	assert.Equal(t, 1, stats.Quizzes)

	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, "/admin/quizzes/"+created.QuizID, admin.Token, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/quiz/"+created.QuizID, "", nil).Code)
}

func TestAdminMultipartImportAndExport(t *testing.T) {
	env := newTestEnv(t)
	admin := env.admin(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "upload.json")
	require.NoError(t, err)
	_, err = fw.Write([]byte(`[{"prompt":"Where is Hampi?","options":{"A":"Karnataka","B":"Kerala","C":"Goa","D":"Bihar"},"correctAnswer":"a"}]`))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/admin/draft/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+admin.Token)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(http.MethodGet, "/admin/draft/export", admin.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), app.PreviewFileName)
	assert.True(t, strings.Contains(rec.Body.String(), "Where is Hampi?"))

	rec = env.do(http.MethodGet, "/admin/template", admin.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), app.TemplateFileName)

	assert.Equal(t, http.StatusOK, env.do(http.MethodDelete, "/admin/draft", admin.Token, nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/admin/draft/export", admin.Token, nil).Code)
}

func TestAdminCreateMonument(t *testing.T) {
	env := newTestEnv(t)
	admin := env.admin(t)

	rec := env.do(http.MethodPost, "/admin/monuments", admin.Token, app.MonumentForm{Name: "Konark", ARMarkerURL: "not a url"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/admin/monuments", admin.Token, app.MonumentForm{Name: "Konark Sun Temple", Tags: "temple, , odisha"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var monument domain.Monument
	decode(t, rec, &monument)
	assert.Equal(t, []string{"temple", "odisha"}, monument.Tags)
	assert.Equal(t, domain.MonumentDraft, monument.Status)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

package http

import (
	"net/http"

	"culturax-service/internal/app"
	"culturax-service/internal/logging"
	"culturax-service/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Services are the use cases served over HTTP.
type Services struct {
	Auth        app.AuthGateway
	Roles       app.RoleStore
	Catalog     *app.CatalogService
	Play        *app.PlayService
	Leaderboard *app.LeaderboardService
	Profiles    *app.ProfileService
	Feedback    *app.FeedbackService
	Admin       *app.AdminService
}

type handlers struct {
	Services
	log      logrus.FieldLogger
	upgrader websocket.Upgrader
}

// NewRouter wires every CulturaX route. metricsHandler may be nil.
func NewRouter(s Services, log logrus.FieldLogger, m *metrics.Metrics, metricsHandler http.Handler) *gin.Engine {
	h := &handlers{
		Services: s,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware(log), m.Middleware())

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	site := r.Group("/", h.withAuth())

	site.GET("/", h.page("/", h.homePage))
	site.GET("/login", h.page("/login", h.staticPage("login")))
	site.GET("/signup", h.page("/signup", h.staticPage("signup")))
	site.GET("/quizzes", h.page("/quizzes", h.quizzesPage))
	site.GET("/quiz/:id", h.page("/quiz/:id", h.quizPage))
	site.GET("/profile", h.page("/profile", h.profilePage))
	site.GET("/leaderboard", h.page("/leaderboard", h.leaderboardPage))
	site.GET("/feedback", h.page("/feedback", h.staticPage("feedback")))
	site.GET("/admin/login", h.page("/admin/login", h.staticPage("admin-login")))
	site.GET("/admin", h.page("/admin", h.adminPage))

	site.POST("/login", h.login)
	site.POST("/signup", h.signup)
	site.POST("/logout", h.logout)
	site.POST("/admin/login", h.adminLogin)
	site.POST("/feedback", h.requireUser(), h.submitFeedback)

	site.POST("/quiz/:id/play", h.requireUser(), h.startPlay)
	play := site.Group("/play/:sid", h.requireUser())
	play.GET("", h.viewPlay)
	play.POST("/answer", h.answerPlay)
	play.POST("/next", h.nextPlay)
	play.POST("/previous", h.previousPlay)
	play.POST("/submit", h.submitPlay)
	play.DELETE("", h.closePlay)
	play.GET("/ws", h.servePlayWS)

	admin := site.Group("/admin", h.requireAdmin())
	admin.GET("/analytics", h.analytics)
	admin.GET("/quizzes", h.adminQuizzes)
	admin.GET("/draft", h.getDraft)
	admin.PUT("/draft", h.updateDraft)
	admin.DELETE("/draft", h.resetDraft)
	admin.POST("/draft/import", h.importDraft)
	admin.GET("/draft/export", h.exportDraft)
	admin.GET("/template", h.downloadTemplate)
	admin.POST("/draft/submit", h.submitDraft)
	admin.POST("/quizzes/:id/edit", h.editQuiz)
	admin.GET("/quizzes/:id/preview", h.previewQuiz)
	admin.DELETE("/quizzes/:id", h.deleteQuiz)
	admin.POST("/monuments", h.createMonument)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Page not found", "path": c.Request.URL.Path})
	})
	return r
}

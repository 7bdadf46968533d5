package http

import (
	"net/http"

	"culturax-service/internal/app"
	"culturax-service/internal/domain"
	"github.com/gin-gonic/gin"
)

// quizSummary is a quiz as listed to players: no questions, only their count.
type quizSummary struct {
	domain.Quiz
	QuestionCount int `json:"questionCount"`
}

// page guards a page route with its access level before rendering it.
func (h *handlers) page(route string, render gin.HandlerFunc) gin.HandlerFunc {
	access := app.RouteAccess[route]
	return func(c *gin.Context) {
		decision := app.Guard(access, authState(c).Snapshot())
		switch {
		case decision.Loading:
			c.JSON(http.StatusServiceUnavailable, decision)
		case decision.RedirectTo != "":
			c.Redirect(http.StatusSeeOther, decision.RedirectTo)
		default:
			render(c)
		}
	}
}

func (h *handlers) staticPage(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"page": name, "auth": authState(c).Snapshot()})
	}
}

func (h *handlers) homePage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"page": "home",
		"auth": authState(c).Snapshot(),
		"links": gin.H{
			"quizzes":     "/quizzes",
			"leaderboard": "/leaderboard",
			"feedback":    "/feedback",
		},
	})
}

func (h *handlers) quizzesPage(c *gin.Context) {
	quizzes, err := h.Catalog.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"page": "quizzes", "quizzes": quizzes})
}

func (h *handlers) quizPage(c *gin.Context) {
	quiz, err := h.Catalog.Quiz(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	summary := quizSummary{Quiz: quiz, QuestionCount: len(quiz.Questions)}
	summary.Questions = nil
	c.JSON(http.StatusOK, gin.H{"page": "quiz", "quiz": summary, "auth": authState(c).Snapshot()})
}

func (h *handlers) profilePage(c *gin.Context) {
	overview, err := h.Profiles.Overview(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"page": "profile", "profile": overview})
}

func (h *handlers) leaderboardPage(c *gin.Context) {
	entries, err := h.Leaderboard.Top(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"page": "leaderboard", "entries": entries})
}

func (h *handlers) adminPage(c *gin.Context) {
	draft := h.Admin.Draft(currentUserID(c))
	c.JSON(http.StatusOK, gin.H{"page": "admin", "draft": draft, "completion": draft.Completion()})
}

func (h *handlers) submitFeedback(c *gin.Context) {
	var form app.FeedbackForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Subject and message are required"})
		return
	}
	if err := h.Feedback.Submit(c.Request.Context(), currentUserID(c), form); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Thank you for your feedback!"})
}

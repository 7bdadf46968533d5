package http

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"culturax-service/internal/app"
	"culturax-service/internal/domain"
	"github.com/gin-gonic/gin"
)

// maxImportBytes bounds an uploaded question file.
const maxImportBytes = 1 << 20

type draftResponse struct {
	Draft      app.AdminDraft `json:"draft"`
	Completion int            `json:"completion"`
}

func newDraftResponse(d app.AdminDraft) draftResponse {
	return draftResponse{Draft: d, Completion: d.Completion()}
}

func (h *handlers) analytics(c *gin.Context) {
	stats, err := h.Admin.Analytics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *handlers) adminQuizzes(c *gin.Context) {
	quizzes, err := h.Admin.ListQuizzes(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quizzes": quizzes})
}

func (h *handlers) getDraft(c *gin.Context) {
	c.JSON(http.StatusOK, newDraftResponse(h.Admin.Draft(currentUserID(c))))
}

func (h *handlers) updateDraft(c *gin.Context) {
	var form app.QuizForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid quiz details"})
		return
	}
	draft, err := h.Admin.UpdateDraftForm(currentUserID(c), form)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDraftResponse(draft))
}

func (h *handlers) resetDraft(c *gin.Context) {
	c.JSON(http.StatusOK, newDraftResponse(h.Admin.ResetDraft(currentUserID(c))))
}

// importDraft accepts a multipart "file" field or the raw JSON body.
func (h *handlers) importDraft(c *gin.Context) {
	fileName, data, err := readImport(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	draft, err := h.Admin.ImportDraft(currentUserID(c), fileName, data)
	if err != nil {
		if domain.IsValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "draft": draft})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDraftResponse(draft))
}

func (h *handlers) exportDraft(c *gin.Context) {
	draft := h.Admin.Draft(currentUserID(c))
	if len(draft.Questions) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "There are no questions to export."})
		return
	}
	data, err := app.ExportQuestionSet(draft.Questions)
	if err != nil {
		respondError(c, err)
		return
	}
	attachment(c, app.PreviewFileName, data)
}

func (h *handlers) downloadTemplate(c *gin.Context) {
	data, err := app.SampleTemplate()
	if err != nil {
		respondError(c, err)
		return
	}
	attachment(c, app.TemplateFileName, data)
}

func (h *handlers) submitDraft(c *gin.Context) {
	adminID := currentUserID(c)
	quizID, err := h.Admin.SubmitDraft(c.Request.Context(), adminID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"quizId": quizID, "draft": newDraftResponse(h.Admin.Draft(adminID))})
}

func (h *handlers) editQuiz(c *gin.Context) {
	draft, err := h.Admin.EditQuiz(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDraftResponse(draft))
}

func (h *handlers) previewQuiz(c *gin.Context) {
	preview, err := h.Admin.PreviewQuiz(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

func (h *handlers) deleteQuiz(c *gin.Context) {
	if err := h.Admin.DeleteQuiz(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) createMonument(c *gin.Context) {
	var form app.MonumentForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid monument details"})
		return
	}
	monument, err := h.Admin.CreateMonument(c.Request.Context(), currentUserID(c), form)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, monument)
}

func readImport(c *gin.Context) (string, []byte, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			return "", nil, fmt.Errorf("missing file upload")
		}
		f, err := fh.Open()
		if err != nil {
			return "", nil, fmt.Errorf("open upload: %w", err)
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, maxImportBytes))
		if err != nil {
			return "", nil, fmt.Errorf("read upload: %w", err)
		}
		return fh.Filename, data, nil
	}
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBytes))
	if err != nil {
		return "", nil, fmt.Errorf("read body: %w", err)
	}
	return c.DefaultQuery("name", "questions.json"), data, nil
}

func attachment(c *gin.Context, name string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "application/json", data)
}

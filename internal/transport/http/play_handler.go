package http

import (
	"net/http"

	"culturax-service/internal/app"
	"github.com/gin-gonic/gin"
)

type answerRequest struct {
	// Index defaults to the question on screen.
	Index  *int   `json:"index"`
	Option string `json:"option" binding:"required"`
}

func (h *handlers) startPlay(c *gin.Context) {
	view, err := h.Play.Start(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *handlers) viewPlay(c *gin.Context) {
	h.respondView(c)(h.Play.View(c.Request.Context(), c.Param("sid"), currentUserID(c)))
}

func (h *handlers) answerPlay(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "option is required"})
		return
	}
	ctx, sid, uid := c.Request.Context(), c.Param("sid"), currentUserID(c)
	if req.Index == nil {
		h.respondView(c)(h.Play.SelectCurrent(ctx, sid, uid, req.Option))
		return
	}
	h.respondView(c)(h.Play.Select(ctx, sid, uid, *req.Index, req.Option))
}

func (h *handlers) nextPlay(c *gin.Context) {
	h.respondView(c)(h.Play.Next(c.Request.Context(), c.Param("sid"), currentUserID(c)))
}

func (h *handlers) previousPlay(c *gin.Context) {
	h.respondView(c)(h.Play.Previous(c.Request.Context(), c.Param("sid"), currentUserID(c)))
}

func (h *handlers) submitPlay(c *gin.Context) {
	res, err := h.Play.Submit(c.Request.Context(), c.Param("sid"), currentUserID(c))
	if err != nil {
		if res.Trigger != "" {
			// scored but not stored
			c.JSON(http.StatusBadGateway, gin.H{"error": res.Error, "result": res})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) closePlay(c *gin.Context) {
	if err := h.Play.Close(c.Request.Context(), c.Param("sid"), currentUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) respondView(c *gin.Context) func(app.PlayView, error) {
	return func(view app.PlayView, err error) {
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

package handler

import (
	"net/http"

	"tinypot-server/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// createScript registers a script published by the authoring service.
func (h *PlayHandler) createScript(c *gin.Context) {
	var req CreateScriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "author_id, title and content are required"})
		return
	}

	script := &models.Script{
		ID:       req.ID,
		AuthorID: req.AuthorID,
		Title:    req.Title,
		Content:  req.Content,
	}
	if err := h.playService.CreateScript(c.Request.Context(), script); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, script)
}

// updateScriptContent replaces a script's content. The service invalidates
// the cache and announces the edit; live sessions are resynced by the
// consumer.
func (h *PlayHandler) updateScriptContent(c *gin.Context) {
	scriptID, err := uuid.Parse(c.Param("script_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid script id"})
		return
	}

	var req UpdateScriptContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "content is required"})
		return
	}

	script, err := h.playService.UpdateScriptContent(c.Request.Context(), scriptID, req.Content)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	h.logger.Info("Script content replaced via internal API",
		zap.String("scriptID", scriptID.String()),
		zap.Int("version", script.Version))
	c.JSON(http.StatusOK, script)
}

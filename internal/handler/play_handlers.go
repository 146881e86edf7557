package handler

import (
	"net/http"

	"tinypot-server/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (h *PlayHandler) startPlaythrough(c *gin.Context) {
	playerID, ok := getUserIDFromContext(c)
	if !ok {
		handleServiceError(c, models.ErrUnauthorized)
		return
	}
	scriptID, err := uuid.Parse(c.Param("script_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid script id"})
		return
	}

	view, err := h.playService.StartPlaythrough(c.Request.Context(), playerID, scriptID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	playthroughsStartedTotal.Inc()
	c.JSON(http.StatusCreated, view)
}

func (h *PlayHandler) getPlaythrough(c *gin.Context) {
	playerID, ok := getUserIDFromContext(c)
	if !ok {
		handleServiceError(c, models.ErrUnauthorized)
		return
	}
	playthroughID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid playthrough id"})
		return
	}

	view, err := h.playService.GetPlaythrough(c.Request.Context(), playerID, playthroughID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *PlayHandler) listPlaythroughs(c *gin.Context) {
	playerID, ok := getUserIDFromContext(c)
	if !ok {
		handleServiceError(c, models.ErrUnauthorized)
		return
	}

	var scriptID *uuid.UUID
	if raw := c.Query("script_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid script id"})
			return
		}
		scriptID = &parsed
	}

	records, err := h.playService.ListPlaythroughs(c.Request.Context(), playerID, scriptID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"playthroughs": records})
}

func (h *PlayHandler) deletePlaythrough(c *gin.Context) {
	playerID, ok := getUserIDFromContext(c)
	if !ok {
		handleServiceError(c, models.ErrUnauthorized)
		return
	}
	playthroughID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid playthrough id"})
		return
	}

	if err := h.playService.DeletePlaythrough(c.Request.Context(), playerID, playthroughID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PlayHandler) makeChoice(c *gin.Context) {
	playerID, ok := getUserIDFromContext(c)
	if !ok {
		handleServiceError(c, models.ErrUnauthorized)
		return
	}
	playthroughID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid playthrough id"})
		return
	}

	var req MakeChoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "option_index is required"})
		return
	}

	view, err := h.playService.MakeChoice(c.Request.Context(), playerID, playthroughID, *req.OptionIndex)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	choicesAppliedTotal.Inc()
	c.JSON(http.StatusOK, view)
}

func (h *PlayHandler) submitText(c *gin.Context) {
	playerID, ok := getUserIDFromContext(c)
	if !ok {
		handleServiceError(c, models.ErrUnauthorized)
		return
	}
	playthroughID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid playthrough id"})
		return
	}

	var req TextTurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "input is required"})
		return
	}

	view, err := h.playService.SubmitText(c.Request.Context(), playerID, playthroughID, req.Input)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	if view.Matched {
		textTurnsTotal.WithLabelValues("matched").Inc()
	} else {
		textTurnsTotal.WithLabelValues("unmatched").Inc()
		h.logger.Debug("Free-text turn did not match",
			zap.String("playthroughID", playthroughID.String()))
	}
	c.JSON(http.StatusOK, view)
}

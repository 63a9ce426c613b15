package work

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Believetim-cloud/SkyRiff/internal/api"
	"github.com/Believetim-cloud/SkyRiff/internal/auth"
	"github.com/Believetim-cloud/SkyRiff/internal/task"
	"github.com/Believetim-cloud/SkyRiff/internal/video"
	"github.com/Believetim-cloud/SkyRiff/internal/wallet"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func pageParams(c *gin.Context) (limit int, cursor int64) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	cursor, _ = strconv.ParseInt(c.DefaultQuery("cursor", "0"), 10, 64)
	return limit, cursor
}

func (h *Handler) Publish(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindingError(c, err)
		return
	}

	w, err := h.service.Publish(c.Request.Context(), userID, req)
	switch {
	case errors.Is(err, video.ErrNotFound), errors.Is(err, task.ErrNotFound), errors.Is(err, ErrMissingPrompt):
		c.JSON(http.StatusNotFound, gin.H{"error": "video not found"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to publish work"})
	default:
		c.JSON(http.StatusCreated, w)
	}
}

func (h *Handler) Get(c *gin.Context) {
	workID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid work id"})
		return
	}

	w, err := h.service.Get(c.Request.Context(), workID)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "work not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get work"})
		return
	}

	c.JSON(http.StatusOK, w)
}

func (h *Handler) ListMine(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	limit, cursor := pageParams(c)
	works, err := h.service.ListByUser(c.Request.Context(), userID, limit, cursor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list works"})
		return
	}

	var lastID int64
	if len(works) > 0 {
		lastID = works[len(works)-1].WorkID
	}
	c.JSON(http.StatusOK, api.NewCursorPage(works, len(works), limit, lastID))
}

type tipRequest struct {
	AmountCredits int `json:"amount_credits" binding:"required,min=1"`
}

func (h *Handler) Tip(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	workID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid work id"})
		return
	}

	var req tipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindingError(c, err)
		return
	}

	tip, err := h.service.Tip(c.Request.Context(), workID, userID, req.AmountCredits)
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "work not found"})
	case errors.Is(err, ErrInvalidTipAmount), errors.Is(err, ErrSelfInteraction):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, wallet.ErrInsufficientBalance):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "insufficient credits"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to tip work"})
	default:
		c.JSON(http.StatusCreated, tip)
	}
}

func (h *Handler) UnlockPrompt(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	workID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid work id"})
		return
	}

	result, err := h.service.UnlockPrompt(c.Request.Context(), workID, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "work not found"})
	case errors.Is(err, wallet.ErrInsufficientBalance):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "insufficient credits"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to unlock prompt"})
	default:
		c.JSON(http.StatusOK, result)
	}
}

func (h *Handler) ListTips(c *gin.Context) {
	workID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid work id"})
		return
	}

	limit, cursor := pageParams(c)
	tips, err := h.service.ListTips(c.Request.Context(), workID, limit, cursor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list tips"})
		return
	}

	var lastID int64
	if len(tips) > 0 {
		lastID = tips[len(tips)-1].TipID
	}
	c.JSON(http.StatusOK, api.NewCursorPage(tips, len(tips), limit, lastID))
}

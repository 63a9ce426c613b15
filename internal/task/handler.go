package task

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Believetim-cloud/SkyRiff/internal/api"
	"github.com/Believetim-cloud/SkyRiff/internal/auth"
	"github.com/Believetim-cloud/SkyRiff/internal/wallet"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Create(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindingError(c, err)
		return
	}

	t, err := h.service.Create(c.Request.Context(), userID, req)
	switch {
	case errors.Is(err, ErrInvalidDuration), errors.Is(err, ErrInvalidRatio):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, wallet.ErrInsufficientBalance):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "insufficient credits"})
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to create task"})
	default:
		c.JSON(http.StatusCreated, t)
	}
}

// Get returns the task after synchronizing it with the vendor. Clients
// poll this endpoint; all lazy state transitions happen here.
func (h *Handler) Get(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	taskID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	t, err := h.service.Synchronize(c.Request.Context(), taskID, userID)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get task"})
		return
	}

	c.JSON(http.StatusOK, t)
}

func (h *Handler) List(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	status := strings.ToUpper(c.Query("status"))
	switch status {
	case "", StatusQueued, StatusInProgress, StatusSuccess, StatusFailure:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	cursor, _ := strconv.ParseInt(c.DefaultQuery("cursor", "0"), 10, 64)

	tasks, err := h.service.List(c.Request.Context(), userID, status, limit, cursor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list tasks"})
		return
	}

	var lastID int64
	if len(tasks) > 0 {
		lastID = tasks[len(tasks)-1].TaskID
	}
	c.JSON(http.StatusOK, api.NewCursorPage(tasks, len(tasks), limit, lastID))
}

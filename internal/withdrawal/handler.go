package withdrawal

import (
	"errors"
	"net/http"
	"strconv"

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

func pageParams(c *gin.Context) (limit int, cursor int64) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	cursor, _ = strconv.ParseInt(c.DefaultQuery("cursor", "0"), 10, 64)
	return limit, cursor
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

	w, err := h.service.Create(c.Request.Context(), userID, req)
	switch {
	case errors.Is(err, ErrBelowMinimum), errors.Is(err, ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, wallet.ErrInsufficientBalance):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "insufficient coin balance"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create withdrawal"})
	default:
		c.JSON(http.StatusCreated, w)
	}
}

func (h *Handler) Get(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	withdrawalID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid withdrawal id"})
		return
	}

	w, err := h.service.Get(c.Request.Context(), withdrawalID, userID)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "withdrawal not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get withdrawal"})
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
	withdrawals, err := h.service.ListByUser(c.Request.Context(), userID, limit, cursor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list withdrawals"})
		return
	}

	var lastID int64
	if len(withdrawals) > 0 {
		lastID = withdrawals[len(withdrawals)-1].WithdrawalID
	}
	c.JSON(http.StatusOK, api.NewCursorPage(withdrawals, len(withdrawals), limit, lastID))
}

func (h *Handler) Cancel(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	withdrawalID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid withdrawal id"})
		return
	}

	w, err := h.service.Cancel(c.Request.Context(), withdrawalID, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "withdrawal not found"})
	case errors.Is(err, ErrNotProcessable):
		c.JSON(http.StatusConflict, gin.H{"error": "withdrawal already processed"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel withdrawal"})
	default:
		c.JSON(http.StatusOK, w)
	}
}

// Admin endpoints.

func (h *Handler) ListApplied(c *gin.Context) {
	limit, cursor := pageParams(c)
	withdrawals, err := h.service.ListApplied(c.Request.Context(), limit, cursor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list withdrawals"})
		return
	}

	var lastID int64
	if len(withdrawals) > 0 {
		lastID = withdrawals[len(withdrawals)-1].WithdrawalID
	}
	c.JSON(http.StatusOK, api.NewCursorPage(withdrawals, len(withdrawals), limit, lastID))
}

type processRequest struct {
	Action       string  `json:"action" binding:"required,oneof=approve reject pay"`
	RejectReason string  `json:"reject_reason" binding:"omitempty,max=500"`
	AdminNote    *string `json:"admin_note" binding:"omitempty"`
}

func (h *Handler) Process(c *gin.Context) {
	withdrawalID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid withdrawal id"})
		return
	}

	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindingError(c, err)
		return
	}

	var w *Withdrawal
	switch req.Action {
	case "approve":
		w, err = h.service.Approve(c.Request.Context(), withdrawalID, req.AdminNote)
	case "reject":
		if req.RejectReason == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "reject_reason is required"})
			return
		}
		w, err = h.service.Reject(c.Request.Context(), withdrawalID, req.RejectReason, req.AdminNote)
	case "pay":
		w, err = h.service.Pay(c.Request.Context(), withdrawalID, req.AdminNote)
	}

	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "withdrawal not found"})
	case errors.Is(err, ErrNotProcessable):
		c.JSON(http.StatusConflict, gin.H{"error": "withdrawal already processed"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process withdrawal"})
	default:
		c.JSON(http.StatusOK, w)
	}
}

package subscription

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Believetim-cloud/SkyRiff/internal/api"
	"github.com/Believetim-cloud/SkyRiff/internal/auth"
	"github.com/Believetim-cloud/SkyRiff/internal/payment"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type BuyRequest struct {
	PayChannel string `json:"pay_channel" binding:"omitempty,oneof=mock alipay wechat"`
}

func (h *Handler) Buy(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req BuyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindingError(c, err)
		return
	}
	if req.PayChannel == "" {
		req.PayChannel = payment.ChannelMock
	}

	result, err := h.service.Buy(c.Request.Context(), userID, req.PayChannel)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to buy subscription"})
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) Me(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	status, err := h.service.MyStatus(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get subscription status"})
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) ClaimDaily(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	claim, err := h.service.ClaimDaily(c.Request.Context(), userID)
	switch {
	case errors.Is(err, ErrNoActive):
		c.JSON(http.StatusBadRequest, gin.H{"error": "no active subscription"})
	case errors.Is(err, ErrAlreadyClaimed):
		c.JSON(http.StatusConflict, gin.H{"error": "daily reward already claimed today"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to claim daily reward"})
	default:
		c.JSON(http.StatusOK, claim)
	}
}

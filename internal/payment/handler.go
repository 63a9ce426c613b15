package payment

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Believetim-cloud/SkyRiff/internal/api"
	"github.com/Believetim-cloud/SkyRiff/internal/auth"
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

func (h *Handler) ListProducts(c *gin.Context) {
	productType := c.Query("type")
	if productType != "" && productType != ProductTypeRecharge && productType != ProductTypeSubscription {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product type"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": h.service.Products(productType)})
}

type CreateRequest struct {
	ProductID  int    `json:"product_id" binding:"required"`
	PayChannel string `json:"pay_channel" binding:"omitempty,oneof=mock alipay wechat"`
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
	if req.PayChannel == "" {
		req.PayChannel = ChannelMock
	}

	p, err := h.service.CreatePayment(c.Request.Context(), userID, req.ProductID, req.PayChannel)
	switch {
	case errors.Is(err, ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create payment"})
	default:
		c.JSON(http.StatusCreated, p)
	}
}

type CallbackRequest struct {
	Success *bool `json:"success" binding:"required"`
}

// Callback is the mock channel's payment notification. A real channel
// would authenticate this and drive the same service code path.
func (h *Handler) Callback(c *gin.Context) {
	paymentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
		return
	}

	var req CallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindingError(c, err)
		return
	}

	p, err := h.service.ProcessCallback(c.Request.Context(), paymentID, *req.Success)
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
	case errors.Is(err, ErrNotPayable):
		c.JSON(http.StatusConflict, gin.H{"error": "payment already processed"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process payment callback"})
	default:
		c.JSON(http.StatusOK, p)
	}
}

func (h *Handler) Get(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	paymentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
		return
	}

	p, err := h.service.Get(c.Request.Context(), paymentID, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get payment"})
	default:
		c.JSON(http.StatusOK, p)
	}
}

func (h *Handler) ListMine(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	limit, cursor := pageParams(c)
	payments, err := h.service.ListByUser(c.Request.Context(), userID, limit, cursor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list payments"})
		return
	}

	var lastID int64
	if len(payments) > 0 {
		lastID = payments[len(payments)-1].PaymentID
	}
	c.JSON(http.StatusOK, api.NewCursorPage(payments, len(payments), limit, lastID))
}

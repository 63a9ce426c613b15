package wallet

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/Believetim-cloud/SkyRiff/internal/api"
	"github.com/Believetim-cloud/SkyRiff/internal/auth"
)

type Handler struct {
	repo Ledger
}

func NewHandler(db *sqlx.DB) *Handler {
	return &Handler{repo: NewRepository(db)}
}

func pageParams(c *gin.Context) (limit int, cursor int64) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	cursor, _ = strconv.ParseInt(c.DefaultQuery("cursor", "0"), 10, 64)
	return limit, cursor
}

func (h *Handler) GetBalances(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	balances, err := h.repo.GetBalances(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load wallets"})
		return
	}

	c.JSON(http.StatusOK, balances)
}

func (h *Handler) ListCreditLedgers(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	limit, cursor := pageParams(c)
	limit = clampLimit(limit)

	entries, err := h.repo.GetCreditLedgers(c.Request.Context(), userID, limit, cursor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load ledger"})
		return
	}

	var lastID int64
	if len(entries) > 0 {
		lastID = entries[len(entries)-1].LedgerID
	}
	c.JSON(http.StatusOK, api.NewCursorPage(entries, len(entries), limit, lastID))
}

func (h *Handler) ListCoinLedgers(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	limit, cursor := pageParams(c)
	limit = clampLimit(limit)

	entries, err := h.repo.GetCoinLedgers(c.Request.Context(), userID, limit, cursor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load ledger"})
		return
	}

	var lastID int64
	if len(entries) > 0 {
		lastID = entries[len(entries)-1].LedgerID
	}
	c.JSON(http.StatusOK, api.NewCursorPage(entries, len(entries), limit, lastID))
}

func (h *Handler) ListCommissionLedgers(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	limit, cursor := pageParams(c)
	limit = clampLimit(limit)

	entries, err := h.repo.GetCommissionLedgers(c.Request.Context(), userID, limit, cursor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load ledger"})
		return
	}

	var lastID int64
	if len(entries) > 0 {
		lastID = entries[len(entries)-1].LedgerID
	}
	c.JSON(http.StatusOK, api.NewCursorPage(entries, len(entries), limit, lastID))
}

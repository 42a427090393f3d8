package analytics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"grocery-companion/internal/api/handlers"
	"grocery-companion/internal/api/middleware"
	core "grocery-companion/internal/core/analytics"

	"github.com/gin-gonic/gin"
)

// maxTopProducts 熱門商品查詢上限
const maxTopProducts = 100

// Service 購買分析服務
type Service interface {
	SyncOrders(ctx context.Context, userID string) (*core.SyncResult, error)
	RecomputeFrequencies(ctx context.Context, userID string) (*core.RecomputeResult, error)
	GetRecurringSuggestions(ctx context.Context, userID string) (*core.RecurringSuggestions, error)
	GetDueForReorder(ctx context.Context, userID string) ([]core.ReorderSuggestion, error)
	GetTopProducts(ctx context.Context, userID string, limit int) ([]core.TopProduct, error)
	GetFrequencies(ctx context.Context, userID string, minPurchases int) ([]core.PurchaseFrequency, error)
	GetSpending(ctx context.Context, userID string, months int) (*core.SpendingSummary, error)
}

// Handler 購買分析處理器
type Handler struct {
	svc   Service
	debug bool
}

// NewHandler 創建購買分析處理器
func NewHandler(svc Service, debug bool) *Handler {
	return &Handler{svc: svc, debug: debug}
}

// HandleRefresh 重新計算購買頻率
func (h *Handler) HandleRefresh(c *gin.Context) {
	res, err := h.svc.RecomputeFrequencies(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"calculated":     res.Calculated,
		"total_products": res.TotalProducts,
	})
}

// HandleSuggestions 應補貨的商品
func (h *Handler) HandleSuggestions(c *gin.Context) {
	due, err := h.svc.GetDueForReorder(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	c.JSON(http.StatusOK, gin.H{"due_for_reorder": due})
}

// HandleRecurring 依週期分組的建議清單
func (h *Handler) HandleRecurring(c *gin.Context) {
	suggestions, err := h.svc.GetRecurringSuggestions(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	c.JSON(http.StatusOK, suggestions)
}

// positiveQuery 讀取正整數查詢參數，未提供時返回 0
func positiveQuery(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", name)
	}
	return n, nil
}

// HandleTopProducts 購買量最高的商品，limit 可選
func (h *Handler) HandleTopProducts(c *gin.Context) {
	limit, err := positiveQuery(c, "limit")
	if err != nil {
		handlers.InvalidRequest(c, err, h.debug)
		return
	}
	if limit > maxTopProducts {
		limit = maxTopProducts
	}

	products, err := h.svc.GetTopProducts(c.Request.Context(), middleware.UserID(c), limit)
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// HandleSyncOrders 同步訂單歷史
func (h *Handler) HandleSyncOrders(c *gin.Context) {
	res, err := h.svc.SyncOrders(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	c.JSON(http.StatusOK, res)
}

// HandleFrequency 購買頻率紀錄，min_purchases 可選
func (h *Handler) HandleFrequency(c *gin.Context) {
	minPurchases, err := positiveQuery(c, "min_purchases")
	if err != nil {
		handlers.InvalidRequest(c, err, h.debug)
		return
	}

	records, err := h.svc.GetFrequencies(c.Request.Context(), middleware.UserID(c), minPurchases)
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"products":     records,
		"generated_at": time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleSpending 每月消費，months 可選
func (h *Handler) HandleSpending(c *gin.Context) {
	months, err := positiveQuery(c, "months")
	if err != nil {
		handlers.InvalidRequest(c, err, h.debug)
		return
	}

	summary, err := h.svc.GetSpending(c.Request.Context(), middleware.UserID(c), months)
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	c.JSON(http.StatusOK, summary)
}

package recipe

import (
	"context"
	"fmt"
	"net/http"

	"grocery-companion/internal/api/handlers"
	"grocery-companion/internal/api/middleware"
	"grocery-companion/internal/core/catalog"
	"grocery-companion/internal/core/matching"
	recipeService "grocery-companion/internal/core/recipe"
	"grocery-companion/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxIngredients 單次比對的食材上限
const maxIngredients = 100

// Parser 食材文字解析
type Parser interface {
	ParseText(ctx context.Context, text string, useAI bool) (*recipeService.ParseResult, error)
}

// Matcher 食材與商品比對
type Matcher interface {
	MatchIngredients(ctx context.Context, ingredients []common.Ingredient, autoAdd bool) (*matching.MatchResponse, error)
}

// Cart 購物車操作
type Cart interface {
	AddToCart(ctx context.Context, productID string, count int) (interface{}, error)
	GetCart(ctx context.Context) (interface{}, error)
}

// ParseTextRequest 食材文字解析請求
type ParseTextRequest struct {
	Text  string `json:"text" binding:"required"`
	UseAI *bool  `json:"use_ai,omitempty"` // 預設 true
}

// ParseTextResponse 食材文字解析響應
type ParseTextResponse struct {
	ParsedIngredients []common.Ingredient `json:"parsed_ingredients"`
	Source            string              `json:"source"`
}

// MatchProductsRequest 食材比對請求
type MatchProductsRequest struct {
	Ingredients []common.Ingredient `json:"ingredients"`
	AutoAdd     bool                `json:"auto_add"`
}

// CartSelection 使用者確認的比對結果，Quantity 未填時為 1
type CartSelection struct {
	Selected *catalog.Product `json:"selected"`
	Quantity int              `json:"quantity,omitempty"`
}

// AddToCartRequest 手動確認後加入購物車的請求
type AddToCartRequest struct {
	Matches []CartSelection `json:"matches"`
}

// AddToCartResponse 加入購物車的結果
type AddToCartResponse struct {
	Added     int         `json:"added"`
	Failed    int         `json:"failed"`
	Cart      interface{} `json:"cart,omitempty"`
	CartError string      `json:"cart_error,omitempty"`
}

// Handler 食譜處理程序
type Handler struct {
	parser  Parser
	matcher Matcher
	cart    Cart
	debug   bool
}

// NewHandler 創建新的食譜處理程序
func NewHandler(parser Parser, matcher Matcher, cart Cart, debug bool) *Handler {
	return &Handler{
		parser:  parser,
		matcher: matcher,
		cart:    cart,
		debug:   debug,
	}
}

// HandleParseText 解析食材文字
func (h *Handler) HandleParseText(c *gin.Context) {
	var req ParseTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.InvalidRequest(c, err, h.debug)
		return
	}

	useAI := req.UseAI == nil || *req.UseAI
	res, err := h.parser.ParseText(c.Request.Context(), req.Text, useAI)
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}

	common.LogInfo("食材文字解析完成",
		zap.String("request_id", requestid.Get(c)),
		zap.String("user_id", middleware.UserID(c)),
		zap.Int("ingredients_count", len(res.Ingredients)),
		zap.String("source", res.Source),
	)

	c.JSON(http.StatusOK, ParseTextResponse{
		ParsedIngredients: res.Ingredients,
		Source:            res.Source,
	})
}

// HandleMatchProducts 比對食材與商品，auto_add 時將高信心的結果加入購物車
func (h *Handler) HandleMatchProducts(c *gin.Context) {
	var req MatchProductsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.InvalidRequest(c, err, h.debug)
		return
	}
	if len(req.Ingredients) > maxIngredients {
		handlers.InvalidRequest(c, fmt.Errorf("too many ingredients: %d > %d", len(req.Ingredients), maxIngredients), h.debug)
		return
	}

	resp, err := h.matcher.MatchIngredients(c.Request.Context(), req.Ingredients, req.AutoAdd)
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleAddToCart 將使用者確認的商品逐一加入購物車，單筆失敗只計數
func (h *Handler) HandleAddToCart(c *gin.Context) {
	if h.cart == nil {
		handlers.RespondError(c, common.ErrCatalogUnavailable, h.debug)
		return
	}

	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.InvalidRequest(c, err, h.debug)
		return
	}
	if len(req.Matches) > maxIngredients {
		handlers.InvalidRequest(c, fmt.Errorf("too many matches: %d > %d", len(req.Matches), maxIngredients), h.debug)
		return
	}

	var resp AddToCartResponse
	if len(req.Matches) == 0 {
		c.JSON(http.StatusOK, resp)
		return
	}

	ctx := c.Request.Context()
	for _, m := range req.Matches {
		if m.Selected == nil || m.Selected.ID == "" {
			continue
		}
		count := m.Quantity
		if count < 1 {
			count = 1
		}
		if _, err := h.cart.AddToCart(ctx, m.Selected.ID, count); err != nil {
			common.LogWarn("Failed to add product to cart",
				zap.String("request_id", requestid.Get(c)),
				zap.String("product_id", m.Selected.ID),
				zap.Error(err),
			)
			resp.Failed++
			continue
		}
		resp.Added++
	}

	cart, err := h.cart.GetCart(ctx)
	if err != nil {
		common.LogWarn("Failed to fetch cart", zap.String("request_id", requestid.Get(c)), zap.Error(err))
		resp.CartError = err.Error()
	} else {
		resp.Cart = cart
	}

	common.LogInfo("商品加入購物車完成",
		zap.String("request_id", requestid.Get(c)),
		zap.String("user_id", middleware.UserID(c)),
		zap.Int("added", resp.Added),
		zap.Int("failed", resp.Failed),
	)

	c.JSON(http.StatusOK, resp)
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"grocery-companion/internal/api/handlers/health"
	recipeHandler "grocery-companion/internal/api/handlers/recipe"
	"grocery-companion/internal/api/middleware"
	"grocery-companion/internal/core/analytics"
	"grocery-companion/internal/core/catalog"
	"grocery-companion/internal/core/matching"
	"grocery-companion/internal/core/recipe"
	"grocery-companion/internal/infrastructure/config"
	"grocery-companion/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAnalytics struct {
	lastUser         string
	lastLimit        int
	lastMinPurchases int
	lastMonths       int
}

func (s *stubAnalytics) SyncOrders(ctx context.Context, userID string) (*analytics.SyncResult, error) {
	s.lastUser = userID
	return &analytics.SyncResult{Synced: 2, ItemsSynced: 5, TotalAvailable: 2}, nil
}

func (s *stubAnalytics) RecomputeFrequencies(ctx context.Context, userID string) (*analytics.RecomputeResult, error) {
	s.lastUser = userID
	return &analytics.RecomputeResult{Calculated: 3, TotalProducts: 4}, nil
}

func (s *stubAnalytics) GetRecurringSuggestions(ctx context.Context, userID string) (*analytics.RecurringSuggestions, error) {
	return &analytics.RecurringSuggestions{
		Weekly:   []analytics.RecurringItem{{ProductID: "s1", ProductName: "Melk"}},
		Biweekly: []analytics.RecurringItem{},
		Monthly:  []analytics.RecurringItem{},
	}, nil
}

func (s *stubAnalytics) GetDueForReorder(ctx context.Context, userID string) ([]analytics.ReorderSuggestion, error) {
	return []analytics.ReorderSuggestion{{ProductID: "s1", ProductName: "Melk", DaysOverdue: 3}}, nil
}

func (s *stubAnalytics) GetTopProducts(ctx context.Context, userID string, limit int) ([]analytics.TopProduct, error) {
	s.lastLimit = limit
	return nil, common.ErrStoreUnavailable.Wrap(errors.New("connection refused"))
}

func (s *stubAnalytics) GetFrequencies(ctx context.Context, userID string, minPurchases int) ([]analytics.PurchaseFrequency, error) {
	s.lastMinPurchases = minPurchases
	return []analytics.PurchaseFrequency{{ProductID: "s1", ProductName: "Melk", TotalPurchases: 4, AvgDaysBetween: 7}}, nil
}

func (s *stubAnalytics) GetSpending(ctx context.Context, userID string, months int) (*analytics.SpendingSummary, error) {
	s.lastMonths = months
	return &analytics.SpendingSummary{
		Monthly: []analytics.MonthlySpending{{Month: "2024-05", OrderCount: 2, TotalSpent: 4550, TotalItems: 12}},
		Total:   4550,
	}, nil
}

type stubParser struct{}

func (stubParser) ParseText(ctx context.Context, text string, useAI bool) (*recipe.ParseResult, error) {
	if text == "" {
		return nil, common.ErrEmptyIngredientText
	}
	source := recipe.SourceRules
	if useAI {
		source = recipe.SourceAI
	}
	return &recipe.ParseResult{Ingredients: recipe.ParseIngredientLines(text), Source: source}, nil
}

type stubMatcher struct {
	autoAdd bool
}

func (s *stubMatcher) MatchIngredients(ctx context.Context, ingredients []common.Ingredient, autoAdd bool) (*matching.MatchResponse, error) {
	s.autoAdd = autoAdd
	resp := &matching.MatchResponse{
		Matches:          []matching.MatchResult{},
		NotFound:         []common.Ingredient{},
		TotalIngredients: len(ingredients),
	}
	for _, ing := range ingredients {
		resp.Matches = append(resp.Matches, matching.MatchResult{
			Ingredient:        ing,
			Product:           catalog.Product{ID: "p-" + ing.Name, Name: ing.Name, Price: 100},
			BestConfidence:    0.9,
			Status:            matching.StatusMatched,
			SuggestedQuantity: 1,
		})
	}
	resp.MatchedCount = len(resp.Matches)
	return resp, nil
}

type stubCart struct {
	added   map[string]int
	failIDs map[string]bool
	cartErr error
}

func (s *stubCart) AddToCart(ctx context.Context, productID string, count int) (interface{}, error) {
	if s.failIDs[productID] {
		return nil, errors.New("product unavailable")
	}
	if s.added == nil {
		s.added = map[string]int{}
	}
	s.added[productID] += count
	return "ok", nil
}

func (s *stubCart) GetCart(ctx context.Context) (interface{}, error) {
	if s.cartErr != nil {
		return nil, s.cartErr
	}
	return map[string]interface{}{"total_count": len(s.added)}, nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.RateLimit.Enabled = false
	cfg.Server.RequestTimeout = 5 * time.Second
	return cfg
}

func do(router *gin.Engine, method, path, user string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(middleware.UserIDHeader, user)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestRouter_RequiresUser(t *testing.T) {
	router := SetupRouter(Dependencies{Config: testConfig(), Analytics: &stubAnalytics{}, Parser: stubParser{}, Matcher: &stubMatcher{}})

	w := do(router, http.MethodGet, "/api/v1/analytics/recurring", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "MISSING_USER", decodeBody(t, w)["code"])
}

func TestRouter_AnalyticsEndpoints(t *testing.T) {
	svc := &stubAnalytics{}
	router := SetupRouter(Dependencies{Config: testConfig(), Analytics: svc, Parser: stubParser{}, Matcher: &stubMatcher{}})

	w := do(router, http.MethodPost, "/api/v1/analytics/refresh", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(3), body["calculated"])
	assert.Equal(t, "u1", svc.lastUser)

	w = do(router, http.MethodGet, "/api/v1/analytics/suggestions", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	due := decodeBody(t, w)["due_for_reorder"].([]interface{})
	require.Len(t, due, 1)
	assert.Equal(t, float64(3), due[0].(map[string]interface{})["days_overdue"])

	w = do(router, http.MethodGet, "/api/v1/analytics/recurring", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["weekly"], 1)

	w = do(router, http.MethodPost, "/api/v1/orders/sync", "u2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(5), decodeBody(t, w)["items_synced"])
	assert.Equal(t, "u2", svc.lastUser)
}

func TestRouter_TopProducts(t *testing.T) {
	svc := &stubAnalytics{}
	router := SetupRouter(Dependencies{Config: testConfig(), Analytics: svc, Parser: stubParser{}, Matcher: &stubMatcher{}})

	w := do(router, http.MethodGet, "/api/v1/analytics/top-products?limit=abc", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodGet, "/api/v1/analytics/top-products?limit=500", "u1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "STORE_UNAVAILABLE", decodeBody(t, w)["code"])
	assert.Equal(t, 100, svc.lastLimit)
}

func TestRouter_AnalyticsWithoutStore(t *testing.T) {
	router := SetupRouter(Dependencies{Config: testConfig(), Parser: stubParser{}, Matcher: &stubMatcher{}})

	for _, path := range []string{"/api/v1/analytics/frequency", "/api/v1/analytics/spending"} {
		w := do(router, http.MethodGet, path, "u1", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
	}

	w := do(router, http.MethodPost, "/api/v1/orders/sync", "u1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "STORE_UNAVAILABLE", decodeBody(t, w)["code"])
}

func TestRouter_Frequency(t *testing.T) {
	svc := &stubAnalytics{}
	router := SetupRouter(Dependencies{Config: testConfig(), Analytics: svc, Parser: stubParser{}, Matcher: &stubMatcher{}})

	w := do(router, http.MethodGet, "/api/v1/analytics/frequency?min_purchases=0", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodGet, "/api/v1/analytics/frequency", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, svc.lastMinPurchases)

	w = do(router, http.MethodGet, "/api/v1/analytics/frequency?min_purchases=5", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, svc.lastMinPurchases)

	body := decodeBody(t, w)
	products := body["products"].([]interface{})
	require.Len(t, products, 1)
	assert.Equal(t, "s1", products[0].(map[string]interface{})["product_id"])
	_, err := time.Parse(time.RFC3339, body["generated_at"].(string))
	assert.NoError(t, err)
}

func TestRouter_Spending(t *testing.T) {
	svc := &stubAnalytics{}
	router := SetupRouter(Dependencies{Config: testConfig(), Analytics: svc, Parser: stubParser{}, Matcher: &stubMatcher{}})

	w := do(router, http.MethodGet, "/api/v1/analytics/spending?months=x", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodGet, "/api/v1/analytics/spending?months=3", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, svc.lastMonths)

	body := decodeBody(t, w)
	assert.Equal(t, float64(4550), body["total"])
	monthly := body["monthly"].([]interface{})
	require.Len(t, monthly, 1)
	assert.Equal(t, "2024-05", monthly[0].(map[string]interface{})["month"])
}

func TestRouter_AddToCart(t *testing.T) {
	cart := &stubCart{failIDs: map[string]bool{"s9": true}}
	router := SetupRouter(Dependencies{Config: testConfig(), Parser: stubParser{}, Matcher: &stubMatcher{}, Cart: cart})

	w := do(router, http.MethodPost, "/api/v1/recipes/add-to-cart", "u1", map[string]interface{}{
		"matches": []map[string]interface{}{
			{"selected": map[string]interface{}{"id": "s1", "name": "Halfvolle melk"}},
			{"selected": map[string]interface{}{"id": "s2", "name": "Bloem"}, "quantity": 2},
			{"selected": map[string]interface{}{"id": "s9", "name": "Kaas"}},
			{"selected": nil},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp recipeHandler.AddToCartResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Added)
	assert.Equal(t, 1, resp.Failed)
	assert.Empty(t, resp.CartError)
	assert.Equal(t, map[string]interface{}{"total_count": float64(2)}, resp.Cart)
	assert.Equal(t, map[string]int{"s1": 1, "s2": 2}, cart.added)
}

func TestRouter_AddToCartEdgeCases(t *testing.T) {
	cart := &stubCart{cartErr: errors.New("not logged in")}
	router := SetupRouter(Dependencies{Config: testConfig(), Parser: stubParser{}, Matcher: &stubMatcher{}, Cart: cart})

	// 沒有選擇的商品時不讀取購物車
	w := do(router, http.MethodPost, "/api/v1/recipes/add-to-cart", "u1", map[string]interface{}{"matches": []interface{}{}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{"added": float64(0), "failed": float64(0)}, decodeBody(t, w))

	w = do(router, http.MethodPost, "/api/v1/recipes/add-to-cart", "u1", map[string]interface{}{
		"matches": []map[string]interface{}{{"selected": map[string]interface{}{"id": "s1"}}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(1), body["added"])
	assert.Equal(t, "not logged in", body["cart_error"])

	noCart := SetupRouter(Dependencies{Config: testConfig(), Parser: stubParser{}, Matcher: &stubMatcher{}})
	w = do(noCart, http.MethodPost, "/api/v1/recipes/add-to-cart", "u1", map[string]interface{}{"matches": []interface{}{}})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_ParseText(t *testing.T) {
	router := SetupRouter(Dependencies{Config: testConfig(), Parser: stubParser{}, Matcher: &stubMatcher{}})

	w := do(router, http.MethodPost, "/api/v1/recipes/parse-text", "u1", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, common.ErrCodeInvalidRequest, decodeBody(t, w)["code"])

	w = do(router, http.MethodPost, "/api/v1/recipes/parse-text", "u1", map[string]interface{}{
		"text":   "200 gram bloem\n2 eieren",
		"use_ai": false,
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, recipe.SourceRules, body["source"])
	assert.Len(t, body["parsed_ingredients"], 2)
}

func TestRouter_MatchProducts(t *testing.T) {
	matcher := &stubMatcher{}
	router := SetupRouter(Dependencies{Config: testConfig(), Parser: stubParser{}, Matcher: matcher})

	w := do(router, http.MethodPost, "/api/v1/recipes/match-products", "u1", map[string]interface{}{
		"ingredients": []map[string]interface{}{{"name": "melk"}, {"name": "bloem", "quantity": 750, "unit": "gram"}},
		"auto_add":    true,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, matcher.autoAdd)

	var resp matching.MatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.MatchedCount)
	require.NotNil(t, resp.Matches[1].Ingredient.Quantity)
	assert.Equal(t, 750.0, *resp.Matches[1].Ingredient.Quantity)
}

func TestRouter_DeduplicatesPosts(t *testing.T) {
	dedup := middleware.NewDeduplicator(time.Minute)
	defer dedup.Stop()
	router := SetupRouter(Dependencies{Config: testConfig(), Analytics: &stubAnalytics{}, Parser: stubParser{}, Matcher: &stubMatcher{}, Dedup: dedup})

	first := do(router, http.MethodPost, "/api/v1/orders/sync", "u1", nil)
	second := do(router, http.MethodPost, "/api/v1/orders/sync", "u1", nil)
	other := do(router, http.MethodPost, "/api/v1/orders/sync", "u2", nil)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestRouter_RateLimit(t *testing.T) {
	limiter := middleware.NewRateLimiter(1, time.Minute)
	defer limiter.Stop()
	router := SetupRouter(Dependencies{Config: testConfig(), Analytics: &stubAnalytics{}, Parser: stubParser{}, Matcher: &stubMatcher{}, RateLimiter: limiter})

	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/api/v1/analytics/recurring", "u1", nil).Code)
	limited := do(router, http.MethodGet, "/api/v1/analytics/recurring", "u1", nil)
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))
}

func TestRouter_HealthEndpoints(t *testing.T) {
	router := SetupRouter(Dependencies{
		Config:  testConfig(),
		Parser:  stubParser{},
		Matcher: &stubMatcher{},
		Checks: map[string]health.Checker{
			"catalog":  func(ctx context.Context) error { return nil },
			"database": func(ctx context.Context) error { return errors.New("down") },
		},
	})

	w := do(router, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "unavailable", body["dependencies"].(map[string]interface{})["database"])

	assert.Equal(t, http.StatusServiceUnavailable, do(router, http.MethodGet, "/ready", "", nil).Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/live", "", nil).Code)

	metrics := do(router, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "go_goroutines")
}

package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"grocery-companion/internal/core/cache"
	"grocery-companion/internal/infrastructure/config"
	"grocery-companion/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, breaker bool) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(config.CatalogConfig{
		BaseURL:      srv.URL,
		Timeout:      2 * time.Second,
		HistoryLimit: 50,
		Breaker: config.BreakerConfig{
			Enabled:          breaker,
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          time.Minute,
			FailureThreshold: 2,
		},
	})
}

// textContent 以工具回應格式包裝 JSON 文字
func textContent(t *testing.T, v interface{}) []byte {
	t.Helper()
	inner, err := json.Marshal(v)
	require.NoError(t, err)
	body, err := json.Marshal(map[string]interface{}{
		"content": []map[string]string{{"type": "text", "text": string(inner)}},
	})
	require.NoError(t, err)
	return body
}

func TestClient_SearchProducts(t *testing.T) {
	var got toolRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/call-tool", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write(textContent(t, []map[string]interface{}{
			{"id": "s100", "name": "Tomaten 500g", "price": 199, "unit_quantity": "500 gram"},
			{"id": "s101", "name": "Tomatensoep", "price": 149, "image_id": "img-1"},
		}))
	}, false)

	products, err := client.SearchProducts(context.Background(), "tomaten")
	require.NoError(t, err)

	assert.Equal(t, ToolSearchProducts, got.Name)
	assert.Equal(t, "tomaten", got.Arguments["query"])
	require.Len(t, products, 2)
	assert.Equal(t, Product{ID: "s100", Name: "Tomaten 500g", Price: 199, UnitQuantity: "500 gram"}, products[0])
	assert.Equal(t, "img-1", products[1].ImageURL)
}

func TestClient_OrderHistoryArguments(t *testing.T) {
	var got toolRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write(textContent(t, map[string]interface{}{"orders": []interface{}{}}))
	}, false)

	result, err := client.GetOrderHistory(context.Background(), "COMPLETED", 0)
	require.NoError(t, err)

	assert.Equal(t, ToolGetOrderHistory, got.Name)
	assert.Equal(t, "COMPLETED", got.Arguments["filter"])
	assert.Equal(t, float64(50), got.Arguments["limit"])
	assert.IsType(t, map[string]interface{}{}, result)
}

func TestClient_PlainTextAndRawResponses(t *testing.T) {
	body, err := json.Marshal(map[string]interface{}{
		"content": []map[string]string{{"type": "text", "text": "Cart updated"}},
	})
	require.NoError(t, err)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}, false)
	result, err := client.AddToCart(context.Background(), "s100", 2)
	require.NoError(t, err)
	assert.Equal(t, "Cart updated", result)

	raw := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[],"total_price":0}`))
	}, false)
	result, err = raw.GetCart(context.Background())
	require.NoError(t, err)
	assert.Contains(t, result, "total_price")
}

func TestClient_ToolError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"isError":true,"content":[{"type":"text","text":"not logged in"}]}`))
	}, false)

	_, err := client.GetCart(context.Background())
	assert.ErrorContains(t, err, "not logged in")
	assert.NotErrorIs(t, err, common.ErrCatalogUnavailable)
}

func TestClient_BreakerOpensOnServerErrors(t *testing.T) {
	var calls int64
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}, true)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := client.SearchProducts(ctx, "melk")
		assert.ErrorIs(t, err, common.ErrCatalogUnavailable)
	}
	assert.Equal(t, "open", client.BreakerState())

	_, err := client.SearchProducts(ctx, "melk")
	assert.ErrorIs(t, err, common.ErrCatalogUnavailable)
	assert.Equal(t, int64(2), atomic.LoadInt64(&calls))
}

func TestClient_Health(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}, false)
	assert.NoError(t, client.Health(context.Background()))
}

func TestProductsFromResult_Shapes(t *testing.T) {
	grouped := []interface{}{
		map[string]interface{}{
			"type": "CATEGORY",
			"items": []interface{}{
				map[string]interface{}{"id": "a", "name": "Halfvolle melk"},
				map[string]interface{}{"id": "b", "name": "Volle melk"},
			},
		},
	}
	assert.Len(t, ProductsFromResult(grouped), 2)

	wrapped := map[string]interface{}{
		"products": []interface{}{map[string]interface{}{"product_id": "c", "product_name": "Boter"}},
	}
	products := ProductsFromResult(wrapped)
	require.Len(t, products, 1)
	assert.Equal(t, "c", products[0].ID)
	assert.Equal(t, "Boter", products[0].Name)

	assert.Empty(t, ProductsFromResult("no results"))
	assert.Empty(t, ProductsFromResult([]interface{}{"x", map[string]interface{}{}}))
}

type countingSearcher struct {
	calls int
}

func (s *countingSearcher) SearchProducts(ctx context.Context, query string) ([]Product, error) {
	s.calls++
	return []Product{{ID: "p1", Name: query}}, nil
}

func TestCachedSearcher_ReusesResults(t *testing.T) {
	next := &countingSearcher{}
	mgr := cache.NewManager(config.CacheConfig{Enabled: true, MaxSize: 10, TTL: time.Minute})
	defer mgr.Close()

	s := NewCachedSearcher(next, mgr)
	ctx := context.Background()

	first, err := s.SearchProducts(ctx, "Kaas")
	require.NoError(t, err)
	second, err := s.SearchProducts(ctx, " kaas ")
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, first, second)
}

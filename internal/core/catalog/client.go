package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"grocery-companion/internal/infrastructure/config"
	"grocery-companion/internal/metrics"
	"grocery-companion/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// breakerName 斷路器名稱
const breakerName = "catalog-tools"

// Client 商品目錄工具服務客戶端
type Client struct {
	config  config.CatalogConfig
	client  *resty.Client
	breaker *gobreaker.CircuitBreaker[interface{}]
}

// NewClient 創建目錄客戶端
func NewClient(cfg config.CatalogConfig) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	c := &Client{
		config: cfg,
		client: client,
	}

	if cfg.Breaker.Enabled {
		c.breaker = newBreaker(cfg.Breaker)
	}

	return c
}

// newBreaker 創建斷路器，連續失敗達門檻即斷開
func newBreaker(cfg config.BreakerConfig) *gobreaker.CircuitBreaker[interface{}] {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	metrics.CatalogBreakerState.Set(0)

	return gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// 只有連線失敗與 5xx 計入失敗
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, common.ErrCatalogUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			common.LogWarn("Catalog breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.CatalogBreakerState.Set(stateToFloat(to))
		},
	})
}

// stateToFloat 斷路器狀態轉為指標數值
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// CallTool 調用目錄工具，回傳解析後的結果
func (c *Client) CallTool(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	start := time.Now()

	var (
		result interface{}
		err    error
	)
	if c.breaker != nil {
		result, err = c.breaker.Execute(func() (interface{}, error) {
			return c.callTool(ctx, name, args)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = common.ErrCatalogUnavailable.Wrap(fmt.Errorf("%s: %w", name, err))
		}
	} else {
		result, err = c.callTool(ctx, name, args)
	}

	duration := time.Since(start)
	metrics.RecordCatalogCall(name, duration, err)
	common.LogToolCall(name, duration, err)

	return result, err
}

// callTool 發送工具請求
func (c *Client) callTool(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	if args == nil {
		args = map[string]interface{}{}
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(toolRequest{Name: name, Arguments: args}).
		Post("/call-tool")
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, common.ErrCatalogUnavailable.Wrap(fmt.Errorf("%s: %w", name, err))
	}

	if resp.StatusCode() >= http.StatusInternalServerError {
		return nil, common.ErrCatalogUnavailable.Wrap(fmt.Errorf("%s: status %d: %s", name, resp.StatusCode(), resp.String()))
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("catalog tool %s returned status %d: %s", name, resp.StatusCode(), resp.String())
	}

	return decodeToolResult(name, resp.Body())
}

// decodeToolResult 解析工具回應
// 第一個 text 內容若為 JSON 則解析，否則原樣返回字串；沒有 content 時返回整個回應
func decodeToolResult(name string, body []byte) (interface{}, error) {
	var envelope toolResponse
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Content) > 0 {
		for _, content := range envelope.Content {
			if content.Type != "text" {
				continue
			}
			if envelope.IsError {
				return nil, fmt.Errorf("catalog tool %s failed: %s", name, content.Text)
			}
			var parsed interface{}
			if err := common.ParseJSON(content.Text, &parsed); err != nil {
				return content.Text, nil
			}
			return parsed, nil
		}
	}

	var data interface{}
	if err := common.ParseJSONBytes(body, &data); err != nil {
		return nil, fmt.Errorf("failed to parse catalog response: %w", err)
	}
	return data, nil
}

// SearchProducts 搜尋商品
func (c *Client) SearchProducts(ctx context.Context, query string) ([]Product, error) {
	result, err := c.CallTool(ctx, ToolSearchProducts, map[string]interface{}{"query": query})
	if err != nil {
		return nil, err
	}
	return ProductsFromResult(result), nil
}

// GetOrderHistory 獲取訂單歷史
func (c *Client) GetOrderHistory(ctx context.Context, filter string, limit int) (interface{}, error) {
	if limit <= 0 {
		limit = c.config.HistoryLimit
	}
	return c.CallTool(ctx, ToolGetOrderHistory, map[string]interface{}{
		"filter": filter,
		"limit":  limit,
	})
}

// AddToCart 加入單一商品
func (c *Client) AddToCart(ctx context.Context, productID string, count int) (interface{}, error) {
	return c.CallTool(ctx, ToolAddToCart, map[string]interface{}{
		"productId": productID,
		"count":     count,
	})
}

// BulkAddToCart 批次加入購物車
func (c *Client) BulkAddToCart(ctx context.Context, items []CartLine) (interface{}, error) {
	return c.CallTool(ctx, ToolBulkAddToCart, map[string]interface{}{"items": items})
}

// GetCart 獲取購物車
func (c *Client) GetCart(ctx context.Context) (interface{}, error) {
	return c.CallTool(ctx, ToolGetCart, nil)
}

// Health 檢查目錄服務
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.client.R().SetContext(ctx).Get("/health")
	if err != nil {
		return common.ErrCatalogUnavailable.Wrap(err)
	}
	if resp.StatusCode() != http.StatusOK {
		return common.ErrCatalogUnavailable.Wrap(fmt.Errorf("health status %d", resp.StatusCode()))
	}
	return nil
}

// BreakerState 目前斷路器狀態
func (c *Client) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State().String()
}

package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"grocery-companion/internal/core/cache"
	"grocery-companion/internal/metrics"
	"grocery-companion/internal/pkg/common"

	"go.uber.org/zap"
)

// Searcher 商品搜尋介面
type Searcher interface {
	SearchProducts(ctx context.Context, query string) ([]Product, error)
}

// CachedSearcher 以快取包裝商品搜尋，只快取成功結果
type CachedSearcher struct {
	next  Searcher
	cache cache.Cache
}

// NewCachedSearcher 創建帶快取的搜尋器
func NewCachedSearcher(next Searcher, c cache.Cache) *CachedSearcher {
	return &CachedSearcher{next: next, cache: c}
}

// SearchProducts 搜尋商品，優先讀取快取
func (s *CachedSearcher) SearchProducts(ctx context.Context, query string) ([]Product, error) {
	key := searchKey(query)

	if s.cache != nil {
		if val, err := s.cache.Get(ctx, key); err == nil {
			var products []Product
			if err := json.Unmarshal([]byte(val), &products); err == nil {
				metrics.SearchCacheHits.Inc()
				return products, nil
			}
		} else if !errors.Is(err, common.ErrCacheMiss) && !errors.Is(err, common.ErrCacheDisabled) {
			common.LogWarn("Search cache read failed", zap.Error(err))
		}
		metrics.SearchCacheMisses.Inc()
	}

	products, err := s.next.SearchProducts(ctx, query)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(products); err == nil {
			if err := s.cache.Set(ctx, key, string(data)); err != nil {
				common.LogWarn("Search cache write failed", zap.Error(err))
			}
		}
	}

	return products, nil
}

// searchKey 搜尋快取鍵
func searchKey(query string) string {
	return "search:" + strings.ToLower(strings.TrimSpace(query))
}

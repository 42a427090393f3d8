package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"grocery-companion/internal/core/catalog"
	"grocery-companion/internal/core/queue"
	"grocery-companion/internal/metrics"
	"grocery-companion/internal/pkg/common"

	"go.uber.org/zap"
)

// 預設搜尋設定
const (
	DefaultMaxSearchTerms = 3
	DefaultSearchTimeout  = 10 * time.Second
)

// errNoCandidates 所有搜尋詞都沒有結果
var errNoCandidates = errors.New("no candidates found")

// Cart 批次加入購物車
type Cart interface {
	BulkAddToCart(ctx context.Context, items []catalog.CartLine) (interface{}, error)
}

// Options 比對服務設定
type Options struct {
	MaxSearchTerms int
	MaxMatches     int
	SearchTimeout  time.Duration
}

// MatchResponse 一批食材的比對結果
type MatchResponse struct {
	Matches          []MatchResult       `json:"matches"`
	NotFound         []common.Ingredient `json:"not_found"`
	NeedsReviewCount int                 `json:"needs_review_count"`
	EstimatedTotal   int                 `json:"estimated_total"`
	TotalIngredients int                 `json:"total_ingredients"`
	MatchedCount     int                 `json:"matched_count"`
	AutoAdded        []catalog.CartLine  `json:"auto_added,omitempty"`
	CartResult       interface{}         `json:"cart_result,omitempty"`
	CartError        string              `json:"cart_error,omitempty"`
}

// Service 食材與商品比對服務
type Service struct {
	search catalog.Searcher
	cart   Cart
	pool   *queue.Manager
	opts   Options
}

// NewService 創建比對服務，pool 為 nil 時依序處理
func NewService(search catalog.Searcher, cart Cart, pool *queue.Manager, opts Options) *Service {
	if opts.MaxSearchTerms <= 0 {
		opts.MaxSearchTerms = DefaultMaxSearchTerms
	}
	if opts.MaxMatches <= 0 {
		opts.MaxMatches = DefaultMaxMatches
	}
	if opts.SearchTimeout <= 0 {
		opts.SearchTimeout = DefaultSearchTimeout
	}
	return &Service{search: search, cart: cart, pool: pool, opts: opts}
}

// MatchIngredients 比對一批食材
// 單一食材搜尋失敗只會歸入 not_found，不影響其他食材
func (s *Service) MatchIngredients(ctx context.Context, ingredients []common.Ingredient, autoAdd bool) (*MatchResponse, error) {
	start := time.Now()

	pending := make([]<-chan queue.Result, len(ingredients))
	for i, ing := range ingredients {
		ing := ing
		job := func(ctx context.Context) (interface{}, error) {
			return s.matchOne(ctx, ing)
		}
		if s.pool != nil {
			pending[i] = s.pool.Submit(ctx, job)
			continue
		}
		ch := make(chan queue.Result, 1)
		value, err := job(ctx)
		ch <- queue.Result{Value: value, Error: err}
		pending[i] = ch
	}

	resp := &MatchResponse{
		Matches:          []MatchResult{},
		NotFound:         []common.Ingredient{},
		TotalIngredients: len(ingredients),
	}

	for i, ch := range pending {
		var res queue.Result
		select {
		case res = <-ch:
		case <-ctx.Done():
			res = queue.Result{Error: ctx.Err()}
		}

		match, ok := res.Value.(MatchResult)
		if res.Error != nil || !ok {
			if res.Error != nil && !errors.Is(res.Error, errNoCandidates) {
				common.LogWarn("Ingredient matching failed",
					zap.String("ingredient", ingredients[i].SearchName()),
					zap.Error(res.Error),
				)
			}
			metrics.RecordMatch("not_found")
			resp.NotFound = append(resp.NotFound, ingredients[i])
			continue
		}

		metrics.RecordMatch(string(match.Status))
		resp.Matches = append(resp.Matches, match)
		if match.NeedsReview {
			resp.NeedsReviewCount++
		}
		if match.Product.Price > 0 {
			resp.EstimatedTotal += match.Product.Price * match.SuggestedQuantity
		}
	}
	resp.MatchedCount = len(resp.Matches)

	if autoAdd {
		s.addToCart(ctx, resp)
	}

	metrics.MatchBatchDuration.Observe(time.Since(start).Seconds())
	common.LogInfo("Ingredients matched",
		zap.Int("total", resp.TotalIngredients),
		zap.Int("matched", resp.MatchedCount),
		zap.Int("not_found", len(resp.NotFound)),
		zap.Int("needs_review", resp.NeedsReviewCount),
	)
	return resp, nil
}

// matchOne 搜尋單一食材並評分
func (s *Service) matchOne(ctx context.Context, ing common.Ingredient) (MatchResult, error) {
	name := ing.SearchName()
	terms := GenerateSearchTerms(name)
	if len(terms) == 0 {
		return MatchResult{}, errNoCandidates
	}
	if len(terms) > s.opts.MaxSearchTerms {
		terms = terms[:s.opts.MaxSearchTerms]
	}

	var (
		products []catalog.Product
		lastErr  error
	)
	for _, term := range terms {
		found, err := s.searchTerm(ctx, term)
		if err != nil {
			if ctx.Err() != nil {
				return MatchResult{}, ctx.Err()
			}
			common.LogWarn("Search term failed",
				zap.String("ingredient", name),
				zap.String("term", term),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		products = append(products, found...)
	}

	result, ok := Decide(ing, ScoreCandidates(name, products), s.opts.MaxMatches)
	if !ok {
		if lastErr != nil {
			return MatchResult{}, fmt.Errorf("search %q: %w", name, lastErr)
		}
		return MatchResult{}, errNoCandidates
	}
	return result, nil
}

// searchTerm 以逾時限制單次搜尋
func (s *Service) searchTerm(ctx context.Context, term string) ([]catalog.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.SearchTimeout)
	defer cancel()
	return s.search.SearchProducts(ctx, term)
}

// addToCart 將高信心的比對批次加入購物車，失敗記錄在回應中
func (s *Service) addToCart(ctx context.Context, resp *MatchResponse) {
	var lines []catalog.CartLine
	for _, m := range resp.Matches {
		if !m.AutoAddEligible() {
			continue
		}
		lines = append(lines, catalog.CartLine{ProductID: m.Product.ID, Count: m.SuggestedQuantity})
	}
	if len(lines) == 0 || s.cart == nil {
		return
	}

	result, err := s.cart.BulkAddToCart(ctx, lines)
	if err != nil {
		common.LogError("Failed to add items to cart", zap.Int("items", len(lines)), zap.Error(err))
		resp.CartError = err.Error()
		return
	}
	resp.AutoAdded = lines
	resp.CartResult = result
}

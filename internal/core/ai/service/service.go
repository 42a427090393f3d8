package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"grocery-companion/internal/core/cache"
	openrouter "grocery-companion/internal/core/service"
	"grocery-companion/internal/infrastructure/config"
	"grocery-companion/internal/pkg/common"
)

// Response AI 回應結構
type Response struct {
	Content  string
	CacheHit bool
}

// Generator 文字生成介面
type Generator interface {
	GenerateResponse(ctx context.Context, prompt string) (string, error)
}

// Service AI 服務，負責快取與計時
type Service struct {
	generator Generator
	cache     cache.Cache
}

// NewService 創建 AI 服務
func NewService(cfg config.OpenRouterConfig, c cache.Cache) *Service {
	return NewServiceWithGenerator(openrouter.NewOpenRouterService(cfg), c)
}

// NewServiceWithGenerator 以指定的生成器創建服務
func NewServiceWithGenerator(g Generator, c cache.Cache) *Service {
	return &Service{
		generator: g,
		cache:     c,
	}
}

// ProcessRequest 統一對外方法
func (s *Service) ProcessRequest(ctx context.Context, prompt string) (*Response, error) {
	// 統一 prompt 格式，確保快取 key 一致
	prompt = strings.Join(strings.Fields(prompt), " ")
	if prompt == "" {
		return nil, common.NewValidationError("prompt is empty")
	}
	key := "ai:" + prompt

	if s.cache != nil {
		if val, err := s.cache.Get(ctx, key); err == nil && val != "" {
			return &Response{Content: val, CacheHit: true}, nil
		}
	}

	start := time.Now()
	content, err := s.generator.GenerateResponse(ctx, prompt)
	common.LogAICall(time.Since(start), err)
	if err != nil {
		return nil, common.ErrAIServiceError.Wrap(fmt.Errorf("generate: %w", err))
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, key, content)
	}

	return &Response{Content: content}, nil
}

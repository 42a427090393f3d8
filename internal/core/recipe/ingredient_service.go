package recipe

import (
	"context"
	"fmt"
	"strings"

	aiservice "grocery-companion/internal/core/ai/service"
	"grocery-companion/internal/pkg/common"

	"go.uber.org/zap"
)

// maxPromptText 送入模型的文字上限
const maxPromptText = 3000

// Completer 文字生成介面
type Completer interface {
	ProcessRequest(ctx context.Context, prompt string) (*aiservice.Response, error)
}

// ParseResult 食材文字解析結果
type ParseResult struct {
	Ingredients []common.Ingredient `json:"ingredients"`
	Source      string              `json:"source"`
}

// 解析來源
const (
	SourceAI    = "ai"
	SourceRules = "rules"
)

// IngredientService 食材文字解析服務
type IngredientService struct {
	ai Completer
}

// NewIngredientService 創建食材解析服務，ai 為 nil 時只使用規則解析
func NewIngredientService(ai Completer) *IngredientService {
	return &IngredientService{ai: ai}
}

// ParseText 解析食材文字
// 每行一個食材時直接規則解析；useAI 時先嘗試模型抽取，失敗退回規則解析
func (s *IngredientService) ParseText(ctx context.Context, text string, useAI bool) (*ParseResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, common.ErrEmptyIngredientText
	}

	if useAI && s.ai != nil {
		ingredients, err := s.extractWithAI(ctx, text)
		if err == nil && len(ingredients) > 0 {
			return &ParseResult{Ingredients: ingredients, Source: SourceAI}, nil
		}
		common.LogWarn("AI ingredient extraction failed, falling back to rules", zap.Error(err))
		if extracted := ExtractIngredientLines(text); len(extracted) > 0 {
			return &ParseResult{Ingredients: extracted, Source: SourceRules}, nil
		}
	}

	return &ParseResult{Ingredients: ParseIngredientLines(text), Source: SourceRules}, nil
}

// extractWithAI 以模型抽取食材
func (s *IngredientService) extractWithAI(ctx context.Context, text string) ([]common.Ingredient, error) {
	if len(text) > maxPromptText {
		text = text[:maxPromptText]
	}

	prompt := fmt.Sprintf(`Extract the list of ingredients from this recipe text.
For each ingredient, provide:
- name: the ingredient name (e.g., "bloem", "eieren", "melk")
- quantity: the numeric quantity (or null if not specified)
- unit: the unit of measurement (e.g., "gram", "stuks", "el") or null
Return ONLY a JSON array. Only include food ingredients, not equipment or utensils.
Recipe text:
%s`, text)

	resp, err := s.ai.ProcessRequest(ctx, prompt)
	if err != nil {
		return nil, err
	}

	// 截取回應中的 JSON 陣列
	content := strings.TrimSpace(resp.Content)
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("no JSON array in AI response")
	}
	content = content[start : end+1]

	var items []map[string]interface{}
	if err := common.ParseJSON(content, &items); err != nil {
		if err := common.ParseJSON(common.QuoteJSONKeys(content), &items); err != nil {
			return nil, fmt.Errorf("failed to parse AI response: %w", err)
		}
	}

	ingredients := make([]common.Ingredient, 0, len(items))
	for _, item := range items {
		name := common.StringField(item, "name")
		if name == "" {
			continue
		}
		ing := common.Ingredient{
			Name:         name,
			Unit:         strings.ToLower(common.StringField(item, "unit")),
			OriginalText: name,
		}
		if q, ok := common.NumberField(item, "quantity"); ok {
			ing.Quantity = common.Float64Ptr(q)
		}
		ingredients = append(ingredients, ing)
	}

	common.LogInfo("Successfully extracted ingredients",
		zap.Int("ingredients_count", len(ingredients)),
		zap.Bool("cache_hit", resp.CacheHit),
	)

	return ingredients, nil
}

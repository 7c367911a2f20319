package scoring

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/N8Nexus-ai/product/internal/enrichment"
	"github.com/N8Nexus-ai/product/platform/logger"
)

// Blend weights: the AI estimate leads, the rule estimate anchors it.
const (
	aiWeight   = 0.7
	ruleWeight = 0.3
)

// Input carries everything one scoring pass reads.
type Input struct {
	Name         *string
	Email        *string
	Phone        *string
	Message      *string
	Source       string
	CustomFields json.RawMessage
	EnrichedData json.RawMessage
}

// Outcome is the final blended estimate.
type Outcome struct {
	Score   int      `json:"score"`
	Reason  string   `json:"reason"`
	Factors []Factor `json:"factors"`
}

// Service is the scoring engine: a deterministic rule estimator blended with
// an AI estimate, degrading to rule-only when no provider can answer.
type Service struct {
	ai  *AIEstimator
	log *logger.Logger
}

// NewService creates the scoring engine.
func NewService(ai *AIEstimator, log *logger.Logger) *Service {
	return &Service{ai: ai, log: log}
}

// Score computes the blended 0-100 estimate. The rule pass cannot fail;
// AI failure of any class falls back to the rule score with an annotated
// reason, so Score itself never returns an error for provider problems.
func (s *Service) Score(ctx context.Context, input Input) Outcome {
	enriched := ParseEnriched(input.EnrichedData)

	rules := ScoreRules(RuleInput{
		Email:    input.Email,
		Phone:    input.Phone,
		Message:  input.Message,
		Source:   input.Source,
		Enriched: enriched,
	})

	ai, err := s.ai.Score(ctx, AIInput{
		Name:         input.Name,
		Email:        input.Email,
		Phone:        input.Phone,
		Message:      input.Message,
		Source:       input.Source,
		CustomFields: input.CustomFields,
		Enriched:     enriched,
	})
	if err != nil {
		s.log.Warn("ai_scoring_unavailable", "error", err.Error())
		return Outcome{
			Score:   rules.Score,
			Reason:  fmt.Sprintf("Rule-based scoring (AI unavailable): %s", rules.Reason),
			Factors: rules.Factors,
		}
	}

	score := blendScores(ai.Score, rules.Score)
	factors := append(append([]Factor(nil), rules.Factors...), Factor{
		Name:   FactorAIAnalysis,
		Score:  float64(ai.Score),
		Weight: aiWeight,
	})

	return Outcome{
		Score:   score,
		Reason:  fmt.Sprintf("%s\n\nAnálise técnica: %s", ai.Reason, rules.Reason),
		Factors: factors,
	}
}

// ParseEnriched decodes a lead's enriched blob. Malformed blobs decode to
// nil, which the estimators treat as "no enrichment".
func ParseEnriched(raw json.RawMessage) *enrichment.Result {
	if len(raw) == 0 {
		return nil
	}
	var result enrichment.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil
	}
	return &result
}

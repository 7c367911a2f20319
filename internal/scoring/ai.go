package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/N8Nexus-ai/product/internal/enrichment"
	"github.com/N8Nexus-ai/product/platform/apperr"
	"github.com/N8Nexus-ai/product/platform/logger"
)

// TextGenerator is the LLM provider contract the AI estimator needs.
// platform/ai/gemini and platform/ai/anthropic implement it.
type TextGenerator interface {
	Name() string
	GenerateText(ctx context.Context, prompt, system string) (string, error)
}

const (
	defaultAIScore  = 50
	defaultAIReason = "AI analysis completed"

	systemInstruction = "You are a sales lead qualification analyst for Brazilian B2B companies."
)

var (
	scorePattern  = regexp.MustCompile(`(?i)SCORE:\s*(\d+)`)
	reasonPattern = regexp.MustCompile(`(?is)REASON:\s*(.+)`)
)

// AIInput carries the lead facts embedded into the scoring prompt.
type AIInput struct {
	Name         *string
	Email        *string
	Phone        *string
	Message      *string
	Source       string
	CustomFields json.RawMessage
	Enriched     *enrichment.Result
}

// AIOutcome is the parsed model estimate.
type AIOutcome struct {
	Score    int
	Reason   string
	Provider string
}

// AIEstimator scores leads with a fallback-ordered provider chain.
type AIEstimator struct {
	providers []TextGenerator
	log       *logger.Logger
}

// NewAIEstimator creates the AI estimator. Providers are tried in order.
func NewAIEstimator(log *logger.Logger, providers ...TextGenerator) *AIEstimator {
	return &AIEstimator{providers: providers, log: log}
}

// Score prompts the first available provider and parses its SCORE/REASON
// response. A malformed response degrades to a neutral 50; a provider error
// falls through to the next provider; exhausting the chain fails.
func (e *AIEstimator) Score(ctx context.Context, input AIInput) (AIOutcome, error) {
	if len(e.providers) == 0 {
		return AIOutcome{}, apperr.New(apperr.KindValidation, "no AI provider configured")
	}

	prompt := buildPrompt(input)

	var lastErr error
	for _, provider := range e.providers {
		text, err := provider.GenerateText(ctx, prompt, systemInstruction)
		if err != nil {
			e.log.Warn("ai_provider_failed", "provider", provider.Name(), "error", err.Error())
			lastErr = err
			continue
		}

		score, reason := parseAIResponse(text)
		return AIOutcome{Score: score, Reason: reason, Provider: provider.Name()}, nil
	}

	return AIOutcome{}, apperr.Wrap(apperr.KindUnavailable, "all AI providers failed", lastErr)
}

func buildPrompt(input AIInput) string {
	var b strings.Builder
	b.WriteString("Analyze this sales lead and estimate its qualification potential.\n\n")
	writeField(&b, "Name", input.Name)
	writeField(&b, "Email", input.Email)
	writeField(&b, "Phone", input.Phone)
	writeField(&b, "Message", input.Message)
	fmt.Fprintf(&b, "Source: %s\n", input.Source)

	if len(input.CustomFields) > 0 && string(input.CustomFields) != "{}" {
		fmt.Fprintf(&b, "Custom fields: %s\n", string(input.CustomFields))
	}
	if input.Enriched != nil && !input.Enriched.Empty() {
		if data, err := json.Marshal(input.Enriched); err == nil {
			fmt.Fprintf(&b, "Enriched data: %s\n", string(data))
		}
	}

	b.WriteString("\nRespond in this exact format:\n")
	b.WriteString("SCORE: [number 0-100]\n")
	b.WriteString("REASON: [brief explanation in Portuguese]\n")
	return b.String()
}

func writeField(b *strings.Builder, label string, value *string) {
	if value != nil && strings.TrimSpace(*value) != "" {
		fmt.Fprintf(b, "%s: %s\n", label, strings.TrimSpace(*value))
	}
}

// parseAIResponse extracts the SCORE/REASON pair, clamping the score to
// [0,100] and defaulting to a neutral estimate when the pattern is missing.
func parseAIResponse(text string) (int, string) {
	score := defaultAIScore
	if match := scorePattern.FindStringSubmatch(text); match != nil {
		if parsed, err := strconv.Atoi(match[1]); err == nil {
			score = clampScore(parsed)
		}
	}

	reason := defaultAIReason
	if match := reasonPattern.FindStringSubmatch(text); match != nil {
		reason = strings.TrimSpace(match[1])
	}

	return score, reason
}

// blendScores combines the AI and rule estimates, AI-weighted.
func blendScores(aiScore, ruleScore int) int {
	return clampScore(int(math.Round(float64(aiScore)*aiWeight + float64(ruleScore)*ruleWeight)))
}

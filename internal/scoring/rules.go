// Package scoring computes a 0-100 qualification score for a lead by
// blending a deterministic rule estimator with an AI-assisted estimate.
package scoring

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/N8Nexus-ai/product/internal/enrichment"
)

// Factor is one weighted rule contribution.
type Factor struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Weight float64 `json:"weight"`
}

// Rule factor names and weights. Weights sum to 1.0.
const (
	FactorEmailQuality   = "Email Quality"
	FactorPhoneQuality   = "Phone Quality"
	FactorDataEnrichment = "Data Enrichment"
	FactorCompanyProfile = "Company Profile"
	FactorMessageQuality = "Message Quality"
	FactorLeadSource     = "Lead Source"
	FactorAIAnalysis     = "AI Analysis"

	weightEmailQuality   = 0.15
	weightPhoneQuality   = 0.10
	weightDataEnrichment = 0.20
	weightCompanyProfile = 0.25
	weightMessageQuality = 0.15
	weightLeadSource     = 0.15
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// buyingKeywords signal purchase intent in a lead message.
var buyingKeywords = []string{"quero", "preciso", "orçamento", "quanto custa", "contratar", "comprar"}

// urgencyKeywords signal time pressure in a lead message.
var urgencyKeywords = []string{"urgente", "rápido", "hoje", "agora"}

// sourceScores is the fixed per-channel lookup table.
var sourceScores = map[string]float64{
	"linkedin":     90,
	"typeform":     85,
	"google":       80,
	"landing-page": 75,
	"facebook":     70,
	"manual":       60,
	"other":        50,
}

// RuleInput carries the lead facts the rule estimator reads.
type RuleInput struct {
	Email    *string
	Phone    *string
	Message  *string
	Source   string
	Enriched *enrichment.Result
}

// RuleOutcome is the deterministic estimate.
type RuleOutcome struct {
	Score   int
	Reason  string
	Factors []Factor
}

// ScoreRules runs the six-factor weighted estimate. It never fails: malformed
// or missing inputs degrade to defensive defaults, and every sub-score stays
// in [0,100].
func ScoreRules(input RuleInput) RuleOutcome {
	factors := []Factor{
		{Name: FactorEmailQuality, Score: scoreEmailQuality(input), Weight: weightEmailQuality},
		{Name: FactorPhoneQuality, Score: scorePhoneQuality(input), Weight: weightPhoneQuality},
		{Name: FactorDataEnrichment, Score: scoreDataEnrichment(input.Enriched), Weight: weightDataEnrichment},
		{Name: FactorCompanyProfile, Score: scoreCompanyProfile(input.Enriched), Weight: weightCompanyProfile},
		{Name: FactorMessageQuality, Score: scoreMessageQuality(input.Message), Weight: weightMessageQuality},
		{Name: FactorLeadSource, Score: scoreLeadSource(input.Source), Weight: weightLeadSource},
	}

	var weighted float64
	for _, f := range factors {
		weighted += f.Score * f.Weight
	}
	score := clampScore(int(math.Round(weighted)))

	return RuleOutcome{
		Score:   score,
		Reason:  ruleReason(score, factors),
		Factors: factors,
	}
}

func scoreEmailQuality(input RuleInput) float64 {
	if input.Email == nil || strings.TrimSpace(*input.Email) == "" {
		return 0
	}

	if input.Enriched != nil && input.Enriched.EmailValidation != nil {
		validation := input.Enriched.EmailValidation
		switch {
		case !validation.Valid:
			return 0
		case validation.Disposable:
			return 20
		case validation.Role:
			return 60
		default:
			return 100
		}
	}

	if emailPattern.MatchString(strings.TrimSpace(*input.Email)) {
		return 70
	}
	return 0
}

func scorePhoneQuality(input RuleInput) float64 {
	if input.Phone == nil || strings.TrimSpace(*input.Phone) == "" {
		return 0
	}

	if input.Enriched != nil && input.Enriched.PhoneValidation != nil {
		if input.Enriched.PhoneValidation.Valid {
			return 100
		}
		return 30
	}

	digits := 0
	for _, r := range *input.Phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits >= 10 {
		return 70
	}
	return 30
}

func scoreDataEnrichment(enriched *enrichment.Result) float64 {
	if enriched == nil || enriched.Empty() {
		return 0
	}

	var score float64
	if enriched.CompanyRegistry != nil {
		score += 40
	}
	if enriched.SocialProfile != nil {
		score += 30
	}
	if enriched.EmailValidation != nil {
		score += 15
	}
	if enriched.PhoneValidation != nil {
		score += 15
	}
	return clampFloat(score)
}

func scoreCompanyProfile(enriched *enrichment.Result) float64 {
	if enriched == nil || enriched.CompanyRegistry == nil {
		// Neutral when no registry data is available.
		return 50
	}
	registry := enriched.CompanyRegistry

	var score float64

	size := strings.ToUpper(registry.Size)
	switch {
	case strings.Contains(size, "MEDIO") || strings.Contains(size, "MÉDIO") || strings.Contains(size, "GRANDE") || strings.Contains(size, "DEMAIS"):
		score += 50
	case strings.Contains(size, "PEQUENO") || strings.Contains(size, "EPP"):
		score += 30
	default:
		score += 10
	}

	capital := parseRegistryCapital(registry.Capital)
	switch {
	case capital > 1_000_000:
		score += 30
	case capital > 100_000:
		score += 20
	default:
		score += 10
	}

	years := companyAgeYears(registry.OpeningDate, time.Now())
	switch {
	case years > 5:
		score += 20
	case years > 2:
		score += 10
	}

	return clampFloat(score)
}

func scoreMessageQuality(message *string) float64 {
	if message == nil || strings.TrimSpace(*message) == "" {
		return 50
	}
	text := strings.TrimSpace(*message)
	length := len([]rune(text))

	switch {
	case length < 10:
		return 30
	case length > 1000:
		return 40
	case length >= 20 && length <= 500:
		score := float64(70)
		lower := strings.ToLower(text)
		if containsAny(lower, buyingKeywords) {
			score += 20
		}
		if containsAny(lower, urgencyKeywords) {
			score += 10
		}
		return clampFloat(score)
	default:
		return 60
	}
}

func scoreLeadSource(source string) float64 {
	if score, ok := sourceScores[strings.ToLower(strings.TrimSpace(source))]; ok {
		return score
	}
	return 50
}

// parseRegistryCapital parses Brazilian-formatted currency strings like
// "1.000.000,00". Malformed values parse to 0.
func parseRegistryCapital(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}

// companyAgeYears parses a registry opening date (dd/mm/yyyy) into whole
// years relative to now. Malformed dates yield 0.
func companyAgeYears(openingDate string, now time.Time) float64 {
	opened, err := time.Parse("02/01/2006", strings.TrimSpace(openingDate))
	if err != nil {
		return 0
	}
	years := now.Sub(opened).Hours() / 24 / 365.25
	if years < 0 {
		return 0
	}
	return years
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

// ruleReason builds the Portuguese summary the dashboard shows, naming the
// three strongest factors for scores that clear the qualification tiers.
func ruleReason(score int, factors []Factor) string {
	sorted := append([]Factor(nil), factors...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	top := make([]string, 0, 3)
	for i := 0; i < len(sorted) && i < 3; i++ {
		top = append(top, sorted[i].Name)
	}
	highlights := strings.Join(top, ", ")

	switch {
	case score >= 80:
		return fmt.Sprintf("Lead altamente qualificado. Destaques: %s", highlights)
	case score >= 60:
		return fmt.Sprintf("Lead qualificado. Bons indicadores em: %s", highlights)
	case score >= 40:
		return "Lead com potencial moderado. Requer validação adicional."
	default:
		return "Lead com baixa qualificação. Dados insuficientes ou perfil não adequado."
	}
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func clampFloat(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

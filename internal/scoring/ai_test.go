package scoring

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/N8Nexus-ai/product/platform/apperr"
	"github.com/N8Nexus-ai/product/platform/logger"
)

type fakeProvider struct {
	name string
	text string
	err  error

	called bool
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) GenerateText(ctx context.Context, prompt, system string) (string, error) {
	p.called = true
	if p.err != nil {
		return "", p.err
	}
	return p.text, nil
}

func TestParseAIResponse(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantScore  int
		wantReason string
	}{
		{
			"well formed",
			"SCORE: 85\nREASON: Lead com perfil forte",
			85,
			"Lead com perfil forte",
		},
		{
			"case insensitive with noise",
			"Here is my analysis.\nscore: 72\nreason: Bom potencial de compra",
			72,
			"Bom potencial de compra",
		},
		{
			"score above range clamps",
			"SCORE: 150\nREASON: exagerado",
			100,
			"exagerado",
		},
		{
			"missing both defaults",
			"I cannot provide a structured answer.",
			50,
			"AI analysis completed",
		},
		{
			"multiline reason",
			"SCORE: 40\nREASON: Primeira linha\nsegunda linha",
			40,
			"Primeira linha\nsegunda linha",
		},
	}

	for _, tt := range tests {
		score, reason := parseAIResponse(tt.text)
		if score != tt.wantScore {
			t.Errorf("%s: score = %d, want %d", tt.name, score, tt.wantScore)
		}
		if reason != tt.wantReason {
			t.Errorf("%s: reason = %q, want %q", tt.name, reason, tt.wantReason)
		}
	}
}

func TestBlendScores(t *testing.T) {
	tests := []struct {
		ai, rule, want int
	}{
		{80, 60, 74},
		{100, 100, 100},
		{0, 0, 0},
		{50, 50, 50},
		{90, 30, 72},
	}

	for _, tt := range tests {
		if got := blendScores(tt.ai, tt.rule); got != tt.want {
			t.Errorf("blendScores(%d, %d) = %d, want %d", tt.ai, tt.rule, got, tt.want)
		}
	}
}

func TestAIEstimatorNoProviders(t *testing.T) {
	estimator := NewAIEstimator(logger.New("test"))

	_, err := estimator.Score(context.Background(), AIInput{Source: "manual"})
	if err == nil {
		t.Fatal("expected error with no providers configured")
	}
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("error kind = %v, want validation", apperr.GetKind(err))
	}
}

func TestAIEstimatorFallsThroughToSecondProvider(t *testing.T) {
	primary := &fakeProvider{name: "gemini", err: errors.New("quota exceeded")}
	secondary := &fakeProvider{name: "anthropic", text: "SCORE: 65\nREASON: ok"}
	estimator := NewAIEstimator(logger.New("test"), primary, secondary)

	outcome, err := estimator.Score(context.Background(), AIInput{Source: "manual"})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if !primary.called {
		t.Fatal("primary provider was never tried")
	}
	if outcome.Provider != "anthropic" {
		t.Fatalf("provider = %q, want anthropic", outcome.Provider)
	}
	if outcome.Score != 65 {
		t.Fatalf("score = %d, want 65", outcome.Score)
	}
}

func TestAIEstimatorAllProvidersFail(t *testing.T) {
	estimator := NewAIEstimator(logger.New("test"),
		&fakeProvider{name: "gemini", err: errors.New("down")},
		&fakeProvider{name: "anthropic", err: errors.New("also down")},
	)

	_, err := estimator.Score(context.Background(), AIInput{Source: "manual"})
	if err == nil {
		t.Fatal("expected error when every provider fails")
	}
	if apperr.GetKind(err) != apperr.KindUnavailable {
		t.Fatalf("error kind = %v, want unavailable", apperr.GetKind(err))
	}
}

func TestServiceScoreBlendsAIAndRules(t *testing.T) {
	provider := &fakeProvider{name: "gemini", text: "SCORE: 90\nREASON: Empresa sólida com intenção clara"}
	svc := NewService(NewAIEstimator(logger.New("test"), provider), logger.New("test"))

	outcome := svc.Score(context.Background(), Input{
		Email:   strPtr("diretor@empresa.com.br"),
		Message: strPtr("Quero contratar, preciso de orçamento urgente para este mês"),
		Source:  "linkedin",
	})

	if outcome.Score < 60 || outcome.Score > 100 {
		t.Fatalf("blended score = %d, out of expected band", outcome.Score)
	}
	if !strings.Contains(outcome.Reason, "Empresa sólida") {
		t.Fatalf("reason %q missing AI explanation", outcome.Reason)
	}
	if !strings.Contains(outcome.Reason, "Análise técnica:") {
		t.Fatalf("reason %q missing rule annotation", outcome.Reason)
	}

	last := outcome.Factors[len(outcome.Factors)-1]
	if last.Name != FactorAIAnalysis || last.Score != 90 {
		t.Fatalf("last factor = %+v, want AI analysis at 90", last)
	}
}

func TestServiceScoreFallsBackToRulesWhenAIUnavailable(t *testing.T) {
	provider := &fakeProvider{name: "gemini", err: errors.New("timeout")}
	svc := NewService(NewAIEstimator(logger.New("test"), provider), logger.New("test"))

	outcome := svc.Score(context.Background(), Input{
		Email:  strPtr("joao@empresa.com.br"),
		Source: "manual",
	})

	rules := ScoreRules(RuleInput{Email: strPtr("joao@empresa.com.br"), Source: "manual"})
	if outcome.Score != rules.Score {
		t.Fatalf("fallback score = %d, want rule score %d", outcome.Score, rules.Score)
	}
	if !strings.HasPrefix(outcome.Reason, "Rule-based scoring (AI unavailable): ") {
		t.Fatalf("fallback reason %q missing annotation", outcome.Reason)
	}
	if len(outcome.Factors) != 6 {
		t.Fatalf("fallback factor count = %d, want rule factors only", len(outcome.Factors))
	}
}

func TestParseEnriched(t *testing.T) {
	if got := ParseEnriched(nil); got != nil {
		t.Fatalf("nil blob parsed to %+v", got)
	}
	if got := ParseEnriched([]byte("not json")); got != nil {
		t.Fatalf("malformed blob parsed to %+v", got)
	}

	got := ParseEnriched([]byte(`{"emailValidation":{"valid":true,"score":100}}`))
	if got == nil || got.EmailValidation == nil || !got.EmailValidation.Valid {
		t.Fatalf("valid blob parsed to %+v", got)
	}
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/vitalis-health/backend/internal/models"
)

// AnalysisResult is the outcome of the analysis step. It is serialized into
// the record's analysis_result column and is written exactly once.
type AnalysisResult struct {
	OverallScore    int            `json:"overall_score"`
	CategoryScores  map[string]int `json:"category_scores"`
	RiskFactors     []string       `json:"risk_factors"`
	Recommendations string         `json:"recommendations"`
	Provider        string         `json:"provider,omitempty"`
}

// RecommendationProvider turns assessment data into narrative advice.
// Providers are advisory: any failure degrades to built-in text instead of
// failing the analyze request.
type RecommendationProvider interface {
	Name() string
	Generate(ctx context.Context, profile *models.UserProfile, result *AnalysisResult) (string, error)
}

// Analyzer computes scores from the filled sections and asks the provider
// chain for recommendations, trying each provider in order.
type Analyzer struct {
	providers []RecommendationProvider
}

func NewAnalyzer(providers ...RecommendationProvider) *Analyzer {
	return &Analyzer{providers: providers}
}

// Analyze scores the record's sections and attaches recommendations.
func (a *Analyzer) Analyze(ctx context.Context, profile *models.UserProfile, rec *models.AssessmentRecord) (*AnalysisResult, error) {
	result := &AnalysisResult{
		CategoryScores: map[string]int{},
	}

	sections := map[string][]byte{
		"lifestyle":     rec.Lifestyle,
		"blood_work":    rec.BloodWork,
		"diet":          rec.Diet,
		"mental_health": rec.MentalHealth,
	}

	total, counted := 0, 0
	for name, raw := range sections {
		if len(raw) == 0 {
			continue
		}
		score, risks := scoreSection(name, raw)
		result.CategoryScores[name] = score
		result.RiskFactors = append(result.RiskFactors, risks...)
		total += score
		counted++
	}

	if counted > 0 {
		result.OverallScore = total / counted
	} else {
		// Nothing filled in: neutral score, no risk factors.
		result.OverallScore = 70
	}
	result.OverallScore = clampScore(result.OverallScore)

	result.Recommendations, result.Provider = a.recommendations(ctx, profile, result)
	return result, nil
}

// recommendations walks the provider chain; all failures fall back to the
// built-in rule-based text.
func (a *Analyzer) recommendations(ctx context.Context, profile *models.UserProfile, result *AnalysisResult) (string, string) {
	for _, p := range a.providers {
		text, err := p.Generate(ctx, profile, result)
		if err != nil {
			log.Printf("[Analyzer] provider %s failed, trying next: %v", p.Name(), err)
			continue
		}
		if strings.TrimSpace(text) != "" {
			return text, p.Name()
		}
	}
	return fallbackRecommendations(result), "builtin"
}

// scoreSection derives a 0-100 category score from a free-form section
// payload, docking points for recognized risk signals.
func scoreSection(name string, raw []byte) (int, []string) {
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return 70, nil
	}

	score := 100
	var risks []string
	penalize := func(points int, risk string) {
		score -= points
		risks = append(risks, risk)
	}

	for key, val := range fields {
		k := strings.ToLower(key)
		switch v := val.(type) {
		case bool:
			if v && (k == "smoking" || k == "smoker") {
				penalize(25, "smoking")
			}
			if v && strings.Contains(k, "hypertension") {
				penalize(20, "hypertension")
			}
		case string:
			s := strings.ToLower(v)
			switch {
			case strings.Contains(k, "alcohol") && (s == "heavy" || s == "daily"):
				penalize(20, "heavy alcohol use")
			case strings.Contains(k, "exercise") && (s == "none" || s == "never"):
				penalize(15, "sedentary lifestyle")
			case strings.Contains(k, "stress") && (s == "high" || s == "severe"):
				penalize(15, "high stress")
			case strings.Contains(k, "cholesterol") && s == "high":
				penalize(20, "high cholesterol")
			case strings.Contains(k, "sleep") && (s == "poor" || s == "insomnia"):
				penalize(10, "poor sleep")
			}
		case float64:
			if strings.Contains(k, "sleep") && v > 0 && v < 6 {
				penalize(10, fmt.Sprintf("short sleep (%.0fh)", v))
			}
			if k == "bmi" && (v >= 30 || (v > 0 && v < 18.5)) {
				penalize(15, fmt.Sprintf("BMI out of range (%.1f)", v))
			}
			if strings.Contains(k, "glucose") && v > 125 {
				penalize(20, "elevated glucose")
			}
		}
	}

	return clampScore(score), risks
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

func fallbackRecommendations(result *AnalysisResult) string {
	var b strings.Builder
	switch {
	case result.OverallScore >= 80:
		b.WriteString("Your overall results look good. Keep up your current habits and schedule routine check-ups.")
	case result.OverallScore >= 50:
		b.WriteString("Your results show room for improvement. Focus on regular exercise, balanced nutrition and consistent sleep.")
	default:
		b.WriteString("Several results need attention. Please discuss this report with a healthcare professional.")
	}
	for _, risk := range result.RiskFactors {
		b.WriteString("\n- Address: ")
		b.WriteString(risk)
	}
	return b.String()
}

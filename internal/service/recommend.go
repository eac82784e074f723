package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/vitalis-health/backend/internal/models"
)

// readAPIKey resolves an API key from VAR or VAR_FILE, the same way secrets
// reach the other external clients.
func readAPIKey(envVar string) (string, error) {
	if key := os.Getenv(envVar); key != "" {
		return key, nil
	}
	keyFile := os.Getenv(envVar + "_FILE")
	if keyFile == "" {
		return "", fmt.Errorf("%s or %s_FILE must be set", envVar, envVar)
	}
	data, err := os.ReadFile(keyFile)
	if err != nil {
		return "", fmt.Errorf("failed to read API key file: %w", err)
	}
	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", fmt.Errorf("API key file is empty")
	}
	return key, nil
}

func recommendationPrompt(profile *models.UserProfile, result *AnalysisResult) string {
	var b strings.Builder
	b.WriteString("You are a health advisor. Based on the assessment below, write 3-5 short, practical recommendations in plain language. Do not diagnose.\n")
	fmt.Fprintf(&b, "Age: %d, gender: %s, country: %s.\n", profile.Age, profile.Gender, profile.Country)
	fmt.Fprintf(&b, "Overall health score: %d/100.\n", result.OverallScore)
	for cat, score := range result.CategoryScores {
		fmt.Fprintf(&b, "%s score: %d/100.\n", cat, score)
	}
	if len(result.RiskFactors) > 0 {
		fmt.Fprintf(&b, "Risk factors: %s.\n", strings.Join(result.RiskFactors, ", "))
	}
	return b.String()
}

// DeepSeekProvider calls the DeepSeek chat completions API over plain HTTP.
type DeepSeekProvider struct {
	apiKey string
	apiURL string
	client *http.Client
}

var _ RecommendationProvider = (*DeepSeekProvider)(nil)

// NewDeepSeekProvider reads DEEPSEEK_API_KEY (or DEEPSEEK_API_KEY_FILE) and
// DEEPSEEK_API_URL from the environment.
func NewDeepSeekProvider() (*DeepSeekProvider, error) {
	apiKey, err := readAPIKey("DEEPSEEK_API_KEY")
	if err != nil {
		return nil, err
	}
	apiURL := os.Getenv("DEEPSEEK_API_URL")
	if apiURL == "" {
		apiURL = "https://api.deepseek.com/v1/chat/completions"
	}
	return &DeepSeekProvider{
		apiKey: apiKey,
		apiURL: apiURL,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (p *DeepSeekProvider) Name() string { return "deepseek" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (p *DeepSeekProvider) Generate(ctx context.Context, profile *models.UserProfile, result *AnalysisResult) (string, error) {
	reqBody := chatRequest{
		Model: "deepseek-chat",
		Messages: []chatMessage{
			{Role: "user", Content: recommendationPrompt(profile, result)},
		},
		Temperature: 0.7,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.apiKey))

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrUpstream)
	}
	return parsed.Choices[0].Message.Content, nil
}

// GeminiProvider calls Google Gemini through the genai SDK.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

var _ RecommendationProvider = (*GeminiProvider)(nil)

// NewGeminiProvider reads GEMINI_API_KEY (or GEMINI_API_KEY_FILE) from the
// environment.
func NewGeminiProvider(ctx context.Context) (*GeminiProvider, error) {
	apiKey, err := readAPIKey("GEMINI_API_KEY")
	if err != nil {
		return nil, err
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GeminiProvider{client: client, model: model}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Generate(ctx context.Context, profile *models.UserProfile, result *AnalysisResult) (string, error) {
	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(recommendationPrompt(profile, result)), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: empty response", ErrUpstream)
	}
	return text, nil
}

// BuildProviderChain constructs providers from a comma-separated list like
// "deepseek,gemini". Providers that fail to initialize (usually a missing
// key) are skipped with a log line; an empty chain just means the built-in
// fallback text is always used.
func BuildProviderChain(ctx context.Context, spec string) []RecommendationProvider {
	var providers []RecommendationProvider
	for _, name := range strings.Split(spec, ",") {
		switch strings.TrimSpace(strings.ToLower(name)) {
		case "":
			continue
		case "deepseek":
			p, err := NewDeepSeekProvider()
			if err != nil {
				log.Printf("[Recommend] skipping deepseek provider: %v", err)
				continue
			}
			providers = append(providers, p)
		case "gemini":
			p, err := NewGeminiProvider(ctx)
			if err != nil {
				log.Printf("[Recommend] skipping gemini provider: %v", err)
				continue
			}
			providers = append(providers, p)
		default:
			log.Printf("[Recommend] unknown provider %q ignored", name)
		}
	}
	return providers
}

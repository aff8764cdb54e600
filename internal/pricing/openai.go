// Package pricing asks an OpenAI-compatible chat-completions endpoint
// for advisory price estimates.  It never falls back on its own; callers
// own the fallback values.
package pricing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/rentable/internal/model"
)

const (
	defaultModel   = "gpt-4o-mini"
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 15 * time.Second
)

// ErrNoAnswer is returned when the model replied with nothing usable.
var ErrNoAnswer = errors.New("pricing: no usable answer")

type Options struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// OpenAIOracle implements the price oracle on top of chat completions.
type OpenAIOracle struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewOpenAIOracle validates opts and returns an oracle.
func NewOpenAIOracle(opts Options) (*OpenAIOracle, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	m := strings.TrimSpace(opts.Model)
	if m == "" {
		m = defaultModel
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &OpenAIOracle{apiKey: strings.TrimSpace(opts.APIKey), model: m, baseURL: baseURL, client: client}, nil
}

type estimatePayload struct {
	SuggestedPrice float64 `json:"suggestedPrice"`
	MinPrice       float64 `json:"minPrice"`
	MaxPrice       float64 `json:"maxPrice"`
	Confidence     string  `json:"confidence"`
	Reasoning      string  `json:"reasoning"`
	CO2SavedKg     float64 `json:"co2SavedKg"`
}

type weirdPayload struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	PricePerDay float64 `json:"pricePerDay"`
	Emoji       string  `json:"emoji"`
	WeirdScore  int     `json:"weirdScore"`
	FunFact     string  `json:"funFact"`
}

func money(f float64) decimal.Decimal { return decimal.NewFromFloat(f).Round(2) }

// EstimatePrice asks for a fair daily rental price.
func (o *OpenAIOracle) EstimatePrice(ctx context.Context, item model.ItemDescriptor) (model.PriceEstimate, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Estimate a fair daily rental price in USD for this item.\nTitle: %s\n", item.Title)
	if item.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", item.Description)
	}
	if item.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", item.Category)
	}
	if item.Condition != "" {
		fmt.Fprintf(&b, "Condition: %s\n", item.Condition)
	}
	if item.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", item.Location)
	}
	b.WriteString(`Respond with JSON: {"suggestedPrice": number, "minPrice": number, "maxPrice": number, ` +
		`"confidence": "low"|"medium"|"high", "reasoning": string, "co2SavedKg": number}`)

	var p estimatePayload
	if err := o.complete(ctx, "You are a pricing assistant for a peer-to-peer rental marketplace. Respond only with JSON.", b.String(), 0.3, &p); err != nil {
		return model.PriceEstimate{}, err
	}
	if p.SuggestedPrice <= 0 {
		return model.PriceEstimate{}, ErrNoAnswer
	}
	if p.MinPrice <= 0 || p.MinPrice > p.SuggestedPrice {
		p.MinPrice = p.SuggestedPrice
	}
	if p.MaxPrice < p.SuggestedPrice {
		p.MaxPrice = p.SuggestedPrice
	}
	switch p.Confidence {
	case "low", "medium", "high":
	default:
		p.Confidence = "medium"
	}
	return model.PriceEstimate{
		SuggestedPrice: money(p.SuggestedPrice),
		MinPrice:       money(p.MinPrice),
		MaxPrice:       money(p.MaxPrice),
		Confidence:     p.Confidence,
		Reasoning:      strings.TrimSpace(p.Reasoning),
		CO2SavedKg:     money(max(p.CO2SavedKg, 0)),
		Estimated:      true,
	}, nil
}

// PickWeird asks for one unusual rentable item.
func (o *OpenAIOracle) PickWeird(ctx context.Context) (model.WeirdPick, error) {
	var p weirdPayload
	prompt := `Invent one delightfully weird but real item someone could rent for a day. Respond with JSON: ` +
		`{"name": string, "description": string, "pricePerDay": number, "emoji": string, "weirdScore": 1-10, "funFact": string}`
	if err := o.complete(ctx, "You curate the Weird Vault of a rental marketplace. Respond only with JSON.", prompt, 0.9, &p); err != nil {
		return model.WeirdPick{}, err
	}
	if strings.TrimSpace(p.Name) == "" || p.PricePerDay <= 0 {
		return model.WeirdPick{}, ErrNoAnswer
	}
	p.WeirdScore = min(max(p.WeirdScore, 1), 10)
	return model.WeirdPick{
		Name:        strings.TrimSpace(p.Name),
		Description: strings.TrimSpace(p.Description),
		PricePerDay: money(p.PricePerDay),
		Emoji:       p.Emoji,
		WeirdScore:  p.WeirdScore,
		FunFact:     strings.TrimSpace(p.FunFact),
		Estimated:   true,
	}, nil
}

func (o *OpenAIOracle) complete(ctx context.Context, system, user string, temperature float64, out any) error {
	payload := chatRequest{
		Model:          o.model,
		Temperature:    temperature,
		ResponseFormat: &responseFormat{Type: "json_object"},
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	resp, err := o.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("openai status %d", resp.StatusCode)
	}
	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return err
	}
	if len(cr.Choices) == 0 {
		return ErrNoAnswer
	}
	text := extractJSON(cr.Choices[0].Message.Content)
	if text == "" {
		return ErrNoAnswer
	}
	return json.Unmarshal([]byte(text), out)
}

// extractJSON strips code fences and surrounding prose from a model reply.
func extractJSON(raw string) string {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return ""
	}
	return text[start : end+1]
}

package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"auto_sniper/models"
)

const (
	looksPrompt = `You grade whether the car in a photo matches a description. Be strict.
A colour mismatch or a photo that does not show a car scores 0.0. A near miss (e.g. dark red instead of bright red) scores 0.5.
Only a car matching every part of the description scores 1.0.
Description: %q
Answer with a JSON object only: {"score": <0.0-1.0>, "reasoning": "<one sentence>"}`

	descriptionPrompt = `You compare what a buyer wants with a car listing description.
Weigh fuel type, gearbox, body type, equipment and condition claims (bezwypadkowy, serwisowany, garażowany).
Answer with a single number between 0.0 (no match) and 1.0 (perfect match) and nothing else.`

	historyQualityPrompt = `You review Polish vehicle registry history (historiapojazdu.gov.pl).
Rate the history from 0.0 (avoid) to 1.0 (one owner, valid inspection and insurance, consistent odometer).
Consider owner and co-owner counts, inspection and insurance status, odometer readings and registration changes.
Answer with a single number between 0.0 and 1.0 and nothing else.`

	govDataPrompt = `You check a Polish vehicle registry history against a buyer's requirements
(owner count, engine and fuel, province, inspection and insurance status).
Answer with a single number between 0.0 (no requirement met) and 1.0 (all met) and nothing else.`

	filterPrompt = `You are AutoSniper, a filter for used car listings from Polish marketplaces (OLX, Otomoto, Samochody.pl, Autoplac, Gratka).
Decide whether the listing is worth showing to the buyer. Consider price sanity, distance, mileage and year, listing quality,
scam indicators and every explicit requirement of the buyer (engine, fuel, gearbox, equipment). A newer year than requested is fine, an older one is not.
Score the listing from 0 to 100; fractional scores are allowed.
Answer with a JSON object only: {"showToUser": true|false, "score": <0-100>, "explanation": "<1-2 sentences>"}`
)

// AIOracles implements the AI-backed matchers and the listing filter on top
// of a chat completion model. Responses are validated strictly; anything
// off-shape is reported as a ValidationError.
type AIOracles struct {
	chat *ChatClient
}

func NewAIOracles(chat *ChatClient) *AIOracles {
	return &AIOracles{chat: chat}
}

func temperature(v float64) *float64 { return &v }

func (a *AIOracles) MatchLooks(ctx context.Context, imageURL, preference string) (Score, error) {
	content, err := a.chat.Complete(ctx, ChatRequest{
		Messages: []ChatMessage{{
			Role: "user",
			Content: []ContentPart{
				{Type: "text", Text: fmt.Sprintf(looksPrompt, preference)},
				{Type: "image_url", ImageURL: &ImageURL{URL: imageURL, Detail: "low"}},
			},
		}},
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return Score{}, err
	}

	var out struct {
		Score     *float64 `json:"score"`
		Reasoning string   `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return Score{}, NewValidationWrap("looks response is not JSON", err)
	}
	if out.Score == nil {
		return Score{}, NewValidation("looks response has no score")
	}
	return Score{Value: *out.Score, Explanation: out.Reasoning}, nil
}

func (a *AIOracles) MatchDescription(ctx context.Context, preference, description string) (Score, error) {
	user := fmt.Sprintf("Buyer wants: %q\n\nListing: %q\n\nScore (0.0-1.0):", preference, description)
	return a.numeric(ctx, descriptionPrompt, user)
}

func (a *AIOracles) HistoryQuality(ctx context.Context, h *models.CarHistory) (Score, error) {
	text, err := historyText(h)
	if err != nil {
		return Score{}, err
	}
	return a.numeric(ctx, historyQualityPrompt, "History:\n"+text+"\n\nQuality score (0.0-1.0):")
}

func (a *AIOracles) GovDataMatch(ctx context.Context, h *models.CarHistory, preference string) (Score, error) {
	text, err := historyText(h)
	if err != nil {
		return Score{}, err
	}
	user := fmt.Sprintf("Buyer requirements: %q\n\nHistory:\n%s\n\nMatch score (0.0-1.0):", preference, text)
	return a.numeric(ctx, govDataPrompt, user)
}

func (a *AIOracles) Filter(ctx context.Context, listing models.ProcessedListing, q models.SearchQuery) (FilterDecision, error) {
	queryJSON, err := json.MarshalIndent(q, "", "  ")
	if err != nil {
		return FilterDecision{}, err
	}
	listingJSON, err := json.MarshalIndent(listing, "", "  ")
	if err != nil {
		return FilterDecision{}, err
	}

	content, err := a.chat.Complete(ctx, ChatRequest{
		Messages: []ChatMessage{
			{Role: "system", Content: filterPrompt},
			{Role: "user", Content: fmt.Sprintf("Buyer is looking for:\n%s\n\nListing:\n%s\n\nShould this listing be shown?", queryJSON, listingJSON)},
		},
		Temperature:    temperature(0.3),
		MaxTokens:      500,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return FilterDecision{}, err
	}
	return parseFilterDecision(content)
}

func parseFilterDecision(content string) (FilterDecision, error) {
	var out struct {
		ShowToUser  *bool    `json:"showToUser"`
		Score       *float64 `json:"score"`
		Explanation string   `json:"explanation"`
	}
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return FilterDecision{}, NewValidationWrap("filter response is not JSON", err)
	}
	if out.ShowToUser == nil {
		return FilterDecision{}, NewValidation("filter response has no showToUser")
	}
	if out.Score == nil {
		return FilterDecision{}, NewValidation("filter response has no score")
	}
	return FilterDecision{ShowToUser: *out.ShowToUser, Score: *out.Score, Explanation: out.Explanation}, nil
}

func (a *AIOracles) numeric(ctx context.Context, system, user string) (Score, error) {
	content, err := a.chat.Complete(ctx, ChatRequest{
		Messages: []ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: temperature(0.1),
		MaxTokens:   10,
	})
	if err != nil {
		return Score{}, err
	}
	return parseNumericScore(content)
}

func parseNumericScore(content string) (Score, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(content), 64)
	if err != nil {
		return Score{}, NewValidationWrap("expected a bare number", err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Score{}, NewValidation("score is not finite")
	}
	return Score{Value: v}, nil
}

func historyText(h *models.CarHistory) (string, error) {
	if !h.Complete() {
		return "", NewValidation("history has no technical data or event summary")
	}
	b, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/pkg/retrier"
)

const (
	defaultTimeout   = 120 * time.Second
	defaultMaxTokens = 16000
)

// Model responses sometimes wrap JSON in a markdown code fence.
var jsonFencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// DecisionClient asks the model for portfolio decisions.
type DecisionClient interface {
	// GetDecision sends the daily prompt and returns the parsed decision.
	GetDecision(ctx context.Context, systemPrompt, userPrompt string) (domain.Decision, error)
	// GetWeeklyResearch sends the research prompt and returns the parsed result.
	GetWeeklyResearch(ctx context.Context, systemPrompt, userPrompt string) (domain.WeeklyResearch, error)
}

// OpenAICompatibleClient talks to any chat-completions API that follows the
// OpenAI wire format.
type OpenAICompatibleClient struct {
	apiURL     string
	apiKey     string
	model      string
	httpClient *http.Client
	retry      *retrier.Retrier
}

// NewOpenAICompatibleClient creates a client for OpenAI-compatible APIs.
func NewOpenAICompatibleClient(apiURL, apiKey, model string) *OpenAICompatibleClient {
	return &OpenAICompatibleClient{
		apiURL: apiURL,
		apiKey: apiKey,
		model:  model,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		retry: retrier.New(retrier.WithInitialInterval(2 * time.Second)),
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string    `json:"id"`
	Model   string    `json:"model"`
	Choices []choice  `json:"choices"`
	Error   *apiError `json:"error,omitempty"`
}

type choice struct {
	Index        int     `json:"index"`
	Message      message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// GetDecision sends the daily rebalancing prompt and decodes the JSON reply.
func (c *OpenAICompatibleClient) GetDecision(ctx context.Context, systemPrompt, userPrompt string) (domain.Decision, error) {
	raw, err := c.complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return domain.Decision{}, err
	}
	return ParseDecision(raw)
}

// GetWeeklyResearch sends the weekly research prompt and decodes the reply.
func (c *OpenAICompatibleClient) GetWeeklyResearch(ctx context.Context, systemPrompt, userPrompt string) (domain.WeeklyResearch, error) {
	raw, err := c.complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return domain.WeeklyResearch{}, err
	}
	return ParseWeeklyResearch(raw)
}

func (c *OpenAICompatibleClient) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("LLM API key is empty")
	}

	reqBody := chatRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.0, // deterministic decisions over identical context
		MaxTokens:   defaultMaxTokens,
	}

	return retrier.DoWithData(c.retry, ctx, func(ctx context.Context) (string, error) {
		return c.sendRequest(ctx, reqBody)
	})
}

func (c *OpenAICompatibleClient) sendRequest(ctx context.Context, reqBody chatRequest) (string, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", errors.Wrap(err, "marshal chat request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", errors.Wrap(err, "create HTTP request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "HTTP request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("LLM API returned status %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", errors.Wrap(err, "unmarshal chat response")
	}

	if chatResp.Error != nil {
		return "", errors.Errorf("LLM API error: %s (type: %s, code: %s)",
			chatResp.Error.Message, chatResp.Error.Type, chatResp.Error.Code)
	}

	if len(chatResp.Choices) == 0 {
		return "", errors.New("LLM API returned no choices")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// ParseDecision decodes a model reply into a Decision, stripping an optional
// markdown code fence around the JSON body.
func ParseDecision(raw string) (domain.Decision, error) {
	payload := stripJSONFence(raw)

	var decision domain.Decision
	if err := json.Unmarshal([]byte(payload), &decision); err != nil {
		return domain.Decision{}, errors.Wrapf(err, "parse decision JSON: %q", truncate(payload, 200))
	}
	return decision, nil
}

// ParseWeeklyResearch decodes a model reply into a WeeklyResearch.
func ParseWeeklyResearch(raw string) (domain.WeeklyResearch, error) {
	payload := stripJSONFence(raw)

	var research domain.WeeklyResearch
	if err := json.Unmarshal([]byte(payload), &research); err != nil {
		return domain.WeeklyResearch{}, errors.Wrapf(err, "parse research JSON: %q", truncate(payload, 200))
	}
	return research, nil
}

func stripJSONFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if m := jsonFencePattern.FindStringSubmatch(trimmed); m != nil {
		return m[1]
	}
	return trimmed
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

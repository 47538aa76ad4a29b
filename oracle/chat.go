package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"auto_sniper/httputil"
)

type ChatConfig func(client *ChatClient)

// ChatClient talks to an OpenAI-compatible chat completions endpoint.
type ChatClient struct {
	base   url.URL
	apiKey string
	model  string
	http   *http.Client
	retry  httputil.Retry
}

func NewChatClient(baseURL, apiKey, model string, opts ...ChatConfig) (*ChatClient, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	client := &ChatClient{
		base:   *base,
		apiKey: apiKey,
		model:  model,
		http:   http.DefaultClient,
		retry:  httputil.DefaultRetry,
	}
	for _, cfg := range opts {
		cfg(client)
	}
	return client, nil
}

func WithHTTPClient(httpClient *http.Client) ChatConfig {
	return func(client *ChatClient) {
		client.http = httpClient
	}
}

func WithRetry(r httputil.Retry) ChatConfig {
	return func(client *ChatClient) {
		client.retry = r
	}
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []ContentPart
}

type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []ChatMessage   `json:"messages"`
	Temperature    *float64        `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the conversation and returns the first choice's text.
// Transport failures are retried; an empty answer is a ValidationError.
func (c *ChatClient) Complete(ctx context.Context, req ChatRequest) (string, error) {
	if req.Model == "" {
		req.Model = c.model
	}

	var resp chatResponse
	err := c.retry.Do(ctx, "chat completion", func(ctx context.Context) error {
		return c.do(ctx, http.MethodPost, "/chat/completions", req, &resp)
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", NewValidation("empty completion")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *ChatClient) do(ctx context.Context, method, path string, reqData, respData any) error {
	reqDataBytes, err := json.Marshal(reqData)
	if err != nil {
		return httputil.Permanent(err)
	}

	reqURL := c.base.JoinPath(path)
	request, err := http.NewRequestWithContext(ctx, method, reqURL.String(), bytes.NewReader(reqDataBytes))
	if err != nil {
		return httputil.Permanent(err)
	}

	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		request.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(request)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(respBody))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return httputil.Permanent(err)
		}
		return err
	}

	if err := json.Unmarshal(respBody, respData); err != nil {
		return httputil.Permanent(fmt.Errorf("unmarshal response: %w", err))
	}
	return nil
}

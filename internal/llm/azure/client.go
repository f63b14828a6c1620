package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kubemedic/kubemedic/internal/llm/types"
)

// Package azure provides the Azure OpenAI provider implementation for the
// reasoning engine.
//
// Responsibilities:
//   - Handle Azure OpenAI chat completions API calls
//   - Support function calling (tool use) via the OpenAI format
//   - Run the bounded think/act loop behind the engine contract
//   - Persist conversation state through the configured checkpointer

const (
	DefaultAPIVersion = "2024-10-21"
	DefaultDeployment = "gpt-4o"
	DefaultMaxTokens  = 4096
	DefaultTimeout    = 120 * time.Second
)

// Client is a minimal Azure OpenAI chat completions client.
type Client struct {
	endpoint   string
	deployment string
	apiVersion string
	apiKey     string
	maxTokens  int
	httpClient *http.Client
}

// Azure OpenAI API structures (wire-compatible with the OpenAI chat format)
type chatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []toolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

type toolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type chatTool struct {
	Type     string             `json:"type"`
	Function functionDefinition `json:"function"`
}

type functionDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

type chatRequest struct {
	Messages  []chatMessage `json:"messages"`
	Tools     []chatTool    `json:"tools,omitempty"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// NewClient creates an Azure OpenAI client for one deployment.
func NewClient(endpoint, deployment, apiVersion, apiKey string) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("Azure OpenAI endpoint is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("Azure OpenAI API key is required")
	}
	if deployment == "" {
		deployment = DefaultDeployment
	}
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}

	return &Client{
		endpoint:   endpoint,
		deployment: deployment,
		apiVersion: apiVersion,
		apiKey:     apiKey,
		maxTokens:  DefaultMaxTokens,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}, nil
}

// complete performs one chat completion round and returns the assistant
// message from the first choice.
func (c *Client) complete(ctx context.Context, messages []chatMessage, tools []types.Tool) (chatMessage, error) {
	var chatTools []chatTool
	if len(tools) > 0 {
		chatTools = make([]chatTool, len(tools))
		for i, tool := range tools {
			chatTools[i] = chatTool{
				Type: "function",
				Function: functionDefinition{
					Name:        tool.Name,
					Description: tool.Description,
					Parameters:  tool.Parameters,
				},
			}
		}
	}

	request := chatRequest{
		Messages:  messages,
		Tools:     chatTools,
		MaxTokens: c.maxTokens,
	}

	response, err := c.makeRequest(ctx, request)
	if err != nil {
		return chatMessage{}, fmt.Errorf("Azure OpenAI API request failed: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(response, &parsed); err != nil {
		return chatMessage{}, fmt.Errorf("failed to parse Azure OpenAI response: %w", err)
	}

	if len(parsed.Choices) == 0 {
		return chatMessage{}, fmt.Errorf("no choices in Azure OpenAI response")
	}

	return parsed.Choices[0].Message, nil
}

// makeRequest makes an HTTP request to the Azure OpenAI API
func (c *Client) makeRequest(ctx context.Context, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		c.endpoint, c.deployment, c.apiVersion)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Azure OpenAI API error (status %d): %s", resp.StatusCode, string(responseBody))
	}

	return responseBody, nil
}

// SetEndpoint overrides the API endpoint.  Used in tests.
func (c *Client) SetEndpoint(endpoint string) { c.endpoint = endpoint }

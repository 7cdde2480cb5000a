// Package anthropic adapts github.com/liushuangls/go-anthropic/v2 to
// llm.Client, including tool use.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/KamdynS/agentcrew/llm"
	"github.com/liushuangls/go-anthropic/v2"
)

// Client implements llm.Client for the Anthropic Messages API.
type Client struct {
	client  *anthropic.Client
	config  Config
	retrier *llm.Retrier
}

// Config holds Anthropic-specific settings.
type Config struct {
	APIKey      string          `json:"api_key"`
	Model       string          `json:"model"`
	BaseURL     string          `json:"base_url,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Timeout     time.Duration   `json:"timeout,omitempty"`
	RetryConfig llm.RetryConfig `json:"retry_config,omitempty"`
}

// NewClient validates config, fills defaults and builds the SDK client.
func NewClient(config Config) (*Client, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if config.Model == "" {
		config.Model = llm.DefaultModels[llm.ProviderAnthropic]
	}
	if config.Temperature == 0 {
		config.Temperature = 0.7
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.RetryConfig.MaxRetries == 0 {
		config.RetryConfig = llm.DefaultRetryConfig()
	}

	opts := []anthropic.ClientOption{anthropic.WithHTTPClient(&http.Client{Timeout: config.Timeout})}
	if config.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(config.BaseURL))
	}
	return &Client{
		client:  anthropic.NewClient(config.APIKey, opts...),
		config:  config,
		retrier: llm.NewRetrier(config.RetryConfig),
	}, nil
}

func validateConfig(config Config) error {
	if config.APIKey == "" {
		return errors.New("API key is required")
	}
	if config.Model != "" {
		if p, err := llm.ProviderForModel(config.Model); err == nil && p != llm.ProviderAnthropic {
			return fmt.Errorf("model %s is not an Anthropic model", config.Model)
		}
	}
	if config.Temperature < 0 || config.Temperature > 1 {
		return errors.New("temperature must be between 0 and 1")
	}
	if config.MaxTokens < 0 {
		return errors.New("max_tokens must be non-negative")
	}
	return nil
}

func (c *Client) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.Response, error) {
	start := time.Now()
	resp, err := llm.Do(ctx, c.retrier, func(ctx context.Context, _ int) (*llm.Response, error) {
		return c.chat(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	resp.Latency = time.Since(start)
	resp.Timestamp = start
	return resp, nil
}

func (c *Client) chat(ctx context.Context, req *llm.ChatRequest) (*llm.Response, error) {
	areq := c.buildRequest(req)
	resp, err := c.client.CreateMessages(ctx, areq)
	if err != nil {
		return nil, convertError(err)
	}

	var (
		text  strings.Builder
		calls []llm.ToolCall
	)
	for _, block := range resp.Content {
		switch block.Type {
		case anthropic.MessagesContentTypeText:
			if block.Text != nil {
				text.WriteString(*block.Text)
			}
		case anthropic.MessagesContentTypeToolUse:
			if block.MessageContentToolUse == nil {
				continue
			}
			calls = append(calls, llm.ToolCall{
				ID:   block.MessageContentToolUse.ID,
				Type: "function",
				Function: llm.Function{
					Name:      block.MessageContentToolUse.Name,
					Arguments: string(block.MessageContentToolUse.Input),
				},
			})
		}
	}
	if text.Len() == 0 && len(calls) == 0 {
		return nil, llm.NewLLMError(llm.ProviderAnthropic, llm.ErrorTypeUnknown, "no content returned")
	}

	model := string(areq.Model)
	var usage *llm.Usage
	if resp.Usage.OutputTokens > 0 {
		usage = &llm.Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			TotalTokens:  resp.Usage.InputTokens + resp.Usage.OutputTokens,
			Cost:         llm.EstimateCost(model, resp.Usage.InputTokens, resp.Usage.OutputTokens),
		}
	}
	return &llm.Response{
		Content:      text.String(),
		Role:         llm.RoleAssistant,
		Model:        model,
		Provider:     llm.ProviderAnthropic,
		Usage:        usage,
		FinishReason: string(resp.StopReason),
		ToolCalls:    calls,
		Meta:         map[string]string{"id": resp.ID},
	}, nil
}

func (c *Client) buildRequest(req *llm.ChatRequest) anthropic.MessagesRequest {
	model := c.config.Model
	if req.Model != "" {
		model = req.Model
	}
	system, msgs := convertMessages(req)
	temp := float32(c.config.Temperature)
	if req.Temperature != nil {
		temp = float32(*req.Temperature)
	}
	out := anthropic.MessagesRequest{
		Model:         anthropic.Model(model),
		System:        system,
		Messages:      msgs,
		MaxTokens:     c.config.MaxTokens,
		Temperature:   &temp,
		StopSequences: req.Stop,
	}
	if req.MaxTokens != nil {
		out.MaxTokens = *req.MaxTokens
	}
	for _, t := range req.Tools {
		schema := t.Function.Parameters
		if schema == nil {
			schema = map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
		}
		out.Tools = append(out.Tools, anthropic.ToolDefinition{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			InputSchema: schema,
		})
	}
	return out
}

// convertMessages splits out system text and folds consecutive tool results
// into a single user turn, which the Messages API requires.
func convertMessages(req *llm.ChatRequest) (string, []anthropic.Message) {
	var system []string
	if req.SystemPrompt != "" {
		system = append(system, req.SystemPrompt)
	}
	var out []anthropic.Message
	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleSystem:
			system = append(system, m.Content)
		case llm.RoleAssistant:
			var content []anthropic.MessageContent
			if m.Content != "" {
				content = append(content, anthropic.NewTextMessageContent(m.Content))
			}
			for _, tc := range m.ToolCalls {
				input := json.RawMessage(tc.Function.Arguments)
				if !json.Valid(input) {
					input = json.RawMessage("{}")
				}
				content = append(content, anthropic.MessageContent{
					Type: anthropic.MessagesContentTypeToolUse,
					MessageContentToolUse: &anthropic.MessageContentToolUse{
						ID:    tc.ID,
						Name:  tc.Function.Name,
						Input: input,
					},
				})
			}
			if len(content) > 0 {
				out = append(out, anthropic.Message{Role: anthropic.RoleAssistant, Content: content})
			}
		case llm.RoleTool:
			result := anthropic.NewToolResultMessageContent(m.ToolCallID, m.Content, strings.HasPrefix(m.Content, "error:"))
			if n := len(out); n > 0 && out[n-1].Role == anthropic.RoleUser && isToolResults(out[n-1]) {
				out[n-1].Content = append(out[n-1].Content, result)
				continue
			}
			out = append(out, anthropic.Message{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{result}})
		default:
			out = append(out, anthropic.Message{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(m.Content)},
			})
		}
	}
	return strings.Join(system, "\n\n"), out
}

func isToolResults(m anthropic.Message) bool {
	for _, c := range m.Content {
		if c.Type != anthropic.MessagesContentTypeToolResult {
			return false
		}
	}
	return len(m.Content) > 0
}

func (c *Client) Completion(ctx context.Context, prompt string) (*llm.Response, error) {
	return c.Chat(ctx, &llm.ChatRequest{Messages: []llm.Message{{Role: llm.RoleUser, Content: prompt}}})
}

// Stream forwards text deltas. The request is not retried once deltas have
// been delivered.
func (c *Client) Stream(ctx context.Context, req *llm.ChatRequest, output chan<- *llm.Response) error {
	defer close(output)

	areq := c.buildRequest(req)
	model := string(areq.Model)
	start := time.Now()
	sent := false
	sreq := anthropic.MessagesStreamRequest{
		MessagesRequest: areq,
		OnContentBlockDelta: func(data anthropic.MessagesEventContentBlockDeltaData) {
			if data.Delta.Text == nil || *data.Delta.Text == "" {
				return
			}
			part := &llm.Response{
				Content:   *data.Delta.Text,
				Role:      llm.RoleAssistant,
				Model:     model,
				Provider:  llm.ProviderAnthropic,
				Latency:   time.Since(start),
				Timestamp: start,
				Meta:      map[string]string{"streaming": "true"},
			}
			select {
			case output <- part:
				sent = true
			case <-ctx.Done():
			}
		},
	}
	_, err := llm.Do(ctx, c.retrier, func(ctx context.Context, _ int) (struct{}, error) {
		if _, err := c.client.CreateMessagesStream(ctx, sreq); err != nil {
			if sent {
				return struct{}{}, fmt.Errorf("stream interrupted: %v", err)
			}
			return struct{}{}, convertError(err)
		}
		return struct{}{}, nil
	})
	return err
}

var apiErrorTypes = map[string]llm.ErrorType{
	"invalid_request_error": llm.ErrorTypeInvalidRequest,
	"authentication_error":  llm.ErrorTypeAuthentication,
	"permission_error":      llm.ErrorTypePermission,
	"not_found_error":       llm.ErrorTypeNotFound,
	"rate_limit_error":      llm.ErrorTypeRateLimit,
	"api_error":             llm.ErrorTypeServerError,
	"overloaded_error":      llm.ErrorTypeServerError,
}

// convertError maps SDK errors onto llm.LLMError.
func convertError(err error) error {
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		typ, ok := apiErrorTypes[string(apiErr.Type)]
		if !ok {
			typ = llm.ErrorTypeUnknown
		}
		llmErr := llm.NewLLMErrorWithCause(llm.ProviderAnthropic, typ, apiErr.Message, err)
		llmErr.Code = string(apiErr.Type)
		return llmErr
	}
	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) {
		llmErr := llm.ParseHTTPError(llm.ProviderAnthropic, reqErr.StatusCode, "")
		llmErr.Cause = err
		return llmErr
	}
	return llm.ClassifyTransportError(llm.ProviderAnthropic, err)
}

func (c *Client) Model() string          { return c.config.Model }
func (c *Client) Provider() llm.Provider { return llm.ProviderAnthropic }
func (c *Client) Validate() error        { return validateConfig(c.config) }

var _ llm.Client = (*Client)(nil)

package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jmercer/gamemaster/pkg/chat"
	"github.com/jmercer/gamemaster/pkg/tools"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"

	DefaultAnthropicTemperature = 0.2
	DefaultAnthropicMaxTokens   = 1024
)

// AnthropicService implements LLMService for Anthropic Claude.
type AnthropicService struct {
	apiKey     string
	modelName  string
	httpClient *http.Client
	logger     *slog.Logger
}

// Ensure AnthropicService implements LLMService interface
var _ LLMService = (*AnthropicService)(nil)

type anthropicTool struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	InputSchema anthropicToolSchema `json:"input_schema"`
}

type anthropicToolSchema struct {
	Type       string                       `json:"type"`
	Properties map[string]anthropicToolProp `json:"properties"`
	Required   []string                     `json:"required,omitempty"`
}

type anthropicToolProp struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// anthropicMessage content is either a plain string or a list of content
// blocks (tool_use / tool_result).
type anthropicMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type anthropicContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

type anthropicChatRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Tools       []anthropicTool    `json:"tools,omitempty"`
}

type anthropicChatResponse struct {
	ID         string                  `json:"id"`
	Type       string                  `json:"type"`
	Role       string                  `json:"role"`
	Content    []anthropicContentBlock `json:"content"`
	Model      string                  `json:"model"`
	StopReason string                  `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewAnthropicService creates an Anthropic-backed model gateway.
func NewAnthropicService(apiKey string, modelName string, logger *slog.Logger) *AnthropicService {
	return &AnthropicService{
		apiKey:    apiKey,
		modelName: modelName,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

func (a *AnthropicService) InitModel(ctx context.Context, modelName string) error {
	// Anthropic models need no warm-up.
	return nil
}

// splitMessages extracts and combines all system messages into a single
// system prompt, and converts the rest to the Anthropic wire format.
func splitMessages(messages []chat.Message) (string, []anthropicMessage) {
	var systemParts []string
	var converted []anthropicMessage

	for _, msg := range messages {
		switch msg.Role {
		case chat.RoleSystem:
			systemParts = append(systemParts, msg.Content)
		case chat.RoleTool:
			converted = append(converted, anthropicMessage{
				Role: "user",
				Content: []anthropicContentBlock{{
					Type:      "tool_result",
					ToolUseID: msg.ToolCallID,
					Content:   msg.Content,
				}},
			})
		case chat.RoleCharacter:
			if msg.ToolCallID != "" {
				// Replay of the model's own tool call from earlier in
				// this turn; Content holds the arguments as JSON.
				converted = append(converted, anthropicMessage{
					Role: "assistant",
					Content: []anthropicContentBlock{{
						Type:  "tool_use",
						ID:    msg.ToolCallID,
						Name:  msg.ToolName,
						Input: json.RawMessage(msg.Content),
					}},
				})
				continue
			}
			converted = append(converted, anthropicMessage{Role: "assistant", Content: msg.Content})
		default:
			converted = append(converted, anthropicMessage{Role: "user", Content: msg.Content})
		}
	}

	return strings.Join(systemParts, "\n\n"), converted
}

func convertToolDefs(defs []tools.Definition) []anthropicTool {
	out := make([]anthropicTool, 0, len(defs))
	for _, def := range defs {
		schema := anthropicToolSchema{
			Type:       "object",
			Properties: make(map[string]anthropicToolProp),
		}
		for _, p := range def.Params {
			schema.Properties[p.Name] = anthropicToolProp{
				Type:        p.Type,
				Description: p.Description,
			}
			if p.Required {
				schema.Required = append(schema.Required, p.Name)
			}
		}
		out = append(out, anthropicTool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: schema,
		})
	}
	return out
}

// Decide sends the conversation and tool schema to Claude and maps the
// response onto a ModelDecision.
func (a *AnthropicService) Decide(ctx context.Context, messages []chat.Message, toolDefs []tools.Definition) (*ModelDecision, error) {
	systemPrompt, converted := splitMessages(messages)

	temperature := DefaultAnthropicTemperature
	req := anthropicChatRequest{
		Model:       a.modelName,
		MaxTokens:   DefaultAnthropicMaxTokens,
		Temperature: &temperature,
		System:      systemPrompt,
		Messages:    converted,
		Tools:       convertToolDefs(toolDefs),
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal anthropic request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicBaseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create anthropic request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrTransient, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		a.logger.Warn("Anthropic API unavailable", "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: anthropic returned status %d", ErrTransient, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("anthropic API error: status %d: %s", resp.StatusCode, string(respBody))
	}

	var chatResp anthropicChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if chatResp.Error != nil {
		return nil, fmt.Errorf("anthropic API error: %s: %s", chatResp.Error.Type, chatResp.Error.Message)
	}

	return decisionFromBlocks(chatResp.Content)
}

// decisionFromBlocks maps Anthropic content blocks onto a ModelDecision.
// A tool_use block wins over narrative text; an empty response is malformed.
func decisionFromBlocks(blocks []anthropicContentBlock) (*ModelDecision, error) {
	var narrative strings.Builder
	for _, block := range blocks {
		switch block.Type {
		case "tool_use":
			args := make(map[string]any)
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &args); err != nil {
					return nil, fmt.Errorf("%w: invalid tool_use input: %v", ErrMalformed, err)
				}
			}
			return &ModelDecision{ToolCall: &ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: args,
			}}, nil
		case "text":
			narrative.WriteString(block.Text)
		}
	}

	text := strings.TrimSpace(narrative.String())
	if text == "" {
		return nil, fmt.Errorf("%w: response contained no usable content", ErrMalformed)
	}
	return &ModelDecision{Narrative: text}, nil
}

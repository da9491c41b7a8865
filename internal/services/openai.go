package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/jmercer/gamemaster/pkg/chat"
	"github.com/jmercer/gamemaster/pkg/tools"
)

const DefaultOpenAITemperature = 0.2

// OpenAIService implements LLMService for the OpenAI chat completions API.
type OpenAIService struct {
	client    *openai.Client
	modelName string
	logger    *slog.Logger
}

// Ensure OpenAIService implements LLMService interface
var _ LLMService = (*OpenAIService)(nil)

// NewOpenAIService creates an OpenAI-backed model gateway.
func NewOpenAIService(apiKey string, modelName string, logger *slog.Logger) *OpenAIService {
	return &OpenAIService{
		client:    openai.NewClient(apiKey),
		modelName: modelName,
		logger:    logger,
	}
}

func (o *OpenAIService) InitModel(ctx context.Context, modelName string) error {
	// Hosted models need no warm-up.
	return nil
}

func toOpenAIMessages(messages []chat.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case chat.RoleSystem:
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleSystem,
				Content: msg.Content,
			})
		case chat.RoleTool:
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    msg.Content,
				ToolCallID: msg.ToolCallID,
			})
		case chat.RoleCharacter:
			if msg.ToolCallID != "" {
				// Replay of the model's own tool call from earlier in
				// this turn; Content holds the arguments as JSON.
				out = append(out, openai.ChatCompletionMessage{
					Role: openai.ChatMessageRoleAssistant,
					ToolCalls: []openai.ToolCall{{
						ID:   msg.ToolCallID,
						Type: openai.ToolTypeFunction,
						Function: openai.FunctionCall{
							Name:      msg.ToolName,
							Arguments: msg.Content,
						},
					}},
				})
				continue
			}
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: msg.Content,
			})
		default:
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: msg.Content,
			})
		}
	}
	return out
}

func toOpenAITools(defs []tools.Definition) []openai.Tool {
	out := make([]openai.Tool, 0, len(defs))
	for _, def := range defs {
		params := jsonschema.Definition{
			Type:       jsonschema.Object,
			Properties: make(map[string]jsonschema.Definition),
		}
		for _, p := range def.Params {
			params.Properties[p.Name] = jsonschema.Definition{
				Type:        jsonschema.String,
				Description: p.Description,
			}
			if p.Required {
				params.Required = append(params.Required, p.Name)
			}
		}
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  params,
			},
		})
	}
	return out
}

// Decide sends the conversation and tool schema to OpenAI and maps the
// response onto a ModelDecision.
func (o *OpenAIService) Decide(ctx context.Context, messages []chat.Message, toolDefs []tools.Definition) (*ModelDecision, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.modelName,
		Messages:    toOpenAIMessages(messages),
		Tools:       toOpenAITools(toolDefs),
		Temperature: DefaultOpenAITemperature,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			if apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500 {
				o.logger.Warn("OpenAI API unavailable", "status", apiErr.HTTPStatusCode)
				return nil, fmt.Errorf("%w: openai returned status %d", ErrTransient, apiErr.HTTPStatusCode)
			}
			return nil, fmt.Errorf("openai API error: %w", err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: response contained no choices", ErrMalformed)
	}
	msg := resp.Choices[0].Message

	if len(msg.ToolCalls) > 0 {
		tc := msg.ToolCalls[0]
		args := make(map[string]any)
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return nil, fmt.Errorf("%w: invalid tool call arguments: %v", ErrMalformed, err)
			}
		}
		return &ModelDecision{ToolCall: &ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		}}, nil
	}

	text := strings.TrimSpace(msg.Content)
	if text == "" {
		return nil, fmt.Errorf("%w: response contained no usable content", ErrMalformed)
	}
	return &ModelDecision{Narrative: text}, nil
}

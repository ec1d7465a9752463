package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider implements LLMProvider using Google's Gemini models.
type GeminiProvider struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGeminiProvider initializes a new Gemini client.
// apiKey should be provided from environment variables.
func NewGeminiProvider(ctx context.Context, apiKey, model string, temperature float32) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		// Flash for low latency and cost efficiency.
		model = "gemini-2.0-flash"
	}
	return &GeminiProvider{client: client, model: model, temperature: temperature}, nil
}

// Close cleans up the Gemini client resources.
func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("gemini: no messages to send")
	}

	model := p.client.GenerativeModel(p.model)
	model.SetTemperature(p.temperature)
	if req.System != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.System))
	}
	switch {
	case req.Tool != nil:
		model.Tools = []*genai.Tool{{
			FunctionDeclarations: []*genai.FunctionDeclaration{{
				Name:        req.Tool.Name,
				Description: req.Tool.Description,
				Parameters:  toGenaiSchema(req.Tool.Parameters),
			}},
		}}
		if req.ForceTool {
			model.ToolConfig = &genai.ToolConfig{
				FunctionCallingConfig: &genai.FunctionCallingConfig{
					Mode:                 genai.FunctionCallingAny,
					AllowedFunctionNames: []string{req.Tool.Name},
				},
			}
		}
	case req.JSON:
		model.ResponseMIMEType = "application/json"
	}

	chat := model.StartChat()
	chat.History = toGenaiHistory(req.Messages[:len(req.Messages)-1])
	last := req.Messages[len(req.Messages)-1]

	resp, err := chat.SendMessage(ctx, genai.Text(last.Content))
	if err != nil {
		return nil, fmt.Errorf("gemini generation error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ErrEmptyResponse
	}

	cand := resp.Candidates[0]
	var text strings.Builder
	for _, part := range cand.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}
	out := &Response{Text: text.String()}
	for _, fc := range cand.FunctionCalls() {
		if req.Tool != nil && fc.Name == req.Tool.Name {
			args, err := json.Marshal(fc.Args)
			if err != nil {
				return nil, fmt.Errorf("gemini function args: %w", err)
			}
			out.ToolCall = &ToolCall{Name: fc.Name, Arguments: args}
			break
		}
	}
	return out, nil
}

func toGenaiHistory(msgs []Message) []*genai.Content {
	history := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}
	return history
}

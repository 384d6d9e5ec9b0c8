package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/utkarshx27/ai-powered-interview/internal/ai"
	"github.com/utkarshx27/ai-powered-interview/internal/utils"
)

const (
	defaultModel        = "gemini-2.5-pro"
	defaultMaxLogLength = 200
)

type contentModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator wraps the Google GenAI client and implements ai.Model.
type Generator struct {
	models    contentModels
	modelName string
	maxLogLen int
	logger    *zap.Logger
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey, model string, maxLogLength int, logger *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGenerator(client.Models, model, maxLogLength, logger), nil
}

func newGenerator(models contentModels, model string, maxLogLength int, logger *zap.Logger) *Generator {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{models: models, modelName: model, maxLogLen: maxLogLength, logger: logger}
}

// Invoke replays the whole message log to Gemini and returns the reply as an assistant message.
func (g *Generator) Invoke(ctx context.Context, messages []ai.Message) (ai.Message, error) {
	if g == nil || g.models == nil {
		return ai.Message{}, fmt.Errorf("%w: gemini generator is not initialized", ai.ErrServiceUnavailable)
	}

	contents, config := buildRequest(messages)
	if len(contents) == 0 {
		return ai.Message{}, fmt.Errorf("%w: message log is empty", ai.ErrServiceUnavailable)
	}

	last := contents[len(contents)-1]
	g.logger.Debug("gemini generate content request",
		zap.Int("messages", len(messages)),
		zap.Int("contents", len(contents)),
		zap.String("last_preview", utils.TruncateForLog(contentText(last), g.maxLogLen)),
	)

	resp, err := g.models.GenerateContent(ctx, g.modelName, contents, config)
	if err != nil {
		return ai.Message{}, fmt.Errorf("%w: generate content: %w", ai.ErrServiceUnavailable, err)
	}

	output := responseText(resp)
	if output == "" {
		return ai.Message{}, fmt.Errorf("%w: gemini api returned empty response", ai.ErrServiceUnavailable)
	}

	g.logger.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(output)),
		zap.String("response_preview", utils.TruncateForLog(output, g.maxLogLen)),
	)

	return ai.AssistantMessage(output), nil
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.modelName
}

// buildRequest maps the role-tagged log onto Gemini contents. System messages become
// the system instruction; Gemini has no system role inside contents.
func buildRequest(messages []ai.Message) ([]*genai.Content, *genai.GenerateContentConfig) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case ai.RoleSystem:
			system = append(system, msg.Content)
		case ai.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	if len(system) == 0 {
		return contents, nil
	}

	instruction := strings.Join(system, "\n\n")
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(instruction, genai.RoleUser),
	}

	// Gemini rejects a request without contents, so the opening turn carries the
	// instructions as the first user content too.
	if len(contents) == 0 {
		contents = append(contents, genai.NewContentFromText(instruction, genai.RoleUser))
	}

	return contents, config
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		text := contentText(candidate.Content)
		if text == "" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(text)
	}

	return strings.TrimSpace(builder.String())
}

func contentText(content *genai.Content) string {
	if content == nil {
		return ""
	}

	parts := make([]string, 0, len(content.Parts))
	for _, part := range content.Parts {
		if part == nil {
			continue
		}
		if text := strings.TrimSpace(part.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/utkarshx27/ai-powered-interview/internal/ai"
	"github.com/utkarshx27/ai-powered-interview/internal/utils"
)

// ErrMalformedOutput is returned when the model reply cannot be read as the requested schema.
var ErrMalformedOutput = errors.New("malformed extraction output")

//go:embed prompt.md
var promptTemplate string

const defaultMaxLogLength = 200

type Extractor struct {
	model     ai.Model
	logger    *zap.Logger
	maxLogLen int
}

func NewExtractor(model ai.Model, logger *zap.Logger, maxLogLength int) *Extractor {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Extractor{
		model:     model,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// Extract asks the model, in a single call, to fill schema from text and returns the
// validated values. Service failures wrap ai.ErrServiceUnavailable, anything the
// schema rejects wraps ErrMalformedOutput.
func (e *Extractor) Extract(ctx context.Context, text string, schema Schema, instruction string) (map[string]any, error) {
	if e == nil || e.model == nil {
		return nil, fmt.Errorf("%w: extractor has no model", ai.ErrServiceUnavailable)
	}

	prompt := BuildPrompt(text, schema, instruction)

	e.logger.Debug("extraction request",
		zap.String("schema", schema.Name),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, e.maxLogLen)),
	)

	reply, err := e.model.Invoke(ctx, []ai.Message{ai.UserMessage(prompt)})
	if err != nil {
		if errors.Is(err, ai.ErrServiceUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ai.ErrServiceUnavailable, err)
	}

	e.logger.Debug("extraction response",
		zap.String("schema", schema.Name),
		zap.Int("response_length", utf8.RuneCountInString(reply.Content)),
		zap.String("response_preview", utils.TruncateForLog(reply.Content, e.maxLogLen)),
	)

	values, err := Parse(reply.Content, schema)
	if err != nil {
		e.logger.Warn("extraction output rejected",
			zap.String("schema", schema.Name),
			zap.String("response_preview", utils.TruncateForLog(utils.OneLine(reply.Content), e.maxLogLen)),
			zap.Error(err),
		)
		return nil, err
	}

	return values, nil
}

func BuildPrompt(text string, schema Schema, instruction string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "{{TEXT}}\n\n{{INSTRUCTION}}\n\n{{FORMAT_INSTRUCTIONS}}"
	}

	prompt := strings.ReplaceAll(template, "{{TEXT}}", strings.TrimSpace(text))
	prompt = strings.ReplaceAll(prompt, "{{INSTRUCTION}}", strings.TrimSpace(instruction))
	prompt = strings.ReplaceAll(prompt, "{{FORMAT_INSTRUCTIONS}}", schema.FormatInstructions())
	return strings.TrimSpace(prompt)
}

// Parse reads a raw model reply as a JSON object and validates it against schema.
func Parse(raw string, schema Schema) (map[string]any, error) {
	cleaned := extractJSON(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedOutput)
	}

	decoder := json.NewDecoder(bytes.NewReader([]byte(cleaned)))
	decoder.UseNumber()

	var data map[string]any
	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: parse response: %w", ErrMalformedOutput, err)
	}

	values, err := schema.Validate(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedOutput, err)
	}

	return values, nil
}

// Decode copies validated values into a struct using its json tags.
func Decode[T any](values map[string]any, out *T) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  out,
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}

	if err := decoder.Decode(values); err != nil {
		return fmt.Errorf("%w: decode: %w", ErrMalformedOutput, err)
	}
	return nil
}

// ExtractInto runs Extract and decodes the result into a new T.
func ExtractInto[T any](ctx context.Context, e *Extractor, text string, schema Schema, instruction string) (*T, error) {
	values, err := e.Extract(ctx, text, schema, instruction)
	if err != nil {
		return nil, err
	}

	out := new(T)
	if err := Decode(values, out); err != nil {
		return nil, err
	}
	return out, nil
}

// extractJSON strips markdown fences and any prose around the outermost object.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "{") {
		return raw
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end < start {
		return raw
	}
	return raw[start : end+1]
}

package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/utkarshx27/ai-powered-interview/internal/ai"
	"github.com/utkarshx27/ai-powered-interview/internal/utils"
)

const (
	defaultBaseURL      = "https://api.openai.com/v1"
	defaultModel        = "gpt-4o-mini"
	defaultTimeout      = 120 * time.Second
	defaultMaxLogLength = 200
	completionsPath     = "/chat/completions"
)

type Config struct {
	APIKey       string
	Model        string
	BaseURL      string
	Temperature  *float64
	Timeout      time.Duration
	MaxLogLength int
}

// Client talks to any OpenAI-compatible chat completions endpoint
// (OpenAI, Groq, Ollama, LM Studio).
type Client struct {
	apiKey      string
	model       string
	baseURL     string
	temperature *float64
	maxLogLen   int
	logger      *zap.Logger
	HTTPClient  *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func New(cfg Config, logger *zap.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	// Local servers (Ollama, LM Studio) do not need a key.
	if apiKey == "" && baseURL == defaultBaseURL {
		return nil, errors.New("openai api key is required")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	maxLogLen := cfg.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		apiKey:      apiKey,
		model:       model,
		baseURL:     baseURL,
		temperature: cfg.Temperature,
		maxLogLen:   maxLogLen,
		logger:      logger,
		HTTPClient:  &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

// Invoke sends the full role-tagged log and returns the first choice as an assistant message.
func (c *Client) Invoke(ctx context.Context, messages []ai.Message) (ai.Message, error) {
	if len(messages) == 0 {
		return ai.Message{}, fmt.Errorf("%w: message log is empty", ai.ErrServiceUnavailable)
	}

	payload := completionRequest{
		Model:       c.model,
		Messages:    make([]chatMessage, 0, len(messages)),
		Temperature: c.temperature,
	}
	for _, msg := range messages {
		payload.Messages = append(payload.Messages, chatMessage{Role: string(msg.Role), Content: msg.Content})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return ai.Message{}, fmt.Errorf("%w: marshal request: %w", ai.ErrServiceUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+completionsPath, bytes.NewReader(body))
	if err != nil {
		return ai.Message{}, fmt.Errorf("%w: build request: %w", ai.ErrServiceUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	last := messages[len(messages)-1]
	c.logger.Debug("chat completion request",
		zap.String("url", req.URL.String()),
		zap.Int("messages", len(messages)),
		zap.String("last_preview", utils.TruncateForLog(last.Content, c.maxLogLen)),
	)

	started := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return ai.Message{}, fmt.Errorf("%w: %w", ai.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return ai.Message{}, fmt.Errorf("%w: read response: %w", ai.ErrServiceUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return ai.Message{}, fmt.Errorf("%w: bad status: %s: %s", ai.ErrServiceUnavailable, resp.Status, utils.TruncateForLog(string(data), c.maxLogLen))
	}

	var result completionResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return ai.Message{}, fmt.Errorf("%w: decode response: %w", ai.ErrServiceUnavailable, err)
	}

	if result.Error != nil && result.Error.Message != "" {
		return ai.Message{}, fmt.Errorf("%w: %s", ai.ErrServiceUnavailable, result.Error.Message)
	}

	if len(result.Choices) == 0 {
		return ai.Message{}, fmt.Errorf("%w: no choices in response", ai.ErrServiceUnavailable)
	}

	content := strings.TrimSpace(result.Choices[0].Message.Content)
	if content == "" {
		return ai.Message{}, fmt.Errorf("%w: empty completion", ai.ErrServiceUnavailable)
	}

	c.logger.Debug("chat completion response",
		zap.Duration("took", time.Since(started)),
		zap.Int("response_length", utf8.RuneCountInString(content)),
		zap.String("response_preview", utils.TruncateForLog(content, c.maxLogLen)),
	)

	return ai.AssistantMessage(content), nil
}

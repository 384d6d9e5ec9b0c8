package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	_ "embed"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/utkarshx27/ai-powered-interview/internal/ai"
	"github.com/utkarshx27/ai-powered-interview/internal/journal"
	"github.com/utkarshx27/ai-powered-interview/internal/utils"
)

// ExitCommand ends the interview when typed by the candidate.
const ExitCommand = "exit"

const defaultMaxLogLength = 200

var (
	ErrSessionTerminated = errors.New("interview session terminated")
	ErrNotStarted        = errors.New("interview session not started")
	ErrAlreadyStarted    = errors.New("interview session already started")
)

//go:embed prompt.md
var promptTemplate string

type State int

const (
	NotStarted State = iota
	AwaitingGreeting
	InProgress
	Terminated
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case AwaitingGreeting:
		return "awaiting_greeting"
	case InProgress:
		return "in_progress"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Session drives one interview. The message log only grows and is replayed in
// full to the model on every turn. Turns are processed one at a time.
type Session struct {
	mu sync.Mutex

	id             string
	model          ai.Model
	summary        string
	jobDescription string

	state State
	log   []ai.Message
	// pending is set when the last user message has no reply yet.
	pending bool

	journal   journal.Journal
	logger    *zap.Logger
	maxLogLen int
}

type Option func(*Session)

// WithJournal mirrors every appended message. Journal failures are logged and ignored.
func WithJournal(j journal.Journal) Option {
	return func(s *Session) {
		s.journal = j
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMaxLogLength(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.maxLogLen = n
		}
	}
}

func New(model ai.Model, profileSummary, jobDescription string, opts ...Option) *Session {
	s := &Session{
		id:             uuid.NewString(),
		model:          model,
		summary:        profileSummary,
		jobDescription: jobDescription,
		state:          NotStarted,
		logger:         zap.NewNop(),
		maxLogLen:      defaultMaxLogLength,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("session_id", s.id))
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Log returns a copy of the message log in conversational order.
func (s *Session) Log() []ai.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ai.Message, len(s.log))
	copy(out, s.log)
	return out
}

// Start seeds the log with the interviewer instructions and asks the model for the
// opening greeting. A failed greeting can be retried by calling Start again.
func (s *Session) Start(ctx context.Context) (ai.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case NotStarted:
		s.append(ctx, ai.SystemMessage(SystemPrompt(s.summary, s.jobDescription)))
		s.state = AwaitingGreeting
	case AwaitingGreeting:
		s.logger.Info("retrying interview greeting")
	case Terminated:
		return ai.Message{}, ErrSessionTerminated
	default:
		return ai.Message{}, ErrAlreadyStarted
	}

	reply, err := s.invoke(ctx)
	if err != nil {
		return ai.Message{}, fmt.Errorf("interview greeting: %w", err)
	}

	s.append(ctx, reply)
	s.state = InProgress
	s.logger.Info("interview started", zap.String("greeting_preview", utils.TruncateForLog(reply.Content, s.maxLogLen)))
	return reply, nil
}

// Submit processes one candidate reply. Typing ExitCommand ends the session without
// calling the model and returns ErrSessionTerminated. When the model call fails the
// candidate message stays in the log and submitting the same input again retries the
// turn without duplicating it.
func (s *Session) Submit(ctx context.Context, input string) (ai.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Terminated:
		return ai.Message{}, ErrSessionTerminated
	case InProgress:
	default:
		return ai.Message{}, ErrNotStarted
	}

	if IsExit(input) {
		s.state = Terminated
		s.pending = false
		s.logger.Info("interview terminated by candidate", zap.Int("messages", len(s.log)))
		return ai.Message{}, ErrSessionTerminated
	}

	if s.pending && s.log[len(s.log)-1].Content == input {
		s.logger.Info("retrying interview turn")
	} else {
		s.append(ctx, ai.UserMessage(input))
	}
	s.pending = true

	reply, err := s.invoke(ctx)
	if err != nil {
		return ai.Message{}, fmt.Errorf("interview turn: %w", err)
	}

	s.append(ctx, reply)
	s.pending = false
	return reply, nil
}

// IsExit reports whether input is the termination command.
func IsExit(input string) bool {
	return strings.EqualFold(strings.TrimSpace(input), ExitCommand)
}

func SystemPrompt(profileSummary, jobDescription string) string {
	prompt := strings.ReplaceAll(promptTemplate, "{{CANDIDATE_SUMMARY}}", strings.TrimSpace(profileSummary))
	prompt = strings.ReplaceAll(prompt, "{{JOB_DESCRIPTION}}", strings.TrimSpace(jobDescription))
	return strings.TrimSpace(prompt)
}

func (s *Session) invoke(ctx context.Context) (ai.Message, error) {
	if s.model == nil {
		return ai.Message{}, fmt.Errorf("%w: no model configured", ai.ErrServiceUnavailable)
	}

	s.logger.Debug("invoking model", zap.Int("messages", len(s.log)))

	reply, err := s.model.Invoke(ctx, s.log)
	if err != nil {
		s.logger.Warn("model call failed", zap.String("state", s.state.String()), zap.Error(err))
		if errors.Is(err, ai.ErrServiceUnavailable) {
			return ai.Message{}, err
		}
		return ai.Message{}, fmt.Errorf("%w: %w", ai.ErrServiceUnavailable, err)
	}

	s.logger.Debug("model replied", zap.Int("response_length", utf8.RuneCountInString(reply.Content)))
	return ai.AssistantMessage(reply.Content), nil
}

// append must be called with s.mu held.
func (s *Session) append(ctx context.Context, msg ai.Message) {
	s.log = append(s.log, msg)

	if s.journal == nil {
		return
	}
	if err := s.journal.Append(ctx, s.id, msg); err != nil {
		s.logger.Warn("journal append failed", zap.String("role", string(msg.Role)), zap.Error(err))
	}
}

package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/utkarshx27/ai-powered-interview/internal/ai"
	"github.com/utkarshx27/ai-powered-interview/internal/journal"
)

// scriptedModel answers with numbered questions and fails the calls listed in failOn.
type scriptedModel struct {
	calls  [][]ai.Message
	failOn map[int]error
}

func (m *scriptedModel) Invoke(_ context.Context, messages []ai.Message) (ai.Message, error) {
	snapshot := make([]ai.Message, len(messages))
	copy(snapshot, messages)
	m.calls = append(m.calls, snapshot)

	if err, ok := m.failOn[len(m.calls)]; ok {
		return ai.Message{}, err
	}
	return ai.AssistantMessage(fmt.Sprintf("question %d", len(m.calls))), nil
}

type failingJournal struct{}

func (failingJournal) Append(context.Context, string, ai.Message) error {
	return errors.New("redis is down")
}

const (
	testSummary = "Name: Jane Doe\nEmail: jane@x.com\nPhone Number: 5551234\nTotal Experience: 2 years\nTechnical Skills: SQL, Python"
	testJob     = "Job Title: Data Scientist, Experience: 1+ years"
)

func startedSession(t *testing.T, model *scriptedModel, opts ...Option) *Session {
	t.Helper()

	s := New(model, testSummary, testJob, opts...)
	if _, err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	return s
}

func TestStartSeedsSystemPromptAndGreeting(t *testing.T) {
	model := &scriptedModel{}
	s := New(model, testSummary, testJob)

	if s.State() != NotStarted {
		t.Fatalf("expected NotStarted, got %s", s.State())
	}
	if s.ID() == "" {
		t.Fatal("expected a session id")
	}

	greeting, err := s.Start(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if greeting.Role != ai.RoleAssistant || greeting.Content != "question 1" {
		t.Fatalf("unexpected greeting: %+v", greeting)
	}
	if s.State() != InProgress {
		t.Fatalf("expected InProgress, got %s", s.State())
	}

	if len(model.calls) != 1 || len(model.calls[0]) != 1 || model.calls[0][0].Role != ai.RoleSystem {
		t.Fatalf("expected greeting call with only the system message, got %+v", model.calls)
	}

	system := model.calls[0][0].Content
	for _, want := range []string{"NEVER answer on behalf of the candidate", "Technical Skills: SQL, Python", testJob, "one question at a time", "type exit"} {
		if !strings.Contains(system, want) {
			t.Fatalf("system prompt is missing %q", want)
		}
	}

	log := s.Log()
	if len(log) != 2 || log[0].Role != ai.RoleSystem || log[1] != greeting {
		t.Fatalf("unexpected log: %+v", log)
	}
}

func TestSubmitKeepsOrderAndLength(t *testing.T) {
	model := &scriptedModel{}
	s := startedSession(t, model)

	answers := []string{"I use window functions", "pandas mostly", "I tuned an XGBoost model"}
	for k, answer := range answers {
		reply, err := s.Submit(context.Background(), answer)
		if err != nil {
			t.Fatalf("turn %d: %v", k+1, err)
		}

		log := s.Log()
		if len(log) != 2+2*(k+1) {
			t.Fatalf("turn %d: expected log length %d, got %d", k+1, 2+2*(k+1), len(log))
		}
		if log[len(log)-2] != ai.UserMessage(answer) || log[len(log)-1] != reply {
			t.Fatalf("turn %d: unexpected tail %+v", k+1, log[len(log)-2:])
		}

		// The model sees the whole history up to and including the new answer.
		seen := model.calls[len(model.calls)-1]
		if len(seen) != len(log)-1 {
			t.Fatalf("turn %d: model saw %d messages, want %d", k+1, len(seen), len(log)-1)
		}
	}

	log := s.Log()
	for i := 2; i < len(log); i += 2 {
		if log[i].Role != ai.RoleUser || log[i+1].Role != ai.RoleAssistant {
			t.Fatalf("unexpected roles at %d: %s %s", i, log[i].Role, log[i+1].Role)
		}
		if log[i].Content != answers[(i-2)/2] {
			t.Fatalf("answer out of order at %d: %q", i, log[i].Content)
		}
	}
}

func TestExitVariantsTerminateWithoutCall(t *testing.T) {
	for _, input := range []string{"exit", "Exit", "  EXIT  ", "\texit\n"} {
		t.Run(input, func(t *testing.T) {
			model := &scriptedModel{}
			s := startedSession(t, model)
			before := len(model.calls)

			_, err := s.Submit(context.Background(), input)
			if !errors.Is(err, ErrSessionTerminated) {
				t.Fatalf("expected ErrSessionTerminated, got %v", err)
			}
			if s.State() != Terminated {
				t.Fatalf("expected Terminated, got %s", s.State())
			}
			if len(model.calls) != before {
				t.Fatalf("expected no model call on exit")
			}
			if len(s.Log()) != 2 {
				t.Fatalf("exit must not be appended to the log")
			}
		})
	}
}

func TestTerminatedSessionIsFrozen(t *testing.T) {
	model := &scriptedModel{}
	s := startedSession(t, model)

	if _, err := s.Submit(context.Background(), "answer"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Submit(context.Background(), "exit"); !errors.Is(err, ErrSessionTerminated) {
		t.Fatalf("expected termination, got %v", err)
	}

	frozen := s.Log()
	calls := len(model.calls)

	if _, err := s.Submit(context.Background(), "one more thing"); !errors.Is(err, ErrSessionTerminated) {
		t.Fatalf("expected ErrSessionTerminated, got %v", err)
	}
	if _, err := s.Start(context.Background()); !errors.Is(err, ErrSessionTerminated) {
		t.Fatalf("expected ErrSessionTerminated from Start, got %v", err)
	}

	if len(s.Log()) != len(frozen) || len(model.calls) != calls {
		t.Fatal("terminated session must not change")
	}
}

func TestFailedTurnIsAtomicAndRetryable(t *testing.T) {
	model := &scriptedModel{failOn: map[int]error{2: errors.New("connection reset")}}
	s := startedSession(t, model)

	_, err := s.Submit(context.Background(), "my answer")
	if !errors.Is(err, ai.ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
	if s.State() != InProgress {
		t.Fatalf("expected InProgress after failure, got %s", s.State())
	}

	log := s.Log()
	if len(log) != 3 || log[2] != ai.UserMessage("my answer") {
		t.Fatalf("expected user message kept without reply, got %+v", log)
	}

	reply, err := s.Submit(context.Background(), "my answer")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}

	log = s.Log()
	if len(log) != 4 || log[2] != ai.UserMessage("my answer") || log[3] != reply {
		t.Fatalf("retry must not duplicate the user message, got %+v", log)
	}
}

func TestFailedTurnWithNewInputAppends(t *testing.T) {
	model := &scriptedModel{failOn: map[int]error{2: ai.ErrServiceUnavailable}}
	s := startedSession(t, model)

	if _, err := s.Submit(context.Background(), "first try"); err == nil {
		t.Fatal("expected failure")
	}
	if _, err := s.Submit(context.Background(), "second try"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	log := s.Log()
	if len(log) != 5 || log[2].Content != "first try" || log[3].Content != "second try" || log[4].Role != ai.RoleAssistant {
		t.Fatalf("unexpected log: %+v", log)
	}
}

func TestFailedGreetingIsRetryable(t *testing.T) {
	model := &scriptedModel{failOn: map[int]error{1: errors.New("quota exceeded")}}
	s := New(model, testSummary, testJob)

	if _, err := s.Start(context.Background()); !errors.Is(err, ai.ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
	if s.State() != AwaitingGreeting {
		t.Fatalf("expected AwaitingGreeting, got %s", s.State())
	}
	if _, err := s.Submit(context.Background(), "hello?"); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}

	if _, err := s.Start(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}

	log := s.Log()
	if len(log) != 2 || log[0].Role != ai.RoleSystem || log[1].Role != ai.RoleAssistant {
		t.Fatalf("expected one system message and one greeting, got %+v", log)
	}

	if _, err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestSubmitBeforeStart(t *testing.T) {
	s := New(&scriptedModel{}, testSummary, testJob)
	if _, err := s.Submit(context.Background(), "hi"); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
}

func TestJournalMirrorsLog(t *testing.T) {
	ctx := context.Background()
	mem := journal.NewMemory()
	s := startedSession(t, &scriptedModel{}, WithJournal(mem))

	if _, err := s.Submit(ctx, "answer"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	history, err := mem.History(ctx, s.ID())
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	log := s.Log()
	if len(history) != len(log) {
		t.Fatalf("expected %d journaled messages, got %d", len(log), len(history))
	}
	for i := range log {
		if history[i] != log[i] {
			t.Fatalf("message %d differs: %+v vs %+v", i, history[i], log[i])
		}
	}
}

func TestJournalFailureIsLoggedNotFatal(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	s := startedSession(t, &scriptedModel{}, WithJournal(failingJournal{}), WithLogger(zap.New(core)))

	if _, err := s.Submit(context.Background(), "answer"); err != nil {
		t.Fatalf("journal failure must not fail the turn: %v", err)
	}

	entries := logs.FilterMessage("journal append failed").All()
	if len(entries) != 4 {
		t.Fatalf("expected 4 journal warnings, got %d", len(entries))
	}
	if entries[0].ContextMap()["session_id"] != s.ID() {
		t.Fatalf("expected session id on log entry, got %v", entries[0].ContextMap())
	}
}

func TestIsExit(t *testing.T) {
	tests := map[string]bool{
		"exit":      true,
		" EXIT ":    true,
		"ExIt":      true,
		"exit now":  false,
		"":          false,
		"quit":      false,
		"exit.":     false,
		"\n exit\t": true,
	}

	for input, want := range tests {
		if got := IsExit(input); got != want {
			t.Fatalf("IsExit(%q) = %v, want %v", input, got, want)
		}
	}
}

package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/utkarshx27/ai-powered-interview/internal/candidate"
	"github.com/utkarshx27/ai-powered-interview/internal/evaluation"
	"github.com/utkarshx27/ai-powered-interview/internal/journal"
	"github.com/utkarshx27/ai-powered-interview/internal/record"
)

func TestRenderFeedback(t *testing.T) {
	out := renderFeedback(&evaluation.Feedback{
		Verdict:          evaluation.Proceed,
		Rating:           0.8,
		StrongSkills:     []string{"SQL"},
		ImprovementAreas: nil,
		Summary:          "Solid fundamentals.",
	})

	for _, want := range []string{"Proceed", "80.0%", "- SQL", "(none)", "Solid fundamentals."} {
		if !strings.Contains(out, want) {
			t.Fatalf("feedback output is missing %q:\n%s", want, out)
		}
	}
}

func TestRenderProfile(t *testing.T) {
	out := renderProfile(&candidate.Profile{
		Name:            "Jane Doe",
		Email:           "jane@x.com",
		TotalExperience: 2,
		TechnicalSkills: []string{"SQL", "Python"},
	})

	for _, want := range []string{"Name:", "Jane Doe", "Technical Skills:", "SQL, Python"} {
		if !strings.Contains(out, want) {
			t.Fatalf("profile output is missing %q:\n%s", want, out)
		}
	}
}

func TestRenderRecords(t *testing.T) {
	if got := renderRecords(nil); got != "No candidate records yet." {
		t.Fatalf("unexpected empty output: %q", got)
	}

	out := renderRecords([]record.Record{{
		ID:        7,
		Name:      "Jane Doe",
		Verdict:   "Reject",
		Rating:    0.25,
		Timestamp: time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local),
		Summary:   "Needs\nmore practice",
	}})

	for _, want := range []string{"#7", "2025-01-02 03:04:05", "Jane Doe", "Reject", "25.0%", "Needs more practice"} {
		if !strings.Contains(out, want) {
			t.Fatalf("records output is missing %q:\n%s", want, out)
		}
	}
}

func TestRedactedConfig(t *testing.T) {
	config := &Config{
		AI: &AIConfig{
			Gemini: &GeminiConfig{APIKey: "g-secret", Model: "gemini-2.5-pro"},
			OpenAI: &OpenAIConfig{APIKey: ""},
		},
		Journal: &JournalConfig{Redis: journal.RedisConfig{Addr: "localhost:6379", Password: "r-secret"}},
	}

	out := redactedConfig(config)

	if out.AI.Gemini.APIKey != "***" || out.AI.OpenAI.APIKey != "" || out.Journal.Redis.Password != "***" {
		t.Fatalf("secrets not redacted: %+v %+v %+v", out.AI.Gemini, out.AI.OpenAI, out.Journal.Redis)
	}
	if out.AI.Gemini.Model != "gemini-2.5-pro" || out.Journal.Redis.Addr != "localhost:6379" {
		t.Fatal("non-secret values must be kept")
	}
	if config.AI.Gemini.APIKey != "g-secret" || config.Journal.Redis.Password != "r-secret" {
		t.Fatal("original config must not be modified")
	}
}

package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/utkarshx27/ai-powered-interview/internal/ai"
)

type stubModel struct {
	reply string
	err   error
	calls [][]ai.Message
}

func (s *stubModel) Invoke(_ context.Context, messages []ai.Message) (ai.Message, error) {
	s.calls = append(s.calls, messages)
	if s.err != nil {
		return ai.Message{}, s.err
	}
	return ai.AssistantMessage(s.reply), nil
}

var testSchema = Schema{
	Name: "review",
	Fields: []Field{
		{Name: "title", Type: String, Required: true, Description: "Short title"},
		{Name: "count", Type: Integer, Required: true},
		{Name: "score", Type: Number, Required: true, Min: Bound(0), Max: Bound(1)},
		{Name: "kind", Type: String, Enum: []string{"Proceed", "Reject"}},
		{Name: "tags", Type: StringList},
		{Name: "note", Type: String},
	},
}

type review struct {
	Title string   `json:"title"`
	Count int      `json:"count"`
	Score float64  `json:"score"`
	Kind  string   `json:"kind"`
	Tags  []string `json:"tags"`
	Note  *string  `json:"note"`
}

func TestExtractValidOutput(t *testing.T) {
	model := &stubModel{reply: "```json\n{\"title\":\"ok\",\"count\":3,\"score\":0.5,\"kind\":\"proceed\",\"tags\":[\"a\",\"b\"]}\n```"}
	e := NewExtractor(model, nil, 0)

	values, err := e.Extract(context.Background(), "some text", testSchema, "Fill the review.")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(model.calls) != 1 {
		t.Fatalf("expected exactly one call, got %d", len(model.calls))
	}
	if len(model.calls[0]) != 1 || model.calls[0][0].Role != ai.RoleUser {
		t.Fatalf("expected a single user message, got %+v", model.calls[0])
	}

	prompt := model.calls[0][0].Content
	for _, want := range []string{"some text", "Fill the review.", `"title"`, `"score"`, "Short title"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt is missing %q:\n%s", want, prompt)
		}
	}

	if values["title"] != "ok" || values["count"] != int64(3) || values["score"] != 0.5 {
		t.Fatalf("unexpected values: %#v", values)
	}
	if values["kind"] != "Proceed" {
		t.Fatalf("expected canonical enum value, got %#v", values["kind"])
	}
	if values["note"] != nil {
		t.Fatalf("expected absent optional field to be nil, got %#v", values["note"])
	}
}

func TestExtractMalformedOutput(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{name: "not json", reply: "I cannot help with that"},
		{name: "empty", reply: "   "},
		{name: "missing required", reply: `{"title":"ok","score":0.5}`},
		{name: "null required", reply: `{"title":null,"count":1,"score":0.5}`},
		{name: "wrong type", reply: `{"title":"ok","count":"three","score":0.5}`},
		{name: "fractional integer", reply: `{"title":"ok","count":1.5,"score":0.5}`},
		{name: "integer overflow", reply: `{"title":"ok","count":99999999999999999999,"score":0.5}`},
		{name: "integer exponent overflow", reply: `{"title":"ok","count":1e30,"score":0.5}`},
		{name: "integer negative overflow", reply: `{"title":"ok","count":-1e30,"score":0.5}`},
		{name: "above range", reply: `{"title":"ok","count":1,"score":1.01}`},
		{name: "below range", reply: `{"title":"ok","count":1,"score":-0.1}`},
		{name: "unknown enum", reply: `{"title":"ok","count":1,"score":0.5,"kind":"Maybe"}`},
		{name: "list of numbers", reply: `{"title":"ok","count":1,"score":0.5,"tags":[1,2]}`},
		{name: "array root", reply: `[{"title":"ok"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := NewExtractor(&stubModel{reply: tt.reply}, nil, 0)
			values, err := e.Extract(context.Background(), "text", testSchema, "instruction")
			if !errors.Is(err, ErrMalformedOutput) {
				t.Fatalf("expected ErrMalformedOutput, got %v", err)
			}
			if values != nil {
				t.Fatalf("expected no partial value, got %#v", values)
			}
		})
	}
}

func TestExtractRangeBoundariesAreInclusive(t *testing.T) {
	for _, reply := range []string{
		`{"title":"ok","count":1,"score":0.0}`,
		`{"title":"ok","count":1,"score":1.0}`,
		`{"title":"ok","count":1,"score":1}`,
	} {
		e := NewExtractor(&stubModel{reply: reply}, nil, 0)
		if _, err := e.Extract(context.Background(), "text", testSchema, "instruction"); err != nil {
			t.Fatalf("expected %s to be accepted, got %v", reply, err)
		}
	}
}

func TestExtractDefaultsListsToEmpty(t *testing.T) {
	for _, reply := range []string{
		`{"title":"ok","count":1,"score":0.3}`,
		`{"title":"ok","count":1,"score":0.3,"tags":null}`,
	} {
		e := NewExtractor(&stubModel{reply: reply}, nil, 0)
		values, err := e.Extract(context.Background(), "text", testSchema, "instruction")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tags, ok := values["tags"].([]string)
		if !ok || tags == nil || len(tags) != 0 {
			t.Fatalf("expected empty list, got %#v", values["tags"])
		}
	}
}

func TestExtractCoercesNumericStrings(t *testing.T) {
	e := NewExtractor(&stubModel{reply: `{"title":"ok","count":"4","score":"0.75"}`}, nil, 0)
	values, err := e.Extract(context.Background(), "text", testSchema, "instruction")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if values["count"] != int64(4) || values["score"] != 0.75 {
		t.Fatalf("unexpected values: %#v", values)
	}
}

func TestExtractServiceFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "already wrapped", err: ai.ErrServiceUnavailable},
		{name: "plain error", err: errors.New("connection reset")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &stubModel{err: tt.err}
			e := NewExtractor(model, nil, 0)

			_, err := e.Extract(context.Background(), "text", testSchema, "instruction")
			if !errors.Is(err, ai.ErrServiceUnavailable) {
				t.Fatalf("expected ErrServiceUnavailable, got %v", err)
			}
			if errors.Is(err, ErrMalformedOutput) {
				t.Fatalf("service failure must not be reported as malformed output")
			}
			if len(model.calls) != 1 {
				t.Fatalf("expected no retries, got %d calls", len(model.calls))
			}
		})
	}
}

func TestExtractInto(t *testing.T) {
	model := &stubModel{reply: "Here you go:\n{\"title\":\"ok\",\"count\":2,\"score\":1,\"note\":\"fine\",\"tags\":[\"x\"]}\nThanks"}
	e := NewExtractor(model, nil, 0)

	got, err := ExtractInto[review](context.Background(), e, "text", testSchema, "instruction")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if got.Title != "ok" || got.Count != 2 || got.Score != 1 {
		t.Fatalf("unexpected result: %+v", got)
	}
	if got.Note == nil || *got.Note != "fine" {
		t.Fatalf("expected note to be set, got %v", got.Note)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "x" {
		t.Fatalf("unexpected tags: %v", got.Tags)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "plain", raw: `{"a":1}`, want: `{"a":1}`},
		{name: "json fence", raw: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "bare fence", raw: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "surrounding prose", raw: "Sure! {\"a\":1} hope it helps", want: `{"a":1}`},
		{name: "no object", raw: "nothing here", want: "nothing here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := extractJSON(tt.raw); got != tt.want {
				t.Fatalf("extractJSON(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestFormatInstructions(t *testing.T) {
	got := testSchema.FormatInstructions()

	for _, want := range []string{
		`"title" (string, required): Short title`,
		`"count" (integer, required)`,
		`"score" (number, required). Between 0 and 1 inclusive`,
		`"kind" (string, optional, use null when unknown). One of: "Proceed", "Reject"`,
		`"tags" (array of strings, optional, use null when unknown)`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("format instructions missing %q:\n%s", want, got)
		}
	}
}

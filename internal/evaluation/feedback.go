package evaluation

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/utkarshx27/ai-powered-interview/internal/ai"
	"github.com/utkarshx27/ai-powered-interview/internal/extract"
)

type Verdict string

const (
	Proceed Verdict = "Proceed"
	Reject  Verdict = "Reject"
)

const EvaluationRequest = "Evaluate the candidate and fill in the following fields:"

type Feedback struct {
	Verdict          Verdict  `json:"verdict"`
	Rating           float64  `json:"rating"`
	StrongSkills     []string `json:"strong_skills"`
	ImprovementAreas []string `json:"improvement_areas"`
	Summary          string   `json:"summary"`
}

// Percent renders the rating the way it is shown to the interviewer.
func (f *Feedback) Percent() string {
	return fmt.Sprintf("%.1f%%", f.Rating*100)
}

var FeedbackSchema = extract.Schema{
	Name: "interview feedback",
	Fields: []extract.Field{
		{Name: "verdict", Type: extract.String, Required: true, Description: "Hiring decision", Enum: []string{string(Proceed), string(Reject)}},
		{Name: "rating", Type: extract.Number, Required: true, Description: "Overall rating from 0 to 1", Min: extract.Bound(0), Max: extract.Bound(1)},
		{Name: "strong_skills", Type: extract.StringList, Description: "Skills the candidate demonstrated well"},
		{Name: "improvement_areas", Type: extract.StringList, Description: "Areas the candidate should improve"},
		{Name: "summary", Type: extract.String, Required: true, Description: "A concise summary of the evaluation"},
	},
}

type Evaluator struct {
	extractor *extract.Extractor
	logger    *zap.Logger
}

func NewEvaluator(extractor *extract.Extractor, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{extractor: extractor, logger: logger}
}

// Evaluate turns a finished transcript into feedback. The transcript is not modified
// and can be evaluated again when the call fails.
func (e *Evaluator) Evaluate(ctx context.Context, profileSummary, jobDescription string, transcript []ai.Message) (*Feedback, error) {
	text := buildContext(profileSummary, jobDescription, SerializeTranscript(transcript))

	feedback, err := extract.ExtractInto[Feedback](ctx, e.extractor, text, FeedbackSchema, EvaluationRequest)
	if err != nil {
		return nil, fmt.Errorf("evaluate interview: %w", err)
	}

	e.logger.Info("interview evaluated",
		zap.String("verdict", string(feedback.Verdict)),
		zap.Float64("rating", feedback.Rating),
		zap.Int("transcript_messages", len(transcript)),
	)

	return feedback, nil
}

// SerializeTranscript renders one "<Role>: <content>" line per message, in order.
func SerializeTranscript(messages []ai.Message) string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		lines = append(lines, msg.Role.Title()+": "+msg.Content)
	}
	return strings.Join(lines, "\n")
}

func buildContext(profileSummary, jobDescription, transcript string) string {
	var b strings.Builder
	b.WriteString("You are an expert technical interviewer.\n\n")
	b.WriteString("Based on the job description:\n")
	b.WriteString(jobDescription)
	b.WriteString("\n\nAnd the candidate details:\n")
	b.WriteString(profileSummary)
	b.WriteString("\n\nAnd the full chat history of the interview:\n")
	b.WriteString(transcript)
	return b.String()
}

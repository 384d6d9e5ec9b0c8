package candidate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/utkarshx27/ai-powered-interview/internal/extract"
)

const (
	resumePreamble    = "Here is a resume:"
	ExtractionRequest = "Extract the person's name, email, phone number, technical skills, work history, projects, total experience, and city."
	listSeparator     = ", "
)

// Profile is the structured view of a resume. It is built once and not changed afterwards.
type Profile struct {
	Name             string   `json:"name"`
	Email            string   `json:"email"`
	TotalExperience  int      `json:"total_experience"`
	PhoneNumber      int64    `json:"ph_number"`
	City             *string  `json:"city"`
	TechnicalSkills  []string `json:"technical_skills"`
	WorkHistory      *string  `json:"work_history"`
	PreviousProjects []string `json:"previous_projects"`
	Links            []string `json:"links"`
}

var ProfileSchema = extract.Schema{
	Name: "candidate profile",
	Fields: []extract.Field{
		{Name: "name", Type: extract.String, Required: true, Description: "Full name"},
		{Name: "email", Type: extract.String, Required: true, Description: "Email Address"},
		{Name: "total_experience", Type: extract.Integer, Required: true, Description: "Years of Experience (In numbers)", Min: extract.Bound(0)},
		{Name: "ph_number", Type: extract.Integer, Required: true, Description: "Phone Number"},
		{Name: "city", Type: extract.String, Description: "City of residence"},
		{Name: "technical_skills", Type: extract.StringList, Description: "Tech Stack (All technical skills)"},
		{Name: "work_history", Type: extract.String, Description: "Previous Work History (Summary)"},
		{Name: "previous_projects", Type: extract.StringList, Description: "Projects done like Personal Projects or Opensource Projects"},
		{Name: "links", Type: extract.StringList, Description: "external links"},
	},
}

type Builder struct {
	extractor *extract.Extractor
	logger    *zap.Logger
}

func NewBuilder(extractor *extract.Extractor, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{extractor: extractor, logger: logger}
}

// Build extracts a profile from resume text. Any extraction error aborts the build.
func (b *Builder) Build(ctx context.Context, rawText string) (*Profile, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, errors.New("resume text is empty")
	}

	text := resumePreamble + "\n\n" + rawText
	profile, err := extract.ExtractInto[Profile](ctx, b.extractor, text, ProfileSchema, ExtractionRequest)
	if err != nil {
		return nil, fmt.Errorf("build candidate profile: %w", err)
	}

	b.logger.Info("candidate profile extracted",
		zap.String("name", profile.Name),
		zap.Int("technical_skills", len(profile.TechnicalSkills)),
		zap.Int("total_experience", profile.TotalExperience),
	)

	return profile, nil
}

// Summary renders the profile one field per line for use in prompts.
// Empty optional fields are left out.
func (p *Profile) Summary() string {
	if p == nil {
		return ""
	}

	lines := []string{
		"Name: " + p.Name,
		"Email: " + p.Email,
		"Phone Number: " + strconv.FormatInt(p.PhoneNumber, 10),
	}

	if city := optional(p.City); city != "" {
		lines = append(lines, "City: "+city)
	}

	lines = append(lines, fmt.Sprintf("Total Experience: %d years", p.TotalExperience))

	if len(p.TechnicalSkills) > 0 {
		lines = append(lines, "Technical Skills: "+JoinList(p.TechnicalSkills))
	}
	if history := optional(p.WorkHistory); history != "" {
		lines = append(lines, "Work History: "+history)
	}
	if len(p.PreviousProjects) > 0 {
		lines = append(lines, "Previous Projects: "+JoinList(p.PreviousProjects))
	}
	if len(p.Links) > 0 {
		lines = append(lines, "Links: "+JoinList(p.Links))
	}

	return strings.Join(lines, "\n")
}

func (p *Profile) CityOrEmpty() string {
	if p == nil {
		return ""
	}
	return optional(p.City)
}

func (p *Profile) WorkHistoryOrEmpty() string {
	if p == nil {
		return ""
	}
	return optional(p.WorkHistory)
}

// JoinList flattens a list field into a single cell, keeping order.
func JoinList(items []string) string {
	return strings.Join(items, listSeparator)
}

func optional(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

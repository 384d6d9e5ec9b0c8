package record

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/utkarshx27/ai-powered-interview/internal/candidate"
	"github.com/utkarshx27/ai-powered-interview/internal/evaluation"
)

// TimestampLayout is the layout of the timestamp column.
const TimestampLayout = "2006-01-02 15:04:05"

var (
	ErrIOFailure = errors.New("record store i/o failure")
	// ErrSchemaMismatch means the store was written with a different column set.
	ErrSchemaMismatch = fmt.Errorf("%w: stored columns do not match", ErrIOFailure)
)

// Columns is the persisted column order. Every row of a store has exactly these fields.
var Columns = []string{
	"name",
	"email",
	"total_experience",
	"ph_number",
	"city",
	"technical_skills",
	"work_history",
	"previous_projects",
	"links",
	"timestamp",
	"chat_history",
	"verdict",
	"rating",
	"strong_skills",
	"improvement_areas",
	"summary",
	"id",
}

// Record is a candidate profile, transcript and feedback flattened into one row.
type Record struct {
	ID               int64
	Name             string
	Email            string
	TotalExperience  int
	PhoneNumber      int64
	City             string
	TechnicalSkills  string
	WorkHistory      string
	PreviousProjects string
	Links            string
	Timestamp        time.Time
	ChatHistory      string
	Verdict          string
	Rating           float64
	StrongSkills     string
	ImprovementAreas string
	Summary          string
}

type Store interface {
	// Append persists r and returns the id assigned to it.
	Append(ctx context.Context, r *Record) (int64, error)
	List(ctx context.Context) ([]Record, error)
	Close() error
}

func NewRecord(profile *candidate.Profile, transcript string, feedback *evaluation.Feedback, now time.Time) *Record {
	r := &Record{
		ChatHistory: transcript,
		Timestamp:   now.Truncate(time.Second),
	}

	if profile != nil {
		r.Name = profile.Name
		r.Email = profile.Email
		r.TotalExperience = profile.TotalExperience
		r.PhoneNumber = profile.PhoneNumber
		r.City = profile.CityOrEmpty()
		r.TechnicalSkills = candidate.JoinList(profile.TechnicalSkills)
		r.WorkHistory = profile.WorkHistoryOrEmpty()
		r.PreviousProjects = candidate.JoinList(profile.PreviousProjects)
		r.Links = candidate.JoinList(profile.Links)
	}

	if feedback != nil {
		r.Verdict = string(feedback.Verdict)
		r.Rating = feedback.Rating
		r.StrongSkills = candidate.JoinList(feedback.StrongSkills)
		r.ImprovementAreas = candidate.JoinList(feedback.ImprovementAreas)
		r.Summary = feedback.Summary
	}

	return r
}

// Row renders the record in Columns order.
func (r *Record) Row() []string {
	return []string{
		r.Name,
		r.Email,
		strconv.Itoa(r.TotalExperience),
		strconv.FormatInt(r.PhoneNumber, 10),
		r.City,
		r.TechnicalSkills,
		r.WorkHistory,
		r.PreviousProjects,
		r.Links,
		r.Timestamp.Format(TimestampLayout),
		r.ChatHistory,
		r.Verdict,
		strconv.FormatFloat(r.Rating, 'f', -1, 64),
		r.StrongSkills,
		r.ImprovementAreas,
		r.Summary,
		strconv.FormatInt(r.ID, 10),
	}
}

func parseRow(row []string) (Record, error) {
	if len(row) != len(Columns) {
		return Record{}, fmt.Errorf("%w: expected %d fields, got %d", ErrSchemaMismatch, len(Columns), len(row))
	}

	var (
		r   Record
		err error
	)

	r.Name = row[0]
	r.Email = row[1]
	if r.TotalExperience, err = strconv.Atoi(row[2]); err != nil {
		return Record{}, fmt.Errorf("total_experience: %w", err)
	}
	if r.PhoneNumber, err = strconv.ParseInt(row[3], 10, 64); err != nil {
		return Record{}, fmt.Errorf("ph_number: %w", err)
	}
	r.City = row[4]
	r.TechnicalSkills = row[5]
	r.WorkHistory = row[6]
	r.PreviousProjects = row[7]
	r.Links = row[8]
	if r.Timestamp, err = time.ParseInLocation(TimestampLayout, row[9], time.Local); err != nil {
		return Record{}, fmt.Errorf("timestamp: %w", err)
	}
	r.ChatHistory = row[10]
	r.Verdict = row[11]
	if r.Rating, err = strconv.ParseFloat(row[12], 64); err != nil {
		return Record{}, fmt.Errorf("rating: %w", err)
	}
	r.StrongSkills = row[13]
	r.ImprovementAreas = row[14]
	r.Summary = row[15]
	if r.ID, err = strconv.ParseInt(row[16], 10, 64); err != nil {
		return Record{}, fmt.Errorf("id: %w", err)
	}

	return r, nil
}

func sameColumns(header []string) bool {
	if len(header) != len(Columns) {
		return false
	}
	for i, name := range Columns {
		if header[i] != name {
			return false
		}
	}
	return true
}

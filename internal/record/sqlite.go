package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const DefaultSQLitePath = "candidate_details.db"

const schema = `
CREATE TABLE IF NOT EXISTS candidate_records (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	total_experience INTEGER NOT NULL,
	ph_number INTEGER NOT NULL,
	city TEXT NOT NULL DEFAULT '',
	technical_skills TEXT NOT NULL DEFAULT '',
	work_history TEXT NOT NULL DEFAULT '',
	previous_projects TEXT NOT NULL DEFAULT '',
	links TEXT NOT NULL DEFAULT '',
	timestamp TEXT NOT NULL,
	chat_history TEXT NOT NULL,
	verdict TEXT NOT NULL,
	rating REAL NOT NULL,
	strong_skills TEXT NOT NULL DEFAULT '',
	improvement_areas TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL
);
`

// SQLiteStore keeps records in a SQLite table with the same columns as the CSV store.
type SQLiteStore struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	logger *zap.Logger
}

func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLiteStore, error) {
	if path == "" {
		path = DefaultSQLitePath
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %w", ErrIOFailure, err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: run migrations: %w", ErrIOFailure, err)
	}

	return &SQLiteStore{db: db, path: path, logger: logger}, nil
}

func (s *SQLiteStore) Path() string {
	return s.path
}

// Append assigns the next id inside a transaction and inserts the row.
func (s *SQLiteStore) Append(ctx context.Context, r *Record) (int64, error) {
	if r == nil {
		return 0, errors.New("record is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin transaction: %w", ErrIOFailure, err)
	}
	defer tx.Rollback()

	var count int64
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM candidate_records`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count records: %w", ErrIOFailure, err)
	}
	id := count + 1

	query := fmt.Sprintf(
		`INSERT INTO candidate_records (%s) VALUES (%s)`,
		strings.Join(Columns, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(Columns)), ", "),
	)
	_, err = tx.ExecContext(ctx, query,
		r.Name,
		r.Email,
		r.TotalExperience,
		r.PhoneNumber,
		r.City,
		r.TechnicalSkills,
		r.WorkHistory,
		r.PreviousProjects,
		r.Links,
		r.Timestamp.Format(TimestampLayout),
		r.ChatHistory,
		r.Verdict,
		r.Rating,
		r.StrongSkills,
		r.ImprovementAreas,
		r.Summary,
		id,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: insert record: %w", ErrIOFailure, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit: %w", ErrIOFailure, err)
	}

	r.ID = id
	s.logger.Info("candidate record appended", zap.String("path", s.path), zap.Int64("id", id))
	return id, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM candidate_records ORDER BY id`, strings.Join(Columns, ", "))
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: query records: %w", ErrIOFailure, err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var (
			r         Record
			timestamp string
		)
		err := rows.Scan(
			&r.Name,
			&r.Email,
			&r.TotalExperience,
			&r.PhoneNumber,
			&r.City,
			&r.TechnicalSkills,
			&r.WorkHistory,
			&r.PreviousProjects,
			&r.Links,
			&timestamp,
			&r.ChatHistory,
			&r.Verdict,
			&r.Rating,
			&r.StrongSkills,
			&r.ImprovementAreas,
			&r.Summary,
			&r.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scan record: %w", ErrIOFailure, err)
		}
		if r.Timestamp, err = time.ParseInLocation(TimestampLayout, timestamp, time.Local); err != nil {
			return nil, fmt.Errorf("%w: record %d timestamp: %w", ErrIOFailure, r.ID, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate records: %w", ErrIOFailure, err)
	}

	return records, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

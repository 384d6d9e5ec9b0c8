package record

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

const DefaultCSVPath = "candidate_details.csv"

// CSVStore appends records to a CSV file with a header row.
// Appends are serialised by a mutex within the process and by an advisory lock on
// <path>.lock across processes, so ids stay unique.
type CSVStore struct {
	mu     sync.Mutex
	path   string
	logger *zap.Logger
}

func NewCSVStore(path string, logger *zap.Logger) *CSVStore {
	if path == "" {
		path = DefaultCSVPath
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVStore{path: path, logger: logger}
}

func (s *CSVStore) Path() string {
	return s.path
}

// Append assigns the next id (existing data rows + 1) and writes the row. The header
// is written only when the file is new or empty. A file whose header differs from
// Columns is left untouched.
func (s *CSVStore) Append(ctx context.Context, r *Record) (int64, error) {
	if r == nil {
		return 0, errors.New("record is nil")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lock := flock.New(s.lockPath())
	if err := lock.Lock(); err != nil {
		return 0, fmt.Errorf("%w: lock %s: %w", ErrIOFailure, s.path, err)
	}
	defer lock.Unlock()

	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return 0, fmt.Errorf("%w: open %s: %w", ErrIOFailure, s.path, err)
	}
	defer f.Close()

	rows, err := readRows(f)
	if err != nil {
		return 0, fmt.Errorf("%w: read %s: %w", ErrIOFailure, s.path, err)
	}

	writeHeader := len(rows) == 0
	if !writeHeader && !sameColumns(rows[0]) {
		return 0, fmt.Errorf("%w: %s has header %v", ErrSchemaMismatch, s.path, rows[0])
	}

	row := *r
	row.ID = int64(len(rows))
	if writeHeader {
		row.ID = 1
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if writeHeader {
		_ = w.Write(Columns)
	}
	_ = w.Write(row.Row())
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, fmt.Errorf("%w: encode row: %w", ErrIOFailure, err)
	}

	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("%w: seek %s: %w", ErrIOFailure, s.path, err)
	}

	data := buf.Bytes()
	if size > 0 {
		// A hand edit or an interrupted write may leave the last row unterminated.
		var last [1]byte
		if _, err := f.ReadAt(last[:], size-1); err != nil {
			return 0, fmt.Errorf("%w: read %s: %w", ErrIOFailure, s.path, err)
		}
		if last[0] != '\n' {
			data = append([]byte{'\n'}, data...)
		}
	}

	if err := writeRow(f, size, data); err != nil {
		return 0, fmt.Errorf("%w: write %s: %w", ErrIOFailure, s.path, err)
	}

	r.ID = row.ID
	s.logger.Info("candidate record appended", zap.String("path", s.path), zap.Int64("id", row.ID))
	return row.ID, nil
}

func (s *CSVStore) List(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrIOFailure, s.path, err)
	}
	defer f.Close()

	lock := flock.New(s.lockPath())
	if err := lock.RLock(); err != nil {
		return nil, fmt.Errorf("%w: lock %s: %w", ErrIOFailure, s.path, err)
	}
	defer lock.Unlock()

	rows, err := readRows(f)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrIOFailure, s.path, err)
	}
	if len(rows) == 0 {
		return []Record{}, nil
	}
	if !sameColumns(rows[0]) {
		return nil, fmt.Errorf("%w: %s has header %v", ErrSchemaMismatch, s.path, rows[0])
	}

	records := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d: %w", ErrIOFailure, s.path, i+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *CSVStore) lockPath() string {
	return s.path + ".lock"
}

func (s *CSVStore) Close() error {
	return nil
}

func readRows(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	// Rows may differ in width when an older run wrote other columns; the header check reports it.
	reader.FieldsPerRecord = -1
	return reader.ReadAll()
}

// rowFile is the part of *os.File that writeRow needs.
type rowFile interface {
	io.Writer
	Sync() error
	Truncate(size int64) error
}

// writeRow appends data to f, which is size bytes long, and syncs it. On failure
// the file is cut back to size so no partial row is left behind.
func writeRow(f rowFile, size int64, data []byte) error {
	_, err := f.Write(data)
	if err == nil {
		err = f.Sync()
	}
	if err == nil {
		return nil
	}

	if truncErr := f.Truncate(size); truncErr != nil {
		return errors.Join(err, fmt.Errorf("truncate to %d bytes: %w", size, truncErr))
	}
	return err
}

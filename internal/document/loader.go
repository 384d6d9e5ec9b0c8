package document

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"
	"go.uber.org/zap"
)

// PageSeparator joins pages into the text handed to extraction.
const PageSeparator = "\n\n"

var ErrUnsupported = errors.New("unsupported document type")

type converter func(path string) (string, error)

// Loader turns a resume file into page texts.
type Loader struct {
	convert converter
	logger  *zap.Logger
}

func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{convert: convertPath, logger: logger}
}

// Pages returns the non-blank pages of the document in order.
func (l *Loader) Pages(path string) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var (
		text string
		err  error
	)

	switch ext {
	case ".txt", ".md":
		var content []byte
		content, err = os.ReadFile(path)
		text = string(content)
	case ".pdf", ".docx", ".doc", ".rtf", ".odt":
		text, err = l.convert(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", path, err)
	}

	pages := SplitPages(text)
	l.logger.Debug("document loaded",
		zap.String("path", path),
		zap.String("type", ext),
		zap.Int("pages", len(pages)),
	)

	if len(pages) == 0 {
		return nil, fmt.Errorf("document %s contains no text", path)
	}
	return pages, nil
}

// Text loads the document and joins its pages.
func (l *Loader) Text(path string) (string, error) {
	pages, err := l.Pages(path)
	if err != nil {
		return "", err
	}
	return Join(pages), nil
}

// SplitPages splits converter output on form feeds and drops blank pages.
func SplitPages(text string) []string {
	raw := strings.Split(text, "\f")
	pages := make([]string, 0, len(raw))
	for _, page := range raw {
		if page = strings.TrimSpace(page); page != "" {
			pages = append(pages, page)
		}
	}
	return pages
}

func Join(pages []string) string {
	return strings.Join(pages, PageSeparator)
}

func convertPath(path string) (string, error) {
	res, err := docconv.ConvertPath(path)
	if err != nil {
		return "", err
	}
	return res.Body, nil
}

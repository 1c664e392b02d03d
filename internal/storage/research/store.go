// Package research keeps the weekly research log as a human-readable
// markdown file with one dated section per run, newest appended last.
package research

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/folio/internal/domain"
)

var datePattern = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`)

// Entry is one dated research section.
type Entry struct {
	Date time.Time
	Text string
}

// Store reads and appends research sections in a markdown file.
type Store struct {
	path string
}

// NewStore returns a store over the given markdown file; the file is created
// on first append.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Append writes a new dated section to the end of the file.
func (s *Store) Append(day time.Time, text string) error {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "open research file")
	}
	defer f.Close()

	section := fmt.Sprintf("\n## Research %s\n\n%s\n", day.Format(domain.DateLayout), strings.TrimSpace(text))
	if _, err := f.WriteString(section); err != nil {
		return errors.Wrap(err, "append research section")
	}
	return nil
}

// Latest returns the section with the greatest date in the file, if any.
// Sections start at a markdown header containing a YYYY-MM-DD date and run
// until the next dated header or end of file.
func (s *Store) Latest() (Entry, bool, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, errors.Wrap(err, "read research file")
	}

	lines := strings.Split(string(raw), "\n")

	type header struct {
		line int
		date string
	}
	var headers []header
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#") {
			continue
		}
		if m := datePattern.FindString(trimmed); m != "" {
			headers = append(headers, header{line: i, date: m})
		}
	}
	if len(headers) == 0 {
		return Entry{}, false, nil
	}

	latest := headers[0]
	for _, h := range headers[1:] {
		if h.date > latest.date || (h.date == latest.date && h.line > latest.line) {
			latest = h
		}
	}

	end := len(lines)
	for _, h := range headers {
		if h.line > latest.line && h.line < end {
			end = h.line
		}
	}

	day, err := time.Parse(domain.DateLayout, latest.date)
	if err != nil {
		return Entry{}, false, errors.Wrap(err, "parse research date")
	}

	text := strings.TrimSpace(strings.Join(lines[latest.line+1:end], "\n"))
	return Entry{Date: day, Text: text}, true, nil
}

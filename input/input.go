// Package input turns user-provided text into the ordered item list an
// operation runs over.
//
// Text is split on newlines (CRLF tolerated), every line is trimmed and
// blank lines are dropped. Order is preserved and duplicates are kept.
package input

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// MaxFileSize is the largest input file ReadFile accepts.
const MaxFileSize = 1 << 20

// ErrInputTooLarge is returned when an input exceeds MaxFileSize.
var ErrInputTooLarge = errors.New("input exceeds maximum size")

// Lines splits a multi-line text value into items.
func Lines(text string) []string {
	raw := strings.Split(text, "\n")
	items := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		items = append(items, line)
	}
	return items
}

// Read reads all of r and splits it into items.
// Returns ErrInputTooLarge if r yields more than MaxFileSize bytes.
func Read(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	if len(data) > MaxFileSize {
		return nil, ErrInputTooLarge
	}
	return Lines(string(data)), nil
}

// ReadFile reads the file at path and splits it into items.
func ReadFile(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat input file %s: %w", path, err)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("input file %s: %w", path, ErrInputTooLarge)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file %s: %w", path, err)
	}
	defer f.Close()

	items, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("input file %s: %w", path, err)
	}
	return items, nil
}

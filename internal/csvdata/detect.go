package csvdata

import (
	"errors"
	"regexp"
	"strings"
)

// Format classifies the schema of an input file.
type Format string

const (
	// FormatWide is one row per entity with one column per sample date.
	FormatWide Format = "wide"
	// FormatSimple is one row per entity with named value columns.
	FormatSimple Format = "simple"
)

// ErrFormatUnrecognized is returned when the header row matches neither
// schema. Surfaced to the caller as a rejected upload; never fatal.
var ErrFormatUnrecognized = errors.New("unrecognized csv format")

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// identifier-like header names that mark the wide format's entity column
var identifierColumns = map[string]bool{
	"regionid":   true,
	"regionname": true,
	"region":     true,
	"id":         true,
	"name":       true,
}

// DetectFormat classifies a header row. Tokens are compared lowercase.
func DetectFormat(header []string) (Format, error) {
	dateCols := 0
	hasIdentifier := false
	hasCity := false
	hasState := false

	for _, raw := range header {
		token := strings.ToLower(strings.TrimSpace(raw))
		switch {
		case datePattern.MatchString(token):
			dateCols++
		case identifierColumns[token]:
			hasIdentifier = true
		case token == "city":
			hasCity = true
		case token == "state":
			hasState = true
		}
	}

	if dateCols >= 2 && hasIdentifier {
		return FormatWide, nil
	}
	if hasCity && hasState {
		return FormatSimple, nil
	}
	return "", ErrFormatUnrecognized
}

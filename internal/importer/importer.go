// Package importer parses citation exports into normalized records.
//
// Two source families are supported: BibTeX (.bib, .bibtex) and CSL-JSON
// (.json, .csljson). BibTeX parsing escalates through three strategies so a
// single malformed entry cannot sink an otherwise usable file; every dropped
// entry is reported as a diagnostic rather than an error.
package importer

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bibsync/bibsync/internal/citation"
)

// ErrUnsupportedFormat is returned for citation files whose extension maps
// to no known format. Fatal to a run: there is nothing to salvage.
var ErrUnsupportedFormat = errors.New("unsupported citation format")

// DefaultEscalationRatio is the plausibility slack for the strict BibTeX
// parse: the result is distrusted when the boundary scan finds more than
// ratio times as many entries as the parser returned.
const DefaultEscalationRatio = 1.2

// Options tunes parsing behavior.
type Options struct {
	// EscalationRatio overrides DefaultEscalationRatio when greater than zero.
	EscalationRatio float64
}

func (o Options) ratio() float64 {
	if o.EscalationRatio > 0 {
		return o.EscalationRatio
	}
	return DefaultEscalationRatio
}

type format int

const (
	formatUnknown format = iota
	formatBibTeX
	formatCSL
)

// Parse reads the citation export at path and returns normalized records
// plus per-entry diagnostics for anything dropped. The error return is
// fatal: an unsupported extension or an unreadable file.
func Parse(path string, opts Options) ([]citation.Record, []error, error) {
	f, err := detectFormat(path)
	if err != nil {
		return nil, nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading citation file: %w", err)
	}
	data = stripBOM(data)

	switch f {
	case formatBibTeX:
		records, diags := ParseBibTeX(string(data), opts)
		return records, diags, nil
	default:
		records, diags := ParseCSL(data)
		return records, diags, nil
	}
}

func detectFormat(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bib", ".bibtex":
		return formatBibTeX, nil
	case ".json", ".csljson":
		return formatCSL, nil
	}
	return formatUnknown, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// stripBOM drops a UTF-8 byte order mark; reference managers on Windows
// like to prepend one.
func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
}

// firstNonEmpty returns the first non-empty value.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// collapseSpace trims and collapses whitespace runs to single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

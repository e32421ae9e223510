package importer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nickng/bibtex"

	"github.com/bibsync/bibsync/internal/citation"
)

// bareNumberField braces unquoted numeric field values (`year = 1994,`)
// before the strict parse; several reference managers emit them bare.
var bareNumberField = regexp.MustCompile(`(?m)(=\s*)(\d+)(\s*[,}\n])`)

// strategy is one BibTeX parsing attempt. It returns the parsed records,
// per-entry diagnostics, and an error when the strategy as a whole cannot
// be trusted.
type strategy struct {
	name string
	run  func(src string, opts Options) ([]citation.Record, []error, error)
}

// bibtexStrategies are tried in order; the first that succeeds wins. The
// per-entry tier never fails as a whole, so parsing always terminates with
// records and diagnostics.
var bibtexStrategies = []strategy{
	{name: "strict", run: parseStrict},
	{name: "lenient", run: parseLenient},
	{name: "per-entry", run: parsePerEntry},
}

// ParseBibTeX parses BibTeX source, escalating through the strategy list.
// Diagnostics describe entries dropped by the accepted strategy.
func ParseBibTeX(src string, opts Options) ([]citation.Record, []error) {
	var lastErr error
	for _, s := range bibtexStrategies {
		records, diags, err := s.run(src, opts)
		if err != nil {
			lastErr = err
			continue
		}
		return records, diags
	}
	return nil, []error{fmt.Errorf("all parse strategies failed: %w", lastErr)}
}

// parseStrict runs the structural grammar over the whole file, then checks
// plausibility: when the balanced-brace boundary scan finds more entries
// than the grammar accounted for (beyond the configured slack), the grammar
// silently swallowed something and the result is rejected.
func parseStrict(src string, opts Options) ([]citation.Record, []error, error) {
	bib, err := bibtex.Parse(strings.NewReader(braceBareNumbers(src)))
	if err != nil {
		return nil, nil, fmt.Errorf("structural parse: %w", err)
	}

	var records []citation.Record
	var diags []error
	for _, entry := range bib.Entries {
		rec, err := recordFromFields(entry.Type, entry.CiteName, entryFields(entry))
		if err != nil {
			diags = append(diags, fmt.Errorf("entry %q: %w", entry.CiteName, err))
			continue
		}
		records = append(records, rec)
	}

	if scanned := len(scanEntries(src)); float64(scanned) > opts.ratio()*float64(len(bib.Entries)) {
		return nil, nil, fmt.Errorf("structural parse returned %d entries, boundary scan found %d", len(bib.Entries), scanned)
	}

	return records, diags, nil
}

// parseLenient runs the tolerant scanner over the whole file. It is
// rejected only when there were entries to recover and it recovered none.
func parseLenient(src string, opts Options) ([]citation.Record, []error, error) {
	blocks := scanEntries(src)

	var records []citation.Record
	var diags []error
	for _, b := range blocks {
		rec, err := lenientRecord(b)
		if err != nil {
			diags = append(diags, fmt.Errorf("entry %q: %w", b.key, err))
			continue
		}
		records = append(records, rec)
	}

	if len(records) == 0 && len(blocks) > 0 {
		return nil, nil, fmt.Errorf("tolerant scan recovered none of %d entries", len(blocks))
	}
	return records, diags, nil
}

// parsePerEntry isolates damage to single entries: each balanced-brace block
// is parsed on its own, strict grammar first, tolerant scan second. Entries
// that defeat both are dropped with a diagnostic naming the scanned key.
func parsePerEntry(src string, opts Options) ([]citation.Record, []error, error) {
	var records []citation.Record
	var diags []error
	for _, b := range scanEntries(src) {
		if rec, ok := strictRecord(b); ok {
			records = append(records, rec)
			continue
		}
		rec, err := lenientRecord(b)
		if err != nil {
			diags = append(diags, fmt.Errorf("entry %q dropped: %w", b.key, err))
			continue
		}
		records = append(records, rec)
	}
	return records, diags, nil
}

// strictRecord tries the structural grammar on a single block.
func strictRecord(b rawEntry) (citation.Record, bool) {
	bib, err := bibtex.Parse(strings.NewReader(braceBareNumbers(b.text)))
	if err != nil || len(bib.Entries) != 1 {
		return citation.Record{}, false
	}
	entry := bib.Entries[0]
	rec, err := recordFromFields(entry.Type, entry.CiteName, entryFields(entry))
	if err != nil {
		return citation.Record{}, false
	}
	return rec, true
}

func braceBareNumbers(src string) string {
	return bareNumberField.ReplaceAllString(src, "${1}{${2}}${3}")
}

// entryFields lowercases field names and cleans values for one grammar entry.
func entryFields(entry *bibtex.BibEntry) map[string]string {
	fields := make(map[string]string, len(entry.Fields))
	for name, value := range entry.Fields {
		fields[strings.ToLower(name)] = cleanFieldValue(value.String())
	}
	return fields
}

// recordFromFields assembles a Record from lowercased BibTeX field values.
// An entry with neither key nor title is unidentifiable and rejected.
func recordFromFields(entryType, key string, fields map[string]string) (citation.Record, error) {
	rec := citation.Record{
		Key:      strings.TrimSpace(key),
		Type:     strings.ToLower(strings.TrimSpace(entryType)),
		Title:    fields["title"],
		Authors:  citation.NormalizeAuthors(fields["author"]),
		Year:     citation.ParseYear(fields["year"]),
		Venue:    firstNonEmpty(fields["journal"], fields["booktitle"], fields["publisher"]),
		Volume:   fields["volume"],
		Number:   firstNonEmpty(fields["number"], fields["issue"]),
		Pages:    fields["pages"],
		DOI:      citation.NormalizeDOI(fields["doi"]),
		URL:      fields["url"],
		Abstract: fields["abstract"],
		Keywords: citation.SplitKeywords(fields["keywords"]),
	}
	if rec.Key == "" && rec.Title == "" {
		return citation.Record{}, fmt.Errorf("entry has neither key nor title")
	}
	return rec, nil
}

// latexEscapes maps the escape sequences that commonly survive into field
// values. Anything fancier is left alone.
var latexEscapes = strings.NewReplacer(
	`\&`, "&",
	`\%`, "%",
	`\_`, "_",
	`\$`, "$",
	`\#`, "#",
	`\textendash`, "-",
	`\textemdash`, "-",
	"~", " ",
)

// cleanFieldValue strips the braces and quotes BibTeX uses for grouping,
// unescapes common LaTeX sequences, and collapses whitespace.
func cleanFieldValue(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 {
		if (v[0] == '{' && v[len(v)-1] == '}') || (v[0] == '"' && v[len(v)-1] == '"') {
			v = v[1 : len(v)-1]
		}
	}
	v = latexEscapes.Replace(v)
	v = strings.Map(func(r rune) rune {
		if r == '{' || r == '}' {
			return -1
		}
		return r
	}, v)
	return collapseSpace(v)
}

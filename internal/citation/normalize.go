package citation

import (
	"regexp"
	"strconv"
	"strings"
)

// authorSeparator splits multi-author fields on the word "and".
var authorSeparator = regexp.MustCompile(`(?i)\s+and\s+`)

// yearDigits finds the first four-digit run in a free-form year value.
var yearDigits = regexp.MustCompile(`\d{4}`)

// doiPrefixes are stripped before canonicalizing a DOI. Resolver URLs come
// first so "doi:" inside a path is not clipped early.
var doiPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"https://dx.doi.org/",
	"http://dx.doi.org/",
	"doi.org/",
	"doi:",
}

// nameSuffixes are generational and title suffixes that should not be
// mistaken for a last name.
var nameSuffixes = map[string]bool{
	"jr":  true,
	"sr":  true,
	"ii":  true,
	"iii": true,
	"iv":  true,
	"v":   true,
	"phd": true,
	"md":  true,
}

// NormalizeAuthors splits a raw author field into ordered display names.
// "Smith, John and Doe, Jane" becomes ["John Smith", "Jane Doe"]. Names
// without a comma pass through with whitespace cleaned up.
func NormalizeAuthors(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	parts := authorSeparator.Split(raw, -1)
	authors := make([]string, 0, len(parts))
	for _, part := range parts {
		if name := normalizeAuthor(part); name != "" {
			authors = append(authors, name)
		}
	}
	if len(authors) == 0 {
		return nil
	}
	return authors
}

// normalizeAuthor converts one "Last, First" name to "First Last".
func normalizeAuthor(name string) string {
	name = collapseSpace(name)
	if name == "" {
		return ""
	}

	last, first, ok := strings.Cut(name, ",")
	if !ok {
		return name
	}
	last = strings.TrimSpace(last)
	first = collapseSpace(first)
	if first == "" {
		return last
	}
	if last == "" {
		return first
	}
	return first + " " + last
}

// LastName returns the last name of a display-form author name. Suffixes
// like "Jr" or "III" are skipped so "Jane Doe Jr." yields "Doe".
func LastName(display string) string {
	parts := strings.Fields(display)
	if len(parts) == 0 {
		return ""
	}
	last := parts[len(parts)-1]
	trimmed := strings.ToLower(strings.Trim(last, "."))
	if nameSuffixes[trimmed] && len(parts) > 1 {
		return parts[len(parts)-2]
	}
	return last
}

// NormalizeDOI canonicalizes a DOI to its https://doi.org/ resolver form.
// Accepts bare identifiers, "doi:" prefixes, and existing resolver URLs in
// any case. Empty input stays empty.
func NormalizeDOI(raw string) string {
	doi := strings.TrimSpace(raw)
	if doi == "" {
		return ""
	}

	for _, prefix := range doiPrefixes {
		if len(doi) > len(prefix) && strings.EqualFold(doi[:len(prefix)], prefix) {
			doi = doi[len(prefix):]
		}
	}
	doi = strings.TrimSpace(doi)
	if doi == "" {
		return ""
	}
	return "https://doi.org/" + strings.ToLower(doi)
}

// ParseYear extracts a publication year from a free-form value such as
// "1994", "{1994}", or "June 1994". Returns 0 when nothing plausible is
// present.
func ParseYear(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if y, err := strconv.Atoi(raw); err == nil && y > 0 {
		return y
	}
	if m := yearDigits.FindString(raw); m != "" {
		y, _ := strconv.Atoi(m)
		return y
	}
	return 0
}

// SplitKeywords splits a keyword field on commas and semicolons, dropping
// empties and case-insensitive duplicates while keeping order.
func SplitKeywords(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';'
	})

	seen := make(map[string]bool, len(fields))
	var keywords []string
	for _, f := range fields {
		k := collapseSpace(f)
		if k == "" || seen[strings.ToLower(k)] {
			continue
		}
		seen[strings.ToLower(k)] = true
		keywords = append(keywords, k)
	}
	return keywords
}

// collapseSpace trims and collapses whitespace runs to single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Package match pairs citation records with files in the document store.
//
// Matching is pure string work: candidates are generated from the first
// author, year, and slugified title, then compared against file names at
// three confidence tiers. No tier matching is a normal outcome, not an
// error; the record simply syncs without a document.
package match

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bibsync/bibsync/internal/citation"
	"github.com/bibsync/bibsync/internal/drive"
)

// MinSubstring is the minimum compacted-title length eligible for the
// substring tier. Shorter titles produce too many accidental hits.
const MinSubstring = 10

// Tier is the confidence level of a match.
type Tier int

const (
	TierNone Tier = iota
	TierExact
	TierCompact
	TierSubstring
)

// String returns the tier name used in manifests and logs.
func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierCompact:
		return "compact"
	case TierSubstring:
		return "substring"
	default:
		return "none"
	}
}

// Result is the outcome of matching one record against a file listing.
type Result struct {
	File *drive.File
	Tier Tier
}

// Matched reports whether a file was found at any tier.
func (r Result) Matched() bool {
	return r.Tier != TierNone
}

// Match finds the best file for a record. Tiers are tried in confidence
// order and the first hit wins; within a tier, files are considered in
// listing order, so results are stable across runs.
func Match(rec citation.Record, files []drive.File) Result {
	if len(files) == 0 {
		return Result{Tier: TierNone}
	}

	candidates := Candidates(rec)

	for i := range files {
		stem := strings.ToLower(stripExt(files[i].Name))
		for _, c := range candidates {
			if stem == c {
				return Result{File: &files[i], Tier: TierExact}
			}
		}
	}

	for i := range files {
		compact := Compact(stripExt(files[i].Name))
		if compact == "" {
			continue
		}
		for _, c := range candidates {
			if compact == Compact(c) {
				return Result{File: &files[i], Tier: TierCompact}
			}
		}
	}

	title := Compact(rec.Title)
	if len(title) < MinSubstring {
		return Result{Tier: TierNone}
	}
	best, bestLen := -1, 0
	for i := range files {
		n := longestTitleRun(Compact(files[i].Name), title)
		if n >= MinSubstring && n > bestLen {
			best, bestLen = i, n
		}
	}
	if best >= 0 {
		return Result{File: &files[best], Tier: TierSubstring}
	}
	return Result{Tier: TierNone}
}

// Candidates generates the file-name stems a record's document is likely to
// be stored under. Variants cover the separator conventions reference
// managers use between author, year, and title. Without an author and year
// the slug stands alone.
func Candidates(rec citation.Record) []string {
	slug := Slug(rec.Title)
	if slug == "" {
		slug = Slug(rec.Key)
	}

	last := Compact(rec.FirstAuthorLast())
	if last == "" || rec.Year == 0 {
		if slug == "" {
			return nil
		}
		return []string{slug}
	}

	year := strconv.Itoa(rec.Year)
	return []string{
		last + year + "-" + slug,
		last + "-" + year + "-" + slug,
		last + "_" + year + "-" + slug,
		last + "+" + year + "-" + slug,
		last + year + "+" + slug,
	}
}

// Slug lowercases a title and replaces every run of non-alphanumerics with
// a single underscore: "Wage Dynamics: A Survey" becomes
// "wage_dynamics_a_survey".
func Slug(title string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}

// Compact strips everything but lowercase letters and digits, the common
// denominator of all naming conventions.
func Compact(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func stripExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// longestTitleRun returns the length of the longest substring of title that
// occurs in name. Full containment scores len(title); partial runs let
// truncated or decorated file names still match.
func longestTitleRun(name, title string) int {
	if name == "" || title == "" {
		return 0
	}
	if strings.Contains(name, title) {
		return len(title)
	}
	best := 0
	for i := 0; i < len(title); i++ {
		for j := i + best + 1; j <= len(title); j++ {
			if !strings.Contains(name, title[i:j]) {
				break
			}
			best = j - i
		}
	}
	return best
}

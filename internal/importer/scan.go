package importer

import (
	"regexp"
	"strings"

	"github.com/bibsync/bibsync/internal/citation"
)

// rawEntry is one @type{...} block located by the boundary scanner.
type rawEntry struct {
	entryType string
	key       string
	text      string // the full block, @ through closing brace
}

// entryHead matches the opening of an entry at a scanner position.
var entryHead = regexp.MustCompile(`^@([a-zA-Z]+)\s*\{\s*([^,{}\s]*)`)

// fieldStart matches `name =` at a field boundary inside an entry body.
var fieldStart = regexp.MustCompile(`([a-zA-Z][a-zA-Z0-9_-]*)\s*=\s*`)

// nonEntryTypes are directive blocks the scanner skips over. They never
// count toward the entry total.
var nonEntryTypes = map[string]bool{
	"comment":  true,
	"string":   true,
	"preamble": true,
}

// scanEntries walks the source counting braces to locate balanced @type{...}
// blocks. It needs no grammar, so it finds entry boundaries even in files
// the structural parser rejects. An unterminated final block is taken to
// the end of input so its fields remain recoverable.
func scanEntries(src string) []rawEntry {
	var entries []rawEntry
	for i := 0; i < len(src); i++ {
		if src[i] != '@' {
			continue
		}
		head := entryHead.FindStringSubmatch(src[i:])
		if head == nil {
			continue
		}

		open := strings.IndexByte(src[i:], '{')
		if open < 0 {
			continue
		}

		depth := 0
		end := -1
	scan:
		for j := i + open; j < len(src); j++ {
			switch src[j] {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					end = j
					break scan
				}
			}
		}
		if end < 0 {
			end = len(src) - 1
		}

		if entryType := strings.ToLower(head[1]); !nonEntryTypes[entryType] {
			entries = append(entries, rawEntry{
				entryType: entryType,
				key:       strings.TrimSpace(head[2]),
				text:      src[i : end+1],
			})
		}
		i = end
	}
	return entries
}

// lenientRecord extracts fields from one block without grammar: field names
// are found by pattern, values by brace walking, quote matching, or a bare
// scan to the next separator.
func lenientRecord(b rawEntry) (citation.Record, error) {
	body := b.text
	if idx := strings.IndexByte(body, '{'); idx >= 0 {
		body = body[idx+1:]
	}
	body = strings.TrimSuffix(strings.TrimSpace(body), "}")
	if idx := strings.IndexByte(body, ','); idx >= 0 {
		body = body[idx+1:]
	}

	fields := make(map[string]string)
	for pos := 0; pos < len(body); {
		loc := fieldStart.FindStringSubmatchIndex(body[pos:])
		if loc == nil {
			break
		}
		name := strings.ToLower(body[pos+loc[2] : pos+loc[3]])
		value, next := scanFieldValue(body, pos+loc[1])
		if _, seen := fields[name]; !seen {
			fields[name] = cleanFieldValue(value)
		}
		pos = next
	}

	return recordFromFields(b.entryType, b.key, fields)
}

// scanFieldValue reads one field value starting at start and returns the raw
// value plus the index just past it. Handles {braced} values with nesting,
// "quoted" values, and bare values terminated by a comma or newline.
func scanFieldValue(body string, start int) (string, int) {
	for start < len(body) && isSpace(body[start]) {
		start++
	}
	if start >= len(body) {
		return "", start
	}

	switch body[start] {
	case '{':
		depth := 0
		for j := start; j < len(body); j++ {
			switch body[j] {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return body[start : j+1], j + 1
				}
			}
		}
		return body[start:], len(body)
	case '"':
		for j := start + 1; j < len(body); j++ {
			if body[j] == '"' && body[j-1] != '\\' {
				return body[start : j+1], j + 1
			}
		}
		return body[start:], len(body)
	default:
		for j := start; j < len(body); j++ {
			if body[j] == ',' || body[j] == '\n' {
				return strings.TrimSpace(body[start:j]), j
			}
		}
		return strings.TrimSpace(body[start:]), len(body)
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

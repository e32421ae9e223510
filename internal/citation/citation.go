// Package citation defines the normalized record produced by the importers
// and consumed by the matcher and the publisher.
package citation

// DefaultTitle is used when a record carries neither a title nor a key.
const DefaultTitle = "Untitled reference"

// Record is one normalized citation entry, whatever format it came from.
type Record struct {
	Key      string   `json:"key"`
	Type     string   `json:"type,omitempty"`
	Title    string   `json:"title,omitempty"`
	Authors  []string `json:"authors,omitempty"` // ordered display names, "First Last"
	Year     int      `json:"year,omitempty"`    // 0 when unknown
	Venue    string   `json:"venue,omitempty"`
	Volume   string   `json:"volume,omitempty"`
	Number   string   `json:"number,omitempty"`
	Pages    string   `json:"pages,omitempty"`
	DOI      string   `json:"doi,omitempty"` // canonical https://doi.org/ form
	URL      string   `json:"url,omitempty"`
	Abstract string   `json:"abstract,omitempty"`
	Keywords []string `json:"keywords,omitempty"` // from the source, e.g. a keywords field
	Tags     []string `json:"tags,omitempty"`     // user-curated labels, set after parsing, never from the source
	FileRef  string   `json:"file_ref,omitempty"` // matched file store ID, set by the matcher
}

// DisplayTitle returns the best available title: the title itself, falling
// back to the citation key, falling back to DefaultTitle. Never empty.
func (r Record) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	if r.Key != "" {
		return r.Key
	}
	return DefaultTitle
}

// FirstAuthorLast returns the last name of the first author, or "" when the
// record has no authors.
func (r Record) FirstAuthorLast() string {
	if len(r.Authors) == 0 {
		return ""
	}
	return LastName(r.Authors[0])
}

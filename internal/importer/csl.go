package importer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bibsync/bibsync/internal/citation"
)

// FlexibleString handles JSON fields that may be either strings or numbers.
// CSL exporters disagree about whether volumes, issues, and pages are quoted.
type FlexibleString string

// UnmarshalJSON implements custom unmarshaling for FlexibleString.
func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexibleString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexibleString(n.String())
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into string", string(data))
}

// String returns the string value.
func (f FlexibleString) String() string {
	return string(f)
}

// cslItem is one CSL-JSON bibliography item.
type cslItem struct {
	ID             FlexibleString `json:"id"`
	Type           string         `json:"type"`
	Title          string         `json:"title"`
	ContainerTitle string         `json:"container-title"`
	Volume         FlexibleString `json:"volume"`
	Issue          FlexibleString `json:"issue"`
	Page           FlexibleString `json:"page"`
	DOI            string         `json:"DOI"`
	URL            string         `json:"URL"`
	Abstract       string         `json:"abstract"`
	Keyword        string         `json:"keyword"`
	Author         []cslName      `json:"author"`
	Issued         *cslDate       `json:"issued"`
}

type cslName struct {
	Family  string `json:"family"`
	Given   string `json:"given"`
	Literal string `json:"literal"`
}

// cslDate carries the three spellings of a CSL date. Most exporters emit
// date-parts; raw and literal show up in hand-edited files.
type cslDate struct {
	DateParts [][]FlexibleString `json:"date-parts"`
	Raw       string             `json:"raw"`
	Literal   string             `json:"literal"`
}

// ParseCSL parses a CSL-JSON export: an array of items, or a bare item
// object (some exporters drop the array for single-entry bibliographies).
// Items lacking both id and title are dropped with a diagnostic.
func ParseCSL(data []byte) ([]citation.Record, []error) {
	var items []cslItem
	if err := json.Unmarshal(data, &items); err != nil {
		var single cslItem
		if err2 := json.Unmarshal(data, &single); err2 != nil {
			return nil, []error{fmt.Errorf("parsing CSL-JSON: %w", err)}
		}
		items = []cslItem{single}
	}

	var records []citation.Record
	var diags []error
	for i, item := range items {
		rec, err := cslRecord(item)
		if err != nil {
			diags = append(diags, fmt.Errorf("item %d (%s): %w", i+1, item.ID, err))
			continue
		}
		records = append(records, rec)
	}
	return records, diags
}

func cslRecord(item cslItem) (citation.Record, error) {
	rec := citation.Record{
		Key:      item.ID.String(),
		Type:     strings.TrimSpace(item.Type),
		Title:    collapseSpace(item.Title),
		Venue:    collapseSpace(item.ContainerTitle),
		Volume:   item.Volume.String(),
		Number:   item.Issue.String(),
		Pages:    item.Page.String(),
		DOI:      citation.NormalizeDOI(item.DOI),
		URL:      strings.TrimSpace(item.URL),
		Abstract: strings.TrimSpace(item.Abstract),
		Keywords: citation.SplitKeywords(item.Keyword),
		Year:     item.Issued.year(),
	}
	for _, name := range item.Author {
		if display := name.display(); display != "" {
			rec.Authors = append(rec.Authors, display)
		}
	}
	if rec.Key == "" && rec.Title == "" {
		return citation.Record{}, fmt.Errorf("item has neither id nor title")
	}
	return rec, nil
}

// display renders a CSL name as "Given Family", preferring the literal form
// when present (institutions and single-field names use it).
func (n cslName) display() string {
	if n.Literal != "" {
		return collapseSpace(n.Literal)
	}
	return collapseSpace(n.Given + " " + n.Family)
}

// year pulls the publication year from whichever date spelling is present.
func (d *cslDate) year() int {
	if d == nil {
		return 0
	}
	if len(d.DateParts) > 0 && len(d.DateParts[0]) > 0 {
		return citation.ParseYear(d.DateParts[0][0].String())
	}
	if d.Raw != "" {
		return citation.ParseYear(d.Raw)
	}
	return citation.ParseYear(d.Literal)
}

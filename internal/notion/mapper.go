package notion

import (
	"strconv"
	"strings"
	"time"

	"github.com/jomei/notionapi"

	"github.com/bibsync/bibsync/internal/citation"
)

// MapOptions tune how records land in the database.
type MapOptions struct {
	// DefaultTags fill a tags slot when the record carries neither
	// keywords nor tags of its own.
	DefaultTags []string
	// LastSyncedProp overrides the slot names tried for the sync timestamp.
	LastSyncedProp string
	// Now stamps the sync time; zero means time.Now.
	Now time.Time
}

// valueBuilder turns one record field into a property value, or nil when
// the field is empty or the declared type cannot carry it.
type valueBuilder func(rec citation.Record, typ notionapi.PropertyConfigType, opts MapOptions) notionapi.Property

// mappings binds groups of candidate slot names to builders. Only slots
// that exist in the database produce values; everything else is dropped.
var mappings = []struct {
	names []string
	build valueBuilder
}{
	{[]string{"authors", "author"}, buildAuthors},
	{[]string{"year"}, buildYear},
	{[]string{"venue", "journal", "publication"}, buildVenue},
	{[]string{"doi"}, buildLink(func(r citation.Record) string { return r.DOI })},
	{[]string{"url", "link"}, buildLink(func(r citation.Record) string { return r.URL })},
	{[]string{"citekey", "cite key", "key", "bibkey"}, textField(func(r citation.Record) string { return r.Key })},
	{[]string{"abstract", "summary"}, textField(func(r citation.Record) string { return r.Abstract })},
	{[]string{"volume"}, textField(func(r citation.Record) string { return r.Volume })},
	{[]string{"number", "issue"}, textField(func(r citation.Record) string { return r.Number })},
	{[]string{"pages"}, textField(func(r citation.Record) string { return r.Pages })},
	{[]string{"type", "kind"}, buildType},
	{[]string{"keywords", "tags", "topics"}, buildTags},
}

// MapRecord shapes a record onto the introspected schema. The title is the
// only property guaranteed to exist; all other fields map opportunistically.
func MapRecord(rec citation.Record, schema *Schema, opts MapOptions) notionapi.Properties {
	props := notionapi.Properties{
		schema.TitleProp: notionapi.TitleProperty{
			Title: richText(rec.DisplayTitle()),
		},
	}

	for _, m := range mappings {
		name, typ, ok := schema.Slot(m.names...)
		if !ok || name == schema.TitleProp {
			continue
		}
		if v := m.build(rec, typ, opts); v != nil {
			props[name] = v
		}
	}

	if name, typ, ok := schema.Slot(lastSyncedNames(opts)...); ok && typ == notionapi.PropertyConfigTypeDate {
		now := opts.Now
		if now.IsZero() {
			now = time.Now()
		}
		start := notionapi.Date(now)
		props[name] = notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &start},
		}
	}

	return props
}

func lastSyncedNames(opts MapOptions) []string {
	if opts.LastSyncedProp != "" {
		return []string{opts.LastSyncedProp}
	}
	return []string{"Last Synced", "Synced At", "Synced"}
}

func buildAuthors(rec citation.Record, typ notionapi.PropertyConfigType, _ MapOptions) notionapi.Property {
	if len(rec.Authors) == 0 {
		return nil
	}
	switch typ {
	case notionapi.PropertyConfigTypeMultiSelect:
		return multiSelect(rec.Authors)
	case notionapi.PropertyConfigTypeRichText:
		return notionapi.RichTextProperty{RichText: richText(strings.Join(rec.Authors, ", "))}
	}
	return nil
}

func buildYear(rec citation.Record, typ notionapi.PropertyConfigType, _ MapOptions) notionapi.Property {
	if rec.Year == 0 {
		return nil
	}
	switch typ {
	case notionapi.PropertyConfigTypeNumber:
		return notionapi.NumberProperty{Number: float64(rec.Year)}
	case notionapi.PropertyConfigTypeRichText:
		return notionapi.RichTextProperty{RichText: richText(strconv.Itoa(rec.Year))}
	}
	return nil
}

func buildVenue(rec citation.Record, typ notionapi.PropertyConfigType, _ MapOptions) notionapi.Property {
	if rec.Venue == "" {
		return nil
	}
	switch typ {
	case notionapi.PropertyConfigTypeSelect:
		return notionapi.SelectProperty{Select: notionapi.Option{Name: clipOption(rec.Venue)}}
	case notionapi.PropertyConfigTypeRichText:
		return notionapi.RichTextProperty{RichText: richText(rec.Venue)}
	}
	return nil
}

// buildLink handles DOI and URL slots, which may be typed url or rich_text.
func buildLink(get func(citation.Record) string) valueBuilder {
	return func(rec citation.Record, typ notionapi.PropertyConfigType, _ MapOptions) notionapi.Property {
		v := get(rec)
		if v == "" {
			return nil
		}
		switch typ {
		case notionapi.PropertyConfigTypeURL:
			return notionapi.URLProperty{URL: v}
		case notionapi.PropertyConfigTypeRichText:
			return notionapi.RichTextProperty{RichText: richText(v)}
		}
		return nil
	}
}

func buildType(rec citation.Record, typ notionapi.PropertyConfigType, _ MapOptions) notionapi.Property {
	if rec.Type == "" || typ != notionapi.PropertyConfigTypeSelect {
		return nil
	}
	return notionapi.SelectProperty{Select: notionapi.Option{Name: clipOption(rec.Type)}}
}

// buildTags fills a tags slot from source keywords, then record-level tags,
// then the configured defaults. With none of the three the slot is left
// untouched, so curation done in the database survives a sync.
func buildTags(rec citation.Record, typ notionapi.PropertyConfigType, opts MapOptions) notionapi.Property {
	if typ != notionapi.PropertyConfigTypeMultiSelect {
		return nil
	}
	tags := rec.Keywords
	if len(tags) == 0 {
		tags = rec.Tags
	}
	if len(tags) == 0 {
		tags = opts.DefaultTags
	}
	if len(tags) == 0 {
		return nil
	}
	return multiSelect(tags)
}

// textField builds a rich_text value from a plain string field.
func textField(get func(citation.Record) string) valueBuilder {
	return func(rec citation.Record, typ notionapi.PropertyConfigType, _ MapOptions) notionapi.Property {
		v := get(rec)
		if v == "" || typ != notionapi.PropertyConfigTypeRichText {
			return nil
		}
		return notionapi.RichTextProperty{RichText: richText(v)}
	}
}

// richText wraps a string, clipped to Notion's per-item length limit.
func richText(s string) []notionapi.RichText {
	if r := []rune(s); len(r) > maxRichTextLen {
		s = string(r[:maxRichTextLen])
	}
	return []notionapi.RichText{{
		Type: notionapi.ObjectTypeText,
		Text: &notionapi.Text{Content: s},
	}}
}

func multiSelect(names []string) notionapi.MultiSelectProperty {
	opts := make([]notionapi.Option, 0, len(names))
	for _, n := range names {
		if n = clipOption(n); n != "" {
			opts = append(opts, notionapi.Option{Name: n})
		}
	}
	return notionapi.MultiSelectProperty{MultiSelect: opts}
}

// clipOption makes a string legal as a select option name: no commas, at
// most 100 characters.
func clipOption(s string) string {
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > 100 {
		s = string(r[:100])
	}
	return s
}

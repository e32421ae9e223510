package notion

import (
	"context"
	"fmt"
	"strings"

	"github.com/jomei/notionapi"
)

// Schema is the introspected shape of the target database: each property's
// name and declared type, plus the mandatory title property.
type Schema struct {
	Props     map[string]notionapi.PropertyConfigType
	TitleProp string
}

// IntrospectSchema reads the database definition. Every run starts here so
// that property renames and retypes between runs are picked up.
func (c *Client) IntrospectSchema(ctx context.Context) (*Schema, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	db, err := c.api.Database.Get(ctx, c.databaseID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaUnavailable, err)
	}

	s := &Schema{Props: make(map[string]notionapi.PropertyConfigType, len(db.Properties))}
	for name, cfg := range db.Properties {
		typ := cfg.GetType()
		s.Props[name] = typ
		if typ == notionapi.PropertyConfigTypeTitle {
			s.TitleProp = name
		}
	}
	if s.TitleProp == "" {
		return nil, fmt.Errorf("%w: database has no title property", ErrSchemaUnavailable)
	}
	return s, nil
}

// Slot finds the first database property matching any of the given names,
// compared case-insensitively and ignoring spaces, underscores and hyphens.
// It returns the property's real name and declared type.
func (s *Schema) Slot(names ...string) (string, notionapi.PropertyConfigType, bool) {
	for _, want := range names {
		want = canonicalName(want)
		for prop, typ := range s.Props {
			if canonicalName(prop) == want {
				return prop, typ, true
			}
		}
	}
	return "", "", false
}

func canonicalName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch r {
		case ' ', '_', '-':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

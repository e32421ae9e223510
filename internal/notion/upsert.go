package notion

import (
	"context"

	"github.com/jomei/notionapi"

	"github.com/bibsync/bibsync/internal/citation"
)

// Action says whether an upsert created a new page or updated an old one.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
)

// Upsert writes the mapped properties for one record, updating the page it
// finds through the identity chain or creating a fresh one. It returns the
// page ID and what happened.
func (c *Client) Upsert(ctx context.Context, rec citation.Record, props notionapi.Properties, schema *Schema) (string, Action, error) {
	pageID, err := c.findExisting(ctx, rec, schema)
	if err != nil {
		return "", "", err
	}

	if pageID != "" {
		if err := c.wait(ctx); err != nil {
			return "", "", err
		}
		page, err := c.api.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{
			Properties: props,
		})
		if err != nil {
			return "", "", wrapError("updating page", err)
		}
		return string(page.ID), ActionUpdated, nil
	}

	if err := c.wait(ctx); err != nil {
		return "", "", err
	}
	page, err := c.api.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: c.databaseID,
		},
		Properties: props,
	})
	if err != nil {
		return "", "", wrapError("creating page", err)
	}
	return string(page.ID), ActionCreated, nil
}

// findExisting walks the identity chain: DOI, then URL, then citation key,
// then exact title. The first property that exists in the schema, has a
// value on the record, and matches a page wins.
func (c *Client) findExisting(ctx context.Context, rec citation.Record, schema *Schema) (string, error) {
	for _, f := range identityFilters(rec, schema) {
		if err := c.wait(ctx); err != nil {
			return "", err
		}
		resp, err := c.api.Database.Query(ctx, c.databaseID, &notionapi.DatabaseQueryRequest{
			Filter:   f,
			PageSize: queryPageSize,
		})
		if err != nil {
			return "", wrapError("querying database", err)
		}
		if len(resp.Results) > 0 {
			return string(resp.Results[0].ID), nil
		}
	}
	return "", nil
}

// identityFilters builds the lookup chain for a record. Title always comes
// last: it is the weakest identity but the only one guaranteed a slot.
func identityFilters(rec citation.Record, schema *Schema) []notionapi.Filter {
	var filters []notionapi.Filter

	add := func(value string, names ...string) {
		if value == "" {
			return
		}
		name, typ, ok := schema.Slot(names...)
		if !ok {
			return
		}
		if f := equalsFilter(name, typ, value); f != nil {
			filters = append(filters, f)
		}
	}

	add(rec.DOI, "doi")
	add(rec.URL, "url", "link")
	add(rec.Key, "citekey", "cite key", "key", "bibkey")
	filters = append(filters, equalsFilter(schema.TitleProp, notionapi.PropertyConfigTypeTitle, rec.DisplayTitle()))

	return filters
}

// equalsFilter builds an exact-match filter for the property's declared
// type, or nil when the type cannot be queried for equality.
func equalsFilter(name string, typ notionapi.PropertyConfigType, value string) notionapi.Filter {
	cond := &notionapi.TextFilterCondition{Equals: value}
	switch typ {
	case notionapi.PropertyConfigTypeTitle:
		return notionapi.PropertyFilter{Property: name, Title: cond}
	case notionapi.PropertyConfigTypeRichText:
		return notionapi.PropertyFilter{Property: name, RichText: cond}
	case notionapi.PropertyConfigTypeURL:
		return notionapi.PropertyFilter{Property: name, URL: cond}
	}
	return nil
}

package notion

import (
	"context"
	"fmt"
	"strings"

	"github.com/jomei/notionapi"
)

// ChunkMarker prefixes the toggle block that holds a document's text
// chunks. Reruns find and replace the container by this marker, so page
// content written by hand is never touched.
const ChunkMarker = "Full text"

// SyncChunks replaces the page's chunk container with the given chunks.
// Old containers are removed first, so a rerun never duplicates or
// interleaves stale text. Zero chunks just clears.
func (c *Client) SyncChunks(ctx context.Context, pageID, docID string, chunks []string) error {
	if err := c.clearContainers(ctx, pageID); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	containerID, err := c.appendContainer(ctx, pageID, docID)
	if err != nil {
		return err
	}

	blocks := make([]notionapi.Block, 0, len(chunks))
	for _, chunk := range chunks {
		blocks = append(blocks, paragraph(chunk))
	}
	for start := 0; start < len(blocks); start += maxBlocksPerAppend {
		end := start + maxBlocksPerAppend
		if end > len(blocks) {
			end = len(blocks)
		}
		if err := c.wait(ctx); err != nil {
			return err
		}
		_, err := c.api.Block.AppendChildren(ctx, containerID, &notionapi.AppendBlockChildrenRequest{
			Children: blocks[start:end],
		})
		if err != nil {
			return wrapError("appending chunks", err)
		}
	}
	return nil
}

// clearContainers archives every marked toggle among the page's children.
func (c *Client) clearContainers(ctx context.Context, pageID string) error {
	var stale []notionapi.BlockID
	cursor := ""
	for {
		if err := c.wait(ctx); err != nil {
			return err
		}
		resp, err := c.api.Block.GetChildren(ctx, notionapi.BlockID(pageID), &notionapi.Pagination{
			StartCursor: notionapi.Cursor(cursor),
			PageSize:    childPageSize,
		})
		if err != nil {
			return wrapError("listing page blocks", err)
		}
		for _, block := range resp.Results {
			toggle, ok := block.(*notionapi.ToggleBlock)
			if !ok {
				continue
			}
			if strings.HasPrefix(plainText(toggle.Toggle.RichText), ChunkMarker) {
				stale = append(stale, toggle.GetID())
			}
		}
		if !resp.HasMore {
			break
		}
		cursor = string(resp.NextCursor)
	}

	for _, id := range stale {
		if err := c.wait(ctx); err != nil {
			return err
		}
		if _, err := c.api.Block.Delete(ctx, id); err != nil {
			return wrapError("removing stale chunk container", err)
		}
	}
	return nil
}

// appendContainer creates the marked toggle and returns its block ID.
func (c *Client) appendContainer(ctx context.Context, pageID, docID string) (notionapi.BlockID, error) {
	marker := ChunkMarker
	if docID != "" {
		marker = fmt.Sprintf("%s (%s)", ChunkMarker, docID)
	}
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	resp, err := c.api.Block.AppendChildren(ctx, notionapi.BlockID(pageID), &notionapi.AppendBlockChildrenRequest{
		Children: []notionapi.Block{
			notionapi.ToggleBlock{
				BasicBlock: notionapi.BasicBlock{
					Object: notionapi.ObjectTypeBlock,
					Type:   notionapi.BlockTypeToggle,
				},
				Toggle: notionapi.Toggle{
					RichText: richText(marker),
				},
			},
		},
	})
	if err != nil {
		return "", wrapError("creating chunk container", err)
	}
	if len(resp.Results) == 0 {
		return "", fmt.Errorf("creating chunk container: empty response")
	}
	return resp.Results[0].GetID(), nil
}

func paragraph(text string) notionapi.Block {
	return notionapi.ParagraphBlock{
		BasicBlock: notionapi.BasicBlock{
			Object: notionapi.ObjectTypeBlock,
			Type:   notionapi.BlockTypeParagraph,
		},
		Paragraph: notionapi.Paragraph{
			RichText: richText(text),
		},
	}
}

// plainText flattens rich text for marker comparison. Responses carry
// PlainText; locally built blocks only have Text.Content.
func plainText(rts []notionapi.RichText) string {
	var b strings.Builder
	for _, rt := range rts {
		if rt.PlainText != "" {
			b.WriteString(rt.PlainText)
		} else if rt.Text != nil {
			b.WriteString(rt.Text.Content)
		}
	}
	return b.String()
}

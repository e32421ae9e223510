// Package pipeline runs one sync end to end: parse the citation source,
// introspect the target database, then for each record match a document,
// upsert metadata, and sync full text. Records are processed sequentially
// and a failure in one never stops the rest.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jomei/notionapi"
	"go.uber.org/zap"

	"github.com/bibsync/bibsync/internal/chunkstore"
	"github.com/bibsync/bibsync/internal/citation"
	"github.com/bibsync/bibsync/internal/config"
	"github.com/bibsync/bibsync/internal/drive"
	"github.com/bibsync/bibsync/internal/embedding"
	"github.com/bibsync/bibsync/internal/extract"
	"github.com/bibsync/bibsync/internal/importer"
	"github.com/bibsync/bibsync/internal/match"
	"github.com/bibsync/bibsync/internal/notion"
)

// Publisher is the slice of the Notion client the pipeline needs.
type Publisher interface {
	IntrospectSchema(ctx context.Context) (*notion.Schema, error)
	Upsert(ctx context.Context, rec citation.Record, props notionapi.Properties, schema *notion.Schema) (string, notion.Action, error)
	SyncChunks(ctx context.Context, pageID, docID string, chunks []string) error
}

// FileStore lists and fetches candidate documents.
type FileStore interface {
	List(ctx context.Context) ([]drive.File, error)
	Download(ctx context.Context, fileID, dir string) (string, error)
}

// TextExtractor turns a downloaded document into text.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (extract.Result, error)
}

// ChunkSink mirrors chunks locally.
type ChunkSink interface {
	Replace(ctx context.Context, doc chunkstore.Document) error
}

// Pipeline wires the stages together. Files, sink and embedder are
// optional; a nil value disables that stage.
type Pipeline struct {
	cfg       *config.Config
	log       *zap.SugaredLogger
	publisher Publisher
	files     FileStore
	extractor TextExtractor
	sink      ChunkSink
	embedder  embedding.Provider

	now func() time.Time
}

// New assembles a pipeline.
func New(cfg *config.Config, log *zap.SugaredLogger, publisher Publisher, files FileStore, extractor TextExtractor, sink ChunkSink, embedder embedding.Provider) *Pipeline {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Pipeline{
		cfg:       cfg,
		log:       log,
		publisher: publisher,
		files:     files,
		extractor: extractor,
		sink:      sink,
		embedder:  embedder,
		now:       time.Now,
	}
}

// Run executes one sync and returns the manifest. The error is non-nil
// only for failures that abort the whole run: an unreadable source, an
// unparseable format, or an unavailable database schema.
func (p *Pipeline) Run(ctx context.Context) (*Manifest, error) {
	m := newManifest(p.cfg.Source, p.now())

	source, cleanup, err := FetchSource(ctx, p.cfg.Source)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	records, dropped, err := importer.Parse(source, importer.Options{
		EscalationRatio: p.cfg.Parser.EscalationRatio,
	})
	if err != nil {
		return nil, err
	}
	for _, d := range dropped {
		p.log.Warnw("dropped unparseable entry", "error", d)
	}
	m.Dropped = len(dropped)
	p.log.Infow("parsed citation source", "source", source, "records", len(records), "dropped", len(dropped))

	schema, err := p.publisher.IntrospectSchema(ctx)
	if err != nil {
		return nil, err
	}

	files := p.listFiles(ctx)

	docDir, err := os.MkdirTemp("", "bibsync-docs-*")
	if err != nil {
		return nil, fmt.Errorf("creating download directory: %w", err)
	}
	defer os.RemoveAll(docDir)

	for _, rec := range records {
		m.add(p.processRecord(ctx, rec, schema, files, docDir))
	}

	m.finish(p.now())
	if p.cfg.Manifest != "" {
		if err := m.Write(p.cfg.Manifest); err != nil {
			p.log.Errorw("manifest write failed", "path", p.cfg.Manifest, "error", err)
		}
	}
	p.log.Infow("run finished",
		"created", m.Created,
		"updated", m.Updated,
		"skipped", m.Skipped,
		"dropped", m.Dropped,
	)
	return m, nil
}

// FetchSource makes the citation source a local path, downloading http(s)
// URLs to a temp file first. The extension survives so format detection
// still works. The cleanup func removes the temp file.
func FetchSource(ctx context.Context, src string) (string, func(), error) {
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		return src, func() {}, nil
	}

	u, err := url.Parse(src)
	if err != nil {
		return "", nil, fmt.Errorf("parsing source URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", nil, fmt.Errorf("fetching source: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("fetching source: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("fetching source: %s returned %s", src, resp.Status)
	}

	f, err := os.CreateTemp("", "bibsync-source-*"+filepath.Ext(u.Path))
	if err != nil {
		return "", nil, fmt.Errorf("staging source: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("staging source: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("staging source: %w", err)
	}
	return f.Name(), func() { os.Remove(f.Name()) }, nil
}

// listFiles returns the candidate documents, or nil when there is no file
// store or the listing fails. A failed listing degrades the run to
// metadata-only rather than aborting it.
func (p *Pipeline) listFiles(ctx context.Context) []drive.File {
	if p.files == nil {
		return nil
	}
	files, err := p.files.List(ctx)
	if err != nil {
		p.log.Warnw("file listing failed, continuing metadata-only", "error", err)
		return nil
	}
	p.log.Infow("listed folder", "files", len(files))
	return files
}

// processRecord takes one citation through match, upsert and document
// sync. Errors are captured in the entry; they never propagate.
func (p *Pipeline) processRecord(ctx context.Context, rec citation.Record, schema *notion.Schema, files []drive.File, docDir string) Entry {
	entry := Entry{Key: rec.Key}
	if entry.Key == "" {
		entry.Key = rec.DisplayTitle()
	}

	res := match.Match(rec, files)
	if res.Matched() {
		rec.FileRef = res.File.ID
		if rec.URL == "" {
			rec.URL = res.File.ViewURL
		}
		entry.File = res.File.Name
		entry.MatchTier = res.Tier.String()
	}

	props := notion.MapRecord(rec, schema, notion.MapOptions{
		DefaultTags:    p.cfg.Notion.DefaultTags,
		LastSyncedProp: p.cfg.Notion.LastSyncedProp,
		Now:            p.now(),
	})

	pageID, action, err := p.publisher.Upsert(ctx, rec, props, schema)
	if err != nil {
		p.log.Errorw("upsert failed", "key", entry.Key, "error", err)
		entry.Action = ActionSkipped
		entry.Error = err.Error()
		return entry
	}
	entry.RemoteID = pageID
	entry.Action = string(action)
	p.log.Infow("metadata synced", "key", entry.Key, "action", entry.Action, "page", pageID)

	if res.Matched() {
		if err := p.syncDocument(ctx, rec, res.File, pageID, docDir); err != nil {
			p.log.Errorw("document stage failed; metadata already synced",
				"key", entry.Key, "file", res.File.Name, "error", err)
			entry.Error = err.Error()
		}
	}
	return entry
}

// syncDocument downloads, extracts, chunks, and publishes one document's
// text, then mirrors the chunks into the sink when one is configured.
func (p *Pipeline) syncDocument(ctx context.Context, rec citation.Record, file *drive.File, pageID, docDir string) error {
	path, err := p.files.Download(ctx, file.ID, docDir)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", file.Name, err)
	}
	defer os.Remove(path)

	res, err := p.extractor.Extract(ctx, path)
	if err != nil {
		return fmt.Errorf("extracting %s: %w", file.Name, err)
	}

	chunks := extract.Chunk(res.Text, p.cfg.Extract.ChunkSize)
	if err := p.publisher.SyncChunks(ctx, pageID, file.ID, chunks); err != nil {
		return fmt.Errorf("syncing chunks: %w", err)
	}
	p.log.Infow("document synced",
		"key", rec.Key,
		"file", file.Name,
		"method", res.Method.String(),
		"chunks", len(chunks),
	)

	if p.sink == nil {
		return nil
	}
	doc := chunkstore.Document{
		DocID:     file.ID,
		RemoteID:  pageID,
		SourceURL: file.ViewURL,
		Chunks:    make([]chunkstore.Chunk, len(chunks)),
	}
	if p.embedder != nil {
		doc.Model = p.embedder.ModelName()
	}
	for i, content := range chunks {
		ch := chunkstore.Chunk{Seq: i, Content: content}
		if p.embedder != nil {
			emb, err := p.embedder.Embed(ctx, content)
			if err != nil {
				p.log.Warnw("embedding failed, storing chunk without vector",
					"file", file.Name, "seq", i, "error", err)
			} else {
				ch.Embedding = emb.Vector
			}
		}
		doc.Chunks[i] = ch
	}
	if err := p.sink.Replace(ctx, doc); err != nil {
		return fmt.Errorf("storing chunks: %w", err)
	}
	return nil
}

package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/bibsync/bibsync/internal/chunkstore"
	"github.com/bibsync/bibsync/internal/config"
	"github.com/bibsync/bibsync/internal/drive"
	"github.com/bibsync/bibsync/internal/embedding"
	"github.com/bibsync/bibsync/internal/extract"
	"github.com/bibsync/bibsync/internal/importer"
	"github.com/bibsync/bibsync/internal/notion"
	"github.com/bibsync/bibsync/internal/pipeline"
)

var (
	syncSource   string
	syncManifest string
	syncMaxFiles int
	syncDryRun   bool
)

func init() {
	syncCmd.Flags().StringVar(&syncSource, "source", "", "Citation source path or URL (overrides config)")
	syncCmd.Flags().StringVar(&syncManifest, "manifest", "", "Manifest output path (overrides config)")
	syncCmd.Flags().IntVar(&syncMaxFiles, "max-files", 0, "Cap on the folder listing (overrides config)")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Parse and match only, write nothing")
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a full sync into Notion",
	Long: `Run a full sync: parse the citation source, match records to files
in the Drive folder, upsert metadata into the Notion database, and sync
full text for matched documents.

Usage:
  bibsync sync
  bibsync sync --source export.bib --dry-run

Requires NOTION_API_KEY in the environment or a .env file. The Drive
stage runs only when drive.folder_id is configured.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	if syncSource != "" {
		cfg.Source = syncSource
	}
	if syncManifest != "" {
		cfg.Manifest = syncManifest
	}
	if syncMaxFiles > 0 {
		cfg.Drive.MaxFiles = syncMaxFiles
	}
	if err := cfg.Validate(); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	log := mustLogger()
	defer log.Sync()
	ctx := context.Background()

	if syncDryRun {
		report := buildMatchReport(ctx, cfg, log)
		reportMatches(report)
		return nil
	}

	apiKey := config.NotionAPIKey()
	if apiKey == "" {
		exitWithError(ExitConfigError, "NOTION_API_KEY is not set")
	}
	publisher := notion.NewClient(apiKey, cfg.Notion.DatabaseID)

	var files pipeline.FileStore
	if cfg.Drive.FolderID != "" {
		client, err := drive.NewClient(ctx, cfg.Drive.FolderID, cfg.Drive.CredentialsFile,
			drive.WithMimeType(cfg.Drive.MimeType),
			drive.WithMaxFiles(cfg.Drive.MaxFiles),
		)
		if err != nil {
			exitWithError(ExitAPIError, "connecting to Drive: %v", err)
		}
		files = client
	}

	extractor := extract.New(log,
		extract.WithMinNativeLen(cfg.Extract.MinNativeLen),
		extract.WithLanguage(cfg.Extract.OCRLang),
		extract.WithPageSegMode(cfg.Extract.OCRPSM),
		extract.WithEngineMode(cfg.Extract.OCROEM),
		extract.WithDPI(cfg.Extract.OCRDPI),
		extract.WithExtraArgs(cfg.Extract.OCRExtraArgs...),
	)

	var sink pipeline.ChunkSink
	if cfg.Store.Enabled {
		store, err := chunkstore.Open(cfg.Store.Path)
		if err != nil {
			exitWithError(ExitError, "opening chunk store: %v", err)
		}
		defer store.Close()
		sink = store
	}

	var embedder embedding.Provider
	if cfg.Embed.Enabled {
		var err error
		embedder, err = embedding.NewProvider(ctx, cfg.Embed.Provider, cfg.Embed.Model, cfg.Embed.BaseURL)
		if err != nil {
			exitWithError(ExitConfigError, "configuring embeddings: %v", err)
		}
		if ollama, ok := embedder.(*embedding.OllamaProvider); ok {
			if err := ollama.IsAvailable(ctx); err != nil {
				exitWithError(ExitError, "Ollama is not running\n\nStart it with 'ollama serve' or disable embeddings.")
			}
		}
	}

	manifest, err := pipeline.New(cfg, log, publisher, files, extractor, sink, embedder).Run(ctx)
	if err != nil {
		switch {
		case errors.Is(err, importer.ErrUnsupportedFormat):
			exitWithError(ExitDataError, "%v", err)
		case errors.Is(err, notion.ErrSchemaUnavailable):
			exitWithError(ExitAPIError, "%v", err)
		default:
			exitWithError(ExitError, "%v", err)
		}
	}

	if humanOutput {
		outputHuman("Synced %s: %d created, %d updated, %d skipped, %d dropped\n",
			manifest.Source, manifest.Created, manifest.Updated, manifest.Skipped, manifest.Dropped)
		for _, e := range manifest.Entries {
			if e.Error != "" {
				outputHuman("  ! %s: %s\n", e.Key, e.Error)
			}
		}
		return nil
	}
	return outputJSON(manifest)
}

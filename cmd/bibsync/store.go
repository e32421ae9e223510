package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/bibsync/bibsync/internal/chunkstore"
)

func init() {
	storeCmd.AddCommand(storeInfoCmd)
	storeCmd.AddCommand(storeChunksCmd)
	rootCmd.AddCommand(storeCmd)
}

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect the local chunk store",
	Long: `Inspect the SQLite chunk store written during sync when
store.enabled is set. The store mirrors what was pushed to Notion:
one row per chunk, with embeddings when an embedding provider ran.`,
}

var storeInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Summarize stored documents",
	Args:  cobra.NoArgs,
	RunE:  runStoreInfo,
}

var storeChunksCmd = &cobra.Command{
	Use:   "chunks <docID>",
	Short: "Print one document's chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runStoreChunks,
}

// StoreInfoResponse is the JSON output of store info.
type StoreInfoResponse struct {
	Path   string               `json:"path"`
	Chunks int                  `json:"chunks"`
	Docs   []chunkstore.DocInfo `json:"docs"`
}

// openStore opens the configured chunk store and returns it with its path.
func openStore() (*chunkstore.Store, string) {
	cfg := mustLoadConfig()
	store, err := chunkstore.Open(cfg.Store.Path)
	if err != nil {
		exitWithError(ExitError, "opening chunk store %s: %v", cfg.Store.Path, err)
	}
	return store, cfg.Store.Path
}

func runStoreInfo(cmd *cobra.Command, args []string) error {
	store, path := openStore()
	defer store.Close()
	ctx := context.Background()

	docs, err := store.Docs(ctx)
	if err != nil {
		exitWithError(ExitError, "reading store: %v", err)
	}
	total, err := store.Count(ctx)
	if err != nil {
		exitWithError(ExitError, "reading store: %v", err)
	}

	if humanOutput {
		for _, d := range docs {
			outputHuman("%s: %d chunks (%d embedded), synced %s\n",
				d.DocID, d.Chunks, d.Embedded, d.SyncedAt.Format("2006-01-02 15:04"))
		}
		outputHuman("%d documents, %d chunks total\n", len(docs), total)
		return nil
	}
	return outputJSON(StoreInfoResponse{Path: path, Chunks: total, Docs: docs})
}

func runStoreChunks(cmd *cobra.Command, args []string) error {
	store, _ := openStore()
	defer store.Close()

	chunks, err := store.Chunks(context.Background(), args[0])
	if err != nil {
		exitWithError(ExitError, "reading store: %v", err)
	}

	if humanOutput {
		for _, c := range chunks {
			outputHuman("%4d  %s\n", c.Seq, truncateString(c.Content, 80))
		}
		return nil
	}
	return outputJSON(chunks)
}

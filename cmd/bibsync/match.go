package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bibsync/bibsync/internal/config"
	"github.com/bibsync/bibsync/internal/drive"
	"github.com/bibsync/bibsync/internal/importer"
	"github.com/bibsync/bibsync/internal/match"
	"github.com/bibsync/bibsync/internal/pipeline"
)

var matchSource string

func init() {
	matchCmd.Flags().StringVar(&matchSource, "source", "", "Citation source path or URL (overrides config)")
	rootCmd.AddCommand(matchCmd)
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Preview record-to-file matching without writing anything",
	Long: `Parse the citation source, list the Drive folder, and show which
file each record would be paired with at which confidence tier.

For unmatched records the generated candidate stems are included, which
is usually enough to see why a file was missed.`,
	Args: cobra.NoArgs,
	RunE: runMatch,
}

// MatchReport is the dry-run result shared by `match` and `sync --dry-run`.
type MatchReport struct {
	Source  string             `json:"source"`
	Files   int                `json:"files"`
	Matched int                `json:"matched"`
	Dropped int                `json:"dropped"`
	Entries []MatchReportEntry `json:"entries"`
}

// MatchReportEntry describes one record's match outcome.
type MatchReportEntry struct {
	Key        string   `json:"key"`
	Title      string   `json:"title"`
	File       string   `json:"file,omitempty"`
	Tier       string   `json:"tier,omitempty"`
	Candidates []string `json:"candidates,omitempty"`
}

func runMatch(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	if matchSource != "" {
		cfg.Source = matchSource
	}
	if cfg.Source == "" {
		exitWithError(ExitConfigError, "source is required (set it in the config file or pass --source)")
	}

	log := mustLogger()
	defer log.Sync()

	report := buildMatchReport(context.Background(), cfg, log)
	reportMatches(report)
	return nil
}

// buildMatchReport parses the source and matches every record against the
// folder listing. A missing or failing Drive is not fatal here: the report
// then just shows what the candidates would have been.
func buildMatchReport(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) *MatchReport {
	source, cleanup, err := pipeline.FetchSource(ctx, cfg.Source)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	defer cleanup()

	records, dropped, err := importer.Parse(source, importer.Options{
		EscalationRatio: cfg.Parser.EscalationRatio,
	})
	if err != nil {
		if errors.Is(err, importer.ErrUnsupportedFormat) {
			exitWithError(ExitDataError, "%v", err)
		}
		exitWithError(ExitError, "%v", err)
	}

	var files []drive.File
	if cfg.Drive.FolderID != "" {
		client, err := drive.NewClient(ctx, cfg.Drive.FolderID, cfg.Drive.CredentialsFile,
			drive.WithMimeType(cfg.Drive.MimeType),
			drive.WithMaxFiles(cfg.Drive.MaxFiles),
		)
		if err != nil {
			log.Warnw("Drive unavailable, matching against an empty folder", "error", err)
		} else if files, err = client.List(ctx); err != nil {
			log.Warnw("folder listing failed, matching against an empty folder", "error", err)
			files = nil
		}
	}

	report := &MatchReport{Source: cfg.Source, Files: len(files), Dropped: len(dropped)}
	for _, rec := range records {
		entry := MatchReportEntry{
			Key:   rec.Key,
			Title: truncateString(rec.DisplayTitle(), listTitleMaxLen),
		}
		if res := match.Match(rec, files); res.Matched() {
			entry.File = res.File.Name
			entry.Tier = res.Tier.String()
			report.Matched++
		} else {
			entry.Candidates = match.Candidates(rec)
		}
		report.Entries = append(report.Entries, entry)
	}
	return report
}

func reportMatches(r *MatchReport) {
	if !humanOutput {
		outputJSON(r)
		return
	}
	for _, e := range r.Entries {
		if e.File != "" {
			outputHuman("  %s -> %s (%s)\n", e.Key, e.File, e.Tier)
		} else {
			outputHuman("  %s: no match\n", e.Key)
		}
	}
	outputHuman("Matched %d of %d records against %d files (%d entries dropped)\n",
		r.Matched, len(r.Entries), r.Files, r.Dropped)
}

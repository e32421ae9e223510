package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/bibsync/bibsync/internal/citation"
	"github.com/bibsync/bibsync/internal/importer"
)

func init() {
	rootCmd.AddCommand(parseCmd)
}

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Parse a citation export and print the records",
	Long: `Parse a BibTeX (.bib, .bibtex) or CSL-JSON (.json, .csljson) export
and print the extracted records without touching Notion.

Malformed BibTeX is retried with progressively more tolerant parsers;
entries that still cannot be identified are reported as dropped.`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

// ParseResponse is the JSON output of the parse command.
type ParseResponse struct {
	Records []citation.Record `json:"records"`
	Dropped []string          `json:"dropped,omitempty"`
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()

	records, dropped, err := importer.Parse(args[0], importer.Options{
		EscalationRatio: cfg.Parser.EscalationRatio,
	})
	if err != nil {
		if errors.Is(err, importer.ErrUnsupportedFormat) {
			exitWithError(ExitDataError, "%v", err)
		}
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		for _, rec := range records {
			outputHuman("%s (%d) %s\n", rec.Key, rec.Year, truncateString(rec.DisplayTitle(), listTitleMaxLen))
		}
		outputHuman("%d records, %d dropped\n", len(records), len(dropped))
		for _, d := range dropped {
			outputHuman("  ! %s\n", d)
		}
		return nil
	}

	resp := ParseResponse{Records: records}
	for _, d := range dropped {
		resp.Dropped = append(resp.Dropped, d.Error())
	}
	return outputJSON(resp)
}

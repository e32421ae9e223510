package main

import (
	"context"
	"sort"

	"github.com/spf13/cobra"

	"github.com/bibsync/bibsync/internal/config"
	"github.com/bibsync/bibsync/internal/notion"
)

func init() {
	rootCmd.AddCommand(schemaCmd)
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Show the target database's properties",
	Long: `Introspect the configured Notion database and print each property
with its type. This is what the sync maps records onto; a field without
a matching property here is silently dropped during sync.`,
	Args: cobra.NoArgs,
	RunE: runSchema,
}

// SchemaResponse is the JSON output of the schema command.
type SchemaResponse struct {
	Title      string            `json:"title"`
	Properties map[string]string `json:"properties"`
}

func runSchema(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	if cfg.Notion.DatabaseID == "" {
		exitWithError(ExitConfigError, "notion.database_id is required")
	}
	apiKey := config.NotionAPIKey()
	if apiKey == "" {
		exitWithError(ExitConfigError, "NOTION_API_KEY is not set")
	}

	client := notion.NewClient(apiKey, cfg.Notion.DatabaseID)
	schema, err := client.IntrospectSchema(context.Background())
	if err != nil {
		exitWithError(ExitAPIError, "%v", err)
	}

	if humanOutput {
		names := make([]string, 0, len(schema.Props))
		for name := range schema.Props {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			marker := "  "
			if name == schema.TitleProp {
				marker = "* "
			}
			outputHuman("%s%s (%s)\n", marker, name, schema.Props[name])
		}
		return nil
	}

	resp := SchemaResponse{Title: schema.TitleProp, Properties: make(map[string]string, len(schema.Props))}
	for name, typ := range schema.Props {
		resp.Properties[name] = string(typ)
	}
	return outputJSON(resp)
}

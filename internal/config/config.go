// Package config loads pipeline configuration from YAML over documented
// defaults. Secrets never live in the file: API keys come from the
// environment, and a .env file is honored by the CLI at startup.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// ConfigDirName is the directory under XDG_CONFIG_HOME.
	ConfigDirName = "bibsync"

	// ConfigFileName is the config file name inside ConfigDirName.
	ConfigFileName = "config.yml"
)

// Config is the pipeline configuration. Every field has a default, so a
// file only needs the values it overrides.
type Config struct {
	// Source is the citation export to ingest: a local path or an http(s)
	// URL, fetched to a temp file at run start.
	Source string `yaml:"source,omitempty"`

	// Manifest is where the run manifest is written. Empty disables it.
	Manifest string `yaml:"manifest,omitempty"`

	Notion  NotionConfig  `yaml:"notion,omitempty"`
	Drive   DriveConfig   `yaml:"drive,omitempty"`
	Parser  ParserConfig  `yaml:"parser,omitempty"`
	Extract ExtractConfig `yaml:"extract,omitempty"`
	Store   StoreConfig   `yaml:"store,omitempty"`
	Embed   EmbedConfig   `yaml:"embedding,omitempty"`
}

// NotionConfig locates the target database. The API key comes from the
// NOTION_API_KEY environment variable, never from the file.
type NotionConfig struct {
	DatabaseID     string   `yaml:"database_id,omitempty"`
	LastSyncedProp string   `yaml:"last_synced_prop,omitempty"`
	DefaultTags    []string `yaml:"default_tags,omitempty"`
}

// DriveConfig locates the document folder. Leaving FolderID empty runs the
// pipeline metadata-only.
type DriveConfig struct {
	FolderID        string `yaml:"folder_id,omitempty"`
	CredentialsFile string `yaml:"credentials_file,omitempty"`
	MimeType        string `yaml:"mime_type,omitempty"`
	MaxFiles        int    `yaml:"max_files,omitempty"`
}

// ParserConfig tunes citation parsing.
type ParserConfig struct {
	// EscalationRatio distrusts the structural BibTeX parse when the raw
	// boundary scan finds more than ratio times as many entries.
	EscalationRatio float64 `yaml:"escalation_ratio,omitempty"`
}

// ExtractConfig tunes text extraction and chunking.
type ExtractConfig struct {
	ChunkSize    int      `yaml:"chunk_size,omitempty"`
	MinNativeLen int      `yaml:"min_native_len,omitempty"`
	OCRLang      string   `yaml:"ocr_lang,omitempty"`
	OCRPSM       int      `yaml:"ocr_psm,omitempty"`
	OCROEM       int      `yaml:"ocr_oem,omitempty"`
	OCRDPI       int      `yaml:"ocr_dpi,omitempty"`
	OCRExtraArgs []string `yaml:"ocr_extra_args,omitempty"`
}

// StoreConfig controls the local chunk mirror.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Path    string `yaml:"path,omitempty"`
}

// EmbedConfig controls optional chunk embeddings.
type EmbedConfig struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	Provider string `yaml:"provider,omitempty"` // ollama, gemini, or openai
	Model    string `yaml:"model,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty"`
}

// Default returns the documented defaults.
func Default() *Config {
	return &Config{
		Manifest: "bibsync-manifest.json",
		Drive: DriveConfig{
			MimeType: "application/pdf",
			MaxFiles: 1000,
		},
		Parser: ParserConfig{
			EscalationRatio: 1.2,
		},
		Extract: ExtractConfig{
			ChunkSize:    1800,
			MinNativeLen: 500,
			OCRLang:      "eng",
			OCRPSM:       3,
			OCROEM:       3,
			OCRDPI:       300,
		},
		Store: StoreConfig{
			Path: "bibsync-chunks.db",
		},
		Embed: EmbedConfig{
			Provider: "ollama",
		},
	}
}

// Path returns the default config file location, honoring XDG_CONFIG_HOME.
func Path() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, ConfigDirName, ConfigFileName)
}

// Load reads the file at path over the defaults. With an empty path the
// default location is used and a missing file is fine; an explicit path
// that cannot be read is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = Path()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.expandPaths()
	return cfg, nil
}

// Validate checks the invariants a sync run cannot start without.
func (c *Config) Validate() error {
	if c.Source == "" {
		return fmt.Errorf("source is required (set it in the config file or pass --source)")
	}
	if c.Notion.DatabaseID == "" {
		return fmt.Errorf("notion.database_id is required")
	}
	if c.Parser.EscalationRatio < 1 {
		return fmt.Errorf("parser.escalation_ratio must be at least 1, got %g", c.Parser.EscalationRatio)
	}
	if c.Extract.ChunkSize < 1 || c.Extract.ChunkSize > 1900 {
		return fmt.Errorf("extract.chunk_size must be between 1 and 1900, got %d", c.Extract.ChunkSize)
	}
	return nil
}

// NotionAPIKey reads the integration token from the environment.
func NotionAPIKey() string {
	return os.Getenv("NOTION_API_KEY")
}

// expandPaths resolves ~ in the path-valued fields.
func (c *Config) expandPaths() {
	c.Source = ExpandTilde(c.Source)
	c.Manifest = ExpandTilde(c.Manifest)
	c.Drive.CredentialsFile = ExpandTilde(c.Drive.CredentialsFile)
	c.Store.Path = ExpandTilde(c.Store.Path)
}

// ExpandTilde resolves a leading ~/ against the home directory. Paths that
// cannot be resolved pass through unchanged.
func ExpandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

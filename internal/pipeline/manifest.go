package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/bibsync/bibsync/internal/notion"
)

// ActionSkipped marks a record that failed before reaching the database.
const ActionSkipped = "skipped"

// Entry records what happened to one citation during a run.
type Entry struct {
	Key       string `json:"key"`
	RemoteID  string `json:"remote_id,omitempty"`
	Action    string `json:"action"`
	File      string `json:"file,omitempty"`
	MatchTier string `json:"match_tier,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Manifest is the machine-readable account of a run: per-record outcomes
// plus tallies. It is written even when individual records failed.
type Manifest struct {
	RunID      string    `json:"run_id"`
	Source     string    `json:"source"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Created    int       `json:"created"`
	Updated    int       `json:"updated"`
	Skipped    int       `json:"skipped"`
	Dropped    int       `json:"dropped"`
	Entries    []Entry   `json:"entries"`
}

func newManifest(source string, start time.Time) *Manifest {
	return &Manifest{
		RunID:     uuid.NewString(),
		Source:    source,
		StartedAt: start,
		Entries:   []Entry{},
	}
}

func (m *Manifest) add(e Entry) {
	switch e.Action {
	case string(notion.ActionCreated):
		m.Created++
	case string(notion.ActionUpdated):
		m.Updated++
	default:
		m.Skipped++
	}
	m.Entries = append(m.Entries, e)
}

func (m *Manifest) finish(t time.Time) {
	m.FinishedAt = t
}

// Write stores the manifest as indented JSON.
func (m *Manifest) Write(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

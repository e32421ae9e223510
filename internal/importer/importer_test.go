package importer

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeSource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestParse_DispatchesOnExtension(t *testing.T) {
	bib := writeSource(t, "refs.bib", wellFormedBib)
	records, diags, err := Parse(bib, Options{})
	if err != nil {
		t.Fatalf("Parse(.bib): %v", err)
	}
	if len(records) != 2 || len(diags) != 0 {
		t.Errorf("Parse(.bib) = %d records, %d diags", len(records), len(diags))
	}

	csl := writeSource(t, "refs.json", `[{"id": "doe2020", "title": "Wage Dynamics"}]`)
	records, _, err = Parse(csl, Options{})
	if err != nil {
		t.Fatalf("Parse(.json): %v", err)
	}
	if len(records) != 1 {
		t.Errorf("Parse(.json) = %d records, want 1", len(records))
	}
}

func TestParse_UnsupportedExtension(t *testing.T) {
	path := writeSource(t, "refs.txt", "not a citation file")
	_, _, err := Parse(path, Options{})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestParse_MissingFile(t *testing.T) {
	_, _, err := Parse(filepath.Join(t.TempDir(), "absent.bib"), Options{})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want read failure, not format failure", err)
	}
}

func TestParse_StripsBOM(t *testing.T) {
	path := writeSource(t, "bom.bib", "\xEF\xBB\xBF"+wellFormedBib)
	records, _, err := Parse(path, Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("records = %d, want 2", len(records))
	}
}

func TestParse_EmptyFile(t *testing.T) {
	path := writeSource(t, "empty.bib", "")
	records, diags, err := Parse(path, Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 0 || len(diags) != 0 {
		t.Errorf("empty file: records = %v, diags = %v", records, diags)
	}
}

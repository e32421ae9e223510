package importer

import (
	"strings"
	"testing"
)

func TestParseCSL_Array(t *testing.T) {
	data := []byte(`[
		{
			"id": "doe2020",
			"type": "article-journal",
			"title": "Wage Dynamics",
			"container-title": "Journal of Labor Economics",
			"volume": 38,
			"issue": "2",
			"page": "341-376",
			"DOI": "10.1000/jole.2020.38",
			"URL": "https://example.org/doe2020",
			"keyword": "labor, wages",
			"author": [
				{"family": "Doe", "given": "Jane"},
				{"literal": "The Wage Consortium"}
			],
			"issued": {"date-parts": [[2020, 4]]}
		},
		{
			"id": "smith1999",
			"title": "Markets and Institutions",
			"issued": {"raw": "1999-01"}
		}
	]`)

	records, diags := ParseCSL(data)
	if len(diags) != 0 {
		t.Fatalf("diagnostics = %v, want none", diags)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}

	doe := records[0]
	if doe.Key != "doe2020" {
		t.Errorf("Key = %q", doe.Key)
	}
	if doe.Year != 2020 {
		t.Errorf("Year = %d, want 2020", doe.Year)
	}
	if doe.Volume != "38" {
		t.Errorf("Volume = %q, want numeric field as string", doe.Volume)
	}
	if len(doe.Authors) != 2 || doe.Authors[0] != "Jane Doe" || doe.Authors[1] != "The Wage Consortium" {
		t.Errorf("Authors = %v", doe.Authors)
	}
	if doe.DOI != "https://doi.org/10.1000/jole.2020.38" {
		t.Errorf("DOI = %q", doe.DOI)
	}
	if len(doe.Keywords) != 2 {
		t.Errorf("Keywords = %v", doe.Keywords)
	}

	if records[1].Year != 1999 {
		t.Errorf("raw issued date: Year = %d, want 1999", records[1].Year)
	}
}

func TestParseCSL_SingleObject(t *testing.T) {
	data := []byte(`{"id": "doe2020", "title": "Wage Dynamics", "issued": {"date-parts": [["2020"]]}}`)

	records, diags := ParseCSL(data)
	if len(diags) != 0 {
		t.Fatalf("diagnostics = %v, want none", diags)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0].Year != 2020 {
		t.Errorf("quoted date-part: Year = %d, want 2020", records[0].Year)
	}
}

func TestParseCSL_DropsUnidentifiableItem(t *testing.T) {
	data := []byte(`[
		{"id": "doe2020", "title": "Wage Dynamics"},
		{"type": "article-journal", "abstract": "neither id nor title"}
	]`)

	records, diags := ParseCSL(data)
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if len(diags) != 1 {
		t.Fatalf("diagnostics = %v, want exactly one", diags)
	}
	if !strings.Contains(diags[0].Error(), "item 2") {
		t.Errorf("diagnostic = %v, want item index", diags[0])
	}
}

func TestParseCSL_InvalidJSON(t *testing.T) {
	records, diags := ParseCSL([]byte(`{"id": "broken"`))
	if len(records) != 0 {
		t.Errorf("records = %v, want none", records)
	}
	if len(diags) != 1 {
		t.Errorf("diagnostics = %v, want one", diags)
	}
}

func TestFlexibleString(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
		err  bool
	}{
		{name: "string", data: `"38"`, want: "38"},
		{name: "integer", data: `38`, want: "38"},
		{name: "float", data: `38.5`, want: "38.5"},
		{name: "null", data: `null`, want: ""},
		{name: "object", data: `{}`, err: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f FlexibleString
			err := f.UnmarshalJSON([]byte(tt.data))
			if tt.err {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("UnmarshalJSON: %v", err)
			}
			if f.String() != tt.want {
				t.Errorf("value = %q, want %q", f.String(), tt.want)
			}
		})
	}
}

package citation

import (
	"reflect"
	"testing"
)

func TestDisplayTitle(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want string
	}{
		{
			name: "title present",
			rec:  Record{Key: "doe2020", Title: "Wage Dynamics"},
			want: "Wage Dynamics",
		},
		{
			name: "falls back to key",
			rec:  Record{Key: "doe2020"},
			want: "doe2020",
		},
		{
			name: "falls back to default",
			rec:  Record{},
			want: DefaultTitle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.DisplayTitle(); got != tt.want {
				t.Errorf("DisplayTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeAuthors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "last-first pairs",
			raw:  "Smith, John and Doe, Jane",
			want: []string{"John Smith", "Jane Doe"},
		},
		{
			name: "first-last passes through",
			raw:  "John Smith and Jane Doe",
			want: []string{"John Smith", "Jane Doe"},
		},
		{
			name: "single author",
			raw:  "Doe, Jane",
			want: []string{"Jane Doe"},
		},
		{
			name: "whitespace collapsed",
			raw:  "  Doe ,   Jane  ",
			want: []string{"Jane Doe"},
		},
		{
			name: "case-insensitive and",
			raw:  "Smith, John AND Doe, Jane",
			want: []string{"John Smith", "Jane Doe"},
		},
		{
			name: "last name only",
			raw:  "Bourbaki,",
			want: []string{"Bourbaki"},
		},
		{
			name: "empty",
			raw:  "   ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeAuthors(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeAuthors(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestLastName(t *testing.T) {
	tests := []struct {
		display string
		want    string
	}{
		{"Jane Doe", "Doe"},
		{"Doe", "Doe"},
		{"Jane van Doe", "Doe"},
		{"Jane Doe Jr.", "Doe"},
		{"Jane Doe III", "Doe"},
		{"Jr.", "Jr."},
		{"", ""},
	}

	for _, tt := range tests {
		if got := LastName(tt.display); got != tt.want {
			t.Errorf("LastName(%q) = %q, want %q", tt.display, got, tt.want)
		}
	}
}

func TestFirstAuthorLast(t *testing.T) {
	rec := Record{Authors: []string{"Jane Doe", "John Smith"}}
	if got := rec.FirstAuthorLast(); got != "Doe" {
		t.Errorf("FirstAuthorLast() = %q, want %q", got, "Doe")
	}

	empty := Record{}
	if got := empty.FirstAuthorLast(); got != "" {
		t.Errorf("FirstAuthorLast() on empty record = %q, want empty", got)
	}
}

func TestNormalizeDOI(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "bare identifier",
			raw:  "10.1000/XYZ123",
			want: "https://doi.org/10.1000/xyz123",
		},
		{
			name: "doi prefix",
			raw:  "doi:10.1000/xyz123",
			want: "https://doi.org/10.1000/xyz123",
		},
		{
			name: "uppercase prefix",
			raw:  "DOI:10.1000/xyz123",
			want: "https://doi.org/10.1000/xyz123",
		},
		{
			name: "resolver URL",
			raw:  "https://doi.org/10.1000/xyz123",
			want: "https://doi.org/10.1000/xyz123",
		},
		{
			name: "legacy resolver",
			raw:  "http://dx.doi.org/10.1000/xyz123",
			want: "https://doi.org/10.1000/xyz123",
		},
		{
			name: "surrounding whitespace",
			raw:  "  10.1000/xyz123  ",
			want: "https://doi.org/10.1000/xyz123",
		},
		{
			name: "empty",
			raw:  "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeDOI(tt.raw); got != tt.want {
				t.Errorf("NormalizeDOI(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseYear(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"1994", 1994},
		{" 2020 ", 2020},
		{"June 1994", 1994},
		{"1994-06-01", 1994},
		{"forthcoming", 0},
		{"", 0},
	}

	for _, tt := range tests {
		if got := ParseYear(tt.raw); got != tt.want {
			t.Errorf("ParseYear(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestSplitKeywords(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "commas",
			raw:  "labor, wages, inequality",
			want: []string{"labor", "wages", "inequality"},
		},
		{
			name: "semicolons",
			raw:  "labor; wages",
			want: []string{"labor", "wages"},
		},
		{
			name: "duplicates dropped",
			raw:  "labor, Labor, wages",
			want: []string{"labor", "wages"},
		},
		{
			name: "empties dropped",
			raw:  "labor,, ,wages",
			want: []string{"labor", "wages"},
		},
		{
			name: "empty input",
			raw:  "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitKeywords(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitKeywords(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

package extract

import (
	"strings"
	"testing"
)

func TestChunk(t *testing.T) {
	tests := []struct {
		name string
		text string
		size int
		want []string
	}{
		{
			name: "exact multiple",
			text: "aaaabbbb",
			size: 4,
			want: []string{"aaaa", "bbbb"},
		},
		{
			name: "remainder",
			text: "aaaabbbbcc",
			size: 4,
			want: []string{"aaaa", "bbbb", "cc"},
		},
		{
			name: "shorter than one chunk",
			text: "abc",
			size: 100,
			want: []string{"abc"},
		},
		{
			name: "empty",
			text: "",
			size: 4,
			want: nil,
		},
		{
			name: "multibyte runes split on rune boundaries",
			text: "日本語のテキスト",
			size: 3,
			want: []string{"日本語", "のテキ", "スト"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Chunk(tt.text, tt.size)
			if len(got) != len(tt.want) {
				t.Fatalf("Chunk() = %q, want %q", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("chunk[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestChunk_DefaultSize(t *testing.T) {
	text := strings.Repeat("x", DefaultChunkSize+1)
	got := Chunk(text, 0)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if len(got[0]) != DefaultChunkSize {
		t.Errorf("first chunk = %d runes, want %d", len(got[0]), DefaultChunkSize)
	}
	if got[1] != "x" {
		t.Errorf("second chunk = %q, want single rune", got[1])
	}
}

func TestCollapse(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  hello   world  ", "hello world"},
		{"line\none\n\nline two", "line one line two"},
		{"tabs\tand\tspaces", "tabs and spaces"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := Collapse(tt.in); got != tt.want {
			t.Errorf("Collapse(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

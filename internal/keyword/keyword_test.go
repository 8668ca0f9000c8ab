package keyword

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMatches(t *testing.T) {
	m := NewMatcher()

	tests := []struct {
		name string
		text string
		kw   string
		want bool
	}{
		{"exact word", "Roadworks Contract", "roadworks", true},
		{"case insensitive", "ROADWORKS ahead", "roadworks", true},
		{"substring must not match", "roadworks", "road", false},
		{"prefix of longer token", "broadband rollout", "road", false},
		{"word at start", "road closure notice", "road", true},
		{"word at end", "closure of the road", "road", true},
		{"word in middle", "the road is closed", "road", true},
		{"punctuation boundary", "road, closed", "road", true},
		{"underscore is a word char", "road_works", "road", false},
		{"digit boundary blocks", "road2024", "road", false},
		{"hyphenated keyword", "the e-tender portal", "e-tender", true},
		{"hyphen neighbour allowed", "on-road works", "road", true},
		{"empty text", "", "road", false},
		{"keyword with digits", "phase 2b works", "2b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Matches(tt.text, tt.kw); got != tt.want {
				t.Errorf("Matches(%q, %q) = %v, want %v", tt.text, tt.kw, got, tt.want)
			}
		})
	}
}

func TestMatcherCachesPatterns(t *testing.T) {
	m := NewMatcher()
	m.Matches("some road text", "road")
	m.Matches("other road text", "road")

	if diff := cmp.Diff(1, len(m.patterns)); diff != "" {
		t.Errorf("pattern cache size mismatch (-want +got):\n%s", diff)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantValid   []string
		wantInvalid []string
	}{
		{
			name:      "space separated",
			raw:       "roads BRIDGES catering",
			wantValid: []string{"roads", "bridges", "catering"},
		},
		{
			name:      "commas and extra whitespace",
			raw:       " roads,  bridges ,catering ",
			wantValid: []string{"roads", "bridges", "catering"},
		},
		{
			name:        "invalid segments reported",
			raw:         "roads x construction?works bridges",
			wantValid:   []string{"roads", "bridges"},
			wantInvalid: []string{"x", "construction?works"},
		},
		{
			name:      "hyphen and underscore allowed",
			raw:       "e-tender framework_2024",
			wantValid: []string{"e-tender", "framework_2024"},
		},
		{
			name:        "too long rejected",
			raw:         "abcdefghijklmnopqrstuvwxyz-abcdefghijklm",
			wantInvalid: []string{"abcdefghijklmnopqrstuvwxyz-abcdefghijklm"},
		},
		{
			name: "empty input",
			raw:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, invalid := Parse(tt.raw)
			if diff := cmp.Diff(tt.wantValid, valid); diff != "" {
				t.Errorf("valid mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantInvalid, invalid); diff != "" {
				t.Errorf("invalid mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

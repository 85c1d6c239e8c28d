package analysis

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "lowercase and punctuation",
			in:   "Kubernetes, the Orchestrator!",
			want: []string{"kubernetes", "the", "orchestrator"},
		},
		{
			name: "hyphen preserved",
			in:   "a well-known side-effect",
			want: []string{"well-known", "side-effect"},
		},
		{
			name: "short tokens dropped",
			in:   "go is ok but rust: yes",
			want: []string{"but", "rust", "yes"},
		},
		{
			name: "leading trailing hyphens trimmed",
			in:   "-alpha- beta-",
			want: []string{"alpha", "beta"},
		},
		{name: "empty", in: "", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q)=%v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestPhraseIndex(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		phrase string
		want   int
	}{
		{name: "whole word match", text: "the session layer handles framing", phrase: "Session Layer", want: 4},
		{name: "substring rejected", text: "presentations layered deep", phrase: "presentation layer", want: -1},
		{name: "match after partial", text: "layers and the layer itself", phrase: "layer", want: 15},
		{name: "missing", text: "nothing here", phrase: "kubernetes", want: -1},
		{name: "empty phrase", text: "anything", phrase: "", want: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PhraseIndex(tt.text, tt.phrase); got != tt.want {
				t.Errorf("PhraseIndex(%q, %q)=%d, want %d", tt.text, tt.phrase, got, tt.want)
			}
		})
	}
}

func TestSignificantTitleWords(t *testing.T) {
	got := SignificantTitleWords("The Session Layer")
	want := []string{"session", "layer"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestIsStopword(t *testing.T) {
	if !IsStopword("The") {
		t.Error("The should be a stopword")
	}
	if IsStopword("kubernetes") {
		t.Error("kubernetes should not be a stopword")
	}
}

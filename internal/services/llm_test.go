package services

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

type fakeCompleter struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func TestGenerateStoryCleansMarkdown(t *testing.T) {
	completer := &fakeCompleter{response: "**The Clever Crow**\n\nA crow found a pitcher of water."}
	g := NewTextGenerator(completer, "English", 200)

	story, err := g.GenerateStory(context.Background(), "necessity is the mother of invention", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if story != "The Clever Crow\n\nA crow found a pitcher of water." {
		t.Errorf("unexpected story: %q", story)
	}
}

func TestGenerateStoryRejectsErrorMarker(t *testing.T) {
	completer := &fakeCompleter{response: "Error: quota exceeded"}
	g := NewTextGenerator(completer, "English", 200)

	if _, err := g.GenerateStory(context.Background(), "haste makes waste", ""); err == nil {
		t.Fatal("expected error for error-marker response")
	}
}

func TestGenerateStoryAppendsExample(t *testing.T) {
	completer := &fakeCompleter{response: "A fox learned patience."}
	g := NewTextGenerator(completer, "English", 200)

	if _, err := g.GenerateStory(context.Background(), "patience pays", "Once a fox..."); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(completer.prompts) != 1 {
		t.Fatalf("got %d prompts, want 1", len(completer.prompts))
	}
	if want := "## Output Example:"; !strings.Contains(completer.prompts[0], want) {
		t.Errorf("prompt missing %q", want)
	}
}

func TestGenerateTermsParsesJSONArray(t *testing.T) {
	completer := &fakeCompleter{response: `["tortoise", "forest path", "finish line"]`}
	g := NewTextGenerator(completer, "English", 200)

	terms, err := g.GenerateTerms(context.Background(), "a story about a race", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"tortoise", "forest path", "finish line"}
	if !reflect.DeepEqual(terms, want) {
		t.Errorf("terms = %v, want %v", terms, want)
	}
}

func TestGenerateTermsRecoversArrayFromProse(t *testing.T) {
	completer := &fakeCompleter{response: "Here you go: [\"owl\", \"old barn\"] hope that helps!"}
	g := NewTextGenerator(completer, "English", 200)

	terms, err := g.GenerateTerms(context.Background(), "a story", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(terms) != 2 || terms[0] != "owl" {
		t.Errorf("unexpected terms: %v", terms)
	}
}

func TestGenerateTermsFailsWithoutArray(t *testing.T) {
	completer := &fakeCompleter{response: "I cannot produce search terms."}
	g := NewTextGenerator(completer, "English", 200)

	if _, err := g.GenerateTerms(context.Background(), "a story", 3); err == nil {
		t.Fatal("expected error when response has no JSON array")
	}
}

func TestTranslatePropagatesProviderError(t *testing.T) {
	completer := &fakeCompleter{err: fmt.Errorf("network down")}
	g := NewTextGenerator(completer, "Vietnamese", 200)

	if _, err := g.Translate(context.Background(), "honesty is the best policy"); err == nil {
		t.Fatal("expected error from failing completer")
	}
}

func TestHasErrorMarker(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"Error: something broke", true},
		{"error: lowercase prefix", true},
		{"  error: padded", true},
		{"A story where the word mirror appears.", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := hasErrorMarker(tt.in); got != tt.want {
			t.Errorf("hasErrorMarker(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFormatRate(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "+0%"},
		{1.1, "+10%"},
		{1.25, "+25%"},
		{0.9, "-10%"},
		{0.85, "-15%"},
		{1.05, "+5%"},
	}

	for _, tt := range tests {
		if got := formatRate(tt.rate); got != tt.want {
			t.Errorf("formatRate(%v) = %q, want %q", tt.rate, got, tt.want)
		}
	}
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
)

// ---------------------------------------------------------------------------
// TextService: story, search-term and translation generation on top of a
// chat-completion provider. OpenAI and Gemini both plug in as completers so
// the pipeline can use whichever is configured without knowing the provider.
// ---------------------------------------------------------------------------

// TextService is what the pipeline consumes.
type TextService interface {
	// GenerateStory writes a short animal-fable story illustrating the moral.
	// example, when non-empty, is appended as a style example.
	GenerateStory(ctx context.Context, moral, example string) (string, error)

	// GenerateTerms extracts image search terms describing the story's
	// characters and setting.
	GenerateTerms(ctx context.Context, content string, amount int) ([]string, error)

	// Translate renders the content in Vietnamese.
	Translate(ctx context.Context, content string) (string, error)
}

// Completer is a single chat-completion call. Implemented by OpenAIService
// and GeminiService.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// TextGenerator implements TextService over any Completer.
type TextGenerator struct {
	completer Completer
	language  string // story output language, e.g. "English" or "Vietnamese"
	maxWords  int
}

var _ TextService = (*TextGenerator)(nil)

func NewTextGenerator(completer Completer, language string, maxWords int) *TextGenerator {
	if language == "" {
		language = "English"
	}
	if maxWords <= 0 {
		maxWords = 200
	}
	return &TextGenerator{
		completer: completer,
		language:  language,
		maxWords:  maxWords,
	}
}

func (g *TextGenerator) GenerateStory(ctx context.Context, moral, example string) (string, error) {
	prompt := fmt.Sprintf(`# Role: Short Story Generator

## Goal:
Generate a short story that show the provided moral.

## Constrains:
1. the story is to be returned as a plain text.
2. the story must have unexpected plots. The characters have to be animals.
3. do not under any circumstance reference this prompt in your response.
4. get straight to the point, don't start with unnecessary things like, "here is a story...".
5. you must not include any type of markdown or formatting in the story, never use a title.
6. only return the raw content of the story.
7. you must not mention the prompt
8. respond must in %s.
9. the story must consist at most %d words

## Moral:
%s`, g.language, g.maxWords, moral)

	if example != "" {
		prompt += "\n\n## Output Example:\n" + example
	}

	response, err := g.completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("story generation failed: %w", err)
	}

	story := cleanResponse(response)
	if story == "" {
		return "", fmt.Errorf("provider returned an empty story")
	}
	if hasErrorMarker(story) {
		return "", fmt.Errorf("provider returned an error response: %s", truncate(story, 120))
	}

	log.Printf("[Text] Story generated for moral %q (%d chars)", truncate(moral, 60), len(story))
	return story, nil
}

func (g *TextGenerator) GenerateTerms(ctx context.Context, content string, amount int) ([]string, error) {
	prompt := fmt.Sprintf(`# Role: Video Search Terms Generator

## Goals:
Generate %d search terms for searching images to tell the provided story.

## Constrains:
1. Return search terms as a JSON array of strings.
2. The first term must be the story's main character. Each additional term (1-3 words) must include other characters or the place where the story happens.
3. Only return the JSON array, nothing else.
4. Search terms must closely relate to the story's characters or scene.
5. Use English search terms only.
6. Each term must be a concrete noun and must not be names of characters.

## Output Example:
["search term 1", "search term 2", "search term 3"]

## The story:
%s`, amount, content)

	response, err := g.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("term generation failed: %w", err)
	}
	if hasErrorMarker(response) {
		return nil, fmt.Errorf("provider returned an error response: %s", truncate(response, 120))
	}

	terms, err := parseTerms(response)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search terms: %w", err)
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("provider returned no search terms")
	}

	log.Printf("[Text] Generated %d search terms", len(terms))
	return terms, nil
}

func (g *TextGenerator) Translate(ctx context.Context, content string) (string, error) {
	prompt := fmt.Sprintf(`# Role: Translator

## Goals:
Translate the provided paragraph to Vietnamese.

## Constrains:
1. the translation is always returned as a plain text.
2. you must only return the translation. you must not return anything else.
3. the translation must contain only vietnamese words.

## Paragraph:
%s`, content)

	response, err := g.completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("translation failed: %w", err)
	}
	if hasErrorMarker(response) {
		return "", fmt.Errorf("provider returned an error response: %s", truncate(response, 120))
	}

	translated := strings.TrimSpace(response)
	if translated == "" {
		return "", fmt.Errorf("provider returned an empty translation")
	}

	return translated, nil
}

var (
	markdownLinkRe  = regexp.MustCompile(`\[.*?\]`)
	markdownParenRe = regexp.MustCompile(`\(.*?\)`)
	jsonArrayRe     = regexp.MustCompile(`\[.*\]`)
)

// cleanResponse strips markdown decoration the model sometimes adds despite
// the prompt constraints.
func cleanResponse(response string) string {
	response = strings.ReplaceAll(response, "*", "")
	response = strings.ReplaceAll(response, "#", "")
	response = markdownLinkRe.ReplaceAllString(response, "")
	response = markdownParenRe.ReplaceAllString(response, "")
	return strings.TrimSpace(response)
}

// parseTerms decodes a JSON string array, falling back to the first
// bracketed span when the model wraps the array in prose.
func parseTerms(response string) ([]string, error) {
	var terms []string
	if err := json.Unmarshal([]byte(strings.TrimSpace(response)), &terms); err == nil {
		return terms, nil
	}

	match := jsonArrayRe.FindString(response)
	if match == "" {
		return nil, fmt.Errorf("no JSON array in response: %s", truncate(response, 120))
	}
	if err := json.Unmarshal([]byte(match), &terms); err != nil {
		return nil, fmt.Errorf("invalid JSON array %q: %w", truncate(match, 120), err)
	}
	return terms, nil
}

// hasErrorMarker detects provider error strings returned with a 200-style
// success (some providers embed errors in the completion text).
func hasErrorMarker(s string) bool {
	return strings.Contains(s, "Error: ") || strings.HasPrefix(strings.ToLower(strings.TrimSpace(s)), "error:")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

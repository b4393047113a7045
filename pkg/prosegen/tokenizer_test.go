package prosegen

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func collectTokens(t *testing.T, tok Tokenizer, input string) []IngestToken {
	t.Helper()
	stream := tok.NewStream(strings.NewReader(input))
	var tokens []IngestToken
	for {
		token, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return tokens
		}
		if err != nil {
			t.Fatalf("Next() failed: %v", err)
		}
		tokens = append(tokens, *token)
	}
}

func TestDefaultTokenizer(t *testing.T) {
	tokens := collectTokens(t, NewDefaultTokenizer(), "Hello, World! Bye.")

	want := []IngestToken{
		{Text: "hello"},
		{Text: "world"},
		{End: true},
		{Text: "bye"},
		{End: true},
	}

	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(tokens), len(want), tokens)
	}
	for i, token := range tokens {
		if token != want[i] {
			t.Errorf("token %d = %+v, want %+v", i, token, want[i])
		}
	}
}

func TestTokenizerKeepCase(t *testing.T) {
	tokens := collectTokens(t, NewDefaultTokenizer(WithKeepCase(true)), "Hello World")
	if len(tokens) != 2 || tokens[0].Text != "Hello" || tokens[1].Text != "World" {
		t.Errorf("expected case-preserving tokens, got %+v", tokens)
	}
}

func TestTokenizerCustomEndRegex(t *testing.T) {
	tok := NewDefaultTokenizer(
		WithWordRegex(`[\w']+|[.;]`),
		WithSentenceEndRegex(`^;$`),
	)
	tokens := collectTokens(t, tok, "one; two.")

	// ';' marks a boundary, '.' is now an ordinary token.
	if len(tokens) != 4 {
		t.Fatalf("got %d tokens, want 4: %+v", len(tokens), tokens)
	}
	if !tokens[1].End {
		t.Error("expected ';' to be a sentence boundary")
	}
	if tokens[3].End {
		t.Error("expected '.' to be an ordinary token under the custom regex")
	}
}

func TestTokenizerMultiline(t *testing.T) {
	tokens := collectTokens(t, NewDefaultTokenizer(), "one two\nthree four.")
	var words []string
	for _, token := range tokens {
		if !token.End {
			words = append(words, token.Text)
		}
	}
	want := []string{"one", "two", "three", "four"}
	if len(words) != len(want) {
		t.Fatalf("got words %v, want %v", words, want)
	}
	for i := range want {
		if words[i] != want[i] {
			t.Errorf("word %d = %q, want %q", i, words[i], want[i])
		}
	}
}

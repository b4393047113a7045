package prosegen

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

// IngestToken is a single unit produced while tokenizing corpus text. End
// marks a sentence boundary; boundary tokens carry no text of their own.
type IngestToken struct {
	Text string
	End  bool
}

// Tokenizer splits raw corpus text into word tokens and sentence boundaries
// for ingestion. The generation core never touches it; only SQLStore.Ingest
// does.
type Tokenizer interface {
	// NewStream returns a stateful stream over the reader's tokens.
	NewStream(io.Reader) TokenStream
}

// TokenStream yields tokens one at a time, returning io.EOF when exhausted.
type TokenStream interface {
	Next() (*IngestToken, error)
}

// DefaultTokenizer splits text on a word regex and treats sentence-ending
// punctuation as boundaries. Words are lowercased so the frequency tables
// collapse case variants, which is what the filler-text use case wants.
type DefaultTokenizer struct {
	wordRegex *regexp.Regexp
	endRegex  *regexp.Regexp
	keepCase  bool
}

// TokenizerOption configures a DefaultTokenizer.
type TokenizerOption func(*DefaultTokenizer)

// WithWordRegex overrides the regex used to extract tokens from input text.
// Default: `[\w']+|[.!?]`
func WithWordRegex(expr string) TokenizerOption {
	return func(t *DefaultTokenizer) {
		t.wordRegex = regexp.MustCompile(expr)
	}
}

// WithSentenceEndRegex overrides the regex that classifies a token as a
// sentence boundary. Default: `^[.!?]$`
func WithSentenceEndRegex(expr string) TokenizerOption {
	return func(t *DefaultTokenizer) {
		t.endRegex = regexp.MustCompile(expr)
	}
}

// WithKeepCase disables the default lowercasing of word tokens.
func WithKeepCase(keep bool) TokenizerOption {
	return func(t *DefaultTokenizer) {
		t.keepCase = keep
	}
}

// NewDefaultTokenizer creates a tokenizer with default settings, which can be
// overridden with TokenizerOption functions.
func NewDefaultTokenizer(opts ...TokenizerOption) *DefaultTokenizer {
	t := &DefaultTokenizer{
		wordRegex: regexp.MustCompile(`[\w']+|[.!?]`),
		endRegex:  regexp.MustCompile(`^[.!?]$`),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewStream returns the stream processor.
func (t *DefaultTokenizer) NewStream(r io.Reader) TokenStream {
	return &defaultTokenStream{
		scanner:   bufio.NewScanner(r),
		wordRegex: t.wordRegex,
		endRegex:  t.endRegex,
		keepCase:  t.keepCase,
	}
}

type defaultTokenStream struct {
	scanner   *bufio.Scanner
	buffer    []string
	wordRegex *regexp.Regexp
	endRegex  *regexp.Regexp
	keepCase  bool
}

// Next returns the next token from the stream, or io.EOF once the input is
// fully consumed.
func (s *defaultTokenStream) Next() (*IngestToken, error) {
	for len(s.buffer) == 0 {
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		s.buffer = s.wordRegex.FindAllString(s.scanner.Text(), -1)
	}

	word := s.buffer[0]
	s.buffer = s.buffer[1:]

	if s.endRegex.MatchString(word) {
		return &IngestToken{End: true}, nil
	}
	if !s.keepCase {
		word = strings.ToLower(word)
	}
	return &IngestToken{Text: word}, nil
}

package prosegen

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"
)

// DeadEndPolicy selects how sentence construction reacts when the current
// context has no recorded continuations.
type DeadEndPolicy int

const (
	// DeadEndStop ends the sentence early at the dead end.
	DeadEndStop DeadEndPolicy = iota
	// DeadEndRestart draws a fresh starter word and keeps building from it,
	// so sentences reach their target length even in sparse corpora.
	DeadEndRestart
)

// maxDeadEndRestarts bounds restart recovery so generation always terminates
// even against a pathological corpus.
const maxDeadEndRestarts = 16

const (
	// DefaultTopK is the candidate truncation width applied to every
	// continuation lookup.
	DefaultTopK = 1000

	defaultWordsPerSentence      = 8
	defaultSentencesPerParagraph = 5
)

// generatorOptions holds the configurable knobs for a Generator.
type generatorOptions struct {
	words     int
	sentences int
	topK      int
	seed      uint64
	seeded    bool
	dist      Distribution
	policy    DeadEndPolicy
	logger    *slog.Logger
}

// Option configures a Generator at construction time.
type Option func(*generatorOptions)

// WithWordsPerSentence sets the target word count per sentence.
func WithWordsPerSentence(n int) Option {
	return func(o *generatorOptions) {
		if n > 0 {
			o.words = n
		}
	}
}

// WithSentencesPerParagraph sets the target sentence count per paragraph.
func WithSentencesPerParagraph(n int) Option {
	return func(o *generatorOptions) {
		if n > 0 {
			o.sentences = n
		}
	}
}

// WithTopK sets the candidate truncation width for continuation lookups.
func WithTopK(k int) Option {
	return func(o *generatorOptions) {
		if k > 0 {
			o.topK = k
		}
	}
}

// WithSeed fixes the random seed so repeated runs with identical
// configuration produce identical output.
func WithSeed(seed uint64) Option {
	return func(o *generatorOptions) {
		o.seed = seed
		o.seeded = true
	}
}

// WithDistribution swaps the rank weighting used for candidate selection.
func WithDistribution(d Distribution) Option {
	return func(o *generatorOptions) {
		if d != nil {
			o.dist = d
		}
	}
}

// WithDeadEndPolicy sets the recovery behavior for contexts that have no
// continuations.
func WithDeadEndPolicy(p DeadEndPolicy) Option {
	return func(o *generatorOptions) { o.policy = p }
}

// WithLogger enables logging. By default all logs are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(o *generatorOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Generator produces sentences and paragraphs from an injected corpus Store.
// It holds no mutable corpus state; concurrent generations may share the
// Store but each Generator owns a single random source, so use one Generator
// per goroutine.
type Generator struct {
	store   Store
	sampler *Sampler
	opts    generatorOptions
}

// New creates a Generator over the given Store. Unset options fall back to
// sensible defaults; the random seed defaults to a nondeterministic value
// unless WithSeed is supplied.
func New(store Store, opts ...Option) *Generator {
	options := generatorOptions{
		words:     defaultWordsPerSentence,
		sentences: defaultSentencesPerParagraph,
		topK:      DefaultTopK,
		dist:      RankDecay,
		policy:    DeadEndStop,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if !options.seeded {
		options.seed = rand.Uint64()
	}

	return &Generator{
		store:   store,
		sampler: NewSampler(options.seed, options.dist),
		opts:    options,
	}
}

// Sentence builds one sentence: a starter draw followed by ranked-continuation
// draws until the target word count is reached or a dead end triggers the
// configured policy. Fatal store errors are surfaced as-is.
func (g *Generator) Sentence(ctx context.Context) (Sentence, error) {
	starters, err := g.store.Starters(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching starter words: %w", err)
	}
	if len(starters) == 0 {
		return nil, ErrNoStarters
	}

	opening, err := g.sampler.Sample(starters)
	if err != nil {
		return nil, fmt.Errorf("sampling starter word: %w", err)
	}

	words := Sentence{opening}
	window := Context{StartMarker, opening}
	restarts := 0

	for len(words) < g.opts.words {
		cands, err := g.store.Continuations(ctx, window, g.opts.topK)
		if err != nil {
			return nil, fmt.Errorf("fetching continuations for %q %q: %w", window[0], window[1], err)
		}

		if len(cands) == 0 {
			if g.opts.policy == DeadEndRestart && restarts < maxDeadEndRestarts {
				restarts++
				next, err := g.sampler.Sample(starters)
				if err != nil {
					return nil, fmt.Errorf("sampling restart word: %w", err)
				}
				g.opts.logger.DebugContext(ctx, "dead end, restarting from fresh starter",
					slog.String("context_w1", window[0]),
					slog.String("context_w2", window[1]),
					slog.Int("sentence_length", len(words)),
					slog.Int("restarts", restarts),
				)
				words = append(words, next)
				window = Context{StartMarker, next}
				continue
			}
			g.opts.logger.DebugContext(ctx, "dead end, ending sentence early",
				slog.String("context_w1", window[0]),
				slog.String("context_w2", window[1]),
				slog.Int("sentence_length", len(words)),
			)
			break
		}

		next, err := g.sampler.Sample(cands)
		if err != nil {
			return nil, fmt.Errorf("sampling continuation: %w", err)
		}
		words = append(words, next)
		window = Context{window[1], next}
	}

	return words, nil
}

// Paragraph builds the configured number of sentences. Each sentence starts
// fresh; no state is threaded between them. A fatal error aborts the whole
// paragraph, no partial result is returned.
func (g *Generator) Paragraph(ctx context.Context) (Paragraph, error) {
	sentences := make(Paragraph, 0, g.opts.sentences)
	for i := 0; i < g.opts.sentences; i++ {
		sentence, err := g.Sentence(ctx)
		if err != nil {
			return nil, fmt.Errorf("building sentence %d of %d: %w", i+1, g.opts.sentences, err)
		}
		sentences = append(sentences, sentence)
	}
	return sentences, nil
}

// Text renders the requested number of paragraphs, separated by blank lines.
func (g *Generator) Text(ctx context.Context, paragraphs int) (string, error) {
	var builder strings.Builder
	for i := 0; i < paragraphs; i++ {
		paragraph, err := g.Paragraph(ctx)
		if err != nil {
			return "", err
		}
		if i > 0 {
			builder.WriteString("\n\n")
		}
		builder.WriteString(paragraph.Render())
	}
	return builder.String(), nil
}

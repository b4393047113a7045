// Command prosegen manages a word-frequency corpus stored in SQLite and
// generates filler text from it, either on the command line or over HTTP.
package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"github.com/urfave/cli/v2"

	"github.com/velesk/prosegen/pkg/prosegen"
)

func main() {
	app := &cli.App{
		Name:  "prosegen",
		Usage: "generate synthetic filler text from a trained word corpus",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: "./prosegen.yaml",
				Usage: "path to the YAML config file (created with defaults if missing)",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "override the database path from the config",
			},
		},
		Commands: []*cli.Command{
			ingestCommand(),
			generateCommand(),
			statsCommand(),
			pruneCommand(),
			compactCommand(),
			exportCommand(),
			importCommand(),
			serveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// appEnv bundles the resources every command needs: loaded config, logger,
// open database handle and the store built on top of it.
type appEnv struct {
	config *Config
	logger *slog.Logger
	db     *sql.DB
	store  *prosegen.SQLStore
}

func (e *appEnv) Close() {
	e.store.Close()
	_ = e.db.Close()
}

func setup(c *cli.Context) (*appEnv, error) {
	config, err := LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	if dbPath := c.String("db"); dbPath != "" {
		config.DatabasePath = dbPath
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(config.LogLevel),
	}))

	if dir := filepath.Dir(config.DatabasePath); dir != "." {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := openDB(config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = prosegen.SetupSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set up database schema: %w", err)
	}

	store, err := prosegen.NewSQLStore(db, prosegen.NewDefaultTokenizer())
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	store.SetLogger(logger)

	return &appEnv{config: config, logger: logger, db: db, store: store}, nil
}

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "train the corpus from text files, or stdin when no files are given",
		ArgsUsage: "[file ...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "html",
				Usage: "extract readable article text from HTML input before tokenizing",
			},
		},
		Action: runIngest,
	}
}

func runIngest(c *cli.Context) error {
	env, err := setup(c)
	if err != nil {
		return err
	}
	defer env.Close()

	ingestOne := func(r io.Reader, name string) error {
		if c.Bool("html") {
			parser := readability.NewParser()
			article, err := parser.Parse(r, &url.URL{Scheme: "file", Path: name})
			if err != nil {
				return fmt.Errorf("failed to extract article text from %s: %w", name, err)
			}
			r = strings.NewReader(article.TextContent)
		}
		if err := env.store.Ingest(c.Context, r); err != nil {
			return fmt.Errorf("failed to ingest %s: %w", name, err)
		}
		return nil
	}

	if c.NArg() == 0 {
		return ingestOne(os.Stdin, "stdin")
	}
	for _, path := range c.Args().Slice() {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		err = ingestOne(f, path)
		_ = f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "generate paragraphs of filler text from the corpus",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "paragraphs", Aliases: []string{"p"}, Value: 1, Usage: "number of paragraphs to generate"},
			&cli.IntFlag{Name: "sentences", Aliases: []string{"s"}, Usage: "sentences per paragraph (overrides config)"},
			&cli.IntFlag{Name: "words", Aliases: []string{"w"}, Usage: "words per sentence (overrides config)"},
			&cli.Uint64Flag{Name: "seed", Usage: "seed for reproducible output"},
		},
		Action: runGenerate,
	}
}

func runGenerate(c *cli.Context) error {
	env, err := setup(c)
	if err != nil {
		return err
	}
	defer env.Close()

	gc := env.config.Generation
	if c.IsSet("words") {
		gc.WordsPerSentence = c.Int("words")
	}
	if c.IsSet("sentences") {
		gc.SentencesPerParagraph = c.Int("sentences")
	}
	opts, err := gc.generatorOptions()
	if err != nil {
		return err
	}
	if c.IsSet("seed") {
		opts = append(opts, prosegen.WithSeed(c.Uint64("seed")))
	}
	opts = append(opts, prosegen.WithLogger(env.logger))

	gen := prosegen.New(env.store, opts...)
	text, err := gen.Text(c.Context, c.Int("paragraphs"))
	if err != nil {
		return fmt.Errorf("failed to generate text: %w", err)
	}
	fmt.Println(text)
	return nil
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:   "stats",
		Usage:  "print corpus statistics as JSON",
		Action: runStats,
	}
}

func runStats(c *cli.Context) error {
	env, err := setup(c)
	if err != nil {
		return err
	}
	defer env.Close()

	stats, err := env.store.Stats(c.Context)
	if err != nil {
		return fmt.Errorf("failed to read corpus stats: %w", err)
	}
	out, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func pruneCommand() *cli.Command {
	return &cli.Command{
		Name:  "prune",
		Usage: "delete rare word links and garbage-collect orphaned vocabulary",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "min-freq", Value: 1, Usage: "delete links observed at most this many times"},
		},
		Action: runPrune,
	}
}

func runPrune(c *cli.Context) error {
	env, err := setup(c)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.store.Prune(c.Context, c.Int("min-freq")); err != nil {
		return fmt.Errorf("failed to prune corpus: %w", err)
	}
	return nil
}

func compactCommand() *cli.Command {
	return &cli.Command{
		Name:  "compact",
		Usage: "keep only the most frequent continuations for each word pair",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "top-k", Value: prosegen.DefaultTopK, Usage: "continuations to keep per word pair"},
		},
		Action: runCompact,
	}
}

func runCompact(c *cli.Context) error {
	env, err := setup(c)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.store.Compact(c.Context, c.Int("top-k")); err != nil {
		return fmt.Errorf("failed to compact corpus: %w", err)
	}
	return nil
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "write the corpus as JSON to a file or stdout",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file (defaults to stdout)"},
		},
		Action: runExport,
	}
}

func runExport(c *cli.Context) error {
	env, err := setup(c)
	if err != nil {
		return err
	}
	defer env.Close()

	var w io.Writer = os.Stdout
	if out := c.String("out"); out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	if err := env.store.Export(c.Context, w); err != nil {
		return fmt.Errorf("failed to export corpus: %w", err)
	}
	return nil
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "merge a JSON corpus export into the database",
		ArgsUsage: "[file]",
		Action:    runImport,
	}
}

func runImport(c *cli.Context) error {
	env, err := setup(c)
	if err != nil {
		return err
	}
	defer env.Close()

	var r io.Reader = os.Stdin
	if c.NArg() > 0 {
		f, err := os.Open(c.Args().First())
		if err != nil {
			return fmt.Errorf("failed to open import file: %w", err)
		}
		defer f.Close()
		r = f
	}
	if err := env.store.Import(c.Context, r); err != nil {
		return fmt.Errorf("failed to import corpus: %w", err)
	}
	return nil
}

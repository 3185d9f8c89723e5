package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/perbu/pdfrag/pkg/config"
	"github.com/perbu/pdfrag/pkg/embedder"
	"github.com/perbu/pdfrag/pkg/loader"
	"github.com/perbu/pdfrag/pkg/logging"
	"github.com/perbu/pdfrag/pkg/rag"
)

var (
	flagConfig   string
	flagLogLevel string
	flagVerbose  bool
)

var rootCmd = &cobra.Command{
	Use:          "pdfrag",
	Short:        "Semantic search over PDF documents",
	SilenceUsage: true,
	Long: `pdfrag extracts text from PDF files, splits it into overlapping chunks,
embeds them and ranks the chunks against a query by cosine similarity.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ./pdfrag.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
}

func main() {
	// Load .env file if it exists (for API keys)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app holds what every command needs once config is resolved.
type app struct {
	cfg     *config.AppConfig
	logger  *slog.Logger
	engine  *rag.Engine
	cleanup func()
}

// setupHooks let a command adjust the config and the engine options
// derived from it. Either may be nil.
type setupHooks struct {
	config func(*config.AppConfig)
	engine func(*rag.Options)
}

// setup loads config, applies command hooks, configures logging and builds
// the engine.
func setup(ctx context.Context, hooks setupHooks) (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if hooks.config != nil {
		hooks.config(cfg)
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if flagVerbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, cleanup, err := logging.Setup(cfg.LoggingConfig())
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	emb, err := embedder.New(ctx, cfg.EmbedderOptions())
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("initializing embedder: %w", err)
	}
	logger.Debug("embedder ready",
		slog.String("model", emb.ModelInfo()),
		slog.Int("dimension", emb.Dimension()))

	opts := cfg.EngineOptions()
	if hooks.engine != nil {
		hooks.engine(&opts)
	}
	engine := rag.NewEngine(rag.NewIndex(), loader.NewPDFExtractor(), emb, opts, logger)
	return &app{cfg: cfg, logger: logger, engine: engine, cleanup: cleanup}, nil
}

// collectPaths expands directories into the files below them with the
// given extension. Plain file arguments are passed through unchanged so the
// engine decides whether to skip them.
func collectPaths(args []string, ext string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ext) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", arg, err)
		}
	}
	return paths, nil
}

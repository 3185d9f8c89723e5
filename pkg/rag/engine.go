package rag

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/perbu/pdfrag/pkg/embedder"
	"github.com/perbu/pdfrag/pkg/loader"
)

// DefaultWorkers is the number of files processed concurrently
const DefaultWorkers = 8

// DefaultTopK is the number of results returned when none is requested
const DefaultTopK = 5

// Options tunes ingestion and search.
type Options struct {
	Workers        int     // files processed concurrently
	Extension      string  // accepted document extension, e.g. ".pdf"
	ChunkSize      int     // target chunk size in words
	ChunkOverlap   int     // words carried over between chunks, <= 0 disables
	BatchSize      int     // texts per embedding request
	Concurrency    int     // embedding requests in flight per file
	QueryCacheSize int     // cached query vectors, < 0 disables the cache
	MinScore       float64 // results scoring below are dropped

	// Progress, if set, is called after each embedded batch with the file
	// path and the number of its chunks embedded so far. It is called from
	// several goroutines at once.
	Progress func(file string, done, total int)
}

// DefaultOptions returns the options used by the HTTP service.
func DefaultOptions() Options {
	return Options{
		Workers:      DefaultWorkers,
		Extension:    ".pdf",
		ChunkSize:    loader.DefaultChunkSize,
		ChunkOverlap: loader.DefaultChunkOverlap,
		BatchSize:    embedder.DefaultBatchSize,
		Concurrency:  embedder.DefaultConcurrency,
		MinScore:     NoThreshold,
	}
}

// Engine ingests documents into an Index and answers queries against it.
type Engine struct {
	index     *Index
	extractor loader.Extractor
	docs      *embedder.Parallel
	queries   embedder.Embedder
	opts      Options
	logger    *slog.Logger
}

// NewEngine wires an index, a text extractor and an embedding provider.
// The index is owned by the caller so several engines or tests can use
// isolated instances.
func NewEngine(index *Index, extractor loader.Extractor, emb embedder.Embedder, opts Options, logger *slog.Logger) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Extension == "" {
		opts.Extension = ".pdf"
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = loader.DefaultChunkSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	var queries embedder.Embedder = emb
	if opts.QueryCacheSize >= 0 {
		queries = embedder.NewCachedEmbedder(emb, opts.QueryCacheSize)
	}

	return &Engine{
		index:     index,
		extractor: extractor,
		docs:      embedder.NewParallel(emb, opts.BatchSize, opts.Concurrency),
		queries:   queries,
		opts:      opts,
		logger:    logger,
	}
}

// Index returns the engine's index
func (e *Engine) Index() *Index {
	return e.index
}

// ValidPaths keeps the paths that name existing regular files with the
// document extension. Everything else is dropped without an error.
func (e *Engine) ValidPaths(paths []string) []string {
	valid := make([]string, 0, len(paths))
	for _, p := range paths {
		if !strings.EqualFold(filepath.Ext(p), e.opts.Extension) {
			continue
		}
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		valid = append(valid, p)
	}
	return valid
}

// Ingest extracts, chunks and embeds the given files concurrently and appends
// each finished file to the index as one unit.
//
// A file that fails is logged and listed in the report while the others
// continue. The returned error is only set when ctx is done; files that
// finished before that stay in the index.
func (e *Engine) Ingest(ctx context.Context, paths []string) (IngestReport, error) {
	valid := e.ValidPaths(paths)
	report := IngestReport{
		Requested: len(paths),
		Skipped:   len(paths) - len(valid),
	}
	if len(valid) == 0 {
		return report, nil
	}

	var mu sync.Mutex // guards report
	fail := func(path string, err error) {
		e.logger.Warn("file ingestion failed",
			slog.String("file", path),
			slog.String("error", err.Error()))
		mu.Lock()
		report.Failed = append(report.Failed, FileError{Path: path, Err: err})
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)

	for _, path := range valid {
		g.Go(func() error {
			start := time.Now()

			texts, vectors, err := e.processFile(gctx, path)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				fail(path, err)
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			added, err := e.index.Append(filepath.Base(path), texts, vectors)
			if err != nil {
				fail(path, err)
				return nil
			}

			mu.Lock()
			report.Indexed++
			report.ChunksAdded += len(added)
			mu.Unlock()

			e.logger.Info("file indexed",
				slog.String("file", path),
				slog.Int("chunks", len(added)),
				slog.Duration("duration", time.Since(start)))
			return nil
		})
	}

	err := g.Wait()

	sort.Slice(report.Failed, func(i, j int) bool {
		return report.Failed[i].Path < report.Failed[j].Path
	})
	return report, err
}

// processFile runs extraction, normalization, chunking and embedding for one file.
func (e *Engine) processFile(ctx context.Context, path string) ([]string, [][]float32, error) {
	raw, err := e.extractor.Extract(ctx, path)
	if err != nil {
		return nil, nil, err
	}

	chunks := loader.SplitChunks(loader.Normalize(raw), e.opts.ChunkSize, e.opts.ChunkOverlap)
	if len(chunks) == 0 {
		return nil, nil, nil
	}

	var progress embedder.ProgressFunc
	if e.opts.Progress != nil {
		progress = func(done, total int) { e.opts.Progress(path, done, total) }
	}

	vectors, err := e.docs.EmbedAllWithProgress(ctx, chunks, embedder.TaskDocument, progress)
	if err != nil {
		return nil, nil, fmt.Errorf("embedding %d chunks: %w", len(chunks), err)
	}
	return chunks, vectors, nil
}

// Search embeds the query and returns the topK most similar chunks.
// An empty index yields no results without contacting the provider.
func (e *Engine) Search(ctx context.Context, query string, topK int) ([]SearchResult, error) {
	if e.index.Len() == 0 {
		return []SearchResult{}, nil
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	vec, err := embedder.EmbedOne(ctx, e.queries, query, embedder.TaskQuery)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := e.index.Search(vec, topK, e.opts.MinScore)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("search complete",
		slog.String("query", query),
		slog.Int("top_k", topK),
		slog.Int("results", len(results)))
	return results, nil
}

// IngestAndSearch indexes paths and then runs query against the whole index.
// The status is partial when some files failed to index.
func (e *Engine) IngestAndSearch(ctx context.Context, paths []string, query string, topK int) (*Response, error) {
	report, err := e.Ingest(ctx, paths)
	if err != nil {
		return nil, fmt.Errorf("ingesting: %w", err)
	}

	results, err := e.Search(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Status:  StatusSuccess,
		Query:   query,
		Results: results,
		Total:   len(results),
		Files:   len(paths),
		Chunks:  e.index.Len(),
	}
	if len(report.Failed) > 0 {
		resp.Status = StatusPartial
		for _, f := range report.Failed {
			resp.Failed = append(resp.Failed, FailedFile{File: filepath.Base(f.Path), Error: f.Err.Error()})
		}
	}
	return resp, nil
}

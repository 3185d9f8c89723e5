package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/perbu/pdfrag/pkg/rag"
)

var indexCmd = &cobra.Command{
	Use:   "index <file.pdf|dir>...",
	Short: "Extract, chunk and embed PDF files and report the outcome",
	Long: `index runs the ingestion pipeline over the given files without searching.
Use it to check that documents extract cleanly and that the embedding
provider is reachable. The index lives in memory and is discarded on exit.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	progress := newProgressPrinter(out)

	rt, err := setup(ctx, setupHooks{engine: func(o *rag.Options) {
		o.Progress = progress.update
	}})
	if err != nil {
		return err
	}
	defer rt.cleanup()

	fmt.Fprintln(out, "Step 1: Collecting documents...")
	paths, err := collectPaths(args, rt.cfg.Indexer.Extension)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "  ✓ Found %d candidate files\n\n", len(paths))

	fmt.Fprintf(out, "Step 2: Ingesting (%d files in parallel, %d embedding requests per file)...\n",
		rt.cfg.Indexer.Workers, rt.cfg.Embedder.Concurrency)
	start := time.Now()
	report, err := rt.engine.Ingest(ctx, paths)
	progress.finish()
	if err != nil {
		fmt.Fprintln(out, "\n⚠ Interrupted, partial results follow")
	}
	printReport(out, report, rt.engine.Index(), time.Since(start))

	if err != nil {
		return err
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d of %d files failed", len(report.Failed), len(paths)-report.Skipped)
	}
	return nil
}

func printReport(out io.Writer, report rag.IngestReport, index *rag.Index, elapsed time.Duration) {
	fmt.Fprintf(out, "  ✓ Indexed %d files, %d chunks (dim=%d) in %s\n",
		report.Indexed, report.ChunksAdded, index.Dimension(), elapsed.Round(time.Millisecond))
	if report.Skipped > 0 {
		fmt.Fprintf(out, "  - Skipped %d paths that are not readable documents\n", report.Skipped)
	}
	for _, f := range report.Failed {
		fmt.Fprintf(out, "  ✗ %s: %v\n", f.Path, f.Err)
	}
}

// progressPrinter aggregates per-file embedding progress into one
// overwritten status line.
type progressPrinter struct {
	mu      sync.Mutex
	out     io.Writer
	files   map[string][2]int // done, total
	printed bool
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out, files: make(map[string][2]int)}
}

func (p *progressPrinter) update(file string, done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Batches finish out of order, so keep the highest count seen.
	if cur := p.files[file]; done < cur[0] {
		done = cur[0]
	}
	p.files[file] = [2]int{done, total}

	var sumDone, sumTotal int
	for _, c := range p.files {
		sumDone += c[0]
		sumTotal += c[1]
	}
	fmt.Fprintf(p.out, "\r  Progress: %d/%d chunks embedded (%.1f%%) across %d files",
		sumDone, sumTotal, float64(sumDone)/float64(sumTotal)*100, len(p.files))
	p.printed = true
}

// finish ends the status line if anything was printed.
func (p *progressPrinter) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.printed {
		fmt.Fprintln(p.out)
		p.printed = false
	}
}

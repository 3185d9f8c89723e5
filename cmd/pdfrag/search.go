package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/perbu/pdfrag/pkg/config"
	"github.com/perbu/pdfrag/pkg/rag"
)

var (
	flagSearchQuery     string
	flagSearchTop       int
	flagSearchThreshold float64
	flagSearchFull      bool
	flagSearchContext   int
	flagSearchJSON      bool
)

var searchCmd = &cobra.Command{
	Use:   "search --query <text> <file.pdf|dir>...",
	Short: "Index PDF files and search them",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&flagSearchQuery, "query", "q", "", "search query")
	searchCmd.Flags().IntVar(&flagSearchTop, "top", 0, "number of results to return (default search.default_top_k)")
	searchCmd.Flags().Float64Var(&flagSearchThreshold, "threshold", 0, "minimum similarity score")
	searchCmd.Flags().BoolVar(&flagSearchFull, "full", false, "show full chunk text")
	searchCmd.Flags().IntVar(&flagSearchContext, "context", 0, "number of surrounding chunks to show for context")
	searchCmd.Flags().BoolVar(&flagSearchJSON, "json", false, "print the response as JSON")
	_ = searchCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(flagSearchQuery) == "" {
		return errors.New("query must not be empty")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	rt, err := setup(ctx, setupHooks{config: func(c *config.AppConfig) {
		if cmd.Flags().Changed("threshold") {
			c.Search.MinScore = flagSearchThreshold
		}
	}})
	if err != nil {
		return err
	}
	defer rt.cleanup()

	paths, err := collectPaths(args, rt.cfg.Indexer.Extension)
	if err != nil {
		return err
	}

	top := flagSearchTop
	if top <= 0 {
		top = rt.cfg.Search.DefaultTopK
	}

	resp, err := rt.engine.IngestAndSearch(ctx, paths, flagSearchQuery, top)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flagSearchJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	printResponse(out, cmd.ErrOrStderr(), rt.engine.Index(), resp, flagSearchFull, flagSearchContext)
	return nil
}

// printResponse writes results in a terminal friendly layout.
func printResponse(out, errOut io.Writer, index *rag.Index, resp *rag.Response, full bool, context int) {
	for _, f := range resp.Failed {
		fmt.Fprintf(errOut, "Warning: skipped %s: %s\n", f.File, f.Error)
	}

	if len(resp.Results) == 0 {
		fmt.Fprintln(out, "No results found")
		return
	}

	fmt.Fprintf(out, "Found %d results (%d chunks from %d files):\n\n", resp.Total, resp.Chunks, resp.Files)
	for i, result := range resp.Results {
		fmt.Fprintf(out, "Score: %.2f | %s #%d\n", result.Score, result.Filename, result.ChunkID)

		if !full && context <= 0 {
			continue
		}
		fmt.Fprintln(out)

		if context > 0 {
			neighbors := index.Neighbors(result.ChunkID, context)
			for j, chunk := range neighbors {
				if chunk.ID == result.ChunkID {
					fmt.Fprintln(out, ">>> MATCHED CHUNK <<<")
				}
				fmt.Fprintln(out, chunk.Text)
				if j < len(neighbors)-1 {
					fmt.Fprintln(out)
				}
			}
		} else {
			fmt.Fprintln(out, result.Text)
		}

		if i < len(resp.Results)-1 {
			fmt.Fprintln(out, "\n"+strings.Repeat("-", 80)+"\n")
		}
	}
}

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perbu/pdfrag/pkg/rag"
)

func TestCollectPaths(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(nested, 0o755))
	for _, name := range []string{"a.pdf", "notes.txt", filepath.Join("nested", "b.PDF")} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	loose := filepath.Join(t.TempDir(), "loose.txt")

	paths, err := collectPaths([]string{dir, loose}, ".pdf")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.pdf"),
		filepath.Join(nested, "b.PDF"),
		loose,
	}, paths)
}

func testIndex(t *testing.T) *rag.Index {
	t.Helper()
	ix := rag.NewIndex()
	_, err := ix.Append("a.pdf", []string{"first", "second", "third"}, [][]float32{{1, 0}, {0, 1}, {1, 1}})
	require.NoError(t, err)
	_, err = ix.Append("b.pdf", []string{"other"}, [][]float32{{1, 0}})
	require.NoError(t, err)
	return ix
}

func TestPrintResponse_Summary(t *testing.T) {
	ix := testIndex(t)
	results, err := ix.Search([]float32{0, 1}, 1, rag.NoThreshold)
	require.NoError(t, err)

	resp := &rag.Response{
		Status:  rag.StatusPartial,
		Results: results,
		Total:   len(results),
		Files:   3,
		Chunks:  4,
		Failed:  []rag.FailedFile{{File: "bad.pdf", Error: "broken"}},
	}

	var out, errOut bytes.Buffer
	printResponse(&out, &errOut, ix, resp, false, 0)

	assert.Contains(t, out.String(), "Found 1 results (4 chunks from 3 files)")
	assert.Contains(t, out.String(), "Score: 1.00 | a.pdf #1")
	assert.NotContains(t, out.String(), "second")
	assert.Contains(t, errOut.String(), "skipped bad.pdf: broken")
}

func TestPrintResponse_Context(t *testing.T) {
	ix := testIndex(t)
	results, err := ix.Search([]float32{0, 1}, 1, rag.NoThreshold)
	require.NoError(t, err)

	var out bytes.Buffer
	printResponse(&out, &bytes.Buffer{}, ix, &rag.Response{Results: results, Total: 1}, false, 2)

	s := out.String()
	assert.Contains(t, s, "first")
	assert.Contains(t, s, ">>> MATCHED CHUNK <<<\nsecond")
	assert.Contains(t, s, "third")
	assert.NotContains(t, s, "other")
}

func TestPrintResponse_NoResults(t *testing.T) {
	var out bytes.Buffer
	printResponse(&out, &bytes.Buffer{}, rag.NewIndex(), &rag.Response{}, true, 0)
	assert.Equal(t, "No results found\n", out.String())
}

func TestPrintReport(t *testing.T) {
	report := rag.IngestReport{
		Requested:   3,
		Skipped:     1,
		Indexed:     1,
		ChunksAdded: 4,
		Failed:      []rag.FileError{{Path: "/docs/bad.pdf", Err: assert.AnError}},
	}

	var out bytes.Buffer
	printReport(&out, report, testIndex(t), 1500*time.Millisecond)

	s := out.String()
	assert.Contains(t, s, "Indexed 1 files, 4 chunks (dim=2) in 1.5s")
	assert.Contains(t, s, "Skipped 1 paths")
	assert.Contains(t, s, "/docs/bad.pdf")
}

func TestProgressPrinter(t *testing.T) {
	var out bytes.Buffer
	p := newProgressPrinter(&out)

	p.update("a.pdf", 2, 4)
	p.update("b.pdf", 1, 2)
	p.update("a.pdf", 1, 4) // late batch reporting a lower count
	p.finish()

	s := out.String()
	assert.Contains(t, s, "\r  Progress: 2/4 chunks embedded (50.0%) across 1 files")
	assert.Contains(t, s, "\r  Progress: 3/6 chunks embedded (50.0%) across 2 files")
	assert.NotContains(t, s, "2/6")
	assert.True(t, strings.HasSuffix(s, "\n"))

	out.Reset()
	p.finish()
	assert.Empty(t, out.String())
}

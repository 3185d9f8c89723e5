package loader

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrExtraction is returned when a document's text cannot be read.
var ErrExtraction = errors.New("text extraction failed")

// Extractor returns the full text of a document.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// ExtractorFunc adapts a plain function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, path string) (string, error)

// Extract calls f(ctx, path).
func (f ExtractorFunc) Extract(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}

// PDFExtractor reads the plain text layer of PDF files.
type PDFExtractor struct{}

// NewPDFExtractor creates a PDF text extractor
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract returns the text of every page in page order, joined by a
// paragraph separator. Pages without text are skipped.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (text string, err error) {
	// The pdf reader panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: %s: %v", ErrExtraction, path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: opening %s: %v", ErrExtraction, path, err)
	}
	defer f.Close()

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		if content := layoutText(page.Content().Text); content != "" {
			pages = append(pages, content)
		}
	}

	return strings.Join(pages, ParagraphSeparator), nil
}

const (
	// spaceGapRatio is the horizontal gap, relative to the font size, that
	// separates two words when the document has no explicit space glyph.
	spaceGapRatio = 0.2

	// lineGapRatio and paragraphGapRatio are vertical moves, relative to the
	// font size, that start a new line or a new paragraph.
	lineGapRatio      = 0.5
	paragraphGapRatio = 2.0
)

// layoutText rebuilds words, lines and paragraphs from positioned glyphs in
// content stream order. Many PDFs place words by coordinates instead of
// writing space characters, so spacing is inferred from the geometry.
func layoutText(glyphs []pdf.Text) string {
	var b strings.Builder
	var prev *pdf.Text

	for i := range glyphs {
		g := &glyphs[i]
		if g.S == "" || g.S == "\n" || g.S == "\r" {
			continue
		}

		if prev != nil {
			size := max(math.Abs(prev.FontSize), math.Abs(g.FontSize), 1)
			dy := math.Abs(g.Y - prev.Y)
			gap := g.X - (prev.X + prev.W)

			switch {
			case dy > paragraphGapRatio*size:
				b.WriteString(ParagraphSeparator)
			case dy > lineGapRatio*size:
				b.WriteByte('\n')
			case gap > spaceGapRatio*size || gap < -size:
				if !strings.HasSuffix(b.String(), " ") && g.S != " " {
					b.WriteByte(' ')
				}
			}
		}

		b.WriteString(g.S)
		prev = g
	}

	lines := strings.Split(b.String(), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

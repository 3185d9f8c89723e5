// Package rag indexes documents as embedded chunks and ranks them against queries.
package rag

import (
	"errors"
	"fmt"
)

var (
	// ErrLengthMismatch is returned when chunk texts and vectors differ in count
	ErrLengthMismatch = errors.New("chunks and vectors length mismatch")
	// ErrDimensionMismatch is returned when a vector does not match the index dimension
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Chunk represents a piece of a document stored in the index
type Chunk struct {
	ID       int    `json:"id"`       // Position in the index
	Text     string `json:"text"`     // The chunk text
	Filename string `json:"filename"` // Base name of the source file
}

// SearchResult represents a single search result with score
type SearchResult struct {
	ChunkID  int     `json:"-"`
	Text     string  `json:"text"`
	Filename string  `json:"filename"`
	Score    float64 `json:"score"` // cosine similarity in [-1, 1]
}

// FileError records a document that could not be indexed.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// IngestReport summarizes one Ingest call.
type IngestReport struct {
	Requested   int         // paths passed in
	Skipped     int         // missing or not matching the document extension
	Indexed     int         // files appended to the index
	ChunksAdded int         // chunks appended by this call
	Failed      []FileError // files whose pipeline failed
}

// FailedFile is the wire form of a FileError.
type FailedFile struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// Response is the result of an ingest-then-search request.
type Response struct {
	Status  string         `json:"status"`
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Total   int            `json:"total"`
	Files   int            `json:"files"`
	Chunks  int            `json:"chunks"`
	Failed  []FailedFile   `json:"failed,omitempty"`
}

// Response statuses
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusError   = "error"
)

// Package models defines core data structures for documents, chunks, and conversation turns.
package models

import "time"

// Document is the extracted text of one uploaded file. It lives only long
// enough to be chunked; chunks carry the source name forward.
type Document struct {
	SourceName string `json:"source_name"`
	Text       string `json:"text"`
}

// Chunk is a bounded slice of a document's text, the unit of embedding and retrieval.
type Chunk struct {
	ID            string    `json:"id"`
	SourceName    string    `json:"source_name"`
	SequenceIndex int       `json:"sequence_index"`
	Text          string    `json:"text"`
	Embedding     []float32 `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}

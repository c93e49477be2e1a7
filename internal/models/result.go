package models

// AskResult is the answer to one question plus the deduplicated, sorted
// source names it was drawn from. Transient; never persisted.
type AskResult struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// UploadResult reports how much of an upload batch was ingested.
type UploadResult struct {
	DocumentsProcessed int `json:"documents_processed"`
	ChunksCount        int `json:"chunks_count"`
}

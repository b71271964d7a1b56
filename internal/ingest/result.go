package ingest

import "github.com/bull/docbase/internal/document"

// Status tracks a document's progress through the pipeline.
type Status string

const (
	StatusReceived   Status = "received"
	StatusLoaded     Status = "loaded"
	StatusChunked    Status = "chunked"
	StatusStored     Status = "stored"
	StatusRegistered Status = "registered"
	StatusFailed     Status = "failed"
)

// Reason classifies why a document failed to ingest.
type Reason string

const (
	ReasonUnsupportedType Reason = "unsupported_type"
	ReasonLoadError       Reason = "load_error"
	ReasonEmbeddingError  Reason = "embedding_error"
	ReasonStoreError      Reason = "store_error"
	ReasonTimeout         Reason = "timeout"
)

// Result reports the outcome of processing one file. On success Status is
// StatusRegistered and Document holds the registered record; on failure
// Reason and Err describe what went wrong.
type Result struct {
	Filename string
	Status   Status
	Reason   Reason
	Document document.Document
	Err      error
}

// Succeeded reports whether the document made it all the way to the
// registry.
func (r Result) Succeeded() bool {
	return r.Status == StatusRegistered
}

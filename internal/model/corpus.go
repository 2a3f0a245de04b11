package model

// Chunk is a bounded slice of document text used as the unit of embedding or model input
type Chunk struct {
	Text     string `json:"text"`
	Ordinal  int    `json:"ordinal"`   // Position within the source (0-based)
	SourceID string `json:"source_id"` // Document or corpus file the chunk came from
}

// EntryMetadata describes where an indexed chunk came from
type EntryMetadata struct {
	Category     string `json:"category"`
	DocumentType string `json:"document_type"`
	SourceURL    string `json:"source_url"`
}

// IndexedEntry is one searchable record of the corpus index
type IndexedEntry struct {
	Vector   []float32     `json:"vector"`
	Chunk    Chunk         `json:"chunk"`
	Metadata EntryMetadata `json:"metadata"`
}

// CorpusRecord is one ingested reference document, as stored in the corpus metadata file
type CorpusRecord struct {
	Category     string `json:"category"`
	DocumentType string `json:"document_type"`
	SourceURL    string `json:"source_url"`
	TextFile     string `json:"text_file"`
	RawFile      string `json:"raw_file,omitempty"`
}

// Metadata returns the index metadata carried by every chunk of the record
func (r CorpusRecord) Metadata() EntryMetadata {
	return EntryMetadata{
		Category:     r.Category,
		DocumentType: r.DocumentType,
		SourceURL:    r.SourceURL,
	}
}

package domain

// Document is the raw text fetched for one source URL. It is consumed by
// chunking and never persisted whole.
type Document struct {
	URL     string
	RawText string
}

// Chunk is a bounded substring of a Document.
type Chunk struct {
	Text      string
	SourceURL string
	Index     int
	// Start is the rune offset of Text within the document.
	Start int
}

// StoredRecord is the persisted unit in a vector collection.
type StoredRecord struct {
	ID        string
	Vector    []float32
	Text      string
	SourceURL string
}

// SearchHit is a StoredRecord returned by nearest-neighbour search. Score is
// store-defined: higher is more similar.
type SearchHit struct {
	Record StoredRecord
	Score  float64
}

// HitTexts returns the record texts of hits in rank order.
func HitTexts(hits []SearchHit) []string {
	texts := make([]string, 0, len(hits))
	for _, h := range hits {
		texts = append(texts, h.Record.Text)
	}
	return texts
}

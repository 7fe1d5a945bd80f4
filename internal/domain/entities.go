package domain

import "time"

// Document is a stored text with its precomputed embedding.
// Dim always equals len(Embedding).
type Document struct {
	ID        int64
	Title     string
	Text      string
	Embedding []float32
	Dim       int
}

// NewDocument is a document that has not been embedded or stored yet.
type NewDocument struct {
	Title string
	Text  string
}

// CacheEntry maps a raw query string to its embedding.
type CacheEntry struct {
	Key       string
	Embedding []float32
	Dim       int
}

// Hit is a single ranked retrieval result.
type Hit struct {
	DocID int64   `json:"doc_id"`
	Title string  `json:"title"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Roles recorded in the conversation history.
const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// HistoryEntry is one turn of a user's conversation log.
type HistoryEntry struct {
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"ts"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
}

// Stats summarizes the persisted state.
type Stats struct {
	Documents    int
	CacheEntries int
	IndexedDocs  int
	Dimension    int
}

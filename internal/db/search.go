package db

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string // defaults to "embedding"
	PreFilter    string // raw FT query applied before KNN, "*" when empty
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit, ordered as returned by the engine.
type SearchEntry struct {
	Key    string
	Score  float64 // cosine similarity in [0,1]
	Fields map[string]string
}

// internal/engine/corpus/models.go
package corpus

// Passage is one retrieved corpus entry.
type Passage struct {
	ID         string                 `json:"id"`
	Collection string                 `json:"collection"`
	Title      string                 `json:"title,omitempty"`
	Content    string                 `json:"content"`
	Score      float64                `json:"score"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Query describes a diversity-aware top-k search.
type Query struct {
	Collection string
	Text       string
	K          int
	FetchK     int
	// Diversity in [0,1]: 0 ranks by relevance only, 1 by novelty only.
	Diversity float64
}

// SeedPassage is a document written by the corpus seeder.
type SeedPassage struct {
	ID       string                 `json:"id,omitempty" yaml:"id"`
	Title    string                 `json:"title,omitempty" yaml:"title"`
	Content  string                 `json:"content" yaml:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty" yaml:"metadata"`
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string  `json:"_id"`
			Score  float64 `json:"_score"`
			Source struct {
				Title    string                 `json:"title"`
				Content  string                 `json:"content"`
				Metadata map[string]interface{} `json:"metadata"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

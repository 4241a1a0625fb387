package models

// SearchResult is a single ranked note. It is never persisted.
type SearchResult struct {
	Title          string  `json:"title"`
	Path           string  `json:"path"`
	Score          float64 `json:"score"`
	ContentSnippet string  `json:"content_snippet"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"query_time_ms"`
	Query     string          `json:"query"`
}

// ChatResponse is the response for a chat request.
type ChatResponse struct {
	Answer    string `json:"answer"`
	QueryTime int64  `json:"query_time_ms"`
	Query     string `json:"query"`
}

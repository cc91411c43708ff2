package media

// Page is one page of keyword search results.
type Page struct {
	Items []Item
	Total int64
}

// EmbeddingQuery selects items whose stored embedding lives in one vector space.
type EmbeddingQuery struct {
	ModelVersion string
	Dimensions   int
	Type         Type // empty = any type
	ExcludeID    string
}

// TagQuery selects items sharing at least one of Tags.
type TagQuery struct {
	Tags      []string
	Type      Type // empty = any type
	ExcludeID string
	Limit     int // 0 = unlimited
}

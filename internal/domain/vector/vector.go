// Package vector holds the records stored in and returned by the vector index.
package vector

import "github.com/kailas-cloud/cinemuse/internal/domain/media"

// Metadata is mirrored next to each vector so results can be filtered and shown without the corpus.
type Metadata struct {
	Type         media.Type
	Title        string
	ReleaseYear  int
	Tags         []string
	ModelVersion string
}

// Record is one vector to upsert.
type Record struct {
	ID       string
	Vector   []float32
	Metadata Metadata
}

// RecordFromItem builds an index record from an item carrying an embedding.
func RecordFromItem(item *media.Item) Record {
	emb := item.Embedding()
	return Record{
		ID:     item.ID(),
		Vector: emb.Values(),
		Metadata: Metadata{
			Type:         item.Type(),
			Title:        item.Title(),
			ReleaseYear:  item.ReleaseYear(),
			Tags:         item.TagNames(),
			ModelVersion: emb.ModelVersion(),
		},
	}
}

// Match is one kNN hit; Score is cosine similarity in [0,1].
type Match struct {
	ID       string
	Score    float64
	Metadata Metadata
}

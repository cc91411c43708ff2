package media

// Embedding is the stored vector of an item together with the model that produced it.
type Embedding struct {
	values       []float32
	modelVersion string
}

// NewEmbedding creates an embedding value.
func NewEmbedding(values []float32, modelVersion string) Embedding {
	return Embedding{values: values, modelVersion: modelVersion}
}

// Values returns the vector components.
func (e Embedding) Values() []float32 { return e.values }

// ModelVersion returns the model identifier the vector belongs to.
func (e Embedding) ModelVersion() string { return e.modelVersion }

// Dimensions returns the vector length.
func (e Embedding) Dimensions() int { return len(e.values) }

// Empty reports whether no vector is stored.
func (e Embedding) Empty() bool { return len(e.values) == 0 }

// UsableWith reports whether the embedding is non-empty and lives in the given model's space.
// An embedding from another model version counts as no embedding at all.
func (e Embedding) UsableWith(modelVersion string) bool {
	return !e.Empty() && e.modelVersion == modelVersion
}

// Comparable reports whether two embeddings can be scored against each other.
func (e Embedding) Comparable(other Embedding) bool {
	return !e.Empty() && e.modelVersion == other.modelVersion && len(e.values) == len(other.values)
}

// Package embedding maps paper text to fixed-length vectors.
package embedding

// Embedding represents a vector embedding of text.
type Embedding struct {
	Vector []float32 // e.g. 384 dimensions for all-minilm
}

// Dimensions returns the dimensionality of the embedding.
func (e Embedding) Dimensions() int {
	return len(e.Vector)
}

// IsZero reports whether the vector is empty or all zeros.
func (e Embedding) IsZero() bool {
	for _, v := range e.Vector {
		if v != 0 {
			return false
		}
	}
	return true
}

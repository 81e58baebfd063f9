// ABOUTME: Core data models for catalog books, ranked recommendations, and embedding snapshots.
// ABOUTME: Provides the shared types passed between catalog, embeddings, recommend, and API layers.
package models

import (
	"strings"
)

// Book is a single catalog item. Books are immutable once the catalog is loaded.
type Book struct {
	ID          int     `json:"id" yaml:"id"`
	Title       string  `json:"title" yaml:"title"`
	Author      string  `json:"author" yaml:"author"`
	Genre       string  `json:"genre" yaml:"genre"`
	Description string  `json:"description" yaml:"description"`
	Rating      float64 `json:"rating" yaml:"rating"`
	Year        int     `json:"year" yaml:"year"`
}

// Text returns the descriptive text used to embed a book.
func (b Book) Text() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{b.Title, b.Author, b.Genre, b.Description} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Recommendation pairs a book with its similarity to a query.
// The book fields are flattened into the JSON object.
type Recommendation struct {
	Book
	SimilarityScore float64 `json:"similarity_score"`
}

// SnapshotRow is one persisted catalog embedding.
type SnapshotRow struct {
	ID       int       `json:"id"`
	Checksum string    `json:"checksum"` // sha256 of the embedded text
	Vector   []float32 `json:"vector"`
}

// Snapshot is the on-disk form of a catalog embedding matrix.
type Snapshot struct {
	Model     string        `json:"model"`
	Dimension int           `json:"dimension"`
	CreatedAt int64         `json:"created_at"`
	Rows      []SnapshotRow `json:"rows"`
}

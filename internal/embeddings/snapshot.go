// ABOUTME: Sidecar file holding a catalog's embedding matrix between restarts.
// ABOUTME: A snapshot is reused only when model, dimension, and every row checksum match.
package embeddings

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/2389-research/bookrec/internal/models"
)

// TextChecksum returns the hex sha256 of an embedded text.
func TextChecksum(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// WriteSnapshot persists vectors for books, index-aligned, next to the
// catalog so the next start can skip embedding.
func WriteSnapshot(path, model string, books []models.Book, vectors [][]float32) error {
	if len(books) != len(vectors) || len(vectors) == 0 {
		return fmt.Errorf("snapshot: %d books but %d vectors", len(books), len(vectors))
	}
	snap := models.Snapshot{
		Model:     model,
		Dimension: len(vectors[0]),
		CreatedAt: time.Now().Unix(),
		Rows:      make([]models.SnapshotRow, len(books)),
	}
	for i, b := range books {
		snap.Rows[i] = models.SnapshotRow{
			ID:       b.ID,
			Checksum: TextChecksum(b.Text()),
			Vector:   vectors[i],
		}
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return atomicWrite(path, data)
}

// ReadSnapshot returns the stored vectors when the snapshot at path matches
// model and books exactly. ok is false for a missing or stale snapshot.
func ReadSnapshot(path, model string, books []models.Book) (vectors [][]float32, ok bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false, nil
	}
	if snap.Model != model || len(snap.Rows) != len(books) || snap.Dimension <= 0 {
		return nil, false, nil
	}

	vectors = make([][]float32, len(books))
	for i, b := range books {
		row := snap.Rows[i]
		if row.ID != b.ID || row.Checksum != TextChecksum(b.Text()) || len(row.Vector) != snap.Dimension {
			return nil, false, nil
		}
		vectors[i] = row.Vector
	}
	return vectors, true, nil
}

// atomicWrite writes data to a temp file in the target directory and renames it into place.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

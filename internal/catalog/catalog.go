// ABOUTME: Immutable book catalog with YAML file loading and genre enumeration.
// ABOUTME: The catalog is loaded once at startup and never mutated afterwards.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/2389-research/bookrec/internal/models"
)

var (
	// ErrEmptyCatalog is returned when a catalog has no books.
	ErrEmptyCatalog = errors.New("catalog has no books")
	// ErrDuplicateID is returned when two books share an id.
	ErrDuplicateID = errors.New("duplicate book id")
)

// Catalog is an ordered, read-only collection of books.
type Catalog struct {
	items []models.Book
}

// catalogFile is the YAML layout of a catalog file.
type catalogFile struct {
	Books []models.Book `yaml:"books"`
}

// New validates books and returns a catalog that preserves their order.
func New(books []models.Book) (*Catalog, error) {
	if len(books) == 0 {
		return nil, ErrEmptyCatalog
	}
	seen := make(map[int]struct{}, len(books))
	for i, b := range books {
		if b.ID <= 0 {
			return nil, fmt.Errorf("book %d: id must be positive, got %d", i, b.ID)
		}
		if strings.TrimSpace(b.Title) == "" {
			return nil, fmt.Errorf("book %d: title is required", b.ID)
		}
		if _, ok := seen[b.ID]; ok {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, b.ID)
		}
		seen[b.ID] = struct{}{}
	}
	items := make([]models.Book, len(books))
	copy(items, books)
	return &Catalog{items: items}, nil
}

// LoadFile reads a YAML catalog file with a top-level "books" list.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	return New(f.Books)
}

// Load returns the catalog at path, or the built-in catalog when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return New(Builtin())
	}
	return LoadFile(path)
}

// Items returns a copy of the books in catalog order.
func (c *Catalog) Items() []models.Book {
	out := make([]models.Book, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of books.
func (c *Catalog) Len() int {
	return len(c.items)
}

// Genres returns the distinct genres, sorted so output is stable.
func (c *Catalog) Genres() []string {
	set := make(map[string]struct{})
	for _, b := range c.items {
		set[b.Genre] = struct{}{}
	}
	genres := make([]string, 0, len(set))
	for g := range set {
		genres = append(genres, g)
	}
	sort.Strings(genres)
	return genres
}

// Filter returns the books matching f, in catalog order.
func (c *Catalog) Filter(f Filter) []models.Book {
	out := make([]models.Book, 0, len(c.items))
	for _, b := range c.items {
		if f.Match(b) {
			out = append(out, b)
		}
	}
	return out
}

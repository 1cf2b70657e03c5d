package search

import (
	"fmt"
	"os"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/stacksregistry/registry-server/internal/domain"
)

// DescriptionIndex is a Bleve full-text index over library descriptions. It
// powers the third search group: queries like "books by mail" that name
// neither a library nor a place.
//
// All public methods are safe for concurrent use; the mutex protects the
// index during rebuilds.
type DescriptionIndex struct {
	index bleve.Index
	path  string
	mu    sync.RWMutex
}

// descriptionDocument is what gets indexed per library.
type descriptionDocument struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	idField := bleve.NewTextFieldMapping()
	idField.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idField)

	nameField := bleve.NewTextFieldMapping()
	nameField.Analyzer = en.AnalyzerName
	nameField.Store = true
	docMapping.AddFieldMappingsAt("name", nameField)

	descField := bleve.NewTextFieldMapping()
	descField.Analyzer = en.AnalyzerName
	descField.Store = false
	docMapping.AddFieldMappingsAt("description", descField)

	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}

// NewDescriptionIndex creates or opens a description index at path. An empty
// path builds an in-memory index, which is what tests and small deployments
// use.
func NewDescriptionIndex(path string) (*DescriptionIndex, error) {
	if path == "" {
		index, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create in-memory index: %w", err)
		}
		return &DescriptionIndex{index: index}, nil
	}

	index, err := bleve.Open(path)
	if err != nil {
		// A missing or unreadable index is rebuilt from scratch; the store
		// remains the source of truth.
		if removeErr := os.RemoveAll(path); removeErr != nil {
			return nil, fmt.Errorf("remove old index: %w", removeErr)
		}
		index, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	}
	return &DescriptionIndex{index: index, path: path}, nil
}

// Close releases the index.
func (d *DescriptionIndex) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.index.Close()
}

// IndexLibraries (re)indexes the given libraries in one batch.
func (d *DescriptionIndex) IndexLibraries(libraries []*domain.Library) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	batch := d.index.NewBatch()
	for _, lib := range libraries {
		doc := descriptionDocument{ID: lib.ID, Name: lib.Name, Description: lib.Description}
		if err := batch.Index(lib.ID, doc); err != nil {
			return fmt.Errorf("batch index %s: %w", lib.ID, err)
		}
	}
	return d.index.Batch(batch)
}

// DocumentCount returns the number of indexed libraries.
func (d *DescriptionIndex) DocumentCount() (uint64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.index.DocCount()
}

// DeleteLibrary removes a library from the index.
func (d *DescriptionIndex) DeleteLibrary(id string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.index.Delete(id)
}

// MatchDescriptions returns the IDs of up to limit libraries whose
// description matches the query, best first.
func (d *DescriptionIndex) MatchDescriptions(query string, limit int) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	match := bleve.NewMatchQuery(query)
	match.SetField("description")

	request := bleve.NewSearchRequestOptions(match, limit, 0, false)
	result, err := d.index.Search(request)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

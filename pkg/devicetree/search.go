package devicetree

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/dd0wney/cluso-noc/pkg/logging"
)

const defaultSearchLimit = 20

type searchDoc struct {
	Title string `json:"title"`
	Path  string `json:"path"`
	Kind  string `json:"kind"`
}

func (x *Index) searchDocLocked(key string) searchDoc {
	n := x.nodes[key]
	return searchDoc{
		Title: n.Title,
		Path:  joinTitles(x.paths[key]),
		Kind:  string(n.Kind),
	}
}

func newSearchIndex() (bleve.Index, error) {
	mapping := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	text := bleve.NewTextFieldMapping()
	docMapping.AddFieldMappingsAt("title", text)
	docMapping.AddFieldMappingsAt("path", text)
	docMapping.AddFieldMappingsAt("kind", bleve.NewKeywordFieldMapping())
	mapping.DefaultMapping = docMapping

	return bleve.NewMemOnly(mapping)
}

// rebuildSearchLocked replaces the search index with one built from the
// current nodes.
func (x *Index) rebuildSearchLocked() error {
	idx, err := newSearchIndex()
	if err != nil {
		return fmt.Errorf("create search index: %w", err)
	}

	batch := idx.NewBatch()
	for _, key := range x.order {
		if err := batch.Index(key, x.searchDocLocked(key)); err != nil {
			_ = idx.Close()
			return fmt.Errorf("index %s: %w", key, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return fmt.Errorf("apply batch: %w", err)
	}

	if x.search != nil {
		_ = x.search.Close()
	}
	x.search = idx
	return nil
}

// reindexLocked refreshes the search documents of keys in one batch.
func (x *Index) reindexLocked(keys []string) error {
	batch := x.search.NewBatch()
	for _, key := range keys {
		if err := batch.Index(key, x.searchDocLocked(key)); err != nil {
			return fmt.Errorf("index %s: %w", key, err)
		}
	}
	return x.search.Batch(batch)
}

// Search finds tree nodes whose title or breadcrumb matches every term of
// query. Terms match as prefixes or with an edit distance of one.
func (x *Index) Search(query string, limit int) ([]TreeNode, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.search == nil {
		return nil, nil
	}

	conjuncts := make([]bleveQuery.Query, 0, len(terms))
	for _, term := range terms {
		fuzzy := bleveQuery.NewMatchQuery(term)
		fuzzy.SetFuzziness(1)
		prefix := bleveQuery.NewPrefixQuery(term)
		conjuncts = append(conjuncts, bleveQuery.NewDisjunctionQuery([]bleveQuery.Query{fuzzy, prefix}))
	}

	req := bleve.NewSearchRequest(bleveQuery.NewConjunctionQuery(conjuncts))
	req.Size = limit

	res, err := x.search.Search(req)
	if err != nil {
		return nil, fmt.Errorf("tree search: %w", err)
	}

	out := make([]TreeNode, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if n, ok := x.nodes[hit.ID]; ok {
			out = append(out, n)
		}
	}
	x.logger.Debug("tree search", logging.String("query", query), logging.Count(len(out)))
	return out, nil
}

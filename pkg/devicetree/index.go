package devicetree

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/mkmik/multierror"

	"github.com/dd0wney/cluso-noc/pkg/logging"
)

// Index is the flattened, searchable form of the device tree.
type Index struct {
	mu       sync.RWMutex
	nodes    map[string]TreeNode
	order    []string
	children map[string][]string
	byMapID  map[string]string
	// paths remembers the last complete breadcrumb per leaf so a leaf whose
	// ancestors are temporarily missing keeps its previous path.
	paths  map[string]BranchPath
	search bleve.Index
	logger logging.Logger
}

// NewIndex creates an empty index. A nil logger discards output.
func NewIndex(logger logging.Logger) *Index {
	return &Index{
		nodes:    make(map[string]TreeNode),
		children: make(map[string][]string),
		byMapID:  make(map[string]string),
		paths:    make(map[string]BranchPath),
		logger:   logging.OrNop(logger).With(logging.Component("devicetree")),
	}
}

// Load replaces the index contents. Input may be nested through Children,
// flat through ParentKey, or a mix of both. On error the previous contents
// are kept.
func (x *Index) Load(roots []TreeNode) error {
	nodes := make(map[string]TreeNode)
	var order []string
	var problems []error

	var flatten func(n TreeNode, parent string)
	flatten = func(n TreeNode, parent string) {
		if n.ParentKey == "" {
			n.ParentKey = parent
		}
		kids := n.Children
		n.Children = nil

		switch {
		case n.Key == "":
			problems = append(problems, fmt.Errorf("node %q has no key", n.Title))
			return
		case nodes[n.Key].Key != "":
			problems = append(problems, fmt.Errorf("duplicate key %s", n.Key))
			return
		case n.IsLeaf && n.MapID == "":
			problems = append(problems, fmt.Errorf("leaf %s has no map id", n.Key))
		case n.IsLeaf && len(kids) > 0:
			problems = append(problems, fmt.Errorf("leaf %s has children", n.Key))
		case !n.IsLeaf && n.MapID != "":
			problems = append(problems, fmt.Errorf("branch %s carries map id %s", n.Key, n.MapID))
		}

		nodes[n.Key] = n
		order = append(order, n.Key)
		for _, c := range kids {
			flatten(c, n.Key)
		}
	}
	for _, r := range roots {
		flatten(r, "")
	}

	byMapID := make(map[string]string)
	for _, key := range order {
		n := nodes[key]
		if !n.IsLeaf || n.MapID == "" {
			continue
		}
		if other, dup := byMapID[n.MapID]; dup {
			problems = append(problems, fmt.Errorf("map %s is owned by both %s and %s", n.MapID, other, key))
			continue
		}
		byMapID[n.MapID] = key
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidTree, multierror.Join(problems))
	}

	children := make(map[string][]string)
	for _, key := range order {
		p := nodes[key].ParentKey
		children[p] = append(children[p], key)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	x.nodes = nodes
	x.order = order
	x.children = children
	x.byMapID = byMapID
	for _, key := range order {
		if nodes[key].IsLeaf {
			x.pathLocked(key)
		}
	}

	if err := x.rebuildSearchLocked(); err != nil {
		x.logger.Warn("tree search index rebuild failed", logging.Error(err))
	}

	x.logger.Debug("device tree loaded", logging.Count(len(order)))
	return nil
}

// Len returns the number of indexed tree nodes.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.order)
}

// Node returns any tree node by key.
func (x *Index) Node(key string) (TreeNode, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	n, ok := x.nodes[key]
	return n, ok
}

// Leaf returns the leaf with the given key.
func (x *Index) Leaf(key string) (TreeNode, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	n, ok := x.nodes[key]
	if !ok {
		return TreeNode{}, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if !n.IsLeaf {
		return TreeNode{}, fmt.Errorf("%w: %s", ErrNotLeaf, key)
	}
	return n, nil
}

// LeafByMapID returns the leaf that owns mapID.
func (x *Index) LeafByMapID(mapID string) (TreeNode, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	key, ok := x.byMapID[mapID]
	if !ok {
		return TreeNode{}, false
	}
	return x.nodes[key], true
}

// Children returns the direct children of key in input order.
func (x *Index) Children(key string) []TreeNode {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.collect(x.children[key])
}

// Roots returns the top-level nodes.
func (x *Index) Roots() []TreeNode {
	return x.Children("")
}

// Leaves returns every leaf in input order.
func (x *Index) Leaves() []TreeNode {
	x.mu.RLock()
	defer x.mu.RUnlock()

	var out []TreeNode
	for _, key := range x.order {
		if n := x.nodes[key]; n.IsLeaf {
			out = append(out, n)
		}
	}
	return out
}

// Tree rebuilds the nested form of the index.
func (x *Index) Tree() []TreeNode {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.nest("", make(map[string]bool))
}

func (x *Index) nest(parent string, seen map[string]bool) []TreeNode {
	keys := x.children[parent]
	if len(keys) == 0 {
		return nil
	}
	out := make([]TreeNode, 0, len(keys))
	for _, key := range keys {
		if seen[key] {
			continue
		}
		seen[key] = true
		n := x.nodes[key]
		n.Children = x.nest(key, seen)
		out = append(out, n)
	}
	return out
}

func (x *Index) collect(keys []string) []TreeNode {
	out := make([]TreeNode, 0, len(keys))
	for _, key := range keys {
		out = append(out, x.nodes[key])
	}
	return out
}

// FindPath returns the ancestors of leafKey from the root down. When the
// chain cannot be completed, the previously computed path for the leaf is
// returned instead, or nil if there is none.
func (x *Index) FindPath(leafKey string) BranchPath {
	x.mu.Lock()
	defer x.mu.Unlock()
	return slices.Clone(x.pathLocked(leafKey))
}

func (x *Index) pathLocked(leafKey string) BranchPath {
	leaf, ok := x.nodes[leafKey]
	if !ok {
		return x.paths[leafKey]
	}

	var path BranchPath
	seen := map[string]bool{leafKey: true}
	parent := leaf.ParentKey
	for parent != "" {
		n, ok := x.nodes[parent]
		if !ok || seen[parent] {
			return x.paths[leafKey]
		}
		seen[parent] = true
		path = append(path, PathEntry{Key: n.Key, Title: n.Title})
		parent = n.ParentKey
	}

	slices.Reverse(path)
	x.paths[leafKey] = path
	return path
}

// Rename changes only the title of a tree node.
func (x *Index) Rename(key, title string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	n, ok := x.nodes[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	n.Title = title
	x.nodes[key] = n

	stale := []string{key}
	for leaf, path := range x.paths {
		for i := range path {
			if path[i].Key == key {
				path[i].Title = title
				if _, live := x.nodes[leaf]; live {
					stale = append(stale, leaf)
				}
			}
		}
		x.paths[leaf] = path
	}

	if x.search != nil {
		if err := x.reindexLocked(stale); err != nil {
			x.logger.Warn("tree search reindex failed", logging.LeafKey(key), logging.Error(err))
		}
	}
	return nil
}

// Close releases the search index.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.search == nil {
		return nil
	}
	err := x.search.Close()
	x.search = nil
	return err
}

func joinTitles(path BranchPath) string {
	return strings.Join(path.Titles(), " / ")
}

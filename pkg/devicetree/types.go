// Package devicetree indexes the operator's device hierarchy
// (business unit, station, map) and resolves leaves to diagram documents.
package devicetree

import (
	"errors"

	"github.com/dd0wney/cluso-noc/pkg/graph"
)

var (
	ErrUnknownKey  = errors.New("unknown tree key")
	ErrNotLeaf     = errors.New("tree node is not a leaf")
	ErrInvalidTree = errors.New("invalid device tree")
)

// TreeNode is one entry of the device hierarchy. Leaves resolve to exactly
// one document through MapID; branches are pure grouping.
type TreeNode struct {
	Key       string             `json:"key" yaml:"key"`
	Title     string             `json:"title" yaml:"title"`
	ParentKey string             `json:"parentKey,omitempty" yaml:"parentKey,omitempty"`
	IsLeaf    bool               `json:"isLeaf" yaml:"isLeaf"`
	MapID     string             `json:"mapId,omitempty" yaml:"mapId,omitempty"`
	Kind      graph.DocumentKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	Children  []TreeNode         `json:"children,omitempty" yaml:"children,omitempty"`
}

// PathEntry is one ancestor in a breadcrumb.
type PathEntry struct {
	Key   string `json:"key"`
	Title string `json:"title"`
}

// BranchPath lists a leaf's ancestors from the root down.
type BranchPath []PathEntry

// Titles returns the ancestor titles in order.
func (p BranchPath) Titles() []string {
	out := make([]string, len(p))
	for i, e := range p {
		out[i] = e.Title
	}
	return out
}

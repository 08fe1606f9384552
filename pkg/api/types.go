package api

import (
	"github.com/dd0wney/cluso-noc/pkg/devicetree"
	"github.com/dd0wney/cluso-noc/pkg/graph"
	"github.com/dd0wney/cluso-noc/pkg/session"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Code      int    `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

// TreeResponse carries the nested device tree.
type TreeResponse struct {
	Status session.Status        `json:"status"`
	Roots  []devicetree.TreeNode `json:"roots"`
}

// SearchResponse carries tree search hits.
type SearchResponse struct {
	Query   string                `json:"query"`
	Results []devicetree.TreeNode `json:"results"`
}

// NodeCreatedResponse is returned when a node is added to the working copy.
type NodeCreatedResponse struct {
	Node  *graph.Node   `json:"node"`
	State session.State `json:"state"`
}

// EdgeCreatedResponse is returned when two nodes are connected.
type EdgeCreatedResponse struct {
	EdgeID graph.EdgeID  `json:"edgeId"`
	State  session.State `json:"state"`
}

// MapCreatedResponse is returned when a new leaf and document are created.
type MapCreatedResponse struct {
	Leaf  devicetree.TreeNode `json:"leaf"`
	State session.State       `json:"state"`
}

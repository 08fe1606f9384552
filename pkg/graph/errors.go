package graph

import "errors"

var (
	ErrInvalidDeviceKey = errors.New("invalid device key")
	ErrDanglingEdge     = errors.New("dangling edge")
	ErrDuplicateNode    = errors.New("duplicate node id")
	ErrDuplicateEdge    = errors.New("duplicate edge id")
	ErrEdgeNotAllowed   = errors.New("edges are only allowed on topology documents")
	ErrIllegalMutation  = errors.New("illegal store mutation")
	ErrNotLoaded        = errors.New("no document loaded")
	ErrUnknownNode      = errors.New("unknown node")
	ErrUnknownEdge      = errors.New("unknown edge")
)

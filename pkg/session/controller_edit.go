package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dd0wney/cluso-noc/pkg/backend"
	"github.com/dd0wney/cluso-noc/pkg/devicetree"
	"github.com/dd0wney/cluso-noc/pkg/graph"
	"github.com/dd0wney/cluso-noc/pkg/layout"
	"github.com/dd0wney/cluso-noc/pkg/logging"
	"github.com/dd0wney/cluso-noc/pkg/nodefactory"
	"github.com/dd0wney/cluso-noc/pkg/overlay"
	"github.com/dd0wney/cluso-noc/pkg/selection"
)

func (c *Controller) transitionLocked(from, to graph.Mode, trigger string) {
	c.metrics.RecordTransition(from.String(), to.String(), trigger)
	c.metrics.SetMode(to.String())
	c.logger.Info("mode changed",
		logging.MapID(c.session.MapID), logging.String("from", from.String()),
		logging.String("to", to.String()), logging.Operation(trigger))
}

// EnterEdit takes a working copy of the open document and stops overlay
// polling until the session returns to view mode.
func (c *Controller) EnterEdit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.docStatus != StatusReady || !c.store.Loaded() {
		err := fmt.Errorf("%w: document is %s", ErrNoDocument, c.docStatus)
		c.rejectLocked("enter_edit", err)
		return err
	}
	if c.deleting != "" && c.deleting == c.leafKey {
		c.rejectLocked("enter_edit", ErrDeleteInProgress)
		return ErrDeleteInProgress
	}
	next, err := EnterEdit(c.session, c.store.Snapshot())
	if err != nil {
		c.rejectLocked("enter_edit", err)
		return err
	}

	c.stopPollingLocked()
	c.bumpLocked()
	c.session = next
	c.transitionLocked(graph.ModeView, graph.ModeEdit, "enter_edit")
	c.publishLocked(EventMode)
	return nil
}

// Save persists the working copy. On success the session returns to view
// mode and the document is refetched with its overlay; a failed refetch is
// reported through State rather than as a save error. On failure the
// session stays in edit mode with the working copy intact.
func (c *Controller) Save(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.saving {
		c.rejectLocked("save", ErrSaveInProgress)
		c.mu.Unlock()
		return ErrSaveInProgress
	}
	doc, err := Save(c.session)
	if err != nil {
		c.rejectLocked("save", err)
		c.mu.Unlock()
		return err
	}
	c.saving = true
	gen := c.gen
	mapID := c.session.MapID
	c.publishLocked(EventWorking)
	c.mu.Unlock()

	start := time.Now()
	timer := logging.StartTimer(c.logger, "save document", logging.MapID(mapID), logging.Count(len(doc.Nodes)))
	saveErr := c.backend.SaveDocument(ctx, doc)
	if saveErr != nil {
		timer.EndError(saveErr)
		c.metrics.RecordSave("error", time.Since(start))
	} else {
		timer.End()
		c.metrics.RecordSave("ok", time.Since(start))
	}

	c.mu.Lock()
	if gen != c.gen || c.closed {
		c.metrics.RecordStale("save")
		c.mu.Unlock()
		if saveErr != nil {
			return fmt.Errorf("%w: %w", ErrSaveFailed, saveErr)
		}
		return ErrSuperseded
	}
	c.saving = false
	next, err := CompleteSave(c.session, saveErr)
	if err != nil {
		c.lastErr = err
		c.publishLocked(EventError)
		c.mu.Unlock()
		return err
	}
	c.session = next
	c.transitionLocked(graph.ModeEdit, graph.ModeView, "save")
	gen = c.beginLoadLocked()
	c.mu.Unlock()

	if err := c.load(ctx, gen, mapID, "save", true); err != nil && !errors.Is(err, ErrSuperseded) {
		c.logger.Warn("refetch after save failed", logging.MapID(mapID), logging.Error(err))
	}
	return nil
}

// Cancel discards the working copy and refetches the document. The session
// is in view mode whether or not the refetch succeeds; on failure the
// document from before the edit stays on screen.
func (c *Controller) Cancel(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.saving {
		c.rejectLocked("cancel", ErrSaveInProgress)
		c.mu.Unlock()
		return ErrSaveInProgress
	}
	next, err := Cancel(c.session)
	if err != nil {
		c.rejectLocked("cancel", err)
		c.mu.Unlock()
		return err
	}
	mapID := c.session.MapID
	c.session = next
	c.transitionLocked(graph.ModeEdit, graph.ModeView, "cancel")
	gen := c.beginLoadLocked()
	c.mu.Unlock()

	return c.load(ctx, gen, mapID, "cancel", true)
}

// mutate applies fn to the session under the lock, refusing while a save is
// in flight.
func (c *Controller) mutate(action string, fn func(EditSession) (EditSession, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.saving {
		c.rejectLocked(action, ErrSaveInProgress)
		return ErrSaveInProgress
	}
	next, err := fn(c.session)
	if err != nil {
		c.rejectLocked(action, err)
		return err
	}
	c.session = next
	c.publishLocked(EventWorking)
	return nil
}

// MoveNode drags a node on the working copy.
func (c *Controller) MoveNode(id graph.NodeID, pos graph.Position) error {
	return c.mutate("move", func(s EditSession) (EditSession, error) {
		return MoveNode(s, id, pos)
	})
}

// ResizeNode resizes a section on the working copy.
func (c *Controller) ResizeNode(id graph.NodeID, size graph.Size) error {
	return c.mutate("resize", func(s EditSession) (EditSession, error) {
		return ResizeNode(s, id, size)
	})
}

// Connect links two topology nodes and returns the new edge's id.
func (c *Controller) Connect(spec ConnectSpec) (graph.EdgeID, error) {
	var id graph.EdgeID
	err := c.mutate("connect", func(s EditSession) (EditSession, error) {
		next, err := Connect(s, spec)
		id = next.Selection.EdgeID
		return next, err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// UpdateEdgeStyle restyles an edge on the working copy.
func (c *Controller) UpdateEdgeStyle(id graph.EdgeID, style graph.EdgeStyle, animated *bool) error {
	return c.mutate("edge_style", func(s EditSession) (EditSession, error) {
		return UpdateEdgeStyle(s, id, style, animated)
	})
}

// RemoveSelected deletes the selection from the working copy.
func (c *Controller) RemoveSelected() error {
	return c.mutate("remove", RemoveSelected)
}

// AddDeviceNode places a catalog device on the working copy with the
// variant its document kind calls for, and selects it.
func (c *Controller) AddDeviceNode(ctx context.Context, typeID string, key graph.DeviceKey) (*graph.Node, error) {
	dev, err := c.factory.Device(ctx, typeID, key)
	if err != nil {
		return nil, err
	}
	var created *graph.Node
	err = c.mutate("add_device", func(s EditSession) (EditSession, error) {
		if !s.Editing() {
			return s, ErrNotEditing
		}
		n, err := c.factory.CreateDeviceNode(s.Working.Kind, s.Working.Nodes, nodefactory.SpecFromDevice(dev))
		if err != nil {
			return s, err
		}
		created = n
		return AddNode(s, n)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// AddFrameNode places a section or rack frame on the working copy.
func (c *Controller) AddFrameNode(kind nodefactory.FrameKind, label string) (*graph.Node, error) {
	var created *graph.Node
	err := c.mutate("add_frame", func(s EditSession) (EditSession, error) {
		if !s.Editing() {
			return s, ErrNotEditing
		}
		n, err := c.factory.CreateFrameNode(s.Working.Kind, s.Working.Nodes, kind, label)
		if err != nil {
			return s, err
		}
		created = n
		return AddNode(s, n)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// AddDisplayNode places a decorative device image in a rack.
func (c *Controller) AddDisplayNode(ctx context.Context, typeID, imageID string) (*graph.Node, error) {
	images, err := c.factory.ImageCatalog(ctx, typeID)
	if err != nil {
		return nil, err
	}
	var img *backend.DeviceImage
	for i := range images {
		if images[i].ID == imageID {
			img = &images[i]
			break
		}
	}
	if img == nil {
		return nil, fmt.Errorf("%w: image %s of type %s", backend.ErrNotFound, imageID, typeID)
	}

	var created *graph.Node
	err = c.mutate("add_display", func(s EditSession) (EditSession, error) {
		if !s.Editing() {
			return s, ErrNotEditing
		}
		n, err := c.factory.CreateDisplayNode(s.Working.Kind, s.Working.Nodes, *img)
		if err != nil {
			return s, err
		}
		created = n
		return AddNode(s, n)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// AutoLayout repositions the device nodes of a topology working copy.
func (c *Controller) AutoLayout(alg layout.Algorithm) error {
	l, err := layout.New(alg, c.layoutCfg)
	if err != nil {
		return err
	}
	return c.mutate("layout", func(s EditSession) (EditSession, error) {
		if !s.Editing() {
			return s, ErrNotEditing
		}
		if !s.Working.Kind.HasEdges() {
			return s, fmt.Errorf("%w: %s", ErrLayoutUnsupported, s.Working.Kind)
		}
		var ids []graph.NodeID
		for _, n := range s.Working.Nodes {
			if n.IsDeviceBacked() {
				ids = append(ids, n.ID)
			}
		}
		return ApplyPositions(s, l.Compute(ids, s.Working.Edges))
	})
}

func (c *Controller) lookupLocked() selection.Lookup {
	if c.session.Editing() {
		return selection.DocumentLookup(c.session.Working)
	}
	return c.store
}

type selectFunc func(selection.State, graph.Mode, selection.Lookup) (selection.State, error)

func (c *Controller) selectWith(action string, fn selectFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.session.MapID == "" {
		c.rejectLocked(action, ErrNoDocument)
		return ErrNoDocument
	}
	sel, err := fn(c.session.Selection, c.session.Mode, c.lookupLocked())
	if err != nil {
		c.rejectLocked(action, err)
		return err
	}
	c.session = WithSelection(c.session, sel)
	c.publishLocked(EventSelection)
	return nil
}

// SelectNode selects a node. Additive selection is an edit-mode feature.
func (c *Controller) SelectNode(id graph.NodeID, additive bool) error {
	return c.selectWith("select_node", func(s selection.State, m graph.Mode, l selection.Lookup) (selection.State, error) {
		return c.selector.SelectNode(s, m, l, id, additive)
	})
}

// SelectNodes replaces the selection with a marquee result.
func (c *Controller) SelectNodes(ids []graph.NodeID) error {
	return c.selectWith("select_nodes", func(s selection.State, m graph.Mode, l selection.Lookup) (selection.State, error) {
		return c.selector.SelectNodes(s, m, l, ids)
	})
}

// SelectEdge selects an edge, clearing any node selection.
func (c *Controller) SelectEdge(id graph.EdgeID) error {
	return c.selectWith("select_edge", func(s selection.State, m graph.Mode, l selection.Lookup) (selection.State, error) {
		return c.selector.SelectEdge(s, m, l, id)
	})
}

// SelectDevice selects the node showing a device, as the event list does
// when an operator picks a fault.
func (c *Controller) SelectDevice(key graph.DeviceKey) error {
	return c.selectWith("select_device", func(s selection.State, m graph.Mode, l selection.Lookup) (selection.State, error) {
		for _, n := range c.nodesLocked() {
			if n.IsDeviceBacked() && n.DeviceKey() == key {
				return c.selector.SelectNode(s, m, l, n.ID, false)
			}
		}
		return s, fmt.Errorf("%w: device %s", graph.ErrUnknownNode, key)
	})
}

// ClearSelection empties the selection.
func (c *Controller) ClearSelection() error {
	return c.selectWith("clear_selection", func(selection.State, graph.Mode, selection.Lookup) (selection.State, error) {
		return c.selector.Clear(), nil
	})
}

func (c *Controller) nodesLocked() []*graph.Node {
	if c.session.Editing() {
		return c.session.Working.Nodes
	}
	return c.store.Nodes()
}

// CreateDocument adds an empty document under parentKey and reloads the
// tree so the new leaf can be selected.
func (c *Controller) CreateDocument(ctx context.Context, parentKey, name string, kind graph.DocumentKind) (devicetree.TreeNode, error) {
	leaf, err := c.backend.CreateDocument(ctx, parentKey, name, kind)
	if err != nil {
		return devicetree.TreeNode{}, err
	}
	c.logger.Info("document created", logging.LeafKey(leaf.Key), logging.MapID(leaf.MapID))
	if err := c.LoadTree(ctx); err != nil {
		return leaf, fmt.Errorf("reload tree after create: %w", err)
	}
	return leaf, nil
}

// RenameDocument renames a leaf's document. Only the title changes; the
// breadcrumb of an open document follows.
func (c *Controller) RenameDocument(ctx context.Context, key, name string) error {
	leaf, err := c.tree.Leaf(key)
	if err != nil {
		return err
	}
	if err := c.backend.RenameDocument(ctx, leaf.MapID, name); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.tree.Rename(key, name); err != nil {
		return err
	}
	c.publishLocked(EventTree)
	return nil
}

// DeleteDocument removes a leaf's document. The open document cannot be
// deleted while it is being edited, and cannot enter edit mode while its
// delete is in flight.
func (c *Controller) DeleteDocument(ctx context.Context, key string) error {
	c.mu.Lock()
	leaf, err := c.tree.Leaf(key)
	if err == nil {
		switch {
		case key == c.leafKey && c.session.Mode == graph.ModeEdit:
			err = ErrDeleteWhileEditing
		case key == c.deleting:
			err = ErrDeleteInProgress
		}
		if err != nil {
			c.rejectLocked("delete", err)
		}
	}
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if key == c.leafKey {
		c.deleting = key
	}
	c.mu.Unlock()

	err = c.backend.DeleteDocument(ctx, leaf.MapID)

	c.mu.Lock()
	if c.deleting == key {
		c.deleting = ""
	}
	if err == nil && c.leafKey == key {
		c.closeDocumentLocked()
	}
	c.mu.Unlock()
	if err != nil {
		return err
	}

	c.logger.Info("document deleted", logging.LeafKey(key), logging.MapID(leaf.MapID))
	return c.LoadTree(ctx)
}

// closeDocumentLocked returns the controller to having no open document.
func (c *Controller) closeDocumentLocked() {
	if c.session.Mode == graph.ModeEdit {
		c.transitionLocked(graph.ModeEdit, graph.ModeView, "close")
	}
	c.stopPollingLocked()
	c.bumpLocked()
	c.store.Clear()
	c.session = EditSession{Mode: graph.ModeView}
	c.saving = false
	c.leafKey = ""
	c.kind = ""
	c.perMap = 0
	c.integrity = nil
	c.docStatus = StatusIdle
	c.summary = overlay.Summary{}
	c.publishLocked(EventDocument)
}

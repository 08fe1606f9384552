package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/cluso-noc/pkg/graph"
	"github.com/dd0wney/cluso-noc/pkg/logging"
	"github.com/dd0wney/cluso-noc/pkg/overlay"
)

// ErrSuperseded is returned by a call whose result was discarded because a
// newer leaf selection, mode transition or Close happened first.
var ErrSuperseded = errors.New("superseded by a newer request")

// LoadTree fetches the device hierarchy and replaces the tree index. The
// breadcrumb of the open leaf is recomputed on the next State call.
func (c *Controller) LoadTree(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.treeGen++
	gen := c.treeGen
	c.treeStatus = StatusLoading
	c.publishLocked(EventTree)
	c.mu.Unlock()

	timer := logging.StartTimer(c.logger, "fetch device tree")
	roots, err := c.backend.FetchDeviceTree(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.treeGen || c.closed {
		c.metrics.RecordStale("tree")
		return ErrSuperseded
	}
	if err == nil {
		err = c.tree.Load(roots)
	}
	if err != nil {
		timer.EndError(err)
		c.metrics.RecordTreeFetch("error")
		c.treeStatus = StatusFailed
		c.lastErr = fmt.Errorf("load device tree: %w", err)
		c.publishLocked(EventError)
		return c.lastErr
	}

	timer.End(logging.Count(c.tree.Len()))
	c.metrics.RecordTreeFetch("ok")
	c.treeStatus = StatusReady
	c.publishLocked(EventTree)
	return nil
}

// SelectLeaf opens the document of a tree leaf in view mode. Any working
// copy is discarded, the selection is cleared and the store is emptied
// before the fetch starts, so the previous document never shows under the
// new breadcrumb. If the fetch fails the store stays empty.
func (c *Controller) SelectLeaf(ctx context.Context, key string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	leaf, err := c.tree.Leaf(key)
	if err != nil {
		c.rejectLocked("select_leaf", err)
		c.mu.Unlock()
		return err
	}

	if c.session.Editing() {
		c.logger.Warn("leaf change discards working copy",
			logging.MapID(c.session.MapID), logging.Bool("dirty", c.session.Dirty))
		c.transitionLocked(graph.ModeEdit, graph.ModeView, "leaf_change")
	}
	c.session = NewSession(leaf.MapID)
	c.saving = false
	c.leafKey = leaf.Key
	c.kind = leaf.Kind
	c.perMap = 0
	c.integrity = nil
	c.store.Clear()
	c.summary = overlay.Summary{}
	gen := c.beginLoadLocked()
	c.mu.Unlock()

	c.logger.Info("leaf selected", logging.LeafKey(key), logging.MapID(leaf.MapID), logging.Generation(gen))
	return c.load(ctx, gen, leaf.MapID, "select", false)
}

// Refresh refetches the open document and its overlay. It is refused in edit
// mode. A failed refresh keeps the last good document on screen.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	var err error
	switch {
	case c.session.MapID == "":
		err = ErrNoDocument
	case c.session.Mode == graph.ModeEdit:
		err = fmt.Errorf("%w: refresh is unavailable", ErrAlreadyEditing)
	}
	if err != nil {
		c.rejectLocked("refresh", err)
		c.mu.Unlock()
		return err
	}
	mapID := c.session.MapID
	gen := c.beginLoadLocked()
	c.mu.Unlock()

	return c.load(ctx, gen, mapID, "refresh", true)
}

// beginLoadLocked supersedes in-flight work, stops polling and marks the
// document as loading.
func (c *Controller) beginLoadLocked() uint64 {
	gen := c.bumpLocked()
	c.stopPollingLocked()
	c.docStatus = StatusLoading
	c.lastErr = nil
	c.publishLocked(EventDocument)
	return gen
}

// fetch gets a document and its overlay concurrently. A failed overlay
// fetch is logged and treated as empty, which zero-fills every badge.
func (c *Controller) fetch(ctx context.Context, mapID, trigger string) (graph.Document, []graph.OverlayRecord, error) {
	var (
		doc     graph.Document
		records []graph.OverlayRecord
	)
	start := time.Now()
	timer := logging.StartTimer(c.logger, "fetch document", logging.MapID(mapID), logging.Operation(trigger))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		doc, err = c.backend.FetchDocument(gctx, mapID)
		return err
	})
	g.Go(func() error {
		var err error
		records, err = c.backend.FetchFaultOverlay(gctx, mapID)
		if err != nil {
			c.logger.Warn("overlay fetch failed, badges reset", logging.MapID(mapID), logging.Error(err))
			records = nil
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		timer.EndError(err)
		c.metrics.RecordDocumentFetch(trigger, "error", time.Since(start))
		return graph.Document{}, nil, fmt.Errorf("fetch document %s: %w", mapID, err)
	}
	if doc.MapID == "" {
		doc.MapID = mapID
	}
	timer.End(logging.Count(len(doc.Nodes)))
	c.metrics.RecordDocumentFetch(trigger, "ok", time.Since(start))
	return doc, records, nil
}

// load fetches mapID and installs the result unless generation gen has been
// superseded meanwhile. With keep set, a failure leaves the current store
// contents in place and resumes polling them.
func (c *Controller) load(ctx context.Context, gen uint64, mapID, trigger string, keep bool) error {
	doc, records, err := c.fetch(ctx, mapID, trigger)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen || c.closed {
		c.metrics.RecordStale("fetch")
		c.logger.Debug("discarding superseded fetch", logging.MapID(mapID), logging.Generation(gen))
		return ErrSuperseded
	}

	if err != nil {
		c.docStatus = StatusFailed
		c.lastErr = err
		if keep && c.store.Loaded() {
			c.startPollingLocked()
		} else {
			c.store.Clear()
			c.summary = overlay.Summary{}
		}
		c.publishLocked(EventError)
		return err
	}

	c.applyLocked(doc, records)
	return nil
}

// applyLocked installs a freshly fetched document with its overlay and
// starts polling.
func (c *Controller) applyLocked(doc graph.Document, records []graph.OverlayRecord) {
	c.store.Load(doc)
	if _, err := c.store.ApplyOverlay(records); err != nil {
		c.logger.Error("overlay rejected by store", logging.MapID(doc.MapID), logging.Error(err))
	}
	if doc.Kind != "" {
		c.kind = doc.Kind
	}
	c.perMap = doc.UpdateInterval

	c.integrity = nil
	if err := doc.Validate(); err != nil {
		var ie *graph.IntegrityError
		if errors.As(err, &ie) {
			for _, p := range ie.Problems {
				c.integrity = append(c.integrity, p.Error())
			}
		}
		c.logger.Warn("document integrity problems", logging.MapID(doc.MapID), logging.Error(err))
	}
	if fb := doc.FallbackNodes(); len(fb) > 0 {
		c.logger.Warn("document has unrecognised nodes", logging.MapID(doc.MapID), logging.Count(len(fb)))
	}

	c.session = WithSelection(c.session, c.selector.Prune(c.session.Selection, c.store))
	c.docStatus = StatusReady
	c.lastErr = nil
	c.refreshSummaryLocked()
	c.startPollingLocked()
	c.publishLocked(EventDocument)
}

func (c *Controller) refreshSummaryLocked() {
	c.summary = overlay.Summarize(c.store.Nodes())
	t := c.summary.Totals
	c.metrics.SetOverlaySummary(c.summary.Devices, c.summary.Faulted, t.Urgent, t.Important, t.Minor)
}

func (c *Controller) intervalLocked() time.Duration {
	if c.override > 0 {
		return c.override
	}
	return c.interval(c.kind, c.perMap)
}

// startPollingLocked (re)starts the overlay timer for the open document at
// the current generation.
func (c *Controller) startPollingLocked() {
	if c.closed || c.session.MapID == "" || c.session.Mode == graph.ModeEdit {
		return
	}
	c.poller.Restart(c.lifetime, c.intervalLocked(), c.pollTick(c.gen, c.session.MapID))
	c.metrics.SetPollingActive(true)
}

func (c *Controller) stopPollingLocked() {
	c.poller.Stop()
	c.metrics.SetPollingActive(false)
}

// pollTick refreshes only the overlay of mapID. A tick that finds its
// generation superseded, or the session in edit mode, discards its result.
// A failed fetch leaves the current badges in place.
func (c *Controller) pollTick(gen uint64, mapID string) overlay.TickFunc {
	return func(ctx context.Context) {
		start := time.Now()
		records, err := c.backend.FetchFaultOverlay(ctx, mapID)

		c.mu.Lock()
		defer c.mu.Unlock()

		if gen != c.gen || c.closed || c.session.Mode == graph.ModeEdit {
			c.metrics.RecordStale("poll")
			return
		}
		if err != nil {
			c.metrics.RecordPollTick("error", time.Since(start))
			c.logger.Warn("overlay poll failed", logging.MapID(mapID), logging.Error(err))
			return
		}

		changed, err := c.store.ApplyOverlay(records)
		if err != nil {
			c.metrics.RecordPollTick("rejected", time.Since(start))
			c.logger.Error("overlay rejected by store", logging.MapID(mapID), logging.Error(err))
			return
		}
		c.lastPoll = time.Now()
		if !changed {
			c.metrics.RecordPollTick("unchanged", time.Since(start))
			return
		}
		c.metrics.RecordPollTick("applied", time.Since(start))
		c.refreshSummaryLocked()
		c.publishLocked(EventOverlay)
	}
}

// Package memory is a thread-safe in-memory backend seeded from a YAML
// fixture. It backs the demo console and the tests.
package memory

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-noc/pkg/backend"
	"github.com/dd0wney/cluso-noc/pkg/devicetree"
	"github.com/dd0wney/cluso-noc/pkg/graph"
	"github.com/dd0wney/cluso-noc/pkg/logging"
)

// EventPageSize is the number of events per page.
const EventPageSize = 20

// Backend implements backend.Backend in memory. Writes are last-writer-wins.
type Backend struct {
	mu      sync.RWMutex
	tree    []devicetree.TreeNode
	docs    map[string]graph.Document
	overlay map[string][]graph.OverlayRecord
	types   []backend.DeviceType
	devices []backend.Device
	images  []backend.DeviceImage
	events  map[graph.DeviceKey][]backend.UnhandledEvent
	logger  logging.Logger
}

var _ backend.Backend = (*Backend)(nil)

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(b *Backend) { b.logger = logging.OrNop(l) }
}

// New builds a backend from a fixture. A nil fixture yields an empty backend.
func New(f *Fixture, opts ...Option) (*Backend, error) {
	b := &Backend{
		docs:    make(map[string]graph.Document),
		overlay: make(map[string][]graph.OverlayRecord),
		events:  make(map[graph.DeviceKey][]backend.UnhandledEvent),
		logger:  logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With(logging.Component("memory-backend"))

	if f == nil {
		return b, nil
	}

	idx := devicetree.NewIndex(nil)
	defer idx.Close()
	if err := idx.Load(f.Tree); err != nil {
		return nil, fmt.Errorf("fixture tree: %w", err)
	}
	b.tree = flatten(idx.Tree())

	docs, err := f.documents()
	if err != nil {
		return nil, fmt.Errorf("fixture documents: %w", err)
	}
	for _, d := range docs {
		b.docs[d.MapID] = d.Clone()
	}

	for mapID, rows := range f.Overlay {
		records := make([]graph.OverlayRecord, 0, len(rows))
		for _, row := range rows {
			r, err := row.record()
			if err != nil {
				return nil, fmt.Errorf("fixture overlay %s: %w", mapID, err)
			}
			records = append(records, r)
		}
		b.overlay[mapID] = records
	}

	b.types = slices.Clone(f.DeviceTypes)
	b.devices = slices.Clone(f.Devices)
	b.images = slices.Clone(f.Images)
	for _, ev := range f.Events {
		b.events[ev.DeviceKey] = append(b.events[ev.DeviceKey], ev)
	}
	return b, nil
}

// NewDefault builds a backend from the embedded demo fixture.
func NewDefault(opts ...Option) (*Backend, error) {
	f, err := ParseFixture(DefaultFixture)
	if err != nil {
		return nil, err
	}
	return New(f, opts...)
}

func flatten(nodes []devicetree.TreeNode) []devicetree.TreeNode {
	var out []devicetree.TreeNode
	for _, n := range nodes {
		kids := n.Children
		n.Children = nil
		out = append(out, n)
		out = append(out, flatten(kids)...)
	}
	return out
}

func (b *Backend) Ping(context.Context) error { return nil }

func (b *Backend) FetchDeviceTree(ctx context.Context) ([]devicetree.TreeNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.tree), nil
}

func (b *Backend) FetchDocument(ctx context.Context, mapID string) (graph.Document, error) {
	if err := ctx.Err(); err != nil {
		return graph.Document{}, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	doc, ok := b.docs[mapID]
	if !ok {
		return graph.Document{}, fmt.Errorf("document %s: %w", mapID, backend.ErrNotFound)
	}
	return doc.Clone(), nil
}

func (b *Backend) SaveDocument(ctx context.Context, doc graph.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.docs[doc.MapID]; !ok {
		return fmt.Errorf("document %s: %w", doc.MapID, backend.ErrNotFound)
	}
	b.docs[doc.MapID] = doc.Clone()
	b.logger.Info("document saved", logging.MapID(doc.MapID), logging.Count(len(doc.Nodes)))
	return nil
}

func (b *Backend) CreateDocument(ctx context.Context, parentKey, name string, kind graph.DocumentKind) (devicetree.TreeNode, error) {
	if err := ctx.Err(); err != nil {
		return devicetree.TreeNode{}, err
	}
	if !kind.Valid() {
		return devicetree.TreeNode{}, fmt.Errorf("unknown document kind %q", kind)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	i := slices.IndexFunc(b.tree, func(n devicetree.TreeNode) bool { return n.Key == parentKey })
	if i < 0 {
		return devicetree.TreeNode{}, fmt.Errorf("branch %s: %w", parentKey, backend.ErrNotFound)
	}
	if b.tree[i].IsLeaf {
		return devicetree.TreeNode{}, fmt.Errorf("%w: %s", devicetree.ErrNotLeaf, parentKey)
	}

	id := uuid.NewString()
	leaf := devicetree.TreeNode{
		Key:       "leaf-" + id,
		Title:     name,
		ParentKey: parentKey,
		IsLeaf:    true,
		MapID:     "map-" + id,
		Kind:      kind,
	}
	b.tree = append(b.tree, leaf)
	b.docs[leaf.MapID] = graph.Document{MapID: leaf.MapID, Kind: kind, Name: name}
	b.logger.Info("document created", logging.MapID(leaf.MapID), logging.LeafKey(leaf.Key))
	return leaf, nil
}

func (b *Backend) DeleteDocument(ctx context.Context, mapID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.docs[mapID]; !ok {
		return fmt.Errorf("document %s: %w", mapID, backend.ErrNotFound)
	}
	delete(b.docs, mapID)
	delete(b.overlay, mapID)
	b.tree = slices.DeleteFunc(b.tree, func(n devicetree.TreeNode) bool { return n.IsLeaf && n.MapID == mapID })
	b.logger.Info("document deleted", logging.MapID(mapID))
	return nil
}

func (b *Backend) RenameDocument(ctx context.Context, mapID, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	doc, ok := b.docs[mapID]
	if !ok {
		return fmt.Errorf("document %s: %w", mapID, backend.ErrNotFound)
	}
	doc.Name = name
	b.docs[mapID] = doc
	for i := range b.tree {
		if b.tree[i].IsLeaf && b.tree[i].MapID == mapID {
			b.tree[i].Title = name
		}
	}
	return nil
}

func (b *Backend) FetchFaultOverlay(ctx context.Context, mapID string) ([]graph.OverlayRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	if _, ok := b.docs[mapID]; !ok {
		return nil, fmt.Errorf("document %s: %w", mapID, backend.ErrNotFound)
	}
	return slices.Clone(b.overlay[mapID]), nil
}

// SetOverlay replaces the fault records served for mapID.
func (b *Backend) SetOverlay(mapID string, records []graph.OverlayRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.overlay[mapID] = slices.Clone(records)
}

// Churn randomly perturbs the fault counts of every device placed on any
// document, so a demo console shows badges changing between polls.
func (b *Backend) Churn(r *rand.Rand) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for mapID, doc := range b.docs {
		var records []graph.OverlayRecord
		for _, n := range doc.Nodes {
			key := n.DeviceKey()
			if key == "" || r.Intn(3) == 0 {
				continue
			}
			c := graph.FaultCounts{Urgent: r.Intn(2), Important: r.Intn(3), Minor: r.Intn(5)}
			c.Total = c.Urgent + c.Important + c.Minor
			records = append(records, graph.OverlayRecord{DeviceKey: key, FaultCounts: c})
		}
		b.overlay[mapID] = records
	}
}

func (b *Backend) FetchDeviceTaxonomy(ctx context.Context) ([]backend.DeviceType, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.types), nil
}

func (b *Backend) FetchDevicesByType(ctx context.Context, typeID string) ([]backend.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []backend.Device
	for _, d := range b.devices {
		if d.TypeID == typeID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (b *Backend) FetchDeviceImageCatalog(ctx context.Context, typeID string) ([]backend.DeviceImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []backend.DeviceImage
	for _, img := range b.images {
		if typeID == "" || img.TypeID == typeID {
			out = append(out, img)
		}
	}
	return out, nil
}

func (b *Backend) RequestUnhandledEvents(ctx context.Context, deviceKey graph.DeviceKey, page int) (backend.EventPage, error) {
	if err := ctx.Err(); err != nil {
		return backend.EventPage{}, err
	}
	if page < 1 {
		page = 1
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	all := b.events[deviceKey]
	start := min((page-1)*EventPageSize, len(all))
	end := min(start+EventPageSize, len(all))
	return backend.EventPage{
		Page:     page,
		PageSize: EventPageSize,
		Total:    len(all),
		Events:   slices.Clone(all[start:end]),
	}, nil
}

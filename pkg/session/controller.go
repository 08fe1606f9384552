package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dd0wney/cluso-noc/pkg/backend"
	"github.com/dd0wney/cluso-noc/pkg/config"
	"github.com/dd0wney/cluso-noc/pkg/devicetree"
	"github.com/dd0wney/cluso-noc/pkg/graph"
	"github.com/dd0wney/cluso-noc/pkg/layout"
	"github.com/dd0wney/cluso-noc/pkg/logging"
	"github.com/dd0wney/cluso-noc/pkg/metrics"
	"github.com/dd0wney/cluso-noc/pkg/nodefactory"
	"github.com/dd0wney/cluso-noc/pkg/overlay"
	"github.com/dd0wney/cluso-noc/pkg/pubsub"
	"github.com/dd0wney/cluso-noc/pkg/selection"
)

// EventsTopic is the pubsub topic carrying StateEvents.
const EventsTopic = "session"

// ErrInvalidInterval is returned for a poll interval override below the
// configured minimum.
var ErrInvalidInterval = errors.New("invalid poll interval")

// Status is the load state of the tree or the open document.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// EventKind says what changed.
type EventKind string

const (
	EventTree      EventKind = "tree"
	EventDocument  EventKind = "document"
	EventOverlay   EventKind = "overlay"
	EventMode      EventKind = "mode"
	EventSelection EventKind = "selection"
	EventWorking   EventKind = "working"
	EventError     EventKind = "error"
)

// State is the read model exposed to the breadcrumb, side panels and
// canvas.
type State struct {
	LeafKey         string                `json:"leafKey,omitempty"`
	MapID           string                `json:"mapId,omitempty"`
	Kind            graph.DocumentKind    `json:"kind,omitempty"`
	Mode            graph.Mode            `json:"mode"`
	SelectedNodeIDs []graph.NodeID        `json:"selectedNodeIds"`
	SelectedEdgeID  graph.EdgeID          `json:"selectedEdgeId,omitempty"`
	Breadcrumb      devicetree.BranchPath `json:"breadcrumb"`
	TreeStatus      Status                `json:"treeStatus"`
	DocStatus       Status                `json:"docStatus"`
	LastError       string                `json:"lastError,omitempty"`
	Integrity       []string              `json:"integrity,omitempty"`
	Dirty           bool                  `json:"dirty"`
	Saving          bool                  `json:"saving"`
	Polling         bool                  `json:"polling"`
	PollSeconds     float64               `json:"pollSeconds"`
	Generation      uint64                `json:"generation"`
	Version         uint64                `json:"version"`
	Overlay         overlay.Summary       `json:"overlay"`
}

// StateEvent is published after every transition, overlay application and
// selection change.
type StateEvent struct {
	Kind  EventKind `json:"kind"`
	State State     `json:"state"`
	At    time.Time `json:"at"`
}

// IntervalResolver picks the poll interval for a document.
type IntervalResolver func(kind graph.DocumentKind, perMap time.Duration) time.Duration

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Controller) { c.logger = logging.OrNop(l) }
}

// WithMetrics sets the metrics registry.
func WithMetrics(r *metrics.Registry) Option {
	return func(c *Controller) {
		if r != nil {
			c.metrics = r
		}
	}
}

// WithPolling sets the configured poll intervals.
func WithPolling(p config.PollingConfig) Option {
	return func(c *Controller) { c.interval = p.IntervalFor }
}

// WithIntervalResolver replaces the poll interval policy entirely.
func WithIntervalResolver(fn IntervalResolver) Option {
	return func(c *Controller) {
		if fn != nil {
			c.interval = fn
		}
	}
}

// WithLayout sets the auto-layout canvas configuration.
func WithLayout(cfg layout.Config) Option {
	return func(c *Controller) { c.layoutCfg = cfg }
}

// WithNodeFactory replaces the default node factory.
func WithNodeFactory(f *nodefactory.Factory) Option {
	return func(c *Controller) { c.factory = f }
}

// Controller orchestrates the open document: leaf selection, fetches,
// overlay polling, view/edit transitions and selection. It is safe for
// concurrent use; no lock is held across backend calls, and results of
// superseded calls are discarded by generation.
type Controller struct {
	backend   backend.Backend
	tree      *devicetree.Index
	store     *graph.Store
	poller    *overlay.Poller
	selector  *selection.Coordinator
	factory   *nodefactory.Factory
	events    *pubsub.PubSub[StateEvent]
	metrics   *metrics.Registry
	logger    logging.Logger
	interval  IntervalResolver
	layoutCfg layout.Config

	// lifetime scopes poll goroutines; it ends on Close.
	lifetime context.Context
	stop     context.CancelFunc

	mu         sync.Mutex
	closed     bool
	gen        uint64
	treeGen    uint64
	session    EditSession
	leafKey    string
	kind       graph.DocumentKind
	perMap     time.Duration
	override   time.Duration
	treeStatus Status
	docStatus  Status
	lastErr    error
	integrity  []string
	saving     bool
	deleting   string
	lastPoll   time.Time
	summary    overlay.Summary
}

// New creates a controller over b. Call LoadTree before SelectLeaf.
func New(b backend.Backend, opts ...Option) *Controller {
	c := &Controller{
		backend:    b,
		store:      graph.NewStore(overlay.Merge),
		events:     pubsub.NewPubSub[StateEvent](),
		logger:     logging.NewNopLogger(),
		interval:   config.Default().Polling.IntervalFor,
		treeStatus: StatusIdle,
		docStatus:  StatusIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = metrics.NewRegistry()
	}
	c.logger = c.logger.With(logging.Component("session"))
	c.tree = devicetree.NewIndex(c.logger)
	c.poller = overlay.NewPoller(c.logger)
	c.selector = selection.NewCoordinator(c.logger)
	if c.factory == nil {
		c.factory = nodefactory.New(b, nodefactory.WithLogger(c.logger))
	}
	c.lifetime, c.stop = context.WithCancel(context.Background())
	c.metrics.SetMode(graph.ModeView.String())
	return c
}

// Close stops polling, marks in-flight work stale and ends every
// subscription. It is safe to call more than once.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.stopPollingLocked()
	c.bumpLocked()
	c.stop()
	c.mu.Unlock()

	c.events.Shutdown()
	c.logger.Info("session closed")
	return c.tree.Close()
}

// Subscribe returns a subscription receiving a StateEvent after every
// change. It ends when ctx is cancelled or the controller closes.
func (c *Controller) Subscribe(ctx context.Context) (*pubsub.Subscription[StateEvent], error) {
	return c.events.Subscribe(ctx, EventsTopic)
}

// State returns the current read model.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	st := State{
		LeafKey:         c.leafKey,
		MapID:           c.session.MapID,
		Kind:            c.kind,
		Mode:            c.session.Mode,
		SelectedNodeIDs: append([]graph.NodeID{}, c.session.Selection.NodeIDs...),
		SelectedEdgeID:  c.session.Selection.EdgeID,
		TreeStatus:      c.treeStatus,
		DocStatus:       c.docStatus,
		Integrity:       append([]string(nil), c.integrity...),
		Dirty:           c.session.Dirty,
		Saving:          c.saving,
		Polling:         c.poller.Active(),
		Generation:      c.gen,
		Version:         c.store.Version(),
		Overlay:         c.summary,
	}
	if c.leafKey != "" {
		st.Breadcrumb = c.tree.FindPath(c.leafKey)
	}
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	if sub := c.poller.Current(); sub != nil {
		st.PollSeconds = sub.Interval().Seconds()
	}
	return st
}

func (c *Controller) publishLocked(kind EventKind) {
	c.events.Publish(EventsTopic, StateEvent{Kind: kind, State: c.stateLocked(), At: time.Now()})
}

// bumpLocked supersedes every in-flight fetch and poll tick.
func (c *Controller) bumpLocked() uint64 {
	c.gen++
	c.metrics.SetGeneration(c.gen)
	return c.gen
}

// rejectLocked records a refused operator action.
func (c *Controller) rejectLocked(action string, err error) {
	c.metrics.RecordRejected(action, reason(err))
	c.logger.Warn("action rejected", logging.Operation(action), logging.Error(err))
}

func reason(err error) string {
	switch {
	case errors.Is(err, ErrNotEditing):
		return "not_editing"
	case errors.Is(err, ErrAlreadyEditing):
		return "already_editing"
	case errors.Is(err, ErrNoDocument):
		return "no_document"
	case errors.Is(err, ErrSaveInProgress):
		return "save_in_progress"
	case errors.Is(err, ErrDeleteWhileEditing):
		return "delete_while_editing"
	case errors.Is(err, ErrDeleteInProgress):
		return "delete_in_progress"
	case errors.Is(err, selection.ErrNotSelectable):
		return "not_selectable"
	case errors.Is(err, selection.ErrMultiSelectInView):
		return "multi_select_in_view"
	case errors.Is(err, nodefactory.ErrDeviceAlreadyPlaced):
		return "already_placed"
	case errors.Is(err, graph.ErrUnknownNode), errors.Is(err, graph.ErrUnknownEdge):
		return "unknown_target"
	case graph.IsIntegrityError(err):
		return "integrity"
	default:
		return "invalid"
	}
}

// Nodes returns the working copy's nodes in edit mode and the
// authoritative nodes otherwise.
func (c *Controller) Nodes() []*graph.Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.Editing() {
		return append([]*graph.Node(nil), c.session.Working.Nodes...)
	}
	return c.store.Nodes()
}

// Edges returns the working copy's edges in edit mode and the
// authoritative edges otherwise.
func (c *Controller) Edges() []graph.Edge {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.Editing() {
		return c.session.Working.Clone().Edges
	}
	return c.store.Edges()
}

// Document returns what the canvas should render: the working copy in edit
// mode, the authoritative document otherwise.
func (c *Controller) Document() (graph.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.Editing() {
		return c.session.Working.Clone(), nil
	}
	if !c.store.Loaded() {
		return graph.Document{}, ErrNoDocument
	}
	return c.store.Snapshot(), nil
}

// Tree returns the device tree nested from its roots.
func (c *Controller) Tree() []devicetree.TreeNode {
	return c.tree.Tree()
}

// SearchTree finds tree nodes whose title or breadcrumb matches query.
func (c *Controller) SearchTree(query string, limit int) ([]devicetree.TreeNode, error) {
	return c.tree.Search(query, limit)
}

// DeviceChoices lists the devices of a type, with those already on the
// diagram disabled.
func (c *Controller) DeviceChoices(ctx context.Context, typeID string) ([]nodefactory.Choice, error) {
	return c.factory.DeviceChoices(ctx, typeID, c.Nodes())
}

// DeviceTaxonomy lists the device types offered by the creation wizard.
func (c *Controller) DeviceTaxonomy(ctx context.Context) ([]backend.DeviceType, error) {
	return c.factory.Taxonomy(ctx)
}

// ImageCatalog lists the device images of a type.
func (c *Controller) ImageCatalog(ctx context.Context, typeID string) ([]backend.DeviceImage, error) {
	return c.factory.ImageCatalog(ctx, typeID)
}

// RequestUnhandledEvents delegates to the fault-listing backend.
func (c *Controller) RequestUnhandledEvents(ctx context.Context, key graph.DeviceKey, page int) (backend.EventPage, error) {
	return c.backend.RequestUnhandledEvents(ctx, key, page)
}

// SetUpdateInterval overrides the poll interval of every document. Zero
// restores the configured policy. A running timer is restarted with the new
// interval.
func (c *Controller) SetUpdateInterval(d time.Duration) error {
	if d < 0 || (d > 0 && d < config.MinPollInterval) {
		return fmt.Errorf("%w: %v is below %v", ErrInvalidInterval, d, config.MinPollInterval)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.override = d
	if c.poller.Active() {
		c.startPollingLocked()
	}
	c.publishLocked(EventDocument)
	return nil
}

// TreeHealth reports the tree load status and leaf count.
func (c *Controller) TreeHealth() (string, int) {
	c.mu.Lock()
	status := c.treeStatus
	c.mu.Unlock()
	return string(status), len(c.tree.Leaves())
}

// DocumentHealth reports the open document's status and map id.
func (c *Controller) DocumentHealth() (string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return string(c.docStatus), c.session.MapID
}

// PollHealth reports whether polling runs, when it last succeeded, and its
// interval.
func (c *Controller) PollHealth() (bool, time.Time, time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sub := c.poller.Current()
	if sub == nil || !sub.Active() {
		return false, c.lastPoll, 0
	}
	return true, c.lastPoll, sub.Interval()
}

// Ping checks that the backend is reachable.
func (c *Controller) Ping(ctx context.Context) error {
	return c.backend.Ping(ctx)
}

// Package api serves the console core over HTTP for a browser front end.
// Handlers translate requests into session.Controller calls and return the
// resulting read model; the controller remains the single owner of state.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-noc/pkg/api/middleware"
	"github.com/dd0wney/cluso-noc/pkg/backend"
	"github.com/dd0wney/cluso-noc/pkg/devicetree"
	"github.com/dd0wney/cluso-noc/pkg/graph"
	"github.com/dd0wney/cluso-noc/pkg/health"
	"github.com/dd0wney/cluso-noc/pkg/layout"
	"github.com/dd0wney/cluso-noc/pkg/logging"
	"github.com/dd0wney/cluso-noc/pkg/metrics"
	"github.com/dd0wney/cluso-noc/pkg/nodefactory"
	"github.com/dd0wney/cluso-noc/pkg/pubsub"
	"github.com/dd0wney/cluso-noc/pkg/session"
)

// DefaultEventWait is how long a long-poll request waits for a change.
const DefaultEventWait = 25 * time.Second

// Console is the part of session.Controller the API drives.
type Console interface {
	LoadTree(ctx context.Context) error
	Tree() []devicetree.TreeNode
	SearchTree(query string, limit int) ([]devicetree.TreeNode, error)
	SelectLeaf(ctx context.Context, key string) error

	State() session.State
	Subscribe(ctx context.Context) (*pubsub.Subscription[session.StateEvent], error)
	Document() (graph.Document, error)
	Refresh(ctx context.Context) error
	SetUpdateInterval(d time.Duration) error

	EnterEdit() error
	Save(ctx context.Context) error
	Cancel(ctx context.Context) error

	SelectNode(id graph.NodeID, additive bool) error
	SelectNodes(ids []graph.NodeID) error
	SelectEdge(id graph.EdgeID) error
	SelectDevice(key graph.DeviceKey) error
	ClearSelection() error

	MoveNode(id graph.NodeID, pos graph.Position) error
	ResizeNode(id graph.NodeID, size graph.Size) error
	Connect(spec session.ConnectSpec) (graph.EdgeID, error)
	UpdateEdgeStyle(id graph.EdgeID, style graph.EdgeStyle, animated *bool) error
	RemoveSelected() error
	AddDeviceNode(ctx context.Context, typeID string, key graph.DeviceKey) (*graph.Node, error)
	AddFrameNode(kind nodefactory.FrameKind, label string) (*graph.Node, error)
	AddDisplayNode(ctx context.Context, typeID, imageID string) (*graph.Node, error)
	AutoLayout(alg layout.Algorithm) error

	CreateDocument(ctx context.Context, parentKey, name string, kind graph.DocumentKind) (devicetree.TreeNode, error)
	RenameDocument(ctx context.Context, key, name string) error
	DeleteDocument(ctx context.Context, key string) error

	DeviceTaxonomy(ctx context.Context) ([]backend.DeviceType, error)
	DeviceChoices(ctx context.Context, typeID string) ([]nodefactory.Choice, error)
	ImageCatalog(ctx context.Context, typeID string) ([]backend.DeviceImage, error)
	RequestUnhandledEvents(ctx context.Context, key graph.DeviceKey, page int) (backend.EventPage, error)
}

var _ Console = (*session.Controller)(nil)

// Server is the console HTTP API.
type Server struct {
	console     Console
	health      *health.HealthChecker
	metrics     *metrics.Registry
	logger      logging.Logger
	corsOrigins []string
	maxBody     int64
	eventWait   time.Duration
	handler     http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Server) { s.logger = logging.OrNop(l) }
}

// WithMetrics sets the registry served on /metrics and fed by requests.
func WithMetrics(r *metrics.Registry) Option {
	return func(s *Server) { s.metrics = r }
}

// WithHealth sets the checker behind the health endpoints.
func WithHealth(hc *health.HealthChecker) Option {
	return func(s *Server) { s.health = hc }
}

// WithCORSOrigins allows browser access from the given origins.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) { s.corsOrigins = origins }
}

// WithMaxBodyBytes bounds request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// WithEventWait sets the long-poll timeout of /api/v1/events.
func WithEventWait(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.eventWait = d
		}
	}
}

// NewServer builds the router over console.
func NewServer(console Console, opts ...Option) *Server {
	s := &Server{
		console:   console,
		logger:    logging.NewNopLogger(),
		maxBody:   middleware.DefaultMaxBodyBytes,
		eventWait: DefaultEventWait,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logging.Component("api"))
	if s.metrics == nil {
		s.metrics = metrics.DefaultRegistry()
	}
	if s.health == nil {
		s.health = health.NewHealthChecker()
	}
	// Preflights and unmatched paths never reach route middleware, so the
	// request-wide layers wrap the router.
	s.handler = middleware.RequestID()(
		middleware.PanicRecovery(s.logger)(
			middleware.SecurityHeaders()(
				middleware.CORS(s.corsOrigins)(s.routes()))))
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Logging(s.logger))
	r.Use(middleware.Metrics(s.metrics))
	r.Use(middleware.BodySizeLimit(s.maxBody))
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		s.respondError(w, req, http.StatusNotFound, "no such endpoint")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		s.respondError(w, req, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.HandleFunc("/health", s.health.HTTPHandler()).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", s.health.ReadinessHandler()).Methods(http.MethodGet)
	r.HandleFunc("/health/live", s.health.LivenessHandler()).Methods(http.MethodGet)
	r.Handle("/metrics", s.metricsHandler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/tree", s.getTree).Methods(http.MethodGet)
	v1.HandleFunc("/tree/reload", s.reloadTree).Methods(http.MethodPost)
	v1.HandleFunc("/tree/search", s.searchTree).Methods(http.MethodGet)
	v1.HandleFunc("/tree/{key}/select", s.selectLeaf).Methods(http.MethodPost)

	v1.HandleFunc("/state", s.getState).Methods(http.MethodGet)
	v1.HandleFunc("/events", s.waitEvent).Methods(http.MethodGet)

	v1.HandleFunc("/document", s.getDocument).Methods(http.MethodGet)
	v1.HandleFunc("/document/refresh", s.refresh).Methods(http.MethodPost)
	v1.HandleFunc("/document/edit", s.enterEdit).Methods(http.MethodPost)
	v1.HandleFunc("/document/save", s.save).Methods(http.MethodPost)
	v1.HandleFunc("/document/cancel", s.cancel).Methods(http.MethodPost)
	v1.HandleFunc("/document/interval", s.setInterval).Methods(http.MethodPut)
	v1.HandleFunc("/document/interval", s.clearInterval).Methods(http.MethodDelete)
	v1.HandleFunc("/document/layout", s.autoLayout).Methods(http.MethodPost)

	v1.HandleFunc("/selection", s.setSelection).Methods(http.MethodPut)
	v1.HandleFunc("/selection", s.clearSelection).Methods(http.MethodDelete)
	v1.HandleFunc("/selection/device/{deviceKey}", s.selectDevice).Methods(http.MethodPut)
	v1.HandleFunc("/selection/remove", s.removeSelected).Methods(http.MethodPost)

	v1.HandleFunc("/nodes/device", s.addDevice).Methods(http.MethodPost)
	v1.HandleFunc("/nodes/frame", s.addFrame).Methods(http.MethodPost)
	v1.HandleFunc("/nodes/display", s.addDisplay).Methods(http.MethodPost)
	v1.HandleFunc("/nodes/{id}/position", s.moveNode).Methods(http.MethodPut)
	v1.HandleFunc("/nodes/{id}/size", s.resizeNode).Methods(http.MethodPut)

	v1.HandleFunc("/edges", s.connect).Methods(http.MethodPost)
	v1.HandleFunc("/edges/{id}/style", s.styleEdge).Methods(http.MethodPut)

	v1.HandleFunc("/maps", s.createMap).Methods(http.MethodPost)
	v1.HandleFunc("/maps/{key}", s.renameMap).Methods(http.MethodPut)
	v1.HandleFunc("/maps/{key}", s.deleteMap).Methods(http.MethodDelete)

	v1.HandleFunc("/catalog/types", s.listTypes).Methods(http.MethodGet)
	v1.HandleFunc("/catalog/types/{typeId}/devices", s.listDevices).Methods(http.MethodGet)
	v1.HandleFunc("/catalog/types/{typeId}/images", s.listImages).Methods(http.MethodGet)
	v1.HandleFunc("/devices/{deviceKey}/events", s.listEvents).Methods(http.MethodGet)

	return r
}

// metricsHandler samples the process gauges before each scrape.
func (s *Server) metricsHandler() http.Handler {
	h := promhttp.HandlerFor(s.metrics.GetPrometheusRegistry(), promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.metrics.RefreshSystemMetrics()
		h.ServeHTTP(w, r)
	})
}

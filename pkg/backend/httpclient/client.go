// Package httpclient talks to a remote console backend over its JSON REST
// API.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dd0wney/cluso-noc/pkg/backend"
	"github.com/dd0wney/cluso-noc/pkg/devicetree"
	"github.com/dd0wney/cluso-noc/pkg/graph"
	"github.com/dd0wney/cluso-noc/pkg/logging"
)

// DefaultTimeout bounds every request unless overridden.
const DefaultTimeout = 10 * time.Second

// Client implements backend.Backend against a remote REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     logging.Logger
}

var _ backend.Backend = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.logger = logging.OrNop(l) }
}

// New creates a client rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(logging.Component("backend-client"))
	return c
}

// APIError is a non-2xx response.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: %d", e.Method, e.Path, e.StatusCode)
}

// Unwrap maps status codes onto the backend sentinels.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return backend.ErrNotFound
	case e.StatusCode >= 500:
		return backend.ErrUnavailable
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	timer := logging.StartTimer(c.logger, method+" "+path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		timer.EndError(err)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s %s: %w: %v", method, path, backend.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	timer.End(logging.Int("status", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Message: readMessage(resp.Body)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// readMessage extracts {"error": "..."} or falls back to the raw body.
func readMessage(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 4096))
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &payload) == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(data))
}

func mapPath(mapID string) string {
	return "/api/v1/maps/" + url.PathEscape(mapID)
}

func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) FetchDeviceTree(ctx context.Context) ([]devicetree.TreeNode, error) {
	var out []devicetree.TreeNode
	if err := c.do(ctx, http.MethodGet, "/api/v1/tree", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) FetchDocument(ctx context.Context, mapID string) (graph.Document, error) {
	var doc graph.Document
	if err := c.do(ctx, http.MethodGet, mapPath(mapID), nil, &doc); err != nil {
		return graph.Document{}, err
	}
	if doc.MapID == "" {
		doc.MapID = mapID
	}
	return doc, nil
}

func (c *Client) SaveDocument(ctx context.Context, doc graph.Document) error {
	return c.do(ctx, http.MethodPut, mapPath(doc.MapID), doc, nil)
}

type createRequest struct {
	ParentKey string             `json:"parentKey"`
	Name      string             `json:"name"`
	Kind      graph.DocumentKind `json:"kind"`
}

func (c *Client) CreateDocument(ctx context.Context, parentKey, name string, kind graph.DocumentKind) (devicetree.TreeNode, error) {
	var leaf devicetree.TreeNode
	err := c.do(ctx, http.MethodPost, "/api/v1/maps", createRequest{ParentKey: parentKey, Name: name, Kind: kind}, &leaf)
	if err != nil {
		return devicetree.TreeNode{}, err
	}
	if !leaf.IsLeaf || leaf.MapID == "" {
		return devicetree.TreeNode{}, errors.New("create map: response is not a leaf")
	}
	return leaf, nil
}

func (c *Client) DeleteDocument(ctx context.Context, mapID string) error {
	return c.do(ctx, http.MethodDelete, mapPath(mapID), nil, nil)
}

func (c *Client) RenameDocument(ctx context.Context, mapID, name string) error {
	return c.do(ctx, http.MethodPatch, mapPath(mapID), map[string]string{"name": name}, nil)
}

func (c *Client) FetchFaultOverlay(ctx context.Context, mapID string) ([]graph.OverlayRecord, error) {
	var out []graph.OverlayRecord
	if err := c.do(ctx, http.MethodGet, mapPath(mapID)+"/faults", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) FetchDeviceTaxonomy(ctx context.Context) ([]backend.DeviceType, error) {
	var out []backend.DeviceType
	if err := c.do(ctx, http.MethodGet, "/api/v1/device-types", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) FetchDevicesByType(ctx context.Context, typeID string) ([]backend.Device, error) {
	var out []backend.Device
	path := "/api/v1/device-types/" + url.PathEscape(typeID) + "/devices"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) FetchDeviceImageCatalog(ctx context.Context, typeID string) ([]backend.DeviceImage, error) {
	var out []backend.DeviceImage
	path := "/api/v1/device-types/" + url.PathEscape(typeID) + "/images"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RequestUnhandledEvents(ctx context.Context, deviceKey graph.DeviceKey, page int) (backend.EventPage, error) {
	var out backend.EventPage
	path := "/api/v1/devices/" + url.PathEscape(string(deviceKey)) + "/events?page=" + strconv.Itoa(page)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return backend.EventPage{}, err
	}
	return out, nil
}

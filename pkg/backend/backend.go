// Package backend declares the collaborators the console core consumes: the
// device tree, document persistence, fault overlay, device catalog and event
// listing. Implementations live in subpackages.
package backend

import (
	"context"
	"errors"
	"time"

	"github.com/dd0wney/cluso-noc/pkg/devicetree"
	"github.com/dd0wney/cluso-noc/pkg/graph"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("backend unavailable")
)

// TreeSource serves the device hierarchy.
type TreeSource interface {
	FetchDeviceTree(ctx context.Context) ([]devicetree.TreeNode, error)
}

// DocumentRepository persists diagram documents. Writes are last-writer-wins.
type DocumentRepository interface {
	FetchDocument(ctx context.Context, mapID string) (graph.Document, error)
	SaveDocument(ctx context.Context, doc graph.Document) error
	// CreateDocument adds an empty document and the leaf that owns it under
	// parentKey, returning the new leaf.
	CreateDocument(ctx context.Context, parentKey, name string, kind graph.DocumentKind) (devicetree.TreeNode, error)
	DeleteDocument(ctx context.Context, mapID string) error
	RenameDocument(ctx context.Context, mapID, name string) error
}

// OverlaySource serves the current fault counts of a document's devices.
type OverlaySource interface {
	FetchFaultOverlay(ctx context.Context, mapID string) ([]graph.OverlayRecord, error)
}

// DeviceCatalog feeds the node creation wizard.
type DeviceCatalog interface {
	FetchDeviceTaxonomy(ctx context.Context) ([]DeviceType, error)
	FetchDevicesByType(ctx context.Context, typeID string) ([]Device, error)
	FetchDeviceImageCatalog(ctx context.Context, typeID string) ([]DeviceImage, error)
}

// EventLister pages through a device's unhandled fault events.
type EventLister interface {
	RequestUnhandledEvents(ctx context.Context, deviceKey graph.DeviceKey, page int) (EventPage, error)
}

// Backend is the full set of collaborators.
type Backend interface {
	TreeSource
	DocumentRepository
	OverlaySource
	DeviceCatalog
	EventLister
	Ping(ctx context.Context) error
}

// DeviceType is one entry of the device taxonomy.
type DeviceType struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Category string `json:"category,omitempty" yaml:"category,omitempty"`
	Icon     string `json:"icon,omitempty" yaml:"icon,omitempty"`
}

// Device is a managed device that can be placed on a diagram.
type Device struct {
	Key     graph.DeviceKey `json:"deviceKey" yaml:"deviceKey"`
	TypeID  string          `json:"typeId" yaml:"typeId"`
	Name    string          `json:"name" yaml:"name"`
	Address string          `json:"address,omitempty" yaml:"address,omitempty"`
	Units   int             `json:"units,omitempty" yaml:"units,omitempty"`
	Lat     float64         `json:"lat,omitempty" yaml:"lat,omitempty"`
	Lng     float64         `json:"lng,omitempty" yaml:"lng,omitempty"`
	Image   string          `json:"image,omitempty" yaml:"image,omitempty"`
}

// DeviceImage is a front-panel image usable for rack items and displays.
type DeviceImage struct {
	ID     string `json:"id" yaml:"id"`
	TypeID string `json:"typeId" yaml:"typeId"`
	Name   string `json:"name" yaml:"name"`
	URL    string `json:"url" yaml:"url"`
	Units  int    `json:"units,omitempty" yaml:"units,omitempty"`
}

// UnhandledEvent is a fault event nobody has acknowledged yet.
type UnhandledEvent struct {
	ID        string          `json:"id" yaml:"id"`
	DeviceKey graph.DeviceKey `json:"deviceKey" yaml:"deviceKey"`
	Severity  string          `json:"severity" yaml:"severity"`
	Message   string          `json:"message" yaml:"message"`
	RaisedAt  time.Time       `json:"raisedAt" yaml:"raisedAt"`
}

// EventPage is one page of unhandled events. Page numbers start at 1.
type EventPage struct {
	Page     int              `json:"page"`
	PageSize int              `json:"pageSize"`
	Total    int              `json:"total"`
	Events   []UnhandledEvent `json:"events"`
}

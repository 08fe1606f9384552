// Package validation checks operator requests and wire documents before they
// reach the session controller.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dd0wney/cluso-noc/pkg/graph"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	MaxIDLength    = 128
	MaxNameLength  = 100
	MaxBatchSize   = 1000
	MaxCanvasCoord = 1e6
)

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("mapkind", func(fl validator.FieldLevel) bool {
		return graph.DocumentKind(fl.Field().String()).Valid()
	})
}

// MoveRequest moves one node of the working copy.
type MoveRequest struct {
	X float64 `json:"x" validate:"gte=-1000000,lte=1000000"`
	Y float64 `json:"y" validate:"gte=-1000000,lte=1000000"`
}

// ResizeRequest resizes a resizable node.
type ResizeRequest struct {
	W float64 `json:"w" validate:"gt=0,lte=100000"`
	H float64 `json:"h" validate:"gt=0,lte=100000"`
}

// ConnectRequest links two topology nodes.
type ConnectRequest struct {
	Source       string `json:"source" validate:"required,max=128"`
	Target       string `json:"target" validate:"required,max=128,nefield=Source"`
	SourceHandle string `json:"sourceHandle" validate:"omitempty,max=64"`
	TargetHandle string `json:"targetHandle" validate:"omitempty,max=64"`
}

// EdgeStyleRequest restyles a topology link.
type EdgeStyleRequest struct {
	CurveType string  `json:"curveType" validate:"required,oneof=bezier straight step smoothstep"`
	Thickness float64 `json:"thickness" validate:"gt=0,lte=20"`
	Animated  *bool   `json:"animated" validate:"omitempty"`
}

// SelectRequest selects nodes or an edge. An empty request clears the
// selection.
type SelectRequest struct {
	NodeIDs  []string `json:"nodeIds" validate:"omitempty,max=1000,dive,required,max=128"`
	EdgeID   string   `json:"edgeId" validate:"omitempty,max=128"`
	Additive bool     `json:"additive"`
}

// AddDeviceRequest places a catalog device on the working copy.
type AddDeviceRequest struct {
	TypeID    string `json:"typeId" validate:"required,max=64"`
	DeviceKey string `json:"deviceKey" validate:"required,max=128"`
}

// AddFrameRequest places a section or rack frame.
type AddFrameRequest struct {
	Kind  string `json:"kind" validate:"required,oneof=section rack"`
	Label string `json:"label" validate:"omitempty,max=100"`
}

// AddDisplayRequest places a decorative device image in a rack.
type AddDisplayRequest struct {
	TypeID  string `json:"typeId" validate:"required,max=64"`
	ImageID string `json:"imageId" validate:"required,max=128"`
}

// CreateMapRequest creates a new leaf and its empty document.
type CreateMapRequest struct {
	ParentKey string `json:"parentKey" validate:"required,max=128"`
	Name      string `json:"name" validate:"required,max=100"`
	Kind      string `json:"kind" validate:"required,mapkind"`
}

// RenameRequest renames a tree leaf.
type RenameRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// LayoutRequest auto-arranges the working copy.
type LayoutRequest struct {
	Algorithm string `json:"algorithm" validate:"required,oneof=hierarchical circular force"`
}

// IntervalRequest overrides the overlay poll interval.
type IntervalRequest struct {
	Seconds int `json:"seconds" validate:"gte=1,lte=86400"`
}

// Request validates any of the request types above using struct tags.
func Request(req any) error {
	if req == nil {
		return errors.New("request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	if r, ok := req.(*CreateMapRequest); ok && strings.TrimSpace(r.Name) == "" {
		return errors.New("Name: must not be blank")
	}
	if r, ok := req.(*RenameRequest); ok && strings.TrimSpace(r.Name) == "" {
		return errors.New("Name: must not be blank")
	}
	return nil
}

// ValidateWireDocument checks a document received from a client or the
// backend: kind, node ids, and the document integrity rules.
func ValidateWireDocument(w *graph.WireDocument) error {
	if w == nil {
		return errors.New("document cannot be nil")
	}
	if err := validate.Var(string(w.Kind), "omitempty,mapkind"); err != nil {
		return fmt.Errorf("kind: %q is not a known map kind", w.Kind)
	}
	if len(w.DataNode) > MaxBatchSize*10 {
		return fmt.Errorf("dataNode: maximum %d nodes allowed, got %d", MaxBatchSize*10, len(w.DataNode))
	}
	for i, n := range w.DataNode {
		if n == nil {
			return fmt.Errorf("dataNode[%d]: node cannot be null", i)
		}
		if err := ValidateID(string(n.ID)); err != nil {
			return fmt.Errorf("dataNode[%d]: %w", i, err)
		}
	}
	for i, e := range w.EdgeNode {
		if err := ValidateID(string(e.ID)); err != nil {
			return fmt.Errorf("edgeNode[%d]: %w", i, err)
		}
	}
	return w.Document().Validate()
}

// ValidateID validates a node, edge, or tree key.
func ValidateID(id string) error {
	if id == "" {
		return errors.New("id cannot be empty")
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("id '%s' exceeds maximum length of %d characters", id, MaxIDLength)
	}
	if strings.TrimSpace(id) != id {
		return fmt.Errorf("id '%s' has leading or trailing whitespace", id)
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Field()
		param := e.Param()

		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min", "gte":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max", "lte":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "gt":
			return fmt.Errorf("%s: must be greater than %s", field, param)
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s]", field, param)
		case "nefield":
			return fmt.Errorf("%s: must differ from %s", field, param)
		case "mapkind":
			return fmt.Errorf("%s: must be one of [topology rack geo]", field)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}

	return err
}

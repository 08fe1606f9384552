package memory

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-noc/pkg/backend"
	"github.com/dd0wney/cluso-noc/pkg/devicetree"
	"github.com/dd0wney/cluso-noc/pkg/graph"
)

// DefaultFixture seeds the demo console.
//
//go:embed fixture.yaml
var DefaultFixture []byte

// Fixture is the YAML seed of an in-memory backend.
type Fixture struct {
	Tree        []devicetree.TreeNode    `yaml:"tree"`
	Documents   []map[string]any         `yaml:"documents"`
	Overlay     map[string][]overlayRow  `yaml:"overlay"`
	DeviceTypes []backend.DeviceType     `yaml:"deviceTypes"`
	Devices     []backend.Device         `yaml:"devices"`
	Images      []backend.DeviceImage    `yaml:"images"`
	Events      []backend.UnhandledEvent `yaml:"events"`
}

type overlayRow struct {
	DeviceKey string `yaml:"deviceKey"`
	Urgent    int    `yaml:"urgent"`
	Important int    `yaml:"important"`
	Minor     int    `yaml:"minor"`
	Total     int    `yaml:"total"`
}

func (r overlayRow) record() (graph.OverlayRecord, error) {
	key, err := graph.NormalizeDeviceKey(r.DeviceKey)
	if err != nil {
		return graph.OverlayRecord{}, err
	}
	total := r.Total
	if total == 0 {
		total = r.Urgent + r.Important + r.Minor
	}
	return graph.OverlayRecord{
		DeviceKey: key,
		FaultCounts: graph.FaultCounts{
			Urgent: r.Urgent, Important: r.Important, Minor: r.Minor, Total: total,
		},
	}, nil
}

// ParseFixture decodes a YAML fixture.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return &f, nil
}

// LoadFixture reads and decodes a YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(data)
}

// documents converts the YAML documents through their JSON wire shape so
// node payloads decode exactly as they do from a remote backend.
func (f *Fixture) documents() ([]graph.Document, error) {
	out := make([]graph.Document, 0, len(f.Documents))
	for i, raw := range f.Documents {
		data, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		var doc graph.Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		if doc.MapID == "" {
			return nil, fmt.Errorf("document %d has no mapId", i)
		}
		out = append(out, doc)
	}
	return out, nil
}

package graph

import "fmt"

// Mode is the interaction mode of an open document.
type Mode int

const (
	ModeView Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	switch m {
	case ModeView:
		return "view"
	case ModeEdit:
		return "edit"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "view":
		*m = ModeView
	case "edit":
		*m = ModeEdit
	default:
		return fmt.Errorf("unknown mode %q", text)
	}
	return nil
}

// Interactable reports whether a node can be selected in the given mode.
// A node persisted with selectable=false never is. Otherwise, in view mode
// frames and sections are inert backdrops, and in edit mode every decoded
// variant can be moved or resized. Fallback nodes are never interactable.
func Interactable(n *Node, mode Mode) bool {
	if n == nil || n.IsFallback() || !n.Selectable {
		return false
	}
	if mode == ModeEdit {
		return true
	}
	return n.Variant().IsDeviceBacked()
}

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-noc/pkg/devicetree"
	"github.com/dd0wney/cluso-noc/pkg/graph"
	"github.com/dd0wney/cluso-noc/pkg/session"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			MarginLeft(1)

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#666666")).
			Padding(0, 1)

	focusedPaneStyle = paneStyle.
				BorderForeground(lipgloss.Color("#FF00FF"))

	editBadgeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#FFFF00")).
			Padding(0, 1)

	viewBadgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#005F87")).
			Padding(0, 1)

	urgentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

// Console is the part of the controller the terminal view drives.
type Console interface {
	Tree() []devicetree.TreeNode
	State() session.State
	Nodes() []*graph.Node
	SelectLeaf(ctx context.Context, key string) error
	Refresh(ctx context.Context) error
	LoadTree(ctx context.Context) error
	EnterEdit() error
	Save(ctx context.Context) error
	Cancel(ctx context.Context) error
}

type keyMap struct {
	Tab     key.Binding
	Open    key.Binding
	Refresh key.Binding
	Reload  key.Binding
	Edit    key.Binding
	Save    key.Binding
	Cancel  key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Tab:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch pane")),
	Open:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open map")),
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Reload:  key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "reload tree")),
	Edit:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
	Save:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save")),
	Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel edit")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Open, k.Refresh, k.Edit, k.Save, k.Cancel, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Tab, k.Open, k.Refresh, k.Reload}, {k.Edit, k.Save, k.Cancel, k.Quit}}
}

// leafItem is a tree leaf in the map picker.
type leafItem struct {
	node devicetree.TreeNode
	path string
}

func (i leafItem) Title() string       { return i.node.Title }
func (i leafItem) Description() string { return fmt.Sprintf("%s · %s", i.node.Kind, i.path) }
func (i leafItem) FilterValue() string { return i.node.Title + " " + i.path }

// leafItems flattens the tree into its leaves, labelled with their
// ancestors' titles.
func leafItems(roots []devicetree.TreeNode) []list.Item {
	var items []list.Item
	var walk func(nodes []devicetree.TreeNode, path []string)
	walk = func(nodes []devicetree.TreeNode, path []string) {
		for _, n := range nodes {
			if n.IsLeaf {
				items = append(items, leafItem{node: n, path: strings.Join(path, " / ")})
				continue
			}
			walk(n.Children, append(path[:len(path):len(path)], n.Title))
		}
	}
	walk(roots, nil)
	return items
}

// nodeRows renders the device-backed nodes of a document with their badges.
func nodeRows(nodes []*graph.Node) []table.Row {
	rows := make([]table.Row, 0, len(nodes))
	for _, n := range nodes {
		ref, ok := n.Device()
		if !ok {
			continue
		}
		counts, _ := n.Overlay()
		urgent := fmt.Sprint(counts.Urgent)
		if counts.Urgent > 0 {
			urgent = urgentStyle.Render(urgent)
		}
		rows = append(rows, table.Row{
			string(n.ID),
			ref.Name,
			string(ref.DeviceKey),
			urgent,
			fmt.Sprint(counts.Important),
			fmt.Sprint(counts.Minor),
		})
	}
	return rows
}

type pane int

const (
	treePane pane = iota
	nodesPane
)

// eventMsg carries a controller state event.
type eventMsg session.StateEvent

// doneMsg reports the outcome of a controller operation.
type doneMsg struct {
	action string
	err    error
}

type closedMsg struct{}

type model struct {
	ctx     context.Context
	console Console
	events  <-chan session.StateEvent

	leaves list.Model
	nodes  table.Model
	help   help.Model
	keys   keyMap
	focus  pane

	state   session.State
	message string
	isErr   bool
	width   int
	height  int
}

func newModel(ctx context.Context, c Console, events <-chan session.StateEvent) model {
	leaves := list.New(leafItems(c.Tree()), list.NewDefaultDelegate(), 40, 20)
	leaves.Title = "Maps"
	leaves.SetShowHelp(false)

	nodes := table.New(
		table.WithColumns([]table.Column{
			{Title: "Node", Width: 14},
			{Title: "Name", Width: 16},
			{Title: "Device", Width: 10},
			{Title: "Urgent", Width: 7},
			{Title: "Important", Width: 9},
			{Title: "Minor", Width: 6},
		}),
		table.WithHeight(15),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#FF00FF"))
	nodes.SetStyles(s)

	return model{
		ctx:     ctx,
		console: c,
		events:  events,
		leaves:  leaves,
		nodes:   nodes,
		help:    help.New(),
		keys:    keys,
		state:   c.State(),
	}
}

func waitForEvent(events <-chan session.StateEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return closedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m model) run(action string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return doneMsg{action: action, err: fn()}
	}
}

func (m model) Init() tea.Cmd {
	return waitForEvent(m.events)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.leaves.SetSize(msg.Width/3, msg.Height-8)
		m.nodes.SetHeight(msg.Height - 10)
		return m, nil

	case eventMsg:
		m.state = msg.State
		switch msg.Kind {
		case session.EventTree:
			m.leaves.SetItems(leafItems(m.console.Tree()))
		case session.EventDocument, session.EventOverlay, session.EventWorking:
			m.nodes.SetRows(nodeRows(m.console.Nodes()))
		}
		return m, waitForEvent(m.events)

	case closedMsg:
		return m, tea.Quit

	case doneMsg:
		m.state = m.console.State()
		m.nodes.SetRows(nodeRows(m.console.Nodes()))
		if msg.err != nil {
			m.message, m.isErr = fmt.Sprintf("%s: %v", msg.action, msg.err), true
		} else {
			m.message, m.isErr = msg.action+" done", false
		}
		return m, nil

	case tea.KeyMsg:
		if m.focus == treePane && m.leaves.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Tab):
			if m.focus == treePane {
				m.focus = nodesPane
				m.nodes.Focus()
			} else {
				m.focus = treePane
				m.nodes.Blur()
			}
			return m, nil
		case key.Matches(msg, m.keys.Open) && m.focus == treePane:
			item, ok := m.leaves.SelectedItem().(leafItem)
			if !ok {
				return m, nil
			}
			m.message, m.isErr = "loading "+item.node.Title, false
			return m, m.run("open", func() error { return m.console.SelectLeaf(m.ctx, item.node.Key) })
		case key.Matches(msg, m.keys.Refresh):
			return m, m.run("refresh", func() error { return m.console.Refresh(m.ctx) })
		case key.Matches(msg, m.keys.Reload):
			return m, m.run("reload", func() error { return m.console.LoadTree(m.ctx) })
		case key.Matches(msg, m.keys.Edit):
			return m, m.run("edit", m.console.EnterEdit)
		case key.Matches(msg, m.keys.Save):
			return m, m.run("save", func() error { return m.console.Save(m.ctx) })
		case key.Matches(msg, m.keys.Cancel) && m.state.Mode == graph.ModeEdit:
			return m, m.run("cancel", func() error { return m.console.Cancel(m.ctx) })
		}
	}

	var cmd tea.Cmd
	if m.focus == treePane {
		m.leaves, cmd = m.leaves.Update(msg)
	} else {
		m.nodes, cmd = m.nodes.Update(msg)
	}
	return m, cmd
}

func (m model) header() string {
	badge := viewBadgeStyle.Render("VIEW")
	if m.state.Mode == graph.ModeEdit {
		badge = editBadgeStyle.Render("EDIT")
	}
	crumbs := m.state.Breadcrumb.Titles()
	location := mutedStyle.Render("no map open")
	if m.state.MapID != "" {
		location = strings.Join(append(crumbs, m.state.MapID), " › ")
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, titleStyle.Render("NOC"), " ", badge, " ", location)
}

func (m model) status() string {
	st := m.state
	parts := []string{fmt.Sprintf("doc %s", st.DocStatus)}
	if st.MapID != "" {
		parts = append(parts,
			fmt.Sprintf("%d devices, %d faulted", st.Overlay.Devices, st.Overlay.Faulted),
			fmt.Sprintf("urgent %d", st.Overlay.Totals.Urgent))
	}
	if st.Polling {
		parts = append(parts, fmt.Sprintf("polling every %s", time.Duration(st.PollSeconds*float64(time.Second))))
	}
	if st.Dirty {
		parts = append(parts, "unsaved changes")
	}
	line := mutedStyle.Render(strings.Join(parts, " · "))
	if m.message != "" {
		msg := m.message
		if m.isErr {
			msg = errorStyle.Render(msg)
		}
		line += "  " + msg
	}
	return line
}

func (m model) View() string {
	left, right := paneStyle, paneStyle
	if m.focus == treePane {
		left = focusedPaneStyle
	} else {
		right = focusedPaneStyle
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		left.Render(m.leaves.View()),
		right.Render(m.nodes.View()))

	return strings.Join([]string{
		m.header(),
		body,
		m.status(),
		m.help.ShortHelpView(m.keys.ShortHelp()),
	}, "\n")
}

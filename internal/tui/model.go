package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"rescueops/internal/fleet"
	"rescueops/internal/render"
)

// Controller is the part of the console the terminal drives.
type Controller interface {
	Select(id string) error
	Deselect()
	DispatchName(name string) (fleet.Unit, error)
}

// frameMsg carries the visuals of one render pass.
type frameMsg struct {
	visuals  []render.Visual
	overlays []render.Overlay
}

// advisoryMsg carries a new advisory text.
type advisoryMsg struct{ text string }

// selectionMsg reports the selected unit id ("" when cleared).
type selectionMsg struct{ id string }

// logMsg carries a log line for the viewport.
type logMsg struct{ line string }

// resultMsg reports the outcome of an operator action.
type resultMsg struct {
	line string
	err  error
}

const maxLogLines = 200

var commandKeys = map[string]string{
	"s": "scan_area", "1": "scan_area",
	"d": "deliver_aid", "2": "deliver_aid",
	"x": "extract", "3": "extract",
	"r": "return_base", "4": "return_base",
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f8fafc")).Background(lipgloss.Color("#1e3a8a")).Padding(0, 1)
	advisoryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#a78bfa"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type model struct {
	ctrl     Controller
	window   render.Window
	band     render.Band
	backend  string
	visuals  []render.Visual
	overlays []render.Overlay
	advisory string
	selected string
	logs     []string
	vp       viewport.Model
	width    int
	height   int
	wrap     bool
	showMap  bool
	help     bool
	now      func() time.Time
}

func newModel(ctrl Controller, backend string, window render.Window, band render.Band, advisory string) model {
	return model{
		ctrl:     ctrl,
		window:   window,
		band:     band,
		backend:  backend,
		advisory: advisory,
		vp:       viewport.New(0, 0),
		showMap:  true,
		wrap:     true,
		now:      time.Now,
	}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.vp.Width = msg.Width
		m.resize()
	case frameMsg:
		m.visuals = msg.visuals
		m.overlays = msg.overlays
	case advisoryMsg:
		m.advisory = msg.text
	case selectionMsg:
		m.selected = msg.id
	case logMsg:
		m.appendLog(msg.line)
	case resultMsg:
		if msg.err != nil {
			m.appendLog(errorStyle.Render("error: " + msg.err.Error()))
		} else if msg.line != "" {
			m.appendLog(msg.line)
		}
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if m.help {
		if key == "?" || key == "esc" || key == "q" {
			m.help = false
		}
		return m, nil
	}
	switch key {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "?":
		m.help = true
	case "m":
		m.showMap = !m.showMap
	case "w":
		m.wrap = !m.wrap
		m.refreshViewport()
	case "tab":
		return m, m.selectCmd(m.cycle(1))
	case "shift+tab":
		return m, m.selectCmd(m.cycle(-1))
	case "esc":
		ctrl := m.ctrl
		return m, func() tea.Msg {
			ctrl.Deselect()
			return resultMsg{line: "selection cleared"}
		}
	default:
		if name, ok := commandKeys[key]; ok {
			return m, m.dispatchCmd(name)
		}
	}
	return m, nil
}

// Console calls run inside commands so Update never blocks on the console.
func (m model) selectCmd(id string) tea.Cmd {
	if id == "" {
		return nil
	}
	ctrl := m.ctrl
	return func() tea.Msg {
		if err := ctrl.Select(id); err != nil {
			return resultMsg{err: err}
		}
		return resultMsg{line: "selected " + id}
	}
}

func (m model) dispatchCmd(name string) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		u, err := ctrl.DispatchName(name)
		if err != nil {
			return resultMsg{err: err}
		}
		return resultMsg{line: fmt.Sprintf("%s -> %s (%s)", name, u.ID, u.Status)}
	}
}

// cycle returns the unit id dir steps away from the selection.
func (m model) cycle(dir int) string {
	var ids []string
	for _, v := range m.visuals {
		if v.Selectable {
			ids = append(ids, v.EntityID)
		}
	}
	if len(ids) == 0 {
		return ""
	}
	cur := -1
	for i, id := range ids {
		if id == m.selected {
			cur = i
			break
		}
	}
	if cur < 0 {
		if dir < 0 {
			return ids[len(ids)-1]
		}
		return ids[0]
	}
	return ids[(cur+dir+len(ids))%len(ids)]
}

func (m *model) appendLog(line string) {
	stamp := m.now().Format("15:04:05")
	m.logs = append(m.logs, stamp+" "+line)
	if len(m.logs) > maxLogLines {
		m.logs = m.logs[len(m.logs)-maxLogLines:]
	}
	m.refreshViewport()
}

func (m *model) refreshViewport() {
	lines := m.logs
	if m.wrap && m.vp.Width > 0 {
		lines = make([]string, len(m.logs))
		for i, l := range m.logs {
			lines[i] = wordwrap.String(l, m.vp.Width)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	m.vp.GotoBottom()
}

func (m *model) resize() {
	h := m.height / 4
	if h < 3 {
		h = 3
	}
	m.vp.Height = h
	m.refreshViewport()
}

func (m model) View() string {
	if m.help {
		return renderHelp()
	}
	divider := dimStyle.Render(strings.Repeat("─", max(m.width, 1)))
	sections := []string{m.renderHeader(), divider}
	if m.showMap {
		sections = append(sections, m.renderMap(), divider)
	}
	sections = append(sections, m.renderSelection(), divider, m.vp.View())
	return strings.Join(sections, "\n")
}

func (m model) renderHeader() string {
	title := titleStyle.Render("RESCUE OPS")
	info := dimStyle.Render(fmt.Sprintf(" map:%s units:%d", m.backend, m.unitCount()))
	adv := m.advisory
	if m.wrap && m.width > 0 {
		adv = wordwrap.String(adv, m.width)
	}
	return title + info + "\n" + advisoryStyle.Render(adv)
}

func (m model) unitCount() int {
	n := 0
	for _, v := range m.visuals {
		if v.Type == fleet.TypeUnit {
			n++
		}
	}
	return n
}

func (m model) renderSelection() string {
	if m.selected == "" {
		return dimStyle.Render("no unit selected  [tab] select  [?] help")
	}
	for _, v := range m.visuals {
		if v.EntityID == m.selected {
			return fmt.Sprintf("selected %s %s status:%s battery:%.0f%%  [s]can [d]eliver e[x]tract [r]eturn",
				v.EntityID, v.Kind, v.Status, v.Battery)
		}
	}
	return "selected " + m.selected
}

func (m model) mapSize() (int, int) {
	w := m.width
	if w < 10 {
		w = 40
	}
	h := m.height - m.vp.Height - 8
	if h < 5 {
		h = 12
	}
	return w, h
}

// renderMap draws zones, then victims and hazards, then units on top.
func (m model) renderMap() string {
	width, height := m.mapSize()
	grid := make([][]string, height)
	for i := range grid {
		row := make([]string, width)
		for j := range row {
			row[j] = dimStyle.Render(".")
		}
		grid[i] = row
	}
	place := func(xPct, yPct float64, cell string) {
		x := int(xPct / 100 * float64(width-1))
		y := int(yPct / 100 * float64(height-1))
		if x >= 0 && x < width && y >= 0 && y < height {
			grid[y][x] = cell
		}
	}
	for _, z := range m.overlays {
		ov := m.window.ProjectZone(z.Zone)
		st := lipgloss.NewStyle().Foreground(lipgloss.Color(z.Color))
		for deg := 0; deg < 360; deg += 15 {
			rad := float64(deg) * math.Pi / 180
			place(ov.X+math.Cos(rad)*ov.RadiusX, ov.Y+math.Sin(rad)*ov.RadiusY, st.Render("o"))
		}
	}
	for _, pass := range []fleet.EntityType{fleet.TypeVictim, fleet.TypeHazard, fleet.TypeUnit} {
		for _, v := range m.visuals {
			if v.Type != pass {
				continue
			}
			x, y := m.window.Project(fleet.Position{Lat: v.Lat, Lon: v.Lon})
			st := lipgloss.NewStyle().Foreground(lipgloss.Color(v.Style.Color))
			if v.EntityID == m.selected {
				st = st.Reverse(true)
			}
			place(m.band.Clamp(x), m.band.Clamp(y), st.Render(glyph(v)))
		}
	}
	rows := make([]string, height)
	for i, r := range grid {
		rows[i] = strings.Join(r, "")
	}
	return strings.Join(rows, "\n")
}

func glyph(v render.Visual) string {
	switch v.Type {
	case fleet.TypeUnit:
		if v.Kind == string(fleet.KindRover) {
			return "R"
		}
		return "D"
	case fleet.TypeVictim:
		return "V"
	default:
		return "!"
	}
}

func renderHelp() string {
	return strings.Join([]string{
		"Keys",
		"  tab / shift+tab  select next / previous unit",
		"  esc              clear selection",
		"  s or 1           scan area",
		"  d or 2           deliver aid",
		"  x or 3           extract",
		"  r or 4           return to base",
		"  m                toggle map",
		"  w                toggle wrap",
		"  ?                toggle help",
		"  q                quit",
	}, "\n")
}

package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/justapithecus/amiresolve/metrics"
	"github.com/justapithecus/amiresolve/types"
)

// row is one line of the region table.
type row struct {
	region types.PartitionID
	image  string
	state  string // home, found, error
	detail string
}

// ResultModel is a Bubble Tea model for a resolution result.
type ResultModel struct {
	result   *types.ResolutionResult
	snap     *metrics.Snapshot
	rows     []row
	offset   int
	width    int
	height   int
	quitting bool
}

// NewResultModel creates a result model. snap may be nil.
func NewResultModel(result *types.ResolutionResult, snap *metrics.Snapshot) ResultModel {
	return ResultModel{
		result: result,
		snap:   snap,
		rows:   buildRows(result),
	}
}

func buildRows(result *types.ResolutionResult) []row {
	rows := make([]row, 0, len(result.Images)+len(result.Failures))
	for _, region := range result.Regions() {
		state := "found"
		if region == result.Home {
			state = "home"
		}
		rows = append(rows, row{region: region, image: result.Images[region], state: state})
	}
	for _, region := range result.FailedRegions() {
		rows = append(rows, row{region: region, image: "-", state: "error", detail: result.Failures[region]})
	}
	return rows
}

// Init implements tea.Model.
func (m ResultModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ResultModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.offset = min(m.offset, m.maxOffset())
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Up):
			if m.offset > 0 {
				m.offset--
			}
		case key.Matches(msg, keys.Down):
			if m.offset < m.maxOffset() {
				m.offset++
			}
		}
	}

	return m, nil
}

// chromeLines is the height taken by everything except table rows.
const chromeLines = 20

func (m ResultModel) visibleRows() int {
	if m.height <= chromeLines {
		return len(m.rows)
	}
	return m.height - chromeLines
}

func (m ResultModel) maxOffset() int {
	return max(0, len(m.rows)-m.visibleRows())
}

// View implements tea.Model.
func (m ResultModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Image " + m.result.Seed.DisplayName()))
	b.WriteString("\n")
	b.WriteString(m.renderStats())
	b.WriteString("\n")
	b.WriteString(m.renderSeed())
	b.WriteString("\n")
	b.WriteString(m.renderTable())

	help := HelpStyle.Render(fmt.Sprintf("%s scroll • %s quit", "↑/↓", keys.Quit.Help().Key))
	return b.String() + "\n" + help
}

func (m ResultModel) renderStats() string {
	boxes := []string{
		statBox("Resolved", fmt.Sprintf("%d/%d", len(m.result.Images), m.result.PartitionsTotal)),
		statBox("Errored", fmt.Sprintf("%d", len(m.result.Failures))),
		statBox("Duration", m.result.Duration.Round(time.Millisecond).String()),
	}
	if m.snap != nil {
		boxes = append(boxes, statBox("Peak in flight", fmt.Sprintf("%d", m.snap.PeakInFlight)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
}

func statBox(label, value string) string {
	return StatBoxStyle.Render(StatValueStyle.Render(value) + "\n" + StatLabelStyle.Render(label))
}

func (m ResultModel) renderSeed() string {
	seed := m.result.Seed
	fields := [][2]string{
		{"Image ID", seed.ID},
		{"Home region", string(m.result.Home)},
		{"Description", seed.DisplayDescription()},
		{"Architecture", seed.Architecture},
		{"Virtualization", seed.VirtualizationType},
	}
	if m.result.ResolutionID != "" {
		fields = append(fields, [2]string{"Resolution ID", m.result.ResolutionID})
	}

	var b strings.Builder
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render(f[0]+":"), ValueStyle.Render(f[1]))
	}
	return BoxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func (m ResultModel) renderTable() string {
	if len(m.rows) == 0 {
		return MissStyle.Render("(no regions)")
	}

	end := min(len(m.rows), m.offset+m.visibleRows())
	var b strings.Builder
	for _, r := range m.rows[m.offset:end] {
		line := fmt.Sprintf("%-16s %-24s", r.region, r.image)
		switch r.state {
		case "home":
			line = HomeStyle.Render(line + " home")
		case "found":
			line = FoundStyle.Render(line + " found")
		case "error":
			line = ErrorStyle.Render(line + " " + r.detail)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if missing := m.result.PartitionsTotal - len(m.result.Images) - len(m.result.Failures); missing > 0 {
		b.WriteString(MissStyle.Render(fmt.Sprintf("%d region(s) without a matching image", missing)))
	}
	return strings.TrimRight(b.String(), "\n")
}

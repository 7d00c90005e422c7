package cli

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/valter-silva-au/runboard/pkg/models"
)

// Dashboard panel indices.
const (
	panelRuns = iota
	panelScalars
	panelStats
	panelCount
)

// maxDashboardRuns bounds the runs panel to the most recent runs.
const maxDashboardRuns = 15

type dashboardModel struct {
	activePanel int
	selected    int
	width       int
	height      int

	// Data.
	runs        []models.Run
	statusCount map[string]int
	statsData   *statsSnapshot
	scalars     []scalarSummary
	scalarsFor  string

	// State.
	loading bool
	err     error
}

type statsSnapshot struct {
	runsStarted       int
	runsFinished      int
	metricPoints      int
	artifactsRecorded int
	artifactsIgnored  int
	eventCount        int
}

// dataLoadedMsg carries loaded data back to the model.
type dataLoadedMsg struct {
	runs        []models.Run
	statusCount map[string]int
	stats       *statsSnapshot
	err         error
}

// scalarsLoadedMsg carries the scalar summary of one run.
type scalarsLoadedMsg struct {
	runID   string
	scalars []scalarSummary
	err     error
}

// Style definitions.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230"))

	statusRunning     = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	statusCompleted   = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	statusFailed      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	statusInterrupted = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newDashboardModel() dashboardModel {
	return dashboardModel{
		activePanel: panelRuns,
		loading:     true,
		statusCount: make(map[string]int),
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return loadData
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % panelCount
			return m, nil
		case "shift+tab":
			m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
			return m, nil
		case "up", "k":
			if m.selected > 0 {
				m.selected--
				return m, m.loadSelectedScalars()
			}
			return m, nil
		case "down", "j":
			if m.selected < len(m.runs)-1 {
				m.selected++
				return m, m.loadSelectedScalars()
			}
			return m, nil
		case "r":
			m.loading = true
			return m, loadData
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dataLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.runs = msg.runs
		m.statusCount = msg.statusCount
		m.statsData = msg.stats
		m.err = nil
		if m.selected >= len(m.runs) {
			m.selected = len(m.runs) - 1
		}
		if m.selected < 0 {
			m.selected = 0
		}
		return m, m.loadSelectedScalars()

	case scalarsLoadedMsg:
		// Drop replies for a run that is no longer selected.
		if run := m.selectedRun(); run == nil || run.ID != msg.runID {
			return m, nil
		}
		m.scalarsFor = msg.runID
		m.scalars = msg.scalars
		if msg.err != nil {
			m.scalars = nil
			m.err = msg.err
		}
		return m, nil
	}

	return m, nil
}

func (m dashboardModel) selectedRun() *models.Run {
	if m.selected < 0 || m.selected >= len(m.runs) {
		return nil
	}
	return &m.runs[m.selected]
}

func (m dashboardModel) loadSelectedScalars() tea.Cmd {
	run := m.selectedRun()
	if run == nil {
		return nil
	}
	id, path := run.ID, run.Path
	return func() tea.Msg {
		scalars, err := readScalars(path)
		if err != nil {
			return scalarsLoadedMsg{runID: id, err: fmt.Errorf("loading scalars: %w", err)}
		}
		return scalarsLoadedMsg{runID: id, scalars: summarizeScalars(scalars)}
	}
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" runboard ")
	help := helpStyle.Render("tab: switch panel | j/k: select run | r: refresh | q: quit")

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, help)
	}

	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	runsPanel := m.renderRunsPanel()
	scalarsPanel := m.renderScalarsPanel()
	statsPanel := m.renderStatsPanel()

	// Available width for panels after accounting for margins.
	availableWidth := m.width - 2

	var body string
	if availableWidth > 120 {
		colWidth := availableWidth / 3
		runsPanel = m.applyPanelStyle(panelRuns, runsPanel, colWidth-4)
		scalarsPanel = m.applyPanelStyle(panelScalars, scalarsPanel, colWidth-4)
		statsPanel = m.applyPanelStyle(panelStats, statsPanel, colWidth-4)
		body = lipgloss.JoinHorizontal(lipgloss.Top, runsPanel, scalarsPanel, statsPanel)
	} else {
		panelWidth := availableWidth - 4
		if panelWidth < 20 {
			panelWidth = 20
		}
		runsPanel = m.applyPanelStyle(panelRuns, runsPanel, panelWidth)
		scalarsPanel = m.applyPanelStyle(panelScalars, scalarsPanel, panelWidth)
		statsPanel = m.applyPanelStyle(panelStats, statsPanel, panelWidth)
		body = lipgloss.JoinVertical(lipgloss.Left, runsPanel, scalarsPanel, statsPanel)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, help)
}

func (m dashboardModel) applyPanelStyle(panel int, content string, width int) string {
	style := panelStyle
	if m.activePanel == panel {
		style = activePanelStyle
	}
	return style.Width(width).Render(content)
}

func (m dashboardModel) renderRunsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Runs"))
	b.WriteString("\n")

	if len(m.runs) == 0 {
		b.WriteString("  No runs found.")
		return b.String()
	}

	for i, r := range m.runs {
		marker := "  "
		name := truncate(r.ID, 24)
		if i == m.selected {
			marker = "> "
			name = selectedStyle.Render(name)
		}
		status := styleForStatus(string(r.Status)).Render(string(r.Status))
		b.WriteString(fmt.Sprintf("%s%s %s\n", marker, name, status))
	}

	b.WriteString("\n")
	for _, status := range []models.RunStatus{models.RunRunning, models.RunCompleted, models.RunFailed, models.RunInterrupted} {
		count := m.statusCount[string(status)]
		if count == 0 {
			continue
		}
		b.WriteString(styleForStatus(string(status)).Render(fmt.Sprintf("  %-14s %d", status, count)))
		b.WriteString("\n")
	}

	return b.String()
}

func (m dashboardModel) renderScalarsPanel() string {
	var b strings.Builder
	run := m.selectedRun()
	if run == nil {
		b.WriteString(headerStyle.Render("Scalars"))
		b.WriteString("\n  No run selected.")
		return b.String()
	}

	b.WriteString(headerStyle.Render("Scalars: " + truncate(run.ID, 24)))
	b.WriteString("\n")

	if m.scalarsFor != run.ID {
		b.WriteString("  Loading...")
		return b.String()
	}
	if len(m.scalars) == 0 {
		b.WriteString("  No scalars recorded.")
		return b.String()
	}

	for _, s := range m.scalars {
		b.WriteString(fmt.Sprintf("  %-16s %10.4g @%d\n", truncate(s.Tag, 16), s.LastValue, s.LastStep))
	}
	return b.String()
}

func (m dashboardModel) renderStatsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Activity (7d)"))
	b.WriteString("\n")

	if m.statsData == nil {
		b.WriteString("  No stats available.")
		return b.String()
	}

	sd := m.statsData
	lines := []struct {
		label string
		value int
	}{
		{"Events", sd.eventCount},
		{"Started", sd.runsStarted},
		{"Finished", sd.runsFinished},
		{"Points", sd.metricPoints},
		{"Artifacts", sd.artifactsRecorded},
		{"Ignored", sd.artifactsIgnored},
	}

	for _, l := range lines {
		b.WriteString(fmt.Sprintf("  %-14s %d\n", l.label, l.value))
	}

	return b.String()
}

func styleForStatus(status string) lipgloss.Style {
	switch models.RunStatus(status) {
	case models.RunRunning:
		return statusRunning
	case models.RunCompleted:
		return statusCompleted
	case models.RunFailed:
		return statusFailed
	case models.RunInterrupted:
		return statusInterrupted
	default:
		return lipgloss.NewStyle()
	}
}

func loadData() tea.Msg {
	result := dataLoadedMsg{
		statusCount: make(map[string]int),
	}

	if RunStore != nil {
		runs, err := RunStore.ListRuns(models.RunFilter{})
		if err != nil {
			result.err = fmt.Errorf("loading runs: %w", err)
			return result
		}
		for _, r := range runs {
			result.statusCount[string(r.Status)]++
		}
		// Newest first, capped.
		for i := len(runs) - 1; i >= 0 && len(result.runs) < maxDashboardRuns; i-- {
			result.runs = append(result.runs, runs[i])
		}
	}

	if StatsCalc != nil {
		since := time.Now().UTC().AddDate(0, 0, -7)
		stats, err := StatsCalc.Calculate(since)
		if err != nil {
			result.err = fmt.Errorf("loading stats: %w", err)
			return result
		}
		result.stats = &statsSnapshot{
			runsStarted:       stats.RunsStarted,
			runsFinished:      stats.RunsFinished,
			metricPoints:      stats.MetricPoints,
			artifactsRecorded: stats.ArtifactsRecorded,
			artifactsIgnored:  stats.ArtifactsIgnored,
			eventCount:        stats.EventCount,
		}
	}

	return result
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI dashboard for runs and their scalars",
	Long: `Launch an interactive terminal dashboard showing recent runs, the latest
scalar values of the selected run, and recent activity.

Navigate between panels with Tab, select runs with j/k, refresh with r,
quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if RunStore == nil {
			return fmt.Errorf("run store not initialized")
		}
		p := tea.NewProgram(newDashboardModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

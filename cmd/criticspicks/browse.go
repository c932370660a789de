package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/vadimtrunov/CriticsPicks/internal/config"
	"github.com/vadimtrunov/CriticsPicks/internal/core"
	"github.com/vadimtrunov/CriticsPicks/internal/picks"
)

// newBrowseCmd returns the "browse" subcommand for the terminal dashboard.
func newBrowseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse critics' picks in the terminal",
		Long: "Page through the critics' picks interactively.\n" +
			"←/h previous page, →/l next page, tab switches between picks and images, q quits.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBrowse(cmd)
		},
	}
}

// runBrowse initializes services and starts the Bubble Tea dashboard.
func runBrowse(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Logs would corrupt the alternate screen, so only errors get through.
	logger := config.SetupLogger("error")
	svc, err := initServices(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p := tea.NewProgram(newBrowseModel(ctx, svc.newController()), tea.WithAltScreen())

	// Bridge OS signal cancellation into the Bubble Tea event loop.
	go func() {
		<-ctx.Done()
		p.Send(tea.Quit())
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run browser: %w", err)
	}
	return nil
}

// Tabs of the dashboard.
const (
	tabPicks  = "picks"
	tabImages = "images"
)

// pageMsg carries a resolved view back to the TUI.
type pageMsg struct {
	view picks.View
}

// browseModel is the Bubble Tea model for the dashboard.
type browseModel struct {
	ctx      context.Context
	ctrl     *picks.Controller
	viewport viewport.Model
	spinner  spinner.Model
	view     picks.View
	tab      string
	loading  bool
	width    int
	height   int
	ready    bool
}

// newBrowseModel creates a browseModel that starts by loading the first page.
func newBrowseModel(ctx context.Context, ctrl *picks.Controller) browseModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styleInfo

	return browseModel{
		ctx:     ctx,
		ctrl:    ctrl,
		spinner: s,
		tab:     tabPicks,
		loading: true,
	}
}

// Init starts the first fetch and the spinner.
func (m browseModel) Init() tea.Cmd {
	return tea.Batch(m.load(), m.spinner.Tick)
}

// Update handles incoming messages and key presses.
func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.handleResize(msg)
		return m, nil

	case tea.KeyMsg:
		model, cmd, handled := m.handleKey(msg)
		if handled {
			return model, cmd
		}

	case pageMsg:
		m.loading = false
		m.view = msg.view
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if m.ready {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleResize adjusts the viewport on terminal resize.
func (m *browseModel) handleResize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height
	headerHeight := 2
	footerHeight := 2
	vpHeight := m.height - headerHeight - footerHeight
	if vpHeight < 1 {
		vpHeight = 1
	}
	if !m.ready {
		m.viewport = viewport.New(m.width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = vpHeight
	}
	m.refresh()
}

// handleKey dispatches navigation keys. Paging keys are ignored while a
// fetch is in flight.
func (m *browseModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c", "q":
		return *m, tea.Quit, true
	case "tab":
		if m.tab == tabPicks {
			m.tab = tabImages
		} else {
			m.tab = tabPicks
		}
		m.refresh()
		return *m, nil, true
	case "right", "l":
		if m.loading || !m.ctrl.Advance() {
			return *m, nil, true
		}
		return m.startLoad()
	case "left", "h":
		if m.loading || !m.ctrl.Retreat() {
			return *m, nil, true
		}
		return m.startLoad()
	}
	return *m, nil, false
}

func (m *browseModel) startLoad() (tea.Model, tea.Cmd, bool) {
	m.loading = true
	return *m, tea.Batch(m.load(), m.spinner.Tick), true
}

// load returns a command that resolves the current page asynchronously.
func (m browseModel) load() tea.Cmd {
	return func() tea.Msg {
		return pageMsg{view: m.ctrl.Snapshot(m.ctx)}
	}
}

// refresh re-renders the body into the viewport.
func (m *browseModel) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderBody())
	m.viewport.GotoTop()
}

// View renders the dashboard.
func (m browseModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("5")).
		Render("Critics’ Picks")

	var status string
	if m.loading {
		status = m.spinner.View() + styleDim.Render(" Loading...")
	} else {
		status = styleDim.Render(fmt.Sprintf("page %d", m.view.Offset/picks.BatchSize+1))
	}

	footerBorder := lipgloss.NewStyle().
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("8"))

	return title + "  " + m.renderTabs() + "  " + status + "\n\n" +
		m.viewport.View() + "\n" +
		footerBorder.Render(m.renderControls())
}

func (m browseModel) renderTabs() string {
	active := lipgloss.NewStyle().Bold(true).Underline(true)
	picksTab, imagesTab := styleDim.Render("Their Picks"), styleDim.Render("Related Images")
	if m.tab == tabPicks {
		picksTab = active.Render("Their Picks")
	} else {
		imagesTab = active.Render("Related Images")
	}
	return picksTab + " │ " + imagesTab
}

// renderControls draws the paging hints, greyed out when disabled.
func (m browseModel) renderControls() string {
	prev, next := styleDim.Render("← previous"), styleDim.Render("next →")
	if !m.loading && m.view.CanRetreat {
		prev = styleInfo.Render("← previous")
	}
	if !m.loading && m.view.CanAdvance {
		next = styleInfo.Render("next →")
	}
	return prev + "   " + next + "   " + styleDim.Render("tab switch view · q quit")
}

// renderBody formats the current page for the active tab.
func (m browseModel) renderBody() string {
	if m.view.Page == nil {
		return ""
	}
	if m.view.Err != nil {
		return styleError.Render("Could not load picks: "+m.view.Err.Error()) + "\n\n" + attribution(m.view.Page)
	}

	var body string
	if m.tab == tabImages {
		body = renderImages(m.ctrl, m.view.Page)
	} else {
		body = renderPicks(m.ctrl, m.view.Page)
	}
	return body + "\n" + attribution(m.view.Page)
}

// renderPicks formats the list tab: relative time, title with IMDb link,
// summary and MPAA rating.
func renderPicks(ctrl *picks.Controller, page *core.Page) string {
	if len(page.Picks) == 0 {
		return styleDim.Render("No picks on this page.") + "\n"
	}
	var sb strings.Builder
	for _, p := range page.Picks {
		if ago, err := ctrl.RelativeTime(p); err == nil {
			sb.WriteString(styleDim.Render(ago))
			sb.WriteString("\n")
		}
		sb.WriteString(styleTitle.Render(p.DisplayTitle))
		sb.WriteString("\n")
		sb.WriteString(styleDim.Render(picks.IMDbSearchURL(p.DisplayTitle)))
		sb.WriteString("\n")
		if p.SummaryShort != "" {
			sb.WriteString(p.SummaryShort)
			sb.WriteString("\n")
		}
		if p.MPAARating != "" {
			sb.WriteString(styleRating.Render(p.MPAARating) + " mpaa rating\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// renderImages formats the images tab: one line per image-eligible pick.
func renderImages(ctrl *picks.Controller, page *core.Page) string {
	var sb strings.Builder
	for _, p := range page.ImagePicks() {
		src, ok := ctrl.ImageSourceFor(p)
		if !ok {
			continue
		}
		sb.WriteString(styleTitle.Render(p.DisplayTitle))
		sb.WriteString("\n  ")
		sb.WriteString(styleDim.Render(src))
		sb.WriteString("\n")
	}
	if sb.Len() == 0 {
		return styleDim.Render("No images on this page.") + "\n"
	}
	return sb.String()
}

func attribution(page *core.Page) string {
	line := "Data provided by The New York Times"
	if page.Copyright != "" {
		line += " · " + page.Copyright
	}
	return styleDim.Render(line)
}

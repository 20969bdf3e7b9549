package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/wudi/docview/backend"
	"github.com/wudi/docview/observability"
	"github.com/wudi/docview/overlay"
	"github.com/wudi/docview/scripting"
	"github.com/wudi/docview/viewer"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	pageHeadStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	previewStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Italic(true)
	hitStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	linkStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Underline(true)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	tocStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
)

type appConfig struct {
	target      string
	isURL       bool
	proxy       *backend.Proxy
	log         observability.Logger
	initialZoom float64
	script      string
	watch       bool
}

type (
	openedMsg struct {
		sess     *viewer.Session
		surfaces *surfaceSet
		watcher  *viewer.Watcher
	}
	openErrMsg   struct{ err error }
	pageDirtyMsg struct{ page int }
	scrollToMsg  struct {
		page  int
		topPx float64
	}
	searchDoneMsg struct {
		res viewer.SearchResult
		err error
	}
	scriptDoneMsg struct{ err error }
	alertMsg      struct{ text string }
	reloadMsg     struct{}
	closedMsg     struct{}
)

type model struct {
	cfg     appConfig
	program *tea.Program

	spin   spinner.Model
	search textinput.Model
	vp     viewport.Model

	width, height int
	opening       bool
	fatal         error
	status        string

	sess     *viewer.Session
	surfaces *surfaceSet
	watcher  *viewer.Watcher

	showOutline bool
	pageRows    []int
	totalRows   int
}

func newModel(cfg appConfig) *model {
	spin := spinner.New()
	spin.Spinner = spinner.Dot

	search := textinput.New()
	search.Placeholder = "Search…"
	search.Prompt = "/"
	search.CharLimit = 120

	return &model{
		cfg:     cfg,
		spin:    spin,
		search:  search,
		vp:      viewport.New(80, 24),
		opening: true,
		status:  "opening " + cfg.target,
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.openCmd())
}

func (m *model) openCmd() tea.Cmd {
	cfg := m.cfg
	needWatch := cfg.watch && m.watcher == nil
	send := func(msg tea.Msg) { m.program.Send(msg) }
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := cfg.proxy.Start(ctx); err != nil {
			return openErrMsg{fmt.Errorf("backend handshake: %w", err)}
		}

		surfaces := newSurfaceSet(send)
		vcfg := viewer.Config{
			Logger:      cfg.log,
			Surfaces:    surfaces.factory,
			InitialZoom: cfg.initialZoom,
			OnScrollToPage: func(pageNumber int, topPx float64) {
				send(scrollToMsg{page: pageNumber, topPx: topPx})
			},
		}

		var sess *viewer.Session
		var err error
		if cfg.isURL {
			sess, err = viewer.OpenURL(ctx, cfg.proxy, cfg.target, vcfg)
		} else {
			sess, err = viewer.OpenFile(ctx, cfg.proxy, cfg.target, vcfg)
		}
		if err != nil {
			return openErrMsg{err}
		}

		var watcher *viewer.Watcher
		if needWatch {
			watcher, err = viewer.WatchFile(cfg.target, cfg.log, func() { send(reloadMsg{}) })
			if err != nil {
				cfg.log.Warn("watch failed", observability.Error("err", err))
			}
		}
		return openedMsg{sess: sess, surfaces: surfaces, watcher: watcher}
	}
}

func (m *model) scriptCmd() tea.Cmd {
	sess, src := m.sess, m.cfg.script
	send := func(msg tea.Msg) { m.program.Send(msg) }
	return func() tea.Msg {
		engine := scripting.NewEngine()
		api := viewer.NewScriptAPI(sess, func(text string) { send(alertMsg{text}) })
		if err := engine.RegisterViewer(api); err != nil {
			return scriptDoneMsg{err}
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		_, err := engine.Execute(ctx, src)
		return scriptDoneMsg{err}
	}
}

func (m *model) searchCmd(direction int) tea.Cmd {
	sess := m.sess
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		res, err := sess.Search(ctx, direction, 1)
		return searchDoneMsg{res: res, err: err}
	}
}

func (m *model) closeCmd(quit bool) tea.Cmd {
	sess, watcher := m.sess, m.watcher
	return func() tea.Msg {
		if watcher != nil && quit {
			watcher.Close()
		}
		if sess != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			sess.Close(ctx)
		}
		if quit {
			return tea.Quit()
		}
		return closedMsg{}
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.opening {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.vp.Width = msg.Width
		m.vp.Height = max(1, msg.Height-3)
		m.rebuildBody()
		m.syncVisibility()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case openedMsg:
		m.opening = false
		m.sess = msg.sess
		m.surfaces = msg.surfaces
		if msg.watcher != nil {
			m.watcher = msg.watcher
		}
		m.status = fmt.Sprintf("%s · %d pages", m.sess.Title(), m.sess.PageCount())
		m.rebuildBody()
		m.syncVisibility()
		if m.cfg.script != "" {
			return m, m.scriptCmd()
		}
		return m, nil

	case openErrMsg:
		m.opening = false
		m.fatal = msg.err
		return m, nil

	case closedMsg:
		m.sess = nil
		m.surfaces = nil
		m.opening = true
		m.status = "reloading " + m.cfg.target
		return m, tea.Batch(m.spin.Tick, m.openCmd())

	case pageDirtyMsg:
		m.rebuildBody()
		return m, nil

	case scrollToMsg:
		if msg.page >= 0 && msg.page < len(m.pageRows) {
			m.vp.SetYOffset(m.pageRows[msg.page])
			m.syncVisibility()
		}
		return m, nil

	case searchDoneMsg:
		switch {
		case msg.err != nil:
			m.status = errStyle.Render("search failed: " + msg.err.Error())
		case msg.res.Status == viewer.SearchFound:
			m.status = fmt.Sprintf("page %d · %d hits (n/N to continue)", msg.res.Page+1, msg.res.Hits)
		case msg.res.Status == viewer.SearchExhausted:
			m.status = "no more matches"
		case msg.res.Status == viewer.SearchSuperseded:
			// A newer search took over; it will report.
		default:
			m.status = "search cleared"
		}
		return m, nil

	case scriptDoneMsg:
		if msg.err != nil {
			m.status = errStyle.Render("script: " + msg.err.Error())
		} else {
			m.status = "script finished"
		}
		return m, nil

	case alertMsg:
		m.status = msg.text
		return m, nil

	case reloadMsg:
		if m.sess == nil {
			return m, nil
		}
		return m, m.closeCmd(false)
	}
	return m, nil
}

func (m *model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.search.Focused() {
		switch key.String() {
		case "esc":
			m.search.Blur()
			m.search.SetValue("")
			if m.sess != nil {
				m.sess.ClearSearch()
			}
			m.status = "search cleared"
			return m, nil
		case "enter":
			needle := m.search.Value()
			m.search.Blur()
			if m.sess == nil || needle == "" {
				return m, nil
			}
			m.sess.SetNeedle(needle)
			m.status = "searching " + needle
			return m, m.searchCmd(viewer.Forward)
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(key)
		return m, cmd
	}

	switch key.String() {
	case "q", "ctrl+c":
		return m, m.closeCmd(true)
	case "/":
		m.search.Focus()
		return m, textinput.Blink
	case "+", "=":
		if m.sess != nil {
			m.sess.ZoomIn()
			m.afterZoom()
		}
		return m, nil
	case "-", "_":
		if m.sess != nil {
			m.sess.ZoomOut()
			m.afterZoom()
		}
		return m, nil
	case "0":
		if m.sess != nil {
			m.sess.ZoomReset()
			m.afterZoom()
		}
		return m, nil
	case "n":
		if m.sess != nil && m.sess.Needle() != "" {
			return m, m.searchCmd(viewer.Forward)
		}
		return m, nil
	case "N":
		if m.sess != nil && m.sess.Needle() != "" {
			return m, m.searchCmd(viewer.Backward)
		}
		return m, nil
	case "o":
		m.showOutline = !m.showOutline
		m.rebuildBody()
		return m, nil
	case "r":
		if m.sess != nil {
			m.sess.Refresh()
		}
		return m, nil
	case "g":
		m.vp.GotoTop()
		m.syncVisibility()
		return m, nil
	case "G":
		m.vp.GotoBottom()
		m.syncVisibility()
		return m, nil
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(key)
	m.syncVisibility()
	return m, cmd
}

func (m *model) afterZoom() {
	if m.sess != nil {
		m.status = fmt.Sprintf("zoom %.0f%%", m.sess.Zoom()/viewer.BaseZoom*100)
	}
	m.syncVisibility()
}

// rebuildBody renders every page into the scrollback and records each
// page's starting row for scroll targeting.
func (m *model) rebuildBody() {
	if m.sess == nil {
		return
	}
	width := max(20, m.vp.Width-2)
	var b strings.Builder
	m.pageRows = m.pageRows[:0]
	row := 0

	if m.showOutline {
		for _, entry := range m.sess.TOC() {
			line := fmt.Sprintf("%s%s (p.%d)", strings.Repeat("  ", entry.Depth), entry.Title, entry.Page+1)
			b.WriteString(tocStyle.Render(line))
			b.WriteByte('\n')
			row++
		}
		b.WriteByte('\n')
		row++
	}

	count := m.sess.PageCount()
	for i := 0; i < count; i++ {
		m.pageRows = append(m.pageRows, row)
		for _, line := range m.renderPage(i, count, width) {
			b.WriteString(line)
			b.WriteByte('\n')
			row++
		}
		b.WriteByte('\n')
		row++
	}
	m.totalRows = row

	offset := m.vp.YOffset
	m.vp.SetContent(b.String())
	m.vp.SetYOffset(offset)
}

func (m *model) renderPage(i, count, width int) []string {
	view := m.surfaces.view(i)

	state := "loading"
	switch {
	case view.bitmapW > 0 && view.preview:
		state = previewStyle.Render(fmt.Sprintf("%d×%dpx preview", view.bitmapW, view.bitmapH))
	case view.bitmapW > 0:
		state = fmt.Sprintf("%d×%dpx", view.bitmapW, view.bitmapH)
	}
	lines := []string{pageHeadStyle.Render(fmt.Sprintf("── Page %d/%d ── %s", i+1, count, state))}

	if len(view.hits) > 0 {
		lines = append(lines, hitStyle.Render(fmt.Sprintf("⌕ %d matches on this page", len(view.hits))))
	}

	for _, text := range joinRows(view.text) {
		lines = append(lines, strings.Split(wordwrap.String(text, width), "\n")...)
	}
	for _, link := range view.links {
		lines = append(lines, linkStyle.Render("→ "+link.URI))
	}
	return lines
}

// joinRows groups text boxes sharing a baseline row into single lines,
// left to right.
func joinRows(boxes []overlay.TextBox) []string {
	if len(boxes) == 0 {
		return nil
	}
	sorted := make([]overlay.TextBox, len(boxes))
	copy(sorted, boxes)
	sort.SliceStable(sorted, func(a, b int) bool {
		if sorted[a].Y != sorted[b].Y {
			return sorted[a].Y < sorted[b].Y
		}
		return sorted[a].X < sorted[b].X
	})

	var rows []string
	current := sorted[0].Text
	currentY := sorted[0].Y
	for _, box := range sorted[1:] {
		if box.Y-currentY < 1 {
			current += " " + box.Text
			continue
		}
		rows = append(rows, current)
		current = box.Text
		currentY = box.Y
	}
	return append(rows, current)
}

// syncVisibility translates the text viewport into pixel-space viewport
// geometry so the core schedules the right pages.
func (m *model) syncVisibility() {
	if m.sess == nil || m.totalRows == 0 {
		return
	}
	count := m.sess.PageCount()
	if count == 0 {
		return
	}
	last := m.sess.Page(count - 1)
	if last == nil {
		return
	}
	totalPx := m.sess.PageTop(count-1) + last.Size().Height*overlay.Scale(m.sess.Zoom())

	pxPerRow := totalPx / float64(m.totalRows)
	m.sess.SetViewport(float64(m.vp.YOffset)*pxPerRow, float64(m.vp.Height)*pxPerRow)
}

func (m *model) View() string {
	if m.fatal != nil {
		return errStyle.Render("docview: "+m.fatal.Error()) + "\n\npress q to exit\n"
	}

	title := m.cfg.target
	zoom := ""
	if m.sess != nil {
		if t := m.sess.Title(); t != "" {
			title = t
		}
		zoom = fmt.Sprintf(" · %.0f%%", m.sess.Zoom()/viewer.BaseZoom*100)
	}
	header := headerStyle.Render("docview") + " " + title + zoom

	var footer string
	switch {
	case m.opening:
		footer = m.spin.View() + " " + m.status
	case m.search.Focused():
		footer = m.search.View()
	default:
		footer = statusStyle.Render(m.status + "  —  / search · n/N next/prev · +/-/0 zoom · o outline · r refresh · q quit")
	}

	return header + "\n" + m.vp.View() + "\n" + footer
}

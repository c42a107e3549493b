//go:build !gui

package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/metcalfc/chattoc/internal/dom"
	"github.com/metcalfc/chattoc/internal/drag"
	"github.com/metcalfc/chattoc/internal/feed"
	"github.com/metcalfc/chattoc/internal/state"
	"github.com/metcalfc/chattoc/internal/toc"
)

// Version info (injected via ldflags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	panelWidth    = 44
	launcherLabel = " TOC "
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4"))

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF"))

	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA"))

	itemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#DDDDDD"))

	hiddenItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#555555"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	thumbStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6688AA"))

	launcherStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Bold(true)

	backdropStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	userLineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true)
)

// dispatcher routes timer-goroutine callbacks back onto the program loop.
type dispatcher struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

func (d *dispatcher) bind(fn func(tea.Msg)) {
	d.mu.Lock()
	d.send = fn
	d.mu.Unlock()
}

func (d *dispatcher) Dispatch(msg tea.Msg) {
	d.mu.Lock()
	fn := d.send
	d.mu.Unlock()
	if fn != nil {
		fn(msg)
	}
}

type (
	lineMsg       []byte
	checkDueMsg   struct{}
	streamDueMsg  struct{}
	scrollTickMsg struct{}
)

type itemHit struct {
	rect     drag.Rect
	targetID string
}

// app holds all mutable UI state; the bubbletea model shares it by
// pointer.
type app struct {
	doc   *dom.Document
	fd    *feed.Feed
	sess  *toc.Session
	sched *toc.Scheduler
	store *state.Store
	disp  *dispatcher

	width  int
	height int

	panelX, panelY int
	minimized      bool
	listHidden     bool

	search    textinput.Model
	listTop   int // list scroll offset in items
	scroll    int // backdrop scroll offset in lines
	scrollAim int
	scrolling bool

	backdrop      []string
	turnLine      map[*dom.Node]int
	backdropDirty bool

	ctrl        *drag.Controller
	dragSurface string // "panel" or "launcher" while a press is live

	// hit regions from the last render
	hitHeader   drag.Rect
	hitButtons  map[string]drag.Rect
	hitSearch   drag.Rect
	hitItems    []itemHit
	hitPanel    drag.Rect
	hitLauncher drag.Rect

	quitting bool
}

type model struct {
	*app
}

func newApp(doc *dom.Document, store *state.Store, maxItems int) *app {
	a := &app{
		doc:        doc,
		store:      store,
		disp:       &dispatcher{},
		turnLine:   make(map[*dom.Node]int),
		hitButtons: make(map[string]drag.Rect),
		width:      80,
		height:     24,
		panelX:     drag.Margin,
		panelY:     drag.Margin / 2,
	}
	a.fd = feed.New(doc)

	opts := toc.DefaultOptions()
	if maxItems > 0 {
		opts.MaxItems = maxItems
	}
	opts.ScrollTo = a.scrollToTurn
	opts.OnStreamIdle = func() { a.disp.Dispatch(streamDueMsg{}) }
	a.sess = toc.NewSession(doc, opts)

	a.sched = toc.NewScheduler(toc.SchedulerConfig{
		Delay:   600 * time.Millisecond,
		Count:   a.sess.UserTurnCount,
		Sync:    a.syncNow,
		Handoff: func() { a.disp.Dispatch(checkDueMsg{}) },
	})
	doc.Observe(doc.Root(), a.sched.Notify)

	ti := textinput.New()
	ti.Placeholder = "Search in TOC…"
	ti.Prompt = "/ "
	ti.CharLimit = 64
	ti.Width = panelWidth - 8
	a.search = ti

	a.ctrl = drag.New(drag.Config{
		Size:      a.dragSize,
		Viewport:  func() (int, int) { return a.width, a.height },
		Place:     a.dragPlace,
		OnDragEnd: a.dragEnded,
	})

	st, _ := store.Load()
	a.minimized = st.Minimized
	if st.HasPos {
		a.panelX, a.panelY = st.PosLeft, st.PosTop
	}

	a.syncNow()
	return a
}

// syncNow runs a full synchronization pass and refreshes the backdrop.
func (a *app) syncNow() {
	a.sess.Rebuild(false)
	a.backdropDirty = true
}

func (a *app) refresh() {
	a.sess.Rebuild(true)
	a.backdropDirty = true
}

func (a *app) scrollToTurn(n *dom.Node) {
	if line, ok := a.turnLine[n]; ok {
		a.scrollAim = line
		a.scrolling = true
	}
}

func (a *app) dragSize() (int, int) {
	if a.dragSurface == "launcher" {
		return a.hitLauncher.W, a.hitLauncher.H
	}
	return a.hitPanel.W, a.hitPanel.H
}

func (a *app) dragPlace(left, top int) {
	a.panelX, a.panelY = left, top
}

func (a *app) dragEnded() {
	// Panel and launcher share one persisted position.
	a.store.Save(state.PosPatch(a.panelX, a.panelY))
}

func (a *app) setMinimized(min bool) {
	if a.minimized == min {
		return
	}
	a.minimized = min
	a.store.Save(state.MinPatch(min))
}

func (a *app) clampIntoViewport() {
	w, h := a.surfaceSize()
	a.panelX, a.panelY = drag.Clamp(a.panelX, a.panelY, w, h, a.width, a.height)
}

func (a *app) surfaceSize() (int, int) {
	if a.minimized {
		return a.hitLauncher.W, a.hitLauncher.H
	}
	return a.hitPanel.W, a.hitPanel.H
}

func (m model) Init() tea.Cmd {
	m.sched.Kick()
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.updateKey(msg)

	case tea.MouseMsg:
		return m.updateMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.backdropDirty = true
		m.clampIntoViewport()
		return m, nil

	case lineMsg:
		if err := m.fd.Apply(msg); err == nil {
			m.backdropDirty = true
		}
		return m, nil

	case checkDueMsg:
		m.sched.RunDueCheck()
		return m, nil

	case streamDueMsg:
		m.sess.ApplyStreamPatch()
		m.backdropDirty = true
		return m, nil

	case scrollTickMsg:
		return m, m.stepScroll()
	}

	return m, nil
}

func (m model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.search.Focused() {
		switch msg.String() {
		case "esc", "enter":
			m.search.Blur()
			return m, nil
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		m.sess.SetFilter(m.search.Value())
		return m, cmd
	}

	switch msg.String() {
	case "q", "Q", "ctrl+c":
		m.quitting = true
		m.sess.Close()
		m.sched.Stop()
		return m, tea.Quit

	case "/":
		if !m.minimized {
			return m, m.search.Focus()
		}

	case "r":
		m.refresh()

	case "m":
		m.setMinimized(!m.minimized)
		m.clampIntoViewport()

	case "h":
		m.listHidden = !m.listHidden

	case "pgup":
		m.scroll -= m.height / 2
		if m.scroll < 0 {
			m.scroll = 0
		}
		m.scrolling = false

	case "pgdown":
		m.scroll += m.height / 2
		m.scrolling = false
	}
	return m, nil
}

func (m model) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.wheel(-3, msg.X, msg.Y)
		case tea.MouseButtonWheelDown:
			m.wheel(3, msg.X, msg.Y)
		case tea.MouseButtonLeft:
			m.pressAt(msg.X, msg.Y)
		default:
			// Non-primary buttons are ignored entirely.
		}
		return m, nil

	case tea.MouseActionMotion:
		m.ctrl.PointerMove(msg.X, msg.Y)
		return m, nil

	case tea.MouseActionRelease:
		m.ctrl.PointerUp()
		if !m.ctrl.MovedRecently() {
			return m.clickAt(msg.X, msg.Y)
		}
		return m, nil
	}
	return m, nil
}

func (a *app) wheel(delta, x, y int) {
	if !a.minimized && a.hitPanel.Contains(x, y) {
		a.listTop += delta
		if a.listTop < 0 {
			a.listTop = 0
		}
		return
	}
	a.scroll += delta
	if a.scroll < 0 {
		a.scroll = 0
	}
	a.scrolling = false
}

func (a *app) pressAt(x, y int) {
	if a.minimized {
		if a.hitLauncher.Contains(x, y) {
			a.dragSurface = "launcher"
			a.ctrl.PointerDown(x, y, true, false, a.panelX, a.panelY)
		}
		return
	}
	if a.hitHeader.Contains(x, y) {
		onControl := false
		for _, r := range a.hitButtons {
			if r.Contains(x, y) {
				onControl = true
				break
			}
		}
		a.dragSurface = "panel"
		a.ctrl.PointerDown(x, y, true, onControl, a.panelX, a.panelY)
	}
}

func (m model) clickAt(x, y int) (tea.Model, tea.Cmd) {
	if m.minimized {
		if m.hitLauncher.Contains(x, y) {
			m.setMinimized(false)
			m.clampIntoViewport()
		}
		return m, nil
	}

	for name, r := range m.hitButtons {
		if !r.Contains(x, y) {
			continue
		}
		switch name {
		case "refresh":
			m.refresh()
		case "min":
			m.setMinimized(true)
			m.clampIntoViewport()
		case "hide":
			m.listHidden = !m.listHidden
		}
		return m, nil
	}

	if m.hitSearch.Contains(x, y) {
		return m, m.search.Focus()
	}

	for _, hit := range m.hitItems {
		if hit.rect.Contains(x, y) {
			m.sess.Activate(hit.targetID)
			if m.scrolling {
				return m, tea.Tick(16*time.Millisecond, func(time.Time) tea.Msg {
					return scrollTickMsg{}
				})
			}
			return m, nil
		}
	}
	return m, nil
}

// stepScroll eases the backdrop toward the scroll target.
func (a *app) stepScroll() tea.Cmd {
	if !a.scrolling {
		return nil
	}
	diff := a.scrollAim - a.scroll
	if diff == 0 {
		a.scrolling = false
		return nil
	}
	step := diff / 3
	if step == 0 {
		if diff > 0 {
			step = 1
		} else {
			step = -1
		}
	}
	a.scroll += step
	return tea.Tick(16*time.Millisecond, func(time.Time) tea.Msg {
		return scrollTickMsg{}
	})
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	if m.backdropDirty {
		m.renderBackdrop()
	}

	bg := m.backdropView()
	if m.minimized {
		return m.overlay(bg, m.launcherView())
	}
	return m.overlay(bg, m.panelView())
}

// renderBackdrop lays the transcript out as plain wrapped lines and
// records each turn's starting line for scroll-to-turn.
func (a *app) renderBackdrop() {
	a.backdropDirty = false
	a.backdrop = a.backdrop[:0]
	a.turnLine = make(map[*dom.Node]int)

	w := a.width - 2
	if w < 20 {
		w = 20
	}

	for i, t := range toc.Locate(a.doc) {
		if t.Root == nil {
			continue
		}
		a.turnLine[t.Root] = len(a.backdrop)

		user := ""
		if t.User != nil {
			user = t.User.Text()
		}
		head := fmt.Sprintf("#%d You: %s", i+1, user)
		for _, l := range wrapPlain(head, w) {
			a.backdrop = append(a.backdrop, userLineStyle.Render(l))
		}

		if t.Assistant != nil {
			for _, l := range wrapPlain(t.Assistant.Text(), w) {
				a.backdrop = append(a.backdrop, backdropStyle.Render("  "+l))
			}
		}
		a.backdrop = append(a.backdrop, "")
	}
}

func (a *app) backdropView() string {
	lines := make([]string, a.height)
	maxScroll := len(a.backdrop) - a.height
	if maxScroll < 0 {
		maxScroll = 0
	}
	if a.scroll > maxScroll {
		a.scroll = maxScroll
	}
	for i := 0; i < a.height; i++ {
		src := a.scroll + i
		if src >= 0 && src < len(a.backdrop) {
			lines[i] = a.backdrop[src]
		}
	}
	return strings.Join(lines, "\n")
}

func (a *app) panelView() string {
	inner := panelWidth - 2

	title := titleStyle.Render("Conversation TOC")
	buttons := buttonStyle.Render("[⟳] [_] [≡]")
	gap := inner - ansi.StringWidth(title) - ansi.StringWidth(buttons)
	if gap < 1 {
		gap = 1
	}
	header := title + strings.Repeat(" ", gap) + buttons

	rows := []string{header}
	if !a.listHidden {
		rows = append(rows, a.search.View())
		rows = append(rows, a.listRows(inner)...)
	}

	for i, r := range rows {
		if ansi.StringWidth(r) > inner {
			rows[i] = ansi.Truncate(r, inner, "…")
		}
	}
	body := strings.Join(rows, "\n")
	panel := panelStyle.Width(inner).Render(body)

	// Hit regions, offset to screen coordinates.
	a.hitPanel = drag.Rect{X: a.panelX, Y: a.panelY, W: panelWidth, H: len(rows) + 2}
	a.hitHeader = drag.Rect{X: a.panelX + 1, Y: a.panelY + 1, W: inner, H: 1}
	btnX := a.panelX + 1 + ansi.StringWidth(title) + gap
	a.hitButtons = map[string]drag.Rect{
		"refresh": {X: btnX, Y: a.panelY + 1, W: 3, H: 1},
		"min":     {X: btnX + 4, Y: a.panelY + 1, W: 3, H: 1},
		"hide":    {X: btnX + 8, Y: a.panelY + 1, W: 3, H: 1},
	}
	a.hitSearch = drag.Rect{}
	if !a.listHidden {
		a.hitSearch = drag.Rect{X: a.panelX + 1, Y: a.panelY + 2, W: inner, H: 1}
	}
	return panel
}

// listRows renders the visible window of items and records their hit
// regions.
func (a *app) listRows(inner int) []string {
	a.hitItems = a.hitItems[:0]

	var visible []*toc.Item
	for _, it := range a.sess.Items() {
		if it.Visible {
			visible = append(visible, it)
		}
	}

	maxRows := a.height - 8
	if maxRows < 4 {
		maxRows = 4
	}

	var rows []string
	y := a.panelY + 3 // border + header + search
	shown := 0
	for idx, it := range visible {
		if idx < a.listTop {
			continue
		}
		if len(rows) >= maxRows {
			break
		}
		start := len(rows)

		rows = append(rows, itemStyle.Render(fmt.Sprintf("%d. %s", it.Ordinal+1, it.Title)))
		if len(it.Thumbs) > 0 {
			rows = append(rows, thumbStyle.Render("  🖼 "+strings.Join(shortNames(it.Thumbs), " ")))
		}
		if it.Summary != "" {
			rows = append(rows, metaStyle.Render("  "+it.Summary))
		}

		a.hitItems = append(a.hitItems, itemHit{
			rect:     drag.Rect{X: a.panelX + 1, Y: y + start, W: inner, H: len(rows) - start},
			targetID: it.TargetID,
		})
		shown++
	}

	if shown == 0 {
		rows = append(rows, hiddenItemStyle.Render("(no matching turns)"))
	}
	return rows
}

func (a *app) launcherView() string {
	badge := launcherStyle.Render(launcherLabel)
	a.hitLauncher = drag.Rect{
		X: a.panelX,
		Y: a.panelY,
		W: ansi.StringWidth(launcherLabel) + 2,
		H: 3,
	}
	return badge
}

// overlay composites fg over bg at the panel position.
func (a *app) overlay(bg, fg string) string {
	bgLines := strings.Split(bg, "\n")
	fgLines := strings.Split(fg, "\n")

	fgWidth := 0
	for _, l := range fgLines {
		if w := ansi.StringWidth(l); w > fgWidth {
			fgWidth = w
		}
	}

	x, y := drag.Clamp(a.panelX, a.panelY, fgWidth, len(fgLines), a.width, a.height)

	out := make([]string, len(bgLines))
	for i, bgLine := range bgLines {
		fi := i - y
		if fi < 0 || fi >= len(fgLines) {
			out[i] = bgLine
			continue
		}
		out[i] = compositeRow(bgLine, fgLines[fi], x, fgWidth, a.width)
	}
	return strings.Join(out, "\n")
}

// compositeRow overlays fgLine onto bgLine at column x.
func compositeRow(bgLine, fgLine string, x, fgWidth, total int) string {
	var sb strings.Builder

	stripped := ansi.Strip(bgLine)
	bgWidth := ansi.StringWidth(stripped)

	if x > 0 {
		left := ansi.Truncate(stripped, x, "")
		sb.WriteString(backdropStyle.Render(left))
		if pad := x - ansi.StringWidth(left); pad > 0 {
			sb.WriteString(strings.Repeat(" ", pad))
		}
	}

	sb.WriteString(fgLine)
	if pad := fgWidth - ansi.StringWidth(fgLine); pad > 0 {
		sb.WriteString(strings.Repeat(" ", pad))
	}

	right := x + fgWidth
	if right < total && bgWidth > right {
		sb.WriteString(backdropStyle.Render(ansi.Cut(stripped, right, bgWidth)))
	}
	return sb.String()
}

func shortNames(srcs []string) []string {
	out := make([]string, len(srcs))
	for i, s := range srcs {
		if idx := strings.LastIndexByte(s, '/'); idx >= 0 && idx+1 < len(s) {
			s = s[idx+1:]
		}
		out[i] = toc.Summarize(s, 12)
	}
	return out
}

func wrapPlain(s string, w int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}
	var lines []string
	cur := words[0]
	for _, word := range words[1:] {
		if len(cur)+1+len(word) > w {
			lines = append(lines, cur)
			cur = word
			continue
		}
		cur += " " + word
	}
	return append(lines, cur)
}

func main() {
	maxItems := flag.Int("n", 250, "Maximum rendered TOC items (default: 250)")
	seedPath := flag.String("seed", "", "HTML transcript export to preload")
	showVersion := flag.Bool("v", false, "Show version information")
	showVersionLong := flag.Bool("version", false, "Show version information")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Chattoc - Live Conversation Table of Contents\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  chattoc [options] transcript.jsonl\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  chattoc chat.jsonl                 Follow a live transcript\n")
		fmt.Fprintf(os.Stderr, "  chattoc -seed chat.html chat.jsonl Preload an HTML export\n")
		fmt.Fprintf(os.Stderr, "\nControls:\n")
		fmt.Fprintf(os.Stderr, "  /        Search the TOC\n")
		fmt.Fprintf(os.Stderr, "  r        Force refresh\n")
		fmt.Fprintf(os.Stderr, "  m        Minimize/restore the panel\n")
		fmt.Fprintf(os.Stderr, "  h        Hide/show the item list\n")
		fmt.Fprintf(os.Stderr, "  drag     Move the panel by its title\n")
		fmt.Fprintf(os.Stderr, "  Q        Quit\n")
	}
	flag.Parse()

	if *showVersion || *showVersionLong {
		fmt.Printf("chattoc %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: No transcript provided.")
		fmt.Fprintln(os.Stderr, "Try: chattoc -h")
		os.Exit(1)
	}
	transcript := flag.Arg(0)

	var doc *dom.Document
	if *seedPath != "" {
		f, err := os.Open(*seedPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to read seed '%s': %v\n", *seedPath, err)
			os.Exit(1)
		}
		parsed, err := dom.Parse(f)
		f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to parse seed '%s': %v\n", *seedPath, err)
			os.Exit(1)
		}
		doc = parsed
	} else {
		doc = dom.NewDocument()
	}

	a := newApp(doc, state.NewStore(), *maxItems)

	lines, stopWatch, err := feed.Watch(transcript)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to watch '%s': %v\n", transcript, err)
		os.Exit(1)
	}
	defer stopWatch()

	p := tea.NewProgram(model{app: a}, tea.WithAltScreen(), tea.WithMouseAllMotion())
	a.disp.bind(p.Send)

	go func() {
		for line := range lines {
			p.Send(lineMsg(line))
		}
	}()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

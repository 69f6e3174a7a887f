// Package app is the root Bubble Tea model of the table viewer.
package app

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/golang/glog"

	"github.com/tgate/dataviewer/internal/client"
	"github.com/tgate/dataviewer/internal/live"
	"github.com/tgate/dataviewer/internal/prefs"
	"github.com/tgate/dataviewer/internal/query"
	"github.com/tgate/dataviewer/internal/theme"
	"github.com/tgate/dataviewer/internal/views/columns"
	"github.com/tgate/dataviewer/internal/views/debug"
	"github.com/tgate/dataviewer/internal/views/detail"
	"github.com/tgate/dataviewer/internal/views/filters"
	"github.com/tgate/dataviewer/internal/views/grid"
	"github.com/tgate/dataviewer/internal/views/status"
	"github.com/tgate/dataviewer/internal/views/tabs"
)

const (
	eventBuffer    = 64
	requestTimeout = 15 * time.Second
	// lines taken by the status bar, tab bar and help line
	chromeHeight = 6
)

// Overlay identifies which modal is active.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayDetail
	OverlaySearch
	OverlayColumns
	OverlayHelp
	OverlayDebug
)

// API is the read-only REST surface besides table pages.
type API interface {
	FetchStatus(ctx context.Context) (map[string]client.TableStatus, error)
	FetchSchema(ctx context.Context, table string) (*client.Schema, error)
}

// Pages is the query cache.
type Pages interface {
	live.Invalidator
	Watch(key query.Key) query.Entry
	Retry(key query.Key)
	Updates() <-chan query.Update
}

// PrefsStore loads and saves remembered table views.
type PrefsStore interface {
	Load() (*prefs.Prefs, error)
	Save(p *prefs.Prefs) error
}

// Deps wires the model to its collaborators. Prefs is optional.
type Deps struct {
	API            API
	Pages          Pages
	Subscribe      Subscriber
	Prefs          PrefsStore
	Tabs           []tabs.Tab
	StatusInterval time.Duration
}

type (
	openMsg       struct{ table string }
	eventMsg      live.Event
	updateMsg     query.Update
	statusTickMsg struct{}
	statusMsg     struct {
		status map[string]client.TableStatus
		err    error
	}
	schemaMsg struct {
		table   string
		columns []string
		err     error
	}
)

// Model is the root Bubble Tea model.
type Model struct {
	deps   Deps
	ctx    context.Context
	cancel context.CancelFunc

	keys   KeyMap
	width  int
	height int

	overlay Overlay
	feed    Feed
	events  chan live.Event

	// Query state per table, so switching back restores the last view.
	queries map[string]client.Filters
	schemas map[string][]string
	entry   query.Entry
	prefs   *prefs.Prefs

	// Sub-views.
	statusBar status.Model
	tabs      tabs.Model
	grid      grid.Model
	search    filters.Model
	columns   columns.Model
	detail    detail.Model
	debug     debug.Model
}

// New creates the root model. Nothing connects until Init.
func New(deps Deps) Model {
	if len(deps.Tabs) == 0 {
		deps.Tabs = tabs.DefaultTabs()
	}
	if deps.StatusInterval <= 0 {
		deps.StatusInterval = query.DefaultStatusInterval
	}
	p := prefs.New()
	if deps.Prefs != nil {
		loaded, err := deps.Prefs.Load()
		if err != nil {
			glog.Warningf("app: %v; starting with default views", err)
		} else {
			p = loaded
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return Model{
		deps:      deps,
		ctx:       ctx,
		cancel:    cancel,
		keys:      DefaultKeyMap(),
		events:    make(chan live.Event, eventBuffer),
		queries:   make(map[string]client.Filters),
		schemas:   make(map[string][]string),
		prefs:     p,
		statusBar: status.New(),
		tabs:      tabs.New(deps.Tabs),
		grid:      grid.New(),
		search:    filters.New(),
		columns:   columns.New(),
		debug:     debug.New(),
	}
}

// Init opens the first table and starts the status poll.
func (m Model) Init() tea.Cmd {
	active := m.tabs.Active
	return tea.Batch(
		func() tea.Msg { return openMsg{table: active} },
		m.fetchStatus(),
		waitEvent(m.events),
		waitUpdate(m.deps.Pages.Updates()),
	)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width
		m.tabs.Width = msg.Width
		m.grid.SetSize(msg.Width, msg.Height-chromeHeight)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case openMsg:
		return m, m.open(msg.table)

	case eventMsg:
		return m, tea.Batch(m.handleEvent(live.Event(msg)), waitEvent(m.events))

	case updateMsg:
		if msg.Key == m.key() {
			m.show(msg.Entry)
		}
		if msg.Entry.Err != nil && !msg.Entry.Fetching {
			m.debug.Addf(debug.KindError, "%s: %v", msg.Key.Table, msg.Entry.Err)
		} else if !msg.Entry.Fetching && msg.Entry.Page != nil {
			m.debug.Addf(debug.KindQuery, "%s page %d: %d rows of %d",
				msg.Key.Table, msg.Entry.Page.Page, len(msg.Entry.Page.Rows), msg.Entry.Page.Total)
		}
		return m, waitUpdate(m.deps.Pages.Updates())

	case statusTickMsg:
		if m.feed != nil && m.statusBar.Reconcile(m.feed.Connected()) {
			m.debug.Addf(debug.KindWS, "%s: connection state resynced", m.tabs.Active)
		}
		return m, m.fetchStatus()

	case statusMsg:
		next := tea.Tick(m.deps.StatusInterval, func(time.Time) tea.Msg { return statusTickMsg{} })
		if msg.err != nil {
			m.debug.Addf(debug.KindError, "status: %v", msg.err)
			return m, next
		}
		if m.tabs.SetStatus(msg.status) {
			m.debug.Addf(debug.KindNav, "switching to %s, the only table with data", m.tabs.Active)
			return m, tea.Batch(next, m.open(m.tabs.Active))
		}
		return m, next

	case schemaMsg:
		if msg.err != nil {
			m.debug.Addf(debug.KindError, "schema %s: %v", msg.table, msg.err)
			return m, nil
		}
		m.schemas[msg.table] = msg.columns
		if msg.table == m.tabs.Active {
			m.columns.SetAll(msg.columns)
			m.show(m.entry)
		}
		return m, nil

	case status.FrameMsg:
		return m, m.statusBar.Animate()
	}

	return m, nil
}

// open makes table the active view: the previous feed is closed, the
// table's own feed started and its current page watched.
func (m *Model) open(table string) tea.Cmd {
	if m.feed != nil {
		m.feed.Close()
		m.feed = nil
	}
	m.tabs.Active = table
	m.overlay = OverlayNone
	m.entry = query.Entry{}
	m.statusBar.Reset(table)
	m.columns.Reset(table)
	if cols := m.prefs.Table(table).Columns; len(cols) > 0 {
		m.columns.SetVisible(cols)
	}
	m.debug.Addf(debug.KindNav, "open %s", table)

	events := m.events
	feed, err := m.deps.Subscribe(table, m.deps.Pages, func(ev live.Event) {
		select {
		case events <- ev:
		default:
			glog.Warningf("app: event buffer full, dropping %s event for %s", ev.Kind, ev.Table)
		}
	})
	if err != nil {
		glog.Errorf("app: subscribe %s: %v", table, err)
		m.debug.Addf(debug.KindError, "subscribe %s: %v", table, err)
	} else {
		m.feed = feed
		feed.Start()
	}

	m.watch()
	if cols, ok := m.schemas[table]; ok {
		m.columns.SetAll(cols)
		m.show(m.entry)
		return nil
	}
	return m.fetchSchema(table)
}

func (m Model) current() client.Filters {
	if f, ok := m.queries[m.tabs.Active]; ok {
		return f
	}
	f := client.DefaultFilters()
	size := m.prefs.Table(m.tabs.Active).PageSize
	for _, s := range client.PageSizes {
		if s == size {
			f.PageSize = size
		}
	}
	return f
}

// savePrefs writes a snapshot of the preferences in the background.
func (m Model) savePrefs() tea.Cmd {
	store := m.deps.Prefs
	if store == nil {
		return nil
	}
	snap := m.prefs.Clone()
	return func() tea.Msg {
		if err := store.Save(snap); err != nil {
			glog.Warningf("app: saving prefs: %v", err)
		}
		return nil
	}
}

func (m Model) key() query.Key {
	return query.Key{Table: m.tabs.Active, Filters: m.current()}
}

// setFilters stores f for the active table and watches the matching page.
func (m *Model) setFilters(f client.Filters) {
	m.queries[m.tabs.Active] = f
	m.watch()
}

func (m *Model) watch() {
	m.show(m.deps.Pages.Watch(m.key()))
}

// show renders e into the grid and status bar.
func (m *Model) show(e query.Entry) {
	m.entry = e
	m.statusBar.Fetching = e.Fetching
	m.statusBar.FetchErr = e.Err

	var rows []client.Row
	if e.Page != nil {
		rows = e.Page.Rows
	}
	order := grid.OrderColumns(m.schemas[m.tabs.Active], rows)
	if len(m.columns.All) == 0 && len(order) > 0 {
		m.columns.SetAll(order)
	}
	m.grid.SetData(m.tabs.Active, m.columns.Visible(order), m.current(), e.Page, e.Err)
}

func (m *Model) handleEvent(ev live.Event) tea.Cmd {
	if ev.Table != m.tabs.Active {
		return nil
	}
	switch ev.Kind {
	case live.EventOpened:
		m.debug.Addf(debug.KindWS, "%s: connected", ev.Table)
	case live.EventClosed:
		if ev.Retrying {
			m.debug.Addf(debug.KindWS, "%s: closed %d %s, retry in %v", ev.Table, ev.Code, ev.Reason, ev.RetryIn)
		} else {
			m.debug.Addf(debug.KindWS, "%s: closed %d %s", ev.Table, ev.Code, ev.Reason)
		}
	case live.EventMessage:
		if ev.Relevant {
			m.debug.Addf(debug.KindWS, "%s: %s", ev.Notification.Channel, string(ev.Notification.Payload))
		}
	}
	return m.statusBar.Apply(ev)
}

func waitEvent(ch <-chan live.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}

func waitUpdate(ch <-chan query.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return nil
		}
		return updateMsg(u)
	}
}

func (m Model) fetchStatus() tea.Cmd {
	api, parent := m.deps.API, m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, requestTimeout)
		defer cancel()
		st, err := api.FetchStatus(ctx)
		return statusMsg{status: st, err: err}
	}
}

func (m Model) fetchSchema(table string) tea.Cmd {
	api, parent := m.deps.API, m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, requestTimeout)
		defer cancel()
		s, err := api.FetchSchema(ctx, table)
		if err != nil {
			return schemaMsg{table: table, err: err}
		}
		return schemaMsg{table: table, columns: s.Names()}
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// ctrl+c quits from anywhere; q is text inside the search overlay.
	if msg.Type == tea.KeyCtrlC {
		return m.quit()
	}
	if m.overlay != OverlayNone {
		return m.handleOverlayKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Down):
		m.grid.MoveDown(1)
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.grid.MoveUp(1)
		return m, nil

	case key.Matches(msg, m.keys.NextPage):
		f := m.current()
		if p := m.grid.Page(); p != nil && f.Page < p.TotalPages() {
			f.Page++
			m.setFilters(f)
		}
		return m, nil

	case key.Matches(msg, m.keys.PrevPage):
		f := m.current()
		if f.Page > 1 {
			f.Page--
			m.setFilters(f)
		}
		return m, nil

	case key.Matches(msg, m.keys.SortLeft):
		m.grid.MoveSortCursor(-1)
		return m, nil

	case key.Matches(msg, m.keys.SortRight):
		m.grid.MoveSortCursor(1)
		return m, nil

	case key.Matches(msg, m.keys.Sort):
		if col, ok := m.grid.SortTarget(); ok {
			f := m.current()
			f.ToggleSort(col)
			m.setFilters(f)
		}
		return m, nil

	case key.Matches(msg, m.keys.PageSizeUp):
		return m, m.setPageSize(1)

	case key.Matches(msg, m.keys.PageSizeDown):
		return m, m.setPageSize(-1)

	case key.Matches(msg, m.keys.Tab):
		if m.tabs.Next() {
			return m, m.open(m.tabs.Active)
		}
		return m, nil

	case key.Matches(msg, m.keys.Table1):
		return m, m.selectTab(0)

	case key.Matches(msg, m.keys.Table2):
		return m, m.selectTab(1)

	case key.Matches(msg, m.keys.Search):
		m.overlay = OverlaySearch
		return m, m.search.Open(m.tabs.Active, m.current(), false)

	case key.Matches(msg, m.keys.Fields):
		m.overlay = OverlaySearch
		return m, m.search.Open(m.tabs.Active, m.current(), true)

	case key.Matches(msg, m.keys.Columns):
		m.overlay = OverlayColumns
		return m, nil

	case key.Matches(msg, m.keys.Enter):
		if row, ok := m.grid.Selected(); ok {
			order := grid.OrderColumns(m.schemas[m.tabs.Active], []client.Row{row})
			m.detail = detail.New(m.tabs.Active, row, order, m.width)
			m.overlay = OverlayDetail
		}
		return m, nil

	case key.Matches(msg, m.keys.Reconnect):
		if m.feed != nil {
			m.debug.Addf(debug.KindWS, "%s: manual reconnect", m.tabs.Active)
			m.feed.Reconnect()
		}
		return m, nil

	case key.Matches(msg, m.keys.Retry):
		m.deps.Pages.Retry(m.key())
		return m, nil

	case key.Matches(msg, m.keys.Debug):
		m.overlay = OverlayDebug
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.overlay = OverlayHelp
		return m, nil
	}

	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.feed != nil {
		m.feed.Close()
	}
	m.cancel()
	return m, tea.Quit
}

func (m Model) handleOverlayKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Escape) {
		m.overlay = OverlayNone
		return m, nil
	}

	switch m.overlay {
	case OverlaySearch:
		switch {
		case key.Matches(msg, m.keys.Enter):
			m.overlay = OverlayNone
			m.setFilters(m.search.Apply(m.current()))
			return m, nil
		case key.Matches(msg, m.keys.NextField):
			return m, m.search.Next()
		case key.Matches(msg, m.keys.PrevField):
			return m, m.search.Prev()
		case key.Matches(msg, m.keys.ClearAll):
			m.search.Clear()
			return m, nil
		}
		return m, m.search.Update(msg)

	case OverlayColumns:
		switch {
		case key.Matches(msg, m.keys.Up):
			m.columns.Up()
		case key.Matches(msg, m.keys.Down):
			m.columns.Down()
		case key.Matches(msg, m.keys.Toggle):
			m.columns.Toggle()
			m.show(m.entry)
			m.prefs.SetColumns(m.tabs.Active, m.columns.Chosen())
			return m, m.savePrefs()
		}
		return m, nil

	case OverlayDetail:
		switch {
		case key.Matches(msg, m.keys.Up):
			m.detail.ScrollUp(1)
		case key.Matches(msg, m.keys.Down):
			m.detail.ScrollDown(1)
		}
		return m, nil

	case OverlayDebug:
		switch {
		case key.Matches(msg, m.keys.Up):
			m.debug.Scroll(1)
		case key.Matches(msg, m.keys.Down):
			m.debug.Scroll(-1)
		case key.Matches(msg, m.keys.Tab):
			m.debug.CycleFilter()
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) selectTab(i int) tea.Cmd {
	if !m.tabs.Select(i) {
		return nil
	}
	return m.open(m.tabs.Active)
}

func (m *Model) setPageSize(step int) tea.Cmd {
	f := cyclePageSize(m.current(), step)
	m.setFilters(f)
	m.prefs.SetPageSize(m.tabs.Active, f.PageSize)
	return m.savePrefs()
}

// cyclePageSize steps through client.PageSizes and returns to page 1.
func cyclePageSize(f client.Filters, step int) client.Filters {
	sizes := client.PageSizes
	i := 0
	for j, s := range sizes {
		if s == f.PageSize {
			i = j
			break
		}
	}
	i += step
	if i < 0 || i >= len(sizes) {
		return f
	}
	f.PageSize = sizes[i]
	f.Page = 1
	return f
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var body string
	switch m.overlay {
	case OverlayDetail:
		body = m.detail.View(m.height - chromeHeight)
	case OverlaySearch:
		body = m.search.View(m.width)
	case OverlayColumns:
		body = m.columns.View(m.width)
	case OverlayHelp:
		body = filters.HelpView(m.width)
	case OverlayDebug:
		body = m.debug.View(m.width, m.height-chromeHeight)
	default:
		body = m.grid.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.statusBar.View(),
		m.tabs.View(),
		body,
		theme.StyleDimmed.Render("  j/k:row  n/p:page  [/]/o:sort  +/-:size  /:search  f:fields  c:columns  enter:detail  r:reconnect  R:refetch  d:log  ?:syntax  q:quit"),
	)
}

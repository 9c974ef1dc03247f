package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spinnelein/familybook/internal/formatter"
	"github.com/spinnelein/familybook/internal/models"
	"github.com/spinnelein/familybook/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	SessionView ViewState = iota
	SelectionView
	ImportView
	ResultView
)

const progressBuffer = 50

// Engine is the part of [tasks.PickerEngine] the TUI drives.
type Engine interface {
	CreateSession(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*models.PickerSession, error)
	WaitForSelection(ctx context.Context, session *models.PickerSession, opts tasks.WaitOptions, progress chan<- tasks.ProgressUpdate) ([]models.PickedMediaItem, error)
	Import(ctx context.Context, items []models.PickedMediaItem, progress chan<- tasks.ProgressUpdate) (*models.ImportResult, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx         context.Context
	cancel      context.CancelFunc
	engine      Engine
	opts        tasks.WaitOptions
	openBrowser func(string) error
	view        ViewState
	width       int
	height      int
	session     *models.PickerSession
	items       []models.PickedMediaItem
	itemList    list.Model
	listReady   bool
	progress    tasks.ProgressUpdate
	result      *models.ImportResult
	err         error
	notice      string
	spinner     spinner.Model
	bar         progress.Model
	help        help.Model
	keys        keyMap
}

// pickedItem wraps [models.PickedMediaItem] to implement [list.Item].
type pickedItem struct {
	item models.PickedMediaItem
}

var _ list.Item = pickedItem{}

func (i pickedItem) FilterValue() string { return i.item.Filename() }
func (i pickedItem) Title() string       { return i.item.Filename() }
func (i pickedItem) Description() string {
	desc := i.item.MimeType()
	if desc == "" {
		desc = "unknown type"
	}
	if i.item.CreateTime != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.item.CreateTime)
	}
	return desc
}

// NewModel creates a new TUI model. openBrowser may be nil, in which case the picker link is only shown.
func NewModel(ctx context.Context, engine Engine, opts tasks.WaitOptions, openBrowser func(string) error) *Model {
	ctx, cancel := context.WithCancel(ctx)
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.title.UnsetMarginBottom()

	return &Model{
		ctx:         ctx,
		cancel:      cancel,
		engine:      engine,
		opts:        opts,
		openBrowser: openBrowser,
		view:        SessionView,
		spinner:     s,
		bar:         progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

// Result returns the last import result, if any.
func (m *Model) Result() *models.ImportResult { return m.result }

// Err returns the error that ended the last run, if any.
func (m *Model) Err() error { return m.err }

// Init starts the spinner and creates the first picker session.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.createSession())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if w := msg.Width - 8; w > 10 {
			m.bar.Width = w
		}
		if m.listReady {
			m.itemList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateList(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgSessionCreated:
		d := msg.data.(sessionCreated)
		if d.err != nil {
			m.err = d.err
			m.view = ResultView
			return m, nil
		}
		m.session = d.session
		return m, tea.Batch(m.waitForSelection(), m.open())

	case MsgProgressUpdate:
		d := msg.data.(progressUpdate)
		m.progress = d.update
		return m, listen(d.ch)

	case MsgSelectionResolved:
		d := msg.data.(selectionResolved)
		if d.err != nil {
			m.err = d.err
			m.view = ResultView
			return m, nil
		}
		if len(d.items) == 0 {
			m.result = &models.ImportResult{}
			m.view = ResultView
			return m, nil
		}
		m.setItems(d.items)
		m.view = SelectionView
		return m, nil

	case MsgImportComplete:
		d := msg.data.(importComplete)
		m.result = d.result
		m.err = d.err
		m.view = ResultView
		return m, nil

	case MsgBrowserOpened:
		if err, _ := msg.data.(error); err != nil {
			m.notice = fmt.Sprintf("Could not open a browser (%v). Open the link above manually.", err)
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.quit) {
		m.cancel()
		return m, tea.Quit
	}

	switch m.view {
	case SessionView:
		if key.Matches(msg, m.keys.open) && m.session != nil {
			return m, m.open()
		}
	case SelectionView:
		switch {
		case key.Matches(msg, m.keys.enter):
			m.view = ImportView
			m.progress = tasks.ProgressUpdate{}
			return m, m.startImport()
		case key.Matches(msg, m.keys.restart):
			return m.restart()
		}
		var cmd tea.Cmd
		m.itemList, cmd = m.itemList.Update(msg)
		return m, cmd
	case ResultView:
		if key.Matches(msg, m.keys.restart) {
			return m.restart()
		}
	}
	return m, nil
}

func (m *Model) restart() (tea.Model, tea.Cmd) {
	m.view = SessionView
	m.session = nil
	m.items = nil
	m.listReady = false
	m.progress = tasks.ProgressUpdate{}
	m.result = nil
	m.err = nil
	m.notice = ""
	return m, m.createSession()
}

func (m *Model) setItems(items []models.PickedMediaItem) {
	m.items = items
	listItems := make([]list.Item, len(items))
	for i, it := range items {
		listItems[i] = pickedItem{item: it}
	}
	m.itemList = list.New(listItems, list.NewDefaultDelegate(), 0, 0)
	m.itemList.Title = fmt.Sprintf("%d item(s) picked", len(items))
	m.itemList.SetSize(max(m.width-4, 20), max(m.height-8, 10))
	m.listReady = true
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.view != SelectionView || !m.listReady {
		return m, nil
	}
	var cmd tea.Cmd
	m.itemList, cmd = m.itemList.Update(msg)
	return m, cmd
}

func (m *Model) createSession() tea.Cmd {
	ctx, engine := m.ctx, m.engine
	return func() tea.Msg {
		session, err := engine.CreateSession(ctx, nil)
		return sessionCreatedMsg(session, err)
	}
}

func (m *Model) waitForSelection() tea.Cmd {
	ch := make(chan tasks.ProgressUpdate, progressBuffer)
	ctx, engine, session, opts := m.ctx, m.engine, m.session, m.opts

	run := func() tea.Msg {
		defer close(ch)
		items, err := engine.WaitForSelection(ctx, session, opts, ch)
		return selectionResolvedMsg(items, err)
	}
	return tea.Batch(run, listen(ch))
}

func (m *Model) startImport() tea.Cmd {
	ch := make(chan tasks.ProgressUpdate, progressBuffer)
	ctx, engine, items := m.ctx, m.engine, m.items

	run := func() tea.Msg {
		defer close(ch)
		result, err := engine.Import(ctx, items, ch)
		return importCompleteMsg(result, err)
	}
	return tea.Batch(run, listen(ch))
}

func (m *Model) open() tea.Cmd {
	if m.openBrowser == nil || m.session == nil {
		return nil
	}
	open, uri := m.openBrowser, m.session.PickerURI
	return func() tea.Msg {
		return browserOpenedMsg(open(uri))
	}
}

// listen receives one update from ch. A closed channel yields no message.
func listen(ch <-chan tasks.ProgressUpdate) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-ch
		if !ok {
			return nil
		}
		return progressUpdateMsg(update, ch)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case SessionView:
		return m.renderSession()
	case SelectionView:
		return m.renderSelection()
	case ImportView:
		return m.renderImport()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) renderSession() string {
	title := styles.title.Render("Import from Google Photos")

	if m.session == nil {
		return fmt.Sprintf("%s\n%s Creating picker session...\n\n%s", title, m.spinner.View(), m.help.ShortHelpView([]key.Binding{m.keys.quit}))
	}

	status := "Waiting for you to finish picking..."
	if m.progress.Phase == tasks.AwaitSelection && m.progress.Step > 0 {
		status = fmt.Sprintf("Waiting for you to finish picking (checked %d times)...", m.progress.Step)
	}

	body := fmt.Sprintf("Choose photos in your browser:\n\n  %s\n\n%s %s", styles.link.Render(m.session.PickerURI), m.spinner.View(), status)
	if m.notice != "" {
		body += "\n\n" + styles.warn.Render(m.notice)
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.open, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s", title, body, helpView)
}

func (m *Model) renderSelection() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.itemList.View(), helpView)
}

func (m *Model) renderImport() string {
	title := styles.title.Render(fmt.Sprintf("Importing %d item(s)", len(m.items)))

	var percent float64
	if m.progress.Phase == tasks.ImportMedia && m.progress.Total > 0 {
		percent = float64(m.progress.Step) / float64(m.progress.Total)
	}

	return fmt.Sprintf("%s\n%s\n\n%s", title, m.bar.ViewAs(percent), m.progress.Message)
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit})

	if m.err != nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(fmt.Sprintf("Import failed: %v", m.err)), helpView)
	}

	if m.result == nil || m.result.Requested == 0 {
		return fmt.Sprintf("%s\n\n%s", styles.warn.Render("Nothing was picked."), helpView)
	}

	title := styles.ok.Render(fmt.Sprintf("✓ Imported %d of %d item(s)", m.result.Count, m.result.Requested))
	info := fmt.Sprintf("\nDownloaded: %s\nStored: %s",
		formatter.FormatBytes(m.result.TotalOriginalSize),
		formatter.FormatBytes(m.result.TotalProcessedSize),
	)

	var failed string
	if len(m.result.Failures) > 0 {
		failed = fmt.Sprintf("\n\n%s", styles.warn.Render(fmt.Sprintf("Failed to import %d item(s):", len(m.result.Failures))))
		for _, f := range m.result.Failures {
			failed += fmt.Sprintf("\n  • %s: %s", f.Filename, f.Err)
		}
	}

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, failed, helpView)
}

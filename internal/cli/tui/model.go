package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zhouzirui/mindpeers/client/internal/app"
	"github.com/zhouzirui/mindpeers/client/internal/service/chat"
)

// UI configuration constants
const (
	defaultWidth       = 100
	defaultHeight      = 40
	inputCharLimit     = 2000
	headerReserved     = 6
	footerReserved     = 2
	minContentHeight   = 8
	healthCheckTimeout = 5 * time.Second
)

type view int

const (
	viewChat view = iota
	viewTrend
)

// ChatProgram runs the full-screen conversation.
type ChatProgram struct {
	app   *app.App
	model chatModel
}

// NewChatProgram creates a chat program over a, which must have a session.
func NewChatProgram(a *app.App) *ChatProgram {
	return &ChatProgram{app: a, model: initialModel(a)}
}

// Run starts the TUI and blocks until the user quits. Component changes made
// off the UI goroutine are forwarded to the program as refresh messages.
func (p *ChatProgram) Run() error {
	program := tea.NewProgram(p.model, tea.WithAltScreen())

	unsubscribe := subscribeAll(p.app, func() { go program.Send(refreshMsg{}) })
	defer unsubscribe()

	_, err := program.Run()
	return err
}

// subscribeAll registers refresh with every component the screen renders and
// returns a function that removes all of them.
func subscribeAll(a *app.App, refresh func()) func() {
	unsubscribe := []func(){
		a.Conversation.Subscribe(refresh),
		a.Severity.Subscribe(refresh),
		a.Trend.Subscribe(refresh),
		a.Health.Subscribe(refresh),
	}
	return func() {
		for _, fn := range unsubscribe {
			fn()
		}
	}
}

type (
	refreshMsg  struct{}
	resolvedMsg struct{ err error }
)

type chatModel struct {
	app *app.App

	input    textinput.Model
	content  viewport.Model
	spinner  spinner.Model
	view     view
	hint     string
	nextHint int

	width  int
	height int
}

func initialModel(a *app.App) chatModel {
	input := textinput.New()
	input.Placeholder = "Share what's on your mind..."
	input.Focus()
	input.CharLimit = inputCharLimit
	input.Width = defaultWidth - 3
	input.Prompt = "› "
	input.PromptStyle = promptStyle

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = dimStyle

	content := viewport.New(defaultWidth, defaultHeight-headerReserved-footerReserved)
	// Letters belong to the input; only navigation keys scroll.
	content.KeyMap = viewport.KeyMap{
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
		Up:       key.NewBinding(key.WithKeys("up")),
		Down:     key.NewBinding(key.WithKeys("down")),
	}

	m := chatModel{
		app:     a,
		input:   input,
		content: content,
		spinner: sp,
		width:   defaultWidth,
		height:  defaultHeight,
	}
	m.refreshContent()
	return m
}

var promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.checkHealth())
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if cmd, handled := m.handleKeyPress(msg); handled {
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.handleWindowResize(msg)

	case refreshMsg:
		m.refreshContent()

	case resolvedMsg:
		if msg.err != nil && !errors.Is(msg.err, chat.ErrNotPending) {
			m.hint = msg.err.Error()
		}
		m.refreshContent()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	if m.view == viewChat {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
		if value := m.input.Value(); value != m.app.Conversation.Input() {
			m.app.Conversation.SetInput(value)
		}
	}

	var cmd tea.Cmd
	m.content, cmd = m.content.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKeyPress reports handled=true when the key must not reach the input.
func (m *chatModel) handleKeyPress(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return tea.Quit, true

	case tea.KeyCtrlT:
		if m.view == viewTrend {
			m.view = viewChat
			m.input.Focus()
			m.refreshContent()
			return nil, true
		}
		m.view = viewTrend
		m.input.Blur()
		m.refreshContent()
		return m.refreshTrend(), true

	case tea.KeyTab:
		if m.view == viewChat && strings.TrimSpace(m.input.Value()) == "" {
			m.input.SetValue(Suggestions[m.nextHint%len(Suggestions)])
			m.input.CursorEnd()
			m.nextHint++
			return nil, true
		}

	case tea.KeyEnter:
		if m.view != viewChat {
			return nil, true
		}
		return m.submit(), true

	case tea.KeyRunes:
		if m.view == viewTrend && string(msg.Runes) == "r" {
			return m.refreshTrend(), true
		}
	}
	return nil, false
}

// submit appends the user turn synchronously and resolves it in a command.
func (m *chatModel) submit() tea.Cmd {
	m.hint = ""
	sub, err := m.app.Conversation.Begin(m.input.Value())
	switch {
	case errors.Is(err, chat.ErrBlankMessage), errors.Is(err, chat.ErrSendInFlight):
		return nil
	case err != nil:
		m.hint = err.Error()
		return nil
	}

	m.input.Reset()
	m.refreshContent()

	conversation := m.app.Conversation
	return func() tea.Msg {
		return resolvedMsg{err: conversation.Resolve(context.Background(), sub)}
	}
}

func (m *chatModel) refreshTrend() tea.Cmd {
	identity, ok := m.app.Session.Current()
	if !ok {
		return nil
	}
	aggregator := m.app.Trend
	return func() tea.Msg {
		aggregator.Refresh(context.Background(), identity.UserID)
		return refreshMsg{}
	}
}

func (m chatModel) checkHealth() tea.Cmd {
	monitor := m.app.Health
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
		defer cancel()
		monitor.Check(ctx)
		return refreshMsg{}
	}
}

func (m *chatModel) handleWindowResize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height
	m.content.Width = msg.Width
	m.input.Width = msg.Width - 3
	m.refreshContent()
}

// layout sizes the viewport to what the header and footer leave over. The
// banner grows with severity, so this runs on every refresh.
func (m *chatModel) layout() {
	contentHeight := m.height - lipgloss.Height(m.header()) - lipgloss.Height(m.footer())
	if contentHeight < minContentHeight {
		contentHeight = minContentHeight
	}
	m.content.Height = contentHeight
}

func (m *chatModel) refreshContent() {
	m.layout()
	if m.view == viewTrend {
		m.content.SetContent(RenderTrend(m.app.Trend.State(), m.width))
		m.content.GotoTop()
		return
	}
	m.content.SetContent(RenderConversation(
		m.app.Conversation.Messages(),
		m.app.Conversation.InFlight(),
		m.width,
	))
	m.content.GotoBottom()
}

func (m chatModel) header() string {
	status, _ := m.app.Health.Status()
	title := boldStyle.Render("MindPeers") + dimStyle.Render(" · Your safe space to talk")
	line := lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", RenderStatus(status))
	if identity, ok := m.app.Session.Current(); ok {
		line += dimStyle.Render("  " + identity.Email)
	}
	return line + "\n" + RenderBanner(m.app.Severity.Banner(), m.width)
}

func (m chatModel) footer() string {
	if m.view == viewTrend {
		return dimStyle.Render("r refresh • ctrl+t chat • esc quit")
	}

	var sb strings.Builder
	if m.app.Conversation.InFlight() {
		sb.WriteString(m.spinner.View() + " ")
	}
	sb.WriteString(m.input.View())
	sb.WriteString("\n")
	if m.hint != "" {
		sb.WriteString(errorStyle.Render(m.hint))
	} else {
		sb.WriteString(dimStyle.Render("enter send • tab suggestion • ctrl+t mood trends • esc quit"))
	}
	return sb.String()
}

func (m chatModel) View() string {
	return m.header() + "\n" + m.content.View() + "\n" + m.footer()
}

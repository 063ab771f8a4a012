// Package chat implements the interactive terminal chat with the three
// personas.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/triad-ai/triad/internal/clip"
	"github.com/triad-ai/triad/internal/core"
	"github.com/triad-ai/triad/internal/events"
	"github.com/triad-ai/triad/internal/tui"
)

// DefaultTurnTimeout bounds one turn started from the chat.
const DefaultTurnTimeout = 4 * time.Minute

// TurnProcessor answers one conversation turn.
type TurnProcessor interface {
	Process(ctx context.Context, req core.TurnRequest) core.TurnState
}

// Copier places text on a clipboard.
type Copier interface {
	Copy(text string) (clip.Result, error)
}

// TurnResultMsg carries a finished turn.
type TurnResultMsg struct {
	Turn core.TurnState
}

// TurnEventMsg carries a progress event for the running turn.
type TurnEventMsg struct {
	Event events.Event
}

// Model is the bubbletea model of the chat.
type Model struct {
	processor TurnProcessor
	sessionID string
	userID    string
	voice     bool
	timeout   time.Duration

	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	md       *glamour.TermRenderer

	history  *ConversationHistory
	commands *CommandRegistry
	copier   Copier
	eventsCh <-chan events.Event

	busy        bool
	status      string
	startedAt   time.Time
	cancel      context.CancelFunc
	suggestions []string

	width  int
	height int
}

// Option configures a Model.
type Option func(*Model)

// WithSession resumes an existing session.
func WithSession(id string) Option {
	return func(m *Model) {
		if id != "" {
			m.sessionID = id
		}
	}
}

// WithUserID sets the user recorded on every turn.
func WithUserID(id string) Option {
	return func(m *Model) { m.userID = id }
}

// WithVoice starts in single best answer mode.
func WithVoice(on bool) Option {
	return func(m *Model) { m.voice = on }
}

// WithTimeout bounds each turn.
func WithTimeout(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithEvents shows progress from the turn events on ch.
func WithEvents(ch <-chan events.Event) Option {
	return func(m *Model) { m.eventsCh = ch }
}

// WithCopier replaces the clipboard.
func WithCopier(c Copier) Option {
	return func(m *Model) { m.copier = c }
}

// NewModel creates a chat model.
func NewModel(p TurnProcessor, opts ...Option) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask the triad... (/help for commands)"
	ta.Focus()
	ta.Prompt = ""
	ta.CharLimit = core.MaxInputLength
	ta.SetWidth(80)
	ta.SetHeight(2)
	ta.ShowLineNumbers = false
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.KeyMap.InsertNewline.SetEnabled(false)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = statusStyle

	md, _ := tui.NewMarkdownRenderer(76)

	m := Model{
		processor: p,
		sessionID: uuid.NewString(),
		timeout:   DefaultTurnTimeout,
		textarea:  ta,
		viewport:  viewport.New(80, 20),
		spinner:   sp,
		md:        md,
		history:   NewConversationHistory(200),
		commands:  NewCommandRegistry(),
		copier:    clip.New(),
		width:     80,
		height:    28,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// SessionID returns the current session.
func (m Model) SessionID() string { return m.sessionID }

// History returns the conversation shown on screen.
func (m Model) History() *ConversationHistory { return m.history }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.listenForEvents())
}

// listenForEvents waits for the next bus event.
func (m Model) listenForEvents() tea.Cmd {
	if m.eventsCh == nil {
		return nil
	}
	ch := m.eventsCh
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return TurnEventMsg{Event: e}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			if m.busy && m.cancel != nil {
				m.cancel()
				m.status = "cancelling..."
				return m, nil
			}
			return m, tea.Quit
		case tea.KeyEnter:
			return m.handleSubmit()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TurnEventMsg:
		m.applyEvent(msg.Event)
		return m, m.listenForEvents()

	case TurnResultMsg:
		m.busy = false
		m.status = ""
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		if msg.Turn.SessionID != "" {
			m.sessionID = msg.Turn.SessionID
		}
		for _, r := range tui.Replies(msg.Turn) {
			m.history.Add(NewAgentMessage(r))
		}
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	cmds = append(cmds, cmd)
	m.updateSuggestions()
	return m, tea.Batch(cmds...)
}

func (m *Model) updateSuggestions() {
	v := m.textarea.Value()
	if !strings.HasPrefix(v, "/") || strings.Contains(v, " ") {
		m.suggestions = nil
		return
	}
	m.suggestions = m.commands.Suggest(v)
}

func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.textarea.Value())
	if input == "" || m.busy {
		return m, nil
	}
	m.textarea.Reset()
	m.suggestions = nil

	if cmd, args, ok := m.commands.Parse(input); ok {
		return m.handleCommand(cmd, args, input)
	}

	m.history.Add(NewUserMessage(input))
	m.busy = true
	m.status = "thinking..."
	m.startedAt = time.Now()
	m.refresh()

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	m.cancel = cancel
	return m, tea.Batch(m.spinner.Tick, m.runTurn(ctx, input))
}

func (m Model) runTurn(ctx context.Context, input string) tea.Cmd {
	p := m.processor
	req := core.TurnRequest{Input: input, SessionID: m.sessionID, UserID: m.userID, Voice: m.voice}
	return func() tea.Msg {
		return TurnResultMsg{Turn: p.Process(ctx, req)}
	}
}

func (m Model) handleCommand(cmd *Command, args []string, raw string) (tea.Model, tea.Cmd) {
	if cmd == nil {
		m.system(fmt.Sprintf("Unknown command %s. Try /help.", strings.Fields(raw)[0]))
		return m, nil
	}

	switch cmd.Name {
	case "help":
		name := ""
		if len(args) > 0 {
			name = args[0]
		}
		m.system(m.commands.Help(name))
	case "new":
		m.sessionID = uuid.NewString()
		m.history.Clear()
		m.system("Started session " + m.sessionID)
	case "clear":
		m.history.Clear()
		m.refresh()
	case "session":
		m.system("Session " + m.sessionID)
	case "voice":
		switch {
		case len(args) == 0:
			m.voice = !m.voice
		case args[0] == "on":
			m.voice = true
		case args[0] == "off":
			m.voice = false
		default:
			m.system("Usage: " + cmd.Usage)
			return m, nil
		}
		if m.voice {
			m.system("Voice mode on: only the most confident persona answers.")
		} else {
			m.system("Voice mode off: all personas answer.")
		}
	case "copy":
		var parts []string
		for _, msg := range m.history.LastAgentTurn() {
			parts = append(parts, plainLine(msg))
		}
		m.copyText(strings.Join(parts, "\n\n"))
	case "copyall":
		m.copyText(m.history.Transcript())
	case "quit":
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) copyText(text string) {
	if m.copier == nil {
		m.system("Clipboard unavailable.")
		return
	}
	res, err := m.copier.Copy(text)
	if err != nil {
		m.system("Copy failed: " + err.Error())
		return
	}
	m.system(strings.ToUpper(res.Describe()[:1]) + res.Describe()[1:] + ".")
}

func (m *Model) system(text string) {
	m.history.Add(NewSystemMessage(text))
	m.refresh()
}

// applyEvent turns progress of the running turn into a status line.
func (m *Model) applyEvent(e events.Event) {
	if e == nil || e.SessionID() != m.sessionID || !m.busy {
		return
	}
	switch ev := e.(type) {
	case events.TopicClassifiedEvent:
		m.status = "topic: " + ev.Topic
	case events.AgentSelectedEvent:
		m.status = tui.AgentLabel(core.Agent(ev.Agent)) + " is thinking..."
	case events.AgentRespondedEvent:
		m.status = fmt.Sprintf("%s answered (%.0f%%)", tui.AgentLabel(core.Agent(ev.Agent)), ev.Confidence*100)
	case events.TurnFailedEvent:
		m.status = errorStyle.Render("turn failed")
	}
}

func (m *Model) layout() {
	w := m.width - 2
	if w < 20 {
		w = 20
	}
	m.textarea.SetWidth(w - 4)
	h := m.height - 8
	if h < 3 {
		h = 3
	}
	m.viewport.Width = w
	m.viewport.Height = h
	if md, err := tui.NewMarkdownRenderer(w - 8); err == nil {
		m.md = md
	}
	m.refresh()
}

// refresh re-renders the conversation into the viewport.
func (m *Model) refresh() {
	width := m.viewport.Width - 4
	blocks := make([]string, 0, m.history.Len())
	for _, msg := range m.history.All() {
		body := msg.Content
		if msg.Role == RoleAgent {
			body = tui.RenderMarkdown(m.md, body)
		}
		blocks = append(blocks, renderMessage(msg, body, width))
	}
	m.viewport.SetContent(strings.Join(blocks, "\n\n"))
	m.viewport.GotoBottom()
}

// View implements tea.Model.
func (m Model) View() string {
	var sb strings.Builder

	mode := "transcript"
	if m.voice {
		mode = "voice"
	}
	sb.WriteString(headerStyle.Render("Triad") + mutedStyle.Render(fmt.Sprintf("  session %s  mode %s", shortID(m.sessionID), mode)))
	sb.WriteString("\n")
	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")

	if m.busy {
		elapsed := time.Since(m.startedAt).Round(time.Second)
		sb.WriteString(statusStyle.Render(fmt.Sprintf("%s %s %s", m.spinner.View(), m.status, elapsed)))
	}
	sb.WriteString("\n")

	if len(m.suggestions) > 0 {
		sb.WriteString(suggestionStyle.Render("/" + strings.Join(m.suggestions, "  /")))
		sb.WriteString("\n")
	}

	sb.WriteString(inputStyle.Render(m.textarea.View()))
	sb.WriteString("\n")
	sb.WriteString(mutedStyle.Render("enter send • pgup/pgdn scroll • esc cancel/quit"))
	return sb.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// ErrNoProcessor is returned by Run when the model cannot answer turns.
var ErrNoProcessor = errors.New("chat requires a turn processor")

// Run starts the chat on the alternate screen and blocks until it exits.
func Run(m Model) error {
	if m.processor == nil {
		return ErrNoProcessor
	}
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mixtape-labs/mixtape/internal/models"
	"github.com/mixtape-labs/mixtape/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ChatView ViewState = iota
	CreateView
	ResultView
)

// Model represents the chat application state.
type Model struct {
	ctx    context.Context
	view   ViewState
	engine *tasks.Engine

	width  int
	height int

	input      textinput.Model
	transcript viewport.Model
	lines      []string
	history    []models.ConversationTurn
	busy       bool

	pending      *models.PendingCreation
	progressChan chan tasks.ProgressUpdate
	doneChan     chan createDoneMsg
	progress     tasks.ProgressUpdate
	result       *models.CreatedPlaylist
	err          error

	help help.Model
	keys keyMap
}

// NewModel creates a new chat model with the provided dependencies.
func NewModel(ctx context.Context, engine *tasks.Engine) *Model {
	input := textinput.New()
	input.Placeholder = "Describe the playlist you want..."
	input.Focus()
	input.CharLimit = 500

	return &Model{
		ctx:    ctx,
		view:   ChatView,
		engine: engine,
		input:  input,
		help:   help.New(),
		keys:   newKeyMap(),
		lines: []string{
			styles.assistant.Render("Assistant: ") + "Hi! Tell me what kind of playlist you're in the mood for.",
		},
	}
}

func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - 4
		if m.transcript.Width == 0 {
			m.transcript = viewport.New(msg.Width-2, msg.Height-6)
			m.refreshTranscript()
		} else {
			m.transcript.Width = msg.Width - 2
			m.transcript.Height = msg.Height - 6
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			return m, tea.Quit
		case "ctrl+n":
			if m.view == ResultView {
				return m.reset(), nil
			}
		case "enter":
			if m.view == ChatView && !m.busy {
				return m, m.send()
			}
		}

	case chatRepliedMsg:
		m.busy = false
		if msg.err != nil {
			m.appendLine(styles.err.Render("Error: ") + msg.err.Error())
			return m, nil
		}
		m.history = append(m.history, models.ConversationTurn{Role: models.RoleAssistant, Content: msg.result.Reply})
		if msg.result.Ready {
			m.pending = msg.result.Pending
			m.appendLine(styles.assistant.Render("Assistant: ") +
				fmt.Sprintf("Creating %q with %d songs...", m.pending.Name, m.pending.SongCount))
			m.view = CreateView
			return m, m.startCreate()
		}
		m.appendLine(styles.assistant.Render("Assistant: ") + msg.result.Reply)
		return m, nil

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case createDoneMsg:
		m.result = msg.playlist
		m.err = msg.err
		m.view = ResultView
		return m, nil
	}

	var cmd tea.Cmd
	if m.view == ChatView {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ChatView:
		return m.renderChat()
	case CreateView:
		return m.renderCreate()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

// send dispatches the typed message to the classifier.
func (m *Model) send() tea.Cmd {
	message := strings.TrimSpace(m.input.Value())
	if message == "" {
		return nil
	}
	m.input.Reset()
	m.busy = true
	m.appendLine(styles.user.Render("You: ") + message)

	history := m.history
	m.history = append(m.history, models.ConversationTurn{Role: models.RoleUser, Content: message})

	return func() tea.Msg {
		result, err := m.engine.Chat(m.ctx, message, history)
		return chatRepliedMsg{result: result, err: err}
	}
}

// startCreate launches the creation pipeline in the background.
//
// Progress updates drain one per command; the final outcome arrives on its own
// channel once the progress channel closes.
func (m *Model) startCreate() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.doneChan = make(chan createDoneMsg, 1)

	go func() {
		playlist, err := m.engine.Create(m.ctx, m.pending, m.progressChan)
		m.doneChan <- createDoneMsg{playlist: playlist, err: err}
		close(m.progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		update, ok := <-m.progressChan
		if !ok {
			return <-m.doneChan
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) appendLine(line string) {
	m.lines = append(m.lines, line)
	m.refreshTranscript()
}

func (m *Model) refreshTranscript() {
	if m.transcript.Width == 0 {
		return
	}
	m.transcript.SetContent(strings.Join(m.lines, "\n\n"))
	m.transcript.GotoBottom()
}

func (m *Model) reset() *Model {
	m.view = ChatView
	m.history = nil
	m.pending = nil
	m.result = nil
	m.err = nil
	m.progress = tasks.ProgressUpdate{}
	m.lines = []string{
		styles.assistant.Render("Assistant: ") + "Let's make another one. What are you in the mood for?",
	}
	m.refreshTranscript()
	m.input.Reset()
	return m
}

func (m *Model) renderChat() string {
	title := styles.title.Render("Playlist Chat")

	prompt := m.input.View()
	if m.busy {
		prompt = styles.help.Render("thinking...")
	}

	return fmt.Sprintf("%s\n%s\n\n%s\n%s", title, m.transcript.View(), prompt, m.help.View(m.keys))
}

func (m *Model) renderCreate() string {
	title := styles.title.Render(fmt.Sprintf("Creating %q", m.pending.Name))

	var phase string
	switch m.progress.Phase {
	case tasks.FetchProfile:
		phase = "Looking up your profile..."
	case tasks.CreatePlaylist:
		phase = "Creating the playlist..."
	case tasks.SearchTracks:
		phase = fmt.Sprintf("Finding tracks (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.AttachTracks:
		phase = "Adding tracks..."
	default:
		phase = "Working..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, styles.help.Render(m.progress.Message))
}

func (m *Model) renderResult() string {
	if m.err != nil {
		body := styles.err.Render(fmt.Sprintf("Creation failed: %v", m.err))
		return fmt.Sprintf("%s\n\n%s", body, styles.help.Render("ctrl+n new chat • esc quit"))
	}

	title := styles.ok.Render("✓ Playlist created")
	info := fmt.Sprintf("\n%s\nTracks: %d of %d added", m.result.Name, m.result.TracksAdded, m.result.TracksRequested)
	if m.result.ExternalURL != "" {
		info += "\n" + m.result.ExternalURL
	}
	if m.result.TracksAdded < m.result.TracksRequested {
		info += "\n" + styles.warn.Render(fmt.Sprintf("%d suggestions had no match", m.result.TracksRequested-m.result.TracksAdded))
	}

	return fmt.Sprintf("%s%s\n\n%s", title, info, styles.help.Render("ctrl+n new chat • esc quit"))
}

package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/stoky/golemchat/internal/models"
	"github.com/stoky/golemchat/internal/render"
)

// TurnSender runs one conversation turn. Satisfied by *chat.Coordinator.
type TurnSender interface {
	SendTurn(ctx context.Context, sessionID, text string, image *models.ImageData, onUpdate func(buffer string)) (*models.Message, error)
}

// SessionStore is the slice of the store the TUI needs.
type SessionStore interface {
	List() []*models.ChatSession
	Get(id string) (*models.ChatSession, bool)
	Create() (*models.ChatSession, error)
	Delete(id string) (bool, error)
	Clear() error
}

type mode int

const (
	modeChat mode = iota
	modePicker
)

// Messages delivered to Update.
type (
	// streamChunkMsg carries the accumulated reply buffer after a fragment.
	streamChunkMsg struct {
		buffer string
	}
	// turnDoneMsg ends a turn: msg is the committed assistant message
	// (reply or error notice), err the classified failure if any.
	turnDoneMsg struct {
		msg *models.Message
		err error
	}
)

// Model is the chat TUI state.
type Model struct {
	sender    TurnSender
	store     SessionStore
	modelName string

	session *models.ChatSession

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	mode         mode
	loading      bool
	ready        bool
	err          error
	streamBuf    string
	stream       chan tea.Msg
	pendingImage *models.ImageData
	imageName    string

	pickerSessions []*models.ChatSession
	pickerCursor   int

	width  int
	height int
}

// NewModel creates the chat model, resuming the most recently updated
// session or creating one when the store is empty.
func NewModel(sender TurnSender, st SessionStore, modelName string) (Model, error) {
	ta := textarea.New()
	ta.Placeholder = "Type a message... (/image <path> to attach, /help for commands)"
	ta.CharLimit = 4000
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.Focus()

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(colorText)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorTextDim)
	ta.BlurredStyle = ta.FocusedStyle

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = loadingStyle

	sess, err := resumeOrCreate(st)
	if err != nil {
		return Model{}, err
	}

	return Model{
		sender:    sender,
		store:     st,
		modelName: modelName,
		session:   sess,
		textarea:  ta,
		spinner:   sp,
	}, nil
}

// resumeOrCreate picks the session with the newest UpdatedAt, or creates
// a fresh one when none exist.
func resumeOrCreate(st SessionStore) (*models.ChatSession, error) {
	sessions := st.List()
	if len(sessions) == 0 {
		return st.Create()
	}

	latest := sessions[0]
	for _, sess := range sessions[1:] {
		if sess.UpdatedAt.After(latest.UpdatedAt) {
			latest = sess
		}
	}
	return latest, nil
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.mode == modePicker {
		return m.updatePicker(msg)
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 2
		inputHeight := 5
		statusHeight := 1

		vpHeight := m.height - headerHeight - inputHeight - statusHeight
		if vpHeight < 5 {
			vpHeight = 5
		}
		contentWidth := m.width - 2

		if !m.ready {
			m.viewport = viewport.New(contentWidth, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = contentWidth
			m.viewport.Height = vpHeight
		}
		m.textarea.SetWidth(contentWidth - 4)
		m.refreshViewport()
		m.viewport.GotoBottom()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "ctrl+n":
			if !m.loading {
				return m.startNewSession()
			}

		case "ctrl+h":
			if !m.loading {
				m.enterPicker()
				return m, nil
			}

		case "esc":
			if !m.loading {
				return m, tea.Quit
			}

		case "enter":
			if m.loading {
				break
			}
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				break
			}
			return m.handleInput(input)
		}

	case streamChunkMsg:
		m.streamBuf = msg.buffer
		m.refreshViewport()
		m.viewport.GotoBottom()
		return m, waitForStream(m.stream)

	case turnDoneMsg:
		m.loading = false
		m.streamBuf = ""
		m.stream = nil
		// The notice for a classified failure is already in the
		// transcript; only surface failures that committed nothing.
		if msg.msg == nil && msg.err != nil {
			m.err = msg.err
		}
		m.reloadSession()
		m.refreshViewport()
		m.viewport.GotoBottom()

	case spinner.TickMsg:
		if m.loading {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	if !m.loading {
		if _, ok := msg.(tea.KeyMsg); ok {
			m.textarea, cmd = m.textarea.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleInput dispatches slash commands or starts a turn.
func (m Model) handleInput(input string) (tea.Model, tea.Cmd) {
	switch {
	case input == "exit" || input == "quit" || input == "/exit" || input == "/quit":
		return m, tea.Quit

	case input == "/new":
		m.textarea.Reset()
		return m.startNewSession()

	case input == "/sessions" || input == "/history":
		m.textarea.Reset()
		m.enterPicker()
		return m, nil

	case strings.HasPrefix(input, "/image"):
		m.textarea.Reset()
		path := strings.TrimSpace(strings.TrimPrefix(input, "/image"))
		if path == "" {
			m.err = fmt.Errorf("usage: /image <path>")
			return m, nil
		}
		img, err := models.LoadImage(path)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.pendingImage = img
		m.imageName = filepath.Base(path)
		m.err = nil
		return m, nil
	}

	m.textarea.Reset()
	m.loading = true
	m.err = nil

	image := m.pendingImage
	m.pendingImage = nil
	m.imageName = ""

	cmd := m.startTurn(input, image)

	// Show the user message immediately; the committed copy replaces
	// this local one when the turn finishes.
	draft := models.Message{Role: models.RoleUser, Content: input}
	if image != nil {
		draft.ImageURL = image.DataURI()
	}
	m.session.Messages = append(m.session.Messages, draft)
	m.refreshViewport()
	m.viewport.GotoBottom()

	return m, tea.Batch(cmd, waitForStream(m.stream), m.spinner.Tick)
}

// startTurn launches the turn in a goroutine; fragments and the final
// result arrive through the stream channel.
func (m *Model) startTurn(text string, image *models.ImageData) tea.Cmd {
	ch := make(chan tea.Msg, 32)
	m.stream = ch

	sender := m.sender
	sessionID := m.session.ID

	return func() tea.Msg {
		go func() {
			msg, err := sender.SendTurn(context.Background(), sessionID, text, image, func(buffer string) {
				ch <- streamChunkMsg{buffer: buffer}
			})
			ch <- turnDoneMsg{msg: msg, err: err}
			close(ch)
		}()
		return nil
	}
}

// waitForStream relays the next stream event to Update.
func waitForStream(ch chan tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		return <-ch
	}
}

func (m Model) startNewSession() (tea.Model, tea.Cmd) {
	sess, err := m.store.Create()
	if err != nil {
		m.err = err
		return m, nil
	}
	m.session = sess
	m.err = nil
	m.refreshViewport()
	return m, nil
}

// reloadSession re-reads the current session so the view reflects what
// was durably stored.
func (m *Model) reloadSession() {
	if sess, ok := m.store.Get(m.session.ID); ok {
		m.session = sess
	}
}

// refreshViewport re-renders the transcript, including the in-flight
// reply buffer while streaming.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	textWidth := m.viewport.Width - 4
	var content strings.Builder

	for i, msg := range m.session.Messages {
		if i > 0 {
			content.WriteString("\n")
		}
		m.writeMessage(&content, msg.Role, msg.Content, msg.ImageURL != "", textWidth)
	}

	if m.loading {
		if len(m.session.Messages) > 0 {
			content.WriteString("\n")
		}
		content.WriteString(assistantLabelStyle.Render("✦ Golem"))
		content.WriteString("\n")
		if m.streamBuf == "" {
			content.WriteString(loadingStyle.Render(m.spinner.View() + " thinking..."))
		} else {
			content.WriteString(userTextStyle.Render(m.streamBuf + "▌"))
		}
		content.WriteString("\n")
	}

	m.viewport.SetContent(content.String())
}

func (m *Model) writeMessage(out *strings.Builder, role models.Role, text string, hasImage bool, width int) {
	if role == models.RoleUser {
		out.WriteString(userLabelStyle.Render("⬤ You"))
		out.WriteString("\n")
		if hasImage {
			out.WriteString(attachmentStyle.Render("🖼  [image attached]"))
			out.WriteString("\n")
		}
		out.WriteString(userTextStyle.Render(text))
		out.WriteString("\n")
		return
	}

	out.WriteString(assistantLabelStyle.Render("✦ Golem"))
	out.WriteString("\n")

	rendered, err := render.MarkdownWithWidth(text, width)
	if err != nil {
		rendered = text
	}
	out.WriteString(strings.TrimRight(rendered, "\n"))
	out.WriteString("\n")
}

func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}
	if m.mode == modePicker {
		return m.viewPicker()
	}

	var sections []string

	header := lipgloss.JoinHorizontal(
		lipgloss.Center,
		headerStyle.Render("✦ Golem AI"),
		headerInfoStyle.Render(m.session.Title+" • "+m.modelName),
	)
	sections = append(sections, header, "")

	sections = append(sections, m.viewport.View())

	if m.loading {
		sections = append(sections, inputStyle.Width(m.width-2).Render(
			loadingStyle.Render(m.spinner.View()+" Golem is thinking...")))
	} else {
		sections = append(sections, inputStyle.Width(m.width-2).Render(m.textarea.View()))
	}

	sections = append(sections, m.viewStatus())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) viewStatus() string {
	if m.err != nil {
		return statusErrorStyle.Render(" ✗ " + m.err.Error())
	}

	parts := []string{"Enter send", "Ctrl+N new", "Ctrl+H sessions", "Ctrl+C quit"}
	status := statusStyle.Render(" " + strings.Join(parts, " │ "))
	if m.imageName != "" {
		status += attachmentStyle.Render("  📎 " + m.imageName)
	}
	return status
}

// ── session picker ──

func (m *Model) enterPicker() {
	m.mode = modePicker
	m.pickerSessions = m.store.List()
	m.pickerCursor = 0
	for i, sess := range m.pickerSessions {
		if sess.ID == m.session.ID {
			m.pickerCursor = i
			break
		}
	}
}

func (m *Model) leavePicker() {
	m.mode = modeChat
	m.pickerSessions = nil
	m.pickerCursor = 0
}

func (m Model) updatePicker(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "esc":
			m.leavePicker()
			m.refreshViewport()

		case "up", "k":
			if len(m.pickerSessions) > 0 {
				m.pickerCursor--
				if m.pickerCursor < 0 {
					m.pickerCursor = len(m.pickerSessions) - 1
				}
			}

		case "down", "j":
			if len(m.pickerSessions) > 0 {
				m.pickerCursor++
				if m.pickerCursor >= len(m.pickerSessions) {
					m.pickerCursor = 0
				}
			}

		case "enter":
			if len(m.pickerSessions) > 0 {
				m.session = m.pickerSessions[m.pickerCursor]
				m.leavePicker()
				m.refreshViewport()
				m.viewport.GotoBottom()
			}

		case "n":
			sess, err := m.store.Create()
			if err != nil {
				m.err = err
				break
			}
			m.session = sess
			m.leavePicker()
			m.refreshViewport()

		case "d":
			if len(m.pickerSessions) == 0 {
				break
			}
			target := m.pickerSessions[m.pickerCursor]
			if _, err := m.store.Delete(target.ID); err != nil {
				m.err = err
				break
			}
			m.pickerSessions = m.store.List()
			if m.pickerCursor >= len(m.pickerSessions) {
				m.pickerCursor = len(m.pickerSessions) - 1
			}
			if m.pickerCursor < 0 {
				m.pickerCursor = 0
			}
			// Deleting the open session switches to another or a fresh one.
			if target.ID == m.session.ID {
				sess, err := resumeOrCreate(m.store)
				if err != nil {
					m.err = err
					break
				}
				m.session = sess
			}

		case "C":
			if err := m.store.Clear(); err != nil {
				m.err = err
				break
			}
			sess, err := m.store.Create()
			if err != nil {
				m.err = err
				break
			}
			m.session = sess
			m.leavePicker()
			m.refreshViewport()
		}
	}

	return m, nil
}

func (m Model) viewPicker() string {
	width := m.width - 8
	if width < 44 {
		width = 44
	}

	var content strings.Builder
	content.WriteString(pickerTitleStyle.Render("Sessions"))
	content.WriteString("\n\n")

	if len(m.pickerSessions) == 0 {
		content.WriteString(pickerMetaStyle.Render("  No sessions. Press n to start one."))
		content.WriteString("\n")
	}

	maxItems := m.height - 8
	if maxItems < 5 {
		maxItems = 5
	}
	start := 0
	if m.pickerCursor >= maxItems {
		start = m.pickerCursor - maxItems + 1
	}
	end := start + maxItems
	if end > len(m.pickerSessions) {
		end = len(m.pickerSessions)
	}

	for i := start; i < end; i++ {
		sess := m.pickerSessions[i]
		title := sess.Title
		if len(title) > width-28 && width > 31 {
			title = title[:width-31] + "..."
		}
		line := fmt.Sprintf("%s  %s", title,
			pickerMetaStyle.Render(fmt.Sprintf("%d msgs · %s", len(sess.Messages), sess.UpdatedAt.Format("Jan 02 15:04"))))

		style := pickerItemStyle
		if i == m.pickerCursor {
			style = pickerSelectedStyle
		}
		if sess.ID == m.session.ID {
			line += pickerMetaStyle.Render("  (open)")
		}
		content.WriteString(style.Render(line))
		content.WriteString("\n")
	}

	content.WriteString("\n")
	content.WriteString(statusStyle.Render("↑↓ navigate │ Enter open │ n new │ d delete │ C clear all │ Esc back"))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorPrimary).
		Padding(1, 2).
		Width(width)

	return box.Render(content.String())
}

// RunChat starts the interactive chat TUI.
func RunChat(sender TurnSender, st SessionStore, modelName string) error {
	m, err := NewModel(sender, st, modelName)
	if err != nil {
		return err
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// Package tui is a terminal chat client for the PDF QA server.
package tui

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	WelcomeMessage = "Welcome! Upload a PDF with /upload <path> and I'll help you explore its contents."
	NoFileMessage  = "Please select a PDF file first."
	UploadFailed   = "Failed to upload PDF. Please try again."
	AskFailed      = "Error fetching answer. Please try again."
)

// Message is one chat bubble
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

type uploadDoneMsg struct {
	name string
	err  error
}

type answerMsg struct {
	answer string
	err    error
}

// Model is the Bubble Tea model of the chat client. Messages are append
// only; the busy flags keep a second upload or question from being sent
// while one is in flight.
type Model struct {
	api       API
	sessionID string
	timeout   time.Duration

	input   textinput.Model
	spinner spinner.Model

	Messages    []Message
	PendingFile string
	Uploading   bool
	Asking      bool
	UploadError string
	pdfName     string
	width       int
}

func New(api API, sessionID string, timeout time.Duration) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question, or /upload <path>"
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		api:       api,
		sessionID: sessionID,
		timeout:   timeout,
		input:     ti,
		spinner:   sp,
		Messages:  []Message{{Role: "assistant", Content: WelcomeMessage}},
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			return m.submit()
		}

	case uploadDoneMsg:
		m.Uploading = false
		if msg.err != nil {
			m.UploadError = UploadFailed
			return m, nil
		}
		m.pdfName = msg.name
		m.PendingFile = ""
		m.UploadError = ""
		m.Messages = append(m.Messages, Message{
			Role:    "assistant",
			Content: "Successfully indexed: " + msg.name + ". I'm ready to answer your questions!",
		})
		return m, nil

	case answerMsg:
		m.Asking = false
		answer := msg.answer
		if msg.err != nil {
			answer = AskFailed
		} else if strings.TrimSpace(answer) == "" {
			answer = "No response received."
		}
		m.Messages = append(m.Messages, Message{Role: "assistant", Content: answer})
		return m, nil

	case spinner.TickMsg:
		if !m.Uploading && !m.Asking {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}

	if strings.HasPrefix(text, "/upload") {
		if m.Uploading {
			return m, nil
		}
		path := strings.TrimSpace(strings.TrimPrefix(text, "/upload"))
		m.input.Reset()
		if path == "" {
			path = m.PendingFile
		}
		if path == "" {
			m.UploadError = NoFileMessage
			return m, nil
		}
		m.PendingFile = path
		m.Uploading = true
		m.UploadError = ""
		return m, tea.Batch(m.spinner.Tick, m.uploadCmd(path))
	}

	if m.Asking {
		return m, nil
	}
	m.input.Reset()
	m.Messages = append(m.Messages, Message{Role: "user", Content: text})
	m.Asking = true
	return m, tea.Batch(m.spinner.Tick, m.askCmd(text))
}

func (m Model) uploadCmd(path string) tea.Cmd {
	api, timeout := m.api, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if _, err := api.Upload(ctx, path); err != nil {
			return uploadDoneMsg{err: err}
		}
		return uploadDoneMsg{name: filepath.Base(path)}
	}
}

func (m Model) askCmd(question string) tea.Cmd {
	api, timeout, session := m.api, m.timeout, m.sessionID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		resp, err := api.Ask(ctx, session, question)
		if err != nil {
			return answerMsg{err: err}
		}
		return answerMsg{answer: resp.Answer}
	}
}

func (m Model) View() string {
	var b strings.Builder

	pdf := m.pdfName
	if pdf == "" {
		pdf = "No PDF uploaded"
	}
	b.WriteString(headerStyle.Render("PDF AI Assistant") + "  " + mutedStyle.Render(pdf) + "\n\n")

	width := m.width - 4
	if width < 20 {
		width = 76
	}
	for _, msg := range m.Messages {
		if msg.Role == "user" {
			b.WriteString(userStyle.Width(width).Render("you: "+msg.Content) + "\n")
		} else {
			b.WriteString(assistantStyle.Width(width).Render(msg.Content) + "\n")
		}
	}

	if m.Asking {
		b.WriteString(m.spinner.View() + " Thinking...\n")
	}
	if m.Uploading {
		b.WriteString(m.spinner.View() + " Processing " + filepath.Base(m.PendingFile) + "...\n")
	}
	if m.UploadError != "" {
		b.WriteString(errorStyle.Render(m.UploadError) + "\n")
	}

	b.WriteString("\n" + inputStyle.Render(m.input.View()) + "\n")
	b.WriteString(mutedStyle.Render("enter: send  /upload <path>: index a PDF  ctrl+c: quit"))
	return b.String()
}

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	assistantStyle = lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.RoundedBorder())
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	inputStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

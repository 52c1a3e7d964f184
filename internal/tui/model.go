// Package tui is the terminal chat front end.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pdfchat/internal/session"
)

// ChatPort is the TUI-facing subset of a session.
type ChatPort interface {
	Ask(ctx context.Context, query string) (session.Answer, error)
	Document() string
}

type exchange struct {
	query   string
	answer  string
	sources []string
	failed  bool
}

// answerMsg carries the result of an asynchronous Ask.
type answerMsg struct {
	query string
	ans   session.Answer
	err   error
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	chat     ChatPort
	input    textinput.Model
	viewport viewport.Model
	log      []exchange
	summary  string
	status   string
	waiting  bool
	ready    bool
}

// New creates a new TUI model instance.
func New(chat ChatPort, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the document and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	status := "Ready. Ask a question."
	if doc := chat.Document(); doc != "" {
		status = fmt.Sprintf("Loaded %s. Ask a question.", doc)
	}
	return Model{chat: chat, input: ti, viewport: vp, summary: summary, status: status}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 2 // header + summary
		totalFooterLines := 1 // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderTranscript())
		return m, nil
	case answerMsg:
		m.waiting = false
		ex := exchange{query: msg.query}
		if msg.err != nil {
			ex.answer = "Error: " + msg.err.Error()
			ex.failed = true
			m.status = "Request failed. Try again."
		} else {
			ex.answer = msg.ans.Turn.Answer
			for _, src := range msg.ans.Sources {
				ex.sources = append(ex.sources, fmt.Sprintf("%s p.%d", src.Chunk.Source, src.Chunk.Page))
			}
			m.status = "Ready. Ask a question."
		}
		m.log = append(m.log, ex)
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.waiting {
				m.input.SetValue("")
				m.waiting = true
				m.status = "Thinking..."
				return m, askCmd(m.chat, q)
			}
		case "up":
			m.viewport.LineUp(1)
			return m, nil
		case "down":
			m.viewport.LineDown(1)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func askCmd(chat ChatPort, query string) tea.Cmd {
	return func() tea.Msg {
		ans, err := chat.Ask(context.Background(), query)
		return answerMsg{query: query, ans: ans, err: err}
	}
}

// View renders the TUI layout and the chat transcript.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("pdfchat")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) renderTranscript() string {
	if len(m.log) == 0 {
		return "No questions yet."
	}
	var b strings.Builder
	for i, ex := range m.log {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(queryStyle.Render("You: " + ex.query))
		b.WriteString("\n")
		if ex.failed {
			b.WriteString(errorStyle.Render(ex.answer))
		} else {
			b.WriteString(ex.answer)
		}
		if len(ex.sources) > 0 {
			b.WriteString("\n")
			b.WriteString(sourceStyle.Render("Sources: " + strings.Join(ex.sources, ", ")))
		}
	}
	return b.String()
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	sourceStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

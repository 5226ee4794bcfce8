package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/senseilabs/harmonyctl/internal/endpoint"
	"github.com/senseilabs/harmonyctl/internal/session"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	EntryView ViewState = iota
	ConnectingView
	ConnectedView
	ErrorView
)

const (
	codeField = iota
	siteField
)

// stateMsg carries a session transition into the Elm loop.
type stateMsg session.State

// connectDoneMsg signals that a connect call returned; the resulting
// transition arrives separately via [stateMsg].
type connectDoneMsg struct{}

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	machine *session.Machine
	suffix  string

	view      ViewState
	state     session.State
	codeInput textinput.Model
	siteInput textinput.Model
	focus     int
	spin      spinner.Model

	states      chan session.State
	unsubscribe func()

	width  int
	height int
	help   help.Model
	keys   keyMap
}

// NewModel creates a new TUI model bound to the session machine.
//
// The model subscribes immediately; call [Model.Close] (or quit the program
// through the TUI) to release the subscription.
func NewModel(ctx context.Context, machine *session.Machine, suffix string) *Model {
	if suffix == "" {
		suffix = endpoint.DefaultSuffix
	}

	code := textinput.New()
	code.Placeholder = "ABCD1234"
	code.CharLimit = 16
	code.Focus()

	site := textinput.New()
	site.Placeholder = "acme"
	site.CharLimit = 64

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = styles.warn

	m := &Model{
		ctx:       ctx,
		machine:   machine,
		suffix:    suffix,
		view:      EntryView,
		codeInput: code,
		siteInput: site,
		spin:      spin,
		states:    make(chan session.State, 16),
		help:      help.New(),
		keys:      newKeyMap(),
	}

	m.unsubscribe = machine.Subscribe(func(s session.State) {
		// Drop rather than block: listeners must not stall the machine,
		// and a newer snapshot supersedes anything unread anyway.
		select {
		case m.states <- s:
		default:
		}
	})

	return m
}

// Close releases the model's machine subscription.
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// Init loads the persisted session and starts listening for transitions.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg {
			m.machine.Initialise(m.ctx)
			return nil
		},
		m.waitForState(),
		m.spin.Tick,
	)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.codeInput.Width = min(32, msg.Width-8)
		m.siteInput.Width = min(32, msg.Width-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case EntryView:
			return m.handleEntryKeys(msg)
		case ConnectingView:
			if key.Matches(msg, m.keys.quit) {
				return m.quit()
			}
			return m, nil
		case ConnectedView:
			return m.handleConnectedKeys(msg)
		case ErrorView:
			return m.handleErrorKeys(msg)
		}

	case stateMsg:
		m.applyState(session.State(msg))
		return m, m.waitForState()

	case connectDoneMsg:
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case EntryView:
		return m.renderEntry()
	case ConnectingView:
		return m.renderConnecting()
	case ConnectedView:
		return m.renderConnected()
	case ErrorView:
		return m.renderError()
	default:
		return ""
	}
}

func (m *Model) applyState(s session.State) {
	m.state = s
	switch s.Status {
	case session.StatusConnecting:
		m.view = ConnectingView
	case session.StatusConnected:
		m.view = ConnectedView
	case session.StatusError:
		m.view = ErrorView
	case session.StatusDisconnected:
		m.view = EntryView
	}
}

func (m *Model) handleEntryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit) && m.codeInput.Value() == "" && m.siteInput.Value() == "":
		return m.quit()
	case msg.String() == "ctrl+c":
		return m.quit()
	case key.Matches(msg, m.keys.next):
		m.toggleFocus()
		return m, nil
	case key.Matches(msg, m.keys.submit):
		return m, m.connect()
	}

	var cmd tea.Cmd
	if m.focus == codeField {
		m.codeInput, cmd = m.codeInput.Update(msg)
	} else {
		m.siteInput, cmd = m.siteInput.Update(msg)
	}
	return m, cmd
}

func (m *Model) handleConnectedKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m.quit()
	case key.Matches(msg, m.keys.disconnect):
		return m, func() tea.Msg {
			m.machine.Disconnect(m.ctx)
			return nil
		}
	}
	return m, nil
}

func (m *Model) handleErrorKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m.quit()
	case key.Matches(msg, m.keys.retry), key.Matches(msg, m.keys.back):
		m.machine.ClearErrors()
		return m, nil
	}
	return m, nil
}

func (m *Model) toggleFocus() {
	if m.focus == codeField {
		m.focus = siteField
		m.codeInput.Blur()
		m.siteInput.Focus()
	} else {
		m.focus = codeField
		m.siteInput.Blur()
		m.codeInput.Focus()
	}
}

func (m *Model) connect() tea.Cmd {
	code := m.codeInput.Value()
	site := m.siteInput.Value()

	return func() tea.Msg {
		m.machine.Connect(m.ctx, session.ConnectRequest{Code: code, APIURL: site})
		return connectDoneMsg{}
	}
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	m.Close()
	return m, tea.Quit
}

func (m *Model) waitForState() tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-m.states)
	}
}

func (m *Model) renderEntry() string {
	title := styles.title.Render("Pair with Conductor")
	hint := styles.help.Render(fmt.Sprintf("e.g. acme expands to https://acme.%s", m.suffix))
	form := fmt.Sprintf(
		"Connection code\n%s\n\nSite\n%s\n%s",
		m.codeInput.View(),
		m.siteInput.View(),
		hint,
	)

	helpKeys := []key.Binding{m.keys.next, m.keys.submit, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n\n%s", title, form, helpView)
}

func (m *Model) renderConnecting() string {
	title := styles.title.Render("Connecting")
	line := fmt.Sprintf("%s Exchanging connection code...", m.spin.View())

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s", title, line, helpView)
}

func (m *Model) renderConnected() string {
	title := styles.ok.Render("✓ Connected")

	details := m.state.Details
	var info string
	if details != nil {
		info = fmt.Sprintf(
			"\nSite:  %s\nURL:   %s\nUser:  %s (%s)\nEmail: %s\n",
			endpoint.SiteFromURL(details.APIURL, m.suffix),
			details.APIURL,
			details.DisplayName,
			details.Username,
			details.Email,
		)
	}

	helpKeys := []key.Binding{m.keys.disconnect, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderError() string {
	title := styles.err.Render("Connection failed")
	message := m.state.Err
	if message == "" {
		message = "Something went wrong."
	}
	message = styles.warn.Render(message)

	helpKeys := []key.Binding{m.keys.retry, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n\n%s", title, message, helpView)
}

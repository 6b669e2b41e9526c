package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/adax/internal/adax"
)

// RoomSource is what the watch view polls
type RoomSource interface {
	GetRooms(ctx context.Context) []adax.Room
	WritePending() bool
}

type watchKeyMap struct {
	Refresh key.Binding
	Quit    key.Binding
}

func (k watchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Refresh, k.Quit}
}

func (k watchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// roomsMsg carries the result of one poll
type roomsMsg struct {
	rooms   []adax.Room
	pending bool
	at      time.Time
}

// pollMsg asks for the next poll
type pollMsg time.Time

// WatchModel is a Bubble Tea model that polls the account and redraws the
// room table. Polls inside the rate limit return the last snapshot, so the
// interval only decides how often the table is redrawn from it.
type WatchModel struct {
	ctx      context.Context
	source   RoomSource
	interval time.Duration
	label    LabelFunc
	account  string

	rooms    []adax.Room
	pending  bool
	updated  time.Time
	fetching bool
	width    int

	spinner spinner.Model
	keys    watchKeyMap
	help    help.Model
}

// NewWatchModel creates a watch view over source
func NewWatchModel(ctx context.Context, source RoomSource, interval time.Duration, account string, label LabelFunc) WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return WatchModel{
		ctx:      ctx,
		source:   source,
		interval: interval,
		label:    label,
		account:  account,
		fetching: true,
		width:    GetTerminalWidth(),
		spinner:  s,
		help:     help.New(),
		keys: watchKeyMap{
			Refresh: key.NewBinding(
				key.WithKeys("r"),
				key.WithHelp("r", "refresh"),
			),
			Quit: key.NewBinding(
				key.WithKeys("q", "ctrl+c", "esc"),
				key.WithHelp("q", "quit"),
			),
		},
	}
}

// Init implements tea.Model
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.poll())
}

func (m WatchModel) poll() tea.Cmd {
	return func() tea.Msg {
		rooms := m.source.GetRooms(m.ctx)
		return roomsMsg{rooms: rooms, pending: m.source.WritePending(), at: time.Now()}
	}
}

func (m WatchModel) scheduleNext() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return pollMsg(t)
	})
}

// Update implements tea.Model
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Refresh):
			if m.fetching {
				return m, nil
			}
			m.fetching = true
			return m, m.poll()
		}

	case tea.WindowSizeMsg:
		m.width = min(max(msg.Width, MinTerminalWidth), MaxContentWidth)

	case roomsMsg:
		m.fetching = false
		m.rooms = msg.rooms
		m.pending = msg.pending
		m.updated = msg.at
		return m, m.scheduleNext()

	case pollMsg:
		if m.fetching {
			return m, nil
		}
		m.fetching = true
		return m, m.poll()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model
func (m WatchModel) View() string {
	var b strings.Builder

	b.WriteString(NewHeader("Adax rooms", "adax watch", map[string]string{
		"Account":  m.account,
		"Interval": m.interval.String(),
	}).SetWidth(m.width).Render())
	b.WriteString("\n")

	if len(m.rooms) > 0 {
		b.WriteString(RenderRooms(m.rooms, m.label))
		b.WriteString("\n")
	}

	b.WriteString(m.status())
	b.WriteString("\n")
	b.WriteString(StatusStyle.Render(m.help.View(m.keys)))
	b.WriteString("\n")
	return b.String()
}

func (m WatchModel) status() string {
	var parts []string
	switch {
	case m.fetching:
		parts = append(parts, m.spinner.View()+" refreshing")
	case m.updated.IsZero():
		parts = append(parts, "no data yet")
	default:
		parts = append(parts, fmt.Sprintf("updated %s", m.updated.Format("15:04:05")))
	}
	if m.pending {
		parts = append(parts, WarningMarker+" write pending")
	}
	if !m.fetching && len(m.rooms) == 0 {
		parts = append(parts, "no rooms (check credentials)")
	}
	return StatusStyle.Render(strings.Join(parts, "  ·  "))
}

// Rooms returns the rooms currently shown
func (m WatchModel) Rooms() []adax.Room {
	return m.rooms
}

// RunWatch runs the watch view until the user quits or ctx ends
func RunWatch(ctx context.Context, model WatchModel) error {
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

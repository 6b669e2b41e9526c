package ui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/adax/internal/adax"
)

type fakeSource struct {
	calls   int
	pending bool
}

func (f *fakeSource) GetRooms(ctx context.Context) []adax.Room {
	f.calls++
	return testRooms
}

func (f *fakeSource) WritePending() bool {
	return f.pending
}

func TestWatchModelPoll(t *testing.T) {
	src := &fakeSource{pending: true}
	m := NewWatchModel(context.Background(), src, time.Second, "123456", nil)

	if !m.fetching {
		t.Fatal("model should start fetching")
	}

	msg := m.poll()()
	rm, ok := msg.(roomsMsg)
	if !ok {
		t.Fatalf("poll() returned %T, want roomsMsg", msg)
	}
	if src.calls != 1 {
		t.Errorf("GetRooms calls = %d, want 1", src.calls)
	}

	next, cmd := m.Update(rm)
	m = next.(WatchModel)
	if m.fetching {
		t.Error("model should stop fetching after roomsMsg")
	}
	if cmd == nil {
		t.Error("roomsMsg should schedule the next poll")
	}
	if len(m.Rooms()) != 2 {
		t.Errorf("Rooms() = %d, want 2", len(m.Rooms()))
	}

	view := m.View()
	for _, want := range []string{"Living room", "write pending", "123456"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}
}

func TestWatchModelIgnoresPollWhileFetching(t *testing.T) {
	m := NewWatchModel(context.Background(), &fakeSource{}, time.Second, "1", nil)

	_, cmd := m.Update(pollMsg(time.Now()))
	if cmd != nil {
		t.Error("poll while fetching should be ignored")
	}
}

func TestWatchModelRefreshKey(t *testing.T) {
	m := NewWatchModel(context.Background(), &fakeSource{}, time.Second, "1", nil)
	m.fetching = false

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if cmd == nil {
		t.Fatal("refresh key should start a poll")
	}
	if !next.(WatchModel).fetching {
		t.Error("refresh key should mark the model as fetching")
	}
}

func TestWatchModelQuit(t *testing.T) {
	m := NewWatchModel(context.Background(), &fakeSource{}, time.Second, "1", nil)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should return tea.Quit")
	}
}

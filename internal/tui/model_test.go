package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/stoky/golemchat/internal/models"
	"github.com/stoky/golemchat/internal/store"
)

// fakeSender scripts the turn outcome.
type fakeSender struct {
	updates []string
	msg     *models.Message
	err     error

	gotText  string
	gotImage *models.ImageData
}

func (f *fakeSender) SendTurn(ctx context.Context, sessionID, text string, image *models.ImageData, onUpdate func(string)) (*models.Message, error) {
	f.gotText = text
	f.gotImage = image
	for _, u := range f.updates {
		if onUpdate != nil {
			onUpdate(u)
		}
	}
	return f.msg, f.err
}

func newTestModel(t *testing.T) (Model, *store.Store, *fakeSender) {
	t.Helper()
	st := store.New(store.NewMemoryBackend())
	sender := &fakeSender{msg: &models.Message{Role: models.RoleAssistant, Content: "done"}}

	m, err := NewModel(sender, st, "gemini-1.5-flash")
	if err != nil {
		t.Fatalf("NewModel failed: %v", err)
	}

	// Simulate the first window size message so the viewport exists.
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(Model), st, sender
}

func TestNewModel_CreatesSessionWhenEmpty(t *testing.T) {
	st := store.New(store.NewMemoryBackend())

	m, err := NewModel(&fakeSender{}, st, "gemini-1.5-flash")
	if err != nil {
		t.Fatalf("NewModel failed: %v", err)
	}
	if m.session == nil || m.session.ID == "" {
		t.Fatal("no session was created")
	}
	if len(st.List()) != 1 {
		t.Errorf("expected 1 session in the store, got %d", len(st.List()))
	}
}

func TestResumeOrCreate_PicksMostRecentlyUpdated(t *testing.T) {
	st := store.New(store.NewMemoryBackend())

	older, _ := st.Create()
	if _, err := st.Create(); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Touching the older session makes it the resume target despite its
	// position in the list.
	time.Sleep(5 * time.Millisecond)
	if _, err := st.AppendMessage(older.ID, models.Message{Role: models.RoleUser, Content: "hi"}); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	sess, err := resumeOrCreate(st)
	if err != nil {
		t.Fatalf("resumeOrCreate failed: %v", err)
	}
	if sess.ID != older.ID {
		t.Errorf("resumed %s, want the most recently updated %s", sess.ID, older.ID)
	}
}

func TestModel_HandleInput_StartsTurn(t *testing.T) {
	m, _, _ := newTestModel(t)

	updated, cmd := m.handleInput("what is go?")
	m = updated.(Model)

	if !m.loading {
		t.Error("model not loading after input")
	}
	if cmd == nil {
		t.Fatal("no command returned")
	}
	if m.stream == nil {
		t.Fatal("stream channel not created")
	}

	// The user message is visible immediately.
	last := m.session.Messages[len(m.session.Messages)-1]
	if last.Role != models.RoleUser || last.Content != "what is go?" {
		t.Errorf("optimistic message = %+v", last)
	}
}

func TestModel_StreamDelivery(t *testing.T) {
	m, _, sender := newTestModel(t)
	sender.updates = []string{"Hel", "Hello"}

	cmd := m.startTurn("hi", nil)
	if msg := cmd(); msg != nil {
		t.Fatalf("startTurn command returned %v, want nil", msg)
	}

	// The goroutine pushes buffer updates then the final result.
	want := []string{"Hel", "Hello"}
	for _, wantBuf := range want {
		msg := waitForStream(m.stream)()
		chunk, ok := msg.(streamChunkMsg)
		if !ok {
			t.Fatalf("got %T, want streamChunkMsg", msg)
		}
		if chunk.buffer != wantBuf {
			t.Errorf("buffer = %q, want %q", chunk.buffer, wantBuf)
		}
	}

	msg := waitForStream(m.stream)()
	done, ok := msg.(turnDoneMsg)
	if !ok {
		t.Fatalf("got %T, want turnDoneMsg", msg)
	}
	if done.err != nil {
		t.Errorf("err = %v", done.err)
	}
	if done.msg == nil || done.msg.Content != "done" {
		t.Errorf("final message = %+v", done.msg)
	}
}

func TestModel_TurnDoneClearsLoading(t *testing.T) {
	m, _, _ := newTestModel(t)
	m.loading = true
	m.streamBuf = "partial"

	updated, _ := m.Update(turnDoneMsg{msg: &models.Message{Role: models.RoleAssistant, Content: "x"}})
	m = updated.(Model)

	if m.loading {
		t.Error("still loading after turnDoneMsg")
	}
	if m.streamBuf != "" {
		t.Error("stream buffer not cleared")
	}
	if m.err != nil {
		t.Errorf("err = %v, want nil", m.err)
	}
}

func TestModel_TurnDoneSurfacesHardFailure(t *testing.T) {
	m, _, _ := newTestModel(t)
	m.loading = true

	updated, _ := m.Update(turnDoneMsg{msg: nil, err: context.DeadlineExceeded})
	m = updated.(Model)

	if m.err == nil {
		t.Error("hard failure not surfaced")
	}
}

func TestModel_ImageCommand(t *testing.T) {
	m, _, _ := newTestModel(t)

	updated, _ := m.handleInput("/image")
	m = updated.(Model)
	if m.err == nil {
		t.Error("expected usage error for bare /image")
	}

	updated, _ = m.handleInput("/image /no/such/file.png")
	m = updated.(Model)
	if m.err == nil {
		t.Error("expected error for missing image file")
	}
	if m.pendingImage != nil {
		t.Error("failed load left a pending image")
	}
}

func TestModel_PickerNavigation(t *testing.T) {
	m, st, _ := newTestModel(t)
	other, _ := st.Create()

	m.enterPicker()
	if m.mode != modePicker {
		t.Fatal("not in picker mode")
	}
	if len(m.pickerSessions) != 2 {
		t.Fatalf("picker shows %d sessions, want 2", len(m.pickerSessions))
	}

	// Cursor starts on the open session.
	if m.pickerSessions[m.pickerCursor].ID != m.session.ID {
		t.Error("cursor not on the open session")
	}

	// Move to the other session and open it.
	for m.pickerSessions[m.pickerCursor].ID != other.ID {
		updated, _ := m.updatePicker(tea.KeyMsg{Type: tea.KeyDown})
		m = updated.(Model)
	}
	updated, _ := m.updatePicker(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)

	if m.mode != modeChat {
		t.Error("picker did not close on selection")
	}
	if m.session.ID != other.ID {
		t.Errorf("open session = %s, want %s", m.session.ID, other.ID)
	}
}

func TestModel_PickerDeleteOpenSession(t *testing.T) {
	m, st, _ := newTestModel(t)
	doomed := m.session.ID

	m.enterPicker()
	updated, _ := m.updatePicker(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	m = updated.(Model)

	if _, ok := st.Get(doomed); ok {
		t.Error("session not deleted")
	}
	if m.session.ID == doomed {
		t.Error("deleted session is still open")
	}
}

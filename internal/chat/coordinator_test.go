package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"google.golang.org/genai"

	chaterrors "github.com/stoky/golemchat/internal/errors"
	"github.com/stoky/golemchat/internal/gemini"
	"github.com/stoky/golemchat/internal/models"
	"github.com/stoky/golemchat/internal/store"
)

// scriptedGenerator plays back fragments and an optional final error.
type scriptedGenerator struct {
	fragments []string
	err       error

	// Set to observe the in-flight guard: started is closed when the
	// generator is entered, release blocks it until closed.
	started chan struct{}
	release chan struct{}

	calls      int
	gotPrompt  string
	gotHistory []gemini.Turn
	gotImage   *models.ImageData

	// onEnter runs at the start of the call, before any fragment.
	onEnter func()
}

func (g *scriptedGenerator) StreamMessage(ctx context.Context, prompt string, history []gemini.Turn, image *models.ImageData, onChunk func(string)) (string, error) {
	g.calls++
	g.gotPrompt = prompt
	g.gotHistory = history
	g.gotImage = image

	if g.onEnter != nil {
		g.onEnter()
	}
	if g.started != nil {
		close(g.started)
	}
	if g.release != nil {
		<-g.release
	}

	var full strings.Builder
	for _, f := range g.fragments {
		full.WriteString(f)
		if onChunk != nil {
			onChunk(f)
		}
	}
	return full.String(), g.err
}

func newTestCoordinator(gen *scriptedGenerator) (*Coordinator, *store.Store, *models.ChatSession) {
	st := store.New(store.NewMemoryBackend())
	sess, _ := st.Create()
	return New(st, gen), st, sess
}

func TestCoordinator_SendTurn(t *testing.T) {
	gen := &scriptedGenerator{fragments: []string{"Hel", "lo"}}
	coord, st, sess := newTestCoordinator(gen)

	var updates []string
	msg, err := coord.SendTurn(context.Background(), sess.ID, "hi there", nil, func(buffer string) {
		updates = append(updates, buffer)
	})
	if err != nil {
		t.Fatalf("SendTurn failed: %v", err)
	}

	// onUpdate sees the accumulated buffer, not the raw fragments.
	want := []string{"Hel", "Hello"}
	if len(updates) != len(want) {
		t.Fatalf("got %d updates, want %d", len(updates), len(want))
	}
	for i := range want {
		if updates[i] != want[i] {
			t.Errorf("updates[%d] = %q, want %q", i, updates[i], want[i])
		}
	}

	if msg.Role != models.RoleAssistant {
		t.Errorf("Role = %s, want assistant", msg.Role)
	}
	if msg.Content != "Hello" {
		t.Errorf("Content = %q, want %q", msg.Content, "Hello")
	}

	stored, _ := st.Get(sess.ID)
	if len(stored.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(stored.Messages))
	}
	if stored.Messages[0].Role != models.RoleUser || stored.Messages[0].Content != "hi there" {
		t.Errorf("first message = %+v, want the user turn", stored.Messages[0])
	}
	if stored.Messages[1].Content != "Hello" {
		t.Errorf("second message = %q, want the full reply", stored.Messages[1].Content)
	}
}

func TestCoordinator_HistoryExcludesLiveTurn(t *testing.T) {
	gen := &scriptedGenerator{fragments: []string{"ok"}}
	coord, st, sess := newTestCoordinator(gen)

	st.AppendMessage(sess.ID, models.Message{Role: models.RoleUser, Content: "earlier question"})
	st.AppendMessage(sess.ID, models.Message{Role: models.RoleAssistant, Content: "earlier answer"})

	if _, err := coord.SendTurn(context.Background(), sess.ID, "new question", nil, nil); err != nil {
		t.Fatalf("SendTurn failed: %v", err)
	}

	if gen.gotPrompt != "new question" {
		t.Errorf("prompt = %q, want the live turn", gen.gotPrompt)
	}
	if len(gen.gotHistory) != 2 {
		t.Fatalf("history length = %d, want 2", len(gen.gotHistory))
	}
	if gen.gotHistory[0].Text != "earlier question" || gen.gotHistory[1].Text != "earlier answer" {
		t.Errorf("history = %+v", gen.gotHistory)
	}
	if gen.gotHistory[1].Role != models.RoleAssistant {
		t.Errorf("history[1].Role = %s, want assistant", gen.gotHistory[1].Role)
	}
}

func TestCoordinator_UserMessageCommittedBeforeGenerator(t *testing.T) {
	st := store.New(store.NewMemoryBackend())
	sess, _ := st.Create()

	var seenAtCall int
	gen := &scriptedGenerator{
		fragments: []string{"ok"},
		onEnter: func() {
			stored, _ := st.Get(sess.ID)
			seenAtCall = len(stored.Messages)
		},
	}
	coord := New(st, gen)

	if _, err := coord.SendTurn(context.Background(), sess.ID, "hi", nil, nil); err != nil {
		t.Fatalf("SendTurn failed: %v", err)
	}
	if seenAtCall != 1 {
		t.Errorf("messages visible when generator ran = %d, want 1 (the user turn)", seenAtCall)
	}
}

func TestCoordinator_FailureCommitsNotice(t *testing.T) {
	gen := &scriptedGenerator{
		fragments: []string{"partial"},
		err:       genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "slow down"},
	}
	coord, st, sess := newTestCoordinator(gen)

	msg, err := coord.SendTurn(context.Background(), sess.ID, "hi", nil, nil)
	if err == nil {
		t.Fatal("expected a classified error")
	}

	var cerr *chaterrors.ChatError
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %T, want *ChatError", err)
	}
	if cerr.Code != chaterrors.CodeRateLimited {
		t.Errorf("Code = %s, want RATE_LIMITED", cerr.Code)
	}

	if msg == nil {
		t.Fatal("notice message not returned")
	}
	if msg.Role != models.RoleAssistant {
		t.Errorf("notice role = %s, want assistant", msg.Role)
	}
	if !strings.HasPrefix(msg.Content, "⚠️ **Error:** ") {
		t.Errorf("notice content = %q, want the error prefix", msg.Content)
	}
	if !strings.Contains(msg.Content, cerr.Message) {
		t.Errorf("notice %q missing the human message %q", msg.Content, cerr.Message)
	}

	// Exactly one notice; the partial reply is not committed.
	stored, _ := st.Get(sess.ID)
	if len(stored.Messages) != 2 {
		t.Fatalf("expected user turn + one notice, got %d messages", len(stored.Messages))
	}
	if strings.Contains(stored.Messages[1].Content, "partial") {
		t.Error("partial reply text leaked into the transcript")
	}
}

func TestCoordinator_UnknownSessionWritesNothing(t *testing.T) {
	gen := &scriptedGenerator{fragments: []string{"ok"}}
	coord, st, _ := newTestCoordinator(gen)

	_, err := coord.SendTurn(context.Background(), "no-such-session", "hi", nil, nil)
	if !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
	if gen.calls != 0 {
		t.Error("generator was called for a missing session")
	}

	for _, sess := range st.List() {
		if len(sess.Messages) != 0 {
			t.Error("a message was written despite the missing session")
		}
	}
}

func TestCoordinator_RejectsConcurrentTurn(t *testing.T) {
	gen := &scriptedGenerator{
		fragments: []string{"ok"},
		started:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	coord, _, sess := newTestCoordinator(gen)

	done := make(chan error, 1)
	go func() {
		_, err := coord.SendTurn(context.Background(), sess.ID, "first", nil, nil)
		done <- err
	}()

	<-gen.started
	_, err := coord.SendTurn(context.Background(), sess.ID, "second", nil, nil)
	if !errors.Is(err, ErrTurnInFlight) {
		t.Errorf("err = %v, want ErrTurnInFlight", err)
	}

	close(gen.release)
	if err := <-done; err != nil {
		t.Fatalf("first turn failed: %v", err)
	}

	// The slot is free again once the turn completes.
	gen.started = nil
	gen.release = nil
	if _, err := coord.SendTurn(context.Background(), sess.ID, "third", nil, nil); err != nil {
		t.Errorf("turn after completion failed: %v", err)
	}
}

func TestCoordinator_ImagePersistedAsDataURI(t *testing.T) {
	gen := &scriptedGenerator{fragments: []string{"a cat"}}
	coord, st, sess := newTestCoordinator(gen)

	img := &models.ImageData{Data: []byte("fake-png"), MIMEType: "image/png"}
	if _, err := coord.SendTurn(context.Background(), sess.ID, "what is this", img, nil); err != nil {
		t.Fatalf("SendTurn failed: %v", err)
	}

	if gen.gotImage != img {
		t.Error("image was not forwarded to the generator")
	}

	stored, _ := st.Get(sess.ID)
	if got := stored.Messages[0].ImageURL; got != img.DataURI() {
		t.Errorf("ImageURL = %q, want the data URI", got)
	}
}

func TestErrorNotice(t *testing.T) {
	got := ErrorNotice("boom")
	if got != "⚠️ **Error:** boom" {
		t.Errorf("ErrorNotice = %q", got)
	}
}

package store

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stoky/golemchat/internal/models"
)

func seedSession(t *testing.T, st *Store, userContent, assistantContent string) *models.ChatSession {
	t.Helper()
	sess, err := st.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := st.AppendMessage(sess.ID, models.Message{Role: models.RoleUser, Content: userContent}); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	if _, err := st.AppendMessage(sess.ID, models.Message{Role: models.RoleAssistant, Content: assistantContent}); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	out, _ := st.Get(sess.ID)
	return out
}

func TestStore_ExportToMarkdown(t *testing.T) {
	st, _, _ := newTestStore()
	sess := seedSession(t, st, "What is Go?", "A programming language.")

	md, err := st.ExportToMarkdown(sess.ID)
	if err != nil {
		t.Fatalf("ExportToMarkdown failed: %v", err)
	}

	for _, want := range []string{
		"# What is Go?",
		"## User",
		"## Assistant",
		"A programming language.",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown export missing %q", want)
		}
	}
}

func TestStore_ExportToMarkdown_ImageMarker(t *testing.T) {
	st, _, _ := newTestStore()
	sess, _ := st.Create()
	st.AppendMessage(sess.ID, models.Message{
		Role:     models.RoleUser,
		Content:  "what is this",
		ImageURL: "data:image/png;base64,aGk=",
	})

	md, err := st.ExportToMarkdown(sess.ID)
	if err != nil {
		t.Fatalf("ExportToMarkdown failed: %v", err)
	}
	if !strings.Contains(md, "*[image attached]*") {
		t.Error("markdown export missing image marker")
	}
	if strings.Contains(md, "base64,") {
		t.Error("markdown export should not embed raw image data")
	}
}

func TestStore_ExportToMarkdown_NotFound(t *testing.T) {
	st, _, _ := newTestStore()

	_, err := st.ExportToMarkdown("no-such-id")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestStore_ExportToJSON(t *testing.T) {
	st, _, _ := newTestStore()
	sess := seedSession(t, st, "hello", "hi there")

	data, err := st.ExportToJSON(sess.ID)
	if err != nil {
		t.Fatalf("ExportToJSON failed: %v", err)
	}

	var decoded models.ChatSession
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if decoded.ID != sess.ID {
		t.Errorf("ID = %s, want %s", decoded.ID, sess.ID)
	}
	if len(decoded.Messages) != 2 {
		t.Errorf("expected 2 messages, got %d", len(decoded.Messages))
	}
}

func TestStore_Search_Title(t *testing.T) {
	st, _, _ := newTestStore()
	seedSession(t, st, "Rust ownership rules", "...")
	match := seedSession(t, st, "Go generics explained", "...")

	results := st.Search("GENERICS", false)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Session.ID != match.ID {
		t.Errorf("matched session %s, want %s", results[0].Session.ID, match.ID)
	}
	if results[0].MatchField != "title" {
		t.Errorf("MatchField = %s, want title", results[0].MatchField)
	}
	if results[0].MatchIndex != -1 {
		t.Errorf("MatchIndex = %d, want -1", results[0].MatchIndex)
	}
}

func TestStore_Search_Content(t *testing.T) {
	st, _, _ := newTestStore()
	sess := seedSession(t, st, "a question", "channels carry values between goroutines")

	if got := st.Search("goroutines", false); len(got) != 0 {
		t.Errorf("title-only search matched content: %d results", len(got))
	}

	results := st.Search("goroutines", true)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Session.ID != sess.ID {
		t.Errorf("matched session %s, want %s", results[0].Session.ID, sess.ID)
	}
	if results[0].MatchField != "content" {
		t.Errorf("MatchField = %s, want content", results[0].MatchField)
	}
	if results[0].MatchIndex != 1 {
		t.Errorf("MatchIndex = %d, want 1", results[0].MatchIndex)
	}
	if !strings.Contains(results[0].MatchSnippet, "goroutines") {
		t.Errorf("snippet %q does not contain the query", results[0].MatchSnippet)
	}
}

func TestStore_Search_OneMatchPerSession(t *testing.T) {
	st, _, _ := newTestStore()
	seedSession(t, st, "go question", "go answer about go")

	results := st.Search("go", true)
	if len(results) != 1 {
		t.Errorf("expected 1 result per session, got %d", len(results))
	}
}

func TestExtractSnippet(t *testing.T) {
	long := strings.Repeat("x", 200) + "NEEDLE" + strings.Repeat("y", 200)

	snippet := extractSnippet(long, "needle", 100)
	if !strings.Contains(snippet, "NEEDLE") {
		t.Errorf("snippet %q missing the match", snippet)
	}
	if !strings.HasPrefix(snippet, "...") || !strings.HasSuffix(snippet, "...") {
		t.Errorf("mid-text snippet should be elided on both sides: %q", snippet)
	}

	short := "NEEDLE at the start"
	if got := extractSnippet(short, "needle", 100); got != short {
		t.Errorf("short content should pass through, got %q", got)
	}
}

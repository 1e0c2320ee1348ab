// Package chat coordinates one conversation turn: it commits the user
// message, drives the streaming request against the remote model, and
// guarantees that exactly one assistant message — the reply or an error
// notice — ends up in the session store.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	chaterrors "github.com/stoky/golemchat/internal/errors"
	"github.com/stoky/golemchat/internal/gemini"
	"github.com/stoky/golemchat/internal/models"
	"github.com/stoky/golemchat/internal/store"
)

// ErrTurnInFlight signals a second SendTurn for a session whose previous
// turn has not completed. The rejected call writes nothing.
var ErrTurnInFlight = errors.New("a turn is already in flight for this session")

// Generator streams one reply for a turn. It is satisfied by
// *gemini.Client; tests substitute a scripted implementation.
type Generator interface {
	StreamMessage(ctx context.Context, prompt string, history []gemini.Turn, image *models.ImageData, onChunk func(chunk string)) (string, error)
}

// SessionStore is the slice of the store the coordinator needs.
type SessionStore interface {
	Get(id string) (*models.ChatSession, bool)
	AppendMessage(sessionID string, draft models.Message) (*models.Message, error)
}

// Coordinator orchestrates turns. One turn may be in flight per session;
// concurrent submissions for the same session are rejected rather than
// queued.
type Coordinator struct {
	store     SessionStore
	generator Generator

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New creates a coordinator over the given store and generator.
func New(st SessionStore, gen Generator) *Coordinator {
	return &Coordinator{
		store:     st,
		generator: gen,
		inflight:  make(map[string]struct{}),
	}
}

// SendTurn runs one full turn against an existing session:
//
//  1. The session's prior messages become the request history (the new
//     user turn is live, not history).
//  2. The user message is committed before the remote call, so it survives
//     a failed request. An attached image is persisted as a data URI.
//  3. Fragments are accumulated strictly in arrival order; onUpdate
//     receives the buffer after each fragment.
//  4. On success the accumulated text is committed as one assistant
//     message; on failure the classified error notice is committed
//     instead, so the transcript always reflects what happened.
//
// The committed assistant message is returned. On a classified remote
// failure the returned error is the *errors.ChatError; the notice message
// is still committed and returned alongside it.
func (c *Coordinator) SendTurn(ctx context.Context, sessionID, text string, image *models.ImageData, onUpdate func(buffer string)) (*models.Message, error) {
	if !c.begin(sessionID) {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrTurnInFlight)
	}
	defer c.end(sessionID)

	sess, ok := c.store.Get(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrSessionNotFound, sessionID)
	}

	// Snapshot the history before the new user message is appended.
	history := make([]gemini.Turn, 0, len(sess.Messages))
	for _, m := range sess.Messages {
		history = append(history, gemini.Turn{Role: m.Role, Text: m.Content})
	}

	userDraft := models.Message{Role: models.RoleUser, Content: text}
	if image != nil {
		userDraft.ImageURL = image.DataURI()
	}
	if _, err := c.store.AppendMessage(sessionID, userDraft); err != nil {
		return nil, fmt.Errorf("failed to record user message: %w", err)
	}

	log.Debug().Str("session_id", sessionID).Int("history", len(history)).Msg("turn started")

	var buf strings.Builder
	full, err := c.generator.StreamMessage(ctx, text, history, image, func(chunk string) {
		buf.WriteString(chunk)
		if onUpdate != nil {
			onUpdate(buf.String())
		}
	})
	if err != nil {
		return c.commitFailure(sessionID, err)
	}

	msg, err := c.store.AppendMessage(sessionID, models.Message{
		Role:    models.RoleAssistant,
		Content: full,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record reply: %w", err)
	}

	log.Debug().Str("session_id", sessionID).Str("message_id", msg.ID).Msg("turn committed")
	return msg, nil
}

// commitFailure classifies the failure and durably appends the error
// notice, keeping the transcript a complete audit trail. No retry is
// attempted; the user resends manually.
func (c *Coordinator) commitFailure(sessionID string, cause error) (*models.Message, error) {
	cerr := chaterrors.Classify(cause)

	msg, err := c.store.AppendMessage(sessionID, models.Message{
		Role:    models.RoleAssistant,
		Content: ErrorNotice(cerr.Message),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record error notice: %w", err)
	}

	log.Debug().
		Str("session_id", sessionID).
		Str("code", string(cerr.Code)).
		Msg("turn failed, notice committed")
	return msg, cerr
}

// ErrorNotice formats a classified failure as the assistant message stored
// in the transcript.
func ErrorNotice(message string) string {
	return "⚠️ **Error:** " + message
}

func (c *Coordinator) begin(sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inflight[sessionID]; busy {
		return false
	}
	c.inflight[sessionID] = struct{}{}
	return true
}

func (c *Coordinator) end(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, sessionID)
}

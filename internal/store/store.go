// Package store provides durable CRUD over the collection of chat sessions.
//
// The whole collection is one serialized JSON array behind a Backend. Every
// mutation is a full read-modify-write cycle: load the array, change it in
// memory, save the array. Operations are therefore atomic only with respect
// to a single caller; concurrent writers from other processes race with
// last-write-wins semantics.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/stoky/golemchat/internal/models"
)

// ErrSessionNotFound signals an append against a session that does not
// exist. Unlike lookup misses, this is a sequencing bug in the caller and
// is surfaced as a hard error.
var ErrSessionNotFound = errors.New("session not found")

// Store owns the persisted session collection. It is the sole writer of the
// backing blob.
type Store struct {
	backend Backend

	// now is the clock; swapped in tests.
	now func() time.Time
}

// New creates a store over the given backend.
func New(backend Backend) *Store {
	return &Store{
		backend: backend,
		now:     time.Now,
	}
}

// DefaultPath returns the default location of the session file.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".golemchat", "sessions.json"), nil
}

// DefaultStore creates a file-backed store at the default location.
func DefaultStore() (*Store, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return New(NewFileBackend(path)), nil
}

// SessionUpdate holds the fields Update merges into an existing session.
// Nil fields are left untouched.
type SessionUpdate struct {
	Title *string
}

// List returns all sessions, most recently created first. Missing or
// corrupt data reads as an empty collection; List never fails.
func (s *Store) List() []*models.ChatSession {
	sessions := s.load()
	out := make([]*models.ChatSession, len(sessions))
	for i := range sessions {
		out[i] = sessions[i].Clone()
	}
	return out
}

// Get looks up a session by ID.
func (s *Store) Get(id string) (*models.ChatSession, bool) {
	for _, sess := range s.load() {
		if sess.ID == id {
			return sess.Clone(), true
		}
	}
	return nil, false
}

// Create allocates a new empty session and prepends it to the collection.
// Prepend-on-create is a store invariant, not a display-time sort: List
// yields most recently created sessions first.
func (s *Store) Create() (*models.ChatSession, error) {
	now := s.now()
	sess := &models.ChatSession{
		ID:        uuid.NewString(),
		Title:     models.DefaultTitle,
		Messages:  []models.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	sessions := append([]*models.ChatSession{sess}, s.load()...)
	if err := s.save(sessions); err != nil {
		return nil, err
	}

	log.Debug().Str("session_id", sess.ID).Msg("session created")
	return sess.Clone(), nil
}

// Update merges the given fields into an existing session and refreshes
// UpdatedAt. The returned bool reports whether the session exists; a miss
// is expected absence, not an error.
func (s *Store) Update(id string, upd SessionUpdate) (*models.ChatSession, bool, error) {
	sessions := s.load()
	idx := indexOf(sessions, id)
	if idx < 0 {
		return nil, false, nil
	}

	sess := sessions[idx]
	if upd.Title != nil {
		sess.Title = *upd.Title
	}
	sess.UpdatedAt = s.now()

	if err := s.save(sessions); err != nil {
		return nil, true, err
	}
	return sess.Clone(), true, nil
}

// AppendMessage appends a message to a session. The store allocates the
// message ID and timestamp; the caller supplies role, content and the
// optional image URL. The very first user message derives the session
// title; later messages never change it.
//
// Appending to an unknown session returns ErrSessionNotFound and writes
// nothing.
func (s *Store) AppendMessage(sessionID string, draft models.Message) (*models.Message, error) {
	if !draft.Role.Valid() {
		return nil, fmt.Errorf("invalid message role %q", draft.Role)
	}

	sessions := s.load()
	idx := indexOf(sessions, sessionID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	sess := sessions[idx]
	now := s.now()
	msg := models.Message{
		ID:        uuid.NewString(),
		Role:      draft.Role,
		Content:   draft.Content,
		Timestamp: now,
		ImageURL:  draft.ImageURL,
	}
	sess.Messages = append(sess.Messages, msg)
	sess.UpdatedAt = now

	if draft.Role == models.RoleUser && sess.UserMessageCount() == 1 {
		sess.Title = deriveTitle(draft.Content)
	}

	if err := s.save(sessions); err != nil {
		return nil, err
	}

	log.Debug().
		Str("session_id", sessionID).
		Str("role", string(msg.Role)).
		Int("messages", len(sess.Messages)).
		Msg("message appended")
	return &msg, nil
}

// Delete removes a session. It reports whether a session was actually
// removed; deleting an absent ID is a no-op, not an error.
func (s *Store) Delete(id string) (bool, error) {
	sessions := s.load()
	idx := indexOf(sessions, id)
	if idx < 0 {
		return false, nil
	}

	sessions = append(sessions[:idx], sessions[idx+1:]...)
	if err := s.save(sessions); err != nil {
		return false, err
	}

	log.Debug().Str("session_id", id).Msg("session deleted")
	return true, nil
}

// Clear replaces the entire collection with an empty one.
func (s *Store) Clear() error {
	return s.save([]*models.ChatSession{})
}

// load deserializes the full collection. Missing or corrupt data reads as
// empty; the store fails soft on the read path.
func (s *Store) load() []*models.ChatSession {
	data, err := s.backend.Load()
	if err != nil {
		log.Warn().Err(err).Msg("failed to load sessions, treating store as empty")
		return nil
	}
	if len(data) == 0 {
		return nil
	}

	var sessions []*models.ChatSession
	if err := json.Unmarshal(data, &sessions); err != nil {
		log.Warn().Err(err).Msg("corrupt session data, treating store as empty")
		return nil
	}
	return sessions
}

// save serializes the full collection and hands it to the backend.
func (s *Store) save(sessions []*models.ChatSession) error {
	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sessions: %w", err)
	}
	if err := s.backend.Save(data); err != nil {
		return fmt.Errorf("failed to persist sessions: %w", err)
	}
	return nil
}

func indexOf(sessions []*models.ChatSession, id string) int {
	for i, sess := range sessions {
		if sess.ID == id {
			return i
		}
	}
	return -1
}

// deriveTitle builds a session title from the first user message: a
// 50-rune prefix, with an ellipsis when the content is longer.
func deriveTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= models.TitleMaxRunes {
		return content
	}
	return string(runes[:models.TitleMaxRunes]) + "..."
}

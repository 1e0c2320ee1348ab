package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/stoky/golemchat/internal/models"
)

// ParseSessionExport decodes an exported session from JSON. It accepts both
// the native layout (RFC3339 timestamps, snake_case keys) and the web
// client's export shape (camelCase keys, epoch-millisecond timestamps), so
// a transcript saved in the browser can be carried over.
func ParseSessionExport(data []byte) (*models.ChatSession, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON")
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("expected a single session object")
	}

	msgs := root.Get("messages")
	if !msgs.Exists() || !msgs.IsArray() {
		return nil, fmt.Errorf("missing messages array")
	}

	sess := &models.ChatSession{
		ID:        root.Get("id").String(),
		Title:     root.Get("title").String(),
		Messages:  []models.Message{},
		CreatedAt: parseTimestamp(root.Get("created_at"), root.Get("createdAt")),
		UpdatedAt: parseTimestamp(root.Get("updated_at"), root.Get("updatedAt")),
	}

	var badRole string
	msgs.ForEach(func(_, m gjson.Result) bool {
		role := models.Role(m.Get("role").String())
		if !role.Valid() {
			badRole = m.Get("role").String()
			return false
		}
		sess.Messages = append(sess.Messages, models.Message{
			ID:        m.Get("id").String(),
			Role:      role,
			Content:   m.Get("content").String(),
			Timestamp: parseTimestamp(m.Get("timestamp")),
			ImageURL:  firstString(m.Get("image_url"), m.Get("imageUrl")),
		})
		return true
	})
	if badRole != "" {
		return nil, fmt.Errorf("unknown message role %q", badRole)
	}

	return sess, nil
}

// Import adds a parsed session to the collection, prepending it like a
// fresh create. Missing identifiers are allocated; an ID that collides
// with an existing session is replaced to keep IDs unique.
func (s *Store) Import(sess *models.ChatSession) (*models.ChatSession, error) {
	in := sess.Clone()
	now := s.now()

	if in.ID == "" {
		in.ID = uuid.NewString()
	} else if _, exists := s.Get(in.ID); exists {
		in.ID = uuid.NewString()
	}
	if in.Title == "" {
		in.Title = models.DefaultTitle
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = now
	}
	if in.UpdatedAt.IsZero() {
		in.UpdatedAt = now
	}
	for i := range in.Messages {
		if in.Messages[i].ID == "" {
			in.Messages[i].ID = uuid.NewString()
		}
	}

	sessions := append([]*models.ChatSession{in}, s.load()...)
	if err := s.save(sessions); err != nil {
		return nil, err
	}
	return in.Clone(), nil
}

// parseTimestamp reads the first present timestamp value, accepting either
// an RFC3339 string or epoch milliseconds.
func parseTimestamp(candidates ...gjson.Result) time.Time {
	for _, c := range candidates {
		if !c.Exists() {
			continue
		}
		switch c.Type {
		case gjson.String:
			if t, err := time.Parse(time.RFC3339Nano, c.String()); err == nil {
				return t
			}
		case gjson.Number:
			return time.UnixMilli(c.Int())
		}
	}
	return time.Time{}
}

func firstString(candidates ...gjson.Result) string {
	for _, c := range candidates {
		if c.Exists() {
			return c.String()
		}
	}
	return ""
}

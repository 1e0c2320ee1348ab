package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stoky/golemchat/internal/models"
)

// ExportFormat represents the format for exporting sessions
type ExportFormat string

const (
	ExportFormatMarkdown ExportFormat = "markdown"
	ExportFormatJSON     ExportFormat = "json"
)

// ExportToMarkdown exports a session transcript to Markdown.
func (s *Store) ExportToMarkdown(id string) (string, error) {
	sess, ok := s.Get(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	var sb strings.Builder

	sb.WriteString("# ")
	sb.WriteString(sess.Title)
	sb.WriteString("\n\n")

	sb.WriteString("**Created:** ")
	sb.WriteString(sess.CreatedAt.Format("2006-01-02 15:04:05"))
	sb.WriteString("\n")
	sb.WriteString("**Updated:** ")
	sb.WriteString(sess.UpdatedAt.Format("2006-01-02 15:04:05"))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("**Messages:** %d", len(sess.Messages)))
	sb.WriteString("\n\n---\n\n")

	for i, msg := range sess.Messages {
		role := "User"
		if msg.Role == models.RoleAssistant {
			role = "Assistant"
		}

		sb.WriteString("## ")
		sb.WriteString(role)
		if !msg.Timestamp.IsZero() {
			sb.WriteString(" (")
			sb.WriteString(msg.Timestamp.Format("15:04:05"))
			sb.WriteString(")")
		}
		sb.WriteString("\n\n")

		if msg.ImageURL != "" {
			sb.WriteString("*[image attached]*\n\n")
		}

		sb.WriteString(msg.Content)
		sb.WriteString("\n")

		if i < len(sess.Messages)-1 {
			sb.WriteString("\n---\n\n")
		}
	}

	return sb.String(), nil
}

// ExportToJSON exports a session in the persisted-state layout.
func (s *Store) ExportToJSON(id string) ([]byte, error) {
	sess, ok := s.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return json.MarshalIndent(sess, "", "  ")
}

// SearchResult is a search match over the stored sessions.
type SearchResult struct {
	Session      *models.ChatSession
	MatchSnippet string // snippet where the term was found
	MatchField   string // "title" or "content"
	MatchIndex   int    // message index for content matches, -1 for title
}

// Search looks for a query in session titles and, optionally, message
// content. Matching is case-insensitive; one match is reported per session.
func (s *Store) Search(query string, searchContent bool) []*SearchResult {
	queryLower := strings.ToLower(query)
	var results []*SearchResult

	for _, sess := range s.List() {
		if strings.Contains(strings.ToLower(sess.Title), queryLower) {
			results = append(results, &SearchResult{
				Session:      sess,
				MatchSnippet: sess.Title,
				MatchField:   "title",
				MatchIndex:   -1,
			})
			continue
		}

		if !searchContent {
			continue
		}
		for i, msg := range sess.Messages {
			if strings.Contains(strings.ToLower(msg.Content), queryLower) {
				results = append(results, &SearchResult{
					Session:      sess,
					MatchSnippet: extractSnippet(msg.Content, query, 100),
					MatchField:   "content",
					MatchIndex:   i,
				})
				break
			}
		}
	}

	return results
}

// extractSnippet extracts a snippet around the first occurrence of query.
func extractSnippet(content, query string, maxLen int) string {
	idx := strings.Index(strings.ToLower(content), strings.ToLower(query))
	if idx == -1 {
		if len(content) > maxLen {
			return content[:maxLen] + "..."
		}
		return content
	}

	half := maxLen / 2
	start := idx - half
	end := idx + len(query) + half

	if start < 0 {
		start = 0
		end = maxLen
	}
	if end > len(content) {
		end = len(content)
		start = end - maxLen
		if start < 0 {
			start = 0
		}
	}

	snippet := content[start:end]
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(content) {
		snippet = snippet + "..."
	}
	return snippet
}

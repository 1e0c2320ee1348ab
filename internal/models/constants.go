package models

// DefaultTitle is the title given to a session before the first user
// message derives a real one.
const DefaultTitle = "New Chat"

// TitleMaxRunes is the maximum derived title length. Longer first messages
// are truncated to this many runes with an ellipsis appended.
const TitleMaxRunes = 50

// Available models. The default matches the model the web client pinned.
const (
	ModelFlash   = "gemini-1.5-flash"
	ModelPro     = "gemini-1.5-pro"
	ModelFlash20 = "gemini-2.0-flash"

	DefaultModel = ModelFlash
)

// AllModels returns the names of the known models.
func AllModels() []string {
	return []string{ModelFlash, ModelPro, ModelFlash20}
}

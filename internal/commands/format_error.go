package commands

import (
	"errors"

	"github.com/charmbracelet/lipgloss"

	chaterrors "github.com/stoky/golemchat/internal/errors"
	"github.com/stoky/golemchat/internal/store"
)

var (
	errorTitleStyle = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	errorHintStyle  = lipgloss.NewStyle().Foreground(colorTextDim)
)

// formatError renders a failure for the terminal: the human-readable
// classification plus a hint for the recoverable cases.
func formatError(err error) string {
	if err == nil {
		return ""
	}

	var cerr *chaterrors.ChatError
	if errors.As(err, &cerr) {
		out := errorTitleStyle.Render("✗ " + cerr.Message)
		if hint := errorHint(cerr.Code); hint != "" {
			out += "\n" + errorHintStyle.Render("Hint: "+hint)
		}
		return out
	}

	if errors.Is(err, store.ErrSessionNotFound) {
		return errorTitleStyle.Render("✗ Session not found.") + "\n" +
			errorHintStyle.Render("Hint: run 'golemchat history list' to see stored sessions.")
	}

	return errorTitleStyle.Render("✗ " + err.Error())
}

func errorHint(code chaterrors.Code) string {
	switch code {
	case chaterrors.CodeAPIKeyInvalid:
		return "check the GEMINI_API_KEY environment variable or your .env file."
	case chaterrors.CodeRateLimited:
		return "wait a few seconds before resending."
	case chaterrors.CodeQuotaExceeded:
		return "the daily quota resets at midnight Pacific time."
	default:
		return ""
	}
}

package render

import (
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// Markdown renders markdown content for terminal display.
func Markdown(content string, opts Options) (string, error) {
	r, err := newRenderer(opts)
	if err != nil {
		return "", err
	}
	return r.Render(content)
}

// MarkdownWithWidth is a convenience function for rendering with a
// specific width and default options.
func MarkdownWithWidth(content string, width int) (string, error) {
	return Markdown(content, DefaultOptions().WithWidth(width))
}

// TerminalWidth returns the current terminal width, or the fallback when
// stdout is not a terminal.
func TerminalWidth(fallback int) int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return fallback
	}
	return w
}

func newRenderer(opts Options) (*glamour.TermRenderer, error) {
	options := []glamour.TermRendererOption{
		glamour.WithWordWrap(opts.Width),
	}

	// A style that names a file path becomes a custom theme; otherwise it
	// selects one of the bundled glamour styles.
	switch {
	case strings.HasSuffix(opts.Style, ".json"):
		options = append(options, glamour.WithStylesFromJSONFile(opts.Style))
	case opts.Style == "":
		options = append(options, glamour.WithAutoStyle())
	default:
		options = append(options, glamour.WithStandardStyle(opts.Style))
	}

	if opts.EnableEmoji {
		options = append(options, glamour.WithEmoji())
	}
	if opts.PreserveNewLines {
		options = append(options, glamour.WithPreservedNewLines())
	}

	return glamour.NewTermRenderer(options...)
}

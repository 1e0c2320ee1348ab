package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/stoky/golemchat/internal/chat"
	"github.com/stoky/golemchat/internal/config"
	"github.com/stoky/golemchat/internal/gemini"
	"github.com/stoky/golemchat/internal/models"
	"github.com/stoky/golemchat/internal/render"
	"github.com/stoky/golemchat/internal/store"
)

var (
	colorText    = lipgloss.Color("#c0caf5")
	colorTextDim = lipgloss.Color("#565f89")
	colorSuccess = lipgloss.Color("#9ece6a")
	colorPrimary = lipgloss.Color("#7aa2f7")
	colorError   = lipgloss.Color("#f7768e")
)

// spinner is the animated loading indicator for one-shot queries.
type spinner struct {
	message string
	stop    chan struct{}
	done    chan struct{}
	mu      sync.Mutex
	frame   int
	detail  string
	stopped bool
}

func newSpinner(message string) *spinner {
	return &spinner{
		message: message,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// setDetail updates the trailing detail text shown next to the message.
func (s *spinner) setDetail(detail string) {
	s.mu.Lock()
	s.detail = detail
	s.mu.Unlock()
}

func (s *spinner) start() {
	go func() {
		defer close(s.done)

		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		fmt.Fprint(os.Stderr, "\033[?25l") // hide cursor
		chars := []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

		for {
			select {
			case <-s.stop:
				fmt.Fprint(os.Stderr, "\r\033[K\033[?25h")
				return
			case <-ticker.C:
				s.mu.Lock()
				char := lipgloss.NewStyle().Foreground(colorPrimary).Bold(true).Render(chars[s.frame%len(chars)])
				msg := lipgloss.NewStyle().Foreground(colorText).Render(s.message)
				detail := lipgloss.NewStyle().Foreground(colorTextDim).Render(s.detail)
				fmt.Fprintf(os.Stderr, "\r\033[K%s %s %s", char, msg, detail)
				s.frame++
				s.mu.Unlock()
			}
		}
	}()
}

func (s *spinner) stopOnce() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		close(s.stop)
		s.stopped = true
	}
}

func (s *spinner) stopWithSuccess(message string) {
	s.stopOnce()
	<-s.done
	check := lipgloss.NewStyle().Foreground(colorSuccess).Bold(true).Render("✓")
	msg := lipgloss.NewStyle().Foreground(colorSuccess).Render(message)
	fmt.Fprintf(os.Stderr, "%s %s\n", check, msg)
}

func (s *spinner) stopWithError() {
	s.stopOnce()
	<-s.done
}

// runQuery executes a single turn and prints the reply.
func runQuery(prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" && imageFlag == "" {
		return fmt.Errorf("prompt cannot be empty")
	}

	cfg, _ := config.LoadConfig()

	st, err := store.DefaultStore()
	if err != nil {
		return err
	}

	sess, err := resolveSession(st)
	if err != nil {
		return err
	}

	var image *models.ImageData
	if imageFlag != "" {
		image, err = models.LoadImage(imageFlag)
		if err != nil {
			return err
		}
	}

	coord, err := newCoordinator(cfg, st)
	if err != nil {
		return err
	}

	isTTY := term.IsTerminal(int(os.Stdout.Fd()))

	var msg *models.Message
	var turnErr error
	if isTTY {
		spin := newSpinner("Thinking")
		spin.start()
		msg, turnErr = coord.SendTurn(context.Background(), sess.ID, prompt, image, func(buffer string) {
			spin.setDetail(fmt.Sprintf("%d chars", len(buffer)))
		})
		if turnErr != nil {
			spin.stopWithError()
		} else {
			spin.stopWithSuccess("Done")
		}
	} else {
		// Piped output: stream raw fragments as they arrive.
		printed := 0
		msg, turnErr = coord.SendTurn(context.Background(), sess.ID, prompt, image, func(buffer string) {
			fmt.Print(buffer[printed:])
			printed = len(buffer)
		})
		if turnErr == nil {
			fmt.Println()
		}
	}

	if msg == nil {
		// Nothing was committed; this is a hard failure, not a classified
		// remote error.
		return turnErr
	}

	if turnErr != nil {
		fmt.Fprintln(os.Stderr, formatError(turnErr))
	}

	if isTTY {
		width := render.TerminalWidth(100)
		if width > 100 {
			width = 100
		}
		opts := render.LoadOptionsFromConfig()
		rendered, rerr := render.Markdown(msg.Content, opts.WithWidth(width))
		if rerr != nil {
			fmt.Println(msg.Content)
		} else {
			fmt.Print(rendered)
		}
		fmt.Fprintf(os.Stderr, "%s\n",
			lipgloss.NewStyle().Foreground(colorTextDim).Render("Session: "+sess.ID))
	}

	if outputFlag != "" {
		if err := os.WriteFile(outputFlag, []byte(msg.Content), 0o644); err != nil {
			return fmt.Errorf("failed to save response: %w", err)
		}
	}

	if (copyFlag || cfg.CopyToClipboard) && turnErr == nil {
		if err := clipboard.WriteAll(msg.Content); err == nil && isTTY {
			fmt.Fprintln(os.Stderr, lipgloss.NewStyle().Foreground(colorTextDim).Render("Copied to clipboard"))
		}
	}

	return nil
}

// resolveSession picks the session for this turn: an explicit --session ID,
// the most recently updated one with --continue, or a fresh session.
func resolveSession(st *store.Store) (*models.ChatSession, error) {
	if sessionFlag != "" {
		sess, ok := st.Get(sessionFlag)
		if !ok {
			return nil, fmt.Errorf("session not found: %s", sessionFlag)
		}
		return sess, nil
	}

	if continueFlag {
		var latest *models.ChatSession
		for _, sess := range st.List() {
			if latest == nil || sess.UpdatedAt.After(latest.UpdatedAt) {
				latest = sess
			}
		}
		if latest != nil {
			return latest, nil
		}
		// Nothing to continue; fall through to a fresh session.
	}

	return st.Create()
}

// newCoordinator builds the turn coordinator from config.
func newCoordinator(cfg config.Config, st *store.Store) (*chat.Coordinator, error) {
	apiKey, err := config.GetAPIKey()
	if err != nil {
		return nil, err
	}

	opts := []gemini.ClientOption{
		gemini.WithModel(getModel()),
		gemini.WithSystemPrompt(cfg.SystemPrompt),
		gemini.WithMaxOutputTokens(cfg.MaxOutputTokens),
	}
	if cfg.Temperature != nil {
		opts = append(opts, gemini.WithTemperature(*cfg.Temperature))
	}

	client, err := gemini.NewClient(context.Background(), apiKey, opts...)
	if err != nil {
		return nil, err
	}

	return chat.New(st, client), nil
}

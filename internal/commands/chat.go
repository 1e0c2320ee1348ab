package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stoky/golemchat/internal/config"
	"github.com/stoky/golemchat/internal/store"
	"github.com/stoky/golemchat/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive chat TUI",
	Long: `Start an interactive chat session.

Replies stream in live. Ctrl+N starts a new session, Ctrl+H opens the
session picker, Ctrl+C quits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat()
	},
}

func runChat() error {
	cfg, _ := config.LoadConfig()

	st, err := store.DefaultStore()
	if err != nil {
		return err
	}

	coord, err := newCoordinator(cfg, st)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}

	return tui.RunChat(coord, st, getModel())
}

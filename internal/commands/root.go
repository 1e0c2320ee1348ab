// Package commands provides the CLI commands for golemchat.
package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/stoky/golemchat/internal/config"
	"github.com/stoky/golemchat/internal/models"
)

var (
	// Global flags
	modelFlag   string
	verboseFlag bool

	// Root command flags
	outputFlag   string
	fileFlag     string
	imageFlag    string
	sessionFlag  string
	continueFlag bool
	copyFlag     bool

	// Version info (set at build time)
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "golemchat [prompt]",
	Short: "Terminal chat client for the Gemini API",
	Long: `golemchat is a terminal chat client for Google's Gemini API. Replies
stream in as they are generated, conversations are kept in a local session
store, and answers are rendered as Markdown.

Examples:
  golemchat chat                      Start the interactive chat TUI
  golemchat "What is Go?"             Send a single query in a new session
  golemchat --continue "And generics?"  Continue the most recent session
  golemchat -i photo.png "What is this?"  Attach an image
  golemchat -f prompt.md              Read the prompt from a file
  cat prompt.md | golemchat           Read the prompt from stdin
  golemchat history list              List stored sessions`,
	Args: cobra.MaximumNArgs(1),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("golemchat %s (built %s)\n", Version, BuildTime)
			return nil
		}

		stat, _ := os.Stdin.Stat()
		hasStdin := (stat.Mode() & os.ModeCharDevice) == 0

		if fileFlag != "" {
			data, err := os.ReadFile(fileFlag)
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}
			return runQuery(string(data))
		}

		if hasStdin {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}
			return runQuery(string(data))
		}

		if len(args) > 0 {
			return runQuery(args[0])
		}

		// No input - show help
		return cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "Model to use (e.g. gemini-1.5-flash)")
	rootCmd.PersistentFlags().BoolVar(&verboseFlag, "verbose", false, "Enable debug logging")
	rootCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Save response to file")
	rootCmd.Flags().StringVarP(&fileFlag, "file", "f", "", "Read prompt from file")
	rootCmd.Flags().StringVarP(&imageFlag, "image", "i", "", "Path to image file to include")
	rootCmd.Flags().StringVarP(&sessionFlag, "session", "s", "", "Continue the session with this ID")
	rootCmd.Flags().BoolVar(&continueFlag, "continue", false, "Continue the most recently updated session")
	rootCmd.Flags().BoolVarP(&copyFlag, "copy", "c", false, "Copy the reply to the clipboard")
	rootCmd.Flags().BoolP("version", "v", false, "Show version and exit")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(historyCmd)
}

// setupLogging configures zerolog. Logs go to stderr so they never mix
// with rendered output; the default level keeps the terminal quiet.
func setupLogging() {
	level := zerolog.WarnLevel
	if verboseFlag {
		level = zerolog.DebugLevel
	} else if cfg, err := config.LoadConfig(); err == nil && cfg.Verbose {
		level = zerolog.DebugLevel
	}

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

// getModel returns the model to use (from flag or config).
func getModel() string {
	if modelFlag != "" {
		return modelFlag
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return models.DefaultModel
	}
	return cfg.DefaultModel
}

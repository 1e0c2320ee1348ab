package commands

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stoky/golemchat/internal/models"
	"github.com/stoky/golemchat/internal/store"
)

var (
	searchContentFlag bool
	exportFormatFlag  string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage the local session store",
	Long:  `View and manage the locally stored chat sessions.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all sessions",
	RunE:  runHistoryList,
}

var historySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search sessions by title or content",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistorySearch,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a session transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyRenameCmd = &cobra.Command{
	Use:   "rename <id> <title>",
	Short: "Rename a session",
	Args:  cobra.ExactArgs(2),
	RunE:  runHistoryRename,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all sessions",
	RunE:  runHistoryClear,
}

var historyExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export a session as markdown or JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryExport,
}

var historyImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a session from an exported JSON file",
	Long: `Import a session from an exported JSON file.

Both the native export layout and the web client's export shape
(camelCase keys, epoch-millisecond timestamps) are accepted.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistoryImport,
}

func init() {
	historySearchCmd.Flags().BoolVar(&searchContentFlag, "content", false, "Search message content as well as titles")
	historyExportCmd.Flags().StringVar(&exportFormatFlag, "format", "markdown", "Export format: markdown or json")
	historyExportCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Save export to file")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historySearchCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyRenameCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyImportCmd)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	st, err := store.DefaultStore()
	if err != nil {
		return err
	}

	sessions := st.List()
	if len(sessions) == 0 {
		fmt.Println("No sessions found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTITLE\tMESSAGES\tUPDATED")
	_, _ = fmt.Fprintln(w, "--\t-----\t--------\t-------")

	for _, sess := range sessions {
		title := sess.Title
		if len(title) > 40 {
			title = title[:40] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			sess.ID, title, len(sess.Messages), sess.UpdatedAt.Format("2006-01-02 15:04"))
	}

	return w.Flush()
}

func runHistorySearch(cmd *cobra.Command, args []string) error {
	st, err := store.DefaultStore()
	if err != nil {
		return err
	}

	results := st.Search(args[0], searchContentFlag)
	if len(results) == 0 {
		fmt.Println("No matches found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tMATCH\tSNIPPET")
	for _, r := range results {
		snippet := strings.ReplaceAll(r.MatchSnippet, "\n", " ")
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", r.Session.ID, r.MatchField, snippet)
	}
	return w.Flush()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	st, err := store.DefaultStore()
	if err != nil {
		return err
	}

	sess, ok := st.Get(args[0])
	if !ok {
		return fmt.Errorf("session not found: %s", args[0])
	}

	fmt.Printf("ID: %s\n", sess.ID)
	fmt.Printf("Title: %s\n", sess.Title)
	fmt.Printf("Created: %s\n", sess.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Updated: %s\n", sess.UpdatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Messages: %d\n", len(sess.Messages))
	fmt.Println()

	for i, msg := range sess.Messages {
		role := "You"
		if msg.Role == models.RoleAssistant {
			role = "Golem"
		}
		fmt.Printf("[%d] %s (%s):\n", i+1, role, msg.Timestamp.Format("15:04"))

		if msg.ImageURL != "" {
			fmt.Println("  🖼  [image attached]")
		}

		content := msg.Content
		if len(content) > 500 {
			content = content[:500] + "..."
		}
		fmt.Printf("  %s\n\n", content)
	}

	return nil
}

func runHistoryRename(cmd *cobra.Command, args []string) error {
	st, err := store.DefaultStore()
	if err != nil {
		return err
	}

	title := args[1]
	sess, ok, err := st.Update(args[0], store.SessionUpdate{Title: &title})
	if err != nil {
		return fmt.Errorf("failed to rename: %w", err)
	}
	if !ok {
		return fmt.Errorf("session not found: %s", args[0])
	}

	fmt.Printf("Renamed session %s to %q\n", sess.ID, sess.Title)
	return nil
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	st, err := store.DefaultStore()
	if err != nil {
		return err
	}

	removed, err := st.Delete(args[0])
	if err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}
	if !removed {
		return fmt.Errorf("session not found: %s", args[0])
	}

	fmt.Printf("Deleted session: %s\n", args[0])
	return nil
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	st, err := store.DefaultStore()
	if err != nil {
		return err
	}

	if err := st.Clear(); err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}

	fmt.Println("All sessions deleted.")
	return nil
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	st, err := store.DefaultStore()
	if err != nil {
		return err
	}

	var out []byte
	switch store.ExportFormat(exportFormatFlag) {
	case store.ExportFormatMarkdown:
		md, err := st.ExportToMarkdown(args[0])
		if err != nil {
			return err
		}
		out = []byte(md)
	case store.ExportFormatJSON:
		out, err = st.ExportToJSON(args[0])
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q (want markdown or json)", exportFormatFlag)
	}

	if outputFlag != "" {
		if err := os.WriteFile(outputFlag, out, 0o644); err != nil {
			return fmt.Errorf("failed to write export: %w", err)
		}
		fmt.Printf("Exported to %s\n", outputFlag)
		return nil
	}

	fmt.Println(string(out))
	return nil
}

func runHistoryImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	sess, err := store.ParseSessionExport(data)
	if err != nil {
		return fmt.Errorf("failed to parse export: %w", err)
	}

	st, err := store.DefaultStore()
	if err != nil {
		return err
	}

	imported, err := st.Import(sess)
	if err != nil {
		return fmt.Errorf("failed to import session: %w", err)
	}

	fmt.Printf("Imported session %s (%d messages)\n", imported.ID, len(imported.Messages))
	return nil
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/mindpeers/client/internal/cli/tui"
)

// chatCmd is the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "start the interactive conversation",
	Long: `Start an interactive conversation with MindPeers.

Every message is analysed for sentiment, concerns and severity. The banner at
the top reflects the most recent analysis and shows support resources when
they are needed.`,
	Example: `  $ mindpeers chat

  # Keyboard controls:
  • Enter    send message
  • Tab      insert a conversation starter
  • Ctrl+T   toggle the mood timeline (r to refresh)
  • Esc      quit`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	if err := requireSession(); err != nil {
		return err
	}

	program := tui.NewChatProgram(current)
	if err := program.Run(); err != nil {
		return fmt.Errorf("failed to run chat TUI: %w", err)
	}
	return nil
}

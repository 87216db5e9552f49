package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/mindpeers/client/internal/cli/tui"
	"github.com/zhouzirui/mindpeers/client/internal/cli/ui"
	"github.com/zhouzirui/mindpeers/client/internal/service/trend"
)

// trendCmd prints the mood timeline once.
var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "show your mood timeline",
	Args:  cobra.NoArgs,
	RunE:  runTrend,
}

func runTrend(cmd *cobra.Command, args []string) error {
	if err := requireSession(); err != nil {
		return err
	}
	identity, _ := current.Session.Current()

	ctx, cancel := context.WithTimeout(cmd.Context(), current.Config.API.Timeout+5*time.Second)
	defer cancel()

	state := current.Trend.Refresh(ctx, identity.UserID)
	if state.Status == trend.StatusError {
		ui.PrintErrorBox("Error loading trends", state.Err)
		return fmt.Errorf("trend unavailable")
	}
	ui.Println(tui.RenderTrend(state, 80))
	return nil
}

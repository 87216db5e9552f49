package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/mindpeers/client/internal/cli/ui"
	"github.com/zhouzirui/mindpeers/client/internal/service/health"
)

// pingCmd checks that the service is reachable.
var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "check the connection to the service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		if current.Health.Check(ctx) == health.StatusConnected {
			ui.PrintSuccess("Connected to %s", current.Client.Server())
			return nil
		}
		_, err := current.Health.Status()
		ui.PrintError("Disconnected from %s: %v", current.Client.Server(), err)
		return fmt.Errorf("service unreachable")
	},
}

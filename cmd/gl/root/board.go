package root

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"growthline/internal/scheduler"
	"growthline/internal/tui"
)

func newBoardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Open the TUI dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cfg, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if !cfg.NoScheduler {
				sched, err := scheduler.New(svc)
				if err != nil {
					return err
				}
				interval := time.Duration(cfg.CleanupIntervalMinutes) * time.Minute
				if err := sched.Start(ctx, interval); err != nil {
					return err
				}
				defer sched.Stop()
			}

			return tui.RunBoard(ctx, svc, cmd.OutOrStdout())
		},
	}

	return cmd
}

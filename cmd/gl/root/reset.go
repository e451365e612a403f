package root

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"growthline/internal/ui"
)

func newResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Run the daily and weekly rollovers now",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, _, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := svc.Tasks.ResetDaily(ctx); err != nil {
				return err
			}
			if err := svc.Tasks.ResetWeekly(ctx); err != nil {
				return err
			}
			pruned, err := svc.Inventory.CleanupExpiredItems(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s Rollover done\n", ui.Good.Render(ui.IconLoop))
			if pruned > 0 {
				fmt.Fprintln(out, ui.Muted.Render(fmt.Sprintf("%d expired inventory rows cleaned up", pruned)))
			}
			return nil
		},
	}
	return cmd
}

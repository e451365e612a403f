package root

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"growthline/internal/engine"
	"growthline/internal/ui"
)

func newAllocateCmd() *cobra.Command {
	var plan engine.AttributeSet

	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Spend earned attribute points",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, _, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if plan.TotalPoints() == 0 {
				u, err := svc.Ledger.Current()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ui.LabelValue("Unspent points", u.AvailableAttributePoints()))
				return nil
			}

			if err := svc.Ledger.DistributeAttributes(ctx, plan); err != nil {
				return err
			}
			u, err := svc.Ledger.Current()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Spent %d points (%d left)\n",
				ui.Good.Render(ui.IconSparkle), plan.TotalPoints(), u.AvailableAttributePoints())
			return nil
		},
	}

	cmd.Flags().IntVar(&plan.Execution, "execution", 0, "Points into execution")
	cmd.Flags().IntVar(&plan.Perseverance, "perseverance", 0, "Points into perseverance")
	cmd.Flags().IntVar(&plan.Decision, "decision", 0, "Points into decision")
	cmd.Flags().IntVar(&plan.Knowledge, "knowledge", 0, "Points into knowledge")
	cmd.Flags().IntVar(&plan.Social, "social", 0, "Points into social")
	cmd.Flags().IntVar(&plan.Pride, "pride", 0, "Points into pride")

	return cmd
}

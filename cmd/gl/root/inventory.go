package root

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"growthline/internal/engine"
	"growthline/internal/ui"
)

func newInventoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "inventory",
		Aliases: []string{"inv"},
		Short:   "List owned items",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, _, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			rows, err := svc.Inventory.ListForOwner(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Heading(ui.IconBox, "Inventory"))
			for _, row := range rows {
				item, err := svc.Shop.GetItem(ctx, row.ItemID)
				if err != nil {
					return err
				}
				remaining := row.Quantity - row.UsedQuantity
				line := fmt.Sprintf("%s #%d %s x%d [%s]",
					kindIcon(item.Type), row.ID, item.Name, remaining, statusText(row.Status))
				if row.ExpiresAt != nil {
					line += " " + ui.Muted.Render("until "+row.ExpiresAt.Format("2006-01-02 15:04"))
				}
				if row.Payload != "" {
					line += " " + ui.Muted.Render(row.Payload)
				}
				fmt.Fprintln(out, line)
			}
			if len(rows) == 0 {
				fmt.Fprintln(out, ui.Muted.Render("(nothing owned yet)"))
			}

			stats, err := svc.Inventory.StatisticsForOwner(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, ui.LabelValue("Stacks", fmt.Sprintf("%d (%d items)", stats.TotalStacks, stats.TotalQuantity)))
			if stats.ExpiringSoon > 0 {
				fmt.Fprintln(out, ui.Warn.Render(fmt.Sprintf("%s %d expiring within 48h", ui.IconWarn, stats.ExpiringSoon)))
			}
			return nil
		},
	}
	return cmd
}

func statusText(status string) string {
	switch engine.UsageStatus(status) {
	case engine.StatusUnused:
		return ui.Good.Render(status)
	case engine.StatusActive:
		return ui.Gold.Render(status)
	case engine.StatusExpired:
		return ui.Bad.Render(status)
	default:
		return ui.Muted.Render(status)
	}
}

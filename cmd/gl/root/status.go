package root

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"growthline/internal/engine"
	"growthline/internal/ui"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show level, wallet, attributes and achievements",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, _, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			u, err := svc.Ledger.Current()
			if err != nil {
				return err
			}
			nextFloor := (u.Level) * (u.Level) * 100
			toNext := nextFloor - u.Growth
			if toNext < 0 {
				toNext = 0
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Heading(ui.IconSprout, "Growth Status"))
			fmt.Fprintln(out, ui.LabelValue("Level", u.Level))
			fmt.Fprintln(out, ui.LabelValue("Growth", fmt.Sprintf("%d (next level at %d, %d to go)", u.Growth, nextFloor, toNext)))
			fmt.Fprintln(out, ui.LabelValue("Coins", fmt.Sprintf("%s %d", ui.IconCoin, u.Coins)))
			fmt.Fprintln(out, "")

			fmt.Fprintln(out, ui.H2.Render("📊 Attributes"))
			a := u.Attributes
			fmt.Fprintf(out, "- 🏃 Execution: %d\n", a.Execution)
			fmt.Fprintf(out, "- 🧗 Perseverance: %d\n", a.Perseverance)
			fmt.Fprintf(out, "- 🧭 Decision: %d\n", a.Decision)
			fmt.Fprintf(out, "- 🧠 Knowledge: %d\n", a.Knowledge)
			fmt.Fprintf(out, "- 🤝 Social: %d\n", a.Social)
			fmt.Fprintf(out, "- 🦚 Pride: %d\n", a.Pride)
			fmt.Fprintln(out, ui.LabelValue("Unspent points", u.AvailableAttributePoints()))
			fmt.Fprintln(out, "")

			fmt.Fprintln(out, ui.H2.Render(ui.IconTrophy+" Achievements"))
			groups := svc.Achievements.Gallery()
			for _, g := range groups {
				unlocked := 0
				for _, a := range g.Achievements {
					if a.Unlocked {
						unlocked++
					}
				}
				fmt.Fprintf(out, "- %s %d/%d\n", ui.Key.Render(g.Name+":"), unlocked, len(g.Achievements))
			}
			fmt.Fprintln(out, "")

			fmt.Fprintln(out, ui.H2.Render(ui.IconBox+" Inventory"))
			stats, err := svc.Inventory.StatisticsForOwner(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, ui.LabelValue("Stacks", stats.TotalStacks))
			fmt.Fprintln(out, ui.LabelValue("Items", stats.TotalQuantity))
			for kind, n := range stats.ByKind {
				fmt.Fprintf(out, "- %s %s: %d\n", kindIcon(kind), kind, n)
			}
			if stats.ExpiringSoon > 0 {
				fmt.Fprintln(out, ui.Warn.Render(fmt.Sprintf("%s %d items expire within 48h", ui.IconWarn, stats.ExpiringSoon)))
			}
			return nil
		},
	}

	return cmd
}

func kindIcon(kind engine.ItemType) string {
	switch kind {
	case engine.ItemPhysical:
		return ui.IconBox
	case engine.ItemProp:
		return ui.IconSparkle
	case engine.ItemLuckyBag:
		return ui.IconBag
	default:
		return ui.IconShop
	}
}

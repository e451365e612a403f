package root

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"growthline/internal/engine"
	"growthline/internal/ui"
)

func newShopCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shop",
		Short: "Browse the catalog, buy and use items",
	}
	cmd.AddCommand(newShopListCmd(), newShopAddCmd(), newShopBuyCmd(), newShopUseCmd())
	return cmd
}

func newShopListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, _, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			items, err := svc.Shop.ListItems(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Heading(ui.IconShop, "Catalog"))
			for _, it := range items {
				line := fmt.Sprintf("%s #%d %s %s %d", kindIcon(it.Type), it.ID, it.Name, ui.IconCoin, it.Price)
				if !it.Available {
					line += " " + ui.Bad.Render("(unavailable)")
				}
				if it.LevelRequired > 1 {
					line += " " + ui.Muted.Render(fmt.Sprintf("lvl %d+", it.LevelRequired))
				}
				if it.PurchaseLimit > 0 {
					line += " " + ui.Muted.Render(fmt.Sprintf("limit %d", it.PurchaseLimit))
				}
				fmt.Fprintln(out, line)
			}
			if len(items) == 0 {
				fmt.Fprintln(out, ui.Muted.Render("(the shelves are empty, add items with 'gl shop add')"))
			}
			return nil
		},
	}
	return cmd
}

func newShopAddCmd() *cobra.Command {
	var (
		itemType string
		price    int
		limit    int
		level    int
		effect   string
		duration int
		redeem   string
		desc     string
		rewards  []string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a catalog item (the pricing strategy sets the final price)",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("name is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, _, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			item := engine.ShopItem{
				Name:            args[0],
				Description:     desc,
				Type:            engine.ItemType(itemType),
				Price:           price,
				PurchaseLimit:   limit,
				Available:       true,
				PropEffect:      engine.PropEffectType(effect),
				DurationMinutes: duration,
				RedeemMethod:    redeem,
				LevelRequired:   level,
			}
			for _, raw := range rewards {
				r, err := parseLuckyReward(raw)
				if err != nil {
					return err
				}
				item.LuckyRewards = append(item.LuckyRewards, r)
			}

			created, err := svc.Shop.CreateItem(ctx, item)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Stocked #%d %q at %s %d\n",
				ui.Good.Render(ui.IconPlus), created.ID, created.Name, ui.IconCoin, created.Price)
			return nil
		},
	}

	cmd.Flags().StringVarP(&itemType, "type", "t", "Physical", "Item type (Physical|Prop|LuckyBag)")
	cmd.Flags().IntVarP(&price, "price", "p", 0, "Suggested price (physical items only, clamped)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Lifetime purchase limit (0 = unlimited)")
	cmd.Flags().IntVar(&level, "level", 1, "Minimum level to buy")
	cmd.Flags().StringVar(&effect, "effect", "None", "Prop effect (RestDay|ForgivenessCoupon|DoubleExpCard)")
	cmd.Flags().IntVar(&duration, "duration", 0, "Prop effect duration in minutes")
	cmd.Flags().StringVar(&redeem, "redeem", "", "Redemption instructions for physical rewards")
	cmd.Flags().StringArrayVar(&rewards, "reward", nil,
		"Lucky bag reward as type:amount:probability (Coins:50:0.4, Growth:20:0.3, ShopItem:3:0.1)")
	cmd.Flags().StringVarP(&desc, "desc", "d", "", "Description")

	return cmd
}

// parseLuckyReward reads "type:amount:probability"; for ShopItem rewards
// the amount field holds the catalog item id.
func parseLuckyReward(raw string) (engine.LuckyReward, error) {
	var kind string
	var amount int
	var prob float64
	if _, err := fmt.Sscanf(raw, "%[^:]:%d:%f", &kind, &amount, &prob); err != nil {
		return engine.LuckyReward{}, fmt.Errorf("reward %q: want type:amount:probability", raw)
	}
	r := engine.LuckyReward{Type: engine.LuckyRewardType(kind), Probability: prob}
	switch r.Type {
	case engine.LuckyCoins, engine.LuckyGrowth:
		r.Amount = amount
	case engine.LuckyShopItem:
		r.ItemID = int64(amount)
	default:
		return engine.LuckyReward{}, fmt.Errorf("unknown reward type %q", kind)
	}
	return r, nil
}

func newShopBuyCmd() *cobra.Command {
	var quantity int

	cmd := &cobra.Command{
		Use:   "buy <item-id>",
		Short: "Buy a catalog item",
		Args:  idArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := parseID(args)
			ctx := context.Background()
			svc, _, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			invID, err := svc.Shop.PurchaseItem(ctx, id, quantity)
			if err != nil {
				return err
			}
			u, err := svc.Ledger.Current()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Bought %d (inventory #%d), %s %d left\n",
				ui.Good.Render(ui.IconDone), quantity, invID, ui.IconCoin, u.Coins)
			return nil
		},
	}

	cmd.Flags().IntVarP(&quantity, "qty", "n", 1, "Quantity")

	return cmd
}

func newShopUseCmd() *cobra.Command {
	var taskID int64
	var notes string

	cmd := &cobra.Command{
		Use:   "use <inventory-id>",
		Short: "Use, activate or open an owned item",
		Args:  idArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := parseID(args)
			ctx := context.Background()
			svc, _, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := svc.Shop.UseInventoryItem(ctx, id, taskID, notes)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", ui.Good.Render(ui.IconSparkle), res.Message)
			if res.RedemptionCode != "" {
				fmt.Fprintln(out, ui.LabelValue("Code", ui.Gold.Render(res.RedemptionCode)))
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&taskID, "task", 0, "Target task id (forgiveness coupons)")
	cmd.Flags().StringVar(&notes, "notes", "", "Redemption notes (physical rewards)")

	return cmd
}

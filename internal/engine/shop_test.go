package engine

import (
	"errors"
	"testing"
	"time"
)

func TestPricingStrategy(t *testing.T) {
	cases := []struct {
		name string
		item ShopItem
		want int
	}{
		{
			name: "physical clamps low",
			item: ShopItem{Type: ItemPhysical, Price: 100},
			want: 300,
		},
		{
			name: "physical clamps high",
			item: ShopItem{Type: ItemPhysical, Price: 10000},
			want: 600,
		},
		{
			name: "physical in range keeps price",
			item: ShopItem{Type: ItemPhysical, Price: 450},
			want: 450,
		},
		{
			name: "double growth card weighs more",
			item: ShopItem{Type: ItemProp, PropEffect: EffectDoubleExpCard, DurationMinutes: 60},
			want: 180, // 60 * 1.5 * 2 half-hour units
		},
		{
			name: "plain prop floors at 30",
			item: ShopItem{Type: ItemProp, PropEffect: EffectRestDay, DurationMinutes: 0},
			want: 60,
		},
		{
			name: "lucky bag prices off expected value",
			item: ShopItem{
				Type: ItemLuckyBag,
				LuckyRewards: []LuckyReward{
					{Type: LuckyCoins, Amount: 200, Probability: 0.9},
				},
			},
			want: 216, // 200 * 0.9 * 1.2
		},
		{
			name: "lucky bag never undercuts baseline",
			item: ShopItem{
				Type: ItemLuckyBag,
				LuckyRewards: []LuckyReward{
					{Type: LuckyCoins, Amount: 10, Probability: 0.5},
				},
			},
			want: 60,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := priceFor(tc.item); got != tc.want {
				t.Fatalf("priceFor = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestLuckyBagProbabilityValidation(t *testing.T) {
	svc, ctx := newTestService(t)
	_, err := svc.Shop.CreateItem(ctx, ShopItem{
		Name: "too lucky", Type: ItemLuckyBag, Available: true,
		LuckyRewards: []LuckyReward{
			{Type: LuckyCoins, Amount: 10, Probability: 0.7},
			{Type: LuckyGrowth, Amount: 10, Probability: 0.6},
		},
	})
	if err == nil {
		t.Fatal("probability sum above 1 should be rejected at catalog write")
	}
}

func TestDrawLuckyReward(t *testing.T) {
	rewards := []LuckyReward{
		{Type: LuckyCoins, Amount: 10, Probability: 0.2},
		{Type: LuckyGrowth, Amount: 5, Probability: 0.3},
		{Type: LuckyCoins, Amount: 100, Probability: 0.5},
	}
	if got := drawLuckyReward(rewards, 0.1); got.Amount != 10 {
		t.Errorf("low roll picked %+v", got)
	}
	if got := drawLuckyReward(rewards, 0.25); got.Type != LuckyGrowth {
		t.Errorf("mid roll picked %+v", got)
	}
	if got := drawLuckyReward(rewards, 0.99); got.Amount != 100 {
		t.Errorf("high roll picked %+v", got)
	}

	// Degenerate distributions still resolve to the last reward.
	zero := []LuckyReward{
		{Type: LuckyCoins, Amount: 1, Probability: 0},
		{Type: LuckyCoins, Amount: 2, Probability: 0},
	}
	if got := drawLuckyReward(zero, 0.99); got.Amount != 2 {
		t.Errorf("zero-mass draw picked %+v", got)
	}
}

func TestPurchaseChecksRunInOrder(t *testing.T) {
	svc, ctx := newTestService(t)

	hidden, err := svc.Shop.CreateItem(ctx, ShopItem{
		Name: "backroom", Type: ItemPhysical, Price: 300, Available: false,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	var pe PurchaseError
	if _, err := svc.Shop.PurchaseItem(ctx, hidden.ID, 1); !errors.As(err, &pe) {
		t.Fatalf("unavailable item err = %v, want PurchaseError", err)
	}

	gated, err := svc.Shop.CreateItem(ctx, ShopItem{
		Name: "elite trophy", Type: ItemPhysical, Price: 300, Available: true, LevelRequired: 5,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	var lg LevelGateError
	if _, err := svc.Shop.PurchaseItem(ctx, gated.ID, 1); !errors.As(err, &lg) {
		t.Fatalf("gated item err = %v, want LevelGateError", err)
	}
	if lg.RequiredLevel != 5 || lg.CurrentLevel != 1 {
		t.Fatalf("gate detail = %+v", lg)
	}

	open, err := svc.Shop.CreateItem(ctx, ShopItem{
		Name: "poster", Type: ItemPhysical, Price: 300, Available: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	before := currentUser(t, svc)
	if _, err := svc.Shop.PurchaseItem(ctx, open.ID, 1); !errors.As(err, &pe) {
		t.Fatalf("broke wallet err = %v, want PurchaseError", err)
	}
	if got := currentUser(t, svc); got.Coins != before.Coins {
		t.Fatalf("failed purchase moved wallet from %d to %d", before.Coins, got.Coins)
	}
}

func TestPurchaseSpendsAndBooksAtomically(t *testing.T) {
	svc, ctx := newTestService(t)
	item, err := svc.Shop.CreateItem(ctx, ShopItem{
		Name: "mug", Type: ItemPhysical, Price: 300, Available: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	fundWallet(t, svc, ctx, 400)

	invID, err := svc.Shop.PurchaseItem(ctx, item.ID, 1)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if invID == 0 {
		t.Fatal("purchase should return the inventory row id")
	}
	if got := currentUser(t, svc).Coins; got != 100 {
		t.Fatalf("wallet = %d, want 100", got)
	}
	row, err := svc.Inventory.GetRow(ctx, invID)
	if err != nil || row == nil {
		t.Fatalf("inventory row: %v %v", row, err)
	}
	if row.Quantity != 1 || UsageStatus(row.Status) != StatusUnused {
		t.Fatalf("row = %+v", row)
	}
}

func TestPurchaseLimit(t *testing.T) {
	svc, ctx := newTestService(t)
	item, err := svc.Shop.CreateItem(ctx, ShopItem{
		Name: "seasonal badge", Type: ItemPhysical, Price: 300, Available: true, PurchaseLimit: 2,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	fundWallet(t, svc, ctx, 2000)

	if _, err := svc.Shop.PurchaseItem(ctx, item.ID, 2); err != nil {
		t.Fatalf("within limit: %v", err)
	}
	var pe PurchaseError
	if _, err := svc.Shop.PurchaseItem(ctx, item.ID, 1); !errors.As(err, &pe) {
		t.Fatalf("over limit err = %v, want PurchaseError", err)
	}
}

func TestPhysicalRedemptionIssuesCode(t *testing.T) {
	svc, ctx := newTestService(t)
	item, err := svc.Shop.CreateItem(ctx, ShopItem{
		Name: "cinema night", Type: ItemPhysical, Price: 300, Available: true,
		RedeemMethod: "show this code at home",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	fundWallet(t, svc, ctx, 300)
	invID, err := svc.Shop.PurchaseItem(ctx, item.ID, 1)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}

	res, err := svc.Shop.UseInventoryItem(ctx, invID, 0, "friday")
	if err != nil {
		t.Fatalf("use: %v", err)
	}
	if len(res.RedemptionCode) != 8 {
		t.Fatalf("code %q, want 8 characters", res.RedemptionCode)
	}
	row, _ := svc.Inventory.GetRow(ctx, invID)
	if UsageStatus(row.Status) != StatusConsumed {
		t.Fatalf("status = %s, want Consumed", row.Status)
	}
	if row.Notes != "friday" {
		t.Fatalf("notes = %q", row.Notes)
	}

	// Already consumed.
	if _, err := svc.Shop.UseInventoryItem(ctx, invID, 0, ""); err == nil {
		t.Fatal("second redemption should fail")
	}
}

func TestDoubleExpCardDoublesGrowth(t *testing.T) {
	svc, ctx := newTestService(t)
	card, err := svc.Shop.CreateItem(ctx, ShopItem{
		Name: "double growth card", Type: ItemProp, Available: true,
		PropEffect: EffectDoubleExpCard, DurationMinutes: 60,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	fundWallet(t, svc, ctx, 1000)
	invID, err := svc.Shop.PurchaseItem(ctx, card.ID, 1)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if _, err := svc.Shop.UseInventoryItem(ctx, invID, 0, ""); err != nil {
		t.Fatalf("use: %v", err)
	}

	task := mustCreateTask(t, svc, ctx, Task{
		Name: "study sprint", Type: TaskDaily, DifficultyStars: 3, GrowthReward: 50,
	})
	reward, err := svc.Tasks.MarkTaskCompleted(ctx, task.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if reward.Multiplier != 2 {
		t.Fatalf("multiplier = %d, want 2", reward.Multiplier)
	}
	if reward.Growth != 130 {
		t.Fatalf("growth = %d, want doubled 130", reward.Growth)
	}
}

func TestEffectStackCap(t *testing.T) {
	svc, ctx := newTestService(t)
	card, err := svc.Shop.CreateItem(ctx, ShopItem{
		Name: "double growth card", Type: ItemProp, Available: true,
		PropEffect: EffectDoubleExpCard, DurationMinutes: 60,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	fundWallet(t, svc, ctx, 5000)

	for i := 0; i < 3; i++ {
		invID, err := svc.Shop.PurchaseItem(ctx, card.ID, 1)
		if err != nil {
			t.Fatalf("purchase #%d: %v", i+1, err)
		}
		if _, err := svc.Shop.UseInventoryItem(ctx, invID, 0, ""); err != nil {
			t.Fatalf("use #%d: %v", i+1, err)
		}
	}
	if got := svc.Inventory.DoubleExpMultiplier(); got != 4 {
		t.Fatalf("multiplier = %d, want 4 at full stack", got)
	}

	// A fourth card is spent extending the running stack, never raising it.
	invID, err := svc.Shop.PurchaseItem(ctx, card.ID, 1)
	if err != nil {
		t.Fatalf("purchase fourth: %v", err)
	}
	if _, err := svc.Shop.UseInventoryItem(ctx, invID, 0, ""); err != nil {
		t.Fatalf("fourth use: %v", err)
	}
	if got := svc.Inventory.DoubleExpMultiplier(); got != 4 {
		t.Fatalf("multiplier = %d, must stay at 4", got)
	}
	row, _ := svc.Inventory.GetRow(ctx, invID)
	if UsageStatus(row.Status) != StatusConsumed {
		t.Fatalf("fourth card status = %s, want Consumed", row.Status)
	}
	rows, err := svc.Inventory.ListForOwner(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	extended := 0
	for _, r := range rows {
		if UsageStatus(r.Status) != StatusActive {
			continue
		}
		if r.ExpiresAt != nil && r.ExpiresAt.After(time.Now().Add(90*time.Minute)) {
			extended++
		}
	}
	if extended != 3 {
		t.Fatalf("%d active cards extended past 90m, want all 3", extended)
	}
}

func TestRestDayTokenShieldsDailyFailure(t *testing.T) {
	svc, ctx := newTestService(t)
	token, err := svc.Shop.CreateItem(ctx, ShopItem{
		Name: "rest day", Type: ItemProp, Available: true, PropEffect: EffectRestDay,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	fundWallet(t, svc, ctx, 200)
	invID, err := svc.Shop.PurchaseItem(ctx, token.ID, 1)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if _, err := svc.Shop.UseInventoryItem(ctx, invID, 0, ""); err != nil {
		t.Fatalf("activate: %v", err)
	}

	task := mustCreateTask(t, svc, ctx, Task{Name: "jog", Type: TaskDaily, BonusStreak: 4})
	if err := svc.Tasks.FailTask(ctx, task.ID, true); err != nil {
		t.Fatalf("fail: %v", err)
	}
	got, _ := svc.Tasks.GetTask(ctx, task.ID)
	if got.BonusStreak != 4 {
		t.Fatalf("rest day should keep the streak, got %d", got.BonusStreak)
	}
	if svc.Inventory.HasEffectToken(EffectRestDay) {
		t.Fatal("token should be consumed by the shielded failure")
	}

	if err := svc.Tasks.FailTask(ctx, task.ID, true); err != nil {
		t.Fatalf("second fail: %v", err)
	}
	got, _ = svc.Tasks.GetTask(ctx, task.ID)
	if got.BonusStreak != 0 {
		t.Fatalf("unshielded failure should reset the streak, got %d", got.BonusStreak)
	}
}

func TestForgivenessCouponPropTargetsTask(t *testing.T) {
	svc, ctx := newTestService(t)
	coupon, err := svc.Shop.CreateItem(ctx, ShopItem{
		Name: "forgiveness coupon", Type: ItemProp, Available: true,
		PropEffect: EffectForgivenessCoupon,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	fundWallet(t, svc, ctx, 200)
	invID, err := svc.Shop.PurchaseItem(ctx, coupon.ID, 1)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}

	if _, err := svc.Shop.UseInventoryItem(ctx, invID, 0, ""); err == nil {
		t.Fatal("coupon without target task should be rejected")
	}

	task := mustCreateTask(t, svc, ctx, Task{Name: "essay", Type: TaskWeekly})
	if _, err := svc.Shop.UseInventoryItem(ctx, invID, task.ID, ""); err != nil {
		t.Fatalf("use on task: %v", err)
	}
	got, _ := svc.Tasks.GetTask(ctx, task.ID)
	if got.ForgivenessCoupons != 1 {
		t.Fatalf("coupons = %d, want 1", got.ForgivenessCoupons)
	}
}

func TestLuckyBagPaysOut(t *testing.T) {
	svc, ctx := newTestService(t)
	bag, err := svc.Shop.CreateItem(ctx, ShopItem{
		Name: "mystery bag", Type: ItemLuckyBag, Available: true,
		LuckyRewards: []LuckyReward{
			{Type: LuckyCoins, Amount: 50, Probability: 1.0},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	fundWallet(t, svc, ctx, 100)
	invID, err := svc.Shop.PurchaseItem(ctx, bag.ID, 1)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	before := currentUser(t, svc).Coins

	res, err := svc.Shop.UseInventoryItem(ctx, invID, 0, "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if res.Reward == nil || res.Reward.Amount != 50 {
		t.Fatalf("result = %+v", res)
	}
	if got := currentUser(t, svc).Coins; got != before+50 {
		t.Fatalf("wallet = %d, want %d", got, before+50)
	}
	row, _ := svc.Inventory.GetRow(ctx, invID)
	if UsageStatus(row.Status) != StatusConsumed {
		t.Fatalf("bag status = %s, want Consumed", row.Status)
	}
}

func TestMultiUnitPurchaseUsesUnitByUnit(t *testing.T) {
	svc, ctx := newTestService(t)
	bag, err := svc.Shop.CreateItem(ctx, ShopItem{
		Name: "mystery bag", Type: ItemLuckyBag, Available: true,
		LuckyRewards: []LuckyReward{
			{Type: LuckyCoins, Amount: 50, Probability: 1.0},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	fundWallet(t, svc, ctx, 200)

	if _, err := svc.Shop.PurchaseItem(ctx, bag.ID, 2); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	rows, err := svc.Inventory.ListForOwner(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want one per paid unit", len(rows))
	}

	// Each paid unit opens on its own.
	for _, row := range rows {
		before := currentUser(t, svc).Coins
		if _, err := svc.Shop.UseInventoryItem(ctx, row.ID, 0, ""); err != nil {
			t.Fatalf("open row %d: %v", row.ID, err)
		}
		if got := currentUser(t, svc).Coins; got != before+50 {
			t.Fatalf("wallet = %d, want %d", got, before+50)
		}
	}
}

package engine

import (
	"testing"
	"time"
)

func TestInventoryStatistics(t *testing.T) {
	svc, ctx := newTestService(t)
	mug, err := svc.Shop.CreateItem(ctx, ShopItem{
		Name: "mug", Type: ItemPhysical, Price: 300, Available: true,
	})
	if err != nil {
		t.Fatalf("create mug: %v", err)
	}
	card, err := svc.Shop.CreateItem(ctx, ShopItem{
		Name: "card", Type: ItemProp, Available: true, PropEffect: EffectDoubleExpCard,
	})
	if err != nil {
		t.Fatalf("create card: %v", err)
	}

	if _, err := svc.Inventory.AddPurchase(ctx, mug.ID, 2, nil); err != nil {
		t.Fatalf("add mugs: %v", err)
	}
	soon := time.Now().Add(24 * time.Hour)
	if _, err := svc.Inventory.AddPurchase(ctx, card.ID, 1, &soon); err != nil {
		t.Fatalf("add card: %v", err)
	}

	stats, err := svc.Inventory.StatisticsForOwner(ctx)
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if stats.TotalStacks != 3 {
		t.Errorf("stacks = %d, want one per unit", stats.TotalStacks)
	}
	if stats.TotalQuantity != 3 {
		t.Errorf("quantity = %d, want 3", stats.TotalQuantity)
	}
	if stats.ByKind[ItemPhysical] != 2 || stats.ByKind[ItemProp] != 1 {
		t.Errorf("by kind = %+v", stats.ByKind)
	}
	if stats.ExpiringSoon != 1 {
		t.Errorf("expiring soon = %d, want 1", stats.ExpiringSoon)
	}
}

func TestCleanupExpiredItems(t *testing.T) {
	svc, ctx := newTestService(t)
	item, err := svc.Shop.CreateItem(ctx, ShopItem{
		Name: "perishable", Type: ItemProp, Available: true, PropEffect: EffectRestDay,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	gone := time.Now().Add(-time.Hour)
	expiredID, err := svc.Inventory.AddPurchase(ctx, item.ID, 1, &gone)
	if err != nil {
		t.Fatalf("add expired: %v", err)
	}
	keepID, err := svc.Inventory.AddPurchase(ctx, item.ID, 1, nil)
	if err != nil {
		t.Fatalf("add keeper: %v", err)
	}

	n, err := svc.Inventory.CleanupExpiredItems(ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if n != 1 {
		t.Fatalf("cleaned %d rows, want 1", n)
	}
	row, _ := svc.Inventory.GetRow(ctx, expiredID)
	if UsageStatus(row.Status) != StatusExpired {
		t.Errorf("expired row status = %s", row.Status)
	}
	row, _ = svc.Inventory.GetRow(ctx, keepID)
	if UsageStatus(row.Status) != StatusUnused {
		t.Errorf("keeper status = %s", row.Status)
	}
}

func TestUnusedPropExpiresFromPurchase(t *testing.T) {
	svc, ctx := newTestService(t)
	card, err := svc.Shop.CreateItem(ctx, ShopItem{
		Name: "card", Type: ItemProp, Available: true,
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
	row, _ := svc.Inventory.GetRow(ctx, invID)
	if row.ExpiresAt == nil {
		t.Fatal("time-boxed prop must get its expiry stamped at purchase")
	}

	// Two hours later the never-activated card is gone.
	svc.Inventory.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	n, err := svc.Inventory.CleanupExpiredItems(ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if n != 1 {
		t.Fatalf("cleaned %d rows, want 1", n)
	}
	row, _ = svc.Inventory.GetRow(ctx, invID)
	if UsageStatus(row.Status) != StatusExpired {
		t.Fatalf("row status = %s, want Expired", row.Status)
	}
	if err := svc.Inventory.ActivateProp(ctx, invID, EffectDoubleExpCard, 60); err == nil {
		t.Fatal("expired card must not activate")
	}
}

func TestExpiredEffectStopsCounting(t *testing.T) {
	svc, ctx := newTestService(t)
	card, err := svc.Shop.CreateItem(ctx, ShopItem{
		Name: "card", Type: ItemProp, Available: true,
		PropEffect: EffectDoubleExpCard, DurationMinutes: 30,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	invID, err := svc.Inventory.AddPurchase(ctx, card.ID, 1, nil)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.Inventory.ActivateProp(ctx, invID, EffectDoubleExpCard, 30); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if got := svc.Inventory.DoubleExpMultiplier(); got != 2 {
		t.Fatalf("multiplier = %d, want 2", got)
	}

	// Jump past the effect window.
	svc.Inventory.now = func() time.Time { return time.Now().Add(time.Hour) }
	if got := svc.Inventory.DoubleExpMultiplier(); got != 1 {
		t.Fatalf("multiplier after expiry = %d, want 1", got)
	}
	row, _ := svc.Inventory.GetRow(ctx, invID)
	if UsageStatus(row.Status) != StatusExpired {
		t.Fatalf("row status = %s, want Expired", row.Status)
	}
}

func TestLoadRebuildsActiveEffects(t *testing.T) {
	svc, ctx := newTestService(t)
	card, err := svc.Shop.CreateItem(ctx, ShopItem{
		Name: "card", Type: ItemProp, Available: true,
		PropEffect: EffectDoubleExpCard, DurationMinutes: 120,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	invID, err := svc.Inventory.AddPurchase(ctx, card.ID, 1, nil)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.Inventory.ActivateProp(ctx, invID, EffectDoubleExpCard, 120); err != nil {
		t.Fatalf("activate: %v", err)
	}

	// A second service over the same store sees the active effect.
	other := NewService(svc.Store())
	if err := other.Start(ctx); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if got := other.Inventory.DoubleExpMultiplier(); got != 2 {
		t.Fatalf("multiplier after reload = %d, want 2", got)
	}
}

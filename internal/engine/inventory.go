package engine

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"growthline/internal/storage"
)

// At most this many copies of one prop effect may be active at once.
const effectStackLimit = 3

// Within this window an unexpired item counts as expiring soon.
const expiringSoonWindow = 48 * time.Hour

// activeEffect is one live prop activation backed by an inventory row.
type activeEffect struct {
	inventoryID int64
	expiresAt   *time.Time
	tokens      int
}

func (e activeEffect) expired(now time.Time) bool {
	return e.expiresAt != nil && e.expiresAt.Before(now)
}

// InventoryStatistics summarizes one owner's holdings.
type InventoryStatistics struct {
	TotalStacks   int
	TotalQuantity int
	ByKind        map[ItemType]int
	ExpiringSoon  int
}

// InventoryService owns purchased items and the active prop effects they
// produce. Effect buckets live in memory and are rebuilt from the rows
// whose status is still Active.
type InventoryService struct {
	store *storage.Store
	repo  *storage.InventoryRepo
	items *storage.ShopRepo
	now   func() time.Time

	mu      sync.Mutex
	effects map[PropEffectType][]activeEffect
}

func NewInventoryService(store *storage.Store) *InventoryService {
	return &InventoryService{
		store:   store,
		repo:    storage.NewInventoryRepo(store),
		items:   storage.NewShopRepo(store),
		now:     time.Now,
		effects: make(map[PropEffectType][]activeEffect),
	}
}

// Load rebuilds the effect buckets from rows left active by an earlier
// run. Call once during startup.
func (s *InventoryService) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.repo.ListByOwner(ctx, MainOwner)
	if err != nil {
		return err
	}
	s.effects = make(map[PropEffectType][]activeEffect)
	now := s.now()
	for _, row := range rows {
		if UsageStatus(row.Status) != StatusActive {
			continue
		}
		item, err := s.items.Get(ctx, row.ItemID)
		if err != nil {
			return err
		}
		if item == nil {
			continue
		}
		effect := PropEffectType(item.PropEffectType)
		if effect == EffectNone {
			continue
		}
		e := activeEffect{
			inventoryID: row.ID,
			expiresAt:   row.ExpiresAt,
			tokens:      row.Quantity - row.UsedQuantity,
		}
		if e.expired(now) || e.tokens <= 0 {
			row := row
			row.Status = string(StatusExpired)
			if _, err := s.repo.Update(ctx, &row); err != nil {
				return err
			}
			continue
		}
		s.effects[effect] = append(s.effects[effect], e)
	}
	return nil
}

// AddPurchase records newly bought stock, one row per unit so every unit
// is used and consumed on its own. It joins any open transaction on the
// store and returns the first inserted row id.
func (s *InventoryService) AddPurchase(ctx context.Context, itemID int64, quantity int, expiresAt *time.Time) (int64, error) {
	if quantity <= 0 {
		return 0, fmt.Errorf("inventory: quantity must be positive")
	}
	var firstID int64
	for i := 0; i < quantity; i++ {
		row := storage.InventoryItem{
			ItemID:       itemID,
			Owner:        MainOwner,
			Quantity:     1,
			Status:       string(StatusUnused),
			PurchaseTime: s.now(),
			ExpiresAt:    expiresAt,
		}
		id, err := s.repo.Insert(ctx, row)
		if err != nil {
			return 0, err
		}
		if i == 0 {
			firstID = id
		}
	}
	return firstID, nil
}

// ActivateProp turns an unused prop row into a live effect. The stack
// clamps at the limit; activating past it spends the unit extending the
// running effects instead of raising the stack.
func (s *InventoryService) ActivateProp(ctx context.Context, inventoryID int64, effect PropEffectType, durationMinutes int) error {
	if effect == EffectNone {
		return fmt.Errorf("inventory: item has no prop effect")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(ctx)

	row, err := s.repo.Get(ctx, inventoryID)
	if err != nil {
		return err
	}
	if row == nil {
		return fmt.Errorf("inventory: item %d not found", inventoryID)
	}
	if UsageStatus(row.Status) != StatusUnused {
		return fmt.Errorf("inventory: item %d is %s", inventoryID, row.Status)
	}
	now := s.now()
	if row.ExpiresAt != nil && row.ExpiresAt.Before(now) {
		row.Status = string(StatusExpired)
		if _, err := s.repo.Update(ctx, row); err != nil {
			return err
		}
		return fmt.Errorf("inventory: item %d expired before activation", inventoryID)
	}

	duration := time.Duration(durationMinutes) * time.Minute

	if len(s.effects[effect]) >= effectStackLimit {
		row.Status = string(StatusConsumed)
		row.UsedQuantity = row.Quantity
		if _, err := s.repo.Update(ctx, row); err != nil {
			return err
		}
		if duration > 0 {
			s.extendEffectsLocked(ctx, effect, duration)
		}
		return nil
	}

	// The expiry clock starts at purchase for time-boxed props; fall back
	// to the activation time for rows bought before that stamp existed.
	expiresAt := row.ExpiresAt
	if expiresAt == nil && duration > 0 {
		t := now.Add(duration)
		expiresAt = &t
	}

	row.Status = string(StatusActive)
	row.ExpiresAt = expiresAt
	if _, err := s.repo.Update(ctx, row); err != nil {
		return err
	}

	s.effects[effect] = append(s.effects[effect], activeEffect{
		inventoryID: inventoryID,
		expiresAt:   expiresAt,
		tokens:      row.Quantity - row.UsedQuantity,
	})
	return nil
}

// extendEffectsLocked pushes every live activation of the effect out by d
// and mirrors the new deadline onto the backing rows.
func (s *InventoryService) extendEffectsLocked(ctx context.Context, effect PropEffectType, d time.Duration) {
	bucket := s.effects[effect]
	for i := range bucket {
		if bucket[i].expiresAt == nil {
			continue
		}
		t := bucket[i].expiresAt.Add(d)
		bucket[i].expiresAt = &t
		row, err := s.repo.Get(ctx, bucket[i].inventoryID)
		if err != nil || row == nil {
			log.Printf("inventory: extend effect row %d: %v", bucket[i].inventoryID, err)
			continue
		}
		row.ExpiresAt = &t
		if ok, err := s.repo.Update(ctx, row); err != nil || !ok {
			log.Printf("inventory: extend effect row %d: ok=%v err=%v", row.ID, ok, err)
		}
	}
}

// HasEffectToken reports whether at least one live token of the effect
// remains.
func (s *InventoryService) HasEffectToken(effect PropEffectType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(context.Background())
	for _, e := range s.effects[effect] {
		if e.tokens > 0 {
			return true
		}
	}
	return false
}

// ConsumeEffectToken spends one token of the effect, oldest activation
// first. A stack that runs dry is marked consumed.
func (s *InventoryService) ConsumeEffectToken(ctx context.Context, effect PropEffectType) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(ctx)

	bucket := s.effects[effect]
	for i := range bucket {
		if bucket[i].tokens <= 0 {
			continue
		}
		bucket[i].tokens--

		row, err := s.repo.Get(ctx, bucket[i].inventoryID)
		if err != nil {
			return false, err
		}
		if row != nil {
			row.UsedQuantity++
			if bucket[i].tokens == 0 {
				row.Status = string(StatusConsumed)
			}
			if _, err := s.repo.Update(ctx, row); err != nil {
				return false, err
			}
		}

		if bucket[i].tokens == 0 {
			s.effects[effect] = append(bucket[:i], bucket[i+1:]...)
		}
		return true, nil
	}
	return false, nil
}

// ActiveStack counts live activations of an effect.
func (s *InventoryService) ActiveStack(effect PropEffectType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(context.Background())
	return len(s.effects[effect])
}

// DoubleExpMultiplier is 1 plus the live double growth card stack.
func (s *InventoryService) DoubleExpMultiplier() int {
	return 1 + s.ActiveStack(EffectDoubleExpCard)
}

// MarkPhysicalRedeemed consumes a physical reward row and issues a
// redemption code the player can present.
func (s *InventoryService) MarkPhysicalRedeemed(ctx context.Context, inventoryID int64, notes string) (string, error) {
	row, err := s.repo.Get(ctx, inventoryID)
	if err != nil {
		return "", err
	}
	if row == nil {
		return "", fmt.Errorf("inventory: item %d not found", inventoryID)
	}
	if UsageStatus(row.Status) != StatusUnused {
		return "", fmt.Errorf("inventory: item %d is %s", inventoryID, row.Status)
	}

	code := strings.ToUpper(uuid.NewString()[:8])
	row.Status = string(StatusConsumed)
	row.UsedQuantity = row.Quantity
	row.Payload = code
	row.Notes = notes
	if _, err := s.repo.Update(ctx, row); err != nil {
		return "", err
	}
	return code, nil
}

// MarkLuckyBagOpened consumes a lucky bag row, recording what it paid
// out for the history view.
func (s *InventoryService) MarkLuckyBagOpened(ctx context.Context, inventoryID int64, outcome string) error {
	row, err := s.repo.Get(ctx, inventoryID)
	if err != nil {
		return err
	}
	if row == nil {
		return fmt.Errorf("inventory: item %d not found", inventoryID)
	}
	if UsageStatus(row.Status) != StatusUnused {
		return fmt.Errorf("inventory: item %d is %s", inventoryID, row.Status)
	}
	row.Status = string(StatusConsumed)
	row.UsedQuantity = row.Quantity
	row.Payload = outcome
	if _, err := s.repo.Update(ctx, row); err != nil {
		return err
	}
	return nil
}

// GetRow fetches one inventory row.
func (s *InventoryService) GetRow(ctx context.Context, inventoryID int64) (*storage.InventoryItem, error) {
	return s.repo.Get(ctx, inventoryID)
}

// ListForOwner returns every inventory row of the main owner.
func (s *InventoryService) ListForOwner(ctx context.Context) ([]storage.InventoryItem, error) {
	return s.repo.ListByOwner(ctx, MainOwner)
}

// CountPurchasesForItem sums how many units of the item the owner ever
// bought, for purchase limit checks.
func (s *InventoryService) CountPurchasesForItem(ctx context.Context, itemID int64) (int, error) {
	return s.repo.CountByOwnerAndItem(ctx, MainOwner, itemID)
}

// CleanupExpiredItems expires rows whose deadline passed and drops their
// effects. It returns how many rows it touched.
func (s *InventoryService) CleanupExpiredItems(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(ctx)

	rows, err := s.repo.ListByOwner(ctx, MainOwner)
	if err != nil {
		return 0, err
	}
	now := s.now()
	expired := 0
	for i := range rows {
		row := &rows[i]
		status := UsageStatus(row.Status)
		if status == StatusExpired || status == StatusConsumed {
			continue
		}
		if row.ExpiresAt == nil || !row.ExpiresAt.Before(now) {
			continue
		}
		row.Status = string(StatusExpired)
		if _, err := s.repo.Update(ctx, row); err != nil {
			return expired, err
		}
		expired++
	}
	return expired, nil
}

// StatisticsForOwner aggregates holdings by item kind and flags stock
// that expires within the next two days.
func (s *InventoryService) StatisticsForOwner(ctx context.Context) (InventoryStatistics, error) {
	rows, err := s.repo.ListByOwner(ctx, MainOwner)
	if err != nil {
		return InventoryStatistics{}, err
	}

	stats := InventoryStatistics{ByKind: make(map[ItemType]int)}
	kinds := make(map[int64]ItemType)
	now := s.now()
	soon := now.Add(expiringSoonWindow)

	for _, row := range rows {
		stats.TotalStacks++
		stats.TotalQuantity += row.Quantity

		kind, ok := kinds[row.ItemID]
		if !ok {
			item, err := s.items.Get(ctx, row.ItemID)
			if err != nil {
				return InventoryStatistics{}, err
			}
			if item != nil {
				kind = ItemType(item.ItemType)
			}
			kinds[row.ItemID] = kind
		}
		if kind != "" {
			stats.ByKind[kind] += row.Quantity
		}

		status := UsageStatus(row.Status)
		if status == StatusExpired || status == StatusConsumed {
			continue
		}
		if row.ExpiresAt != nil && row.ExpiresAt.After(now) && row.ExpiresAt.Before(soon) {
			stats.ExpiringSoon++
		}
	}
	return stats, nil
}

// pruneLocked drops expired activations and marks their rows.
func (s *InventoryService) pruneLocked(ctx context.Context) {
	now := s.now()
	for effect, bucket := range s.effects {
		kept := bucket[:0]
		for _, e := range bucket {
			if !e.expired(now) {
				kept = append(kept, e)
				continue
			}
			row, err := s.repo.Get(ctx, e.inventoryID)
			if err != nil || row == nil {
				log.Printf("inventory: expire row %d: %v", e.inventoryID, err)
				continue
			}
			row.Status = string(StatusExpired)
			if ok, err := s.repo.Update(ctx, row); err != nil || !ok {
				log.Printf("inventory: expire row %d: ok=%v err=%v", row.ID, ok, err)
			}
		}
		s.effects[effect] = kept
	}
}

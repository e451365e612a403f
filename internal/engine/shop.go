package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"growthline/internal/storage"
)

const (
	// Price of a reference three star reward. Every pricing rule scales
	// from it.
	baselinePrice = 60

	physicalPriceMin = 300
	physicalPriceMax = 600

	propPriceMin        = 30
	propDurationUnitMin = 30

	luckyBagMarkup = 1.2

	doubleExpWeight = 1.5
)

// LuckyReward is one possible payout of a lucky bag.
type LuckyReward struct {
	Type        LuckyRewardType `json:"type"`
	Amount      int             `json:"amount,omitempty"`
	ItemID      int64           `json:"item_id,omitempty"`
	Probability float64         `json:"probability"`
}

// ShopItem is the engine view of one catalog entry.
type ShopItem struct {
	ID            int64
	Name          string
	Description   string
	Type          ItemType
	Price         int
	PurchaseLimit int
	Available     bool

	PropEffect      PropEffectType
	DurationMinutes int
	RedeemMethod    string
	LuckyRewards    []LuckyReward
	LevelRequired   int
}

// UseResult describes what using an inventory item produced.
type UseResult struct {
	Message        string
	RedemptionCode string
	Reward         *LuckyReward
}

// ShopService owns the catalog, pricing, purchases and item usage.
type ShopService struct {
	store     *storage.Store
	repo      *storage.ShopRepo
	ledger    *Ledger
	inventory *InventoryService
	tasks     *TaskService

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewShopService(store *storage.Store, ledger *Ledger, inventory *InventoryService, tasks *TaskService) *ShopService {
	return &ShopService{
		store:     store,
		repo:      storage.NewShopRepo(store),
		ledger:    ledger,
		inventory: inventory,
		tasks:     tasks,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetRand replaces the draw source, for deterministic tests.
func (s *ShopService) SetRand(r *rand.Rand) {
	s.rngMu.Lock()
	s.rng = r
	s.rngMu.Unlock()
}

func (s *ShopService) rand01() float64 {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Float64()
}

// CreateItem validates a catalog entry, prices it and stores it. The
// given price is advisory only; the pricing strategy decides.
func (s *ShopService) CreateItem(ctx context.Context, item ShopItem) (ShopItem, error) {
	if err := validateShopItem(&item); err != nil {
		return ShopItem{}, err
	}
	item.Price = priceFor(item)

	rec, err := shopItemToRecord(item)
	if err != nil {
		return ShopItem{}, err
	}
	id, err := s.repo.Insert(ctx, rec)
	if err != nil {
		return ShopItem{}, err
	}
	item.ID = id
	return item, nil
}

// UpdateItem revalidates and reprices an existing entry.
func (s *ShopService) UpdateItem(ctx context.Context, item ShopItem) error {
	if err := validateShopItem(&item); err != nil {
		return err
	}
	item.Price = priceFor(item)

	rec, err := shopItemToRecord(item)
	if err != nil {
		return err
	}
	ok, err := s.repo.Update(ctx, &rec)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("shop: item %d not found", item.ID)
	}
	return nil
}

func (s *ShopService) DeleteItem(ctx context.Context, id int64) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("shop: item %d not found", id)
	}
	return nil
}

func (s *ShopService) GetItem(ctx context.Context, id int64) (ShopItem, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return ShopItem{}, err
	}
	if rec == nil {
		return ShopItem{}, fmt.Errorf("shop: item %d not found", id)
	}
	return shopItemFromRecord(*rec)
}

func (s *ShopService) ListItems(ctx context.Context) ([]ShopItem, error) {
	recs, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]ShopItem, 0, len(recs))
	for _, rec := range recs {
		item, err := shopItemFromRecord(rec)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// PurchaseItem checks availability, level gate, funds and purchase limit
// in that order, then spends the coins and books the stock atomically.
func (s *ShopService) PurchaseItem(ctx context.Context, itemID int64, quantity int) (int64, error) {
	if quantity <= 0 {
		return 0, PurchaseError{Reason: "quantity must be positive"}
	}

	item, err := s.GetItem(ctx, itemID)
	if err != nil {
		return 0, err
	}
	if !item.Available {
		return 0, PurchaseError{Reason: fmt.Sprintf("%q is not for sale", item.Name)}
	}

	user, err := s.ledger.Current()
	if err != nil {
		return 0, err
	}
	if item.LevelRequired > user.Level {
		return 0, LevelGateError{RequiredLevel: item.LevelRequired, CurrentLevel: user.Level}
	}

	total := item.Price * quantity
	if total > user.Coins {
		return 0, PurchaseError{Reason: fmt.Sprintf("%d coins needed, %d held", total, user.Coins)}
	}

	if item.PurchaseLimit > 0 {
		bought, err := s.inventory.CountPurchasesForItem(ctx, itemID)
		if err != nil {
			return 0, err
		}
		if bought+quantity > item.PurchaseLimit {
			return 0, PurchaseError{Reason: fmt.Sprintf("purchase limit of %d reached for %q", item.PurchaseLimit, item.Name)}
		}
	}

	var invID int64
	spent := false
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		if err := s.ledger.Spend(ctx, total); err != nil {
			return err
		}
		spent = true
		id, err := s.inventory.AddPurchase(ctx, itemID, quantity, s.expiryFor(item))
		if err != nil {
			return err
		}
		invID = id
		return nil
	})
	if err != nil {
		if spent {
			s.ledger.Refund(total)
		}
		if errors.Is(err, ErrInsufficientFunds) {
			return 0, PurchaseError{Reason: fmt.Sprintf("%d coins needed, %d held", total, user.Coins)}
		}
		return 0, err
	}
	return invID, nil
}

// expiryFor stamps the expiration clock of time-boxed props at purchase,
// so an unused prop still runs out.
func (s *ShopService) expiryFor(item ShopItem) *time.Time {
	if item.Type != ItemProp || item.DurationMinutes <= 0 {
		return nil
	}
	t := s.inventory.now().Add(time.Duration(item.DurationMinutes) * time.Minute)
	return &t
}

// UseInventoryItem consumes or activates one owned item. Forgiveness
// coupons need a target task id; other items ignore it.
func (s *ShopService) UseInventoryItem(ctx context.Context, inventoryID int64, targetTaskID int64, notes string) (UseResult, error) {
	row, err := s.inventory.GetRow(ctx, inventoryID)
	if err != nil {
		return UseResult{}, err
	}
	if row == nil {
		return UseResult{}, fmt.Errorf("shop: inventory item %d not found", inventoryID)
	}

	item, err := s.GetItem(ctx, row.ItemID)
	if err != nil {
		return UseResult{}, err
	}

	switch item.Type {
	case ItemPhysical:
		code, err := s.inventory.MarkPhysicalRedeemed(ctx, inventoryID, notes)
		if err != nil {
			return UseResult{}, err
		}
		return UseResult{
			Message:        fmt.Sprintf("redeem %q via %s", item.Name, item.RedeemMethod),
			RedemptionCode: code,
		}, nil

	case ItemProp:
		return s.useProp(ctx, inventoryID, targetTaskID, item)

	case ItemLuckyBag:
		return s.openLuckyBag(ctx, inventoryID, item)

	default:
		return UseResult{}, fmt.Errorf("shop: %q has unknown item type %q", item.Name, item.Type)
	}
}

func (s *ShopService) useProp(ctx context.Context, inventoryID, targetTaskID int64, item ShopItem) (UseResult, error) {
	switch item.PropEffect {
	case EffectForgivenessCoupon:
		if targetTaskID == 0 {
			return UseResult{}, fmt.Errorf("shop: forgiveness coupon needs a target task")
		}
		err := s.store.WithTx(ctx, func(ctx context.Context) error {
			if err := s.tasks.AddForgivenessCoupon(ctx, targetTaskID); err != nil {
				return err
			}
			row, err := s.inventory.GetRow(ctx, inventoryID)
			if err != nil {
				return err
			}
			if row == nil {
				return fmt.Errorf("shop: inventory item %d not found", inventoryID)
			}
			row.Status = string(StatusConsumed)
			row.UsedQuantity = row.Quantity
			_, err = s.inventory.repo.Update(ctx, row)
			return err
		})
		if err != nil {
			return UseResult{}, err
		}
		return UseResult{Message: fmt.Sprintf("task %d gained a forgiveness coupon", targetTaskID)}, nil

	case EffectRestDay, EffectDoubleExpCard:
		if err := s.inventory.ActivateProp(ctx, inventoryID, item.PropEffect, item.DurationMinutes); err != nil {
			return UseResult{}, err
		}
		return UseResult{Message: fmt.Sprintf("%q is now active", item.Name)}, nil

	default:
		return UseResult{}, fmt.Errorf("shop: %q has no usable effect", item.Name)
	}
}

func (s *ShopService) openLuckyBag(ctx context.Context, inventoryID int64, item ShopItem) (UseResult, error) {
	if len(item.LuckyRewards) == 0 {
		return UseResult{}, fmt.Errorf("shop: %q has no rewards configured", item.Name)
	}

	reward := drawLuckyReward(item.LuckyRewards, s.rand01())

	outcome, err := s.applyLuckyReward(ctx, reward)
	if err != nil {
		return UseResult{}, err
	}
	if err := s.inventory.MarkLuckyBagOpened(ctx, inventoryID, outcome); err != nil {
		return UseResult{}, err
	}
	r := reward
	return UseResult{Message: outcome, Reward: &r}, nil
}

func (s *ShopService) applyLuckyReward(ctx context.Context, reward LuckyReward) (string, error) {
	switch reward.Type {
	case LuckyCoins:
		if err := s.ledger.AddReward(ctx, reward.Amount, 0, AttributeSet{}); err != nil {
			return "", err
		}
		return fmt.Sprintf("won %d coins", reward.Amount), nil
	case LuckyGrowth:
		if err := s.ledger.AddReward(ctx, 0, reward.Amount, AttributeSet{}); err != nil {
			return "", err
		}
		return fmt.Sprintf("won %d growth points", reward.Amount), nil
	case LuckyShopItem:
		sub, err := s.GetItem(ctx, reward.ItemID)
		if err != nil {
			return "", err
		}
		if _, err := s.inventory.AddPurchase(ctx, reward.ItemID, 1, s.expiryFor(sub)); err != nil {
			return "", err
		}
		return fmt.Sprintf("won %q", sub.Name), nil
	default:
		return "", fmt.Errorf("shop: unknown lucky reward type %q", reward.Type)
	}
}

// drawLuckyReward walks the cumulative distribution. Short probability
// mass falls through to the last reward.
func drawLuckyReward(rewards []LuckyReward, rand01 float64) LuckyReward {
	total := 0.0
	for _, r := range rewards {
		total += r.Probability
	}
	target := rand01 * total
	if total <= 0 {
		target = rand01
	}

	acc := 0.0
	for _, r := range rewards {
		acc += r.Probability
		if target < acc {
			return r
		}
	}
	return rewards[len(rewards)-1]
}

func validateShopItem(item *ShopItem) error {
	if item.Name == "" {
		return fmt.Errorf("shop: name is required")
	}
	if !item.Type.IsValid() {
		return fmt.Errorf("shop: unknown item type %q", item.Type)
	}
	if item.LevelRequired < 1 {
		item.LevelRequired = 1
	}

	switch item.Type {
	case ItemProp:
		if item.PropEffect == EffectNone {
			return fmt.Errorf("shop: prop items need an effect")
		}
	case ItemLuckyBag:
		if len(item.LuckyRewards) == 0 {
			return fmt.Errorf("shop: lucky bags need at least one reward")
		}
		total := 0.0
		for _, r := range item.LuckyRewards {
			if r.Probability < 0 {
				return fmt.Errorf("shop: negative reward probability")
			}
			if r.Amount < 0 {
				return fmt.Errorf("shop: negative reward amount")
			}
			total += r.Probability
		}
		if total > 1.0+1e-9 {
			return fmt.Errorf("shop: reward probabilities sum to %.3f, above 1", total)
		}
	}
	return nil
}

// priceFor implements the pricing strategy per item type.
func priceFor(item ShopItem) int {
	switch item.Type {
	case ItemPhysical:
		price := item.Price
		if price < physicalPriceMin {
			price = physicalPriceMin
		}
		if price > physicalPriceMax {
			price = physicalPriceMax
		}
		return price

	case ItemProp:
		weight := 1.0
		if item.PropEffect == EffectDoubleExpCard {
			weight = doubleExpWeight
		}
		units := 1
		if item.DurationMinutes > 0 {
			units = int(math.Ceil(float64(item.DurationMinutes) / propDurationUnitMin))
		}
		price := int(math.Round(baselinePrice * weight * float64(units)))
		if price < propPriceMin {
			price = propPriceMin
		}
		return price

	case ItemLuckyBag:
		ev := 0.0
		for _, r := range item.LuckyRewards {
			value := float64(r.Amount)
			if r.Type == LuckyShopItem {
				value = baselinePrice
			}
			ev += value * r.Probability
		}
		price := int(math.Round(ev * luckyBagMarkup))
		if price < baselinePrice {
			price = baselinePrice
		}
		return price

	default:
		return baselinePrice
	}
}

func shopItemToRecord(item ShopItem) (storage.ShopItem, error) {
	var rewards string
	if len(item.LuckyRewards) > 0 {
		raw, err := json.Marshal(item.LuckyRewards)
		if err != nil {
			return storage.ShopItem{}, fmt.Errorf("shop rewards: %w", err)
		}
		rewards = string(raw)
	}
	return storage.ShopItem{
		ID:              item.ID,
		Name:            item.Name,
		Description:     item.Description,
		ItemType:        string(item.Type),
		PriceCoins:      item.Price,
		PurchaseLimit:   item.PurchaseLimit,
		Available:       item.Available,
		PropEffectType:  string(item.PropEffect),
		DurationMinutes: item.DurationMinutes,
		RedeemMethod:    item.RedeemMethod,
		LuckyRewards:    rewards,
		LevelRequired:   item.LevelRequired,
	}, nil
}

func shopItemFromRecord(rec storage.ShopItem) (ShopItem, error) {
	item := ShopItem{
		ID:              rec.ID,
		Name:            rec.Name,
		Description:     rec.Description,
		Type:            ItemType(rec.ItemType),
		Price:           rec.PriceCoins,
		PurchaseLimit:   rec.PurchaseLimit,
		Available:       rec.Available,
		PropEffect:      PropEffectType(rec.PropEffectType),
		DurationMinutes: rec.DurationMinutes,
		RedeemMethod:    rec.RedeemMethod,
		LevelRequired:   rec.LevelRequired,
	}
	if rec.LuckyRewards != "" {
		if err := json.Unmarshal([]byte(rec.LuckyRewards), &item.LuckyRewards); err != nil {
			return ShopItem{}, fmt.Errorf("shop item %d rewards: %w", rec.ID, err)
		}
	}
	return item, nil
}

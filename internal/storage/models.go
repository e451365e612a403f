package storage

import "time"

type User struct {
	ID         int64
	Username   string
	Level      int
	Growth     int
	Coins      int
	Attributes string // key=value;... blob, see engine serialization
	CreatedAt  time.Time
}

type Task struct {
	ID                 int64
	Name               string
	Description        *string
	Type               string
	DifficultyStars    int
	Deadline           *time.Time
	Completed          bool
	CoinReward         int
	GrowthReward       int
	AttributeReward    string // JSON
	BonusStreak        int
	ForgivenessCoupons int
	ProgressValue      int
	ProgressGoal       int
	CreatedAt          time.Time
}

type Achievement struct {
	ID           int64
	Owner        string
	Creator      string
	Name         string
	Description  string
	Type         string
	RewardType   string
	ProgressMode string
	Conditions   string // JSON
	ProgressVal  int
	ProgressGoal int
	RewardCoins  int
	RewardAttrs  string // JSON
	Unlocked     bool
	CompletedAt  *time.Time
	GalleryGroup string
	CreatedAt    time.Time
}

type ShopItem struct {
	ID              int64
	Name            string
	Description     string
	ItemType        string
	PriceCoins      int
	PurchaseLimit   int
	Available       bool
	PropEffectType  string
	DurationMinutes int
	RedeemMethod    string
	LuckyRewards    string // JSON
	LevelRequired   int
}

type InventoryItem struct {
	ID           int64
	ItemID       int64
	Owner        string
	Quantity     int
	UsedQuantity int
	Status       string
	PurchaseTime time.Time
	ExpiresAt    *time.Time
	Payload      string
	Notes        string
}

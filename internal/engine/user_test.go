package engine

import (
	"errors"
	"testing"
)

func TestLevelForGrowth(t *testing.T) {
	cases := []struct {
		growth int
		want   int
	}{
		{0, 1},
		{50, 1},
		{99, 1},
		{100, 2},
		{399, 2},
		{400, 3},
		{899, 3},
		{900, 4},
		{2500, 6},
		{-10, 1},
	}
	for _, tc := range cases {
		if got := LevelForGrowth(tc.growth); got != tc.want {
			t.Errorf("LevelForGrowth(%d) = %d, want %d", tc.growth, got, tc.want)
		}
	}
}

func TestAddGrowthPointsRaisesLevel(t *testing.T) {
	u := User{Level: 1}
	u.AddGrowthPoints(99)
	if u.Level != 1 {
		t.Fatalf("level = %d, want 1", u.Level)
	}
	u.AddGrowthPoints(1)
	if u.Level != 2 {
		t.Fatalf("level = %d, want 2", u.Level)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("negative delta must panic")
		}
	}()
	u.AddGrowthPoints(-50)
}

func TestAttributeClamp(t *testing.T) {
	u := User{}
	u.ApplyAttributeBonus(AttributeSet{Execution: 1200, Pride: -5})
	if u.Attributes.Execution != 999 {
		t.Fatalf("execution = %d, want 999", u.Attributes.Execution)
	}
	if u.Attributes.Pride != 0 {
		t.Fatalf("pride = %d, want 0", u.Attributes.Pride)
	}
}

func TestDistributeAttributesBudget(t *testing.T) {
	u := User{}
	u.AddGrowthPoints(100) // 2 points earned

	if err := u.DistributeAttributes(AttributeSet{Knowledge: 3}); !errors.Is(err, ErrBudgetExceeded) {
		t.Fatalf("over-budget plan: err = %v, want ErrBudgetExceeded", err)
	}
	if err := u.DistributeAttributes(AttributeSet{Knowledge: 1, Social: 1}); err != nil {
		t.Fatalf("in-budget plan: %v", err)
	}
	if got := u.AvailableAttributePoints(); got != 0 {
		t.Fatalf("remaining budget = %d, want 0", got)
	}
	if err := u.DistributeAttributes(AttributeSet{Decision: 1}); !errors.Is(err, ErrBudgetExceeded) {
		t.Fatalf("spent budget must stay spent: err = %v", err)
	}
}

func TestSpendCoins(t *testing.T) {
	u := User{Coins: 50}
	if err := u.SpendCoins(60); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	if u.Coins != 50 {
		t.Fatalf("failed spend must not touch the wallet, coins = %d", u.Coins)
	}
	if err := u.SpendCoins(50); err != nil {
		t.Fatalf("spend: %v", err)
	}
	if u.Coins != 0 {
		t.Fatalf("coins = %d, want 0", u.Coins)
	}
}

func TestUserBlobRoundTrip(t *testing.T) {
	u := &User{
		Attributes: AttributeSet{Execution: 3, Knowledge: 7, Pride: 2},
		Progress: ProgressStats{
			TotalTasksCompleted:  11,
			DailyTasksCompleted:  8,
			WeeklyTasksCompleted: 3,
			AchievementsUnlocked: 4,
			AttributePointsSpent: 5,
		},
	}
	blob := encodeUserBlob(u)

	var back User
	if err := decodeUserBlob(blob, &back); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.Attributes != u.Attributes {
		t.Fatalf("attributes = %+v, want %+v", back.Attributes, u.Attributes)
	}
	if back.Progress != u.Progress {
		t.Fatalf("progress = %+v, want %+v", back.Progress, u.Progress)
	}
}

func TestDecodeUserBlobRejectsGarbage(t *testing.T) {
	var u User
	if err := decodeUserBlob("execution=abc", &u); err == nil {
		t.Fatal("expected error for non-numeric value")
	}
	if err := decodeUserBlob("no-equals-sign", &u); err == nil {
		t.Fatal("expected error for malformed pair")
	}
}

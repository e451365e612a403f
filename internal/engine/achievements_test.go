package engine

import (
	"errors"
	"testing"
)

func findAchievementByName(t *testing.T, svc *Service, name string) Achievement {
	t.Helper()
	for _, a := range svc.Achievements.List() {
		if a.Name == name {
			return a
		}
	}
	t.Fatalf("achievement %q not found", name)
	return Achievement{}
}

func TestFirstTaskUnlocksFirstSteps(t *testing.T) {
	svc, ctx := newTestService(t)
	task := mustCreateTask(t, svc, ctx, Task{
		Name: "hello", Type: TaskDaily, DifficultyStars: 1, CoinReward: 10,
	})
	if _, err := svc.Tasks.MarkTaskCompleted(ctx, task.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	a := findAchievementByName(t, svc, "First Steps")
	if !a.Unlocked {
		t.Fatal("First Steps should unlock on the first completion")
	}
	if a.CompletedAt == nil {
		t.Fatal("unlock must stamp CompletedAt")
	}

	u := currentUser(t, svc)
	if u.Progress.AchievementsUnlocked != 1 {
		t.Errorf("unlock counter = %d, want 1", u.Progress.AchievementsUnlocked)
	}
	// 10-coin task payout plus the 20-coin achievement reward.
	if u.Coins < 30 {
		t.Errorf("wallet = %d, want at least 30", u.Coins)
	}
}

func TestProgressStaysWithinBounds(t *testing.T) {
	svc, ctx := newTestService(t)
	created, err := svc.Achievements.CreateCustomAchievement(ctx, Achievement{
		Name:         "habit builder",
		RewardType:   NoReward,
		ProgressMode: ProgressIncremental,
		Conditions:   []Condition{{Type: CondTaskTypeCount, TaskType: TaskDaily, Target: 5}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for i := 0; i < 7; i++ {
		task := mustCreateTask(t, svc, ctx, Task{Name: "rep", Type: TaskDaily})
		if _, err := svc.Tasks.MarkTaskCompleted(ctx, task.ID); err != nil {
			t.Fatalf("complete: %v", err)
		}

		a, err := svc.Achievements.Get(created.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if a.ProgressValue > a.ProgressGoal {
			t.Fatalf("progress %d exceeds goal %d", a.ProgressValue, a.ProgressGoal)
		}
	}

	a, _ := svc.Achievements.Get(created.ID)
	if !a.Unlocked {
		t.Fatal("five daily completions should unlock the achievement")
	}
	if a.ProgressValue != a.ProgressGoal {
		t.Fatalf("unlocked progress = %d/%d, want full", a.ProgressValue, a.ProgressGoal)
	}
}

func TestRewardCascadeUnlocksChain(t *testing.T) {
	svc, ctx := newTestService(t)

	// Unlocking the level achievement pays enough coins to trip the coin
	// achievement on the same evaluation pass.
	if _, err := svc.Achievements.CreateCustomAchievement(ctx, Achievement{
		Name:        "level up",
		RewardType:  WithReward,
		RewardCoins: 500,
		Conditions:  []Condition{{Type: CondLevel, Target: 2}},
	}); err != nil {
		t.Fatalf("create level achievement: %v", err)
	}
	if _, err := svc.Achievements.CreateCustomAchievement(ctx, Achievement{
		Name:       "first fortune",
		RewardType: NoReward,
		Conditions: []Condition{{Type: CondCoins, Target: 500}},
	}); err != nil {
		t.Fatalf("create coin achievement: %v", err)
	}

	task := mustCreateTask(t, svc, ctx, Task{
		Name: "big push", Type: TaskCustom, DifficultyStars: 1, GrowthReward: 100,
	})
	if _, err := svc.Tasks.MarkTaskCompleted(ctx, task.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if !findAchievementByName(t, svc, "level up").Unlocked {
		t.Fatal("level achievement should unlock at level 2")
	}
	if !findAchievementByName(t, svc, "first fortune").Unlocked {
		t.Fatal("coin achievement should unlock from the cascaded reward")
	}
}

func TestCounterChannelTracksTaskProgress(t *testing.T) {
	svc, ctx := newTestService(t)
	created, err := svc.Achievements.CreateCustomAchievement(ctx, Achievement{
		Name:       "grinder",
		RewardType: NoReward,
		Conditions: []Condition{{Type: CondCounter, Channel: ChannelTaskProgress, Target: 10}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	task := mustCreateTask(t, svc, ctx, Task{Name: "laps", Type: TaskDaily, ProgressGoal: 50})
	if err := svc.Tasks.UpdateTaskProgress(ctx, task.ID, 6); err != nil {
		t.Fatalf("progress: %v", err)
	}

	a, _ := svc.Achievements.Get(created.ID)
	if a.Conditions[0].Current != 6 {
		t.Fatalf("counter condition = %d, want 6", a.Conditions[0].Current)
	}
}

func TestRewardCustomMonthlyQuota(t *testing.T) {
	svc, ctx := newTestService(t)
	mk := func(name string) error {
		_, err := svc.Achievements.CreateCustomAchievement(ctx, Achievement{
			Name:        name,
			RewardType:  WithReward,
			RewardCoins: 10,
			Conditions:  []Condition{{Type: CondTaskCompleted, Target: 1}},
		})
		return err
	}

	if err := mk("one"); err != nil {
		t.Fatalf("first: %v", err)
	}
	if err := mk("two"); err != nil {
		t.Fatalf("second: %v", err)
	}
	if err := mk("three"); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("third: err = %v, want ErrQuotaExceeded", err)
	}

	// Reward-free customs are not limited.
	if _, err := svc.Achievements.CreateCustomAchievement(ctx, Achievement{
		Name:       "free",
		RewardType: NoReward,
		Conditions: []Condition{{Type: CondTaskCompleted, Target: 1}},
	}); err != nil {
		t.Fatalf("reward-free custom: %v", err)
	}
}

func TestSystemAchievementsAreImmutable(t *testing.T) {
	svc, ctx := newTestService(t)
	sys := findAchievementByName(t, svc, "First Steps")

	err := svc.Achievements.DeleteCustomAchievement(ctx, sys.ID)
	if !errors.Is(err, ErrSystemAchievement) {
		t.Fatalf("delete err = %v, want ErrSystemAchievement", err)
	}
	err = svc.Achievements.UpdateCustomAchievement(ctx, sys.ID, "renamed", "", []Condition{{Type: CondLevel, Target: 1}})
	if !errors.Is(err, ErrSystemAchievement) {
		t.Fatalf("update err = %v, want ErrSystemAchievement", err)
	}
}

func TestCustomAchievementValidation(t *testing.T) {
	svc, ctx := newTestService(t)
	if _, err := svc.Achievements.CreateCustomAchievement(ctx, Achievement{
		Name: "no conditions", RewardType: NoReward,
	}); err == nil {
		t.Fatal("conditionless achievement should be rejected")
	}
	if _, err := svc.Achievements.CreateCustomAchievement(ctx, Achievement{
		Name:       "zero target",
		RewardType: NoReward,
		Conditions: []Condition{{Type: CondLevel, Target: 0}},
	}); err == nil {
		t.Fatal("zero condition target should be rejected")
	}
}

func TestGalleryGroupsSorted(t *testing.T) {
	svc, ctx := newTestService(t)
	if _, err := svc.Achievements.CreateCustomAchievement(ctx, Achievement{
		Name:       "mine",
		RewardType: NoReward,
		Conditions: []Condition{{Type: CondLevel, Target: 3}},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	groups := svc.Achievements.Gallery()
	if len(groups) < 2 {
		t.Fatalf("gallery groups = %d, want several", len(groups))
	}
	for i := 1; i < len(groups); i++ {
		if groups[i-1].Name > groups[i].Name {
			t.Fatalf("groups out of order: %q before %q", groups[i-1].Name, groups[i].Name)
		}
	}
	found := false
	for _, g := range groups {
		if g.Name == "Custom" {
			found = true
		}
	}
	if !found {
		t.Fatal("custom achievements should default to the Custom group")
	}
}

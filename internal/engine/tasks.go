package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"growthline/internal/storage"
)

const (
	// Reward scaling per difficulty star above the first.
	starBonusStep = 0.15
	// Extra factor for long-horizon task types.
	weeklyTypeBonus   = 0.10
	semesterTypeBonus = 0.35
	// Streak scaling per consecutive on-time completion.
	streakBonusStep = 0.05

	// Every Nth completion of a type earns a milestone slot reward.
	slotRewardEvery = 10
	// Every Nth consecutive weekly completion does too.
	weeklyStreakSlotEvery = 4
)

// Task is the engine view of one trackable commitment.
type Task struct {
	ID              int64
	Name            string
	Description     string
	Type            TaskType
	DifficultyStars int
	Deadline        *time.Time
	Completed       bool

	CoinReward         int
	GrowthReward       int
	AttributeReward    AttributeSet
	BonusStreak        int
	ForgivenessCoupons int
	ProgressValue      int
	ProgressGoal       int

	CreatedAt time.Time
}

// Category derives the attribute category from the task type.
func (t Task) Category() TaskCategory { return CategoryForTaskType(t.Type) }

// CompletionReward is the settled payout for one completion.
type CompletionReward struct {
	Coins      int
	Growth     int
	Attributes AttributeSet
	Multiplier int
}

// EffectSource answers questions about active prop effects. The inventory
// service implements it.
type EffectSource interface {
	DoubleExpMultiplier() int
	ConsumeEffectToken(ctx context.Context, effect PropEffectType) (bool, error)
}

// SlotRewardFunc fires on completion milestones. Reason names the
// milestone for logging or notification.
type SlotRewardFunc func(ctx context.Context, reason string) error

// TaskService owns the task lifecycle: creation, completion with reward
// settlement, failure handling and the periodic resets.
type TaskService struct {
	store   *storage.Store
	repo    *storage.TaskRepo
	ledger  *Ledger
	bus     *Bus
	effects EffectSource

	slotReward SlotRewardFunc
	now        func() time.Time

	mu              sync.Mutex
	lastDailyReset  string
	lastWeeklyReset string
}

func NewTaskService(store *storage.Store, ledger *Ledger, bus *Bus, effects EffectSource) *TaskService {
	s := &TaskService{
		store:   store,
		repo:    storage.NewTaskRepo(store),
		ledger:  ledger,
		bus:     bus,
		effects: effects,
		now:     time.Now,
	}
	s.slotReward = s.defaultSlotReward
	return s
}

// SetSlotReward replaces the milestone reward hook.
func (s *TaskService) SetSlotReward(fn SlotRewardFunc) {
	if fn != nil {
		s.slotReward = fn
	}
}

func (s *TaskService) defaultSlotReward(ctx context.Context, reason string) error {
	return s.ledger.AddReward(ctx, 25, 0, AttributeSet{Pride: 1})
}

// CreateTask validates and stores a new task. Difficulty clamps into
// [1,5] and rewards never go negative.
func (s *TaskService) CreateTask(ctx context.Context, t Task) (Task, error) {
	if t.Name == "" {
		return Task{}, fmt.Errorf("task: name is required")
	}
	if !t.Type.IsValid() {
		return Task{}, fmt.Errorf("task: unknown type %q", t.Type)
	}
	if t.DifficultyStars < 1 {
		t.DifficultyStars = 1
	}
	if t.DifficultyStars > 5 {
		t.DifficultyStars = 5
	}
	if t.CoinReward < 0 {
		t.CoinReward = 0
	}
	if t.GrowthReward < 0 {
		t.GrowthReward = 0
	}
	if t.ProgressGoal <= 0 {
		t.ProgressGoal = 100
	}
	if t.Type == TaskSemester && t.Deadline == nil {
		return Task{}, fmt.Errorf("task: semester tasks need a deadline")
	}

	rec := taskToRecord(t)
	id, err := s.repo.Insert(ctx, rec)
	if err != nil {
		return Task{}, err
	}
	t.ID = id
	return t, nil
}

func (s *TaskService) GetTask(ctx context.Context, id int64) (Task, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return Task{}, err
	}
	if rec == nil {
		return Task{}, ErrTaskNotFound
	}
	return taskFromRecord(*rec)
}

func (s *TaskService) ListTasks(ctx context.Context) ([]Task, error) {
	recs, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	tasks := make([]Task, 0, len(recs))
	for _, rec := range recs {
		t, err := taskFromRecord(rec)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// ListTasksByType narrows the listing to one task type.
func (s *TaskService) ListTasksByType(ctx context.Context, taskType TaskType) ([]Task, error) {
	recs, err := s.repo.ListByType(ctx, string(taskType))
	if err != nil {
		return nil, err
	}
	tasks := make([]Task, 0, len(recs))
	for _, rec := range recs {
		t, err := taskFromRecord(rec)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// UpdateTask rewrites mutable task fields. Completion state and streaks
// are managed by the lifecycle methods, not here.
func (s *TaskService) UpdateTask(ctx context.Context, t Task) error {
	existing, err := s.repo.Get(ctx, t.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrTaskNotFound
	}
	rec := taskToRecord(t)
	rec.Completed = existing.Completed
	rec.BonusStreak = existing.BonusStreak
	ok, err := s.repo.Update(ctx, &rec)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTaskNotFound
	}
	return nil
}

func (s *TaskService) DeleteTask(ctx context.Context, id int64) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTaskNotFound
	}
	return nil
}

// PreviewReward computes the payout the task would settle for right now,
// without mutating anything.
func (s *TaskService) PreviewReward(t Task) CompletionReward {
	return s.computeReward(t, t.BonusStreak)
}

// MarkTaskCompleted completes the task, settles its reward atomically and
// fires milestone hooks. Completing an already completed task is a no-op.
func (s *TaskService) MarkTaskCompleted(ctx context.Context, id int64) (CompletionReward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return CompletionReward{}, err
	}
	if rec == nil {
		return CompletionReward{}, ErrTaskNotFound
	}
	if rec.Completed {
		return CompletionReward{}, nil
	}

	t, err := taskFromRecord(*rec)
	if err != nil {
		return CompletionReward{}, err
	}

	streak := t.BonusStreak + 1
	reward := s.computeReward(t, t.BonusStreak)

	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		rec.Completed = true
		rec.BonusStreak = streak
		if t.ProgressGoal > 0 {
			rec.ProgressValue = t.ProgressGoal
		}
		ok, err := s.repo.Update(ctx, rec)
		if err != nil {
			return err
		}
		if !ok {
			return ErrTaskNotFound
		}
		return s.ledger.ApplyTaskCompletion(ctx, reward.Coins, reward.Growth, reward.Attributes, t.Type, t.Category())
	})
	if err != nil {
		return CompletionReward{}, err
	}

	// The lifetime counter lives in the ledger so milestones keep
	// counting across sessions.
	u, err := s.ledger.Current()
	if err != nil {
		return reward, err
	}
	count := u.Progress.CompletionsOfType(t.Type)

	s.bus.Publish(TaskCompleted{TaskID: t.ID, TaskType: t.Type, Difficulty: t.DifficultyStars})

	if count%slotRewardEvery == 0 {
		if err := s.slotReward(ctx, fmt.Sprintf("%d %s tasks completed", count, t.Type)); err != nil {
			return reward, err
		}
	}
	if t.Type == TaskWeekly && streak%weeklyStreakSlotEvery == 0 {
		if err := s.slotReward(ctx, fmt.Sprintf("weekly streak of %d", streak)); err != nil {
			return reward, err
		}
	}
	return reward, nil
}

// FailTask records a miss. With useShields, a forgiveness coupon absorbs
// it first, then a rest day token for daily tasks; without, or once the
// shields run out, the streak and progress reset.
func (s *TaskService) FailTask(ctx context.Context, id int64, useShields bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failLocked(ctx, id, useShields)
}

func (s *TaskService) failLocked(ctx context.Context, id int64, allowShields bool) error {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return ErrTaskNotFound
	}

	if allowShields && rec.ForgivenessCoupons > 0 {
		rec.ForgivenessCoupons--
		_, err := s.repo.Update(ctx, rec)
		return err
	}
	if allowShields && TaskType(rec.Type) == TaskDaily && s.effects != nil {
		consumed, err := s.effects.ConsumeEffectToken(ctx, EffectRestDay)
		if err != nil {
			return err
		}
		if consumed {
			return nil
		}
	}

	rec.BonusStreak = 0
	rec.ProgressValue = 0
	_, err = s.repo.Update(ctx, rec)
	return err
}

// UpdateTaskProgress moves an incremental task by delta, clamped into
// [0, goal]. Hitting the goal completes the task.
func (s *TaskService) UpdateTaskProgress(ctx context.Context, id int64, delta int) error {
	s.mu.Lock()
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if rec == nil {
		s.mu.Unlock()
		return ErrTaskNotFound
	}
	if rec.Completed {
		s.mu.Unlock()
		return nil
	}

	value := rec.ProgressValue + delta
	if value < 0 {
		value = 0
	}
	if value > rec.ProgressGoal {
		value = rec.ProgressGoal
	}
	rec.ProgressValue = value
	if _, err := s.repo.Update(ctx, rec); err != nil {
		s.mu.Unlock()
		return err
	}
	goal := rec.ProgressGoal
	s.mu.Unlock()

	if value >= goal && goal > 0 {
		_, err := s.MarkTaskCompleted(ctx, id)
		return err
	}
	s.bus.Publish(TaskProgressed{TaskID: id, Current: value, Goal: goal})
	return nil
}

// AddForgivenessCoupon attaches one failure shield to a task.
func (s *TaskService) AddForgivenessCoupon(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return ErrTaskNotFound
	}
	rec.ForgivenessCoupons++
	_, err = s.repo.Update(ctx, rec)
	return err
}

// ResetDaily reopens daily tasks for a new calendar day. Incomplete ones
// are failed first. Expired semester tasks are failed too, bypassing
// every shield. Running twice on the same day is a no-op.
func (s *TaskService) ResetDaily(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := s.now().Format("2006-01-02")
	if s.lastDailyReset == today {
		return nil
	}

	recs, err := s.repo.ListAll(ctx)
	if err != nil {
		return err
	}
	now := s.now()
	for i := range recs {
		rec := &recs[i]
		switch TaskType(rec.Type) {
		case TaskDaily:
			if !rec.Completed {
				if err := s.failLocked(ctx, rec.ID, true); err != nil {
					return err
				}
				rec, err = s.repo.Get(ctx, rec.ID)
				if err != nil {
					return err
				}
				if rec == nil {
					continue
				}
			}
			rec.Completed = false
			rec.ProgressValue = 0
			if _, err := s.repo.Update(ctx, rec); err != nil {
				return err
			}
		case TaskSemester:
			if !rec.Completed && rec.Deadline != nil && rec.Deadline.Before(now) {
				if err := s.failLocked(ctx, rec.ID, false); err != nil {
					return err
				}
			}
		}
	}

	s.lastDailyReset = today
	return nil
}

// ResetWeekly reopens weekly tasks. It only acts on Mondays, once.
func (s *TaskService) ResetWeekly(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Weekday() != time.Monday {
		return nil
	}
	week := now.Format("2006-01-02")
	if s.lastWeeklyReset == week {
		return nil
	}

	recs, err := s.repo.ListAll(ctx)
	if err != nil {
		return err
	}
	for i := range recs {
		rec := &recs[i]
		switch TaskType(rec.Type) {
		case TaskWeekly:
			if !rec.Completed {
				if err := s.failLocked(ctx, rec.ID, true); err != nil {
					return err
				}
				rec, err = s.repo.Get(ctx, rec.ID)
				if err != nil {
					return err
				}
				if rec == nil {
					continue
				}
			}
			rec.Completed = false
			rec.ProgressValue = 0
			if _, err := s.repo.Update(ctx, rec); err != nil {
				return err
			}
		case TaskSemester:
			if !rec.Completed && rec.Deadline != nil && rec.Deadline.Before(now) {
				if err := s.failLocked(ctx, rec.ID, false); err != nil {
					return err
				}
			}
		}
	}

	s.lastWeeklyReset = week
	return nil
}

// computeReward applies the difficulty, type and streak scaling, the
// category attribute top-ups and any active double growth effect.
func (s *TaskService) computeReward(t Task, streak int) CompletionReward {
	factor := 1.0 + float64(t.DifficultyStars-1)*starBonusStep
	switch t.Type {
	case TaskWeekly:
		factor += weeklyTypeBonus
	case TaskSemester:
		factor += semesterTypeBonus
	}
	factor *= 1.0 + float64(streak)*streakBonusStep

	coins := int(math.Round(float64(t.CoinReward) * factor))
	growth := int(math.Round(float64(t.GrowthReward) * factor))
	if coins < 0 {
		coins = 0
	}
	if growth < 0 {
		growth = 0
	}

	multiplier := 1
	if s.effects != nil {
		multiplier = s.effects.DoubleExpMultiplier()
	}
	growth *= multiplier

	attrs := t.AttributeReward
	switch t.Type {
	case TaskDaily:
		attrs.Execution++
	case TaskWeekly:
		attrs.Social += t.DifficultyStars
	case TaskSemester:
		attrs.Knowledge += 2 * t.DifficultyStars
		attrs.Perseverance += t.DifficultyStars
	}

	return CompletionReward{Coins: coins, Growth: growth, Attributes: attrs, Multiplier: multiplier}
}

func taskToRecord(t Task) storage.Task {
	rec := storage.Task{
		ID:                 t.ID,
		Name:               t.Name,
		Type:               string(t.Type),
		DifficultyStars:    t.DifficultyStars,
		Deadline:           t.Deadline,
		Completed:          t.Completed,
		CoinReward:         t.CoinReward,
		GrowthReward:       t.GrowthReward,
		AttributeReward:    encodeAttributeSet(t.AttributeReward),
		BonusStreak:        t.BonusStreak,
		ForgivenessCoupons: t.ForgivenessCoupons,
		ProgressValue:      t.ProgressValue,
		ProgressGoal:       t.ProgressGoal,
		CreatedAt:          t.CreatedAt,
	}
	if t.Description != "" {
		desc := t.Description
		rec.Description = &desc
	}
	return rec
}

func taskFromRecord(rec storage.Task) (Task, error) {
	t := Task{
		ID:                 rec.ID,
		Name:               rec.Name,
		Type:               TaskType(rec.Type),
		DifficultyStars:    rec.DifficultyStars,
		Deadline:           rec.Deadline,
		Completed:          rec.Completed,
		CoinReward:         rec.CoinReward,
		GrowthReward:       rec.GrowthReward,
		BonusStreak:        rec.BonusStreak,
		ForgivenessCoupons: rec.ForgivenessCoupons,
		ProgressValue:      rec.ProgressValue,
		ProgressGoal:       rec.ProgressGoal,
		CreatedAt:          rec.CreatedAt,
	}
	if rec.Description != nil {
		t.Description = *rec.Description
	}
	attrs, err := decodeAttributeSet(rec.AttributeReward)
	if err != nil {
		return Task{}, fmt.Errorf("task %d: %w", rec.ID, err)
	}
	t.AttributeReward = attrs
	return t, nil
}

func encodeAttributeSet(a AttributeSet) string {
	if a == (AttributeSet{}) {
		return ""
	}
	raw, _ := json.Marshal(a)
	return string(raw)
}

func decodeAttributeSet(raw string) (AttributeSet, error) {
	if raw == "" {
		return AttributeSet{}, nil
	}
	var a AttributeSet
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return AttributeSet{}, fmt.Errorf("attribute blob: %w", err)
	}
	return a, nil
}

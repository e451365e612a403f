package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"growthline/internal/storage"
)

// Each calendar month allows this many custom achievements that carry a
// reward. Reward-free customs are unlimited.
const rewardCustomMonthlyQuota = 2

// Condition is one typed requirement on an achievement. Target is the
// value to reach, Current the best observed so far.
type Condition struct {
	Type     ConditionType  `json:"type"`
	TaskType TaskType       `json:"task_type,omitempty"`
	Channel  CounterChannel `json:"channel,omitempty"`
	Target   int            `json:"target"`
	Current  int            `json:"current"`
}

// Met reports whether the condition is satisfied.
func (c Condition) Met() bool { return c.Current >= c.Target }

// Achievement is the engine view of one gallery entry.
type Achievement struct {
	ID          int64
	Owner       string
	Creator     string
	Name        string
	Description string

	Type         AchievementType
	RewardType   RewardType
	ProgressMode ProgressMode
	Conditions   []Condition

	ProgressValue int
	ProgressGoal  int

	RewardCoins      int
	RewardAttributes AttributeSet

	Unlocked     bool
	CompletedAt  *time.Time
	GalleryGroup string
	CreatedAt    time.Time
}

// AchievementService tracks condition progress against ledger and task
// events, unlocks achievements and settles their rewards. It keeps a
// write-through cache of every achievement for the main owner.
type AchievementService struct {
	store  *storage.Store
	repo   *storage.AchievementRepo
	ledger *Ledger
	bus    *Bus
	now    func() time.Time

	mu      sync.Mutex
	cache   map[int64]*Achievement
	pending []Event
}

func NewAchievementService(store *storage.Store, ledger *Ledger, bus *Bus) *AchievementService {
	s := &AchievementService{
		store:  store,
		repo:   storage.NewAchievementRepo(store),
		ledger: ledger,
		bus:    bus,
		now:    time.Now,
		cache:  make(map[int64]*Achievement),
	}
	bus.Subscribe(EventTaskCompleted, s.onTaskCompleted)
	bus.Subscribe(EventTaskProgressed, s.onTaskProgressed)
	bus.Subscribe(EventLevelChanged, s.onLevelChanged)
	bus.Subscribe(EventPrideChanged, s.onPrideChanged)
	bus.Subscribe(EventCoinsChanged, s.onCoinsChanged)
	return s
}

// Load fills the cache from storage. Call once during startup.
func (s *AchievementService) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.repo.ListByOwner(ctx, MainOwner)
	if err != nil {
		return err
	}
	s.cache = make(map[int64]*Achievement, len(recs))
	for _, rec := range recs {
		a, err := achievementFromRecord(rec)
		if err != nil {
			return err
		}
		s.cache[a.ID] = a
	}
	return nil
}

// Bus handlers take the service lock, run the locked core and publish
// whatever the core queued once the lock is gone again.

func (s *AchievementService) onTaskCompleted(ev Event) {
	e := ev.(TaskCompleted)
	ctx := context.Background()
	s.mu.Lock()
	s.handleTaskCompletedLocked(ctx, e.TaskType)
	s.mu.Unlock()
	s.flushPending()
}

func (s *AchievementService) onTaskProgressed(ev Event) {
	e := ev.(TaskProgressed)
	ctx := context.Background()
	s.mu.Lock()
	s.handleCounterLocked(ctx, ChannelTaskProgress, e.Current)
	s.mu.Unlock()
	s.flushPending()
}

func (s *AchievementService) onLevelChanged(ev Event) {
	e := ev.(LevelChanged)
	ctx := context.Background()
	s.mu.Lock()
	s.handleLevelChangedLocked(ctx, e.NewLevel)
	s.mu.Unlock()
	s.flushPending()
}

func (s *AchievementService) onPrideChanged(ev Event) {
	e := ev.(PrideChanged)
	ctx := context.Background()
	s.mu.Lock()
	s.handlePrideChangedLocked(ctx, e.Pride)
	s.mu.Unlock()
	s.flushPending()
}

func (s *AchievementService) onCoinsChanged(ev Event) {
	e := ev.(CoinsChanged)
	ctx := context.Background()
	s.mu.Lock()
	s.handleCoinsChangedLocked(ctx, e.Coins)
	s.mu.Unlock()
	s.flushPending()
}

func (s *AchievementService) flushPending() {
	s.mu.Lock()
	queued := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, ev := range queued {
		s.bus.Publish(ev)
	}
}

// Locked cores. These assume s.mu is held and may call each other
// directly when a granted reward moves more ledger facets.

func (s *AchievementService) handleTaskCompletedLocked(ctx context.Context, taskType TaskType) {
	for _, a := range s.sortedCacheLocked() {
		if a.Unlocked {
			continue
		}
		changed := false
		for i := range a.Conditions {
			c := &a.Conditions[i]
			switch c.Type {
			case CondTaskCompleted:
				if c.TaskType == "" || c.TaskType == taskType {
					changed = bumpCondition(c, 1) || changed
				}
			case CondTaskTypeCount:
				if c.TaskType == taskType {
					changed = bumpCondition(c, 1) || changed
				}
			}
		}
		if changed {
			s.settleProgressLocked(ctx, a)
		}
	}
}

func (s *AchievementService) handleCounterLocked(ctx context.Context, channel CounterChannel, value int) {
	for _, a := range s.sortedCacheLocked() {
		if a.Unlocked {
			continue
		}
		changed := false
		for i := range a.Conditions {
			c := &a.Conditions[i]
			if c.Type == CondCounter && c.Channel == channel {
				changed = raiseCondition(c, value) || changed
			}
		}
		if changed {
			s.settleProgressLocked(ctx, a)
		}
	}
}

func (s *AchievementService) handleLevelChangedLocked(ctx context.Context, level int) {
	s.handleAbsoluteLocked(ctx, CondLevel, level)
}

func (s *AchievementService) handlePrideChangedLocked(ctx context.Context, pride int) {
	s.handleAbsoluteLocked(ctx, CondPride, pride)
}

func (s *AchievementService) handleCoinsChangedLocked(ctx context.Context, coins int) {
	s.handleAbsoluteLocked(ctx, CondCoins, coins)
}

func (s *AchievementService) handleAbsoluteLocked(ctx context.Context, cond ConditionType, value int) {
	for _, a := range s.sortedCacheLocked() {
		if a.Unlocked {
			continue
		}
		changed := false
		for i := range a.Conditions {
			c := &a.Conditions[i]
			if c.Type == cond {
				changed = raiseCondition(c, value) || changed
			}
		}
		if changed {
			s.settleProgressLocked(ctx, a)
		}
	}
}

// bumpCondition adds delta, capped at the target. Reports change.
func bumpCondition(c *Condition, delta int) bool {
	if c.Current >= c.Target {
		return false
	}
	next := c.Current + delta
	if next > c.Target {
		next = c.Target
	}
	if next == c.Current {
		return false
	}
	c.Current = next
	return true
}

// raiseCondition tracks an absolute value, monotone and capped.
func raiseCondition(c *Condition, value int) bool {
	if value > c.Target {
		value = c.Target
	}
	if value <= c.Current {
		return false
	}
	c.Current = value
	return true
}

// settleProgressLocked recomputes aggregate progress, persists, queues a
// progress event and unlocks when every condition is met.
func (s *AchievementService) settleProgressLocked(ctx context.Context, a *Achievement) {
	a.ProgressGoal, a.ProgressValue = aggregateProgress(a.Conditions)

	if allConditionsMet(a.Conditions) {
		s.unlockLocked(ctx, a)
		return
	}

	if err := s.persistLocked(ctx, a); err != nil {
		log.Printf("achievement: persist progress of %d: %v", a.ID, err)
		return
	}
	s.pending = append(s.pending, AchievementProgressChanged{
		AchievementID: a.ID,
		Current:       a.ProgressValue,
		Goal:          a.ProgressGoal,
	})
}

func (s *AchievementService) unlockLocked(ctx context.Context, a *Achievement) {
	now := s.now()
	a.Unlocked = true
	a.CompletedAt = &now
	a.ProgressValue = a.ProgressGoal

	if err := s.persistLocked(ctx, a); err != nil {
		log.Printf("achievement: persist unlock of %d: %v", a.ID, err)
		a.Unlocked = false
		a.CompletedAt = nil
		return
	}
	s.pending = append(s.pending, AchievementUnlocked{AchievementID: a.ID, Name: a.Name})

	s.grantRewardsLocked(ctx, a)
}

// grantRewardsLocked settles the unlock reward through the quiet ledger
// path and cascades the observed deltas into the locked handlers, so a
// reward that levels the user up can unlock further achievements on this
// same call stack.
func (s *AchievementService) grantRewardsLocked(ctx context.Context, a *Achievement) {
	coins := 0
	attrs := AttributeSet{}
	if a.RewardType == WithReward {
		coins = a.RewardCoins
		attrs = a.RewardAttributes
	}

	deltas, err := s.ledger.GrantQuiet(ctx, coins, 0, attrs, 1)
	if err != nil {
		log.Printf("achievement: grant reward of %d: %v", a.ID, err)
		return
	}
	s.pending = append(s.pending, deltaEvents(s.ledger, deltas)...)

	if deltas.LevelChanged() {
		s.handleLevelChangedLocked(ctx, deltas.NewLevel)
	}
	if deltas.PrideChanged {
		if u, err := s.ledger.Current(); err == nil {
			s.handlePrideChangedLocked(ctx, u.Attributes.Pride)
		}
	}
	if deltas.CoinsChanged {
		if u, err := s.ledger.Current(); err == nil {
			s.handleCoinsChangedLocked(ctx, u.Coins)
		}
	}
}

func deltaEvents(l *Ledger, d GrantDeltas) []Event {
	var evs []Event
	if d.LevelChanged() {
		evs = append(evs, LevelChanged{OldLevel: d.OldLevel, NewLevel: d.NewLevel})
	}
	u, err := l.Current()
	if err != nil {
		return evs
	}
	if d.PrideChanged {
		evs = append(evs, PrideChanged{Pride: u.Attributes.Pride})
	}
	if d.CoinsChanged {
		evs = append(evs, CoinsChanged{Coins: u.Coins})
	}
	return evs
}

func aggregateProgress(conds []Condition) (goal, value int) {
	for _, c := range conds {
		goal += c.Target
		cur := c.Current
		if cur > c.Target {
			cur = c.Target
		}
		value += cur
	}
	if goal < 1 {
		goal = 1
	}
	return goal, value
}

func allConditionsMet(conds []Condition) bool {
	if len(conds) == 0 {
		return false
	}
	for _, c := range conds {
		if !c.Met() {
			return false
		}
	}
	return true
}

// sortedCacheLocked iterates deterministically by id.
func (s *AchievementService) sortedCacheLocked() []*Achievement {
	out := make([]*Achievement, 0, len(s.cache))
	for _, a := range s.cache {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *AchievementService) persistLocked(ctx context.Context, a *Achievement) error {
	rec, err := achievementToRecord(a)
	if err != nil {
		return err
	}
	ok, err := s.repo.Update(ctx, &rec)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAchievementNotFound
	}
	return nil
}

// CreateCustomAchievement validates and stores a player-authored
// achievement. Reward-carrying customs draw from a monthly quota.
func (s *AchievementService) CreateCustomAchievement(ctx context.Context, a Achievement) (Achievement, error) {
	if a.Name == "" {
		return Achievement{}, fmt.Errorf("achievement: name is required")
	}
	if len(a.Conditions) == 0 {
		return Achievement{}, fmt.Errorf("achievement: at least one condition is required")
	}
	for _, c := range a.Conditions {
		if c.Target <= 0 {
			return Achievement{}, fmt.Errorf("achievement: condition target must be positive")
		}
	}
	if a.RewardCoins < 0 {
		return Achievement{}, fmt.Errorf("achievement: reward coins cannot be negative")
	}

	a.Type = AchievementCustom
	a.Owner = MainOwner
	a.Creator = MainOwner
	a.Unlocked = false
	a.CompletedAt = nil
	for i := range a.Conditions {
		a.Conditions[i].Current = 0
	}
	a.ProgressGoal, a.ProgressValue = aggregateProgress(a.Conditions)
	if a.GalleryGroup == "" {
		a.GalleryGroup = "Custom"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if a.RewardType == WithReward {
		month := s.now().Format("2006-01")
		used, err := s.repo.CountRewardCustomInMonth(ctx, MainOwner, month)
		if err != nil {
			return Achievement{}, err
		}
		if used >= rewardCustomMonthlyQuota {
			return Achievement{}, ErrQuotaExceeded
		}
	}

	rec, err := achievementToRecord(&a)
	if err != nil {
		return Achievement{}, err
	}
	id, err := s.repo.Insert(ctx, rec)
	if err != nil {
		return Achievement{}, err
	}
	a.ID = id
	a.CreatedAt = s.now()
	stored := a
	s.cache[id] = &stored
	return a, nil
}

// UpdateCustomAchievement rewrites name, description and conditions of a
// custom achievement that has not unlocked yet.
func (s *AchievementService) UpdateCustomAchievement(ctx context.Context, id int64, name, description string, conds []Condition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.cache[id]
	if !ok {
		return ErrAchievementNotFound
	}
	if a.Type != AchievementCustom {
		return ErrSystemAchievement
	}
	if a.Unlocked {
		return fmt.Errorf("achievement: %q already unlocked", a.Name)
	}
	if len(conds) == 0 {
		return fmt.Errorf("achievement: at least one condition is required")
	}
	for _, c := range conds {
		if c.Target <= 0 {
			return fmt.Errorf("achievement: condition target must be positive")
		}
	}

	prev := *a
	if name != "" {
		a.Name = name
	}
	a.Description = description
	a.Conditions = make([]Condition, len(conds))
	copy(a.Conditions, conds)
	for i := range a.Conditions {
		a.Conditions[i].Current = 0
	}
	a.ProgressGoal, a.ProgressValue = aggregateProgress(a.Conditions)

	if err := s.persistLocked(ctx, a); err != nil {
		*a = prev
		return err
	}
	return nil
}

func (s *AchievementService) DeleteCustomAchievement(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.cache[id]
	if !ok {
		return ErrAchievementNotFound
	}
	if a.Type != AchievementCustom {
		return ErrSystemAchievement
	}
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAchievementNotFound
	}
	delete(s.cache, id)
	return nil
}

func (s *AchievementService) Get(id int64) (Achievement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.cache[id]
	if !ok {
		return Achievement{}, ErrAchievementNotFound
	}
	return cloneAchievement(a), nil
}

// List returns every achievement ordered by id.
func (s *AchievementService) List() []Achievement {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Achievement, 0, len(s.cache))
	for _, a := range s.sortedCacheLocked() {
		out = append(out, cloneAchievement(a))
	}
	return out
}

// Gallery groups achievements for display, ordered by group name.
func (s *AchievementService) Gallery() []GalleryGroup {
	s.mu.Lock()
	defer s.mu.Unlock()

	byGroup := make(map[string][]Achievement)
	for _, a := range s.sortedCacheLocked() {
		byGroup[a.GalleryGroup] = append(byGroup[a.GalleryGroup], cloneAchievement(a))
	}
	names := make([]string, 0, len(byGroup))
	for name := range byGroup {
		names = append(names, name)
	}
	sort.Strings(names)

	groups := make([]GalleryGroup, 0, len(names))
	for _, name := range names {
		groups = append(groups, GalleryGroup{Name: name, Achievements: byGroup[name]})
	}
	return groups
}

// GalleryGroup is one display section of the achievement gallery.
type GalleryGroup struct {
	Name         string
	Achievements []Achievement
}

func cloneAchievement(a *Achievement) Achievement {
	out := *a
	out.Conditions = make([]Condition, len(a.Conditions))
	copy(out.Conditions, a.Conditions)
	if a.CompletedAt != nil {
		t := *a.CompletedAt
		out.CompletedAt = &t
	}
	return out
}

// SeedSystemAchievements inserts the built-in templates that are not
// present yet, matching by name so reruns stay idempotent.
func (s *AchievementService) SeedSystemAchievements(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make(map[string]bool, len(s.cache))
	for _, a := range s.cache {
		if a.Type == AchievementSystem {
			existing[a.Name] = true
		}
	}

	for _, tpl := range systemTemplates() {
		if existing[tpl.Name] {
			continue
		}
		tpl.Owner = MainOwner
		tpl.Creator = "system"
		tpl.ProgressGoal, tpl.ProgressValue = aggregateProgress(tpl.Conditions)
		rec, err := achievementToRecord(&tpl)
		if err != nil {
			return err
		}
		id, err := s.repo.Insert(ctx, rec)
		if err != nil {
			return err
		}
		tpl.ID = id
		stored := tpl
		s.cache[id] = &stored
	}
	return nil
}

func systemTemplates() []Achievement {
	return []Achievement{
		{
			Name:         "First Steps",
			Description:  "Complete your first task.",
			Type:         AchievementSystem,
			RewardType:   WithReward,
			ProgressMode: ProgressMilestone,
			GalleryGroup: "Getting Started",
			RewardCoins:  20,
			Conditions:   []Condition{{Type: CondTaskCompleted, Target: 1}},
		},
		{
			Name:             "Daily Devotee",
			Description:      "Complete 30 daily tasks.",
			Type:             AchievementSystem,
			RewardType:       WithReward,
			ProgressMode:     ProgressIncremental,
			GalleryGroup:     "Consistency",
			RewardCoins:      100,
			RewardAttributes: AttributeSet{Execution: 5},
			Conditions:       []Condition{{Type: CondTaskTypeCount, TaskType: TaskDaily, Target: 30}},
		},
		{
			Name:             "Weekly Rhythm",
			Description:      "Complete 12 weekly tasks.",
			Type:             AchievementSystem,
			RewardType:       WithReward,
			ProgressMode:     ProgressIncremental,
			GalleryGroup:     "Consistency",
			RewardCoins:      150,
			RewardAttributes: AttributeSet{Social: 5},
			Conditions:       []Condition{{Type: CondTaskTypeCount, TaskType: TaskWeekly, Target: 12}},
		},
		{
			Name:             "Semester Scholar",
			Description:      "Complete 3 semester goals.",
			Type:             AchievementSystem,
			RewardType:       WithReward,
			ProgressMode:     ProgressIncremental,
			GalleryGroup:     "Milestones",
			RewardCoins:      300,
			RewardAttributes: AttributeSet{Knowledge: 10, Perseverance: 5},
			Conditions:       []Condition{{Type: CondTaskTypeCount, TaskType: TaskSemester, Target: 3}},
		},
		{
			Name:         "Rising Star",
			Description:  "Reach level 5.",
			Type:         AchievementSystem,
			RewardType:   WithReward,
			ProgressMode: ProgressMilestone,
			GalleryGroup: "Milestones",
			RewardCoins:  200,
			Conditions:   []Condition{{Type: CondLevel, Target: 5}},
		},
		{
			Name:             "Seasoned Grower",
			Description:      "Reach level 10.",
			Type:             AchievementSystem,
			RewardType:       WithReward,
			ProgressMode:     ProgressMilestone,
			GalleryGroup:     "Milestones",
			RewardCoins:      500,
			RewardAttributes: AttributeSet{Pride: 5},
			Conditions:       []Condition{{Type: CondLevel, Target: 10}},
		},
		{
			Name:         "Saver",
			Description:  "Hold 1000 coins at once.",
			Type:         AchievementSystem,
			RewardType:   NoReward,
			ProgressMode: ProgressMilestone,
			GalleryGroup: "Wealth",
			Conditions:   []Condition{{Type: CondCoins, Target: 1000}},
		},
		{
			Name:         "Proud Heart",
			Description:  "Grow pride to 50.",
			Type:         AchievementSystem,
			RewardType:   NoReward,
			ProgressMode: ProgressMilestone,
			GalleryGroup: "Wealth",
			Conditions:   []Condition{{Type: CondPride, Target: 50}},
		},
	}
}

func achievementToRecord(a *Achievement) (storage.Achievement, error) {
	conds, err := json.Marshal(a.Conditions)
	if err != nil {
		return storage.Achievement{}, fmt.Errorf("achievement conditions: %w", err)
	}
	return storage.Achievement{
		ID:           a.ID,
		Owner:        a.Owner,
		Creator:      a.Creator,
		Name:         a.Name,
		Description:  a.Description,
		Type:         string(a.Type),
		RewardType:   string(a.RewardType),
		ProgressMode: string(a.ProgressMode),
		Conditions:   string(conds),
		ProgressVal:  a.ProgressValue,
		ProgressGoal: a.ProgressGoal,
		RewardCoins:  a.RewardCoins,
		RewardAttrs:  encodeAttributeSet(a.RewardAttributes),
		Unlocked:     a.Unlocked,
		CompletedAt:  a.CompletedAt,
		GalleryGroup: a.GalleryGroup,
		CreatedAt:    a.CreatedAt,
	}, nil
}

func achievementFromRecord(rec storage.Achievement) (*Achievement, error) {
	a := &Achievement{
		ID:            rec.ID,
		Owner:         rec.Owner,
		Creator:       rec.Creator,
		Name:          rec.Name,
		Description:   rec.Description,
		Type:          AchievementType(rec.Type),
		RewardType:    RewardType(rec.RewardType),
		ProgressMode:  ProgressMode(rec.ProgressMode),
		ProgressValue: rec.ProgressVal,
		ProgressGoal:  rec.ProgressGoal,
		RewardCoins:   rec.RewardCoins,
		Unlocked:      rec.Unlocked,
		CompletedAt:   rec.CompletedAt,
		GalleryGroup:  rec.GalleryGroup,
		CreatedAt:     rec.CreatedAt,
	}
	if rec.Conditions != "" {
		if err := json.Unmarshal([]byte(rec.Conditions), &a.Conditions); err != nil {
			return nil, fmt.Errorf("achievement %d conditions: %w", rec.ID, err)
		}
	}
	attrs, err := decodeAttributeSet(rec.RewardAttrs)
	if err != nil {
		return nil, fmt.Errorf("achievement %d: %w", rec.ID, err)
	}
	a.RewardAttributes = attrs
	return a, nil
}

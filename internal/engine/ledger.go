package engine

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"growthline/internal/storage"
)

// MainOwner is the single local profile. The engine runs for one student,
// so the owner row is created on demand rather than through registration.
const MainOwner = "main"

// GrantDeltas reports which ledger facets a quiet grant moved. Callers use
// it to run follow-up evaluation on the same call stack instead of relying
// on bus events.
type GrantDeltas struct {
	OldLevel     int
	NewLevel     int
	PrideChanged bool
	CoinsChanged bool
}

func (d GrantDeltas) LevelChanged() bool { return d.NewLevel != d.OldLevel }

// Ledger owns the wallet and growth state of the main user. All mutations
// run under its lock, persist through the user repo, and publish change
// events only after the lock is released.
type Ledger struct {
	store *storage.Store
	users *storage.UserRepo
	bus   *Bus

	mu   sync.Mutex
	user *User
}

func NewLedger(store *storage.Store, bus *Bus) *Ledger {
	return &Ledger{
		store: store,
		users: storage.NewUserRepo(store),
		bus:   bus,
	}
}

// EnsureMainUser loads the main profile, creating it on first run.
func (l *Ledger) EnsureMainUser(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.user != nil {
		return nil
	}

	rec, err := l.users.GetByName(ctx, MainOwner)
	if err != nil {
		return err
	}
	if rec == nil {
		fresh := storage.User{Username: MainOwner, Level: 1}
		id, err := l.users.Insert(ctx, fresh)
		if err != nil {
			return err
		}
		l.user = &User{ID: id, Username: MainOwner, Level: 1}
		return nil
	}

	u := &User{
		ID:       rec.ID,
		Username: rec.Username,
		Level:    rec.Level,
		Growth:   rec.Growth,
		Coins:    rec.Coins,
	}
	if err := decodeUserBlob(rec.Attributes, u); err != nil {
		return fmt.Errorf("ledger: corrupt attribute blob for %q: %w", rec.Username, err)
	}
	// The stored level is advisory; the curve is authoritative.
	u.Level = LevelForGrowth(u.Growth)
	l.user = u
	return nil
}

// Current returns a snapshot of the session user.
func (l *Ledger) Current() (User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.user == nil {
		return User{}, ErrNoSession
	}
	return *l.user, nil
}

// ApplyTaskCompletion settles a completed task's rewards: coins, growth
// and attribute bonuses land atomically, counters advance, and change
// events fire afterwards.
func (l *Ledger) ApplyTaskCompletion(ctx context.Context, coins, growth int, attrs AttributeSet, taskType TaskType, category TaskCategory) error {
	deltas, err := l.grant(ctx, coins, growth, attrs, func(u *User) {
		u.RecordTaskCompletion(taskType, category)
	})
	if err != nil {
		return err
	}
	l.publishDeltas(deltas)
	return nil
}

// AddReward grants an out-of-band bonus, such as a milestone slot reward.
func (l *Ledger) AddReward(ctx context.Context, coins, growth int, attrs AttributeSet) error {
	deltas, err := l.grant(ctx, coins, growth, attrs, nil)
	if err != nil {
		return err
	}
	l.publishDeltas(deltas)
	return nil
}

// GrantQuiet applies a reward without publishing events and reports what
// changed. Achievement evaluation uses it to cascade follow-up checks on
// its own call stack while already holding its lock.
func (l *Ledger) GrantQuiet(ctx context.Context, coins, growth int, attrs AttributeSet, unlocks int) (GrantDeltas, error) {
	return l.grant(ctx, coins, growth, attrs, func(u *User) {
		for i := 0; i < unlocks; i++ {
			u.RecordAchievementUnlock()
		}
	})
}

// Spend deducts coins from the wallet. It joins any transaction already
// open on the store, so a failing caller can roll the deduction back.
func (l *Ledger) Spend(ctx context.Context, amount int) error {
	l.mu.Lock()
	if l.user == nil {
		l.mu.Unlock()
		return ErrNoSession
	}
	before := *l.user
	if err := l.user.SpendCoins(amount); err != nil {
		l.mu.Unlock()
		return err
	}
	if err := l.persistLocked(ctx); err != nil {
		*l.user = before
		l.mu.Unlock()
		return err
	}
	coins := l.user.Coins
	l.mu.Unlock()

	l.bus.Publish(CoinsChanged{Coins: coins})
	return nil
}

// Refund restores coins after a failed spend path rolled back its
// transaction but the in-memory wallet needs correcting too.
func (l *Ledger) Refund(amount int) {
	l.mu.Lock()
	if l.user != nil {
		l.user.AddCoins(amount)
	}
	l.mu.Unlock()
}

// DistributeAttributes spends the earned attribute budget on a plan.
func (l *Ledger) DistributeAttributes(ctx context.Context, plan AttributeSet) error {
	l.mu.Lock()
	if l.user == nil {
		l.mu.Unlock()
		return ErrNoSession
	}
	before := *l.user
	if err := l.user.DistributeAttributes(plan); err != nil {
		l.mu.Unlock()
		return err
	}
	if err := l.persistLocked(ctx); err != nil {
		*l.user = before
		l.mu.Unlock()
		return err
	}
	prideMoved := l.user.Attributes.Pride != before.Attributes.Pride
	pride := l.user.Attributes.Pride
	l.mu.Unlock()

	if prideMoved {
		l.bus.Publish(PrideChanged{Pride: pride})
	}
	return nil
}

// grant is the shared mutation core. mutate, when non-nil, runs after the
// reward lands and before persistence.
func (l *Ledger) grant(ctx context.Context, coins, growth int, attrs AttributeSet, mutate func(*User)) (GrantDeltas, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.user == nil {
		return GrantDeltas{}, ErrNoSession
	}

	before := *l.user
	l.user.AddCoins(coins)
	l.user.AddGrowthPoints(growth)
	l.user.ApplyAttributeBonus(attrs)
	if mutate != nil {
		mutate(l.user)
	}

	if err := l.persistLocked(ctx); err != nil {
		*l.user = before
		return GrantDeltas{}, err
	}

	return GrantDeltas{
		OldLevel:     before.Level,
		NewLevel:     l.user.Level,
		PrideChanged: l.user.Attributes.Pride != before.Attributes.Pride,
		CoinsChanged: l.user.Coins != before.Coins,
	}, nil
}

func (l *Ledger) persistLocked(ctx context.Context) error {
	rec := storage.User{
		ID:         l.user.ID,
		Username:   l.user.Username,
		Level:      l.user.Level,
		Growth:     l.user.Growth,
		Coins:      l.user.Coins,
		Attributes: encodeUserBlob(l.user),
	}
	return l.users.Update(ctx, &rec)
}

// PublishDeltas turns quiet-grant deltas into bus events. Callers must not
// hold any engine lock.
func (l *Ledger) PublishDeltas(d GrantDeltas) {
	l.publishDeltas(d)
}

func (l *Ledger) publishDeltas(d GrantDeltas) {
	l.mu.Lock()
	if l.user == nil {
		l.mu.Unlock()
		return
	}
	pride := l.user.Attributes.Pride
	coins := l.user.Coins
	l.mu.Unlock()

	if d.LevelChanged() {
		l.bus.Publish(LevelChanged{OldLevel: d.OldLevel, NewLevel: d.NewLevel})
	}
	if d.PrideChanged {
		l.bus.Publish(PrideChanged{Pride: pride})
	}
	if d.CoinsChanged {
		l.bus.Publish(CoinsChanged{Coins: coins})
	}
}

// The attribute column packs attributes and progress counters into a flat
// key=value blob so the users table stays a single row per profile.

func encodeUserBlob(u *User) string {
	pairs := map[string]int{
		"execution":       u.Attributes.Execution,
		"perseverance":    u.Attributes.Perseverance,
		"decision":        u.Attributes.Decision,
		"knowledge":       u.Attributes.Knowledge,
		"social":          u.Attributes.Social,
		"pride":           u.Attributes.Pride,
		"achievements":    u.Progress.AchievementsUnlocked,
		"tasks_total":     u.Progress.TotalTasksCompleted,
		"tasks_academic":  u.Progress.AcademicTasksCompleted,
		"tasks_social":    u.Progress.SocialTasksCompleted,
		"tasks_personal":  u.Progress.PersonalTasksCompleted,
		"tasks_daily":     u.Progress.DailyTasksCompleted,
		"tasks_weekly":    u.Progress.WeeklyTasksCompleted,
		"tasks_semester":  u.Progress.SemesterTasksCompleted,
		"tasks_custom":    u.Progress.CustomTasksCompleted,
		"attribute_spent": u.Progress.AttributePointsSpent,
	}
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strconv.Itoa(pairs[k]))
	}
	return b.String()
}

func decodeUserBlob(blob string, u *User) error {
	if blob == "" {
		return nil
	}
	for _, pair := range strings.Split(blob, ";") {
		if pair == "" {
			continue
		}
		key, val, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("malformed pair %q", pair)
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("value for %q: %w", key, err)
		}
		switch key {
		case "execution":
			u.Attributes.Execution = n
		case "perseverance":
			u.Attributes.Perseverance = n
		case "decision":
			u.Attributes.Decision = n
		case "knowledge":
			u.Attributes.Knowledge = n
		case "social":
			u.Attributes.Social = n
		case "pride":
			u.Attributes.Pride = n
		case "achievements":
			u.Progress.AchievementsUnlocked = n
		case "tasks_total":
			u.Progress.TotalTasksCompleted = n
		case "tasks_academic":
			u.Progress.AcademicTasksCompleted = n
		case "tasks_social":
			u.Progress.SocialTasksCompleted = n
		case "tasks_personal":
			u.Progress.PersonalTasksCompleted = n
		case "tasks_daily":
			u.Progress.DailyTasksCompleted = n
		case "tasks_weekly":
			u.Progress.WeeklyTasksCompleted = n
		case "tasks_semester":
			u.Progress.SemesterTasksCompleted = n
		case "tasks_custom":
			u.Progress.CustomTasksCompleted = n
		case "attribute_spent":
			u.Progress.AttributePointsSpent = n
		}
	}
	return nil
}

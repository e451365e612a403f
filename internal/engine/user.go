package engine

import "math"

const (
	attributeMin = 0
	attributeMax = 999

	// One distributable attribute point is earned per 50 growth points.
	growthPerAttributePoint = 50
)

// AttributeSet holds the six educational attributes.
type AttributeSet struct {
	Execution    int `json:"execution"`
	Perseverance int `json:"perseverance"`
	Decision     int `json:"decision"`
	Knowledge    int `json:"knowledge"`
	Social       int `json:"social"`
	Pride        int `json:"pride"`
}

// TotalPoints returns the sum of all six fields.
func (a AttributeSet) TotalPoints() int {
	return a.Execution + a.Perseverance + a.Decision + a.Knowledge + a.Social + a.Pride
}

// Add accumulates another set into this one without clamping.
func (a *AttributeSet) Add(other AttributeSet) {
	a.Execution += other.Execution
	a.Perseverance += other.Perseverance
	a.Decision += other.Decision
	a.Knowledge += other.Knowledge
	a.Social += other.Social
	a.Pride += other.Pride
}

// ProgressStats records meta progression such as achievements and task
// completions. The per-type counters persist across sessions so lifetime
// milestones keep counting between runs.
type ProgressStats struct {
	AchievementsUnlocked   int `json:"achievements"`
	TotalTasksCompleted    int `json:"tasks_total"`
	AcademicTasksCompleted int `json:"tasks_academic"`
	SocialTasksCompleted   int `json:"tasks_social"`
	PersonalTasksCompleted int `json:"tasks_personal"`
	DailyTasksCompleted    int `json:"tasks_daily"`
	WeeklyTasksCompleted   int `json:"tasks_weekly"`
	SemesterTasksCompleted int `json:"tasks_semester"`
	CustomTasksCompleted   int `json:"tasks_custom"`
	AttributePointsSpent   int `json:"attribute_spent"`
}

// CompletionsOfType returns the lifetime completion count for a task type.
func (p ProgressStats) CompletionsOfType(t TaskType) int {
	switch t {
	case TaskDaily:
		return p.DailyTasksCompleted
	case TaskWeekly:
		return p.WeeklyTasksCompleted
	case TaskSemester:
		return p.SemesterTasksCompleted
	case TaskCustom:
		return p.CustomTasksCompleted
	}
	return 0
}

// User is the in-memory ledger state for one student session. It holds pure
// state and deterministic business rules; persistence lives in Ledger.
type User struct {
	ID       int64
	Username string

	Level      int
	Growth     int
	Coins      int
	Attributes AttributeSet
	Progress   ProgressStats
}

// LevelForGrowth implements the level curve: 1 + floor(sqrt(growth/100)).
func LevelForGrowth(growth int) int {
	if growth <= 0 {
		return 1
	}
	return 1 + int(math.Sqrt(float64(growth)/100.0))
}

// AddGrowthPoints adds a positive growth delta and recomputes level.
// Growth never shrinks; a negative delta is a caller bug.
func (u *User) AddGrowthPoints(delta int) {
	if delta < 0 {
		panic("negative growth delta")
	}
	if delta == 0 {
		return
	}
	u.Growth += delta
	u.Level = LevelForGrowth(u.Growth)
}

func (u *User) AddCoins(amount int) {
	if amount <= 0 {
		return
	}
	u.Coins += amount
}

// SpendCoins deducts coins, failing with ErrInsufficientFunds when the
// balance cannot cover the amount.
func (u *User) SpendCoins(amount int) error {
	if amount <= 0 {
		return nil
	}
	if amount > u.Coins {
		return ErrInsufficientFunds
	}
	u.Coins -= amount
	return nil
}

// ApplyAttributeBonus adds the bonus and clamps every field into [0,999].
func (u *User) ApplyAttributeBonus(bonus AttributeSet) {
	u.Attributes.Add(bonus)
	u.clampAttributes()
}

// AvailableAttributePoints is the remaining manual distribution budget.
func (u *User) AvailableAttributePoints() int {
	earned := u.Growth / growthPerAttributePoint
	if rest := earned - u.Progress.AttributePointsSpent; rest > 0 {
		return rest
	}
	return 0
}

// DistributeAttributes spends budgeted points on the given plan, failing
// with ErrBudgetExceeded when the plan outruns the budget.
func (u *User) DistributeAttributes(plan AttributeSet) error {
	requested := plan.TotalPoints()
	if requested > u.AvailableAttributePoints() {
		return ErrBudgetExceeded
	}
	u.ApplyAttributeBonus(plan)
	u.Progress.AttributePointsSpent += requested
	return nil
}

// RecordTaskCompletion bumps the total, per-category and per-type counters.
func (u *User) RecordTaskCompletion(taskType TaskType, category TaskCategory) {
	u.Progress.TotalTasksCompleted++
	switch category {
	case CategoryAcademic:
		u.Progress.AcademicTasksCompleted++
	case CategorySocial:
		u.Progress.SocialTasksCompleted++
	case CategoryPersonal:
		u.Progress.PersonalTasksCompleted++
	}
	switch taskType {
	case TaskDaily:
		u.Progress.DailyTasksCompleted++
	case TaskWeekly:
		u.Progress.WeeklyTasksCompleted++
	case TaskSemester:
		u.Progress.SemesterTasksCompleted++
	case TaskCustom:
		u.Progress.CustomTasksCompleted++
	}
}

func (u *User) RecordAchievementUnlock() {
	u.Progress.AchievementsUnlocked++
}

func (u *User) clampAttributes() {
	u.Attributes.Execution = clampAttribute(u.Attributes.Execution)
	u.Attributes.Perseverance = clampAttribute(u.Attributes.Perseverance)
	u.Attributes.Decision = clampAttribute(u.Attributes.Decision)
	u.Attributes.Knowledge = clampAttribute(u.Attributes.Knowledge)
	u.Attributes.Social = clampAttribute(u.Attributes.Social)
	u.Attributes.Pride = clampAttribute(u.Attributes.Pride)
}

func clampAttribute(v int) int {
	if v < attributeMin {
		return attributeMin
	}
	if v > attributeMax {
		return attributeMax
	}
	return v
}

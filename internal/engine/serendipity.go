package engine

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// SerendipityKind names one daily login outcome.
type SerendipityKind string

const (
	SerendipityNothing   SerendipityKind = "nothing"
	SerendipityWindfall  SerendipityKind = "windfall"
	SerendipityBonusTask SerendipityKind = "bonus-task"
	SerendipityBlessing  SerendipityKind = "blessing"
)

// Draw thresholds for the login roll, checked in order.
const (
	windfallChance  = 0.10
	bonusTaskChance = 0.15
	blessingChance  = 0.25

	windfallCoins  = 30
	blessingGrowth = 15
)

// SerendipityOutcome reports what the login roll produced.
type SerendipityOutcome struct {
	Kind    SerendipityKind
	Message string
	TaskID  int64
}

// SerendipityEngine rolls a small surprise on the first login of each
// day. It only uses public ledger and task APIs, so its grants flow
// through the same settlement paths as everything else.
type SerendipityEngine struct {
	ledger *Ledger
	tasks  *TaskService
	now    func() time.Time

	mu       sync.Mutex
	rng      *rand.Rand
	lastRoll string
}

func NewSerendipityEngine(ledger *Ledger, tasks *TaskService) *SerendipityEngine {
	return &SerendipityEngine{
		ledger: ledger,
		tasks:  tasks,
		now:    time.Now,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetRand replaces the roll source, for deterministic tests.
func (s *SerendipityEngine) SetRand(r *rand.Rand) {
	s.mu.Lock()
	s.rng = r
	s.mu.Unlock()
}

// RollDailyLogin draws today's surprise. Repeat calls on the same day
// return the nothing outcome without rolling again.
func (s *SerendipityEngine) RollDailyLogin(ctx context.Context) (SerendipityOutcome, error) {
	s.mu.Lock()
	today := s.now().Format("2006-01-02")
	if s.lastRoll == today {
		s.mu.Unlock()
		return SerendipityOutcome{Kind: SerendipityNothing, Message: "already greeted today"}, nil
	}
	s.lastRoll = today
	roll := s.rng.Float64()
	s.mu.Unlock()

	switch {
	case roll < windfallChance:
		if err := s.ledger.AddReward(ctx, windfallCoins, 0, AttributeSet{}); err != nil {
			return SerendipityOutcome{}, err
		}
		return SerendipityOutcome{
			Kind:    SerendipityWindfall,
			Message: "a windfall of 30 coins fell into your pocket",
		}, nil

	case roll < windfallChance+bonusTaskChance:
		task, err := s.tasks.CreateTask(ctx, Task{
			Name:            "Serendipity challenge",
			Description:     "A surprise side quest appeared. Finish it today for a quick boost.",
			Type:            TaskCustom,
			DifficultyStars: 1,
			CoinReward:      20,
			GrowthReward:    10,
		})
		if err != nil {
			return SerendipityOutcome{}, err
		}
		return SerendipityOutcome{
			Kind:    SerendipityBonusTask,
			Message: "a surprise challenge appeared on your list",
			TaskID:  task.ID,
		}, nil

	case roll < windfallChance+bonusTaskChance+blessingChance:
		if err := s.ledger.AddReward(ctx, 0, blessingGrowth, AttributeSet{}); err != nil {
			return SerendipityOutcome{}, err
		}
		return SerendipityOutcome{
			Kind:    SerendipityBlessing,
			Message: "a quiet blessing added 15 growth points",
		}, nil

	default:
		return SerendipityOutcome{Kind: SerendipityNothing, Message: "an ordinary day"}, nil
	}
}

package engine

// EventKind routes an event to its subscribers.
type EventKind string

const (
	EventTaskCompleted       EventKind = "task-completed"
	EventTaskProgressed      EventKind = "task-progressed"
	EventLevelChanged        EventKind = "level-changed"
	EventPrideChanged        EventKind = "pride-changed"
	EventCoinsChanged        EventKind = "coins-changed"
	EventAchievementUnlocked EventKind = "achievement-unlocked"
	EventAchievementProgress EventKind = "achievement-progress"
)

// Event is a typed notification flowing through the Bus.
type Event interface {
	Kind() EventKind
}

// TaskCompleted fires after a task has been marked complete and its
// rewards settled.
type TaskCompleted struct {
	TaskID     int64
	TaskType   TaskType
	Difficulty int
}

func (TaskCompleted) Kind() EventKind { return EventTaskCompleted }

// TaskProgressed fires when an incremental task gains progress without
// reaching its goal.
type TaskProgressed struct {
	TaskID  int64
	Current int
	Goal    int
}

func (TaskProgressed) Kind() EventKind { return EventTaskProgressed }

type LevelChanged struct {
	OldLevel int
	NewLevel int
}

func (LevelChanged) Kind() EventKind { return EventLevelChanged }

type PrideChanged struct {
	Pride int
}

func (PrideChanged) Kind() EventKind { return EventPrideChanged }

type CoinsChanged struct {
	Coins int
}

func (CoinsChanged) Kind() EventKind { return EventCoinsChanged }

type AchievementUnlocked struct {
	AchievementID int64
	Name          string
}

func (AchievementUnlocked) Kind() EventKind { return EventAchievementUnlocked }

type AchievementProgressChanged struct {
	AchievementID int64
	Current       int
	Goal          int
}

func (AchievementProgressChanged) Kind() EventKind { return EventAchievementProgress }

// Bus dispatches events synchronously to subscribers registered per kind.
// Subscription happens during service wiring, before any publishing, so
// the subscriber table needs no locking. Handlers run on the publisher's
// goroutine and must not call back into the publisher's locked state.
type Bus struct {
	handlers map[EventKind][]func(Event)
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[EventKind][]func(Event))}
}

// Subscribe registers a handler for one event kind.
func (b *Bus) Subscribe(kind EventKind, fn func(Event)) {
	b.handlers[kind] = append(b.handlers[kind], fn)
}

// Publish delivers the event to every subscriber of its kind, in
// registration order.
func (b *Bus) Publish(ev Event) {
	for _, fn := range b.handlers[ev.Kind()] {
		fn(ev)
	}
}

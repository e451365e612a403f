package engine

import (
	"context"

	"growthline/internal/storage"
)

// Service wires the growth engine together over one store. Components
// receive their collaborators at construction and talk to each other
// through the event bus or direct calls, never through globals.
type Service struct {
	store *storage.Store

	Bus          *Bus
	Ledger       *Ledger
	Tasks        *TaskService
	Achievements *AchievementService
	Inventory    *InventoryService
	Shop         *ShopService
	Serendipity  *SerendipityEngine
}

// NewService builds the component graph on an opened store.
func NewService(store *storage.Store) *Service {
	bus := NewBus()
	ledger := NewLedger(store, bus)
	inventory := NewInventoryService(store)
	tasks := NewTaskService(store, ledger, bus, inventory)
	achievements := NewAchievementService(store, ledger, bus)
	shop := NewShopService(store, ledger, inventory, tasks)
	serendipity := NewSerendipityEngine(ledger, tasks)

	return &Service{
		store:        store,
		Bus:          bus,
		Ledger:       ledger,
		Tasks:        tasks,
		Achievements: achievements,
		Inventory:    inventory,
		Shop:         shop,
		Serendipity:  serendipity,
	}
}

// Open opens the database at path and returns a started service.
func Open(ctx context.Context, path string) (*Service, error) {
	store, err := storage.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	svc := NewService(store)
	if err := svc.Start(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return svc, nil
}

// Start loads session state: the main profile, the achievement cache
// with its system templates and any prop effects left active.
func (s *Service) Start(ctx context.Context) error {
	if err := s.Ledger.EnsureMainUser(ctx); err != nil {
		return err
	}
	if err := s.Inventory.Load(ctx); err != nil {
		return err
	}
	if err := s.Achievements.Load(ctx); err != nil {
		return err
	}
	if err := s.Achievements.SeedSystemAchievements(ctx); err != nil {
		return err
	}
	return nil
}

// Store exposes the underlying store, mainly for tests.
func (s *Service) Store() *storage.Store { return s.store }

func (s *Service) Close() error { return s.store.Close() }

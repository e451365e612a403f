package engine

import (
	"math/rand"
	"testing"
)

// fixedSource always yields the same fraction from Float64.
type fixedSource struct{ v int64 }

func (s fixedSource) Int63() int64 { return s.v }
func (s fixedSource) Seed(int64)   {}

func fixedRand(fraction float64) *rand.Rand {
	return rand.New(fixedSource{v: int64(fraction * (1 << 63))})
}

func TestLoginRollOutcomes(t *testing.T) {
	cases := []struct {
		name     string
		fraction float64
		want     SerendipityKind
	}{
		{"windfall", 0.05, SerendipityWindfall},
		{"bonus task", 0.20, SerendipityBonusTask},
		{"blessing", 0.40, SerendipityBlessing},
		{"nothing", 0.90, SerendipityNothing},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, ctx := newTestService(t)
			svc.Serendipity.SetRand(fixedRand(tc.fraction))

			out, err := svc.Serendipity.RollDailyLogin(ctx)
			if err != nil {
				t.Fatalf("roll: %v", err)
			}
			if out.Kind != tc.want {
				t.Fatalf("kind = %s, want %s", out.Kind, tc.want)
			}

			switch tc.want {
			case SerendipityWindfall:
				if got := currentUser(t, svc).Coins; got != windfallCoins {
					t.Fatalf("coins = %d, want %d", got, windfallCoins)
				}
			case SerendipityBlessing:
				if got := currentUser(t, svc).Growth; got != blessingGrowth {
					t.Fatalf("growth = %d, want %d", got, blessingGrowth)
				}
			case SerendipityBonusTask:
				if out.TaskID == 0 {
					t.Fatal("bonus task outcome should name the created task")
				}
				if _, err := svc.Tasks.GetTask(ctx, out.TaskID); err != nil {
					t.Fatalf("bonus task not stored: %v", err)
				}
			}
		})
	}
}

func TestLoginRollOncePerDay(t *testing.T) {
	svc, ctx := newTestService(t)
	svc.Serendipity.SetRand(fixedRand(0.05))

	first, err := svc.Serendipity.RollDailyLogin(ctx)
	if err != nil {
		t.Fatalf("first roll: %v", err)
	}
	if first.Kind != SerendipityWindfall {
		t.Fatalf("first kind = %s", first.Kind)
	}
	coins := currentUser(t, svc).Coins

	second, err := svc.Serendipity.RollDailyLogin(ctx)
	if err != nil {
		t.Fatalf("second roll: %v", err)
	}
	if second.Kind != SerendipityNothing {
		t.Fatalf("second kind = %s, want nothing", second.Kind)
	}
	if got := currentUser(t, svc).Coins; got != coins {
		t.Fatalf("second roll moved the wallet from %d to %d", coins, got)
	}
}

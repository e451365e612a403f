package root

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"growthline/internal/engine"
	"growthline/internal/ui"
)

func newAchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ach",
		Short: "Achievement gallery and custom achievements",
	}
	cmd.AddCommand(newAchListCmd(), newAchCreateCmd(), newAchDeleteCmd())
	return cmd
}

func newAchListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the achievement gallery",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, _, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Heading(ui.IconTrophy, "Achievement Gallery"))
			for _, g := range svc.Achievements.Gallery() {
				fmt.Fprintln(out, ui.H2.Render(g.Name))
				for _, a := range g.Achievements {
					mark := ui.Muted.Render("·")
					if a.Unlocked {
						mark = ui.Good.Render(ui.IconDone)
					}
					line := fmt.Sprintf("%s #%d %s (%d/%d)", mark, a.ID, a.Name, a.ProgressValue, a.ProgressGoal)
					if a.Description != "" {
						line += " " + ui.Muted.Render(a.Description)
					}
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out, "")
			}
			return nil
		},
	}
	return cmd
}

// parseCondition reads "type[:taskType]=target", e.g. "level=5" or
// "task-type-completed:Daily=30".
func parseCondition(raw string) (engine.Condition, error) {
	cond, targetStr, ok := strings.Cut(raw, "=")
	if !ok {
		return engine.Condition{}, fmt.Errorf("condition %q: want type=target", raw)
	}
	target, err := strconv.Atoi(targetStr)
	if err != nil {
		return engine.Condition{}, fmt.Errorf("condition %q: target must be an integer", raw)
	}

	kind, arg, _ := strings.Cut(cond, ":")
	c := engine.Condition{Type: engine.ConditionType(kind), Target: target}
	switch c.Type {
	case engine.CondTaskCompleted, engine.CondTaskTypeCount:
		if arg != "" {
			tt, err := engine.ParseTaskType(arg)
			if err != nil {
				return engine.Condition{}, err
			}
			c.TaskType = tt
		}
	case engine.CondCounter:
		c.Channel = engine.CounterChannel(arg)
		if c.Channel == engine.ChannelNone {
			c.Channel = engine.ChannelTaskProgress
		}
	case engine.CondLevel, engine.CondPride, engine.CondCoins:
	default:
		return engine.Condition{}, fmt.Errorf("unknown condition type %q", kind)
	}
	return c, nil
}

func newAchCreateCmd() *cobra.Command {
	var (
		desc        string
		conditions  []string
		rewardCoins int
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a custom achievement",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("name is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, _, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			a := engine.Achievement{
				Name:        args[0],
				Description: desc,
				RewardType:  engine.NoReward,
			}
			if rewardCoins > 0 {
				a.RewardType = engine.WithReward
				a.RewardCoins = rewardCoins
			}
			for _, raw := range conditions {
				c, err := parseCondition(raw)
				if err != nil {
					return err
				}
				a.Conditions = append(a.Conditions, c)
			}

			created, err := svc.Achievements.CreateCustomAchievement(ctx, a)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Created achievement #%d %q (goal %d)\n",
				ui.Good.Render(ui.IconPlus), created.ID, created.Name, created.ProgressGoal)
			return nil
		},
	}

	cmd.Flags().StringVarP(&desc, "desc", "d", "", "Description")
	cmd.Flags().StringArrayVarP(&conditions, "cond", "c", nil,
		"Condition as type[:arg]=target (level=5, coins=1000, task-type-completed:daily=30)")
	cmd.Flags().IntVar(&rewardCoins, "reward", 0, "Coin reward on unlock (draws from the monthly quota)")

	return cmd
}

func newAchDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a custom achievement",
		Args:  idArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := parseID(args)
			ctx := context.Background()
			svc, _, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := svc.Achievements.DeleteCustomAchievement(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted achievement #%d\n", ui.Good.Render(ui.IconDone), id)
			return nil
		},
	}
	return cmd
}

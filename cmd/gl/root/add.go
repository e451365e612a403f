package root

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"growthline/internal/engine"
	"growthline/internal/ui"
)

func newAddCmd() *cobra.Command {
	var (
		taskType string
		stars    int
		coins    int
		growth   int
		goal     int
		desc     string
		deadline string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a task",
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

			tt, err := engine.ParseTaskType(taskType)
			if err != nil {
				return err
			}
			task := engine.Task{
				Name:            args[0],
				Description:     desc,
				Type:            tt,
				DifficultyStars: stars,
				CoinReward:      coins,
				GrowthReward:    growth,
				ProgressGoal:    goal,
			}
			if deadline != "" {
				t, err := time.ParseInLocation("2006-01-02", deadline, time.Local)
				if err != nil {
					return fmt.Errorf("deadline: %w", err)
				}
				end := t.Add(24*time.Hour - time.Second)
				task.Deadline = &end
			}

			created, err := svc.Tasks.CreateTask(ctx, task)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Added %s #%d %q %s\n",
				ui.Good.Render(ui.IconPlus), created.Type, created.ID, created.Name, ui.Muted.Render(ui.Stars(created.DifficultyStars)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&taskType, "type", "t", "daily", "Task type (daily|weekly|semester|custom)")
	cmd.Flags().IntVarP(&stars, "stars", "s", 1, "Difficulty (1-5)")
	cmd.Flags().IntVarP(&coins, "coins", "c", 10, "Base coin reward")
	cmd.Flags().IntVarP(&growth, "growth", "g", 10, "Base growth reward")
	cmd.Flags().IntVar(&goal, "goal", 0, "Progress goal for incremental tasks")
	cmd.Flags().StringVarP(&desc, "desc", "d", "", "Description")
	cmd.Flags().StringVar(&deadline, "deadline", "", "Deadline (YYYY-MM-DD, required for semester tasks)")

	return cmd
}

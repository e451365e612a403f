package root

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"growthline/internal/ui"
)

func newListCmd() *cobra.Command {
	var showDone bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, _, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			tasks, err := svc.Tasks.ListTasks(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Heading(ui.IconSprout, "Tasks"))
			shown := 0
			for _, t := range tasks {
				if t.Completed && !showDone {
					continue
				}
				shown++
				line := fmt.Sprintf("%s #%d %s %s %s",
					ui.TypeIcon(string(t.Type)), t.ID, t.Name, ui.Muted.Render(ui.Stars(t.DifficultyStars)), ui.TaskStatus(t.Completed))
				if t.BonusStreak > 0 {
					line += " " + ui.Gold.Render(fmt.Sprintf("x%d", t.BonusStreak))
				}
				if t.ForgivenessCoupons > 0 {
					line += " " + ui.Muted.Render(fmt.Sprintf("(%d coupons)", t.ForgivenessCoupons))
				}
				if t.Deadline != nil {
					line += " " + ui.Muted.Render("due "+t.Deadline.Format("2006-01-02"))
				}
				if t.ProgressGoal > 0 && t.ProgressValue > 0 && !t.Completed {
					line += " " + ui.Muted.Render(fmt.Sprintf("%d/%d", t.ProgressValue, t.ProgressGoal))
				}
				fmt.Fprintln(out, line)
			}
			if shown == 0 {
				fmt.Fprintln(out, ui.Muted.Render("(nothing to show)"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showDone, "all", false, "Include completed tasks")

	return cmd
}

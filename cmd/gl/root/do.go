package root

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"growthline/internal/ui"
)

func parseID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, errors.New("id is required")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, errors.New("id must be an integer")
	}
	return id, nil
}

func idArgs(cmd *cobra.Command, args []string) error {
	_, err := parseID(args)
	return err
}

func newDoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "do <id>",
		Short: "Complete a task and collect its rewards",
		Args:  idArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := parseID(args)
			ctx := context.Background()
			svc, _, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			before, err := svc.Ledger.Current()
			if err != nil {
				return err
			}
			reward, err := svc.Tasks.MarkTaskCompleted(ctx, id)
			if err != nil {
				return err
			}
			after, err := svc.Ledger.Current()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s Completed #%d: %s +%d, %s +%d growth\n",
				ui.Good.Render(ui.IconDone), id, ui.IconCoin, reward.Coins, ui.IconSprout, reward.Growth)
			if reward.Multiplier > 1 {
				fmt.Fprintln(out, ui.Gold.Render(fmt.Sprintf("%s growth multiplied x%d", ui.IconSparkle, reward.Multiplier)))
			}
			if after.Level > before.Level {
				fmt.Fprintf(out, "%s Level %d → %d\n", ui.BadgeLevelUp, before.Level, after.Level)
			}
			return nil
		},
	}

	return cmd
}

func newFailCmd() *cobra.Command {
	var noShield bool

	cmd := &cobra.Command{
		Use:   "fail <id>",
		Short: "Record a missed task (shields apply first)",
		Args:  idArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := parseID(args)
			ctx := context.Background()
			svc, _, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := svc.Tasks.FailTask(ctx, id, !noShield); err != nil {
				return err
			}
			t, err := svc.Tasks.GetTask(ctx, id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if t.BonusStreak > 0 {
				fmt.Fprintf(out, "%s Failure forgiven, streak of %d survives\n", ui.Warn.Render(ui.IconWarn), t.BonusStreak)
			} else {
				fmt.Fprintf(out, "%s Streak reset for #%d\n", ui.Bad.Render(ui.IconError), id)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noShield, "no-shield", false, "Take the reset without spending a coupon or rest day token")

	return cmd
}

func newProgressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress <id> <delta>",
		Short: "Move an incremental task forward (or back)",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return errors.New("id and delta are required")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return errors.New("id must be an integer")
			}
			if _, err := strconv.Atoi(args[1]); err != nil {
				return errors.New("delta must be an integer")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := strconv.ParseInt(args[0], 10, 64)
			delta, _ := strconv.Atoi(args[1])
			ctx := context.Background()
			svc, _, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := svc.Tasks.UpdateTaskProgress(ctx, id, delta); err != nil {
				return err
			}
			t, err := svc.Tasks.GetTask(ctx, id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if t.Completed {
				fmt.Fprintf(out, "%s Goal reached, #%d completed\n", ui.Good.Render(ui.IconDone), id)
			} else {
				fmt.Fprintf(out, "%s #%d at %d/%d\n", ui.IconLoop, id, t.ProgressValue, t.ProgressGoal)
			}
			return nil
		},
	}

	return cmd
}

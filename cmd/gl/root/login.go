package root

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"growthline/internal/engine"
	"growthline/internal/ui"
)

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Check in for the day and roll for serendipity",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, _, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			outcome, err := svc.Serendipity.RollDailyLogin(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch outcome.Kind {
			case engine.SerendipityNothing:
				fmt.Fprintf(out, "%s %s\n", ui.Muted.Render(ui.IconClover), outcome.Message)
			default:
				fmt.Fprintf(out, "%s %s\n", ui.Good.Render(ui.IconClover), outcome.Message)
			}
			if outcome.TaskID != 0 {
				fmt.Fprintln(out, ui.Muted.Render(fmt.Sprintf("see task #%d", outcome.TaskID)))
			}
			return nil
		},
	}
	return cmd
}
